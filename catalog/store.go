package catalog

import (
	"context"
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"

	"github.com/Ashenafi-pixel/prizewheel/wheel"
)

// Store persists products and recorded spins.
type Store interface {
	Create(ctx context.Context, in NewProduct) (*Product, error)
	// FindAll lists every product, most recently created first.
	FindAll(ctx context.Context) ([]Product, error)
	// FindActive lists active products in creation order, which is the
	// order of the wheel's sectors.
	FindActive(ctx context.Context) ([]Product, error)
	FindByID(ctx context.Context, id string) (*Product, error)
	Update(ctx context.Context, id string, patch ProductPatch) (*Product, error)
	Delete(ctx context.Context, id string) error
	// RecordSpin stores an outcome. The product is attached when it still
	// exists; an unknown id is recorded as-is.
	RecordSpin(ctx context.Context, productID, ipAddress string) (*Spin, error)
	// ListSpins returns up to limit spins, most recent first. limit <= 0
	// means all.
	ListSpins(ctx context.Context, limit int) ([]Spin, error)
}

// Items adapts a Store to wheel.ItemSource.
type Items struct {
	Store Store
}

func (s Items) ActiveItems(ctx context.Context) ([]wheel.Item, error) {
	products, err := s.Store.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]wheel.Item, 0, len(products))
	for _, p := range products {
		items = append(items, p.Item())
	}
	return items, nil
}

func newID() string {
	return uuid.NewString()
}

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// ShortID returns n random lowercase alphanumerics, used for upload names.
func ShortID(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(idAlphabet)))
	for i := range b {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			b[i] = idAlphabet[0]
			continue
		}
		b[i] = idAlphabet[v.Int64()]
	}
	return string(b)
}
