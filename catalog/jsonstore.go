package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// JSONStore keeps products and spins in two JSON files under a data
// directory. Suitable for a single process.
type JSONStore struct {
	mu       sync.RWMutex
	dataDir  string
	products []Product // creation order
	spins    []Spin    // recording order
	now      func() time.Time
}

func NewJSONStore(dataDir string) (*JSONStore, error) {
	if dataDir == "" {
		dataDir = "data"
	}
	s := &JSONStore{dataDir: dataDir, now: time.Now}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JSONStore) productsPath() string { return filepath.Join(s.dataDir, "products.json") }
func (s *JSONStore) spinsPath() string    { return filepath.Join(s.dataDir, "spins.json") }

func (s *JSONStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := readJSON(s.productsPath(), &s.products); err != nil {
		return err
	}
	return readJSON(s.spinsPath(), &s.spins)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeJSON replaces path atomically via a temp file.
func (s *JSONStore) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// saveProductsLocked writes products. Caller must hold s.mu.
func (s *JSONStore) saveProductsLocked() error {
	return s.writeJSON(s.productsPath(), s.products)
}

func (s *JSONStore) indexLocked(id string) int {
	for i := range s.products {
		if s.products[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *JSONStore) Create(ctx context.Context, in NewProduct) (*Product, error) {
	p, err := in.build()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	p.ID = newID()
	p.CreatedAt, p.UpdatedAt = now, now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = append(s.products, p)
	if err := s.saveProductsLocked(); err != nil {
		s.products = s.products[:len(s.products)-1]
		return nil, err
	}
	return &p, nil
}

func (s *JSONStore) FindAll(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, 0, len(s.products))
	for i := len(s.products) - 1; i >= 0; i-- {
		out = append(out, s.products[i])
	}
	return out, nil
}

func (s *JSONStore) FindActive(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *JSONStore) FindByID(ctx context.Context, id string) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	p := s.products[i]
	return &p, nil
}

func (s *JSONStore) Update(ctx context.Context, id string, patch ProductPatch) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	prev := s.products[i]
	p, err := patch.apply(prev)
	if err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now().UTC()
	s.products[i] = p
	if err := s.saveProductsLocked(); err != nil {
		s.products[i] = prev
		return nil, err
	}
	return &p, nil
}

func (s *JSONStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return ErrNotFound
	}
	prev := s.products
	next := make([]Product, 0, len(prev)-1)
	next = append(next, prev[:i]...)
	next = append(next, prev[i+1:]...)
	s.products = next
	if err := s.saveProductsLocked(); err != nil {
		s.products = prev
		return err
	}
	return nil
}

func (s *JSONStore) RecordSpin(ctx context.Context, productID, ipAddress string) (*Spin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp := Spin{
		ID:        newID(),
		ProductID: productID,
		Timestamp: s.now().UTC(),
		IPAddress: ipAddress,
	}
	s.spins = append(s.spins, sp)
	if err := s.writeJSON(s.spinsPath(), s.spins); err != nil {
		s.spins = s.spins[:len(s.spins)-1]
		return nil, err
	}
	if i := s.indexLocked(productID); i >= 0 {
		p := s.products[i]
		sp.Product = &p
	}
	return &sp, nil
}

func (s *JSONStore) ListSpins(ctx context.Context, limit int) ([]Spin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.spins)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Spin, 0, n)
	for i := len(s.spins) - 1; i >= 0 && len(out) < n; i-- {
		sp := s.spins[i]
		if j := s.indexLocked(sp.ProductID); j >= 0 {
			p := s.products[j]
			sp.Product = &p
		}
		out = append(out, sp)
	}
	return out, nil
}
