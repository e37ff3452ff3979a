package catalog

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Ashenafi-pixel/prizewheel/wheel"
)

var (
	ErrNotFound       = errors.New("catalog: not found")
	ErrInvalidProduct = errors.New("catalog: invalid product")
)

// Product is a prize on the wheel. Probability is a relative weight, usually
// kept as a percentage.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Image       string    `json:"image,omitempty"`
	Probability float64   `json:"probability"`
	IsActive    bool      `json:"isActive"`
	Rotation    int       `json:"rotation"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Item converts the product to a wheel entry.
func (p Product) Item() wheel.Item {
	return wheel.Item{
		ID:       p.ID,
		Weight:   p.Probability,
		Label:    p.Name,
		Image:    p.Image,
		Rotation: p.Rotation,
	}
}

// Spin is a recorded wheel outcome.
type Spin struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	Timestamp time.Time `json:"timestamp"`
	IPAddress string    `json:"ipAddress,omitempty"`
	Product   *Product  `json:"product,omitempty"`
}

// NewProduct is the input to Create. IsActive defaults to true.
type NewProduct struct {
	Name        string   `json:"name"`
	Image       string   `json:"image,omitempty"`
	Probability *float64 `json:"probability"`
	IsActive    *bool    `json:"isActive,omitempty"`
	Rotation    int      `json:"rotation,omitempty"`
}

// ProductPatch carries the fields to change; nil fields are left alone.
type ProductPatch struct {
	Name        *string  `json:"name,omitempty"`
	Image       *string  `json:"image,omitempty"`
	Probability *float64 `json:"probability,omitempty"`
	IsActive    *bool    `json:"isActive,omitempty"`
	Rotation    *int     `json:"rotation,omitempty"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidProduct, fmt.Sprintf(format, args...))
}

// build validates in and returns the product it describes, without ID or
// timestamps.
func (in NewProduct) build() (Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Product{}, invalid("name is required")
	}
	if in.Probability == nil {
		return Product{}, invalid("probability is required")
	}
	if err := checkProbability(*in.Probability); err != nil {
		return Product{}, err
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return Product{
		Name:        name,
		Image:       strings.TrimSpace(in.Image),
		Probability: *in.Probability,
		IsActive:    active,
		Rotation:    NormalizeRotation(in.Rotation),
	}, nil
}

// apply returns p with the patch applied.
func (pt ProductPatch) apply(p Product) (Product, error) {
	if pt.Name != nil {
		name := strings.TrimSpace(*pt.Name)
		if name == "" {
			return p, invalid("name is required")
		}
		p.Name = name
	}
	if pt.Image != nil {
		p.Image = strings.TrimSpace(*pt.Image)
	}
	if pt.Probability != nil {
		if err := checkProbability(*pt.Probability); err != nil {
			return p, err
		}
		p.Probability = *pt.Probability
	}
	if pt.IsActive != nil {
		p.IsActive = *pt.IsActive
	}
	if pt.Rotation != nil {
		p.Rotation = NormalizeRotation(*pt.Rotation)
	}
	return p, nil
}

func checkProbability(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return invalid("probability must be a non-negative number, got %v", v)
	}
	return nil
}

// NormalizeRotation wraps degrees into [0, 360).
func NormalizeRotation(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}

// NextRotation turns an image a quarter turn clockwise, as the admin rotate
// button does.
func NextRotation(deg int) int {
	return NormalizeRotation(deg + 90)
}
