package catalog

import (
	"errors"
	"math"
)

// FullPercentage is the total the active probabilities are meant to reach.
const FullPercentage = 100.0

var ErrNothingToDistribute = errors.New("catalog: nothing to distribute")

// Adjustment is one planned probability change.
type Adjustment struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	From float64 `json:"from"`
	To   float64 `json:"to"`
}

// ActiveTotal sums the probabilities of active products.
func ActiveTotal(products []Product) float64 {
	var total float64
	for _, p := range products {
		if p.IsActive {
			total += p.Probability
		}
	}
	return total
}

// Remaining is what is left of target after the active products.
func Remaining(products []Product, target float64) float64 {
	return target - ActiveTotal(products)
}

// MaxAllowed is the largest probability an active product may take without
// pushing the total past target. editing is the product being changed, or
// nil for a new one. The value is not rounded; callers compare against it
// exactly.
func MaxAllowed(products []Product, editing *Product, target float64) float64 {
	max := Remaining(products, target)
	if editing != nil && editing.IsActive {
		max += editing.Probability
	}
	return max
}

// Distribute spreads the remainder of target over the active products in
// order: each gets the per-product share floored to one decimal, the last
// takes whatever is left, and every result is rounded to one decimal.
func Distribute(products []Product, target float64) ([]Adjustment, error) {
	var active []Product
	for _, p := range products {
		if p.IsActive {
			active = append(active, p)
		}
	}
	remaining := Remaining(products, target)
	if len(active) == 0 || remaining <= 0 {
		return nil, ErrNothingToDistribute
	}
	share := math.Floor(remaining/float64(len(active))*10) / 10
	left := remaining
	out := make([]Adjustment, 0, len(active))
	for i, p := range active {
		add := share
		if i == len(active)-1 {
			add = left
		}
		left -= add
		out = append(out, Adjustment{
			ID:   p.ID,
			Name: p.Name,
			From: p.Probability,
			To:   round1(p.Probability + add),
		})
	}
	return out, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
