package wheel

import "math"

// Select picks a winning index by weight using inverse-CDF sampling.
//
// A draw r is taken uniformly from [0, total). Walking the items in order, the
// winner is the first index whose cumulative weight reaches or exceeds r, so
// each item owns the interval (prevCum, cum] and an exact boundary hit goes to
// the earlier item. Negative and NaN weights count as zero, and zero-weight
// items are skipped so they can never win. An infinite weight, or a sum that
// overflows, is ErrWeightOverflow rather than ErrNoWeight.
func Select(items []Item, src Source) (int, error) {
	if len(items) == 0 {
		return -1, ErrEmptySelection
	}
	var total float64
	for _, it := range items {
		total += weightOf(it)
	}
	if math.IsInf(total, 0) {
		return -1, ErrWeightOverflow
	}
	if !(total > 0) {
		return -1, ErrNoWeight
	}
	r := src.Float64() * total
	var cum float64
	last := -1
	for i, it := range items {
		w := weightOf(it)
		if w <= 0 {
			continue
		}
		cum += w
		last = i
		if cum >= r {
			return i, nil
		}
	}
	// Float accumulation fell short of r; the last weighted item owns the tail.
	return last, nil
}

// TotalWeight sums the effective (clamped) weights.
func TotalWeight(items []Item) float64 {
	var total float64
	for _, it := range items {
		total += weightOf(it)
	}
	return total
}

func weightOf(it Item) float64 {
	if math.IsNaN(it.Weight) || it.Weight < 0 {
		return 0
	}
	return it.Weight
}
