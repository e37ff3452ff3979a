package wheel

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

// seq replays fixed draws, cycling when exhausted.
type seq struct {
	vals []float64
	i    int
}

func (s *seq) Float64() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

func draws(v ...float64) *seq { return &seq{vals: v} }

func weighted(ws ...float64) []Item {
	items := make([]Item, len(ws))
	for i, w := range ws {
		items[i] = Item{ID: string(rune('a' + i)), Weight: w, Label: string(rune('A' + i))}
	}
	return items
}

func TestSelect_EmptyAndNoWeight(t *testing.T) {
	if _, err := Select(nil, draws(0.5)); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("nil items: got %v want ErrEmptySelection", err)
	}
	if _, err := Select([]Item{}, draws(0.5)); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("empty items: got %v want ErrEmptySelection", err)
	}
	if _, err := Select(weighted(0, 0), draws(0.5)); !errors.Is(err, ErrNoWeight) {
		t.Fatalf("all zero: got %v want ErrNoWeight", err)
	}
	if _, err := Select(weighted(-5, 0, math.NaN()), draws(0.5)); !errors.Is(err, ErrNoWeight) {
		t.Fatalf("negative and NaN: got %v want ErrNoWeight", err)
	}
}

func TestSelect_NonFiniteTotal(t *testing.T) {
	cases := map[string][]Item{
		"infinite weight": weighted(1, math.Inf(1)),
		"sum overflows":   weighted(math.MaxFloat64, math.MaxFloat64),
	}
	for name, items := range cases {
		_, err := Select(items, draws(0.5))
		if !errors.Is(err, ErrWeightOverflow) || errors.Is(err, ErrNoWeight) {
			t.Errorf("%s: got %v want ErrWeightOverflow", name, err)
		}
	}
	// -Inf is negative, so it clamps to zero like any other negative weight
	if idx, err := Select(weighted(math.Inf(-1), 2), draws(0.5)); err != nil || idx != 1 {
		t.Errorf("-Inf: got %d %v", idx, err)
	}
}

func TestSelect_CumulativeScenario(t *testing.T) {
	// cumulative 10,30,60,100; r = 55 lands in the third item
	idx, err := Select(weighted(10, 20, 30, 40), draws(0.55))
	if err != nil {
		t.Fatal(err)
	}
	if idx != 2 {
		t.Errorf("got index %d want 2", idx)
	}
}

func TestSelect_BoundaryGoesToEarlierItem(t *testing.T) {
	items := weighted(1, 1, 2) // total 4
	cases := []struct {
		draw float64
		want int
	}{
		{0, 0},
		{0.25, 0}, // r = 1, exactly the first cumulative weight
		{0.26, 1},
		{0.5, 1}, // r = 2
		{0.51, 2},
		{0.999999, 2},
	}
	for _, c := range cases {
		idx, err := Select(items, draws(c.draw))
		if err != nil {
			t.Fatal(err)
		}
		if idx != c.want {
			t.Errorf("draw %v: got %d want %d", c.draw, idx, c.want)
		}
	}
}

func TestSelect_SkipsZeroWeight(t *testing.T) {
	items := weighted(0, 100, -3, 0)
	for _, d := range []float64{0, 0.3, 0.999} {
		idx, err := Select(items, draws(d))
		if err != nil {
			t.Fatal(err)
		}
		if idx != 1 {
			t.Errorf("draw %v: expected only index 1, got %d", d, idx)
		}
	}
}

func TestSelect_Distribution(t *testing.T) {
	// 70 / 20 / 10 with a seeded generator, then once more on the CSPRNG.
	items := weighted(70, 20, 10)
	want := []float64{0.70, 0.20, 0.10}
	sources := map[string]Source{
		"pcg":    rand.New(rand.NewPCG(42, 7)),
		"crypto": CryptoSource{},
	}
	const rounds = 100_000
	tol := 0.02
	for name, src := range sources {
		count := make([]int, len(items))
		for i := 0; i < rounds; i++ {
			idx, err := Select(items, src)
			if err != nil {
				t.Fatal(err)
			}
			count[idx]++
		}
		for i, wantP := range want {
			gotP := float64(count[i]) / rounds
			if gotP < wantP-tol || gotP > wantP+tol {
				t.Errorf("%s: index %d proportion %.4f want ~%.2f (tol ±%.0f%%)", name, i, gotP, wantP, tol*100)
			}
		}
	}
}

func TestSelect_FractionalWeights(t *testing.T) {
	// Product probabilities are percentages with one decimal.
	items := weighted(0.1, 99.9)
	src := rand.New(rand.NewPCG(1, 2))
	const rounds = 200_000
	hits := 0
	for i := 0; i < rounds; i++ {
		idx, err := Select(items, src)
		if err != nil {
			t.Fatal(err)
		}
		if idx == 0 {
			hits++
		}
	}
	if p := float64(hits) / rounds; p < 0.0005 || p > 0.0015 {
		t.Errorf("rare item proportion %.5f want ~0.001", p)
	}
}

func TestTotalWeight(t *testing.T) {
	if got := TotalWeight(weighted(1.5, -2, 2.5, math.NaN())); got != 4 {
		t.Errorf("TotalWeight = %v want 4", got)
	}
}
