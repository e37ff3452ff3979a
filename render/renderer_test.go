package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ashenafi-pixel/prizewheel/asset"
	"github.com/Ashenafi-pixel/prizewheel/wheel"
)

type call struct {
	op    string
	a, b  float64 // start/end for sectors, rotation for images
	fill  color.Color
	label string
}

type fakeSurface struct {
	w, h  int
	calls []call
}

func (s *fakeSurface) Size() (int, int)  { return s.w, s.h }
func (s *fakeSurface) Clear(color.Color) { s.calls = s.calls[:0] }
func (s *fakeSurface) FillSector(cx, cy, r, start, end float64, fill color.Color) {
	s.calls = append(s.calls, call{op: "sector", a: start, b: end, fill: fill})
}
func (s *fakeSurface) FillDisc(cx, cy, r float64, fill, stroke color.Color) {
	s.calls = append(s.calls, call{op: "disc", fill: fill})
}
func (s *fakeSurface) DrawImage(img image.Image, cx, cy, size, rot float64) {
	s.calls = append(s.calls, call{op: "image", a: rot})
}
func (s *fakeSurface) DrawLabel(text string, cx, cy, size float64, c color.Color) {
	s.calls = append(s.calls, call{op: "label", label: text})
}
func (s *fakeSurface) DrawPointer(cx, cy, r, angle float64, c color.Color) {
	s.calls = append(s.calls, call{op: "pointer", a: angle})
}

func (s *fakeSurface) count(op string) int {
	n := 0
	for _, c := range s.calls {
		if c.op == op {
			n++
		}
	}
	return n
}

func waitRedraw(t *testing.T, c *Cache) {
	t.Helper()
	select {
	case <-c.Redraw():
	case <-time.After(2 * time.Second):
		t.Fatal("no redraw signal")
	}
}

func TestRender_EqualSectorsAlternatingColours(t *testing.T) {
	s := &fakeSurface{w: 400, h: 400}
	r := NewRenderer(s, nil, DefaultStyle())
	items := []wheel.Item{{ID: "a", Weight: 1}, {ID: "b", Weight: 50}, {ID: "c", Weight: 0.5}, {ID: "d", Weight: 10}}
	r.Render(items, 30)

	var sectors []call
	for _, c := range s.calls {
		if c.op == "sector" {
			sectors = append(sectors, c)
		}
	}
	if len(sectors) != 4 {
		t.Fatalf("got %d sectors want 4", len(sectors))
	}
	style := DefaultStyle()
	for i, c := range sectors {
		if span := c.b - c.a; span != 90 {
			t.Errorf("sector %d spans %v want 90 regardless of weight", i, span)
		}
		if c.a != 30+float64(i)*90 {
			t.Errorf("sector %d starts at %v", i, c.a)
		}
		if c.fill != style.SectorColors[i%2] {
			t.Errorf("sector %d colour %v", i, c.fill)
		}
	}
	if s.count("disc") != 4 || s.count("label") != 4 {
		t.Errorf("want a placeholder per item, got %d discs %d labels", s.count("disc"), s.count("label"))
	}
	if s.count("pointer") != 1 {
		t.Error("pointer not drawn")
	}
}

func TestRender_EmptyItems(t *testing.T) {
	s := &fakeSurface{w: 100, h: 100}
	NewRenderer(s, nil, DefaultStyle()).Render(nil, 0)
	if len(s.calls) != 0 {
		t.Errorf("empty wheel drew %v", s.calls)
	}
}

func TestRender_ImageReadyTriggersRedraw(t *testing.T) {
	release := make(chan struct{})
	var loads atomic.Int32
	loader := asset.LoaderFunc(func(ctx context.Context, ref string) (image.Image, error) {
		loads.Add(1)
		<-release
		return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
	})
	cache := NewCache(loader, time.Second, zerolog.Nop())
	defer cache.Close()

	s := &fakeSurface{w: 400, h: 400}
	r := NewRenderer(s, cache, DefaultStyle())
	items := []wheel.Item{{ID: "a", Weight: 1, Image: "/images/a.png", Rotation: 90}, {ID: "b", Weight: 1, Label: "Bola"}}

	r.Render(items, 10)
	r.Render(items, 20) // pending load must not start a second fetch
	if s.count("image") != 0 || s.count("disc") != 2 {
		t.Fatalf("before load: %v", s.calls)
	}
	if cache.State("/images/a.png") != Pending {
		t.Fatalf("state %v want pending", cache.State("/images/a.png"))
	}

	close(release)
	waitRedraw(t, cache)
	r.Render(items, 20)
	if s.count("image") != 1 || s.count("disc") != 1 {
		t.Fatalf("after load: %v", s.calls)
	}
	for _, c := range s.calls {
		if c.op == "image" && c.a != 110 {
			t.Errorf("image rotation %v want wheel 20 + item 90", c.a)
		}
	}
	if n := loads.Load(); n != 1 {
		t.Errorf("loader called %d times want 1", n)
	}
}

func TestRender_FailedLoadFallsBackOnce(t *testing.T) {
	var loads atomic.Int32
	loader := asset.LoaderFunc(func(ctx context.Context, ref string) (image.Image, error) {
		loads.Add(1)
		return nil, errors.New("404")
	})
	cache := NewCache(loader, time.Second, zerolog.Nop())
	defer cache.Close()

	s := &fakeSurface{w: 400, h: 400}
	r := NewRenderer(s, cache, DefaultStyle())
	items := []wheel.Item{{ID: "a", Weight: 1, Image: "https://x/a.png", Label: "🥤 Refri"}}
	r.Render(items, 0)
	waitRedraw(t, cache)
	for i := 0; i < 5; i++ {
		r.Render(items, float64(i))
	}
	if loads.Load() != 1 {
		t.Errorf("failed ref retried: %d loads", loads.Load())
	}
	if cache.State("https://x/a.png") != Failed {
		t.Fatal("entry not marked failed")
	}
	err := cache.Err("https://x/a.png")
	var le *AssetLoadError
	if !errors.Is(err, ErrAssetLoad) || !errors.As(err, &le) || le.Ref != "https://x/a.png" {
		t.Errorf("recorded error %v", err)
	}
	for _, c := range s.calls {
		if c.op == "label" && c.label != "🥤" {
			t.Errorf("placeholder label %q", c.label)
		}
	}
}

func TestCache_ConcurrentRenders(t *testing.T) {
	cache := NewCache(asset.LoaderFunc(func(ctx context.Context, ref string) (image.Image, error) {
		return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
	}), time.Second, zerolog.Nop())
	defer cache.Close()
	items := []wheel.Item{{ID: "a", Weight: 1, Image: "a"}, {ID: "b", Weight: 1, Image: "b"}}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := NewRenderer(&fakeSurface{w: 100, h: 100}, cache, DefaultStyle())
			for j := 0; j < 50; j++ {
				r.Render(items, float64(j))
			}
		}()
	}
	wg.Wait()
}

func TestCache_GetDuringClose(t *testing.T) {
	cache := NewCache(asset.LoaderFunc(func(ctx context.Context, ref string) (image.Image, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}), time.Second, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				cache.Get(strconv.Itoa(i*1000 + j))
			}
		}(i)
	}
	cache.Close()
	wg.Wait()

	// anything requested after Close fails at once
	cache.Get("late")
	if cache.State("late") != Failed || !errors.Is(cache.Err("late"), context.Canceled) {
		t.Errorf("late ref %v %v", cache.State("late"), cache.Err("late"))
	}
}

func TestPlaceholderGlyph(t *testing.T) {
	cases := map[string]string{
		"🥤 Refrigerante": "🥤",
		"Bola ⚽":         "⚽",
		"Camiseta":       "C",
		"ágil":           "á",
		"":               "?",
	}
	for in, want := range cases {
		if got := PlaceholderGlyph(in); got != want {
			t.Errorf("PlaceholderGlyph(%q) = %q want %q", in, got, want)
		}
	}
}

func TestPlaceholderColor(t *testing.T) {
	// hsl(0, 70%, 60%) = rgb(224, 82, 82)
	r, g, b, _ := PlaceholderColor(0, 4).RGBA()
	if !within(r>>8, 224) || !within(g>>8, 82) || !within(b>>8, 82) {
		t.Errorf("got %d,%d,%d", r>>8, g>>8, b>>8)
	}
	if PlaceholderColor(1, 4) == PlaceholderColor(2, 4) {
		t.Error("placeholder colours should differ per sector")
	}
}

func within(got uint32, want uint32) bool {
	d := int(got) - int(want)
	return d >= -1 && d <= 1
}

func TestGGSurface_PaintsSectors(t *testing.T) {
	s := NewGGSurface(200, 200)
	r := NewRenderer(s, nil, DefaultStyle())
	r.Render([]wheel.Item{{ID: "a", Weight: 1, Label: "A"}, {ID: "b", Weight: 1, Label: "B"}}, 0)

	// at angle 0 sector 0 covers the lower half, sector 1 the upper half
	check := func(x, y int, want color.RGBA) {
		t.Helper()
		got := color.RGBAModel.Convert(s.Image().At(x, y)).(color.RGBA)
		if !within(uint32(got.R), uint32(want.R)) || !within(uint32(got.G), uint32(want.G)) || !within(uint32(got.B), uint32(want.B)) {
			t.Errorf("pixel (%d,%d) = %v want %v", x, y, got, want)
		}
	}
	check(100, 130, color.RGBA{0x22, 0xc5, 0x5e, 0xff})
	check(100, 70, color.RGBA{0x16, 0xa3, 0x4a, 0xff})

	var buf bytes.Buffer
	if err := s.EncodePNG(&buf); err != nil {
		t.Fatal(err)
	}
	if _, err := png.Decode(&buf); err != nil {
		t.Fatal(err)
	}
}
