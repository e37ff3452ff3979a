package render

import (
	"image"
	"image/color"
	"math"
	"unicode/utf8"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/Ashenafi-pixel/prizewheel/wheel"
)

// Surface is a 2-D drawing target. Angles are degrees, growing clockwise on
// screen, with 0 pointing right.
type Surface interface {
	Size() (w, h int)
	Clear(bg color.Color)
	FillSector(cx, cy, r, startDeg, endDeg float64, fill color.Color)
	FillDisc(cx, cy, r float64, fill, stroke color.Color)
	DrawImage(img image.Image, cx, cy, size, rotationDeg float64)
	DrawLabel(text string, cx, cy, size float64, c color.Color)
	DrawPointer(cx, cy, r, angleDeg float64, c color.Color)
}

// Style holds the wheel's look. Sizes are given for a wheel of BaseDiameter
// and scaled to the surface.
type Style struct {
	Background    color.Color
	SectorColors  []color.Color
	Pointer       color.Color
	PointerOffset float64
	BaseDiameter  float64
	ImageSize     float64
	ImageDistance float64
}

// DefaultStyle is the green wheel with 40px images 130px from the centre of a
// 400px wheel.
func DefaultStyle() Style {
	return Style{
		Background:    color.White,
		SectorColors:  []color.Color{mustHex("#22c55e"), mustHex("#16a34a")},
		Pointer:       mustHex("#dc2626"),
		PointerOffset: wheel.DefaultPointerOffset,
		BaseDiameter:  400,
		ImageSize:     40,
		ImageDistance: 130,
	}
}

func mustHex(s string) color.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Renderer paints items onto one surface. The image cache may be shared by
// several renderers.
type Renderer struct {
	surface Surface
	cache   *Cache
	style   Style
}

func NewRenderer(surface Surface, cache *Cache, style Style) *Renderer {
	if len(style.SectorColors) == 0 {
		style.SectorColors = DefaultStyle().SectorColors
	}
	if style.BaseDiameter <= 0 {
		style.BaseDiameter = 400
	}
	return &Renderer{surface: surface, cache: cache, style: style}
}

// Render paints the wheel rotated by angle. Sector sizes are equal, whatever
// the weights. It never blocks on image loads.
func (r *Renderer) Render(items []wheel.Item, angle float64) {
	w, h := r.surface.Size()
	cx, cy := float64(w)/2, float64(h)/2
	radius := math.Min(cx, cy)
	r.surface.Clear(r.style.Background)
	if len(items) == 0 || radius <= 0 {
		return
	}
	scale := 2 * radius / r.style.BaseDiameter
	arc := wheel.Arc(len(items))

	for i := range items {
		start := angle + float64(i)*arc
		fill := r.style.SectorColors[i%len(r.style.SectorColors)]
		r.surface.FillSector(cx, cy, radius, start, start+arc, fill)
	}

	size := r.style.ImageSize * scale
	dist := r.style.ImageDistance * scale
	for i, it := range items {
		mid := (angle + wheel.SectorCenter(i, len(items))) * math.Pi / 180
		x := cx + math.Cos(mid)*dist
		y := cy + math.Sin(mid)*dist

		var img image.Image
		ok := false
		if r.cache != nil {
			img, ok = r.cache.Get(it.Image)
		}
		if ok {
			r.surface.DrawImage(img, x, y, size, angle+float64(it.Rotation))
			continue
		}
		r.surface.FillDisc(x, y, size/2, PlaceholderColor(i, len(items)), color.White)
		r.surface.DrawLabel(PlaceholderGlyph(it.Label), x, y, 16*scale, color.White)
	}

	r.surface.DrawPointer(cx, cy, radius, r.style.PointerOffset, r.style.Pointer)
}

// Redraw forwards the cache's load notifications.
func (r *Renderer) Redraw() <-chan struct{} {
	if r.cache == nil {
		return nil
	}
	return r.cache.Redraw()
}

// PlaceholderColor is hsl(i*360/n, 70%, 60%).
func PlaceholderColor(i, n int) color.Color {
	if n <= 0 {
		n = 1
	}
	return colorful.Hsl(float64(i)*360/float64(n), 0.7, 0.6).Clamped()
}

// PlaceholderGlyph picks the first emoji or symbol in label, falling back to
// its first rune.
func PlaceholderGlyph(label string) string {
	for _, r := range label {
		if r >= 0x1F000 || (r >= 0x2600 && r <= 0x27FF) {
			return string(r)
		}
	}
	if r, _ := utf8.DecodeRuneInString(label); r != utf8.RuneError {
		return string(r)
	}
	return "?"
}
