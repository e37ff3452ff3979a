package render

import (
	"image"
	"image/color"
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/Ashenafi-pixel/prizewheel/wheel"
)

type termLabel struct {
	x, y int
	text string
	fg   tcell.Color
}

// TermSurface draws into a tcell screen with half-block cells: each cell
// holds two vertically stacked pixels, so a w x h surface spans w columns and
// h/2 rows. Flush copies the pixels to the screen; the caller calls Show.
type TermSurface struct {
	screen   tcell.Screen
	reserved int // rows kept free below the wheel
	w, h     int
	px       []tcell.Color
	labels   []termLabel
}

func NewTermSurface(screen tcell.Screen, reservedRows int) *TermSurface {
	s := &TermSurface{screen: screen, reserved: reservedRows}
	s.Size()
	return s
}

// Size re-reads the terminal size, so resizes apply on the next frame.
func (s *TermSurface) Size() (int, int) {
	cols, rows := s.screen.Size()
	rows -= s.reserved
	if rows < 0 {
		rows = 0
	}
	w, h := cols, rows*2
	if w != s.w || h != s.h {
		s.w, s.h = w, h
		s.px = make([]tcell.Color, w*h)
	}
	return s.w, s.h
}

func (s *TermSurface) Clear(bg color.Color) {
	c := tcellColor(bg)
	for i := range s.px {
		s.px[i] = c
	}
	s.labels = s.labels[:0]
}

func (s *TermSurface) FillSector(cx, cy, r, startDeg, endDeg float64, fill color.Color) {
	c := tcellColor(fill)
	span := endDeg - startDeg
	s.each(cx, cy, r, func(x, y int, dx, dy float64) {
		a := math.Atan2(dy, dx) * 180 / math.Pi
		if wheel.Norm360(a-startDeg) < span {
			s.px[y*s.w+x] = c
		}
	})
}

func (s *TermSurface) FillDisc(cx, cy, r float64, fill, stroke color.Color) {
	fc := tcellColor(fill)
	sc := fc
	if stroke != nil {
		sc = tcellColor(stroke)
	}
	s.each(cx, cy, r, func(x, y int, dx, dy float64) {
		if stroke != nil && math.Hypot(dx, dy) > r-1 {
			s.px[y*s.w+x] = sc
			return
		}
		s.px[y*s.w+x] = fc
	})
}

// DrawImage samples img with nearest-neighbour lookups inside a disc.
func (s *TermSurface) DrawImage(img image.Image, cx, cy, size, rotationDeg float64) {
	b := img.Bounds()
	if b.Empty() || size <= 0 {
		return
	}
	rad := -rotationDeg * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	s.each(cx, cy, size/2, func(x, y int, dx, dy float64) {
		// undo the rotation, then map [-size/2, size/2] onto the image
		u := dx*cos - dy*sin
		v := dx*sin + dy*cos
		ix := b.Min.X + int((u/size+0.5)*float64(b.Dx()))
		iy := b.Min.Y + int((v/size+0.5)*float64(b.Dy()))
		if ix < b.Min.X || ix >= b.Max.X || iy < b.Min.Y || iy >= b.Max.Y {
			return
		}
		c := img.At(ix, iy)
		if _, _, _, a := c.RGBA(); a < 0x8000 {
			return
		}
		s.px[y*s.w+x] = tcellColor(c)
	})
}

func (s *TermSurface) DrawLabel(text string, cx, cy, size float64, c color.Color) {
	s.labels = append(s.labels, termLabel{x: int(cx), y: int(cy) / 2, text: text, fg: tcellColor(c)})
}

func (s *TermSurface) DrawPointer(cx, cy, r, angleDeg float64, c color.Color) {
	rad := angleDeg * math.Pi / 180
	dot := math.Max(1.5, r*0.07)
	px := cx + math.Cos(rad)*(r-dot)
	py := cy + math.Sin(rad)*(r-dot)
	s.FillDisc(px, py, dot, c, nil)
}

// Flush writes the pixel buffer to the screen as half blocks.
func (s *TermSurface) Flush() {
	if s.w == 0 {
		return
	}
	rows := s.h / 2
	for y := 0; y < rows; y++ {
		for x := 0; x < s.w; x++ {
			top := s.px[(2*y)*s.w+x]
			bottom := s.px[(2*y+1)*s.w+x]
			s.screen.SetContent(x, y, '▀', nil, tcell.StyleDefault.Foreground(top).Background(bottom))
		}
	}
	for _, l := range s.labels {
		if l.y < 0 || l.y >= rows {
			continue
		}
		bg := s.px[(2*l.y+1)*s.w+clampInt(l.x, 0, s.w-1)]
		x := l.x
		for _, r := range l.text {
			if x >= 0 && x < s.w {
				s.screen.SetContent(x, l.y, r, nil, tcell.StyleDefault.Foreground(l.fg).Background(bg).Bold(true))
			}
			x++
		}
	}
}

// each visits every pixel whose centre lies within r of (cx, cy).
func (s *TermSurface) each(cx, cy, r float64, fn func(x, y int, dx, dy float64)) {
	if r <= 0 {
		return
	}
	x0 := clampInt(int(math.Floor(cx-r)), 0, s.w)
	x1 := clampInt(int(math.Ceil(cx+r)), 0, s.w)
	y0 := clampInt(int(math.Floor(cy-r)), 0, s.h)
	y1 := clampInt(int(math.Ceil(cy+r)), 0, s.h)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			dx := float64(x) + 0.5 - cx
			dy := float64(y) + 0.5 - cy
			if dx*dx+dy*dy <= r*r {
				fn(x, y, dx, dy)
			}
		}
	}
}

func tcellColor(c color.Color) tcell.Color {
	if c == nil {
		return tcell.ColorDefault
	}
	r, g, b, _ := c.RGBA()
	return tcell.NewRGBColor(int32(r>>8), int32(g>>8), int32(b>>8))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
