package render

import (
	"image"
	"image/color"
	"io"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
)

var (
	boldOnce sync.Once
	boldFont *truetype.Font
	boldErr  error
)

func loadBold() (*truetype.Font, error) {
	boldOnce.Do(func() {
		boldFont, boldErr = truetype.Parse(gobold.TTF)
	})
	return boldFont, boldErr
}

// GGSurface rasterises onto an RGBA image through fogleman/gg.
type GGSurface struct {
	dc    *gg.Context
	faces map[float64]font.Face
}

func NewGGSurface(w, h int) *GGSurface {
	return &GGSurface{dc: gg.NewContext(w, h), faces: make(map[float64]font.Face)}
}

func (s *GGSurface) Size() (int, int) { return s.dc.Width(), s.dc.Height() }

func (s *GGSurface) Clear(bg color.Color) {
	s.dc.SetColor(bg)
	s.dc.Clear()
}

func (s *GGSurface) FillSector(cx, cy, r, startDeg, endDeg float64, fill color.Color) {
	s.dc.NewSubPath()
	s.dc.MoveTo(cx, cy)
	s.dc.DrawArc(cx, cy, r, gg.Radians(startDeg), gg.Radians(endDeg))
	s.dc.ClosePath()
	s.dc.SetColor(fill)
	s.dc.Fill()
}

func (s *GGSurface) FillDisc(cx, cy, r float64, fill, stroke color.Color) {
	s.dc.DrawCircle(cx, cy, r)
	s.dc.SetColor(fill)
	if stroke == nil {
		s.dc.Fill()
		return
	}
	s.dc.FillPreserve()
	s.dc.SetLineWidth(3)
	s.dc.SetColor(stroke)
	s.dc.Stroke()
}

// DrawImage draws img scaled into a size x size square centred on (cx, cy),
// clipped to a circle and turned by rotationDeg.
func (s *GGSurface) DrawImage(img image.Image, cx, cy, size, rotationDeg float64) {
	b := img.Bounds()
	if b.Empty() || size <= 0 {
		return
	}
	s.dc.Push()
	defer s.dc.Pop()
	s.dc.Translate(cx, cy)
	s.dc.Rotate(gg.Radians(rotationDeg))
	s.dc.DrawCircle(0, 0, size/2)
	s.dc.Clip()
	s.dc.Scale(size/float64(b.Dx()), size/float64(b.Dy()))
	s.dc.DrawImageAnchored(img, 0, 0, 0.5, 0.5)
	s.dc.ResetClip()
}

func (s *GGSurface) DrawLabel(text string, cx, cy, size float64, c color.Color) {
	face, ok := s.faces[size]
	if !ok {
		f, err := loadBold()
		if err != nil {
			return
		}
		face = truetype.NewFace(f, &truetype.Options{Size: size, Hinting: font.HintingFull})
		s.faces[size] = face
	}
	s.dc.SetFontFace(face)
	s.dc.SetColor(c)
	s.dc.DrawStringAnchored(text, cx, cy, 0.5, 0.5)
}

// DrawPointer draws a wedge on the rim at angleDeg pointing at the centre.
func (s *GGSurface) DrawPointer(cx, cy, r, angleDeg float64, c color.Color) {
	k := r / 200
	s.dc.Push()
	defer s.dc.Pop()
	s.dc.Translate(cx, cy)
	s.dc.Rotate(gg.Radians(angleDeg))
	s.dc.NewSubPath()
	s.dc.MoveTo(r-18*k, 0)
	s.dc.LineTo(r+4*k, -11*k)
	s.dc.LineTo(r+4*k, 11*k)
	s.dc.ClosePath()
	s.dc.SetColor(c)
	s.dc.FillPreserve()
	s.dc.SetLineWidth(2)
	s.dc.SetColor(color.White)
	s.dc.Stroke()
}

// Image returns the backing raster.
func (s *GGSurface) Image() image.Image { return s.dc.Image() }

func (s *GGSurface) EncodePNG(w io.Writer) error { return s.dc.EncodePNG(w) }
