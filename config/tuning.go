package config

import (
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"os"
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"github.com/Ashenafi-pixel/prizewheel/render"
	"github.com/Ashenafi-pixel/prizewheel/wheel"
)

// Tuning is the wheel's physics and look, read from a YAML file.
type Tuning struct {
	Friction      float64 `yaml:"friction"`
	Epsilon       float64 `yaml:"epsilon"`
	MinTurns      int     `yaml:"min_turns"`
	MaxTurns      int     `yaml:"max_turns"`
	PointerOffset float64 `yaml:"pointer_offset"`
	TickRateHz    int     `yaml:"tick_rate_hz"`

	CanvasSize    int      `yaml:"canvas_size"`
	SectorColors  []string `yaml:"sector_colors"`
	PointerColor  string   `yaml:"pointer_color"`
	ImageSize     float64  `yaml:"image_size"`
	ImageDistance float64  `yaml:"image_distance"`

	ItemRefreshSeconds int `yaml:"item_refresh_seconds"`
}

func DefaultTuning() Tuning {
	return Tuning{
		Friction:           0.99,
		Epsilon:            0.002,
		MinTurns:           3,
		MaxTurns:           5,
		PointerOffset:      wheel.DefaultPointerOffset,
		TickRateHz:         60,
		CanvasSize:         400,
		SectorColors:       []string{"#22c55e", "#16a34a"},
		PointerColor:       "#dc2626",
		ImageSize:          40,
		ImageDistance:      130,
		ItemRefreshSeconds: 5,
	}
}

// LoadTuning reads path over the defaults. A missing file yields the
// defaults; fields absent from the file keep their default.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("%s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if err := t.Planner().Validate(); err != nil {
		return err
	}
	if t.TickRateHz <= 0 || t.TickRateHz > 240 {
		return fmt.Errorf("tick_rate_hz %d must be in 1..240", t.TickRateHz)
	}
	if t.CanvasSize < 50 || t.CanvasSize > 4096 {
		return fmt.Errorf("canvas_size %d must be in 50..4096", t.CanvasSize)
	}
	if len(t.SectorColors) == 0 {
		return fmt.Errorf("sector_colors must not be empty")
	}
	if _, err := t.Style(); err != nil {
		return err
	}
	if t.ItemRefreshSeconds < 0 {
		return fmt.Errorf("item_refresh_seconds %d must not be negative", t.ItemRefreshSeconds)
	}
	return nil
}

func (t Tuning) Planner() wheel.Planner {
	return wheel.Planner{
		Friction:      t.Friction,
		Epsilon:       t.Epsilon,
		PointerOffset: t.PointerOffset,
		MinTurns:      t.MinTurns,
		MaxTurns:      t.MaxTurns,
	}
}

func (t Tuning) TickPeriod() time.Duration {
	return time.Second / time.Duration(t.TickRateHz)
}

func (t Tuning) RefreshPeriod() time.Duration {
	return time.Duration(t.ItemRefreshSeconds) * time.Second
}

// Style builds the renderer style, parsing the hex colours.
func (t Tuning) Style() (render.Style, error) {
	s := render.DefaultStyle()
	s.SectorColors = make([]color.Color, 0, len(t.SectorColors))
	for _, h := range t.SectorColors {
		c, err := colorful.Hex(h)
		if err != nil {
			return s, fmt.Errorf("sector colour %q: %w", h, err)
		}
		s.SectorColors = append(s.SectorColors, c)
	}
	if t.PointerColor != "" {
		c, err := colorful.Hex(t.PointerColor)
		if err != nil {
			return s, fmt.Errorf("pointer colour %q: %w", t.PointerColor, err)
		}
		s.Pointer = c
	}
	s.PointerOffset = t.PointerOffset
	if t.ImageSize > 0 {
		s.ImageSize = t.ImageSize
	}
	if t.ImageDistance > 0 {
		s.ImageDistance = t.ImageDistance
	}
	return s, nil
}
