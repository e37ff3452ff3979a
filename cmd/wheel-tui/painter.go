package main

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/Ashenafi-pixel/prizewheel/render"
	"github.com/Ashenafi-pixel/prizewheel/wheel"
)

// statusRows are kept free under the wheel.
const statusRows = 2

type clicker interface {
	Click()
}

// painter draws the wheel into the terminal. Render and frame run on the
// loop goroutine; notice may be set from anywhere.
type painter struct {
	screen   tcell.Screen
	surface  *render.TermSurface
	renderer *render.Renderer
	offset   float64
	click    clicker
	redraw   chan struct{}

	lastPointed int
	lastCount   int
	last        *wheel.Outcome

	mu     sync.Mutex
	notice string
}

func newPainter(screen tcell.Screen, cache *render.Cache, style render.Style, click clicker) *painter {
	surface := render.NewTermSurface(screen, statusRows)
	return &painter{
		screen:      screen,
		surface:     surface,
		renderer:    render.NewRenderer(surface, cache, style),
		offset:      style.PointerOffset,
		click:       click,
		redraw:      make(chan struct{}, 1),
		lastPointed: -1,
	}
}

func (p *painter) Render(items []wheel.Item, angle float64) {
	p.renderer.Render(items, angle)
	p.surface.Flush()

	pointed := -1
	if len(items) > 0 {
		pointed = wheel.SectorAt(angle, len(items), p.offset)
	}
	// a new sector under the pointer on the same wheel
	if pointed != p.lastPointed && len(items) == p.lastCount && p.click != nil {
		p.click.Click()
	}
	p.lastPointed, p.lastCount = pointed, len(items)
}

// Redraw fires on terminal resizes and finished image loads.
func (p *painter) Redraw() <-chan struct{} { return p.redraw }

func (p *painter) poke() {
	select {
	case p.redraw <- struct{}{}:
	default:
	}
}

func (p *painter) setNotice(s string) {
	p.mu.Lock()
	p.notice = s
	p.mu.Unlock()
	p.poke()
}

func (p *painter) outcome(o wheel.Outcome) {
	p.last = &o
	p.setNotice("")
}

// frame writes the status lines and shows the screen.
func (p *painter) frame(f wheel.Frame) {
	cols, rows := p.screen.Size()
	if rows < statusRows {
		p.screen.Show()
		return
	}
	p.mu.Lock()
	notice := p.notice
	p.mu.Unlock()

	var line string
	switch {
	case notice != "":
		line = notice
	case f.Spinning:
		line = "spinning..."
	case p.last != nil:
		line = fmt.Sprintf("You won: %s", p.last.Label)
	case len(f.Items) == 0:
		line = "No active prizes"
	default:
		line = fmt.Sprintf("%d prizes on the wheel", len(f.Items))
	}
	if f.Pointed >= 0 && f.Pointed < len(f.Items) && f.Spinning {
		line = fmt.Sprintf("%s  > %s", line, f.Items[f.Pointed].Label)
	}
	bold := tcell.StyleDefault.Bold(true)
	putLine(p.screen, rows-2, cols, line, bold)
	putLine(p.screen, rows-1, cols, "[space] spin   [q] quit", tcell.StyleDefault.Dim(true))
	p.screen.Show()
}

func putLine(s tcell.Screen, y, cols int, text string, style tcell.Style) {
	x := 0
	for _, r := range text {
		if x >= cols {
			break
		}
		s.SetContent(x, y, r, nil, style)
		x++
	}
	for ; x < cols; x++ {
		s.SetContent(x, y, ' ', nil, style)
	}
}
