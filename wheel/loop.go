package wheel

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ItemSource supplies the current active items. The result is treated as a
// snapshot and may be mutated by the source afterwards.
type ItemSource interface {
	ActiveItems(ctx context.Context) ([]Item, error)
}

// ItemSourceFunc adapts a function to ItemSource.
type ItemSourceFunc func(ctx context.Context) ([]Item, error)

func (f ItemSourceFunc) ActiveItems(ctx context.Context) ([]Item, error) { return f(ctx) }

// Painter draws the wheel. Redraw signals that an asynchronous asset became
// ready (or failed) and the wheel should be painted again.
type Painter interface {
	Render(items []Item, angle float64)
	Redraw() <-chan struct{}
}

// Frame is what the loop publishes after every paint.
type Frame struct {
	Angle    float64 `json:"angle"`
	Pointed  int     `json:"pointed"`
	Spinning bool    `json:"spinning"`
	Items    []Item  `json:"items,omitempty"`
}

// LoopOptions configures a Loop.
type LoopOptions struct {
	// Controller.Logger is replaced by Logger.
	Controller ControllerOptions
	Source     ItemSource
	Painter    Painter // optional
	// TickRate is the animation clock period; 0 means 60 Hz.
	TickRate time.Duration
	// Refresh is how often items are re-read while idle; 0 disables the timer
	// (items are still re-read before every spin).
	Refresh time.Duration
	// SourceTimeout bounds one ItemSource call; 0 means 2s.
	SourceTimeout time.Duration
	// OnFrame is invoked on the loop goroutine after every paint.
	OnFrame func(Frame)
	Logger  zerolog.Logger
}

type spinRequest struct {
	reply chan error
}

// Loop is the host animation clock. A single goroutine (Run) owns the
// Controller, so the state machine itself needs no locking.
type Loop struct {
	opts LoopOptions
	ctrl *Controller
	log  zerolog.Logger

	requests chan spinRequest
	done     chan struct{}

	// written on the loop goroutine only
	items []Item
	dirty bool

	mu   sync.RWMutex
	last Frame
}

// NewLoop builds a loop. Call Run to start it.
func NewLoop(opts LoopOptions) *Loop {
	if opts.TickRate <= 0 {
		opts.TickRate = time.Second / 60
	}
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = 2 * time.Second
	}
	opts.Controller.Logger = opts.Logger
	l := &Loop{
		opts:     opts,
		log:      opts.Logger.With().Str("component", "wheel_loop").Logger(),
		requests: make(chan spinRequest),
		done:     make(chan struct{}),
		last:     Frame{Pointed: -1},
	}
	l.ctrl = NewController(opts.Controller)
	return l
}

// Run drives the wheel until ctx is cancelled. Cancellation closes the
// controller, so a spin in flight never reports an outcome.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	defer l.ctrl.Close()

	l.refresh(ctx)
	l.paint()

	ticker := time.NewTicker(l.opts.TickRate)
	defer ticker.Stop()

	var refreshC <-chan time.Time
	if l.opts.Refresh > 0 {
		rt := time.NewTicker(l.opts.Refresh)
		defer rt.Stop()
		refreshC = rt.C
	}
	var redrawC <-chan struct{}
	if l.opts.Painter != nil {
		redrawC = l.opts.Painter.Redraw()
	}

	for {
		select {
		case <-ctx.Done():
			l.log.Debug().Msg("loop stopped")
			return
		case req := <-l.requests:
			req.reply <- l.startSpin(ctx)
		case <-refreshC:
			// The list may not change under a spin; pick it up afterwards.
			if l.ctrl.Phase() == Idle {
				l.refresh(ctx)
			}
		case <-redrawC:
			l.dirty = true
		case <-ticker.C:
			if l.ctrl.Phase() == Spinning {
				l.ctrl.Tick()
				l.dirty = true
			}
		}
		if l.dirty {
			l.paint()
		}
	}
}

// RequestSpin asks the loop goroutine to start a spin with freshly read items.
// It returns ErrAlreadySpinning when a spin is in flight and ErrClosed once
// the loop has stopped.
func (l *Loop) RequestSpin(ctx context.Context) error {
	req := spinRequest{reply: make(chan error, 1)}
	select {
	case l.requests <- req:
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Frame returns the most recently published frame. Safe from any goroutine.
func (l *Loop) Frame() Frame {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.last
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }

func (l *Loop) startSpin(ctx context.Context) error {
	if l.ctrl.Closed() {
		return ErrClosed
	}
	if l.ctrl.Phase() == Spinning {
		return ErrAlreadySpinning
	}
	l.refresh(ctx)
	if err := l.ctrl.RequestSpin(l.items); err != nil {
		return err
	}
	l.dirty = true
	return nil
}

func (l *Loop) refresh(ctx context.Context) {
	if l.opts.Source == nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, l.opts.SourceTimeout)
	defer cancel()
	items, err := l.opts.Source.ActiveItems(cctx)
	if err != nil {
		// Keep the last good list; the wheel stays paintable.
		l.log.Warn().Err(err).Msg("refresh items")
		return
	}
	l.items = cloneItems(items)
	l.dirty = true
}

func (l *Loop) paint() {
	l.dirty = false
	items := l.items
	if l.ctrl.Phase() == Spinning {
		items = l.ctrl.SpinItems()
	}
	angle := l.ctrl.Angle()
	if l.opts.Painter != nil {
		l.opts.Painter.Render(items, angle)
	}
	f := Frame{
		Angle:    angle,
		Pointed:  l.ctrl.Pointed(len(items)),
		Spinning: l.ctrl.Phase() == Spinning,
		Items:    items,
	}
	l.mu.Lock()
	l.last = f
	l.mu.Unlock()
	if l.opts.OnFrame != nil {
		l.opts.OnFrame(f)
	}
}
