package wheel

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ControllerOptions configures a Controller. Zero values fall back to
// DefaultPlanner, CryptoSource, time.Now and a disabled logger.
type ControllerOptions struct {
	Planner   Planner
	Source    Source
	OnOutcome OutcomeFunc
	Now       func() time.Time
	Logger    zerolog.Logger
	// StartAngle is the initial orientation, for resuming a previous session.
	StartAngle float64
}

// Controller owns the wheel orientation and the spin state machine.
//
// A Controller is not safe for concurrent use: every method must be called
// from the one goroutine acting as the animation clock (see Loop).
type Controller struct {
	planner   Planner
	src       Source
	onOutcome OutcomeFunc
	now       func() time.Time
	log       zerolog.Logger

	angle    float64
	velocity float64
	phase    Phase
	closed   bool

	// set for the duration of one spin only
	items     []Item
	winner    int
	traj      Trajectory
	startedAt time.Time
}

// NewController builds an idle controller.
func NewController(opts ControllerOptions) *Controller {
	if opts.Planner == (Planner{}) {
		opts.Planner = DefaultPlanner()
	}
	if opts.Source == nil {
		opts.Source = CryptoSource{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{
		planner:   opts.Planner,
		src:       opts.Source,
		onOutcome: opts.OnOutcome,
		now:       opts.Now,
		log:       opts.Logger,
		angle:     opts.StartAngle,
		winner:    -1,
	}
}

// RequestSpin starts a spin over a snapshot of items. The winner and the
// trajectory are fixed here and never revisited.
//
// It returns ErrAlreadySpinning without touching any state while a spin is in
// flight, ErrClosed after Close, and the selection error when items cannot
// produce a winner.
func (c *Controller) RequestSpin(items []Item) error {
	if c.closed {
		return ErrClosed
	}
	if c.phase == Spinning {
		return ErrAlreadySpinning
	}
	snapshot := cloneItems(items)
	idx, err := Select(snapshot, c.src)
	if err != nil {
		return err
	}
	turns := c.planner.FlourishTurns(c.src)
	traj, err := c.planner.Plan(c.angle, idx, len(snapshot), turns)
	if err != nil {
		return fmt.Errorf("plan spin: %w", err)
	}

	c.items = snapshot
	c.winner = idx
	c.traj = traj
	c.velocity = traj.V0
	c.startedAt = c.now()
	c.phase = Spinning

	c.log.Debug().
		Int("items", len(snapshot)).
		Int("turns", traj.Turns).
		Float64("start", traj.Start).
		Float64("target", traj.Target).
		Float64("v0", traj.V0).
		Msg("spin started")
	return nil
}

// Tick advances the animation by one clock tick. It reports true on the tick
// that settled a spin, after the outcome callback has returned.
func (c *Controller) Tick() bool {
	if c.closed || c.phase != Spinning {
		return false
	}
	angle, v, done := c.traj.Step(c.angle, c.velocity)
	c.angle, c.velocity = angle, v
	if !done {
		return false
	}

	winner := c.items[c.winner]
	out := Outcome{
		ItemID:    winner.ID,
		Index:     c.winner,
		Label:     winner.Label,
		Angle:     c.angle,
		Timestamp: c.now(),
	}
	c.log.Info().
		Str("item_id", out.ItemID).
		Int("index", out.Index).
		Float64("angle", out.Angle).
		Dur("elapsed", out.Timestamp.Sub(c.startedAt)).
		Msg("spin settled")

	// Still Spinning while the callback runs, so a re-entrant RequestSpin is
	// refused until the outcome has been handed off.
	if c.onOutcome != nil {
		c.onOutcome(out)
	}
	c.finish()
	return true
}

// Close stops the controller. A spin in flight is abandoned without an
// outcome.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	if c.phase == Spinning {
		c.log.Info().Float64("angle", c.angle).Msg("spin cancelled")
	}
	c.closed = true
	c.finish()
}

func (c *Controller) finish() {
	c.phase = Idle
	c.velocity = 0
	c.items = nil
	c.winner = -1
	c.traj = Trajectory{}
}

// Angle is the cumulative, unwrapped orientation in degrees.
func (c *Controller) Angle() float64 { return c.angle }

// Velocity is the current angular velocity in degrees per tick.
func (c *Controller) Velocity() float64 { return c.velocity }

// Phase reports Idle or Spinning.
func (c *Controller) Phase() Phase { return c.phase }

// Closed reports whether Close has been called.
func (c *Controller) Closed() bool { return c.closed }

// SpinItems is the snapshot the current spin runs on, or nil when idle.
func (c *Controller) SpinItems() []Item { return c.items }

// Pointed returns the sector currently under the pointer for a wheel of n
// sectors. It is for live display only and plays no part in the outcome.
func (c *Controller) Pointed(n int) int {
	return SectorAt(c.angle, n, c.planner.PointerOffset)
}

// PointerOffset exposes the planner's pointer position for renderers.
func (c *Controller) PointerOffset() float64 { return c.planner.PointerOffset }
