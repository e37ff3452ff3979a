package wheel

import (
	"fmt"
	"math"
)

// Planner turns a logical winner into a friction-decay trajectory.
type Planner struct {
	// Friction multiplies the angular velocity once per tick, in (0, 1).
	Friction float64
	// Epsilon is the velocity floor (degrees per tick) at which the wheel snaps
	// to its target.
	Epsilon float64
	// PointerOffset is the fixed angular position of the pointer.
	PointerOffset float64
	// MinTurns and MaxTurns bound the extra full turns added to every spin.
	MinTurns int
	MaxTurns int
}

// DefaultPlanner matches the stock tuning file.
func DefaultPlanner() Planner {
	return Planner{
		Friction:      0.99,
		Epsilon:       0.002,
		PointerOffset: DefaultPointerOffset,
		MinTurns:      3,
		MaxTurns:      5,
	}
}

// Validate reports a planner configuration that can never settle.
func (p Planner) Validate() error {
	if !(p.Friction > 0 && p.Friction < 1) {
		return fmt.Errorf("friction %v must be in (0,1)", p.Friction)
	}
	if !(p.Epsilon > 0) {
		return fmt.Errorf("epsilon %v must be positive", p.Epsilon)
	}
	if p.MinTurns < 0 || p.MaxTurns < p.MinTurns {
		return fmt.Errorf("turns range [%d,%d] is invalid", p.MinTurns, p.MaxTurns)
	}
	return nil
}

// Trajectory is a fixed plan for one spin.
type Trajectory struct {
	Start  float64
	Target float64
	// Delta is the forward rotation to the target residue, in [0, 360).
	Delta float64
	// Turns is the number of full flourish turns included in TotalRotation.
	Turns         int
	TotalRotation float64
	// V0 is the initial velocity in degrees per tick.
	V0       float64
	Friction float64
	Epsilon  float64
}

// Plan computes the trajectory from currentAngle to a resting angle that puts
// winningIndex under the pointer, after `turns` extra revolutions.
func (p Planner) Plan(currentAngle float64, winningIndex, itemCount, turns int) (Trajectory, error) {
	if itemCount < 1 || winningIndex < 0 || winningIndex >= itemCount {
		return Trajectory{}, fmt.Errorf("%w: index %d of %d", ErrInvalidTrajectory, winningIndex, itemCount)
	}
	if turns < 0 {
		return Trajectory{}, fmt.Errorf("%w: negative turns %d", ErrInvalidTrajectory, turns)
	}
	targetResidue := Norm360(p.PointerOffset - SectorCenter(winningIndex, itemCount))
	delta := Norm360(targetResidue - Norm360(currentAngle))
	total := delta + float64(turns)*360
	// Less than one full revolution never reads as a spin.
	for total < 360 {
		turns++
		total += 360
	}
	return Trajectory{
		Start:         currentAngle,
		Target:        currentAngle + total,
		Delta:         delta,
		Turns:         turns,
		TotalRotation: total,
		V0:            total * (1 - p.Friction),
		Friction:      p.Friction,
		Epsilon:       p.Epsilon,
	}, nil
}

// FlourishTurns draws the extra turns uniformly from [MinTurns, MaxTurns].
func (p Planner) FlourishTurns(src Source) int {
	return p.MinTurns + intn(src, p.MaxTurns-p.MinTurns+1)
}

// Step advances one tick of friction decay. It returns the new angle and
// velocity, and done once the velocity floor is crossed, in which case the
// angle is snapped to the trajectory target and the velocity forced to zero.
func (t Trajectory) Step(angle, velocity float64) (float64, float64, bool) {
	angle += velocity
	velocity *= t.Friction
	if math.Abs(velocity) < t.Epsilon {
		return t.Target, 0, true
	}
	return angle, velocity, false
}

// Simulate runs Step from the start until it settles and returns the final
// angle, the summed displacement before the snap, and the tick count.
func (t Trajectory) Simulate() (final, travelled float64, ticks int) {
	angle, v := t.Start, t.V0
	for {
		ticks++
		before := angle
		next, nv, done := t.Step(angle, v)
		if done {
			travelled += v
			return next, travelled, ticks
		}
		travelled += next - before
		angle, v = next, nv
	}
}
