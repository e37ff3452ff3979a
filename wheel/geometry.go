package wheel

import "math"

// DefaultPointerOffset puts the pointer at the top of the wheel when sector 0
// starts at angle 0 and angles grow clockwise on screen.
const DefaultPointerOffset = -90.0

// Norm360 wraps d into [0, 360).
func Norm360(d float64) float64 {
	r := math.Mod(d, 360)
	if r < 0 {
		r += 360
	}
	if r >= 360 {
		r = 0
	}
	return r
}

// Arc is the angular size of one sector.
func Arc(n int) float64 {
	if n <= 0 {
		return 0
	}
	return 360 / float64(n)
}

// SectorCenter is the centre of sector i measured from the wheel's reference.
func SectorCenter(i, n int) float64 {
	arc := Arc(n)
	return float64(i)*arc + arc/2
}

// SectorAt returns the sector under the pointer when the wheel is rotated by
// angle. It inverts angle ≡ pointerOffset - SectorCenter(i) (mod 360).
func SectorAt(angle float64, n int, pointerOffset float64) int {
	if n <= 0 {
		return -1
	}
	rel := Norm360(pointerOffset - angle)
	i := int(rel / Arc(n))
	if i >= n {
		i = n - 1
	}
	return i
}
