package wheel

import "time"

// Item is one selectable entry on the wheel. Inactive entries are filtered out
// by the item source before they ever reach the wheel.
type Item struct {
	ID     string  `json:"id"`
	Weight float64 `json:"weight"`
	Label  string  `json:"label"`
	Image  string  `json:"image,omitempty"`
	// Rotation turns only the item's image inside its sector, in degrees.
	Rotation int `json:"rotation,omitempty"`
}

// Outcome is handed to the outcome callback once per completed spin.
type Outcome struct {
	ItemID    string    `json:"itemId"`
	Index     int       `json:"index"`
	Label     string    `json:"label"`
	Angle     float64   `json:"angle"`
	Timestamp time.Time `json:"timestamp"`
}

// OutcomeFunc receives settled outcomes. It runs on the animation goroutine and
// must not block; slow sinks should queue the outcome and return.
type OutcomeFunc func(Outcome)

// Phase is the controller's spin state.
type Phase int

const (
	Idle Phase = iota
	Spinning
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Spinning:
		return "spinning"
	default:
		return "unknown"
	}
}

// cloneItems returns a copy so a spin in flight is isolated from later edits.
func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
