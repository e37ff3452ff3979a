package server

import (
	"context"
	"time"

	"github.com/Ashenafi-pixel/prizewheel/catalog"
	"github.com/Ashenafi-pixel/prizewheel/spinlog"
	"github.com/Ashenafi-pixel/prizewheel/wheel"
)

// Outcomes returns the loop's outcome callback: the result goes to the live
// feed and is queued on the spin log. Neither blocks.
func Outcomes(hub *Hub, spins *spinlog.Writer) wheel.OutcomeFunc {
	return func(o wheel.Outcome) {
		if hub != nil {
			hub.PublishOutcome(o)
		}
		if spins != nil {
			spins.Submit(spinlog.FromOutcome(o, spinlog.SourceServer))
		}
	}
}

// Frames returns the loop's frame observer. Items ride along only on idle
// frames and on the first frame of a spin.
func Frames(hub *Hub) func(wheel.Frame) {
	wasSpinning := false
	return func(f wheel.Frame) {
		if f.Spinning && wasSpinning {
			f.Items = nil
		}
		wasSpinning = f.Spinning
		hub.PublishFrame(f)
	}
}

// CatalogSink records server-driven spins in the catalog so they show up in
// the spin history next to the ones browsers report.
func CatalogSink(store catalog.Store, timeout time.Duration) spinlog.Sink {
	return spinlog.SinkFunc(func(e spinlog.Entry) error {
		if e.Source != spinlog.SourceServer {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_, err := store.RecordSpin(ctx, e.ProductID, "server")
		return err
	})
}
