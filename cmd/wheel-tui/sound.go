package main

import (
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

// tick is the short click played when a sector passes the pointer.
type tick struct {
	sr beep.SampleRate
}

// newTick opens the speaker. Sound is optional: callers keep going with a
// nil clicker when this fails.
func newTick() (*tick, error) {
	sr := beep.SampleRate(44100)
	if err := speaker.Init(sr, sr.N(time.Second/20)); err != nil {
		return nil, err
	}
	return &tick{sr: sr}, nil
}

func (t *tick) Click() {
	sine, err := generators.SineTone(t.sr, 1200)
	if err != nil {
		return
	}
	speaker.Play(beep.Take(t.sr.N(12*time.Millisecond), sine))
}
