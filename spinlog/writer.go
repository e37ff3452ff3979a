package spinlog

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Ashenafi-pixel/prizewheel/wheel"
)

const (
	SourceServer = "server"
	SourceClient = "client"
	SourceTUI    = "tui"
)

// Entry is one settled spin as written to the audit sinks.
type Entry struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"productId"`
	ProductName string    `json:"productName"`
	Index       int       `json:"index"`
	Angle       float64   `json:"angle"`
	Timestamp   time.Time `json:"timestamp"`
	// Source tells who drove the spin: "server", "client" or "tui".
	Source    string `json:"source"`
	IPAddress string `json:"ipAddress,omitempty"`
}

// FromOutcome builds the entry for a spin the wheel settled itself.
func FromOutcome(o wheel.Outcome, source string) Entry {
	return Entry{
		ID:          uuid.NewString(),
		ProductID:   o.ItemID,
		ProductName: o.Label,
		Index:       o.Index,
		Angle:       o.Angle,
		Timestamp:   o.Timestamp,
		Source:      source,
	}
}

// Sink stores entries. Write is only ever called from the Writer goroutine.
type Sink interface {
	Write(e Entry) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Entry) error

func (f SinkFunc) Write(e Entry) error { return f(e) }

// Writer queues entries in front of slow sinks so the wheel's settle callback
// never waits on disk or network.
type Writer struct {
	sinks []Sink
	log   zerolog.Logger

	mu      sync.RWMutex // guards ch against send-after-close
	ch      chan Entry
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Int64
}

// NewWriter starts the drain goroutine. buffer <= 0 means 1024.
func NewWriter(logger zerolog.Logger, buffer int, sinks ...Sink) *Writer {
	if buffer <= 0 {
		buffer = 1024
	}
	w := &Writer{
		sinks: sinks,
		log:   logger.With().Str("component", "spinlog").Logger(),
		ch:    make(chan Entry, buffer),
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop()
	}()
	return w
}

// Submit enqueues e without blocking. It reports false when the queue is full
// or the writer is closed; the entry is then dropped and counted.
func (w *Writer) Submit(e Entry) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.dropped.Add(1)
		return false
	}
	select {
	case w.ch <- e:
		return true
	default:
		w.dropped.Add(1)
		w.log.Warn().Str("spin_id", e.ID).Msg("spin log queue full, entry dropped")
		return false
	}
}

// Dropped is the number of entries that never reached the sinks' queue.
func (w *Writer) Dropped() int64 { return w.dropped.Load() }

// Close drains the queue, then closes every sink that is an io.Closer.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.ch)
	w.mu.Unlock()

	w.wg.Wait()
	var errs []error
	for _, s := range w.sinks {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (w *Writer) loop() {
	for e := range w.ch {
		for _, s := range w.sinks {
			if err := s.Write(e); err != nil {
				w.log.Error().Err(err).Str("spin_id", e.ID).Msg("spin log write failed")
			}
		}
	}
}
