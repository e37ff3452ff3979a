package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ashenafi-pixel/prizewheel/asset"
)

// ErrAssetLoad marks every image load failure.
var ErrAssetLoad = errors.New("render: asset load failed")

// AssetLoadError records why one reference could not be loaded.
type AssetLoadError struct {
	Ref string
	Err error
}

func (e *AssetLoadError) Error() string {
	return fmt.Sprintf("render: load %q: %v", e.Ref, e.Err)
}

func (e *AssetLoadError) Unwrap() error { return e.Err }

func (e *AssetLoadError) Is(target error) bool { return target == ErrAssetLoad }

// State of one cache entry.
type State int

const (
	Missing State = iota
	Pending
	Ready
	Failed
)

type entry struct {
	state State
	img   image.Image
	err   error
}

// Cache holds decoded images keyed by reference. Entries are only ever added
// or moved out of Pending; nothing is evicted, and a failed reference is never
// retried.
type Cache struct {
	loader  asset.Loader
	timeout time.Duration
	log     zerolog.Logger

	mu      sync.Mutex
	entries map[string]*entry

	redraw chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCache starts an empty cache. timeout bounds a single load (0 = 15s).
func NewCache(loader asset.Loader, timeout time.Duration, logger zerolog.Logger) *Cache {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		loader:  loader,
		timeout: timeout,
		log:     logger.With().Str("component", "image_cache").Logger(),
		entries: make(map[string]*entry),
		redraw:  make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Get returns the image for ref when it is ready. The first Get for an unknown
// ref starts an asynchronous load and returns false.
func (c *Cache) Get(ref string) (image.Image, bool) {
	if ref == "" {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[ref]
	if !ok {
		e = &entry{state: Pending}
		c.entries[ref] = e
		c.start(ref)
		return nil, false
	}
	if e.state != Ready {
		return nil, false
	}
	return e.img, true
}

// State reports the entry state for ref without starting a load.
func (c *Cache) State(ref string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[ref]; ok {
		return e.state
	}
	return Missing
}

// Err returns the recorded *AssetLoadError for a failed ref.
func (c *Cache) Err(ref string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[ref]; ok {
		return e.err
	}
	return nil
}

// Redraw receives a value after a load settles (ready or failed).
func (c *Cache) Redraw() <-chan struct{} { return c.redraw }

// Close abandons pending loads and waits for their goroutines.
func (c *Cache) Close() {
	// under mu so start sees the cancelled ctx before any later wg.Add
	c.mu.Lock()
	c.cancel()
	c.mu.Unlock()
	c.wg.Wait()
}

// caller holds c.mu
func (c *Cache) start(ref string) {
	if c.ctx.Err() != nil {
		c.entries[ref] = &entry{state: Failed, err: &AssetLoadError{Ref: ref, Err: c.ctx.Err()}}
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
		defer cancel()

		var (
			img image.Image
			err error
		)
		if c.loader == nil {
			err = asset.ErrUnsupportedRef
		} else {
			img, err = c.loader.Load(ctx, ref)
		}
		if err == nil && img == nil {
			err = errors.New("loader returned no image")
		}

		c.mu.Lock()
		if err != nil {
			c.entries[ref] = &entry{state: Failed, err: &AssetLoadError{Ref: ref, Err: err}}
		} else {
			c.entries[ref] = &entry{state: Ready, img: img}
		}
		c.mu.Unlock()

		if err != nil {
			c.log.Warn().Err(err).Str("ref", ref).Msg("image load failed, using placeholder")
		} else {
			c.log.Debug().Str("ref", ref).Msg("image ready")
		}
		if c.ctx.Err() != nil {
			return
		}
		select {
		case c.redraw <- struct{}{}:
		default:
		}
	}()
}
