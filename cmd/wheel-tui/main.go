package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/Ashenafi-pixel/prizewheel"
	"github.com/Ashenafi-pixel/prizewheel/asset"
	"github.com/Ashenafi-pixel/prizewheel/catalog"
	"github.com/Ashenafi-pixel/prizewheel/config"
	"github.com/Ashenafi-pixel/prizewheel/render"
	"github.com/Ashenafi-pixel/prizewheel/spinlog"
	"github.com/Ashenafi-pixel/prizewheel/wheel"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	demo := flag.Bool("demo", false, "Spin the built-in prize list instead of the catalog")
	mute := flag.Bool("mute", false, "No click sound")
	logPath := flag.String("log", "", "Write logs to this file")
	flag.Parse()

	if err := run(*demo, *mute, *logPath); err != nil {
		fmt.Fprintf(os.Stderr, "wheel-tui: %v\n", err)
		os.Exit(1)
	}
}

func run(demo, mute bool, logPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	var logOut io.Writer = io.Discard
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	log := prizewheel.NewLogger(logOut, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var source wheel.ItemSource
	if demo {
		source = demoItems()
	} else {
		store, err := prizewheel.OpenCatalog(ctx, cfg.DatabaseURL, cfg.DataDir)
		if err != nil {
			return err
		}
		source = catalog.Items{Store: store}
	}

	spins, err := openSpinLog(cfg, log)
	if err != nil {
		return err
	}
	defer spins.Close()

	style, err := cfg.Tuning.Style()
	if err != nil {
		return err
	}
	images := render.NewCache(asset.Mux{
		Remote: asset.NewHTTPLoader(10 * time.Second),
		Local:  asset.DirLoader{Dir: cfg.UploadDir, Prefix: "/images/"},
	}, 10*time.Second, log)
	defer images.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	var click clicker
	if !mute {
		if t, err := newTick(); err != nil {
			// non-fatal, the wheel runs silent
			log.Warn().Err(err).Msg("audio init failed")
		} else {
			click = t
		}
	}
	p := newPainter(screen, images, style, click)

	loop := wheel.NewLoop(wheel.LoopOptions{
		Controller: wheel.ControllerOptions{
			Planner: cfg.Tuning.Planner(),
			OnOutcome: func(o wheel.Outcome) {
				p.outcome(o)
				spins.Submit(spinlog.FromOutcome(o, spinlog.SourceTUI))
			},
		},
		Source:   source,
		Painter:  p,
		TickRate: cfg.Tuning.TickPeriod(),
		Refresh:  cfg.Tuning.RefreshPeriod(),
		OnFrame:  p.frame,
		Logger:   log,
	})
	loopCtx, stopLoop := context.WithCancel(ctx)
	defer func() {
		stopLoop()
		<-loop.Done()
	}()
	go loop.Run(loopCtx)

	go func() {
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-images.Redraw():
				p.poke()
			}
		}
	}()

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				screen.Sync()
				p.poke()
			case *tcell.EventKey:
				switch {
				case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC, ev.Rune() == 'q':
					return nil
				case ev.Rune() == ' ', ev.Key() == tcell.KeyEnter:
					go requestSpin(loopCtx, loop, p)
				}
			}
		}
	}
}

func requestSpin(ctx context.Context, loop *wheel.Loop, p *painter) {
	err := loop.RequestSpin(ctx)
	switch {
	case err == nil, errors.Is(err, wheel.ErrAlreadySpinning), errors.Is(err, context.Canceled):
	case errors.Is(err, wheel.ErrEmptySelection), errors.Is(err, wheel.ErrNoWeight):
		p.setNotice("Nothing to spin: no active prizes with a probability")
	default:
		p.setNotice("Spin failed: " + err.Error())
	}
}

func openSpinLog(cfg *config.Config, log zerolog.Logger) (*spinlog.Writer, error) {
	var sinks []spinlog.Sink
	if cfg.SpinLogDB != "" {
		idx, err := spinlog.OpenSQLite(cfg.SpinLogDB)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, idx)
	}
	return spinlog.NewWriter(log, 64, sinks...), nil
}

// demoItems serves the built-in catalog without touching any store.
func demoItems() wheel.ItemSource {
	seed := catalog.DefaultSeed()
	items := make([]wheel.Item, 0, len(seed))
	for i, in := range seed {
		items = append(items, wheel.Item{
			ID:     fmt.Sprintf("demo-%d", i+1),
			Weight: *in.Probability,
			Label:  in.Name,
		})
	}
	return wheel.ItemSourceFunc(func(context.Context) ([]wheel.Item, error) {
		return items, nil
	})
}
