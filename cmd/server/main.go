package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/Ashenafi-pixel/prizewheel"
	"github.com/Ashenafi-pixel/prizewheel/asset"
	"github.com/Ashenafi-pixel/prizewheel/catalog"
	"github.com/Ashenafi-pixel/prizewheel/config"
	"github.com/Ashenafi-pixel/prizewheel/operator"
	"github.com/Ashenafi-pixel/prizewheel/render"
	"github.com/Ashenafi-pixel/prizewheel/server"
	"github.com/Ashenafi-pixel/prizewheel/spinlog"
	"github.com/Ashenafi-pixel/prizewheel/wheel"
)

func main() {
	// cwd .env first, then the project root's
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")
	_ = godotenv.Load("../.env.local")

	cfg, err := config.Load()
	if err != nil {
		prizewheel.NewLogger(os.Stderr, "info").Fatal().Err(err).Msg("config")
	}
	log := prizewheel.NewLogger(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	store, err := prizewheel.OpenCatalog(ctx, cfg.DatabaseURL, cfg.DataDir)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL != "" {
		log.Info().Msg("catalog: postgres")
	} else {
		log.Info().Str("dir", cfg.DataDir).Msg("catalog: json files")
	}

	sinks := []spinlog.Sink{server.CatalogSink(store, 5*time.Second)}
	var index *spinlog.SQLiteIndex
	if cfg.SpinLogDB != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.SpinLogDB), 0755); err != nil {
			return err
		}
		index, err = spinlog.OpenSQLite(cfg.SpinLogDB)
		if err != nil {
			return err
		}
		sinks = append(sinks, index)
	}
	if cfg.SpinArchiveDir != "" {
		sinks = append(sinks, spinlog.NewArchive(cfg.SpinArchiveDir))
	}
	if cfg.OperatorEndpoint != "" {
		sinks = append(sinks, operator.NewClient(cfg.OperatorEndpoint, cfg.OperatorSecret, 10*time.Second).Sink())
		log.Info().Str("endpoint", cfg.OperatorEndpoint).Msg("reporting spins to operator")
	}
	spins := spinlog.NewWriter(log, 1024, sinks...)
	defer func() {
		if err := spins.Close(); err != nil {
			log.Error().Err(err).Msg("close spin log")
		}
	}()

	images := render.NewCache(asset.Mux{
		Remote: asset.NewHTTPLoader(10 * time.Second),
		Local:  asset.DirLoader{Dir: cfg.UploadDir, Prefix: "/images/"},
	}, 10*time.Second, log)
	defer images.Close()

	hub := server.NewHub(log, cfg.AllowedOrigins)
	loop := wheel.NewLoop(wheel.LoopOptions{
		Controller: wheel.ControllerOptions{
			Planner:   cfg.Tuning.Planner(),
			OnOutcome: server.Outcomes(hub, spins),
		},
		Source:   catalog.Items{Store: store},
		TickRate: cfg.Tuning.TickPeriod(),
		Refresh:  cfg.Tuning.RefreshPeriod(),
		OnFrame:  server.Frames(hub),
		Logger:   log,
	})
	loopCtx, stopLoop := context.WithCancel(ctx)
	defer func() {
		stopLoop()
		<-loop.Done()
	}()
	go loop.Run(loopCtx)

	srv, err := server.New(server.Deps{
		Config: cfg,
		Store:  store,
		Loop:   loop,
		Spins:  spins,
		Index:  index,
		Images: images,
		Hub:    hub,
		Logger: log,
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
