package server

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/Ashenafi-pixel/prizewheel/catalog"
	"github.com/Ashenafi-pixel/prizewheel/config"
	"github.com/Ashenafi-pixel/prizewheel/render"
	"github.com/Ashenafi-pixel/prizewheel/spinlog"
	"github.com/Ashenafi-pixel/prizewheel/wheel"
)

// Deps are the collaborators of the HTTP surface. Only Config and Store are
// required.
type Deps struct {
	Config *config.Config
	Store  catalog.Store
	// Loop drives server-side spins. Without it /api/wheel/* answers 503.
	Loop   *wheel.Loop
	Spins  *spinlog.Writer
	Index  *spinlog.SQLiteIndex
	Images *render.Cache
	Hub    *Hub
	Logger zerolog.Logger
}

type Server struct {
	cfg    *config.Config
	store  catalog.Store
	loop   *wheel.Loop
	spins  *spinlog.Writer
	index  *spinlog.SQLiteIndex
	images *render.Cache
	hub    *Hub
	style  render.Style
	secret []byte
	log    zerolog.Logger
	now    func() time.Time
}

func New(d Deps) (*Server, error) {
	if d.Config == nil || d.Store == nil {
		return nil, errors.New("server: config and store are required")
	}
	style, err := d.Config.Tuning.Style()
	if err != nil {
		return nil, err
	}
	secret := []byte(d.Config.JWTSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("server: jwt secret: %w", err)
		}
		if d.Config.AdminPasswordHash != "" {
			d.Logger.Warn().Msg("JWT_SECRET not set; tokens will not survive a restart")
		}
	}
	if d.Config.AdminPasswordHash == "" {
		d.Logger.Warn().Msg("ADMIN_PASSWORD_HASH not set; admin routes are open")
	}
	hub := d.Hub
	if hub == nil {
		hub = NewHub(d.Logger, d.Config.AllowedOrigins)
	}
	return &Server{
		cfg:    d.Config,
		store:  d.Store,
		loop:   d.Loop,
		spins:  d.Spins,
		index:  d.Index,
		images: d.Images,
		hub:    hub,
		style:  style,
		secret: secret,
		log:    d.Logger.With().Str("component", "http").Logger(),
		now:    time.Now,
	}, nil
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           60 * 15,
	}))

	r.Get("/health", s.health)
	r.Get("/wheel.png", s.wheelPNG)
	r.Get("/ws/wheel", s.hub.ServeHTTP)
	r.With(middleware.SetHeader("X-Content-Type-Options", "nosniff")).
		Handle("/images/*", http.StripPrefix("/images/", http.FileServer(http.Dir(s.cfg.UploadDir))))

	r.Route("/api", func(api chi.Router) {
		api.Post("/login", s.login)
		api.Get("/products/active", s.activeProducts)
		api.Post("/spin", s.recordSpin)

		api.Get("/wheel", s.wheelFrame)
		api.Post("/wheel/spin", s.wheelSpin)

		api.Group(func(admin chi.Router) {
			admin.Use(s.requireAdmin)
			admin.Get("/products", s.listProducts)
			admin.Post("/products", s.createProduct)
			admin.Post("/products/distribute", s.distribute)
			admin.Put("/products/{id}", s.updateProduct)
			admin.Delete("/products/{id}", s.deleteProduct)
			admin.Post("/products/{id}/rotate", s.rotateProduct)
			admin.Get("/spins", s.listSpins)
			admin.Get("/spins/stats", s.spinStats)
			admin.Post("/upload", s.upload)
		})
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	port := s.cfg.Port
	if port <= 0 {
		port = 8080
	}
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", srv.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		// no body, no secrets
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("latency", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "prizewheel"})
}
