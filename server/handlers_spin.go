package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/Ashenafi-pixel/prizewheel/catalog"
	"github.com/Ashenafi-pixel/prizewheel/render"
	"github.com/Ashenafi-pixel/prizewheel/spinlog"
	"github.com/Ashenafi-pixel/prizewheel/wheel"
)

const defaultSpinsLimit = 100

type spinRequest struct {
	ProductID string `json:"productId"`
}

// recordSpin stores an outcome the browser wheel settled on.
func (s *Server) recordSpin(w http.ResponseWriter, r *http.Request) {
	var req spinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.ProductID) == "" {
		writeError(w, http.StatusBadRequest, "Product ID is required", "bad_request")
		return
	}
	spin, err := s.store.RecordSpin(r.Context(), req.ProductID, clientIP(r))
	if err != nil {
		writeStoreError(w, s.log, err, "Failed to record spin")
		return
	}
	if s.spins != nil {
		e := spinlog.Entry{
			ID:        spin.ID,
			ProductID: spin.ProductID,
			Index:     -1,
			Timestamp: spin.Timestamp,
			Source:    spinlog.SourceClient,
			IPAddress: spin.IPAddress,
		}
		if spin.Product != nil {
			e.ProductName = spin.Product.Name
		}
		s.spins.Submit(e)
	}
	writeJSON(w, http.StatusOK, spin)
}

func (s *Server) listSpins(w http.ResponseWriter, r *http.Request) {
	limit := defaultSpinsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer", "bad_request")
			return
		}
		limit = n
	}
	spins, err := s.store.ListSpins(r.Context(), limit)
	if err != nil {
		writeStoreError(w, s.log, err, "Failed to fetch spins")
		return
	}
	writeJSON(w, http.StatusOK, spins)
}

// spinStats counts logged spins per product from the sqlite index.
func (s *Server) spinStats(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		writeError(w, http.StatusServiceUnavailable, "Spin index is disabled", "unavailable")
		return
	}
	counts, err := s.index.CountByProduct(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("count spins")
		writeError(w, http.StatusInternalServerError, "Failed to count spins", "internal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"counts": counts})
}

func (s *Server) wheelFrame(w http.ResponseWriter, r *http.Request) {
	if s.loop == nil {
		writeError(w, http.StatusServiceUnavailable, "Wheel is not running", "unavailable")
		return
	}
	writeJSON(w, http.StatusOK, s.loop.Frame())
}

// wheelSpin starts a server-driven spin. The outcome arrives on /ws/wheel.
func (s *Server) wheelSpin(w http.ResponseWriter, r *http.Request) {
	if s.loop == nil {
		writeError(w, http.StatusServiceUnavailable, "Wheel is not running", "unavailable")
		return
	}
	err := s.loop.RequestSpin(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "spinning"})
	case errors.Is(err, wheel.ErrAlreadySpinning):
		writeError(w, http.StatusConflict, "A spin is already in progress", "already_spinning")
	case errors.Is(err, wheel.ErrEmptySelection), errors.Is(err, wheel.ErrNoWeight):
		writeError(w, http.StatusUnprocessableEntity, "No active products with a positive probability", "no_items")
	case errors.Is(err, wheel.ErrWeightOverflow):
		writeError(w, http.StatusUnprocessableEntity, "Product probabilities are too large to sum", "bad_weights")
	case errors.Is(err, wheel.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "Wheel is not running", "unavailable")
	default:
		s.log.Error().Err(err).Msg("request spin")
		writeError(w, http.StatusInternalServerError, "Failed to start spin", "internal")
	}
}

// wheelPNG renders the wheel. It shows the loop's current frame unless an
// angle is given; images still loading are drawn as placeholders.
func (s *Server) wheelPNG(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	size := s.cfg.Tuning.CanvasSize
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 50 || n > 2048 {
			writeError(w, http.StatusBadRequest, "size must be between 50 and 2048", "bad_request")
			return
		}
		size = n
	}

	var items []wheel.Item
	var angle float64
	if s.loop != nil {
		f := s.loop.Frame()
		items, angle = f.Items, f.Angle
	}
	if len(items) == 0 {
		var err error
		items, err = catalog.Items{Store: s.store}.ActiveItems(r.Context())
		if err != nil {
			writeStoreError(w, s.log, err, "Failed to fetch active products")
			return
		}
	}
	if v := q.Get("angle"); v != "" {
		a, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(a) || math.IsInf(a, 0) {
			writeError(w, http.StatusBadRequest, "angle must be a number", "bad_request")
			return
		}
		angle = a
	}

	surface := render.NewGGSurface(size, size)
	render.NewRenderer(surface, s.images, s.style).Render(items, angle)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := surface.EncodePNG(w); err != nil {
		s.log.Warn().Err(err).Msg("encode wheel png")
	}
}

// clientIP follows the proxy headers the way the wheel has always logged it.
func clientIP(r *http.Request) string {
	if v := r.Header.Get("X-Forwarded-For"); v != "" {
		first, _, _ := strings.Cut(v, ",")
		return strings.TrimSpace(first)
	}
	if v := r.Header.Get("X-Real-Ip"); v != "" {
		return strings.TrimSpace(v)
	}
	return "unknown"
}
