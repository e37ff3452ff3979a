package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Ashenafi-pixel/prizewheel/catalog"
)

// probability slack when comparing against the remaining percentage
const probEpsilon = 1e-9

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.store.FindAll(r.Context())
	if err != nil {
		writeStoreError(w, s.log, err, "Failed to fetch products")
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) activeProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.store.FindActive(r.Context())
	if err != nil {
		writeStoreError(w, s.log, err, "Failed to fetch active products")
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.NewProduct
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Name == "" || in.Probability == nil {
		writeError(w, http.StatusBadRequest, "Name and probability are required", "bad_request")
		return
	}
	if in.IsActive == nil || *in.IsActive {
		all, err := s.store.FindAll(r.Context())
		if err != nil {
			writeStoreError(w, s.log, err, "Failed to create product")
			return
		}
		if max := catalog.MaxAllowed(all, nil, catalog.FullPercentage); *in.Probability > max+probEpsilon {
			writeProbabilityCap(w, max)
			return
		}
	}
	p, err := s.store.Create(r.Context(), in)
	if err != nil {
		writeStoreError(w, s.log, err, "Failed to create product")
		return
	}
	s.log.Info().Str("product_id", p.ID).Str("name", p.Name).Msg("product created")
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var patch catalog.ProductPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "bad_request")
		return
	}
	existing, err := s.store.FindByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, s.log, err, "Failed to update product")
		return
	}
	active := existing.IsActive
	if patch.IsActive != nil {
		active = *patch.IsActive
	}
	prob := existing.Probability
	if patch.Probability != nil {
		prob = *patch.Probability
	}
	grows := patch.Probability != nil || (active && !existing.IsActive)
	if active && grows {
		all, err := s.store.FindAll(r.Context())
		if err != nil {
			writeStoreError(w, s.log, err, "Failed to update product")
			return
		}
		if max := catalog.MaxAllowed(all, existing, catalog.FullPercentage); prob > max+probEpsilon {
			writeProbabilityCap(w, max)
			return
		}
	}
	p, err := s.store.Update(r.Context(), id, patch)
	if err != nil {
		writeStoreError(w, s.log, err, "Failed to update product")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		writeStoreError(w, s.log, err, "Failed to delete product")
		return
	}
	s.log.Info().Str("product_id", id).Msg("product deleted")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}

// rotateProduct turns the product image a quarter turn clockwise.
func (s *Server) rotateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := s.store.FindByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, s.log, err, "Failed to rotate product")
		return
	}
	next := catalog.NextRotation(p.Rotation)
	p, err = s.store.Update(r.Context(), id, catalog.ProductPatch{Rotation: &next})
	if err != nil {
		writeStoreError(w, s.log, err, "Failed to rotate product")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// distribute spreads what is left of 100% over the active products.
func (s *Server) distribute(w http.ResponseWriter, r *http.Request) {
	all, err := s.store.FindAll(r.Context())
	if err != nil {
		writeStoreError(w, s.log, err, "Failed to distribute")
		return
	}
	adjustments, err := catalog.Distribute(all, catalog.FullPercentage)
	if errors.Is(err, catalog.ErrNothingToDistribute) {
		writeError(w, http.StatusConflict, "Nothing to distribute", "nothing_to_distribute")
		return
	}
	if err != nil {
		writeStoreError(w, s.log, err, "Failed to distribute")
		return
	}
	for _, a := range adjustments {
		to := a.To
		if _, err := s.store.Update(r.Context(), a.ID, catalog.ProductPatch{Probability: &to}); err != nil {
			writeStoreError(w, s.log, err, "Failed to distribute")
			return
		}
	}
	s.log.Info().Int("products", len(adjustments)).Msg("remaining percentage distributed")
	writeJSON(w, http.StatusOK, map[string]any{"adjustments": adjustments})
}

// writeProbabilityCap reports the cap floored to hundredths so the number
// shown is always an accepted value.
func writeProbabilityCap(w http.ResponseWriter, max float64) {
	shown := math.Max(0, math.Floor(max*100+probEpsilon)/100)
	writeError(w, http.StatusBadRequest,
		fmt.Sprintf("Probability exceeds the remaining percentage (max %s)", strconv.FormatFloat(shown, 'f', -1, 64)),
		"probability_cap")
}
