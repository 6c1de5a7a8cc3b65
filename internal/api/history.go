package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tauron-farm/tauron/internal/impact"
	"github.com/tauron-farm/tauron/internal/model"
	"github.com/tauron-farm/tauron/internal/store"
)

// handleHistory lists the prediction log, newest first. Supports cow_id,
// status, limit and offset query parameters.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	filter := store.PredictionFilter{
		CowID:  queryInt(r, "cow_id", 0),
		Status: r.URL.Query().Get("status"),
		Limit:  queryInt(r, "limit", 100),
		Offset: queryInt(r, "offset", 0),
	}

	predictions, err := s.herd.Predictions(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list predictions", zap.Error(err))
		respondDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	if predictions == nil {
		predictions = []model.Prediction{}
	}

	respondJSON(w, http.StatusOK, map[string]any{"predictions": predictions})
}

type outcomePayload struct {
	Outcome string `json:"outcome"`
}

// handleOutcome records a farmer's confirmation on one prediction. The
// outcome is set exactly once; a second attempt conflicts regardless of
// value, so accuracy metrics cannot drift after the fact.
func (s *Server) handleOutcome(w http.ResponseWriter, r *http.Request) {
	predictionID := chi.URLParam(r, "predictionID")

	var payload outcomePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if !model.ValidOutcome(payload.Outcome) {
		respondDetail(w, http.StatusUnprocessableEntity, "outcome must be \"confirmed\" or \"unconfirmed\", got %q", payload.Outcome)
		return
	}

	pred, err := s.herd.SetOutcome(r.Context(), predictionID, model.Outcome(payload.Outcome))
	switch {
	case errors.Is(err, store.ErrPredictionNotFound):
		respondDetail(w, http.StatusNotFound, "prediction %s not found", predictionID)
		return
	case errors.Is(err, store.ErrOutcomeAlreadySet):
		respondDetail(w, http.StatusConflict, "outcome already set for prediction %s", predictionID)
		return
	case err != nil:
		zap.L().Error("api: set outcome", zap.Error(err))
		respondDetail(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusOK, pred)
}

// handleImpact aggregates the whole prediction history into the herd
// protection report.
func (s *Server) handleImpact(w http.ResponseWriter, r *http.Request) {
	predictions, err := s.herd.Predictions(r.Context(), store.PredictionFilter{})
	if err != nil {
		zap.L().Error("api: list predictions for impact", zap.Error(err))
		respondDetail(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusOK, impact.Compute(predictions))
}

// handleLogs serves the observation log for the data-entry view, newest
// first.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	observations, err := s.herd.Observations(r.Context(), store.ObservationFilter{
		CowID:  queryInt(r, "cow_id", 0),
		Limit:  queryInt(r, "limit", 100),
		Offset: queryInt(r, "offset", 0),
	})
	if err != nil {
		zap.L().Error("api: list observations", zap.Error(err))
		respondDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	if observations == nil {
		observations = []model.Observation{}
	}

	respondJSON(w, http.StatusOK, map[string]any{"logs": observations})
}
