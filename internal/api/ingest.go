package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/tauron-farm/tauron/internal/ingest"
)

type ingestPayload struct {
	ingest.Record
	Records []ingest.Record `json:"records"`
}

type singleIngestResponse struct {
	Status      string   `json:"status"`
	Rows        int      `json:"rows"`
	Total       int      `json:"total"`
	HerdUpdated bool     `json:"herd_updated"`
	CowsUpdated []int    `json:"cows_updated"`
	Warnings    []string `json:"warnings,omitempty"`
}

type batchIngestResponse struct {
	Status      string            `json:"status"`
	RowsTotal   int               `json:"rows_total"`
	RowsApplied int               `json:"rows_applied"`
	CowsUpdated []int             `json:"cows_updated"`
	Errors      []ingest.RowError `json:"errors"`
}

// handleIngest accepts one manual observation, or a batch when the payload
// carries a records array.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var payload ingestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}

	if len(payload.Records) > 0 {
		s.applyBatch(w, r, payload.Records)
		return
	}

	res, err := s.gateway.Apply(r.Context(), payload.Record)
	if err != nil {
		var vErr *ingest.ValidationError
		if errors.As(err, &vErr) {
			respondDetail(w, http.StatusBadRequest, "%s", vErr.Reason)
			return
		}
		zap.L().Error("api: ingest failed", zap.Error(err))
		respondDetail(w, http.StatusInternalServerError, "internal error")
		return
	}

	total, err := s.herd.ObservationCount(r.Context())
	if err != nil {
		zap.L().Warn("api: observation count unavailable", zap.Error(err))
	}

	respondJSON(w, http.StatusOK, singleIngestResponse{
		Status:      "ok",
		Rows:        1,
		Total:       total,
		HerdUpdated: res.Prediction != nil,
		CowsUpdated: []int{res.Observation.CowID},
		Warnings:    res.Warnings,
	})
}

// handleIngestCSV accepts batch observations: either raw CSV (text/csv) or
// rows the frontend already parsed into {records: [...]}.
func (s *Server) handleIngestCSV(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(r.Header.Get("Content-Type"), "text/csv") {
		records, parseErrors, err := ingest.ParseCSV(r.Body)
		if err != nil {
			respondDetail(w, http.StatusBadRequest, "%v", err)
			return
		}
		s.applyParsedBatch(w, r, records, parseErrors)
		return
	}

	var payload struct {
		Records []ingest.Record `json:"records"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if len(payload.Records) == 0 {
		respondDetail(w, http.StatusBadRequest, "no records provided")
		return
	}
	s.applyBatch(w, r, payload.Records)
}

func (s *Server) applyBatch(w http.ResponseWriter, r *http.Request, records []ingest.Record) {
	s.applyParsedBatch(w, r, records, nil)
}

// applyParsedBatch merges parse-stage row errors with apply-stage ones.
// Parse errors keep their original row numbers; applied rows are counted
// against the full submission.
func (s *Server) applyParsedBatch(w http.ResponseWriter, r *http.Request, records []ingest.Record, parseErrors []ingest.RowError) {
	result := s.gateway.ApplyBatch(r.Context(), records)

	resp := batchIngestResponse{
		Status:      "ok",
		RowsTotal:   result.RowsTotal + len(parseErrors),
		RowsApplied: result.RowsApplied,
		CowsUpdated: result.CowsUpdated,
		Errors:      append(parseErrors, result.Errors...),
	}
	if resp.CowsUpdated == nil {
		resp.CowsUpdated = []int{}
	}
	if resp.Errors == nil {
		resp.Errors = []ingest.RowError{}
	}
	sort.Slice(resp.Errors, func(a, b int) bool {
		return resp.Errors[a].Row < resp.Errors[b].Row
	})

	respondJSON(w, http.StatusOK, resp)
}

type voicePayload struct {
	Transcript string `json:"transcript"`
}

// handleVoice extracts structured observations from a dictated transcript.
// It does not apply them; the frontend shows the extraction for the farmer
// to confirm before submitting through the ingest endpoints.
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	var payload voicePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if strings.TrimSpace(payload.Transcript) == "" {
		respondDetail(w, http.StatusBadRequest, "transcript is required")
		return
	}

	ext := s.extractor.Extract(r.Context(), payload.Transcript)
	respondJSON(w, http.StatusOK, ext)
}
