package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tauron-farm/tauron/internal/alert"
	"github.com/tauron-farm/tauron/internal/model"
)

// herdCow is the per-cow projection in GET /herd. The nullable fields are
// explicit nulls, not omitted, for ok and unscored cows; the frontend
// relies on the keys being present.
type herdCow struct {
	ID              int              `json:"id"`
	Pen             string           `json:"pen,omitempty"`
	RiskScore       float64          `json:"risk_score"`
	Status          model.Status     `json:"status"`
	DominantDisease *string          `json:"dominant_disease"`
	TopFeature      *string          `json:"top_feature"`
	AllRisks        model.RiskVector `json:"all_risks"`
	Scored          bool             `json:"scored"`
}

type herdResponse struct {
	Cows      []herdCow `json:"cows"`
	Adjacency [][]int   `json:"adjacency"`
}

// handleHerd serves all cow risk states plus the contact adjacency matrix.
// Adjacency row/column order matches the cows array order exactly; both
// come from one snapshot so concurrent ingests cannot skew them apart.
func (s *Server) handleHerd(w http.ResponseWriter, _ *http.Request) {
	cows, graph := s.herd.Snapshot()

	resp := herdResponse{
		Cows:      make([]herdCow, 0, len(cows)),
		Adjacency: graph.Binary(),
	}

	for i := range cows {
		resp.Cows = append(resp.Cows, projectCow(&cows[i]))
	}

	respondJSON(w, http.StatusOK, resp)
}

func projectCow(cow *model.Cow) herdCow {
	score, _ := cow.Risk.Max()
	out := herdCow{
		ID:        cow.ID,
		Pen:       cow.Pen,
		RiskScore: score,
		Status:    cow.Status(),
		Scored:    cow.Scored,
	}

	// The risk breakdown is only meaningful above the ok tier; the
	// frontend treats null as "nothing to show".
	if !cow.Scored || out.Status == model.StatusOK {
		return out
	}

	out.AllRisks = cow.Risk
	if d := cow.Risk.Dominant(); d != "" {
		s := string(d)
		out.DominantDisease = &s
	}
	if cow.Attribution != nil && cow.Attribution.TopFeature != "" {
		out.TopFeature = &cow.Attribution.TopFeature
	}
	return out
}

type explainResponse struct {
	CowID           int              `json:"cow_id"`
	RiskScore       float64          `json:"risk_score"`
	TopEdge         *model.TopEdge   `json:"top_edge"`
	TopFeature      *string          `json:"top_feature"`
	FeatureDelta    *float64         `json:"feature_delta"`
	DominantDisease *string          `json:"dominant_disease"`
	AllRisks        model.RiskVector `json:"all_risks"`
	AlertText       string           `json:"alert_text"`
}

// handleExplain serves the structured explanation plus generated alert text
// for one cow. Generation failures are absorbed by the composer chain, so
// this endpoint always answers 200 for a known cow.
func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "cowID"))
	if err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid cow id %q", chi.URLParam(r, "cowID"))
		return
	}

	cow, ok := s.herd.GetCow(id)
	if !ok {
		respondDetail(w, http.StatusNotFound, "Cow %d not found. Available IDs: %s", id, formatIDs(s.herd.AvailableIDs()))
		return
	}

	score, _ := cow.Risk.Max()
	in := alert.Input{
		CowID:           cow.ID,
		RiskScore:       score,
		DominantDisease: cow.Risk.Dominant(),
		Risks:           cow.Risk,
	}

	resp := explainResponse{
		CowID:     cow.ID,
		RiskScore: score,
	}
	if cow.Scored {
		resp.AllRisks = cow.Risk
		if d := cow.Risk.Dominant(); d != "" {
			ds := string(d)
			resp.DominantDisease = &ds
		}
	}
	if cow.Attribution != nil {
		in.TopFeature = cow.Attribution.TopFeature
		in.FeatureDelta = cow.Attribution.FeatureDelta
		in.TopEdge = cow.Attribution.TopEdge

		resp.TopEdge = cow.Attribution.TopEdge
		if cow.Attribution.TopFeature != "" {
			resp.TopFeature = &cow.Attribution.TopFeature
		}
		delta := cow.Attribution.FeatureDelta
		resp.FeatureDelta = &delta
	}

	resp.AlertText = s.chain.Compose(r.Context(), in)
	respondJSON(w, http.StatusOK, resp)
}
