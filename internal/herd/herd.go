// Package herd owns the live state of the monitored herd: the authoritative
// cow map, the canonical ordering that the adjacency matrix indexes into,
// and the append-only logs behind it. It is an injectable object, never a
// package-level singleton, so tests run isolated instances in parallel.
package herd

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tauron-farm/tauron/internal/model"
	"github.com/tauron-farm/tauron/internal/store"
)

// ErrCowNotFound is returned when a cow ID is unknown to the herd.
var ErrCowNotFound = eris.New("cow not found")

// Store is the Herd State Store. mu guards the cow map and canonical order;
// gates serialize the full ingest path per cow so concurrent ingests for
// the same animal cannot interleave partial updates. External calls
// (scorer, LLM) must never run under mu; only the final state write takes
// it.
type Store struct {
	mu    sync.RWMutex
	cows  map[int]*model.Cow
	order []int // canonical: first-appearance order, stable for process lifetime

	gatesMu sync.Mutex
	gates   map[int]*sync.Mutex

	log store.Store
}

// New creates an empty herd backed by the given log store.
func New(log store.Store) *Store {
	return &Store{
		cows:  make(map[int]*model.Cow),
		gates: make(map[int]*sync.Mutex),
		log:   log,
	}
}

// Gate returns the per-cow ingest mutex, creating it on first use. Callers
// hold it across the observation→score→apply sequence for one cow; it is
// never taken by readers.
func (s *Store) Gate(cowID int) *sync.Mutex {
	s.gatesMu.Lock()
	defer s.gatesMu.Unlock()
	g, ok := s.gates[cowID]
	if !ok {
		g = &sync.Mutex{}
		s.gates[cowID] = g
	}
	return g
}

// UpsertCow creates the cow if absent, else updates its mutable placement
// fields (last-write-wins). Empty pen/bunk leave the existing value alone.
func (s *Store) UpsertCow(id int, pen, bunk string) model.Cow {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cows[id]
	if !ok {
		c = &model.Cow{ID: id}
		s.cows[id] = c
		s.order = append(s.order, id)
		zap.L().Info("new cow registered", zap.Int("cow_id", id), zap.String("pen", pen))
	}
	if pen != "" {
		c.Pen = pen
	}
	if bunk != "" {
		c.Bunk = bunk
	}
	return *c
}

// ApplyScore commits a scoring result. Risk, status, dominant disease and
// attribution all derive from the same vector in one critical section, so
// readers can never observe a vector/status mismatch. Out-of-range scores
// are clamped and reported back as data-quality warnings.
func (s *Store) ApplyScore(cowID int, risk model.RiskVector, attr *model.Attribution) ([]string, error) {
	risk = risk.Clone()
	warnings := risk.Clamp()

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cows[cowID]
	if !ok {
		return nil, eris.Wrapf(ErrCowNotFound, "apply score for cow %d", cowID)
	}
	c.Risk = risk
	c.Scored = true
	if model.StatusFor(risk) == model.StatusOK {
		c.Attribution = nil
	} else {
		c.Attribution = attr
	}

	for _, w := range warnings {
		zap.L().Warn("risk score clamped", zap.Int("cow_id", cowID), zap.String("warning", w))
	}
	return warnings, nil
}

// GetCow returns a copy of one cow's state.
func (s *Store) GetCow(id int) (model.Cow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cows[id]
	if !ok {
		return model.Cow{}, false
	}
	return copyCow(c), true
}

// AvailableIDs returns all known cow IDs in ascending order, for actionable
// not-found messages.
func (s *Store) AvailableIDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int, len(s.order))
	copy(ids, s.order)
	sort.Ints(ids)
	return ids
}

// Snapshot returns copies of all cows in canonical order plus the contact
// graph derived from current pen assignments. The copy means concurrent
// writers can proceed while a caller renders the view; the graph's row
// order always matches the returned slice.
func (s *Store) Snapshot() ([]model.Cow, *model.ContactGraph) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cows := make([]model.Cow, 0, len(s.order))
	for _, id := range s.order {
		cows = append(cows, copyCow(s.cows[id]))
	}
	return cows, buildGraph(cows)
}

// Graph returns just the contact graph for the current herd.
func (s *Store) Graph() *model.ContactGraph {
	_, g := s.Snapshot()
	return g
}

// --- log pass-throughs ---

// AppendObservation records an accepted observation and registers the cow.
// Registration happens only after the log append succeeds, so a failed
// insert cannot leave a cow visible with no backing log entry.
func (s *Store) AppendObservation(ctx context.Context, obs model.Observation) (*model.Observation, error) {
	if obs.CowID == 0 {
		return nil, eris.New("observation missing cow_id")
	}
	stored, err := s.log.AppendObservation(ctx, obs)
	if err != nil {
		return nil, err
	}
	s.UpsertCow(obs.CowID, obs.Pen, "")
	return stored, nil
}

// Observations lists logged observations, newest first.
func (s *Store) Observations(ctx context.Context, filter store.ObservationFilter) ([]model.Observation, error) {
	return s.log.ListObservations(ctx, filter)
}

// ObservationCount reports the total log length.
func (s *Store) ObservationCount(ctx context.Context) (int, error) {
	return s.log.CountObservations(ctx)
}

// AppendPrediction snapshots a scoring event into the history log.
func (s *Store) AppendPrediction(ctx context.Context, p model.Prediction) (*model.Prediction, error) {
	return s.log.AppendPrediction(ctx, p)
}

// Predictions lists the scoring history, newest first.
func (s *Store) Predictions(ctx context.Context, filter store.PredictionFilter) ([]model.Prediction, error) {
	return s.log.ListPredictions(ctx, filter)
}

// SetOutcome records a farmer's confirmation on a prediction, exactly once.
func (s *Store) SetOutcome(ctx context.Context, predictionID string, outcome model.Outcome) (*model.Prediction, error) {
	return s.log.SetOutcome(ctx, predictionID, outcome)
}

func copyCow(c *model.Cow) model.Cow {
	out := *c
	out.Risk = c.Risk.Clone()
	if c.Attribution != nil {
		attr := *c.Attribution
		if c.Attribution.TopEdge != nil {
			edge := *c.Attribution.TopEdge
			attr.TopEdge = &edge
		}
		out.Attribution = &attr
	}
	return out
}
