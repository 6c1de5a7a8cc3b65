package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tauron-farm/tauron/internal/model"
)

// MemoryStore implements Store in process memory. It is the default for the
// demo tier and for tests; contents reset on restart.
type MemoryStore struct {
	mu           sync.RWMutex
	observations []model.Observation
	predictions  []model.Prediction
	byID         map[string]int // prediction ID → index
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{byID: make(map[string]int)}
}

func (s *MemoryStore) Migrate(_ context.Context) error { return nil }
func (s *MemoryStore) Close() error                    { return nil }

func (s *MemoryStore) AppendObservation(_ context.Context, obs model.Observation) (*model.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if obs.ID == "" {
		obs.ID = uuid.New().String()
	}
	if obs.Timestamp.IsZero() {
		obs.Timestamp = time.Now().UTC()
	}
	s.observations = append(s.observations, obs)
	return &obs, nil
}

func (s *MemoryStore) ListObservations(_ context.Context, filter ObservationFilter) ([]model.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Newest first.
	var out []model.Observation
	for i := len(s.observations) - 1; i >= 0; i-- {
		obs := s.observations[i]
		if filter.CowID != 0 && obs.CowID != filter.CowID {
			continue
		}
		out = append(out, obs)
	}
	return paginate(out, filter.Limit, filter.Offset), nil
}

func (s *MemoryStore) CountObservations(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observations), nil
}

func (s *MemoryStore) AppendPrediction(_ context.Context, p model.Prediction) (*model.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now().UTC()
	}
	s.predictions = append(s.predictions, p)
	s.byID[p.ID] = len(s.predictions) - 1
	return &p, nil
}

func (s *MemoryStore) ListPredictions(_ context.Context, filter PredictionFilter) ([]model.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Prediction
	for i := len(s.predictions) - 1; i >= 0; i-- {
		p := s.predictions[i]
		if filter.CowID != 0 && p.CowID != filter.CowID {
			continue
		}
		if filter.Status != "" && string(p.Status) != filter.Status {
			continue
		}
		out = append(out, p)
	}
	return paginate(out, filter.Limit, filter.Offset), nil
}

func (s *MemoryStore) GetPrediction(_ context.Context, id string) (*model.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[id]
	if !ok {
		return nil, ErrPredictionNotFound
	}
	p := s.predictions[idx]
	return &p, nil
}

func (s *MemoryStore) SetOutcome(_ context.Context, id string, outcome model.Outcome) (*model.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[id]
	if !ok {
		return nil, ErrPredictionNotFound
	}
	if s.predictions[idx].Outcome != model.OutcomeUnset {
		return nil, ErrOutcomeAlreadySet
	}
	s.predictions[idx].Outcome = outcome
	p := s.predictions[idx]
	return &p, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
