package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tauron-farm/tauron/internal/model"
)

func TestMemoryStore_AppendObservation_AssignsIDAndTimestamp(t *testing.T) {
	s := NewMemory()

	yield := 20.5
	obs, err := s.AppendObservation(context.Background(), model.Observation{
		CowID:       47,
		YieldKg:     &yield,
		Pen:         "A1",
		HealthEvent: model.HealthEventNone,
		Source:      model.SourceManual,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, obs.ID)
	assert.False(t, obs.Timestamp.IsZero())

	n, err := s.CountObservations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryStore_NoDeduplication(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	// Identical submissions are deliberately not deduplicated.
	rec := model.Observation{CowID: 47, Pen: "B1", HealthEvent: model.HealthEventNone, Source: model.SourceManual}
	for i := 0; i < 3; i++ {
		_, err := s.AppendObservation(ctx, rec)
		require.NoError(t, err)
	}

	n, err := s.CountObservations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMemoryStore_ListObservations_NewestFirstAndFiltered(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	for _, cowID := range []int{1, 2, 1} {
		_, err := s.AppendObservation(ctx, model.Observation{CowID: cowID, Source: model.SourceCSV})
		require.NoError(t, err)
	}

	all, err := s.ListObservations(ctx, ObservationFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 1, all[0].CowID) // last appended comes first

	only1, err := s.ListObservations(ctx, ObservationFilter{CowID: 1})
	require.NoError(t, err)
	assert.Len(t, only1, 2)

	limited, err := s.ListObservations(ctx, ObservationFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestMemoryStore_SetOutcome(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	p, err := s.AppendPrediction(ctx, model.Prediction{
		CowID: 47, RiskScore: 0.85, DominantDisease: model.DiseaseMastitis, Status: model.StatusAlert,
	})
	require.NoError(t, err)

	got, err := s.SetOutcome(ctx, p.ID, model.OutcomeConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeConfirmed, got.Outcome)

	// Second set fails, first value sticks.
	_, err = s.SetOutcome(ctx, p.ID, model.OutcomeUnconfirmed)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutcomeAlreadySet)

	final, err := s.GetPrediction(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeConfirmed, final.Outcome)
}

func TestMemoryStore_SetOutcome_UnknownID(t *testing.T) {
	s := NewMemory()
	_, err := s.SetOutcome(context.Background(), "missing", model.OutcomeConfirmed)
	assert.ErrorIs(t, err, ErrPredictionNotFound)
}

func TestMemoryStore_SetOutcome_ConcurrentCallsDeterministic(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	p, err := s.AppendPrediction(ctx, model.Prediction{CowID: 9, RiskScore: 0.8, Status: model.StatusAlert})
	require.NoError(t, err)

	const callers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		already   int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.SetOutcome(ctx, p.ID, model.OutcomeConfirmed)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrOutcomeAlreadySet):
				already++
			}
		}()
	}
	wg.Wait()

	// Exactly one writer wins; every other call observes AlreadySet.
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, callers-1, already)

	final, err := s.GetPrediction(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeConfirmed, final.Outcome)
}
