package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tauron-farm/tauron/internal/herd"
	"github.com/tauron-farm/tauron/internal/model"
	"github.com/tauron-farm/tauron/internal/scoring"
	"github.com/tauron-farm/tauron/internal/store"
)

func newGateway(t *testing.T, stub *scoring.Stub) (*Gateway, *herd.Store) {
	t.Helper()
	h := herd.New(store.NewMemory())
	return New(h, stub, stub, Options{}), h
}

func alertStub() *scoring.Stub {
	return &scoring.Stub{
		Vector: model.RiskVector{
			model.DiseaseMastitis: 0.82,
			model.DiseaseBRD:      0.10,
			model.DiseaseLameness: 0.05,
		},
		Attribution: &model.Attribution{
			TopFeature:   "milk_yield_kg",
			FeatureDelta: -0.9,
		},
	}
}

func yield(v float64) *float64 { return &v }

func TestApply_Success(t *testing.T) {
	g, h := newGateway(t, alertStub())

	res, err := g.Apply(context.Background(), Record{
		CowID:       47,
		YieldKg:     yield(20.5),
		Pen:         "A1",
		HealthEvent: "none",
	})
	require.NoError(t, err)

	require.NotNil(t, res.Observation)
	assert.NotEmpty(t, res.Observation.ID)
	assert.Equal(t, model.SourceManual, res.Observation.Source)

	require.NotNil(t, res.Prediction)
	assert.Equal(t, 47, res.Prediction.CowID)
	assert.InDelta(t, 0.82, res.Prediction.RiskScore, 1e-9)
	assert.Equal(t, model.StatusAlert, res.Prediction.Status)
	assert.Equal(t, model.DiseaseMastitis, res.Prediction.DominantDisease)

	assert.Equal(t, model.StatusAlert, res.Cow.Status())
	assert.Empty(t, res.Warnings)

	cow, ok := h.GetCow(47)
	require.True(t, ok)
	assert.Equal(t, "A1", cow.Pen)
	assert.True(t, cow.Scored)
}

func TestApply_MissingCowIDRejected(t *testing.T) {
	g, _ := newGateway(t, alertStub())

	_, err := g.Apply(context.Background(), Record{YieldKg: yield(20)})
	require.Error(t, err)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Reason, "missing cow_id")
}

func TestApply_UnknownHealthEventRejected(t *testing.T) {
	g, _ := newGateway(t, alertStub())

	_, err := g.Apply(context.Background(), Record{CowID: 3, HealthEvent: "seasick"})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Reason, "health_event")
}

func TestApply_NegativeYieldRejected(t *testing.T) {
	g, _ := newGateway(t, alertStub())

	_, err := g.Apply(context.Background(), Record{CowID: 3, YieldKg: yield(-1)})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestApply_EmptyHealthEventNormalisedToNone(t *testing.T) {
	g, _ := newGateway(t, alertStub())

	res, err := g.Apply(context.Background(), Record{CowID: 3})
	require.NoError(t, err)
	assert.Equal(t, model.HealthEventNone, res.Observation.HealthEvent)
}

func TestApply_ScoringFailurePreservesPriorState(t *testing.T) {
	stub := alertStub()
	g, h := newGateway(t, stub)

	// First apply succeeds and sets the cow to alert.
	_, err := g.Apply(context.Background(), Record{CowID: 47, YieldKg: yield(20)})
	require.NoError(t, err)

	// Backend goes down; the observation still lands and prior risk holds.
	stub.Err = scoring.ErrScoringUnavailable
	res, err := g.Apply(context.Background(), Record{CowID: 47, YieldKg: yield(19)})
	require.NoError(t, err)

	assert.NotNil(t, res.Observation)
	assert.Nil(t, res.Prediction)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "scoring unavailable")
	assert.Equal(t, model.StatusAlert, res.Cow.Status(), "prior risk state preserved")

	count, err := h.ObservationCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count, "observation applied despite scoring failure")
}

func TestApply_ScoringFailureOnNewCowLeavesOK(t *testing.T) {
	g, _ := newGateway(t, &scoring.Stub{Err: scoring.ErrScoringUnavailable})

	res, err := g.Apply(context.Background(), Record{CowID: 9})
	require.NoError(t, err)
	assert.Equal(t, model.StatusOK, res.Cow.Status())
	assert.False(t, res.Cow.Scored)
}

func TestApply_NoDeduplication(t *testing.T) {
	g, h := newGateway(t, alertStub())

	rec := Record{CowID: 5, YieldKg: yield(22), Pen: "B2"}
	for i := 0; i < 3; i++ {
		_, err := g.Apply(context.Background(), rec)
		require.NoError(t, err)
	}

	count, err := h.ObservationCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestApply_BunkRegistersFeedingStation(t *testing.T) {
	g, h := newGateway(t, alertStub())

	_, err := g.Apply(context.Background(), Record{CowID: 8, Pen: "A1", Bunk: "F3"})
	require.NoError(t, err)

	cow, ok := h.GetCow(8)
	require.True(t, ok)
	assert.Equal(t, "F3", cow.Bunk)
}

func TestApplyBatch_PartialApply(t *testing.T) {
	g, h := newGateway(t, alertStub())

	records := make([]Record, 0, 11)
	for i := 1; i <= 10; i++ {
		records = append(records, Record{CowID: i, YieldKg: yield(20)})
	}
	// One malformed row in the middle.
	records = append(records[:5], append([]Record{{YieldKg: yield(20)}}, records[5:]...)...)

	result := g.ApplyBatch(context.Background(), records)

	assert.Equal(t, 11, result.RowsTotal)
	assert.Equal(t, 10, result.RowsApplied)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 6, result.Errors[0].Row)
	assert.Contains(t, result.Errors[0].Reason, "missing cow_id")
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, result.CowsUpdated)

	count, err := h.ObservationCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, count, "log grows by exactly the applied rows")
}

func TestApplyBatch_KeepsSourceRowNumbers(t *testing.T) {
	g, _ := newGateway(t, alertStub())

	// Records as a parser hands them over: the source file's row 2 was
	// dropped at parse time, so the surviving rows carry 1 and 3.
	records := []Record{
		{Row: 1, CowID: 47, YieldKg: yield(20)},
		{Row: 3, CowID: 31, HealthEvent: "zombie"},
	}

	result := g.ApplyBatch(context.Background(), records)

	assert.Equal(t, 1, result.RowsApplied)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 3, result.Errors[0].Row, "error points at the source row, not the slice position")
	assert.Contains(t, result.Errors[0].Reason, `unknown health_event "zombie"`)
}

func TestApplyBatch_Empty(t *testing.T) {
	g, _ := newGateway(t, alertStub())

	result := g.ApplyBatch(context.Background(), nil)
	assert.Equal(t, 0, result.RowsTotal)
	assert.Equal(t, 0, result.RowsApplied)
	assert.Empty(t, result.Errors)
}

func TestApplyBatch_SameCowRowsAllLand(t *testing.T) {
	g, h := newGateway(t, alertStub())

	records := []Record{
		{CowID: 47, YieldKg: yield(20)},
		{CowID: 47, YieldKg: yield(19)},
		{CowID: 47, YieldKg: yield(18)},
	}

	result := g.ApplyBatch(context.Background(), records)
	assert.Equal(t, 3, result.RowsApplied)
	assert.Equal(t, []int{47}, result.CowsUpdated)

	count, err := h.ObservationCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
