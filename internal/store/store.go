// Package store persists the append-only observation log and prediction
// history. The herd's live risk state is held in memory by internal/herd;
// this package is the durable record behind it.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/tauron-farm/tauron/internal/model"
)

// ErrPredictionNotFound is returned when a prediction ID is unknown.
var ErrPredictionNotFound = eris.New("prediction not found")

// ErrOutcomeAlreadySet is returned when a prediction's outcome has already
// been confirmed. Outcomes are set-once: they feed accuracy reporting and
// must not drift after the fact.
var ErrOutcomeAlreadySet = eris.New("outcome already set")

// ObservationFilter specifies criteria for listing observations.
type ObservationFilter struct {
	CowID  int `json:"cow_id,omitempty"` // 0 = all cows
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// PredictionFilter specifies criteria for listing predictions.
type PredictionFilter struct {
	CowID  int    `json:"cow_id,omitempty"`
	Status string `json:"status,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store defines persistence for observations and predictions. Both logs are
// append-only; SetOutcome is the single permitted mutation and only moves a
// prediction from unset to a final outcome.
//
// List operations return newest-first.
type Store interface {
	AppendObservation(ctx context.Context, obs model.Observation) (*model.Observation, error)
	ListObservations(ctx context.Context, filter ObservationFilter) ([]model.Observation, error)
	CountObservations(ctx context.Context) (int, error)

	AppendPrediction(ctx context.Context, p model.Prediction) (*model.Prediction, error)
	ListPredictions(ctx context.Context, filter PredictionFilter) ([]model.Prediction, error)
	GetPrediction(ctx context.Context, id string) (*model.Prediction, error)
	SetOutcome(ctx context.Context, id string, outcome model.Outcome) (*model.Prediction, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
