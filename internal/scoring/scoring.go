// Package scoring defines the contracts for the external risk model and
// attribution engine, plus a local baseline implementation that keeps the
// system functional with no model process running.
package scoring

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/tauron-farm/tauron/internal/model"
)

// ErrScoringUnavailable signals that the model or explainer backend is
// unreachable or erroring. Every caller must treat it as recoverable: fall
// back to the last-known risk state, never fail the request.
var ErrScoringUnavailable = eris.New("scoring backend unavailable")

// Window is the recent observation history for one cow, newest first.
type Window struct {
	CowID        int
	Observations []model.Observation
}

// Scorer produces a per-disease risk vector for one cow. Implementations
// may be expensive or remote; callers bound them with a context deadline
// and must not hold herd locks across the call.
type Scorer interface {
	Score(ctx context.Context, window Window, graph *model.ContactGraph) (model.RiskVector, error)
}

// Attributor explains a risk vector: which sensor signal drove it, how far
// that signal moved from baseline, and the most relevant contact edge.
type Attributor interface {
	Attribute(ctx context.Context, window Window, risk model.RiskVector, graph *model.ContactGraph) (*model.Attribution, error)
}
