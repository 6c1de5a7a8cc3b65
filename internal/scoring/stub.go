package scoring

import (
	"context"

	"github.com/tauron-farm/tauron/internal/model"
)

// Stub is a fixed-output scorer/attributor for tests and the mock demo
// tier. Err, when set, is returned from both calls.
type Stub struct {
	Vector      model.RiskVector
	Attribution *model.Attribution
	Err         error

	ScoreCalls     int
	AttributeCalls int
}

func (s *Stub) Score(_ context.Context, _ Window, _ *model.ContactGraph) (model.RiskVector, error) {
	s.ScoreCalls++
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Vector.Clone(), nil
}

func (s *Stub) Attribute(_ context.Context, _ Window, _ model.RiskVector, _ *model.ContactGraph) (*model.Attribution, error) {
	s.AttributeCalls++
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Attribution == nil {
		return &model.Attribution{TopFeature: "milk_yield_kg"}, nil
	}
	attr := *s.Attribution
	return &attr, nil
}
