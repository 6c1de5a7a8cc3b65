package scoring

import (
	"context"

	"go.uber.org/zap"

	"github.com/tauron-farm/tauron/internal/model"
)

// Baseline is a deterministic heuristic scorer standing in for the trained
// graph model. It reads the recent observation window and produces risk
// vectors from farmer-reported events and yield movement, so the dashboard
// stays live when no model process is available.
type Baseline struct{}

// NewBaseline creates the heuristic scorer/attributor.
func NewBaseline() *Baseline {
	return &Baseline{}
}

// Per-event risk contributions. A direct mastitis report dominates; softer
// signals only lift a cow into the watch band.
var eventRisk = map[model.HealthEvent]model.RiskVector{
	model.HealthEventMastitis: {model.DiseaseMastitis: 0.85, model.DiseaseBRD: 0.20, model.DiseaseLameness: 0.10},
	model.HealthEventLame:     {model.DiseaseMastitis: 0.10, model.DiseaseBRD: 0.12, model.DiseaseLameness: 0.80},
	model.HealthEventOffFeed:  {model.DiseaseMastitis: 0.35, model.DiseaseBRD: 0.55, model.DiseaseLameness: 0.20},
	model.HealthEventCalving:  {model.DiseaseMastitis: 0.45, model.DiseaseBRD: 0.15, model.DiseaseLameness: 0.15},
	model.HealthEventOther:    {model.DiseaseMastitis: 0.30, model.DiseaseBRD: 0.30, model.DiseaseLameness: 0.30},
}

const baseRisk = 0.05

func (b *Baseline) Score(ctx context.Context, window Window, graph *model.ContactGraph) (model.RiskVector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	risk := model.RiskVector{
		model.DiseaseMastitis: baseRisk,
		model.DiseaseBRD:      baseRisk,
		model.DiseaseLameness: baseRisk,
	}

	for _, obs := range window.Observations {
		if contribution, ok := eventRisk[obs.HealthEvent]; ok {
			for d, score := range contribution {
				if score > risk[d] {
					risk[d] = score
				}
			}
		}
	}

	// Yield decline against the window mean lifts mastitis risk. A drop of
	// 20% maps to roughly the watch threshold, 35%+ to alert territory.
	if drop := yieldDrop(window.Observations); drop > 0.10 {
		score := 0.25 + drop*1.5
		if score > 0.95 {
			score = 0.95
		}
		if score > risk[model.DiseaseMastitis] {
			risk[model.DiseaseMastitis] = score
		}
	}

	if warnings := risk.Clamp(); len(warnings) > 0 {
		zap.L().Warn("baseline scorer produced out-of-range scores",
			zap.Int("cow_id", window.CowID),
			zap.Strings("warnings", warnings),
		)
	}
	return risk, nil
}

func (b *Baseline) Attribute(ctx context.Context, window Window, risk model.RiskVector, graph *model.ContactGraph) (*model.Attribution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	attr := &model.Attribution{TopFeature: "milk_yield_kg"}

	// Health events outrank yield as the explanatory signal when present.
	if event := latestEvent(window.Observations); event != model.HealthEventNone && event != "" {
		attr.TopFeature = "health_event"
		attr.FeatureDelta = 1.0
	} else if drop := yieldDrop(window.Observations); drop > 0 {
		delta := -drop
		if delta < -1 {
			delta = -1
		}
		attr.FeatureDelta = delta
	}

	if graph != nil {
		attr.TopEdge = graph.TopEdgeFor(window.CowID)
	}
	return attr, nil
}

// yieldDrop returns the fractional decline of the newest yield reading
// against the mean of the rest of the window, or 0 when there is not
// enough data or yield rose.
func yieldDrop(observations []model.Observation) float64 {
	var (
		latest   *float64
		sum      float64
		baseline int
	)
	for _, obs := range observations {
		if obs.YieldKg == nil {
			continue
		}
		if latest == nil {
			latest = obs.YieldKg
			continue
		}
		sum += *obs.YieldKg
		baseline++
	}
	if latest == nil || baseline == 0 {
		return 0
	}
	mean := sum / float64(baseline)
	if mean <= 0 || *latest >= mean {
		return 0
	}
	return (mean - *latest) / mean
}

func latestEvent(observations []model.Observation) model.HealthEvent {
	for _, obs := range observations {
		if obs.HealthEvent != model.HealthEventNone && obs.HealthEvent != "" {
			return obs.HealthEvent
		}
	}
	return model.HealthEventNone
}
