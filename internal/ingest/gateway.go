// Package ingest validates and applies observation records, driving the
// score-and-update path that keeps herd state and prediction history
// consistent as new data arrives.
package ingest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tauron-farm/tauron/internal/herd"
	"github.com/tauron-farm/tauron/internal/model"
	"github.com/tauron-farm/tauron/internal/scoring"
	"github.com/tauron-farm/tauron/internal/store"
)

// ValidationError describes a rejected record. The API layer maps it to a
// 400; everything else on the apply path is recoverable.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Record is one inbound observation before validation. Row carries the
// record's 1-based position in its source file, so batch error reports point
// at the row the farmer actually typed even when earlier rows were dropped
// at parse time; zero means positional numbering.
type Record struct {
	Row         int      `json:"-"`
	CowID       int      `json:"cow_id"`
	YieldKg     *float64 `json:"yield_kg,omitempty"`
	Pen         string   `json:"pen,omitempty"`
	Bunk        string   `json:"bunk,omitempty"`
	HealthEvent string   `json:"health_event,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	Source      string   `json:"source,omitempty"`
}

// Result reports one applied record: the stored observation, the prediction
// appended for it (nil when scoring was unavailable), the cow's state after
// the apply, and any data-quality warnings picked up along the way.
type Result struct {
	Observation *model.Observation `json:"observation"`
	Prediction  *model.Prediction  `json:"prediction,omitempty"`
	Cow         model.Cow          `json:"cow"`
	Warnings    []string           `json:"warnings,omitempty"`
}

// RowError locates a rejected batch row. Row numbers are 1-based over the
// source file's data rows when the records came from a parser, otherwise
// over the submitted records.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// BatchResult summarises a partial-apply batch: valid rows land even when
// others fail.
type BatchResult struct {
	RowsTotal   int        `json:"rows_total"`
	RowsApplied int        `json:"rows_applied"`
	Errors      []RowError `json:"errors"`
	CowsUpdated []int      `json:"cows_updated"`
}

// Options tunes the gateway.
type Options struct {
	ScoreTimeout  time.Duration // per-record scoring budget; default 10s
	WindowSize    int           // observations fed to the scorer; default 64
	MaxConcurrent int           // batch worker limit; default 4
}

func (o Options) withDefaults() Options {
	if o.ScoreTimeout <= 0 {
		o.ScoreTimeout = 10 * time.Second
	}
	if o.WindowSize <= 0 {
		o.WindowSize = 64
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 4
	}
	return o
}

// Gateway applies observation records against the herd store.
type Gateway struct {
	herd       *herd.Store
	scorer     scoring.Scorer
	attributor scoring.Attributor
	opts       Options
}

// New creates a Gateway. The scorer and attributor may be the local
// baseline or a remote model client; the gateway only sees the interfaces.
func New(h *herd.Store, scorer scoring.Scorer, attributor scoring.Attributor, opts Options) *Gateway {
	return &Gateway{
		herd:       h,
		scorer:     scorer,
		attributor: attributor,
		opts:       opts.withDefaults(),
	}
}

// Validate checks a record without applying it.
func Validate(rec Record) error {
	if rec.CowID == 0 {
		return validationErrorf("missing cow_id")
	}
	if rec.CowID < 0 {
		return validationErrorf("cow_id must be positive, got %d", rec.CowID)
	}
	if rec.YieldKg != nil && *rec.YieldKg < 0 {
		return validationErrorf("yield_kg must be non-negative, got %g", *rec.YieldKg)
	}
	if !model.ValidHealthEvent(rec.HealthEvent) {
		return validationErrorf("unknown health_event %q", rec.HealthEvent)
	}
	return nil
}

// Apply validates and applies a single record. Identical re-submissions are
// deliberately not deduplicated; every accepted call is a new log entry.
//
// Scoring failure is not an apply failure: the observation still lands, the
// cow keeps its prior risk state, and the result carries a warning. The
// per-cow gate serialises concurrent applies for the same cow; the
// herd-wide lock is never held across the scorer call.
func (g *Gateway) Apply(ctx context.Context, rec Record) (*Result, error) {
	if err := Validate(rec); err != nil {
		return nil, err
	}

	obs := model.Observation{
		CowID:       rec.CowID,
		YieldKg:     rec.YieldKg,
		Pen:         rec.Pen,
		HealthEvent: model.HealthEvent(rec.HealthEvent),
		Notes:       rec.Notes,
		Source:      model.Source(rec.Source),
	}
	if obs.HealthEvent == "" {
		obs.HealthEvent = model.HealthEventNone
	}
	if obs.Source == "" {
		obs.Source = model.SourceManual
	}

	gate := g.herd.Gate(rec.CowID)
	gate.Lock()
	defer gate.Unlock()

	// Once the observation is accepted the rest of the apply must finish
	// even if the client goes away; a logged observation with no matching
	// prediction would leave the history inconsistent.
	commitCtx := context.WithoutCancel(ctx)

	applied, err := g.herd.AppendObservation(commitCtx, obs)
	if err != nil {
		return nil, err
	}
	if rec.Bunk != "" {
		g.herd.UpsertCow(rec.CowID, rec.Pen, rec.Bunk)
	}

	result := &Result{Observation: applied}

	risk, attr, warnings := g.score(ctx, rec.CowID)
	result.Warnings = warnings
	if risk == nil {
		cow, _ := g.herd.GetCow(rec.CowID)
		result.Cow = cow
		return result, nil
	}

	clampWarnings, err := g.herd.ApplyScore(rec.CowID, risk, attr)
	if err != nil {
		return nil, err
	}
	result.Warnings = append(result.Warnings, clampWarnings...)

	cow, _ := g.herd.GetCow(rec.CowID)
	result.Cow = cow

	score, _ := cow.Risk.Max()
	pred, err := g.herd.AppendPrediction(commitCtx, model.Prediction{
		CowID:           rec.CowID,
		RiskScore:       score,
		DominantDisease: cow.Risk.Dominant(),
		Status:          cow.Status(),
	})
	if err != nil {
		return nil, err
	}
	result.Prediction = pred

	return result, nil
}

// score runs the model and explainer with a bounded timeout. A nil risk
// vector means scoring was unavailable; warnings carry the detail.
func (g *Gateway) score(ctx context.Context, cowID int) (model.RiskVector, *model.Attribution, []string) {
	sCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.opts.ScoreTimeout)
	defer cancel()

	window, err := g.window(sCtx, cowID)
	if err != nil {
		zap.L().Warn("ingest: observation window unavailable",
			zap.Int("cow_id", cowID),
			zap.Error(err),
		)
		return nil, nil, []string{"scoring skipped: observation window unavailable"}
	}

	graph := g.herd.Graph()

	risk, err := g.scorer.Score(sCtx, window, graph)
	if err != nil {
		zap.L().Warn("ingest: scoring unavailable, keeping prior risk state",
			zap.Int("cow_id", cowID),
			zap.Error(err),
		)
		return nil, nil, []string{"scoring unavailable: prior risk state preserved"}
	}

	attr, err := g.attributor.Attribute(sCtx, window, risk, graph)
	if err != nil {
		zap.L().Warn("ingest: attribution unavailable",
			zap.Int("cow_id", cowID),
			zap.Error(err),
		)
		return risk, nil, []string{"attribution unavailable"}
	}

	return risk, attr, nil
}

func (g *Gateway) window(ctx context.Context, cowID int) (scoring.Window, error) {
	observations, err := g.herd.Observations(ctx, store.ObservationFilter{
		CowID: cowID,
		Limit: g.opts.WindowSize,
	})
	if err != nil {
		return scoring.Window{}, err
	}
	return scoring.Window{CowID: cowID, Observations: observations}, nil
}

// ApplyBatch applies records independently with a bounded worker pool.
// Malformed rows are skipped and reported; valid rows always land. There is
// no cross-row rollback.
func (g *Gateway) ApplyBatch(ctx context.Context, records []Record) *BatchResult {
	result := &BatchResult{RowsTotal: len(records)}

	var (
		mu      sync.Mutex
		updated = make(map[int]struct{})
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.MaxConcurrent)

	for i, rec := range records {
		row := rec.Row
		if row == 0 {
			row = i + 1
		}
		eg.Go(func() error {
			res, err := g.Apply(egCtx, rec)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, RowError{Row: row, Reason: err.Error()})
				return nil
			}
			result.RowsApplied++
			updated[res.Observation.CowID] = struct{}{}
			return nil
		})
	}

	_ = eg.Wait()

	sort.Slice(result.Errors, func(a, b int) bool {
		return result.Errors[a].Row < result.Errors[b].Row
	})
	for id := range updated {
		result.CowsUpdated = append(result.CowsUpdated, id)
	}
	sort.Ints(result.CowsUpdated)

	zap.L().Info("ingest: batch applied",
		zap.Int("rows_total", result.RowsTotal),
		zap.Int("rows_applied", result.RowsApplied),
		zap.Int("rows_rejected", len(result.Errors)),
	)

	return result
}
