package alert

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const defaultTimeout = 5 * time.Second

// Chain tries generation backends in priority order and falls back to the
// deterministic template when every backend fails. Compose never returns an
// empty string and never fails, so the API boundary can always serve alert
// text with a 200.
type Chain struct {
	generators []Generator
	timeout    time.Duration
	maxWords   int
}

// NewChain creates a Chain. Generators are tried in the order given; each
// gets its own timeout so one hung backend cannot starve the rest.
func NewChain(timeout time.Duration, maxWords int, generators ...Generator) *Chain {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Chain{
		generators: generators,
		timeout:    timeout,
		maxWords:   maxWords,
	}
}

// Compose generates alert text for the given input.
func (c *Chain) Compose(ctx context.Context, in Input) string {
	for _, g := range c.generators {
		if !g.Available() {
			continue
		}

		gCtx, cancel := context.WithTimeout(ctx, c.timeout)
		text, err := g.Generate(gCtx, in)
		cancel()

		if err == nil {
			if text = strings.TrimSpace(text); text != "" {
				zap.L().Info("alert: generated",
					zap.String("generator", g.Name()),
					zap.Int("cow_id", in.CowID),
				)
				return CapWords(text, c.maxWords)
			}
			err = errEmptyOutput
		}

		zap.L().Warn("alert: generator failed, trying next",
			zap.String("generator", g.Name()),
			zap.Int("cow_id", in.CowID),
			zap.Error(err),
		)
	}

	zap.L().Warn("alert: all generators failed, using template",
		zap.Int("cow_id", in.CowID),
	)
	return CapWords(Fallback(in), c.maxWords)
}

var errEmptyOutput = eris.New("alert: generator returned empty output")
