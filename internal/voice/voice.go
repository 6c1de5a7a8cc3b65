// Package voice turns a farmer's spoken transcript into structured
// observation records via LLM extraction, with a deterministic keyword
// parser as the fallback so dictation keeps working offline.
package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tauron-farm/tauron/internal/ingest"
	"github.com/tauron-farm/tauron/internal/model"
	"github.com/tauron-farm/tauron/pkg/anthropic"
	"github.com/tauron-farm/tauron/pkg/ollama"
)

// Extraction is the structured result of parsing one transcript.
// Confidence is self-reported by the extraction backend, not independently
// validated; the keyword fallback always reports 0.25.
type Extraction struct {
	Cows       []ingest.Record `json:"cows"`
	Confidence float64         `json:"confidence"`
}

const fallbackConfidence = 0.25

const systemPrompt = "You extract structured dairy herd observations from a farmer's spoken transcript. " +
	"Respond with ONLY a JSON object, no prose: " +
	`{"cows":[{"cow_id":<int>,"yield_kg":<number or null>,"pen":<string or null>,` +
	`"health_event":<"none"|"off_feed"|"lame"|"mastitis"|"calving"|"other">,"notes":<string or null>}],` +
	`"confidence":<0..1>}. ` +
	"One entry per cow mentioned. Omit cows with no usable number."

// Backend is one transcript-extraction implementation.
type Backend interface {
	Name() string
	Available() bool
	Extract(ctx context.Context, transcript string) (*Extraction, error)
}

// Extractor tries backends in priority order and falls back to the keyword
// parser. Extract never fails; worst case it returns the keyword parse of
// the transcript.
type Extractor struct {
	backends []Backend
	timeout  time.Duration
}

// NewExtractor creates an Extractor over the given backends.
func NewExtractor(timeout time.Duration, backends ...Backend) *Extractor {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Extractor{backends: backends, timeout: timeout}
}

// Extract parses a transcript into observation records.
func (e *Extractor) Extract(ctx context.Context, transcript string) *Extraction {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return &Extraction{Cows: []ingest.Record{}, Confidence: 0}
	}

	for _, b := range e.backends {
		if !b.Available() {
			continue
		}

		bCtx, cancel := context.WithTimeout(ctx, e.timeout)
		ext, err := b.Extract(bCtx, transcript)
		cancel()

		if err == nil && ext != nil && len(ext.Cows) > 0 {
			zap.L().Info("voice: transcript extracted",
				zap.String("backend", b.Name()),
				zap.Int("cows", len(ext.Cows)),
				zap.Float64("confidence", ext.Confidence),
			)
			return ext
		}
		zap.L().Warn("voice: extraction backend failed, trying next",
			zap.String("backend", b.Name()),
			zap.Error(err),
		)
	}

	zap.L().Warn("voice: all extraction backends failed, using keyword parser")
	return KeywordParse(transcript)
}

// parseExtraction decodes a backend's raw text output. Models wrap JSON in
// code fences or prose often enough that we cut out the outermost object
// before unmarshalling.
func parseExtraction(raw string) (*Extraction, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, eris.Errorf("voice: no JSON object in output %.80q", raw)
	}

	var ext Extraction
	if err := json.Unmarshal([]byte(raw[start:end+1]), &ext); err != nil {
		return nil, eris.Wrap(err, "voice: unmarshal extraction")
	}

	// Drop entries the ingest gateway would reject outright.
	kept := ext.Cows[:0]
	for _, rec := range ext.Cows {
		if rec.CowID <= 0 {
			continue
		}
		if !model.ValidHealthEvent(rec.HealthEvent) {
			rec.HealthEvent = string(model.HealthEventOther)
		}
		rec.Source = string(model.SourceVoice)
		kept = append(kept, rec)
	}
	ext.Cows = kept

	if ext.Confidence < 0 || ext.Confidence > 1 {
		return nil, eris.Errorf("voice: confidence %g out of range", ext.Confidence)
	}
	return &ext, nil
}

// OllamaBackend extracts via the local daemon.
type OllamaBackend struct {
	Client      ollama.Client
	Temperature float64
	MaxTokens   int
}

func (b *OllamaBackend) Name() string    { return "ollama" }
func (b *OllamaBackend) Available() bool { return b.Client != nil }

func (b *OllamaBackend) Extract(ctx context.Context, transcript string) (*Extraction, error) {
	resp, err := b.Client.Generate(ctx, ollama.GenerateRequest{
		System: systemPrompt,
		Prompt: fmt.Sprintf("Transcript: %q", transcript),
		Stream: false,
		Options: &ollama.Options{
			Temperature: b.Temperature,
			NumPredict:  b.MaxTokens,
		},
	})
	if err != nil {
		return nil, err
	}
	return parseExtraction(resp.Response)
}

// AnthropicBackend extracts via the Claude API.
type AnthropicBackend struct {
	Client      anthropic.Client
	Model       string
	Temperature float64
	MaxTokens   int
}

func (b *AnthropicBackend) Name() string    { return "anthropic" }
func (b *AnthropicBackend) Available() bool { return b.Client != nil }

func (b *AnthropicBackend) Extract(ctx context.Context, transcript string) (*Extraction, error) {
	temp := b.Temperature
	resp, err := b.Client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       b.Model,
		MaxTokens:   int64(b.MaxTokens),
		System:      systemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: fmt.Sprintf("Transcript: %q", transcript)}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, err
	}
	resp.Usage.LogUsage(b.Model, "voice")
	return parseExtraction(resp.Text())
}
