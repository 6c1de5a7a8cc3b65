package alert

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tauron-farm/tauron/internal/resilience"
	"github.com/tauron-farm/tauron/pkg/anthropic"
	"github.com/tauron-farm/tauron/pkg/ollama"
)

// Generator produces alert text from structured input. Implementations may
// fail; the Chain decides what happens next.
type Generator interface {
	Name() string
	Available() bool
	Generate(ctx context.Context, in Input) (string, error)
}

// Params tunes the LLM-backed generators.
type Params struct {
	MaxWords      int
	Temperature   float64
	MaxTokens     int
	RatePerSecond float64
}

func (p Params) limiter() *rate.Limiter {
	if p.RatePerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(p.RatePerSecond), 1)
}

// OllamaGenerator is the primary backend: a local daemon, so health data
// never leaves the farm.
type OllamaGenerator struct {
	client  ollama.Client
	params  Params
	limiter *rate.Limiter
}

// NewOllamaGenerator wraps an Ollama client as a Generator.
func NewOllamaGenerator(client ollama.Client, params Params) *OllamaGenerator {
	return &OllamaGenerator{client: client, params: params, limiter: params.limiter()}
}

func (g *OllamaGenerator) Name() string { return "ollama" }

func (g *OllamaGenerator) Available() bool { return g.client != nil }

func (g *OllamaGenerator) Generate(ctx context.Context, in Input) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "alert: ollama rate limit wait")
	}

	resp, err := resilience.DoVal(ctx, resilience.DefaultRetryConfig(), func(ctx context.Context) (*ollama.GenerateResponse, error) {
		return g.client.Generate(ctx, ollama.GenerateRequest{
			System: SystemPrompt(g.params.MaxWords),
			Prompt: BuildPrompt(in),
			Stream: false,
			Options: &ollama.Options{
				Temperature: g.params.Temperature,
				NumPredict:  g.params.MaxTokens,
			},
		})
	})
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(resp.Response)
	if text == "" {
		return "", eris.New("alert: ollama returned empty response")
	}
	return text, nil
}

// AnthropicGenerator is the cloud fallback, used only when the local
// backend is down or unconfigured.
type AnthropicGenerator struct {
	client  anthropic.Client
	model   string
	params  Params
	limiter *rate.Limiter
}

// NewAnthropicGenerator wraps an Anthropic client as a Generator.
func NewAnthropicGenerator(client anthropic.Client, model string, params Params) *AnthropicGenerator {
	return &AnthropicGenerator{client: client, model: model, params: params, limiter: params.limiter()}
}

func (g *AnthropicGenerator) Name() string { return "anthropic" }

func (g *AnthropicGenerator) Available() bool { return g.client != nil }

func (g *AnthropicGenerator) Generate(ctx context.Context, in Input) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "alert: anthropic rate limit wait")
	}

	temp := g.params.Temperature
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       g.model,
		MaxTokens:   int64(g.params.MaxTokens),
		System:      SystemPrompt(g.params.MaxWords),
		Messages:    []anthropic.Message{{Role: "user", Content: BuildPrompt(in)}},
		Temperature: &temp,
	})
	if err != nil {
		return "", err
	}
	resp.Usage.LogUsage(g.model, "alert")
	if resp.StopReason == "max_tokens" {
		zap.L().Warn("alert: anthropic output truncated at token limit",
			zap.String("model", g.model),
		)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", eris.New("alert: anthropic returned empty response")
	}
	return text, nil
}
