package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tauron-farm/tauron/internal/alert"
	"github.com/tauron-farm/tauron/internal/api"
	"github.com/tauron-farm/tauron/internal/config"
	"github.com/tauron-farm/tauron/internal/herd"
	"github.com/tauron-farm/tauron/internal/ingest"
	"github.com/tauron-farm/tauron/internal/scoring"
	"github.com/tauron-farm/tauron/internal/store"
	"github.com/tauron-farm/tauron/internal/voice"
	"github.com/tauron-farm/tauron/pkg/anthropic"
	"github.com/tauron-farm/tauron/pkg/ollama"
)

// farmEnv holds the wired application components shared by the serve and
// ingest commands.
type farmEnv struct {
	Log       store.Store
	Herd      *herd.Store
	Gateway   *ingest.Gateway
	Chain     *alert.Chain
	Extractor *voice.Extractor
	Tier      api.Tier
}

func (e *farmEnv) Router(allowedOrigins []string) http.Handler {
	return api.New(e.Herd, e.Gateway, e.Chain, e.Extractor, e.Tier).Router(allowedOrigins)
}

func (e *farmEnv) Close() {
	if err := e.Log.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

func initFarm(ctx context.Context) (*farmEnv, error) {
	log, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := log.Migrate(ctx); err != nil {
		log.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	h := herd.New(log)
	if err := replayLog(ctx, h); err != nil {
		log.Close()
		return nil, err
	}

	baseline := scoring.NewBaseline()
	gateway := ingest.New(h, baseline, baseline, ingest.Options{
		ScoreTimeout:  time.Duration(cfg.Scoring.TimeoutSecs) * time.Second,
		MaxConcurrent: cfg.Ingest.MaxConcurrentRows,
	})

	params := alert.Params{
		MaxWords:      cfg.Alert.MaxWords,
		Temperature:   cfg.Alert.Temperature,
		MaxTokens:     cfg.Alert.MaxTokens,
		RatePerSecond: cfg.Alert.RatePerSecond,
	}

	var generators []alert.Generator
	var voiceBackends []voice.Backend
	primaryLLM := "template"

	if cfg.Ollama.Enabled {
		client := ollama.NewClient(
			ollama.WithBaseURL(cfg.Ollama.BaseURL),
			ollama.WithModel(cfg.Ollama.Model),
		)
		generators = append(generators, alert.NewOllamaGenerator(client, params))
		voiceBackends = append(voiceBackends, &voice.OllamaBackend{
			Client:      client,
			Temperature: cfg.Alert.Temperature,
			MaxTokens:   cfg.Alert.MaxTokens,
		})
		primaryLLM = "ollama"
	}
	if cfg.Anthropic.Key != "" {
		client := anthropic.NewClient(cfg.Anthropic.Key)
		generators = append(generators, alert.NewAnthropicGenerator(client, cfg.Anthropic.Model, params))
		voiceBackends = append(voiceBackends, &voice.AnthropicBackend{
			Client:      client,
			Model:       cfg.Anthropic.Model,
			Temperature: cfg.Alert.Temperature,
			MaxTokens:   cfg.Alert.MaxTokens,
		})
		if primaryLLM == "template" {
			primaryLLM = "anthropic"
		}
	}

	timeout := time.Duration(cfg.Alert.TimeoutSecs) * time.Second

	return &farmEnv{
		Log:       log,
		Herd:      h,
		Gateway:   gateway,
		Chain:     alert.NewChain(timeout, cfg.Alert.MaxWords, generators...),
		Extractor: voice.NewExtractor(timeout, voiceBackends...),
		Tier: api.Tier{
			Tier:           1,
			Name:           "on-farm",
			ScoringBackend: "baseline",
			PrimaryLLM:     primaryLLM,
		},
	}, nil
}

func openStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case "memory", "":
		return store.NewMemory(), nil
	case "sqlite":
		s, err := store.NewSQLite(sc.DatabaseURL)
		if err != nil {
			return nil, eris.Wrap(err, "open sqlite store")
		}
		return s, nil
	case "postgres":
		s, err := store.NewPostgres(ctx, sc.DatabaseURL)
		if err != nil {
			return nil, eris.Wrap(err, "open postgres store")
		}
		return s, nil
	default:
		return nil, eris.Errorf("unknown store driver %q", sc.Driver)
	}
}

// replayLog rebuilds the in-memory herd state from the persisted
// observation log, oldest first, so a restart does not forget the herd.
// Risk state is not replayed; cows rescore on their next observation.
func replayLog(ctx context.Context, h *herd.Store) error {
	observations, err := h.Observations(ctx, store.ObservationFilter{})
	if err != nil {
		return eris.Wrap(err, "replay observation log")
	}
	for i := len(observations) - 1; i >= 0; i-- {
		obs := observations[i]
		h.UpsertCow(obs.CowID, obs.Pen, "")
	}
	if len(observations) > 0 {
		zap.L().Info("replayed observation log",
			zap.Int("observations", len(observations)),
		)
	}
	return nil
}
