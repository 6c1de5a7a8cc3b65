// Package api is the HTTP/JSON boundary: read-only projections over the
// herd store plus the ingest and explanation entry points. Handlers map
// internal errors onto the response taxonomy; scoring and generation
// failures are recovered upstream and never surface as 5xx here.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tauron-farm/tauron/internal/alert"
	"github.com/tauron-farm/tauron/internal/herd"
	"github.com/tauron-farm/tauron/internal/ingest"
	"github.com/tauron-farm/tauron/internal/voice"
)

// Tier is the static deployment metadata served by /api/tier: which data
// tier the farm is on and which backends this process is wired to.
type Tier struct {
	Tier           int    `json:"tier"`
	Name           string `json:"name"`
	ScoringBackend string `json:"scoring_backend"`
	PrimaryLLM     string `json:"primary_llm"`
}

// Server bundles the handler dependencies.
type Server struct {
	herd      *herd.Store
	gateway   *ingest.Gateway
	chain     *alert.Chain
	extractor *voice.Extractor
	tier      Tier
}

// New creates a Server.
func New(h *herd.Store, gateway *ingest.Gateway, chain *alert.Chain, extractor *voice.Extractor, tier Tier) *Server {
	return &Server{
		herd:      h,
		gateway:   gateway,
		chain:     chain,
		extractor: extractor,
		tier:      tier,
	}
}

// Router assembles the route table. allowedOrigins defaults open for local
// development; production deployments restrict it via config.
func (s *Server) Router(allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/herd", s.handleHerd)
	r.Get("/explain/{cowID}", s.handleExplain)

	r.Route("/api", func(r chi.Router) {
		r.Post("/ingest", s.handleIngest)
		r.Post("/ingest/csv", s.handleIngestCSV)
		r.Post("/voice", s.handleVoice)
		r.Get("/history", s.handleHistory)
		r.Post("/history/{predictionID}/outcome", s.handleOutcome)
		r.Get("/impact", s.handleImpact)
		r.Get("/tier", s.handleTier)
		r.Get("/logs", s.handleLogs)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTier(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.tier)
}
