// File path: internal/api/server.go
package api

import (
	"encoding/json"
	"expvar"
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/issuepilot-ai/issuepilot/internal/catalog"
	"github.com/issuepilot-ai/issuepilot/internal/common"
	"github.com/issuepilot-ai/issuepilot/internal/ingest"
	"github.com/issuepilot-ai/issuepilot/internal/retriever"
	"github.com/issuepilot-ai/issuepilot/internal/synthesis"
	"github.com/issuepilot-ai/issuepilot/internal/vector"
)

// Server exposes ingestion, retrieval, and answer synthesis over HTTP.
type Server struct {
	router    chi.Router
	store     vector.Store
	retriever *retriever.Retriever
	synth     *synthesis.Synthesizer
	catalog   *catalog.Store
	ingestor  *ingest.Ingestor
	cfg       Config
}

// Config controls the API server's defaults.
type Config struct {
	Addr     string
	IssueDir string
}

// DefaultConfig returns the standard configuration used when no overrides
// are provided.
func DefaultConfig() Config {
	return Config{
		Addr:     ":8080",
		IssueDir: "exports",
	}
}

// Merge overlays non-empty override fields onto the base configuration.
func (c Config) Merge(override Config) Config {
	result := c
	if strings.TrimSpace(override.Addr) != "" {
		result.Addr = strings.TrimSpace(override.Addr)
	}
	if strings.TrimSpace(override.IssueDir) != "" {
		result.IssueDir = strings.TrimSpace(override.IssueDir)
	}
	return result
}

// NewServer wires the retrieval pipeline behind the HTTP routes. The catalog
// may be nil; catalog-backed endpoints then report unavailability.
func NewServer(store vector.Store, retr *retriever.Retriever, synth *synthesis.Synthesizer, cat *catalog.Store, cfg *Config) *Server {
	configuration := DefaultConfig()
	if cfg != nil {
		configuration = configuration.Merge(*cfg)
	}
	common.Logger().Info("api: building server",
		"addr", configuration.Addr,
		"vector_available", store != nil && store.Available(),
		"catalog_available", cat != nil,
	)
	srv := &Server{
		router:    chi.NewRouter(),
		store:     store,
		retriever: retr,
		synth:     synth,
		catalog:   cat,
		ingestor:  ingest.New(store, cat),
		cfg:       configuration,
	}
	srv.routes()
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr
}

func (s *Server) routes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Post("/api/ingest", s.handleIngest)
	s.router.Get("/api/search", s.handleSearch)
	s.router.Post("/api/ask", s.handleAsk)
	s.router.Get("/api/issues", s.handleIssues)
	s.router.Get("/api/issues/{key}/memory", s.handleIssueMemory)
	s.router.Get("/api/runs", s.handleRuns)
	s.router.Get("/api/logs", s.handleLogs)
	s.router.Handle("/debug/vars", expvar.Handler())
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
