// File path: internal/api/handlers.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/issuepilot-ai/issuepilot/internal/common"
	"github.com/issuepilot-ai/issuepilot/internal/jira"
	"github.com/issuepilot-ai/issuepilot/internal/vector"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "ok",
		"vector_available": s.store != nil && s.store.Available(),
		"collection":       s.store.Collection(),
	})
}

type ingestRequest struct {
	Dir   string `json:"dir"`
	Force bool   `json:"force"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req ingestRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
			return
		}
	}
	dir := strings.TrimSpace(req.Dir)
	if dir == "" {
		dir = s.cfg.IssueDir
	}
	source, err := jira.NewFileSource(dir)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	logger.Info("api: ingest request", "dir", dir, "force", req.Force)
	report, err := s.ingestor.Run(r.Context(), source, req.Force)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// searchResult flattens a retrieved chunk for the wire. Source is "semantic"
// for ranked hits and "exact" for key-lookup chunks.
type searchResult struct {
	ID        string  `json:"id"`
	IssueKey  string  `json:"issue_key"`
	ChunkType string  `json:"chunk_type"`
	Score     float32 `json:"score"`
	Source    string  `json:"source"`
	Document  string  `json:"document"`
}

func toSearchResults(results []vector.Result) []searchResult {
	out := make([]searchResult, 0, len(results))
	for _, result := range results {
		issueKey, _ := result.Metadata["issue_key"].(string)
		chunkType, _ := result.Metadata["chunk_type"].(string)
		source := "semantic"
		if result.Score == 0 {
			source = "exact"
		}
		out = append(out, searchResult{
			ID:        result.ID,
			IssueKey:  issueKey,
			ChunkType: chunkType,
			Score:     result.Score,
			Source:    source,
			Document:  result.Document,
		})
	}
	return out
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	query := r.URL.Query().Get("q")
	if query == "" {
		logger.Warn("api: search missing query parameter")
		writeError(w, http.StatusBadRequest, fmt.Errorf("missing q parameter"))
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	logger.Info("api: search request", "query", query, "limit", limit)
	results, err := s.retriever.Retrieve(r.Context(), query, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": toSearchResults(results),
	})
}

type askRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, errors.New("query required"))
		return
	}
	logger.Info("api: ask request", "query", req.Query, "limit", req.Limit)
	results, err := s.retriever.Retrieve(r.Context(), req.Query, req.Limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	answer, err := s.synth.Answer(r.Context(), req.Query, results)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"answer":  answer,
		"sources": toSearchResults(results),
	})
}

func (s *Server) handleIssues(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("catalog not configured"))
		return
	}
	issues, err := s.catalog.ListIssues(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"issues": issues})
}

func (s *Server) handleIssueMemory(w http.ResponseWriter, r *http.Request) {
	key := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "key")))
	if key == "" {
		writeError(w, http.StatusBadRequest, errors.New("issue key required"))
		return
	}
	memories := s.retriever.IssueMemory(r.Context(), key)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"issue_key": key,
		"memories":  memories,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("catalog not configured"))
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	runs, err := s.catalog.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"logs": common.LogEntries(),
	})
}
