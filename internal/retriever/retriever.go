// File path: internal/retriever/retriever.go
package retriever

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/issuepilot-ai/issuepilot/internal/common"
	"github.com/issuepilot-ai/issuepilot/internal/common/telemetry"
	"github.com/issuepilot-ai/issuepilot/internal/vector"
)

// Retriever merges two lookup paths over the chunk index: bounded semantic
// search and unbounded exact issue-key fetch.
type Retriever struct {
	store      vector.Store
	cfg        Config
	keyPattern *regexp.Regexp
}

// Memory is one chunk of per-issue context for the conversational surface.
// A fetch failure is reported inline through Document instead of an error.
type Memory struct {
	Document string                 `json:"document"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

func New(store vector.Store, cfg Config) *Retriever {
	cfg.applyDefaults()
	pattern := regexp.MustCompile(regexp.QuoteMeta(strings.ToUpper(cfg.ProjectPrefix)) + `-\d+`)
	return &Retriever{store: store, cfg: cfg, keyPattern: pattern}
}

// Retrieve runs semantic search first and appends exact-key chunks second.
// Semantic hits keep their ranked order and are never displaced; exact-key
// chunks are fetched without a result cap and appended only when their id has
// not been seen. An empty result from either path contributes nothing.
func (r *Retriever) Retrieve(ctx context.Context, query string, limit int) ([]vector.Result, error) {
	if limit <= 0 {
		limit = r.cfg.DefaultLimit
	}
	logger := common.Logger()

	results, err := r.store.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}

	merged := make([]vector.Result, 0, len(results))
	seen := make(map[string]struct{}, len(results))
	for _, result := range results {
		if _, ok := seen[result.ID]; ok {
			continue
		}
		seen[result.ID] = struct{}{}
		merged = append(merged, result)
	}

	keys := r.IssueKeys(query)
	if len(keys) > 0 {
		logger.Debug("retriever: detected issue keys", "keys", keys)
	}
	for _, key := range keys {
		direct, err := r.store.Get(ctx, map[string]interface{}{"issue_key": key})
		if err != nil {
			return nil, fmt.Errorf("direct lookup %s: %w", key, err)
		}
		telemetry.RecordDirectLookup(len(direct))
		for _, result := range direct {
			if _, ok := seen[result.ID]; ok {
				continue
			}
			seen[result.ID] = struct{}{}
			merged = append(merged, result)
		}
	}

	logger.Debug("retriever: merged results", "semantic", len(results), "total", len(merged))
	return merged, nil
}

// IssueKeys extracts the distinct project issue keys mentioned in the query,
// in first-occurrence order. Matching is case-insensitive.
func (r *Retriever) IssueKeys(query string) []string {
	matches := r.keyPattern.FindAllString(strings.ToUpper(query), -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	var keys []string
	for _, match := range matches {
		if _, ok := seen[match]; ok {
			continue
		}
		seen[match] = struct{}{}
		keys = append(keys, match)
	}
	return keys
}

// IssueMemory fetches every chunk stored for one issue. Store failures are
// converted to a single descriptive entry because this path feeds a
// conversational surface where a degraded message beats a crash.
func (r *Retriever) IssueMemory(ctx context.Context, issueKey string) []Memory {
	results, err := r.store.Get(ctx, map[string]interface{}{"issue_key": issueKey})
	if err != nil {
		common.Logger().Warn("retriever: issue memory fetch failed", "issue_key", issueKey, "error", err)
		return []Memory{{Document: fmt.Sprintf("Error retrieving memory: %v", err)}}
	}
	if len(results) == 0 {
		return nil
	}
	telemetry.RecordDirectLookup(len(results))
	memories := make([]Memory, 0, len(results))
	for _, result := range results {
		memories = append(memories, Memory{Document: result.Document, Metadata: result.Metadata})
	}
	return memories
}
