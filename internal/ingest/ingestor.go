// File path: internal/ingest/ingestor.go
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/issuepilot-ai/issuepilot/internal/catalog"
	"github.com/issuepilot-ai/issuepilot/internal/chunk"
	"github.com/issuepilot-ai/issuepilot/internal/common"
	"github.com/issuepilot-ai/issuepilot/internal/common/telemetry"
	"github.com/issuepilot-ai/issuepilot/internal/jira"
	"github.com/issuepilot-ai/issuepilot/internal/vector"
)

// Ingestor drives the issue-to-index pipeline: load issues, generate chunks,
// upsert them, and track per-issue state in the catalog. The catalog is
// optional; without it every issue is re-ingested on every run.
type Ingestor struct {
	store   vector.Store
	catalog *catalog.Store
}

// Report summarizes one ingestion batch. Failed lists the issue keys whose
// upsert failed; those issues are skipped, not fatal to the batch.
type Report struct {
	RunID   string   `json:"run_id,omitempty"`
	Issues  int      `json:"issues"`
	Chunks  int      `json:"chunks"`
	Skipped int      `json:"skipped"`
	Failed  []string `json:"failed,omitempty"`
}

func New(store vector.Store, cat *catalog.Store) *Ingestor {
	return &Ingestor{store: store, catalog: cat}
}

// Run ingests every issue from the source. Unchanged issues (same source
// fingerprint as the last run) are skipped unless force is set. A failing
// issue is logged with its key and counted, and the batch continues.
// Chunks are upserted by id; chunk types an issue no longer produces are
// left in place from earlier runs.
func (ing *Ingestor) Run(ctx context.Context, source jira.Source, force bool) (Report, error) {
	logger := common.Logger()
	report := Report{}

	issues, err := source.Issues(ctx)
	if err != nil {
		return report, fmt.Errorf("load issues: %w", err)
	}

	runID := ""
	if ing.catalog != nil {
		runID, err = ing.catalog.BeginRun(ctx, source.Name())
		if err != nil {
			return report, err
		}
		report.RunID = runID
	}

	for _, issue := range issues {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		fingerprint := issueFingerprint(issue)
		if !force && ing.catalog != nil {
			stored, err := ing.catalog.Fingerprint(ctx, issue.Key)
			if err != nil {
				logger.Warn("ingest: fingerprint lookup failed", "issue_key", issue.Key, "error", err)
			} else if stored == fingerprint {
				report.Skipped++
				logger.Debug("ingest: issue unchanged, skipping", "issue_key", issue.Key)
				continue
			}
		}

		chunks := chunk.Generate(issue)
		if err := ing.store.Upsert(ctx, chunks); err != nil {
			logger.Error("ingest: upsert failed", "issue_key", issue.Key, "error", err)
			report.Failed = append(report.Failed, issue.Key)
			telemetry.RecordIngest(0, true)
			continue
		}
		report.Issues++
		report.Chunks += len(chunks)
		telemetry.RecordIngest(len(chunks), false)

		if ing.catalog != nil {
			state := catalog.IssueState{
				IssueKey:    issue.Key,
				Summary:     issue.Fields.Summary,
				IssueType:   issue.Fields.IssueTypeName(),
				Status:      issue.Fields.StatusName(),
				Fingerprint: fingerprint,
				ChunkCount:  len(chunks),
				LastRunID:   runID,
			}
			if err := ing.catalog.UpsertIssue(ctx, state); err != nil {
				logger.Warn("ingest: catalog update failed", "issue_key", issue.Key, "error", err)
			}
		}
	}

	if ing.catalog != nil {
		if err := ing.catalog.FinishRun(ctx, runID, report.Issues, report.Chunks, len(report.Failed)); err != nil {
			logger.Warn("ingest: run bookkeeping failed", "run_id", runID, "error", err)
		}
	}

	logger.Info("ingest: batch complete",
		"issues", report.Issues,
		"chunks", report.Chunks,
		"skipped", report.Skipped,
		"failed", len(report.Failed))
	return report, nil
}

// issueFingerprint hashes the issue's full source payload, so any field
// change invalidates the skip.
func issueFingerprint(issue jira.Issue) string {
	data, err := json.Marshal(issue)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
