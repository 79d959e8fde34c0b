// File path: internal/catalog/store.go
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/issuepilot-ai/issuepilot/internal/common"
)

// Store records ingestion runs and per-issue state in SQLite. The issue
// fingerprints let re-ingestion skip issues whose source payload is
// unchanged.
type Store struct {
	db *sqlx.DB
}

// Run is one ingestion batch.
type Run struct {
	ID         string         `db:"id" json:"id"`
	Source     string         `db:"source" json:"source"`
	StartedAt  time.Time      `db:"started_at" json:"started_at"`
	FinishedAt sql.NullTime   `db:"finished_at" json:"finished_at,omitempty"`
	Issues     int            `db:"issues" json:"issues"`
	Chunks     int            `db:"chunks" json:"chunks"`
	Failures   int            `db:"failures" json:"failures"`
}

// IssueState is the catalog's view of one ingested issue.
type IssueState struct {
	IssueKey    string    `db:"issue_key" json:"issue_key"`
	Summary     string    `db:"summary" json:"summary"`
	IssueType   string    `db:"issue_type" json:"issue_type"`
	Status      string    `db:"status" json:"status"`
	Fingerprint string    `db:"fingerprint" json:"-"`
	ChunkCount  int       `db:"chunk_count" json:"chunk_count"`
	LastRunID   string    `db:"last_run_id" json:"last_run_id"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS ingest_runs (
    id          TEXT PRIMARY KEY,
    source      TEXT NOT NULL,
    started_at  TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    issues      INTEGER NOT NULL DEFAULT 0,
    chunks      INTEGER NOT NULL DEFAULT 0,
    failures    INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS issues (
    issue_key   TEXT PRIMARY KEY,
    summary     TEXT NOT NULL DEFAULT '',
    issue_type  TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL DEFAULT '',
    fingerprint TEXT NOT NULL DEFAULT '',
    chunk_count INTEGER NOT NULL DEFAULT 0,
    last_run_id TEXT NOT NULL DEFAULT '',
    updated_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_issues_status ON issues(status);
`

// Open constructs a Store at the given path, overriding the configured one
// when non-empty. The schema is migrated on open.
func Open(path string) (*Store, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		cfg.Path = trimmed
	}
	return OpenWithConfig(cfg)
}

func OpenWithConfig(cfg Config) (*Store, error) {
	cfg.applyDefaults()
	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve catalog path: %w", err)
	}
	busy := int(cfg.BusyTimeout / time.Millisecond)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", abs, busy)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.BusyTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping catalog: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}
	common.Logger().Info("catalog: opened", "path", abs)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun records the start of an ingestion batch and returns its id.
func (s *Store) BeginRun(ctx context.Context, source string) (string, error) {
	if s == nil || s.db == nil {
		return "", errors.New("catalog not initialised")
	}
	id := ulid.Make().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingest_runs (id, source, started_at) VALUES (?, ?, ?)`,
		id, source, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("record run start: %w", err)
	}
	return id, nil
}

// FinishRun stores the batch totals and the finish time.
func (s *Store) FinishRun(ctx context.Context, runID string, issues, chunks, failures int) error {
	if s == nil || s.db == nil {
		return errors.New("catalog not initialised")
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE ingest_runs SET finished_at = ?, issues = ?, chunks = ?, failures = ? WHERE id = ?`,
		time.Now().UTC(), issues, chunks, failures, runID)
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	return nil
}

// UpsertIssue overwrites the catalog row for one issue.
func (s *Store) UpsertIssue(ctx context.Context, state IssueState) error {
	if s == nil || s.db == nil {
		return errors.New("catalog not initialised")
	}
	state.UpdatedAt = time.Now().UTC()
	_, err := s.db.NamedExecContext(ctx, `
INSERT INTO issues (issue_key, summary, issue_type, status, fingerprint, chunk_count, last_run_id, updated_at)
VALUES (:issue_key, :summary, :issue_type, :status, :fingerprint, :chunk_count, :last_run_id, :updated_at)
ON CONFLICT(issue_key) DO UPDATE SET
    summary = excluded.summary,
    issue_type = excluded.issue_type,
    status = excluded.status,
    fingerprint = excluded.fingerprint,
    chunk_count = excluded.chunk_count,
    last_run_id = excluded.last_run_id,
    updated_at = excluded.updated_at`, state)
	if err != nil {
		return fmt.Errorf("upsert issue %s: %w", state.IssueKey, err)
	}
	return nil
}

// Fingerprint returns the stored source fingerprint for an issue, or "" when
// the issue has never been ingested.
func (s *Store) Fingerprint(ctx context.Context, issueKey string) (string, error) {
	if s == nil || s.db == nil {
		return "", errors.New("catalog not initialised")
	}
	var fingerprint string
	err := s.db.GetContext(ctx, &fingerprint, `SELECT fingerprint FROM issues WHERE issue_key = ?`, issueKey)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load fingerprint %s: %w", issueKey, err)
	}
	return fingerprint, nil
}

// ListIssues returns the catalog rows ordered by key.
func (s *Store) ListIssues(ctx context.Context) ([]IssueState, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("catalog not initialised")
	}
	var issues []IssueState
	if err := s.db.SelectContext(ctx, &issues, `SELECT * FROM issues ORDER BY issue_key`); err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	return issues, nil
}

// ListRuns returns ingestion runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("catalog not initialised")
	}
	if limit <= 0 {
		limit = 20
	}
	var runs []Run
	if err := s.db.SelectContext(ctx, &runs, `SELECT * FROM ingest_runs ORDER BY started_at DESC LIMIT ?`, limit); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}
