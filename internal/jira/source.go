// File path: internal/jira/source.go
package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/issuepilot-ai/issuepilot/internal/common"
)

// Source yields issue records for ingestion. The core only requires the
// record shape; a file export and a live API client are interchangeable here.
type Source interface {
	Issues(ctx context.Context) ([]Issue, error)
	// Name labels the source for logs and run bookkeeping.
	Name() string
}

// FileSource reads one issue per *.json file from an export directory.
type FileSource struct {
	dir string
}

// NewFileSource validates the directory and returns a file-backed source.
func NewFileSource(dir string) (*FileSource, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, errors.New("issue directory required")
	}
	info, err := os.Stat(trimmed)
	if err != nil {
		return nil, fmt.Errorf("stat issue directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("issue source %s is not a directory", trimmed)
	}
	return &FileSource{dir: trimmed}, nil
}

func (s *FileSource) Name() string {
	return s.dir
}

// Issues loads every issue file in lexical order. Files that fail to decode
// are skipped with a warning so one corrupt export does not sink the batch.
func (s *FileSource) Issues(ctx context.Context) ([]Issue, error) {
	logger := common.Logger()
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("glob issue files: %w", err)
	}
	sort.Strings(matches)
	issues := make([]Issue, 0, len(matches))
	for _, path := range matches {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read issue file %s: %w", path, err)
		}
		var issue Issue
		if err := json.Unmarshal(data, &issue); err != nil {
			logger.Warn("jira: skipping malformed issue file", "path", path, "error", err)
			continue
		}
		if strings.TrimSpace(issue.Key) == "" {
			logger.Warn("jira: skipping issue file without key", "path", path)
			continue
		}
		issues = append(issues, issue)
	}
	logger.Info("jira: loaded issue export", "dir", s.dir, "issues", len(issues))
	return issues, nil
}
