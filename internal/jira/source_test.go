// File path: internal/jira/source_test.go
package jira

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestFileSourceLoadsIssuesInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.json", `{"key":"ABC-2","fields":{"summary":"second"}}`)
	writeFile(t, dir, "a.json", `{"key":"ABC-1","fields":{"summary":"first"}}`)
	writeFile(t, dir, "notes.txt", "ignored")

	source, err := NewFileSource(dir)
	if err != nil {
		t.Fatalf("NewFileSource: %v", err)
	}
	issues, err := source.Issues(context.Background())
	if err != nil {
		t.Fatalf("Issues: %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(issues))
	}
	if issues[0].Key != "ABC-1" || issues[1].Key != "ABC-2" {
		t.Fatalf("unexpected order: %s, %s", issues[0].Key, issues[1].Key)
	}
}

func TestFileSourceSkipsMalformedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.json", `{"key":"ABC-1","fields":{}}`)
	writeFile(t, dir, "broken.json", `{nope`)
	writeFile(t, dir, "nokey.json", `{"fields":{}}`)

	source, err := NewFileSource(dir)
	if err != nil {
		t.Fatalf("NewFileSource: %v", err)
	}
	issues, err := source.Issues(context.Background())
	if err != nil {
		t.Fatalf("Issues: %v", err)
	}
	if len(issues) != 1 || issues[0].Key != "ABC-1" {
		t.Fatalf("expected only ABC-1, got %+v", issues)
	}
}

func TestNewFileSourceRejectsMissingDir(t *testing.T) {
	if _, err := NewFileSource(""); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := NewFileSource(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestFieldDefaults(t *testing.T) {
	var fields Fields
	if got := fields.IssueTypeName(); got != "Unknown" {
		t.Errorf("IssueTypeName: %q", got)
	}
	if got := fields.StatusName(); got != "Unknown" {
		t.Errorf("StatusName: %q", got)
	}
	if got := fields.StatusCategoryName(); got != "Unknown" {
		t.Errorf("StatusCategoryName: %q", got)
	}
	if got := fields.PriorityName(); got != "Unknown" {
		t.Errorf("PriorityName: %q", got)
	}
	if got := fields.AssigneeName(); got != "Unassigned" {
		t.Errorf("AssigneeName: %q", got)
	}
	if got := fields.ReporterName(); got != "Unknown" {
		t.Errorf("ReporterName: %q", got)
	}
	if got := fields.ParentKey(); got != "" {
		t.Errorf("ParentKey: %q", got)
	}
}

func TestSprintNamesVariants(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{"object list", `[{"name":"Sprint 1"},{"name":"Sprint 2"}]`, []string{"Sprint 1", "Sprint 2"}},
		{"string list", `["Sprint 3"]`, []string{"Sprint 3"}},
		{"single string", `"Sprint 4"`, []string{"Sprint 4"}},
		{"empty", ``, nil},
		{"malformed", `{broken`, nil},
	}
	for _, tc := range cases {
		fields := Fields{Sprint: []byte(tc.raw)}
		got := fields.SprintNames()
		if len(got) != len(tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
			}
		}
	}
}

func TestChangeEventsFlattening(t *testing.T) {
	issue := Issue{
		Key: "ABC-1",
		Changelog: &Changelog{Histories: []ChangeHistory{
			{
				Created: "2024-01-02T10:00:00.000+0000",
				Author:  &User{DisplayName: "Dana"},
				Items: []ChangeItem{
					{Field: "status", FromString: "To Do", ToString: "In Progress"},
					{Field: "assignee", FromString: "", ToString: "Dana"},
				},
			},
			{Created: "2024-01-03T10:00:00.000+0000", Items: []ChangeItem{{Field: "status", FromString: "In Progress", ToString: "Done"}}},
		}},
	}
	events := issue.ChangeEvents()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Author != "Dana" || events[0].Field != "status" {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if events[2].Author != "Unknown" {
		t.Fatalf("expected Unknown author fallback, got %q", events[2].Author)
	}
}
