// File path: internal/synthesis/synthesis_test.go
package synthesis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/issuepilot-ai/issuepilot/internal/jira"
	"github.com/issuepilot-ai/issuepilot/internal/llm"
	"github.com/issuepilot-ai/issuepilot/internal/vector"
)

func chunkResult(issueKey, chunkType, doc string) vector.Result {
	return vector.Result{
		ID:       issueKey + "::" + chunkType,
		Document: doc,
		Metadata: map[string]interface{}{"issue_key": issueKey, "chunk_type": chunkType},
	}
}

func TestGroupByIssuePreservesFirstAppearanceOrder(t *testing.T) {
	results := []vector.Result{
		chunkResult("HRLIF-2", "identity", "a"),
		chunkResult("HRLIF-1", "timeline", "b"),
		chunkResult("HRLIF-2", "business", "c"),
	}
	groups := GroupByIssue(results)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if groups[0].IssueKey != "HRLIF-2" || groups[1].IssueKey != "HRLIF-1" {
		t.Errorf("group order = %s, %s", groups[0].IssueKey, groups[1].IssueKey)
	}
	if len(groups[0].Chunks) != 2 || groups[0].Chunks[0].Document != "a" || groups[0].Chunks[1].Document != "c" {
		t.Errorf("chunk order within group wrong: %+v", groups[0].Chunks)
	}
}

func TestBuildContextMarkers(t *testing.T) {
	out := BuildContext([]vector.Result{
		chunkResult("HRLIF-9", "identity", "Issue HRLIF-9 is a Story."),
		chunkResult("HRLIF-9", "timeline", "HRLIF-9 Timeline."),
	})
	for _, want := range []string{
		"=== ISSUE: HRLIF-9 ===",
		"--- Type: identity ---\nIssue HRLIF-9 is a Story.",
		"--- Type: timeline ---\nHRLIF-9 Timeline.",
		"=== END ISSUE HRLIF-9 ===",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("context missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "identity") > strings.Index(out, "timeline") {
		t.Errorf("chunk order not preserved:\n%s", out)
	}
}

func TestBuildContextUnknownMetadata(t *testing.T) {
	out := BuildContext([]vector.Result{{ID: "x", Document: "orphan text", Metadata: map[string]interface{}{}}})
	if !strings.Contains(out, "=== ISSUE: unknown ===") || !strings.Contains(out, "--- Type: unknown ---") {
		t.Errorf("missing fallback markers:\n%s", out)
	}
}

type scriptedProvider struct {
	reply    string
	err      error
	messages []llm.Message
}

func (s *scriptedProvider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	s.messages = messages
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func (s *scriptedProvider) Embed(ctx context.Context, input []string) ([][]float32, error) {
	return nil, errors.New("not used")
}

func (s *scriptedProvider) Name() string { return "scripted" }

func TestAnswerSendsContextAndQuery(t *testing.T) {
	provider := &scriptedProvider{reply: "Completed Stories:\n- HRLIF-9: Something | Done"}
	s := New(provider)

	answer, err := s.Answer(context.Background(), "which stories are done?", []vector.Result{
		chunkResult("HRLIF-9", "identity", "Issue HRLIF-9 is a Story."),
	})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answer != provider.reply {
		t.Errorf("answer = %q", answer)
	}
	if len(provider.messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(provider.messages))
	}
	if provider.messages[0].Role != "system" || !strings.Contains(provider.messages[0].Content, "Jira Data Analysis Agent") {
		t.Errorf("system message wrong: %+v", provider.messages[0])
	}
	user := provider.messages[1]
	if user.Role != "user" {
		t.Errorf("user role = %q", user.Role)
	}
	if !strings.Contains(user.Content, "=== ISSUE: HRLIF-9 ===") {
		t.Errorf("user prompt missing context:\n%s", user.Content)
	}
	if !strings.Contains(user.Content, "which stories are done?") {
		t.Errorf("user prompt missing query:\n%s", user.Content)
	}
}

func TestAnswerPropagatesProviderFailure(t *testing.T) {
	s := New(&scriptedProvider{err: errors.New("rate limited")})
	if _, err := s.Answer(context.Background(), "q", nil); err == nil {
		t.Fatal("expected error from provider failure")
	}
}

func TestSystemPromptListsCompletedStatuses(t *testing.T) {
	for status := range jira.CompletedStatuses {
		if !strings.Contains(systemPrompt, status) {
			t.Errorf("system prompt does not mention completed status %s", status)
		}
	}
}
