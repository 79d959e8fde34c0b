// File path: internal/mcp/server_test.go
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/issuepilot-ai/issuepilot/internal/chunk"
	"github.com/issuepilot-ai/issuepilot/internal/llm"
	"github.com/issuepilot-ai/issuepilot/internal/retriever"
	"github.com/issuepilot-ai/issuepilot/internal/synthesis"
	"github.com/issuepilot-ai/issuepilot/internal/vector"
)

type mockStore struct {
	queryResults []vector.Result
	queryErr     error
	getResults   map[string][]vector.Result
	getErr       error
}

func (m *mockStore) Available() bool    { return true }
func (m *mockStore) Collection() string { return "jira_issues_rag" }

func (m *mockStore) Upsert(ctx context.Context, chunks []chunk.Chunk) error { return nil }

func (m *mockStore) Query(ctx context.Context, query string, limit int) ([]vector.Result, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return m.queryResults, nil
}

func (m *mockStore) Get(ctx context.Context, where map[string]interface{}) ([]vector.Result, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	key, _ := where["issue_key"].(string)
	return m.getResults[key], nil
}

type mockProvider struct {
	reply string
	err   error
}

func (m *mockProvider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *mockProvider) Embed(ctx context.Context, input []string) ([][]float32, error) {
	return nil, errors.New("not used")
}

func (m *mockProvider) Name() string { return "mock" }

func newTestMCPServer(store *mockStore, provider *mockProvider) *Server {
	retr := retriever.New(store, retriever.Config{ProjectPrefix: "HRLIF"})
	return NewServer(retr, synthesis.New(provider))
}

func callToolReq(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(mcpgo.TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

func indexedResult(id string, score float32) vector.Result {
	key := id[:strings.Index(id, "::")]
	return vector.Result{
		ID:       id,
		Score:    score,
		Document: "doc " + id,
		Metadata: map[string]interface{}{"issue_key": key, "chunk_type": id[strings.Index(id, "::")+2:]},
	}
}

func TestSemanticSearchTool(t *testing.T) {
	store := &mockStore{
		queryResults: []vector.Result{indexedResult("HRLIF-1::identity", 0.9)},
	}
	srv := newTestMCPServer(store, &mockProvider{})
	_, handler := srv.semanticSearchTool()

	result, err := handler(context.Background(), callToolReq("semantic_search", map[string]any{"query": "release status"}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var chunks []struct {
		ID       string `json:"id"`
		IssueKey string `json:"issue_key"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &chunks))
	require.Len(t, chunks, 1)
	assert.Equal(t, "HRLIF-1::identity", chunks[0].ID)
	assert.Equal(t, "HRLIF-1", chunks[0].IssueKey)
}

func TestSemanticSearchToolRequiresQuery(t *testing.T) {
	srv := newTestMCPServer(&mockStore{}, &mockProvider{})
	_, handler := srv.semanticSearchTool()

	result, err := handler(context.Background(), callToolReq("semantic_search", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestSemanticSearchToolReportsStoreFailure(t *testing.T) {
	store := &mockStore{queryErr: errors.New("store down")}
	srv := newTestMCPServer(store, &mockProvider{})
	_, handler := srv.semanticSearchTool()

	result, err := handler(context.Background(), callToolReq("semantic_search", map[string]any{"query": "x"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "store down")
}

func TestIssueMemoryTool(t *testing.T) {
	store := &mockStore{
		getResults: map[string][]vector.Result{
			"HRLIF-3": {indexedResult("HRLIF-3::identity", 0)},
		},
	}
	srv := newTestMCPServer(store, &mockProvider{})
	_, handler := srv.issueMemoryTool()

	result, err := handler(context.Background(), callToolReq("issue_memory", map[string]any{"issue_key": "HRLIF-3"}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var memories []struct {
		Document string `json:"document"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &memories))
	require.Len(t, memories, 1)
	assert.Contains(t, memories[0].Document, "HRLIF-3")
}

func TestIssueMemoryToolInlineError(t *testing.T) {
	store := &mockStore{getErr: errors.New("connection refused")}
	srv := newTestMCPServer(store, &mockProvider{})
	_, handler := srv.issueMemoryTool()

	result, err := handler(context.Background(), callToolReq("issue_memory", map[string]any{"issue_key": "HRLIF-3"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Error retrieving memory")
}

func TestAskTool(t *testing.T) {
	store := &mockStore{
		queryResults: []vector.Result{indexedResult("HRLIF-1::identity", 0.9)},
	}
	provider := &mockProvider{reply: "Completed Stories:\n- HRLIF-1: Something | Done"}
	srv := newTestMCPServer(store, provider)
	_, handler := srv.askTool()

	result, err := handler(context.Background(), callToolReq("ask", map[string]any{"query": "what is done?"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), "HRLIF-1")
}

func TestMCPServerRegistersTools(t *testing.T) {
	srv := newTestMCPServer(&mockStore{}, &mockProvider{})
	assert.NotNil(t, srv.MCPServer())
}
