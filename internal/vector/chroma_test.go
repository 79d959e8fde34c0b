// File path: internal/vector/chroma_test.go
package vector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/issuepilot-ai/issuepilot/internal/chunk"
)

type staticEmbedder struct {
	calls [][]string
}

func (s *staticEmbedder) Embed(ctx context.Context, input []string) ([][]float32, error) {
	s.calls = append(s.calls, input)
	vectors := make([][]float32, len(input))
	for i := range input {
		vectors[i] = []float32{1, 0, 0}
	}
	return vectors, nil
}

type fakeChroma struct {
	t *testing.T

	mu             sync.Mutex
	collectionName string
	collectionID   string
	created        bool
	upsertIs404    bool
	addCalls       int
	upsertCalls    int

	lastUpsertPayload map[string]interface{}
	lastQueryPayload  map[string]interface{}
	lastGetPayload    map[string]interface{}
}

func newFakeChroma(t *testing.T) *fakeChroma {
	t.Helper()
	return &fakeChroma{t: t, collectionName: "jira_issues_rag", collectionID: "col-1"}
}

func (f *fakeChroma) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/heartbeat":
		w.WriteHeader(http.StatusOK)
	case r.URL.Path == "/api/v1/collections" && r.Method == http.MethodGet:
		f.mu.Lock()
		defer f.mu.Unlock()
		writeBody(w, map[string]interface{}{
			"collections": []map[string]string{{"id": f.collectionID, "name": f.collectionName}},
		})
	case r.URL.Path == "/api/v1/collections" && r.Method == http.MethodPost:
		f.mu.Lock()
		f.created = true
		f.mu.Unlock()
		writeBody(w, map[string]string{"id": f.collectionID})
	case strings.HasSuffix(r.URL.Path, "/upsert"):
		f.mu.Lock()
		defer f.mu.Unlock()
		f.upsertCalls++
		if f.upsertIs404 {
			http.NotFound(w, r)
			return
		}
		f.lastUpsertPayload = decodeBody(f.t, r)
		w.WriteHeader(http.StatusOK)
	case strings.HasSuffix(r.URL.Path, "/add"):
		f.mu.Lock()
		defer f.mu.Unlock()
		f.addCalls++
		f.lastUpsertPayload = decodeBody(f.t, r)
		w.WriteHeader(http.StatusOK)
	case strings.HasSuffix(r.URL.Path, "/query"):
		f.mu.Lock()
		f.lastQueryPayload = decodeBody(f.t, r)
		f.mu.Unlock()
		writeBody(w, map[string]interface{}{
			"ids":       [][]string{{"HRLIF-1::identity", "HRLIF-2::timeline"}},
			"distances": [][]float64{{0.0, 1.0}},
			"documents": [][]string{{"doc one", "doc two"}},
			"metadatas": [][]map[string]interface{}{{
				{"issue_key": "HRLIF-1"},
				{"issue_key": "HRLIF-2"},
			}},
		})
	case strings.HasSuffix(r.URL.Path, "/get"):
		f.mu.Lock()
		f.lastGetPayload = decodeBody(f.t, r)
		f.mu.Unlock()
		writeBody(w, map[string]interface{}{
			"ids":       []string{"HRLIF-3::identity", "HRLIF-3::business"},
			"documents": []string{"identity text", "business text"},
			"metadatas": []map[string]interface{}{
				{"issue_key": "HRLIF-3", "chunk_type": "identity"},
				{"issue_key": "HRLIF-3", "chunk_type": "business"},
			},
		})
	default:
		http.NotFound(w, r)
	}
}

func writeBody(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func decodeBody(t *testing.T, r *http.Request) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	return payload
}

func newTestClient(t *testing.T, fake *fakeChroma) *Client {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	parts := strings.SplitN(strings.TrimPrefix(server.URL, "http://"), ":", 2)
	cfg := Config{
		Host:       parts[0],
		Port:       parts[1],
		Scheme:     "http",
		Collection: "jira_issues_rag",
		Timeout:    2 * time.Second,
	}
	cfg.applyDefaults()
	client, err := New(context.Background(), cfg, &staticEmbedder{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !client.Available() {
		t.Fatal("client should be available against fake server")
	}
	return client
}

func TestClientUpsertNormalizesMetadata(t *testing.T) {
	fake := newFakeChroma(t)
	client := newTestClient(t, fake)

	chunks := []chunk.Chunk{{
		ID:       "HRLIF-1::identity",
		Type:     chunk.TypeIdentity,
		Document: "Issue HRLIF-1 is a Story with no parent Epic.",
		Metadata: map[string]interface{}{
			"issue_key": "HRLIF-1",
			"labels":    []string{"ops", "billing"},
		},
	}}
	if err := client.Upsert(context.Background(), chunks); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	fake.mu.Lock()
	payload := fake.lastUpsertPayload
	fake.mu.Unlock()
	ids := payload["ids"].([]interface{})
	if len(ids) != 1 || ids[0] != "HRLIF-1::identity" {
		t.Errorf("ids = %v", ids)
	}
	metas := payload["metadatas"].([]interface{})
	meta := metas[0].(map[string]interface{})
	if meta["labels"] != "ops | billing" {
		t.Errorf("labels not joined: %v", meta["labels"])
	}
	embeddings := payload["embeddings"].([]interface{})
	if len(embeddings) != 1 {
		t.Errorf("embeddings = %v", embeddings)
	}
}

func TestClientUpsertFallsBackToAdd(t *testing.T) {
	fake := newFakeChroma(t)
	fake.upsertIs404 = true
	client := newTestClient(t, fake)

	err := client.Upsert(context.Background(), []chunk.Chunk{{ID: "HRLIF-1::identity", Document: "x", Metadata: map[string]interface{}{}}})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.addCalls != 1 {
		t.Errorf("addCalls = %d, want 1", fake.addCalls)
	}
}

func TestClientQueryScoresByDistance(t *testing.T) {
	fake := newFakeChroma(t)
	client := newTestClient(t, fake)

	results, err := client.Query(context.Background(), "release status", 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Score != 1.0 {
		t.Errorf("score for distance 0 = %v, want 1", results[0].Score)
	}
	if results[1].Score != 0.5 {
		t.Errorf("score for distance 1 = %v, want 0.5", results[1].Score)
	}
	if results[0].Document != "doc one" || results[0].Metadata["issue_key"] != "HRLIF-1" {
		t.Errorf("result payload wrong: %+v", results[0])
	}

	fake.mu.Lock()
	n := fake.lastQueryPayload["n_results"]
	fake.mu.Unlock()
	if n != float64(2) {
		t.Errorf("n_results = %v, want 2", n)
	}
}

func TestClientGetReturnsAllMatches(t *testing.T) {
	fake := newFakeChroma(t)
	client := newTestClient(t, fake)

	results, err := client.Get(context.Background(), map[string]interface{}{"issue_key": "HRLIF-3"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Score != 0 {
		t.Errorf("direct fetch score = %v, want 0", results[0].Score)
	}
	if results[1].Metadata["chunk_type"] != "business" {
		t.Errorf("metadata wrong: %+v", results[1])
	}

	fake.mu.Lock()
	where := fake.lastGetPayload["where"].(map[string]interface{})
	fake.mu.Unlock()
	if where["issue_key"] != "HRLIF-3" {
		t.Errorf("where = %v", where)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()
	if cfg.Collection != "jira_issues_rag" {
		t.Errorf("default collection = %q", cfg.Collection)
	}
	if cfg.Host != "localhost" || cfg.Port != "8000" || cfg.Scheme != "http" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("timeout = %v", cfg.Timeout)
	}
}

func TestConfigMergePrefersOverride(t *testing.T) {
	base := Config{Host: "localhost", Collection: "jira_issues_rag"}
	merged := base.Merge(Config{Host: "chroma.internal", APIKey: "k"})
	if merged.Host != "chroma.internal" {
		t.Errorf("host = %q", merged.Host)
	}
	if merged.Collection != "jira_issues_rag" {
		t.Errorf("collection = %q", merged.Collection)
	}
	if merged.APIKey != "k" {
		t.Errorf("api key = %q", merged.APIKey)
	}
}
