// File path: internal/common/telemetry/telemetry.go
package telemetry

import (
	"expvar"
	"sync"
	"time"
)

var (
	initOnce sync.Once

	vectorSearchTotal     *expvar.Int
	vectorSearchErrors    *expvar.Int
	vectorSearchLatencyMS *expvar.Int

	directLookupTotal  *expvar.Int
	directLookupChunks *expvar.Int

	ingestIssuesTotal   *expvar.Int
	ingestChunksTotal   *expvar.Int
	ingestFailuresTotal *expvar.Int

	chatCompletionTotal     *expvar.Int
	chatCompletionErrors    *expvar.Int
	chatCompletionLatencyMS *expvar.Int
)

func ensureInit() {
	initOnce.Do(func() {
		vectorSearchTotal = expvar.NewInt("issuepilot_vector_search_total")
		vectorSearchErrors = expvar.NewInt("issuepilot_vector_search_errors")
		vectorSearchLatencyMS = expvar.NewInt("issuepilot_vector_search_latency_ms")

		directLookupTotal = expvar.NewInt("issuepilot_direct_lookup_total")
		directLookupChunks = expvar.NewInt("issuepilot_direct_lookup_chunks")

		ingestIssuesTotal = expvar.NewInt("issuepilot_ingest_issues_total")
		ingestChunksTotal = expvar.NewInt("issuepilot_ingest_chunks_total")
		ingestFailuresTotal = expvar.NewInt("issuepilot_ingest_failures_total")

		chatCompletionTotal = expvar.NewInt("issuepilot_chat_completion_total")
		chatCompletionErrors = expvar.NewInt("issuepilot_chat_completion_errors")
		chatCompletionLatencyMS = expvar.NewInt("issuepilot_chat_completion_latency_ms")
	})
}

// RecordVectorSearch accounts one semantic query against the chunk index.
func RecordVectorSearch(err error, elapsed time.Duration) {
	ensureInit()
	vectorSearchTotal.Add(1)
	if err != nil {
		vectorSearchErrors.Add(1)
		return
	}
	vectorSearchLatencyMS.Add(elapsed.Milliseconds())
}

// RecordDirectLookup accounts one exact issue-key fetch and how many chunks it
// returned.
func RecordDirectLookup(chunks int) {
	ensureInit()
	directLookupTotal.Add(1)
	directLookupChunks.Add(int64(chunks))
}

// RecordIngest accounts one processed issue. failed issues carry zero chunks.
func RecordIngest(chunks int, failed bool) {
	ensureInit()
	ingestIssuesTotal.Add(1)
	ingestChunksTotal.Add(int64(chunks))
	if failed {
		ingestFailuresTotal.Add(1)
	}
}

// RecordChat accounts one chat completion round-trip.
func RecordChat(err error, elapsed time.Duration) {
	ensureInit()
	chatCompletionTotal.Add(1)
	if err != nil {
		chatCompletionErrors.Add(1)
		return
	}
	chatCompletionLatencyMS.Add(elapsed.Milliseconds())
}
