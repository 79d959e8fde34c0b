// File path: internal/synthesis/synthesizer.go
package synthesis

import (
	"context"
	"fmt"
	"time"

	"github.com/issuepilot-ai/issuepilot/internal/common"
	"github.com/issuepilot-ai/issuepilot/internal/common/telemetry"
	"github.com/issuepilot-ai/issuepilot/internal/llm"
	"github.com/issuepilot-ai/issuepilot/internal/vector"
)

// systemPrompt pins the model to the retrieved context. Completed statuses
// are a fixed closed set; the model must read metadata before text.
const systemPrompt = `You are a Jira Data Analysis Agent.

You MUST answer strictly using the provided context and its METADATA.
Do NOT infer, guess, or generalize beyond what is explicitly present.

The context consists of multiple chunks per Jira issue.
Each chunk includes both:
- Text content
- Metadata fields (issue_key, issue_type, status, epic_key, chunk_type)

----------------------------------
DEFINITIONS
----------------------------------
An issue is considered COMPLETED if:
- status is one of {Closed, Done, Resolved, Retired}

Issue Types:
- Epic
- Story
- Task
- Bug
(Use ONLY the value from metadata.issue_type)

----------------------------------
AGGREGATION RULES (CRITICAL)
----------------------------------
1. Group chunks by metadata.issue_key
2. Treat all chunks with the same issue_key as ONE issue
3. Read metadata FIRST, text SECOND
4. Never assume issue type or status from text alone
5. If metadata is missing, explicitly say so

----------------------------------
WHAT TO RETURN
----------------------------------
When asked for completed issues:
1. Filter ONLY completed issues (using metadata.status)
2. Categorize them by issue_type
3. Under each category, list:
- Issue Key
- Summary (from Business chunk if available)
- Status
- Epic Key (if present)

----------------------------------
STRICT RULES
----------------------------------
- Do NOT mention chunk names, file names, or source labels
- Do NOT claim all issues are of one type unless metadata confirms it
- Do NOT include issues with non-completed status
- If data is insufficient, say exactly what is missing

----------------------------------
OUTPUT FORMAT (MANDATORY)
----------------------------------

Completed Epics:
- EPIC-KEY: Summary | Status

Completed Stories:
- STORY-KEY: Summary | Status | Epic: EPIC-KEY

(Include other issue types only if present)`

// Synthesizer turns retrieved chunks plus a question into one grounded
// answer. The model's raw text is returned untouched; format adherence is a
// trust boundary, not something this layer validates.
type Synthesizer struct {
	provider llm.Provider
}

func New(provider llm.Provider) *Synthesizer {
	return &Synthesizer{provider: provider}
}

// Answer assembles the per-issue context blocks and runs a single chat
// completion over them.
func (s *Synthesizer) Answer(ctx context.Context, query string, results []vector.Result) (string, error) {
	logger := common.Logger()
	assembled := BuildContext(results)
	userPrompt := fmt.Sprintf("Context:\n%s\n\nTask:\nUsing ONLY the context and metadata provided, answer the following:\n%s", assembled, query)

	logger.Debug("synthesis: generating answer", "chunks", len(results), "context_bytes", len(assembled))
	start := time.Now()
	answer, err := s.provider.Chat(ctx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	})
	telemetry.RecordChat(err, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	return answer, nil
}
