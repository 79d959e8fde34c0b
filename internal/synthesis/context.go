// File path: internal/synthesis/context.go
package synthesis

import (
	"fmt"
	"strings"

	"github.com/issuepilot-ai/issuepilot/internal/vector"
)

// IssueGroup holds the retrieved chunks of a single issue in retrieval order.
type IssueGroup struct {
	IssueKey string
	Chunks   []vector.Result
}

// GroupByIssue buckets chunks by their issue_key metadata. Group order
// follows the first appearance of each issue in the input, and chunks within
// a group keep their input order, so the ranking signal survives grouping.
func GroupByIssue(results []vector.Result) []IssueGroup {
	index := make(map[string]int)
	var groups []IssueGroup
	for _, result := range results {
		key, _ := result.Metadata["issue_key"].(string)
		if key == "" {
			key = "unknown"
		}
		pos, ok := index[key]
		if !ok {
			pos = len(groups)
			index[key] = pos
			groups = append(groups, IssueGroup{IssueKey: key})
		}
		groups[pos].Chunks = append(groups[pos].Chunks, result)
	}
	return groups
}

// BuildContext renders grouped chunks as fenced per-issue blocks so the model
// cannot blur content across issues.
func BuildContext(results []vector.Result) string {
	var parts []string
	for _, group := range GroupByIssue(results) {
		parts = append(parts, fmt.Sprintf("=== ISSUE: %s ===", group.IssueKey))
		for _, c := range group.Chunks {
			chunkType, _ := c.Metadata["chunk_type"].(string)
			if chunkType == "" {
				chunkType = "unknown"
			}
			parts = append(parts, fmt.Sprintf("--- Type: %s ---\n%s", chunkType, c.Document))
		}
		parts = append(parts, fmt.Sprintf("=== END ISSUE %s ===\n", group.IssueKey))
	}
	return strings.Join(parts, "\n")
}
