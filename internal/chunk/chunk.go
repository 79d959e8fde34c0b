// File path: internal/chunk/chunk.go
package chunk

import "fmt"

// Chunk types produced for one issue. Identity, business, and timeline are
// always emitted; the rest depend on the issue's content.
const (
	TypeIdentity      = "identity"
	TypeBusiness      = "business"
	TypeTimeline      = "timeline"
	TypeRelationships = "relationships"
	TypeComments      = "comments"
	TypeAttachments   = "attachments"
	TypeChangelog     = "changelog"
	TypeEpicSummary   = "epic_summary"
)

// Chunk is one semantically scoped unit of text plus metadata derived from a
// single issue. Its ID is unique across the whole index by construction.
type Chunk struct {
	ID       string                 `json:"id"`
	Type     string                 `json:"chunk_type"`
	Document string                 `json:"document"`
	Metadata map[string]interface{} `json:"metadata"`
}

// BuildID derives the composite chunk id that makes re-ingestion idempotent.
func BuildID(issueKey, chunkType string) string {
	return fmt.Sprintf("%s::%s", issueKey, chunkType)
}
