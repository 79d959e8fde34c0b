// File path: internal/jira/adf.go
package jira

import (
	"encoding/json"
	"strings"
)

// FlattenADF converts an Atlassian Document Format tree to plain text.
//
// Nodes of type "text" contribute their literal text and nodes of type
// "mention" contribute the display text from their attrs; every other node
// type contributes nothing itself but its children are still visited, so
// unknown node types added by future Jira versions degrade gracefully.
// Traversal is depth-first left-to-right, fragments are joined with a single
// space, and the result is trimmed. Nil or non-tree input yields "".
func FlattenADF(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var root interface{}
	if err := json.Unmarshal(raw, &root); err != nil {
		return ""
	}
	var fragments []string
	walkADF(root, &fragments)
	return strings.TrimSpace(strings.Join(fragments, " "))
}

func walkADF(node interface{}, fragments *[]string) {
	switch value := node.(type) {
	case map[string]interface{}:
		switch value["type"] {
		case "text":
			if text, ok := value["text"].(string); ok {
				*fragments = append(*fragments, text)
			}
		case "mention":
			if attrs, ok := value["attrs"].(map[string]interface{}); ok {
				if text, ok := attrs["text"].(string); ok {
					*fragments = append(*fragments, text)
				}
			}
		}
		if content, ok := value["content"].([]interface{}); ok {
			for _, child := range content {
				walkADF(child, fragments)
			}
		}
	case []interface{}:
		for _, item := range value {
			walkADF(item, fragments)
		}
	}
}
