// File path: internal/chunk/normalize.go
package chunk

import (
	"fmt"
	"strings"
)

// NormalizeMetadata flattens a chunk metadata map for storage backends that
// only accept scalar values. String slices are joined with " | "; everything
// else passes through unchanged.
func NormalizeMetadata(meta map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(meta))
	for k, v := range meta {
		switch list := v.(type) {
		case []string:
			out[k] = strings.Join(list, " | ")
		case []interface{}:
			parts := make([]string, 0, len(list))
			for _, item := range list {
				parts = append(parts, fmt.Sprint(item))
			}
			out[k] = strings.Join(parts, " | ")
		default:
			out[k] = v
		}
	}
	return out
}
