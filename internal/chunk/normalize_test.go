// File path: internal/chunk/normalize_test.go
package chunk

import "testing"

func TestNormalizeMetadataJoinsLists(t *testing.T) {
	meta := map[string]interface{}{
		"labels":       []string{"ops", "billing"},
		"fix_versions": []string{"1.2"},
		"sprints":      []string{},
		"mixed":        []interface{}{"a", 2},
		"issue_key":    "ABC-1",
		"has_subtasks": true,
		"count":        3,
	}
	out := NormalizeMetadata(meta)

	if out["labels"] != "ops | billing" {
		t.Errorf("labels = %v", out["labels"])
	}
	if out["fix_versions"] != "1.2" {
		t.Errorf("fix_versions = %v", out["fix_versions"])
	}
	if out["sprints"] != "" {
		t.Errorf("sprints = %v, want empty string", out["sprints"])
	}
	if out["mixed"] != "a | 2" {
		t.Errorf("mixed = %v", out["mixed"])
	}
	if out["issue_key"] != "ABC-1" || out["has_subtasks"] != true || out["count"] != 3 {
		t.Errorf("scalars changed: %v", out)
	}
}

func TestNormalizeMetadataDoesNotMutateInput(t *testing.T) {
	meta := map[string]interface{}{"labels": []string{"x"}}
	NormalizeMetadata(meta)
	if _, ok := meta["labels"].([]string); !ok {
		t.Fatalf("input map mutated: %v", meta["labels"])
	}
}
