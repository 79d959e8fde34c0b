// File path: internal/chunk/signals.go
package chunk

import "strings"

type signalRule struct {
	label string
	match func(desc string) bool
}

var workflowTerms = []string{"end-to-end", "workflow", "lifecycle", "all processes", "idef"}

var systemTerms = []string{"tmp", "mdm", "epic", "credentialing"}

var breadthTerms = []string{"multiple", "all", "entire"}

var actionTerms = []string{"create", "update", "activate", "deactivate", "notify"}

var entityTerms = []string{"operator", "provider", "location", "message"}

// signalRules are evaluated in order against the lowercased description;
// matching labels are joined with "; " in the business chunk.
var signalRules = []signalRule{
	{
		label: "Contains end-to-end workflow language (Epic-like)",
		match: func(desc string) bool { return containsAny(desc, workflowTerms) },
	},
	{
		label: "Mentions multiple systems (Epic-like)",
		match: func(desc string) bool {
			return containsAny(desc, systemTerms) && containsAny(desc, breadthTerms)
		},
	},
	{
		label: "Describes single action on entity (Story-like)",
		match: func(desc string) bool {
			return containsAny(desc, actionTerms) && containsAny(desc, entityTerms)
		},
	},
}

// ContentSignals classifies a flattened description and returns the matching
// labels in rule order. Empty input yields no labels.
func ContentSignals(description string) []string {
	if description == "" {
		return nil
	}
	lower := strings.ToLower(description)
	var labels []string
	for _, rule := range signalRules {
		if rule.match(lower) {
			labels = append(labels, rule.label)
		}
	}
	return labels
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
