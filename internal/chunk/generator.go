// File path: internal/chunk/generator.go
package chunk

import (
	"fmt"
	"strings"

	"github.com/issuepilot-ai/issuepilot/internal/jira"
)

const (
	maxComments         = 10
	maxChangelogEntries = 20
	epicDescriptionCap  = 200
)

// Deployment states recorded in chunk metadata.
const (
	DeploymentDeployed    = "Deployed"
	DeploymentNotDeployed = "Not Deployed"
)

// Generate turns one issue into its chunk set. Identity, business, timeline,
// and relationships chunks are always present; comments, attachments, and
// changelog chunks appear only when the issue carries that content, and
// epic_summary only for Epics. Every chunk shares the same base metadata plus
// a chunk_type tag.
func Generate(issue jira.Issue) []Chunk {
	key := issue.Key
	f := issue.Fields

	issueType := f.IssueTypeName()
	description := jira.FlattenADF(f.Description)
	status := f.StatusName()
	statusCategory := f.StatusCategoryName()
	parentKey := f.ParentKey()
	sprints := f.SprintNames()
	subtaskKeys := f.SubtaskKeys()

	commentLines := formatComments(f.Comments())
	changeLines := formatChangeEvents(issue.ChangeEvents())

	fixNames := make([]string, 0, len(f.FixVersions))
	releasedNames := make([]string, 0, len(f.FixVersions))
	for _, v := range f.FixVersions {
		fixNames = append(fixNames, v.Name)
		if v.Released {
			releasedNames = append(releasedNames, v.Name)
		}
	}

	deploymentStatus, deploymentInference := inferDeployment(statusCategory, releasedNames)

	base := map[string]interface{}{
		"issue_key":   key,
		"summary":     f.Summary,
		"issue_type":  issueType,
		"parent_epic": parentKey,

		"status":          status,
		"status_category": statusCategory,

		"priority": f.PriorityName(),
		"assignee": f.AssigneeName(),
		"reporter": f.ReporterName(),

		"labels": f.Labels,

		"created":        f.Created,
		"updated":        f.Updated,
		"resolutiondate": f.ResolutionDate,

		"fix_versions":          fixNames,
		"fix_versions_released": releasedNames,

		"sprints": sprints,

		"subtask_count": len(subtaskKeys),
		"has_subtasks":  len(subtaskKeys) > 0,

		"comment_count":    len(commentLines),
		"attachment_count": len(f.Attachments),

		"changelog_count": len(changeLines),

		"deployment_status": deploymentStatus,
	}

	chunks := make([]Chunk, 0, 8)
	emit := func(chunkType, document string) {
		meta := make(map[string]interface{}, len(base)+1)
		for k, v := range base {
			meta[k] = v
		}
		meta["chunk_type"] = chunkType
		chunks = append(chunks, Chunk{
			ID:       BuildID(key, chunkType),
			Type:     chunkType,
			Document: document,
			Metadata: meta,
		})
	}

	// Identity & structure.
	epicText := "with no parent Epic"
	if parentKey != "" {
		epicText = fmt.Sprintf("under Epic %s", parentKey)
	}
	var identity strings.Builder
	fmt.Fprintf(&identity, "Issue %s is a %s %s.\n", key, issueType, epicText)
	fmt.Fprintf(&identity, "Summary: %s\n", f.Summary)
	fmt.Fprintf(&identity, "Status: %s (%s)\n", status, statusCategory)
	fmt.Fprintf(&identity, "Priority: %s\n", f.PriorityName())
	fmt.Fprintf(&identity, "Assignee: %s | Reporter: %s\n", f.AssigneeName(), f.ReporterName())
	if len(f.Labels) > 0 {
		fmt.Fprintf(&identity, "Labels: %s\n", strings.Join(f.Labels, ", "))
	}
	if len(subtaskKeys) > 0 {
		fmt.Fprintf(&identity, "Subtasks (%d): %s\n", len(subtaskKeys), strings.Join(subtaskKeys, ", "))
	}
	emit(TypeIdentity, identity.String())

	// Business content.
	var business strings.Builder
	fmt.Fprintf(&business, "%s (%s)\n", key, issueType)
	fmt.Fprintf(&business, "Summary: %s\n\n", f.Summary)
	fmt.Fprintf(&business, "Description:\n%s\n\n", description)
	if signals := ContentSignals(description); len(signals) > 0 {
		fmt.Fprintf(&business, "Content Analysis: %s\n", strings.Join(signals, "; "))
	}
	emit(TypeBusiness, business.String())

	// Timeline & delivery.
	var timeline strings.Builder
	fmt.Fprintf(&timeline, "%s Timeline & Delivery Status:\n\n", key)
	fmt.Fprintf(&timeline, "Created: %s\n", f.Created)
	fmt.Fprintf(&timeline, "Last Updated: %s\n", f.Updated)
	if f.ResolutionDate != "" {
		fmt.Fprintf(&timeline, "Resolved: %s\n", f.ResolutionDate)
	}
	fmt.Fprintf(&timeline, "\nCurrent Status: %s (%s)\n", status, statusCategory)
	if len(f.FixVersions) > 0 {
		timeline.WriteString("\nFix Versions:\n")
		for _, v := range f.FixVersions {
			releaseState := "Unreleased"
			if v.Released {
				releaseState = "Released"
			}
			releaseDate := v.ReleaseDate
			if releaseDate == "" {
				releaseDate = "No date set"
			}
			fmt.Fprintf(&timeline, "  - %s: %s (Release Date: %s)\n", v.Name, releaseState, releaseDate)
		}
	}
	fmt.Fprintf(&timeline, "\nDeployment Inference: %s\n", deploymentInference)
	if len(sprints) > 0 {
		fmt.Fprintf(&timeline, "Sprints: %s\n", strings.Join(sprints, ", "))
	}
	emit(TypeTimeline, timeline.String())

	// Relationships; the no-links case still emits a sentinel chunk so the
	// absence of links is itself retrievable.
	relationships := formatLinks(f.IssueLinks)
	if len(relationships) > 0 {
		emit(TypeRelationships, fmt.Sprintf("%s Relationships:\n%s", key, strings.Join(relationships, "\n")))
	} else {
		emit(TypeRelationships, fmt.Sprintf("%s has no documented issue links.", key))
	}

	// Comments, capped at the first ten with an overflow note.
	if len(commentLines) > 0 {
		var comments strings.Builder
		fmt.Fprintf(&comments, "%s Comments (%d):\n\n", key, len(commentLines))
		shown := commentLines
		if len(shown) > maxComments {
			shown = shown[:maxComments]
		}
		comments.WriteString(strings.Join(shown, "\n\n"))
		if overflow := len(commentLines) - maxComments; overflow > 0 {
			fmt.Fprintf(&comments, "\n\n... and %d more comments", overflow)
		}
		emit(TypeComments, comments.String())
	}

	// Attachments.
	if len(f.Attachments) > 0 {
		var attachments strings.Builder
		fmt.Fprintf(&attachments, "%s Attachments (%d):\n\n", key, len(f.Attachments))
		for _, att := range f.Attachments {
			fmt.Fprintf(&attachments, "- %s (%s) - Created: %s\n", att.Filename, att.MimeType, att.Created)
		}
		emit(TypeAttachments, attachments.String())
	}

	// Change history, capped at the first twenty events.
	if len(changeLines) > 0 {
		var changelog strings.Builder
		fmt.Fprintf(&changelog, "%s Change History (%d changes):\n\n", key, len(changeLines))
		shown := changeLines
		if len(shown) > maxChangelogEntries {
			shown = shown[:maxChangelogEntries]
		}
		changelog.WriteString(strings.Join(shown, "\n"))
		if overflow := len(changeLines) - maxChangelogEntries; overflow > 0 {
			fmt.Fprintf(&changelog, "\n\n... and %d more changes", overflow)
		}
		emit(TypeChangelog, changelog.String())
	}

	// Epic summary, only for Epics.
	if issueType == "Epic" {
		var epic strings.Builder
		fmt.Fprintf(&epic, "Epic %s: %s\n\n", key, f.Summary)
		epic.WriteString("This Epic represents a high-level initiative or workflow.\n")
		if runes := []rune(description); len(runes) > epicDescriptionCap {
			fmt.Fprintf(&epic, "Description scope: %s...\n", string(runes[:epicDescriptionCap]))
		} else {
			fmt.Fprintf(&epic, "Description: %s\n", description)
		}
		if len(subtaskKeys) > 0 {
			fmt.Fprintf(&epic, "\nContains %d subtasks/stories.\n", len(subtaskKeys))
		}
		emit(TypeEpicSummary, epic.String())
	}

	return chunks
}

// inferDeployment derives the coarse release state of an issue from its
// status category and released fix versions.
func inferDeployment(statusCategory string, releasedVersions []string) (status, inference string) {
	if statusCategory == "Done" || statusCategory == "Complete" {
		if len(releasedVersions) > 0 {
			return DeploymentDeployed, fmt.Sprintf("This item was likely delivered as part of release %s.", strings.Join(releasedVersions, ", "))
		}
		return DeploymentNotDeployed, "Completed but not yet released to production."
	}
	return DeploymentNotDeployed, fmt.Sprintf("Currently in %s state.", statusCategory)
}

// formatComments renders each non-empty comment body as one line, skipping
// comments whose flattened body is empty.
func formatComments(comments []jira.Comment) []string {
	var lines []string
	for _, c := range comments {
		body := jira.FlattenADF(c.Body)
		if body == "" {
			continue
		}
		author := "Unknown"
		if c.Author != nil && strings.TrimSpace(c.Author.DisplayName) != "" {
			author = c.Author.DisplayName
		}
		lines = append(lines, fmt.Sprintf("[%s on %s]: %s", author, c.Created, body))
	}
	return lines
}

func formatChangeEvents(events []jira.ChangeEvent) []string {
	var lines []string
	for _, ev := range events {
		lines = append(lines, fmt.Sprintf("%s - %s changed %s from '%s' to '%s'", ev.Created, ev.Author, ev.Field, ev.From, ev.To))
	}
	return lines
}

// formatLinks renders one line per issue link using the direction-appropriate
// relation verb. Links with neither end set are skipped.
func formatLinks(links []jira.IssueLink) []string {
	var lines []string
	for _, link := range links {
		switch {
		case link.OutwardIssue != nil:
			verb := link.Type.Outward
			if verb == "" {
				verb = "relates to"
			}
			lines = append(lines, fmt.Sprintf("- %s %s: %s", verb, link.OutwardIssue.Key, link.OutwardIssue.Fields.Summary))
		case link.InwardIssue != nil:
			verb := link.Type.Inward
			if verb == "" {
				verb = "relates to"
			}
			lines = append(lines, fmt.Sprintf("- %s %s: %s", verb, link.InwardIssue.Key, link.InwardIssue.Fields.Summary))
		}
	}
	return lines
}
