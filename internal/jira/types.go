// File path: internal/jira/types.go
package jira

import (
	"encoding/json"
	"strings"
)

// CompletedStatuses is the closed set of status names treated as completed.
var CompletedStatuses = map[string]bool{
	"Closed":   true,
	"Done":     true,
	"Resolved": true,
	"Retired":  true,
}

// IsCompleted reports whether a status name is in the completed set,
// ignoring case.
func IsCompleted(status string) bool {
	for name := range CompletedStatuses {
		if strings.EqualFold(name, status) {
			return true
		}
	}
	return false
}

// Issue mirrors the Jira REST representation of a single issue record. Only
// the fields consumed by chunk generation are modeled; everything else in the
// source JSON is ignored on decode.
type Issue struct {
	Key       string     `json:"key"`
	Fields    Fields     `json:"fields"`
	Changelog *Changelog `json:"changelog,omitempty"`
}

// Fields carries the nested field envelope of an issue.
type Fields struct {
	Summary        string            `json:"summary"`
	Description    json.RawMessage   `json:"description,omitempty"`
	Labels         []string          `json:"labels,omitempty"`
	IssueType      *NamedField       `json:"issuetype,omitempty"`
	Parent         *ParentRef        `json:"parent,omitempty"`
	Created        string            `json:"created,omitempty"`
	Updated        string            `json:"updated,omitempty"`
	ResolutionDate string            `json:"resolutiondate,omitempty"`
	Status         *Status           `json:"status,omitempty"`
	Priority       *NamedField       `json:"priority,omitempty"`
	Assignee       *User             `json:"assignee,omitempty"`
	Reporter       *User             `json:"reporter,omitempty"`
	FixVersions    []FixVersion      `json:"fixVersions,omitempty"`
	Sprint         json.RawMessage   `json:"customfield_10006,omitempty"`
	Comment        *CommentContainer `json:"comment,omitempty"`
	Attachments    []Attachment      `json:"attachment,omitempty"`
	IssueLinks     []IssueLink       `json:"issuelinks,omitempty"`
	Subtasks       []SubtaskRef      `json:"subtasks,omitempty"`
}

// NamedField is the common {name: ...} envelope used by issuetype and priority.
type NamedField struct {
	Name string `json:"name"`
}

// ParentRef points at the issue's parent epic.
type ParentRef struct {
	Key string `json:"key"`
}

// Status carries the instance-specific status name plus its coarse category.
type Status struct {
	Name           string      `json:"name"`
	StatusCategory *NamedField `json:"statusCategory,omitempty"`
}

// User is a Jira account reference.
type User struct {
	DisplayName string `json:"displayName"`
}

// FixVersion is a release container an issue is scheduled against.
type FixVersion struct {
	Name        string `json:"name"`
	ReleaseDate string `json:"releaseDate,omitempty"`
	Released    bool   `json:"released"`
}

// CommentContainer wraps the comment list the REST API nests under fields.
type CommentContainer struct {
	Comments []Comment `json:"comments,omitempty"`
}

// Comment is a single issue comment with an ADF body.
type Comment struct {
	Author  *User           `json:"author,omitempty"`
	Created string          `json:"created,omitempty"`
	Body    json.RawMessage `json:"body,omitempty"`
}

// Attachment describes one uploaded file.
type Attachment struct {
	Filename string `json:"filename"`
	Created  string `json:"created,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// IssueLink relates this issue to another, in either direction. Exactly one
// of OutwardIssue or InwardIssue is set.
type IssueLink struct {
	Type         LinkType     `json:"type"`
	OutwardIssue *LinkedIssue `json:"outwardIssue,omitempty"`
	InwardIssue  *LinkedIssue `json:"inwardIssue,omitempty"`
}

// LinkType names the relation and its direction-specific labels.
type LinkType struct {
	Name    string `json:"name"`
	Inward  string `json:"inward"`
	Outward string `json:"outward"`
}

// LinkedIssue is the remote end of an issue link.
type LinkedIssue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
	} `json:"fields"`
}

// SubtaskRef points at a child issue.
type SubtaskRef struct {
	Key string `json:"key"`
}

// Changelog holds the ordered field-change history of an issue.
type Changelog struct {
	Histories []ChangeHistory `json:"histories,omitempty"`
}

// ChangeHistory is one changelog event, possibly covering several fields.
type ChangeHistory struct {
	Created string       `json:"created,omitempty"`
	Author  *User        `json:"author,omitempty"`
	Items   []ChangeItem `json:"items,omitempty"`
}

// ChangeItem is a single field transition within a history event.
type ChangeItem struct {
	Field      string `json:"field"`
	FromString string `json:"fromString"`
	ToString   string `json:"toString"`
}

// IssueTypeName returns the issue type, defaulting to "Unknown".
func (f Fields) IssueTypeName() string {
	if f.IssueType != nil && strings.TrimSpace(f.IssueType.Name) != "" {
		return f.IssueType.Name
	}
	return "Unknown"
}

// ParentKey returns the parent epic key or "" when the issue has no parent.
func (f Fields) ParentKey() string {
	if f.Parent != nil {
		return f.Parent.Key
	}
	return ""
}

// StatusName returns the status name, defaulting to "Unknown".
func (f Fields) StatusName() string {
	if f.Status != nil && strings.TrimSpace(f.Status.Name) != "" {
		return f.Status.Name
	}
	return "Unknown"
}

// StatusCategoryName returns the coarse status category, defaulting to
// "Unknown".
func (f Fields) StatusCategoryName() string {
	if f.Status != nil && f.Status.StatusCategory != nil && strings.TrimSpace(f.Status.StatusCategory.Name) != "" {
		return f.Status.StatusCategory.Name
	}
	return "Unknown"
}

// PriorityName returns the priority name, defaulting to "Unknown".
func (f Fields) PriorityName() string {
	if f.Priority != nil && strings.TrimSpace(f.Priority.Name) != "" {
		return f.Priority.Name
	}
	return "Unknown"
}

// AssigneeName returns the assignee display name, defaulting to "Unassigned".
func (f Fields) AssigneeName() string {
	if f.Assignee != nil && strings.TrimSpace(f.Assignee.DisplayName) != "" {
		return f.Assignee.DisplayName
	}
	return "Unassigned"
}

// ReporterName returns the reporter display name, defaulting to "Unknown".
func (f Fields) ReporterName() string {
	if f.Reporter != nil && strings.TrimSpace(f.Reporter.DisplayName) != "" {
		return f.Reporter.DisplayName
	}
	return "Unknown"
}

// SprintNames extracts sprint names from the sprint custom field, which some
// Jira instances serve as a list of objects, a list of strings, or a single
// string.
func (f Fields) SprintNames() []string {
	if len(f.Sprint) == 0 {
		return nil
	}
	var raw interface{}
	if err := json.Unmarshal(f.Sprint, &raw); err != nil {
		return nil
	}
	var names []string
	switch value := raw.(type) {
	case []interface{}:
		for _, item := range value {
			switch sprint := item.(type) {
			case map[string]interface{}:
				if name, ok := sprint["name"].(string); ok && name != "" {
					names = append(names, name)
				}
			case string:
				if sprint != "" {
					names = append(names, sprint)
				}
			}
		}
	case string:
		if value != "" {
			names = append(names, value)
		}
	}
	return names
}

// Comments returns the flattened comment list.
func (f Fields) Comments() []Comment {
	if f.Comment == nil {
		return nil
	}
	return f.Comment.Comments
}

// SubtaskKeys returns the keys of all subtask references.
func (f Fields) SubtaskKeys() []string {
	if len(f.Subtasks) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f.Subtasks))
	for _, st := range f.Subtasks {
		keys = append(keys, st.Key)
	}
	return keys
}

// ChangeEvents flattens the changelog into one line-item per field change,
// preserving history order.
func (i Issue) ChangeEvents() []ChangeEvent {
	if i.Changelog == nil {
		return nil
	}
	var events []ChangeEvent
	for _, history := range i.Changelog.Histories {
		author := "Unknown"
		if history.Author != nil && strings.TrimSpace(history.Author.DisplayName) != "" {
			author = history.Author.DisplayName
		}
		for _, item := range history.Items {
			events = append(events, ChangeEvent{
				Created: history.Created,
				Author:  author,
				Field:   item.Field,
				From:    item.FromString,
				To:      item.ToString,
			})
		}
	}
	return events
}

// ChangeEvent is a single flattened field transition.
type ChangeEvent struct {
	Created string
	Author  string
	Field   string
	From    string
	To      string
}
