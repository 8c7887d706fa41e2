package tracker

import "time"

// State is the normalized issue state.
type State string

const (
	StateOpen   State = "open"
	StateClosed State = "closed"
)

// ItemType distinguishes issues from pull requests in merged listings.
type ItemType string

const (
	TypeIssue ItemType = "issue"
	TypePR    ItemType = "pr"
)

// Author is the normalized shape of a user across backends. ID is the
// provider-native id, falling back to the login when no id is exposed.
type Author struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Login       string `json:"login,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Label is an issue label.
type Label struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Comment is a single issue comment. ID is always the id accepted by the
// backend's comment fetch/update calls.
type Comment struct {
	ID        string  `json:"id"`
	Body      string  `json:"body"`
	Author    *Author `json:"author"`
	URL       string  `json:"url,omitempty"`
	CreatedAt string  `json:"createdAt,omitempty"`
	UpdatedAt string  `json:"updatedAt,omitempty"`
}

// Issue is the normalized issue detail. ID is always a string, even for
// numeric upstream ids. Backend-specific detail stays available through
// the optional fields and Extras.
type Issue struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	State     State          `json:"state"`
	URL       string         `json:"url"`
	Provider  Provider       `json:"provider"`
	Author    *Author        `json:"author"`
	Assignees []Author       `json:"assignees,omitempty"`
	Labels    []Label        `json:"labels,omitempty"`
	Comments  []Comment      `json:"comments,omitempty"`
	Milestone string         `json:"milestone,omitempty"`
	Extras    map[string]any `json:"extras,omitempty"`
}

// ListItem is the unified row returned by listing operations.
// UpdatedAt is ISO-8601.
type ListItem struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	UpdatedAt string   `json:"updatedAt"`
	URL       string   `json:"url"`
	State     State    `json:"state"`
	Type      ItemType `json:"type,omitempty"`
}

// ListOptions narrows a listing. Sprint is only honored by Jira.
type ListOptions struct {
	Limit  int
	Sprint string
	Mine   bool
}

// CreateParams describes a new issue.
type CreateParams struct {
	Title  string
	Body   string
	Labels []string
	// TeamKey selects the Linear team or Jira project. Derived from the
	// parent identifier for child issues when empty.
	TeamKey string
}

// Created identifies a newly created issue.
type Created struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Tag sets Type on every item and returns the slice.
func Tag(items []ListItem, t ItemType) []ListItem {
	for i := range items {
		items[i].Type = t
	}
	return items
}

// NormalizeTime rewrites an RFC 3339 timestamp with any precision or
// offset as second-precision UTC, so listings from different backends
// sort together. Unparseable values are returned unchanged.
func NormalizeTime(s string) string {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return s
	}
	return t.UTC().Format(time.RFC3339)
}
