package tracker

import (
	"context"
	"fmt"
	"strings"
)

// Provider names a configured issue tracker backend.
type Provider string

const (
	GitHub    Provider = "github"
	Linear    Provider = "linear"
	Jira      Provider = "jira"
	Bitbucket Provider = "bitbucket"
)

// Providers lists every supported tracker backend.
var Providers = []Provider{GitHub, Linear, Jira, Bitbucket}

// ParseProvider maps a settings value to a Provider. Empty means GitHub.
func ParseProvider(name string) (Provider, error) {
	if name == "" {
		return GitHub, nil
	}
	p := Provider(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unsupported issue tracker %q", name)
}

// Tracker is the one contract every issue tracker adapter satisfies.
// Exactly one adapter is built per invocation and held as a single value.
type Tracker interface {
	// Provider returns the backend this adapter talks to.
	Provider() Provider

	// SupportsPullRequests reports whether the backend itself has pull
	// requests sharing the issue number space (GitHub, BitBucket).
	SupportsPullRequests() bool

	GetIssue(ctx context.Context, id string) (*Issue, error)
	GetComment(ctx context.Context, issueID, commentID string) (*Comment, error)
	CreateComment(ctx context.Context, issueID, body string) (*Comment, error)
	UpdateComment(ctx context.Context, issueID, commentID, body string) (*Comment, error)
	CreateIssue(ctx context.Context, params CreateParams) (*Created, error)

	// CreateChildIssue creates an issue under parentID. When the child is
	// created but linking fails, both the child and a *LinkError are returned.
	CreateChildIssue(ctx context.Context, parentID string, params CreateParams) (*Created, error)

	// ListIssues returns open issues, most recently updated first.
	ListIssues(ctx context.Context, opts ListOptions) ([]ListItem, error)

	// IssueExists probes an identifier without fetching its detail.
	IssueExists(ctx context.Context, id string) (bool, error)
}

// PullRequestResolver is implemented by trackers that support pull
// requests. It decides whether a bare number is an issue or a PR.
type PullRequestResolver interface {
	ResolveNumber(ctx context.Context, number string) (ItemType, error)
}

// Checker is implemented by trackers that can verify their credentials
// up front, giving a clearer error than the first failing call.
type Checker interface {
	Check(ctx context.Context) error
}

// Check runs t's credential check when it has one.
func Check(ctx context.Context, t Tracker) error {
	if c, ok := t.(Checker); ok {
		return c.Check(ctx)
	}
	return nil
}

// LinkError is returned by CreateChildIssue when the child issue exists
// but could not be attached to its parent. The child is not rolled back.
type LinkError struct {
	ParentID string
	Child    *Created
	Err      error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("created issue %s but failed to link it to parent %s: %v", e.Child.ID, e.ParentID, e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }
