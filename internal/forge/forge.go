package forge

import (
	"context"
	"fmt"
	"strings"

	"github.com/raphi011/loom/internal/tracker"
)

// Provider names a VCS hosting backend.
type Provider string

const (
	GitHub    Provider = "github"
	Bitbucket Provider = "bitbucket"
)

// ParseProvider maps a settings value to a Provider. Empty means GitHub.
func ParseProvider(name string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "github":
		return GitHub, nil
	case "bitbucket":
		return Bitbucket, nil
	default:
		return "", fmt.Errorf("unsupported version control provider %q (valid: github, bitbucket)", name)
	}
}

// ListOptions narrows ListPullRequests.
type ListOptions struct {
	Limit int
	// Mine restricts to pull requests authored by the current user.
	Mine bool
}

// Forge represents a git hosting service (GitHub, BitBucket)
type Forge interface {
	// Name returns the forge name ("github" or "bitbucket")
	Name() string

	// ListPullRequests lists open pull requests, most recently updated
	// first, as list items tagged "pr".
	ListPullRequests(ctx context.Context, opts ListOptions) ([]tracker.ListItem, error)

	// IsPullRequest reports whether number is a pull request. A number
	// that does not exist is not an error.
	IsPullRequest(ctx context.Context, number int) (bool, error)
}
