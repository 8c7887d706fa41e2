// Package issues lists a project's open issues and pull requests as one
// list, newest first.
//
// A listing goes: project root, settings, cache, issue tracker, pull
// request host. The cache is consulted before any backend is contacted
// and written after every fresh fetch. Pull requests come from the
// configured VCS provider regardless of the issue tracker; when that fetch
// fails for an expected reason (not logged in, rate limited, unreachable,
// no remotes, missing credentials) the listing carries on with issues
// only. Any other failure is returned as is.
package issues

import (
	"context"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/raphi011/loom/internal/backend"
	"github.com/raphi011/loom/internal/config"
	"github.com/raphi011/loom/internal/errs"
	"github.com/raphi011/loom/internal/forge"
	"github.com/raphi011/loom/internal/git"
	"github.com/raphi011/loom/internal/issuecache"
	"github.com/raphi011/loom/internal/log"
	"github.com/raphi011/loom/internal/tracker"
)

// DefaultLimit caps a listing when no limit is given.
const DefaultLimit = 100

// Options narrows a listing.
type Options struct {
	// ProjectPath is the project root. Empty resolves it from the
	// working directory.
	ProjectPath string
	Limit       int
	// Sprint filters by Jira sprint; "current" means the open sprints.
	// Ignored with a warning by other trackers.
	Sprint string
	Mine   bool
}

// Backends builds the issue tracker and pull request host for a project.
// *backend.Factory satisfies it.
type Backends interface {
	Tracker(root string, s *config.Settings) (tracker.Tracker, error)
	Forge(root string, s *config.Settings) (forge.Forge, error)
}

// Service aggregates listings.
type Service struct {
	Settings *config.Resolver
	Backends Backends
	// Cache stores listings; nil disables caching.
	Cache *issuecache.Cache

	// FindRoot resolves the repository root of dir. Defaults to
	// git.MainWorktreePath.
	FindRoot func(ctx context.Context, dir string) (string, error)
	// Getwd defaults to os.Getwd.
	Getwd func() (string, error)
}

// List returns open issues and pull requests, most recently updated first,
// at most opts.Limit of them.
func (s *Service) List(ctx context.Context, opts Options) ([]tracker.ListItem, error) {
	l := log.FromContext(ctx)

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	root := s.ProjectRoot(ctx, opts.ProjectPath)
	settings, err := s.Settings.ForProject(root)
	if err != nil {
		return nil, err
	}
	provider, err := backend.TrackerProvider(settings)
	if err != nil {
		return nil, err
	}

	sprint := opts.Sprint
	if sprint != "" && provider != tracker.Jira {
		l.Warn("--sprint is only supported by Jira, ignoring it for %s", provider)
		sprint = ""
	}

	query := issuecache.Query{
		ProjectPath: root,
		Provider:    string(provider),
		Limit:       limit,
		Sprint:      sprint,
		Mine:        opts.Mine,
	}
	if s.Cache != nil {
		if items, ok := s.Cache.Get(ctx, query); ok {
			return items, nil
		}
	}

	tr, err := s.Backends.Tracker(root, settings)
	if err != nil {
		return nil, err
	}
	found, err := tr.ListIssues(ctx, tracker.ListOptions{Limit: limit, Sprint: sprint, Mine: opts.Mine})
	if err != nil {
		return nil, err
	}
	items := tracker.Tag(found, tracker.TypeIssue)

	prs, err := s.pullRequests(ctx, root, settings, limit, opts.Mine)
	if err != nil {
		return nil, err
	}
	items = append(items, prs...)

	SortByUpdated(items)
	if len(items) > limit {
		items = items[:limit]
	}
	if items == nil {
		items = []tracker.ListItem{}
	}

	if s.Cache != nil {
		s.Cache.Put(ctx, query, items)
	}
	return items, nil
}

// pullRequests fetches open pull requests. Expected failures are logged
// and yield no pull requests.
func (s *Service) pullRequests(ctx context.Context, root string, settings *config.Settings, limit int, mine bool) ([]tracker.ListItem, error) {
	f, err := s.Backends.Forge(root, settings)
	if err == nil {
		var prs []tracker.ListItem
		prs, err = f.ListPullRequests(ctx, forge.ListOptions{Limit: limit, Mine: mine})
		if err == nil {
			return tracker.Tag(prs, tracker.TypePR), nil
		}
	}

	if errs.IsExpected(err) {
		log.FromContext(ctx).Warn("could not fetch pull requests (%s): %v", errs.KindOf(err), err)
		return nil, nil
	}
	return nil, err
}

// ProjectRoot returns explicit when set, else the repository root of the
// working directory, else the working directory itself. It never fails.
func (s *Service) ProjectRoot(ctx context.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}

	getwd := s.Getwd
	if getwd == nil {
		getwd = os.Getwd
	}
	cwd, err := getwd()
	if err != nil {
		cwd = "."
	}

	findRoot := s.FindRoot
	if findRoot == nil {
		findRoot = git.MainWorktreePath
	}
	root, err := findRoot(ctx, cwd)
	if err != nil {
		log.FromContext(ctx).Debug("no repository root, using working directory", "dir", cwd, "error", err)
		return cwd
	}
	return root
}

// SortByUpdated orders items by UpdatedAt, newest first. Timestamps that
// do not parse as RFC 3339 are compared as strings.
func SortByUpdated(items []tracker.ListItem) {
	slices.SortStableFunc(items, func(a, b tracker.ListItem) int {
		ta, errA := time.Parse(time.RFC3339Nano, a.UpdatedAt)
		tb, errB := time.Parse(time.RFC3339Nano, b.UpdatedAt)
		if errA == nil && errB == nil {
			return tb.Compare(ta)
		}
		return strings.Compare(b.UpdatedAt, a.UpdatedAt)
	})
}
