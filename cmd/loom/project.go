package main

import (
	"context"
	"errors"

	"github.com/raphi011/loom/internal/backend"
	"github.com/raphi011/loom/internal/config"
	"github.com/raphi011/loom/internal/git"
	"github.com/raphi011/loom/internal/identifier"
	"github.com/raphi011/loom/internal/issuecache"
	"github.com/raphi011/loom/internal/issues"
	"github.com/raphi011/loom/internal/log"
	"github.com/raphi011/loom/internal/tracker"
)

// project is the resolved root and settings commands run against.
type project struct {
	root     string
	settings *config.Settings
	backends *backend.Factory
}

// currentProject resolves --project (or the repository of the working
// directory) and its merged settings.
func currentProject(ctx context.Context) (*project, error) {
	resolver := config.ResolverFromContext(ctx)
	if resolver == nil {
		return nil, errors.New("settings not loaded")
	}

	root := (&issues.Service{}).ProjectRoot(ctx, projectDir)
	settings, err := resolver.ForProject(root)
	if err != nil {
		return nil, err
	}
	return &project{root: root, settings: settings, backends: &backend.Factory{}}, nil
}

func (p *project) tracker() (tracker.Tracker, error) {
	return p.backends.Tracker(p.root, p.settings)
}

// readyTracker returns the project's tracker after its credential check,
// for commands that go straight to a single issue or comment.
func (p *project) readyTracker(ctx context.Context) (tracker.Tracker, error) {
	tr, err := p.tracker()
	if err != nil {
		return nil, err
	}
	if err := tracker.Check(ctx, tr); err != nil {
		return nil, err
	}
	return tr, nil
}

// classifier returns a classifier over the project's tracker. Trackers
// without pull requests get the VCS host as PR checker when it can be
// built; otherwise numbers are issues.
func (p *project) classifier(ctx context.Context) (*identifier.Classifier, error) {
	tr, err := p.tracker()
	if err != nil {
		return nil, err
	}
	c := &identifier.Classifier{Tracker: tr}
	if !tr.SupportsPullRequests() {
		f, err := p.backends.Forge(p.root, p.settings)
		if err != nil {
			log.FromContext(ctx).Debug("no pull request host, numbers resolve to issues", "error", err)
		} else {
			c.PullRequests = f
		}
	}
	return c, nil
}

// issuesService returns the listing aggregator for the project.
func (p *project) issuesService(ctx context.Context) *issues.Service {
	svc := &issues.Service{
		Settings: config.ResolverFromContext(ctx),
		Backends: p.backends,
	}
	cache, err := issuecache.Default()
	if err != nil {
		log.FromContext(ctx).Debug("issue cache disabled", "error", err)
	} else {
		svc.Cache = cache
	}
	return svc
}

// detect classifies the working directory and checked out branch.
func detect() (*identifier.Parsed, error) {
	branch, err := git.CurrentBranch(workDir)
	if err != nil && !errors.Is(err, git.ErrNotRepository) {
		return nil, err
	}
	return identifier.Detect(identifier.Environment{Dir: workDir, Branch: branch})
}
