// Package backend builds the issue tracker and pull request host a project
// is configured for.
//
// Both are chosen once per invocation from the merged settings. The issue
// tracker and the VCS provider are independent: a project may keep issues
// in Linear or Jira while its pull requests live on GitHub. When both are
// BitBucket they share one REST client.
package backend

import (
	"errors"
	"fmt"
	"strings"

	bb "github.com/raphi011/loom/internal/bitbucket"
	"github.com/raphi011/loom/internal/cmd"
	"github.com/raphi011/loom/internal/config"
	"github.com/raphi011/loom/internal/errs"
	"github.com/raphi011/loom/internal/forge"
	"github.com/raphi011/loom/internal/git"
	gh "github.com/raphi011/loom/internal/github"
	"github.com/raphi011/loom/internal/tracker"
	trbitbucket "github.com/raphi011/loom/internal/tracker/bitbucket"
	trgithub "github.com/raphi011/loom/internal/tracker/github"
	"github.com/raphi011/loom/internal/tracker/jira"
	"github.com/raphi011/loom/internal/tracker/linear"
)

// Factory builds backends for a project root.
type Factory struct {
	// Runner runs gh. Defaults to os/exec.
	Runner cmd.Runner

	// OriginURL returns the origin remote of the repository at root.
	// Defaults to git.OriginURL.
	OriginURL func(root string) (string, error)

	// Endpoints override the API roots, for tests.
	LinearEndpoint    string
	BitbucketEndpoint string
}

// TrackerProvider returns the configured issue tracker, defaulting to
// GitHub. Unknown names are a configuration error.
func TrackerProvider(s *config.Settings) (tracker.Provider, error) {
	p, err := tracker.ParseProvider(s.IssueManagement.Provider)
	if err != nil {
		return "", errs.Configuration("%v", err)
	}
	return p, nil
}

// ForgeProvider returns the configured pull request host, defaulting to
// GitHub. Unknown names are a configuration error.
func ForgeProvider(s *config.Settings) (forge.Provider, error) {
	p, err := forge.ParseProvider(s.VersionControl.Provider)
	if err != nil {
		return "", errs.Configuration("%v", err)
	}
	return p, nil
}

// Tracker returns the issue tracker adapter for the project at root.
// Missing credentials are reported before any request is made.
func (f *Factory) Tracker(root string, s *config.Settings) (tracker.Tracker, error) {
	provider, err := TrackerProvider(s)
	if err != nil {
		return nil, err
	}

	switch provider {
	case tracker.Linear:
		lc := s.IssueManagement.Linear
		return linear.New(linear.Config{APIKey: lc.APIToken, TeamKey: lc.TeamID, Endpoint: f.LinearEndpoint})
	case tracker.Jira:
		jc := s.IssueManagement.Jira
		return jira.New(jira.Config{
			Host:         jc.Host,
			Username:     jc.Username,
			APIToken:     jc.APIToken,
			ProjectKey:   jc.ProjectKey,
			DoneStatuses: jc.DoneStatuses,
			IssueType:    jc.IssueType,
			SubtaskType:  jc.SubtaskType,
		})
	case tracker.Bitbucket:
		client, err := f.bitbucketClient(root, s)
		if err != nil {
			var pe *errs.ProviderError
			if errors.As(err, &pe) {
				return nil, errs.Configuration("BitBucket issues: %v", pe.Err)
			}
			return nil, err
		}
		return trbitbucket.New(client, s.IssueManagement.Bitbucket.DoneStatuses), nil
	default:
		return trgithub.New(f.ghCLI(root)), nil
	}
}

// Forge returns the pull request host for the project at root. Missing
// credentials or an unusable origin remote come back as expected provider
// errors, so callers listing pull requests can carry on without them.
func (f *Factory) Forge(root string, s *config.Settings) (forge.Forge, error) {
	provider, err := ForgeProvider(s)
	if err != nil {
		return nil, err
	}

	switch provider {
	case forge.Bitbucket:
		client, err := f.bitbucketClient(root, s)
		if err != nil {
			return nil, err
		}
		return forge.NewBitbucket(client), nil
	default:
		return forge.NewGitHub(f.ghCLI(root)), nil
	}
}

func (f *Factory) ghCLI(root string) *gh.CLI {
	cli := gh.NewCLI(root)
	if f.Runner != nil {
		cli.Runner = f.Runner
	}
	return cli
}

// bitbucketClient builds the shared REST client. Workspace and repository
// fall back to the origin remote when not configured.
func (f *Factory) bitbucketClient(root string, s *config.Settings) (*bb.Client, error) {
	bc := s.VersionControl.Bitbucket
	if strings.TrimSpace(bc.Username) == "" || strings.TrimSpace(bc.AppPassword) == "" {
		return nil, errs.Provider("bitbucket", errs.KindMissingCredentials,
			fmt.Errorf("BitBucket credentials are not configured (set version_control.bitbucket.username and app_password or %s)", config.EnvBitbucketPassword))
	}

	workspace, repoSlug := bc.Workspace, bc.RepoSlug
	if workspace == "" || repoSlug == "" {
		originURL := f.OriginURL
		if originURL == nil {
			originURL = git.OriginURL
		}
		remote, err := originURL(root)
		if errors.Is(err, git.ErrNotRepository) {
			return nil, errs.Provider("bitbucket", errs.KindNoRemotes, err)
		}
		if err != nil {
			return nil, err
		}
		ws, slug, ok := bb.RepoFromRemote(remote)
		if !ok {
			return nil, errs.Provider("bitbucket", errs.KindNoRemotes,
				fmt.Errorf("origin %q is not a BitBucket repository (set version_control.bitbucket.workspace and repo_slug)", remote))
		}
		if workspace == "" {
			workspace = ws
		}
		if repoSlug == "" {
			repoSlug = slug
		}
	}

	client := bb.NewClient(workspace, repoSlug, bc.Username, bc.AppPassword)
	if f.BitbucketEndpoint != "" {
		client.BaseURL = f.BitbucketEndpoint
	}
	return client, nil
}
