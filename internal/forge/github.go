package forge

import (
	"context"
	"strconv"

	gh "github.com/raphi011/loom/internal/github"
	"github.com/raphi011/loom/internal/tracker"
)

// GitHubForge implements Forge for GitHub repositories using the gh CLI.
type GitHubForge struct {
	cli *gh.CLI
}

// NewGitHub returns a GitHub forge running gh in the repository cli points at.
func NewGitHub(cli *gh.CLI) *GitHubForge {
	return &GitHubForge{cli: cli}
}

// Name returns "github"
func (g *GitHubForge) Name() string {
	return string(GitHub)
}

// ListPullRequests lists open PRs using gh CLI
func (g *GitHubForge) ListPullRequests(ctx context.Context, opts ListOptions) ([]tracker.ListItem, error) {
	args := []string{"pr", "list", "--state", "open", "--json", "number,title,updatedAt,url,state"}
	if opts.Limit > 0 {
		args = append(args, "--limit", strconv.Itoa(opts.Limit))
	}
	if opts.Mine {
		args = append(args, "--author", "@me")
	}

	var prs []struct {
		Number    int    `json:"number"`
		Title     string `json:"title"`
		UpdatedAt string `json:"updatedAt"`
		URL       string `json:"url"`
		State     string `json:"state"`
	}
	if err := g.cli.JSON(ctx, &prs, args...); err != nil {
		return nil, err
	}

	items := make([]tracker.ListItem, 0, len(prs))
	for _, pr := range prs {
		items = append(items, tracker.ListItem{
			ID:        strconv.Itoa(pr.Number),
			Title:     pr.Title,
			UpdatedAt: pr.UpdatedAt,
			URL:       pr.URL,
			State:     tracker.GitHubStates.Normalize(pr.State),
		})
	}
	return tracker.Tag(items, tracker.TypePR), nil
}

// IsPullRequest checks a PR number using gh CLI
func (g *GitHubForge) IsPullRequest(ctx context.Context, number int) (bool, error) {
	if _, err := g.cli.Output(ctx, "pr", "view", strconv.Itoa(number), "--json", "number"); err != nil {
		if gh.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
