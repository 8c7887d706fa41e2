package forge

import (
	"context"
	"strconv"

	"github.com/raphi011/loom/internal/bitbucket"
	"github.com/raphi011/loom/internal/tracker"
)

// BitbucketForge implements Forge for BitBucket Cloud repositories.
type BitbucketForge struct {
	client *bitbucket.Client
}

// NewBitbucket returns a BitBucket forge for the repository client targets.
func NewBitbucket(client *bitbucket.Client) *BitbucketForge {
	return &BitbucketForge{client: client}
}

// Name returns "bitbucket"
func (b *BitbucketForge) Name() string {
	return string(Bitbucket)
}

// ListPullRequests lists open PRs through the REST API.
func (b *BitbucketForge) ListPullRequests(ctx context.Context, opts ListOptions) ([]tracker.ListItem, error) {
	filter := bitbucket.PullRequestFilter{Limit: opts.Limit}
	if opts.Mine {
		me, err := b.client.CurrentUser(ctx)
		if err != nil {
			return nil, err
		}
		filter.AuthorAccountID = me.AccountID
	}

	prs, err := b.client.ListPullRequests(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]tracker.ListItem, 0, len(prs))
	for _, pr := range prs {
		items = append(items, tracker.ListItem{
			ID:        strconv.Itoa(pr.ID),
			Title:     pr.Title,
			UpdatedAt: tracker.NormalizeTime(pr.UpdatedOn),
			URL:       pr.Links.HTML.Href,
			State:     bitbucketPRState(pr.State),
		})
	}
	return tracker.Tag(items, tracker.TypePR), nil
}

// IsPullRequest checks a PR number through the REST API.
func (b *BitbucketForge) IsPullRequest(ctx context.Context, number int) (bool, error) {
	if _, err := b.client.GetPullRequest(ctx, number); err != nil {
		if bitbucket.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// bitbucketPRState maps OPEN to open and MERGED, DECLINED, SUPERSEDED to
// closed.
func bitbucketPRState(state string) tracker.State {
	if state == "OPEN" {
		return tracker.StateOpen
	}
	return tracker.StateClosed
}
