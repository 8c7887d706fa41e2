// Package bitbucket implements the issue tracker contract for BitBucket
// Cloud issues.
//
// BitBucket issues and pull requests are numbered independently, so a
// bare number is looked up as an issue first and as a pull request
// second. BitBucket has no sub-issues: a child issue is a regular issue
// whose body names its parent.
package bitbucket

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	bb "github.com/raphi011/loom/internal/bitbucket"
	"github.com/raphi011/loom/internal/errs"
	"github.com/raphi011/loom/internal/tracker"
)

// maxComments caps the comments fetched with an issue.
const maxComments = 100

// Tracker is the BitBucket adapter.
type Tracker struct {
	client *bb.Client
	states tracker.StateTable
}

// New returns a BitBucket tracker. doneStatuses replaces the default
// closed states when non-empty.
func New(client *bb.Client, doneStatuses []string) *Tracker {
	return &Tracker{client: client, states: tracker.BitbucketStates.WithClosed(doneStatuses)}
}

func (t *Tracker) Provider() tracker.Provider { return tracker.Bitbucket }

// SupportsPullRequests is true: the repository hosts both.
func (t *Tracker) SupportsPullRequests() bool { return true }

// parseID validates a BitBucket issue id.
func parseID(id string) (int, error) {
	s := strings.TrimPrefix(strings.TrimSpace(id), "#")
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errs.Validation("BitBucket issue ids must be numeric, got %q", id)
	}
	return n, nil
}

func normalizeAuthor(u *bb.User) *tracker.Author {
	if u == nil {
		return nil
	}
	a := &tracker.Author{
		ID:          u.AccountID,
		DisplayName: u.DisplayName,
		Login:       u.Nickname,
		AvatarURL:   u.Links.Avatar.Href,
		URL:         u.Links.HTML.Href,
	}
	if a.ID == "" {
		a.ID = u.UUID
	}
	if a.ID == "" {
		a.ID = u.Nickname
	}
	if a.DisplayName == "" {
		a.DisplayName = u.Nickname
	}
	if a.ID == "" && a.DisplayName == "" {
		return nil
	}
	return a
}

func normalizeComment(c *bb.Comment) *tracker.Comment {
	return &tracker.Comment{
		ID:        strconv.Itoa(c.ID),
		Body:      c.Content.Raw,
		Author:    normalizeAuthor(c.User),
		URL:       c.Links.HTML.Href,
		CreatedAt: tracker.NormalizeTime(c.CreatedOn),
		UpdatedAt: tracker.NormalizeTime(c.UpdatedOn),
	}
}

// GetIssue fetches an issue with its comments.
func (t *Tracker) GetIssue(ctx context.Context, id string) (*tracker.Issue, error) {
	n, err := parseID(id)
	if err != nil {
		return nil, err
	}
	raw, err := t.client.GetIssue(ctx, n)
	if err != nil {
		if bb.IsNotFound(err) {
			return nil, errs.NotFound(id, string(tracker.Bitbucket))
		}
		return nil, err
	}

	issue := &tracker.Issue{
		ID:       strconv.Itoa(raw.ID),
		Title:    raw.Title,
		Body:     raw.Content.Raw,
		State:    t.states.Normalize(raw.State),
		URL:      raw.Links.HTML.Href,
		Provider: tracker.Bitbucket,
		Author:   normalizeAuthor(raw.Reporter),
		Extras:   map[string]any{"stateName": raw.State, "kind": raw.Kind, "priority": raw.Priority},
	}
	if a := normalizeAuthor(raw.Assignee); a != nil {
		issue.Assignees = []tracker.Author{*a}
	}
	if raw.Milestone != nil {
		issue.Milestone = raw.Milestone.Name
	}
	if raw.Component != nil {
		issue.Labels = append(issue.Labels, tracker.Label{Name: raw.Component.Name})
	}
	if raw.Version != nil {
		issue.Extras["version"] = raw.Version.Name
	}

	comments, err := t.client.ListIssueComments(ctx, n, maxComments)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch comments of issue #%d: %w", n, err)
	}
	for i := range comments {
		// BitBucket records state changes as comments without text.
		if comments[i].Content.Raw == "" {
			continue
		}
		issue.Comments = append(issue.Comments, *normalizeComment(&comments[i]))
	}
	return issue, nil
}

func commentIDs(issueID, commentID string) (int, int, error) {
	n, err := parseID(issueID)
	if err != nil {
		return 0, 0, err
	}
	c, err := strconv.Atoi(strings.TrimSpace(commentID))
	if err != nil {
		return 0, 0, errs.Validation("BitBucket comment ids must be numeric, got %q", commentID)
	}
	return n, c, nil
}

// GetComment fetches one comment of an issue.
func (t *Tracker) GetComment(ctx context.Context, issueID, commentID string) (*tracker.Comment, error) {
	n, c, err := commentIDs(issueID, commentID)
	if err != nil {
		return nil, err
	}
	raw, err := t.client.GetIssueComment(ctx, n, c)
	if err != nil {
		if bb.IsNotFound(err) {
			return nil, errs.NotFound(fmt.Sprintf("#%d comment %d", n, c), string(tracker.Bitbucket))
		}
		return nil, err
	}
	return normalizeComment(raw), nil
}

// CreateComment adds a comment to an issue.
func (t *Tracker) CreateComment(ctx context.Context, issueID, body string) (*tracker.Comment, error) {
	n, err := parseID(issueID)
	if err != nil {
		return nil, err
	}
	raw, err := t.client.CreateIssueComment(ctx, n, body)
	if err != nil {
		if bb.IsNotFound(err) {
			return nil, errs.NotFound(issueID, string(tracker.Bitbucket))
		}
		return nil, err
	}
	return normalizeComment(raw), nil
}

// UpdateComment replaces the body of a comment.
func (t *Tracker) UpdateComment(ctx context.Context, issueID, commentID, body string) (*tracker.Comment, error) {
	n, c, err := commentIDs(issueID, commentID)
	if err != nil {
		return nil, err
	}
	raw, err := t.client.UpdateIssueComment(ctx, n, c, body)
	if err != nil {
		if bb.IsNotFound(err) {
			return nil, errs.NotFound(fmt.Sprintf("#%d comment %d", n, c), string(tracker.Bitbucket))
		}
		return nil, err
	}
	return normalizeComment(raw), nil
}

// CreateIssue creates a task.
func (t *Tracker) CreateIssue(ctx context.Context, params tracker.CreateParams) (*tracker.Created, error) {
	if strings.TrimSpace(params.Title) == "" {
		return nil, errs.Validation("issue title is required")
	}
	raw, err := t.client.CreateIssue(ctx, bb.NewIssue{
		Title:   params.Title,
		Content: bb.Content{Raw: params.Body},
		Kind:    "task",
	})
	if err != nil {
		return nil, err
	}
	return &tracker.Created{ID: strconv.Itoa(raw.ID), URL: raw.Links.HTML.Href}, nil
}

// ChildNote is appended to the body of child issues.
func ChildNote(parent int) string {
	return fmt.Sprintf("Child of #%d", parent)
}

// CreateChildIssue creates an issue that references parentID in its body.
// The parent must exist.
func (t *Tracker) CreateChildIssue(ctx context.Context, parentID string, params tracker.CreateParams) (*tracker.Created, error) {
	parent, err := parseID(parentID)
	if err != nil {
		return nil, err
	}
	if _, err := t.client.GetIssue(ctx, parent); err != nil {
		if bb.IsNotFound(err) {
			return nil, errs.NotFound(parentID, string(tracker.Bitbucket))
		}
		return nil, err
	}

	body := ChildNote(parent)
	if params.Body != "" {
		body = params.Body + "\n\n" + body
	}
	params.Body = body
	return t.CreateIssue(ctx, params)
}

// ListIssues lists open issues, most recently updated first. Sprint is
// ignored.
func (t *Tracker) ListIssues(ctx context.Context, opts tracker.ListOptions) ([]tracker.ListItem, error) {
	filter := bb.IssueFilter{Limit: opts.Limit}
	if opts.Mine {
		me, err := t.client.CurrentUser(ctx)
		if err != nil {
			return nil, err
		}
		filter.AssigneeAccountID = me.AccountID
	}
	raw, err := t.client.ListIssues(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]tracker.ListItem, 0, len(raw))
	for _, is := range raw {
		items = append(items, tracker.ListItem{
			ID:        strconv.Itoa(is.ID),
			Title:     is.Title,
			UpdatedAt: tracker.NormalizeTime(is.UpdatedOn),
			URL:       is.Links.HTML.Href,
			State:     t.states.Normalize(is.State),
		})
	}
	return tracker.Tag(items, tracker.TypeIssue), nil
}

// IssueExists probes an issue id. Non-numeric ids never exist.
func (t *Tracker) IssueExists(ctx context.Context, id string) (bool, error) {
	n, err := parseID(id)
	if err != nil {
		return false, nil
	}
	if _, err := t.client.GetIssue(ctx, n); err != nil {
		if bb.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ResolveNumber decides whether number is an issue or a pull request,
// checking issues first.
func (t *Tracker) ResolveNumber(ctx context.Context, number string) (tracker.ItemType, error) {
	n, err := parseID(number)
	if err != nil {
		return "", err
	}
	if _, err := t.client.GetIssue(ctx, n); err == nil {
		return tracker.TypeIssue, nil
	} else if !bb.IsNotFound(err) {
		return "", err
	}
	if _, err := t.client.GetPullRequest(ctx, n); err == nil {
		return tracker.TypePR, nil
	} else if !bb.IsNotFound(err) {
		return "", err
	}
	return "", errs.NotFound(number, string(tracker.Bitbucket))
}
