package bitbucket

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// OpenIssueStates are the issue states listed by default.
var OpenIssueStates = []string{"new", "open", "on hold"}

// CurrentUser returns the authenticated account.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var u User
	if err := c.get(ctx, "/user", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetIssue fetches one issue.
func (c *Client) GetIssue(ctx context.Context, id int) (*Issue, error) {
	var issue Issue
	if err := c.get(ctx, c.repoPath("issues", strconv.Itoa(id)), nil, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// ListIssueComments fetches up to limit comments of an issue, oldest first.
func (c *Client) ListIssueComments(ctx context.Context, id, limit int) ([]Comment, error) {
	q := url.Values{"sort": {"created_on"}}
	return list[Comment](ctx, c, c.repoPath("issues", strconv.Itoa(id), "comments"), q, limit)
}

// IssueFilter narrows ListIssues.
type IssueFilter struct {
	Limit int
	// States defaults to OpenIssueStates.
	States []string
	// AssigneeAccountID restricts to issues assigned to one account.
	AssigneeAccountID string
}

// ListIssues fetches issues, most recently updated first.
func (c *Client) ListIssues(ctx context.Context, f IssueFilter) ([]Issue, error) {
	states := f.States
	if len(states) == 0 {
		states = OpenIssueStates
	}
	clauses := make([]string, 0, len(states))
	for _, s := range states {
		clauses = append(clauses, fmt.Sprintf("state=%q", s))
	}
	filter := "(" + strings.Join(clauses, " OR ") + ")"
	if f.AssigneeAccountID != "" {
		filter += fmt.Sprintf(" AND assignee.account_id=%q", f.AssigneeAccountID)
	}
	q := url.Values{"q": {filter}, "sort": {"-updated_on"}}
	return list[Issue](ctx, c, c.repoPath("issues"), q, f.Limit)
}

// NewIssue is the payload for CreateIssue.
type NewIssue struct {
	Title   string  `json:"title"`
	Content Content `json:"content"`
	Kind    string  `json:"kind,omitempty"`
}

// CreateIssue creates an issue.
func (c *Client) CreateIssue(ctx context.Context, in NewIssue) (*Issue, error) {
	var issue Issue
	if err := c.send(ctx, http.MethodPost, c.repoPath("issues"), in, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// GetIssueComment fetches one comment of an issue.
func (c *Client) GetIssueComment(ctx context.Context, issueID, commentID int) (*Comment, error) {
	var comment Comment
	path := c.repoPath("issues", strconv.Itoa(issueID), "comments", strconv.Itoa(commentID))
	if err := c.get(ctx, path, nil, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// CreateIssueComment adds a comment to an issue.
func (c *Client) CreateIssueComment(ctx context.Context, issueID int, body string) (*Comment, error) {
	var comment Comment
	path := c.repoPath("issues", strconv.Itoa(issueID), "comments")
	if err := c.send(ctx, http.MethodPost, path, map[string]any{"content": Content{Raw: body}}, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// UpdateIssueComment replaces the text of a comment.
func (c *Client) UpdateIssueComment(ctx context.Context, issueID, commentID int, body string) (*Comment, error) {
	var comment Comment
	path := c.repoPath("issues", strconv.Itoa(issueID), "comments", strconv.Itoa(commentID))
	if err := c.send(ctx, http.MethodPut, path, map[string]any{"content": Content{Raw: body}}, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// GetPullRequest fetches one pull request.
func (c *Client) GetPullRequest(ctx context.Context, id int) (*PullRequest, error) {
	var pr PullRequest
	if err := c.get(ctx, c.repoPath("pullrequests", strconv.Itoa(id)), nil, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// PullRequestFilter narrows ListPullRequests.
type PullRequestFilter struct {
	Limit           int
	AuthorAccountID string
}

// ListPullRequests fetches open pull requests, most recently updated first.
func (c *Client) ListPullRequests(ctx context.Context, f PullRequestFilter) ([]PullRequest, error) {
	q := url.Values{"state": {"OPEN"}, "sort": {"-updated_on"}}
	if f.AuthorAccountID != "" {
		q.Set("q", fmt.Sprintf("author.account_id=%q", f.AuthorAccountID))
	}
	return list[PullRequest](ctx, c, c.repoPath("pullrequests"), q, f.Limit)
}

// list follows "next" links until limit values are collected.
// limit <= 0 reads a single page.
func list[T any](ctx context.Context, c *Client, path string, q url.Values, limit int) ([]T, error) {
	pageLen := maxPageLen
	if limit > 0 && limit < pageLen {
		pageLen = limit
	}
	q.Set("pagelen", strconv.Itoa(pageLen))

	var out []T
	next := path
	query := q
	for next != "" {
		var p page[T]
		if err := c.get(ctx, next, query, &p); err != nil {
			return nil, err
		}
		out = append(out, p.Values...)
		if limit <= 0 || len(out) >= limit {
			break
		}
		next, query = p.Next, nil
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RepoFromRemote extracts workspace and repository slug from a BitBucket
// origin URL (git@bitbucket.org:ws/repo.git or https://bitbucket.org/ws/repo).
func RepoFromRemote(remoteURL string) (workspace, repoSlug string, ok bool) {
	path := ""
	switch {
	case strings.HasPrefix(remoteURL, "git@"):
		_, rest, found := strings.Cut(remoteURL, ":")
		if !found {
			return "", "", false
		}
		path = rest
	default:
		u, err := url.Parse(remoteURL)
		if err != nil || u.Host == "" {
			return "", "", false
		}
		path = u.Path
	}
	path = strings.TrimSuffix(strings.Trim(path, "/"), ".git")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
