// Package github implements the issue tracker contract on top of the gh
// CLI.
//
// Issue comments listed by "gh issue view" carry GraphQL node ids, while
// the REST comment endpoints need numeric ids; the numeric id is taken
// from the "#issuecomment-<id>" fragment of each comment's URL.
package github

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/raphi011/loom/internal/errs"
	gh "github.com/raphi011/loom/internal/github"
	"github.com/raphi011/loom/internal/log"
	"github.com/raphi011/loom/internal/tracker"
)

const issueViewFields = "number,title,body,state,url,author,assignees,labels,milestone,comments"

// Tracker is the GitHub adapter.
type Tracker struct {
	cli    *gh.CLI
	states tracker.StateTable
}

// New returns a GitHub tracker running gh in the repository cli points at.
func New(cli *gh.CLI) *Tracker {
	return &Tracker{cli: cli, states: tracker.GitHubStates}
}

func (t *Tracker) Provider() tracker.Provider { return tracker.GitHub }

// Check verifies gh is installed and logged in.
func (t *Tracker) Check(ctx context.Context) error { return t.cli.Check(ctx) }

// SupportsPullRequests is true: issues and PRs share one number space.
func (t *Tracker) SupportsPullRequests() bool { return true }

type ghUser struct {
	ID        any    `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
}

// normalizeAuthor maps both gh --json users and REST users.
func normalizeAuthor(u *ghUser) *tracker.Author {
	if u == nil || (u.Login == "" && u.ID == nil) {
		return nil
	}
	a := &tracker.Author{
		ID:          u.Login,
		DisplayName: u.Name,
		Login:       u.Login,
		AvatarURL:   u.AvatarURL,
		URL:         u.HTMLURL,
	}
	switch id := u.ID.(type) {
	case string:
		if id != "" {
			a.ID = id
		}
	case float64:
		a.ID = strconv.FormatInt(int64(id), 10)
	}
	if a.DisplayName == "" {
		a.DisplayName = u.Login
	}
	if a.URL == "" && u.Login != "" {
		a.URL = "https://github.com/" + u.Login
	}
	return a
}

type ghIssue struct {
	Number    int      `json:"number"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	State     string   `json:"state"`
	URL       string   `json:"url"`
	Author    *ghUser  `json:"author"`
	Assignees []ghUser `json:"assignees"`
	Labels    []struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	} `json:"labels"`
	Milestone *struct {
		Title string `json:"title"`
	} `json:"milestone"`
	Comments []ghIssueComment `json:"comments"`
}

type ghIssueComment struct {
	ID        string  `json:"id"`
	Author    *ghUser `json:"author"`
	Body      string  `json:"body"`
	CreatedAt string  `json:"createdAt"`
	URL       string  `json:"url"`
}

// restComment is the REST shape returned by gh api.
type restComment struct {
	ID        int64   `json:"id"`
	Body      string  `json:"body"`
	User      *ghUser `json:"user"`
	HTMLURL   string  `json:"html_url"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

func (c restComment) normalize() *tracker.Comment {
	return &tracker.Comment{
		ID:        strconv.FormatInt(c.ID, 10),
		Body:      c.Body,
		Author:    normalizeAuthor(c.User),
		URL:       c.HTMLURL,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

var commentURLRe = regexp.MustCompile(`#issuecomment-(\d+)$`)

// CommentIDFromURL extracts the numeric REST id from a comment URL.
func CommentIDFromURL(url string) (string, error) {
	m := commentURLRe.FindStringSubmatch(url)
	if m == nil {
		return "", fmt.Errorf("cannot determine numeric comment id: URL %q has no #issuecomment-<id> fragment", url)
	}
	return m[1], nil
}

// GetIssue fetches an issue with its comments.
func (t *Tracker) GetIssue(ctx context.Context, id string) (*tracker.Issue, error) {
	n, err := gh.ParseNumber(id)
	if err != nil {
		return nil, err
	}
	var raw ghIssue
	if err := t.cli.JSON(ctx, &raw, "issue", "view", strconv.Itoa(n), "--json", issueViewFields); err != nil {
		if gh.IsNotFound(err) {
			return nil, errs.NotFound(id, gh.Provider)
		}
		return nil, err
	}

	issue := &tracker.Issue{
		ID:       strconv.Itoa(raw.Number),
		Title:    raw.Title,
		Body:     raw.Body,
		State:    t.states.Normalize(raw.State),
		URL:      raw.URL,
		Provider: tracker.GitHub,
		Author:   normalizeAuthor(raw.Author),
	}
	for i := range raw.Assignees {
		if a := normalizeAuthor(&raw.Assignees[i]); a != nil {
			issue.Assignees = append(issue.Assignees, *a)
		}
	}
	for _, l := range raw.Labels {
		issue.Labels = append(issue.Labels, tracker.Label{Name: l.Name, Color: l.Color})
	}
	if raw.Milestone != nil {
		issue.Milestone = raw.Milestone.Title
	}
	for _, c := range raw.Comments {
		commentID, err := CommentIDFromURL(c.URL)
		if err != nil {
			return nil, fmt.Errorf("comment %s on issue #%d: %w", c.ID, raw.Number, err)
		}
		issue.Comments = append(issue.Comments, tracker.Comment{
			ID:        commentID,
			Body:      c.Body,
			Author:    normalizeAuthor(c.Author),
			URL:       c.URL,
			CreatedAt: c.CreatedAt,
		})
	}
	return issue, nil
}

// GetComment fetches a comment by its numeric id. issueID is unused by
// GitHub but still validated.
func (t *Tracker) GetComment(ctx context.Context, issueID, commentID string) (*tracker.Comment, error) {
	if _, err := gh.ParseNumber(issueID); err != nil {
		return nil, err
	}
	cid, err := gh.ParseNumber(commentID)
	if err != nil {
		return nil, err
	}
	var raw restComment
	if err := t.cli.JSON(ctx, &raw, "api", fmt.Sprintf("repos/{owner}/{repo}/issues/comments/%d", cid)); err != nil {
		if gh.IsNotFound(err) {
			return nil, errs.NotFound("comment "+commentID, gh.Provider)
		}
		return nil, err
	}
	return raw.normalize(), nil
}

// CreateComment adds a comment to an issue or pull request.
func (t *Tracker) CreateComment(ctx context.Context, issueID, body string) (*tracker.Comment, error) {
	n, err := gh.ParseNumber(issueID)
	if err != nil {
		return nil, err
	}
	var raw restComment
	if err := t.cli.JSON(ctx, &raw, "api", fmt.Sprintf("repos/{owner}/{repo}/issues/%d/comments", n), "-f", "body="+body); err != nil {
		return nil, err
	}
	return raw.normalize(), nil
}

// UpdateComment replaces the body of a comment.
func (t *Tracker) UpdateComment(ctx context.Context, issueID, commentID, body string) (*tracker.Comment, error) {
	if _, err := gh.ParseNumber(issueID); err != nil {
		return nil, err
	}
	cid, err := gh.ParseNumber(commentID)
	if err != nil {
		return nil, err
	}
	var raw restComment
	if err := t.cli.JSON(ctx, &raw, "api", "-X", "PATCH", fmt.Sprintf("repos/{owner}/{repo}/issues/comments/%d", cid), "-f", "body="+body); err != nil {
		return nil, err
	}
	return raw.normalize(), nil
}

var issueURLRe = regexp.MustCompile(`/issues/(\d+)\s*$`)

// CreateIssue creates an issue; gh prints its URL.
func (t *Tracker) CreateIssue(ctx context.Context, params tracker.CreateParams) (*tracker.Created, error) {
	if strings.TrimSpace(params.Title) == "" {
		return nil, errs.Validation("issue title is required")
	}
	args := []string{"issue", "create", "--title", params.Title, "--body", params.Body}
	for _, l := range params.Labels {
		args = append(args, "--label", l)
	}
	out, err := t.cli.Output(ctx, args...)
	if err != nil {
		return nil, err
	}
	url := strings.TrimSpace(string(out))
	if i := strings.LastIndex(url, "\n"); i >= 0 {
		url = strings.TrimSpace(url[i+1:])
	}
	m := issueURLRe.FindStringSubmatch(url)
	if m == nil {
		return nil, fmt.Errorf("unexpected gh issue create output %q", url)
	}
	return &tracker.Created{ID: m[1], URL: url}, nil
}

const addSubIssueMutation = `mutation($parent: ID!, $child: ID!) {
  addSubIssue(input: {issueId: $parent, subIssueId: $child}) { issue { id } }
}`

// CreateChildIssue creates an issue and links it as a sub-issue of
// parentID. A failed lookup or link leaves the child in place and is
// reported as *tracker.LinkError alongside the created child.
func (t *Tracker) CreateChildIssue(ctx context.Context, parentID string, params tracker.CreateParams) (*tracker.Created, error) {
	parent, err := gh.ParseNumber(parentID)
	if err != nil {
		return nil, err
	}
	child, err := t.CreateIssue(ctx, params)
	if err != nil {
		return nil, err
	}

	link := func() error {
		parentNode, err := t.nodeID(ctx, parent)
		if err != nil {
			return fmt.Errorf("resolve parent #%d: %w", parent, err)
		}
		childNum, _ := strconv.Atoi(child.ID)
		childNode, err := t.nodeID(ctx, childNum)
		if err != nil {
			return fmt.Errorf("resolve child #%s: %w", child.ID, err)
		}
		return t.cli.GraphQL(ctx, addSubIssueMutation, map[string]any{"parent": parentNode, "child": childNode}, nil)
	}
	if err := link(); err != nil {
		log.FromContext(ctx).Debug("sub-issue link failed", "parent", parent, "child", child.ID, "error", err)
		return child, &tracker.LinkError{ParentID: parentID, Child: child, Err: err}
	}
	return child, nil
}

func (t *Tracker) nodeID(ctx context.Context, number int) (string, error) {
	var raw struct {
		ID string `json:"id"`
	}
	if err := t.cli.JSON(ctx, &raw, "issue", "view", strconv.Itoa(number), "--json", "id"); err != nil {
		return "", err
	}
	if raw.ID == "" {
		return "", fmt.Errorf("issue #%d has no node id", number)
	}
	return raw.ID, nil
}

// ListIssues lists open issues, most recently updated first. Sprint is
// not a GitHub concept and is ignored.
func (t *Tracker) ListIssues(ctx context.Context, opts tracker.ListOptions) ([]tracker.ListItem, error) {
	args := []string{"issue", "list", "--state", "open", "--json", "number,title,updatedAt,url,state"}
	if opts.Limit > 0 {
		args = append(args, "--limit", strconv.Itoa(opts.Limit))
	}
	if opts.Mine {
		args = append(args, "--assignee", "@me")
	}
	var raw []struct {
		Number    int    `json:"number"`
		Title     string `json:"title"`
		UpdatedAt string `json:"updatedAt"`
		URL       string `json:"url"`
		State     string `json:"state"`
	}
	if err := t.cli.JSON(ctx, &raw, args...); err != nil {
		return nil, err
	}
	items := make([]tracker.ListItem, 0, len(raw))
	for _, r := range raw {
		items = append(items, tracker.ListItem{
			ID:        strconv.Itoa(r.Number),
			Title:     r.Title,
			UpdatedAt: r.UpdatedAt,
			URL:       r.URL,
			State:     t.states.Normalize(r.State),
		})
	}
	return tracker.Tag(items, tracker.TypeIssue), nil
}

// IssueExists reports whether id names an issue or pull request.
func (t *Tracker) IssueExists(ctx context.Context, id string) (bool, error) {
	if _, err := t.ResolveNumber(ctx, id); err != nil {
		if errs.IsNotFound(err) || errs.IsValidation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ResolveNumber asks the REST issues endpoint, which also answers for
// pull requests and marks them with a pull_request key.
func (t *Tracker) ResolveNumber(ctx context.Context, number string) (tracker.ItemType, error) {
	n, err := gh.ParseNumber(number)
	if err != nil {
		return "", err
	}
	var raw struct {
		Number      int `json:"number"`
		PullRequest *struct {
			URL string `json:"url"`
		} `json:"pull_request"`
	}
	if err := t.cli.JSON(ctx, &raw, "api", fmt.Sprintf("repos/{owner}/{repo}/issues/%d", n)); err != nil {
		if gh.IsNotFound(err) {
			return "", errs.NotFound(number, gh.Provider)
		}
		return "", err
	}
	if raw.PullRequest != nil {
		return tracker.TypePR, nil
	}
	return tracker.TypeIssue, nil
}
