// Package jira implements the issue tracker contract for Jira over its
// REST API, using go-jira.
//
// Issues are addressed by key ("PROJ-123"). Bare numbers are expanded
// with the configured project key. Open and closed are decided by the
// configured "done" status names.
package jira

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gojira "github.com/andygrunwald/go-jira"
	"github.com/cenkalti/backoff/v4"

	"github.com/raphi011/loom/internal/errs"
	"github.com/raphi011/loom/internal/log"
	"github.com/raphi011/loom/internal/tracker"
)

const (
	// DefaultIssueType is used for new top-level issues.
	DefaultIssueType = "Task"
	// DefaultSubtaskType is used for child issues.
	DefaultSubtaskType = "Sub-task"

	// maxPageSize is the largest page Jira returns for a search.
	maxPageSize = 100

	defaultTimeout  = 30 * time.Second
	maxRetryElapsed = 20 * time.Second
)

// Config configures the adapter.
type Config struct {
	Host     string
	Username string
	APIToken string
	// ProjectKey scopes listings and is the default project for new issues.
	ProjectKey   string
	DoneStatuses []string
	IssueType    string
	SubtaskType  string
}

// Tracker is the Jira adapter.
type Tracker struct {
	client  *gojira.Client
	baseURL string
	cfg     Config
	states  tracker.StateTable

	// NewBackOff returns the retry policy for reads. Writes are never retried.
	NewBackOff func() backoff.BackOff
}

// New returns a Jira tracker authenticating with basic auth (user and API
// token). Missing host or token is a configuration error, reported before
// any request is made.
func New(cfg Config) (*Tracker, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errs.Configuration("Jira host is not configured (set issue_management.jira.host)")
	}
	if strings.TrimSpace(cfg.APIToken) == "" {
		return nil, errs.Configuration("Jira API token is not configured (set issue_management.jira.api_token or JIRA_API_TOKEN)")
	}

	transport := gojira.BasicAuthTransport{Username: cfg.Username, Password: cfg.APIToken}
	httpClient := transport.Client()
	httpClient.Timeout = defaultTimeout

	client, err := gojira.NewClient(httpClient, cfg.Host)
	if err != nil {
		return nil, errs.Configuration("invalid Jira host %q: %v", cfg.Host, err)
	}
	return NewWithClient(client, cfg), nil
}

// NewWithClient returns a Jira tracker using client.
func NewWithClient(client *gojira.Client, cfg Config) *Tracker {
	if cfg.IssueType == "" {
		cfg.IssueType = DefaultIssueType
	}
	if cfg.SubtaskType == "" {
		cfg.SubtaskType = DefaultSubtaskType
	}
	base := client.GetBaseURL()
	return &Tracker{
		client:  client,
		baseURL: strings.TrimSuffix(base.String(), "/"),
		cfg:     cfg,
		states:  tracker.JiraStates.WithClosed(cfg.DoneStatuses),
		NewBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.MaxElapsedTime = maxRetryElapsed
			return backoff.WithMaxRetries(bo, 3)
		},
	}
}

func (t *Tracker) Provider() tracker.Provider { return tracker.Jira }

// SupportsPullRequests is false: pull requests live on the VCS host.
func (t *Tracker) SupportsPullRequests() bool { return false }

// key expands a bare number into a project key ("87" -> "PROJ-87") and
// upper-cases project keys.
func (t *Tracker) key(id string) string {
	id = strings.TrimPrefix(strings.TrimSpace(id), "#")
	if isDigits(id) && t.cfg.ProjectKey != "" {
		return strings.ToUpper(t.cfg.ProjectKey) + "-" + id
	}
	return strings.ToUpper(id)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (t *Tracker) browseURL(key string) string {
	return t.baseURL + "/browse/" + key
}

// read runs a read-only call, retrying server errors.
func (t *Tracker) read(ctx context.Context, call func() (*gojira.Response, error)) error {
	bo := t.NewBackOff
	if bo == nil {
		bo = func() backoff.BackOff { return &backoff.StopBackOff{} }
	}
	return backoff.Retry(func() error {
		resp, err := call()
		if err == nil {
			return nil
		}
		err = classify(resp, err)
		if resp != nil && resp.StatusCode >= 500 {
			log.FromContext(ctx).Debug("jira request failed, retrying", "status", resp.StatusCode)
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(bo(), ctx))
}

// classify maps a failed go-jira call onto a provider error kind.
func classify(resp *gojira.Response, err error) error {
	if resp == nil {
		return errs.Provider(string(tracker.Jira), errs.KindOf(err), err)
	}
	kind := errs.KindUnexpected
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		kind = errs.KindUnauthenticated
	case resp.StatusCode == http.StatusTooManyRequests:
		kind = errs.KindRateLimited
	case resp.StatusCode >= 500:
		kind = errs.KindUnreachable
	}
	return errs.Provider(string(tracker.Jira), kind, &StatusError{StatusCode: resp.StatusCode, Err: err})
}

// StatusError is a Jira API failure with its HTTP status.
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("jira: HTTP %d: %v", e.StatusCode, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

func isNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// normalizeAuthor prefers the cloud account id, then the server user key.
func normalizeAuthor(u *gojira.User) *tracker.Author {
	if u == nil || (u.AccountID == "" && u.Key == "" && u.Name == "" && u.DisplayName == "") {
		return nil
	}
	a := &tracker.Author{
		ID:          u.AccountID,
		DisplayName: u.DisplayName,
		Login:       u.Name,
		AvatarURL:   u.AvatarUrls.Four8X48,
	}
	if a.ID == "" {
		a.ID = u.Key
	}
	if a.ID == "" {
		a.ID = u.Name
	}
	if a.DisplayName == "" {
		a.DisplayName = u.Name
	}
	if a.Login == "" {
		a.Login = u.EmailAddress
	}
	return a
}

// jiraTimeLayout is how Jira renders comment timestamps.
const jiraTimeLayout = "2006-01-02T15:04:05.000-0700"

// isoTime converts a Jira timestamp to RFC 3339 UTC so listings from
// every backend sort together. Unparseable values are returned unchanged.
func isoTime(s string) string {
	ts, err := time.Parse(jiraTimeLayout, s)
	if err != nil {
		return s
	}
	return ts.UTC().Format(time.RFC3339)
}

func formatTime(t gojira.Time) string {
	ts := time.Time(t)
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}

func (t *Tracker) normalizeComment(key string, c *gojira.Comment) *tracker.Comment {
	author := c.Author
	return &tracker.Comment{
		ID:        c.ID,
		Body:      c.Body,
		Author:    normalizeAuthor(&author),
		URL:       t.browseURL(key) + "?focusedCommentId=" + c.ID,
		CreatedAt: isoTime(c.Created),
		UpdatedAt: isoTime(c.Updated),
	}
}

// GetIssue fetches an issue by key with its comments.
func (t *Tracker) GetIssue(ctx context.Context, id string) (*tracker.Issue, error) {
	key := t.key(id)
	var raw *gojira.Issue
	err := t.read(ctx, func() (*gojira.Response, error) {
		var resp *gojira.Response
		var err error
		raw, resp, err = t.client.Issue.GetWithContext(ctx, key, nil)
		return resp, err
	})
	if err != nil {
		if isNotFound(err) {
			return nil, errs.NotFound(key, string(tracker.Jira))
		}
		return nil, err
	}
	if raw.Fields == nil {
		return nil, errs.NotFound(key, string(tracker.Jira))
	}
	f := raw.Fields

	issue := &tracker.Issue{
		ID:       raw.Key,
		Title:    f.Summary,
		Body:     f.Description,
		URL:      t.browseURL(raw.Key),
		Provider: tracker.Jira,
		Author:   normalizeAuthor(f.Reporter),
		Extras: map[string]any{
			"issueType": f.Type.Name,
			"project":   f.Project.Key,
		},
	}
	if issue.Author == nil {
		issue.Author = normalizeAuthor(f.Creator)
	}
	if f.Status != nil {
		issue.State = t.states.Normalize(f.Status.Name)
		issue.Extras["stateName"] = f.Status.Name
	} else {
		issue.State = tracker.StateOpen
	}
	if a := normalizeAuthor(f.Assignee); a != nil {
		issue.Assignees = []tracker.Author{*a}
	}
	for _, l := range f.Labels {
		issue.Labels = append(issue.Labels, tracker.Label{Name: l})
	}
	if len(f.FixVersions) > 0 && f.FixVersions[0] != nil {
		issue.Milestone = f.FixVersions[0].Name
	}
	if f.Priority != nil {
		issue.Extras["priority"] = f.Priority.Name
	}
	if f.Parent != nil && f.Parent.Key != "" {
		issue.Extras["parent"] = f.Parent.Key
	}
	if f.Comments != nil {
		for _, c := range f.Comments.Comments {
			if c != nil {
				issue.Comments = append(issue.Comments, *t.normalizeComment(raw.Key, c))
			}
		}
	}
	return issue, nil
}

// GetComment fetches one comment of an issue.
func (t *Tracker) GetComment(ctx context.Context, issueID, commentID string) (*tracker.Comment, error) {
	key := t.key(issueID)
	endpoint := fmt.Sprintf("rest/api/2/issue/%s/comment/%s", key, commentID)

	var c gojira.Comment
	err := t.read(ctx, func() (*gojira.Response, error) {
		req, err := t.client.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		resp, err := t.client.Do(req, &c)
		if err != nil {
			return resp, gojira.NewJiraError(resp, err)
		}
		return resp, nil
	})
	if err != nil {
		if isNotFound(err) {
			return nil, errs.NotFound(key+" comment "+commentID, string(tracker.Jira))
		}
		return nil, err
	}
	return t.normalizeComment(key, &c), nil
}

// CreateComment adds a comment to an issue.
func (t *Tracker) CreateComment(ctx context.Context, issueID, body string) (*tracker.Comment, error) {
	key := t.key(issueID)
	c, resp, err := t.client.Issue.AddCommentWithContext(ctx, key, &gojira.Comment{Body: body})
	if err != nil {
		err = classify(resp, err)
		if isNotFound(err) {
			return nil, errs.NotFound(key, string(tracker.Jira))
		}
		return nil, err
	}
	return t.normalizeComment(key, c), nil
}

// UpdateComment replaces the body of a comment.
func (t *Tracker) UpdateComment(ctx context.Context, issueID, commentID, body string) (*tracker.Comment, error) {
	key := t.key(issueID)
	c, resp, err := t.client.Issue.UpdateCommentWithContext(ctx, key, &gojira.Comment{ID: commentID, Body: body})
	if err != nil {
		err = classify(resp, err)
		if isNotFound(err) {
			return nil, errs.NotFound(key+" comment "+commentID, string(tracker.Jira))
		}
		return nil, err
	}
	return t.normalizeComment(key, c), nil
}

// CreateIssue creates an issue in params.TeamKey or the configured project.
func (t *Tracker) CreateIssue(ctx context.Context, params tracker.CreateParams) (*tracker.Created, error) {
	project := params.TeamKey
	if project == "" {
		project = t.cfg.ProjectKey
	}
	if project == "" {
		return nil, errs.Configuration("project key is required for issue creation (set issue_management.jira.project_key)")
	}
	return t.create(ctx, project, t.cfg.IssueType, "", params)
}

// CreateChildIssue creates a sub-task of parentID. The project comes from
// params.TeamKey, else the parent key's prefix.
func (t *Tracker) CreateChildIssue(ctx context.Context, parentID string, params tracker.CreateParams) (*tracker.Created, error) {
	parent := t.key(parentID)
	project := params.TeamKey
	if project == "" {
		prefix, ok := tracker.TeamPrefix(parent)
		if !ok {
			return nil, errs.Configuration("project key is required for child issue creation")
		}
		project = prefix
	}
	return t.create(ctx, project, t.cfg.SubtaskType, parent, params)
}

func (t *Tracker) create(ctx context.Context, project, issueType, parent string, params tracker.CreateParams) (*tracker.Created, error) {
	if strings.TrimSpace(params.Title) == "" {
		return nil, errs.Validation("issue title is required")
	}
	fields := &gojira.IssueFields{
		Project:     gojira.Project{Key: strings.ToUpper(project)},
		Type:        gojira.IssueType{Name: issueType},
		Summary:     params.Title,
		Description: params.Body,
		Labels:      params.Labels,
	}
	if parent != "" {
		fields.Parent = &gojira.Parent{Key: parent}
	}

	created, resp, err := t.client.Issue.CreateWithContext(ctx, &gojira.Issue{Fields: fields})
	if err != nil {
		err = classify(resp, err)
		if parent != "" && isNotFound(err) {
			return nil, errs.NotFound(parent, string(tracker.Jira))
		}
		return nil, err
	}
	return &tracker.Created{ID: created.Key, URL: t.browseURL(created.Key)}, nil
}

// JQL builds the listing query.
func (t *Tracker) JQL(opts tracker.ListOptions) string {
	var clauses []string
	if t.cfg.ProjectKey != "" {
		clauses = append(clauses, fmt.Sprintf("project = %q", strings.ToUpper(t.cfg.ProjectKey)))
	}
	clauses = append(clauses, "statusCategory != Done")
	switch sprint := strings.TrimSpace(opts.Sprint); {
	case sprint == "":
	case strings.EqualFold(sprint, "current"):
		clauses = append(clauses, "sprint in openSprints()")
	default:
		clauses = append(clauses, fmt.Sprintf("sprint = %q", sprint))
	}
	if opts.Mine {
		clauses = append(clauses, "assignee = currentUser()")
	}
	return strings.Join(clauses, " AND ") + " ORDER BY updated DESC"
}

// ListIssues lists open issues, most recently updated first. A sprint
// name of "current" selects the open sprints.
func (t *Tracker) ListIssues(ctx context.Context, opts tracker.ListOptions) ([]tracker.ListItem, error) {
	jql := t.JQL(opts)
	limit := opts.Limit
	if limit <= 0 {
		limit = maxPageSize
	}

	items := make([]tracker.ListItem, 0, min(limit, maxPageSize))
	for len(items) < limit {
		searchOpts := &gojira.SearchOptions{
			StartAt:    len(items),
			MaxResults: min(limit-len(items), maxPageSize),
			Fields:     []string{"summary", "status", "updated"},
		}
		var page []gojira.Issue
		var total int
		err := t.read(ctx, func() (*gojira.Response, error) {
			var resp *gojira.Response
			var err error
			page, resp, err = t.client.Issue.SearchWithContext(ctx, jql, searchOpts)
			if resp != nil {
				total = resp.Total
			}
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, raw := range page {
			item := tracker.ListItem{ID: raw.Key, URL: t.browseURL(raw.Key), State: tracker.StateOpen}
			if f := raw.Fields; f != nil {
				item.Title = f.Summary
				item.UpdatedAt = formatTime(f.Updated)
				if f.Status != nil {
					item.State = t.states.Normalize(f.Status.Name)
				}
			}
			items = append(items, item)
		}
		if len(page) == 0 || len(items) >= total {
			break
		}
	}
	return tracker.Tag(items, tracker.TypeIssue), nil
}

// IssueExists probes a key.
func (t *Tracker) IssueExists(ctx context.Context, id string) (bool, error) {
	err := t.read(ctx, func() (*gojira.Response, error) {
		_, resp, err := t.client.Issue.GetWithContext(ctx, t.key(id), &gojira.GetQueryOptions{Fields: "key"})
		return resp, err
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
