// Package linear implements the issue tracker contract for Linear over
// its GraphQL API.
//
// Issues are addressed by their team-prefixed identifier ("ENG-123").
// Creating an issue needs a team; child issues inherit the team from the
// parent identifier's prefix unless one is given explicitly.
package linear

import (
	"context"
	"strings"

	"github.com/raphi011/loom/internal/errs"
	"github.com/raphi011/loom/internal/tracker"
)

// Config configures the adapter.
type Config struct {
	APIKey string
	// TeamKey is the default team for new top-level issues.
	TeamKey  string
	Endpoint string
}

// Tracker is the Linear adapter.
type Tracker struct {
	client  *Client
	teamKey string
	states  tracker.StateTable
}

// New returns a Linear tracker. A missing API key is a configuration
// error, reported before any request is made.
func New(cfg Config) (*Tracker, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errs.Configuration("Linear API token is not configured (set issue_management.linear.api_token or LINEAR_API_TOKEN)")
	}
	client := NewClient(cfg.APIKey)
	if cfg.Endpoint != "" {
		client.Endpoint = cfg.Endpoint
	}
	return NewWithClient(client, cfg.TeamKey), nil
}

// NewWithClient returns a Linear tracker using client.
func NewWithClient(client *Client, teamKey string) *Tracker {
	return &Tracker{client: client, teamKey: teamKey, states: tracker.LinearStates}
}

func (t *Tracker) Provider() tracker.Provider { return tracker.Linear }

// SupportsPullRequests is false: Linear has no pull requests of its own.
func (t *Tracker) SupportsPullRequests() bool { return false }

const userFields = `id name displayName avatarUrl url`

const commentFields = `id body createdAt updatedAt url user { ` + userFields + ` }`

type linearUser struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
	URL         string `json:"url"`
}

func normalizeAuthor(u *linearUser) *tracker.Author {
	if u == nil {
		return nil
	}
	a := &tracker.Author{
		ID:          u.ID,
		DisplayName: u.Name,
		Login:       u.DisplayName,
		AvatarURL:   u.AvatarURL,
		URL:         u.URL,
	}
	if a.ID == "" {
		a.ID = u.DisplayName
	}
	if a.DisplayName == "" {
		a.DisplayName = u.DisplayName
	}
	return a
}

type linearComment struct {
	ID        string      `json:"id"`
	Body      string      `json:"body"`
	CreatedAt string      `json:"createdAt"`
	UpdatedAt string      `json:"updatedAt"`
	URL       string      `json:"url"`
	User      *linearUser `json:"user"`
}

func (c *linearComment) normalize() *tracker.Comment {
	return &tracker.Comment{
		ID:        c.ID,
		Body:      c.Body,
		Author:    normalizeAuthor(c.User),
		URL:       c.URL,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

const issueQuery = `query Issue($id: String!) {
  issue(id: $id) {
    id identifier title description url priorityLabel
    state { name type }
    creator { ` + userFields + ` }
    assignee { ` + userFields + ` }
    labels { nodes { name color } }
    project { name }
    cycle { name number }
    comments { nodes { ` + commentFields + ` } }
  }
}`

type linearIssue struct {
	ID            string `json:"id"`
	Identifier    string `json:"identifier"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	URL           string `json:"url"`
	PriorityLabel string `json:"priorityLabel"`
	State         struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"state"`
	Creator  *linearUser `json:"creator"`
	Assignee *linearUser `json:"assignee"`
	Labels   struct {
		Nodes []struct {
			Name  string `json:"name"`
			Color string `json:"color"`
		} `json:"nodes"`
	} `json:"labels"`
	Project *struct {
		Name string `json:"name"`
	} `json:"project"`
	Cycle *struct {
		Name   string `json:"name"`
		Number int    `json:"number"`
	} `json:"cycle"`
	Comments struct {
		Nodes []linearComment `json:"nodes"`
	} `json:"comments"`
}

// GetIssue fetches an issue by identifier with its comments.
func (t *Tracker) GetIssue(ctx context.Context, id string) (*tracker.Issue, error) {
	var data struct {
		Issue *linearIssue `json:"issue"`
	}
	if err := t.client.Query(ctx, issueQuery, map[string]any{"id": id}, &data); err != nil {
		if isNotFound(err) {
			return nil, errs.NotFound(id, string(tracker.Linear))
		}
		return nil, err
	}
	if data.Issue == nil {
		return nil, errs.NotFound(id, string(tracker.Linear))
	}
	raw := data.Issue

	issue := &tracker.Issue{
		ID:       raw.Identifier,
		Title:    raw.Title,
		Body:     raw.Description,
		State:    t.states.Normalize(raw.State.Name),
		URL:      raw.URL,
		Provider: tracker.Linear,
		Author:   normalizeAuthor(raw.Creator),
		Extras:   map[string]any{"stateName": raw.State.Name},
	}
	if a := normalizeAuthor(raw.Assignee); a != nil {
		issue.Assignees = []tracker.Author{*a}
	}
	for _, l := range raw.Labels.Nodes {
		issue.Labels = append(issue.Labels, tracker.Label{Name: l.Name, Color: l.Color})
	}
	if raw.Project != nil {
		issue.Extras["project"] = raw.Project.Name
	}
	if raw.Cycle != nil {
		issue.Milestone = raw.Cycle.Name
		issue.Extras["cycle"] = raw.Cycle.Number
	}
	if raw.PriorityLabel != "" {
		issue.Extras["priority"] = raw.PriorityLabel
	}
	for i := range raw.Comments.Nodes {
		issue.Comments = append(issue.Comments, *raw.Comments.Nodes[i].normalize())
	}
	return issue, nil
}

const commentQuery = `query Comment($id: String!) { comment(id: $id) { ` + commentFields + ` } }`

// GetComment fetches a comment by id; Linear comment ids are global.
func (t *Tracker) GetComment(ctx context.Context, issueID, commentID string) (*tracker.Comment, error) {
	var data struct {
		Comment *linearComment `json:"comment"`
	}
	if err := t.client.Query(ctx, commentQuery, map[string]any{"id": commentID}, &data); err != nil {
		if isNotFound(err) {
			return nil, errs.NotFound("comment "+commentID, string(tracker.Linear))
		}
		return nil, err
	}
	if data.Comment == nil {
		return nil, errs.NotFound("comment "+commentID, string(tracker.Linear))
	}
	return data.Comment.normalize(), nil
}

const commentCreateMutation = `mutation CommentCreate($issueId: String!, $body: String!) {
  commentCreate(input: {issueId: $issueId, body: $body}) { success comment { ` + commentFields + ` } }
}`

// CreateComment adds a comment to an issue.
func (t *Tracker) CreateComment(ctx context.Context, issueID, body string) (*tracker.Comment, error) {
	var data struct {
		CommentCreate struct {
			Success bool           `json:"success"`
			Comment *linearComment `json:"comment"`
		} `json:"commentCreate"`
	}
	if err := t.client.Mutate(ctx, commentCreateMutation, map[string]any{"issueId": issueID, "body": body}, &data); err != nil {
		return nil, err
	}
	if !data.CommentCreate.Success || data.CommentCreate.Comment == nil {
		return nil, &Error{Message: "commentCreate was not successful"}
	}
	return data.CommentCreate.Comment.normalize(), nil
}

const commentUpdateMutation = `mutation CommentUpdate($id: String!, $body: String!) {
  commentUpdate(id: $id, input: {body: $body}) { success comment { ` + commentFields + ` } }
}`

// UpdateComment replaces the body of a comment.
func (t *Tracker) UpdateComment(ctx context.Context, issueID, commentID, body string) (*tracker.Comment, error) {
	var data struct {
		CommentUpdate struct {
			Success bool           `json:"success"`
			Comment *linearComment `json:"comment"`
		} `json:"commentUpdate"`
	}
	if err := t.client.Mutate(ctx, commentUpdateMutation, map[string]any{"id": commentID, "body": body}, &data); err != nil {
		if isNotFound(err) {
			return nil, errs.NotFound("comment "+commentID, string(tracker.Linear))
		}
		return nil, err
	}
	if !data.CommentUpdate.Success || data.CommentUpdate.Comment == nil {
		return nil, &Error{Message: "commentUpdate was not successful"}
	}
	return data.CommentUpdate.Comment.normalize(), nil
}

// CreateIssue creates a top-level issue in params.TeamKey or the
// configured team.
func (t *Tracker) CreateIssue(ctx context.Context, params tracker.CreateParams) (*tracker.Created, error) {
	teamKey := params.TeamKey
	if teamKey == "" {
		teamKey = t.teamKey
	}
	if teamKey == "" {
		return nil, errs.Configuration("teamKey is required for issue creation (set issue_management.linear.team_id)")
	}
	return t.createIssue(ctx, teamKey, "", params)
}

// CreateChildIssue creates an issue under parentID. Without an explicit
// team key the parent's prefix is used ("ENG" from "ENG-123").
func (t *Tracker) CreateChildIssue(ctx context.Context, parentID string, params tracker.CreateParams) (*tracker.Created, error) {
	teamKey := params.TeamKey
	if teamKey == "" {
		prefix, ok := tracker.TeamPrefix(parentID)
		if !ok {
			return nil, errs.Configuration("teamKey is required for child issue creation")
		}
		teamKey = prefix
	}

	var data struct {
		Issue *struct {
			ID string `json:"id"`
		} `json:"issue"`
	}
	if err := t.client.Query(ctx, `query ParentIssue($id: String!) { issue(id: $id) { id } }`, map[string]any{"id": parentID}, &data); err != nil {
		if isNotFound(err) {
			return nil, errs.NotFound(parentID, string(tracker.Linear))
		}
		return nil, err
	}
	if data.Issue == nil {
		return nil, errs.NotFound(parentID, string(tracker.Linear))
	}
	return t.createIssue(ctx, teamKey, data.Issue.ID, params)
}

const teamQuery = `query Team($key: String!) { teams(filter: {key: {eq: $key}}) { nodes { id key } } }`

func (t *Tracker) teamID(ctx context.Context, key string) (string, error) {
	var data struct {
		Teams struct {
			Nodes []struct {
				ID string `json:"id"`
			} `json:"nodes"`
		} `json:"teams"`
	}
	if err := t.client.Query(ctx, teamQuery, map[string]any{"key": strings.ToUpper(key)}, &data); err != nil {
		return "", err
	}
	if len(data.Teams.Nodes) == 0 {
		return "", errs.Configuration("Linear team %q not found", key)
	}
	return data.Teams.Nodes[0].ID, nil
}

const issueCreateMutation = `mutation IssueCreate($input: IssueCreateInput!) {
  issueCreate(input: $input) { success issue { identifier url } }
}`

func (t *Tracker) createIssue(ctx context.Context, teamKey, parentUUID string, params tracker.CreateParams) (*tracker.Created, error) {
	if strings.TrimSpace(params.Title) == "" {
		return nil, errs.Validation("issue title is required")
	}
	teamID, err := t.teamID(ctx, teamKey)
	if err != nil {
		return nil, err
	}
	input := map[string]any{
		"teamId":      teamID,
		"title":       params.Title,
		"description": params.Body,
	}
	if parentUUID != "" {
		input["parentId"] = parentUUID
	}

	var data struct {
		IssueCreate struct {
			Success bool `json:"success"`
			Issue   *struct {
				Identifier string `json:"identifier"`
				URL        string `json:"url"`
			} `json:"issue"`
		} `json:"issueCreate"`
	}
	if err := t.client.Mutate(ctx, issueCreateMutation, map[string]any{"input": input}, &data); err != nil {
		return nil, err
	}
	if !data.IssueCreate.Success || data.IssueCreate.Issue == nil {
		return nil, &Error{Message: "issueCreate was not successful"}
	}
	return &tracker.Created{ID: data.IssueCreate.Issue.Identifier, URL: data.IssueCreate.Issue.URL}, nil
}

const listQuery = `query Issues($first: Int!, $filter: IssueFilter) {
  issues(first: $first, orderBy: updatedAt, filter: $filter) {
    nodes { identifier title updatedAt url state { name } }
  }
}`

// ListIssues lists open issues of the configured team, most recently
// updated first. Sprint is ignored.
func (t *Tracker) ListIssues(ctx context.Context, opts tracker.ListOptions) ([]tracker.ListItem, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 250 {
		limit = 250
	}
	filter := map[string]any{
		"state": map[string]any{"type": map[string]any{"nin": []string{"completed", "canceled"}}},
	}
	if t.teamKey != "" {
		filter["team"] = map[string]any{"key": map[string]any{"eq": strings.ToUpper(t.teamKey)}}
	}
	if opts.Mine {
		filter["assignee"] = map[string]any{"isMe": map[string]any{"eq": true}}
	}

	var data struct {
		Issues struct {
			Nodes []struct {
				Identifier string `json:"identifier"`
				Title      string `json:"title"`
				UpdatedAt  string `json:"updatedAt"`
				URL        string `json:"url"`
				State      struct {
					Name string `json:"name"`
				} `json:"state"`
			} `json:"nodes"`
		} `json:"issues"`
	}
	if err := t.client.Query(ctx, listQuery, map[string]any{"first": limit, "filter": filter}, &data); err != nil {
		return nil, err
	}

	items := make([]tracker.ListItem, 0, len(data.Issues.Nodes))
	for _, n := range data.Issues.Nodes {
		items = append(items, tracker.ListItem{
			ID:        n.Identifier,
			Title:     n.Title,
			UpdatedAt: n.UpdatedAt,
			URL:       n.URL,
			State:     t.states.Normalize(n.State.Name),
		})
	}
	return tracker.Tag(items, tracker.TypeIssue), nil
}

// IssueExists probes an identifier.
func (t *Tracker) IssueExists(ctx context.Context, id string) (bool, error) {
	var data struct {
		Issue *struct {
			ID string `json:"id"`
		} `json:"issue"`
	}
	if err := t.client.Query(ctx, `query Exists($id: String!) { issue(id: $id) { id } }`, map[string]any{"id": id}, &data); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return data.Issue != nil, nil
}
