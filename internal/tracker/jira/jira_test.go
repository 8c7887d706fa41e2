package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	gojira "github.com/andygrunwald/go-jira"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-cmp/cmp"

	"github.com/raphi011/loom/internal/errs"
	"github.com/raphi011/loom/internal/tracker"
)

func newTestTracker(t *testing.T, cfg Config, mux *http.ServeMux) *Tracker {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := gojira.NewClient(srv.Client(), srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	tr := NewWithClient(client, cfg)
	tr.NewBackOff = func() backoff.BackOff { return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2) }
	return tr
}

// offlineClient is for tests that never reach the network.
func offlineClient(t *testing.T) *gojira.Client {
	t.Helper()
	client, err := gojira.NewClient(nil, "https://jira.example.com")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func TestNew_Configuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing host", Config{APIToken: "x"}},
		{"missing token", Config{Host: "https://acme.atlassian.net"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(tt.cfg); !errs.IsConfiguration(err) {
				t.Errorf("New error = %v, want configuration error", err)
			}
		})
	}
}

const issueJSON = `{
	"id": "10001", "key": "PROJ-1",
	"fields": {
		"summary": "Dark mode", "description": "Body",
		"status": {"name": "In Review"},
		"issuetype": {"name": "Story"},
		"project": {"key": "PROJ"},
		"priority": {"name": "High"},
		"labels": ["ui"],
		"fixVersions": [{"name": "1.2"}],
		"reporter": {"accountId": "acc-1", "displayName": "Ada Lovelace", "emailAddress": "ada@acme.com", "avatarUrls": {"48x48": "https://a/ada"}},
		"assignee": {"name": "bob", "key": "JIRAUSER1", "displayName": ""},
		"comment": {"comments": [
			{"id": "10", "body": "LGTM", "created": "2026-01-02T10:00:00.000+0100", "updated": "2026-01-02T10:00:00.000+0100",
			 "author": {"accountId": "acc-2", "displayName": "Bob"}}
		]}
	}
}`

func TestGetIssue(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/api/2/issue/PROJ-1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, issueJSON)
	})
	tr := newTestTracker(t, Config{ProjectKey: "proj", DoneStatuses: []string{"Done", "Won't Do"}}, mux)

	// Bare numbers expand with the project key.
	got, err := tr.GetIssue(context.Background(), "1")
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}

	browse := tr.baseURL + "/browse/PROJ-1"
	want := &tracker.Issue{
		ID:        "PROJ-1",
		Title:     "Dark mode",
		Body:      "Body",
		State:     tracker.StateOpen,
		URL:       browse,
		Provider:  tracker.Jira,
		Author:    &tracker.Author{ID: "acc-1", DisplayName: "Ada Lovelace", Login: "ada@acme.com", AvatarURL: "https://a/ada"},
		Assignees: []tracker.Author{{ID: "JIRAUSER1", DisplayName: "bob", Login: "bob"}},
		Labels:    []tracker.Label{{Name: "ui"}},
		Milestone: "1.2",
		Comments: []tracker.Comment{{
			ID: "10", Body: "LGTM", URL: browse + "?focusedCommentId=10",
			CreatedAt: "2026-01-02T09:00:00Z", UpdatedAt: "2026-01-02T09:00:00Z",
			Author: &tracker.Author{ID: "acc-2", DisplayName: "Bob"},
		}},
		Extras: map[string]any{"issueType": "Story", "project": "PROJ", "stateName": "In Review", "priority": "High"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetIssue mismatch (-want +got):\n%s", diff)
	}
}

func TestStateTable(t *testing.T) {
	t.Parallel()

	tr := NewWithClient(offlineClient(t), Config{DoneStatuses: []string{"Shipped"}})
	if got := tr.states.Normalize("shipped"); got != tracker.StateClosed {
		t.Errorf("configured done status = %q, want closed", got)
	}
	if got := tr.states.Normalize("Done"); got != tracker.StateOpen {
		t.Errorf("Done with custom table = %q, want open", got)
	}

	def := NewWithClient(offlineClient(t), Config{})
	for _, s := range []string{"Done", "Closed", "Resolved"} {
		if got := def.states.Normalize(s); got != tracker.StateClosed {
			t.Errorf("default Normalize(%q) = %q, want closed", s, got)
		}
	}
}

func TestGetIssue_NotFound(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/api/2/issue/PROJ-9", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"errorMessages": ["Issue does not exist or you do not have permission to see it."]}`)
	})
	tr := newTestTracker(t, Config{}, mux)

	if _, err := tr.GetIssue(context.Background(), "proj-9"); !errs.IsNotFound(err) {
		t.Errorf("GetIssue error = %v, want not found", err)
	}
	found, err := tr.IssueExists(context.Background(), "PROJ-9")
	if found || err != nil {
		t.Errorf("IssueExists = %v, %v; want false, nil", found, err)
	}
}

func TestErrorKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   errs.Kind
	}{
		{http.StatusUnauthorized, errs.KindUnauthenticated},
		{http.StatusForbidden, errs.KindUnauthenticated},
		{http.StatusTooManyRequests, errs.KindRateLimited},
		{http.StatusBadGateway, errs.KindUnreachable},
		{http.StatusBadRequest, errs.KindUnexpected},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.status), func(t *testing.T) {
			t.Parallel()
			mux := http.NewServeMux()
			mux.HandleFunc("GET /rest/api/2/issue/PROJ-1", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, `{"errorMessages": ["nope"]}`)
			})
			tr := newTestTracker(t, Config{}, mux)

			_, err := tr.IssueExists(context.Background(), "PROJ-1")
			if got := errs.KindOf(err); got != tt.want {
				t.Errorf("KindOf(%v) = %v, want %v", err, got, tt.want)
			}
		})
	}
}

func TestReadsRetryServerErrors(t *testing.T) {
	t.Parallel()

	var gets, posts atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/api/2/issue/PROJ-1", func(w http.ResponseWriter, r *http.Request) {
		if gets.Add(1) == 1 {
			writeJSON(w, http.StatusServiceUnavailable, `{}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"key": "PROJ-1"}`)
	})
	mux.HandleFunc("POST /rest/api/2/issue/PROJ-1/comment", func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
		writeJSON(w, http.StatusServiceUnavailable, `{}`)
	})
	tr := newTestTracker(t, Config{}, mux)
	ctx := context.Background()

	if found, err := tr.IssueExists(ctx, "PROJ-1"); !found || err != nil {
		t.Errorf("IssueExists = %v, %v; want true after retry", found, err)
	}
	if _, err := tr.CreateComment(ctx, "PROJ-1", "x"); errs.KindOf(err) != errs.KindUnreachable {
		t.Errorf("CreateComment error = %v, want unreachable", err)
	}
	if gets.Load() != 2 || posts.Load() != 1 {
		t.Errorf("gets = %d, posts = %d; want 2 and 1", gets.Load(), posts.Load())
	}
}

func TestJQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		project string
		opts    tracker.ListOptions
		want    string
	}{
		{
			name:    "project only",
			project: "proj",
			want:    `project = "PROJ" AND statusCategory != Done ORDER BY updated DESC`,
		},
		{
			name: "no project",
			want: `statusCategory != Done ORDER BY updated DESC`,
		},
		{
			name:    "sprint and mine",
			project: "PROJ",
			opts:    tracker.ListOptions{Sprint: "Sprint 12", Mine: true},
			want:    `project = "PROJ" AND statusCategory != Done AND sprint = "Sprint 12" AND assignee = currentUser() ORDER BY updated DESC`,
		},
		{
			name:    "current sprint",
			project: "PROJ",
			opts:    tracker.ListOptions{Sprint: "current"},
			want:    `project = "PROJ" AND statusCategory != Done AND sprint in openSprints() ORDER BY updated DESC`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tr := NewWithClient(offlineClient(t), Config{ProjectKey: tt.project})
			if got := tr.JQL(tt.opts); got != tt.want {
				t.Errorf("JQL = %s\nwant  %s", got, tt.want)
			}
		})
	}
}

func TestListIssues_Paginates(t *testing.T) {
	t.Parallel()

	issues := []string{
		`{"key": "PROJ-3", "fields": {"summary": "Three", "status": {"name": "To Do"}, "updated": "2026-01-03T10:00:00.000+0000"}}`,
		`{"key": "PROJ-2", "fields": {"summary": "Two", "status": {"name": "In Progress"}, "updated": "2026-01-02T10:00:00.000+0000"}}`,
		`{"key": "PROJ-1", "fields": {"summary": "One", "status": {"name": "To Do"}, "updated": "2026-01-01T10:00:00.000+0000"}}`,
	}
	var jqls []string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/api/2/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		jqls = append(jqls, q.Get("jql"))
		start, _ := strconv.Atoi(q.Get("startAt"))
		// The server pages in twos regardless of maxResults.
		end := min(start+2, len(issues))
		page := "["
		for i := start; i < end; i++ {
			if i > start {
				page += ","
			}
			page += issues[i]
		}
		page += "]"
		writeJSON(w, http.StatusOK, fmt.Sprintf(`{"startAt": %d, "maxResults": 2, "total": %d, "issues": %s}`, start, len(issues), page))
	})
	tr := newTestTracker(t, Config{ProjectKey: "PROJ"}, mux)

	got, err := tr.ListIssues(context.Background(), tracker.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("ListIssues: %v", err)
	}
	var ids []string
	for _, it := range got {
		ids = append(ids, it.ID)
		if it.Type != tracker.TypeIssue {
			t.Errorf("%s type = %q, want issue", it.ID, it.Type)
		}
	}
	if diff := cmp.Diff([]string{"PROJ-3", "PROJ-2", "PROJ-1"}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if got[0].UpdatedAt != "2026-01-03T10:00:00Z" {
		t.Errorf("UpdatedAt = %q, want RFC 3339", got[0].UpdatedAt)
	}
	if len(jqls) != 2 {
		t.Errorf("search calls = %d, want 2", len(jqls))
	}
}

func TestCreateChildIssue(t *testing.T) {
	t.Parallel()

	var body struct {
		Fields struct {
			Project struct {
				Key string `json:"key"`
			} `json:"project"`
			IssueType struct {
				Name string `json:"name"`
			} `json:"issuetype"`
			Summary string `json:"summary"`
			Parent  struct {
				Key string `json:"key"`
			} `json:"parent"`
		} `json:"fields"`
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /rest/api/2/issue", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		writeJSON(w, http.StatusCreated, `{"id": "10002", "key": "OPS-8", "self": "x"}`)
	})
	tr := newTestTracker(t, Config{ProjectKey: "PROJ"}, mux)

	got, err := tr.CreateChildIssue(context.Background(), "ops-7", tracker.CreateParams{Title: "Child"})
	if err != nil {
		t.Fatalf("CreateChildIssue: %v", err)
	}
	if got.ID != "OPS-8" || got.URL != tr.baseURL+"/browse/OPS-8" {
		t.Errorf("created = %+v", got)
	}
	f := body.Fields
	if f.Project.Key != "OPS" || f.Parent.Key != "OPS-7" || f.IssueType.Name != DefaultSubtaskType || f.Summary != "Child" {
		t.Errorf("request fields = %+v", f)
	}
}

func TestCreateIssue_RequiresProject(t *testing.T) {
	t.Parallel()

	tr := NewWithClient(offlineClient(t), Config{})
	if _, err := tr.CreateIssue(context.Background(), tracker.CreateParams{Title: "x"}); !errs.IsConfiguration(err) {
		t.Errorf("CreateIssue error = %v, want configuration error", err)
	}
	if _, err := tr.CreateChildIssue(context.Background(), "12", tracker.CreateParams{Title: "x"}); !errs.IsConfiguration(err) {
		t.Errorf("CreateChildIssue error = %v, want configuration error", err)
	}
}

func TestComments(t *testing.T) {
	t.Parallel()

	comment := func(body string) string {
		return fmt.Sprintf(`{"id": "10", "body": %q, "created": "2026-01-02T10:00:00.000+0000", "updated": "2026-01-02T11:00:00.000+0000", "author": {"accountId": "acc-1", "displayName": "Ada"}}`, body)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/api/2/issue/PROJ-1/comment/10", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, comment("hi"))
	})
	mux.HandleFunc("POST /rest/api/2/issue/PROJ-1/comment", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, comment("new"))
	})
	mux.HandleFunc("PUT /rest/api/2/issue/PROJ-1/comment/10", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Body string `json:"body"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		writeJSON(w, http.StatusOK, comment(in.Body))
	})
	mux.HandleFunc("GET /rest/api/2/issue/PROJ-1/comment/11", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"errorMessages": ["no comment"]}`)
	})
	tr := newTestTracker(t, Config{}, mux)
	ctx := context.Background()

	got, err := tr.GetComment(ctx, "PROJ-1", "10")
	if err != nil {
		t.Fatalf("GetComment: %v", err)
	}
	want := &tracker.Comment{
		ID: "10", Body: "hi", URL: tr.baseURL + "/browse/PROJ-1?focusedCommentId=10",
		CreatedAt: "2026-01-02T10:00:00Z", UpdatedAt: "2026-01-02T11:00:00Z",
		Author: &tracker.Author{ID: "acc-1", DisplayName: "Ada"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetComment mismatch (-want +got):\n%s", diff)
	}

	if c, err := tr.CreateComment(ctx, "PROJ-1", "new"); err != nil || c.Body != "new" {
		t.Errorf("CreateComment = %+v, %v", c, err)
	}
	if c, err := tr.UpdateComment(ctx, "PROJ-1", "10", "edited"); err != nil || c.Body != "edited" {
		t.Errorf("UpdateComment = %+v, %v", c, err)
	}
	if _, err := tr.GetComment(ctx, "PROJ-1", "11"); !errs.IsNotFound(err) {
		t.Errorf("GetComment(11) error = %v, want not found", err)
	}
}

var _ tracker.Tracker = (*Tracker)(nil)
