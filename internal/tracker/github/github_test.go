package github

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/raphi011/loom/internal/cmd"
	"github.com/raphi011/loom/internal/errs"
	gh "github.com/raphi011/loom/internal/github"
	"github.com/raphi011/loom/internal/tracker"
)

// fakeGH replays canned gh output keyed by the joined arguments. Keys
// with a trailing "*" match any call starting with the prefix.
type fakeGH struct {
	responses map[string]string
	failures  map[string]string
	calls     []string
}

func (f *fakeGH) Output(_ context.Context, _ string, name string, args ...string) ([]byte, error) {
	key := strings.Join(args, " ")
	f.calls = append(f.calls, key)
	if stderr, ok := f.lookup(f.failures, key); ok {
		return nil, &cmd.Error{Name: name, Args: args, Stderr: stderr, Err: errors.New("exit status 1")}
	}
	if out, ok := f.lookup(f.responses, key); ok {
		return []byte(out), nil
	}
	return nil, &cmd.Error{Name: name, Args: args, Stderr: "unexpected gh call: " + key, Err: errors.New("exit status 1")}
}

func (f *fakeGH) lookup(m map[string]string, key string) (string, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.HasSuffix(k, "*") && strings.HasPrefix(key, strings.TrimSuffix(k, "*")) {
			return v, true
		}
	}
	return "", false
}

func newTracker(f *fakeGH) *Tracker {
	return New(&gh.CLI{Runner: f, Dir: "/src/web"})
}

const issueJSON = `{
  "number": 87,
  "title": "Add dark mode",
  "body": "Please",
  "state": "OPEN",
  "url": "https://github.com/acme/web/issues/87",
  "author": {"id": "MDQ6VXNlcjE=", "login": "octocat", "name": "The Octocat"},
  "assignees": [{"id": "", "login": "hubot", "name": ""}],
  "labels": [{"name": "ui", "color": "ff0000"}],
  "milestone": {"title": "v2"},
  "comments": [
    {"id": "IC_kwDOA", "author": {"login": "hubot"}, "body": "On it", "createdAt": "2026-01-02T10:00:00Z",
     "url": "https://github.com/acme/web/issues/87#issuecomment-1234567"}
  ]
}`

func TestGetIssue(t *testing.T) {
	t.Parallel()

	f := &fakeGH{responses: map[string]string{
		"issue view 87 --json " + issueViewFields: issueJSON,
	}}

	got, err := newTracker(f).GetIssue(context.Background(), "#87")
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}

	want := &tracker.Issue{
		ID:       "87",
		Title:    "Add dark mode",
		Body:     "Please",
		State:    tracker.StateOpen,
		URL:      "https://github.com/acme/web/issues/87",
		Provider: tracker.GitHub,
		Author: &tracker.Author{
			ID: "MDQ6VXNlcjE=", DisplayName: "The Octocat", Login: "octocat", URL: "https://github.com/octocat",
		},
		Assignees: []tracker.Author{{ID: "hubot", DisplayName: "hubot", Login: "hubot", URL: "https://github.com/hubot"}},
		Labels:    []tracker.Label{{Name: "ui", Color: "ff0000"}},
		Milestone: "v2",
		Comments: []tracker.Comment{{
			ID:        "1234567",
			Body:      "On it",
			Author:    &tracker.Author{ID: "hubot", DisplayName: "hubot", Login: "hubot", URL: "https://github.com/hubot"},
			URL:       "https://github.com/acme/web/issues/87#issuecomment-1234567",
			CreatedAt: "2026-01-02T10:00:00Z",
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetIssue mismatch (-want +got):\n%s", diff)
	}
}

func TestGetIssue_MalformedCommentURL(t *testing.T) {
	t.Parallel()

	broken := strings.Replace(issueJSON, "#issuecomment-1234567", "", 1)
	f := &fakeGH{responses: map[string]string{"issue view 87 --json " + issueViewFields: broken}}

	_, err := newTracker(f).GetIssue(context.Background(), "87")
	if err == nil || !strings.Contains(err.Error(), "#issuecomment-<id>") {
		t.Errorf("GetIssue error = %v, want missing fragment error", err)
	}
}

func TestGetIssue_NonNumeric(t *testing.T) {
	t.Parallel()

	f := &fakeGH{}
	_, err := newTracker(f).GetIssue(context.Background(), "ENG-123")
	if !errs.IsValidation(err) {
		t.Errorf("GetIssue error = %v, want validation error", err)
	}
	if len(f.calls) != 0 {
		t.Errorf("gh called for invalid id: %v", f.calls)
	}
}

func TestGetIssue_NotFound(t *testing.T) {
	t.Parallel()

	f := &fakeGH{failures: map[string]string{
		"issue view 999*": "GraphQL: Could not resolve to an issue or pull request with the number of 999.",
	}}
	_, err := newTracker(f).GetIssue(context.Background(), "999")
	if !errs.IsNotFound(err) {
		t.Errorf("GetIssue error = %v, want not found", err)
	}
}

func TestCommentIDFromURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://github.com/a/b/issues/1#issuecomment-42", "42", false},
		{"https://github.com/a/b/pull/1#issuecomment-7", "7", false},
		{"https://github.com/a/b/issues/1", "", true},
		{"https://github.com/a/b/issues/1#issuecomment-abc", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := CommentIDFromURL(tt.url)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("CommentIDFromURL(%q) = %q, %v; want %q, err=%v", tt.url, got, err, tt.want, tt.wantErr)
		}
	}
}

const restCommentJSON = `{"id": 42, "body": "%s", "user": {"id": 9, "login": "octocat", "avatar_url": "https://a/9", "html_url": "https://github.com/octocat"},
  "html_url": "https://github.com/acme/web/issues/87#issuecomment-42", "created_at": "2026-01-01T00:00:00Z", "updated_at": "2026-01-01T00:00:00Z"}`

func TestComments(t *testing.T) {
	t.Parallel()

	f := &fakeGH{responses: map[string]string{
		"api repos/{owner}/{repo}/issues/comments/42":                         strings.Replace(restCommentJSON, "%s", "hello", 1),
		"api repos/{owner}/{repo}/issues/87/comments -f body=new":             strings.Replace(restCommentJSON, "%s", "new", 1),
		"api -X PATCH repos/{owner}/{repo}/issues/comments/42 -f body=edited": strings.Replace(restCommentJSON, "%s", "edited", 1),
	}}
	tr := newTracker(f)
	ctx := context.Background()

	wantAuthor := &tracker.Author{ID: "9", DisplayName: "octocat", Login: "octocat", AvatarURL: "https://a/9", URL: "https://github.com/octocat"}

	got, err := tr.GetComment(ctx, "87", "42")
	if err != nil {
		t.Fatalf("GetComment: %v", err)
	}
	if got.ID != "42" || got.Body != "hello" {
		t.Errorf("GetComment = %+v", got)
	}
	if diff := cmp.Diff(wantAuthor, got.Author); diff != "" {
		t.Errorf("author mismatch (-want +got):\n%s", diff)
	}

	created, err := tr.CreateComment(ctx, "87", "new")
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	if created.Body != "new" {
		t.Errorf("CreateComment body = %q", created.Body)
	}

	updated, err := tr.UpdateComment(ctx, "87", "42", "edited")
	if err != nil {
		t.Fatalf("UpdateComment: %v", err)
	}
	if updated.Body != "edited" {
		t.Errorf("UpdateComment body = %q", updated.Body)
	}

	if _, err := tr.UpdateComment(ctx, "87", "IC_kwDOA", "x"); !errs.IsValidation(err) {
		t.Errorf("UpdateComment with node id error = %v, want validation error", err)
	}
}

func TestCreateChildIssue(t *testing.T) {
	t.Parallel()

	create := "issue create --title Child --body Details"
	t.Run("linked", func(t *testing.T) {
		t.Parallel()
		f := &fakeGH{responses: map[string]string{
			create:                    "https://github.com/acme/web/issues/90\n",
			"issue view 87 --json id": `{"id": "I_parent"}`,
			"issue view 90 --json id": `{"id": "I_child"}`,
			"api graphql -f query=" + addSubIssueMutation + " -f parent=I_parent -f child=I_child": `{"data": {}}`,
			"api graphql -f query=" + addSubIssueMutation + " -f child=I_child -f parent=I_parent": `{"data": {}}`,
		}}
		got, err := newTracker(f).CreateChildIssue(context.Background(), "87", tracker.CreateParams{Title: "Child", Body: "Details"})
		if err != nil {
			t.Fatalf("CreateChildIssue: %v", err)
		}
		if diff := cmp.Diff(&tracker.Created{ID: "90", URL: "https://github.com/acme/web/issues/90"}, got); diff != "" {
			t.Errorf("created mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("link failure keeps child", func(t *testing.T) {
		t.Parallel()
		f := &fakeGH{
			responses: map[string]string{
				create:                    "https://github.com/acme/web/issues/90\n",
				"issue view 87 --json id": `{"id": "I_parent"}`,
				"issue view 90 --json id": `{"id": "I_child"}`,
			},
			failures: map[string]string{"api graphql*": "GraphQL: sub-issues are not enabled"},
		}
		got, err := newTracker(f).CreateChildIssue(context.Background(), "87", tracker.CreateParams{Title: "Child", Body: "Details"})
		var linkErr *tracker.LinkError
		if !errors.As(err, &linkErr) {
			t.Fatalf("CreateChildIssue error = %v, want *tracker.LinkError", err)
		}
		if got == nil || got.ID != "90" || linkErr.Child.ID != "90" {
			t.Errorf("child = %+v, link child = %+v; want issue 90", got, linkErr.Child)
		}
		for _, c := range f.calls {
			if strings.Contains(c, "issue close") || strings.Contains(c, "issue delete") {
				t.Errorf("child was rolled back: %q", c)
			}
		}
	})
}

func TestListIssues(t *testing.T) {
	t.Parallel()

	f := &fakeGH{responses: map[string]string{
		"issue list --state open --json number,title,updatedAt,url,state --limit 5 --assignee @me": `[
			{"number": 3, "title": "Three", "updatedAt": "2026-01-03T00:00:00Z", "url": "u3", "state": "OPEN"}
		]`,
	}}

	got, err := newTracker(f).ListIssues(context.Background(), tracker.ListOptions{Limit: 5, Mine: true, Sprint: "ignored"})
	if err != nil {
		t.Fatalf("ListIssues: %v", err)
	}
	want := []tracker.ListItem{{ID: "3", Title: "Three", UpdatedAt: "2026-01-03T00:00:00Z", URL: "u3", State: tracker.StateOpen, Type: tracker.TypeIssue}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListIssues mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveNumber(t *testing.T) {
	t.Parallel()

	f := &fakeGH{
		responses: map[string]string{
			"api repos/{owner}/{repo}/issues/87": `{"number": 87}`,
			"api repos/{owner}/{repo}/issues/88": `{"number": 88, "pull_request": {"url": "x"}}`,
		},
		failures: map[string]string{"api repos/{owner}/{repo}/issues/99": "gh: Not Found (HTTP 404)"},
	}
	tr := newTracker(f)
	ctx := context.Background()

	if got, err := tr.ResolveNumber(ctx, "87"); err != nil || got != tracker.TypeIssue {
		t.Errorf("ResolveNumber(87) = %q, %v; want issue", got, err)
	}
	if got, err := tr.ResolveNumber(ctx, "88"); err != nil || got != tracker.TypePR {
		t.Errorf("ResolveNumber(88) = %q, %v; want pr", got, err)
	}
	if _, err := tr.ResolveNumber(ctx, "99"); !errs.IsNotFound(err) {
		t.Errorf("ResolveNumber(99) error = %v, want not found", err)
	}
	if ok, err := tr.IssueExists(ctx, "ENG-1"); ok || err != nil {
		t.Errorf("IssueExists(ENG-1) = %v, %v; want false, nil", ok, err)
	}
}

var _ tracker.Tracker = (*Tracker)(nil)
var _ tracker.PullRequestResolver = (*Tracker)(nil)

func TestCheck(t *testing.T) {
	t.Parallel()

	ok := newTracker(&fakeGH{responses: map[string]string{"auth status": "Logged in to github.com"}})
	if err := tracker.Check(context.Background(), ok); err != nil {
		t.Errorf("Check() = %v, want nil", err)
	}

	loggedOut := newTracker(&fakeGH{failures: map[string]string{"auth status": "You are not logged into any GitHub hosts."}})
	err := tracker.Check(context.Background(), loggedOut)
	if err != gh.ErrGHNotAuthenticated {
		t.Errorf("Check() = %v, want ErrGHNotAuthenticated", err)
	}
	if got := errs.KindOf(err); got != errs.KindUnauthenticated {
		t.Errorf("KindOf = %v, want unauthenticated", got)
	}
}
