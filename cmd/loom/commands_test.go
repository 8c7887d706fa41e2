package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/raphi011/loom/internal/backend"
	"github.com/raphi011/loom/internal/cmd"
	"github.com/raphi011/loom/internal/config"
	"github.com/raphi011/loom/internal/errs"
	gh "github.com/raphi011/loom/internal/github"
	"github.com/raphi011/loom/internal/identifier"
	"github.com/raphi011/loom/internal/port"
	"github.com/raphi011/loom/internal/tracker"
)

func TestDescribe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		p    identifier.Parsed
		want string
	}{
		{identifier.Parsed{Type: identifier.TypeIssue, Number: "ENG-123"}, "issue ENG-123"},
		{identifier.Parsed{Type: identifier.TypePR, Number: "45"}, "pr 45"},
		{identifier.Parsed{Type: identifier.TypeBranch, BranchName: "feat/x"}, "branch feat/x"},
		{identifier.Parsed{Type: identifier.TypeDescription}, "description"},
	}
	for _, tt := range tests {
		if got := describe(&tt.p); got != tt.want {
			t.Errorf("describe(%+v) = %q, want %q", tt.p, got, tt.want)
		}
	}
}

func TestPortOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		p    identifier.Parsed
		want port.Options
	}{
		{"issue", identifier.Parsed{Type: identifier.TypeIssue, Number: "MARK-324"}, port.Options{IssueNumber: "MARK-324"}},
		{"pr", identifier.Parsed{Type: identifier.TypePR, Number: "45"}, port.Options{PRNumber: 45}},
		{"branch", identifier.Parsed{Type: identifier.TypeBranch, BranchName: "main"}, port.Options{BranchName: "main"}},
		{"description", identifier.Parsed{Type: identifier.TypeDescription}, port.Options{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tt.want, portOptions(&tt.p)); diff != "" {
				t.Errorf("portOptions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDeriveWorkspace(t *testing.T) {
	t.Parallel()

	branchPort, err := port.ForBranch("feat/dark-mode", 3000)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		p      identifier.Parsed
		title  string
		format string
		want   *workspace
	}{
		{
			name:  "issue",
			p:     identifier.Parsed{Type: identifier.TypeIssue, Number: "87"},
			title: "Fix login redirect",
			want: &workspace{
				Type: identifier.TypeIssue, ID: "87", Title: "Fix login redirect",
				Branch: "issue-87-fix-login-redirect", Directory: "issue-87-fix-login-redirect", Port: 3087,
			},
		},
		{
			name:   "issue with custom format",
			p:      identifier.Parsed{Type: identifier.TypeIssue, Number: "ENG-12"},
			title:  "Dark mode",
			format: "{id}/{slug}",
			want: &workspace{
				Type: identifier.TypeIssue, ID: "ENG-12", Title: "Dark mode",
				Branch: "ENG-12/dark-mode", Directory: "ENG-12-dark-mode", Port: 3012,
			},
		},
		{
			name: "pr",
			p:    identifier.Parsed{Type: identifier.TypePR, Number: "45"},
			want: &workspace{Type: identifier.TypePR, ID: "45", Branch: "pr-45", Directory: "pr-45_pr_45", Port: 3045},
		},
		{
			name: "branch",
			p:    identifier.Parsed{Type: identifier.TypeBranch, BranchName: "feat/dark-mode"},
			want: &workspace{Type: identifier.TypeBranch, Branch: "feat/dark-mode", Directory: "feat-dark-mode", Port: branchPort},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := deriveWorkspace(&tt.p, tt.title, tt.format, 3000)
			if err != nil {
				t.Fatalf("deriveWorkspace: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("deriveWorkspace mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDeriveWorkspace_Description(t *testing.T) {
	t.Parallel()

	p := &identifier.Parsed{Type: identifier.TypeDescription, OriginalInput: "add dark mode to settings"}
	if _, err := deriveWorkspace(p, "", "", 3000); !errs.IsValidation(err) {
		t.Errorf("error = %v, want ValidationError", err)
	}
}

func TestWriteIssues(t *testing.T) {
	t.Parallel()

	items := []tracker.ListItem{
		{ID: "ENG-1", Title: "Dark mode", UpdatedAt: "2026-02-01T00:00:00Z", State: tracker.StateOpen, Type: tracker.TypeIssue},
		{ID: "7", Title: "Bump deps", UpdatedAt: "2026-01-01T00:00:00Z", State: tracker.StateOpen, Type: tracker.TypePR},
	}
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("pipe", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		writeIssues(&buf, items, false, now)
		want := "issue\tENG-1\topen\t2026-02-01T00:00:00Z\tDark mode\t\n" +
			"pr\t7\topen\t2026-01-01T00:00:00Z\tBump deps\t\n"
		if got := buf.String(); got != want {
			t.Errorf("rows = %q, want %q", got, want)
		}
	})

	t.Run("terminal", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		writeIssues(&buf, items, true, now)
		if !strings.Contains(buf.String(), "TITLE") {
			t.Errorf("terminal output has no table header:\n%s", buf.String())
		}
	})

	t.Run("terminal empty", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		writeIssues(&buf, nil, true, now)
		if got := buf.String(); got != "No open issues or pull requests\n" {
			t.Errorf("empty output = %q", got)
		}
	})
}

func TestCommentID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "1234567", want: "1234567"},
		{raw: "https://github.com/acme/web/issues/87#issuecomment-1234567", want: "1234567"},
		{raw: "https://github.com/acme/web/issues/87", wantErr: true},
		{raw: "  ", wantErr: true},
	}
	for _, tt := range tests {
		got, err := commentID(tt.raw)
		if tt.wantErr {
			if !errs.IsValidation(err) {
				t.Errorf("commentID(%q) error = %v, want ValidationError", tt.raw, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("commentID(%q) = %q, %v; want %q", tt.raw, got, err, tt.want)
		}
	}
}

func TestCommentBody(t *testing.T) {
	t.Parallel()

	got, err := commentBody("-", strings.NewReader("  from stdin\n"))
	if err != nil || got != "from stdin" {
		t.Errorf("commentBody(-) = %q, %v", got, err)
	}
	got, err = commentBody("inline", strings.NewReader("ignored"))
	if err != nil || got != "inline" {
		t.Errorf("commentBody(inline) = %q, %v", got, err)
	}
	if _, err := commentBody("-", strings.NewReader(" \n")); !errs.IsValidation(err) {
		t.Errorf("empty stdin error = %v, want ValidationError", err)
	}
}

func TestCreateParams(t *testing.T) {
	t.Parallel()

	got, err := createParams("dark mode", "body", " eng ", []string{"ui"})
	if err != nil {
		t.Fatal(err)
	}
	want := tracker.CreateParams{Title: "Dark mode", Body: "body", Labels: []string{"ui"}, TeamKey: "ENG"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("createParams mismatch (-want +got):\n%s", diff)
	}

	got, err = createParams(" iOS build", "", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "iOS build" {
		t.Errorf("title = %q, want capitalization suppressed", got.Title)
	}

	if _, err := createParams("   ", "", "", nil); !errs.IsValidation(err) {
		t.Errorf("blank title error = %v, want ValidationError", err)
	}
}

type createTracker struct {
	tracker.Tracker
	parent string
	err    error
}

func (c *createTracker) CreateIssue(_ context.Context, p tracker.CreateParams) (*tracker.Created, error) {
	return &tracker.Created{ID: "1", URL: "https://example.com/1"}, nil
}

func (c *createTracker) CreateChildIssue(_ context.Context, parent string, p tracker.CreateParams) (*tracker.Created, error) {
	c.parent = parent
	child := &tracker.Created{ID: "2", URL: "https://example.com/2"}
	if c.err != nil {
		return child, &tracker.LinkError{ParentID: parent, Child: child, Err: c.err}
	}
	return child, nil
}

func TestCreateIssue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	top, err := createIssue(ctx, &createTracker{}, "", tracker.CreateParams{Title: "A"})
	if err != nil || top.ID != "1" {
		t.Errorf("top-level = %+v, %v", top, err)
	}

	tr := &createTracker{}
	child, err := createIssue(ctx, tr, issueID("#87"), tracker.CreateParams{Title: "B"})
	if err != nil || child.ID != "2" || tr.parent != "87" {
		t.Errorf("child = %+v, %v (parent %q)", child, err, tr.parent)
	}

	failing := &createTracker{err: errors.New("sub-issue mutation failed")}
	child, err = createIssue(ctx, failing, "87", tracker.CreateParams{Title: "C"})
	var linkErr *tracker.LinkError
	if !errors.As(err, &linkErr) {
		t.Fatalf("error = %v, want *tracker.LinkError", err)
	}
	if child == nil || child.ID != "2" {
		t.Errorf("child = %+v, want the created child alongside the link error", child)
	}
}

type loggedOutGH struct{ calls []string }

func (r *loggedOutGH) Output(_ context.Context, _ string, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, strings.Join(args, " "))
	return nil, &cmd.Error{Name: name, Args: args, Stderr: "You are not logged into any GitHub hosts.", Err: errors.New("exit status 4")}
}

func TestReadyTracker_ChecksCredentials(t *testing.T) {
	t.Parallel()

	runner := &loggedOutGH{}
	settings := config.Default()
	p := &project{root: t.TempDir(), settings: &settings, backends: &backend.Factory{Runner: runner}}

	_, err := p.readyTracker(context.Background())
	if err != gh.ErrGHNotAuthenticated {
		t.Fatalf("readyTracker error = %v, want ErrGHNotAuthenticated", err)
	}
	if diff := cmp.Diff([]string{"auth status"}, runner.calls); diff != "" {
		t.Errorf("gh calls mismatch (-want +got):\n%s", diff)
	}
}
