package tracker

import (
	"context"
	"errors"
	"testing"
)

func TestStateTables(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		table  StateTable
		status string
		want   State
	}{
		{"github open", GitHubStates, "OPEN", StateOpen},
		{"github closed", GitHubStates, "CLOSED", StateClosed},
		{"linear done", LinearStates, "Done", StateClosed},
		{"linear canceled", LinearStates, "Canceled", StateClosed},
		{"linear todo", LinearStates, "Todo", StateOpen},
		{"linear in progress", LinearStates, "In Progress", StateOpen},
		{"jira resolved", JiraStates, "resolved", StateClosed},
		{"jira in review", JiraStates, "In Review", StateOpen},
		{"bitbucket wontfix", BitbucketStates, "wontfix", StateClosed},
		{"bitbucket new", BitbucketStates, "new", StateOpen},
		{"configured done", JiraStates.WithClosed([]string{"Shipped"}), "Shipped", StateClosed},
		{"configured replaces defaults", JiraStates.WithClosed([]string{"Shipped"}), "Done", StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.table.Normalize(tt.status); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestTeamPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id     string
		want   string
		wantOK bool
	}{
		{"ENG-123", "ENG", true},
		{"eng-5", "ENG", true},
		{"E-12", "", false},
		{"123", "", false},
		{"1AB-2", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			t.Parallel()
			got, ok := TeamPrefix(tt.id)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("TeamPrefix(%q) = (%q, %v), want (%q, %v)", tt.id, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseProvider(t *testing.T) {
	t.Parallel()

	if p, err := ParseProvider(""); err != nil || p != GitHub {
		t.Errorf("ParseProvider(\"\") = %q, %v; want github", p, err)
	}
	if p, err := ParseProvider(" Linear "); err != nil || p != Linear {
		t.Errorf("ParseProvider(Linear) = %q, %v", p, err)
	}
	if _, err := ParseProvider("trello"); err == nil {
		t.Error("ParseProvider(trello) succeeded, want error")
	}
}

func TestTag(t *testing.T) {
	t.Parallel()

	items := Tag([]ListItem{{ID: "1"}, {ID: "2", Type: TypeIssue}}, TypePR)
	for _, it := range items {
		if it.Type != TypePR {
			t.Errorf("item %s Type = %q, want pr", it.ID, it.Type)
		}
	}
}

func TestLinkError(t *testing.T) {
	t.Parallel()

	cause := errors.New("mutation failed")
	err := &LinkError{ParentID: "10", Child: &Created{ID: "11"}, Err: cause}
	if !errors.Is(err, cause) {
		t.Error("LinkError does not unwrap")
	}
	want := "created issue 11 but failed to link it to parent 10: mutation failed"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestCheck_WithoutChecker(t *testing.T) {
	t.Parallel()

	var tr Tracker
	if err := Check(context.Background(), tr); err != nil {
		t.Errorf("Check on a tracker without a credential check = %v, want nil", err)
	}
}
