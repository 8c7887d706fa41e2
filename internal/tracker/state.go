package tracker

import (
	"regexp"
	"strings"
)

// StateTable maps backend status names onto open/closed. Names listed in
// Closed are closed; every other status is open. Matching ignores case.
type StateTable struct {
	Closed []string
}

// Normalize maps a backend status to open or closed.
func (t StateTable) Normalize(status string) State {
	status = strings.TrimSpace(status)
	for _, c := range t.Closed {
		if strings.EqualFold(c, status) {
			return StateClosed
		}
	}
	return StateOpen
}

// Default state tables. Jira and BitBucket tables are replaced by the
// configured "done" statuses when present.
var (
	GitHubStates    = StateTable{Closed: []string{"closed", "merged"}}
	LinearStates    = StateTable{Closed: []string{"Done", "Canceled"}}
	JiraStates      = StateTable{Closed: []string{"Done", "Closed", "Resolved"}}
	BitbucketStates = StateTable{Closed: []string{"resolved", "closed", "invalid", "duplicate", "wontfix"}}
)

// WithClosed returns a table using names when non-empty, else t.
func (t StateTable) WithClosed(names []string) StateTable {
	if len(names) == 0 {
		return t
	}
	return StateTable{Closed: names}
}

var teamPrefixRe = regexp.MustCompile(`^([A-Za-z]{2,})-`)

// TeamPrefix extracts the letter prefix of a project-key identifier:
// "ENG" from "ENG-123". Requires at least two leading letters.
func TeamPrefix(identifier string) (string, bool) {
	m := teamPrefixRe.FindStringSubmatch(identifier)
	if m == nil {
		return "", false
	}
	return strings.ToUpper(m[1]), true
}
