package identifier

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/raphi011/loom/internal/errs"
	"github.com/raphi011/loom/internal/log"
	"github.com/raphi011/loom/internal/tracker"
)

// Type is the classification of a user-supplied identifier.
type Type string

const (
	TypeIssue       Type = "issue"
	TypePR          Type = "pr"
	TypeBranch      Type = "branch"
	TypeDescription Type = "description"
)

// descriptionMinLength is the length a spaced input must exceed to be
// treated as free text for a new issue.
const descriptionMinLength = 15

// Parsed is an immutable classification result. Number is set for issues
// and PRs, BranchName for branches; descriptions carry only OriginalInput.
// Number keeps the tracker's canonical form ("87", "ENG-123").
type Parsed struct {
	Type          Type   `json:"type"`
	Number        string `json:"number,omitempty"`
	BranchName    string `json:"branchName,omitempty"`
	OriginalInput string `json:"originalInput"`

	// SuppressAutoCapitalize is set when the raw input started with a space.
	SuppressAutoCapitalize bool `json:"suppressAutoCapitalize,omitempty"`
}

// Int returns Number as an integer when it is purely numeric.
func (p *Parsed) Int() (int, bool) {
	n, err := strconv.Atoi(p.Number)
	if err != nil {
		return 0, false
	}
	return n, true
}

// MarshalJSON emits purely numeric numbers as JSON numbers.
func (p Parsed) MarshalJSON() ([]byte, error) {
	type alias Parsed
	if n, ok := p.Int(); ok {
		return json.Marshal(struct {
			alias
			Number int `json:"number"`
		}{alias(p), n})
	}
	return json.Marshal(alias(p))
}

// Input is raw user text split once into the text to classify and the
// capitalization opt-out signalled by a leading space.
type Input struct {
	Raw                    string
	Text                   string
	SuppressAutoCapitalize bool
}

// NewInput trims raw and records whether it began with a space.
func NewInput(raw string) Input {
	return Input{
		Raw:                    raw,
		Text:                   strings.TrimSpace(raw),
		SuppressAutoCapitalize: strings.HasPrefix(raw, " "),
	}
}

// Probe is the slice of a tracker the classifier needs.
// tracker.Tracker satisfies it.
type Probe interface {
	Provider() tracker.Provider
	SupportsPullRequests() bool
	IssueExists(ctx context.Context, id string) (bool, error)
}

// PullRequestChecker answers whether a number is a pull request on the
// VCS host, independent of the issue tracker.
type PullRequestChecker interface {
	IsPullRequest(ctx context.Context, number int) (bool, error)
}

// Classifier turns raw identifiers into a Parsed result.
type Classifier struct {
	Tracker      Probe
	PullRequests PullRequestChecker
}

// Classify runs the classification pipeline; the first matching rule wins.
func (c *Classifier) Classify(ctx context.Context, raw string) (*Parsed, error) {
	in := NewInput(raw)
	text := in.Text
	result := func(t Type) *Parsed {
		return &Parsed{Type: t, OriginalInput: raw, SuppressAutoCapitalize: in.SuppressAutoCapitalize}
	}

	if text == "" {
		return nil, errs.Validation("missing identifier")
	}

	if utf8.RuneCountInString(text) > descriptionMinLength && strings.Contains(text, " ") {
		return result(TypeDescription), nil
	}

	if m := prRe.FindStringSubmatch(text); m != nil {
		p := result(TypePR)
		p.Number = m[1]
		return p, nil
	}

	if projectKeyRe.MatchString(text) {
		if err := c.requireIssue(ctx, text); err != nil {
			return nil, err
		}
		p := result(TypeIssue)
		p.Number = text
		return p, nil
	}

	if m := numericRe.FindStringSubmatch(text); m != nil {
		t, err := c.resolveNumber(ctx, m[1])
		if err != nil {
			return nil, err
		}
		p := result(t)
		p.Number = m[1]
		return p, nil
	}

	if !branchRe.MatchString(text) {
		return nil, errs.Validation("invalid branch name")
	}
	p := result(TypeBranch)
	p.BranchName = text
	return p, nil
}

func (c *Classifier) requireIssue(ctx context.Context, id string) error {
	if c.Tracker == nil {
		return errs.NotFound(id, "")
	}
	ok, err := c.Tracker.IssueExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return errs.NotFound(id, string(c.Tracker.Provider()))
	}
	return nil
}

// resolveNumber disambiguates a bare number between issue and PR.
func (c *Classifier) resolveNumber(ctx context.Context, number string) (Type, error) {
	if c.Tracker != nil && c.Tracker.SupportsPullRequests() {
		if r, ok := c.Tracker.(tracker.PullRequestResolver); ok {
			kind, err := r.ResolveNumber(ctx, number)
			if err != nil {
				return "", err
			}
			if kind == tracker.TypePR {
				return TypePR, nil
			}
			return TypeIssue, nil
		}
		if err := c.requireIssue(ctx, number); err != nil {
			return "", err
		}
		return TypeIssue, nil
	}

	// PRs live on the VCS host, so check there before assuming an issue.
	if c.PullRequests != nil {
		n, err := strconv.Atoi(number)
		if err != nil {
			return "", errs.Validation("invalid number %q", number)
		}
		isPR, err := c.PullRequests.IsPullRequest(ctx, n)
		switch {
		case err != nil && errs.IsExpected(err):
			log.FromContext(ctx).Debug("pull request check failed, treating as issue", "number", number, "error", err)
		case err != nil:
			return "", err
		case isPR:
			return TypePR, nil
		}
	}
	return TypeIssue, nil
}
