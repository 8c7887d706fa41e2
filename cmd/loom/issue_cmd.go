package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphi011/loom/internal/errs"
	"github.com/raphi011/loom/internal/format"
	"github.com/raphi011/loom/internal/identifier"
	"github.com/raphi011/loom/internal/log"
	"github.com/raphi011/loom/internal/output"
	"github.com/raphi011/loom/internal/tracker"
	"github.com/raphi011/loom/internal/ui/static"
)

func newIssueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "issue",
		Short:   "View and create issues",
		GroupID: GroupIssues,
		Long: `View and create issues in the configured tracker.

Issue ids are what the tracker uses: "87" on GitHub and BitBucket,
"ENG-123" on Linear, "PROJ-42" (or just "42" with a project_key) on Jira.`,
		Example: `  loom issue view 87
  loom issue view ENG-123 --json
  loom issue create --title "Dark mode" --body "Add a dark theme"
  loom issue create --title "Settings page" --parent ENG-123`,
	}

	cmd.AddCommand(newIssueViewCmd())
	cmd.AddCommand(newIssueCreateCmd())

	return cmd
}

func newIssueViewCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "view <id>",
		Short: "Show an issue with its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			p, err := currentProject(ctx)
			if err != nil {
				return err
			}
			tr, err := p.readyTracker(ctx)
			if err != nil {
				return err
			}

			issue, err := tr.GetIssue(ctx, issueID(args[0]))
			if err != nil {
				return err
			}

			out := output.FromContext(ctx)
			if jsonOutput {
				return out.JSON(issue)
			}
			out.Print(static.RenderIssue(issue, time.Now()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newIssueCreateCmd() *cobra.Command {
	var (
		title      string
		body       string
		parent     string
		team       string
		labels     []string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an issue",
		Args:  cobra.NoArgs,
		Long: `Create an issue, optionally as a child of --parent.

The title's first letter is capitalized unless the title starts with a
space. --team selects the Linear team or Jira project; for child issues
it defaults to the parent's prefix (ENG from ENG-123).

GitHub links child issues as sub-issues in a second step. If linking
fails the child issue is kept, printed, and the command exits non-zero.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			p, err := currentProject(ctx)
			if err != nil {
				return err
			}
			tr, err := p.readyTracker(ctx)
			if err != nil {
				return err
			}

			params, err := createParams(title, body, team, labels)
			if err != nil {
				return err
			}

			created, err := createIssue(ctx, tr, issueID(parent), params)
			if created != nil {
				out := output.FromContext(ctx)
				if jsonOutput {
					if jerr := out.JSON(created); jerr != nil {
						return jerr
					}
				} else {
					out.Println(created.URL)
				}
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Issue title")
	cmd.Flags().StringVarP(&body, "body", "b", "", "Issue description")
	cmd.Flags().StringVar(&parent, "parent", "", "Parent issue id")
	cmd.Flags().StringVar(&team, "team", "", "Linear team key or Jira project key")
	cmd.Flags().StringSliceVarP(&labels, "label", "l", nil, "Labels (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.MarkFlagRequired("title")

	return cmd
}

// createParams validates and normalizes the create flags.
func createParams(title, body, team string, labels []string) (tracker.CreateParams, error) {
	in := identifier.NewInput(title)
	if in.Text == "" {
		return tracker.CreateParams{}, errs.Validation("missing title")
	}
	return tracker.CreateParams{
		Title:   format.Capitalize(in.Text, in.SuppressAutoCapitalize),
		Body:    body,
		Labels:  labels,
		TeamKey: strings.ToUpper(strings.TrimSpace(team)),
	}, nil
}

// createIssue creates a top-level or child issue. A child that was
// created but not linked is returned together with the link error.
func createIssue(ctx context.Context, tr tracker.Tracker, parent string, params tracker.CreateParams) (*tracker.Created, error) {
	if parent == "" {
		return tr.CreateIssue(ctx, params)
	}

	created, err := tr.CreateChildIssue(ctx, parent, params)
	var linkErr *tracker.LinkError
	if errors.As(err, &linkErr) {
		log.FromContext(ctx).Warn("%v; the issue was not rolled back", linkErr)
	}
	return created, err
}

// issueID strips a leading '#' so "#87" and "87" are the same issue.
func issueID(raw string) string {
	return strings.TrimPrefix(strings.TrimSpace(raw), "#")
}
