package main

import (
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphi011/loom/internal/issues"
	"github.com/raphi011/loom/internal/output"
	"github.com/raphi011/loom/internal/tracker"
	"github.com/raphi011/loom/internal/ui"
	"github.com/raphi011/loom/internal/ui/static"
)

func newIssuesCmd() *cobra.Command {
	var (
		limit      int
		sprint     string
		mine       bool
		jsonOutput bool
		filter     string
	)

	cmd := &cobra.Command{
		Use:     "issues",
		Short:   "List open issues and pull requests",
		Aliases: []string{"ls"},
		GroupID: GroupIssues,
		Args:    cobra.NoArgs,
		Long: `List open issues from the configured tracker together with open pull
requests from the VCS host, most recently updated first.

Results are cached for two minutes per query. If pull requests cannot be
fetched (not logged in, rate limited, offline, no remote) the listing
shows issues only and prints a warning.

On a terminal the listing is a table; piped, it is tab-separated:
type, id, state, updatedAt, title, url.`,
		Example: `  loom issues                      # everything, newest first
  loom issues --mine               # only my issues and PRs
  loom issues --sprint current     # Jira: open sprints
  loom issues --filter login       # fuzzy filter on id and title
  loom issues --json | jq '.[].id'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			p, err := currentProject(ctx)
			if err != nil {
				return err
			}

			items, err := p.issuesService(ctx).List(ctx, issues.Options{
				ProjectPath: p.root,
				Limit:       limit,
				Sprint:      sprint,
				Mine:        mine,
			})
			if err != nil {
				return err
			}
			items = ui.Filter(items, filter)

			out := output.FromContext(ctx)
			if jsonOutput {
				return out.JSON(items)
			}
			writeIssues(out.Writer(), items, stdoutIsTTY, time.Now())
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", issues.DefaultLimit, "Maximum number of rows")
	cmd.Flags().StringVar(&sprint, "sprint", "", `Jira sprint name, or "current" for open sprints`)
	cmd.Flags().BoolVar(&mine, "mine", false, "Only issues assigned to me and PRs authored by me")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Fuzzy filter on id and title")

	return cmd
}

// writeIssues renders items as a table on a terminal and tab-separated
// rows otherwise.
func writeIssues(w io.Writer, items []tracker.ListItem, tty bool, now time.Time) {
	if !tty {
		for _, item := range items {
			io.WriteString(w, static.TSVRow(item)+"\n")
		}
		return
	}
	if len(items) == 0 {
		io.WriteString(w, "No open issues or pull requests\n")
		return
	}
	io.WriteString(w, static.RenderIssues(items, now))
}
