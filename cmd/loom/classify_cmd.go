package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/raphi011/loom/internal/identifier"
	"github.com/raphi011/loom/internal/output"
)

func newClassifyCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "classify [identifier]",
		Short:   "Classify an identifier as issue, PR, branch or description",
		Aliases: []string{"c"},
		GroupID: GroupCore,
		Args:    cobra.MaximumNArgs(1),
		Long: `Classify what an identifier refers to.

Rules, first match wins:
  1. more than 15 characters containing a space: description
  2. PR-45 or pr/45: pull request
  3. ENG-123 style project key: issue (must exist in the tracker)
  4. 87 or #87: issue or pull request, asked from the tracker or VCS host
  5. anything else that is a valid branch name: branch

Without an identifier, the working directory and checked out branch are
used: a "_pr_<n>" directory, then an issue key in the directory or
branch name, then the branch itself.`,
		Example: `  loom classify 87                 # issue or PR #87
  loom classify ENG-123            # Linear/Jira issue
  loom classify feat/dark-mode     # branch
  loom classify "add dark mode to settings"
  loom classify --json             # detect from the current workspace`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			parsed, err := classify(ctx, args)
			if err != nil {
				return err
			}

			out := output.FromContext(ctx)
			if jsonOutput {
				return out.JSON(parsed)
			}
			out.Println(describe(parsed))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// classify runs classification on args[0], or auto-detection without it.
func classify(ctx context.Context, args []string) (*identifier.Parsed, error) {
	if len(args) == 0 {
		return detect()
	}
	p, err := currentProject(ctx)
	if err != nil {
		return nil, err
	}
	c, err := p.classifier(ctx)
	if err != nil {
		return nil, err
	}
	return c.Classify(ctx, args[0])
}

// describe renders a classification as "<type> <value>".
func describe(p *identifier.Parsed) string {
	switch p.Type {
	case identifier.TypeIssue, identifier.TypePR:
		return string(p.Type) + " " + p.Number
	case identifier.TypeBranch:
		return string(p.Type) + " " + p.BranchName
	default:
		return string(p.Type)
	}
}
