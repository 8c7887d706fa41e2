package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/raphi011/loom/internal/errs"
	"github.com/raphi011/loom/internal/format"
	"github.com/raphi011/loom/internal/identifier"
	"github.com/raphi011/loom/internal/output"
	"github.com/raphi011/loom/internal/port"
)

// workspace is the identity derived for an issue, PR or branch.
type workspace struct {
	Type      identifier.Type `json:"type"`
	ID        string          `json:"id,omitempty"`
	Title     string          `json:"title,omitempty"`
	Branch    string          `json:"branch"`
	Directory string          `json:"directory"`
	Port      int             `json:"port"`
}

func newBranchCmd() *cobra.Command {
	var (
		title      string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "branch [identifier]",
		Short:   "Print the branch, directory and port for an identifier",
		Aliases: []string{"b"},
		GroupID: GroupCore,
		Args:    cobra.MaximumNArgs(1),
		Long: `Print the workspace identity for an identifier.

Issue branches follow workspace.branch_format (default
"{type}-{id}-{slug}") with the title fetched from the tracker. Pull
request workspaces get a "_pr_<n>" directory suffix so they are detected
again from inside the workspace.`,
		Example: `  loom branch 87                  # issue-87-fix-login-redirect
  loom branch PR-45 --title "Bump deps"
  loom branch --json              # detect from the current workspace`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			parsed, err := classify(ctx, args)
			if err != nil {
				return err
			}
			p, err := currentProject(ctx)
			if err != nil {
				return err
			}

			if parsed.Type == identifier.TypeIssue && title == "" {
				tr, err := p.tracker()
				if err != nil {
					return err
				}
				issue, err := tr.GetIssue(ctx, parsed.Number)
				if err != nil {
					return err
				}
				title = issue.Title
			}

			ws, err := deriveWorkspace(parsed, title, p.settings.Workspace.BranchFormat, p.settings.BasePort)
			if err != nil {
				return err
			}
			return printWorkspace(ctx, ws, jsonOutput)
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Title for the branch slug (default: fetched for issues)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// deriveWorkspace computes branch, directory and port for parsed.
func deriveWorkspace(parsed *identifier.Parsed, title, branchFormat string, basePort int) (*workspace, error) {
	ws := &workspace{Type: parsed.Type, ID: parsed.Number, Title: title}

	var pr int
	switch parsed.Type {
	case identifier.TypeIssue:
		ws.Branch = format.BranchName(branchFormat, format.BranchParams{Type: "issue", ID: parsed.Number, Title: title})
	case identifier.TypePR:
		pr, _ = parsed.Int()
		ws.Branch = format.BranchName(branchFormat, format.BranchParams{Type: "pr", ID: strconv.Itoa(pr), Title: title})
	case identifier.TypeBranch:
		ws.Branch = parsed.BranchName
	default:
		return nil, errs.Validation("a description has no branch until its issue exists; create it with 'loom issue create --title'")
	}
	ws.Directory = format.WorkspaceDir(ws.Branch, pr)

	opts := portOptions(parsed)
	opts.BasePort = basePort
	n, err := port.Assign(opts)
	if err != nil {
		return nil, err
	}
	ws.Port = n
	return ws, nil
}

func printWorkspace(ctx context.Context, ws *workspace, jsonOutput bool) error {
	out := output.FromContext(ctx)
	if jsonOutput {
		return out.JSON(ws)
	}
	out.Printf("branch:    %s\n", ws.Branch)
	out.Printf("directory: %s\n", ws.Directory)
	out.Printf("port:      %d\n", ws.Port)
	return nil
}
