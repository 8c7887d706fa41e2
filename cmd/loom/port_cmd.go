package main

import (
	"strconv"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/raphi011/loom/internal/identifier"
	"github.com/raphi011/loom/internal/log"
	"github.com/raphi011/loom/internal/output"
	"github.com/raphi011/loom/internal/port"
)

func newPortCmd() *cobra.Command {
	var (
		branch          string
		pr              int
		basePort        int
		copyToClipboard bool
	)

	cmd := &cobra.Command{
		Use:     "port [issue]",
		Short:   "Print the port for a workspace",
		GroupID: GroupCore,
		Args:    cobra.MaximumNArgs(1),
		Long: `Print the deterministic port for a workspace.

Issues and pull requests get base port + number ("ENG-42" uses 42).
Branches get base port + a hash offset between 1 and 999. Ports above
65535 wrap back into the range above the base port.

Without arguments or flags, the workspace is detected from the working
directory and checked out branch.`,
		Example: `  loom port 87                   # 3087
  loom port ENG-42               # 3042
  loom port --pr 45              # 3045
  loom port --branch feat/x      # 3000 + hash offset
  loom port --copy               # detect, copy to clipboard`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			opts := port.Options{BranchName: branch, PRNumber: pr}
			if len(args) == 1 {
				opts.IssueNumber = args[0]
			}
			if opts == (port.Options{}) {
				parsed, err := detect()
				if err != nil {
					return err
				}
				opts = portOptions(parsed)
			}

			if cmd.Flags().Changed("base-port") {
				opts.BasePort = basePort
			} else {
				p, err := currentProject(ctx)
				if err != nil {
					return err
				}
				opts.BasePort = p.settings.BasePort
			}

			n, err := port.Assign(opts)
			if err != nil {
				return err
			}

			output.FromContext(ctx).Println(n)

			if copyToClipboard {
				if err := clipboard.WriteAll(strconv.Itoa(n)); err != nil {
					log.FromContext(ctx).Warn("failed to copy to clipboard: %v", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "Branch name to hash")
	cmd.Flags().IntVar(&pr, "pr", 0, "Pull request number")
	cmd.Flags().IntVar(&basePort, "base-port", port.DefaultBasePort, "Base port (default: base_port setting)")
	cmd.Flags().BoolVar(&copyToClipboard, "copy", false, "Copy the port to the clipboard")
	cmd.MarkFlagsMutuallyExclusive("branch", "pr")

	return cmd
}

// portOptions maps a classification onto port resolution inputs.
// Descriptions have no workspace yet and resolve to the base port.
func portOptions(p *identifier.Parsed) port.Options {
	switch p.Type {
	case identifier.TypeIssue:
		return port.Options{IssueNumber: p.Number}
	case identifier.TypePR:
		n, _ := p.Int()
		return port.Options{PRNumber: n}
	case identifier.TypeBranch:
		return port.Options{BranchName: p.BranchName}
	default:
		return port.Options{}
	}
}
