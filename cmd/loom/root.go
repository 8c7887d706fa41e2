package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raphi011/loom/internal/config"
	"github.com/raphi011/loom/internal/log"
	"github.com/raphi011/loom/internal/output"
	"github.com/raphi011/loom/internal/ui"
	"github.com/raphi011/loom/internal/ui/styles"
)

var (
	// Global flags
	verbose    bool
	quiet      bool
	projectDir string

	// Shared state injected into commands
	workDir     string
	stdoutIsTTY bool
)

// Command group IDs for organizing help output
const (
	GroupCore   = "core"
	GroupIssues = "issues"
	GroupConfig = "config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "Resolve issues, pull requests and branches into workspaces",
	Long: `loom turns the identifier you type (an issue number, a PR, a
project key like ENG-123, a branch or a free-text description) into a
workspace identity: branch name, directory and a stable port.

It talks to the issue tracker the project is configured for (GitHub,
Linear, Jira or BitBucket) and lists issues and pull requests together.`,
	SilenceUsage:               true,
	SilenceErrors:              true,
	SuggestionsMinimumDistance: 2, // Enable typo suggestions
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Validate mutually exclusive flags
		if verbose && quiet {
			return fmt.Errorf("--verbose and --quiet are mutually exclusive")
		}

		// Flags are parsed by now, so the logger can honor them.
		ctx := log.WithLogger(cmd.Context(), log.New(os.Stderr, verbose, quiet))
		cmd.SetContext(ctx)
		return nil
	},
	// Run is not set - shows help when no subcommand provided
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// Load global settings; project layers are merged per command.
	loaded, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	styles.Init(loaded.UI)

	// Get working directory
	workDir, err = os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loom: failed to get working directory: %v\n", err)
		os.Exit(1)
	}

	// Create context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ctx = config.WithResolver(ctx, config.NewResolver(&loaded))

	// Add output printer (stdout for primary data)
	var stdout io.Writer
	stdout, stdoutIsTTY = ui.Stdout()
	ctx = output.WithPrinter(ctx, stdout)

	// Store context for commands to use
	rootCmd.SetContext(ctx)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Run 'loom -h' for help")
		cancel()
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show requests and commands being executed")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all log output")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "C", "", "Project root (default: repository of the working directory)")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	// Version flag
	rootCmd.Version = versionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	// Add command groups for organized help output
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupCore, Title: "Core Commands:"},
		&cobra.Group{ID: GroupIssues, Title: "Issue Commands:"},
		&cobra.Group{ID: GroupConfig, Title: "Configuration Commands:"},
	)

	// Core commands
	rootCmd.AddCommand(newClassifyCmd())
	rootCmd.AddCommand(newPortCmd())
	rootCmd.AddCommand(newBranchCmd())

	// Issue commands
	rootCmd.AddCommand(newIssuesCmd())
	rootCmd.AddCommand(newIssueCmd())
	rootCmd.AddCommand(newCommentCmd())

	// Config commands
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
}
