package main

import (
	"github.com/spf13/cobra"

	"github.com/raphi011/loom/internal/config"
	"github.com/raphi011/loom/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Manage configuration",
		Aliases: []string{"cfg"},
		GroupID: GroupConfig,
		Long: `Manage loom configuration.

Global config:  $LOOM_CONFIG_DIR/config.toml (default ~/.config/loom)
Project config: .loom/settings.toml
Local config:   .loom/settings.local.toml (git-ignored, for tokens)

Tokens may also come from a .env file in the project root or the
environment: LINEAR_API_TOKEN, JIRA_API_TOKEN, JIRA_USERNAME, JIRA_HOST,
BITBUCKET_USERNAME, BITBUCKET_APP_PASSWORD.`,
		Example: `  loom config init          # Create default global config
  loom config init -s       # Print the default config
  loom config show          # Show effective config for this project`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force  bool
		stdout bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			if stdout {
				out.Print(config.DefaultConfig())
				return nil
			}

			path, err := config.Init(force)
			if err != nil {
				return err
			}
			out.Printf("Created config file: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing config")
	cmd.Flags().BoolVarP(&stdout, "stdout", "s", false, "Print config to stdout")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective config with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := currentProject(ctx)
			if err != nil {
				return err
			}

			text, err := p.settings.Redacted().Encode()
			if err != nil {
				return err
			}
			out := output.FromContext(ctx)
			out.Printf("# project: %s\n", p.root)
			out.Print(text)
			return nil
		},
	}
}
