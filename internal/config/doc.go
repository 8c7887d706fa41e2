// Package config loads loom settings.
//
// # Layers (lowest precedence first)
//
//   - global: <config-root>/config.toml, where <config-root> is
//     $LOOM_CONFIG_DIR or ~/.config/loom
//   - project: <root>/.loom/settings.toml, committed with the project
//   - local: <root>/.loom/settings.local.toml, git-ignored, for tokens
//
// Layers merge field by field: a non-empty value in a later layer wins.
//
// # Credentials
//
// API tokens missing from every layer are looked up in <root>/.env and
// then the process environment (LINEAR_API_TOKEN, JIRA_API_TOKEN,
// BITBUCKET_APP_PASSWORD and friends). Reading .env never modifies the
// process environment.
//
// # Providers
//
//	[issue_management]
//	provider = "linear"   # github, linear, jira or bitbucket
//	[version_control]
//	provider = "github"   # github or bitbucket
//
// Both default to "github". Unknown names are a configuration error.
package config
