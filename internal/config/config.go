package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/raphi011/loom/internal/errs"
	"github.com/raphi011/loom/internal/format"
	"github.com/raphi011/loom/internal/storage"
)

const (
	// GlobalFileName is the global settings file inside the config root.
	GlobalFileName = "config.toml"

	// DefaultBasePort is the port workspaces are offset from.
	DefaultBasePort = 3000
)

// Settings is the merged loom configuration.
type Settings struct {
	BasePort        int             `toml:"base_port"`
	Workspace       WorkspaceConfig `toml:"workspace"`
	IssueManagement IssueManagement `toml:"issue_management"`
	VersionControl  VersionControl  `toml:"version_control"`
	UI              UIConfig        `toml:"ui"`
}

// WorkspaceConfig holds naming settings.
type WorkspaceConfig struct {
	BranchFormat string `toml:"branch_format"`
}

// UIConfig controls terminal output.
type UIConfig struct {
	Theme    string `toml:"theme"` // default, dracula, nord, gruvbox or none
	Nerdfont bool   `toml:"nerdfont"`
}

// IssueManagement selects and configures the issue tracker.
type IssueManagement struct {
	Provider  string          `toml:"provider"`
	Linear    LinearConfig    `toml:"linear"`
	Jira      JiraConfig      `toml:"jira"`
	Bitbucket BitbucketIssues `toml:"bitbucket"`
}

// LinearConfig configures the Linear tracker.
type LinearConfig struct {
	TeamID   string `toml:"team_id"` // team key, e.g. "ENG"
	APIToken string `toml:"api_token"`
}

// JiraConfig configures the Jira tracker.
type JiraConfig struct {
	Host         string   `toml:"host"`
	Username     string   `toml:"username"`
	APIToken     string   `toml:"api_token"`
	ProjectKey   string   `toml:"project_key"`
	DoneStatuses []string `toml:"done_statuses"`
	IssueType    string   `toml:"issue_type"`
	SubtaskType  string   `toml:"subtask_type"`
}

// BitbucketIssues configures the BitBucket issue tracker. Credentials and
// repository come from [version_control.bitbucket].
type BitbucketIssues struct {
	DoneStatuses []string `toml:"done_statuses"`
}

// VersionControl selects the pull request host.
type VersionControl struct {
	Provider  string          `toml:"provider"`
	Bitbucket BitbucketConfig `toml:"bitbucket"`
}

// BitbucketConfig holds BitBucket credentials and repository.
// Workspace and RepoSlug fall back to the origin remote.
type BitbucketConfig struct {
	Username    string `toml:"username"`
	AppPassword string `toml:"app_password"`
	Workspace   string `toml:"workspace"`
	RepoSlug    string `toml:"repo_slug"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		BasePort:        DefaultBasePort,
		Workspace:       WorkspaceConfig{BranchFormat: format.DefaultBranchFormat},
		IssueManagement: IssueManagement{Provider: "github"},
		VersionControl:  VersionControl{Provider: "github"},
	}
}

// GlobalPath returns the path of the global settings file.
func GlobalPath() (string, error) {
	dir, err := storage.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, GlobalFileName), nil
}

// Load reads the global settings file on top of Default.
// A missing file is not an error.
func Load() (Settings, error) {
	path, err := GlobalPath()
	if err != nil {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads settings from path on top of Default.
func LoadFile(path string) (Settings, error) {
	cfg := Default()
	layer, err := readLayer(path)
	if err != nil {
		return Default(), err
	}
	if layer != nil {
		cfg = Merge(cfg, *layer)
	}
	if err := Validate(cfg, path); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// readLayer parses one settings file. Returns nil (no error) if the file
// doesn't exist.
func readLayer(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
	}

	var layer Settings
	if err := toml.Unmarshal(data, &layer); err != nil {
		return nil, errs.Configuration("failed to parse settings %s: %v", path, err)
	}
	return &layer, nil
}

const defaultConfig = `# loom configuration
#
# Project settings live in <repo>/.loom/settings.toml and override these;
# put tokens in <repo>/.loom/settings.local.toml (git-ignored) or .env.

# Port workspaces are offset from
base_port = 3000

# [workspace]
# Branch name template. Placeholders: {type}, {id}, {slug}
# branch_format = "{type}-{id}-{slug}"

[issue_management]
# github, linear, jira or bitbucket
provider = "github"

# [issue_management.linear]
# team_id = "ENG"
# api_token = "lin_api_..."     # or LINEAR_API_TOKEN

# [issue_management.jira]
# host = "https://acme.atlassian.net"
# username = "me@acme.com"
# api_token = "..."             # or JIRA_API_TOKEN
# project_key = "PROJ"
# done_statuses = ["Done", "Closed"]

# [issue_management.bitbucket]
# done_statuses = ["resolved", "closed"]

[version_control]
# github or bitbucket
provider = "github"

# [version_control.bitbucket]
# username = "me"
# app_password = "..."          # or BITBUCKET_APP_PASSWORD
# workspace = "acme"            # default: from the origin remote
# repo_slug = "web"             # default: from the origin remote

# [ui]
# theme = "default"             # default, dracula, nord, gruvbox or none
# nerdfont = false
`

// DefaultConfig returns the template written by Init.
func DefaultConfig() string {
	return defaultConfig
}

// Init creates the global settings file. If force is true, an existing
// file is overwritten. Returns the path of the file.
func Init(force bool) (string, error) {
	path, err := GlobalPath()
	if err != nil {
		return "", err
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", errors.New("config file already exists: " + path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(defaultConfig), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// Redacted returns a copy of s with secrets masked, for display.
func (s Settings) Redacted() Settings {
	mask := func(v *string) {
		if *v != "" {
			*v = "********"
		}
	}
	mask(&s.IssueManagement.Linear.APIToken)
	mask(&s.IssueManagement.Jira.APIToken)
	mask(&s.VersionControl.Bitbucket.AppPassword)
	return s
}

// Encode renders s as TOML.
func (s Settings) Encode() (string, error) {
	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(s); err != nil {
		return "", err
	}
	return buf.String(), nil
}
