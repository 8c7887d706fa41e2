package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/raphi011/loom/internal/errs"
	"github.com/raphi011/loom/internal/format"
)

// Valid enum values for configuration fields.
var (
	ValidIssueProviders = []string{"github", "linear", "jira", "bitbucket"}
	ValidVCSProviders   = []string{"github", "bitbucket"}
	ValidThemes         = []string{"default", "dracula", "nord", "gruvbox", "none"}
)

// Validate checks s. source names the settings for error messages and
// may be empty.
func Validate(s Settings, source string) error {
	in := ""
	if source != "" {
		in = " in " + source
	}
	if err := validateEnum(s.IssueManagement.Provider, "issue_management.provider", ValidIssueProviders); err != nil {
		return errs.Configuration("%v%s", err, in)
	}
	if err := validateEnum(s.VersionControl.Provider, "version_control.provider", ValidVCSProviders); err != nil {
		return errs.Configuration("%v%s", err, in)
	}
	if err := validateEnum(s.UI.Theme, "ui.theme", ValidThemes); err != nil {
		return errs.Configuration("%v%s", err, in)
	}
	if s.BasePort < 0 || s.BasePort > 65535 {
		return errs.Configuration("invalid base_port %d%s: must be between 1 and 65535", s.BasePort, in)
	}
	if s.Workspace.BranchFormat != "" {
		if err := format.ValidateFormat(s.Workspace.BranchFormat); err != nil {
			return errs.Configuration("invalid workspace.branch_format%s: %v", in, err)
		}
	}
	return nil
}

// validateEnum checks that value (if non-empty) is one of the allowed values.
func validateEnum(value, field string, allowed []string) error {
	if value == "" {
		return nil
	}
	if !slices.Contains(allowed, value) {
		return fmt.Errorf("invalid %s %q: must be %s", field, value, formatOptions(allowed))
	}
	return nil
}

// formatOptions formats a list of allowed values for error messages.
// E.g., ["a", "b", "c"] -> `"a", "b", or "c"`
func formatOptions(opts []string) string {
	quoted := make([]string, len(opts))
	for i, o := range opts {
		quoted[i] = fmt.Sprintf("%q", o)
	}
	if len(quoted) <= 2 {
		return strings.Join(quoted, " or ")
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + ", or " + quoted[len(quoted)-1]
}
