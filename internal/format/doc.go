// Package format derives branch and workspace names from classified
// identifiers.
//
// Branch names are rendered from a format string with placeholders that
// are substituted at creation time.
//
// # Format Placeholders
//
// Available placeholders for the branch_format setting:
//
//   - {type}: "issue" or "pr"
//   - {id}: the issue or pull request identifier as classified
//   - {slug}: lowercase title slug, at most 40 characters
//
// Default format is "{type}-{id}-{slug}", creating branches like
// "issue-87-add-dark-mode". Empty placeholders collapse together with
// their separator, so an untitled issue becomes "issue-87".
//
// # Workspace Directories
//
// [WorkspaceDir] names a workspace after its branch with path separators
// replaced, and appends "_pr_<n>" for pull requests so that the directory
// alone is enough to detect the PR again later.
package format
