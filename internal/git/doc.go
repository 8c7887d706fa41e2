// Package git answers the few repository questions loom asks: where the
// main worktree is, which branch is checked out, and where origin points.
//
// Branch and remote lookups read the repository with go-git and work from
// any linked worktree. Resolving the main worktree shells out to the git
// CLI ("git rev-parse --show-toplevel") so it matches what the user's git
// sees.
//
//   - [MainWorktreePath]: main repository path from any worktree
//   - [CurrentBranch]: checked out branch, empty when HEAD is detached
//   - [OriginURL]: URL of the origin remote
package git
