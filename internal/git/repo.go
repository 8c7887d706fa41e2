package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/raphi011/loom/internal/errs"
)

// ErrNotRepository is returned when a path is not inside a git repository.
var ErrNotRepository = errors.New("not a git repository")

// open opens the repository containing path, which may be a linked
// worktree or any subdirectory.
func open(path string) (*gogit.Repository, error) {
	if path == "" {
		path = "."
	}
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotRepository)
	}
	return repo, err
}

// CurrentBranch returns the branch checked out at path. A detached HEAD
// yields "" and no error. A branch without commits is still reported.
func CurrentBranch(path string) (string, error) {
	repo, err := open(path)
	if err != nil {
		return "", err
	}

	head, err := repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD: %w", err)
	}
	if head.Type() == plumbing.SymbolicReference {
		if target := head.Target(); target.IsBranch() {
			return target.Short(), nil
		}
	}
	return "", nil
}

// OriginURL returns the first URL of the origin remote. A repository
// without origin is an expected provider failure (KindNoRemotes).
func OriginURL(path string) (string, error) {
	repo, err := open(path)
	if err != nil {
		return "", err
	}
	remote, err := repo.Remote("origin")
	if err != nil {
		if errors.Is(err, gogit.ErrRemoteNotFound) {
			return "", errs.Provider("git", errs.KindNoRemotes, errors.New("no git remotes: origin is not configured"))
		}
		return "", fmt.Errorf("failed to read origin remote: %w", err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", errs.Provider("git", errs.KindNoRemotes, errors.New("no git remotes: origin has no URL"))
	}
	return urls[0], nil
}

// MainWorktreePath returns the main repository path for path.
// Works whether path is in the main repo or a linked worktree.
// Without a git binary it returns ErrGitNotFound.
func MainWorktreePath(ctx context.Context, path string) (string, error) {
	if err := CheckGit(); err != nil {
		return "", err
	}
	output, err := outputGit(ctx, path, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, ErrNotRepository)
	}
	toplevel := strings.TrimSpace(string(output))

	// A linked worktree has a .git file instead of a directory.
	info, err := os.Stat(filepath.Join(toplevel, ".git"))
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return toplevel, nil
	}
	return GetMainRepoPath(toplevel)
}

// GetMainRepoPath extracts main repo path from .git file in worktree
func GetMainRepoPath(worktreePath string) (string, error) {
	gitFile := filepath.Join(worktreePath, ".git")
	content, err := os.ReadFile(gitFile)
	if err != nil {
		return "", fmt.Errorf("failed to read .git file: %w", err)
	}

	// Parse: "gitdir: /path/to/repo/.git/worktrees/name"
	// Only the first line matters; any additional lines are ignored
	line := strings.TrimSpace(string(content))
	if idx := strings.Index(line, "\n"); idx != -1 {
		line = strings.TrimSpace(line[:idx])
	}
	if !strings.HasPrefix(line, "gitdir: ") {
		return "", fmt.Errorf("invalid .git file format: expected 'gitdir: <path>'")
	}

	gitdir := strings.TrimPrefix(line, "gitdir: ")
	if gitdir == "" {
		return "", fmt.Errorf("invalid .git file format: empty gitdir path")
	}

	// gitdir can be relative to the worktree
	if !filepath.IsAbs(gitdir) {
		gitdir = filepath.Join(worktreePath, gitdir)
	}
	gitdir = filepath.Clean(gitdir)

	// gitdir is like /path/to/repo/.git/worktrees/name; we want /path/to/repo
	dir := gitdir
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find main repo path from gitdir: %s", gitdir)
		}
		if filepath.Base(dir) == ".git" {
			return parent, nil
		}
		dir = parent
	}
}
