package identifier

import (
	"path/filepath"
	"strings"

	"github.com/raphi011/loom/internal/errs"
)

// Environment is what auto-detection looks at when no identifier is given.
type Environment struct {
	// Dir is the current working directory.
	Dir string
	// Branch is the checked out branch, empty when HEAD is detached.
	Branch string
}

// Detect derives a classification from the environment:
// a "_pr_<n>" directory suffix, then an issue reference in the directory
// or branch name, then the branch itself.
func Detect(env Environment) (*Parsed, error) {
	var dir string
	if env.Dir != "" {
		dir = filepath.Base(env.Dir)
	}

	if m := prDirRe.FindStringSubmatch(dir); m != nil {
		return &Parsed{Type: TypePR, Number: m[1], OriginalInput: dir}, nil
	}

	for _, candidate := range []string{dir, env.Branch} {
		if candidate == "" {
			continue
		}
		if m := issueRefRe.FindStringSubmatch(candidate); m != nil {
			return &Parsed{Type: TypeIssue, Number: strings.ToUpper(m[1]), OriginalInput: candidate}, nil
		}
	}

	if env.Branch != "" {
		return &Parsed{Type: TypeBranch, BranchName: env.Branch, OriginalInput: env.Branch}, nil
	}

	return nil, errs.Validation("could not detect an issue, pull request or branch here (detached HEAD?); pass an identifier explicitly")
}
