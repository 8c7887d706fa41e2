// Package port derives deterministic TCP ports for workspaces.
//
// Ports are a pure function of the workspace identity so a workspace always
// gets "its" port back without any coordination. Numeric identifiers map to
// basePort+n; anything else is hashed.
//
// Branch hashing is SHA-256 over the branch name, the first 8 hex digits
// read as an unsigned integer, reduced to an offset in [1, 999]. Other
// implementations persist ports derived this way, so the scheme must not
// change.
package port

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"

	"github.com/raphi011/loom/internal/errs"
)

const (
	// MaxPort is the highest valid TCP port.
	MaxPort = 65535

	// DefaultBasePort is used when no base port is configured.
	DefaultBasePort = 3000

	hashOffsetRange = 999
)

var (
	numericRe = regexp.MustCompile(`^\d+$`)
	suffixRe  = regexp.MustCompile(`[-_]?(\d+)$`)
)

// Wrap folds ports above MaxPort back into (basePort, MaxPort].
// Values at or below MaxPort are returned unchanged. basePort must be
// below MaxPort.
func Wrap(raw, basePort int) int {
	if raw <= MaxPort {
		return raw
	}
	span := MaxPort - basePort
	if span <= 0 {
		return MaxPort
	}
	return (raw-basePort-1)%span + basePort + 1
}

// NumericSuffix returns the trailing run of digits of id, optionally
// preceded by '-' or '_'. "MARK-324" yields 324.
func NumericSuffix(id string) (int, bool) {
	m := suffixRe.FindStringSubmatch(id)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// FromNumber returns the port for a numeric issue or PR number.
func FromNumber(n, basePort int) (int, error) {
	if err := validateBase(basePort); err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errs.Validation("invalid identifier %d: must not be negative", n)
	}
	span := MaxPort - basePort
	if n <= span {
		return basePort + n, nil
	}
	// Same as Wrap(basePort+n, basePort) without computing the sum.
	return (n-1)%span + basePort + 1, nil
}

// FromIdentifier returns the port for an issue identifier: a number
// ("42"), a project key with a numeric suffix ("MARK-324"), or any other
// token, which is hashed as the branch "issue-<identifier>".
func FromIdentifier(identifier string, basePort int) (int, error) {
	if err := validateBase(basePort); err != nil {
		return 0, err
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return 0, errs.Validation("missing identifier")
	}

	if numericRe.MatchString(identifier) {
		n, err := strconv.Atoi(identifier)
		if err != nil {
			return 0, errs.Validation("invalid identifier %q: %v", identifier, err)
		}
		return FromNumber(n, basePort)
	}

	if n, ok := NumericSuffix(identifier); ok {
		return FromNumber(n, basePort)
	}

	return ForBranch("issue-"+identifier, basePort)
}

// ForBranch returns the hash-derived port for a branch name.
func ForBranch(branch string, basePort int) (int, error) {
	if branch == "" {
		return 0, errs.Validation("branch name is required for port calculation")
	}
	if err := validateBase(basePort); err != nil {
		return 0, err
	}
	return Wrap(basePort+BranchOffset(branch), basePort), nil
}

// BranchOffset returns the [1, 999] offset for a branch name.
func BranchOffset(branch string) int {
	sum := sha256.Sum256([]byte(branch))
	prefix := hex.EncodeToString(sum[:4])
	n, _ := strconv.ParseUint(prefix, 16, 64)
	return int(n%hashOffsetRange) + 1
}

// Options selects how a workspace port is derived.
// Resolution order: IssueNumber, PRNumber, BranchName, then BasePort alone.
type Options struct {
	IssueNumber string
	PRNumber    int
	BranchName  string
	BasePort    int
}

// Assign resolves a port using exactly one path of Options.
// A zero BasePort means DefaultBasePort.
func Assign(opts Options) (int, error) {
	base := opts.BasePort
	if base == 0 {
		base = DefaultBasePort
	}
	switch {
	case opts.IssueNumber != "":
		return FromIdentifier(opts.IssueNumber, base)
	case opts.PRNumber > 0:
		return FromNumber(opts.PRNumber, base)
	case opts.BranchName != "":
		return ForBranch(opts.BranchName, base)
	default:
		if err := validateBase(base); err != nil {
			return 0, err
		}
		return base, nil
	}
}

func validateBase(basePort int) error {
	if basePort < 1 || basePort >= MaxPort {
		return errs.Validation("invalid base port %d: must be between 1 and %d", basePort, MaxPort-1)
	}
	return nil
}
