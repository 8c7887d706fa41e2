// Package github runs the gh CLI for loom's GitHub issue and pull request
// access. Authentication is whatever gh is logged in with.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/raphi011/loom/internal/cmd"
	"github.com/raphi011/loom/internal/errs"
)

// Provider is the provider name used in errors.
const Provider = "github"

// ErrGHNotFound indicates gh CLI is not installed or not in PATH
var ErrGHNotFound = errs.Provider(Provider, errs.KindMissingCredentials,
	fmt.Errorf("gh not found: please install GitHub CLI (https://cli.github.com)"))

// ErrGHNotAuthenticated indicates gh CLI is installed but not authenticated
var ErrGHNotAuthenticated = errs.Provider(Provider, errs.KindUnauthenticated,
	fmt.Errorf("gh not authenticated: please run 'gh auth login'"))

// CLI runs gh in the repository at Dir.
type CLI struct {
	Runner cmd.Runner
	Dir    string
}

// NewCLI returns a CLI running gh through os/exec.
func NewCLI(dir string) *CLI {
	return &CLI{Runner: cmd.ExecRunner{}, Dir: dir}
}

// Check verifies that gh CLI is available and authenticated
func (c *CLI) Check(ctx context.Context) error {
	if _, err := c.Runner.Output(ctx, c.Dir, "gh", "auth", "status"); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return ErrGHNotFound
		}
		var cmdErr *cmd.Error
		if errors.As(err, &cmdErr) {
			msg := cmdErr.Stderr
			if strings.Contains(msg, "not logged") || strings.Contains(msg, "no accounts") || msg == "" {
				return ErrGHNotAuthenticated
			}
			return fmt.Errorf("gh auth check failed: %s", msg)
		}
		return err
	}
	return nil
}

// Output runs gh with args and returns its stdout.
func (c *CLI) Output(ctx context.Context, args ...string) ([]byte, error) {
	out, err := c.Runner.Output(ctx, c.Dir, "gh", args...)
	if err != nil {
		return nil, Classify(err)
	}
	return out, nil
}

// JSON runs gh with args and decodes its stdout into out.
func (c *CLI) JSON(ctx context.Context, out any, args ...string) error {
	data, err := c.Output(ctx, args...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse gh output: %w", err)
	}
	return nil
}

// GraphQL runs a GraphQL query through gh api. String variables are passed
// with -f, everything else with -F.
func (c *CLI) GraphQL(ctx context.Context, query string, vars map[string]any, out any) error {
	args := []string{"api", "graphql", "-f", "query=" + query}
	for k, v := range vars {
		if s, ok := v.(string); ok {
			args = append(args, "-f", k+"="+s)
			continue
		}
		args = append(args, "-F", fmt.Sprintf("%s=%v", k, v))
	}
	var resp struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := c.JSON(ctx, &resp, args...); err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, len(resp.Errors))
		for i, e := range resp.Errors {
			msgs[i] = e.Message
		}
		return fmt.Errorf("GraphQL errors: %s", strings.Join(msgs, "; "))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(resp.Data, out)
}

var notFoundNeedles = []string{
	"could not resolve to an issue",
	"could not resolve to a pullrequest",
	"could not resolve to an issue or pull request",
	"no pull requests found",
	"http 404",
	"not found (http 404)",
}

// IsNotFound reports whether a gh failure means the item does not exist.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, n := range notFoundNeedles {
		if strings.Contains(msg, n) {
			return true
		}
	}
	return false
}

// Classify attaches a provider error kind to a gh failure. gh only
// reports failures as text, so the kind comes from its stderr; errors
// that match no known kind are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if kind := errs.KindOf(err); kind.Expected() {
		return errs.Provider(Provider, kind, err)
	}
	return err
}

// ParseNumber validates an identifier reaching a GitHub-only code path.
func ParseNumber(id string) (int, error) {
	s := strings.TrimPrefix(strings.TrimSpace(id), "#")
	if s == "" || strings.Trim(s, "0123456789") != "" {
		return 0, errs.Validation("GitHub issue numbers must be numeric, got %q", id)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errs.Validation("GitHub issue number %q is out of range", id)
	}
	return n, nil
}
