package cmd

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/raphi011/loom/internal/log"
)

// Error is returned when a command exits unsuccessfully.
// Its message is the trimmed stderr when there is any, so callers can show
// and classify what the tool actually said.
type Error struct {
	Name   string
	Args   []string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	if e.Stderr != "" {
		return e.Stderr
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Runner runs external programs and returns their stdout.
type Runner interface {
	Output(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExecRunner is the Runner backed by os/exec.
type ExecRunner struct{}

// Output implements Runner.
func (ExecRunner) Output(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	return OutputContext(ctx, dir, name, args...)
}

// OutputContext executes a command and returns stdout. The command is
// logged when verbose; a cancelled context is reported as ctx.Err().
func OutputContext(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	done := log.FromContext(ctx).Command(dir, name, args...)
	start := time.Now()

	c := exec.CommandContext(ctx, name, args...)
	c.Dir = dir
	var stderr bytes.Buffer
	c.Stderr = &stderr

	out, err := c.Output()
	done(time.Since(start))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &Error{
			Name:   name,
			Args:   args,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return out, nil
}
