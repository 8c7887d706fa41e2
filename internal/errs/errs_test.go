package errs

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"syscall"
	"testing"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnexpected},
		{"provider error", Provider("github", KindRateLimited, errors.New("slow down")), KindRateLimited},
		{"wrapped provider error", fmt.Errorf("list prs: %w", Provider("bitbucket", KindNoRemotes, errors.New("x"))), KindNoRemotes},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), KindUnreachable},
		{"conn refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, KindUnreachable},
		{"dns", &net.DNSError{Err: "no such host", Name: "api.linear.app"}, KindUnreachable},
		{"missing executable", &exec.Error{Name: "gh", Err: exec.ErrNotFound}, KindMissingCredentials},
		{"gh not logged in", errors.New("To get started with GitHub CLI, please run:  gh auth login"), KindUnauthenticated},
		{"not logged in text", errors.New("You are not logged in to any GitHub hosts"), KindUnauthenticated},
		{"rate limit text", errors.New("API rate limit exceeded for user"), KindRateLimited},
		{"no remotes text", errors.New("none of the git remotes configured for this repository point to a known GitHub host"), KindNoRemotes},
		{"unrecognized", errors.New("unexpected end of JSON input"), KindUnexpected},
		{"token not configured text", errors.New("linear: api token not configured"), KindMissingCredentials},
		{"configuration error", Configuration("Linear API token is not configured (set issue_management.linear.api_token or LINEAR_API_TOKEN)"), KindUnexpected},
		{"wrapped configuration error", fmt.Errorf("tracker: %w", Configuration("request timed out waiting for settings")), KindUnexpected},
		{"validation error", Validation("not logged in is not a branch"), KindUnexpected},
		{"not found error", NotFound("ENG-1", "linear"), KindUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsExpected(t *testing.T) {
	t.Parallel()

	if IsExpected(errors.New("boom")) {
		t.Error("IsExpected(boom) = true, want false")
	}
	if !IsExpected(errors.New("gh: not logged in")) {
		t.Error("IsExpected(not logged in) = false, want true")
	}
	if IsExpected(Provider("linear", KindUnexpected, errors.New("rate limit"))) {
		t.Error("explicit KindUnexpected must win over message matching")
	}
}

func TestProviderErrorKeepsMessage(t *testing.T) {
	t.Parallel()

	cause := errors.New("HTTP 502 from upstream")
	err := Provider("bitbucket", KindUnreachable, cause)
	if err.Error() != cause.Error() {
		t.Errorf("Error() = %q, want %q", err.Error(), cause.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("ProviderError does not unwrap to its cause")
	}
}

func TestTypedPredicates(t *testing.T) {
	t.Parallel()

	if !IsValidation(fmt.Errorf("x: %w", Validation("invalid branch name"))) {
		t.Error("IsValidation = false")
	}
	if !IsNotFound(NotFound("ENG-1", "linear")) {
		t.Error("IsNotFound = false")
	}
	if !IsConfiguration(Configuration("teamKey is required for child issue creation")) {
		t.Error("IsConfiguration = false")
	}
	if got := NotFound("ENG-1", "linear").Error(); got != "ENG-1 not found in linear" {
		t.Errorf("NotFound message = %q", got)
	}
}
