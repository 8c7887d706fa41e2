// Package errs defines the error taxonomy shared by the resolution core.
//
// Validation, not-found and configuration errors abort a command with a
// clear message. Provider errors carry a [Kind]: expected kinds degrade to
// partial results, [KindUnexpected] is always propagated. Cache errors are
// absorbed by the cache and only ever logged.
package errs

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"syscall"
)

// ValidationError reports malformed local input. Never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validation builds a ValidationError.
func Validation(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an identifier the configured backend cannot resolve.
type NotFoundError struct {
	Identifier string
	Provider   string
}

func (e *NotFoundError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("%s not found", e.Identifier)
	}
	return fmt.Sprintf("%s not found in %s", e.Identifier, e.Provider)
}

// NotFound builds a NotFoundError.
func NotFound(identifier, provider string) error {
	return &NotFoundError{Identifier: identifier, Provider: provider}
}

// ConfigurationError reports settings that make an operation impossible.
// Raised before any network call whenever it can be detected statically.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return e.Msg }

// Configuration builds a ConfigurationError.
func Configuration(format string, args ...any) error {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// Kind classifies a failed backend call.
type Kind int

const (
	KindUnexpected Kind = iota
	KindUnauthenticated
	KindRateLimited
	KindUnreachable
	KindNoRemotes
	KindMissingCredentials
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindRateLimited:
		return "rate limited"
	case KindUnreachable:
		return "unreachable"
	case KindNoRemotes:
		return "no remotes"
	case KindMissingCredentials:
		return "missing credentials"
	default:
		return "unexpected"
	}
}

// Expected reports whether callers may degrade gracefully on this kind.
func (k Kind) Expected() bool {
	return k != KindUnexpected
}

// ProviderError is a classified backend failure. Its message is the cause's
// message so the original text reaches the user intact.
type ProviderError struct {
	Provider string
	Kind     Kind
	Err      error
}

func (e *ProviderError) Error() string { return e.Err.Error() }

func (e *ProviderError) Unwrap() error { return e.Err }

// Provider wraps err as a ProviderError of the given kind.
func Provider(provider string, kind Kind, err error) error {
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

// CacheError reports a failed cache read or write. Never surfaced to callers.
type CacheError struct {
	Op   string
	Path string
	Err  error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

// KindOf returns the provider kind of err. Structured causes (ProviderError,
// net errors, deadlines, missing executables) are checked first; a bare
// error falls back to its message, for collaborators that only expose text.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnexpected
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	// Local failures are never provider failures, whatever they say.
	if IsConfiguration(err) || IsValidation(err) || IsNotFound(err) {
		return KindUnexpected
	}
	if k := structuralKind(err); k != KindUnexpected {
		return k
	}
	return KindFromMessage(err.Error())
}

// IsExpected reports whether err is a provider failure that callers may
// log and recover from.
func IsExpected(err error) bool {
	return KindOf(err).Expected()
}

func structuralKind(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return KindUnreachable
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindUnreachable
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindUnreachable
	}
	if errors.Is(err, exec.ErrNotFound) {
		return KindMissingCredentials
	}
	return KindUnexpected
}

var messageKinds = []struct {
	kind    Kind
	needles []string
}{
	{KindUnauthenticated, []string{"not logged in", "not logged into", "gh auth login", "authentication required", "bad credentials", "unauthorized"}},
	{KindRateLimited, []string{"rate limit", "too many requests"}},
	{KindUnreachable, []string{"connection refused", "timeout", "timed out", "could not resolve host", "no such host", "network is unreachable"}},
	{KindNoRemotes, []string{"no git remotes", "none of the git remotes", "no remotes", "not a git repository"}},
	{KindMissingCredentials, []string{"missing credentials", "token not configured", "executable file not found"}},
}

// KindFromMessage classifies a CLI or library error message. Returns
// KindUnexpected when nothing matches.
func KindFromMessage(msg string) Kind {
	msg = strings.ToLower(msg)
	for _, mk := range messageKinds {
		for _, n := range mk.needles {
			if strings.Contains(msg, n) {
				return mk.kind
			}
		}
	}
	return KindUnexpected
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConfiguration reports whether err is a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
