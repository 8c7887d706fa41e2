// Package bitbucket is a small client for the BitBucket Cloud 2.0 REST API,
// covering the issue and pull request endpoints loom needs.
//
// Reads are retried with exponential backoff on 5xx responses; writes are
// sent once. Failures come back as *APIError, already classified for
// graceful degradation via errs.KindOf.
package bitbucket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/raphi011/loom/internal/errs"
	"github.com/raphi011/loom/internal/log"
)

const (
	// DefaultBaseURL is the BitBucket Cloud API root.
	DefaultBaseURL = "https://api.bitbucket.org/2.0"

	defaultTimeout  = 30 * time.Second
	maxRetryElapsed = 20 * time.Second
	maxPageLen      = 50
)

// Client talks to one repository.
type Client struct {
	BaseURL     string
	Workspace   string
	RepoSlug    string
	Username    string
	AppPassword string
	HTTPClient  *http.Client

	// NewBackOff returns the retry policy for reads. BackOff values are
	// stateful, so every call gets a fresh one.
	NewBackOff func() backoff.BackOff
}

// NewClient creates a client for workspace/repoSlug authenticated with an
// app password.
func NewClient(workspace, repoSlug, username, appPassword string) *Client {
	return &Client{
		BaseURL:     DefaultBaseURL,
		Workspace:   workspace,
		RepoSlug:    repoSlug,
		Username:    username,
		AppPassword: appPassword,
		HTTPClient:  &http.Client{Timeout: defaultTimeout},
		NewBackOff:  defaultBackOff,
	}
}

func defaultBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxRetryElapsed
	return backoff.WithMaxRetries(bo, 3)
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("bitbucket: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("bitbucket: %s (HTTP %d)", e.Message, e.StatusCode)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// kindForStatus maps an HTTP status onto a provider error kind.
func kindForStatus(status int) errs.Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errs.KindUnauthenticated
	case status == http.StatusTooManyRequests:
		return errs.KindRateLimited
	case status >= 500:
		return errs.KindUnreachable
	default:
		return errs.KindUnexpected
	}
}

func (c *Client) repoPath(parts ...string) string {
	segs := []string{"repositories", url.PathEscape(c.Workspace), url.PathEscape(c.RepoSlug)}
	return "/" + strings.Join(append(segs, parts...), "/")
}

// get fetches path into out, retrying 5xx responses.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	target := c.resolve(path, query)
	bo := c.backOff()
	return backoff.Retry(func() error {
		err := c.do(ctx, http.MethodGet, target, nil, out)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 500 {
			log.FromContext(ctx).Debug("bitbucket request failed, retrying", "status", apiErr.StatusCode, "url", target)
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(bo, ctx))
}

// send issues a write request once.
func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, method, c.resolve(path, nil), payload, out)
}

func (c *Client) resolve(path string, query url.Values) string {
	// Pagination hands back absolute URLs.
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	target := strings.TrimRight(c.BaseURL, "/") + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}

func (c *Client) do(ctx context.Context, method, target string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Username != "" || c.AppPassword != "" {
		req.SetBasicAuth(c.Username, c.AppPassword)
	}

	done := log.FromContext(ctx).Command("", method, target)
	start := time.Now()
	resp, err := c.httpClient().Do(req)
	done(time.Since(start))
	if err != nil {
		return errs.Provider("bitbucket", errs.KindOf(err), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
		return errs.Provider("bitbucket", kindForStatus(resp.StatusCode), apiErr)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse bitbucket response: %w", err)
	}
	return nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}

func (c *Client) backOff() backoff.BackOff {
	if c.NewBackOff == nil {
		return defaultBackOff()
	}
	return c.NewBackOff()
}

// errorMessage extracts {"error": {"message": ...}} from an error body.
func errorMessage(body []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return strings.TrimSpace(string(body))
}
