package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/raphi011/loom/internal/errs"
	"github.com/raphi011/loom/internal/log"
)

const (
	// DefaultEndpoint is the Linear GraphQL API endpoint.
	DefaultEndpoint = "https://api.linear.app/graphql"

	defaultTimeout  = 30 * time.Second
	maxRetryElapsed = 20 * time.Second
)

// Client sends GraphQL requests to Linear.
type Client struct {
	APIKey     string
	Endpoint   string
	HTTPClient *http.Client

	// NewBackOff returns the retry policy for queries. Mutations are
	// never retried.
	NewBackOff func() backoff.BackOff
}

// NewClient creates a client authenticated with a personal API key.
func NewClient(apiKey string) *Client {
	return &Client{
		APIKey:     apiKey,
		Endpoint:   DefaultEndpoint,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		NewBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.MaxElapsedTime = maxRetryElapsed
			return backoff.WithMaxRetries(bo, 3)
		},
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code                   string `json:"code"`
		Type                   string `json:"type"`
		UserPresentableMessage string `json:"userPresentableMessage"`
	} `json:"extensions"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

// Error is a GraphQL or HTTP level failure.
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode != 0 && e.Message == "" {
		return fmt.Sprintf("linear: HTTP %d", e.StatusCode)
	}
	return "linear: " + e.Message
}

// isNotFound reports whether err says the requested entity does not exist.
func isNotFound(err error) bool {
	var le *Error
	if !errors.As(err, &le) {
		return false
	}
	msg := strings.ToLower(le.Message)
	return le.Code == "ENTITY_NOT_FOUND" ||
		strings.Contains(msg, "entity not found") ||
		strings.Contains(msg, "could not find referenced")
}

func kindOf(e *Error) errs.Kind {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden,
		e.Code == "AUTHENTICATION_ERROR", e.Code == "FORBIDDEN":
		return errs.KindUnauthenticated
	case e.StatusCode == http.StatusTooManyRequests, e.Code == "RATELIMITED":
		return errs.KindRateLimited
	case e.StatusCode >= 500:
		return errs.KindUnreachable
	default:
		return errs.KindUnexpected
	}
}

// Query runs a read-only request, retrying 5xx responses.
func (c *Client) Query(ctx context.Context, query string, vars map[string]any, out any) error {
	bo := c.NewBackOff
	if bo == nil {
		bo = func() backoff.BackOff { return &backoff.StopBackOff{} }
	}
	return backoff.Retry(func() error {
		err := c.execute(ctx, query, vars, out)
		var le *Error
		if errors.As(err, &le) && le.StatusCode >= 500 {
			log.FromContext(ctx).Debug("linear request failed, retrying", "status", le.StatusCode)
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(bo(), ctx))
}

// Mutate runs a mutation once.
func (c *Client) Mutate(ctx context.Context, mutation string, vars map[string]any, out any) error {
	return c.execute(ctx, mutation, vars, out)
}

func (c *Client) execute(ctx context.Context, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.APIKey)

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	done := log.FromContext(ctx).Command("", "POST", endpoint)
	start := time.Now()
	resp, err := httpClient.Do(req)
	done(time.Since(start))
	if err != nil {
		return errs.Provider("linear", errs.KindOf(err), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	// Linear reports GraphQL errors with 200 and 400 alike.
	var gqlResp graphQLResponse
	parseErr := json.Unmarshal(respBody, &gqlResp)

	if len(gqlResp.Errors) > 0 {
		first := gqlResp.Errors[0]
		msgs := make([]string, len(gqlResp.Errors))
		for i, e := range gqlResp.Errors {
			msgs[i] = e.Message
			if e.Extensions.UserPresentableMessage != "" {
				msgs[i] = e.Extensions.UserPresentableMessage
			}
		}
		le := &Error{StatusCode: resp.StatusCode, Code: first.Extensions.Code, Message: strings.Join(msgs, "; ")}
		if resp.StatusCode < 300 {
			le.StatusCode = 0
		}
		return errs.Provider("linear", kindOf(le), le)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		le := &Error{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		if len(le.Message) > 200 {
			le.Message = le.Message[:200]
		}
		return errs.Provider("linear", kindOf(le), le)
	}

	if parseErr != nil {
		return fmt.Errorf("failed to parse linear response: %w", parseErr)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(gqlResp.Data, out); err != nil {
		return fmt.Errorf("failed to parse linear data: %w", err)
	}
	return nil
}
