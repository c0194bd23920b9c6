// Package shopify is a minimal Shopify Admin API client covering the customer,
// address, cart metafield, and order calls the storefront backend makes.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"aurum-storefront/internal/domain"
	"github.com/rs/zerolog"
)

// ErrEmailTaken is returned by CreateCustomer when the platform already has the email.
var ErrEmailTaken = fmt.Errorf("email has already been taken: %w", domain.ErrAlreadyExists)

// Config locates the shop.
type Config struct {
	Domain      string
	AccessToken string
	APIVersion  string
	Timeout     time.Duration
	// BaseURL replaces https://<Domain>/admin/api/<APIVersion> when set.
	BaseURL string
}

// Client talks to one shop. Calls are single attempt.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	logger  zerolog.Logger
}

// New builds a Client.
func New(cfg Config, logger zerolog.Logger) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s/admin/api/%s", cfg.Domain, cfg.APIVersion)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(base, "/"),
		token:   cfg.AccessToken,
		logger:  logger,
	}
}

// GraphQLError carries top-level GraphQL errors.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	if len(e.Messages) == 0 {
		return "shopify graphql error"
	}
	return e.Messages[0]
}

// FieldError is one entry of a mutation's userErrors.
type FieldError struct {
	Field   []string `json:"field,omitempty"`
	Message string   `json:"message"`
}

// UserError reports validation errors returned by a mutation.
type UserError struct {
	Op     string
	Errors []FieldError
}

func (e *UserError) Error() string {
	if len(e.Errors) == 0 {
		return e.Op + " failed"
	}
	return e.Errors[0].Message
}

// Taken reports whether the first error says a unique value is already in use.
func (e *UserError) Taken() bool {
	return len(e.Errors) > 0 && strings.Contains(e.Errors[0].Message, "taken")
}

// StatusError is a non-2xx HTTP response the body of which could not be read as GraphQL.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("shopify: unexpected status %d: %s", e.StatusCode, e.Body)
}

func userErrors(op string, errs []FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	return &UserError{Op: op, Errors: errs}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// graphql posts query and decodes the data member into out.
func (c *Client) graphql(ctx context.Context, op, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("encode %s: %w", op, err)
	}
	raw, status, err := c.send(ctx, http.MethodPost, c.baseURL+"/graphql.json", body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var resp graphQLResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		if status >= http.StatusBadRequest {
			return &StatusError{StatusCode: status, Body: truncate(string(raw), 256)}
		}
		return fmt.Errorf("decode %s: %w", op, err)
	}
	if len(resp.Errors) > 0 {
		gqlErr := &GraphQLError{}
		for _, e := range resp.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		c.logger.Error().Str("op", op).Strs("errors", gqlErr.Messages).Msg("graphql errors")
		return gqlErr
	}
	if status >= http.StatusBadRequest {
		return &StatusError{StatusCode: status, Body: truncate(string(raw), 256)}
	}
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", op, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, url string, body []byte) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.token)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	c.logger.Debug().
		Str("method", method).
		Str("url", url).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("shopify call")
	return raw, resp.StatusCode, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// NumericID strips a gid://shopify/<Type>/ prefix and any query suffix.
func NumericID(gid string) string {
	id := gid
	if i := strings.IndexByte(id, '?'); i >= 0 {
		id = id[:i]
	}
	if strings.HasPrefix(id, "gid://") {
		if i := strings.LastIndexByte(id, '/'); i >= 0 {
			id = id[i+1:]
		}
	}
	return id
}
