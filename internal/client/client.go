// Package client is a typed HTTP client for the storefront API. It keeps the
// session token in a cart.Storage and satisfies cart.Remote.
package client

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

	"aurum-storefront/internal/cart"
	"aurum-storefront/internal/domain"
)

// KeySession is the storage key of the bearer token.
const KeySession = "session"

// ErrUnauthorized is returned when the API rejects the session.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// Is matches ErrUnauthorized for 401 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// ConflictError is a cart save rejected because the stored version moved on.
type ConflictError struct {
	Version int64
	Items   []domain.LineItem
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cart version conflict: stored version is %d", e.Version)
}

func (e *ConflictError) Is(target error) bool {
	return target == domain.ErrConflict
}

// SendResponse is the reply to a code request.
type SendResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Warning string `json:"warning,omitempty"`
}

// VerifyResponse is the reply to a successful code check.
type VerifyResponse struct {
	Success  bool             `json:"success"`
	Token    string           `json:"token"`
	Customer *domain.Customer `json:"customer"`
}

// Client talks to one API base URL.
type Client struct {
	baseURL string
	http    *http.Client
	storage cart.Storage
}

var _ cart.Remote = (*Client)(nil)

// New creates a Client. storage holds the session token between runs.
func New(baseURL string, storage cart.Storage, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		storage: storage,
	}
}

// Token returns the stored session token.
func (c *Client) Token() (string, bool) {
	data, err := c.storage.Load(KeySession)
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(string(data))
	return token, token != ""
}

func (c *Client) HasSession() bool {
	_, ok := c.Token()
	return ok
}

// Logout forgets the session token.
func (c *Client) Logout() error {
	return c.storage.Remove(KeySession)
}

// SendOTP asks the API to mail a login code.
func (c *Client) SendOTP(ctx context.Context, email string) (*SendResponse, error) {
	var out SendResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/otp", map[string]string{"action": "send", "email": email}, false, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyOTP exchanges a code for a session and stores the token.
func (c *Client) VerifyOTP(ctx context.Context, email, code string) (*VerifyResponse, error) {
	var out VerifyResponse
	body := map[string]string{"action": "verify", "email": email, "code": code}
	if err := c.do(ctx, http.MethodPost, "/api/auth/otp", body, false, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, errors.New("verify response carried no token")
	}
	if err := c.storage.Save(KeySession, []byte(out.Token)); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return &out, nil
}

// Me loads the signed-in customer's profile.
func (c *Client) Me(ctx context.Context) (*domain.Customer, error) {
	var out domain.Customer
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type cartEnvelope struct {
	Cart    []domain.LineItem `json:"cart"`
	Version int64             `json:"version"`
}

func (c *Client) GetCart(ctx context.Context) (*domain.RemoteCart, error) {
	var out cartEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/auth/cart", nil, true, &out); err != nil {
		return nil, err
	}
	return &domain.RemoteCart{Items: domain.CloneItems(out.Cart), Version: out.Version}, nil
}

// SaveCart replaces the remote cart. A stale expected version yields *ConflictError.
func (c *Client) SaveCart(ctx context.Context, items []domain.LineItem, expected *int64) (*domain.RemoteCart, error) {
	body := struct {
		Cart    []domain.LineItem `json:"cart"`
		Version *int64            `json:"version,omitempty"`
	}{Cart: domain.CloneItems(items), Version: expected}

	var out cartEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/auth/cart", body, true, &out); err != nil {
		return nil, err
	}
	return &domain.RemoteCart{Items: domain.CloneItems(out.Cart), Version: out.Version}, nil
}

func (c *Client) do(ctx context.Context, method, path string, in any, auth bool, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if auth {
		token, ok := c.Token()
		if !ok {
			return ErrUnauthorized
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	var body struct {
		Error   string            `json:"error"`
		Version int64             `json:"version"`
		Cart    []domain.LineItem `json:"cart"`
	}
	_ = json.Unmarshal(raw, &body)

	if status == http.StatusConflict {
		return &ConflictError{Version: body.Version, Items: domain.CloneItems(body.Cart)}
	}
	msg := body.Error
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{Status: status, Message: msg}
}
