package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// Client is an HTTP client for the roster API that carries the session: it
// attaches the bearer token to every request and tears the session down on
// any 401, exactly once even when several in-flight requests fail together.
type Client struct {
	baseURL string
	http    *http.Client
	session *Session
	logger  *zap.Logger
}

// NewClient builds a client around the given session. httpClient may be
// nil, in which case http.DefaultClient is used.
func NewClient(baseURL string, sess *Session, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{baseURL: baseURL, http: httpClient, session: sess, logger: logger}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *apiError       `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *apiError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// Do performs an API call, decoding the enveloped response data into dest
// when dest is non-nil. A 401 response expires the session before the
// error is returned.
func (c *Client) Do(ctx context.Context, method, path string, body, dest interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// Server-side expiry and idle expiry end the session the same
		// way; only the reason differs.
		c.session.Expire(ReasonUnauthorized)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		if env.Error != nil {
			return env.Error
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if dest != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, dest); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}

	return nil
}

type authResult struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
	UserID   string `json:"user_id"`
}

// Login authenticates and begins a new session on success.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var res authResult
	payload := map[string]string{"username": username, "password": password}
	if err := c.Do(ctx, http.MethodPost, "/api/login", payload, &res); err != nil {
		return err
	}

	c.session.Begin(State{Token: res.Token, Username: res.Username, Role: res.Role, UserID: res.UserID})
	return nil
}

// Signup registers a new account and begins a session on success.
func (c *Client) Signup(ctx context.Context, username, password string) error {
	var res authResult
	payload := map[string]string{"username": username, "password": password}
	if err := c.Do(ctx, http.MethodPost, "/api/signup", payload, &res); err != nil {
		return err
	}

	c.session.Begin(State{Token: res.Token, Username: res.Username, Role: res.Role, UserID: res.UserID})
	return nil
}

// Logout discards the local session. The server holds no per-session state
// to notify; the token simply ages out.
func (c *Client) Logout() {
	c.session.Logout()
}
