package gamesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client is a Go client for the game service API. It covers the session
// and game endpoints; the websocket stream is left to the caller.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Session reports whether the service holds a logged-in session.
func (c *Client) Session(ctx context.Context) (SessionResponse, error) {
	var out SessionResponse
	err := c.doJSON(ctx, http.MethodGet, "/v1/session", nil, &out)
	return out, err
}

// Login returns the provider authorization URL to open in a browser.
func (c *Client) Login(ctx context.Context) (LoginResponse, error) {
	var out LoginResponse
	err := c.doJSON(ctx, http.MethodGet, "/login?redirect=false", nil, &out)
	return out, err
}

// Logout clears the service's session.
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/logout", nil, nil)
}

// StartGame configures and sets up a new game, returning the initial
// snapshot. An under-provisioned pool comes back as an *APIError with code
// insufficient_artists; State then serves the error-phase snapshot with
// the full diagnostic.
func (c *Client) StartGame(ctx context.Context, req StartGameRequest) (StateResponse, error) {
	var out StateResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/game", req, &out)
	return out, err
}

// Go sends the go/continue signal.
func (c *Client) Go(ctx context.Context) (StateResponse, error) {
	var out StateResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/game/go", nil, &out)
	return out, err
}

// Correct scores the current artist.
func (c *Client) Correct(ctx context.Context) (StateResponse, error) {
	var out StateResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/game/correct", nil, &out)
	return out, err
}

// Pass skips the current artist.
func (c *Client) Pass(ctx context.Context) (StateResponse, error) {
	var out StateResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/game/pass", nil, &out)
	return out, err
}

// End force-finishes the current turn.
func (c *Client) End(ctx context.Context) (StateResponse, error) {
	var out StateResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/game/end", nil, &out)
	return out, err
}

// State returns the current snapshot.
func (c *Client) State(ctx context.Context) (StateResponse, error) {
	var out StateResponse
	err := c.doJSON(ctx, http.MethodGet, "/v1/game/state", nil, &out)
	return out, err
}

// Summary returns the final result sheet once the game is over.
func (c *Client) Summary(ctx context.Context) (SummaryResponse, error) {
	var out SummaryResponse
	err := c.doJSON(ctx, http.MethodGet, "/v1/game/summary", nil, &out)
	return out, err
}

// Livez probes service liveness.
func (c *Client) Livez(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.doJSON(ctx, http.MethodGet, "/livez", nil, &out)
	return out, err
}

// Readyz probes service readiness, including its dependencies.
func (c *Client) Readyz(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.doJSON(ctx, http.MethodGet, "/readyz", nil, &out)
	return out, err
}

// doJSON sends a request with an optional JSON body and decodes a JSON
// response. Non-2xx responses are returned as *APIError.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Code == "" {
			apiErr.Code = ErrorCodeServerError
			apiErr.Description = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
