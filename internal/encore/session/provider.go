package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ProviderConfig names the identity provider endpoints and client identity.
// Defaults target Spotify's Accounts service.
type ProviderConfig struct {
	ClientID string

	// ClientSecret is only required for anonymous (client credentials)
	// access. Leave empty to disable the anonymous fallback.
	ClientSecret string

	AuthorizeURL string
	TokenURL     string
	RedirectURI  string
	Scopes       []string
}

// DefaultProviderConfig returns the Spotify endpoints with the given client
// identity.
func DefaultProviderConfig(clientID, clientSecret, redirectURI string) ProviderConfig {
	return ProviderConfig{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		AuthorizeURL: "https://accounts.spotify.com/authorize",
		TokenURL:     "https://accounts.spotify.com/api/token",
		RedirectURI:  redirectURI,
		Scopes: []string{
			"user-top-read",
			"user-follow-read",
			"user-library-read",
			"playlist-read-private",
		},
	}
}

// tokenResponse is the token endpoint success shape per RFC 6749.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
}

// providerClient performs the raw HTTP calls against the provider.
type providerClient struct {
	cfg   ProviderConfig
	httpc *http.Client
}

// authorizeURL builds the provider authorization redirect target for one
// login attempt.
func (p *providerClient) authorizeURL(challenge string) string {
	q := url.Values{
		"client_id":             {p.cfg.ClientID},
		"response_type":         {"code"},
		"redirect_uri":          {p.cfg.RedirectURI},
		"scope":                 {strings.Join(p.cfg.Scopes, " ")},
		"code_challenge_method": {"S256"},
		"code_challenge":        {challenge},
	}
	return p.cfg.AuthorizeURL + "?" + q.Encode()
}

// exchangeCode trades an authorization code plus PKCE verifier for tokens.
func (p *providerClient) exchangeCode(ctx context.Context, code, verifier string) (*tokenResponse, error) {
	data := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {p.cfg.RedirectURI},
		"client_id":     {p.cfg.ClientID},
		"code_verifier": {verifier},
	}
	return p.requestToken(ctx, data, false)
}

// refresh trades a refresh token for a new token pair. The provider may
// rotate the refresh token.
func (p *providerClient) refresh(ctx context.Context, refreshToken string) (*tokenResponse, error) {
	data := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {p.cfg.ClientID},
	}
	return p.requestToken(ctx, data, false)
}

// clientCredentials acquires an app-only token for public, non-personalized
// data. Authenticates with HTTP Basic per the provider's requirements.
func (p *providerClient) clientCredentials(ctx context.Context) (*tokenResponse, error) {
	data := url.Values{
		"grant_type": {"client_credentials"},
	}
	return p.requestToken(ctx, data, true)
}

func (p *providerClient) requestToken(ctx context.Context, data url.Values, basicAuth bool) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		p.cfg.TokenURL,
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if basicAuth {
		req.SetBasicAuth(p.cfg.ClientID, p.cfg.ClientSecret)
	}

	resp, err := p.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, parseProviderError(resp.StatusCode, body)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &tr, nil
}

// parseProviderError turns a non-2xx token endpoint response into a
// ProviderError, falling back to the HTTP status when the body is not the
// standard {error, error_description} shape.
func parseProviderError(status int, body []byte) error {
	pe := &ProviderError{Status: status}
	if err := json.Unmarshal(body, pe); err == nil && pe.Code != "" {
		return pe
	}

	pe.Code = "server_error"
	pe.Description = fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))
	return pe
}
