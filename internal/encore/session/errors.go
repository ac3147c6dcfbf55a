package session

import (
	"errors"
	"fmt"
)

// Sentinel errors for the authentication lifecycle. Callers route on these:
// denied/missing-verifier back to the login screen, expired sessions force a
// re-login, network errors are surfaced for the caller's retry policy.
var (
	// ErrAuthorizationDenied reports that the provider or the user declined
	// the authorization request.
	ErrAuthorizationDenied = errors.New("authorization_denied")

	// ErrMissingVerifier reports that no PKCE verifier matched the callback,
	// from cleared storage or a replayed callback.
	ErrMissingVerifier = errors.New("missing_verifier")

	// ErrTokenExchangeFailed reports a rejected authorization-code exchange.
	ErrTokenExchangeFailed = errors.New("token_exchange_failed")

	// ErrSessionExpired reports an unrecoverable refresh failure. All stored
	// credentials have been cleared by the time callers see it.
	ErrSessionExpired = errors.New("session_expired")

	// ErrNetwork reports a transport-level failure reaching the provider.
	ErrNetwork = errors.New("network_error")

	// ErrAnonymousUnavailable reports that app-only access was needed but no
	// client secret is configured. Embedding the secret in a distributed
	// client is deliberately not supported; configure it server-side or
	// require user login.
	ErrAnonymousUnavailable = errors.New("anonymous_mode_unavailable")
)

// ProviderError is an OAuth2 error response from the provider's token
// endpoint per RFC 6749.
type ProviderError struct {
	Status      int    // HTTP status code
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *ProviderError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("provider error %d: %s", e.Status, e.Code)
	}
	return fmt.Sprintf("provider error %d: %s: %s", e.Status, e.Code, e.Description)
}

// Temporary reports whether the provider failure is a server-side one worth
// retrying.
func (e *ProviderError) Temporary() bool {
	return e.Status >= 500
}
