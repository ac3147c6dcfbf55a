package domain

import "time"

// TokenRecord is the in-memory bearer credential for provider API calls.
// A record without a refresh token belongs to an anonymous (client
// credentials) session and cannot be refreshed past expiry; it must be
// re-acquired instead.
type TokenRecord struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Anonymous reports whether this is an app-only token.
func (t TokenRecord) Anonymous() bool {
	return t.RefreshToken == ""
}

// ExpiringWithin reports whether the token expires within skew of now.
func (t TokenRecord) ExpiringWithin(now time.Time, skew time.Duration) bool {
	return !now.Add(skew).Before(t.ExpiresAt)
}

// PKCEChallenge is a verifier/challenge pair for one authorization attempt.
// The verifier is persisted to a single-use slot before redirecting and is
// consumed exactly once during code exchange.
type PKCEChallenge struct {
	Verifier  string
	Challenge string
}
