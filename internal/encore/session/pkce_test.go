package session

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPKCEChallenge(t *testing.T) {
	t.Parallel()

	t.Run("verifier meets RFC 7636 requirements", func(t *testing.T) {
		c, err := newPKCEChallenge()
		require.NoError(t, err)

		require.GreaterOrEqual(t, len(c.Verifier), 43)
		// base64url alphabet only: unreserved characters, no padding.
		require.NotContains(t, c.Verifier, "=")
		require.NotContains(t, c.Verifier, "+")
		require.NotContains(t, c.Verifier, "/")
	})

	t.Run("challenge is base64url SHA-256 of the verifier", func(t *testing.T) {
		c, err := newPKCEChallenge()
		require.NoError(t, err)

		sum := sha256.Sum256([]byte(c.Verifier))
		require.Equal(t, base64.RawURLEncoding.EncodeToString(sum[:]), c.Challenge)
		require.NotContains(t, c.Challenge, "=")
	})

	t.Run("every challenge is unique", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 16; i++ {
			c, err := newPKCEChallenge()
			require.NoError(t, err)
			require.False(t, seen[c.Verifier])
			seen[c.Verifier] = true
		}
	})
}
