package session

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/encoreparty/encore/internal/encore/domain"
	"github.com/encoreparty/encore/pkg/cryptox"
)

// verifierBytes of entropy encode to 86 base64url characters, comfortably
// above the RFC 7636 minimum of 43.
const verifierBytes = 64

// newPKCEChallenge generates a fresh verifier/challenge pair using the S256
// method: challenge = base64url(SHA-256(verifier)) without padding.
func newPKCEChallenge() (domain.PKCEChallenge, error) {
	verifier, err := cryptox.RandomURLSafe(verifierBytes)
	if err != nil {
		return domain.PKCEChallenge{}, fmt.Errorf("failed to generate code verifier: %w", err)
	}

	return domain.PKCEChallenge{
		Verifier:  verifier,
		Challenge: challengeFor(verifier),
	}, nil
}

func challengeFor(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
