// Package source resolves abstract artist source references into
// deduplicated artist records. The engine only depends on the Resolver
// contract; the concrete implementation talks to the Spotify Web API.
package source

import (
	"context"
	"errors"

	"github.com/encoreparty/encore/internal/encore/domain"
)

// ErrNoArtists reports that the given sources produced no records at all.
var ErrNoArtists = errors.New("no_artists_resolved")

// TokenSource supplies a valid bearer token. The session manager satisfies
// this.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Resolver turns source references into a deduplicated artist list.
type Resolver interface {
	Resolve(ctx context.Context, refs []domain.SourceRef) ([]domain.Artist, error)
}
