// Package store defines the durable key/value slot storage the session
// manager and engine rely on. Only three slots exist: the rotating refresh
// token, the in-flight PKCE verifier, and the serialized game configuration.
package store

import (
	"context"
	"errors"
)

// ErrNotFound reports an empty slot.
var ErrNotFound = errors.New("store: not found")

// Well-known slot keys.
const (
	// SlotRefreshToken holds the sealed rotating refresh token. It is the
	// only persisted secret.
	SlotRefreshToken = "refresh_token"

	// SlotPKCEVerifier holds the verifier for the one in-flight
	// authorization attempt. It must not survive a completed exchange,
	// successful or not.
	SlotPKCEVerifier = "pkce_verifier"

	// SlotGameConfig holds the serialized domain.GameConfig consumed at
	// game startup.
	SlotGameConfig = "game_config"
)

// Store is the root data access interface. Concrete drivers (sqlite today)
// implement this.
type Store interface {
	// Get returns the value in a slot, or ErrNotFound when it is empty.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes a slot, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Delete empties a slot. Deleting an already-empty slot is not an error.
	Delete(ctx context.Context, key string) error

	// ApplyMigrations brings the schema up to date.
	ApplyMigrations() error

	// Ping verifies the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error
}
