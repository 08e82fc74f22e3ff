// Package cache provides byte caching for fetched panel sources.
//
// Panel images are generated upstream and addressed by URL; re-invoking the
// composer for a retry should not re-download sources that did not change.
// The cache stores raw payload bytes keyed by a SHA-256 digest of the
// source address, with a per-entry TTL.
//
// Backends:
//   - FileCache: JSON entry files under a directory, for CLI usage
//   - RedisCache: shared cache for multi-instance deployments
//   - NullCache: caching disabled
//
// All backends are safe for concurrent use by multiple goroutines.
package cache

import (
	"context"
	"time"
)

// TTL defaults for cached panel payloads.
const (
	// TTLPanel is the default lifetime of fetched panel bytes. Panel
	// sources are content-addressed upstream per generation attempt, so a
	// short TTL only needs to cover retry loops.
	TTLPanel = 6 * time.Hour
)

// Cache stores and retrieves byte payloads with expiration.
type Cache interface {
	// Get retrieves a value. The second return value reports whether the
	// key was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL. A TTL of 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer generates cache keys for the different payload kinds.
type Keyer interface {
	// PanelKey generates a key for fetched panel bytes.
	PanelKey(source string) string
}

// DefaultKeyer is the standard key scheme: a namespaced SHA-256 of the
// source address.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// PanelKey generates a key for fetched panel bytes.
func (DefaultKeyer) PanelKey(source string) string {
	return "panel:" + Hash([]byte(source))
}

// ScopedKeyer wraps a Keyer with a prefix so separate projects or runs can
// share one backend without key collisions.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// PanelKey generates a prefixed key for fetched panel bytes.
func (k *ScopedKeyer) PanelKey(source string) string {
	return k.prefix + k.inner.PanelKey(source)
}
