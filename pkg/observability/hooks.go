// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about sheet composition, cache operations, and panel fetches.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetComposerHooks(&myComposerHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Composer().OnComposeStart(ctx, template, panelCount)
//	// ... compose the sheet ...
//	observability.Composer().OnComposeComplete(ctx, template, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Composer Hooks
// =============================================================================

// ComposerHooks receives events from the sheet composition pipeline.
type ComposerHooks interface {
	// Compose events
	OnComposeStart(ctx context.Context, template string, panelCount int)
	OnComposeComplete(ctx context.Context, template string, duration time.Duration, err error)

	// Per-slot events
	OnSlotPlaced(ctx context.Context, key string, occupancy float64, duration time.Duration, err error)

	// OnSubstitution records a lenient panel replaced by a placeholder.
	OnSubstitution(ctx context.Context, key, reason string)

	// OnTrimFallback records a trim attempt that fell back to the
	// untrimmed source.
	OnTrimFallback(ctx context.Context, key, strategy string, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Fetch Hooks
// =============================================================================

// FetchHooks receives events from panel source fetches.
type FetchHooks interface {
	// OnFetch records an outgoing source fetch.
	OnFetch(ctx context.Context, host, path string)

	// OnFetchComplete records a fetch response.
	OnFetchComplete(ctx context.Context, host, path string, statusCode, size int, duration time.Duration)

	// OnFetchError records a fetch failure (network failure, timeout,
	// rejected payload).
	OnFetchError(ctx context.Context, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopComposerHooks is a no-op implementation of ComposerHooks.
type NoopComposerHooks struct{}

func (NoopComposerHooks) OnComposeStart(context.Context, string, int)                       {}
func (NoopComposerHooks) OnComposeComplete(context.Context, string, time.Duration, error)   {}
func (NoopComposerHooks) OnSlotPlaced(context.Context, string, float64, time.Duration, error) {
}
func (NoopComposerHooks) OnSubstitution(context.Context, string, string)        {}
func (NoopComposerHooks) OnTrimFallback(context.Context, string, string, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopFetchHooks is a no-op implementation of FetchHooks.
type NoopFetchHooks struct{}

func (NoopFetchHooks) OnFetch(context.Context, string, string)                                {}
func (NoopFetchHooks) OnFetchComplete(context.Context, string, string, int, int, time.Duration) {}
func (NoopFetchHooks) OnFetchError(context.Context, string, string, error)                    {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	composerHooks ComposerHooks = NoopComposerHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	fetchHooks    FetchHooks    = NoopFetchHooks{}
	hooksMu       sync.RWMutex
)

// SetComposerHooks registers custom composer hooks.
// This should be called once at application startup before any compositions.
func SetComposerHooks(h ComposerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		composerHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetFetchHooks registers custom fetch hooks.
// This should be called once at application startup before any fetches.
func SetFetchHooks(h FetchHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		fetchHooks = h
	}
}

// Composer returns the registered composer hooks.
func Composer() ComposerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return composerHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Fetch returns the registered fetch hooks.
func Fetch() FetchHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return fetchHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	composerHooks = NoopComposerHooks{}
	cacheHooks = NoopCacheHooks{}
	fetchHooks = NoopFetchHooks{}
}
