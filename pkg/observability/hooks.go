// Package observability provides hooks for metrics and tracing.
//
// Libraries emit events through the registered hooks; binaries register
// implementations at startup. Without registration every hook is a no-op,
// so packages never depend on a particular metrics backend.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetBatchHooks(&myBatchHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Batch().OnDrawingStart(ctx, path)
//	// ... plot pages ...
//	observability.Batch().OnDrawingComplete(ctx, path, pages, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Batch Hooks
// =============================================================================

// BatchHooks receives events from the batch orchestrator.
type BatchHooks interface {
	// OnDrawingStart is called before a drawing is opened.
	OnDrawingStart(ctx context.Context, path string)

	// OnDrawingComplete is called once per selected drawing with the number
	// of pages plotted.
	OnDrawingComplete(ctx context.Context, path string, pages int, duration time.Duration, err error)

	// OnPageComplete is called for every page attempt. status is one of
	// "plotted", "skipped" or "failed".
	OnPageComplete(ctx context.Context, artifact, status string, duration time.Duration)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from the fingerprint store.
type CacheHooks interface {
	// OnFresh records an artifact found up to date.
	OnFresh(ctx context.Context, artifact string)

	// OnStale records an artifact that needs replotting. reason is a short
	// tag such as "missing", "merged", "source" or "fingerprint".
	OnStale(ctx context.Context, artifact, reason string)

	// OnHeal records a timestamp refresh after an unchanged fingerprint.
	OnHeal(ctx context.Context, artifact string)
}

// =============================================================================
// Server Hooks
// =============================================================================

// ServerHooks receives events from the status server.
type ServerHooks interface {
	// OnRequest records a served request.
	OnRequest(ctx context.Context, method, route string, status int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopBatchHooks is a no-op implementation of BatchHooks.
type NoopBatchHooks struct{}

func (NoopBatchHooks) OnDrawingStart(context.Context, string) {}
func (NoopBatchHooks) OnDrawingComplete(context.Context, string, int, time.Duration, error) {
}
func (NoopBatchHooks) OnPageComplete(context.Context, string, string, time.Duration) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnFresh(context.Context, string)         {}
func (NoopCacheHooks) OnStale(context.Context, string, string) {}
func (NoopCacheHooks) OnHeal(context.Context, string)          {}

// NoopServerHooks is a no-op implementation of ServerHooks.
type NoopServerHooks struct{}

func (NoopServerHooks) OnRequest(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	batchHooks  BatchHooks  = NoopBatchHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	serverHooks ServerHooks = NoopServerHooks{}
	hooksMu     sync.RWMutex
)

// SetBatchHooks registers custom batch hooks.
// This should be called once at application startup before any batch runs.
func SetBatchHooks(h BatchHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		batchHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetServerHooks registers custom server hooks.
func SetServerHooks(h ServerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		serverHooks = h
	}
}

// Batch returns the registered batch hooks.
func Batch() BatchHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return batchHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Server returns the registered server hooks.
func Server() ServerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return serverHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	batchHooks = NoopBatchHooks{}
	cacheHooks = NoopCacheHooks{}
	serverHooks = NoopServerHooks{}
}
