package derive

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// FetchCache deduplicates the expensive, side-effecting fetches used
// to assemble a Context's state value. It sits strictly outside the
// engine's pull-based core: nothing fetched through it ever
// participates in dependency discovery, it only helps a caller build
// the value handed to Context.SetState cheaply when many goroutines
// (e.g. concurrent request handlers) want the same piece of data.
//
// This is the teacher's own request-scoped memoization pattern,
// repurposed: the core's call-stack protocol is explicitly a single
// shared structure per Context (not meant for concurrent entry), so
// singleflight-style dedup has no home inside Selector or Observer —
// it belongs here, one layer below, building the inputs instead of
// the derived outputs. Like a Context it logs its lifecycle through
// a zap.Logger rather than staying silent, defaulting to zap.NewNop()
// the same way NewContext does.
type FetchCache struct {
	group  singleflight.Group
	mu     sync.RWMutex
	store  map[string]any
	logger *zap.Logger
}

type fetchCacheKey struct{}

// FetchCacheOption configures a FetchCache created by WithFetchCache.
type FetchCacheOption func(*FetchCache)

// WithFetchCacheLogger attaches a zap.Logger that receives Debug-level
// fetch_hit/fetch_miss/fetch_dedup events for every key looked up
// through this FetchCache. Without this option the FetchCache logs
// nothing.
func WithFetchCacheLogger(logger *zap.Logger) FetchCacheOption {
	return func(c *FetchCache) {
		c.logger = logger
	}
}

// WithFetchCache returns a child context carrying a new FetchCache.
func WithFetchCache(ctx context.Context, opts ...FetchCacheOption) context.Context {
	c := &FetchCache{
		store:  make(map[string]any),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return context.WithValue(ctx, fetchCacheKey{}, c)
}

// FetchCacheFromContext retrieves the FetchCache from ctx, or nil if
// none is present.
func FetchCacheFromContext(ctx context.Context) *FetchCache {
	c, _ := ctx.Value(fetchCacheKey{}).(*FetchCache)
	return c
}

// Fetch returns the value for key, calling fn at most once per
// FetchCache for that key. Concurrent callers for the same key block
// and share the result; errors are not cached, so a failed fetch can
// be retried by the next caller.
//
// If ctx carries no FetchCache, fn runs directly — graceful
// degradation for code paths that haven't opted into request-scoped
// caching.
func Fetch[T any](ctx context.Context, key string, fn func() (T, error)) (T, error) {
	c := FetchCacheFromContext(ctx)
	if c == nil {
		return fn()
	}

	c.mu.RLock()
	if v, ok := c.store[key]; ok {
		c.mu.RUnlock()
		logFetchEvent(c.logger, eventFetchHit, key, false)
		return v.(T), nil
	}
	c.mu.RUnlock()

	val, err, shared := c.group.Do(key, func() (any, error) {
		c.mu.RLock()
		if v, ok := c.store[key]; ok {
			c.mu.RUnlock()
			return v, nil
		}
		c.mu.RUnlock()

		logFetchEvent(c.logger, eventFetchMiss, key, false)
		result, err := fn()
		if err != nil {
			return result, err
		}

		c.mu.Lock()
		c.store[key] = result
		c.mu.Unlock()

		return result, nil
	})

	if shared {
		logFetchEvent(c.logger, eventFetchDedup, key, true)
	}

	if err != nil {
		var zero T
		return zero, err
	}
	return val.(T), nil
}
