package derive

import (
	"fmt"

	ristretto "github.com/dgraph-io/ristretto/v2"
)

// RistrettoCache is a Cache backed by a bounded, concurrent
// ristretto.Cache. Unlike the default map cache, it admits and
// evicts entries under memory pressure, which matters for
// selectors whose argument space is large or unbounded (e.g. keyed
// by user ID). Because evicted Computations simply vanish, the next
// lookup is a plain miss and recomputes — the core doesn't need to
// know eviction happened.
type RistrettoCache struct {
	cache *ristretto.Cache[string, *computation]
}

// RistrettoCacheOptions configures NewRistrettoCache. Zero value
// selects ristretto's usual defaults, sized for a few thousand
// computations.
type RistrettoCacheOptions struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
}

// NewRistrettoCache allocates a RistrettoCache. It returns an error
// rather than panicking because ristretto.NewCache can fail on
// invalid configuration, and that failure is the caller's to handle
// at construction time, not a selector-invocation-time concern.
func NewRistrettoCache(opts RistrettoCacheOptions) (*RistrettoCache, error) {
	if opts.NumCounters == 0 {
		opts.NumCounters = 1e5
	}
	if opts.MaxCost == 0 {
		opts.MaxCost = 1 << 24 // 16MiB
	}
	if opts.BufferItems == 0 {
		opts.BufferItems = 64
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, *computation]{
		NumCounters: opts.NumCounters,
		MaxCost:     opts.MaxCost,
		BufferItems: opts.BufferItems,
	})
	if err != nil {
		return nil, fmt.Errorf("derive: allocating ristretto cache: %w", err)
	}
	return &RistrettoCache{cache: cache}, nil
}

func (r *RistrettoCache) Get(key string) (*computation, bool) {
	return r.cache.Get(key)
}

func (r *RistrettoCache) Set(key string, value *computation) {
	r.cache.Set(key, value, 1)
	r.cache.Wait()
}

func (r *RistrettoCache) Clear() {
	r.cache.Clear()
}
