package tokenizer

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"
)

// CacheStats is a point-in-time view of cache effectiveness.
type CacheStats struct {
	Hits    uint64
	Misses  uint64
	Shared  uint64
	Entries int
}

// Cached memoises Encode results of an underlying Tokenizer. Chat clients
// resend the same history with every turn, so identical prompts are common.
// Concurrent misses for the same text are collapsed into one encode.
type Cached struct {
	inner Tokenizer
	cache *ttlcache.Cache[uint64, []int]
	group singleflight.Group

	hits   atomic.Uint64
	misses atomic.Uint64
	shared atomic.Uint64
}

var _ Tokenizer = (*Cached)(nil)

// NewCached wraps inner with a TTL cache. capacity 0 means unbounded.
// Call Start to run expiry in the background and Stop to end it.
func NewCached(inner Tokenizer, ttl time.Duration, capacity uint64) *Cached {
	opts := []ttlcache.Option[uint64, []int]{
		ttlcache.WithTTL[uint64, []int](ttl),
		ttlcache.WithDisableTouchOnHit[uint64, []int](),
	}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[uint64, []int](capacity))
	}

	return &Cached{
		inner: inner,
		cache: ttlcache.New(opts...),
	}
}

// Start runs the expiry loop until Stop is called.
func (c *Cached) Start() {
	go c.cache.Start()
}

// Stop ends the expiry loop.
func (c *Cached) Stop() {
	c.cache.Stop()
}

// Encode returns the token ids of text, from cache when possible. Callers
// must not modify the returned slice.
func (c *Cached) Encode(text string) []int {
	key := xxhash.Sum64String(text)

	if item := c.cache.Get(key); item != nil {
		c.hits.Add(1)
		return item.Value()
	}

	v, _, shared := c.group.Do(strconv.FormatUint(key, 16), func() (any, error) {
		c.misses.Add(1)
		ids := c.inner.Encode(text)
		c.cache.Set(key, ids, ttlcache.DefaultTTL)
		return ids, nil
	})
	if shared {
		c.shared.Add(1)
	}

	return v.([]int)
}

// DecodeToken delegates to the underlying tokenizer.
func (c *Cached) DecodeToken(id int) string {
	return c.inner.DecodeToken(id)
}

// Stats returns hit and miss counters and the current entry count.
func (c *Cached) Stats() CacheStats {
	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Shared:  c.shared.Load(),
		Entries: c.cache.Len(),
	}
}
