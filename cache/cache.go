// Package cache provides an in-process edge cache of complete HTTP
// responses keyed by the stable request URL, with separate lifetimes for
// positive and negative entries.
package cache

import (
	"fmt"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mediabed/mediabed"
)

const (
	defaultMaxEntries  = 1024
	defaultPositiveTTL = 24 * time.Hour
	defaultNegativeTTL = 10 * time.Minute
)

// Config configures the response cache.
type Config struct {
	// MaxEntries is the maximum number of cached responses.
	MaxEntries int
	// PositiveTTL is how long a successful response stays valid.
	PositiveTTL time.Duration
	// NegativeTTL is how long a cached 404 stays valid. It is kept short
	// so a later insert under a previously-404'd URL self-heals without
	// explicit invalidation.
	NegativeTTL time.Duration
}

type entry struct {
	resp      mediabed.CachedResponse
	expiresAt time.Time
}

// ResponseCache is an LRU of complete responses with per-entry deadlines,
// checked lazily on read. It implements mediabed.EdgeCache and is safe
// for concurrent use.
type ResponseCache struct {
	entries     *lru.Cache[string, entry]
	positiveTTL time.Duration
	negativeTTL time.Duration
	now         func() time.Time
}

func New(cfg Config) (*ResponseCache, error) {
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	positiveTTL := cfg.PositiveTTL
	if positiveTTL <= 0 {
		positiveTTL = defaultPositiveTTL
	}
	negativeTTL := cfg.NegativeTTL
	if negativeTTL <= 0 {
		negativeTTL = defaultNegativeTTL
	}

	entries, err := lru.New[string, entry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("new response cache: %w", err)
	}

	return &ResponseCache{
		entries:     entries,
		positiveTTL: positiveTTL,
		negativeTTL: negativeTTL,
		now:         time.Now,
	}, nil
}

// Get returns the cached response for a key if present and unexpired.
// Expired entries are removed on the way out.
func (c *ResponseCache) Get(key string) (mediabed.CachedResponse, bool) {
	e, ok := c.entries.Get(key)
	if !ok {
		return mediabed.CachedResponse{}, false
	}
	if c.now().After(e.expiresAt) {
		c.entries.Remove(key)
		return mediabed.CachedResponse{}, false
	}
	return e.resp, true
}

// Put stores a response under a key. Negative (404) responses get the
// shorter negative TTL; everything else the positive one.
func (c *ResponseCache) Put(key string, resp mediabed.CachedResponse) {
	ttl := c.positiveTTL
	if resp.Status == http.StatusNotFound {
		ttl = c.negativeTTL
	}
	c.entries.Add(key, entry{resp: resp, expiresAt: c.now().Add(ttl)})
}

// Delete evicts a key. Eviction is unconditional and cannot fail; evicting
// an absent key is a no-op.
func (c *ResponseCache) Delete(key string) {
	c.entries.Remove(key)
}

// Len reports the number of live entries, expired or not.
func (c *ResponseCache) Len() int {
	return c.entries.Len()
}
