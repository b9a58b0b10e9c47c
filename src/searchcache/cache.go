// Package searchcache is a read-through cache in front of the place-search
// provider. Lookups never fail: a provider timeout, error status, or
// malformed payload yields an empty result for that request only.
package searchcache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/singleflight"

	"placefinder/src/geo"
	"placefinder/src/imageurl"
	"placefinder/src/metrics"
	"placefinder/src/types"
)

const (
	DefaultTTL     = 300 * time.Second
	DefaultDisplay = 10
	MaxDisplay     = 100

	// sweepThreshold is the entry count above which a store also drops expired entries.
	sweepThreshold = 1024
)

// Request is one search call. OriginLng/OriginLat and Start refine how
// results are presented but do not take part in the cache key.
type Request struct {
	Query     string
	Display   int
	OriginLng string
	OriginLat string
	Start     int
}

// Key identifies a cached result set.
type Key struct {
	Operation string
	Query     string
	Display   int
}

func (k Key) String() string {
	return k.Operation + "\x00" + strconv.Itoa(k.Display) + "\x00" + k.Query
}

type entry struct {
	items    []types.SearchResultItem
	storedAt time.Time
}

// Cache is safe for concurrent use. Concurrent misses on one key share a
// single provider call; a racing store is last-writer-wins.
type Cache struct {
	provider  Provider
	operation string
	ttl       time.Duration
	now       func() time.Time
	logger    arbor.ILogger
	metrics   *metrics.Metrics

	mu      sync.RWMutex
	entries map[Key]entry
	group   singleflight.Group
}

type Option func(*Cache)

// WithClock replaces time.Now, for deterministic expiry in tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithOperation sets the operation identity that prefixes every key.
func WithOperation(name string) Option {
	return func(c *Cache) {
		if name != "" {
			c.operation = name
		}
	}
}

func New(provider Provider, logger arbor.ILogger, opts ...Option) *Cache {
	c := &Cache{
		provider:  provider,
		operation: "getPlacesList",
		ttl:       DefaultTTL,
		now:       time.Now,
		logger:    logger,
		entries:   make(map[Key]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClampDisplay bounds a display count to [1, MaxDisplay].
func ClampDisplay(display int) int {
	if display < 1 {
		return 1
	}
	if display > MaxDisplay {
		return MaxDisplay
	}
	return display
}

// ClampStart bounds the provider-side offset to >= 1.
func ClampStart(start int) int {
	if start < 1 {
		return 1
	}
	return start
}

// Search returns the provider's results for req, from cache when a fresh
// entry exists. The returned slice is a per-call copy annotated for req's origin.
func (c *Cache) Search(ctx context.Context, req Request) []types.SearchResultItem {
	req.Display = ClampDisplay(req.Display)
	req.Start = ClampStart(req.Start)
	key := Key{Operation: c.operation, Query: req.Query, Display: req.Display}

	if items, ok := c.lookup(key); ok {
		c.metrics.CacheHit()
		return annotate(items, req)
	}
	c.metrics.CacheMiss()

	v, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
		if items, ok := c.lookup(key); ok {
			return items, nil
		}

		// The flight may be shared by several requests, so one caller going
		// away must not cancel it. The client still enforces its own timeout.
		items, err := c.provider.Search(context.WithoutCancel(ctx), Query{
			Query:   req.Query,
			Display: req.Display,
			Start:   req.Start,
		})
		if err != nil {
			return nil, err
		}
		c.store(key, items)
		return items, nil
	})
	if err != nil {
		c.metrics.UpstreamFailure("search")
		c.logger.Warn().
			Err(err).
			Str("query", req.Query).
			Int("display", req.Display).
			Msg("Provider search failed, returning empty result")
		return []types.SearchResultItem{}
	}

	return annotate(v.([]types.SearchResultItem), req)
}

func (c *Cache) lookup(key Key) ([]types.SearchResultItem, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().Sub(e.storedAt) >= c.ttl {
		return nil, false
	}
	return e.items, true
}

func (c *Cache) store(key Key, items []types.SearchResultItem) {
	if items == nil {
		items = []types.SearchResultItem{}
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= sweepThreshold {
		for k, e := range c.entries {
			if now.Sub(e.storedAt) >= c.ttl {
				delete(c.entries, k)
			}
		}
	}
	c.entries[key] = entry{items: items, storedAt: now}
}

// Len reports how many entries are held, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// annotate copies items and fills presentation fields: optimized image URL,
// short address, and distance from the request origin when it parses.
func annotate(items []types.SearchResultItem, req Request) []types.SearchResultItem {
	origin, hasOrigin := geo.ParseCoordinates(req.OriginLng, req.OriginLat)

	out := make([]types.SearchResultItem, len(items))
	for i, item := range items {
		item.ImageURL = imageurl.OptimizeSearchImage(item.ImageURL).URL

		address := item.RoadAddress
		if address == "" {
			address = item.Address
		}
		item.ShortAddress = geo.FormatShortAddress(address)

		if hasOrigin {
			if at, ok := geo.FromProviderXY(item.X, item.Y); ok {
				meters := geo.DistanceMeters(origin, at)
				minutes := geo.WalkingMinutes(meters)
				item.DistanceMeters = &meters
				item.WalkingMinutes = &minutes
				item.DistanceLabel = geo.FormatDistance(meters)
				item.WalkingLabel = geo.FormatWalkingDuration(minutes)
			}
		}
		out[i] = item
	}
	return out
}
