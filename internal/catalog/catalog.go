// Package catalog maintains the sorted country list used by global address
// entry, backed by a 24-hour persistent cache.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/sells-group/addrkit/internal/metrics"
	"github.com/sells-group/addrkit/internal/model"
	"github.com/sells-group/addrkit/internal/store"
	"github.com/sells-group/addrkit/pkg/restcountries"
)

// MsgLoadFailed is shown to users when the list could not be loaded.
const MsgLoadFailed = "Failed to load countries. Click to retry."

// DefaultCacheKey is the persistent cache key of the sorted list.
const DefaultCacheKey = "countries-cache"

// DefaultTTL is how long a cached list is served without a network call.
const DefaultTTL = 24 * time.Hour

// DefaultPriority is the fixed set of countries pinned to the top, in order.
var DefaultPriority = []string{"KR", "US", "JP", "CN", "GB", "CA", "AU", "DE", "FR"}

// cacheEntry is the persisted form of the list.
type cacheEntry struct {
	Countries []model.Country `json:"countries"`
	Timestamp int64           `json:"timestamp"`
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithPriority overrides the pinned country codes.
func WithPriority(codes []string) Option {
	return func(c *Catalog) {
		if len(codes) > 0 {
			c.priority = append([]string(nil), codes...)
		}
	}
}

// WithCacheKey overrides the persistent cache key.
func WithCacheKey(key string) Option {
	return func(c *Catalog) {
		if key != "" {
			c.key = key
		}
	}
}

// WithTTL overrides the cache lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *Catalog) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// Catalog loads countries from a directory service and keeps the last
// result in memory. It is safe for concurrent use. Concurrent loads are not
// de-duplicated; the last write to the cache wins.
type Catalog struct {
	dir      restcountries.Directory
	cache    store.Cache
	key      string
	ttl      time.Duration
	priority []string
	now      func() time.Time

	mu        sync.RWMutex
	countries []model.Country
	inflight  int
	lastErr   error
	attempted bool
	loadedAt  time.Time
}

// New creates a Catalog. Nothing is fetched until a load method is called.
func New(dir restcountries.Directory, cache store.Cache, opts ...Option) *Catalog {
	c := &Catalog{
		dir:      dir,
		cache:    cache,
		key:      DefaultCacheKey,
		ttl:      DefaultTTL,
		priority: append([]string(nil), DefaultPriority...),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Use loads the list when enabled is true and is a no-op otherwise.
func (c *Catalog) Use(ctx context.Context, enabled bool) ([]model.Country, error) {
	if !enabled {
		return c.Countries(), nil
	}
	return c.LoadOrCache(ctx)
}

// LoadOrCache serves a fresh cached list if one exists and fetches
// otherwise.
func (c *Catalog) LoadOrCache(ctx context.Context) ([]model.Country, error) {
	return c.load(ctx, false)
}

// ForceRefresh drops the cached list and fetches regardless of its age.
func (c *Catalog) ForceRefresh(ctx context.Context) ([]model.Country, error) {
	if err := c.cache.Delete(ctx, c.key); err != nil {
		zap.L().Warn("catalog: invalidate cache", zap.String("key", c.key), zap.Error(err))
	}
	return c.load(ctx, true)
}

// Ensure returns the in-memory list, loading it on first use or once it is
// older than the TTL. After a failed load it reports the failure without
// fetching again; ForceRefresh is the retry path.
func (c *Catalog) Ensure(ctx context.Context) ([]model.Country, error) {
	c.mu.RLock()
	attempted, lastErr, loadedAt := c.attempted, c.lastErr, c.loadedAt
	c.mu.RUnlock()

	if attempted && lastErr != nil {
		return c.Countries(), lastErr
	}
	if attempted && c.now().Sub(loadedAt) <= c.ttl {
		return c.Countries(), nil
	}
	return c.LoadOrCache(ctx)
}

func (c *Catalog) load(ctx context.Context, force bool) ([]model.Country, error) {
	c.mu.Lock()
	c.inflight++
	c.mu.Unlock()

	if !force {
		if entry, ok := c.readCache(ctx); ok {
			c.finish(entry.Countries, time.UnixMilli(entry.Timestamp), nil)
			return c.Countries(), nil
		}
	}

	raw, err := c.dir.All(ctx)
	if err != nil {
		metrics.CountriesFetch.WithLabelValues("error").Inc()
		zap.L().Warn("catalog: fetch countries failed", zap.Error(err))
		err = eris.Wrap(err, "catalog: fetch countries")
		c.finish(nil, time.Time{}, err)
		return nil, err
	}
	metrics.CountriesFetch.WithLabelValues("ok").Inc()

	sorted := Sort(Transform(raw), c.priority)
	now := c.now()
	c.writeCache(ctx, cacheEntry{Countries: sorted, Timestamp: now.UnixMilli()})
	c.finish(sorted, now, nil)
	return c.Countries(), nil
}

func (c *Catalog) finish(countries []model.Country, loadedAt time.Time, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
	c.attempted = true
	c.lastErr = err
	if err != nil {
		// Fail closed: a failed load never leaves an older list visible.
		c.countries = []model.Country{}
		c.loadedAt = time.Time{}
		return
	}
	c.countries = countries
	c.loadedAt = loadedAt
}

func (c *Catalog) readCache(ctx context.Context) (cacheEntry, bool) {
	var entry cacheEntry
	raw, err := c.cache.Get(ctx, c.key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			zap.L().Warn("catalog: read cache", zap.String("key", c.key), zap.Error(err))
		}
		metrics.CountriesCache.WithLabelValues("miss").Inc()
		return entry, false
	}
	if err := json.Unmarshal(raw, &entry); err != nil {
		zap.L().Warn("catalog: decode cache entry", zap.String("key", c.key), zap.Error(err))
		metrics.CountriesCache.WithLabelValues("miss").Inc()
		return entry, false
	}
	age := c.now().Sub(time.UnixMilli(entry.Timestamp))
	if age > c.ttl {
		zap.L().Debug("catalog: cache expired", zap.Duration("age", age))
		metrics.CountriesCache.WithLabelValues("expired").Inc()
		return entry, false
	}
	zap.L().Debug("catalog: cache hit", zap.Int("countries", len(entry.Countries)))
	metrics.CountriesCache.WithLabelValues("hit").Inc()
	return entry, true
}

func (c *Catalog) writeCache(ctx context.Context, entry cacheEntry) {
	raw, err := json.Marshal(entry)
	if err != nil {
		zap.L().Warn("catalog: encode cache entry", zap.Error(err))
		return
	}
	if err := c.cache.Set(ctx, c.key, raw); err != nil {
		zap.L().Warn("catalog: write cache", zap.String("key", c.key), zap.Error(err))
	}
}

// Countries returns a copy of the current list, separator included.
func (c *Catalog) Countries() []model.Country {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.countries == nil {
		return []model.Country{}
	}
	return append([]model.Country(nil), c.countries...)
}

// IsLoading reports whether any load is in flight.
func (c *Catalog) IsLoading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inflight > 0
}

// Err returns the message of the last load failure, or "".
func (c *Catalog) Err() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastErr == nil {
		return ""
	}
	return c.lastErr.Error()
}

// ByCode finds a selectable country by ISO code, ignoring case.
func (c *Catalog) ByCode(code string) (model.Country, bool) {
	code = strings.TrimSpace(code)
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, country := range c.countries {
		if country.Selectable() && strings.EqualFold(country.Code, code) {
			return country, true
		}
	}
	return model.Country{}, false
}

// Major returns the loaded priority countries in priority order.
func (c *Catalog) Major() []model.Country {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Country, 0, len(c.priority))
	for _, code := range c.priority {
		for _, country := range c.countries {
			if country.Code == code {
				out = append(out, country)
				break
			}
		}
	}
	return out
}

// Search returns selectable countries whose name, native name or code
// contains q, ignoring case. The separator never matches. An empty query
// returns every selectable country.
func (c *Catalog) Search(q string) []model.Country {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(q))
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Country, 0)
	for _, country := range c.countries {
		if !country.Selectable() {
			continue
		}
		if needle == "" ||
			strings.Contains(fold.String(country.Name), needle) ||
			strings.Contains(fold.String(country.NativeName), needle) ||
			strings.EqualFold(country.Code, needle) {
			out = append(out, country)
		}
	}
	return out
}
