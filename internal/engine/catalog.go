package engine

import (
	"context"
	"sync"
	"time"

	"normex/internal/exchange"

	"golang.org/x/sync/singleflight"
)

// DefaultRuleTTL bounds how long a cached AssetRule is trusted before the
// next Resolve re-fetches it.
const DefaultRuleTTL = time.Hour

type ruleKey struct {
	venue  exchange.Venue
	symbol string
}

type cachedRule struct {
	rule      exchange.AssetRule
	fetchedAt time.Time
}

// Catalog resolves and caches per-symbol trading rules. Concurrent resolves
// of the same (venue, symbol) collapse into one adapter fetch; distinct keys
// never block each other. Failed fetches are not cached, so the next call
// retries instead of serving a failure placeholder.
type Catalog struct {
	ttl   time.Duration
	fetch func(ctx context.Context, venue exchange.Venue, symbol string) (exchange.AssetRule, error)
	now   func() time.Time

	mu    sync.RWMutex
	rules map[ruleKey]cachedRule
	group singleflight.Group
}

// NewCatalog builds a catalog over the given fetch function. ttl <= 0 falls
// back to DefaultRuleTTL.
func NewCatalog(ttl time.Duration, fetch func(ctx context.Context, venue exchange.Venue, symbol string) (exchange.AssetRule, error)) *Catalog {
	if ttl <= 0 {
		ttl = DefaultRuleTTL
	}
	return &Catalog{
		ttl:   ttl,
		fetch: fetch,
		now:   time.Now,
		rules: make(map[ruleKey]cachedRule),
	}
}

// Resolve returns the trading rule for (venue, symbol), fetching it on first
// use or after the TTL. Safe for concurrent use.
func (c *Catalog) Resolve(ctx context.Context, venue exchange.Venue, symbol string) (exchange.AssetRule, error) {
	key := ruleKey{venue: venue, symbol: symbol}
	if rule, ok := c.cached(key); ok {
		return rule, nil
	}

	v, err, _ := c.group.Do(string(venue)+"/"+symbol, func() (any, error) {
		// Another caller may have populated the cache while this one
		// waited for the flight slot.
		if rule, ok := c.cached(key); ok {
			return rule, nil
		}
		rule, err := c.fetch(ctx, venue, symbol)
		if err != nil {
			return nil, err
		}
		rule.FetchedAt = c.now()
		c.mu.Lock()
		c.rules[key] = cachedRule{rule: rule, fetchedAt: rule.FetchedAt}
		c.mu.Unlock()
		return rule, nil
	})
	if err != nil {
		return exchange.AssetRule{}, exchange.Normalize(venue, err)
	}
	return v.(exchange.AssetRule), nil
}

func (c *Catalog) cached(key ruleKey) (exchange.AssetRule, bool) {
	c.mu.RLock()
	entry, ok := c.rules[key]
	c.mu.RUnlock()
	if !ok || c.now().Sub(entry.fetchedAt) > c.ttl {
		return exchange.AssetRule{}, false
	}
	return entry.rule, true
}

// Invalidate drops the cached rule for one symbol, forcing a re-fetch on the
// next Resolve.
func (c *Catalog) Invalidate(venue exchange.Venue, symbol string) {
	c.mu.Lock()
	delete(c.rules, ruleKey{venue: venue, symbol: symbol})
	c.mu.Unlock()
}
