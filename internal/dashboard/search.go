package dashboard

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"stocktracker/internal/logger"
	"stocktracker/internal/market"
)

// popularLimit caps the list returned for an empty query.
const popularLimit = 10

// popularStocks is served when the query is empty.
var popularStocks = []market.SearchHit{
	{Symbol: "AAPL", Name: "Apple Inc.", Exchange: "US", Type: "Common Stock"},
	{Symbol: "MSFT", Name: "Microsoft Corporation", Exchange: "US", Type: "Common Stock"},
	{Symbol: "GOOGL", Name: "Alphabet Inc.", Exchange: "US", Type: "Common Stock"},
	{Symbol: "AMZN", Name: "Amazon.com Inc.", Exchange: "US", Type: "Common Stock"},
	{Symbol: "NVDA", Name: "NVIDIA Corporation", Exchange: "US", Type: "Common Stock"},
	{Symbol: "META", Name: "Meta Platforms Inc.", Exchange: "US", Type: "Common Stock"},
	{Symbol: "TSLA", Name: "Tesla Inc.", Exchange: "US", Type: "Common Stock"},
	{Symbol: "NFLX", Name: "Netflix Inc.", Exchange: "US", Type: "Common Stock"},
	{Symbol: "AMD", Name: "Advanced Micro Devices Inc.", Exchange: "US", Type: "Common Stock"},
	{Symbol: "JPM", Name: "JPMorgan Chase & Co.", Exchange: "US", Type: "Common Stock"},
	{Symbol: "V", Name: "Visa Inc.", Exchange: "US", Type: "Common Stock"},
	{Symbol: "ORCL", Name: "Oracle Corporation", Exchange: "US", Type: "Common Stock"},
}

// SearchCache memoises search hits per normalized query for a fixed TTL.
type SearchCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]searchCacheEntry
}

type searchCacheEntry struct {
	hits      []market.SearchHit
	expiresAt time.Time
}

// NewSearchCache creates a SearchCache.
func NewSearchCache(ttl time.Duration) *SearchCache {
	return &SearchCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]searchCacheEntry),
	}
}

// Get returns the cached hits for query if they have not expired.
func (c *SearchCache) Get(query string) ([]market.SearchHit, bool) {
	key := normalizeQuery(query)
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && !c.now().Before(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return entry.hits, true
}

// Put stores hits for query.
func (c *SearchCache) Put(query string, hits []market.SearchHit) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[normalizeQuery(query)] = searchCacheEntry{hits: hits, expiresAt: c.now().Add(c.ttl)}
}

// Len returns the number of entries, expired ones included.
func (c *SearchCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// Searcher answers stock searches through the cache and debouncer.
type Searcher struct {
	fetcher   market.Fetcher
	cache     *SearchCache
	debouncer *Debouncer
	log       *zap.SugaredLogger
}

// NewSearcher creates a Searcher.
func NewSearcher(fetcher market.Fetcher, cache *SearchCache, debouncer *Debouncer) *Searcher {
	return &Searcher{
		fetcher:   fetcher,
		cache:     cache,
		debouncer: debouncer,
		log:       logger.Named("search"),
	}
}

// Search returns hits for query. An empty query yields the popular list.
// Upstream failures degrade to an empty result and are not cached.
func (s *Searcher) Search(ctx context.Context, query string) []market.SearchHit {
	if normalizeQuery(query) == "" {
		return append([]market.SearchHit(nil), popularStocks[:popularLimit]...)
	}
	if hits, ok := s.cache.Get(query); ok {
		return hits
	}

	hits, err := s.fetcher.Search(ctx, strings.TrimSpace(query))
	if err != nil {
		s.log.Warnw("symbol search failed", "query", query, "error", err)
		return []market.SearchHit{}
	}
	s.cache.Put(query, hits)
	return hits
}

// SearchDebounced waits out the debounce window for key before searching.
// ok is false when a newer request for the same key superseded this one.
func (s *Searcher) SearchDebounced(ctx context.Context, key, query string) (hits []market.SearchHit, ok bool) {
	if !s.debouncer.Wait(ctx, key) {
		return nil, false
	}
	return s.Search(ctx, query), true
}
