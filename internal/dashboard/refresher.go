package dashboard

import (
	"context"
	"sync"
	"time"

	"stocktracker/internal/market"
)

// Refresher turns a symbol list into a Batch.
type Refresher struct {
	fetcher market.Fetcher
	now     func() time.Time
}

// NewRefresher creates a Refresher backed by fetcher.
func NewRefresher(fetcher market.Fetcher) *Refresher {
	return &Refresher{fetcher: fetcher, now: func() time.Time { return time.Now().UTC() }}
}

// Refresh fetches quotes, and metrics when withMetrics is set, for symbols.
// Both fetches run concurrently and Refresh returns only once both resolve,
// so a caller never observes half a batch. Per-symbol failures are already
// logged by the fetcher and show up as missing keys.
func (r *Refresher) Refresh(ctx context.Context, symbols []string, withMetrics bool) Batch {
	batch := Batch{
		Quotes:  map[string]market.QuoteSnapshot{},
		Metrics: map[string]market.CompanyMetrics{},
	}
	if len(symbols) == 0 {
		batch.FetchedAt = r.now()
		return batch
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		batch.Quotes, _ = r.fetcher.FetchQuotes(ctx, symbols)
	}()
	if withMetrics {
		wg.Add(1)
		go func() {
			defer wg.Done()
			batch.Metrics, _ = r.fetcher.FetchMetrics(ctx, symbols)
		}()
	}
	wg.Wait()

	batch.FetchedAt = r.now()
	return batch
}
