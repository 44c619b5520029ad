package dashboard

import (
	"context"
	"errors"
	"sync"

	"stocktracker/internal/market"
)

// fakeFetcher serves canned market data. Symbols in failing are omitted.
type fakeFetcher struct {
	mu          sync.Mutex
	quotes      map[string]market.QuoteSnapshot
	metrics     map[string]market.CompanyMetrics
	failing     map[string]bool
	searchHits  []market.SearchHit
	searchErr   error
	searchCalls int
	quoteCalls  int
	block       chan struct{}
}

func (f *fakeFetcher) FetchQuotes(ctx context.Context, symbols []string) (map[string]market.QuoteSnapshot, []market.FetchError) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quoteCalls++
	out := map[string]market.QuoteSnapshot{}
	var errs []market.FetchError
	for _, s := range symbols {
		q, ok := f.quotes[s]
		if !ok || f.failing[s] {
			errs = append(errs, market.FetchError{Symbol: s, Err: errors.New("upstream failure")})
			continue
		}
		out[s] = q
	}
	return out, errs
}

func (f *fakeFetcher) FetchMetrics(ctx context.Context, symbols []string) (map[string]market.CompanyMetrics, []market.FetchError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]market.CompanyMetrics{}
	var errs []market.FetchError
	for _, s := range symbols {
		m, ok := f.metrics[s]
		if !ok || f.failing[s] {
			errs = append(errs, market.FetchError{Symbol: s, Err: errors.New("upstream failure")})
			continue
		}
		out[s] = m
	}
	return out, errs
}

func (f *fakeFetcher) Search(ctx context.Context, query string) ([]market.SearchHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchHits, nil
}

func (f *fakeFetcher) calls() (search, quote int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchCalls, f.quoteCalls
}
