// Package market fetches quotes, company metrics and symbol search results
// from the market data provider.
package market

import (
	"context"
	"fmt"
	"time"
)

// QuoteSnapshot is the latest trading data for one symbol. It is never
// persisted and is replaced wholesale on every refresh.
type QuoteSnapshot struct {
	Symbol        string    `json:"symbol"`
	CurrentPrice  float64   `json:"currentPrice"`
	Change        float64   `json:"change"`
	PercentChange float64   `json:"percentChange"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Open          float64   `json:"open"`
	PreviousClose float64   `json:"previousClose"`
	FetchedAt     time.Time `json:"fetchedAt"`
}

// CompanyMetrics holds slowly changing company figures.
// MarketCap is in US dollars; PERatio is zero when the provider has none.
type CompanyMetrics struct {
	Symbol    string  `json:"symbol"`
	MarketCap float64 `json:"marketCap"`
	PERatio   float64 `json:"peRatio"`
}

// SearchHit is one symbol lookup result.
type SearchHit struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Type     string `json:"type"`
}

// FetchError represents a failed fetch for a specific symbol.
type FetchError struct {
	Symbol string
	Err    error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.Symbol, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher retrieves market data. Every symbol is fetched independently: a
// failure for one symbol never fails the batch, the symbol is just missing
// from the result map and reported in the error slice.
type Fetcher interface {
	FetchQuotes(ctx context.Context, symbols []string) (map[string]QuoteSnapshot, []FetchError)
	FetchMetrics(ctx context.Context, symbols []string) (map[string]CompanyMetrics, []FetchError)
	Search(ctx context.Context, query string) ([]SearchHit, error)
}
