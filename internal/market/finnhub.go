package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"stocktracker/internal/logger"
)

const (
	finnhubBaseURL = "https://finnhub.io/api/v1"

	// Finnhub reports market capitalization in millions.
	finnhubMarketCapUnit = 1_000_000
)

// finnhubQuote is the /quote response.
type finnhubQuote struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	PercentChange float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
}

// finnhubMetrics is the subset of /stock/metric the dashboard shows.
type finnhubMetrics struct {
	Metric struct {
		MarketCapitalization float64 `json:"marketCapitalization"`
		PEBasicExclExtraTTM  float64 `json:"peBasicExclExtraTTM"`
		PETTM                float64 `json:"peTTM"`
	} `json:"metric"`
}

// finnhubSearch is the /search response.
type finnhubSearch struct {
	Count  int `json:"count"`
	Result []struct {
		Description   string `json:"description"`
		DisplaySymbol string `json:"displaySymbol"`
		Symbol        string `json:"symbol"`
		Type          string `json:"type"`
	} `json:"result"`
}

// FinnhubClient fetches market data from the Finnhub REST API.
type FinnhubClient struct {
	httpClient *http.Client
	baseURL    string // overridable for tests
	apiKey     string
	now        func() time.Time
	log        *zap.SugaredLogger
}

// NewFinnhubClient creates a Finnhub client. An empty baseURL selects the
// public endpoint.
func NewFinnhubClient(httpClient *http.Client, baseURL, apiKey string) *FinnhubClient {
	if baseURL == "" {
		baseURL = finnhubBaseURL
	}
	return &FinnhubClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		now:        func() time.Time { return time.Now().UTC() },
		log:        logger.Named("finnhub"),
	}
}

// FetchQuotes fetches the latest quote of every symbol concurrently and
// returns once all of them have resolved.
func (c *FinnhubClient) FetchQuotes(ctx context.Context, symbols []string) (map[string]QuoteSnapshot, []FetchError) {
	return fanOut(ctx, c, symbols, c.fetchQuote)
}

// FetchMetrics fetches company metrics of every symbol concurrently.
func (c *FinnhubClient) FetchMetrics(ctx context.Context, symbols []string) (map[string]CompanyMetrics, []FetchError) {
	return fanOut(ctx, c, symbols, c.fetchMetrics)
}

// Search looks up symbols matching query. Unlike the batch fetches a
// failure here is returned to the caller.
func (c *FinnhubClient) Search(ctx context.Context, query string) ([]SearchHit, error) {
	var resp finnhubSearch
	if err := c.get(ctx, "/search", url.Values{"q": {query}}, &resp); err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		symbol := strings.ToUpper(strings.TrimSpace(r.Symbol))
		if symbol == "" {
			continue
		}
		hits = append(hits, SearchHit{
			Symbol:   symbol,
			Name:     r.Description,
			Exchange: exchangeOf(r.DisplaySymbol),
			Type:     r.Type,
		})
	}
	return hits, nil
}

func (c *FinnhubClient) fetchQuote(ctx context.Context, symbol string) (QuoteSnapshot, error) {
	var q finnhubQuote
	if err := c.get(ctx, "/quote", url.Values{"symbol": {symbol}}, &q); err != nil {
		return QuoteSnapshot{}, err
	}
	// Finnhub answers unknown symbols with an all-zero quote.
	if q.Current == 0 && q.PreviousClose == 0 {
		return QuoteSnapshot{}, errors.New("no quote data")
	}
	return QuoteSnapshot{
		Symbol:        symbol,
		CurrentPrice:  q.Current,
		Change:        q.Change,
		PercentChange: q.PercentChange,
		High:          q.High,
		Low:           q.Low,
		Open:          q.Open,
		PreviousClose: q.PreviousClose,
		FetchedAt:     c.now(),
	}, nil
}

func (c *FinnhubClient) fetchMetrics(ctx context.Context, symbol string) (CompanyMetrics, error) {
	var m finnhubMetrics
	if err := c.get(ctx, "/stock/metric", url.Values{"symbol": {symbol}, "metric": {"all"}}, &m); err != nil {
		return CompanyMetrics{}, err
	}
	pe := m.Metric.PEBasicExclExtraTTM
	if pe == 0 {
		pe = m.Metric.PETTM
	}
	return CompanyMetrics{
		Symbol:    symbol,
		MarketCap: m.Metric.MarketCapitalization * finnhubMarketCapUnit,
		PERatio:   pe,
	}, nil
}

// get issues an authenticated GET and decodes the JSON body into out.
func (c *FinnhubClient) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	params.Set("token", c.apiKey)
	endpoint := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// fanOut runs fetch for every distinct symbol in parallel and joins the
// results. Failures are logged and collected, never returned as a batch error.
func fanOut[T any](ctx context.Context, c *FinnhubClient, symbols []string, fetch func(context.Context, string) (T, error)) (map[string]T, []FetchError) {
	unique := dedupe(symbols)
	results := make(map[string]T, len(unique))
	if len(unique) == 0 {
		return results, nil
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		fetchErrs []FetchError
	)
	for _, symbol := range unique {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			v, err := fetch(ctx, symbol)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fetchErrs = append(fetchErrs, FetchError{Symbol: symbol, Err: err})
				return
			}
			results[symbol] = v
		}(symbol)
	}
	wg.Wait()

	for _, fe := range fetchErrs {
		c.log.Warnw("market data fetch failed", "symbol", fe.Symbol, "error", fe.Err)
	}
	return results, fetchErrs
}

// dedupe normalizes symbols and drops blanks and repeats, keeping order.
func dedupe(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// venueSuffixes are the exchange codes Finnhub appends to non-US display
// symbols. Any other dot suffix is part of a US ticker, as in "BRK.B".
var venueSuffixes = map[string]bool{
	"AS": true, "AX": true, "BE": true, "BK": true, "BO": true, "BR": true,
	"CN": true, "CO": true, "DE": true, "DU": true, "F": true, "HA": true,
	"HE": true, "HK": true, "HM": true, "IC": true, "IL": true, "IR": true,
	"IS": true, "JK": true, "JO": true, "KL": true, "KQ": true, "KS": true,
	"L": true, "LS": true, "MC": true, "MI": true, "MU": true, "MX": true,
	"NE": true, "NS": true, "NZ": true, "OL": true, "PA": true, "SA": true,
	"SG": true, "SI": true, "SS": true, "ST": true, "SW": true, "SZ": true,
	"T": true, "TA": true, "TO": true, "TW": true, "TWO": true, "V": true,
	"VI": true, "WA": true,
}

// exchangeOf derives the listing venue from a display symbol such as
// "VOD.L". Symbols without a known venue suffix are US listings.
func exchangeOf(displaySymbol string) string {
	if i := strings.LastIndex(displaySymbol, "."); i >= 0 && i < len(displaySymbol)-1 {
		if suffix := strings.ToUpper(displaySymbol[i+1:]); venueSuffixes[suffix] {
			return suffix
		}
	}
	return "US"
}
