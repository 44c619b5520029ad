package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"stocktracker/internal/dashboard"
	"stocktracker/internal/market"
	"stocktracker/internal/models"
)

// --- fake market data ---

type fakeFetcher struct {
	mu      sync.Mutex
	quotes  map[string]market.QuoteSnapshot
	metrics map[string]market.CompanyMetrics
	hits    []market.SearchHit
	queries []string
}

func (f *fakeFetcher) FetchQuotes(_ context.Context, symbols []string) (map[string]market.QuoteSnapshot, []market.FetchError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]market.QuoteSnapshot{}
	var errs []market.FetchError
	for _, s := range symbols {
		if q, ok := f.quotes[s]; ok {
			out[s] = q
			continue
		}
		errs = append(errs, market.FetchError{Symbol: s, Err: errors.New("no quote data")})
	}
	return out, errs
}

func (f *fakeFetcher) FetchMetrics(_ context.Context, symbols []string) (map[string]market.CompanyMetrics, []market.FetchError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]market.CompanyMetrics{}
	var errs []market.FetchError
	for _, s := range symbols {
		if m, ok := f.metrics[s]; ok {
			out[s] = m
			continue
		}
		errs = append(errs, market.FetchError{Symbol: s, Err: errors.New("no metrics")})
	}
	return out, errs
}

func (f *fakeFetcher) Search(_ context.Context, query string) ([]market.SearchHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	return f.hits, nil
}

var _ market.Fetcher = (*fakeFetcher)(nil)

func newTestFetcher() *fakeFetcher {
	return &fakeFetcher{
		quotes: map[string]market.QuoteSnapshot{
			"AAPL": {Symbol: "AAPL", CurrentPrice: 1234.5, Change: 2.5, PercentChange: 1.234},
		},
		metrics: map[string]market.CompanyMetrics{
			"AAPL": {Symbol: "AAPL", MarketCap: 2.5e12, PERatio: 28.456},
		},
		hits: []market.SearchHit{
			{Symbol: "AAPL", Name: "Apple Inc.", Exchange: "US", Type: "Common Stock"},
			{Symbol: "APLE", Name: "Apple Hospitality REIT", Exchange: "US", Type: "REIT"},
		},
	}
}

func watchedAAPLAndFAIL() *mockWatchlistService {
	return &mockWatchlistService{
		getUserWatchlistFn: func(userID string) ([]models.WatchlistEntry, error) {
			return []models.WatchlistEntry{
				{ID: "1", UserID: userID, Symbol: "AAPL", Company: "Apple Inc."},
				{ID: "2", UserID: userID, Symbol: "FAIL", Company: "Failing Corp"},
			}, nil
		},
	}
}

func newMarketHandler(wl *mockWatchlistService, alerts *mockAlertService, fetcher *fakeFetcher, debouncer *dashboard.Debouncer, poller *dashboard.Poller) *MarketHandler {
	refresher := dashboard.NewRefresher(fetcher)
	return NewMarketHandler(MarketHandlerConfig{
		WatchlistFeed:     dashboard.NewWatchlistFeed(wl, refresher),
		AlertFeed:         dashboard.NewAlertFeed(alerts, refresher),
		Searcher:          dashboard.NewSearcher(fetcher, dashboard.NewSearchCache(time.Minute), debouncer),
		WatchlistService:  wl,
		Poller:            poller,
		WatchlistInterval: time.Hour,
		AlertInterval:     time.Hour,
	})
}

func setupMarketRouter(handler *MarketHandler) *gin.Engine {
	r := newTestRouter()
	auth := r.Group("", injectUserID(testUserID))
	auth.GET("/watchlist/quotes", handler.GetWatchlistQuotes)
	auth.GET("/watchlist/stream", handler.StreamWatchlist)
	auth.GET("/alert/quotes", handler.GetAlertQuotes)
	auth.GET("/alert/stream", handler.StreamAlerts)
	auth.GET("/stocks/search", handler.SearchStocks)
	return r
}

func TestMarketHandler_GetWatchlistQuotes(t *testing.T) {
	h := newMarketHandler(watchedAAPLAndFAIL(), &mockAlertService{}, newTestFetcher(), dashboard.NewDebouncer(time.Millisecond), dashboard.NewPoller(time.Second))
	r := setupMarketRouter(h)

	rec := doRequest(r, "GET", "/watchlist/quotes", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data := parseJSON(t, rec)["data"].(map[string]interface{})
	rows := data["rows"].([]interface{})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	aapl := rows[0].(map[string]interface{})
	if aapl["state"] != "available" || aapl["price"] != "$1,234.50" {
		t.Errorf("unexpected AAPL row %v", aapl)
	}
	if aapl["percentChange"] != "+1.23%" || aapl["marketCap"] != "$2500.00B" || aapl["peRatio"] != "28.46" {
		t.Errorf("unexpected AAPL formatting %v", aapl)
	}

	failing := rows[1].(map[string]interface{})
	if failing["state"] != "unavailable" || failing["price"] != "Unavailable" {
		t.Errorf("expected FAIL row unavailable, got %v", failing)
	}
}

func TestMarketHandler_GetAlertQuotes(t *testing.T) {
	alerts := &mockAlertService{
		getUserAlertsFn: func(userID string) ([]models.AlertRule, error) {
			return []models.AlertRule{{
				Base:            models.Base{ID: "alert-1"},
				UserID:          userID,
				Name:            "Apple breakout",
				StockIdentifier: "Apple Inc. (AAPL)",
				Symbol:          "AAPL",
				Type:            models.AlertTypePrice,
				Condition:       models.ConditionGreaterThan,
				Threshold:       1200,
				Frequency:       models.FrequencyOncePerDay,
			}}, nil
		},
	}
	h := newMarketHandler(&mockWatchlistService{}, alerts, newTestFetcher(), dashboard.NewDebouncer(time.Millisecond), dashboard.NewPoller(time.Second))
	r := setupMarketRouter(h)

	rec := doRequest(r, "GET", "/alert/quotes", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rows := parseJSON(t, rec)["data"].(map[string]interface{})["rows"].([]interface{})
	row := rows[0].(map[string]interface{})
	if row["company"] != "Apple Inc." || row["condition"] != ">" || row["threshold"] != "$1,200.00" {
		t.Errorf("unexpected alert row %v", row)
	}
	if row["frequency"] != "Once per day" || row["price"] != "$1,234.50" {
		t.Errorf("unexpected alert row %v", row)
	}
}

func TestMarketHandler_SearchStocks(t *testing.T) {
	t.Run("tags hits already on the watchlist", func(t *testing.T) {
		fetcher := newTestFetcher()
		h := newMarketHandler(watchedAAPLAndFAIL(), &mockAlertService{}, fetcher, dashboard.NewDebouncer(time.Millisecond), dashboard.NewPoller(time.Second))
		r := setupMarketRouter(h)

		rec := doRequest(r, "GET", "/stocks/search?q=apple", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		data := result["data"].([]interface{})
		if len(data) != 2 {
			t.Fatalf("expected 2 hits, got %d", len(data))
		}
		if data[0].(map[string]interface{})["isInWatchlist"] != true {
			t.Errorf("expected AAPL tagged, got %v", data[0])
		}
		if data[1].(map[string]interface{})["isInWatchlist"] != false {
			t.Errorf("expected APLE untagged, got %v", data[1])
		}
	})

	t.Run("empty query returns popular stocks", func(t *testing.T) {
		fetcher := newTestFetcher()
		h := newMarketHandler(&mockWatchlistService{}, &mockAlertService{}, fetcher, dashboard.NewDebouncer(time.Millisecond), dashboard.NewPoller(time.Second))
		r := setupMarketRouter(h)

		result := parseJSON(t, doRequest(r, "GET", "/stocks/search", ""))

		if result["count"] != float64(10) {
			t.Errorf("expected 10 popular stocks, got %v", result["count"])
		}
		if len(fetcher.queries) != 0 {
			t.Errorf("empty query must not reach the provider, got %v", fetcher.queries)
		}
	})

	t.Run("superseded request returns 204", func(t *testing.T) {
		debouncer := dashboard.NewDebouncer(200 * time.Millisecond)
		h := newMarketHandler(&mockWatchlistService{}, &mockAlertService{}, newTestFetcher(), debouncer, dashboard.NewPoller(time.Second))
		r := setupMarketRouter(h)

		var first *httptest.ResponseRecorder
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			first = doRequest(r, "GET", "/stocks/search?q=app", "")
		}()

		deadline := time.Now().Add(time.Second)
		for debouncer.Pending() == 0 {
			if time.Now().After(deadline) {
				t.Fatal("first search never started waiting")
			}
			time.Sleep(time.Millisecond)
		}

		second := doRequest(r, "GET", "/stocks/search?q=apple", "")
		wg.Wait()

		if first.Code != http.StatusNoContent {
			t.Errorf("expected superseded request to get 204, got %d", first.Code)
		}
		if second.Code != http.StatusOK {
			t.Errorf("expected latest request to get 200, got %d", second.Code)
		}
	})

	t.Run("searches from separate inputs do not supersede each other", func(t *testing.T) {
		debouncer := dashboard.NewDebouncer(200 * time.Millisecond)
		h := newMarketHandler(&mockWatchlistService{}, &mockAlertService{}, newTestFetcher(), debouncer, dashboard.NewPoller(time.Second))
		r := setupMarketRouter(h)

		var first *httptest.ResponseRecorder
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			first = doRequestWithHeaders(r, "GET", "/stocks/search?q=app", "", map[string]string{searchStreamHeader: "tab-a"})
		}()

		deadline := time.Now().Add(time.Second)
		for debouncer.Pending() == 0 {
			if time.Now().After(deadline) {
				t.Fatal("first search never started waiting")
			}
			time.Sleep(time.Millisecond)
		}

		second := doRequestWithHeaders(r, "GET", "/stocks/search?q=msft", "", map[string]string{searchStreamHeader: "tab-b"})
		wg.Wait()

		if first.Code != http.StatusOK {
			t.Errorf("expected tab-a search to get 200, got %d", first.Code)
		}
		if second.Code != http.StatusOK {
			t.Errorf("expected tab-b search to get 200, got %d", second.Code)
		}
	})
}

func TestSearchStreamKey(t *testing.T) {
	if got := searchStreamKey("u1", ""); got != "u1" {
		t.Errorf("expected bare user key, got %q", got)
	}
	if searchStreamKey("u1", "tab-a") == searchStreamKey("u1", "tab-b") {
		t.Error("separate inputs must get separate keys")
	}
	if searchStreamKey("u1", "tab-a") == searchStreamKey("u2", "tab-a") {
		t.Error("separate users must get separate keys")
	}
}

func TestMarketHandler_StreamWatchlist(t *testing.T) {
	poller := dashboard.NewPoller(time.Second)
	poller.Start()
	defer poller.Stop()

	h := newMarketHandler(watchedAAPLAndFAIL(), &mockAlertService{}, newTestFetcher(), dashboard.NewDebouncer(time.Millisecond), poller)
	srv := httptest.NewServer(setupMarketRouter(h))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/watchlist/stream", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("expected event stream, got %q", ct)
	}

	var views []dashboard.WatchlistView
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() && len(views) < 2 {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		var view dashboard.WatchlistView
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data:")), &view); err != nil {
			t.Fatalf("bad event payload %q: %v", line, err)
		}
		views = append(views, view)
	}
	if len(views) < 2 {
		t.Fatalf("expected pending and refreshed views, got %d", len(views))
	}

	if views[0].Rows[0].State != dashboard.RowLoading || views[0].RefreshedAt != nil {
		t.Errorf("first event should be the pending view, got %+v", views[0].Rows[0])
	}
	if views[1].Rows[0].State != dashboard.RowAvailable || views[1].Rows[1].State != dashboard.RowUnavailable {
		t.Errorf("second event should carry the refreshed batch, got %+v", views[1].Rows)
	}
}
