package dashboard

import (
	"time"

	"stocktracker/internal/market"
	"stocktracker/internal/models"
)

// RowState tells a client whether a row's market data can be shown.
type RowState string

const (
	// RowLoading means no batch has resolved yet.
	RowLoading RowState = "loading"
	// RowAvailable means the latest batch has a quote for the symbol.
	RowAvailable RowState = "available"
	// RowUnavailable means the latest batch resolved without the symbol.
	RowUnavailable RowState = "unavailable"
)

// Display placeholders.
const (
	placeholderLoading     = "Loading..."
	placeholderUnavailable = "Unavailable"
	placeholderEmpty       = "-"
)

// Batch is one fully resolved refresh. It replaces the previous batch as a
// whole; symbols missing from it are unavailable, never stale.
type Batch struct {
	Quotes    map[string]market.QuoteSnapshot
	Metrics   map[string]market.CompanyMetrics
	FetchedAt time.Time
}

// WatchlistRow is one watchlist entry merged with its market data.
type WatchlistRow struct {
	Company       string                 `json:"company"`
	Symbol        string                 `json:"symbol"`
	AddedAt       time.Time              `json:"addedAt"`
	State         RowState               `json:"state"`
	Price         string                 `json:"price"`
	Change        string                 `json:"change"`
	PercentChange string                 `json:"percentChange"`
	MarketCap     string                 `json:"marketCap"`
	PERatio       string                 `json:"peRatio"`
	Positive      bool                   `json:"positive"`
	Quote         *market.QuoteSnapshot  `json:"quote,omitempty"`
	Metrics       *market.CompanyMetrics `json:"metrics,omitempty"`
}

// WatchlistView is the merged watchlist table.
type WatchlistView struct {
	Rows        []WatchlistRow `json:"rows"`
	Count       int            `json:"count"`
	RefreshedAt *time.Time     `json:"refreshedAt,omitempty"`
}

// AlertRow is one alert rule merged with the quote of its symbol.
type AlertRow struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	Company       string                `json:"company"`
	Symbol        string                `json:"symbol"`
	State         RowState              `json:"state"`
	Price         string                `json:"price"`
	PercentChange string                `json:"percentChange"`
	Positive      bool                  `json:"positive"`
	Type          string                `json:"type"`
	Condition     string                `json:"condition"`
	Threshold     string                `json:"threshold"`
	Frequency     string                `json:"frequency"`
	Summary       string                `json:"summary"`
	Quote         *market.QuoteSnapshot `json:"quote,omitempty"`
}

// AlertView is the merged alert list.
type AlertView struct {
	Rows        []AlertRow `json:"rows"`
	Count       int        `json:"count"`
	RefreshedAt *time.Time `json:"refreshedAt,omitempty"`
}

// BuildWatchlistView merges entries with batch in entry order. A nil batch
// renders every row as loading.
func BuildWatchlistView(entries []models.WatchlistEntry, batch *Batch) WatchlistView {
	view := WatchlistView{Rows: make([]WatchlistRow, 0, len(entries)), Count: len(entries)}
	if batch != nil {
		fetchedAt := batch.FetchedAt
		view.RefreshedAt = &fetchedAt
	}

	for _, e := range entries {
		row := WatchlistRow{
			Company:       e.Company,
			Symbol:        e.Symbol,
			AddedAt:       e.AddedAt,
			State:         RowLoading,
			Price:         placeholderLoading,
			Change:        placeholderEmpty,
			PercentChange: placeholderEmpty,
			MarketCap:     placeholderEmpty,
			PERatio:       notAvailable,
			Positive:      true,
		}
		if batch != nil {
			fillWatchlistRow(&row, batch)
		}
		view.Rows = append(view.Rows, row)
	}
	return view
}

func fillWatchlistRow(row *WatchlistRow, batch *Batch) {
	quote, ok := batch.Quotes[row.Symbol]
	if !ok {
		row.State = RowUnavailable
		row.Price = placeholderUnavailable
		return
	}

	row.State = RowAvailable
	row.Quote = &quote
	row.Price = FormatCurrency(quote.CurrentPrice)
	row.Change = FormatChange(quote.Change)
	row.PercentChange = FormatPercent(quote.PercentChange)
	row.Positive = quote.Change >= 0

	if metrics, ok := batch.Metrics[row.Symbol]; ok {
		row.Metrics = &metrics
		row.MarketCap = FormatMarketCap(metrics.MarketCap)
		row.PERatio = FormatPERatio(metrics.PERatio)
	}
}

// BuildAlertView merges rules with the quotes of batch. A nil batch
// renders every row as loading.
func BuildAlertView(rules []models.AlertRule, batch *Batch) AlertView {
	view := AlertView{Rows: make([]AlertRow, 0, len(rules)), Count: len(rules)}
	if batch != nil {
		fetchedAt := batch.FetchedAt
		view.RefreshedAt = &fetchedAt
	}

	for _, r := range rules {
		row := AlertRow{
			ID:            r.ID,
			Name:          r.Name,
			Company:       r.Company(),
			Symbol:        r.Symbol,
			State:         RowLoading,
			Price:         placeholderLoading,
			PercentChange: placeholderEmpty,
			Type:          r.Type.Label(),
			Condition:     r.Condition.Symbol(),
			Threshold:     FormatCurrency(r.Threshold),
			Frequency:     r.Frequency.Label(),
		}
		row.Summary = row.Type + " " + row.Condition + " " + row.Threshold

		if batch != nil {
			if quote, ok := batch.Quotes[r.Symbol]; ok {
				row.State = RowAvailable
				row.Quote = &quote
				row.Price = FormatCurrency(quote.CurrentPrice)
				row.PercentChange = FormatPercent(quote.PercentChange)
				row.Positive = quote.PercentChange >= 0
			} else {
				row.State = RowUnavailable
				row.Price = placeholderUnavailable
			}
		}
		view.Rows = append(view.Rows, row)
	}
	return view
}

// WatchlistSymbols returns the symbols of entries in order.
func WatchlistSymbols(entries []models.WatchlistEntry) []string {
	symbols := make([]string, len(entries))
	for i, e := range entries {
		symbols[i] = e.Symbol
	}
	return symbols
}

// AlertSymbols returns the distinct symbols referenced by rules.
func AlertSymbols(rules []models.AlertRule) []string {
	seen := make(map[string]struct{}, len(rules))
	symbols := make([]string, 0, len(rules))
	for _, r := range rules {
		if _, ok := seen[r.Symbol]; ok {
			continue
		}
		seen[r.Symbol] = struct{}{}
		symbols = append(symbols, r.Symbol)
	}
	return symbols
}
