package dashboard

import (
	"context"

	"stocktracker/internal/services"
)

// WatchlistFeed builds a user's merged watchlist view.
type WatchlistFeed struct {
	watchlist services.WatchlistServicer
	refresher *Refresher
}

// NewWatchlistFeed creates a WatchlistFeed.
func NewWatchlistFeed(watchlist services.WatchlistServicer, refresher *Refresher) *WatchlistFeed {
	return &WatchlistFeed{watchlist: watchlist, refresher: refresher}
}

// Pending returns the view before any market data has arrived.
func (f *WatchlistFeed) Pending(userID string) (WatchlistView, error) {
	entries, err := f.watchlist.GetUserWatchlist(userID)
	if err != nil {
		return WatchlistView{}, err
	}
	return BuildWatchlistView(entries, nil), nil
}

// Build reads the current watchlist, refreshes quotes and metrics for all
// of its symbols in one batch and merges the result.
func (f *WatchlistFeed) Build(ctx context.Context, userID string) (WatchlistView, error) {
	entries, err := f.watchlist.GetUserWatchlist(userID)
	if err != nil {
		return WatchlistView{}, err
	}
	batch := f.refresher.Refresh(ctx, WatchlistSymbols(entries), true)
	return BuildWatchlistView(entries, &batch), nil
}

// AlertFeed builds a user's merged alert view.
type AlertFeed struct {
	alerts    services.AlertServicer
	refresher *Refresher
}

// NewAlertFeed creates an AlertFeed.
func NewAlertFeed(alerts services.AlertServicer, refresher *Refresher) *AlertFeed {
	return &AlertFeed{alerts: alerts, refresher: refresher}
}

// Pending returns the view before any quote has arrived.
func (f *AlertFeed) Pending(userID string) (AlertView, error) {
	rules, err := f.alerts.GetUserAlerts(userID)
	if err != nil {
		return AlertView{}, err
	}
	return BuildAlertView(rules, nil), nil
}

// Build reads the user's alerts and refreshes quotes for their symbols.
func (f *AlertFeed) Build(ctx context.Context, userID string) (AlertView, error) {
	rules, err := f.alerts.GetUserAlerts(userID)
	if err != nil {
		return AlertView{}, err
	}
	batch := f.refresher.Refresh(ctx, AlertSymbols(rules), false)
	return BuildAlertView(rules, &batch), nil
}
