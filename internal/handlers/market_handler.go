package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stocktracker/internal/dashboard"
	"stocktracker/internal/services"
)

// MarketHandler serves the quote-merged views, their event streams and
// stock search.
type MarketHandler struct {
	watchlistFeed    *dashboard.WatchlistFeed
	alertFeed        *dashboard.AlertFeed
	searcher         *dashboard.Searcher
	watchlistService services.WatchlistServicer
	poller           *dashboard.Poller

	watchlistInterval time.Duration
	alertInterval     time.Duration
}

// MarketHandlerConfig groups the dependencies of a MarketHandler.
type MarketHandlerConfig struct {
	WatchlistFeed     *dashboard.WatchlistFeed
	AlertFeed         *dashboard.AlertFeed
	Searcher          *dashboard.Searcher
	WatchlistService  services.WatchlistServicer
	Poller            *dashboard.Poller
	WatchlistInterval time.Duration
	AlertInterval     time.Duration
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(cfg MarketHandlerConfig) *MarketHandler {
	return &MarketHandler{
		watchlistFeed:     cfg.WatchlistFeed,
		alertFeed:         cfg.AlertFeed,
		searcher:          cfg.Searcher,
		watchlistService:  cfg.WatchlistService,
		poller:            cfg.Poller,
		watchlistInterval: cfg.WatchlistInterval,
		alertInterval:     cfg.AlertInterval,
	}
}

// WatchlistViewResponse wraps a merged watchlist view.
type WatchlistViewResponse struct {
	Success bool                    `json:"success"`
	Data    dashboard.WatchlistView `json:"data"`
}

// AlertViewResponse wraps a merged alert view.
type AlertViewResponse struct {
	Success bool                `json:"success"`
	Data    dashboard.AlertView `json:"data"`
}

// SearchResponse is the stock search payload.
type SearchResponse struct {
	Success bool                     `json:"success"`
	Data    []dashboard.SearchResult `json:"data"`
	Count   int                      `json:"count"`
}

// GetWatchlistQuotes refreshes and merges quotes for the watchlist once.
// @Summary     Watchlist with quotes
// @Description Current watchlist merged with live quotes and company metrics. Rows whose quote could not be fetched are marked unavailable.
// @Tags        market
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} WatchlistViewResponse
// @Failure     401 {object} UnauthorizedResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /watchlist/quotes [get]
func (h *MarketHandler) GetWatchlistQuotes(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	view, err := h.watchlistFeed.Build(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, WatchlistViewResponse{Success: true, Data: view})
}

// GetAlertQuotes refreshes and merges quotes for the user's alerts once.
// @Summary     Alerts with quotes
// @Tags        market
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} AlertViewResponse
// @Failure     401 {object} UnauthorizedResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /alert/quotes [get]
func (h *MarketHandler) GetAlertQuotes(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	view, err := h.alertFeed.Build(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, AlertViewResponse{Success: true, Data: view})
}

// StreamWatchlist pushes a refreshed watchlist view on every poll tick.
// @Summary     Watchlist quote stream
// @Description Server-sent events. The first "view" event carries the watchlist with loading rows, then one event per completed refresh.
// @Tags        market
// @Produce     text/event-stream
// @Security    BearerAuth
// @Success     200 {object} dashboard.WatchlistView
// @Failure     401 {object} UnauthorizedResponse "Unauthorized"
// @Router      /watchlist/stream [get]
func (h *MarketHandler) StreamWatchlist(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	pending, err := h.watchlistFeed.Pending(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	streamViews(c, h.poller, h.watchlistInterval, pending, func(ctx context.Context) (dashboard.WatchlistView, error) {
		return h.watchlistFeed.Build(ctx, userID)
	})
}

// StreamAlerts pushes a refreshed alert view on every poll tick.
// @Summary     Alert quote stream
// @Description Server-sent events. The first "view" event carries the alerts with loading rows, then one event per completed refresh.
// @Tags        market
// @Produce     text/event-stream
// @Security    BearerAuth
// @Success     200 {object} dashboard.AlertView
// @Failure     401 {object} UnauthorizedResponse "Unauthorized"
// @Router      /alert/stream [get]
func (h *MarketHandler) StreamAlerts(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	pending, err := h.alertFeed.Pending(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	streamViews(c, h.poller, h.alertInterval, pending, func(ctx context.Context) (dashboard.AlertView, error) {
		return h.alertFeed.Build(ctx, userID)
	})
}

// SearchStocks searches tickers and tags hits already on the watchlist.
// @Summary     Search stocks
// @Description Empty query returns popular stocks. A request superseded by a newer search from the same input stream inside the debounce window returns 204. Streams are told apart by X-Search-Stream; without it all of a user's searches form one stream.
// @Tags        market
// @Produce     json
// @Security    BearerAuth
// @Param       q               query  string false "Search text"
// @Param       X-Search-Stream header string false "Client input id, e.g. one per tab"
// @Success     200 {object} SearchResponse
// @Success     204 "Superseded by a newer search"
// @Failure     401 {object} UnauthorizedResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /stocks/search [get]
func (h *MarketHandler) SearchStocks(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	hits, ok := h.searcher.SearchDebounced(c.Request.Context(), searchStreamKey(userID, c.GetHeader(searchStreamHeader)), c.Query("q"))
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}

	entries, err := h.watchlistService.GetUserWatchlist(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	results := dashboard.NewMembershipIndex(entries).Tag(hits)
	c.JSON(http.StatusOK, SearchResponse{Success: true, Data: results, Count: len(results)})
}

// searchStreamHeader names the client input a search request was typed in.
const searchStreamHeader = "X-Search-Stream"

// searchStreamKey scopes debouncing to one input of one user.
func searchStreamKey(userID, stream string) string {
	if stream == "" {
		return userID
	}
	return userID + "/" + stream
}

// streamViews writes pending, then every view published by a poll handle
// owned by this request, as "view" events until the client goes away.
func streamViews[T any](c *gin.Context, poller *dashboard.Poller, interval time.Duration, pending T, build func(ctx context.Context) (T, error)) {
	updates := make(chan T, 1)
	handle := dashboard.Watch(poller, interval, build, func(view T) {
		// Only the newest view matters; replace one the client has not read yet.
		select {
		case updates <- view:
		default:
			select {
			case <-updates:
			default:
			}
			updates <- view
		}
	})
	defer handle.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("view", pending)
	c.Writer.Flush()

	done := c.Request.Context().Done()
	c.Stream(func(io.Writer) bool {
		select {
		case <-done:
			return false
		case view := <-updates:
			c.SSEvent("view", view)
			return true
		}
	})
}
