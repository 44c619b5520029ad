package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"stocktracker/internal/dashboard"
	apperrors "stocktracker/internal/errors"
	"stocktracker/internal/models"
	"stocktracker/internal/services"
)

const resourceWatchlist = "watchlist"

// WatchlistHandler handles watchlist requests.
type WatchlistHandler struct {
	watchlistService services.WatchlistServicer
	alertService     services.AlertServicer
	auditService     services.AuditServicer
	dialogs          *dashboard.DialogRegistry
}

// NewWatchlistHandler creates a new WatchlistHandler.
func NewWatchlistHandler(
	watchlistService services.WatchlistServicer,
	alertService services.AlertServicer,
	auditService services.AuditServicer,
	dialogs *dashboard.DialogRegistry,
) *WatchlistHandler {
	return &WatchlistHandler{
		watchlistService: watchlistService,
		alertService:     alertService,
		auditService:     auditService,
		dialogs:          dialogs,
	}
}

// AddToWatchlistRequest is the payload for adding a stock.
type AddToWatchlistRequest struct {
	Symbol  string `json:"symbol" binding:"required,ticker"`
	Company string `json:"company" binding:"required,max=200"`
}

// ToggleWatchlistRequest carries the company name used when the toggle adds.
type ToggleWatchlistRequest struct {
	Company string `json:"company" binding:"max=200"`
}

// AlertFromWatchlistRequest is the payload for creating an alert from an entry.
type AlertFromWatchlistRequest struct {
	Name      string   `json:"name" binding:"required,max=100"`
	Type      string   `json:"type" binding:"required,alert_type"`
	Condition string   `json:"condition" binding:"required,alert_condition"`
	Threshold *float64 `json:"threshold" binding:"required"`
	Frequency string   `json:"frequency" binding:"required,alert_frequency"`
}

// WatchlistListResponse is the list payload.
type WatchlistListResponse struct {
	Success bool                    `json:"success"`
	Data    []models.WatchlistEntry `json:"data"`
	Count   int                     `json:"count"`
}

// WatchlistEntryResponse wraps one entry.
type WatchlistEntryResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message,omitempty"`
	Data    *models.WatchlistEntry `json:"data"`
}

// WatchlistCheckResponse reports membership of one symbol.
type WatchlistCheckResponse struct {
	Success       bool                   `json:"success"`
	IsInWatchlist bool                   `json:"isInWatchlist"`
	Data          *models.WatchlistEntry `json:"data"`
}

// WatchlistClearResponse reports how many entries were removed.
type WatchlistClearResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	DeletedCount int64  `json:"deletedCount"`
}

// GetWatchlist lists the user's watchlist.
// @Summary     List watchlist
// @Description List the authenticated user's watchlist, most recently added first
// @Tags        watchlist
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} WatchlistListResponse
// @Failure     401 {object} UnauthorizedResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /watchlist [get]
func (h *WatchlistHandler) GetWatchlist(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	entries, err := h.watchlistService.GetUserWatchlist(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, WatchlistListResponse{Success: true, Data: entries, Count: len(entries)})
}

// AddToWatchlist adds a stock to the watchlist.
// @Summary     Add to watchlist
// @Description Add a stock to the authenticated user's watchlist
// @Tags        watchlist
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body AddToWatchlistRequest true "Stock to add"
// @Success     201 {object} WatchlistEntryResponse
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} UnauthorizedResponse "Unauthorized"
// @Failure     409 {object} ErrorResponse "Already in watchlist"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /watchlist [post]
func (h *WatchlistHandler) AddToWatchlist(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AddToWatchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Symbol and company name are required"))
		return
	}

	entry, err := h.watchlistService.AddToWatchlist(userID, req.Symbol, req.Company)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.ActionAddWatchlist, resourceWatchlist, entry.ID, c.ClientIP(),
		map[string]interface{}{"symbol": entry.Symbol, "company": entry.Company})

	c.JSON(http.StatusCreated, WatchlistEntryResponse{Success: true, Message: "Stock added to watchlist", Data: entry})
}

// CheckWatchlist reports whether a symbol is on the watchlist.
// @Summary     Check watchlist membership
// @Tags        watchlist
// @Produce     json
// @Security    BearerAuth
// @Param       symbol path string true "Ticker symbol"
// @Success     200 {object} WatchlistCheckResponse
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} UnauthorizedResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /watchlist/{symbol} [get]
func (h *WatchlistHandler) CheckWatchlist(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	entry, err := h.watchlistService.GetWatchlistEntry(userID, c.Param("symbol"))
	if err != nil {
		if errors.Is(err, apperrors.ErrWatchlistItemNotFound) {
			c.JSON(http.StatusOK, WatchlistCheckResponse{Success: true, IsInWatchlist: false})
			return
		}
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, WatchlistCheckResponse{Success: true, IsInWatchlist: true, Data: entry})
}

// RemoveFromWatchlist removes one stock.
// @Summary     Remove from watchlist
// @Tags        watchlist
// @Produce     json
// @Security    BearerAuth
// @Param       symbol path string true "Ticker symbol"
// @Success     200 {object} WatchlistEntryResponse
// @Failure     401 {object} UnauthorizedResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Not in watchlist"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /watchlist/{symbol} [delete]
func (h *WatchlistHandler) RemoveFromWatchlist(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	entry, err := h.watchlistService.RemoveFromWatchlist(userID, c.Param("symbol"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.ActionRemoveWatchlist, resourceWatchlist, entry.ID, c.ClientIP(),
		map[string]interface{}{"symbol": entry.Symbol})

	c.JSON(http.StatusOK, WatchlistEntryResponse{Success: true, Message: "Stock removed from watchlist", Data: entry})
}

// ClearWatchlist removes every stock.
// @Summary     Clear watchlist
// @Tags        watchlist
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} WatchlistClearResponse
// @Failure     401 {object} UnauthorizedResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /watchlist [delete]
func (h *WatchlistHandler) ClearWatchlist(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	deleted, err := h.watchlistService.ClearWatchlist(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.ActionClearWatchlist, resourceWatchlist, "", c.ClientIP(),
		map[string]interface{}{"deleted": deleted})

	c.JSON(http.StatusOK, WatchlistClearResponse{Success: true, Message: "Watchlist cleared successfully", DeletedCount: deleted})
}

// ToggleWatchlist adds the symbol when absent and removes it when present.
// @Summary     Toggle watchlist membership
// @Tags        watchlist
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       symbol  path string                 true  "Ticker symbol"
// @Param       request body ToggleWatchlistRequest false "Company name, required when adding"
// @Success     200 {object} WatchlistCheckResponse
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} UnauthorizedResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /watchlist/{symbol}/toggle [post]
func (h *WatchlistHandler) ToggleWatchlist(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ToggleWatchlistRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithBindError(c, err)
			return
		}
	}

	symbol := c.Param("symbol")
	entry, err := h.watchlistService.RemoveFromWatchlist(userID, symbol)
	switch {
	case err == nil:
		h.auditService.Log(userID, services.ActionRemoveWatchlist, resourceWatchlist, entry.ID, c.ClientIP(),
			map[string]interface{}{"symbol": entry.Symbol})
		c.JSON(http.StatusOK, WatchlistCheckResponse{Success: true, IsInWatchlist: false})
		return
	case !errors.Is(err, apperrors.ErrWatchlistItemNotFound):
		respondWithError(c, err)
		return
	}

	entry, err = h.watchlistService.AddToWatchlist(userID, symbol, req.Company)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.auditService.Log(userID, services.ActionAddWatchlist, resourceWatchlist, entry.ID, c.ClientIP(),
		map[string]interface{}{"symbol": entry.Symbol, "company": entry.Company})

	c.JSON(http.StatusOK, WatchlistCheckResponse{Success: true, IsInWatchlist: true, Data: entry})
}

// CreateAlertFromWatchlist creates an alert for a watchlisted stock.
// @Summary     Create alert from watchlist entry
// @Description The alert's stock identifier is derived from the stored entry as "Company (SYMBOL)"
// @Tags        watchlist
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       symbol  path string                    true "Ticker symbol"
// @Param       request body AlertFromWatchlistRequest true "Alert definition"
// @Param       X-Dialog-ID header string              false "Client form id; blocks resubmission of the same form"
// @Success     201 {object} AlertResponse
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} UnauthorizedResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Not in watchlist"
// @Failure     409 {object} ErrorResponse "Same dialog already submitting"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /watchlist/{symbol}/alert [post]
func (h *WatchlistHandler) CreateAlertFromWatchlist(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AlertFromWatchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindError(c, err)
		return
	}

	var rule *models.AlertRule
	err = h.dialogs.Submit(userID, c.GetHeader(dialogIDHeader), func() error {
		var createErr error
		rule, createErr = h.alertService.CreateAlertFromWatchlist(userID, c.Param("symbol"), services.AlertInput{
			Name:      req.Name,
			Type:      models.AlertType(req.Type),
			Condition: models.AlertCondition(req.Condition),
			Threshold: *req.Threshold,
			Frequency: models.AlertFrequency(req.Frequency),
		})
		return createErr
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.ActionCreateAlert, resourceAlert, rule.ID, c.ClientIP(),
		map[string]interface{}{"stockIdentifier": rule.StockIdentifier, "threshold": rule.Threshold})

	c.JSON(http.StatusCreated, AlertResponse{Success: true, Message: "Alert created", Data: rule})
}
