package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"stocktracker/internal/dashboard"
	"stocktracker/internal/models"
	"stocktracker/internal/services"
)

const resourceAlert = "alert_rule"

// AlertHandler handles alert rule requests.
type AlertHandler struct {
	alertService services.AlertServicer
	auditService services.AuditServicer
	dialogs      *dashboard.DialogRegistry
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(alertService services.AlertServicer, auditService services.AuditServicer, dialogs *dashboard.DialogRegistry) *AlertHandler {
	return &AlertHandler{alertService: alertService, auditService: auditService, dialogs: dialogs}
}

// CreateAlertRequest is the payload for creating an alert rule.
type CreateAlertRequest struct {
	Name            string   `json:"name" binding:"required,max=100"`
	StockIdentifier string   `json:"stockIdentifier" binding:"required,stock_identifier"`
	Type            string   `json:"type" binding:"required,alert_type"`
	Condition       string   `json:"condition" binding:"required,alert_condition"`
	Threshold       *float64 `json:"threshold" binding:"required"`
	Frequency       string   `json:"frequency" binding:"required,alert_frequency"`
}

// UpdateAlertRequest is a partial update; omitted fields are unchanged.
type UpdateAlertRequest struct {
	Name            *string  `json:"name" binding:"omitempty,min=1,max=100"`
	StockIdentifier *string  `json:"stockIdentifier" binding:"omitempty,stock_identifier"`
	Type            *string  `json:"type" binding:"omitempty,alert_type"`
	Condition       *string  `json:"condition" binding:"omitempty,alert_condition"`
	Threshold       *float64 `json:"threshold"`
	Frequency       *string  `json:"frequency" binding:"omitempty,alert_frequency"`
}

// AlertResponse wraps one alert rule.
type AlertResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    *models.AlertRule `json:"data"`
}

// AlertListResponse is the list payload.
type AlertListResponse struct {
	Success bool               `json:"success"`
	Data    []models.AlertRule `json:"data"`
	Count   int                `json:"count"`
}

// MessageResponse is a bare acknowledgement.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// GetAlerts lists alert rules, optionally for one symbol.
// @Summary     List alerts
// @Description List the authenticated user's alert rules, newest first
// @Tags        alerts
// @Produce     json
// @Security    BearerAuth
// @Param       symbol query string false "Only alerts for this ticker"
// @Success     200 {object} AlertListResponse
// @Failure     401 {object} UnauthorizedResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /alert [get]
func (h *AlertHandler) GetAlerts(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var rules []models.AlertRule
	if symbol, ok := c.GetQuery("symbol"); ok {
		rules, err = h.alertService.GetUserAlertsBySymbol(userID, symbol)
	} else {
		rules, err = h.alertService.GetUserAlerts(userID)
	}
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, AlertListResponse{Success: true, Data: rules, Count: len(rules)})
}

// CreateAlert creates an alert rule.
// @Summary     Create alert
// @Tags        alerts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request     body   CreateAlertRequest true  "Alert definition"
// @Param       X-Dialog-ID header string             false "Client form id; blocks resubmission of the same form"
// @Success     201 {object} AlertResponse
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} UnauthorizedResponse "Unauthorized"
// @Failure     409 {object} ErrorResponse "Same dialog already submitting"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /alert [post]
func (h *AlertHandler) CreateAlert(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindError(c, err)
		return
	}

	var rule *models.AlertRule
	err = h.dialogs.Submit(userID, c.GetHeader(dialogIDHeader), func() error {
		var createErr error
		rule, createErr = h.alertService.CreateAlert(userID, services.AlertInput{
			Name:            req.Name,
			StockIdentifier: req.StockIdentifier,
			Type:            models.AlertType(req.Type),
			Condition:       models.AlertCondition(req.Condition),
			Threshold:       *req.Threshold,
			Frequency:       models.AlertFrequency(req.Frequency),
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

// GetAlert returns one alert rule.
// @Summary     Get alert
// @Tags        alerts
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Alert ID"
// @Success     200 {object} AlertResponse
// @Failure     401 {object} UnauthorizedResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Alert not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /alert/{id} [get]
func (h *AlertHandler) GetAlert(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	rule, err := h.alertService.GetAlertByID(userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, AlertResponse{Success: true, Data: rule})
}

// UpdateAlert applies a partial update to an alert rule.
// @Summary     Update alert
// @Tags        alerts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string             true "Alert ID"
// @Param       request body UpdateAlertRequest true "Fields to change"
// @Success     200 {object} AlertResponse
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} UnauthorizedResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Alert not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /alert/{id} [put]
func (h *AlertHandler) UpdateAlert(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindError(c, err)
		return
	}

	update := services.AlertUpdate{
		Name:            req.Name,
		StockIdentifier: req.StockIdentifier,
		Threshold:       req.Threshold,
	}
	if req.Type != nil {
		t := models.AlertType(*req.Type)
		update.Type = &t
	}
	if req.Condition != nil {
		cond := models.AlertCondition(*req.Condition)
		update.Condition = &cond
	}
	if req.Frequency != nil {
		f := models.AlertFrequency(*req.Frequency)
		update.Frequency = &f
	}

	rule, err := h.alertService.UpdateAlert(userID, c.Param("id"), update)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.ActionUpdateAlert, resourceAlert, rule.ID, c.ClientIP(), updatedFields(req))

	c.JSON(http.StatusOK, AlertResponse{Success: true, Message: "Alert updated", Data: rule})
}

// DeleteAlert deletes an alert rule.
// @Summary     Delete alert
// @Tags        alerts
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Alert ID"
// @Success     200 {object} MessageResponse
// @Failure     401 {object} UnauthorizedResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Alert not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /alert/{id} [delete]
func (h *AlertHandler) DeleteAlert(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	alertID := c.Param("id")
	if err := h.alertService.DeleteAlert(userID, alertID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.ActionDeleteAlert, resourceAlert, alertID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "Alert deleted successfully"})
}

// updatedFields lists the fields present in a partial update for the audit trail.
func updatedFields(req UpdateAlertRequest) map[string]interface{} {
	changes := map[string]interface{}{}
	if req.Name != nil {
		changes["name"] = strings.TrimSpace(*req.Name)
	}
	if req.StockIdentifier != nil {
		changes["stockIdentifier"] = *req.StockIdentifier
	}
	if req.Type != nil {
		changes["type"] = *req.Type
	}
	if req.Condition != nil {
		changes["condition"] = *req.Condition
	}
	if req.Threshold != nil {
		changes["threshold"] = *req.Threshold
	}
	if req.Frequency != nil {
		changes["frequency"] = *req.Frequency
	}
	return changes
}
