package services

import (
	"errors"
	"math"
	"strings"

	"gorm.io/gorm"

	apperrors "stocktracker/internal/errors"
	"stocktracker/internal/models"
	"stocktracker/internal/uuid"
)

// alertService handles alert rule business logic.
type alertService struct {
	db *gorm.DB
}

// NewAlertService creates a new AlertServicer.
func NewAlertService(db *gorm.DB) AlertServicer {
	return &alertService{db: db}
}

// CreateAlert validates and stores a new alert rule for the user.
func (s *alertService) CreateAlert(userID string, input AlertInput) (*models.AlertRule, error) {
	rule := &models.AlertRule{
		UserID:          userID,
		Name:            strings.TrimSpace(input.Name),
		StockIdentifier: strings.TrimSpace(input.StockIdentifier),
		Type:            input.Type,
		Condition:       input.Condition,
		Threshold:       input.Threshold,
		Frequency:       input.Frequency,
	}
	if err := validateAlertRule(rule); err != nil {
		return nil, err
	}

	if err := s.db.Create(rule).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rule, nil
}

// CreateAlertFromWatchlist creates an alert bound to one of the user's
// watchlist entries. The stock identifier is derived from the entry and any
// identifier in input is ignored.
func (s *alertService) CreateAlertFromWatchlist(userID, symbol string, input AlertInput) (*models.AlertRule, error) {
	var entry models.WatchlistEntry
	err := s.db.Where("user_id = ? AND symbol = ?", userID, models.NormalizeSymbol(symbol)).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrWatchlistItemNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	input.StockIdentifier = entry.StockIdentifier()
	return s.CreateAlert(userID, input)
}

// GetAlertByID returns a rule if it belongs to the user.
func (s *alertService) GetAlertByID(userID, alertID string) (*models.AlertRule, error) {
	if !uuid.IsValid(alertID) {
		return nil, apperrors.ErrAlertNotFound
	}

	var rule models.AlertRule
	if err := s.db.Where("id = ? AND user_id = ?", alertID, userID).First(&rule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAlertNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &rule, nil
}

// UpdateAlert applies a partial update in place. Fields left nil keep their value.
func (s *alertService) UpdateAlert(userID, alertID string, update AlertUpdate) (*models.AlertRule, error) {
	rule, err := s.GetAlertByID(userID, alertID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		rule.Name = strings.TrimSpace(*update.Name)
	}
	if update.StockIdentifier != nil {
		rule.StockIdentifier = strings.TrimSpace(*update.StockIdentifier)
	}
	if update.Type != nil {
		rule.Type = *update.Type
	}
	if update.Condition != nil {
		rule.Condition = *update.Condition
	}
	if update.Threshold != nil {
		rule.Threshold = *update.Threshold
	}
	if update.Frequency != nil {
		rule.Frequency = *update.Frequency
	}
	if err := validateAlertRule(rule); err != nil {
		return nil, err
	}

	if err := s.db.Save(rule).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rule, nil
}

// DeleteAlert soft-deletes a rule owned by the user.
func (s *alertService) DeleteAlert(userID, alertID string) error {
	rule, err := s.GetAlertByID(userID, alertID)
	if err != nil {
		return err
	}

	result := s.db.Delete(rule)
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrAlertNotFound
	}
	return nil
}

// GetUserAlerts returns the user's rules, newest first.
func (s *alertService) GetUserAlerts(userID string) ([]models.AlertRule, error) {
	return s.findAlerts(s.db.Where("user_id = ?", userID))
}

// GetUserAlertsBySymbol returns the user's rules whose identifier resolves to symbol.
func (s *alertService) GetUserAlertsBySymbol(userID, symbol string) ([]models.AlertRule, error) {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Stock symbol is required")
	}
	return s.findAlerts(s.db.Where("user_id = ? AND symbol = ?", userID, symbol))
}

func (s *alertService) findAlerts(query *gorm.DB) ([]models.AlertRule, error) {
	rules := []models.AlertRule{}
	if err := query.Order("created_at DESC").Order("id DESC").Find(&rules).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rules, nil
}

// validateAlertRule checks the closed enumerations and the identifier rule,
// and derives Symbol from StockIdentifier.
func validateAlertRule(rule *models.AlertRule) error {
	if rule.Name == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Alert name is required")
	}
	_, symbol, ok := models.ParseStockIdentifier(rule.StockIdentifier)
	if !ok {
		return apperrors.ErrInvalidStockIdentifier
	}
	if !rule.Type.Valid() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Alert type must be price or volume")
	}
	if !rule.Condition.Valid() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Condition must be greater_than, less_than or equal_to")
	}
	if !rule.Frequency.Valid() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Frequency must be once_per_minute, once_per_hour or once_per_day")
	}
	if math.IsNaN(rule.Threshold) || math.IsInf(rule.Threshold, 0) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Threshold must be a number")
	}
	rule.Symbol = symbol
	return nil
}
