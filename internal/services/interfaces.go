package services

import (
	"stocktracker/internal/models"
)

// SignUpInput carries the registration form.
type SignUpInput struct {
	Email             string
	Password          string
	FullName          string
	Country           string
	InvestmentGoals   string
	RiskTolerance     string
	PreferredIndustry string
}

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(input SignUpInput) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	Authenticate(email, password string) (*models.User, error)
}

// WatchlistServicer owns the set of (user, symbol) pairs a user tracks.
// Symbols are normalized to upper case before every lookup and write.
type WatchlistServicer interface {
	AddToWatchlist(userID, symbol, company string) (*models.WatchlistEntry, error)
	RemoveFromWatchlist(userID, symbol string) (*models.WatchlistEntry, error)
	GetUserWatchlist(userID string) ([]models.WatchlistEntry, error)
	GetWatchlistEntry(userID, symbol string) (*models.WatchlistEntry, error)
	IsInWatchlist(userID, symbol string) (bool, error)
	ClearWatchlist(userID string) (int64, error)
}

// AlertInput holds the fields of a new alert rule.
type AlertInput struct {
	Name            string
	StockIdentifier string
	Type            models.AlertType
	Condition       models.AlertCondition
	Threshold       float64
	Frequency       models.AlertFrequency
}

// AlertUpdate holds a partial update; nil fields are left unchanged.
type AlertUpdate struct {
	Name            *string
	StockIdentifier *string
	Type            *models.AlertType
	Condition       *models.AlertCondition
	Threshold       *float64
	Frequency       *models.AlertFrequency
}

// AlertServicer owns alert definitions. Every operation is scoped to the
// calling user; rules of other users are reported as not found.
type AlertServicer interface {
	CreateAlert(userID string, input AlertInput) (*models.AlertRule, error)
	CreateAlertFromWatchlist(userID, symbol string, input AlertInput) (*models.AlertRule, error)
	GetAlertByID(userID, alertID string) (*models.AlertRule, error)
	UpdateAlert(userID, alertID string, update AlertUpdate) (*models.AlertRule, error)
	DeleteAlert(userID, alertID string) error
	GetUserAlerts(userID string) ([]models.AlertRule, error)
	GetUserAlertsBySymbol(userID, symbol string) ([]models.AlertRule, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
