// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"stocktracker/internal/models"
)

// tickerRegex accepts exchange tickers such as AAPL, BRK.B, RDS-A or 7203.T.
var tickerRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9.\-:^]{0,19}$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("ticker", validateTicker)
		_ = v.RegisterValidation("alert_type", validateAlertType)
		_ = v.RegisterValidation("alert_condition", validateAlertCondition)
		_ = v.RegisterValidation("alert_frequency", validateAlertFrequency)
		_ = v.RegisterValidation("stock_identifier", validateStockIdentifier)
	}
}

func validateTicker(fl validator.FieldLevel) bool {
	return tickerRegex.MatchString(fl.Field().String())
}

func validateAlertType(fl validator.FieldLevel) bool {
	return models.AlertType(fl.Field().String()).Valid()
}

func validateAlertCondition(fl validator.FieldLevel) bool {
	return models.AlertCondition(fl.Field().String()).Valid()
}

func validateAlertFrequency(fl validator.FieldLevel) bool {
	return models.AlertFrequency(fl.Field().String()).Valid()
}

func validateStockIdentifier(fl validator.FieldLevel) bool {
	_, _, ok := models.ParseStockIdentifier(fl.Field().String())
	return ok
}
