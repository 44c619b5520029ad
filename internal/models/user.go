package models

// User is an account holder. Watchlist entries and alert rules are owned
// exclusively by the user that created them.
type User struct {
	Base
	Email             string `gorm:"uniqueIndex;not null" json:"email"`
	Password          string `gorm:"not null" json:"-"`
	FullName          string `json:"fullName"`
	Country           string `json:"country,omitempty"`
	InvestmentGoals   string `json:"investmentGoals,omitempty"`
	RiskTolerance     string `json:"riskTolerance,omitempty"`
	PreferredIndustry string `json:"preferredIndustry,omitempty"`
	IsActive          bool   `gorm:"default:true" json:"isActive"`
}
