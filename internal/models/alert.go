package models

// AlertType is the market quantity an alert watches.
type AlertType string

const (
	AlertTypePrice  AlertType = "price"
	AlertTypeVolume AlertType = "volume"
)

// Valid reports whether t is one of the known alert types.
func (t AlertType) Valid() bool {
	switch t {
	case AlertTypePrice, AlertTypeVolume:
		return true
	}
	return false
}

// Label is the display name of the alert type.
func (t AlertType) Label() string {
	if t == AlertTypeVolume {
		return "Volume"
	}
	return "Price"
}

// AlertCondition compares the watched quantity with the threshold.
type AlertCondition string

const (
	ConditionGreaterThan AlertCondition = "greater_than"
	ConditionLessThan    AlertCondition = "less_than"
	ConditionEqualTo     AlertCondition = "equal_to"
)

// Valid reports whether c is one of the known conditions.
func (c AlertCondition) Valid() bool {
	switch c {
	case ConditionGreaterThan, ConditionLessThan, ConditionEqualTo:
		return true
	}
	return false
}

// Symbol is the comparison glyph shown next to the threshold.
func (c AlertCondition) Symbol() string {
	switch c {
	case ConditionGreaterThan:
		return ">"
	case ConditionEqualTo:
		return "="
	default:
		return "<"
	}
}

// AlertFrequency caps how often an alert may notify.
type AlertFrequency string

const (
	FrequencyOncePerMinute AlertFrequency = "once_per_minute"
	FrequencyOncePerHour   AlertFrequency = "once_per_hour"
	FrequencyOncePerDay    AlertFrequency = "once_per_day"
)

// Valid reports whether f is one of the known frequencies.
func (f AlertFrequency) Valid() bool {
	switch f {
	case FrequencyOncePerMinute, FrequencyOncePerHour, FrequencyOncePerDay:
		return true
	}
	return false
}

// Label is the human readable frequency.
func (f AlertFrequency) Label() string {
	switch f {
	case FrequencyOncePerMinute:
		return "Once per minute"
	case FrequencyOncePerHour:
		return "Once per hour"
	case FrequencyOncePerDay:
		return "Once per day"
	}
	return string(f)
}

// AlertRule is a user-defined condition on a stock's price or volume.
// StockIdentifier is the free-form "Company (SYMBOL)" reference; Symbol is
// derived from it on every write and is what symbol lookups filter on.
type AlertRule struct {
	Base
	UserID          string         `gorm:"type:uuid;not null;index" json:"userId"`
	Name            string         `gorm:"not null" json:"name"`
	StockIdentifier string         `gorm:"not null" json:"stockIdentifier"`
	Symbol          string         `gorm:"size:20;not null;index" json:"symbol"`
	Type            AlertType      `gorm:"size:16;not null" json:"type"`
	Condition       AlertCondition `gorm:"size:16;not null" json:"condition"`
	Threshold       float64        `gorm:"not null" json:"threshold"`
	Frequency       AlertFrequency `gorm:"size:32;not null" json:"frequency"`
}

// Company returns the company part of the stock identifier.
func (a *AlertRule) Company() string {
	company, _, _ := ParseStockIdentifier(a.StockIdentifier)
	return company
}

