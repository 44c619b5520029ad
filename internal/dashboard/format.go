// Package dashboard merges stored watchlist entries and alert rules with
// live market data into the views served to clients, and owns the polling,
// search and debounce machinery around them.
package dashboard

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const notAvailable = "N/A"

var (
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
	billion  = decimal.NewFromInt(1_000_000_000)
)

// FormatCurrency renders a USD amount with thousands separators and two
// decimals, e.g. "$1,234.56" or "-$0.50".
func FormatCurrency(amount float64) string {
	cents := decimal.NewFromFloat(amount).Round(2).Shift(2).IntPart()
	return money.New(cents, money.USD).Display()
}

// FormatChange renders an absolute price change without the currency sign
// and with an explicit "+" for non-negative values, e.g. "+1.23".
func FormatChange(change float64) string {
	s := strings.Replace(FormatCurrency(change), "$", "", 1)
	if change >= 0 && !strings.HasPrefix(s, "-") {
		return "+" + s
	}
	return s
}

// FormatPercent renders a percent change with an explicit "+" for
// non-negative values, e.g. "+0.65%".
func FormatPercent(percent float64) string {
	s := decimal.NewFromFloat(percent).StringFixed(2)
	if percent >= 0 && !strings.HasPrefix(s, "-") {
		s = "+" + s
	}
	return s + "%"
}

// FormatMarketCap abbreviates a dollar market cap with B/M/K at the
// 1e9/1e6/1e3 thresholds. Larger caps stay in billions, so 2.5e12 renders
// as "$2500.00B".
func FormatMarketCap(marketCap float64) string {
	d := decimal.NewFromFloat(marketCap)
	switch {
	case d.GreaterThanOrEqual(billion):
		return "$" + d.Div(billion).StringFixed(2) + "B"
	case d.GreaterThanOrEqual(million):
		return "$" + d.Div(million).StringFixed(2) + "M"
	case d.GreaterThanOrEqual(thousand):
		return "$" + d.Div(thousand).StringFixed(2) + "K"
	}
	return "$" + d.String()
}

// FormatPERatio renders a P/E ratio to two decimals, or "N/A" when the
// ratio is missing, zero or negative.
func FormatPERatio(pe float64) string {
	if pe <= 0 {
		return notAvailable
	}
	return decimal.NewFromFloat(pe).StringFixed(2)
}
