package models

import (
	"regexp"
	"strings"
)

// stockIdentifierPattern splits "Apple Inc. (AAPL)" into the company prefix
// and the parenthesized ticker.
var stockIdentifierPattern = regexp.MustCompile(`^([^(]*)\(([^)]+)\)`)

// ParseStockIdentifier extracts the company name and upper-cased symbol from
// a "Company (SYMBOL)" identifier. ok is false when no parenthesized ticker
// is present.
func ParseStockIdentifier(identifier string) (company, symbol string, ok bool) {
	m := stockIdentifierPattern.FindStringSubmatch(strings.TrimSpace(identifier))
	if m == nil {
		return strings.TrimSpace(identifier), "", false
	}
	symbol = NormalizeSymbol(m[2])
	if symbol == "" {
		return strings.TrimSpace(identifier), "", false
	}
	return strings.TrimSpace(m[1]), symbol, true
}

// FormatStockIdentifier builds the identifier for a company and ticker.
func FormatStockIdentifier(company, symbol string) string {
	return strings.TrimSpace(company) + " (" + NormalizeSymbol(symbol) + ")"
}
