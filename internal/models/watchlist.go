package models

import (
	"strings"
	"time"

	"stocktracker/internal/uuid"

	"gorm.io/gorm"
)

// WatchlistEntry is a user's subscription to one ticker symbol.
// Rows are created and deleted, never updated; (UserID, Symbol) is unique.
// There is no soft delete so the unique index never blocks a re-add.
type WatchlistEntry struct {
	ID      string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  string    `gorm:"type:uuid;not null;uniqueIndex:uq_watchlist_user_symbol" json:"userId"`
	Symbol  string    `gorm:"size:20;not null;uniqueIndex:uq_watchlist_user_symbol" json:"symbol"`
	Company string    `gorm:"not null" json:"company"`
	AddedAt time.Time `gorm:"not null;index" json:"addedAt"`
}

// BeforeCreate assigns the id and normalizes the symbol.
func (w *WatchlistEntry) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.New()
	}
	w.Symbol = NormalizeSymbol(w.Symbol)
	if w.AddedAt.IsZero() {
		w.AddedAt = time.Now().UTC()
	}
	return nil
}

// StockIdentifier returns the "Company (SYMBOL)" reference used by alerts
// created from this entry.
func (w *WatchlistEntry) StockIdentifier() string {
	return FormatStockIdentifier(w.Company, w.Symbol)
}

// NormalizeSymbol trims and upper-cases a ticker so that "aapl" and "AAPL"
// resolve to the same entry.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
