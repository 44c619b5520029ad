package dashboard

import (
	"stocktracker/internal/market"
	"stocktracker/internal/models"
)

// SearchResult is a search hit tagged with watchlist membership.
type SearchResult struct {
	market.SearchHit
	IsInWatchlist bool `json:"isInWatchlist"`
}

// MembershipIndex is the set of symbols on one user's watchlist. Build it
// once per watchlist change and reuse it for every search hit.
type MembershipIndex struct {
	symbols map[string]struct{}
}

// NewMembershipIndex indexes entries by normalized symbol.
func NewMembershipIndex(entries []models.WatchlistEntry) *MembershipIndex {
	idx := &MembershipIndex{symbols: make(map[string]struct{}, len(entries))}
	for _, e := range entries {
		idx.symbols[models.NormalizeSymbol(e.Symbol)] = struct{}{}
	}
	return idx
}

// Contains reports whether symbol is on the watchlist.
func (m *MembershipIndex) Contains(symbol string) bool {
	_, ok := m.symbols[models.NormalizeSymbol(symbol)]
	return ok
}

// Len returns the number of indexed symbols.
func (m *MembershipIndex) Len() int { return len(m.symbols) }

// Tag marks every hit with its membership flag, preserving order.
func (m *MembershipIndex) Tag(hits []market.SearchHit) []SearchResult {
	results := make([]SearchResult, len(hits))
	for i, h := range hits {
		results[i] = SearchResult{SearchHit: h, IsInWatchlist: m.Contains(h.Symbol)}
	}
	return results
}
