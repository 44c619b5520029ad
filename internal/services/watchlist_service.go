package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "stocktracker/internal/errors"
	"stocktracker/internal/models"
)

// watchlistService handles watchlist business logic.
type watchlistService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewWatchlistService creates a new WatchlistServicer.
func NewWatchlistService(db *gorm.DB) WatchlistServicer {
	return &watchlistService{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// AddToWatchlist adds a symbol to the user's watchlist. A duplicate pair is
// rejected with ErrWatchlistDuplicate, whether it is caught by the lookup or
// by the unique index when two requests race.
func (s *watchlistService) AddToWatchlist(userID, symbol, company string) (*models.WatchlistEntry, error) {
	symbol = models.NormalizeSymbol(symbol)
	company = strings.TrimSpace(company)
	if symbol == "" || company == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Symbol and company name are required")
	}

	exists, err := s.IsInWatchlist(userID, symbol)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.ErrWatchlistDuplicate
	}

	entry := &models.WatchlistEntry{
		UserID:  userID,
		Symbol:  symbol,
		Company: company,
		AddedAt: s.now(),
	}
	if err := s.db.Create(entry).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.ErrWatchlistDuplicate
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return entry, nil
}

// RemoveFromWatchlist deletes one entry and returns it. Removing a symbol
// that is not (or no longer) tracked reports ErrWatchlistItemNotFound.
func (s *watchlistService) RemoveFromWatchlist(userID, symbol string) (*models.WatchlistEntry, error) {
	entry, err := s.GetWatchlistEntry(userID, symbol)
	if err != nil {
		return nil, err
	}

	result := s.db.Where("id = ? AND user_id = ?", entry.ID, userID).Delete(&models.WatchlistEntry{})
	if result.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		// Lost a race with another remove or clear.
		return nil, apperrors.ErrWatchlistItemNotFound
	}
	return entry, nil
}

// GetUserWatchlist returns the user's entries, most recently added first.
func (s *watchlistService) GetUserWatchlist(userID string) ([]models.WatchlistEntry, error) {
	entries := []models.WatchlistEntry{}
	if err := s.db.Where("user_id = ?", userID).
		Order("added_at DESC").Order("id DESC").
		Find(&entries).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return entries, nil
}

// GetWatchlistEntry returns the user's entry for symbol.
func (s *watchlistService) GetWatchlistEntry(userID, symbol string) (*models.WatchlistEntry, error) {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Symbol is required")
	}

	var entry models.WatchlistEntry
	if err := s.db.Where("user_id = ? AND symbol = ?", userID, symbol).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrWatchlistItemNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &entry, nil
}

// IsInWatchlist reports whether the user tracks symbol.
func (s *watchlistService) IsInWatchlist(userID, symbol string) (bool, error) {
	var count int64
	if err := s.db.Model(&models.WatchlistEntry{}).
		Where("user_id = ? AND symbol = ?", userID, models.NormalizeSymbol(symbol)).
		Count(&count).Error; err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count > 0, nil
}

// ClearWatchlist removes every entry of the user and returns how many were removed.
func (s *watchlistService) ClearWatchlist(userID string) (int64, error) {
	result := s.db.Where("user_id = ?", userID).Delete(&models.WatchlistEntry{})
	if result.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	return result.RowsAffected, nil
}
