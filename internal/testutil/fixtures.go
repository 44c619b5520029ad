package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"stocktracker/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		FullName: "Test User",
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestWatchlistEntry adds symbol to the user's watchlist.
func CreateTestWatchlistEntry(t *testing.T, db *gorm.DB, userID, symbol, company string) *models.WatchlistEntry {
	t.Helper()
	return CreateTestWatchlistEntryAt(t, db, userID, symbol, company, time.Now().UTC())
}

// CreateTestWatchlistEntryAt adds symbol with an explicit AddedAt so that
// ordering tests do not depend on clock resolution.
func CreateTestWatchlistEntryAt(t *testing.T, db *gorm.DB, userID, symbol, company string, addedAt time.Time) *models.WatchlistEntry {
	t.Helper()

	entry := &models.WatchlistEntry{
		UserID:  userID,
		Symbol:  symbol,
		Company: company,
		AddedAt: addedAt,
	}
	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("failed to create test watchlist entry: %v", err)
	}
	return entry
}

// CreateTestAlert creates a price alert above threshold for the identifier.
func CreateTestAlert(t *testing.T, db *gorm.DB, userID, stockIdentifier string, threshold float64) *models.AlertRule {
	t.Helper()

	_, symbol, ok := models.ParseStockIdentifier(stockIdentifier)
	if !ok {
		t.Fatalf("invalid stock identifier in fixture: %q", stockIdentifier)
	}

	rule := &models.AlertRule{
		UserID:          userID,
		Name:            fmt.Sprintf("Alert %d", nextID()),
		StockIdentifier: stockIdentifier,
		Symbol:          symbol,
		Type:            models.AlertTypePrice,
		Condition:       models.ConditionGreaterThan,
		Threshold:       threshold,
		Frequency:       models.FrequencyOncePerDay,
	}
	if err := db.Create(rule).Error; err != nil {
		t.Fatalf("failed to create test alert: %v", err)
	}
	return rule
}
