package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"investment-platform/internal/config"
	"investment-platform/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Trader{},
		&models.Investment{},
		&models.DailyReturn{},
		&models.Transaction{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	// The shared in-memory DB survives across tests in this package
	db.Exec("DELETE FROM transactions")
	db.Exec("DELETE FROM daily_returns")
	db.Exec("DELETE FROM investments")
	db.Exec("DELETE FROM traders")
	db.Exec("DELETE FROM users")

	return db
}

func testReferralConfig() config.ReferralConfig {
	return config.ReferralConfig{
		InvestmentRates: []decimal.Decimal{
			decimal.NewFromInt(8),
			decimal.NewFromInt(3),
			decimal.NewFromInt(1),
		},
		DepositRate: decimal.NewFromInt(5),
	}
}

func createTestUser(t *testing.T, db *gorm.DB, email, code string, balance decimal.Decimal, referredBy *uint) *models.User {
	user := models.User{
		Name:         "Test User",
		Email:        email,
		Password:     "hashed",
		Balance:      balance,
		ReferralCode: code,
		ReferredByID: referredBy,
		IsActive:     true,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", email, err)
	}
	return &user
}
