package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTransactionDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&User{}, &Transaction{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	db.Exec("DELETE FROM transactions")
	db.Exec("DELETE FROM users")
	return db
}

func TestTransactionNetAmountDerivedOnSave(t *testing.T) {
	db := setupTransactionDB(t)

	user := User{Name: "T", Email: "t@test.com", Password: "x", ReferralCode: "INV-MOD001", IsActive: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	txn := Transaction{
		UserID:    user.ID,
		Type:      TransactionTypeWithdrawal,
		Method:    TransactionMethodPix,
		Amount:    decimal.NewFromInt(100),
		Fee:       decimal.NewFromFloat(2.50),
		Status:    TransactionStatusPending,
		Reference: "hook-ref-1",
	}
	if err := db.Create(&txn).Error; err != nil {
		t.Fatalf("failed to create transaction: %v", err)
	}
	if !txn.NetAmount.Equal(decimal.NewFromFloat(97.50)) {
		t.Errorf("expected net amount 97.50, got %s", txn.NetAmount)
	}

	// Changing the fee re-derives the net amount on the next save
	txn.Fee = decimal.NewFromInt(5)
	if err := db.Save(&txn).Error; err != nil {
		t.Fatalf("failed to save transaction: %v", err)
	}
	if !txn.NetAmount.Equal(decimal.NewFromInt(95)) {
		t.Errorf("expected net amount 95, got %s", txn.NetAmount)
	}
}

func TestTransactionStatusIsTerminal(t *testing.T) {
	terminal := []TransactionStatus{
		TransactionStatusCompleted,
		TransactionStatusFailed,
		TransactionStatusCancelled,
		TransactionStatusExpired,
	}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range []TransactionStatus{TransactionStatusPending, TransactionStatusProcessing} {
		if s.IsTerminal() {
			t.Errorf("expected %s to be non-terminal", s)
		}
	}
}
