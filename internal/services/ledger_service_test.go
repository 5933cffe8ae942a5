package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"investment-platform/internal/apperrors"
	"investment-platform/internal/models"
)

func TestLedgerCreditAndDebit(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)

	user := createTestUser(t, db, "ledger@test.com", "INV-AAA001", decimal.NewFromInt(100), nil)

	updated, err := ledger.Credit(user.ID, decimal.NewFromInt(50))
	if err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if !updated.Balance.Equal(decimal.NewFromInt(150)) {
		t.Errorf("expected balance 150, got %s", updated.Balance)
	}

	updated, err = ledger.Debit(user.ID, decimal.NewFromInt(30))
	if err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if !updated.Balance.Equal(decimal.NewFromInt(120)) {
		t.Errorf("expected balance 120, got %s", updated.Balance)
	}
}

func TestLedgerDebitInsufficientFunds(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)

	user := createTestUser(t, db, "broke@test.com", "INV-AAA002", decimal.NewFromInt(30), nil)

	_, err := ledger.Debit(user.ID, decimal.NewFromInt(50))
	if err == nil {
		t.Fatal("expected insufficient funds error")
	}
	if !errors.Is(err, apperrors.ErrInsufficientFunds) {
		t.Errorf("expected insufficient funds kind, got %v", err)
	}

	// A rejected debit must leave the stored balance untouched
	var reloaded models.User
	if err := db.First(&reloaded, user.ID).Error; err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	if !reloaded.Balance.Equal(decimal.NewFromInt(30)) {
		t.Errorf("expected balance 30 after rejected debit, got %s", reloaded.Balance)
	}
}

func TestLedgerRejectsNonPositiveAmounts(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)

	user := createTestUser(t, db, "zero@test.com", "INV-AAA003", decimal.NewFromInt(100), nil)

	if _, err := ledger.Credit(user.ID, decimal.Zero); err == nil {
		t.Error("expected error crediting zero")
	}
	if _, err := ledger.Debit(user.ID, decimal.NewFromInt(-5)); err == nil {
		t.Error("expected error debiting a negative amount")
	}
}

func TestLedgerRecordInvestmentAccumulators(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)

	user := createTestUser(t, db, "accum@test.com", "INV-AAA004", decimal.NewFromInt(1000), nil)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := ledger.RecordInvestmentTx(tx, user.ID, decimal.NewFromInt(400))
		return err
	})
	if err != nil {
		t.Fatalf("record investment failed: %v", err)
	}

	var reloaded models.User
	if err := db.First(&reloaded, user.ID).Error; err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	if !reloaded.Balance.Equal(decimal.NewFromInt(600)) {
		t.Errorf("expected balance 600, got %s", reloaded.Balance)
	}
	if !reloaded.TotalInvested.Equal(decimal.NewFromInt(400)) {
		t.Errorf("expected total invested 400, got %s", reloaded.TotalInvested)
	}
	if reloaded.InvestmentCount != 1 {
		t.Errorf("expected investment count 1, got %d", reloaded.InvestmentCount)
	}
}

// A mutation for a user must wait until a WithUserLock holder for that user
// is done, so the lock covers the whole transaction including its commit,
// not just the read-check-write inside it.
func TestLedgerUserLockHeldAcrossTransaction(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)

	user := createTestUser(t, db, "lock@test.com", "INV-AAA006", decimal.NewFromInt(100), nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	holderDone := make(chan struct{})
	go func() {
		defer close(holderDone)
		_ = ledger.WithUserLock(user.ID, func() error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	creditDone := make(chan struct{})
	go func() {
		defer close(creditDone)
		if _, err := ledger.Credit(user.ID, decimal.NewFromInt(10)); err != nil {
			t.Errorf("credit failed: %v", err)
		}
	}()

	select {
	case <-creditDone:
		t.Fatal("credit ran while another holder owned the user lock")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	<-holderDone
	<-creditDone

	var reloaded models.User
	if err := db.First(&reloaded, user.ID).Error; err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	if !reloaded.Balance.Equal(decimal.NewFromInt(110)) {
		t.Errorf("expected balance 110, got %s", reloaded.Balance)
	}
}

func TestLedgerConcurrentDebitsNeverOverdraw(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedgerService(db)

	user := createTestUser(t, db, "race@test.com", "INV-AAA005", decimal.NewFromInt(100), nil)

	var wg sync.WaitGroup
	succeeded := make(chan struct{}, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.Debit(user.ID, decimal.NewFromInt(60)); err == nil {
				succeeded <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(succeeded)

	wins := 0
	for range succeeded {
		wins++
	}
	if wins > 1 {
		t.Errorf("expected at most one debit to succeed, got %d", wins)
	}

	var reloaded models.User
	if err := db.First(&reloaded, user.ID).Error; err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	if reloaded.Balance.IsNegative() {
		t.Errorf("balance went negative: %s", reloaded.Balance)
	}
	want := decimal.NewFromInt(100).Sub(decimal.NewFromInt(60).Mul(decimal.NewFromInt(int64(wins))))
	if !reloaded.Balance.Equal(want) {
		t.Errorf("expected balance %s after %d successful debits, got %s", want, wins, reloaded.Balance)
	}
}
