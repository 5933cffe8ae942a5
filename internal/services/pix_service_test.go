package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"investment-platform/internal/apperrors"
	"investment-platform/internal/config"
	"investment-platform/internal/models"
	"investment-platform/internal/pix"
)

func testPixConfig() config.PixConfig {
	return config.PixConfig{
		MerchantName:  "INVESTMENT PLATFORM",
		MerchantCity:  "SAO PAULO",
		MerchantKey:   "chave@plataforma.com.br",
		MinDeposit:    decimal.NewFromInt(10),
		MaxDeposit:    decimal.NewFromInt(50000),
		MinWithdrawal: decimal.NewFromInt(20),
		MaxWithdrawal: decimal.NewFromInt(50000),
		WithdrawalFee: decimal.NewFromFloat(2.50),
	}
}

func newPixFixture(t *testing.T, provider pix.PaymentProvider) (*PixService, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	ledger := NewLedgerService(db)
	referral := NewReferralService(db, ledger, testReferralConfig())
	svc := NewPixService(db, ledger, referral, provider, testPixConfig())
	return svc, db
}

// failingTransferProvider rejects every outbound transfer
type failingTransferProvider struct {
	*pix.StubProvider
}

func (p failingTransferProvider) CreateTransfer(ctx context.Context, reference string, amount decimal.Decimal, pixKey, pixKeyType string) (*pix.Charge, error) {
	return nil, fmt.Errorf("provider unavailable")
}

func TestCreatePixDeposit(t *testing.T) {
	svc, db := newPixFixture(t, pix.NewStubProvider())
	user := createTestUser(t, db, "dep@test.com", "INV-PIX001", decimal.Zero, nil)

	before := time.Now()
	txn, err := svc.CreatePixDeposit(context.Background(), user.ID, decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("create deposit failed: %v", err)
	}

	if txn.Status != models.TransactionStatusPending {
		t.Errorf("expected pending, got %s", txn.Status)
	}
	if txn.ExpiresAt == nil {
		t.Fatal("expected an expiry timestamp")
	}
	gotExpiry := txn.ExpiresAt.Sub(before)
	if gotExpiry < 29*time.Minute || gotExpiry > 31*time.Minute {
		t.Errorf("expected roughly 30m expiry, got %s", gotExpiry)
	}
	if txn.QRCode == "" {
		t.Error("expected a BR Code payload")
	}
	if !pix.Verify(txn.QRCode) {
		t.Error("BR Code payload failed checksum verification")
	}
	if txn.ProviderTxID == "" {
		t.Error("expected a provider transaction id")
	}

	// Creating a deposit never touches the balance
	var reloaded models.User
	db.First(&reloaded, user.ID)
	if !reloaded.Balance.IsZero() {
		t.Errorf("expected untouched balance, got %s", reloaded.Balance)
	}

	if _, err := svc.CreatePixDeposit(context.Background(), user.ID, decimal.NewFromInt(5)); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected validation error below minimum, got %v", err)
	}
}

func TestConfirmPixDepositCreditsAndPaysCommission(t *testing.T) {
	svc, db := newPixFixture(t, pix.NewStubProvider())
	referrer := createTestUser(t, db, "ref@test.com", "INV-PIX002", decimal.Zero, nil)
	user := createTestUser(t, db, "dep2@test.com", "INV-PIX003", decimal.Zero, &referrer.ID)

	txn, err := svc.CreatePixDeposit(context.Background(), user.ID, decimal.NewFromInt(200))
	if err != nil {
		t.Fatalf("create deposit failed: %v", err)
	}

	confirmed, err := svc.ConfirmPixPayment(txn.Reference)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if confirmed.Status != models.TransactionStatusCompleted {
		t.Errorf("expected completed, got %s", confirmed.Status)
	}
	if confirmed.ProcessedAt == nil {
		t.Error("expected a processed timestamp")
	}

	var reloaded, reloadedRef models.User
	db.First(&reloaded, user.ID)
	db.First(&reloadedRef, referrer.ID)
	if !reloaded.Balance.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected balance 200, got %s", reloaded.Balance)
	}
	// 5% direct-referrer commission on the net deposit
	if !reloadedRef.Balance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected referrer balance 10, got %s", reloadedRef.Balance)
	}

	// A redelivered confirmation is a no-op
	if _, err := svc.ConfirmPixPayment(txn.Reference); err != nil {
		t.Fatalf("repeated confirm must be a no-op, got %v", err)
	}
	db.First(&reloaded, user.ID)
	db.First(&reloadedRef, referrer.ID)
	if !reloaded.Balance.Equal(decimal.NewFromInt(200)) {
		t.Errorf("balance credited twice: %s", reloaded.Balance)
	}
	if !reloadedRef.Balance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("commission paid twice: %s", reloadedRef.Balance)
	}
}

// Concurrent confirmations of one deposit must resolve to exactly one
// credit and one commission: only the caller that wins the guarded
// pending->completed transition pays out, the rest see a no-op.
func TestConcurrentConfirmsCreditOnce(t *testing.T) {
	svc, db := newPixFixture(t, pix.NewStubProvider())
	referrer := createTestUser(t, db, "cc-ref@test.com", "INV-PIX012", decimal.Zero, nil)
	user := createTestUser(t, db, "cc-dep@test.com", "INV-PIX013", decimal.Zero, &referrer.ID)

	txn, err := svc.CreatePixDeposit(context.Background(), user.ID, decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("create deposit failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Losers surface either the no-op completed row or a
			// validation error, never a second credit
			_, _ = svc.ConfirmPixPayment(txn.Reference)
		}()
	}
	wg.Wait()

	var reloaded, reloadedRef models.User
	db.First(&reloaded, user.ID)
	db.First(&reloadedRef, referrer.ID)
	if !reloaded.Balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected a single credit of 100, got balance %s", reloaded.Balance)
	}
	if !reloadedRef.Balance.Equal(decimal.NewFromInt(5)) {
		t.Errorf("expected a single 5%% commission, got balance %s", reloadedRef.Balance)
	}

	var commissions int64
	db.Model(&models.Transaction{}).
		Where("user_id = ? AND type = ?", referrer.ID, models.TransactionTypeReferral).
		Count(&commissions)
	if commissions != 1 {
		t.Errorf("expected 1 commission transaction, got %d", commissions)
	}
}

// A confirm racing a fail settles to exactly one terminal state
func TestConfirmAfterFailLosesTransition(t *testing.T) {
	svc, db := newPixFixture(t, pix.NewStubProvider())
	user := createTestUser(t, db, "cf@test.com", "INV-PIX014", decimal.NewFromInt(500), nil)

	txn, err := svc.CreatePixWithdrawal(context.Background(), user.ID, decimal.NewFromInt(100), "user@example.com", "email")
	if err != nil {
		t.Fatalf("create withdrawal failed: %v", err)
	}

	if _, err := svc.FailPixTransaction(txn.Reference, "rejected by provider"); err != nil {
		t.Fatalf("fail failed: %v", err)
	}
	if _, err := svc.ConfirmPixPayment(txn.Reference); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected validation error confirming a failed withdrawal, got %v", err)
	}

	// Reversed exactly once
	var reloaded models.User
	db.First(&reloaded, user.ID)
	if !reloaded.Balance.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected balance 500, got %s", reloaded.Balance)
	}
}

func TestCreatePixWithdrawalDebitsUpFront(t *testing.T) {
	svc, db := newPixFixture(t, pix.NewStubProvider())
	user := createTestUser(t, db, "wd@test.com", "INV-PIX004", decimal.NewFromInt(500), nil)

	txn, err := svc.CreatePixWithdrawal(context.Background(), user.ID, decimal.NewFromInt(100), "user@example.com", "email")
	if err != nil {
		t.Fatalf("create withdrawal failed: %v", err)
	}
	if txn.Status != models.TransactionStatusProcessing {
		t.Errorf("expected processing, got %s", txn.Status)
	}
	if !txn.NetAmount.Equal(decimal.NewFromFloat(97.50)) {
		t.Errorf("expected net amount 97.50, got %s", txn.NetAmount)
	}

	var reloaded models.User
	db.First(&reloaded, user.ID)
	if !reloaded.Balance.Equal(decimal.NewFromInt(400)) {
		t.Errorf("expected balance 400 after optimistic debit, got %s", reloaded.Balance)
	}

	// Completing a withdrawal finalizes status without touching the balance
	if _, err := svc.ConfirmPixPayment(txn.Reference); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	db.First(&reloaded, user.ID)
	if !reloaded.Balance.Equal(decimal.NewFromInt(400)) {
		t.Errorf("withdrawal completion changed the balance: %s", reloaded.Balance)
	}
}

func TestCreatePixWithdrawalInsufficientFunds(t *testing.T) {
	svc, db := newPixFixture(t, pix.NewStubProvider())
	user := createTestUser(t, db, "wd2@test.com", "INV-PIX005", decimal.NewFromInt(30), nil)

	_, err := svc.CreatePixWithdrawal(context.Background(), user.ID, decimal.NewFromInt(50), "user@example.com", "email")
	if !errors.Is(err, apperrors.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	// The rejected withdrawal persists nothing
	var count int64
	db.Model(&models.Transaction{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 0 {
		t.Errorf("expected no persisted transactions, got %d", count)
	}
	var reloaded models.User
	db.First(&reloaded, user.ID)
	if !reloaded.Balance.Equal(decimal.NewFromInt(30)) {
		t.Errorf("expected untouched balance 30, got %s", reloaded.Balance)
	}
}

func TestPixWithdrawalProviderFailureReversesDebit(t *testing.T) {
	svc, db := newPixFixture(t, failingTransferProvider{pix.NewStubProvider()})
	user := createTestUser(t, db, "wd3@test.com", "INV-PIX006", decimal.NewFromInt(500), nil)

	_, err := svc.CreatePixWithdrawal(context.Background(), user.ID, decimal.NewFromInt(100), "user@example.com", "email")
	if err == nil {
		t.Fatal("expected provider error")
	}

	var reloaded models.User
	db.First(&reloaded, user.ID)
	if !reloaded.Balance.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected debit reversed to 500, got %s", reloaded.Balance)
	}

	var txn models.Transaction
	if err := db.Where("user_id = ?", user.ID).First(&txn).Error; err != nil {
		t.Fatalf("expected a persisted failed withdrawal: %v", err)
	}
	if txn.Status != models.TransactionStatusFailed {
		t.Errorf("expected failed, got %s", txn.Status)
	}
	if txn.FailReason == "" {
		t.Error("expected a failure reason")
	}
}

func TestFailPixWithdrawalReversesDebit(t *testing.T) {
	svc, db := newPixFixture(t, pix.NewStubProvider())
	user := createTestUser(t, db, "wd4@test.com", "INV-PIX007", decimal.NewFromInt(500), nil)

	txn, err := svc.CreatePixWithdrawal(context.Background(), user.ID, decimal.NewFromInt(100), "user@example.com", "email")
	if err != nil {
		t.Fatalf("create withdrawal failed: %v", err)
	}

	if _, err := svc.FailPixTransaction(txn.Reference, "rejected by provider"); err != nil {
		t.Fatalf("fail failed: %v", err)
	}

	var reloaded models.User
	db.First(&reloaded, user.ID)
	if !reloaded.Balance.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected gross amount restored to 500, got %s", reloaded.Balance)
	}

	// Failing an already terminal transaction is rejected
	if _, err := svc.FailPixTransaction(txn.Reference, "again"); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected validation error on double fail, got %v", err)
	}
}

func TestRunExpirySweep(t *testing.T) {
	svc, db := newPixFixture(t, pix.NewStubProvider())
	user := createTestUser(t, db, "exp@test.com", "INV-PIX008", decimal.Zero, nil)

	txn, err := svc.CreatePixDeposit(context.Background(), user.ID, decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("create deposit failed: %v", err)
	}

	// One minute before expiry: nothing happens
	expired, _, err := svc.RunExpirySweep(txn.ExpiresAt.Add(-time.Minute))
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if expired != 0 {
		t.Errorf("expected nothing expired before the deadline, got %d", expired)
	}

	// One minute past expiry the deposit expires, balance untouched
	expired, _, err = svc.RunExpirySweep(txn.ExpiresAt.Add(time.Minute))
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if expired != 1 {
		t.Errorf("expected 1 expired deposit, got %d", expired)
	}

	var reloadedTxn models.Transaction
	db.Where("reference = ?", txn.Reference).First(&reloadedTxn)
	if reloadedTxn.Status != models.TransactionStatusExpired {
		t.Errorf("expected expired, got %s", reloadedTxn.Status)
	}
	var reloaded models.User
	db.First(&reloaded, user.ID)
	if !reloaded.Balance.IsZero() {
		t.Errorf("expiry must not credit, balance %s", reloaded.Balance)
	}

	// An expired deposit can no longer be confirmed
	if _, err := svc.ConfirmPixPayment(txn.Reference); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected validation error confirming expired deposit, got %v", err)
	}

	// Past the retention window the row is deleted outright
	_, deleted, err := svc.RunExpirySweep(txn.ExpiresAt.Add(8 * 24 * time.Hour))
	if err != nil {
		t.Fatalf("cleanup sweep failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted row, got %d", deleted)
	}
}

func TestCancelPixTransaction(t *testing.T) {
	svc, db := newPixFixture(t, pix.NewStubProvider())
	user := createTestUser(t, db, "can@test.com", "INV-PIX009", decimal.Zero, nil)
	other := createTestUser(t, db, "can2@test.com", "INV-PIX010", decimal.Zero, nil)

	txn, err := svc.CreatePixDeposit(context.Background(), user.ID, decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("create deposit failed: %v", err)
	}

	if _, err := svc.CancelPixTransaction(txn.Reference, other.ID); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected validation error cancelling someone else's deposit, got %v", err)
	}

	cancelled, err := svc.CancelPixTransaction(txn.Reference, user.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != models.TransactionStatusCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}

	if _, err := svc.ConfirmPixPayment(txn.Reference); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected validation error confirming cancelled deposit, got %v", err)
	}
}

func TestCheckPendingWithProvider(t *testing.T) {
	stub := pix.NewStubProvider()
	svc, db := newPixFixture(t, stub)
	user := createTestUser(t, db, "poll@test.com", "INV-PIX011", decimal.Zero, nil)

	paid, err := svc.CreatePixDeposit(context.Background(), user.ID, decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("create deposit failed: %v", err)
	}
	rejected, err := svc.CreatePixDeposit(context.Background(), user.ID, decimal.NewFromInt(50))
	if err != nil {
		t.Fatalf("create deposit failed: %v", err)
	}

	stub.Outcomes[paid.Reference] = pix.ChargeStatusPaid
	stub.Outcomes[rejected.Reference] = pix.ChargeStatusFailed

	svc.CheckPendingWithProvider(context.Background())

	var reloadedPaid, reloadedRejected models.Transaction
	db.Where("reference = ?", paid.Reference).First(&reloadedPaid)
	db.Where("reference = ?", rejected.Reference).First(&reloadedRejected)

	if reloadedPaid.Status != models.TransactionStatusCompleted {
		t.Errorf("expected paid deposit completed, got %s", reloadedPaid.Status)
	}
	if reloadedRejected.Status != models.TransactionStatusFailed {
		t.Errorf("expected rejected deposit failed, got %s", reloadedRejected.Status)
	}

	var reloaded models.User
	db.First(&reloaded, user.ID)
	if !reloaded.Balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected only the paid deposit credited, balance %s", reloaded.Balance)
	}
}
