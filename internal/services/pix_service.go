package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"investment-platform/internal/apperrors"
	"investment-platform/internal/config"
	"investment-platform/internal/models"
	"investment-platform/internal/pix"
)

// depositExpiry is how long an unpaid PIX deposit stays payable
const depositExpiry = 30 * time.Minute

// expiredRetention is how long expired transactions are kept before cleanup
const expiredRetention = 7 * 24 * time.Hour

// PixService drives the PIX transaction lifecycle:
// pending -> processing -> completed, or pending -> failed/cancelled/expired.
type PixService struct {
	db       *gorm.DB
	ledger   *LedgerService
	referral *ReferralService
	provider pix.PaymentProvider
	cfg      config.PixConfig
}

func NewPixService(db *gorm.DB, ledger *LedgerService, referral *ReferralService, provider pix.PaymentProvider, cfg config.PixConfig) *PixService {
	return &PixService{
		db:       db,
		ledger:   ledger,
		referral: referral,
		provider: provider,
		cfg:      cfg,
	}
}

// CreatePixDeposit creates a pending deposit with a 30-minute expiry and a
// scannable BR Code payload for the platform's merchant key.
func (s *PixService) CreatePixDeposit(ctx context.Context, userID uint, amount decimal.Decimal) (*models.Transaction, error) {
	if amount.LessThan(s.cfg.MinDeposit) || amount.GreaterThan(s.cfg.MaxDeposit) {
		return nil, apperrors.Validation(fmt.Sprintf(
			"deposit amount must be between %s and %s", s.cfg.MinDeposit, s.cfg.MaxDeposit))
	}

	reference := uuid.New().String()
	expiresAt := time.Now().Add(depositExpiry)

	code := pix.BRCode{
		PixKey:       s.cfg.MerchantKey,
		MerchantName: s.cfg.MerchantName,
		MerchantCity: s.cfg.MerchantCity,
		Amount:       amount,
		TxID:         reference,
	}

	txn := &models.Transaction{
		UserID:      userID,
		Type:        models.TransactionTypeDeposit,
		Method:      models.TransactionMethodPix,
		Amount:      amount,
		Status:      models.TransactionStatusPending,
		Reference:   reference,
		PixKey:      s.cfg.MerchantKey,
		QRCode:      code.Build(),
		ExpiresAt:   &expiresAt,
		Description: "PIX deposit",
	}

	charge, err := s.provider.CreateCharge(ctx, reference, amount, s.cfg.MerchantKey)
	if err != nil {
		return nil, apperrors.ExternalProvider("failed to create PIX charge", err)
	}
	txn.ProviderTxID = charge.ProviderTxID

	if err := s.db.Create(txn).Error; err != nil {
		return nil, fmt.Errorf("failed to persist deposit: %w", err)
	}

	log.Printf("[PIX] Deposit %s created for user %d (%s, expires %s)", reference, userID, amount, expiresAt.Format(time.RFC3339))
	return txn, nil
}

// CreatePixWithdrawal debits the gross amount up front (optimistic debit)
// and initiates the provider transfer. A failed sufficiency check persists
// nothing; a failed provider call fails the transaction, which reverses
// the debit.
func (s *PixService) CreatePixWithdrawal(ctx context.Context, userID uint, amount decimal.Decimal, pixKey, pixKeyType string) (*models.Transaction, error) {
	if amount.LessThan(s.cfg.MinWithdrawal) || amount.GreaterThan(s.cfg.MaxWithdrawal) {
		return nil, apperrors.Validation(fmt.Sprintf(
			"withdrawal amount must be between %s and %s", s.cfg.MinWithdrawal, s.cfg.MaxWithdrawal))
	}
	if pixKey == "" {
		return nil, apperrors.Validation("pix key is required")
	}

	reference := uuid.New().String()
	txn := &models.Transaction{
		UserID:      userID,
		Type:        models.TransactionTypeWithdrawal,
		Method:      models.TransactionMethodPix,
		Amount:      amount,
		Fee:         s.cfg.WithdrawalFee,
		Status:      models.TransactionStatusPending,
		Reference:   reference,
		PixKey:      pixKey,
		PixKeyType:  pixKeyType,
		Description: "PIX withdrawal",
	}

	err := s.ledger.WithUserLock(userID, func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			if _, err := s.ledger.DebitTx(tx, userID, amount); err != nil {
				return err
			}
			return tx.Create(txn).Error
		})
	})
	if err != nil {
		return nil, err
	}

	charge, err := s.provider.CreateTransfer(ctx, reference, txn.NetAmount, pixKey, pixKeyType)
	if err != nil {
		log.Printf("[PIX] Provider transfer for %s failed, reversing debit: %v", reference, err)
		if _, failErr := s.FailPixTransaction(reference, "provider transfer failed"); failErr != nil {
			log.Printf("[PIX] Failed to reverse withdrawal %s: %v", reference, failErr)
		}
		return nil, apperrors.ExternalProvider("failed to create PIX transfer", err)
	}

	txn.ProviderTxID = charge.ProviderTxID
	txn.Status = models.TransactionStatusProcessing
	if err := s.db.Model(txn).Updates(map[string]interface{}{
		"provider_tx_id": txn.ProviderTxID,
		"status":         txn.Status,
	}).Error; err != nil {
		return nil, err
	}

	log.Printf("[PIX] Withdrawal %s created for user %d (%s to %s)", reference, userID, amount, pixKey)
	return txn, nil
}

// openStatuses are the states a transaction can still transition from
var openStatuses = []models.TransactionStatus{
	models.TransactionStatusPending,
	models.TransactionStatusProcessing,
}

// ConfirmPixPayment moves a pending/processing transaction to completed.
// Deposits credit the net amount and pay the direct-referrer commission;
// withdrawal completion only finalizes status, the debit already happened.
// The transition is a guarded update: with the webhook handler and the
// provider poll running concurrently, only the caller that wins the
// pending->completed transition credits; the loser sees a no-op (already
// completed) or a validation error. Re-confirming a completed transaction
// is a no-op so redelivered webhooks stay harmless.
func (s *PixService) ConfirmPixPayment(reference string) (*models.Transaction, error) {
	txn, err := s.getByReference(reference)
	if err != nil {
		return nil, err
	}

	if txn.Status == models.TransactionStatusCompleted {
		return txn, nil
	}
	if txn.Status.IsTerminal() {
		return nil, apperrors.Validation(fmt.Sprintf("transaction %s is already %s", reference, txn.Status))
	}

	now := time.Now()
	won := false
	err = s.ledger.WithUserLock(txn.UserID, func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Transaction{}).
				Where("reference = ? AND status IN ?", reference, openStatuses).
				Updates(map[string]interface{}{
					"status":       models.TransactionStatusCompleted,
					"processed_at": &now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil
			}
			won = true

			if txn.Type == models.TransactionTypeDeposit {
				if _, err := s.ledger.CreditTx(tx, txn.UserID, txn.NetAmount); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if !won {
		// Lost the transition to a concurrent confirm or fail
		settled, err := s.getByReference(reference)
		if err != nil {
			return nil, err
		}
		if settled.Status == models.TransactionStatusCompleted {
			return settled, nil
		}
		return nil, apperrors.Validation(fmt.Sprintf("transaction %s is already %s", reference, settled.Status))
	}

	txn.Status = models.TransactionStatusCompleted
	txn.ProcessedAt = &now

	if txn.Type == models.TransactionTypeDeposit {
		if err := s.referral.PayDepositCommission(txn); err != nil {
			log.Printf("[PIX] Deposit commission for %s failed: %v", reference, err)
		}
	}

	log.Printf("[PIX] Transaction %s completed (%s %s)", reference, txn.Type, txn.NetAmount)
	return txn, nil
}

// FailPixTransaction moves a pending/processing transaction to failed with
// a reason. Failed withdrawals reverse the optimistic debit. The transition
// is guarded the same way as ConfirmPixPayment, so a concurrent confirm and
// fail of one transaction resolve to exactly one outcome.
func (s *PixService) FailPixTransaction(reference, reason string) (*models.Transaction, error) {
	txn, err := s.getByReference(reference)
	if err != nil {
		return nil, err
	}

	if txn.Status.IsTerminal() {
		return nil, apperrors.Validation(fmt.Sprintf("transaction %s is already %s", reference, txn.Status))
	}

	now := time.Now()
	won := false
	err = s.ledger.WithUserLock(txn.UserID, func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Transaction{}).
				Where("reference = ? AND status IN ?", reference, openStatuses).
				Updates(map[string]interface{}{
					"status":       models.TransactionStatusFailed,
					"fail_reason":  reason,
					"processed_at": &now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil
			}
			won = true

			if txn.Type == models.TransactionTypeWithdrawal {
				if _, err := s.ledger.CreditTx(tx, txn.UserID, txn.Amount); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if !won {
		settled, err := s.getByReference(reference)
		if err != nil {
			return nil, err
		}
		return nil, apperrors.Validation(fmt.Sprintf("transaction %s is already %s", reference, settled.Status))
	}

	txn.Status = models.TransactionStatusFailed
	txn.FailReason = reason
	txn.ProcessedAt = &now

	log.Printf("[PIX] Transaction %s failed: %s", reference, reason)
	return txn, nil
}

// CancelPixTransaction lets the owner cancel a still-pending deposit
func (s *PixService) CancelPixTransaction(reference string, callerID uint) (*models.Transaction, error) {
	txn, err := s.getByReference(reference)
	if err != nil {
		return nil, err
	}

	if txn.UserID != callerID {
		return nil, apperrors.Validation("transaction belongs to another user")
	}
	if txn.Type != models.TransactionTypeDeposit || txn.Status != models.TransactionStatusPending {
		return nil, apperrors.Validation(fmt.Sprintf("cannot cancel %s transaction with status %s", txn.Type, txn.Status))
	}

	now := time.Now()
	res := s.db.Model(&models.Transaction{}).
		Where("reference = ? AND status = ?", reference, models.TransactionStatusPending).
		Updates(map[string]interface{}{
			"status":       models.TransactionStatusCancelled,
			"processed_at": &now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		settled, err := s.getByReference(reference)
		if err != nil {
			return nil, err
		}
		return nil, apperrors.Validation(fmt.Sprintf("cannot cancel transaction with status %s", settled.Status))
	}
	txn.Status = models.TransactionStatusCancelled
	txn.ProcessedAt = &now

	log.Printf("[PIX] Transaction %s cancelled by user %d", reference, callerID)
	return txn, nil
}

// RunExpirySweep expires pending PIX deposits past their expiry timestamp
// and deletes expired rows older than the retention window.
func (s *PixService) RunExpirySweep(now time.Time) (expired int, deleted int64, err error) {
	var stale []models.Transaction
	err = s.db.Where("method = ? AND type = ? AND status = ? AND expires_at < ?",
		models.TransactionMethodPix, models.TransactionTypeDeposit, models.TransactionStatusPending, now).
		Find(&stale).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to scan expiring deposits: %w", err)
	}

	for i := range stale {
		txn := &stale[i]
		txn.Status = models.TransactionStatusExpired
		txn.ProcessedAt = &now
		if err := s.db.Model(txn).Updates(map[string]interface{}{
			"status":       txn.Status,
			"processed_at": txn.ProcessedAt,
		}).Error; err != nil {
			log.Printf("[PIX] Failed to expire transaction %s: %v", txn.Reference, err)
			continue
		}
		expired++
	}

	res := s.db.Where("status = ? AND processed_at < ?",
		models.TransactionStatusExpired, now.Add(-expiredRetention)).
		Delete(&models.Transaction{})
	if res.Error != nil {
		log.Printf("[PIX] Cleanup of expired transactions failed: %v", res.Error)
	} else {
		deleted = res.RowsAffected
	}

	return expired, deleted, nil
}

// CheckPendingWithProvider polls the provider for unresolved PIX
// transactions and applies the reported terminal outcomes.
func (s *PixService) CheckPendingWithProvider(ctx context.Context) {
	var open []models.Transaction
	err := s.db.Where("method = ? AND status IN ? AND provider_tx_id <> ''",
		models.TransactionMethodPix,
		[]models.TransactionStatus{models.TransactionStatusPending, models.TransactionStatusProcessing}).
		Find(&open).Error
	if err != nil {
		log.Printf("[PIX] Failed to scan open transactions: %v", err)
		return
	}

	for i := range open {
		txn := &open[i]
		charge, err := s.provider.GetStatus(ctx, txn.ProviderTxID)
		if err != nil {
			log.Printf("[PIX] Status check for %s failed: %v", txn.Reference, err)
			continue
		}

		switch charge.Status {
		case pix.ChargeStatusPaid:
			if _, err := s.ConfirmPixPayment(txn.Reference); err != nil {
				log.Printf("[PIX] Confirm for %s failed: %v", txn.Reference, err)
			}
		case pix.ChargeStatusFailed, pix.ChargeStatusCancelled:
			reason := charge.FailReason
			if reason == "" {
				reason = "rejected by provider"
			}
			if _, err := s.FailPixTransaction(txn.Reference, reason); err != nil {
				log.Printf("[PIX] Fail for %s failed: %v", txn.Reference, err)
			}
		}
	}
}

// GetUserTransactions lists a user's transactions with paging
func (s *PixService) GetUserTransactions(userID uint, limit, offset int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

func (s *PixService) getByReference(reference string) (*models.Transaction, error) {
	var txn models.Transaction
	if err := s.db.Where("reference = ?", reference).First(&txn).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound(fmt.Sprintf("transaction %s not found", reference))
		}
		return nil, err
	}
	return &txn, nil
}
