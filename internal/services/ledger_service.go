package services

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"investment-platform/internal/apperrors"
	"investment-platform/internal/models"
)

// LedgerService owns every balance mutation. Mutations against the same
// user are serialized through a per-user lock so two concurrent debits can
// never both pass the sufficiency check on a stale balance. The lock must
// be held across the whole database transaction, not just the read and
// write: under READ COMMITTED a second goroutine that grabs the lock after
// the first returns but before its transaction commits would still read the
// stale balance. WithUserLock is that boundary; the *Tx methods assume the
// caller holds it.
type LedgerService struct {
	db        *gorm.DB
	mu        sync.Mutex
	userLocks map[uint]*sync.Mutex
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{
		db:        db,
		userLocks: make(map[uint]*sync.Mutex),
	}
}

// userLock returns the lock serializing mutations for one user
func (s *LedgerService) userLock(userID uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[userID] = lock
	}
	return lock
}

// WithUserLock runs fn while holding the user's mutation lock. Every
// transaction that touches a user's balance runs inside this boundary so
// the lock outlives the commit.
func (s *LedgerService) WithUserLock(userID uint, fn func() error) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()
	return fn()
}

// Credit increases the user's balance. Amount must be positive.
func (s *LedgerService) Credit(userID uint, amount decimal.Decimal) (*models.User, error) {
	var user *models.User
	err := s.WithUserLock(userID, func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			var err error
			user, err = s.CreditTx(tx, userID, amount)
			return err
		})
	})
	return user, err
}

// CreditTx is Credit running inside the caller's database transaction,
// so a balance change and its transaction record commit as one unit.
// The caller must hold the user's lock via WithUserLock.
func (s *LedgerService) CreditTx(tx *gorm.DB, userID uint, amount decimal.Decimal) (*models.User, error) {
	if !amount.IsPositive() {
		return nil, apperrors.Validation("credit amount must be positive")
	}

	user, err := s.getUser(tx, userID)
	if err != nil {
		return nil, err
	}

	user.Balance = user.Balance.Add(amount)
	if err := tx.Model(user).Update("balance", user.Balance).Error; err != nil {
		return nil, fmt.Errorf("failed to credit user %d: %w", userID, err)
	}
	return user, nil
}

// Debit decreases the user's balance, rejecting debits that exceed it.
func (s *LedgerService) Debit(userID uint, amount decimal.Decimal) (*models.User, error) {
	var user *models.User
	err := s.WithUserLock(userID, func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			var err error
			user, err = s.DebitTx(tx, userID, amount)
			return err
		})
	})
	return user, err
}

// DebitTx is Debit running inside the caller's database transaction.
// The caller must hold the user's lock via WithUserLock.
func (s *LedgerService) DebitTx(tx *gorm.DB, userID uint, amount decimal.Decimal) (*models.User, error) {
	if !amount.IsPositive() {
		return nil, apperrors.Validation("debit amount must be positive")
	}

	user, err := s.getUser(tx, userID)
	if err != nil {
		return nil, err
	}

	if amount.GreaterThan(user.Balance) {
		return nil, apperrors.InsufficientFunds(
			fmt.Sprintf("balance %s is less than debit amount %s", user.Balance, amount))
	}

	user.Balance = user.Balance.Sub(amount)
	if err := tx.Model(user).Update("balance", user.Balance).Error; err != nil {
		return nil, fmt.Errorf("failed to debit user %d: %w", userID, err)
	}
	return user, nil
}

// RecordInvestmentTx debits the principal and bumps the investment
// accumulators. The caller must hold the user's lock via WithUserLock.
func (s *LedgerService) RecordInvestmentTx(tx *gorm.DB, userID uint, amount decimal.Decimal) (*models.User, error) {
	if !amount.IsPositive() {
		return nil, apperrors.Validation("investment amount must be positive")
	}

	user, err := s.getUser(tx, userID)
	if err != nil {
		return nil, err
	}

	if amount.GreaterThan(user.Balance) {
		return nil, apperrors.InsufficientFunds(
			fmt.Sprintf("balance %s is less than investment amount %s", user.Balance, amount))
	}

	user.Balance = user.Balance.Sub(amount)
	user.TotalInvested = user.TotalInvested.Add(amount)
	user.InvestmentCount++

	err = tx.Model(user).Updates(map[string]interface{}{
		"balance":          user.Balance,
		"total_invested":   user.TotalInvested,
		"investment_count": user.InvestmentCount,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to record investment for user %d: %w", userID, err)
	}
	return user, nil
}

// RecordEarningsTx credits the balance and bumps total earnings.
// The caller must hold the user's lock via WithUserLock.
func (s *LedgerService) RecordEarningsTx(tx *gorm.DB, userID uint, amount decimal.Decimal) (*models.User, error) {
	if !amount.IsPositive() {
		return nil, apperrors.Validation("earnings amount must be positive")
	}

	user, err := s.getUser(tx, userID)
	if err != nil {
		return nil, err
	}

	user.Balance = user.Balance.Add(amount)
	user.TotalEarnings = user.TotalEarnings.Add(amount)

	err = tx.Model(user).Updates(map[string]interface{}{
		"balance":        user.Balance,
		"total_earnings": user.TotalEarnings,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to record earnings for user %d: %w", userID, err)
	}
	return user, nil
}

// RecordReferralEarningsTx credits the balance and bumps referral earnings.
// The caller must hold the user's lock via WithUserLock.
func (s *LedgerService) RecordReferralEarningsTx(tx *gorm.DB, userID uint, amount decimal.Decimal) (*models.User, error) {
	if !amount.IsPositive() {
		return nil, apperrors.Validation("referral earnings amount must be positive")
	}

	user, err := s.getUser(tx, userID)
	if err != nil {
		return nil, err
	}

	user.Balance = user.Balance.Add(amount)
	user.ReferralEarnings = user.ReferralEarnings.Add(amount)

	err = tx.Model(user).Updates(map[string]interface{}{
		"balance":           user.Balance,
		"referral_earnings": user.ReferralEarnings,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to record referral earnings for user %d: %w", userID, err)
	}
	return user, nil
}

func (s *LedgerService) getUser(tx *gorm.DB, userID uint) (*models.User, error) {
	var user models.User
	if err := tx.First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound(fmt.Sprintf("user %d not found", userID))
		}
		return nil, err
	}
	return &user, nil
}
