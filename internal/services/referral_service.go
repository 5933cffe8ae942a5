package services

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"investment-platform/internal/apperrors"
	"investment-platform/internal/config"
	"investment-platform/internal/models"
	"investment-platform/internal/utils"
)

// maxCommissionLevels caps the upline walk
const maxCommissionLevels = 3

// ReferralService disburses commissions up the referrer chain. The rate
// tables are configuration: investment profits pay up to three levels,
// deposits pay the direct referrer only.
type ReferralService struct {
	db     *gorm.DB
	ledger *LedgerService
	rates  config.ReferralConfig
}

func NewReferralService(db *gorm.DB, ledger *LedgerService, rates config.ReferralConfig) *ReferralService {
	return &ReferralService{
		db:     db,
		ledger: ledger,
		rates:  rates,
	}
}

// PayInvestmentCommissions disburses commissions for a completed investment.
// The base is realized profit (actual return minus principal); no profit
// means no commission at any level. Each level is an independent unit: a
// failed level is logged and never rolls back levels already paid.
func (s *ReferralService) PayInvestmentCommissions(inv *models.Investment) error {
	profit := inv.ActualReturn.Sub(inv.Amount)
	if !profit.IsPositive() {
		return nil
	}

	current := inv.UserID
	for level := 0; level < maxCommissionLevels && level < len(s.rates.InvestmentRates); level++ {
		var user models.User
		if err := s.db.Select("id", "referred_by_id").First(&user, current).Error; err != nil {
			return fmt.Errorf("failed to load user %d in upline: %w", current, err)
		}
		if user.ReferredByID == nil {
			break
		}
		referrerID := *user.ReferredByID

		rate := s.rates.InvestmentRates[level]
		amount := profit.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
		if amount.IsPositive() {
			desc := fmt.Sprintf("Level %d commission on investment %s", level+1, inv.OrderID)
			if err := s.payCommission(referrerID, inv.UserID, &inv.ID, amount, desc); err != nil {
				log.Printf("[Referral] Level %d commission for investment %d failed: %v", level+1, inv.ID, err)
			} else {
				log.Printf("[Referral] Paid %s to user %d (level %d) for investment %d", amount, referrerID, level+1, inv.ID)
			}
		}

		current = referrerID
	}

	return nil
}

// PayDepositCommission disburses the flat direct-referrer commission on a
// confirmed deposit. The base is the deposit's net amount.
func (s *ReferralService) PayDepositCommission(txn *models.Transaction) error {
	var user models.User
	if err := s.db.Select("id", "referred_by_id").First(&user, txn.UserID).Error; err != nil {
		return fmt.Errorf("failed to load depositor %d: %w", txn.UserID, err)
	}
	if user.ReferredByID == nil {
		return nil
	}

	amount := txn.NetAmount.Mul(s.rates.DepositRate).Div(decimal.NewFromInt(100)).Round(2)
	if !amount.IsPositive() {
		return nil
	}

	desc := fmt.Sprintf("Deposit commission on transaction %s", txn.Reference)
	if err := s.payCommission(*user.ReferredByID, txn.UserID, nil, amount, desc); err != nil {
		return err
	}

	log.Printf("[Referral] Paid %s deposit commission to user %d for transaction %d", amount, *user.ReferredByID, txn.ID)
	return nil
}

// payCommission writes the referral transaction and the ledger credit as
// one unit: both commit or neither does.
func (s *ReferralService) payCommission(payeeID, beneficiaryID uint, investmentID *uint, amount decimal.Decimal, description string) error {
	now := time.Now()
	return s.ledger.WithUserLock(payeeID, func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			commission := models.Transaction{
				UserID:         payeeID,
				Type:           models.TransactionTypeReferral,
				Method:         models.TransactionMethodSystem,
				Amount:         amount,
				Status:         models.TransactionStatusCompleted,
				Description:    description,
				Reference:      uuid.New().String(),
				InvestmentID:   investmentID,
				ReferredUserID: &beneficiaryID,
				ProcessedAt:    &now,
			}
			if err := tx.Create(&commission).Error; err != nil {
				return fmt.Errorf("failed to create commission transaction: %w", err)
			}

			if _, err := s.ledger.RecordReferralEarningsTx(tx, payeeID, amount); err != nil {
				return err
			}
			return nil
		})
	})
}

// EnsureReferralCode assigns a unique referral code to users that have none
func (s *ReferralService) EnsureReferralCode(userID uint) (string, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return "", err
	}
	if user.ReferralCode != "" {
		return user.ReferralCode, nil
	}

	for attempt := 0; attempt < 5; attempt++ {
		code, err := utils.GenerateReferralCode()
		if err != nil {
			return "", err
		}
		err = s.db.Model(&user).Update("referral_code", code).Error
		if err == nil {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to assign referral code for user %d", userID)
}

// ApplyReferralCode links the user to the code owner's downline
func (s *ReferralService) ApplyReferralCode(userID uint, code string) error {
	var referrer models.User
	if err := s.db.Where("referral_code = ?", code).First(&referrer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperrors.Validation("invalid referral code")
		}
		return err
	}

	if referrer.ID == userID {
		return apperrors.Validation("cannot use your own referral code")
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return err
	}
	if user.ReferredByID != nil {
		return apperrors.Validation("user already has a referrer")
	}

	// Walking the owner's upline must never reach the applying user,
	// otherwise the referrer forest would gain a cycle
	current := referrer.ReferredByID
	for depth := 0; current != nil && depth < 100; depth++ {
		if *current == userID {
			return apperrors.Validation("referral would create a cycle")
		}
		var up models.User
		if err := s.db.Select("id", "referred_by_id").First(&up, *current).Error; err != nil {
			break
		}
		current = up.ReferredByID
	}

	if err := s.db.Model(&user).Update("referred_by_id", referrer.ID).Error; err != nil {
		return fmt.Errorf("failed to apply referral code: %w", err)
	}

	log.Printf("[Referral] User %d referred by user %d (code %s)", userID, referrer.ID, code)
	return nil
}

// ReferralStats aggregates a user's referral activity
type ReferralStats struct {
	TotalReferrals   int64           `json:"total_referrals"`
	ReferralEarnings decimal.Decimal `json:"referral_earnings"`
	CommissionCount  int64           `json:"commission_count"`
}

// GetReferralStats returns referral statistics for a user
func (s *ReferralService) GetReferralStats(userID uint) (*ReferralStats, error) {
	stats := &ReferralStats{ReferralEarnings: decimal.Zero}

	if err := s.db.Model(&models.User{}).Where("referred_by_id = ?", userID).
		Count(&stats.TotalReferrals).Error; err != nil {
		return nil, err
	}

	if err := s.db.Model(&models.Transaction{}).
		Where("user_id = ? AND type = ? AND status = ?", userID, models.TransactionTypeReferral, models.TransactionStatusCompleted).
		Count(&stats.CommissionCount).Error; err != nil {
		return nil, err
	}

	row := s.db.Model(&models.Transaction{}).
		Where("user_id = ? AND type = ? AND status = ?", userID, models.TransactionTypeReferral, models.TransactionStatusCompleted).
		Select("COALESCE(SUM(amount), 0)").Row()
	if err := row.Scan(&stats.ReferralEarnings); err != nil {
		stats.ReferralEarnings = decimal.Zero
	}

	return stats, nil
}

// GetReferrals returns the users directly referred by a user
func (s *ReferralService) GetReferrals(userID uint) ([]models.User, error) {
	var referrals []models.User
	if err := s.db.Where("referred_by_id = ?", userID).Order("created_at DESC").Find(&referrals).Error; err != nil {
		return nil, err
	}
	return referrals, nil
}
