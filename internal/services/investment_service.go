package services

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"investment-platform/internal/apperrors"
	"investment-platform/internal/models"
)

// ReturnRateSource supplies the daily-return percentage applied to active
// investments. The production source is a market simulation placeholder;
// tests use FixedRateSource so sweeps are deterministic.
type ReturnRateSource interface {
	DailyRatePercent() decimal.Decimal
}

// SimulatedRateSource draws a daily rate uniformly in [1%, 5%)
type SimulatedRateSource struct {
	rng *rand.Rand
}

func NewSimulatedRateSource() *SimulatedRateSource {
	return &SimulatedRateSource{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *SimulatedRateSource) DailyRatePercent() decimal.Decimal {
	return decimal.NewFromFloat(1 + s.rng.Float64()*4).Round(2)
}

// FixedRateSource always returns the same rate
type FixedRateSource struct {
	Rate decimal.Decimal
}

func (s FixedRateSource) DailyRatePercent() decimal.Decimal {
	return s.Rate
}

// InvestmentService manages investment positions and the settlement sweep
type InvestmentService struct {
	db       *gorm.DB
	ledger   *LedgerService
	referral *ReferralService
	rates    ReturnRateSource
}

func NewInvestmentService(db *gorm.DB, ledger *LedgerService, referral *ReferralService, rates ReturnRateSource) *InvestmentService {
	return &InvestmentService{
		db:       db,
		ledger:   ledger,
		referral: referral,
		rates:    rates,
	}
}

// CreateInvestment opens a pending position, snapshotting the trader
// profile so later catalog changes never affect it.
func (s *InvestmentService) CreateInvestment(userID, traderID uint, amount decimal.Decimal) (*models.Investment, error) {
	var trader models.Trader
	if err := s.db.Where("id = ? AND status = ?", traderID, models.TraderStatusActive).First(&trader).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("trader not found or inactive")
		}
		return nil, err
	}

	if amount.LessThan(trader.MinAmount) || amount.GreaterThan(trader.MaxAmount) {
		return nil, apperrors.Validation(fmt.Sprintf(
			"amount for %s must be between %s and %s", trader.Name, trader.MinAmount, trader.MaxAmount))
	}

	inv := &models.Investment{
		UserID:         userID,
		TraderID:       trader.ID,
		TraderName:     trader.Name,
		SuccessRate:    trader.SuccessRate,
		PeriodDays:     trader.PeriodDays,
		MinAmount:      trader.MinAmount,
		MaxAmount:      trader.MaxAmount,
		Amount:         amount,
		ExpectedReturn: amount.Mul(trader.SuccessRate).Div(decimal.NewFromInt(100)).Round(2),
		ActualReturn:   decimal.Zero,
		Status:         models.InvestmentStatusPending,
		OrderID:        uuid.New().String(),
	}

	if err := s.db.Create(inv).Error; err != nil {
		return nil, fmt.Errorf("failed to create investment: %w", err)
	}

	log.Printf("[Investment] Created pending investment %s for user %d (%s on %s)", inv.OrderID, userID, amount, trader.Name)
	return inv, nil
}

// ActivateInvestment debits the principal and stamps the position dates.
// StartDate and EndDate are set here and never recomputed.
func (s *InvestmentService) ActivateInvestment(investmentID uint) (*models.Investment, error) {
	var inv models.Investment
	if err := s.db.First(&inv, investmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("investment not found")
		}
		return nil, err
	}

	if inv.Status != models.InvestmentStatusPending {
		return nil, apperrors.Validation(fmt.Sprintf("cannot activate investment with status %s", inv.Status))
	}

	now := time.Now()
	start := now
	end := start.AddDate(0, 0, inv.PeriodDays)

	err := s.ledger.WithUserLock(inv.UserID, func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			if _, err := s.ledger.RecordInvestmentTx(tx, inv.UserID, inv.Amount); err != nil {
				return err
			}

			principal := models.Transaction{
				UserID:       inv.UserID,
				Type:         models.TransactionTypeInvestment,
				Method:       models.TransactionMethodSystem,
				Amount:       inv.Amount,
				Status:       models.TransactionStatusCompleted,
				Description:  fmt.Sprintf("Investment in %s", inv.TraderName),
				Reference:    uuid.New().String(),
				InvestmentID: &inv.ID,
				ProcessedAt:  &now,
			}
			if err := tx.Create(&principal).Error; err != nil {
				return fmt.Errorf("failed to record principal transaction: %w", err)
			}

			inv.Status = models.InvestmentStatusActive
			inv.StartDate = &start
			inv.EndDate = &end
			return tx.Model(&inv).Updates(map[string]interface{}{
				"status":     inv.Status,
				"start_date": inv.StartDate,
				"end_date":   inv.EndDate,
			}).Error
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Investment] Activated investment %s (ends %s)", inv.OrderID, end.Format("2006-01-02"))
	return &inv, nil
}

// CancelInvestment cancels a pending or active position. Cancelling an
// active position refunds the principal.
func (s *InvestmentService) CancelInvestment(investmentID, callerID uint) (*models.Investment, error) {
	var inv models.Investment
	if err := s.db.First(&inv, investmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("investment not found")
		}
		return nil, err
	}

	if inv.UserID != callerID {
		return nil, apperrors.Validation("investment belongs to another user")
	}
	if inv.Status != models.InvestmentStatusPending && inv.Status != models.InvestmentStatusActive {
		return nil, apperrors.Validation(fmt.Sprintf("cannot cancel investment with status %s", inv.Status))
	}

	wasActive := inv.Status == models.InvestmentStatusActive
	now := time.Now()

	err := s.ledger.WithUserLock(inv.UserID, func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			if wasActive {
				if _, err := s.ledger.CreditTx(tx, inv.UserID, inv.Amount); err != nil {
					return err
				}
				refund := models.Transaction{
					UserID:       inv.UserID,
					Type:         models.TransactionTypeInvestment,
					Method:       models.TransactionMethodSystem,
					Amount:       inv.Amount,
					Status:       models.TransactionStatusCompleted,
					Description:  fmt.Sprintf("Refund for cancelled investment %s", inv.OrderID),
					Reference:    uuid.New().String(),
					InvestmentID: &inv.ID,
					ProcessedAt:  &now,
				}
				if err := tx.Create(&refund).Error; err != nil {
					return fmt.Errorf("failed to record refund transaction: %w", err)
				}
			}

			inv.Status = models.InvestmentStatusCancelled
			return tx.Model(&inv).Update("status", inv.Status).Error
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Investment] Cancelled investment %s (refunded=%v)", inv.OrderID, wasActive)
	return &inv, nil
}

// AddDailyReturn appends one synthetic daily return for the given calendar
// date. At most one return per investment per day; a duplicate date is a
// no-op.
func (s *InvestmentService) AddDailyReturn(inv *models.Investment, date time.Time, ratePercent decimal.Decimal) error {
	day := date.Format("2006-01-02")

	var existing int64
	if err := s.db.Model(&models.DailyReturn{}).
		Where("investment_id = ? AND date = ?", inv.ID, day).
		Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	amount := inv.Amount.Mul(ratePercent).Div(decimal.NewFromInt(100)).Round(2)
	if !amount.IsPositive() {
		return nil
	}

	now := time.Now()
	err := s.ledger.WithUserLock(inv.UserID, func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			entry := models.DailyReturn{
				InvestmentID: inv.ID,
				Date:         day,
				Amount:       amount,
				Percentage:   ratePercent,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return fmt.Errorf("failed to append daily return: %w", err)
			}

			inv.ActualReturn = inv.ActualReturn.Add(amount)
			if err := tx.Model(inv).Update("actual_return", inv.ActualReturn).Error; err != nil {
				return err
			}

			if _, err := s.ledger.RecordEarningsTx(tx, inv.UserID, amount); err != nil {
				return err
			}

			ret := models.Transaction{
				UserID:       inv.UserID,
				Type:         models.TransactionTypeReturn,
				Method:       models.TransactionMethodSystem,
				Amount:       amount,
				Status:       models.TransactionStatusCompleted,
				Description:  fmt.Sprintf("Daily return %s%% on %s", ratePercent, inv.TraderName),
				Reference:    uuid.New().String(),
				InvestmentID: &inv.ID,
				ProcessedAt:  &now,
			}
			return tx.Create(&ret).Error
		})
	})
	if err != nil {
		return err
	}

	log.Printf("[Investment] Daily return %s (%s%%) applied to investment %s", amount, ratePercent, inv.OrderID)
	return nil
}

// CompleteInvestment finishes an active position and disburses referral
// commissions on the realized profit.
func (s *InvestmentService) CompleteInvestment(investmentID uint) (*models.Investment, error) {
	var inv models.Investment
	if err := s.db.First(&inv, investmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("investment not found")
		}
		return nil, err
	}

	if inv.Status != models.InvestmentStatusActive {
		return nil, apperrors.Validation(fmt.Sprintf("cannot complete investment with status %s", inv.Status))
	}

	now := time.Now()
	inv.Status = models.InvestmentStatusCompleted
	inv.Progress = 100
	inv.CompletedAt = &now

	err := s.db.Model(&inv).Updates(map[string]interface{}{
		"status":       inv.Status,
		"progress":     inv.Progress,
		"completed_at": inv.CompletedAt,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to complete investment: %w", err)
	}

	if err := s.referral.PayInvestmentCommissions(&inv); err != nil {
		log.Printf("[Investment] Commission disbursement for investment %d failed: %v", inv.ID, err)
	}

	log.Printf("[Investment] Completed investment %s (actual return %s)", inv.OrderID, inv.ActualReturn)
	return &inv, nil
}

// RunSettlementSweep advances every active investment: progress update, at
// most one synthetic daily return, and completion handoff. Errors are
// per-item; one bad investment never blocks the rest of the batch.
func (s *InvestmentService) RunSettlementSweep(now time.Time) (int, error) {
	var investments []models.Investment
	if err := s.db.Where("status = ?", models.InvestmentStatusActive).Find(&investments).Error; err != nil {
		return 0, fmt.Errorf("failed to scan active investments: %w", err)
	}

	settled := 0
	for i := range investments {
		if err := s.settleOne(&investments[i], now); err != nil {
			log.Printf("[Settlement] Investment %d: %v", investments[i].ID, err)
			continue
		}
		settled++
	}
	return settled, nil
}

func (s *InvestmentService) settleOne(inv *models.Investment, now time.Time) error {
	if inv.StartDate == nil || inv.EndDate == nil {
		return fmt.Errorf("active investment %d has no dates", inv.ID)
	}

	total := inv.EndDate.Sub(*inv.StartDate)
	if total <= 0 {
		return fmt.Errorf("active investment %d has a non-positive duration", inv.ID)
	}

	elapsed := now.Sub(*inv.StartDate)
	progress := int(math.Round(elapsed.Seconds() / total.Seconds() * 100))
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}

	// Progress is monotone while active
	if progress > inv.Progress {
		if err := s.db.Model(inv).Update("progress", progress).Error; err != nil {
			return err
		}
		inv.Progress = progress
	}

	if progress > 0 && progress < 100 {
		if err := s.AddDailyReturn(inv, now, s.rates.DailyRatePercent()); err != nil {
			return err
		}
	}

	if progress >= 100 {
		if _, err := s.CompleteInvestment(inv.ID); err != nil {
			return err
		}
	}

	return nil
}

// GetUserInvestments lists a user's positions, newest first
func (s *InvestmentService) GetUserInvestments(userID uint) ([]models.Investment, error) {
	var investments []models.Investment
	if err := s.db.Where("user_id = ?", userID).
		Preload("DailyReturns").
		Order("created_at DESC").
		Find(&investments).Error; err != nil {
		return nil, err
	}
	return investments, nil
}

// GetInvestmentByID returns one position, scoped to its owner
func (s *InvestmentService) GetInvestmentByID(investmentID, userID uint) (*models.Investment, error) {
	var inv models.Investment
	if err := s.db.Where("id = ? AND user_id = ?", investmentID, userID).
		Preload("DailyReturns").
		First(&inv).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("investment not found")
		}
		return nil, err
	}
	return &inv, nil
}
