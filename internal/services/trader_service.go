package services

import (
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"investment-platform/internal/apperrors"
	"investment-platform/internal/models"
)

// TraderService manages the trader catalog
type TraderService struct {
	db *gorm.DB
}

func NewTraderService(db *gorm.DB) *TraderService {
	return &TraderService{db: db}
}

// ListActiveTraders returns the public catalog
func (s *TraderService) ListActiveTraders() ([]models.Trader, error) {
	var traders []models.Trader
	if err := s.db.Where("status = ?", models.TraderStatusActive).Order("id ASC").Find(&traders).Error; err != nil {
		return nil, err
	}
	return traders, nil
}

// GetTraderByID returns one catalog entry
func (s *TraderService) GetTraderByID(traderID uint) (*models.Trader, error) {
	var trader models.Trader
	if err := s.db.First(&trader, traderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("trader not found")
		}
		return nil, err
	}
	return &trader, nil
}

// CreateTrader adds a catalog entry (admin only)
func (s *TraderService) CreateTrader(trader *models.Trader) error {
	if trader.Name == "" {
		return apperrors.Validation("trader name is required")
	}
	if !trader.SuccessRate.IsPositive() {
		return apperrors.Validation("success rate must be positive")
	}
	if trader.PeriodDays <= 0 {
		return apperrors.Validation("period must be at least one day")
	}
	if !trader.MinAmount.IsPositive() || trader.MaxAmount.LessThan(trader.MinAmount) {
		return apperrors.Validation("invalid amount bounds")
	}

	if trader.Status == "" {
		trader.Status = models.TraderStatusActive
	}

	if err := s.db.Create(trader).Error; err != nil {
		return fmt.Errorf("failed to create trader: %w", err)
	}

	log.Printf("[Trader] Created trader %s (%s%% over %d days)", trader.Name, trader.SuccessRate, trader.PeriodDays)
	return nil
}

// UpdateTrader edits catalog fields. Open positions keep their snapshot.
func (s *TraderService) UpdateTrader(traderID uint, successRate, minAmount, maxAmount *decimal.Decimal, periodDays *int, status *models.TraderStatus) (*models.Trader, error) {
	trader, err := s.GetTraderByID(traderID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if successRate != nil {
		if !successRate.IsPositive() {
			return nil, apperrors.Validation("success rate must be positive")
		}
		updates["success_rate"] = *successRate
	}
	if minAmount != nil {
		updates["min_amount"] = *minAmount
	}
	if maxAmount != nil {
		updates["max_amount"] = *maxAmount
	}
	if periodDays != nil {
		if *periodDays <= 0 {
			return nil, apperrors.Validation("period must be at least one day")
		}
		updates["period_days"] = *periodDays
	}
	if status != nil {
		updates["status"] = *status
	}

	if len(updates) == 0 {
		return trader, nil
	}

	if err := s.db.Model(trader).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update trader: %w", err)
	}
	return trader, nil
}
