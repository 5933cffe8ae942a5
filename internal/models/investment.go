package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvestmentStatus string

const (
	InvestmentStatusPending   InvestmentStatus = "pending"
	InvestmentStatusActive    InvestmentStatus = "active"
	InvestmentStatusCompleted InvestmentStatus = "completed"
	InvestmentStatusCancelled InvestmentStatus = "cancelled"
)

// Investment is a position tied to one user and a snapshotted trader profile.
// StartDate and EndDate are stamped exactly once, at the pending->active
// transition; EndDate = StartDate + PeriodDays.
type Investment struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;index" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	// Trader profile snapshot, copied at creation
	TraderID    uint            `gorm:"not null;index" json:"trader_id"`
	TraderName  string          `gorm:"size:100;not null" json:"trader_name"`
	SuccessRate decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"success_rate"`
	PeriodDays  int             `gorm:"not null" json:"period_days"`
	MinAmount   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"min_amount"`
	MaxAmount   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"max_amount"`

	Amount         decimal.Decimal  `gorm:"type:decimal(15,2);not null" json:"amount"`
	ExpectedReturn decimal.Decimal  `gorm:"type:decimal(15,2);not null" json:"expected_return"`
	ActualReturn   decimal.Decimal  `gorm:"type:decimal(15,2);default:0" json:"actual_return"`
	Status         InvestmentStatus `gorm:"size:20;default:pending;index" json:"status"`
	Progress       int              `gorm:"default:0" json:"progress"`
	StartDate      *time.Time       `json:"start_date,omitempty"`
	EndDate        *time.Time       `json:"end_date,omitempty"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
	OrderID        string           `gorm:"type:varchar(64);not null;uniqueIndex" json:"order_id"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`

	DailyReturns []DailyReturn `gorm:"foreignKey:InvestmentID" json:"daily_returns,omitempty"`
}

func (Investment) TableName() string {
	return "investments"
}

// DailyReturn is one entry of an investment's append-only return log.
// The unique (investment_id, date) index enforces at most one synthetic
// return per investment per calendar day.
type DailyReturn struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	InvestmentID uint            `gorm:"not null;uniqueIndex:idx_investment_date" json:"investment_id"`
	Date         string          `gorm:"size:10;not null;uniqueIndex:idx_investment_date" json:"date"` // YYYY-MM-DD
	Amount       decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Percentage   decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"percentage"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (DailyReturn) TableName() string {
	return "daily_returns"
}
