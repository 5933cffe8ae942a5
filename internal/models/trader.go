package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TraderStatus string

const (
	TraderStatusActive   TraderStatus = "active"
	TraderStatusInactive TraderStatus = "inactive"
)

// Trader is a catalog profile describing a simulated investment product.
// Open positions snapshot these fields at creation, so catalog edits never
// affect running investments.
type Trader struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	SuccessRate decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"success_rate"`
	PeriodDays  int             `gorm:"not null" json:"period_days"`
	MinAmount   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"min_amount"`
	MaxAmount   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"max_amount"`
	Status      TraderStatus    `gorm:"size:20;default:active;index" json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (Trader) TableName() string {
	return "traders"
}
