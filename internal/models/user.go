package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a platform account and its monetary ledger
type User struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	Name             string          `gorm:"size:100;not null" json:"name"`
	Email            string          `gorm:"uniqueIndex;not null" json:"email"`
	Password         string          `gorm:"size:255;not null" json:"-"`
	Balance          decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"balance"`
	TotalInvested    decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"total_invested"`
	TotalEarnings    decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"total_earnings"`
	ReferralEarnings decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"referral_earnings"`
	InvestmentCount  int             `gorm:"default:0" json:"investment_count"`
	ReferralCode     string          `gorm:"uniqueIndex;size:20;not null" json:"referral_code"`
	ReferredByID     *uint           `gorm:"index" json:"referred_by_id,omitempty"`
	ReferredBy       *User           `gorm:"foreignKey:ReferredByID" json:"referred_by,omitempty"`
	IsActive         bool            `gorm:"default:true" json:"is_active"`
	IsAdmin          bool            `gorm:"default:false" json:"is_admin"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}
