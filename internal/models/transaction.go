package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeInvestment TransactionType = "investment"
	TransactionTypeReturn     TransactionType = "return"
	TransactionTypeReferral   TransactionType = "referral"
	TransactionTypeBonus      TransactionType = "bonus"
)

type TransactionMethod string

const (
	TransactionMethodPix          TransactionMethod = "pix"
	TransactionMethodBankTransfer TransactionMethod = "bank_transfer"
	TransactionMethodCreditCard   TransactionMethod = "credit_card"
	TransactionMethodSystem       TransactionMethod = "system"
)

type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusFailed     TransactionStatus = "failed"
	TransactionStatusCancelled  TransactionStatus = "cancelled"
	TransactionStatusExpired    TransactionStatus = "expired"
)

// IsTerminal reports whether the status admits no further transition.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusCompleted, TransactionStatusFailed,
		TransactionStatusCancelled, TransactionStatusExpired:
		return true
	}
	return false
}

// Transaction records one movement of funds. NetAmount is kept consistent
// with Amount - Fee by the BeforeSave hook.
type Transaction struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	UserID    uint              `gorm:"not null;index" json:"user_id"`
	User      User              `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Type      TransactionType   `gorm:"size:20;not null;index" json:"type"`
	Method    TransactionMethod `gorm:"size:20;not null" json:"method"`
	Amount    decimal.Decimal   `gorm:"type:decimal(15,2);not null" json:"amount"`
	Fee       decimal.Decimal   `gorm:"type:decimal(15,2);default:0" json:"fee"`
	NetAmount decimal.Decimal   `gorm:"type:decimal(15,2);not null" json:"net_amount"`
	Status    TransactionStatus `gorm:"size:20;default:pending;index" json:"status"`

	Description string `gorm:"type:text" json:"description"`
	Reference   string `gorm:"type:varchar(64);uniqueIndex;not null" json:"reference"`
	FailReason  string `gorm:"type:text" json:"fail_reason,omitempty"`

	// PIX sub-record, present on pix-method transactions
	PixKey       string     `gorm:"size:140" json:"pix_key,omitempty"`
	PixKeyType   string     `gorm:"size:20" json:"pix_key_type,omitempty"`
	QRCode       string     `gorm:"type:text" json:"qr_code,omitempty"`
	ProviderTxID string     `gorm:"size:100;index" json:"provider_tx_id,omitempty"`
	ExpiresAt    *time.Time `gorm:"index" json:"expires_at,omitempty"`

	InvestmentID   *uint `gorm:"index" json:"investment_id,omitempty"`
	ReferredUserID *uint `gorm:"index" json:"referred_user_id,omitempty"`

	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// BeforeSave recomputes NetAmount from Amount and Fee on every save.
func (t *Transaction) BeforeSave(tx *gorm.DB) error {
	t.NetAmount = t.Amount.Sub(t.Fee)
	return nil
}
