package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	CreditTxGrant    = "grant"
	CreditTxTransfer = "transfer"
	CreditTxPurchase = "purchase"
	CreditTxRefund   = "refund"
)

// CreditAccount holds the AGC balance of a license holder, keyed by email.
type CreditAccount struct {
	Email          string          `gorm:"type:varchar(200);primaryKey" json:"email"`
	Balance        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"balance"`
	LifetimeEarned decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"lifetime_earned"`
	LifetimeSpent  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"lifetime_spent"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// CreditTransaction is one movement of credits. Grants have no sender,
// purchases no recipient. ReferenceID is unique when set.
type CreditTransaction struct {
	ID          string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	FromEmail   string          `gorm:"type:varchar(200);index" json:"from_email,omitempty"`
	ToEmail     string          `gorm:"type:varchar(200);index" json:"to_email,omitempty"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Type        string          `gorm:"type:varchar(20);not null" json:"type"`
	Description string          `gorm:"type:varchar(255)" json:"description,omitempty"`
	ReferenceID *string         `gorm:"type:varchar(191);default:null;uniqueIndex:ux_credit_transactions_reference" json:"reference_id,omitempty"`
	CreatedAt   time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

func (t *CreditTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
