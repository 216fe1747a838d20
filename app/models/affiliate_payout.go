package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	PayoutStatusPending    = "pending"
	PayoutStatusProcessing = "processing"
	PayoutStatusPaid       = "paid"
	PayoutStatusRejected   = "rejected"
)

// AffiliatePayout is a withdrawal request. OpenGuard holds the affiliate id while
// the request is open and NULL afterwards; its unique index allows a single open
// request per affiliate.
type AffiliatePayout struct {
	ID           string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	AffiliateID  string          `gorm:"type:varchar(36);not null;index:idx_affiliate_payouts_affiliate_created,priority:1" json:"affiliate_id"`
	Amount       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"amount"`
	PaidAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"paid_amount"`
	Method       string          `gorm:"type:varchar(20);not null" json:"method"`
	PaymentEmail string          `gorm:"type:varchar(200)" json:"payment_email"`
	Status       string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Note         string          `gorm:"type:varchar(500)" json:"note,omitempty"`
	OpenGuard    *string         `gorm:"type:varchar(36);default:null;uniqueIndex:ux_affiliate_payouts_open_guard" json:"-"`
	SettledAt    *time.Time      `gorm:"type:timestamp;default:null" json:"settled_at,omitempty"`
	CreatedAt    time.Time       `gorm:"autoCreateTime;index:idx_affiliate_payouts_affiliate_created,priority:2" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *AffiliatePayout) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = PayoutStatusPending
	}
	if p.IsOpen() && p.OpenGuard == nil {
		guard := p.AffiliateID
		p.OpenGuard = &guard
	}
	return nil
}

func (p *AffiliatePayout) IsOpen() bool {
	return IsOpenPayoutStatus(p.Status)
}

func IsOpenPayoutStatus(status string) bool {
	return status == PayoutStatusPending || status == PayoutStatusProcessing
}
