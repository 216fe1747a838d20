package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	ConversionStatusPending  = "pending"
	ConversionStatusPaid     = "paid"
	ConversionStatusRefunded = "refunded"
)

// AffiliateConversion is one commissionable sale or renewal. OrderID is the
// idempotency key for webhook replays.
type AffiliateConversion struct {
	ID               string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	AffiliateID      string          `gorm:"type:varchar(36);not null;index:idx_affiliate_conversions_affiliate_status,priority:1" json:"affiliate_id"`
	OrderID          string          `gorm:"type:varchar(191);not null;uniqueIndex:ux_affiliate_conversions_order" json:"order_id"`
	ProductName      string          `gorm:"type:varchar(150)" json:"product_name"`
	ProductPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"product_price"`
	CommissionRate   decimal.Decimal `gorm:"type:decimal(5,4);not null;default:0" json:"commission_rate"`
	CommissionAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"commission_amount"`
	Status           string          `gorm:"type:varchar(20);not null;default:'pending';index:idx_affiliate_conversions_affiliate_status,priority:2" json:"status"`
	IsRecurring      bool            `gorm:"not null;default:false" json:"is_recurring"`
	CustomerEmail    string          `gorm:"type:varchar(200)" json:"customer_email,omitempty"`
	Provider         string          `gorm:"type:varchar(20)" json:"provider,omitempty"`
	ProviderRef      string          `gorm:"type:varchar(191);index" json:"provider_ref,omitempty"`
	PayoutID         *string         `gorm:"type:varchar(36);default:null;index" json:"payout_id,omitempty"`
	CreatedAt        time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *AffiliateConversion) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = ConversionStatusPending
	}
	return nil
}
