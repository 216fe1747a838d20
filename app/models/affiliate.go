package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	PaymentMethodPayPal = "paypal"
	PaymentMethodBank   = "bank"
	PaymentMethodWise   = "wise"
	PaymentMethodCrypto = "crypto"

	BadgeBronze   = "Bronze"
	BadgeSilver   = "Silver"
	BadgeGold     = "Gold"
	BadgePlatinum = "Platinum"
	BadgeDiamond  = "Diamond"
)

// Affiliate is a registered referrer. Balance fields are derived from the
// conversion history and only written by the ledger.
type Affiliate struct {
	ID               string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID           *string         `gorm:"type:varchar(64);default:null;index" json:"user_id,omitempty"`
	Email            string          `gorm:"type:varchar(200);not null;uniqueIndex:ux_affiliates_email" json:"email" validate:"required,email,max=200"`
	Name             string          `gorm:"type:varchar(150)" json:"name" validate:"max=150"`
	ReferralCode     string          `gorm:"type:varchar(16);not null;uniqueIndex:ux_affiliates_referral_code" json:"referral_code" validate:"required,len=8,alphanum"`
	PaymentMethod    string          `gorm:"type:varchar(20);not null;default:'paypal'" json:"payment_method" validate:"oneof=paypal bank wise crypto"`
	PaymentEmail     string          `gorm:"type:varchar(200)" json:"payment_email" validate:"omitempty,email,max=200"`
	IsActive         bool            `gorm:"not null;default:true;index" json:"is_active"`
	TotalClicks      int64           `gorm:"not null;default:0" json:"total_clicks"`
	TotalConversions int64           `gorm:"not null;default:0" json:"total_conversions"`
	TotalEarnings    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_earnings"`
	PendingPayout    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"pending_payout"`
	LifetimeEarnings decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"lifetime_earnings"`
	Badge            string          `gorm:"type:varchar(20);not null;default:'Bronze'" json:"badge"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a *Affiliate) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.ReferralCode = strings.ToUpper(strings.TrimSpace(a.ReferralCode))
	return nil
}

func (a *Affiliate) Validate() error {
	v := validator.New()

	return v.Struct(a)
}

// DisplayName falls back to a short id based label for affiliates without a name.
func (a *Affiliate) DisplayName() string {
	if strings.TrimSpace(a.Name) != "" {
		return a.Name
	}
	short := a.ID
	if len(short) > 4 {
		short = short[:4]
	}
	return "Affiliate " + short
}

// IsValidPaymentMethod reports whether m is a supported payout method.
func IsValidPaymentMethod(m string) bool {
	switch m {
	case PaymentMethodPayPal, PaymentMethodBank, PaymentMethodWise, PaymentMethodCrypto:
		return true
	}
	return false
}
