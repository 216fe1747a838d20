package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	LicenseStatusActive   = "active"
	LicenseStatusInactive = "inactive"
)

// License is a product license issued on a successful order.
type License struct {
	ID             string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	LicenseKey     string     `gorm:"type:varchar(40);not null;uniqueIndex:ux_licenses_key" json:"license_key"`
	Email          string     `gorm:"type:varchar(200);not null;index" json:"email"`
	Plan           string     `gorm:"type:varchar(20);not null;default:'pro'" json:"plan"`
	Status         string     `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	Provider       string     `gorm:"type:varchar(20)" json:"provider,omitempty"`
	OrderID        *string    `gorm:"type:varchar(191);default:null;uniqueIndex:ux_licenses_order" json:"order_id,omitempty"`
	SubscriptionID string     `gorm:"type:varchar(191);index" json:"subscription_id,omitempty"`
	ActivatedAt    *time.Time `gorm:"type:timestamp;default:null" json:"activated_at,omitempty"`
	ExpiresAt      *time.Time `gorm:"type:timestamp;default:null" json:"expires_at"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (l *License) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// IsExpired reports whether the license has an expiry in the past. Lifetime
// licenses never expire.
func (l *License) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}
