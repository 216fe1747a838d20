package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"

	BrowserUnknown = "unknown"
)

// AffiliateClick is one tracked visit. Rows are never updated.
type AffiliateClick struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	AffiliateID  string    `gorm:"type:varchar(36);not null;index:idx_affiliate_clicks_affiliate_created,priority:1" json:"affiliate_id"`
	ReferralCode string    `gorm:"type:varchar(16);not null" json:"referral_code"`
	Source       string    `gorm:"type:varchar(100)" json:"source,omitempty"`
	Medium       string    `gorm:"type:varchar(100)" json:"medium,omitempty"`
	Campaign     string    `gorm:"type:varchar(100)" json:"campaign,omitempty"`
	LandingPage  string    `gorm:"type:varchar(500);not null;default:'/'" json:"landing_page"`
	IPHash       string    `gorm:"type:varchar(16);not null" json:"ip_hash"`
	UserAgent    string    `gorm:"type:varchar(500)" json:"user_agent"`
	Device       string    `gorm:"type:varchar(20);not null" json:"device"`
	Browser      string    `gorm:"type:varchar(50);not null" json:"browser"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index:idx_affiliate_clicks_affiliate_created,priority:2" json:"created_at"`
}

func (c *AffiliateClick) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
