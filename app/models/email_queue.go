package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	EmailTemplateWelcome       = "welcome"
	EmailTemplateOnboardingD1  = "onboarding_day1"
	EmailTemplateOnboardingD3  = "onboarding_day3"
	EmailTemplateOnboardingD7  = "onboarding_day7"
	EmailTemplateLicenseKey    = "license_key"
	EmailTemplatePayoutRequest = "payout_requested"
)

// EmailQueueItem is a scheduled transactional email.
type EmailQueueItem struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	Email     string            `gorm:"type:varchar(200);not null" json:"email"`
	Template  string            `gorm:"type:varchar(50);not null" json:"template"`
	Data      datatypes.JSONMap `json:"data"`
	SendAt    time.Time         `gorm:"not null;index:idx_email_queue_due,priority:2" json:"send_at"`
	Sent      bool              `gorm:"not null;default:false;index:idx_email_queue_due,priority:1" json:"sent"`
	SentAt    *time.Time        `gorm:"type:timestamp;default:null" json:"sent_at,omitempty"`
	MessageID string            `gorm:"type:varchar(191)" json:"message_id,omitempty"`
	Error     string            `gorm:"type:text" json:"error,omitempty"`
	CreatedAt time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

func (EmailQueueItem) TableName() string {
	return "email_queue"
}
