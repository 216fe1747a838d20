package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/AffiliateFox/app/models"
)

// LicenseRepository defines the interface for license-related operations
type LicenseRepository interface {
	// CreateIfNotExists inserts the license unless a row with the same key or
	// order id exists. It reports whether a row was written.
	CreateIfNotExists(ctx context.Context, license *models.License) (bool, error)
	GetByKey(ctx context.Context, key string) (*models.License, error)
	GetByOrderID(ctx context.Context, orderID string) (*models.License, error)
	ListByEmail(ctx context.Context, email string) ([]models.License, error)
	DeactivateBySubscription(ctx context.Context, subscriptionID string) (int64, error)
	Activate(ctx context.Context, id string, at time.Time) error
}

// EmailQueueRepository defines the interface for the scheduled email queue
type EmailQueueRepository interface {
	Enqueue(ctx context.Context, items ...*models.EmailQueueItem) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.EmailQueueItem, error)
	MarkSent(ctx context.Context, id uint, messageID string, at time.Time) error
	MarkFailed(ctx context.Context, id uint, errMsg string) error
	CountPending(ctx context.Context) (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	License    LicenseRepository
	EmailQueue EmailQueueRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		License:    NewLicenseRepository(db),
		EmailQueue: NewEmailQueueRepository(db),
	}
}
