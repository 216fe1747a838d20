package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/AffiliateFox/app/models"
)

// licenseRepository implements the LicenseRepository interface
type licenseRepository struct {
	db *gorm.DB
}

// NewLicenseRepository creates a new license repository instance
func NewLicenseRepository(db *gorm.DB) LicenseRepository {
	return &licenseRepository{db: db}
}

func (r *licenseRepository) CreateIfNotExists(ctx context.Context, license *models.License) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(license)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// GetByKey returns nil without error when no license has the key.
func (r *licenseRepository) GetByKey(ctx context.Context, key string) (*models.License, error) {
	var license models.License
	err := r.db.WithContext(ctx).Where("license_key = ?", key).First(&license).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &license, nil
}

// GetByOrderID returns nil without error when no license was issued for the order.
func (r *licenseRepository) GetByOrderID(ctx context.Context, orderID string) (*models.License, error) {
	var license models.License
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&license).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &license, nil
}

func (r *licenseRepository) ListByEmail(ctx context.Context, email string) ([]models.License, error) {
	var licenses []models.License
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Order("created_at DESC").
		Find(&licenses).Error
	return licenses, err
}

func (r *licenseRepository) DeactivateBySubscription(ctx context.Context, subscriptionID string) (int64, error) {
	tx := r.db.WithContext(ctx).Model(&models.License{}).
		Where("subscription_id = ? AND status = ?", subscriptionID, models.LicenseStatusActive).
		Update("status", models.LicenseStatusInactive)
	return tx.RowsAffected, tx.Error
}

// Activate stamps the first successful validation; later calls keep the first timestamp.
func (r *licenseRepository) Activate(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.License{}).
		Where("id = ? AND activated_at IS NULL", id).
		Update("activated_at", at).Error
}
