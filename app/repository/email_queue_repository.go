package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/AffiliateFox/app/models"
)

// emailQueueRepository implements the EmailQueueRepository interface
type emailQueueRepository struct {
	db *gorm.DB
}

// NewEmailQueueRepository creates a new email queue repository instance
func NewEmailQueueRepository(db *gorm.DB) EmailQueueRepository {
	return &emailQueueRepository{db: db}
}

func (r *emailQueueRepository) Enqueue(ctx context.Context, items ...*models.EmailQueueItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(items).Error
}

// ListDue returns unsent items whose send_at has passed, oldest first.
// Items that failed before are retried on every run.
func (r *emailQueueRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.EmailQueueItem, error) {
	var items []models.EmailQueueItem
	err := r.db.WithContext(ctx).
		Where("sent = ? AND send_at <= ?", false, now).
		Order("send_at ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *emailQueueRepository) MarkSent(ctx context.Context, id uint, messageID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.EmailQueueItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"sent":       true,
			"sent_at":    at,
			"message_id": messageID,
			"error":      "",
		}).Error
}

func (r *emailQueueRepository) MarkFailed(ctx context.Context, id uint, errMsg string) error {
	return r.db.WithContext(ctx).Model(&models.EmailQueueItem{}).
		Where("id = ?", id).
		Update("error", errMsg).Error
}

func (r *emailQueueRepository) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.EmailQueueItem{}).Where("sent = ?", false).Count(&n).Error
	return n, err
}
