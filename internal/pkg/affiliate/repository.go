package affiliate

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/AffiliateFox/app/models"
)

// Repository provides DB operations used by the affiliate service.
type Repository interface {
	WithinTransaction(ctx context.Context, fn func(repo Repository) error) error

	CreateAffiliateIfNotExists(ctx context.Context, a *models.Affiliate) (bool, error)
	FindAffiliateByID(ctx context.Context, id string) (*models.Affiliate, error)
	FindAffiliateByEmail(ctx context.Context, email string) (*models.Affiliate, error)
	FindAffiliateByCode(ctx context.Context, code string) (*models.Affiliate, error)
	LockAffiliate(ctx context.Context, id string) (*models.Affiliate, error)
	UpdateAffiliate(ctx context.Context, id string, updates map[string]interface{}) error
	UpdateTotals(ctx context.Context, id string, totals Totals) error
	SetTotalClicks(ctx context.Context, id string, clicks int64) error
	TopAffiliates(ctx context.Context, limit int) ([]models.Affiliate, error)
	ListAffiliateIDs(ctx context.Context) ([]string, error)

	CreateClick(ctx context.Context, click *models.AffiliateClick) error
	CountClicks(ctx context.Context, affiliateID string, since *time.Time) (int64, error)

	CreateConversionIfNotExists(ctx context.Context, conv *models.AffiliateConversion) (bool, *models.AffiliateConversion, error)
	FindConversionByOrderID(ctx context.Context, orderID string) (*models.AffiliateConversion, error)
	ListConversions(ctx context.Context, affiliateID string) ([]models.AffiliateConversion, error)
	TransitionConversion(ctx context.Context, id, from, to string) (bool, error)
	TagPendingConversions(ctx context.Context, affiliateID, payoutID string) (int64, error)
	ListPayoutConversions(ctx context.Context, payoutID string) ([]models.AffiliateConversion, error)
	MarkPayoutConversionsPaid(ctx context.Context, payoutID string) error
	ReleasePayoutConversions(ctx context.Context, payoutID string) error

	CreatePayout(ctx context.Context, payout *models.AffiliatePayout) error
	FindPayout(ctx context.Context, id string) (*models.AffiliatePayout, error)
	LockPayout(ctx context.Context, id string) (*models.AffiliatePayout, error)
	HasOpenPayout(ctx context.Context, affiliateID string) (bool, error)
	UpdatePayout(ctx context.Context, id string, updates map[string]interface{}) error
	ListPayouts(ctx context.Context, affiliateID string, limit int) ([]models.AffiliatePayout, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates an affiliate repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithinTransaction(ctx context.Context, fn func(repo Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

// forUpdate adds a row lock where the dialect supports one. SQLite serializes
// writers on its own.
func (r *gormRepository) forUpdate(q *gorm.DB) *gorm.DB {
	if r.db.Dialector.Name() == "sqlite" {
		return q
	}
	return q.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *gormRepository) CreateAffiliateIfNotExists(ctx context.Context, a *models.Affiliate) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(a)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) FindAffiliateByID(ctx context.Context, id string) (*models.Affiliate, error) {
	var a models.Affiliate
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *gormRepository) FindAffiliateByEmail(ctx context.Context, email string) (*models.Affiliate, error) {
	var a models.Affiliate
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *gormRepository) FindAffiliateByCode(ctx context.Context, code string) (*models.Affiliate, error) {
	var a models.Affiliate
	if err := r.db.WithContext(ctx).Where("referral_code = ?", code).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *gormRepository) LockAffiliate(ctx context.Context, id string) (*models.Affiliate, error) {
	var a models.Affiliate
	if err := r.forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *gormRepository) UpdateAffiliate(ctx context.Context, id string, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.Affiliate{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) UpdateTotals(ctx context.Context, id string, totals Totals) error {
	return r.db.WithContext(ctx).Model(&models.Affiliate{}).Where("id = ?", id).Updates(map[string]interface{}{
		"total_conversions": totals.TotalConversions,
		"total_earnings":    totals.TotalEarnings,
		"pending_payout":    totals.PendingPayout,
		"lifetime_earnings": totals.LifetimeEarnings,
		"badge":             totals.Badge,
	}).Error
}

func (r *gormRepository) SetTotalClicks(ctx context.Context, id string, clicks int64) error {
	return r.db.WithContext(ctx).Model(&models.Affiliate{}).Where("id = ?", id).
		UpdateColumn("total_clicks", clicks).Error
}

func (r *gormRepository) TopAffiliates(ctx context.Context, limit int) ([]models.Affiliate, error) {
	var list []models.Affiliate
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND total_conversions > 0", true).
		Order("total_earnings DESC").
		Order("total_conversions DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *gormRepository) ListAffiliateIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Affiliate{}).Order("created_at ASC").Pluck("id", &ids).Error
	return ids, err
}

func (r *gormRepository) CreateClick(ctx context.Context, click *models.AffiliateClick) error {
	return r.db.WithContext(ctx).Create(click).Error
}

func (r *gormRepository) CountClicks(ctx context.Context, affiliateID string, since *time.Time) (int64, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&models.AffiliateClick{}).Where("affiliate_id = ?", affiliateID)
	if since != nil {
		q = q.Where("created_at >= ?", *since)
	}
	err := q.Count(&n).Error
	return n, err
}

func (r *gormRepository) CreateConversionIfNotExists(ctx context.Context, conv *models.AffiliateConversion) (bool, *models.AffiliateConversion, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}},
		DoNothing: true,
	}).Create(conv)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	stored, err := r.FindConversionByOrderID(ctx, conv.OrderID)
	if err != nil {
		return false, nil, err
	}
	return created, stored, nil
}

func (r *gormRepository) FindConversionByOrderID(ctx context.Context, orderID string) (*models.AffiliateConversion, error) {
	var c models.AffiliateConversion
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *gormRepository) ListConversions(ctx context.Context, affiliateID string) ([]models.AffiliateConversion, error) {
	var list []models.AffiliateConversion
	err := r.db.WithContext(ctx).Where("affiliate_id = ?", affiliateID).Order("created_at DESC").Find(&list).Error
	return list, err
}

// TransitionConversion moves a conversion from one status to another and
// reports whether the row was in the expected status.
func (r *gormRepository) TransitionConversion(ctx context.Context, id, from, to string) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.AffiliateConversion{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) TagPendingConversions(ctx context.Context, affiliateID, payoutID string) (int64, error) {
	tx := r.db.WithContext(ctx).Model(&models.AffiliateConversion{}).
		Where("affiliate_id = ? AND status = ? AND payout_id IS NULL", affiliateID, models.ConversionStatusPending).
		Update("payout_id", payoutID)
	return tx.RowsAffected, tx.Error
}

func (r *gormRepository) ListPayoutConversions(ctx context.Context, payoutID string) ([]models.AffiliateConversion, error) {
	var list []models.AffiliateConversion
	err := r.db.WithContext(ctx).Where("payout_id = ?", payoutID).Find(&list).Error
	return list, err
}

func (r *gormRepository) MarkPayoutConversionsPaid(ctx context.Context, payoutID string) error {
	return r.db.WithContext(ctx).Model(&models.AffiliateConversion{}).
		Where("payout_id = ? AND status = ?", payoutID, models.ConversionStatusPending).
		Update("status", models.ConversionStatusPaid).Error
}

func (r *gormRepository) ReleasePayoutConversions(ctx context.Context, payoutID string) error {
	return r.db.WithContext(ctx).Model(&models.AffiliateConversion{}).
		Where("payout_id = ? AND status = ?", payoutID, models.ConversionStatusPending).
		Update("payout_id", gorm.Expr("NULL")).Error
}

func (r *gormRepository) CreatePayout(ctx context.Context, payout *models.AffiliatePayout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *gormRepository) FindPayout(ctx context.Context, id string) (*models.AffiliatePayout, error) {
	var p models.AffiliatePayout
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) LockPayout(ctx context.Context, id string) (*models.AffiliatePayout, error) {
	var p models.AffiliatePayout
	if err := r.forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) HasOpenPayout(ctx context.Context, affiliateID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.AffiliatePayout{}).
		Where("affiliate_id = ? AND status IN ?", affiliateID, []string{models.PayoutStatusPending, models.PayoutStatusProcessing}).
		Count(&n).Error
	return n > 0, err
}

func (r *gormRepository) UpdatePayout(ctx context.Context, id string, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.AffiliatePayout{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) ListPayouts(ctx context.Context, affiliateID string, limit int) ([]models.AffiliatePayout, error) {
	var list []models.AffiliatePayout
	err := r.db.WithContext(ctx).Where("affiliate_id = ?", affiliateID).
		Order("created_at DESC").Limit(limit).Find(&list).Error
	return list, err
}

// isDuplicateKey reports unique index violations across drivers.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate entry")
}
