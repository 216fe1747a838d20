package credits

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/AffiliateFox/app/models"
)

// Repository provides DB operations used by the credits service.
type Repository interface {
	WithinTransaction(ctx context.Context, fn func(repo Repository) error) error

	FindAccount(ctx context.Context, email string) (*models.CreditAccount, error)
	// LockAccount creates the account when missing and returns it under a row lock.
	LockAccount(ctx context.Context, email string) (*models.CreditAccount, error)
	SaveBalances(ctx context.Context, a *models.CreditAccount) error

	// CreateTransaction reports false when the reference id already exists.
	CreateTransaction(ctx context.Context, tx *models.CreditTransaction) (bool, error)
	FindTransactionByReference(ctx context.Context, reference string) (*models.CreditTransaction, error)
	ListTransactions(ctx context.Context, email string, limit int) ([]models.CreditTransaction, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithinTransaction(ctx context.Context, fn func(repo Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) forUpdate(q *gorm.DB) *gorm.DB {
	if r.db.Dialector.Name() == "sqlite" {
		return q
	}
	return q.Clauses(clause.Locking{Strength: "UPDATE"})
}

// FindAccount returns nil without error when the email has no account.
func (r *gormRepository) FindAccount(ctx context.Context, email string) (*models.CreditAccount, error) {
	var a models.CreditAccount
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *gormRepository) LockAccount(ctx context.Context, email string) (*models.CreditAccount, error) {
	fresh := &models.CreditAccount{
		Email:          email,
		Balance:        decimal.Zero,
		LifetimeEarned: decimal.Zero,
		LifetimeSpent:  decimal.Zero,
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(fresh).Error; err != nil {
		return nil, err
	}
	var a models.CreditAccount
	if err := r.forUpdate(r.db.WithContext(ctx)).Where("email = ?", email).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *gormRepository) SaveBalances(ctx context.Context, a *models.CreditAccount) error {
	return r.db.WithContext(ctx).Model(&models.CreditAccount{}).Where("email = ?", a.Email).Updates(map[string]interface{}{
		"balance":         a.Balance,
		"lifetime_earned": a.LifetimeEarned,
		"lifetime_spent":  a.LifetimeSpent,
	}).Error
}

func (r *gormRepository) CreateTransaction(ctx context.Context, t *models.CreditTransaction) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(t)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// FindTransactionByReference returns nil without error when nothing matches.
func (r *gormRepository) FindTransactionByReference(ctx context.Context, reference string) (*models.CreditTransaction, error) {
	var t models.CreditTransaction
	err := r.db.WithContext(ctx).Where("reference_id = ?", reference).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *gormRepository) ListTransactions(ctx context.Context, email string, limit int) ([]models.CreditTransaction, error) {
	var txs []models.CreditTransaction
	err := r.db.WithContext(ctx).
		Where("from_email = ? OR to_email = ?", email, email).
		Order("created_at DESC").
		Limit(limit).
		Find(&txs).Error
	return txs, err
}
