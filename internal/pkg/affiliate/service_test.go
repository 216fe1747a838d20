package affiliate

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AffiliateFox/app/models"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/database"
)

type fakeClickCounter struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (f *fakeClickCounter) AddClick(ctx context.Context, affiliateID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, affiliateID)
	return f.err
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	db, err := database.OpenSQLite("file:" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *fakeClickCounter) {
	t.Helper()
	db := openTestDB(t)
	fc := &fakeClickCounter{}
	svc := NewService(NewRepository(db), fc, Config{IPSalt: "salt", BaseURL: "https://example.com/"})
	return svc, db, fc
}

func createAffiliate(t *testing.T, db *gorm.DB, email, code string) *models.Affiliate {
	t.Helper()
	a := &models.Affiliate{
		Email:         email,
		Name:          "Test Affiliate",
		ReferralCode:  code,
		PaymentMethod: models.PaymentMethodPayPal,
		PaymentEmail:  email,
		IsActive:      true,
	}
	require.NoError(t, db.Create(a).Error)
	return a
}

func reloadAffiliate(t *testing.T, db *gorm.DB, id string) *models.Affiliate {
	t.Helper()
	var a models.Affiliate
	require.NoError(t, db.First(&a, "id = ?", id).Error)
	return &a
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func recordSale(t *testing.T, svc *Service, orderID, code, product, gross string) *ConversionResult {
	t.Helper()
	res, err := svc.RecordConversion(context.Background(), ConversionInput{
		OrderID:      orderID,
		ReferralCode: code,
		ProductName:  product,
		GrossAmount:  money(gross),
		Provider:     "polar",
	})
	require.NoError(t, err)
	return res
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}
