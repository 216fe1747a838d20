package export

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AffiliateFox/app/models"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/database"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/s3archive"
)

type fakeArchive struct {
	keys []string
	err  error
}

func (f *fakeArchive) Upload(ctx context.Context, key string, data []byte, contentType string) (*s3archive.UploadResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.keys = append(f.keys, key)
	return &s3archive.UploadResult{ObjectKey: key, Size: int64(len(data)), ContentType: contentType}, nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
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

func seed(t *testing.T, db *gorm.DB) {
	t.Helper()
	for i, aff := range []string{"aff-1", "aff-1", "aff-2"} {
		require.NoError(t, db.Create(&models.AffiliateConversion{
			AffiliateID:      aff,
			OrderID:          []string{"ord_1", "ord_2", "ord_3"}[i],
			ProductName:      "Pro",
			ProductPrice:     decimal.RequireFromString("99.00"),
			CommissionRate:   decimal.RequireFromString("0.40"),
			CommissionAmount: decimal.RequireFromString("39.60"),
			Status:           models.ConversionStatusPending,
		}).Error)
	}
	require.NoError(t, db.Create(&models.AffiliatePayout{
		AffiliateID: "aff-1",
		Amount:      decimal.RequireFromString("79.20"),
		Method:      models.PaymentMethodPayPal,
	}).Error)
}

func readRows(t *testing.T, data []byte, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func TestExportConversions(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)
	archive := &fakeArchive{}
	svc := NewService(db, archive)
	svc.now = func() time.Time { return time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC) }

	res, err := svc.Export(context.Background(), KindConversions, "aff-1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, "conversions_20260305_100000.xlsx", res.Filename)
	assert.Equal(t, "exports/2026/03/conversions-1772704800.xlsx", res.ObjectKey)
	assert.Equal(t, []string{res.ObjectKey}, archive.keys)

	rows := readRows(t, res.Data, "Conversions")
	require.Len(t, rows, 3)
	assert.Equal(t, "Order ID", rows[0][0])
	assert.Equal(t, "ord_1", rows[1][0])
	assert.Equal(t, "39.6", rows[1][5])
}

func TestExportPayoutsWithoutArchive(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)

	res, err := NewService(db, nil).Export(context.Background(), KindPayouts, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rows)
	assert.Empty(t, res.ObjectKey)

	rows := readRows(t, res.Data, "Payouts")
	require.Len(t, rows, 2)
	assert.Equal(t, "aff-1", rows[1][1])
	assert.Equal(t, "pending", rows[1][6])
}

func TestExportArchiveFailureStillReturnsWorkbook(t *testing.T) {
	db := openTestDB(t)
	res, err := NewService(db, &fakeArchive{err: errors.New("s3 down")}).Export(context.Background(), KindPayouts, "")
	require.NoError(t, err)
	assert.Empty(t, res.ObjectKey)
	assert.NotEmpty(t, res.Data)
}

func TestExportUnknownKind(t *testing.T) {
	_, err := NewService(openTestDB(t), nil).Export(context.Background(), Kind("users"), "")
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	_, ok := ParseKind("payouts")
	assert.True(t, ok)
	_, ok = ParseKind("users")
	assert.False(t, ok)
}
