package credits

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AffiliateFox/app/models"
	"github.com/ManuelReschke/AffiliateFox/app/repository"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/database"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/license"
)

type noopMailer struct{}

func (noopMailer) Send(ctx context.Context, to, template string, data map[string]any) (string, error) {
	return "<id@test>", nil
}

type failingIssuer struct{}

func (failingIssuer) Issue(ctx context.Context, in license.IssueInput) (*license.IssueResult, error) {
	return nil, apperr.Internal(errors.New("db down"), "Failed to store license")
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

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	lic := license.NewService(repository.NewLicenseRepository(db), noopMailer{}, nil)
	svc := NewService(NewRepository(db), lic, lic)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	for _, email := range []string{"ana@example.com", "ben@example.com"} {
		_, err := lic.Issue(context.Background(), license.IssueInput{Email: email, Plan: "starter"})
		require.NoError(t, err)
	}
	return svc, db
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func grant(t *testing.T, svc *Service, email, value string) {
	t.Helper()
	_, err := svc.Grant(context.Background(), GrantInput{Email: email, Amount: amount(value), Description: "bonus"})
	require.NoError(t, err)
}

func balance(t *testing.T, svc *Service, email string) *models.CreditAccount {
	t.Helper()
	a, err := svc.Balance(context.Background(), email)
	require.NoError(t, err)
	return a
}

func TestBalanceWithoutAccountIsZero(t *testing.T) {
	svc, _ := newTestService(t)

	a := balance(t, svc, "Ana@Example.com")
	assert.Equal(t, "ana@example.com", a.Email)
	assert.True(t, a.Balance.IsZero())
	assert.True(t, a.LifetimeEarned.IsZero())
}

func TestGrantIsIdempotentByReference(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	in := GrantInput{Email: "ana@example.com", Amount: amount("100"), Reference: "contest_2025"}

	first, err := svc.Grant(ctx, in)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	second, err := svc.Grant(ctx, in)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Transaction.ID, second.Transaction.ID)

	a := balance(t, svc, "ana@example.com")
	assert.Equal(t, "100.00", a.Balance.StringFixed(2))
	assert.Equal(t, "100.00", a.LifetimeEarned.StringFixed(2))
}

func TestGrantValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Grant(ctx, GrantInput{Email: "nope", Amount: amount("1")})
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
	_, err = svc.Grant(ctx, GrantInput{Email: "ana@example.com", Amount: amount("0")})
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestTransferMovesCredits(t *testing.T) {
	svc, _ := newTestService(t)
	grant(t, svc, "ana@example.com", "100")

	tx, err := svc.Transfer(context.Background(), TransferInput{
		FromEmail: "ana@example.com",
		ToEmail:   " BEN@example.com",
		Amount:    amount("40"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.CreditTxTransfer, tx.Type)
	assert.Equal(t, "P2P Transfer", tx.Description)

	ana := balance(t, svc, "ana@example.com")
	ben := balance(t, svc, "ben@example.com")
	assert.Equal(t, "60.00", ana.Balance.StringFixed(2))
	assert.Equal(t, "40.00", ana.LifetimeSpent.StringFixed(2))
	assert.Equal(t, "40.00", ben.Balance.StringFixed(2))
	assert.Equal(t, "40.00", ben.LifetimeEarned.StringFixed(2))

	history, err := svc.History(context.Background(), "ben@example.com")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "ana@example.com", history[0].FromEmail)
}

func TestTransferRejections(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	grant(t, svc, "ana@example.com", "10")

	cases := []struct {
		name    string
		in      TransferInput
		kind    apperr.Kind
		message string
	}{
		{"zero amount", TransferInput{FromEmail: "ana@example.com", ToEmail: "ben@example.com", Amount: amount("0")}, apperr.KindInvalidInput, "Invalid transfer request"},
		{"missing recipient", TransferInput{FromEmail: "ana@example.com", Amount: amount("1")}, apperr.KindInvalidInput, "Invalid transfer request"},
		{"self", TransferInput{FromEmail: "ana@example.com", ToEmail: "Ana@example.com", Amount: amount("1")}, apperr.KindInvalidInput, "Cannot transfer to yourself"},
		{"unknown recipient", TransferInput{FromEmail: "ana@example.com", ToEmail: "zoe@example.com", Amount: amount("1")}, apperr.KindNotFound, "Recipient not found"},
		{"overdraw", TransferInput{FromEmail: "ana@example.com", ToEmail: "ben@example.com", Amount: amount("10.01")}, apperr.KindInsufficient, "Insufficient balance"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Transfer(ctx, tc.in)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
			assert.Equal(t, tc.message, apperr.Message(err))
		})
	}

	assert.Equal(t, "10.00", balance(t, svc, "ana@example.com").Balance.StringFixed(2))
	assert.True(t, balance(t, svc, "ben@example.com").Balance.IsZero())
}

func TestRedeemIssuesLicense(t *testing.T) {
	svc, db := newTestService(t)
	grant(t, svc, "ana@example.com", "120")

	res, err := svc.Redeem(context.Background(), "ana@example.com", "pro_monthly")
	require.NoError(t, err)
	assert.Equal(t, "21.00", res.RemainingBalance.StringFixed(2))
	assert.True(t, strings.HasPrefix(res.Reference, "agc_purchase_"))
	require.NotNil(t, res.License)
	assert.Equal(t, "pro", res.License.Plan)
	assert.Equal(t, ProviderCredits, res.License.Provider)
	require.NotNil(t, res.License.ExpiresAt)
	assert.Equal(t, time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC), res.License.ExpiresAt.UTC())

	a := balance(t, svc, "ana@example.com")
	assert.Equal(t, "21.00", a.Balance.StringFixed(2))
	assert.Equal(t, "99.00", a.LifetimeSpent.StringFixed(2))

	var purchase models.CreditTransaction
	require.NoError(t, db.First(&purchase, "type = ?", models.CreditTxPurchase).Error)
	assert.Equal(t, "Purchase: pro_monthly", purchase.Description)
	assert.Equal(t, res.Reference, *purchase.ReferenceID)
}

func TestRedeemRejections(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	grant(t, svc, "ana@example.com", "28")

	_, err := svc.Redeem(ctx, "ana@example.com", "platinum_monthly")
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	_, err = svc.Redeem(ctx, "ana@example.com", "starter_monthly")
	assert.Equal(t, apperr.KindInsufficient, apperr.KindOf(err))
	assert.Equal(t, "28.00", balance(t, svc, "ana@example.com").Balance.StringFixed(2))
}

func TestRedeemReturnsCreditsWhenLicenseFails(t *testing.T) {
	svc, db := newTestService(t)
	grant(t, svc, "ana@example.com", "50")
	svc.licenses = failingIssuer{}

	_, err := svc.Redeem(context.Background(), "ana@example.com", "starter_monthly")
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	a := balance(t, svc, "ana@example.com")
	assert.Equal(t, "50.00", a.Balance.StringFixed(2))
	assert.Equal(t, "0.00", a.LifetimeSpent.StringFixed(2))

	var refunds int64
	require.NoError(t, db.Model(&models.CreditTransaction{}).Where("type = ?", models.CreditTxRefund).Count(&refunds).Error)
	assert.Equal(t, int64(1), refunds)
}

func TestProductIDs(t *testing.T) {
	assert.Equal(t, []string{
		"franchise_annual", "franchise_monthly",
		"pro_annual", "pro_monthly",
		"starter_annual", "starter_monthly",
	}, ProductIDs())
	p, ok := LookupProduct("franchise_annual")
	require.True(t, ok)
	assert.Equal(t, "2399", p.Price.String())
}
