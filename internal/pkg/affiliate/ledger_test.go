package affiliate

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/AffiliateFox/app/models"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
)

func conv(status, amount string) models.AffiliateConversion {
	return models.AffiliateConversion{Status: status, CommissionAmount: decimal.RequireFromString(amount)}
}

func TestAggregate(t *testing.T) {
	totals := Aggregate([]models.AffiliateConversion{
		conv(models.ConversionStatusPending, "39.60"),
		conv(models.ConversionStatusPending, "10.00"),
		conv(models.ConversionStatusPaid, "100.00"),
		conv(models.ConversionStatusRefunded, "500.00"),
	})

	assert.Equal(t, int64(3), totals.TotalConversions)
	assert.Equal(t, "149.60", totals.TotalEarnings.StringFixed(2))
	assert.Equal(t, "49.60", totals.PendingPayout.StringFixed(2))
	assert.Equal(t, "100.00", totals.LifetimeEarnings.StringFixed(2))
	assert.Equal(t, models.BadgeBronze, totals.Badge)
}

func TestAggregateEmpty(t *testing.T) {
	totals := Aggregate(nil)
	assert.Zero(t, totals.TotalConversions)
	assert.True(t, totals.TotalEarnings.IsZero())
	assert.Equal(t, models.BadgeBronze, totals.Badge)
}

func TestBadgeFor(t *testing.T) {
	tests := []struct {
		conversions int64
		earnings    string
		want        string
	}{
		{0, "0", models.BadgeBronze},
		{4, "249.99", models.BadgeBronze},
		{5, "0", models.BadgeSilver},
		{0, "250", models.BadgeSilver},
		{20, "0", models.BadgeGold},
		{1, "1000", models.BadgeGold},
		{49, "4999", models.BadgeGold},
		{50, "0", models.BadgePlatinum},
		{3, "10000", models.BadgeDiamond},
		{100, "0", models.BadgeDiamond},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BadgeFor(tt.conversions, decimal.RequireFromString(tt.earnings)), "%d/%s", tt.conversions, tt.earnings)
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	svc, db, _ := newTestService(t)
	a := createAffiliate(t, db, "rc@example.com", "RCMP2345")
	recordSale(t, svc, "o1", "RCMP2345", "Pro", "99")

	require.NoError(t, db.Model(&models.Affiliate{}).Where("id = ?", a.ID).
		Update("pending_payout", decimal.NewFromInt(999)).Error)

	first, err := svc.Recompute(context.Background(), a.ID)
	require.NoError(t, err)
	second, err := svc.Recompute(context.Background(), a.ID)
	require.NoError(t, err)

	assert.Equal(t, first.PendingPayout.StringFixed(2), second.PendingPayout.StringFixed(2))
	assert.Equal(t, "39.60", reloadAffiliate(t, db, a.ID).PendingPayout.StringFixed(2))
}

func TestRecomputeUnknownAffiliate(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Recompute(context.Background(), "missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestReconcileClicks(t *testing.T) {
	svc, db, _ := newTestService(t)
	a := createAffiliate(t, db, "rcl@example.com", "RCLK2345")
	for i := 0; i < 3; i++ {
		_, err := svc.RecordClick(context.Background(), "RCLK2345", ClickContext{RemoteIP: "1.1.1.1"})
		require.NoError(t, err)
	}

	n, err := svc.ReconcileClicks(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, int64(3), reloadAffiliate(t, db, a.ID).TotalClicks)
}

func TestRecomputeAll(t *testing.T) {
	svc, db, _ := newTestService(t)
	a := createAffiliate(t, db, "all1@example.com", "ALLA2345")
	b := createAffiliate(t, db, "all2@example.com", "ALLB2345")
	recordSale(t, svc, "ord_all_1", "ALLA2345", "AgencyOS Pro", "99.00")
	require.NoError(t, db.Model(&models.Affiliate{}).Where("id IN ?", []string{a.ID, b.ID}).
		Updates(map[string]interface{}{"total_clicks": 7, "pending_payout": "0"}).Error)

	n, err := svc.RecomputeAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got := reloadAffiliate(t, db, a.ID)
	assert.Equal(t, int64(0), got.TotalClicks)
	assert.True(t, got.PendingPayout.Equal(money("39.60")))
	assert.Equal(t, int64(0), reloadAffiliate(t, db, b.ID).TotalClicks)
}

func TestCommissionRate(t *testing.T) {
	tests := []struct {
		product   string
		recurring bool
		want      string
	}{
		{"Starter", false, "0.40"},
		{"Pro Monthly", false, "0.40"},
		{"AgencyOS PRO (Annual)", false, "0.40"},
		{"Franchise", false, "0.30"},
		{"enterprise-annual", false, "0.30"},
		{"Something Else", false, "0.30"},
		{"Starter", true, "0.40"},
		{"Enterprise", true, "0.40"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CommissionRate(tt.product, tt.recurring).StringFixed(2), tt.product)
	}
	assert.Equal(t, "pro", ProductTier("Pro Monthly"))
	assert.Equal(t, "", ProductTier("Consulting"))
}

func TestCommissionRoundsToCents(t *testing.T) {
	assert.Equal(t, "13.33", Commission(decimal.RequireFromString("33.33"), decimal.RequireFromString("0.40")).StringFixed(2))
}
