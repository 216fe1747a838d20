package affiliate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/AffiliateFox/app/models"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
)

func TestClickSaleRenewalPayoutAndRefund(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	a := createAffiliate(t, db, "abc@example.com", "ABC12345")

	_, err := svc.RecordClick(ctx, "ABC12345", ClickContext{RemoteIP: "203.0.113.7"})
	require.NoError(t, err)

	recordSale(t, svc, "ord_1", "ABC12345", "pro", "99")
	got := reloadAffiliate(t, db, a.ID)
	assert.Equal(t, "39.60", got.PendingPayout.StringFixed(2))
	assert.Equal(t, int64(1), got.TotalConversions)

	_, err = svc.RequestPayout(ctx, PayoutInput{AffiliateID: a.ID})
	require.Error(t, err)
	assert.Equal(t, apperr.KindBelowThreshold, apperr.KindOf(err))
	assert.Equal(t, "Minimum payout is $50. You have $39.60.", apperr.Message(err))

	renewal, err := svc.RecordConversion(ctx, ConversionInput{
		OrderID:      "ord_2",
		ReferralCode: "ABC12345",
		ProductName:  "pro",
		GrossAmount:  money("99"),
		IsRecurring:  true,
		Provider:     "lemonsqueezy",
	})
	require.NoError(t, err)
	assert.True(t, renewal.Conversion.CommissionRate.Equal(RecurringRate))
	got = reloadAffiliate(t, db, a.ID)
	assert.Equal(t, "79.20", got.PendingPayout.StringFixed(2))

	payout, err := svc.RequestPayout(ctx, PayoutInput{AffiliateID: a.ID})
	require.NoError(t, err)
	assert.Equal(t, "79.20", payout.Amount.StringFixed(2))
	assert.Equal(t, models.PayoutStatusPending, payout.Status)

	_, err = svc.RequestPayout(ctx, PayoutInput{AffiliateID: a.ID})
	assert.Equal(t, apperr.KindAlreadyRequested, apperr.KindOf(err))

	res, err := svc.RefundConversion(ctx, "ord_1")
	require.NoError(t, err)
	assert.Equal(t, models.ConversionStatusRefunded, res.Status)

	got = reloadAffiliate(t, db, a.ID)
	assert.Equal(t, "39.60", got.PendingPayout.StringFixed(2))
	assert.Equal(t, "39.60", got.TotalEarnings.StringFixed(2))
	assert.Equal(t, int64(1), got.TotalConversions)
}
