package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAffiliateBeforeCreate(t *testing.T) {
	a := &Affiliate{Email: "jane@example.com", ReferralCode: " abc12345 "}
	require.NoError(t, a.BeforeCreate(nil))

	assert.Len(t, a.ID, 36)
	assert.Equal(t, "ABC12345", a.ReferralCode)
}

func TestAffiliateValidate(t *testing.T) {
	a := &Affiliate{Email: "jane@example.com", ReferralCode: "ABC12345", PaymentMethod: PaymentMethodPayPal}
	assert.NoError(t, a.Validate())

	a.PaymentMethod = "cheque"
	assert.Error(t, a.Validate())

	a.PaymentMethod = PaymentMethodWise
	a.Email = "not-an-email"
	assert.Error(t, a.Validate())
}

func TestAffiliateDisplayName(t *testing.T) {
	a := &Affiliate{ID: "9f1c2d3e-0000-0000-0000-000000000000"}
	assert.Equal(t, "Affiliate 9f1c", a.DisplayName())

	a.Name = "Jane"
	assert.Equal(t, "Jane", a.DisplayName())
}

func TestPayoutBeforeCreateSetsOpenGuard(t *testing.T) {
	p := &AffiliatePayout{AffiliateID: "aff-1"}
	require.NoError(t, p.BeforeCreate(nil))

	assert.Equal(t, PayoutStatusPending, p.Status)
	require.NotNil(t, p.OpenGuard)
	assert.Equal(t, "aff-1", *p.OpenGuard)

	closed := &AffiliatePayout{AffiliateID: "aff-1", Status: PayoutStatusPaid}
	require.NoError(t, closed.BeforeCreate(nil))
	assert.Nil(t, closed.OpenGuard)
}

func TestIsOpenPayoutStatus(t *testing.T) {
	assert.True(t, IsOpenPayoutStatus(PayoutStatusPending))
	assert.True(t, IsOpenPayoutStatus(PayoutStatusProcessing))
	assert.False(t, IsOpenPayoutStatus(PayoutStatusPaid))
	assert.False(t, IsOpenPayoutStatus(PayoutStatusRejected))
}

func TestLicenseIsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	l := &License{}
	assert.False(t, l.IsExpired(now))

	past := now.Add(-time.Hour)
	l.ExpiresAt = &past
	assert.True(t, l.IsExpired(now))

	future := now.Add(time.Hour)
	l.ExpiresAt = &future
	assert.False(t, l.IsExpired(now))
}
