package affiliate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/AffiliateFox/app/models"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/codegen"
)

func TestRegisterIsIdempotentByEmail(t *testing.T) {
	svc, db, _ := newTestService(t)

	first, err := svc.Register(context.Background(), RegisterInput{Email: "New.Person@Example.com"})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "new.person@example.com", first.Affiliate.Email)
	assert.Equal(t, "new.person", first.Affiliate.Name)
	assert.Equal(t, models.PaymentMethodPayPal, first.Affiliate.PaymentMethod)
	assert.Equal(t, "new.person@example.com", first.Affiliate.PaymentEmail)
	assert.Equal(t, "https://example.com?ref="+first.Affiliate.ReferralCode, first.ReferralLink)

	code, ok := codegen.NormalizeReferralCode(first.Affiliate.ReferralCode)
	assert.True(t, ok)
	assert.Equal(t, first.Affiliate.ReferralCode, code)

	second, err := svc.Register(context.Background(), RegisterInput{Email: "new.person@example.com", Name: "Other"})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Affiliate.ID, second.Affiliate.ID)

	var n int64
	require.NoError(t, db.Model(&models.Affiliate{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Register(context.Background(), RegisterInput{Email: "not-an-email"})
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	_, err = svc.Register(context.Background(), RegisterInput{Email: "a@example.com", PaymentMethod: "cash"})
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestUpdateProfile(t *testing.T) {
	svc, db, _ := newTestService(t)
	a := createAffiliate(t, db, "prof@example.com", "PROF2345")

	name := "Renamed"
	got, err := svc.Update(context.Background(), a.ID, ProfileUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)

	bad := "not-an-email"
	_, err = svc.Update(context.Background(), a.ID, ProfileUpdate{PaymentEmail: &bad})
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	_, err = svc.Update(context.Background(), "missing", ProfileUpdate{Name: &name})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestGetByEmail(t *testing.T) {
	svc, db, _ := newTestService(t)
	a := createAffiliate(t, db, "find@example.com", "FIND2345")

	got, err := svc.GetByEmail(context.Background(), " FIND@example.com ")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = svc.GetByEmail(context.Background(), "nobody@example.com")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
