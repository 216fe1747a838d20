package license

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AffiliateFox/app/models"
	"github.com/ManuelReschke/AffiliateFox/app/repository"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/codegen"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/database"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/entitlements"
)

type sentMail struct {
	to, template string
	data         map[string]any
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, to, template string, data map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, sentMail{to: to, template: template, data: data})
	return "<test@localhost>", nil
}

type fakeOnboarding struct {
	emails []string
}

func (f *fakeOnboarding) ScheduleOnboarding(ctx context.Context, email string, data map[string]any) error {
	f.emails = append(f.emails, email)
	return nil
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

func newTestService(t *testing.T) (*Service, *fakeMailer, *fakeOnboarding, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	m := &fakeMailer{}
	o := &fakeOnboarding{}
	return NewService(repository.NewLicenseRepository(db), m, o), m, o, db
}

func TestIssue_CreatesLicenseAndSendsWelcome(t *testing.T) {
	svc, m, o, _ := newTestService(t)

	res, err := svc.Issue(context.Background(), IssueInput{
		Email:    " Ana@Example.com ",
		Name:     "Ana",
		Plan:     "AgencyOS Franchise Monthly",
		Provider: "polar",
		OrderID:  "ord_1",
	})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.True(t, codegen.ValidLicenseKey(res.License.LicenseKey))
	assert.Equal(t, "ana@example.com", res.License.Email)
	assert.Equal(t, "franchise", res.License.Plan)
	assert.Equal(t, models.LicenseStatusActive, res.License.Status)

	require.Len(t, m.sent, 1)
	assert.Equal(t, "welcome", m.sent[0].template)
	assert.Equal(t, res.License.LicenseKey, m.sent[0].data["licenseKey"])
	assert.Equal(t, "FRANCHISE", m.sent[0].data["plan"])
	assert.Equal(t, []string{"ana@example.com"}, o.emails)
}

func TestIssue_IdempotentPerOrder(t *testing.T) {
	svc, m, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Issue(ctx, IssueInput{Email: "a@example.com", Plan: "pro", OrderID: "ord_1"})
	require.NoError(t, err)
	second, err := svc.Issue(ctx, IssueInput{Email: "a@example.com", Plan: "pro", OrderID: "ord_1"})
	require.NoError(t, err)

	assert.False(t, second.Created)
	assert.Equal(t, first.License.LicenseKey, second.License.LicenseKey)
	assert.Len(t, m.sent, 1)
}

func TestIssue_RetriesOnKeyCollision(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	keys := []string{"AGENCYOS-AAAA-AAAA-AAAA-AAAA", "AGENCYOS-AAAA-AAAA-AAAA-AAAA", "AGENCYOS-BBBB-BBBB-BBBB-BBBB"}
	svc.newKey = func() (string, error) {
		k := keys[0]
		keys = keys[1:]
		return k, nil
	}

	first, err := svc.Issue(ctx, IssueInput{Email: "a@example.com"})
	require.NoError(t, err)
	second, err := svc.Issue(ctx, IssueInput{Email: "b@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "AGENCYOS-AAAA-AAAA-AAAA-AAAA", first.License.LicenseKey)
	assert.Equal(t, "AGENCYOS-BBBB-BBBB-BBBB-BBBB", second.License.LicenseKey)
	assert.Equal(t, ProviderManual, second.License.Provider)
	assert.Equal(t, "pro", second.License.Plan)
}

func TestIssue_GivesUpAfterRepeatedCollisions(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	svc.newKey = func() (string, error) { return "AGENCYOS-AAAA-AAAA-AAAA-AAAA", nil }

	_, err := svc.Issue(ctx, IssueInput{Email: "a@example.com"})
	require.NoError(t, err)
	_, err = svc.Issue(ctx, IssueInput{Email: "b@example.com"})
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestIssue_RejectsBadEmail(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.Issue(context.Background(), IssueInput{Email: "not-an-email"})
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestIssue_MailFailureDoesNotFailIssuance(t *testing.T) {
	svc, m, _, _ := newTestService(t)
	m.err = errors.New("smtp down")

	res, err := svc.Issue(context.Background(), IssueInput{Email: "a@example.com"})
	require.NoError(t, err)
	assert.True(t, res.Created)
}

func TestValidate(t *testing.T) {
	svc, _, _, db := newTestService(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	active, err := svc.Issue(ctx, IssueInput{Email: "a@example.com", Plan: "pro"})
	require.NoError(t, err)

	past := now.Add(-time.Hour)
	expired, err := svc.Issue(ctx, IssueInput{Email: "b@example.com", ExpiresAt: &past})
	require.NoError(t, err)

	inactive, err := svc.Issue(ctx, IssueInput{Email: "c@example.com", SubscriptionID: "sub_9"})
	require.NoError(t, err)
	_, err = svc.DeactivateBySubscription(ctx, "sub_9")
	require.NoError(t, err)

	t.Run("valid key activates", func(t *testing.T) {
		v, err := svc.Validate(ctx, strings.ToLower(active.License.LicenseKey))
		require.NoError(t, err)
		assert.True(t, v.Valid)
		assert.Equal(t, entitlements.LimitsFor(entitlements.PlanPro), v.Limits)
		require.NotNil(t, v.License.ActivatedAt)

		var stored models.License
		require.NoError(t, db.First(&stored, "id = ?", active.License.ID).Error)
		require.NotNil(t, stored.ActivatedAt)
	})

	t.Run("expired", func(t *testing.T) {
		v, err := svc.Validate(ctx, expired.License.LicenseKey)
		require.NoError(t, err)
		assert.False(t, v.Valid)
		assert.Equal(t, ReasonExpired, v.Reason)
	})

	t.Run("inactive", func(t *testing.T) {
		v, err := svc.Validate(ctx, inactive.License.LicenseKey)
		require.NoError(t, err)
		assert.False(t, v.Valid)
		assert.Equal(t, ReasonInactive, v.Reason)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := svc.Validate(ctx, "")
		assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
		_, err = svc.Validate(ctx, "AGENCYOS-DEMO-TEST-1234")
		assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
		_, err = svc.Validate(ctx, "AGENCYOS-ZZZZ-ZZZZ-ZZZZ-ZZZZ")
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
		assert.Equal(t, "License key not found", apperr.Message(err))
	})
}

func TestStatusFor(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	for i, plan := range []string{"starter", "franchise", "pro"} {
		_, err := svc.Issue(ctx, IssueInput{Email: "a@example.com", Plan: plan, OrderID: fmt.Sprintf("ord_%d", i)})
		require.NoError(t, err)
	}

	st, err := svc.StatusFor(ctx, "A@example.com", "")
	require.NoError(t, err)
	assert.True(t, st.HasSubscription)
	assert.Equal(t, entitlements.PlanFranchise, st.Tier)
	assert.True(t, st.Features.WhiteLabel)

	_, err = svc.StatusFor(ctx, "nobody@example.com", "")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = svc.StatusFor(ctx, "", "")
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	free := FreeStatus()
	assert.False(t, free.HasSubscription)
	assert.Equal(t, entitlements.PlanFree, free.Tier)
	assert.Equal(t, 100, free.Limits.MonthlyAPICalls)
}

func TestDeactivateBySubscription_RequiresID(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.DeactivateBySubscription(context.Background(), " ")
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestHasCustomer(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	known, err := svc.HasCustomer(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, known)

	_, err = svc.Issue(ctx, IssueInput{Email: "a@example.com", Plan: "pro"})
	require.NoError(t, err)

	known, err = svc.HasCustomer(ctx, " A@Example.com ")
	require.NoError(t, err)
	assert.True(t, known)
}
