// Package license issues, validates and deactivates product licenses and
// answers subscription status lookups.
package license

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AffiliateFox/app/models"
	"github.com/ManuelReschke/AffiliateFox/app/repository"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/codegen"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/entitlements"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/mail"
)

const (
	ProviderManual = "manual"

	maxKeyAttempts = 5
)

var validate = validator.New()

// OnboardingScheduler queues the onboarding drip for a new customer.
type OnboardingScheduler interface {
	ScheduleOnboarding(ctx context.Context, email string, data map[string]any) error
}

type IssueInput struct {
	Email          string
	Name           string
	Plan           string
	Provider       string
	OrderID        string
	SubscriptionID string
	ExpiresAt      *time.Time
}

type IssueResult struct {
	License *models.License
	Created bool
}

// Service handles the license lifecycle.
type Service struct {
	repo       repository.LicenseRepository
	mailer     mail.TemplateSender
	onboarding OnboardingScheduler
	now        func() time.Time
	newKey     func() (string, error)
}

func NewService(repo repository.LicenseRepository, mailer mail.TemplateSender, onboarding OnboardingScheduler) *Service {
	return &Service{
		repo:       repo,
		mailer:     mailer,
		onboarding: onboarding,
		now:        time.Now,
		newKey:     codegen.LicenseKey,
	}
}

// NewServiceFromDB wires the service to the default mailer and email queue.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(repository.NewLicenseRepository(db), mail.Default(), mail.NewQueueFromDB(db))
}

// Issue creates a license. Issuing twice for the same order id returns the
// first license. New licenses trigger the welcome email and onboarding drip.
func (s *Service) Issue(ctx context.Context, in IssueInput) (*IssueResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := validate.Var(email, "required,email,max=200"); err != nil {
		return nil, apperr.InvalidInput("Valid email is required")
	}
	plan := entitlements.NormalizePlan(in.Plan, entitlements.PlanPro)
	orderID := strings.TrimSpace(in.OrderID)

	if orderID != "" {
		existing, err := s.repo.GetByOrderID(ctx, orderID)
		if err != nil {
			return nil, apperr.Internal(err, "Failed to load license")
		}
		if existing != nil {
			return &IssueResult{License: existing}, nil
		}
	}

	provider := in.Provider
	if provider == "" {
		provider = ProviderManual
	}

	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		key, err := s.newKey()
		if err != nil {
			return nil, apperr.Internal(err, "Failed to generate license key")
		}
		lic := &models.License{
			LicenseKey:     key,
			Email:          email,
			Plan:           string(plan),
			Status:         models.LicenseStatusActive,
			Provider:       provider,
			SubscriptionID: in.SubscriptionID,
			ExpiresAt:      in.ExpiresAt,
		}
		if orderID != "" {
			lic.OrderID = &orderID
		}

		created, err := s.repo.CreateIfNotExists(ctx, lic)
		if err != nil {
			return nil, apperr.Internal(err, "Failed to store license")
		}
		if created {
			log.Infof("[License] Issued %s license %s for %s (order=%s)", plan, lic.LicenseKey, email, orderID)
			s.welcome(ctx, lic, in.Name)
			return &IssueResult{License: lic, Created: true}, nil
		}

		// either a concurrent delivery won the order id or the key collided
		if orderID != "" {
			stored, err := s.repo.GetByOrderID(ctx, orderID)
			if err != nil {
				return nil, apperr.Internal(err, "Failed to load license")
			}
			if stored != nil {
				return &IssueResult{License: stored}, nil
			}
		}
		log.Warnf("[License] Key collision on attempt %d, retrying", attempt+1)
	}
	return nil, apperr.Internal(nil, "Failed to generate a unique license key")
}

func (s *Service) welcome(ctx context.Context, lic *models.License, name string) {
	data := map[string]any{
		"name":       name,
		"licenseKey": lic.LicenseKey,
		"plan":       strings.ToUpper(lic.Plan),
	}
	if s.mailer != nil {
		if _, err := s.mailer.Send(ctx, lic.Email, mail.TemplateWelcome, data); err != nil {
			log.Warnf("[License] Welcome email to %s failed: %v", lic.Email, err)
		}
	}
	if s.onboarding != nil {
		if err := s.onboarding.ScheduleOnboarding(ctx, lic.Email, map[string]any{"name": name}); err != nil {
			log.Warnf("[License] Scheduling onboarding for %s failed: %v", lic.Email, err)
		}
	}
}

// DeactivateBySubscription marks every active license of a subscription inactive.
func (s *Service) DeactivateBySubscription(ctx context.Context, subscriptionID string) (int64, error) {
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return 0, apperr.InvalidInput("Missing subscription id")
	}
	n, err := s.repo.DeactivateBySubscription(ctx, subscriptionID)
	if err != nil {
		return 0, apperr.Internal(err, "Failed to deactivate license")
	}
	if n > 0 {
		log.Infof("[License] Deactivated %d license(s) for subscription %s", n, subscriptionID)
	}
	return n, nil
}

// HasCustomer reports whether any license was ever issued to email.
func (s *Service) HasCustomer(ctx context.Context, email string) (bool, error) {
	licenses, err := s.repo.ListByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return false, err
	}
	return len(licenses) > 0, nil
}
