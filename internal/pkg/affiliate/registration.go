package affiliate

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AffiliateFox/app/models"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/codegen"
)

const maxCodeAttempts = 10

var validate = validator.New()

// Register creates an affiliate for email, or returns the existing one.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := validate.Var(email, "required,email,max=200"); err != nil {
		return nil, apperr.InvalidInput("Valid email is required")
	}

	if existing, err := s.repo.FindAffiliateByEmail(ctx, email); err == nil {
		return &RegisterResult{Affiliate: existing, ReferralLink: s.ReferralLink(existing.ReferralCode)}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Internal(err, "Failed to load affiliate")
	}

	method := strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	if method == "" {
		method = models.PaymentMethodPayPal
	}
	if !models.IsValidPaymentMethod(method) {
		return nil, apperr.InvalidInput("Invalid payment method")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	paymentEmail := strings.TrimSpace(in.PaymentEmail)
	if paymentEmail == "" {
		paymentEmail = email
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := codegen.ReferralCode()
		if err != nil {
			return nil, apperr.Internal(err, "Failed to generate referral code")
		}
		a := &models.Affiliate{
			Email:         email,
			Name:          truncate(name, 150),
			ReferralCode:  code,
			PaymentMethod: method,
			PaymentEmail:  paymentEmail,
			IsActive:      true,
		}
		if in.UserID != "" {
			uid := in.UserID
			a.UserID = &uid
		}
		if err := a.Validate(); err != nil {
			return nil, apperr.InvalidInput("Invalid affiliate data")
		}

		created, err := s.repo.CreateAffiliateIfNotExists(ctx, a)
		if err != nil {
			return nil, apperr.Internal(err, "Failed to create affiliate")
		}
		if created {
			log.Infof("[Affiliate] Registered %s with code %s", email, a.ReferralCode)
			return &RegisterResult{Affiliate: a, Created: true, ReferralLink: s.ReferralLink(a.ReferralCode)}, nil
		}

		// Either the email was registered concurrently or the code collided.
		existing, err := s.repo.FindAffiliateByEmail(ctx, email)
		if err == nil {
			return &RegisterResult{Affiliate: existing, ReferralLink: s.ReferralLink(existing.ReferralCode)}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Internal(err, "Failed to load affiliate")
		}
	}
	return nil, apperr.Internal(nil, "Failed to generate a unique referral code")
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.Affiliate, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperr.InvalidInput("affiliateId is required")
	}
	a, err := s.repo.FindAffiliateByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Affiliate not found")
		}
		return nil, apperr.Internal(err, "Failed to load affiliate")
	}
	return a, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*models.Affiliate, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperr.InvalidInput("email is required")
	}
	a, err := s.repo.FindAffiliateByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Affiliate not found")
		}
		return nil, apperr.Internal(err, "Failed to load affiliate")
	}
	return a, nil
}

// Update changes profile and payout settings. Nil fields are left untouched.
func (s *Service) Update(ctx context.Context, id string, in ProfileUpdate) (*models.Affiliate, error) {
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = truncate(*in.Name, 150)
	}
	if in.PaymentMethod != nil {
		method := strings.ToLower(strings.TrimSpace(*in.PaymentMethod))
		if !models.IsValidPaymentMethod(method) {
			return nil, apperr.InvalidInput("Invalid payment method")
		}
		updates["payment_method"] = method
	}
	if in.PaymentEmail != nil {
		pe := strings.TrimSpace(*in.PaymentEmail)
		if pe != "" {
			if err := validate.Var(pe, "email,max=200"); err != nil {
				return nil, apperr.InvalidInput("Invalid payment email")
			}
			updates["payment_email"] = pe
		}
	}
	if len(updates) == 0 {
		return a, nil
	}
	if err := s.repo.UpdateAffiliate(ctx, a.ID, updates); err != nil {
		return nil, apperr.Internal(err, "Failed to update affiliate")
	}
	return s.GetByID(ctx, a.ID)
}

// SetActive toggles whether the affiliate's code still attributes traffic.
func (s *Service) SetActive(ctx context.Context, id string, active bool) error {
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateAffiliate(ctx, a.ID, map[string]interface{}{"is_active": active}); err != nil {
		return apperr.Internal(err, "Failed to update affiliate")
	}
	return nil
}
