package license

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/AffiliateFox/app/models"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/codegen"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/entitlements"
)

const (
	ReasonInactive = "License is not active"
	ReasonExpired  = "License has expired"
)

// Validation is the outcome of checking a well-formed, known key. A key that
// exists but cannot be used has Valid=false and a Reason.
type Validation struct {
	Valid   bool
	Reason  string
	License *models.License
	Limits  entitlements.Limits
}

// Validate checks a license key. Malformed keys are InvalidInput, unknown keys NotFound.
func (s *Service) Validate(ctx context.Context, key string) (*Validation, error) {
	key = strings.ToUpper(strings.TrimSpace(key))
	if key == "" {
		return nil, apperr.InvalidInput("License key required")
	}
	if !codegen.ValidLicenseKey(key) {
		return nil, apperr.InvalidInput("Invalid license key format")
	}

	lic, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to load license")
	}
	if lic == nil {
		return nil, apperr.NotFound("License key not found")
	}

	v := &Validation{License: lic, Limits: entitlements.LimitsFor(entitlements.Plan(lic.Plan))}
	now := s.now()
	switch {
	case lic.Status != models.LicenseStatusActive:
		v.Reason = ReasonInactive
	case lic.IsExpired(now):
		v.Reason = ReasonExpired
	default:
		v.Valid = true
		if lic.ActivatedAt == nil {
			at := now.UTC().Truncate(time.Second)
			if err := s.repo.Activate(ctx, lic.ID, at); err != nil {
				log.Warnf("[License] Activating %s failed: %v", lic.LicenseKey, err)
			} else {
				lic.ActivatedAt = &at
			}
		}
	}
	return v, nil
}

// Status is the subscription view of a customer.
type Status struct {
	HasSubscription bool                  `json:"has_subscription"`
	Tier            entitlements.Plan     `json:"tier"`
	Status          string                `json:"status,omitempty"`
	LicenseKey      string                `json:"license_key,omitempty"`
	ExpiresAt       *time.Time            `json:"expires_at,omitempty"`
	Limits          entitlements.Limits   `json:"limits"`
	Features        entitlements.Features `json:"features"`
}

// FreeStatus is reported for customers without a usable license.
func FreeStatus() *Status {
	l := entitlements.LimitsFor(entitlements.PlanFree)
	return &Status{Tier: entitlements.PlanFree, Limits: l, Features: l.Features()}
}

// StatusFor resolves the best usable license by key or email. Without one it
// returns NotFound.
func (s *Service) StatusFor(ctx context.Context, email, key string) (*Status, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	key = strings.ToUpper(strings.TrimSpace(key))
	if email == "" && key == "" {
		return nil, apperr.InvalidInput("email or license_key required")
	}

	var candidates []models.License
	if key != "" {
		lic, err := s.repo.GetByKey(ctx, key)
		if err != nil {
			return nil, apperr.Internal(err, "Failed to load license")
		}
		if lic != nil {
			candidates = append(candidates, *lic)
		}
	} else {
		list, err := s.repo.ListByEmail(ctx, email)
		if err != nil {
			return nil, apperr.Internal(err, "Failed to load licenses")
		}
		candidates = list
	}

	now := s.now()
	var best *models.License
	for i := range candidates {
		c := &candidates[i]
		if c.Status != models.LicenseStatusActive || c.IsExpired(now) {
			continue
		}
		if best == nil || entitlements.Rank(entitlements.Plan(c.Plan)) > entitlements.Rank(entitlements.Plan(best.Plan)) {
			best = c
		}
	}
	if best == nil {
		return nil, apperr.NotFound("No active subscription found")
	}

	tier := entitlements.NormalizePlan(best.Plan, entitlements.PlanStarter)
	limits := entitlements.LimitsFor(tier)
	return &Status{
		HasSubscription: true,
		Tier:            tier,
		Status:          best.Status,
		LicenseKey:      best.LicenseKey,
		ExpiresAt:       best.ExpiresAt,
		Limits:          limits,
		Features:        limits.Features(),
	}, nil
}
