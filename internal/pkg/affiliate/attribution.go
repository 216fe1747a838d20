package affiliate

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AffiliateFox/app/models"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/security"
)

// ResolveCode returns the active affiliate owning code.
func (s *Service) ResolveCode(ctx context.Context, code string) (*models.Affiliate, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, apperr.InvalidInput("Missing referral code")
	}
	a, err := s.repo.FindAffiliateByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Invalid referral code")
		}
		return nil, apperr.Internal(err, "Failed to resolve referral code")
	}
	if !a.IsActive {
		return nil, apperr.NotFound("Invalid referral code")
	}
	return a, nil
}

// RecordClick stores a click for an active affiliate and issues the
// attribution token for the 60 day window.
func (s *Service) RecordClick(ctx context.Context, referralCode string, cc ClickContext) (*ClickResult, error) {
	a, err := s.ResolveCode(ctx, referralCode)
	if err != nil {
		return nil, err
	}

	device, browser := ClassifyUserAgent(cc.UserAgent)
	landing := strings.TrimSpace(cc.LandingPage)
	if landing == "" {
		landing = "/"
	}

	click := &models.AffiliateClick{
		AffiliateID:  a.ID,
		ReferralCode: a.ReferralCode,
		Source:       truncate(cc.Source, 100),
		Medium:       truncate(cc.Medium, 100),
		Campaign:     truncate(cc.Campaign, 100),
		LandingPage:  truncate(landing, 500),
		IPHash:       HashIP(ClientIP(cc.RemoteIP), s.cfg.IPSalt),
		UserAgent:    truncateUserAgent(cc.UserAgent),
		Device:       device,
		Browser:      browser,
	}
	if err := s.repo.CreateClick(ctx, click); err != nil {
		return nil, apperr.Internal(err, "Failed to track click")
	}

	if s.clicks != nil {
		if err := s.clicks.AddClick(ctx, a.ID); err != nil {
			log.Warnf("[Affiliate] Failed to increment clicks for %s: %v", a.ID, err)
		}
	}

	return &ClickResult{
		Click: click,
		Token: security.NewAttributionToken(a.ReferralCode, click.ID, s.now()),
	}, nil
}

func truncate(v string, n int) string {
	v = strings.TrimSpace(v)
	if len(v) <= n {
		return v
	}
	return v[:n]
}
