package affiliate

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AffiliateFox/app/models"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
)

// Tier is one badge level. A tier is reached when either threshold is met.
type Tier struct {
	Badge       string
	Conversions int64
	Earnings    decimal.Decimal
}

// Tiers are ordered from lowest to highest.
var Tiers = []Tier{
	{Badge: models.BadgeBronze, Conversions: 0, Earnings: decimal.Zero},
	{Badge: models.BadgeSilver, Conversions: 5, Earnings: decimal.NewFromInt(250)},
	{Badge: models.BadgeGold, Conversions: 20, Earnings: decimal.NewFromInt(1000)},
	{Badge: models.BadgePlatinum, Conversions: 50, Earnings: decimal.NewFromInt(5000)},
	{Badge: models.BadgeDiamond, Conversions: 100, Earnings: decimal.NewFromInt(10000)},
}

func BadgeFor(conversions int64, earnings decimal.Decimal) string {
	badge := Tiers[0].Badge
	for _, t := range Tiers {
		if conversions >= t.Conversions || earnings.GreaterThanOrEqual(t.Earnings) {
			badge = t.Badge
		}
	}
	return badge
}

func tierIndex(badge string) int {
	for i, t := range Tiers {
		if t.Badge == badge {
			return i
		}
	}
	return 0
}

// Aggregate derives an affiliate's totals from its full conversion history.
func Aggregate(conversions []models.AffiliateConversion) Totals {
	totals := Totals{
		TotalEarnings:    decimal.Zero,
		PendingPayout:    decimal.Zero,
		LifetimeEarnings: decimal.Zero,
	}
	for _, c := range conversions {
		switch c.Status {
		case models.ConversionStatusRefunded:
			continue
		case models.ConversionStatusPending:
			totals.PendingPayout = totals.PendingPayout.Add(c.CommissionAmount)
		case models.ConversionStatusPaid:
			totals.LifetimeEarnings = totals.LifetimeEarnings.Add(c.CommissionAmount)
		}
		totals.TotalConversions++
		totals.TotalEarnings = totals.TotalEarnings.Add(c.CommissionAmount)
	}
	totals.Badge = BadgeFor(totals.TotalConversions, totals.TotalEarnings)
	return totals
}

// Recompute rewrites the affiliate's balance fields from its conversions.
func (s *Service) Recompute(ctx context.Context, affiliateID string) (Totals, error) {
	if affiliateID == "" {
		return Totals{}, apperr.InvalidInput("affiliateId is required")
	}
	if _, err := s.repo.FindAffiliateByID(ctx, affiliateID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Totals{}, apperr.NotFound("Affiliate not found")
		}
		return Totals{}, apperr.Internal(err, "Failed to load affiliate")
	}
	return recompute(ctx, s.repo, affiliateID)
}

func recompute(ctx context.Context, repo Repository, affiliateID string) (Totals, error) {
	conversions, err := repo.ListConversions(ctx, affiliateID)
	if err != nil {
		return Totals{}, apperr.Internal(err, "Failed to load conversions")
	}
	totals := Aggregate(conversions)
	if err := repo.UpdateTotals(ctx, affiliateID, totals); err != nil {
		return Totals{}, apperr.Internal(err, "Failed to update affiliate totals")
	}
	return totals, nil
}

// ReconcileClicks sets total_clicks to the number of recorded clicks.
func (s *Service) ReconcileClicks(ctx context.Context, affiliateID string) (int64, error) {
	if _, err := s.repo.FindAffiliateByID(ctx, affiliateID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperr.NotFound("Affiliate not found")
		}
		return 0, apperr.Internal(err, "Failed to load affiliate")
	}
	n, err := s.repo.CountClicks(ctx, affiliateID, nil)
	if err != nil {
		return 0, apperr.Internal(err, "Failed to count clicks")
	}
	if err := s.repo.SetTotalClicks(ctx, affiliateID, n); err != nil {
		return 0, apperr.Internal(err, "Failed to update clicks")
	}
	log.Infof("[Affiliate] Reconciled clicks for %s: %d", affiliateID, n)
	return n, nil
}

// RecomputeAll reconciles clicks and rebuilds balances for every affiliate.
// A failing affiliate is logged and skipped; the count of rebuilt ones is returned.
func (s *Service) RecomputeAll(ctx context.Context) (int, error) {
	ids, err := s.repo.ListAffiliateIDs(ctx)
	if err != nil {
		return 0, apperr.Internal(err, "Failed to list affiliates")
	}
	done := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := s.ReconcileClicks(ctx, id); err != nil {
			log.Errorf("[Affiliate] Reconciling clicks for %s failed: %v", id, err)
			continue
		}
		if _, err := recompute(ctx, s.repo, id); err != nil {
			log.Errorf("[Affiliate] Recompute for %s failed: %v", id, err)
			continue
		}
		done++
	}
	return done, nil
}
