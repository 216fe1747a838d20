package affiliate

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"

	"github.com/ManuelReschke/AffiliateFox/app/models"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/apperr"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/cache"
)

const (
	recentConversionsLimit = 5
	leaderboardLimit       = 10
	leaderboardCacheKey    = "affiliate:leaderboard"
	leaderboardCacheTTL    = 60 * time.Second
	payoutDayOfMonth       = 5
)

var thousand = decimal.NewFromInt(1000)

// Stats returns the dashboard numbers for one affiliate.
func (s *Service) Stats(ctx context.Context, affiliateID string) (*Stats, error) {
	a, err := s.GetByID(ctx, affiliateID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	monthClicks, err := s.repo.CountClicks(ctx, a.ID, &monthStart)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to load clicks")
	}
	conversions, err := s.repo.ListConversions(ctx, a.ID)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to load conversions")
	}

	stats := &Stats{
		AffiliateID:       a.ID,
		ReferralCode:      a.ReferralCode,
		ReferralLink:      s.ReferralLink(a.ReferralCode),
		TotalClicks:       a.TotalClicks,
		TotalConversions:  a.TotalConversions,
		TotalEarnings:     a.TotalEarnings,
		PendingPayout:     a.PendingPayout,
		LifetimeEarnings:  a.LifetimeEarnings,
		MonthClicks:       monthClicks,
		MonthEarnings:     decimal.Zero,
		ConversionRate:    ConversionRate(a.TotalConversions, a.TotalClicks),
		Badge:             a.Badge,
		RecentConversions: make([]RecentConversion, 0, recentConversionsLimit),
	}

	for _, c := range conversions {
		if len(stats.RecentConversions) < recentConversionsLimit {
			stats.RecentConversions = append(stats.RecentConversions, RecentConversion{
				ID:          c.ID,
				ProductName: c.ProductName,
				Commission:  c.CommissionAmount,
				Status:      c.Status,
				IsRecurring: c.IsRecurring,
				CreatedAt:   c.CreatedAt,
			})
		}
		if c.Status == models.ConversionStatusRefunded || c.CreatedAt.Before(monthStart) {
			continue
		}
		stats.MonthConversions++
		stats.MonthEarnings = stats.MonthEarnings.Add(c.CommissionAmount)
	}
	stats.Achievements = achievements(a)

	return stats, nil
}

// ConversionRate is conversions per click in percent with one decimal.
func ConversionRate(conversions, clicks int64) float64 {
	if clicks <= 0 {
		return 0
	}
	return math.Round(float64(conversions)/float64(clicks)*1000) / 10
}

func achievements(a *models.Affiliate) []Achievement {
	return []Achievement{
		{ID: "first_sale", Title: "First Sale", Unlocked: a.TotalConversions >= 1},
		{ID: "ten_conversions", Title: "10 Conversions", Unlocked: a.TotalConversions >= 10},
		{ID: "gold_rank", Title: "Gold Rank", Unlocked: tierIndex(a.Badge) >= tierIndex(models.BadgeGold)},
		{ID: "thousand_earned", Title: "$1,000 Earned", Unlocked: a.TotalEarnings.GreaterThanOrEqual(thousand)},
	}
}

// Dashboard adds rank progression and the next payout date to Stats.
func (s *Service) Dashboard(ctx context.Context, affiliateID string) (*Dashboard, error) {
	stats, err := s.Stats(ctx, affiliateID)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		Stats:          stats,
		Rank:           RankProgression(stats.Badge, stats.TotalConversions),
		NextPayoutDate: NextPayoutDate(s.now()),
	}, nil
}

// RankProgression reports progress toward the next tier's conversion threshold.
func RankProgression(badge string, conversions int64) RankProgress {
	idx := tierIndex(badge)
	rp := RankProgress{Current: Tiers[idx].Badge, Progress: 100}
	if idx == len(Tiers)-1 {
		return rp
	}
	cur, next := Tiers[idx], Tiers[idx+1]
	rp.Next = next.Badge
	span := next.Conversions - cur.Conversions
	done := conversions - cur.Conversions
	if done < 0 {
		done = 0
	}
	rp.Progress = int(math.Min(100, float64(done)*100/float64(span)))
	if togo := next.Conversions - conversions; togo > 0 {
		rp.ConversionsToGo = togo
	}
	return rp
}

// NextPayoutDate is the 5th of the month after now.
func NextPayoutDate(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month()+1, payoutDayOfMonth, 0, 0, 0, 0, time.UTC)
}

// Leaderboard lists the top active affiliates by earnings. Results are cached
// briefly when Redis is available.
func (s *Service) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	if raw, err := cache.Get(leaderboardCacheKey); err == nil && raw != "" {
		var cached []LeaderboardEntry
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return cached, nil
		}
	}

	list, err := s.repo.TopAffiliates(ctx, leaderboardLimit)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to load leaderboard")
	}
	entries := make([]LeaderboardEntry, 0, len(list))
	for i := range list {
		a := &list[i]
		entries = append(entries, LeaderboardEntry{
			Rank:        i + 1,
			Name:        a.DisplayName(),
			Badge:       a.Badge,
			Conversions: a.TotalConversions,
			Earnings:    "$" + a.TotalEarnings.StringFixed(2),
		})
	}

	if cache.Available() {
		if data, err := json.Marshal(entries); err == nil {
			if err := cache.Set(leaderboardCacheKey, string(data), leaderboardCacheTTL); err != nil {
				log.Warnf("[Affiliate] Failed to cache leaderboard: %v", err)
			}
		}
	}
	return entries, nil
}
