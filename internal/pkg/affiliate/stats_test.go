package affiliate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/AffiliateFox/app/models"
)

func TestStats(t *testing.T) {
	svc, db, _ := newTestService(t)
	a := createAffiliate(t, db, "stats@example.com", "STAT2345")
	for i := 0; i < 4; i++ {
		_, err := svc.RecordClick(context.Background(), "STAT2345", ClickContext{RemoteIP: "1.1.1.1"})
		require.NoError(t, err)
	}
	_, err := svc.ReconcileClicks(context.Background(), a.ID)
	require.NoError(t, err)
	recordSale(t, svc, "o1", "STAT2345", "Pro", "99")

	stats, err := svc.Stats(context.Background(), a.ID)
	require.NoError(t, err)

	assert.Equal(t, "STAT2345", stats.ReferralCode)
	assert.Equal(t, "https://example.com?ref=STAT2345", stats.ReferralLink)
	assert.Equal(t, int64(4), stats.TotalClicks)
	assert.Equal(t, int64(4), stats.MonthClicks)
	assert.Equal(t, int64(1), stats.MonthConversions)
	assert.Equal(t, "39.60", stats.MonthEarnings.StringFixed(2))
	assert.Equal(t, 25.0, stats.ConversionRate)
	assert.Len(t, stats.RecentConversions, 1)
	require.Len(t, stats.Achievements, 4)
	assert.Equal(t, "first_sale", stats.Achievements[0].ID)
	assert.True(t, stats.Achievements[0].Unlocked)
	assert.False(t, stats.Achievements[1].Unlocked)
}

func TestConversionRate(t *testing.T) {
	assert.Equal(t, 0.0, ConversionRate(3, 0))
	assert.Equal(t, 33.3, ConversionRate(1, 3))
	assert.Equal(t, 66.7, ConversionRate(2, 3))
}

func TestRankProgression(t *testing.T) {
	rp := RankProgression(models.BadgeBronze, 2)
	assert.Equal(t, models.BadgeSilver, rp.Next)
	assert.Equal(t, 40, rp.Progress)
	assert.Equal(t, int64(3), rp.ConversionsToGo)

	rp = RankProgression(models.BadgeSilver, 5)
	assert.Equal(t, models.BadgeGold, rp.Next)
	assert.Equal(t, 0, rp.Progress)

	rp = RankProgression(models.BadgeDiamond, 150)
	assert.Empty(t, rp.Next)
	assert.Equal(t, 100, rp.Progress)
}

func TestNextPayoutDate(t *testing.T) {
	assert.Equal(t, time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC), NextPayoutDate(time.Date(2025, 1, 20, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), NextPayoutDate(time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)))
}

func TestDashboard(t *testing.T) {
	svc, db, _ := newTestService(t)
	a := createAffiliate(t, db, "dash@example.com", "DASH2345")

	d, err := svc.Dashboard(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BadgeBronze, d.Rank.Current)
	assert.Equal(t, 5, d.NextPayoutDate.Day())
}

func TestLeaderboard(t *testing.T) {
	svc, db, _ := newTestService(t)
	top := createAffiliate(t, db, "top@example.com", "TOPP2345")
	second := createAffiliate(t, db, "second@example.com", "SCND2345")
	require.NoError(t, db.Model(&models.Affiliate{}).Where("id = ?", second.ID).Update("name", "").Error)
	idle := createAffiliate(t, db, "idle@example.com", "IDLE2345")
	off := createAffiliate(t, db, "off@example.com", "OFFF2345")

	recordSale(t, svc, "o1", "TOPP2345", "Pro", "500")
	recordSale(t, svc, "o2", "SCND2345", "Pro", "100")
	recordSale(t, svc, "o3", "OFFF2345", "Pro", "900")
	require.NoError(t, svc.SetActive(context.Background(), off.ID, false))
	_ = idle

	entries, err := svc.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, top.Name, entries[0].Name)
	assert.Equal(t, "$200.00", entries[0].Earnings)
	assert.Equal(t, "Affiliate "+second.ID[:4], entries[1].Name)
	assert.Equal(t, "$40.00", entries[1].Earnings)
}
