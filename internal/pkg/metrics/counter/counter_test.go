package counter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/AffiliateFox/app/models"
	"github.com/ManuelReschke/AffiliateFox/internal/pkg/database"
)

func TestBuildIncrementSQL(t *testing.T) {
	sql, args := buildIncrementSQL("affiliates", "total_clicks", map[string]string{
		"b": "2",
		"a": "5",
		"c": "0",
		"d": "oops",
	})

	assert.Equal(t, "UPDATE affiliates SET total_clicks = total_clicks + CASE id WHEN ? THEN ? WHEN ? THEN ? ELSE 0 END WHERE id IN (?,?)", sql)
	assert.Equal(t, []interface{}{"a", int64(5), "b", int64(2), "a", "b"}, args)
}

func TestBuildIncrementSQLEmpty(t *testing.T) {
	sql, args := buildIncrementSQL("affiliates", "total_clicks", map[string]string{"a": "0"})
	assert.Empty(t, sql)
	assert.Nil(t, args)
}

func TestAddClickWithoutRedisUpdatesRow(t *testing.T) {
	db, err := database.OpenSQLite("file:counter_test?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	aff := &models.Affiliate{Email: "c@example.com", ReferralCode: "CNTR2345"}
	require.NoError(t, db.Create(aff).Error)

	c := NewClickCounter(db, nil)
	require.NoError(t, c.AddClick(context.Background(), aff.ID))
	require.NoError(t, c.AddClick(context.Background(), aff.ID))
	require.NoError(t, c.Flush(context.Background()))

	var stored models.Affiliate
	require.NoError(t, db.First(&stored, "id = ?", aff.ID).Error)
	assert.Equal(t, int64(2), stored.TotalClicks)
}

func TestAddClickRequiresID(t *testing.T) {
	c := NewClickCounter(nil, nil)
	assert.Error(t, c.AddClick(context.Background(), ""))
}
