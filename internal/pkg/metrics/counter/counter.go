package counter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AffiliateFox/internal/pkg/cache"
)

const (
	affiliateClicksKey = "affiliate:counters:clicks"
)

// ClickCounter increments affiliate click totals. With Redis the increment is
// buffered in a hash and applied by Flush; without it the row is updated directly.
type ClickCounter struct {
	db  *gorm.DB
	rdb *redis.Client
}

func NewClickCounter(db *gorm.DB, rdb *redis.Client) *ClickCounter {
	return &ClickCounter{db: db, rdb: rdb}
}

// NewDefaultClickCounter uses the shared cache client, if any.
func NewDefaultClickCounter(db *gorm.DB) *ClickCounter {
	return NewClickCounter(db, cache.GetClient())
}

func (c *ClickCounter) AddClick(ctx context.Context, affiliateID string) error {
	if affiliateID == "" {
		return errors.New("affiliate id is required")
	}
	if c.rdb != nil {
		return c.rdb.HIncrBy(ctx, affiliateClicksKey, affiliateID, 1).Err()
	}
	return c.db.WithContext(ctx).
		Exec("UPDATE affiliates SET total_clicks = total_clicks + 1 WHERE id = ?", affiliateID).Error
}

// Flush drains buffered increments into the affiliates table.
func (c *ClickCounter) Flush(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	return flushHashToTable(ctx, c.rdb, c.db, affiliateClicksKey, "affiliates", "total_clicks")
}

// flushHashToTable drains a Redis hash atomically and applies batched increments.
// RENAME to a temporary key keeps in-flight increments in the live hash.
func flushHashToTable(ctx context.Context, rdb *redis.Client, db *gorm.DB, redisKey, table, column string) error {
	tmpKey := fmt.Sprintf("%s:tmp:%d", redisKey, time.Now().UnixNano())
	if err := rdb.Rename(ctx, redisKey, tmpKey).Err(); err != nil {
		if errors.Is(err, redis.Nil) || strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return nil
		}
		return err
	}

	defer rdb.Del(ctx, tmpKey)

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}
	sql, args := buildIncrementSQL(table, column, data)
	if sql == "" {
		return nil
	}
	return db.WithContext(ctx).Exec(sql, args...).Error
}

// buildIncrementSQL composes
// UPDATE <table> SET <column> = <column> + CASE id WHEN ? THEN ? ... END WHERE id IN (...)
// with ids sorted for stable SQL. Zero and unparsable increments are skipped.
func buildIncrementSQL(table, column string, data map[string]string) (string, []interface{}) {
	type pair struct {
		id  string
		inc int64
	}
	pairs := make([]pair, 0, len(data))
	for k, v := range data {
		if k == "" {
			continue
		}
		inc, err := strconv.ParseInt(v, 10, 64)
		if err != nil || inc == 0 {
			continue
		}
		pairs = append(pairs, pair{id: k, inc: inc})
	}
	if len(pairs) == 0 {
		return "", nil
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].id < pairs[j].id })

	var builder strings.Builder
	args := make([]interface{}, 0, len(pairs)*3)
	builder.WriteString("UPDATE ")
	builder.WriteString(table)
	builder.WriteString(" SET ")
	builder.WriteString(column)
	builder.WriteString(" = ")
	builder.WriteString(column)
	builder.WriteString(" + CASE id")
	for _, p := range pairs {
		builder.WriteString(" WHEN ? THEN ?")
		args = append(args, p.id, p.inc)
	}
	builder.WriteString(" ELSE 0 END WHERE id IN (")
	for i, p := range pairs {
		if i > 0 {
			builder.WriteString(",")
		}
		builder.WriteString("?")
		args = append(args, p.id)
	}
	builder.WriteString(")")

	return builder.String(), args
}
