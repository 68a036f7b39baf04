package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/pactas/pactas/internal/domain"
)

// PoolCache implements domain.PoolCache using Redis hashes. Each question's
// totals live in a hash at key "pool:{questionID}" with fields "yes" and
// "no". The cache is advisory: it is written after commit and a miss falls
// back to the store.
type PoolCache struct {
	rdb *redis.Client
}

// NewPoolCache creates a PoolCache backed by the given Client.
func NewPoolCache(c *Client) *PoolCache {
	return &PoolCache{rdb: c.Underlying()}
}

func poolKey(questionID string) string {
	return "pool:" + questionID
}

// Set overwrites both totals for a question.
func (pc *PoolCache) Set(ctx context.Context, totals domain.PoolTotals) error {
	fields := map[string]interface{}{
		"yes": strconv.FormatInt(totals.Yes, 10),
		"no":  strconv.FormatInt(totals.No, 10),
	}
	if err := pc.rdb.HSet(ctx, poolKey(totals.QuestionID), fields).Err(); err != nil {
		return fmt.Errorf("redis: set pool %s: %w", totals.QuestionID, err)
	}
	return nil
}

// Add increments one side's running total after a stake commits. It is a
// no-op when the key does not exist, so a cold cache stays cold until Set
// backfills it from the store.
func (pc *PoolCache) Add(ctx context.Context, questionID string, prediction domain.Prediction, amount int64) error {
	key := poolKey(questionID)

	exists, err := pc.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis: check pool %s: %w", questionID, err)
	}
	if exists == 0 {
		return nil
	}

	field := "no"
	if prediction == domain.PredictionYes {
		field = "yes"
	}
	if err := pc.rdb.HIncrBy(ctx, key, field, amount).Err(); err != nil {
		return fmt.Errorf("redis: incr pool %s: %w", questionID, err)
	}
	return nil
}

// Get retrieves the cached totals, or domain.ErrNotFound on a miss.
func (pc *PoolCache) Get(ctx context.Context, questionID string) (domain.PoolTotals, error) {
	vals, err := pc.rdb.HGetAll(ctx, poolKey(questionID)).Result()
	if err != nil {
		return domain.PoolTotals{}, fmt.Errorf("redis: get pool %s: %w", questionID, err)
	}
	if len(vals) == 0 {
		return domain.PoolTotals{}, domain.ErrNotFound
	}

	totals := domain.PoolTotals{QuestionID: questionID}
	if totals.Yes, err = strconv.ParseInt(vals["yes"], 10, 64); err != nil {
		return domain.PoolTotals{}, fmt.Errorf("redis: parse pool %s yes total: %w", questionID, err)
	}
	if totals.No, err = strconv.ParseInt(vals["no"], 10, 64); err != nil {
		return domain.PoolTotals{}, fmt.Errorf("redis: parse pool %s no total: %w", questionID, err)
	}
	return totals, nil
}

// Invalidate removes the cached totals, typically after resolution.
func (pc *PoolCache) Invalidate(ctx context.Context, questionID string) error {
	if err := pc.rdb.Del(ctx, poolKey(questionID)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate pool %s: %w", questionID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.PoolCache = (*PoolCache)(nil)
