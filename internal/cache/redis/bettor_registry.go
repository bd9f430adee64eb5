package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/harborplay/roundengine/internal/domain"
)

// BettorRegistry implements domain.BettorRegistry on a Redis set per period:
// key "bettors:{game}:{duration}:{timeline}:{periodId}". SADD is naturally
// idempotent, so repeated adds of the same bettor never change the count.
type BettorRegistry struct {
	rdb *redis.Client
}

// NewBettorRegistry creates a BettorRegistry backed by the given Client.
func NewBettorRegistry(c *Client) *BettorRegistry {
	return &BettorRegistry{rdb: c.Underlying()}
}

func bettorsKey(key domain.PeriodKey) string {
	return "bettors:" + key.String()
}

// Add records a bettor for the period.
func (br *BettorRegistry) Add(ctx context.Context, key domain.PeriodKey, bettorID string) error {
	if err := br.rdb.SAdd(ctx, bettorsKey(key), bettorID).Err(); err != nil {
		return fmt.Errorf("redis: bettor add %s: %w", key, err)
	}
	return nil
}

// Count returns the number of distinct bettors for the period.
func (br *BettorRegistry) Count(ctx context.Context, key domain.PeriodKey) (int64, error) {
	n, err := br.rdb.SCard(ctx, bettorsKey(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: bettor count %s: %w", key, err)
	}
	return n, nil
}

// Expire schedules the period's set for removal after ttl.
func (br *BettorRegistry) Expire(ctx context.Context, key domain.PeriodKey, ttl time.Duration) error {
	if err := br.rdb.Expire(ctx, bettorsKey(key), ttl).Err(); err != nil {
		return fmt.Errorf("redis: bettor expire %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.BettorRegistry = (*BettorRegistry)(nil)
