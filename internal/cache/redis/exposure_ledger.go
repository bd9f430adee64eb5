package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/harborplay/roundengine/internal/domain"
)

// ExposureLedger implements domain.ExposureLedger on a Redis hash per
// period: key "exposure:{game}:{duration}:{timeline}:{periodId}", one field
// per category bucket, values in int64 minor currency units. HINCRBY gives
// atomic per-bucket increments under arbitrary concurrent ingestion callers;
// a transactional pipeline keeps a multi-bucket bet's increments together so
// they have converged before the closure snapshot is taken.
type ExposureLedger struct {
	rdb *redis.Client
}

// NewExposureLedger creates an ExposureLedger backed by the given Client.
func NewExposureLedger(c *Client) *ExposureLedger {
	return &ExposureLedger{rdb: c.Underlying()}
}

func exposureKey(key domain.PeriodKey) string {
	return "exposure:" + key.String()
}

// Increment adds amount to every bucket for the period.
func (el *ExposureLedger) Increment(ctx context.Context, key domain.PeriodKey, buckets []string, amount int64) error {
	if len(buckets) == 0 {
		return nil
	}

	k := exposureKey(key)
	pipe := el.rdb.TxPipeline()
	for _, b := range buckets {
		pipe.HIncrBy(ctx, k, b, amount)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: exposure increment %s: %w", key, err)
	}
	return nil
}

// Snapshot reads the full bucket -> exposure mapping in one HGETALL. Called
// once per period at the CLOSED transition; mid-round calls are advisory.
func (el *ExposureLedger) Snapshot(ctx context.Context, key domain.PeriodKey) (map[string]int64, error) {
	vals, err := el.rdb.HGetAll(ctx, exposureKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: exposure snapshot %s: %w", key, err)
	}

	snap := make(map[string]int64, len(vals))
	for bucket, raw := range vals {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("redis: exposure snapshot %s: bucket %q: %w", key, bucket, err)
		}
		snap[bucket] = n
	}
	return snap, nil
}

// Expire schedules the period's hash for removal after ttl.
func (el *ExposureLedger) Expire(ctx context.Context, key domain.PeriodKey, ttl time.Duration) error {
	if err := el.rdb.Expire(ctx, exposureKey(key), ttl).Err(); err != nil {
		return fmt.Errorf("redis: exposure expire %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.ExposureLedger = (*ExposureLedger)(nil)
