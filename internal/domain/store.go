package domain

import (
	"context"
	"time"
)

// ExposureLedger accumulates potential payout per bucket for a live period.
// Buckets are category-keyed; the outcome selector expands categories to the
// game's outcome space when it takes a snapshot at closure. Increments from
// concurrent ingestion callers must be atomic per bucket and must have
// converged by the time Snapshot is taken at the CLOSED transition;
// mid-round reads are advisory only.
type ExposureLedger interface {
	// Increment adds amount (minor currency units) to each bucket.
	Increment(ctx context.Context, key PeriodKey, buckets []string, amount int64) error
	// Snapshot returns a consistent bucket -> exposure mapping.
	Snapshot(ctx context.Context, key PeriodKey) (map[string]int64, error)
	// Expire schedules the period's ledger data for removal after ttl.
	Expire(ctx context.Context, key PeriodKey, ttl time.Duration) error
}

// BettorRegistry tracks distinct bettors per period. Add is idempotent:
// repeated adds of the same bettor do not change Count.
type BettorRegistry interface {
	Add(ctx context.Context, key PeriodKey, bettorID string) error
	Count(ctx context.Context, key PeriodKey) (int64, error)
	Expire(ctx context.Context, key PeriodKey, ttl time.Duration) error
}

// ResultStore persists settled results exactly once per period key. Commit
// returns the stored result and fresh=true when the candidate won the write,
// or the previously stored result and fresh=false when another writer got
// there first. A losing writer adopts the stored value; it is not an error.
type ResultStore interface {
	Commit(ctx context.Context, res Result) (stored Result, fresh bool, err error)
	Get(ctx context.Context, key PeriodKey) (Result, error)
	ListRecent(ctx context.Context, gameType string, duration int, timeline string, limit int) ([]Result, error)
}

// BetStore persists accepted bets for audit and settlement consumers.
type BetStore interface {
	Insert(ctx context.Context, bet Bet) error
	ListByPeriod(ctx context.Context, key PeriodKey) ([]Bet, error)
}

// CoordinationBus lets the scheduler process and any number of broadcast
// processes agree on the current period and on published results without
// shared memory. The scheduler is the sole writer of period state; broadcast
// processes are readers only. Delivery is at-least-once; subscribers treat
// snapshots as idempotent overwrites keyed by PeriodID.
type CoordinationBus interface {
	PublishPeriodState(ctx context.Context, snap PeriodSnapshot) error
	SubscribePeriodState(ctx context.Context, gameType string, duration int, timeline string) (<-chan PeriodSnapshot, error)
	// CurrentPeriod returns the last published snapshot so late joiners can
	// render a countdown before the next broadcast arrives. The cached entry
	// is ephemeral and never authoritative; PeriodClock is.
	CurrentPeriod(ctx context.Context, gameType string, duration int, timeline string) (PeriodSnapshot, error)
	PublishResult(ctx context.Context, res Result) error
	SubscribeResult(ctx context.Context, gameType string, duration int, timeline string) (<-chan Result, error)
}

// LockManager provides short-lived mutual exclusion so only one resolver
// attempts a period at a time within a deployment. Cross-process result
// races are settled by ResultStore's uniqueness constraint, not by the lock.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// RoundArchiver receives settled rounds for long-term storage.
type RoundArchiver interface {
	ArchiveRound(ctx context.Context, res Result, exposure map[string]int64, bettors int64) error
}
