package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harborplay/roundengine/internal/domain"
)

// BetStore implements domain.BetStore using PostgreSQL. Bets are an audit
// trail for settlement consumers; the exposure ledger, not this table, is
// what the selector reads at closure.
type BetStore struct {
	pool *pgxpool.Pool
}

// NewBetStore creates a BetStore backed by the given connection pool.
func NewBetStore(pool *pgxpool.Pool) *BetStore {
	return &BetStore{pool: pool}
}

// Insert records an accepted bet.
func (s *BetStore) Insert(ctx context.Context, bet domain.Bet) error {
	const query = `
		INSERT INTO bets (
			id, game_type, duration, timeline, period_id,
			bettor_id, category, stake, potential_payout, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.pool.Exec(ctx, query,
		bet.ID, bet.GameType, bet.Duration, bet.Timeline, bet.PeriodID,
		bet.BettorID, bet.Category, bet.Stake, bet.PotentialPayout, bet.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert bet %s: %w", bet.ID, err)
	}
	return nil
}

// ListByPeriod returns every accepted bet for a period in insertion order.
func (s *BetStore) ListByPeriod(ctx context.Context, key domain.PeriodKey) ([]domain.Bet, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, game_type, duration, timeline, period_id,
		        bettor_id, category, stake, potential_payout, created_at
		 FROM bets
		 WHERE game_type = $1 AND duration = $2 AND timeline = $3 AND period_id = $4
		 ORDER BY created_at`,
		key.GameType, key.Duration, key.Timeline, key.PeriodID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bets %s: %w", key, err)
	}
	defer rows.Close()

	var bets []domain.Bet
	for rows.Next() {
		var b domain.Bet
		err := rows.Scan(
			&b.ID, &b.GameType, &b.Duration, &b.Timeline, &b.PeriodID,
			&b.BettorID, &b.Category, &b.Stake, &b.PotentialPayout, &b.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan bet: %w", err)
		}
		bets = append(bets, b)
	}
	return bets, rows.Err()
}

// Compile-time interface check.
var _ domain.BetStore = (*BetStore)(nil)
