package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harborplay/roundengine/internal/domain"
)

// ResultStore implements domain.ResultStore using PostgreSQL. The UNIQUE
// constraint on (game_type, duration, timeline, period_id) is the single
// source of exactly-once truth: a losing writer reads back and adopts the
// winning row rather than erroring the round.
type ResultStore struct {
	pool *pgxpool.Pool
}

// NewResultStore creates a ResultStore backed by the given connection pool.
func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

// Commit inserts the candidate result. On a uniqueness conflict it returns
// the already-stored result with fresh=false; the candidate is discarded.
func (s *ResultStore) Commit(ctx context.Context, res domain.Result) (domain.Result, bool, error) {
	var display []byte
	if res.Display != nil {
		b, err := json.Marshal(res.Display)
		if err != nil {
			return domain.Result{}, false, fmt.Errorf("postgres: marshal display %s: %w", res.Key(), err)
		}
		display = b
	}

	const insert = `
		INSERT INTO results (
			game_type, duration, timeline, period_id,
			outcome, display, verification_hash, branch, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT ON CONSTRAINT results_period_unique DO NOTHING`

	tag, err := s.pool.Exec(ctx, insert,
		res.GameType, res.Duration, res.Timeline, res.PeriodID,
		res.Outcome, display, res.VerificationHash, string(res.Branch), res.CreatedAt,
	)
	if err != nil {
		return domain.Result{}, false, fmt.Errorf("postgres: commit result %s: %w", res.Key(), err)
	}

	if tag.RowsAffected() == 1 {
		return res, true, nil
	}

	stored, err := s.Get(ctx, res.Key())
	if err != nil {
		return domain.Result{}, false, fmt.Errorf("postgres: adopt committed result %s: %w", res.Key(), err)
	}
	return stored, false, nil
}

const resultSelectCols = `game_type, duration, timeline, period_id,
	outcome, display, verification_hash, branch, created_at`

func scanResult(scanner interface{ Scan(dest ...any) error }) (domain.Result, error) {
	var res domain.Result
	var branch string
	var display []byte

	err := scanner.Scan(
		&res.GameType, &res.Duration, &res.Timeline, &res.PeriodID,
		&res.Outcome, &display, &res.VerificationHash, &branch, &res.CreatedAt,
	)
	if err != nil {
		return domain.Result{}, err
	}

	res.Branch = domain.SelectionBranch(branch)
	if len(display) > 0 {
		if err := json.Unmarshal(display, &res.Display); err != nil {
			return domain.Result{}, fmt.Errorf("decode display: %w", err)
		}
	}
	return res, nil
}

// Get retrieves the result for a period key, or domain.ErrNotFound.
func (s *ResultStore) Get(ctx context.Context, key domain.PeriodKey) (domain.Result, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+resultSelectCols+` FROM results
		 WHERE game_type = $1 AND duration = $2 AND timeline = $3 AND period_id = $4`,
		key.GameType, key.Duration, key.Timeline, key.PeriodID,
	)

	res, err := scanResult(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Result{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Result{}, fmt.Errorf("postgres: get result %s: %w", key, err)
	}
	return res, nil
}

// ListRecent returns the latest settled results for a pair, newest first.
func (s *ResultStore) ListRecent(ctx context.Context, gameType string, duration int, timeline string, limit int) ([]domain.Result, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+resultSelectCols+` FROM results
		 WHERE game_type = $1 AND duration = $2 AND timeline = $3
		 ORDER BY created_at DESC
		 LIMIT $4`,
		gameType, duration, timeline, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list results %s/%d/%s: %w", gameType, duration, timeline, err)
	}
	defer rows.Close()

	var results []domain.Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan result: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// Compile-time interface check.
var _ domain.ResultStore = (*ResultStore)(nil)
