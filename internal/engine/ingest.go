package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/harborplay/roundengine/internal/clock"
	"github.com/harborplay/roundengine/internal/domain"
	"github.com/harborplay/roundengine/internal/game"
)

// Ingest is the bet acceptance service. It validates the category against
// the game config, checks the betting window, updates the exposure ledger
// and bettor registry, and records the accepted bet for audit. Rejections
// never mutate ledger state.
type Ingest struct {
	games        *game.Registry
	ledger       domain.ExposureLedger
	registry     domain.BettorRegistry
	bets         domain.BetStore // optional
	freezeMargin int
	loc          *time.Location
	logger       *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewIngest creates the ingestion service. bets may be nil when audit
// persistence is disabled.
func NewIngest(games *game.Registry, ledger domain.ExposureLedger, registry domain.BettorRegistry, bets domain.BetStore, freezeMargin int, loc *time.Location, logger *slog.Logger) *Ingest {
	return &Ingest{
		games:        games,
		ledger:       ledger,
		registry:     registry,
		bets:         bets,
		freezeMargin: freezeMargin,
		loc:          loc,
		logger:       logger.With(slog.String("component", "ingest")),
		now:          time.Now,
	}
}

// AcceptBet accepts a wager on the current period of (gameType, duration,
// timeline). It returns domain.ErrBettingClosed once the window is frozen,
// domain.ErrInvalidCategory for categories the game does not pay, and
// domain.ErrUnknownGame / ErrUnknownDuration for disabled combinations.
func (in *Ingest) AcceptBet(ctx context.Context, gameType string, duration int, timeline, bettorID, category string, stake int64) (domain.Bet, error) {
	if stake <= 0 {
		return domain.Bet{}, domain.ErrInvalidStake
	}
	if bettorID == "" {
		return domain.Bet{}, fmt.Errorf("ingest: empty bettor id: %w", domain.ErrInvalidStake)
	}

	g, err := in.games.Lookup(gameType, duration, timeline)
	if err != nil {
		return domain.Bet{}, err
	}

	odds, ok := g.Odds(category)
	if !ok {
		return domain.Bet{}, domain.ErrInvalidCategory
	}

	now := in.now()
	info := clock.PeriodAt(now, in.loc, duration)
	if StateFor(info.Remaining, in.freezeMargin) != domain.WindowOpen {
		return domain.Bet{}, domain.ErrBettingClosed
	}

	key := domain.PeriodKey{
		GameType: gameType,
		Duration: duration,
		Timeline: timeline,
		PeriodID: info.PeriodID,
	}
	payout := domain.Payout(stake, odds)

	if err := in.ledger.Increment(ctx, key, []string{category}, payout); err != nil {
		return domain.Bet{}, fmt.Errorf("ingest: exposure increment %s: %w", key, err)
	}
	if err := in.registry.Add(ctx, key, bettorID); err != nil {
		// Roll the exposure back so the rejected bet leaves no trace. If the
		// rollback fails too the leftover exposure only makes the selector
		// more cautious, but it still deserves a loud log line.
		if rbErr := in.ledger.Increment(ctx, key, []string{category}, -payout); rbErr != nil {
			in.logger.ErrorContext(ctx, "exposure rollback failed",
				slog.String("period", key.String()),
				slog.String("category", category),
				slog.Int64("amount", payout),
				slog.String("error", rbErr.Error()),
			)
		}
		return domain.Bet{}, fmt.Errorf("ingest: register bettor %s: %w", key, err)
	}

	bet := domain.Bet{
		ID:              uuid.NewString(),
		GameType:        gameType,
		Duration:        duration,
		Timeline:        timeline,
		PeriodID:        info.PeriodID,
		BettorID:        bettorID,
		Category:        category,
		Stake:           stake,
		PotentialPayout: payout,
		CreatedAt:       now.UTC(),
	}

	// The bet already counts toward exposure; a failed audit insert must not
	// reject it. Log and move on.
	if in.bets != nil {
		if err := in.bets.Insert(ctx, bet); err != nil {
			in.logger.WarnContext(ctx, "bet audit insert failed",
				slog.String("bet_id", bet.ID),
				slog.String("period", key.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	return bet, nil
}

// PeriodInfo computes the live snapshot for a pair straight from the clock.
// Any process produces the identical answer for the same instant, which is
// what gateways poll when they are not streaming from the bus.
func (in *Ingest) PeriodInfo(gameType string, duration int, timeline string) (domain.PeriodSnapshot, error) {
	if _, err := in.games.Lookup(gameType, duration, timeline); err != nil {
		return domain.PeriodSnapshot{}, err
	}

	info := clock.PeriodAt(in.now(), in.loc, duration)
	return domain.PeriodSnapshot{
		GameType:      gameType,
		Duration:      duration,
		Timeline:      timeline,
		PeriodID:      info.PeriodID,
		StartTime:     info.Start,
		EndTime:       info.End,
		TimeRemaining: info.Remaining,
		State:         StateFor(info.Remaining, in.freezeMargin),
	}, nil
}
