package engine

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/harborplay/roundengine/internal/domain"
	"github.com/harborplay/roundengine/internal/game"
)

// Selector decides the winning outcome for a closed period. With broad
// participation it draws uniformly from the full outcome space; under the
// protection threshold it prefers outcomes that pay no placed bet, falling
// back to the minimum-exposure set when every outcome is covered.
type Selector struct {
	ledger    domain.ExposureLedger
	registry  domain.BettorRegistry
	threshold int64
	logger    *slog.Logger
}

// NewSelector creates a Selector. threshold is the distinct-bettor count at
// or above which selection switches to normal (uniform) mode.
func NewSelector(ledger domain.ExposureLedger, registry domain.BettorRegistry, threshold int64, logger *slog.Logger) *Selector {
	return &Selector{
		ledger:    ledger,
		registry:  registry,
		threshold: threshold,
		logger:    logger.With(slog.String("component", "selector")),
	}
}

// Select returns the outcome for the period and the branch that produced it.
// It must be called exactly once per period, at the CLOSED transition. The
// branch is recorded for observability but never leaks to clients before
// settlement.
func (s *Selector) Select(ctx context.Context, key domain.PeriodKey, g game.Game) (string, domain.SelectionBranch, error) {
	outcomes := g.Outcomes()

	n, err := s.registry.Count(ctx, key)
	if err != nil {
		return "", "", fmt.Errorf("selector: bettor count %s: %w", key, err)
	}

	if n >= s.threshold {
		out := outcomes[rand.IntN(len(outcomes))]
		s.logBranch(ctx, key, domain.BranchNormal, n, out)
		return out, domain.BranchNormal, nil
	}

	snap, err := s.ledger.Snapshot(ctx, key)
	if err != nil {
		return "", "", fmt.Errorf("selector: exposure snapshot %s: %w", key, err)
	}

	// A period without a single bet reduces to uniform random selection.
	if len(snap) == 0 {
		out := outcomes[rand.IntN(len(outcomes))]
		s.logBranch(ctx, key, domain.BranchNormal, n, out)
		return out, domain.BranchNormal, nil
	}

	// One pass over the full outcome space, combinatorial games included:
	// sum the exposure of every category bucket the outcome satisfies,
	// collecting the zero-exposure and minimum-exposure sets as we go.
	var (
		zeros   []string
		minSet  []string
		minExpo int64
	)
	for _, o := range outcomes {
		var expo int64
		for _, c := range g.Categories(o) {
			expo += snap[c]
		}
		if expo == 0 {
			zeros = append(zeros, o)
			continue
		}
		switch {
		case minSet == nil || expo < minExpo:
			minExpo = expo
			minSet = minSet[:0]
			minSet = append(minSet, o)
		case expo == minExpo:
			minSet = append(minSet, o)
		}
	}

	if len(zeros) > 0 {
		out := zeros[rand.IntN(len(zeros))]
		s.logBranch(ctx, key, domain.BranchZeroExposure, n, out)
		return out, domain.BranchZeroExposure, nil
	}

	// Every outcome pays someone; bound the loss instead of eliminating it.
	out := minSet[rand.IntN(len(minSet))]
	s.logBranch(ctx, key, domain.BranchMinExposure, n, out)
	return out, domain.BranchMinExposure, nil
}

func (s *Selector) logBranch(ctx context.Context, key domain.PeriodKey, branch domain.SelectionBranch, bettors int64, outcome string) {
	s.logger.InfoContext(ctx, "outcome selected",
		slog.String("period", key.String()),
		slog.String("branch", string(branch)),
		slog.Int64("bettors", bettors),
		slog.String("outcome", outcome),
	)
}

// FallbackOutcome derives a deterministic pseudo-random outcome from the
// period key and the server secret. It is used when ledger or registry state
// cannot be read in time, so a round never hangs waiting on storage. The
// derivation is keyed, so it is not predictable to players, and it is not
// biased by betting state in either direction.
func FallbackOutcome(secret string, key domain.PeriodKey, g game.Game) string {
	outcomes := g.Outcomes()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("fallback|" + key.String()))
	sum := mac.Sum(nil)
	idx := binary.BigEndian.Uint64(sum[:8]) % uint64(len(outcomes))
	return outcomes[idx]
}
