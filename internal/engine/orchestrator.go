package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/harborplay/roundengine/internal/clock"
	"github.com/harborplay/roundengine/internal/domain"
	"github.com/harborplay/roundengine/internal/game"
)

// Alerter receives operational alerts (fallback activations, exhausted
// retries). Satisfied by notify.Notifier.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// OrchestratorConfig carries the timing and policy knobs for a round loop.
type OrchestratorConfig struct {
	Location       *time.Location
	FreezeMargin   int           // seconds before end when betting closes (inclusive)
	ResolveTimeout time.Duration // bound on reading ledger/registry state at closure
	ResolveRetries int           // selection attempts before the fallback outcome
	RetryBackoff   time.Duration // initial backoff between attempts, doubled each retry
	GraceWindow    time.Duration // how long settled ledger/registry data is kept
	ResultSecret   string        // keys verification hashes and the fallback derivation
}

// Orchestrator runs the round loop for one (gameType, duration, timeline)
// pair: it publishes countdown snapshots every second, fires the selector at
// window closure, writes through the result store, publishes the result, and
// expires the period's betting state after a grace window.
type Orchestrator struct {
	game     game.Game
	duration int
	timeline string
	cfg      OrchestratorConfig

	selector *Selector
	ledger   domain.ExposureLedger
	registry domain.BettorRegistry
	results  domain.ResultStore
	bus      domain.CoordinationBus
	locks    domain.LockManager
	archiver domain.RoundArchiver // optional
	alerts   Alerter              // optional
	logger   *slog.Logger

	// resolveMu guarantees only one RESOLVING attempt is in flight per
	// period within this process. Cross-process commit races are settled by
	// the result store's uniqueness constraint.
	resolveMu sync.Mutex

	winMu  sync.Mutex
	window *Window
}

// NewOrchestrator wires a round loop for one pair. archiver and alerts may
// be nil.
func NewOrchestrator(
	g game.Game,
	duration int,
	timeline string,
	cfg OrchestratorConfig,
	selector *Selector,
	ledger domain.ExposureLedger,
	registry domain.BettorRegistry,
	results domain.ResultStore,
	bus domain.CoordinationBus,
	locks domain.LockManager,
	archiver domain.RoundArchiver,
	alerts Alerter,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		game:     g,
		duration: duration,
		timeline: timeline,
		cfg:      cfg,
		selector: selector,
		ledger:   ledger,
		registry: registry,
		results:  results,
		bus:      bus,
		locks:    locks,
		archiver: archiver,
		alerts:   alerts,
		logger: logger.With(
			slog.String("component", "orchestrator"),
			slog.String("game", g.Name()),
			slog.Int("duration", duration),
			slog.String("timeline", timeline),
		),
	}
}

// Run drives the loop until the context is cancelled. A shared 1-second tick
// gives countdown granularity; period boundaries themselves come from the
// clock on every tick, so the loop accumulates no drift.
func (o *Orchestrator) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	o.tick(ctx, time.Now())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			o.tick(ctx, now)
		}
	}
}

func (o *Orchestrator) tick(ctx context.Context, now time.Time) {
	info := clock.PeriodAt(now, o.cfg.Location, o.duration)
	key := domain.PeriodKey{
		GameType: o.game.Name(),
		Duration: o.duration,
		Timeline: o.timeline,
		PeriodID: info.PeriodID,
	}

	w := o.windowFor(key)
	state, fireClose := w.Observe(info.Remaining)

	snap := domain.PeriodSnapshot{
		GameType:      key.GameType,
		Duration:      key.Duration,
		Timeline:      key.Timeline,
		PeriodID:      key.PeriodID,
		StartTime:     info.Start,
		EndTime:       info.End,
		TimeRemaining: info.Remaining,
		State:         state,
	}
	if err := o.bus.PublishPeriodState(ctx, snap); err != nil {
		o.logger.WarnContext(ctx, "publish period state failed",
			slog.String("period", key.String()),
			slog.String("error", err.Error()),
		)
	}

	if fireClose {
		w.MarkResolving()
		// Resolve off the tick goroutine so the next period's countdown
		// starts broadcasting immediately.
		go o.resolve(ctx, w)
	}
}

// windowFor returns the live window, creating a fresh one when the clock has
// moved into a new period.
func (o *Orchestrator) windowFor(key domain.PeriodKey) *Window {
	o.winMu.Lock()
	defer o.winMu.Unlock()
	if o.window == nil || o.window.Key() != key {
		o.window = NewWindow(key, o.cfg.FreezeMargin)
	}
	return o.window
}

// resolve selects, persists, and publishes the result for a closed period.
// Recoverable conditions (duplicate commit, transient storage errors) are
// absorbed here; only exhausted-retry fallback activations surface to
// operational alerting. A result is always eventually published.
func (o *Orchestrator) resolve(ctx context.Context, w *Window) {
	o.resolveMu.Lock()
	defer o.resolveMu.Unlock()

	key := w.Key()

	// Cross-replica courtesy lock: if another scheduler replica is already
	// resolving this period, let it win and publish. Should both proceed
	// anyway, the result store still keeps exactly one row.
	lockTTL := o.cfg.ResolveTimeout + 5*time.Second
	unlock, err := o.locks.Acquire(ctx, "resolve:"+key.String(), lockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			o.logger.InfoContext(ctx, "period claimed by another resolver",
				slog.String("period", key.String()),
			)
			return
		}
		// Lock service unavailable: resolving anyway is safe, just noisier.
		o.logger.WarnContext(ctx, "resolve lock unavailable, proceeding",
			slog.String("period", key.String()),
			slog.String("error", err.Error()),
		)
	} else {
		defer unlock()
	}

	outcome, branch := o.decide(ctx, key)

	res := domain.Result{
		GameType:         key.GameType,
		Duration:         key.Duration,
		Timeline:         key.Timeline,
		PeriodID:         key.PeriodID,
		Outcome:          outcome,
		Display:          o.game.Display(outcome),
		VerificationHash: domain.VerificationHash(o.cfg.ResultSecret, key, outcome),
		Branch:           branch,
		CreatedAt:        time.Now().UTC(),
	}

	stored, fresh, err := o.commitWithRetry(ctx, res)
	switch {
	case err != nil:
		// Storage stayed down through every retry. Publish the computed
		// result so clients are not left hanging, and page the operators:
		// the store must be reconciled once it is back.
		o.alert(ctx, "result_commit_failed", "Result commit failed",
			key.String()+": "+err.Error())
	case !fresh:
		o.logger.InfoContext(ctx, "adopting previously committed result",
			slog.String("period", key.String()),
			slog.String("outcome", stored.Outcome),
		)
		res = stored
	default:
		res = stored
	}

	if err := o.bus.PublishResult(ctx, res); err != nil {
		o.logger.ErrorContext(ctx, "publish result failed",
			slog.String("period", key.String()),
			slog.String("error", err.Error()),
		)
	}
	w.MarkSettled()

	o.logger.InfoContext(ctx, "period settled",
		slog.String("period", key.String()),
		slog.String("outcome", res.Outcome),
		slog.String("branch", string(res.Branch)),
	)

	o.expireAndArchive(ctx, key, res)
}

// decide runs the selector with bounded retries and falls back to the
// deterministic pseudo-random outcome so the round cannot hang on storage.
func (o *Orchestrator) decide(ctx context.Context, key domain.PeriodKey) (string, domain.SelectionBranch) {
	backoff := o.cfg.RetryBackoff
	attempts := o.cfg.ResolveRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		sctx, cancel := context.WithTimeout(ctx, o.cfg.ResolveTimeout)
		outcome, branch, err := o.selector.Select(sctx, key, o.game)
		cancel()
		if err == nil {
			return outcome, branch
		}
		lastErr = err
		o.logger.WarnContext(ctx, "selection attempt failed",
			slog.String("period", key.String()),
			slog.Int("attempt", i+1),
			slog.String("error", err.Error()),
		)

		select {
		case <-ctx.Done():
			i = attempts // stop retrying, fall through to fallback
		case <-time.After(backoff):
			backoff *= 2
		}
	}

	o.alert(ctx, "selection_fallback", "Degraded: fallback outcome used",
		key.String()+": "+lastErr.Error())

	return FallbackOutcome(o.cfg.ResultSecret, key, o.game), domain.BranchFallback
}

func (o *Orchestrator) commitWithRetry(ctx context.Context, res domain.Result) (domain.Result, bool, error) {
	backoff := o.cfg.RetryBackoff
	attempts := o.cfg.ResolveRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		stored, fresh, err := o.results.Commit(ctx, res)
		if err == nil {
			return stored, fresh, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return domain.Result{}, false, lastErr
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return domain.Result{}, false, lastErr
}

// expireAndArchive ships the settled round to the archiver and schedules the
// period's betting state for removal after the grace window.
func (o *Orchestrator) expireAndArchive(ctx context.Context, key domain.PeriodKey, res domain.Result) {
	if o.archiver != nil {
		exposure, err := o.ledger.Snapshot(ctx, key)
		if err != nil {
			o.logger.WarnContext(ctx, "archive snapshot failed",
				slog.String("period", key.String()),
				slog.String("error", err.Error()),
			)
			exposure = nil
		}
		bettors, err := o.registry.Count(ctx, key)
		if err != nil {
			bettors = -1
		}
		if err := o.archiver.ArchiveRound(ctx, res, exposure, bettors); err != nil {
			o.logger.WarnContext(ctx, "round archive failed",
				slog.String("period", key.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := o.ledger.Expire(ctx, key, o.cfg.GraceWindow); err != nil {
		o.logger.WarnContext(ctx, "ledger expire failed",
			slog.String("period", key.String()),
			slog.String("error", err.Error()),
		)
	}
	if err := o.registry.Expire(ctx, key, o.cfg.GraceWindow); err != nil {
		o.logger.WarnContext(ctx, "registry expire failed",
			slog.String("period", key.String()),
			slog.String("error", err.Error()),
		)
	}
}

func (o *Orchestrator) alert(ctx context.Context, event, title, message string) {
	o.logger.ErrorContext(ctx, title,
		slog.String("event", event),
		slog.String("detail", message),
	)
	if o.alerts == nil {
		return
	}
	if err := o.alerts.Notify(ctx, event, title, message); err != nil {
		o.logger.WarnContext(ctx, "alert dispatch failed",
			slog.String("error", err.Error()),
		)
	}
}
