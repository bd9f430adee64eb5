package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/harborplay/roundengine/internal/engine"
	"github.com/harborplay/roundengine/internal/server"
	"github.com/harborplay/roundengine/internal/server/handler"
	"github.com/harborplay/roundengine/internal/server/ws"
)

// SchedulerMode runs the round loops: one orchestrator per enabled
// (game, duration, timeline) pair, plus the bet ingestion API. This is the
// single writer of period state on the coordination bus.
func (a *App) SchedulerMode(ctx context.Context, deps *Dependencies) error {
	return a.run(ctx, deps, true, false)
}

// BroadcastMode serves reads only: period and result queries plus the
// WebSocket stream. Any number of broadcast processes can run behind a load
// balancer; they never write period state.
func (a *App) BroadcastMode(ctx context.Context, deps *Dependencies) error {
	return a.run(ctx, deps, false, true)
}

// FullMode runs the scheduler and the broadcast surface in one process.
// This is the single-node deployment shape.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	return a.run(ctx, deps, true, true)
}

func (a *App) run(ctx context.Context, deps *Dependencies, schedule, broadcast bool) error {
	loc, err := a.cfg.Location()
	if err != nil {
		return fmt.Errorf("app: load timezone: %w", err)
	}

	logger := a.logger
	g, ctx := errgroup.WithContext(ctx)

	ingest := engine.NewIngest(
		deps.Games,
		deps.Ledger,
		deps.Bettors,
		deps.BetStore,
		a.cfg.Engine.FreezeMarginSec,
		loc,
		logger,
	)

	if schedule {
		selector := engine.NewSelector(
			deps.Ledger,
			deps.Bettors,
			int64(a.cfg.Engine.ProtectionThreshold),
			logger,
		)
		orcCfg := engine.OrchestratorConfig{
			Location:       loc,
			FreezeMargin:   a.cfg.Engine.FreezeMarginSec,
			ResolveTimeout: a.cfg.Engine.ResolveTimeout.Duration,
			ResolveRetries: a.cfg.Engine.ResolveRetries,
			RetryBackoff:   a.cfg.Engine.RetryBackoff.Duration,
			GraceWindow:    a.cfg.Engine.GraceWindow.Duration,
			ResultSecret:   a.cfg.Engine.ResultSecret,
		}

		pairs := deps.Games.Pairs()
		logger.InfoContext(ctx, "starting round orchestrators", slog.Int("pairs", len(pairs)))
		for _, p := range pairs {
			orc := engine.NewOrchestrator(
				p.Game,
				p.Duration,
				p.Timeline,
				orcCfg,
				selector,
				deps.Ledger,
				deps.Bettors,
				deps.ResultStore,
				deps.Bus,
				deps.LockManager,
				deps.Archiver,
				deps.Notifier,
				logger,
			)
			g.Go(func() error { return orc.Run(ctx) })
		}
	}

	var hub *ws.Hub
	if broadcast {
		hub = ws.NewHub(deps.RawBus, logger)
		g.Go(func() error {
			if err := hub.Run(ctx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		})
	}

	if a.cfg.Server.Enabled {
		srv := server.New(
			server.Config{
				Addr:         fmt.Sprintf(":%d", a.cfg.Server.Port),
				CORSOrigins:  a.cfg.Server.CORSOrigins,
				EnableIngest: schedule,
			},
			server.Handlers{
				Bet:    handler.NewBetHandler(ingest, logger),
				Period: handler.NewPeriodHandler(ingest, deps.Games, logger),
				Result: handler.NewResultHandler(deps.ResultStore, logger),
				Health: handler.NewHealthHandler(deps.Health, logger),
				Hub:    hub,
			},
			logger,
		)

		g.Go(srv.Start)
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
