package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/harborplay/roundengine/internal/blob/s3"
	"github.com/harborplay/roundengine/internal/cache/redis"
	"github.com/harborplay/roundengine/internal/config"
	"github.com/harborplay/roundengine/internal/domain"
	"github.com/harborplay/roundengine/internal/game"
	"github.com/harborplay/roundengine/internal/notify"
	"github.com/harborplay/roundengine/internal/server/handler"
	"github.com/harborplay/roundengine/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	Games *game.Registry

	// Stores
	ResultStore domain.ResultStore
	BetStore    domain.BetStore

	// Caches and coordination
	Ledger      domain.ExposureLedger
	Bettors     domain.BettorRegistry
	Bus         domain.CoordinationBus
	LockManager domain.LockManager

	// Raw bus access for the WebSocket hub.
	RawBus *redis.CoordinationBus

	// Blob storage, nil when archiving is disabled.
	Archiver domain.RoundArchiver

	// Notifications
	Notifier *notify.Notifier

	// Health checks keyed by dependency name.
	Health map[string]handler.HealthChecker
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Health: map[string]handler.HealthChecker{},
	}

	// --- Game registry ---
	games, err := buildRegistry(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: games: %w", err)
	}
	deps.Games = games

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)
	deps.Health["postgres"] = pgClient

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.ResultStore = postgres.NewResultStore(pool)
	deps.BetStore = postgres.NewBetStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })
	deps.Health["redis"] = redisClient

	deps.Ledger = redis.NewExposureLedger(redisClient)
	deps.Bettors = redis.NewBettorRegistry(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.RawBus = redis.NewCoordinationBus(redisClient)
	deps.Bus = deps.RawBus

	// --- S3 round archive (optional) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })
		deps.Archiver = s3blob.NewRoundArchiver(s3Client)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// buildRegistry registers the configured games with their durations and
// timelines.
func buildRegistry(cfg *config.Config) (*game.Registry, error) {
	reg := game.NewRegistry()
	for _, gc := range cfg.Games {
		var g game.Game
		switch gc.Name {
		case "wingo":
			g = game.NewWingo()
		case "k3":
			g = game.NewK3()
		case "5d":
			g = game.NewFiveD()
		default:
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownGame, gc.Name)
		}
		if err := reg.Register(g, gc.Durations, gc.Timelines); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
