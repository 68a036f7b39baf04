package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/pactas/pactas/internal/blob/s3"
	"github.com/pactas/pactas/internal/cache/redis"
	"github.com/pactas/pactas/internal/config"
	"github.com/pactas/pactas/internal/domain"
	"github.com/pactas/pactas/internal/notify"
	"github.com/pactas/pactas/internal/service"
	"github.com/pactas/pactas/internal/store/postgres"
)

// Dependencies bundles everything the application needs to run. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Store domain.LedgerStore

	// Optional Redis-backed layers; nil when Redis is disabled.
	PoolCache domain.PoolCache
	SignalBus domain.SignalBus

	// Optional blob archival; nil when S3 is disabled.
	Reporter *s3blob.Reporter
	Archiver *s3blob.LedgerArchiver

	Dispatcher *notify.Dispatcher

	Accounts   *service.AccountService
	Questions  *service.QuestionService
	Staking    *service.StakingService
	Resolution *service.ResolutionService
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	ledgerStore := postgres.NewLedgerStore(pgClient.Pool())
	deps.Store = ledgerStore

	// --- Redis (optional) ---
	if cfg.Redis.Enabled {
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

		deps.PoolCache = redis.NewPoolCache(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
	}

	// --- S3 blob storage (optional) ---
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

		writer := s3blob.NewWriter(s3Client)
		deps.Reporter = s3blob.NewReporter(writer)
		deps.Archiver = s3blob.NewLedgerArchiver(writer, ledgerStore)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.WebhookURL != "" {
		senders = append(senders, notify.NewWebhookSender(cfg.Notify.WebhookURL))
	}
	if deps.SignalBus != nil {
		senders = append(senders, notify.NewBusSender(deps.SignalBus, "notifications"))
	}
	deps.Dispatcher = notify.NewDispatcher(senders, cfg.Notify.QueueSize, cfg.Notify.Workers,
		logger.With(slog.String("component", "notify")))

	// --- Services ---
	split := domain.SplitParams{
		FeeBps:      cfg.Settlement.FeeBps,
		OrgShareBps: cfg.Settlement.OrgShareBps,
	}

	deps.Accounts = service.NewAccountService(deps.Store,
		logger.With(slog.String("component", "accounts")))

	questions := service.NewQuestionService(deps.Store,
		logger.With(slog.String("component", "questions")))
	staking := service.NewStakingService(deps.Store,
		logger.With(slog.String("component", "staking")))
	resolution := service.NewResolutionService(deps.Store, split,
		logger.With(slog.String("component", "resolution"))).
		WithDispatcher(deps.Dispatcher)

	if deps.PoolCache != nil {
		questions.WithPoolCache(deps.PoolCache)
		staking.WithPoolCache(deps.PoolCache)
		resolution.WithPoolCache(deps.PoolCache)
	}
	if deps.SignalBus != nil {
		questions.WithSignalBus(deps.SignalBus)
		staking.WithSignalBus(deps.SignalBus)
		resolution.WithSignalBus(deps.SignalBus)
	}
	if deps.Reporter != nil {
		resolution.WithReporter(deps.Reporter)
	}

	deps.Questions = questions
	deps.Staking = staking
	deps.Resolution = resolution

	return deps, cleanup, nil
}
