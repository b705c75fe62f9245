package main

import (
	"context"
	"fmt"

	"github.com/okian/quotient/internal/adapters/cache"
	"github.com/okian/quotient/internal/adapters/neynar"
	"github.com/okian/quotient/internal/adapters/redisstore"
	"github.com/okian/quotient/internal/adapters/sharestore"
	app "github.com/okian/quotient/internal/app"
	"github.com/okian/quotient/internal/config"
	"github.com/okian/quotient/internal/domain/checkin"
	"github.com/okian/quotient/pkg/logger"
)

// buildService creates the stores selected by cfg and the service on top of
// them. cleanup closes every store that was opened.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warn(ctx, "close failed", logger.Error(err))
			}
		}
	}

	shares, err := sharestore.Open(ctx, cfg.ShareDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open share store: %w", err)
	}
	closers = append(closers, shares.Close)

	var (
		profiles cache.Cache
		ledger   checkin.Ledger
	)
	switch cfg.CacheBackend {
	case config.BackendRedis:
		rdb := redisstore.NewClient(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		closers = append(closers, rdb.Close)
		if err := redisstore.Ping(ctx, rdb); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		profiles = cache.NewRedis(rdb, cache.WithTTL(cfg.ProfileTTL()))
		ledger = redisstore.NewLedger(rdb)
	case config.BackendMemory:
		profiles = cache.NewMemory(cache.WithTTL(cfg.ProfileTTL()), cache.WithMaxEntries(cfg.ProfileCacheSize))
		ledger = checkin.NewMemoryLedger(checkin.WithMaxSize(cfg.CheckInCapacity))
	default:
		cleanup()
		return nil, nil, fmt.Errorf("%w: cache_backend %q", config.ErrInvalidConfig, cfg.CacheBackend)
	}

	if cfg.NeynarAPIKey == "" {
		log.Warn(ctx, "neynar_api_key is empty; upstream requests will be rejected")
	}
	provider := neynar.New(
		neynar.WithBaseURL(cfg.NeynarBaseURL),
		neynar.WithAPIKey(cfg.NeynarAPIKey),
		neynar.WithTimeout(cfg.NeynarTimeout()),
		neynar.WithLogger(log.Named("neynar")),
	)

	svc := app.New(
		app.WithLogger(log.Named("service")),
		app.WithProvider(provider),
		app.WithCache(profiles),
		app.WithLedger(ledger),
		app.WithShareGate(shares),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithFetchBatch(cfg.FetchBatch),
		app.WithQueueSize(cfg.QueueSize),
	)

	shareDB := cfg.ShareDBPath
	if shareDB == "" {
		shareDB = sharestore.MemoryPath
	}
	log.Info(ctx, "service wired",
		logger.String("cache_backend", cfg.CacheBackend),
		logger.String("share_db", shareDB),
	)
	return svc, cleanup, nil
}
