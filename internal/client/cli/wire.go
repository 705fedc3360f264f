package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/iudanet/yardsync/internal/client/api"
	"github.com/iudanet/yardsync/internal/client/auth"
	"github.com/iudanet/yardsync/internal/client/config"
	"github.com/iudanet/yardsync/internal/client/connectivity"
	"github.com/iudanet/yardsync/internal/client/notify"
	"github.com/iudanet/yardsync/internal/client/queue"
	"github.com/iudanet/yardsync/internal/client/storage"
	"github.com/iudanet/yardsync/internal/client/storage/boltdb"
	"github.com/iudanet/yardsync/internal/client/storage/memory"
	redisstore "github.com/iudanet/yardsync/internal/client/storage/redis"
	"github.com/iudanet/yardsync/internal/client/storage/sqlite"
	syncsvc "github.com/iudanet/yardsync/internal/client/sync"
	"github.com/iudanet/yardsync/internal/clock"
	"github.com/iudanet/yardsync/internal/forms"
)

// open wires the client components from cfg
func (c *Cli) open(ctx context.Context, cfg *config.Config) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	kv, err := OpenKV(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	catalogue, err := forms.Load()
	if err != nil {
		_ = kv.Close()
		return err
	}

	clk := clock.New()
	notifier := notify.Multi{notify.NewConsole(c.io, cfg.NoColor), notify.NewLogger(logger)}

	store := queue.New(queue.Options{
		KV:       kv,
		Clock:    clk,
		Notifier: notifier,
		Logger:   logger.With("component", "queue"),
		MaxItems: cfg.Queue.MaxItems,
		DraftTTL: cfg.Draft.TTL,
		Capacity: cfg.Storage.CapacityBytes,
	})

	tokens := auth.NewTokenStore(kv, clk)
	client := api.NewClient(cfg.ServerURL,
		api.WithTimeout(cfg.Delivery.Timeout),
		api.WithTokenSource(tokens),
	)

	// Без сигнала от среды считаем, что сеть есть
	monitor := connectivity.New(true, logger.With("component", "connectivity"))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	syncService := syncsvc.NewService(syncsvc.Options{
		Store:          store,
		Transport:      client,
		Connectivity:   monitor,
		Notifier:       notifier,
		Clock:          clk,
		Logger:         logger.With("component", "sync"),
		Metrics:        syncsvc.NewMetrics(registry),
		AttemptTimeout: cfg.Delivery.Timeout,
		RatePerSecond:  cfg.Delivery.RatePerSecond,
	})

	c.Deps = Deps{
		Config:    cfg,
		Logger:    logger,
		Clock:     clk,
		Notifier:  notifier,
		Store:     store,
		Auth:      auth.NewService(client, tokens, logger.With("component", "auth")),
		Sync:      syncService,
		Transport: client,
		Monitor:   monitor,
		Prober:    connectivity.NewProber(client, cfg.Probe.Interval, logger),
		Catalogue: catalogue,
		Registry:  registry,
		Close:     kv.Close,
	}
	return nil
}

// OpenKV opens the configured storage backend
func OpenKV(ctx context.Context, cfg config.StorageConfig) (storage.KV, error) {
	switch cfg.Backend {
	case config.BackendBolt, config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
		if cfg.Backend == config.BackendSQLite {
			kv, err := sqlite.New(ctx, cfg.Path, cfg.CapacityBytes)
			if err != nil {
				return nil, err
			}
			return kv, nil
		}
		kv, err := boltdb.New(ctx, cfg.Path, cfg.CapacityBytes)
		if err != nil {
			return nil, err
		}
		return kv, nil
	case config.BackendRedis:
		kv, err := redisstore.New(ctx, redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
			Capacity: cfg.CapacityBytes,
		})
		if err != nil {
			return nil, err
		}
		return kv, nil
	case config.BackendMemory:
		return memory.New(cfg.CapacityBytes), nil
	default:
		return nil, errors.New("unknown storage backend " + cfg.Backend)
	}
}
