package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/coup/internal/config"
	"github.com/playperu/coup/internal/database"
	"github.com/playperu/coup/internal/game"
	"github.com/playperu/coup/internal/handler/health"
	"github.com/playperu/coup/internal/identity"
	"github.com/playperu/coup/internal/migrations"
	"github.com/playperu/coup/internal/rooms"
	"github.com/playperu/coup/internal/server"
	"github.com/playperu/coup/internal/store"
	"github.com/playperu/coup/internal/telemetry"
	"github.com/playperu/coup/internal/timer"
)

const sweepInterval = time.Minute

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint, cfg.ServiceName)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	// --- SQLite ---
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}
	}
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(ctx, db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	// --- Redis (optional) ---
	var (
		cache *store.StatsCache
		rdb   redis.UniversalClient
	)
	if cfg.RedisURL != "" {
		client, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer client.Close()
		rdb = client
		cache = store.NewStatsCache(client, cfg.StatsCacheTTL)
		logger.Info("connected to redis")
	}

	st := store.New(db, cache, logger)
	hub := server.NewHub(logger)

	defaults := game.Settings{
		ResponseTimeout: cfg.ResponseTimeout,
		ReconnectGrace:  cfg.ReconnectGrace,
		LogWindow:       cfg.LogWindow,
	}.Normalize()

	reg := rooms.NewRegistry(game.Options{
		Scheduler: timer.Real{},
		Publisher: hub,
		Sink:      st,
		Logger:    logger,
	})
	defer reg.Close()

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, server.Deps{
		Logger:   logger,
		Rooms:    reg,
		Hub:      hub,
		Identity: identity.NewService(st, cfg.JWTSecret, cfg.TokenTTL),
		Store:    st,
		Health: health.NewHandler(logger, reg, map[string]health.Checker{
			"sqlite": health.SQLite(db),
			"redis":  health.Redis(rdb),
		}),
		Defaults: defaults,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	g.Go(func() error {
		t := time.NewTicker(sweepInterval)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				for _, id := range reg.Sweep(cfg.RoomIdleAfter) {
					hub.Forget(id)
					logger.Info("closed idle room", "room", id)
				}
			}
		}
	})

	return g.Wait()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
