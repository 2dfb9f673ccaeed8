package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/nerixyz/go-eventsub/internal/eventsub"
	xredis "github.com/nerixyz/go-eventsub/internal/redis"
	"github.com/nerixyz/go-eventsub/internal/server"
	"github.com/nerixyz/go-eventsub/internal/server/handler"
	servermw "github.com/nerixyz/go-eventsub/internal/server/middleware"
	"github.com/nerixyz/go-eventsub/internal/storage"
	"github.com/nerixyz/go-eventsub/internal/xhttp/middleware"
	"github.com/nerixyz/go-eventsub/internal/xslog"
)

const (
	keyPort    = "port"
	keyBackend = "backend"
)

func main() {
	_ = godotenv.Load()

	logger := xslog.NewLogger(os.Stdout, xslog.FromEnv())
	slog.SetDefault(logger)

	ctx := context.Background()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", xslog.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := server.ReadConfig()
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	replayStore, limiter, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize replay store: %w", err)
	}
	defer func() {
		if err := replayStore.Close(); err != nil {
			logger.ErrorContext(ctx, "failed to close replay store", xslog.Error(err))
		}
	}()

	pipelineCfg := eventsub.Config{
		Secret: eventsub.StaticSecret([]byte(cfg.Secret)),
		Replay: replayStore,
	}

	router := handler.NewEventRouter()
	router.Handle(eventsub.ChannelFollowEvent{}, handler.NewEventSub(pipelineCfg, logFollow))
	router.Handle(eventsub.ChannelPointsCustomRewardRedemptionAddEvent{}, handler.NewEventSub(pipelineCfg, logRedemption))
	router.Handle(eventsub.StreamOnlineEvent{}, handler.NewEventSub(pipelineCfg, logStreamOnline))

	mux := http.NewServeMux()
	mux.Handle("POST /eventsub", router)
	mux.Handle("GET /health", handler.NewHealth(replayStore))

	wrapped := middleware.Chain(mux,
		middleware.Recovery,
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Logging,
		middleware.SecurityHeaders,
		servermw.RateLimit(limiter),
	)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           wrapped,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.InfoContext(ctx, "starting server",
			xslog.Version(),
			slog.String(keyPort, cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorContext(ctx, "server error", xslog.Error(err))
		}
	}()

	<-done
	logger.InfoContext(ctx, "shutdown signal received, initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.InfoContext(ctx, "server stopped")
	return nil
}

// initStorage picks the replay store and rate limiter together. A Redis
// backend shares one client between both so the limit holds across replicas;
// the other backends fall back to a per-process limiter.
func initStorage(ctx context.Context, cfg server.Config, logger *slog.Logger) (storage.ReplayStore, storage.RateLimiter, error) {
	backend := cfg.ReplayBackend
	if backend == "" {
		if cfg.Env.IsProduction() {
			backend = "redis"
		} else {
			backend = "memory"
		}
	}
	logger.InfoContext(ctx, "initializing replay store", slog.String(keyBackend, backend))

	memoryLimiter := func() storage.RateLimiter {
		return storage.NewMemoryRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
	}

	switch backend {
	case "redis":
		client, err := xredis.New(ctx, xredis.Config{URL: cfg.Redis.URL})
		if err != nil {
			return nil, nil, err
		}
		redisCfg := storage.RedisConfig{Client: client}
		return storage.NewRedisReplayStore(redisCfg, cfg.ClaimTTL),
			storage.NewRedisRateLimiter(redisCfg, int(cfg.RateLimit.PerSecond)),
			nil

	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect: %w", err)
		}
		store, err := storage.NewPostgresReplayStore(ctx, pool, cfg.ClaimTTL)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, memoryLimiter(), nil

	case "memory":
		return storage.NewMemoryReplayStore(cfg.ClaimTTL), memoryLimiter(), nil

	default:
		return nil, nil, fmt.Errorf("unknown replay backend: %q", backend)
	}
}

func logFollow(ctx context.Context, n eventsub.Notification[eventsub.ChannelFollowEvent]) error {
	xslog.FromContext(ctx).InfoContext(ctx, "channel follow",
		slog.String("user_login", n.Event.UserLogin),
		slog.String("broadcaster_login", n.Event.BroadcasterUserLogin),
	)
	return nil
}

func logRedemption(ctx context.Context, n eventsub.Notification[eventsub.ChannelPointsCustomRewardRedemptionAddEvent]) error {
	xslog.FromContext(ctx).InfoContext(ctx, "reward redeemed",
		slog.String("user_login", n.Event.UserLogin),
		slog.String("reward_title", n.Event.Reward.Title),
		slog.Int64("reward_cost", n.Event.Reward.Cost),
	)
	return nil
}

func logStreamOnline(ctx context.Context, n eventsub.Notification[eventsub.StreamOnlineEvent]) error {
	xslog.FromContext(ctx).InfoContext(ctx, "stream online",
		slog.String("broadcaster_login", n.Event.BroadcasterUserLogin),
	)
	return nil
}
