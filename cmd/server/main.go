package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"casino-engine/engine"
	"casino-engine/internal/db"
	"casino-engine/internal/locks"
	"casino-engine/internal/middleware"
	"casino-engine/internal/recovery"
	"casino-engine/internal/redis"
	"casino-engine/internal/server"
	"casino-engine/internal/server/events"
	"casino-engine/internal/server/handlers"
	"casino-engine/internal/server/websocket"
	"casino-engine/internal/store"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	// .env must be loaded before kong reads env tags.
	_ = godotenv.Load()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("casino-server"),
		kong.Description("Multi-table casino round engine with a REST and websocket API."),
		kong.UsageOnError(),
	)

	logger := newLogger(cli.LogLevel)
	log.SetDefault(logger)

	if err := run(&cli, logger); err != nil {
		logger.Error("server exited", "err", err)
		kctx.Exit(1)
	}
}

func run(cli *CLI, logger *log.Logger) error {
	if cli.CountdownSeconds < 1 {
		return fmt.Errorf("countdown must be at least one second, got %d", cli.CountdownSeconds)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, storeCheck, err := openStore(cli, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("failed to close store", "err", err)
		}
	}()

	hub := websocket.NewHub(cli.AllowedOrigins, logger.WithPrefix("ws"))
	defer hub.Close()
	fanout := events.NewFanout(hub, events.Logger(logger.WithPrefix("events")))

	bets := middleware.NewBetLimiter()
	defer bets.Stop()

	opts := []handlers.Option{
		handlers.WithBetLimiter(bets),
		handlers.WithLogger(logger.WithPrefix("http")),
	}
	if storeCheck != nil {
		opts = append(opts, handlers.WithHealthCheck("store", storeCheck))
	}

	var lease *locks.Lock
	if cli.RedisAddr != "" {
		rc, err := redis.New(ctx, cli.redisConfig(), logger.WithPrefix("redis"))
		if err != nil {
			return err
		}
		defer rc.Close()

		manager := locks.NewLockManager(rc.Client, locks.WithLogger(logger.WithPrefix("locks")))
		lease, err = manager.AcquireLock(ctx, locks.EngineLockKey, locks.DefaultLockTTL)
		if err != nil {
			if holder, _, herr := manager.Holder(ctx, locks.EngineLockKey); herr == nil && holder != "" {
				return fmt.Errorf("engine lease held by %s: %w", holder, err)
			}
			return fmt.Errorf("failed to acquire engine lease: %w", err)
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := lease.Release(releaseCtx); err != nil && !errors.Is(err, locks.ErrLockNotHeld) {
				logger.Warn("failed to release engine lease", "err", err)
			}
		}()

		fanout.Add(redis.NewPublisher(rc.Client, redis.DefaultChannelPrefix))
		opts = append(opts, handlers.WithHealthCheck("redis", rc.HealthCheck))
	}

	stats, err := recovery.NewTableRecovery(st, logger.WithPrefix("recovery")).RecoverStrandedTables(ctx)
	if err != nil {
		return fmt.Errorf("table recovery failed: %w", err)
	}
	if len(stats.Failed) > 0 {
		logger.Warn("some tables could not be recovered", "tables", stats.Failed)
	}

	tables := engine.NewTableManager(st, fanout, cli.engineOptions(logger.WithPrefix("engine"))...)
	defer tables.Close()

	h := handlers.New(st, tables, fanout, opts...)
	srv := server.New(cli.serverConfig(), h, hub, logger.WithPrefix("http"))

	logger.Info("casino engine starting",
		"addr", cli.HTTPAddr,
		"store", cli.Store,
		"countdown", cli.CountdownSeconds,
		"resetDelay", cli.ResetDelay,
		"redis", cli.RedisAddr != "")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	if lease != nil {
		g.Go(func() error {
			return lease.Hold(gctx, quartz.NewReal())
		})
	}

	err = g.Wait()
	logger.Info("shutting down")
	return err
}

// openStore returns the configured store and, for SQL, a connectivity check.
func openStore(cli *CLI, logger *log.Logger) (store.Store, handlers.HealthCheck, error) {
	if cli.Store == storeMemory {
		logger.Warn("using in-memory store; state is lost on exit")
		return store.NewMemoryStore(), nil, nil
	}

	database, err := db.New(cli.dbConfig())
	if err != nil {
		return nil, nil, err
	}
	return store.NewSQLStore(database), database.Ping, nil
}
