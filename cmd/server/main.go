package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tastyfruit-backend/internal/auth"
	"tastyfruit-backend/internal/config"
	"tastyfruit-backend/internal/database"
	"tastyfruit-backend/internal/logger"
	"tastyfruit-backend/internal/server"
	"tastyfruit-backend/internal/storage"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.IsDevelopment())
	for _, w := range cfg.Warnings() {
		log.Warn().Msg(w)
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	db, err := database.Init(cfg, log)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	revoker, closeRedis, err := newRevoker(cfg)
	if err != nil {
		return err
	}
	defer closeRedis()

	bucket, err := storage.NewLocalBucket(cfg.ProductImagePath, cfg.PublicAssetBaseURL)
	if err != nil {
		return fmt.Errorf("image storage: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := auth.NewLoginLimiter(cfg.LoginRatePerMinute, nil)
	go sweepLimiter(ctx, limiter)

	app := server.New(server.Deps{
		Config:   cfg,
		DB:       db,
		Logger:   log,
		Revoker:  revoker,
		Bucket:   bucket,
		Limiter:  limiter,
		AssetDir: bucket.Root(),
	})

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("listening")
		errc <- app.Listen(":" + cfg.HTTPPort)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}

// newRevoker connects to Redis when REDIS_ADDR is set. Without it logout is
// accepted but tokens stay valid until they expire; config warns about that.
func newRevoker(cfg *config.Config) (auth.Revoker, func(), error) {
	if cfg.RedisAddr == "" {
		return auth.NoopRevoker{}, func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
	}
	return auth.NewRedisRevoker(rdb, nil), func() { _ = rdb.Close() }, nil
}

func sweepLimiter(ctx context.Context, l *auth.LoginLimiter) {
	t := time.NewTicker(5 * time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Sweep(10 * time.Minute)
		}
	}
}
