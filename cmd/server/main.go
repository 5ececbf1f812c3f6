package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	router "github.com/dkeye/Lobby/internal/adapters/http"
	"github.com/dkeye/Lobby/internal/adapters/postgres"
	"github.com/dkeye/Lobby/internal/app"
	"github.com/dkeye/Lobby/internal/app/relay"
	"github.com/dkeye/Lobby/internal/config"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/logging"
)

const version = "0.1.0"

// openStore picks the room store backend. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Server, policy app.Policy) (core.RoomStore, func(), error) {
	if cfg.Store != config.StorePostgres {
		return app.NewMemoryStore(policy), func() {}, nil
	}
	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DSN:             cfg.PostgresDSN,
		MaxConns:        10,
		MaxConnLifetime: 30 * time.Minute,
		ApplicationName: "lobby-server",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}
	store := postgres.NewRoomStore(pool, policy)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres schema: %w", err)
	}
	return store, pool.Close, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Early logger so config.Load failures are visible.
	logging.Setup("info", true)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.Mode != "release")

	policy := app.SimplePolicy{}
	rooms, closeStore, err := openStore(ctx, cfg, policy)
	if err != nil {
		log.Error().Err(err).Msg("failed to open room store")
		os.Exit(1)
	}
	defer closeStore()

	relays := relay.NewRelayManager()
	allocator := relay.NewAllocator(cfg.PublicHost, cfg.PublicPort, cfg.AllocationTTL, relays)
	janitor := &app.Janitor{Store: rooms, TTL: cfg.RoomTTL, Period: cfg.JanitorPeriod}

	go janitor.Run(ctx)
	go allocator.Run(ctx, cfg.JanitorPeriod)

	r := router.SetupRouter(ctx, cfg, router.Deps{
		Registry:  app.NewRegistry(),
		Rooms:     rooms,
		Allocator: allocator,
		Relays:    relays,
		Version:   version,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Str("store", cfg.Store).Msg("Lobby server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
