package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ashika2003/Chat-App/internal/app/registry"
	"github.com/Ashika2003/Chat-App/internal/app/server"
	"github.com/Ashika2003/Chat-App/internal/app/worker"
	"github.com/Ashika2003/Chat-App/internal/config"
	"github.com/Ashika2003/Chat-App/internal/core/services"
	"github.com/Ashika2003/Chat-App/internal/platform/logger"
	"github.com/Ashika2003/Chat-App/internal/platform/telemetry"
	"github.com/Ashika2003/Chat-App/internal/plugins/postgres"
	redisPlugin "github.com/Ashika2003/Chat-App/internal/plugins/redis"
	"github.com/Ashika2003/Chat-App/internal/plugins/render"

	"github.com/redis/go-redis/v9"
)

func main() {
	// Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Config
	cfg := config.Load()

	// Logger
	log := logger.NewLogger(*cfg)
	log.Info("starting application")

	otelShutdown, err := telemetry.InitTelemetry(ctx, *cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", "err", err)
	}
	defer func() {
		log.Info("flushing telemetry...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", "err", err)
		}
	}()

	// Infra
	var pdb *sql.DB
	if pdb, err = postgres.New(ctx, *cfg.Postgres); err != nil {
		log.Error("postgres connection failed", "DSN", cfg.Postgres.DSN)
		return
	}
	log.Info("postgres connected")
	var rdb *redis.Client
	if rdb, err = redisPlugin.NewRedisClient(ctx, *cfg.Redis); err != nil {
		log.Error("redis connection failed", "url", cfg.Redis.URL)
		return
	}
	log.Info("redis connected")

	// Adapters
	roomRepo := postgres.NewRoomRepo(pdb)
	msgRepo := postgres.NewMessageRepo(pdb)
	userRepo := postgres.NewUserRepo(pdb)
	membership := redisPlugin.NewRedisMembershipStore(rdb)
	renderer := render.NewHTMLRenderer()

	// Core services
	hub := registry.NewRegistry()
	txManager := postgres.NewTxManager(pdb)
	tokenSvc := services.NewTokenService(cfg.SecretToken)
	chatroomSvc := services.NewChatroomService(
		log, roomRepo, msgRepo, userRepo, membership, hub, renderer, txManager,
		cfg.Presence.HeartbeatInterval,
	)
	statusSvc := services.NewStatusService(log, roomRepo, userRepo, membership, hub, renderer)

	// Presence sweeper
	sweeper := worker.NewPresenceSweeper(
		log, membership, hub, chatroomSvc, statusSvc,
		cfg.Presence.SweepInterval, cfg.Presence.SessionTTL,
	)
	go func() {
		if err := sweeper.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("presence sweeper stopped", "err", err)
		}
	}()

	// Server
	srv := server.NewServer(log, cfg.Service.Name, cfg.Service.Addr, tokenSvc, chatroomSvc, statusSvc)
	if err := srv.Start(); err != nil {
		log.Error("server stopped", "err", err)
	}
}
