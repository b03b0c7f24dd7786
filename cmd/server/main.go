package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/conquest/api/internal/auth"
	"github.com/freeeve/conquest/api/internal/config"
	"github.com/freeeve/conquest/api/internal/events"
	"github.com/freeeve/conquest/api/internal/handler"
	"github.com/freeeve/conquest/api/internal/logger"
	"github.com/freeeve/conquest/api/internal/middleware"
	"github.com/freeeve/conquest/api/internal/repository"
	"github.com/freeeve/conquest/api/internal/repository/memory"
	"github.com/freeeve/conquest/api/internal/repository/postgres"
	redisrepo "github.com/freeeve/conquest/api/internal/repository/redis"
	"github.com/freeeve/conquest/api/internal/service"
	"github.com/freeeve/conquest/api/pkg/risk"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logger.Init(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, Dev: cfg.Dev})
	log.Info().Str("store", cfg.Store).Bool("redis", cfg.RedisURL != "").Bool("nats", cfg.NATSURL != "").Msg("Config loaded")

	// Store
	var (
		rooms repository.RoomRepository
		store repository.MatchStore
	)
	switch cfg.Store {
	case config.StorePostgres:
		db, err := postgres.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Database connection failed")
		}
		defer func(db *sql.DB) { db.Close() }(db)
		rooms, store = postgres.NewRoomRepo(db), postgres.NewMatchStore(db)
	default:
		mem := memory.NewStore()
		rooms, store = mem, mem
		log.Warn().Msg("Using in-memory store; matches are lost on restart")
	}

	// Live cache and per-match lock
	var (
		cache  repository.MatchCache
		locker repository.MatchLocker
	)
	if cfg.RedisURL != "" {
		redisClient, err := redisrepo.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Redis connection failed")
		}
		defer redisClient.Close()
		cache, locker = redisClient, redisClient
	} else {
		cache, locker = memory.NewCache(), memory.NewLocker()
	}

	// Event sinks
	wsHub := handler.NewHub()
	broadcaster := service.MultiBroadcaster{wsHub}
	if cfg.NATSURL != "" {
		nc, err := events.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatal().Err(err).Msg("NATS connection failed")
		}
		defer nc.Drain()
		broadcaster = append(broadcaster, events.NewPublisher(nc, events.DefaultSubjectPrefix))
	}

	// Services
	engine := risk.NewEngine(risk.StandardMap(), risk.NewTimeRand())
	matchSvc := service.NewMatchService(rooms, store, cache, broadcaster, nil)
	actionSvc := service.NewActionService(store, cache, locker, engine, broadcaster, cfg.LockTTL)
	botDriver := service.NewBotDriver(actionSvc, store, cache, cfg.BotPollInterval, cfg.BotPacing)
	matchSvc.SetBotDriver(botDriver)
	actionSvc.SetBotDriver(botDriver)

	// Router
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret)
	mux := http.NewServeMux()
	handler.Routes{
		JWT:     jwtMgr,
		Auth:    handler.NewAuthHandler(jwtMgr, cfg.DevAuth),
		Rooms:   handler.NewRoomHandler(matchSvc),
		Matches: handler.NewMatchHandler(matchSvc, actionSvc),
		WS:      handler.NewWSHandler(wsHub, jwtMgr, cfg.CORSOrigins),
	}.Register(mux)

	root := middleware.Chain(mux, middleware.Recover, middleware.Logger, middleware.CORS(cfg.CORSOrigins), middleware.JSON)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Poll for stalled AI turns and resume those interrupted by a restart.
	botDriver.Start(ctx)
	if err := botDriver.RecoverActiveMatches(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to recover active matches (non-fatal)")
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	cancel()
	botDriver.Wait()
	log.Info().Msg("Server stopped")
}
