package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/blog-realtime-api/internal/api"
	"github.com/blog-realtime-api/internal/config"
	"github.com/blog-realtime-api/internal/database"
	"github.com/blog-realtime-api/internal/identity"
	"github.com/blog-realtime-api/internal/realtime"
	"github.com/blog-realtime-api/internal/repository"
	"github.com/blog-realtime-api/internal/service"
	"github.com/blog-realtime-api/pkg/logger"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "json")
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("Starting Blog Realtime API server...")

	// Initialize database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(cfg.Server.MigrationsPath, database.MigrationTarget{}); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	repos := repository.New(db)

	// Realtime hub, optionally relayed across instances through Redis
	hub := realtime.NewHub(realtime.Options{
		SendBuffer:     cfg.Realtime.SendBuffer,
		WriteTimeout:   cfg.Realtime.WriteTimeout,
		PongTimeout:    cfg.Realtime.PongTimeout,
		MaxMessageSize: cfg.Realtime.MaxMessageSize,
		AllowedOrigins: cfg.Realtime.AllowedOrigins,
	}, log)

	relayCtx, stopRelay := context.WithCancel(context.Background())
	defer stopRelay()

	var broadcaster service.Broadcaster = hub
	if cfg.Realtime.RelayEnabled() {
		relay := realtime.NewRedisRelay(redis.NewClient(&redis.Options{
			Addr:     cfg.Realtime.RedisAddr,
			Password: cfg.Realtime.RedisPassword,
			DB:       cfg.Realtime.RedisDB,
		}), cfg.Realtime.RedisChannel, hub, log)
		defer relay.Close()

		if err := relay.Ping(relayCtx); err != nil {
			log.Warn().Err(err).Msg("Redis unreachable, events will reach local viewers only until it recovers")
		}
		go func() {
			if err := relay.Run(relayCtx); err != nil {
				log.Error().Err(err).Msg("Event relay stopped")
			}
		}()
		broadcaster = relay
		log.Info().Str("addr", cfg.Realtime.RedisAddr).Msg("Event relay enabled")
	}

	// Initialize services
	services := service.NewServices(repos, broadcaster, log)

	// Identity resolution
	resolver := identity.NewResolver(
		identity.NewJWTVerifier([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer),
		cfg.Identity.AnonymousIDs,
	)

	// Initialize router
	router := api.NewRouter(api.Deps{
		Services: services,
		Resolver: resolver,
		Hub:      hub,
		DB:       db,
	}, cfg, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown
	hub.Close()
	stopRelay()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}
