package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mmuslimabdulj/chirp/internal/auth"
	"github.com/mmuslimabdulj/chirp/internal/config"
	deliveryhttp "github.com/mmuslimabdulj/chirp/internal/delivery/http"
	"github.com/mmuslimabdulj/chirp/internal/delivery/ws"
	"github.com/mmuslimabdulj/chirp/internal/middleware"
	"github.com/mmuslimabdulj/chirp/internal/store"
)

func newLogger(level string) *slog.Logger {
	if level == "silent" || level == "off" {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func main() {
	// Load .env file (ignore error if not exists, e.g. in production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)

	// Storage: Redis when configured, in-memory otherwise
	var st store.Store
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisStore, err := store.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		cancel()
		if err != nil {
			log.Error("redis", "error", err)
			os.Exit(1)
		}
		st = redisStore
		log.Info("using redis store", "addr", cfg.RedisAddr)
	} else {
		st = store.NewMemory()
		log.Info("using in-memory store")
	}

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)

	hub := ws.NewHub(tokens, ws.Options{
		HeartbeatInterval: cfg.HeartbeatInterval,
		HandshakeTimeout:  cfg.HandshakeTimeout,
		MaxMessageSize:    cfg.MaxMessageSize,
		Logger:            log,
	})
	go hub.Run()

	handler := deliveryhttp.NewHandler(cfg, st, tokens, hub, log)
	router := handler.Router(
		middleware.NewIPRateLimiter(cfg.RateLimitAPI, int(cfg.RateLimitAPI)*2),
		middleware.NewIPRateLimiter(cfg.RateLimitWS, int(cfg.RateLimitWS)*2),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("chirp server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", "error", err)
	}
	hub.Close()

	log.Info("server exited gracefully")
}
