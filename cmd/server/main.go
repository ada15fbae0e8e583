package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"

	"linkup-realtime/internal/auth"
	"linkup-realtime/internal/config"
	"linkup-realtime/internal/redis"
	"linkup-realtime/internal/store"
	"linkup-realtime/internal/ws"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg.LogLevel)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	// External persisted store
	pg, err := store.NewPostgres(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	defer pg.Close()

	verifier := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)

	// Ingress bridge for the REST layer's push primitives
	redisClient := redis.NewClient(cfg.RedisURL)
	defer redisClient.Close()

	hub := ws.NewHub(pg, verifier, cfg.TypingTTL)
	go hub.Run()

	go redis.SubscribeToPush(redisClient, hub.Pipeline(), hub.Notifier())

	// Routes
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, w, r)
	})

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	slog.Info("Realtime server starting", "port", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, nil))
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))
}
