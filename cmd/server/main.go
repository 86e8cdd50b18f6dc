package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/onboardly/backend/internal/auth"
	"github.com/onboardly/backend/internal/config"
	"github.com/onboardly/backend/internal/logger"
	"github.com/onboardly/backend/internal/middleware"
	"github.com/onboardly/backend/internal/store"
	"github.com/onboardly/backend/internal/users"
	"github.com/onboardly/backend/internal/validate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel, !cfg.IsProduction())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zlog.Sync()

	ctx := context.Background()

	// ── PostgreSQL ────────────────────────────────────────────
	client, err := store.NewClient(cfg.DatabaseURL, cfg.MigrationsURL, zlog)
	if err != nil {
		zlog.Fatalw("postgres connect", "error", err)
	}
	defer client.Close()

	// ── Redis (optional list cache) ──────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		zlog.Fatalw("redis connect", "error", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}
	userStore := store.NewUserStore(client.Gorm, store.NewUserCache(rdb), zlog)

	// ── Handlers ─────────────────────────────────────────────
	tokens := auth.NewTokenIssuer(cfg.JWTSecret)
	validator := validate.New()
	authHandler := auth.NewHandler(userStore, tokens, validator, zlog, cfg.IsProduction())
	usersHandler := users.NewHandler(userStore, validator, zlog, cfg.IsProduction())

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(zlog))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
		r.Post("/", authHandler.Register)
		r.Get("/", authHandler.List)
		r.Put("/", authHandler.Update)
		r.Delete("/", authHandler.Delete)
		r.With(middleware.RequireAuth(tokens)).Get("/me", authHandler.Me)
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Post("/", usersHandler.Create)
		r.Get("/", usersHandler.Get)
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
	}

	go func() {
		zlog.Infow("backend listening", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatalw("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Infow("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		zlog.Errorw("graceful shutdown failed", "error", err)
	}
}
