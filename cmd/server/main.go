package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/vanishchat/vanish/internal/config"
	"github.com/vanishchat/vanish/internal/database"
	"github.com/vanishchat/vanish/internal/expiry"
	"github.com/vanishchat/vanish/internal/presence"
	postgresrepo "github.com/vanishchat/vanish/internal/repository/postgres"
	"github.com/vanishchat/vanish/internal/service"
	"github.com/vanishchat/vanish/internal/transport/http/handlers"
	"github.com/vanishchat/vanish/internal/transport/http/middleware"
	"github.com/vanishchat/vanish/internal/transport/ws"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()
	logger.Info("connected to database")

	// Repositories
	userRepo := postgresrepo.NewUserRepo(pool)
	messageRepo := postgresrepo.NewMessageRepo(pool)

	// Services
	authService := service.NewAuthService(userRepo, cfg.JWTSecret)
	userService := service.NewUserService(userRepo)
	policy := service.NewDeliveryPolicy(userRepo)
	reaper := expiry.NewReaper(messageRepo, cfg.SweepInterval, logger)
	delivery := service.NewDeliveryService(messageRepo, userRepo, policy, reaper, cfg.MessageTTL, logger)

	// Real-time hub
	registry := presence.NewRegistry()
	hub := ws.NewHub(registry, userRepo, delivery, cfg.RevealBlockReason, logger)
	notifier := ws.NewHubNotifier(hub)
	delivery.SetNotifier(notifier)
	reaper.SetNotifier(notifier)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, logger)
	userHandler := handlers.NewUserHandler(userService, logger)
	messageHandler := handlers.NewMessageHandler(delivery, cfg.RevealBlockReason, logger)

	// Auth middleware
	auth := middleware.Auth(cfg.JWTSecret, logger)

	// Routes
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	// Real-time connection gateway (token auth at handshake)
	mux.HandleFunc("GET /ws", ws.ServeWS(hub, cfg.JWTSecret))

	// Protected - Users
	mux.Handle("GET /api/v1/users", auth(http.HandlerFunc(userHandler.List)))
	mux.Handle("GET /api/v1/users/contacts", auth(http.HandlerFunc(userHandler.Contacts)))
	mux.Handle("GET /api/v1/users/{id}", auth(http.HandlerFunc(userHandler.Get)))
	mux.Handle("POST /api/v1/users/block", auth(http.HandlerFunc(userHandler.Block)))
	mux.Handle("POST /api/v1/users/unblock", auth(http.HandlerFunc(userHandler.Unblock)))

	// Protected - Messages
	mux.Handle("GET /api/v1/messages/{chatId}", auth(http.HandlerFunc(messageHandler.History)))
	mux.Handle("POST /api/v1/messages", auth(http.HandlerFunc(messageHandler.Send)))
	mux.Handle("DELETE /api/v1/messages/cleanup", auth(http.HandlerFunc(messageHandler.Cleanup)))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: middleware.CORS(mux),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(ctx)
	})
	g.Go(func() error {
		return reaper.Run(ctx)
	})
	g.Go(func() error {
		logger.Info("starting server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("server exited", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
