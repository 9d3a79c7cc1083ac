package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/banterhq/banter/internal/config"
	"github.com/banterhq/banter/internal/database"
	"github.com/banterhq/banter/internal/repository/postgres"
	"github.com/banterhq/banter/internal/service"
	"github.com/banterhq/banter/internal/transport/http/handlers"
	"github.com/banterhq/banter/internal/transport/http/middleware"
	"github.com/banterhq/banter/internal/transport/ws"
	"github.com/banterhq/banter/pkg/logger"
	"github.com/banterhq/banter/pkg/metrics"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(logger.Config{Development: cfg.IsDevelopment()})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalw("database connection failed", "error", err)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
	defer rdb.Close()

	userRepo := postgres.NewUserRepo(pool)
	chatRepo := postgres.NewChatRepo(pool)
	messageRepo := postgres.NewMessageRepo(pool)
	ledger := postgres.NewUnreadRepo(pool)

	authService := service.NewAuthService(userRepo, cfg.JWTSecret)
	chatService := service.NewChatService(chatRepo, userRepo, ledger)
	messageService := service.NewMessageService(messageRepo, chatRepo, ledger)
	userService := service.NewUserService(userRepo)

	hub := ws.NewHub(userRepo, log)
	go hub.Run(ctx)

	notifier := ws.NewHubNotifier(hub)
	chatService.SetNotifier(notifier)
	messageService.SetNotifier(notifier)

	authHandler := handlers.NewAuthHandler(authService, log)
	chatHandler := handlers.NewChatHandler(chatService, messageService, log)
	messageHandler := handlers.NewMessageHandler(messageService, log)
	userHandler := handlers.NewUserHandler(userService, log)

	auth := middleware.Auth(cfg.JWTSecret)
	authLimit := middleware.RateLimit(rdb, log, cfg.AuthRateLimit, cfg.AuthRateWindow)

	mux := http.NewServeMux()

	mux.Handle("POST /api/v1/auth/register", authLimit(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /api/v1/auth/login", authLimit(http.HandlerFunc(authHandler.Login)))
	mux.Handle("GET /api/v1/me", auth(http.HandlerFunc(authHandler.Me)))

	mux.Handle("GET /api/v1/users", auth(http.HandlerFunc(userHandler.List)))
	mux.Handle("GET /api/v1/users/search", auth(http.HandlerFunc(userHandler.Search)))

	mux.Handle("GET /api/v1/chats", auth(http.HandlerFunc(chatHandler.List)))
	mux.Handle("POST /api/v1/chats/direct", auth(http.HandlerFunc(chatHandler.CreateDirect)))
	mux.Handle("POST /api/v1/chats/group", auth(http.HandlerFunc(chatHandler.CreateGroup)))
	mux.Handle("GET /api/v1/chats/{id}", auth(http.HandlerFunc(chatHandler.Get)))
	mux.Handle("POST /api/v1/chats/{id}/join", auth(http.HandlerFunc(chatHandler.JoinGroup)))
	mux.Handle("POST /api/v1/chats/{id}/leave", auth(http.HandlerFunc(chatHandler.LeaveGroup)))
	mux.Handle("POST /api/v1/chats/{id}/read", auth(http.HandlerFunc(chatHandler.MarkAllRead)))
	mux.Handle("GET /api/v1/chats/{id}/messages", auth(http.HandlerFunc(messageHandler.List)))
	mux.Handle("POST /api/v1/chats/{id}/messages", auth(http.HandlerFunc(messageHandler.Send)))

	mux.Handle("GET /ws", ws.ServeWS(hub, cfg.JWTSecret, userRepo, chatService, messageService, log))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("GET /metrics", metrics.Handler())

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: middleware.CORS(mux),
	}

	go func() {
		log.Infow("server starting", "port", cfg.ServerPort, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("shutdown failed", "error", err)
		os.Exit(1)
	}
}
