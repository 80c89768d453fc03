package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fakeso-chat/internal/config"
	"fakeso-chat/internal/handler"
	"fakeso-chat/internal/middleware"
	"fakeso-chat/internal/observability"
	"fakeso-chat/internal/projection"
	"fakeso-chat/internal/service"
	"fakeso-chat/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()
	observability.InitLogger(cfg.LogLevel, cfg.LogFormat)

	slog.Info("starting chat server",
		slog.String("store", cfg.StoreBackend),
		slog.String("relay", cfg.RelayBackend))

	connCtx, connCancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer connCancel()

	st, err := openStores(connCtx, cfg)
	if err != nil {
		slog.Error("failed to open store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer st.close()

	chatService := service.NewChatService(st.messages, st.chats)
	userService := service.NewUserService(st.users)
	populator := projection.NewPopulator(st.messages, st.users)

	seedUsers(connCtx, userService, cfg.SeedUsers)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := websocket.NewHub()
	go func() {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("hub error", slog.String("error", err.Error()))
		}
	}()
	slog.Info("websocket hub started")

	broadcaster, relayChecks, closeRelay, err := openBroadcaster(ctx, cfg, hub)
	if err != nil {
		slog.Error("failed to start relay", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeRelay()

	chatHandler := handler.NewChatHandler(chatService, userService, populator, broadcaster)
	wsHandler := handler.NewWebSocketHandler(hub, cfg.AllowedOrigins)

	checks := map[string]handler.Checker{"store": st.chats}
	for name, check := range relayChecks {
		checks[name] = check
	}

	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer limiter.Stop()

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestContext)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.Get("/health", handler.Health)
	r.Get("/health/ready", handler.Ready(checks))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", wsHandler.HandleConnection)

	r.Route("/api/chat", func(r chi.Router) {
		r.Use(limiter.Middleware())
		r.Use(middleware.OpenAPIValidator(middleware.DefaultOpenAPIValidatorConfig(cfg.OpenAPIValidation)))
		chatHandler.Routes(r)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Not Found"}` + "\n"))
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("chat server listening", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", slog.String("error", err.Error()))
	}

	cancel()

	// let the hub close client connections
	time.Sleep(100 * time.Millisecond)

	slog.Info("server stopped gracefully")
}

// seedUsers makes sure every configured username resolves (idempotent)
func seedUsers(ctx context.Context, users *service.UserService, usernames []string) {
	for _, username := range usernames {
		user, err := users.EnsureUser(ctx, username)
		if err != nil {
			slog.Error("failed to seed user",
				slog.String("username", username),
				slog.String("error", err.Error()))
			continue
		}
		slog.Info("seeded user",
			slog.String("username", user.Username),
			slog.String("id", user.ID))
	}
}
