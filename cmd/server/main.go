// File: cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/altracloud/altrachat/internal/config"
	"github.com/altracloud/altrachat/internal/handlers"
	"github.com/altracloud/altrachat/internal/middleware"
	"github.com/altracloud/altrachat/internal/ratelimit"
	"github.com/altracloud/altrachat/internal/render"
	"github.com/altracloud/altrachat/internal/repository/blob"
	"github.com/altracloud/altrachat/internal/services"
	"github.com/altracloud/altrachat/internal/services/ai"
	"github.com/altracloud/altrachat/internal/services/identity"
	"github.com/altracloud/altrachat/internal/services/workspace"
)

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	cfg := config.Load()
	logger := services.NewLogger("altrachat", cfg.Environment, cfg.LogLevel)

	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		log.Fatalf("DB Error: %v", err)
	}
	if err := db.AutoMigrate(&blob.Record{}); err != nil {
		log.Fatalf("DB Migration Error: %v", err)
	}

	// --- Repositories ---
	blobRepo := blob.NewGormBlobRepository(db)

	// --- Services ---
	profiles, err := ai.LoadModeProfiles(cfg.ModeProfilesFile)
	if err != nil {
		log.Fatalf("FATAL: Failed to load mode profiles: %v", err)
	}

	aiConfig := ai.DefaultConfig()
	aiConfig.ProxyURL = cfg.CompletionProxyURL
	aiConfig.ProxyKey = cfg.CompletionProxyKey
	aiConfig.GatewayKey = cfg.GatewayAPIKey
	aiConfig.GatewayBaseURL = cfg.GatewayBaseURL
	aiConfig.Timeout = cfg.CompletionTimeout

	completer, err := ai.NewCompleter(aiConfig, profiles, logger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize completion client: %v", err)
	}

	watcher := identity.NewWatcher()
	provider, err := identity.NewFirebaseProvider(identity.FirebaseConfig{ProjectID: cfg.FirebaseProjectID}, watcher, logger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize identity provider: %v", err)
	}

	registry := workspace.NewRegistry(blobRepo, completer, logger, workspace.Config{
		CompletionTimeout: cfg.CompletionTimeout,
		NotificationLimit: cfg.NotificationQueueSize,
	})
	watcher.Subscribe(registry.HandleIdentityEvent)

	// --- Handlers ---
	sessionSecret := []byte(cfg.SessionSecret)
	secureCookies := cfg.IsProduction()

	authHandler := handlers.NewAuthHandler(provider, sessionSecret, secureCookies, logger)
	chatHandler := handlers.NewChatHandler(registry, logger)
	pageHandler, err := handlers.NewPageHandler("web/templates", registry, render.NewRenderer(render.DefaultStyle),
		handlers.FirebaseWebConfig{
			APIKey:     cfg.FirebaseAPIKey,
			AuthDomain: cfg.AuthDomain(),
			ProjectID:  cfg.FirebaseProjectID,
		}, logger)
	if err != nil {
		log.Fatalf("FATAL: Failed to load templates: %v", err)
	}

	signInLimiter := ratelimit.NewMemoryRateLimiter(ratelimit.DefaultSignInConfig(cfg.SignInRatePerMinute))
	defer signInLimiter.Close()
	messageLimiter := ratelimit.NewMemoryRateLimiter(&ratelimit.Config{
		PerMinute: cfg.MessageRatePerMinute,
		Burst:     5,
	})
	defer messageLimiter.Close()

	// --- Router Setup ---
	r := mux.NewRouter()
	sessionMiddleware := middleware.NewSessionMiddleware(sessionSecret, secureCookies, logger)

	r.Use(corsMiddleware)
	r.Use(middleware.RecoverPanic(logger))
	r.Use(middleware.LoggingMiddleware(logger))

	// --- Public Routes ---
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK); _, _ = w.Write([]byte("OK")) }).Methods("GET")
	r.HandleFunc("/api/log", handlers.LogFrontendEvent(logger)).Methods("POST")
	r.HandleFunc("/", pageHandler.ShowIndexPage).Methods("GET")
	r.HandleFunc("/auth/signout", authHandler.SignOut).Methods("POST")

	r.Handle("/auth/signin",
		middleware.RateLimitMiddleware(signInLimiter, "signin", logger)(
			middleware.AuthSuccessMiddleware(signInLimiter, "signin", logger)(
				http.HandlerFunc(authHandler.SignIn)))).Methods("POST")

	// --- Protected Routes ---
	protected := r.PathPrefix("/").Subrouter()
	protected.Use(sessionMiddleware)
	protected.HandleFunc("/chat", pageHandler.ShowChatPage).Methods("GET")

	api := protected.PathPrefix("/api").Subrouter()
	api.HandleFunc("/me", chatHandler.GetMe).Methods("GET")
	api.HandleFunc("/threads", chatHandler.ListThreads).Methods("GET")
	api.HandleFunc("/threads", chatHandler.CreateThread).Methods("POST")
	api.HandleFunc("/threads/{id}/select", chatHandler.SelectThread).Methods("PUT")
	api.HandleFunc("/threads/{id}", chatHandler.RenameThread).Methods("PATCH")
	api.HandleFunc("/threads/{id}", chatHandler.DeleteThread).Methods("DELETE")
	api.HandleFunc("/threads/{id}/messages", chatHandler.GetThreadMessages).Methods("GET")
	api.HandleFunc("/notifications", chatHandler.GetNotifications).Methods("GET")

	api.Handle("/messages",
		middleware.RateLimitMiddleware(messageLimiter, "messages", logger)(
			http.HandlerFunc(chatHandler.SendMessage))).Methods("POST")

	// --- Custom Error Handlers ---
	r.NotFoundHandler = http.HandlerFunc(pageHandler.NotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(pageHandler.MethodNotAllowed)

	// --- Server Configuration ---
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("AltraChat server starting",
		"port", cfg.ServerPort,
		"env", cfg.Environment,
		"database", cfg.DatabasePath,
		"completion_proxy", aiConfig.UsesProxy())

	// --- Start Server in Goroutine ---
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server startup failed: %v", err)
		}
	}()

	// --- Graceful Shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down server gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", "error", err)
		return
	}
	logger.Info("server stopped gracefully")
}
