// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/quill/internal/cache"
	"github.com/olegiv/quill/internal/config"
	"github.com/olegiv/quill/internal/handler"
	"github.com/olegiv/quill/internal/logging"
	"github.com/olegiv/quill/internal/middleware"
	"github.com/olegiv/quill/internal/quotes"
	"github.com/olegiv/quill/internal/render"
	"github.com/olegiv/quill/internal/scheduler"
	"github.com/olegiv/quill/internal/session"
	"github.com/olegiv/quill/internal/store"
	"github.com/olegiv/quill/internal/version"
	"github.com/olegiv/quill/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Quill - a small blogging application\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  QUILL_SESSION_SECRET   Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  QUILL_DB_PATH          SQLite database path (default: ./data/quill.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  QUILL_SERVER_PORT      Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  QUILL_ENV              Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  QUILL_STRONG_PASSWORDS Enforce the strong-password policy on registration\n")
		_, _ = fmt.Fprintf(os.Stderr, "  QUILL_QUOTE_API_URL    Quote-of-the-day API endpoint (default: https://quotes.rest/qod)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  QUILL_REDIS_URL        Redis URL for distributed caching (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		info := version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime}
		_, _ = fmt.Printf("quill %s\n", info)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	versionInfo := &version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	// Setup logger
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(textHandler))

	// Ensure data directory exists
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	// Initialize database
	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	// Run migrations
	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the event log
	logger := slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	// Seed demo data when enabled
	ctx := context.Background()
	if err := store.Seed(ctx, db, cfg.DoSeed); err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}

	// Initialize session manager
	sessionManager := session.New(db, cfg.IsDevelopment())
	slog.Info("session manager initialized")

	// Initialize the quote cache: Redis when configured, in-process otherwise
	quoteCache := cache.New(cache.Config{
		RedisURL:        cfg.RedisURL,
		Prefix:          cfg.CachePrefix,
		DefaultTTL:      time.Duration(cfg.QuoteCacheTTL) * time.Second,
		CleanupInterval: time.Minute,
	})
	defer func() {
		if err := quoteCache.Close(); err != nil {
			slog.Error("error closing cache", "error", err)
		}
	}()

	quoteService := quotes.NewService(
		quotes.NewClient(cfg.QuoteAPIURL),
		quoteCache,
		time.Duration(cfg.QuoteCacheTTL)*time.Second,
	)

	// Initialize and start scheduler
	sched := scheduler.New(db, quoteService, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	// Initialize renderer over the embedded templates
	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("accessing embedded templates: %w", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sessionManager,
		IsDev:          cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}

	// Brute-force protection for the login endpoint
	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())

	authHandler := handler.NewAuthHandler(db, renderer, sessionManager, loginProtection, cfg.StrongPasswords)
	blogHandler := handler.NewBlogHandler(db, renderer, quoteService)

	// Build router
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(middleware.CSRF(middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment(), cfg.ServerAddr())))
	r.Use(sessionManager.LoadAndSave)
	r.Use(middleware.LoadCurrentUser(sessionManager, db))
	r.Use(middleware.RequestPath)

	r.Route("/auth", func(r chi.Router) {
		r.Get(handler.RouteRegister, authHandler.RegisterForm)
		r.Post(handler.RouteRegister, authHandler.Register)
		r.Get(handler.RouteLogin, authHandler.LoginForm)
		r.With(loginProtection.Middleware()).Post(handler.RouteLogin, authHandler.Login)
		r.Get(handler.RouteLogout, authHandler.Logout)
	})

	// Public pages
	r.Get(handler.RouteRoot, blogHandler.Index)
	r.Get(handler.RouteParamID, blogHandler.Show)

	// Pages requiring a logged-in user
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireLogin(sessionManager))
		r.Get(handler.RouteCreate, blogHandler.CreateForm)
		r.Post(handler.RouteCreate, blogHandler.Create)
		r.Get(handler.RouteUpdate, blogHandler.EditForm)
		r.Post(handler.RouteUpdate, blogHandler.Update)
		r.Post(handler.RouteDelete, blogHandler.Delete)
	})

	// Create server with appropriate timeouts
	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server",
			"addr", cfg.ServerAddr(),
			"env", cfg.Env,
			"version", versionInfo.Version,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
