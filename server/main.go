package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spilist/tokscale/server/internal/auth"
	"github.com/spilist/tokscale/server/internal/database"
	"github.com/spilist/tokscale/server/internal/handlers"
	"github.com/spilist/tokscale/server/internal/middleware"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	port := getEnv("PORT", "8080")
	dbPath := getEnv("DB_PATH", "./tokscale.db")

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	sessionMgr := scs.New()
	sessionMgr.Store = sqlite3store.New(db.DB)
	sessionMgr.Lifetime = 7 * 24 * time.Hour
	sessionMgr.Cookie.Secure = getEnv("COOKIE_SECURE", "") == "true"
	sessionMgr.Cookie.SameSite = http.SameSiteLaxMode

	h := handlers.New(db, sessionMgr, logger)
	authMiddleware := auth.NewMiddleware(db, sessionMgr)
	authLimiter := middleware.NewIPRateLimiter(rate.Every(time.Minute/10), 10)

	mux := http.NewServeMux()

	// Public routes, rate limited to slow credential stuffing
	mux.Handle("/api/register", authLimiter.LimitFunc(h.Register))
	mux.Handle("/api/login", authLimiter.LimitFunc(h.Login))
	mux.HandleFunc("/api/health", h.Health)
	mux.HandleFunc("/api/leaderboard", h.Leaderboard)

	// Session-based routes
	mux.Handle("/api/logout", authMiddleware.RequireAuth(http.HandlerFunc(h.Logout)))

	// API key-based routes
	mux.Handle("/api/submit", authMiddleware.RequireAPIKey(http.HandlerFunc(h.Submit)))

	// Session or API key
	mux.Handle("/api/me", authMiddleware.RequireAnyAuth(http.HandlerFunc(h.Me)))

	handler := middleware.SecurityHeaders(sessionMgr.LoadAndSave(mux))

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("starting tokscale-server",
			zap.String("addr", srv.Addr),
			zap.String("database", dbPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
