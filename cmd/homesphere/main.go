package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/homesphere/homesphere/internal/auth"
	"github.com/homesphere/homesphere/internal/database"
	"github.com/homesphere/homesphere/internal/email"
	"github.com/homesphere/homesphere/internal/logging"
	"github.com/homesphere/homesphere/internal/server"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := logging.Setup(os.Getenv("HOMESPHERE_LOG_LEVEL"))

	jwtSecret := os.Getenv("HOMESPHERE_JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("HOMESPHERE_JWT_SECRET is required")
		os.Exit(1)
	}

	dbPath := envDefault("HOMESPHERE_DB_PATH", "homesphere.db")
	port := envDefault("HOMESPHERE_PORT", "8080")
	baseURL := envDefault("HOMESPHERE_BASE_URL", "http://localhost:"+port)

	tokenTTL := auth.DefaultTokenTTL
	if raw := os.Getenv("HOMESPHERE_TOKEN_TTL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			logger.Error("invalid HOMESPHERE_TOKEN_TTL", "value", raw, "error", err)
			os.Exit(1)
		}
		tokenTTL = d
	}

	var unlimitedEmails []string
	if raw := os.Getenv("HOMESPHERE_UNLIMITED_TOKEN_EMAILS"); raw != "" {
		for _, e := range strings.Split(raw, ",") {
			if e = strings.TrimSpace(e); e != "" {
				unlimitedEmails = append(unlimitedEmails, e)
			}
		}
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	emailClient := email.NewClient(
		os.Getenv("HOMESPHERE_POSTMARK_TOKEN"),
		envDefault("HOMESPHERE_EMAIL_FROM", "noreply@homesphere.app"),
		baseURL,
	)
	if !emailClient.Configured() {
		logger.Warn("postmark token not set, outgoing email disabled")
	}

	srv := server.New(db, emailClient, server.Config{
		JWTSecret:            jwtSecret,
		TokenTTL:             tokenTTL,
		UnlimitedTokenEmails: unlimitedEmails,
	}, logger)

	if n := srv.Tokens().UnlimitedCount(); n > 0 {
		logger.Warn("non-expiring tokens enabled for allow-listed accounts", "count", n)
	}

	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			srv.RateLimiter().Cleanup()
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", httpServer.Addr, "db", dbPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
