package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/walletapp/wallet-service/internal/auth"
	"github.com/walletapp/wallet-service/internal/config"
	"github.com/walletapp/wallet-service/internal/database"
	"github.com/walletapp/wallet-service/internal/email"
	"github.com/walletapp/wallet-service/internal/handler"
	"github.com/walletapp/wallet-service/internal/metrics"
	"github.com/walletapp/wallet-service/internal/middleware"
	"github.com/walletapp/wallet-service/internal/repository"
	"github.com/walletapp/wallet-service/internal/scheduler"
	"github.com/walletapp/wallet-service/internal/service"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize layers
	repo := repository.NewRepository(db)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	sender := email.NewSender(cfg, logger)
	svc := service.NewService(repo, repo, tokens, sender, logger)
	h := handler.NewHandler(svc, logger)

	// Rate limit auth endpoints: 1 req/sec with burst 10 per IP
	limiter := middleware.NewRateLimiter(rate.Limit(1), 10)
	defer limiter.Stop()

	collector := metrics.NewCollector()
	r := handler.NewRouter(h, tokens, limiter, collector, logger)

	// Optional scheduled email reports
	if cfg.ReportSchedule != "" {
		sched := scheduler.New(svc, logger)
		if err := sched.Start(cfg.ReportSchedule); err != nil {
			logger.Fatalf("Failed to start report scheduler: %v", err)
		}
		defer sched.Stop()
	}

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
