package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tickerdesk/tickerdesk/internal/auth"
	"github.com/tickerdesk/tickerdesk/internal/clients/fmp"
	"github.com/tickerdesk/tickerdesk/internal/clients/prediction"
	"github.com/tickerdesk/tickerdesk/internal/config"
	"github.com/tickerdesk/tickerdesk/internal/database"
	markethandlers "github.com/tickerdesk/tickerdesk/internal/modules/market/handlers"
	"github.com/tickerdesk/tickerdesk/internal/modules/portfolio"
	portfoliohandlers "github.com/tickerdesk/tickerdesk/internal/modules/portfolio/handlers"
	predicthandlers "github.com/tickerdesk/tickerdesk/internal/modules/predict/handlers"
	"github.com/tickerdesk/tickerdesk/internal/modules/users"
	userhandlers "github.com/tickerdesk/tickerdesk/internal/modules/users/handlers"
	"github.com/tickerdesk/tickerdesk/internal/scheduler"
	"github.com/tickerdesk/tickerdesk/internal/server"
	"github.com/tickerdesk/tickerdesk/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting tickerdesk server")

	// Initialize database
	ctx := context.Background()
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Initialize scheduler
	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	// Token manager and repositories
	tokens := auth.NewManager(cfg.JWTSecret)
	userRepo := users.NewRepository(db.Pool(), log)
	portfolioRepo := portfolio.NewRepository(db.Pool(), log)

	// Upstream clients
	market := fmp.NewClient(cfg.StockAPIBase, cfg.StockAPIKey, log)
	predictor := prediction.NewClient(cfg.ModelBaseURL, log)

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:      cfg.Port,
		Log:       log,
		DB:        db,
		Tokens:    tokens,
		Users:     userhandlers.NewHandler(userRepo, tokens, log),
		Portfolio: portfoliohandlers.NewHandler(portfolioRepo, market, log),
		Market:    markethandlers.NewHandler(market, log),
		Predict:   predicthandlers.NewHandler(predictor, log),
		Scheduler: sched,
		DevMode:   cfg.DevMode,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
