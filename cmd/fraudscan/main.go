package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/spendlens/engine/internal/config"
	"github.com/spendlens/engine/internal/database"
	"github.com/spendlens/engine/internal/engine"
	"github.com/spendlens/engine/models"
)

// scanWindowMonths is how far back the transaction batch reaches.
const scanWindowMonths = 6

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandling(cancel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogging(cfg.LogLevel)

	runID := uuid.NewString()
	logger := log.With().Str("run_id", runID).Logger()
	logger.Info().Msg("Starting fraud scan")

	eng, err := engine.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build engine")
	}

	db, err := database.New(database.ConnectionParams{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	since := time.Now().AddDate(0, -scanWindowMonths, 0)
	transactions, err := db.LoadTransactions(ctx, since, 100000)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load transactions")
	}
	logger.Info().Int("transactions", len(transactions)).Time("since", since).Msg("Batch loaded")

	results := eng.DetectGraphAnomalies(transactions)

	byType := make(map[models.AnomalyType]int)
	for _, r := range results {
		byType[r.AnomalyType]++
		logger.Warn().
			Str("transaction_id", r.PointID).
			Str("type", string(r.AnomalyType)).
			Float64("score", r.Score).
			Str("details", r.Details).
			Msg("Fraud signature")
	}

	summary := logger.Info().Int("flagged", len(results))
	for anomalyType, count := range byType {
		summary = summary.Int(string(anomalyType), count)
	}
	summary.Msg("Fraud scan complete")
}

// setupSignalHandling configures signal handling for graceful shutdown
func setupSignalHandling(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Info().Msg("Shutdown signal received, exiting...")
		cancel()
		os.Exit(0)
	}()
}

// setupLogging configures the logger
func setupLogging(logLevel string) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(output)

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(level)
}
