package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/spendlens/engine/internal/api/procurefeed"
	"github.com/spendlens/engine/internal/config"
	"github.com/spendlens/engine/internal/database"
	"github.com/spendlens/engine/internal/engine"
	"github.com/spendlens/engine/models"
)

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
	logger.Info().Str("item", cfg.ItemID).Str("vendor", cfg.VendorID).Msg("Starting price analyzer")

	eng, err := engine.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build engine")
	}

	history, points, err := loadInputs(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load inputs")
	}
	if len(history) == 0 {
		logger.Warn().Msg("Empty price history, prediction will carry low confidence")
	}

	currentPrice := 0.0
	if len(history) > 0 {
		currentPrice = history[len(history)-1].Price
	}

	prediction := eng.Predict(history, currentPrice, cfg.AnnualVolume)
	logPrediction(logger, prediction, currentPrice)

	if len(points) > 0 {
		results, err := eng.Detect(points)
		if err != nil {
			logger.Fatal().Err(err).Msg("Outlier detection failed")
		}
		logOutliers(logger, results)
	}
}

// loadInputs fetches the price history (feed service when configured,
// database otherwise) and, when the database is reachable, a recent
// invoice-line batch for outlier scoring.
func loadInputs(ctx context.Context, cfg *config.Config, logger zerolog.Logger) ([]models.PriceObservation, []models.DataPoint, error) {
	if cfg.FeedURL != "" {
		client := procurefeed.NewClient(procurefeed.ClientOptions{
			BaseURL:        cfg.FeedURL,
			APIKey:         cfg.FeedAPIKey,
			RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
			RequestsPerSec: 5,
		})
		history, err := client.GetPriceHistory(ctx, cfg.ItemID, cfg.VendorID, cfg.HistoryLimit)
		return history, nil, err
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
		return nil, nil, err
	}
	defer db.Close()

	history, err := db.LoadPriceHistory(ctx, cfg.ItemID, cfg.VendorID, cfg.HistoryLimit)
	if err != nil {
		return nil, nil, err
	}

	since := time.Now().AddDate(0, -3, 0)
	points, err := db.LoadInvoiceLines(ctx, since, 10000)
	if err != nil {
		logger.Warn().Err(err).Msg("Could not load invoice lines, skipping outlier scan")
		return history, nil, nil
	}
	return history, points, nil
}

func logPrediction(logger zerolog.Logger, p models.PricePrediction, currentPrice float64) {
	event := logger.Info().
		Str("state", string(p.CurrentState)).
		Float64("confidence", p.Confidence).
		Str("recommendation", string(p.Recommendation)).
		Str("platform_action", p.Recommendation.PlatformAction()).
		Float64("current_price", currentPrice).
		Float64("annual_impact", p.AnnualImpact)

	for _, days := range models.ForecastHorizons {
		h := p.Horizons[days]
		event = event.Float64(fmt.Sprintf("forecast_%dd", days), h.Price)
	}
	if p.WaitUntil != nil {
		event = event.Time("wait_until", *p.WaitUntil)
	}
	if p.ExpectedSavings != nil {
		event = event.Float64("expected_savings", *p.ExpectedSavings)
	}
	event.Msg("Prediction")
}

func logOutliers(logger zerolog.Logger, results []models.AnomalyResult) {
	var flagged int
	for _, r := range results {
		if !r.IsAnomaly {
			continue
		}
		flagged++
		logger.Warn().
			Str("point_id", r.PointID).
			Float64("score", r.Score).
			Str("type", string(r.AnomalyType)).
			Str("details", r.Details).
			Msg("Outlier flagged")
	}
	logger.Info().Int("scored", len(results)).Int("flagged", flagged).Msg("Outlier scan complete")
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
