package engine

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/spendlens/engine/internal/anomaly"
	"github.com/spendlens/engine/internal/config"
	"github.com/spendlens/engine/internal/graph"
	"github.com/spendlens/engine/internal/prediction"
	"github.com/spendlens/engine/internal/regime"
	"github.com/spendlens/engine/models"
)

// Engine bundles the three analytical operations consumed by the platform:
// price prediction, transaction outlier scoring, and graph anomaly
// detection. Configuration is fixed at construction; every call is a pure
// computation over the supplied batch, so an Engine is safe for concurrent
// use.
type Engine struct {
	predictor *prediction.Predictor
	detector  *anomaly.Detector
	analyzer  *graph.Analyzer
	logger    zerolog.Logger
}

// New validates the configuration and assembles the engine.
func New(cfg *config.Config) (*Engine, error) {
	detector, err := anomaly.NewDetector(anomaly.Config{
		IsolationForestThreshold: cfg.IsolationForestThreshold,
		AutoencoderThreshold:     cfg.AutoencoderThreshold,
		Trees:                    cfg.IsolationTrees,
	})
	if err != nil {
		return nil, fmt.Errorf("building outlier detector: %w", err)
	}

	analyzer, err := graph.NewAnalyzer(graph.Config{
		MaxCycleLength:     cfg.CycleMaxLength,
		AmountTolerance:    cfg.AmountTolerance,
		ConcentrationSigma: cfg.ConcentrationSigma,
	})
	if err != nil {
		return nil, fmt.Errorf("building graph analyzer: %w", err)
	}

	return &Engine{
		predictor: prediction.NewPredictor(regime.DefaultParameters()),
		detector:  detector,
		analyzer:  analyzer,
		logger:    log.With().Str("component", "engine").Logger(),
	}, nil
}

// Predict infers the price regime of the supplied history and derives the
// forecast, recommendation, and annual cost impact.
func (e *Engine) Predict(history []models.PriceObservation, currentPrice, annualVolume float64) models.PricePrediction {
	result := e.predictor.Predict(history, currentPrice, annualVolume)
	e.logger.Debug().
		Int("observations", len(history)).
		Str("state", string(result.CurrentState)).
		Float64("confidence", result.Confidence).
		Str("recommendation", string(result.Recommendation)).
		Msg("Prediction computed")
	return result
}

// Detect scores a batch of data points for statistical outlier-ness.
func (e *Engine) Detect(points []models.DataPoint) ([]models.AnomalyResult, error) {
	results, err := e.detector.Detect(points)
	if err != nil {
		return nil, err
	}
	e.logger.Debug().
		Int("points", len(points)).
		Int("flagged", countFlagged(results)).
		Msg("Outlier detection computed")
	return results, nil
}

// DetectGraphAnomalies analyzes a transaction batch for structural fraud
// signatures.
func (e *Engine) DetectGraphAnomalies(transactions []models.TransactionNode) []models.AnomalyResult {
	results := e.analyzer.Detect(transactions)
	e.logger.Debug().
		Int("transactions", len(transactions)).
		Int("flagged", len(results)).
		Msg("Graph analysis computed")
	return results
}

func countFlagged(results []models.AnomalyResult) int {
	var n int
	for _, r := range results {
		if r.IsAnomaly {
			n++
		}
	}
	return n
}
