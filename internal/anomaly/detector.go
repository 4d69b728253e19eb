package anomaly

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/spendlens/engine/models"
)

// Default detector settings. The thresholds keep the false-positive rate on
// homogeneous batches well under 20%.
const (
	DefaultIsolationForestThreshold = 0.6
	DefaultAutoencoderThreshold     = 0.7
	DefaultTrees                    = 100
	DefaultSampleSize               = 256
	DefaultRandomSeed               = 42
)

// Config tunes the outlier ensemble. Zero values fall back to defaults;
// negative thresholds are rejected at construction.
type Config struct {
	IsolationForestThreshold float64
	AutoencoderThreshold     float64
	Trees                    int
	SampleSize               int
	RandomSeed               int64
}

// Detector scores data points with two independent unsupervised signals: an
// isolation forest and a low-rank reconstruction model. Configuration is
// immutable after construction; Detect is safe to call concurrently.
type Detector struct {
	cfg Config
}

// NewDetector validates the configuration and builds a detector.
func NewDetector(cfg Config) (*Detector, error) {
	if cfg.IsolationForestThreshold < 0 {
		return nil, fmt.Errorf("isolation forest threshold must be non-negative, got %v", cfg.IsolationForestThreshold)
	}
	if cfg.AutoencoderThreshold < 0 {
		return nil, fmt.Errorf("autoencoder threshold must be non-negative, got %v", cfg.AutoencoderThreshold)
	}
	if cfg.Trees < 0 || cfg.SampleSize < 0 {
		return nil, fmt.Errorf("tree count and sample size must be non-negative")
	}

	if cfg.IsolationForestThreshold == 0 {
		cfg.IsolationForestThreshold = DefaultIsolationForestThreshold
	}
	if cfg.AutoencoderThreshold == 0 {
		cfg.AutoencoderThreshold = DefaultAutoencoderThreshold
	}
	if cfg.Trees == 0 {
		cfg.Trees = DefaultTrees
	}
	if cfg.SampleSize == 0 {
		cfg.SampleSize = DefaultSampleSize
	}
	if cfg.RandomSeed == 0 {
		cfg.RandomSeed = DefaultRandomSeed
	}

	return &Detector{cfg: cfg}, nil
}

// Detect scores every point in the batch. The output is 1:1 with the input
// and order-preserving. A batch of one point scores low (there is nothing to
// contrast against), and an empty batch yields an empty result. Mixed
// feature-vector lengths are a programmer error and fail immediately.
func (d *Detector) Detect(points []models.DataPoint) ([]models.AnomalyResult, error) {
	results := make([]models.AnomalyResult, 0, len(points))
	if len(points) == 0 {
		return results, nil
	}

	dims := len(points[0].Features)
	if dims == 0 {
		return nil, fmt.Errorf("point %q has no features", points[0].ID)
	}
	data := make([][]float64, len(points))
	for i, p := range points {
		if len(p.Features) != dims {
			return nil, fmt.Errorf("feature vector length mismatch: point %q has %d features, batch has %d",
				p.ID, len(p.Features), dims)
		}
		data[i] = p.Features
	}

	if len(points) == 1 {
		return append(results, models.AnomalyResult{PointID: points[0].ID}), nil
	}

	rng := rand.New(rand.NewSource(d.cfg.RandomSeed))
	forest := fitIsolationForest(data, d.cfg.Trees, d.cfg.SampleSize, rng)
	recScores := reconstructionScores(data)

	for i, p := range points {
		isoScore := forest.score(p.Features)
		recScore := recScores[i]

		result := models.AnomalyResult{
			PointID: p.ID,
			Score:   math.Max(isoScore, recScore),
		}
		if isoScore > d.cfg.IsolationForestThreshold || recScore > d.cfg.AutoencoderThreshold {
			result.IsAnomaly = true
			result.AnomalyType = dominantFeatureType(data, i)
			result.Details = fmt.Sprintf("isolation score %.2f, reconstruction score %.2f", isoScore, recScore)
		}
		results = append(results, result)
	}

	return results, nil
}

// dominantFeatureType attributes a flagged point to the feature dimension
// that deviates most from the batch in z-score terms. By platform
// convention dimension 0 carries unit price and dimension 1 quantity.
func dominantFeatureType(data [][]float64, index int) models.AnomalyType {
	dims := len(data[0])
	n := float64(len(data))

	bestDim := -1
	bestZ := 0.0
	for j := 0; j < dims; j++ {
		var sum float64
		for _, row := range data {
			sum += row[j]
		}
		mean := sum / n

		var variance float64
		for _, row := range data {
			d := row[j] - mean
			variance += d * d
		}
		stddev := math.Sqrt(variance / n)
		if stddev == 0 {
			continue
		}

		z := math.Abs(data[index][j]-mean) / stddev
		if z > bestZ {
			bestZ = z
			bestDim = j
		}
	}

	switch bestDim {
	case 0:
		return models.AnomalyPriceOutlier
	case 1:
		return models.AnomalyQuantityOutlier
	default:
		return models.AnomalyStatisticalOutlier
	}
}
