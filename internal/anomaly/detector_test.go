package anomaly

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/spendlens/engine/models"
)

func TestDetectFlagsObviousOutliers(t *testing.T) {
	detector := mustDetector(t, Config{})

	points := make([]models.DataPoint, 0, 100)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 95; i++ {
		points = append(points, models.DataPoint{
			ID:       fmt.Sprintf("normal-%d", i),
			Features: []float64{100 + rng.Float64()*2, 50 + rng.Float64()},
		})
	}
	for i := 0; i < 5; i++ {
		points = append(points, models.DataPoint{
			ID:       fmt.Sprintf("outlier-%d", i),
			Features: []float64{1000 + rng.Float64()*10, 500 + rng.Float64()*5},
		})
	}

	results, err := detector.Detect(points)
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	if len(results) != len(points) {
		t.Fatalf("Detect() returned %d results, want %d", len(results), len(points))
	}

	byID := make(map[string]models.AnomalyResult, len(results))
	for _, r := range results {
		byID[r.PointID] = r
	}

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("outlier-%d", i)
		r, ok := byID[id]
		if !ok {
			t.Fatalf("missing result for %s", id)
		}
		if !r.IsAnomaly {
			t.Errorf("%s not flagged, score %.3f", id, r.Score)
		}
	}

	flaggedNormal := 0
	for i := 0; i < 95; i++ {
		if byID[fmt.Sprintf("normal-%d", i)].IsAnomaly {
			flaggedNormal++
		}
	}
	if flaggedNormal > 10 {
		t.Errorf("flagged %d of 95 normal points", flaggedNormal)
	}
}

func TestDetectHomogeneousBatch(t *testing.T) {
	detector := mustDetector(t, Config{})

	rng := rand.New(rand.NewSource(11))
	points := make([]models.DataPoint, 50)
	for i := range points {
		points[i] = models.DataPoint{
			ID:       fmt.Sprintf("p-%d", i),
			Features: []float64{200 + rng.NormFloat64()*3, 10 + rng.NormFloat64()*0.5},
		}
	}

	results, err := detector.Detect(points)
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}

	flagged := 0
	for _, r := range results {
		if r.IsAnomaly {
			flagged++
		}
	}
	if float64(flagged) >= 0.2*float64(len(points)) {
		t.Errorf("flagged %d of %d points in a homogeneous batch", flagged, len(points))
	}
}

func TestDetectScoreBounds(t *testing.T) {
	detector := mustDetector(t, Config{})

	rng := rand.New(rand.NewSource(3))
	points := make([]models.DataPoint, 40)
	for i := range points {
		points[i] = models.DataPoint{
			ID:       fmt.Sprintf("p-%d", i),
			Features: []float64{rng.Float64() * 1000, rng.Float64() * 100},
		}
	}

	results, err := detector.Detect(points)
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	for _, r := range results {
		if r.Score < 0 || r.Score > 1 {
			t.Errorf("point %s score %v out of [0,1]", r.PointID, r.Score)
		}
	}
}

func TestDetectOrderPreserved(t *testing.T) {
	detector := mustDetector(t, Config{})

	points := []models.DataPoint{
		{ID: "c", Features: []float64{1, 1}},
		{ID: "a", Features: []float64{1.1, 1}},
		{ID: "b", Features: []float64{0.9, 1.1}},
	}

	results, err := detector.Detect(points)
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	for i, r := range results {
		if r.PointID != points[i].ID {
			t.Errorf("result %d is %s, want %s", i, r.PointID, points[i].ID)
		}
	}
}

func TestDetectDegenerateBatches(t *testing.T) {
	detector := mustDetector(t, Config{})

	results, err := detector.Detect(nil)
	if err != nil {
		t.Fatalf("Detect(nil) error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Detect(nil) returned %d results, want 0", len(results))
	}

	results, err = detector.Detect([]models.DataPoint{{ID: "only", Features: []float64{1, 2}}})
	if err != nil {
		t.Fatalf("Detect(single) error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Detect(single) returned %d results, want 1", len(results))
	}
	if results[0].IsAnomaly || results[0].Score != 0 {
		t.Errorf("single point flagged: %+v", results[0])
	}
}

func TestDetectFeatureLengthMismatch(t *testing.T) {
	detector := mustDetector(t, Config{})

	_, err := detector.Detect([]models.DataPoint{
		{ID: "a", Features: []float64{1, 2}},
		{ID: "b", Features: []float64{1, 2, 3}},
	})
	if err == nil {
		t.Fatal("Detect() did not reject mismatched feature lengths")
	}
	if !strings.Contains(err.Error(), "b") {
		t.Errorf("error %q does not name the offending point", err)
	}
}

func TestDetectHighDimensional(t *testing.T) {
	detector := mustDetector(t, Config{})

	rng := rand.New(rand.NewSource(5))
	points := make([]models.DataPoint, 30)
	for i := range points {
		features := make([]float64, 20)
		for j := range features {
			features[j] = rng.NormFloat64()
		}
		points[i] = models.DataPoint{ID: fmt.Sprintf("p-%d", i), Features: features}
	}

	results, err := detector.Detect(points)
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	if len(results) != len(points) {
		t.Errorf("got %d results, want %d", len(results), len(points))
	}
}

func TestDetectDeterministic(t *testing.T) {
	detector := mustDetector(t, Config{})

	rng := rand.New(rand.NewSource(9))
	points := make([]models.DataPoint, 60)
	for i := range points {
		points[i] = models.DataPoint{
			ID:       fmt.Sprintf("p-%d", i),
			Features: []float64{rng.Float64() * 100, rng.Float64() * 10},
		}
	}

	first, err := detector.Detect(points)
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	second, err := detector.Detect(points)
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	for i := range first {
		if first[i].Score != second[i].Score || first[i].IsAnomaly != second[i].IsAnomaly {
			t.Errorf("point %s scored differently across runs: %+v vs %+v", first[i].PointID, first[i], second[i])
		}
	}
}

func TestNewDetectorValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "zero config uses defaults", cfg: Config{}},
		{name: "explicit thresholds", cfg: Config{IsolationForestThreshold: 0.5, AutoencoderThreshold: 0.8}},
		{name: "negative isolation threshold", cfg: Config{IsolationForestThreshold: -0.1}, wantErr: true},
		{name: "negative autoencoder threshold", cfg: Config{AutoencoderThreshold: -1}, wantErr: true},
		{name: "negative tree count", cfg: Config{Trees: -5}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDetector(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewDetector() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func mustDetector(t *testing.T, cfg Config) *Detector {
	t.Helper()
	detector, err := NewDetector(cfg)
	if err != nil {
		t.Fatalf("NewDetector() error: %v", err)
	}
	return detector
}
