package prediction

import (
	"math"
	"time"

	"github.com/spendlens/engine/internal/features"
	"github.com/spendlens/engine/internal/regime"
	"github.com/spendlens/engine/models"
)

// urgencyMargin is how far above the current price the 7-day projection must
// sit before a buy becomes urgent.
const urgencyMargin = 0.02

// confidenceHalfLifeDays controls how fast horizon confidence decays with
// calendar distance.
const confidenceHalfLifeDays = 120.0

// Predictor produces purchase-timing forecasts from a price history. It owns
// no mutable state and is safe for concurrent use.
type Predictor struct {
	model *regime.Model
}

// NewPredictor wires a predictor around the given regime parameters.
func NewPredictor(params regime.Parameters) *Predictor {
	return &Predictor{model: regime.NewModel(params)}
}

// Predict infers the current price regime, projects the 7/30/90-day
// horizons, and derives a recommendation and annual cost impact. It always
// returns a well-formed result: degenerate histories lower confidence
// instead of failing.
func (p *Predictor) Predict(history []models.PriceObservation, currentPrice, annualVolume float64) models.PricePrediction {
	now := time.Now()

	vectors, lowEvidence := features.Extract(history)

	var posterior map[models.PriceState]float64
	if lowEvidence {
		posterior = regime.DefaultPosterior()
	} else {
		posterior = p.model.Infer(vectors)
	}

	currentState, confidence := regime.Dominant(posterior)

	horizons := make(map[int]models.HorizonForecast, len(models.ForecastHorizons))
	for _, days := range models.ForecastHorizons {
		_, multiplier := p.model.Project(posterior, days)
		horizons[days] = models.HorizonForecast{
			Price:      currentPrice * multiplier,
			Confidence: confidence * horizonDecay(days),
		}
	}

	result := models.PricePrediction{
		CurrentState:       currentState,
		Confidence:         confidence,
		StateProbabilities: posterior,
		Horizons:           horizons,
		AnnualImpact:       annualImpact(history, currentPrice, annualVolume),
		GeneratedAt:        now,
	}

	p.recommend(&result, currentPrice, annualVolume, now)
	return result
}

// recommend applies the purchase-timing policy: wait on falling regimes,
// urgent buy on rising regimes with a materially higher near-term
// projection, otherwise no urgency.
func (p *Predictor) recommend(result *models.PricePrediction, currentPrice, annualVolume float64, now time.Time) {
	nearTerm, _ := p.model.Project(result.StateProbabilities, 7)
	dominantNearTerm, _ := regime.Dominant(nearTerm)

	switch {
	case isFalling(result.CurrentState) || isFalling(dominantNearTerm):
		result.Recommendation = models.RecommendWait

		minDays := models.ForecastHorizons[0]
		minPrice := result.Horizons[minDays].Price
		for _, days := range models.ForecastHorizons {
			if result.Horizons[days].Price < minPrice {
				minPrice = result.Horizons[days].Price
				minDays = days
			}
		}

		waitUntil := now.AddDate(0, 0, minDays)
		result.WaitUntil = &waitUntil

		savings := (currentPrice - minPrice) * annualVolume
		result.ExpectedSavings = &savings

	case isRisingSide(result.CurrentState) && result.Horizons[7].Price > currentPrice*(1+urgencyMargin):
		result.Recommendation = models.RecommendUrgentBuy

	case result.Confidence < 0.5:
		result.Recommendation = models.RecommendHold

	default:
		result.Recommendation = models.RecommendBuyNow
	}
}

// annualImpact estimates the yearly cost of the current price versus the
// historical baseline. An empty history makes the current price its own
// baseline, so the impact is zero.
func annualImpact(history []models.PriceObservation, currentPrice, annualVolume float64) float64 {
	if annualVolume == 0 {
		return 0
	}

	baseline := currentPrice
	if len(history) > 0 {
		var sum float64
		for _, obs := range history {
			sum += obs.Price
		}
		baseline = sum / float64(len(history))
	}

	return (currentPrice - baseline) * annualVolume
}

func horizonDecay(days int) float64 {
	return math.Exp(-float64(days) / confidenceHalfLifeDays)
}

func isFalling(s models.PriceState) bool {
	return s == models.StateDeclining || s == models.StateTrough
}

func isRisingSide(s models.PriceState) bool {
	return s == models.StateRising || s == models.StatePeak
}
