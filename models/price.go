package models

import (
	"time"
)

// PriceObservation is a single point of a purchased item's price history,
// ordered by date. Observations are caller-owned and never mutated.
type PriceObservation struct {
	Date   time.Time `json:"date"`
	Price  float64   `json:"price"`
	Volume float64   `json:"volume,omitempty"`
}

// PriceState is one of the six qualitative price regimes tracked by the
// hidden Markov model.
type PriceState string

const (
	StateStable    PriceState = "STABLE"
	StateRising    PriceState = "RISING"
	StatePeak      PriceState = "PEAK"
	StateDeclining PriceState = "DECLINING"
	StateTrough    PriceState = "TROUGH"
	StateVolatile  PriceState = "VOLATILE"
)

// AllPriceStates returns the closed set of regimes in ring order.
func AllPriceStates() []PriceState {
	return []PriceState{
		StateStable,
		StateRising,
		StatePeak,
		StateDeclining,
		StateTrough,
		StateVolatile,
	}
}

// Recommendation is the predictor's purchase-timing advice.
type Recommendation string

const (
	RecommendBuyNow    Recommendation = "buy_now"
	RecommendWait      Recommendation = "wait"
	RecommendUrgentBuy Recommendation = "urgent_buy"
	RecommendHold      Recommendation = "hold"
)

// PlatformAction maps the predictor's vocabulary onto the narrower
// vocabulary the platform persists (buy_now | wait | urgent). The engine's
// own vocabulary stays authoritative in-process; hold and buy_now both mean
// "no urgency, act normally".
func (r Recommendation) PlatformAction() string {
	switch r {
	case RecommendUrgentBuy:
		return "urgent"
	case RecommendWait:
		return "wait"
	default:
		return "buy_now"
	}
}

// HorizonForecast is a projected price and the model's confidence in it at
// one forecast horizon.
type HorizonForecast struct {
	Price      float64 `json:"price"`
	Confidence float64 `json:"confidence"`
}

// ForecastHorizons are the calendar distances, in days, the predictor
// projects to.
var ForecastHorizons = []int{7, 30, 90}

// PricePrediction is the full output of one Predict call.
type PricePrediction struct {
	CurrentState       PriceState                 `json:"current_state"`
	Confidence         float64                    `json:"confidence"`
	StateProbabilities map[PriceState]float64     `json:"state_probabilities"`
	Horizons           map[int]HorizonForecast    `json:"horizons"`
	Recommendation     Recommendation             `json:"recommendation"`
	AnnualImpact       float64                    `json:"annual_impact"`
	WaitUntil          *time.Time                 `json:"wait_until,omitempty"`
	ExpectedSavings    *float64                   `json:"expected_savings,omitempty"`
	GeneratedAt        time.Time                  `json:"generated_at"`
}
