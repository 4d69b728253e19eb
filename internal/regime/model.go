package regime

import (
	"math"

	"github.com/spendlens/engine/internal/features"
	"github.com/spendlens/engine/models"
)

// emissionFloor keeps far-off-profile likelihoods from collapsing the
// forward products to zero.
const emissionFloor = 1e-12

// insufficientEvidenceMass is the probability assigned to STABLE when a
// history is too short to infer anything; the remainder spreads evenly so
// the reported confidence stays below 0.5.
const insufficientEvidenceMass = 0.30

// Model infers the latent price regime from extracted feature vectors.
type Model struct {
	params Parameters
}

// NewModel builds a model around a fixed parameter set.
func NewModel(params Parameters) *Model {
	return &Model{params: params}
}

// Infer runs a forward-style accumulation over the observed window and
// returns the posterior distribution across the six states. Distributions
// always sum to 1 and carry all six keys. An empty window yields the
// low-confidence default rather than an error.
func (m *Model) Infer(vectors []features.Vector) map[models.PriceState]float64 {
	if len(vectors) == 0 {
		return DefaultPosterior()
	}

	states := models.AllPriceStates()

	// Uniform prior.
	posterior := make(map[models.PriceState]float64, len(states))
	for _, s := range states {
		posterior[s] = 1.0 / float64(len(states))
	}

	for _, v := range vectors {
		predicted := m.applyTransitions(posterior)

		var total float64
		for _, s := range states {
			p := predicted[s] * m.emissionLikelihood(s, v)
			posterior[s] = p
			total += p
		}
		if total <= 0 {
			// Every state rejected the observation; fall back to the
			// transition-only prediction.
			posterior = predicted
			continue
		}
		for _, s := range states {
			posterior[s] /= total
		}
	}

	return posterior
}

// Project evolves a posterior forward by the given number of days of
// transition mixing and reports the resulting distribution together with the
// cumulative expected price multiplier over that span.
func (m *Model) Project(posterior map[models.PriceState]float64, days int) (map[models.PriceState]float64, float64) {
	current := clonePosterior(posterior)
	multiplier := 1.0

	for day := 0; day < days; day++ {
		var drift float64
		for s, p := range current {
			drift += p * m.params.Emissions[s].DailyDrift
		}
		multiplier *= 1.0 + drift
		current = m.applyTransitions(current)
	}

	return current, multiplier
}

// DefaultPosterior is the insufficient-evidence answer: STABLE leads, but
// with confidence below 0.5.
func DefaultPosterior() map[models.PriceState]float64 {
	states := models.AllPriceStates()
	rest := (1.0 - insufficientEvidenceMass) / float64(len(states)-1)

	posterior := make(map[models.PriceState]float64, len(states))
	for _, s := range states {
		if s == models.StateStable {
			posterior[s] = insufficientEvidenceMass
		} else {
			posterior[s] = rest
		}
	}
	return posterior
}

// Dominant returns the argmax state and its probability.
func Dominant(posterior map[models.PriceState]float64) (models.PriceState, float64) {
	best := models.StateStable
	bestP := -1.0
	for _, s := range models.AllPriceStates() {
		if posterior[s] > bestP {
			best = s
			bestP = posterior[s]
		}
	}
	return best, bestP
}

func (m *Model) applyTransitions(posterior map[models.PriceState]float64) map[models.PriceState]float64 {
	next := make(map[models.PriceState]float64, len(posterior))
	for from, p := range posterior {
		for to, w := range m.params.Transitions[from] {
			next[to] += p * w
		}
	}
	return next
}

func (m *Model) emissionLikelihood(state models.PriceState, v features.Vector) float64 {
	profile := m.params.Emissions[state]

	changeScore := gaussianScore(v.PriceChange, profile.MeanChange, profile.ChangeTol)
	volScore := gaussianScore(v.Volatility, profile.MeanVol, profile.VolTol)

	score := changeScore * volScore
	if score < emissionFloor {
		return emissionFloor
	}
	return score
}

func gaussianScore(x, mean, tol float64) float64 {
	if tol <= 0 {
		return emissionFloor
	}
	z := (x - mean) / tol
	return math.Exp(-0.5 * z * z)
}

func clonePosterior(posterior map[models.PriceState]float64) map[models.PriceState]float64 {
	out := make(map[models.PriceState]float64, len(posterior))
	for s, p := range posterior {
		out[s] = p
	}
	return out
}
