package features

import (
	"math"

	"github.com/spendlens/engine/models"
)

// volatilityWindow bounds the trailing window used for the rolling
// volatility signal. Shorter histories use every available change.
const volatilityWindow = 7

// Vector holds the engineered signals for one observation step.
type Vector struct {
	PriceChange float64 // fractional day-over-day change
	Volatility  float64 // stddev of trailing price changes
	VolumeRatio float64 // current volume over running mean volume
}

// Extract converts a price history into per-step feature vectors. The second
// return value is true when the history carries too little evidence for the
// change/volatility signals (fewer than two observations); in that case the
// vectors are neutral and the caller should lower its confidence. Extract
// never fails.
func Extract(history []models.PriceObservation) ([]Vector, bool) {
	if len(history) < 2 {
		return nil, true
	}

	changes := make([]float64, 0, len(history)-1)
	vectors := make([]Vector, 0, len(history)-1)

	var volumeSum float64
	volumeSeen := 0
	if history[0].Volume > 0 {
		volumeSum = history[0].Volume
		volumeSeen = 1
	}

	for i := 1; i < len(history); i++ {
		prev := history[i-1].Price
		cur := history[i].Price

		change := 0.0
		if prev > 0 {
			change = (cur - prev) / prev
		}
		changes = append(changes, change)

		volumeRatio := 1.0
		if history[i].Volume > 0 {
			volumeSum += history[i].Volume
			volumeSeen++
			meanVolume := volumeSum / float64(volumeSeen)
			if meanVolume > 0 {
				volumeRatio = history[i].Volume / meanVolume
			}
		}

		vectors = append(vectors, Vector{
			PriceChange: change,
			Volatility:  rollingStdDev(changes, volatilityWindow),
			VolumeRatio: volumeRatio,
		})
	}

	return vectors, false
}

// rollingStdDev computes the standard deviation of the trailing window of
// changes, or of all changes when fewer are available.
func rollingStdDev(changes []float64, window int) float64 {
	n := len(changes)
	if n < 2 {
		return 0
	}
	start := n - window
	if start < 0 {
		start = 0
	}
	sample := changes[start:]

	var sum float64
	for _, c := range sample {
		sum += c
	}
	mean := sum / float64(len(sample))

	var sq float64
	for _, c := range sample {
		d := c - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(sample)))
}
