package anomaly

import "math"

// reconstructionScores fits a low-rank linear approximation of the batch
// (centroid plus the dominant variance direction) and scores each point by
// how poorly that approximation reproduces it, normalized by the batch's
// error spread. Returned scores are clamped to [0, 1].
func reconstructionScores(data [][]float64) []float64 {
	n := len(data)
	scores := make([]float64, n)
	if n < 3 {
		return scores
	}
	dims := len(data[0])

	centroid := make([]float64, dims)
	for _, row := range data {
		for j, v := range row {
			centroid[j] += v
		}
	}
	for j := range centroid {
		centroid[j] /= float64(n)
	}

	centered := make([][]float64, n)
	for i, row := range data {
		c := make([]float64, dims)
		for j, v := range row {
			c[j] = v - centroid[j]
		}
		centered[i] = c
	}

	direction := dominantDirection(centered)

	errors := make([]float64, n)
	var mean float64
	for i, row := range centered {
		projection := dot(row, direction)
		var residual float64
		for j, v := range row {
			d := v - projection*direction[j]
			residual += d * d
		}
		errors[i] = math.Sqrt(residual)
		mean += errors[i]
	}
	mean /= float64(n)

	var variance float64
	for _, e := range errors {
		d := e - mean
		variance += d * d
	}
	stddev := math.Sqrt(variance / float64(n))

	// Spread-normalized error: a point must sit well outside the batch's own
	// error distribution to approach 1.
	norm := mean + 3*stddev
	if norm <= 0 {
		return scores
	}
	for i, e := range errors {
		scores[i] = math.Min(e/norm, 1.0)
	}
	return scores
}

// dominantDirection finds the principal variance direction of the centered
// batch via power iteration. Degenerate batches yield an arbitrary unit
// vector, which is harmless: residuals are zero anyway.
func dominantDirection(centered [][]float64) []float64 {
	dims := len(centered[0])
	v := make([]float64, dims)
	for j := range v {
		v[j] = 1 / math.Sqrt(float64(dims))
	}

	for iter := 0; iter < 30; iter++ {
		next := make([]float64, dims)
		for _, row := range centered {
			p := dot(row, v)
			for j, x := range row {
				next[j] += p * x
			}
		}
		norm := math.Sqrt(dot(next, next))
		if norm == 0 {
			return v
		}
		for j := range next {
			next[j] /= norm
		}
		v = next
	}
	return v
}

func dot(a, b []float64) float64 {
	var sum float64
	for i, x := range a {
		sum += x * b[i]
	}
	return sum
}
