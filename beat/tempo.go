package beat

import "math"

// estimateTempo picks the autocorrelation lag with the highest correlation
// after weighting by a log-lag Gaussian prior centered at cfg.PriorBPM, which
// biases against octave errors. Returns the BPM rounded to 0.5.
func estimateTempo(env []float64, frameRate float64, cfg Config) float64 {
	minLag := int(frameRate * 60.0 / cfg.MaxBPM)
	maxLag := int(frameRate * 60.0 / cfg.MinBPM)
	if maxLag > len(env)/2 {
		maxLag = len(env) / 2
	}
	if minLag < 1 {
		minLag = 1
	}
	if minLag >= maxLag {
		return cfg.FallbackBPM
	}

	corr := autocorrelate(env, maxLag)

	bestLag := minLag
	bestScore := math.Inf(-1)
	for lag := minLag; lag <= maxLag; lag++ {
		bpm := frameRate * 60.0 / float64(lag)
		octaves := math.Log2(bpm / cfg.PriorBPM)
		weight := math.Exp(-0.5 * (octaves / cfg.PriorWidth) * (octaves / cfg.PriorWidth))
		score := corr[lag] * weight
		if score > bestScore {
			bestScore = score
			bestLag = lag
		}
	}

	bpm := frameRate * 60.0 / float64(bestLag)
	return math.Round(bpm*2.0) / 2.0
}
