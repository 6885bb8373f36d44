package dsp

import "math"

// OnePole implements a first-order exponential smoother (no heap allocations in Process).
type OnePole struct {
	alpha  float64
	state  float64
	primed bool
}

// NewOnePole creates a one-pole smoother. alpha in (0, 1]; higher alpha tracks
// the input faster, lower alpha smooths harder.
func NewOnePole(alpha float64) *OnePole {
	if alpha <= 0 {
		alpha = 1e-6
	}
	if alpha > 1 {
		alpha = 1
	}
	return &OnePole{alpha: alpha}
}

// Process feeds one sample through the smoother and returns the smoothed value.
func (p *OnePole) Process(input float64) float64 {
	if !p.primed {
		p.state = input
		p.primed = true
		return input
	}
	p.state += p.alpha * (input - p.state)
	return p.state
}

// Reset clears the smoother state.
func (p *OnePole) Reset() {
	p.state = 0
	p.primed = false
}

// MovingAverage returns a centered moving average of data with the given
// window size. Edges shrink the window rather than zero-padding.
func MovingAverage(data []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	half := window / 2
	out := make([]float64, len(data))
	for i := range data {
		start := i - half
		if start < 0 {
			start = 0
		}
		end := i + half + 1
		if end > len(data) {
			end = len(data)
		}
		var sum float64
		for _, v := range data[start:end] {
			sum += v
		}
		out[i] = sum / float64(end-start)
	}
	return out
}

// MeanStd returns the mean and population standard deviation of xs.
func MeanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, v := range xs {
		mean += v
	}
	mean /= float64(len(xs))
	var variance float64
	for _, v := range xs {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(xs))
	return mean, math.Sqrt(variance)
}

// RMS returns the root-mean-square of xs, 0 for empty input.
func RMS(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range xs {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(xs)))
}

// LinToDB converts a linear magnitude to decibels with a -160 dB floor.
func LinToDB(x float64) float64 {
	if x < 1e-8 {
		return -160.0
	}
	return 20.0 * math.Log10(x)
}

// DBToLin converts decibels to a linear magnitude.
func DBToLin(db float64) float64 {
	return math.Pow(10.0, db/20.0)
}

// NormalizeMax scales xs in place so its maximum equals 1. A silent input is
// left untouched. Returns the original maximum.
func NormalizeMax(xs []float64) float64 {
	var max float64
	for _, v := range xs {
		if v > max {
			max = v
		}
	}
	if max > 0 {
		for i := range xs {
			xs[i] /= max
		}
	}
	return max
}

// HannWindow returns an n-point Hann window.
func HannWindow(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}
