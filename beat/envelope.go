package beat

import (
	algofft "github.com/cwbudde/algo-fft"

	"github.com/funktrack/chartgen/dsp"
	"github.com/funktrack/chartgen/spectral"
)

// Envelope builds the onset-strength envelope used for tempo estimation and
// beat alignment: the half-wave rectified first difference of each mel band,
// summed across bands, smoothed with a ~50 ms Hann kernel and normalized to a
// peak of 1.
func Envelope(sp *spectral.Spectrogram) []float64 {
	n := sp.NumFrames()
	env := make([]float64, n)
	for i := 1; i < n; i++ {
		prev := sp.Mel[i-1]
		curr := sp.Mel[i]
		var sum float64
		for b := range curr {
			if d := curr[b] - prev[b]; d > 0 {
				sum += d
			}
		}
		env[i] = sum
	}

	kernelSize := int(0.05 * sp.FrameRate())
	if kernelSize < 3 {
		kernelSize = 3
	}
	kernelSize |= 1 // odd, so the smoothing stays centered
	smoothed := smoothHann(env, kernelSize)
	// FFT convolution leaves tiny negative residues on an otherwise
	// non-negative signal; clamp before normalizing.
	for i, v := range smoothed {
		if v < 0 {
			smoothed[i] = 0
		}
	}
	dsp.NormalizeMax(smoothed)
	return smoothed
}

// smoothHann convolves data with a unit-area Hann kernel via FFT and returns
// the centered same-length slice. Falls back to a moving average if the FFT
// convolution fails (degenerate sizes).
func smoothHann(data []float64, kernelSize int) []float64 {
	if len(data) == 0 {
		return nil
	}
	kernel := dsp.HannWindow(kernelSize)
	var ksum float64
	for _, v := range kernel {
		ksum += v
	}

	a := make([]float32, len(data))
	for i, v := range data {
		a[i] = float32(v)
	}
	b := make([]float32, kernelSize)
	for i, v := range kernel {
		b[i] = float32(v / ksum)
	}

	conv := make([]float32, len(a)+len(b)-1)
	if err := algofft.ConvolveReal(conv, a, b); err != nil {
		return dsp.MovingAverage(data, kernelSize)
	}

	half := kernelSize / 2
	out := make([]float64, len(data))
	for i := range out {
		out[i] = float64(conv[i+half])
	}
	return out
}

// autocorrelate returns the autocorrelation of env for lags [0, maxLag],
// normalized by the overlap length, computed as an FFT convolution of the
// envelope with its reverse.
func autocorrelate(env []float64, maxLag int) []float64 {
	n := len(env)
	if n == 0 {
		return nil
	}
	if maxLag > n-1 {
		maxLag = n - 1
	}

	a := make([]float32, n)
	rev := make([]float32, n)
	for i, v := range env {
		a[i] = float32(v)
		rev[n-1-i] = float32(v)
	}
	conv := make([]float32, 2*n-1)
	if err := algofft.ConvolveReal(conv, a, rev); err != nil {
		return autocorrelateDirect(env, maxLag)
	}

	// conv[n-1+lag] = sum_i env[i]*env[i+lag]
	out := make([]float64, maxLag+1)
	for lag := 0; lag <= maxLag; lag++ {
		out[lag] = float64(conv[n-1+lag]) / float64(n-lag)
	}
	return out
}

func autocorrelateDirect(env []float64, maxLag int) []float64 {
	n := len(env)
	out := make([]float64, maxLag+1)
	for lag := 0; lag <= maxLag; lag++ {
		var sum float64
		for i := 0; i+lag < n; i++ {
			sum += env[i] * env[i+lag]
		}
		out[lag] = sum / float64(n-lag)
	}
	return out
}
