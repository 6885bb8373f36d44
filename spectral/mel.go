package spectral

import "math"

// melBank is a set of triangular filters spaced evenly on the mel scale,
// spanning 20 Hz to Nyquist.
type melBank struct {
	filters [][]float64 // per band: weight per magnitude bin
}

func hzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

func melToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

func newMelBank(bands, windowSize, sampleRate int) *melBank {
	numBins := windowSize/2 + 1
	nyquist := float64(sampleRate) / 2.0

	lowMel := hzToMel(20.0)
	highMel := hzToMel(nyquist)

	// bands+2 edge frequencies; each filter rises from edge i to i+1 and
	// falls to i+2.
	binPoints := make([]int, bands+2)
	for i := range binPoints {
		mel := lowMel + float64(i)*(highMel-lowMel)/float64(bands+1)
		hz := melToHz(mel)
		bin := int(math.Floor(hz * float64(windowSize) / float64(sampleRate)))
		if bin > numBins-1 {
			bin = numBins - 1
		}
		binPoints[i] = bin
	}

	filters := make([][]float64, bands)
	for b := 0; b < bands; b++ {
		filters[b] = make([]float64, numBins)
		lo, mid, hi := binPoints[b], binPoints[b+1], binPoints[b+2]
		for j := lo; j < mid && j < numBins; j++ {
			if mid != lo {
				filters[b][j] = float64(j-lo) / float64(mid-lo)
			}
		}
		for j := mid; j <= hi && j < numBins; j++ {
			if hi != mid {
				filters[b][j] = float64(hi-j) / float64(hi-mid)
			} else if j == mid {
				filters[b][j] = 1
			}
		}
	}
	return &melBank{filters: filters}
}

// apply projects one magnitude frame onto the filterbank, returning per-band
// energies.
func (m *melBank) apply(mags []float64) []float64 {
	out := make([]float64, len(m.filters))
	for b, filter := range m.filters {
		var sum float64
		for j, w := range filter {
			if w != 0 && j < len(mags) {
				sum += mags[j] * mags[j] * w
			}
		}
		out[b] = sum
	}
	return out
}
