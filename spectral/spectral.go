// Package spectral computes short-time Fourier magnitude spectrograms and
// mel-band projections of mono PCM audio.
package spectral

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/funktrack/chartgen/dsp"
)

// ErrInvalidParameter is returned by Config.Validate for bad analysis settings.
var ErrInvalidParameter = errors.New("invalid parameter")

// Config controls STFT analysis.
type Config struct {
	WindowSize int
	HopSize    int
	MelBands   int
}

// DefaultConfig returns the standard analysis settings: 2048-sample Hann
// window, 512-sample hop, 40 mel bands.
func DefaultConfig() Config {
	return Config{
		WindowSize: 2048,
		HopSize:    512,
		MelBands:   40,
	}
}

// Validate reports the first invalid field, if any.
func (c Config) Validate() error {
	if c.WindowSize < 2 || c.WindowSize&(c.WindowSize-1) != 0 {
		return fmt.Errorf("%w: window size must be a power of two, got %d", ErrInvalidParameter, c.WindowSize)
	}
	if c.HopSize <= 0 || c.HopSize >= c.WindowSize {
		return fmt.Errorf("%w: hop size must be in (0, window), got %d", ErrInvalidParameter, c.HopSize)
	}
	if c.MelBands < 1 {
		return fmt.Errorf("%w: mel bands must be >= 1, got %d", ErrInvalidParameter, c.MelBands)
	}
	return nil
}

// Spectrogram holds magnitude spectra and the mel-band projection of one
// analysis run. Frames share a bin count and hop spacing; neither slice is
// mutated after Compute returns.
type Spectrogram struct {
	Frames     [][]float64 // per frame: WindowSize/2+1 magnitudes
	Mel        [][]float64 // per frame: MelBands band energies
	SampleRate int
	WindowSize int
	HopSize    int
}

// NumFrames returns the frame count.
func (s *Spectrogram) NumFrames() int { return len(s.Frames) }

// NumBins returns the magnitude bin count per frame.
func (s *Spectrogram) NumBins() int { return s.WindowSize/2 + 1 }

// FrameRate returns analysis frames per second.
func (s *Spectrogram) FrameRate() float64 {
	return float64(s.SampleRate) / float64(s.HopSize)
}

// FrameTime converts a frame index to seconds.
func (s *Spectrogram) FrameTime(frame int) float64 {
	return float64(frame) * float64(s.HopSize) / float64(s.SampleRate)
}

// TimeFrame converts seconds to the nearest prior frame index, clamped to the
// valid range.
func (s *Spectrogram) TimeFrame(t float64) int {
	frame := int(t * s.FrameRate())
	if frame < 0 {
		frame = 0
	}
	if frame >= len(s.Frames) {
		frame = len(s.Frames) - 1
	}
	return frame
}

// Duration returns the analyzed duration in seconds.
func (s *Spectrogram) Duration() float64 {
	return float64(len(s.Frames)) * float64(s.HopSize) / float64(s.SampleRate)
}

// BinHz returns the center frequency of a bin.
func (s *Spectrogram) BinHz(bin int) float64 {
	return float64(bin) * float64(s.SampleRate) / float64(s.WindowSize)
}

// HzBin returns the bin index containing the given frequency (rounded down).
func (s *Spectrogram) HzBin(hz float64) int {
	return int(hz * float64(s.WindowSize) / float64(s.SampleRate))
}

// BandEnergy returns the RMS magnitude of the [lowHz, highHz] band at frame.
func (s *Spectrogram) BandEnergy(frame int, lowHz, highHz float64) float64 {
	if frame < 0 || frame >= len(s.Frames) {
		return 0
	}
	lo := s.HzBin(lowHz)
	if lo < 1 {
		lo = 1
	}
	hi := s.HzBin(highHz)
	if hi > s.NumBins()-1 {
		hi = s.NumBins() - 1
	}
	if lo >= hi {
		return 0
	}
	mags := s.Frames[frame]
	var sum float64
	for _, m := range mags[lo : hi+1] {
		sum += m * m
	}
	return rmsOf(sum, hi-lo+1)
}

// FrameEnergy returns the RMS magnitude across all bins at frame.
func (s *Spectrogram) FrameEnergy(frame int) float64 {
	if frame < 0 || frame >= len(s.Frames) {
		return 0
	}
	mags := s.Frames[frame]
	var sum float64
	for _, m := range mags {
		sum += m * m
	}
	return rmsOf(sum, len(mags))
}

func rmsOf(sumSquares float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	return math.Sqrt(sumSquares / float64(n))
}

// Compute runs the windowed STFT over samples and fills both the magnitude
// frames and the mel projection. The tail is zero-padded to a full window.
func Compute(samples []float64, sampleRate int, cfg Config) (*Spectrogram, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be > 0, got %d", ErrInvalidParameter, sampleRate)
	}

	window := dsp.HannWindow(cfg.WindowSize)
	fft := fourier.NewFFT(cfg.WindowSize)
	bank := newMelBank(cfg.MelBands, cfg.WindowSize, sampleRate)

	numBins := cfg.WindowSize/2 + 1
	windowed := make([]float64, cfg.WindowSize)

	sp := &Spectrogram{
		SampleRate: sampleRate,
		WindowSize: cfg.WindowSize,
		HopSize:    cfg.HopSize,
	}

	for pos := 0; pos < len(samples); pos += cfg.HopSize {
		end := pos + cfg.WindowSize
		if end > len(samples) {
			end = len(samples)
		}
		n := end - pos
		for i := 0; i < n; i++ {
			windowed[i] = samples[pos+i] * window[i]
		}
		for i := n; i < cfg.WindowSize; i++ {
			windowed[i] = 0
		}

		coeffs := fft.Coefficients(nil, windowed)
		mags := make([]float64, numBins)
		for i := 0; i < numBins; i++ {
			mags[i] = cmplx.Abs(coeffs[i])
		}
		sp.Frames = append(sp.Frames, mags)
		sp.Mel = append(sp.Mel, bank.apply(mags))
	}
	return sp, nil
}
