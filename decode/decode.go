// Package decode reads common audio containers into mono float64 PCM at the
// pipeline's canonical sample rate.
package decode

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
)

// TargetSampleRate is the canonical analysis sample rate.
const TargetSampleRate = 44100

var (
	// ErrUnsupportedFormat is returned when the container/codec is not recognized.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrDecode is returned on corrupt or truncated audio data.
	ErrDecode = errors.New("audio decode failed")
)

// File decodes the audio file at path into mono samples at TargetSampleRate.
// Stereo input is downmixed by averaging channels; other sample rates are
// resampled with band-limited interpolation.
func File(path string) ([]float64, error) {
	var (
		samples []float64
		rate    int
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		samples, rate, err = readWAVMono(path)
	case ".mp3":
		samples, rate, err = readMP3Mono(path)
	case ".flac":
		samples, rate, err = readFLACMono(path)
	case ".ogg", ".oga":
		samples, rate, err = readOGGMono(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, err
	}
	return resampleIfNeeded(samples, rate, TargetSampleRate)
}

func resampleIfNeeded(in []float64, fromRate, toRate int) ([]float64, error) {
	if fromRate == toRate {
		return in, nil
	}
	r, err := dspresample.NewForRates(
		float64(fromRate),
		float64(toRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, fmt.Errorf("resample %d Hz to %d Hz: %w", fromRate, toRate, err)
	}
	return r.Process(in), nil
}
