// Package onset derives an onset-strength signal from a spectrogram and
// extracts discrete onset events via adaptive peak picking.
package onset

import (
	"errors"
	"fmt"
	"sort"

	"github.com/funktrack/chartgen/dsp"
	"github.com/funktrack/chartgen/spectral"
)

// ErrEmptySpectrogram is returned when detection is asked to run over zero frames.
var ErrEmptySpectrogram = errors.New("empty spectrogram")

// Mode selects the onset-strength function.
type Mode string

const (
	// ModeFlux is plain spectral flux: half-wave rectified per-bin magnitude increase.
	ModeFlux Mode = "flux"
	// ModeMaxFlux is max-filtered flux: the previous frame is max-filtered
	// across a ±3 bin neighborhood before differencing, suppressing vibrato
	// and tremolo false positives.
	ModeMaxFlux Mode = "maxflux"
)

// maxFilterRadius is the bin neighborhood used by ModeMaxFlux.
const maxFilterRadius = 3

// silenceFloorDB gates candidates whose frame energy sits this far below the
// track's peak frame energy.
const silenceFloorDB = -74.0

// Config controls peak picking.
type Config struct {
	Mode          Mode
	Sensitivity   float64 // threshold in stddevs above the local mean
	MinIntervalMS float64 // minimum spacing between onsets
}

// DefaultConfig returns flux-mode detection with sensitivity 1.5 and 50 ms
// minimum inter-onset spacing.
func DefaultConfig() Config {
	return Config{
		Mode:          ModeFlux,
		Sensitivity:   1.5,
		MinIntervalMS: 50,
	}
}

// Validate reports the first invalid field, if any.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeFlux, ModeMaxFlux:
	default:
		return fmt.Errorf("%w: unknown onset mode %q", spectral.ErrInvalidParameter, c.Mode)
	}
	if c.Sensitivity <= 0 {
		return fmt.Errorf("%w: sensitivity must be > 0, got %g", spectral.ErrInvalidParameter, c.Sensitivity)
	}
	if c.MinIntervalMS < 0 {
		return fmt.Errorf("%w: min interval must be >= 0, got %g ms", spectral.ErrInvalidParameter, c.MinIntervalMS)
	}
	return nil
}

// Event is one detected onset. Immutable once created.
type Event struct {
	Frame    int
	Time     float64 // seconds
	Strength float64 // normalized to [0, 1] across the track
}

// Strength computes the onset-strength signal for the spectrogram: one
// non-negative value per frame, normalized so the maximum is 1. Frame 0 has
// strength 0.
func Strength(sp *spectral.Spectrogram, mode Mode) ([]float64, error) {
	if sp == nil || sp.NumFrames() == 0 {
		return nil, ErrEmptySpectrogram
	}
	flux := make([]float64, sp.NumFrames())
	for i := 1; i < sp.NumFrames(); i++ {
		prev := sp.Frames[i-1]
		curr := sp.Frames[i]
		var sum float64
		for k := range curr {
			ref := prev[k]
			if mode == ModeMaxFlux {
				ref = neighborhoodMax(prev, k, maxFilterRadius)
			}
			if d := curr[k] - ref; d > 0 {
				sum += d
			}
		}
		flux[i] = sum
	}
	dsp.NormalizeMax(flux)
	return flux, nil
}

func neighborhoodMax(mags []float64, center, radius int) float64 {
	lo := center - radius
	if lo < 0 {
		lo = 0
	}
	hi := center + radius
	if hi > len(mags)-1 {
		hi = len(mags) - 1
	}
	max := mags[lo]
	for _, v := range mags[lo+1 : hi+1] {
		if v > max {
			max = v
		}
	}
	return max
}

// Detect runs Strength and adaptive peak picking, returning time-ascending
// onset events. A silent track yields zero events without error.
func Detect(sp *spectral.Spectrogram, cfg Config) ([]Event, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	flux, err := Strength(sp, cfg.Mode)
	if err != nil {
		return nil, err
	}

	// Centered ~0.5 s mean/stddev window.
	avgWindow := int(0.5 * sp.FrameRate())
	if avgWindow < 3 {
		avgWindow = 3
	}
	half := avgWindow / 2

	minIntervalFrames := int(cfg.MinIntervalMS / 1000.0 * sp.FrameRate())
	if minIntervalFrames < 1 {
		minIntervalFrames = 1
	}

	// Silence floor relative to the loudest frame.
	var peakEnergy float64
	for i := 0; i < sp.NumFrames(); i++ {
		if e := sp.FrameEnergy(i); e > peakEnergy {
			peakEnergy = e
		}
	}
	silenceGate := peakEnergy * dsp.DBToLin(silenceFloorDB)

	var candidates []Event
	for i := 1; i < len(flux); i++ {
		start := i - half
		if start < 0 {
			start = 0
		}
		end := i + half + 1
		if end > len(flux) {
			end = len(flux)
		}
		mean, std := dsp.MeanStd(flux[start:end])
		if flux[i] <= mean+cfg.Sensitivity*std {
			continue
		}
		// Local maximum.
		if flux[i] <= flux[i-1] {
			continue
		}
		if i+1 < len(flux) && flux[i] < flux[i+1] {
			continue
		}
		if sp.FrameEnergy(i) < silenceGate {
			continue
		}
		candidates = append(candidates, Event{
			Frame:    i,
			Time:     sp.FrameTime(i),
			Strength: flux[i],
		})
	}

	return suppressWeaker(candidates, minIntervalFrames), nil
}

// suppressWeaker enforces the minimum inter-onset spacing: within the window
// of a stronger candidate, weaker ones are discarded.
func suppressWeaker(candidates []Event, minFrames int) []Event {
	byStrength := make([]Event, len(candidates))
	copy(byStrength, candidates)
	sort.SliceStable(byStrength, func(i, j int) bool {
		return byStrength[i].Strength > byStrength[j].Strength
	})

	var accepted []Event
	for _, c := range byStrength {
		ok := true
		for _, a := range accepted {
			if abs(c.Frame-a.Frame) < minFrames {
				ok = false
				break
			}
		}
		if ok {
			accepted = append(accepted, c)
		}
	}
	sort.Slice(accepted, func(i, j int) bool { return accepted[i].Frame < accepted[j].Frame })
	return accepted
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
