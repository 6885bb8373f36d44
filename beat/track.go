package beat

import (
	"errors"
	"fmt"
	"math"

	"github.com/funktrack/chartgen/spectral"
)

// ErrInsufficientSignal is returned when the track is too short or too quiet
// for tempo estimation. Callers fall back to a default or user-supplied BPM.
var ErrInsufficientSignal = errors.New("insufficient signal for beat tracking")

// maxSplitDepth bounds recursive tempo-drift segmentation.
const maxSplitDepth = 3

// Config controls tempo estimation and beat alignment.
type Config struct {
	MinBPM float64
	MaxBPM float64

	// PriorBPM and PriorWidth define the log-lag Gaussian tempo prior;
	// PriorWidth is measured in octaves.
	PriorBPM   float64
	PriorWidth float64

	// OverrideBPM skips tempo estimation when > 0.
	OverrideBPM float64
	// FallbackBPM is reported by callers when tracking fails entirely.
	FallbackBPM float64

	// Tightness weighs the quadratic log-deviation penalty in the dynamic
	// programming alignment.
	Tightness float64

	// DriftWindow is the number of consecutive inter-beat intervals examined
	// per variance window; DriftThreshold is the relative standard deviation
	// above which the track is split into stable-tempo segments.
	DriftWindow    int
	DriftThreshold float64
}

// DefaultConfig returns the standard tracking settings: 40-240 BPM search,
// prior centered at 120 BPM, drift split at 15% interval deviation.
func DefaultConfig() Config {
	return Config{
		MinBPM:         40,
		MaxBPM:         240,
		PriorBPM:       120,
		PriorWidth:     1.0,
		FallbackBPM:    120,
		Tightness:      100,
		DriftWindow:    8,
		DriftThreshold: 0.15,
	}
}

// Validate reports the first invalid field, if any.
func (c Config) Validate() error {
	if c.MinBPM <= 0 || c.MaxBPM <= c.MinBPM {
		return fmt.Errorf("%w: BPM range [%g, %g] invalid", spectral.ErrInvalidParameter, c.MinBPM, c.MaxBPM)
	}
	if c.PriorBPM <= 0 || c.PriorWidth <= 0 {
		return fmt.Errorf("%w: tempo prior %g BPM / %g octaves invalid", spectral.ErrInvalidParameter, c.PriorBPM, c.PriorWidth)
	}
	if c.OverrideBPM < 0 {
		return fmt.Errorf("%w: override BPM must be >= 0, got %g", spectral.ErrInvalidParameter, c.OverrideBPM)
	}
	if c.FallbackBPM <= 0 {
		return fmt.Errorf("%w: fallback BPM must be > 0, got %g", spectral.ErrInvalidParameter, c.FallbackBPM)
	}
	if c.Tightness <= 0 {
		return fmt.Errorf("%w: tightness must be > 0, got %g", spectral.ErrInvalidParameter, c.Tightness)
	}
	if c.DriftWindow < 2 || c.DriftThreshold <= 0 {
		return fmt.Errorf("%w: drift window %d / threshold %g invalid", spectral.ErrInvalidParameter, c.DriftWindow, c.DriftThreshold)
	}
	return nil
}

// Track estimates the beat grid of the analyzed track. It returns
// ErrInsufficientSignal when the envelope is shorter than one candidate beat
// period or carries no energy.
func Track(sp *spectral.Spectrogram, cfg Config) (*Grid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sp == nil || sp.NumFrames() == 0 {
		return nil, fmt.Errorf("%w: empty spectrogram", ErrInsufficientSignal)
	}

	env := Envelope(sp)
	frameRate := sp.FrameRate()

	maxPeriod := frameRate * 60.0 / cfg.MinBPM
	if float64(len(env)) < maxPeriod {
		return nil, fmt.Errorf("%w: %d frames is shorter than one %g BPM period", ErrInsufficientSignal, len(env), cfg.MinBPM)
	}
	if !hasEnergy(env) {
		return nil, fmt.Errorf("%w: onset envelope is silent", ErrInsufficientSignal)
	}

	beats, segBPMs := trackRange(env, 0, len(env), frameRate, cfg, 0)
	if len(beats) == 0 {
		return nil, fmt.Errorf("%w: no beats found", ErrInsufficientSignal)
	}

	return assembleGrid(beats, segBPMs), nil
}

func hasEnergy(env []float64) bool {
	for _, v := range env {
		if v > 1e-9 {
			return true
		}
	}
	return false
}

// segmentBeats couples one stable-tempo segment's beat times with its BPM.
type segmentBeats struct {
	beats []float64
	bpm   float64
}

// trackRange estimates tempo and beats for env[start:end), splitting
// recursively when the inter-beat interval variance indicates tempo drift.
func trackRange(env []float64, start, end int, frameRate float64, cfg Config, depth int) ([]float64, []segmentBeats) {
	sub := env[start:end]

	bpm := cfg.OverrideBPM
	if bpm == 0 {
		bpm = estimateTempo(sub, frameRate, cfg)
	}
	period := frameRate * 60.0 / bpm

	rawFrames := dpTrack(sub, period, cfg.Tightness)
	if len(rawFrames) < 2 {
		// Not enough support for alignment; lay a uniform grid across the range.
		beats := uniformRange(start, end, frameRate, period)
		return beats, []segmentBeats{{beats: beats, bpm: bpm}}
	}

	if depth < maxSplitDepth && cfg.OverrideBPM == 0 {
		if split, ok := driftSplit(rawFrames, cfg); ok {
			mid := start + split
			left, leftSegs := trackRange(env, start, mid, frameRate, cfg, depth+1)
			right, rightSegs := trackRange(env, mid, end, frameRate, cfg, depth+1)
			return append(left, right...), append(leftSegs, rightSegs...)
		}
	}

	// Stable tempo: fit a uniform grid to the aligned beats by least squares,
	// bounding the accumulated frame-quantization error.
	slope, intercept := fitLine(rawFrames)
	refinedBPM := cfg.OverrideBPM
	if refinedBPM == 0 {
		refinedBPM = math.Round(frameRate*60.0/slope*2.0) / 2.0
	} else {
		slope = frameRate * 60.0 / refinedBPM
	}
	beats := make([]float64, len(rawFrames))
	for i := range beats {
		beats[i] = (float64(start) + intercept + float64(i)*slope) / frameRate
	}
	return beats, []segmentBeats{{beats: beats, bpm: refinedBPM}}
}

// dpTrack aligns beats to the envelope with a dynamic program over frames:
// each frame's score is its onset strength plus the best predecessor score
// minus a quadratic log-deviation penalty; the beat sequence is recovered by
// backtracking from the best final score. Explicit score/pred arrays sized to
// the frame count, no per-node allocation.
func dpTrack(env []float64, period float64, tightness float64) []int {
	n := len(env)
	if n == 0 || period < 1 {
		return nil
	}
	score := make([]float64, n)
	pred := make([]int, n)

	lo := int(period / 2)
	if lo < 1 {
		lo = 1
	}
	hi := int(period * 2)

	for i := 0; i < n; i++ {
		pred[i] = -1
		best := 0.0
		bestJ := -1
		for d := lo; d <= hi && d <= i; d++ {
			j := i - d
			dev := math.Log(float64(d) / period)
			s := score[j] - tightness*dev*dev
			if s > best {
				best = s
				bestJ = j
			}
		}
		score[i] = env[i]
		if bestJ >= 0 {
			score[i] += best
			pred[i] = bestJ
		}
	}

	// Best chain ending within the final period.
	tail := n - int(period)
	if tail < 0 {
		tail = 0
	}
	bestEnd := tail
	for i := tail + 1; i < n; i++ {
		if score[i] > score[bestEnd] {
			bestEnd = i
		}
	}

	var frames []int
	for i := bestEnd; i >= 0; i = pred[i] {
		frames = append(frames, i)
		if pred[i] < 0 {
			break
		}
	}
	// Reverse into time order.
	for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
		frames[i], frames[j] = frames[j], frames[i]
	}
	return frames
}

// driftSplit scans consecutive inter-beat intervals with a sliding window and
// returns the frame offset to split at when the relative deviation exceeds
// the configured threshold.
func driftSplit(rawFrames []int, cfg Config) (int, bool) {
	if len(rawFrames) < cfg.DriftWindow+1 {
		return 0, false
	}
	intervals := make([]float64, len(rawFrames)-1)
	for i := range intervals {
		intervals[i] = float64(rawFrames[i+1] - rawFrames[i])
	}
	for w := 0; w+cfg.DriftWindow <= len(intervals); w++ {
		mean, std := meanStd(intervals[w : w+cfg.DriftWindow])
		if mean <= 0 {
			continue
		}
		if std/mean > cfg.DriftThreshold {
			center := w + cfg.DriftWindow/2
			split := rawFrames[center]
			if split <= rawFrames[0] || split >= rawFrames[len(rawFrames)-1] {
				return 0, false
			}
			return split, true
		}
	}
	return 0, false
}

func meanStd(xs []float64) (mean, std float64) {
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

// fitLine fits frames[i] ~= intercept + slope*i by least squares.
func fitLine(frames []int) (slope, intercept float64) {
	n := float64(len(frames))
	var sumX, sumY, sumXY, sumXX float64
	for i, f := range frames {
		x, y := float64(i), float64(f)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 1, float64(frames[0])
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	if slope < 1 {
		slope = 1
	}
	return slope, intercept
}

func uniformRange(start, end int, frameRate, period float64) []float64 {
	var beats []float64
	for f := float64(start); f < float64(end); f += period {
		beats = append(beats, f/frameRate)
	}
	return beats
}

// assembleGrid concatenates segment beats into a single strictly increasing
// grid with tempo-change boundaries recorded at the splits.
func assembleGrid(beats []float64, segs []segmentBeats) *Grid {
	g := &Grid{}
	var dominant segmentBeats
	for _, seg := range segs {
		startIdx := len(g.Beats)
		for _, b := range seg.beats {
			if len(g.Beats) > 0 && b <= g.Beats[len(g.Beats)-1]+1e-9 {
				continue
			}
			g.Beats = append(g.Beats, b)
		}
		if len(g.Beats) > startIdx {
			g.Segments = append(g.Segments, Segment{
				StartBeat: float64(startIdx),
				BPM:       seg.bpm,
			})
			if len(seg.beats) > len(dominant.beats) {
				dominant = seg
			}
		}
	}
	if dominant.bpm > 0 {
		g.BPM = dominant.bpm
	}
	return g
}
