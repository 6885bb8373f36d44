package beat

import (
	"errors"
	"math"
	"testing"

	"github.com/funktrack/chartgen/spectral"
)

// clickTrack returns duration seconds of silence with short broadband bursts
// at the given tempo.
func clickTrack(duration, bpm float64, sampleRate int) []float64 {
	samples := make([]float64, int(duration*float64(sampleRate)))
	period := 60.0 / bpm
	for t := 0.1; t < duration-0.1; t += period {
		start := int(t * float64(sampleRate))
		for i := 0; i < 64 && start+i < len(samples); i++ {
			if i%2 == 0 {
				samples[start+i] = 0.9
			} else {
				samples[start+i] = -0.9
			}
		}
	}
	return samples
}

func analyze(t *testing.T, samples []float64) *spectral.Spectrogram {
	t.Helper()
	sp, err := spectral.Compute(samples, 44100, spectral.DefaultConfig())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	return sp
}

func TestTrackClickTempo(t *testing.T) {
	sp := analyze(t, clickTrack(16.0, 120, 44100))
	grid, err := Track(sp, DefaultConfig())
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if math.Abs(grid.BPM-120) > 1 {
		t.Fatalf("expected ~120 BPM, got %g", grid.BPM)
	}

	// Beats must be strictly increasing with ~0.5 s spacing.
	for i := 1; i < len(grid.Beats); i++ {
		dt := grid.Beats[i] - grid.Beats[i-1]
		if dt <= 0 {
			t.Fatalf("beats not strictly increasing at %d", i)
		}
		if math.Abs(dt-0.5) > 0.005 {
			t.Fatalf("beat %d spacing %.4fs, expected 0.500s ±5ms", i, dt)
		}
	}
}

func TestTrackHalfTimeTempoPrior(t *testing.T) {
	// A 60 BPM click train is metrically ambiguous (60/120/240); the prior at
	// 120 BPM must keep the estimate inside the search range with beats on a
	// subdivision or multiple of the click spacing.
	sp := analyze(t, clickTrack(16.0, 60, 44100))
	grid, err := Track(sp, DefaultConfig())
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	ratio := grid.BPM / 60.0
	rounded := math.Round(ratio)
	if rounded < 1 || math.Abs(ratio-rounded) > 0.05 {
		t.Fatalf("expected a multiple of 60 BPM, got %g", grid.BPM)
	}
}

func TestTrackOverrideBPM(t *testing.T) {
	sp := analyze(t, clickTrack(10.0, 120, 44100))
	cfg := DefaultConfig()
	cfg.OverrideBPM = 100
	grid, err := Track(sp, cfg)
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if grid.BPM != 100 {
		t.Fatalf("override must win: expected 100 BPM, got %g", grid.BPM)
	}
}

func TestTrackSilence(t *testing.T) {
	sp := analyze(t, make([]float64, 44100*10))
	_, err := Track(sp, DefaultConfig())
	if !errors.Is(err, ErrInsufficientSignal) {
		t.Fatalf("expected ErrInsufficientSignal, got %v", err)
	}
}

func TestTrackTooShort(t *testing.T) {
	// Half a second cannot contain one 40 BPM period.
	sp := analyze(t, clickTrack(0.5, 120, 44100))
	_, err := Track(sp, DefaultConfig())
	if !errors.Is(err, ErrInsufficientSignal) {
		t.Fatalf("expected ErrInsufficientSignal, got %v", err)
	}
}

func TestUniformGrid(t *testing.T) {
	g := Uniform(10.0, 120)
	if g.BPM != 120 {
		t.Fatalf("BPM: expected 120, got %g", g.BPM)
	}
	if len(g.Beats) != 21 {
		t.Fatalf("expected 21 beats over 10s at 120 BPM, got %d", len(g.Beats))
	}
	for i := 1; i < len(g.Beats); i++ {
		if math.Abs(g.Beats[i]-g.Beats[i-1]-0.5) > 1e-9 {
			t.Fatalf("beat %d spacing not 0.5s", i)
		}
	}
	if len(g.Segments) != 1 || g.Segments[0].BPM != 120 {
		t.Fatalf("expected one 120 BPM segment, got %+v", g.Segments)
	}
}

func TestTimeToBeatRoundTrip(t *testing.T) {
	g := Uniform(10.0, 120)
	for _, beatPos := range []float64{0, 0.5, 1, 7.25, 19.5} {
		tm := g.BeatTime(beatPos)
		back := g.TimeToBeat(tm)
		if math.Abs(back-beatPos) > 1e-9 {
			t.Fatalf("beat %g -> %.4fs -> beat %g", beatPos, tm, back)
		}
	}
}

func TestTimeToBeatExtrapolates(t *testing.T) {
	g := Uniform(10.0, 120)
	// One period past the last beat is one beat further.
	last := g.Beats[len(g.Beats)-1]
	got := g.TimeToBeat(last + 0.5)
	want := g.TotalBeats() + 1
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("extrapolation: expected beat %g, got %g", want, got)
	}
	// Before the first beat goes negative.
	if got := g.TimeToBeat(-0.25); math.Abs(got+0.5) > 1e-9 {
		t.Fatalf("pre-roll extrapolation: expected -0.5, got %g", got)
	}
}

func TestDriftSplitDetectsTempoChange(t *testing.T) {
	// Stable intervals of 20 frames, then 30 frames: the sliding window must
	// flag a split inside the range.
	var frames []int
	f := 0
	for i := 0; i < 12; i++ {
		frames = append(frames, f)
		f += 20
	}
	for i := 0; i < 12; i++ {
		f += 30
		frames = append(frames, f)
	}
	split, ok := driftSplit(frames, DefaultConfig())
	if !ok {
		t.Fatalf("expected a drift split")
	}
	if split <= frames[0] || split >= frames[len(frames)-1] {
		t.Fatalf("split %d outside range (%d, %d)", split, frames[0], frames[len(frames)-1])
	}
}

func TestDriftSplitStableTempo(t *testing.T) {
	var frames []int
	for i := 0; i < 24; i++ {
		frames = append(frames, i*20)
	}
	if _, ok := driftSplit(frames, DefaultConfig()); ok {
		t.Fatalf("stable intervals must not split")
	}
}

func TestEnvelopeProperties(t *testing.T) {
	sp := analyze(t, clickTrack(8.0, 120, 44100))
	env := Envelope(sp)
	if len(env) != sp.NumFrames() {
		t.Fatalf("envelope length %d != frames %d", len(env), sp.NumFrames())
	}
	var max float64
	for i, v := range env {
		if v < 0 {
			t.Fatalf("negative envelope at frame %d: %g", i, v)
		}
		if v > max {
			max = v
		}
	}
	if math.Abs(max-1.0) > 1e-9 {
		t.Fatalf("expected normalized envelope peak 1, got %g", max)
	}
}

func TestConfigValidate(t *testing.T) {
	bad := []Config{
		{MinBPM: 0, MaxBPM: 240, PriorBPM: 120, PriorWidth: 1, FallbackBPM: 120, Tightness: 100, DriftWindow: 8, DriftThreshold: 0.15},
		{MinBPM: 240, MaxBPM: 40, PriorBPM: 120, PriorWidth: 1, FallbackBPM: 120, Tightness: 100, DriftWindow: 8, DriftThreshold: 0.15},
		{MinBPM: 40, MaxBPM: 240, PriorBPM: 0, PriorWidth: 1, FallbackBPM: 120, Tightness: 100, DriftWindow: 8, DriftThreshold: 0.15},
		{MinBPM: 40, MaxBPM: 240, PriorBPM: 120, PriorWidth: 1, FallbackBPM: 0, Tightness: 100, DriftWindow: 8, DriftThreshold: 0.15},
		{MinBPM: 40, MaxBPM: 240, PriorBPM: 120, PriorWidth: 1, FallbackBPM: 120, Tightness: 0, DriftWindow: 8, DriftThreshold: 0.15},
		{MinBPM: 40, MaxBPM: 240, PriorBPM: 120, PriorWidth: 1, FallbackBPM: 120, Tightness: 100, DriftWindow: 1, DriftThreshold: 0.15},
	}
	for i, cfg := range bad {
		if err := cfg.Validate(); !errors.Is(err, spectral.ErrInvalidParameter) {
			t.Fatalf("case %d: expected ErrInvalidParameter, got %v", i, err)
		}
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}
