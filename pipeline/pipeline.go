// Package pipeline wires the analysis and synthesis stages into one offline
// run: decode, spectral analysis, onset detection and beat tracking happen
// once per input; quantization, difficulty selection, path synthesis and
// chart assembly run once per requested difficulty.
package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/funktrack/chartgen/beat"
	"github.com/funktrack/chartgen/chart"
	"github.com/funktrack/chartgen/decode"
	"github.com/funktrack/chartgen/difficulty"
	"github.com/funktrack/chartgen/onset"
	"github.com/funktrack/chartgen/pathgen"
	"github.com/funktrack/chartgen/quantize"
	"github.com/funktrack/chartgen/spectral"
)

// pathBufferBeats extends the path past the last tracked beat.
const pathBufferBeats = 8.0

// Config carries every stage's parameters explicitly; the pipeline keeps no
// ambient state.
type Config struct {
	Spectral spectral.Config
	Onset    onset.Config
	Beat     beat.Config
	Path     pathgen.Config
	Tiers    []difficulty.Tier
}

// DefaultConfig returns all stage defaults with every tier requested.
func DefaultConfig() Config {
	return Config{
		Spectral: spectral.DefaultConfig(),
		Onset:    onset.DefaultConfig(),
		Beat:     beat.DefaultConfig(),
		Path:     pathgen.DefaultConfig(),
		Tiers:    difficulty.Tiers[:],
	}
}

// Validate checks every stage's parameters eagerly, before any analysis runs.
func (c Config) Validate() error {
	if err := c.Spectral.Validate(); err != nil {
		return err
	}
	if err := c.Onset.Validate(); err != nil {
		return err
	}
	if err := c.Beat.Validate(); err != nil {
		return err
	}
	if err := c.Path.Validate(); err != nil {
		return err
	}
	if len(c.Tiers) == 0 {
		return fmt.Errorf("%w: no difficulty tiers requested", spectral.ErrInvalidParameter)
	}
	return nil
}

// Analysis is the shared output of stages 1-4, handed read-only to the
// per-difficulty stages.
type Analysis struct {
	Spectrogram *spectral.Spectrogram
	Onsets      []onset.Event
	Grid        *beat.Grid
	Duration    float64 // seconds of decoded audio
	Warnings    []string
}

// Analyze runs decoding, spectral analysis, onset detection and beat
// tracking. Insufficient signal for beat tracking is downgraded to a warning
// and a uniform fallback grid (the override BPM when set, the fallback BPM
// otherwise); all other stage errors abort the run.
func Analyze(path string, cfg Config) (*Analysis, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	samples, err := decode.File(path)
	if err != nil {
		return nil, err
	}
	duration := float64(len(samples)) / float64(decode.TargetSampleRate)

	sp, err := spectral.Compute(samples, decode.TargetSampleRate, cfg.Spectral)
	if err != nil {
		return nil, fmt.Errorf("spectral analysis of %q: %w", path, err)
	}

	a := &Analysis{Spectrogram: sp, Duration: duration}

	a.Onsets, err = onset.Detect(sp, cfg.Onset)
	if errors.Is(err, onset.ErrEmptySpectrogram) {
		// Treated like insufficient signal below.
		a.Onsets = nil
	} else if err != nil {
		return nil, fmt.Errorf("onset detection of %q: %w", path, err)
	}

	a.Grid, err = beat.Track(sp, cfg.Beat)
	if err != nil {
		if !isInsufficient(err) {
			return nil, fmt.Errorf("beat tracking of %q: %w", path, err)
		}
		bpm := cfg.Beat.OverrideBPM
		if bpm <= 0 {
			bpm = cfg.Beat.FallbackBPM
		}
		a.Warnings = append(a.Warnings, fmt.Sprintf(
			"beat tracking failed for %q (%v); falling back to a uniform %g BPM grid", path, err, bpm))
		gridDuration := duration
		if gridDuration <= 0 {
			gridDuration = 1
		}
		a.Grid = beat.Uniform(gridDuration, bpm)
	}
	return a, nil
}

func isInsufficient(err error) bool {
	return errors.Is(err, beat.ErrInsufficientSignal) || errors.Is(err, onset.ErrEmptySpectrogram)
}

// Result is one difficulty's chart or its failure.
type Result struct {
	Tier  difficulty.Tier
	Chart *chart.Chart
	Err   error
}

// GenerateCharts runs stages 5-8 for each requested tier concurrently over
// the shared analysis. One tier's failure aborts only that tier's chart.
func GenerateCharts(a *Analysis, cfg Config) []Result {
	results := make([]Result, len(cfg.Tiers))
	var wg sync.WaitGroup
	for i, tier := range cfg.Tiers {
		wg.Add(1)
		go func(i int, tier difficulty.Tier) {
			defer wg.Done()
			c, err := generateOne(a, tier, cfg)
			results[i] = Result{Tier: tier, Chart: c, Err: err}
		}(i, tier)
	}
	wg.Wait()
	return results
}

func generateOne(a *Analysis, tier difficulty.Tier, cfg Config) (*chart.Chart, error) {
	notes, err := quantize.Snap(a.Onsets, a.Grid, tier.GridDivision())
	if err != nil {
		return nil, fmt.Errorf("%s: quantization: %w", tier, err)
	}

	selected := difficulty.Select(notes, tier, a.Grid.BPM)
	chartNotes := difficulty.AssignKinds(selected, tier)

	totalBeats := a.Grid.TotalBeats() + pathBufferBeats
	if a.Grid.TotalBeats() == 0 {
		totalBeats = a.Duration * a.Grid.BPM / 60.0
	}
	segment, err := pathgen.Generate(a.Spectrogram, a.Grid, totalBeats, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("%s: path synthesis: %w", tier, err)
	}

	c := &chart.Chart{
		Difficulty:       string(tier),
		DifficultyRating: difficulty.Rating(selected, a.Grid.BPM),
		TimingPoints:     timingPoints(a.Grid),
		PathSegments:     []chart.Segment{segment},
		Notes:            chartNotes,
		TravelBeats:      tier.TravelBeats(),
		LookAheadBeats:   tier.TravelBeats(),
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", tier, err)
	}
	return c, nil
}

// timingPoints converts the grid's stable-tempo segments into chart timing
// points, one per tempo-change boundary.
func timingPoints(g *beat.Grid) []chart.TimingPoint {
	if len(g.Segments) == 0 {
		return []chart.TimingPoint{{Beat: 0, BPM: g.BPM, TimeSignature: [2]int{4, 4}}}
	}
	pts := make([]chart.TimingPoint, 0, len(g.Segments))
	for _, seg := range g.Segments {
		pts = append(pts, chart.TimingPoint{
			Beat:          seg.StartBeat,
			BPM:           seg.BPM,
			TimeSignature: [2]int{4, 4},
		})
	}
	return pts
}

// Run is the end-to-end entry point: analyze once, then generate every
// requested tier.
func Run(path string, cfg Config) (*Analysis, []Result, error) {
	a, err := Analyze(path, cfg)
	if err != nil {
		return nil, nil, err
	}
	return a, GenerateCharts(a, cfg), nil
}
