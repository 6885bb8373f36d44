// chartgen analyzes an audio file and emits one playable chart per requested
// difficulty tier.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/funktrack/chartgen/beat"
	"github.com/funktrack/chartgen/chart"
	"github.com/funktrack/chartgen/decode"
	"github.com/funktrack/chartgen/difficulty"
	"github.com/funktrack/chartgen/onset"
	"github.com/funktrack/chartgen/pipeline"
	"github.com/funktrack/chartgen/spectral"
)

// Exit codes by failure category.
const (
	exitUsage       = 1
	exitIO          = 2
	exitUnsupported = 3
	exitDecode      = 4
	exitAnalysis    = 5
)

type options struct {
	difficulty  string
	output      string
	outputDir   string
	bpm         float64
	sensitivity float64
	onsetMode   string
	minInterval float64
	format      string
	metadata    bool
	title       string
	artist      string
	verbose     bool
}

func main() {
	var opts options
	var invoked bool

	root := newRootCommand(&opts, &invoked)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "chartgen: %v\n", err)
		if !invoked {
			// Flag parsing or argument validation failed before run started.
			os.Exit(exitUsage)
		}
		os.Exit(exitCode(err))
	}
}

// newRootCommand builds the CLI. invoked is set once flag and argument
// validation has passed and run begins, so main can tell usage errors apart
// from pipeline errors.
func newRootCommand(opts *options, invoked *bool) *cobra.Command {
	root := &cobra.Command{
		Use:   "chartgen <audio-file>",
		Short: "Generate rhythm-game charts from an audio file",
		Long: `chartgen decodes a WAV, MP3, OGG or FLAC file, detects onsets and tempo,
and writes one chart per requested difficulty tier.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			*invoked = true
			return run(args[0], *opts)
		},
	}

	f := root.Flags()
	f.StringVarP(&opts.difficulty, "difficulty", "d", "all", "difficulty tier: easy, normal, hard, expert or all")
	f.StringVarP(&opts.output, "output", "o", "", "output file path (single tier only)")
	f.StringVar(&opts.outputDir, "output-dir", ".", "directory for generated charts")
	f.Float64Var(&opts.bpm, "bpm", 0, "override the detected tempo (0 = detect)")
	f.Float64Var(&opts.sensitivity, "sensitivity", 1.5, "onset threshold in stddevs above the local mean")
	f.StringVar(&opts.onsetMode, "onset-mode", "flux", "onset strength function: flux or maxflux")
	f.Float64Var(&opts.minInterval, "min-interval", 50, "minimum onset spacing in milliseconds")
	f.StringVar(&opts.format, "format", "yaml", "chart encoding: yaml or binary")
	f.BoolVar(&opts.metadata, "metadata", false, "also write metadata.yaml next to the charts")
	f.StringVar(&opts.title, "title", "", "song title for metadata")
	f.StringVar(&opts.artist, "artist", "", "song artist for metadata")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "print per-stage progress")

	return root
}

// exitCode maps an error to its failure category.
func exitCode(err error) int {
	var pathErr *fs.PathError
	switch {
	case errors.Is(err, spectral.ErrInvalidParameter):
		return exitUsage
	case errors.Is(err, decode.ErrUnsupportedFormat):
		return exitUnsupported
	case errors.Is(err, decode.ErrDecode):
		return exitDecode
	case errors.As(err, &pathErr), errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return exitIO
	case errors.Is(err, beat.ErrInsufficientSignal), errors.Is(err, onset.ErrEmptySpectrogram):
		return exitAnalysis
	default:
		return exitAnalysis
	}
}

func run(input string, opts options) error {
	cfg, tiers, err := buildConfig(opts)
	if err != nil {
		return err
	}
	format := chart.Format(opts.format)
	if format != chart.FormatYAML && format != chart.FormatBinary {
		return fmt.Errorf("%w: unknown format %q", spectral.ErrInvalidParameter, opts.format)
	}
	if opts.output != "" && len(tiers) != 1 {
		return fmt.Errorf("%w: --output requires a single --difficulty tier", spectral.ErrInvalidParameter)
	}

	if opts.verbose {
		fmt.Fprintf(os.Stderr, "analyzing %s...\n", input)
	}
	analysis, err := pipeline.Analyze(input, cfg)
	if err != nil {
		return err
	}
	for _, w := range analysis.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	if opts.verbose {
		fmt.Fprintf(os.Stderr, "duration %.2fs, %d onsets, %.1f BPM (%d tempo segments)\n",
			analysis.Duration, len(analysis.Onsets), analysis.Grid.BPM, len(analysis.Grid.Segments))
	}

	results := pipeline.GenerateCharts(analysis, cfg)

	if err := os.MkdirAll(opts.outputDir, 0o755); err != nil {
		return err
	}

	var (
		written []string
		failed  int
	)
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "error: %v\n", res.Err)
			continue
		}
		path := opts.output
		if path == "" {
			path = filepath.Join(opts.outputDir, fmt.Sprintf("%s.%s", res.Tier, format.Ext()))
		}
		if err := chart.WriteFile(path, res.Chart, format); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "error: writing %s: %v\n", path, err)
			continue
		}
		written = append(written, string(res.Tier))
		fmt.Fprintf(os.Stderr, "wrote %s (%d notes, rating %d)\n",
			path, len(res.Chart.Notes), res.Chart.DifficultyRating)
	}

	if opts.metadata {
		meta := &chart.Metadata{
			Title:        firstNonEmpty(opts.title, baseName(input)),
			Artist:       opts.artist,
			Charter:      "chartgen",
			AudioFile:    filepath.Base(input),
			Difficulties: written,
		}
		metaPath := filepath.Join(opts.outputDir, "metadata.yaml")
		if err := chart.WriteMetadata(metaPath, meta); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", metaPath)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d charts failed", failed, len(results))
	}
	return nil
}

func buildConfig(opts options) (pipeline.Config, []difficulty.Tier, error) {
	cfg := pipeline.DefaultConfig()
	cfg.Onset.Mode = onset.Mode(opts.onsetMode)
	cfg.Onset.Sensitivity = opts.sensitivity
	cfg.Onset.MinIntervalMS = opts.minInterval
	cfg.Beat.OverrideBPM = opts.bpm

	var tiers []difficulty.Tier
	if strings.EqualFold(opts.difficulty, "all") {
		tiers = difficulty.Tiers[:]
	} else {
		for _, name := range strings.Split(opts.difficulty, ",") {
			t, err := difficulty.ParseTier(strings.TrimSpace(name))
			if err != nil {
				return cfg, nil, fmt.Errorf("%w: %v", spectral.ErrInvalidParameter, err)
			}
			tiers = append(tiers, t)
		}
	}
	cfg.Tiers = tiers

	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}
	return cfg, tiers, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
