// Package pathgen synthesizes the audio-reactive 2-D path notes travel
// along: one control point per beat, with the vertical position driven by
// sub-band energy envelopes and fractal noise under stabilizing constraints.
package pathgen

import (
	"fmt"
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/funktrack/chartgen/beat"
	"github.com/funktrack/chartgen/chart"
	"github.com/funktrack/chartgen/dsp"
	"github.com/funktrack/chartgen/spectral"
)

// Config controls path synthesis.
type Config struct {
	Seed             int64
	ScreenHalfWidth  float64
	ScreenHalfHeight float64

	// Fractal noise shape.
	Octaves     int
	Persistence float64
	Lacunarity  float64

	// MeanReversion is the per-step pull toward the centerline; CurvatureMax
	// is the largest allowed turn in degrees across three consecutive points.
	MeanReversion float64
	CurvatureMax  float64

	// HalfBeatBPM switches to two control points per beat above this tempo.
	HalfBeatBPM float64
}

// DefaultConfig returns the standard synthesis settings.
func DefaultConfig() Config {
	return Config{
		Seed:             42,
		ScreenHalfWidth:  600,
		ScreenHalfHeight: 360,
		Octaves:          3,
		Persistence:      0.5,
		Lacunarity:       2.0,
		MeanReversion:    0.03,
		CurvatureMax:     120,
		HalfBeatBPM:      150,
	}
}

// Validate reports the first invalid field, if any.
func (c Config) Validate() error {
	if c.ScreenHalfWidth <= 0 || c.ScreenHalfHeight <= 0 {
		return fmt.Errorf("%w: screen bounds %gx%g invalid", spectral.ErrInvalidParameter, c.ScreenHalfWidth, c.ScreenHalfHeight)
	}
	if c.Octaves < 1 || c.Octaves > 8 {
		return fmt.Errorf("%w: noise octaves must be in [1, 8], got %d", spectral.ErrInvalidParameter, c.Octaves)
	}
	if c.Persistence <= 0 || c.Lacunarity <= 1 {
		return fmt.Errorf("%w: noise persistence %g / lacunarity %g invalid", spectral.ErrInvalidParameter, c.Persistence, c.Lacunarity)
	}
	if c.MeanReversion < 0 || c.MeanReversion >= 1 {
		return fmt.Errorf("%w: mean reversion must be in [0, 1), got %g", spectral.ErrInvalidParameter, c.MeanReversion)
	}
	if c.CurvatureMax <= 0 || c.CurvatureMax > 180 {
		return fmt.Errorf("%w: curvature cap must be in (0, 180], got %g", spectral.ErrInvalidParameter, c.CurvatureMax)
	}
	return nil
}

// Generate produces the spline segment spanning totalBeats. x advances
// uniformly (strictly increasing by construction); y combines a smoothed
// bass sweep, a high-band oscillation and energy-modulated fractal noise,
// then mean reversion, a soft clamp at 40% of the screen half-height, and
// the curvature cap are applied in that order.
func Generate(sp *spectral.Spectrogram, grid *beat.Grid, totalBeats float64, cfg Config) (chart.Segment, error) {
	if err := cfg.Validate(); err != nil {
		return chart.Segment{}, err
	}

	step := 1.0
	if grid.BPM > cfg.HalfBeatBPM {
		step = 0.5
	}
	numPoints := int(math.Ceil(totalBeats/step)) + 1
	if numPoints < 4 {
		numPoints = 4
	}

	noise := opensimplex.New(cfg.Seed)
	bassSmoother := dsp.NewOnePole(0.3)
	yClamp := cfg.ScreenHalfHeight * 0.4

	xStart := -cfg.ScreenHalfWidth
	xStep := 2.0 * cfg.ScreenHalfWidth / float64(numPoints-1)

	points := make([]chart.Point, numPoints)
	var y float64
	for i := 0; i < numPoints; i++ {
		beatPos := float64(i) * step
		frame := sp.TimeFrame(grid.BeatTime(beatPos))

		if frame >= 0 && frame < sp.NumFrames() {
			// Bass (20-250 Hz) drives the large sweeps, +-200 units.
			bass := bassSmoother.Process(sp.BandEnergy(frame, 20, 250))
			bassSweep := bass*400.0 - 200.0

			// Highs (4-20 kHz) add a beat-locked oscillation, +-50 units.
			highs := sp.BandEnergy(frame, 4000, 20000)
			highOsc := highs * 100.0 * math.Sin(2.0*2.0*math.Pi*beatPos)

			// Fractal noise, amplitude-modulated by overall energy.
			energy := sp.FrameEnergy(frame)
			n := fbm(noise, beatPos*0.3, cfg.Octaves, cfg.Persistence, cfg.Lacunarity)
			noiseComponent := n * energy * 150.0

			y += bassSweep*0.3 + highOsc + noiseComponent*0.5
		}

		y -= cfg.MeanReversion * y
		y = softClamp(y, yClamp)

		points[i] = chart.Point{X: xStart + float64(i)*xStep, Y: y}
	}

	capCurvature(points, cfg.CurvatureMax)

	return chart.Segment{
		Kind:      chart.SegmentCatmullRom,
		Points:    points,
		StartBeat: 0,
		EndBeat:   totalBeats,
	}, nil
}

// fbm layers coherent noise across octaves, normalized to [-1, 1].
func fbm(noise opensimplex.Noise, x float64, octaves int, persistence, lacunarity float64) float64 {
	var value, amplitude, frequency, maxAmplitude float64
	amplitude = 1.0
	frequency = 1.0
	for o := 0; o < octaves; o++ {
		value += noise.Eval2(x*frequency, 0) * amplitude
		maxAmplitude += amplitude
		amplitude *= persistence
		frequency *= lacunarity
	}
	return value / maxAmplitude
}

// softClamp keeps |y| within limit asymptotically.
func softClamp(y, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	return math.Tanh(y/limit) * limit
}

// capCurvature attenuates the middle point of any three-point window whose
// turn exceeds maxDegrees, pulling it toward its neighbors' midpoint until
// the turn is within bounds. Only y moves, preserving the forward-only x.
func capCurvature(points []chart.Point, maxDegrees float64) {
	maxTurn := maxDegrees * math.Pi / 180.0
	const passes = 4
	for p := 0; p < passes; p++ {
		adjusted := false
		for i := 1; i < len(points)-1; i++ {
			if turnAngle(points[i-1], points[i], points[i+1]) <= maxTurn {
				continue
			}
			mid := (points[i-1].Y + points[i+1].Y) / 2.0
			points[i].Y = points[i].Y*0.5 + mid*0.5
			adjusted = true
		}
		if !adjusted {
			return
		}
	}
}

// turnAngle returns the direction change at b across the window a-b-c.
func turnAngle(a, b, c chart.Point) float64 {
	v1x, v1y := b.X-a.X, b.Y-a.Y
	v2x, v2y := c.X-b.X, c.Y-b.Y
	dot := v1x*v2x + v1y*v2y
	n1 := math.Hypot(v1x, v1y)
	n2 := math.Hypot(v2x, v2y)
	if n1 == 0 || n2 == 0 {
		return 0
	}
	cos := dot / (n1 * n2)
	if cos > 1 {
		cos = 1
	}
	if cos < -1 {
		cos = -1
	}
	return math.Acos(cos)
}
