// Package beat estimates the tempo and beat-aligned time grid of a track
// from its mel-band onset envelope.
package beat

import "math"

// Segment is one stable-tempo region of the grid.
type Segment struct {
	StartBeat float64
	BPM       float64
}

// Grid is the beat-aligned time grid of a track: strictly increasing beat
// timestamps plus per-segment tempo. BPM is the tempo of the dominant
// (longest) segment.
type Grid struct {
	Beats    []float64 // seconds, strictly increasing
	BPM      float64
	Segments []Segment
}

// Uniform builds a constant-tempo grid covering duration seconds, used as the
// fallback when tracking fails or when the tempo is supplied by the caller.
func Uniform(duration, bpm float64) *Grid {
	period := 60.0 / bpm
	n := int(duration/period) + 1
	if n < 1 {
		n = 1
	}
	beats := make([]float64, n)
	for i := range beats {
		beats[i] = float64(i) * period
	}
	return &Grid{
		Beats:    beats,
		BPM:      bpm,
		Segments: []Segment{{StartBeat: 0, BPM: bpm}},
	}
}

// TimeToBeat converts a timestamp to a fractional beat position, extrapolating
// with the local period beyond either end of the grid.
func (g *Grid) TimeToBeat(t float64) float64 {
	if len(g.Beats) == 0 {
		return 0
	}
	if t <= g.Beats[0] {
		period := 60.0 / g.segmentBPMAt(0)
		return (t - g.Beats[0]) / period
	}
	for i := 1; i < len(g.Beats); i++ {
		if t <= g.Beats[i] {
			t0, t1 := g.Beats[i-1], g.Beats[i]
			return float64(i-1) + (t-t0)/(t1-t0)
		}
	}
	last := g.Beats[len(g.Beats)-1]
	period := 60.0 / g.segmentBPMAt(float64(len(g.Beats)-1))
	return float64(len(g.Beats)-1) + (t-last)/period
}

// BeatTime converts a fractional beat position to a timestamp, the inverse of
// TimeToBeat.
func (g *Grid) BeatTime(beat float64) float64 {
	if len(g.Beats) == 0 {
		return 0
	}
	if beat <= 0 {
		period := 60.0 / g.segmentBPMAt(0)
		return g.Beats[0] + beat*period
	}
	idx := int(math.Floor(beat))
	frac := beat - float64(idx)
	if idx < len(g.Beats)-1 {
		return g.Beats[idx] + frac*(g.Beats[idx+1]-g.Beats[idx])
	}
	last := g.Beats[len(g.Beats)-1]
	period := 60.0 / g.segmentBPMAt(beat)
	return last + (beat-float64(len(g.Beats)-1))*period
}

// TotalBeats returns the beat count spanned by the grid.
func (g *Grid) TotalBeats() float64 {
	if len(g.Beats) == 0 {
		return 0
	}
	return float64(len(g.Beats) - 1)
}

// Duration returns the time spanned by the grid in seconds.
func (g *Grid) Duration() float64 {
	if len(g.Beats) == 0 {
		return 0
	}
	return g.Beats[len(g.Beats)-1] - g.Beats[0]
}

func (g *Grid) segmentBPMAt(beat float64) float64 {
	bpm := g.BPM
	for _, seg := range g.Segments {
		if beat >= seg.StartBeat {
			bpm = seg.BPM
		}
	}
	if bpm <= 0 {
		bpm = 120
	}
	return bpm
}
