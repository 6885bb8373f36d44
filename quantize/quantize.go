// Package quantize snaps detected onsets onto the beat grid at a
// difficulty-dependent subdivision, resolving slot collisions.
package quantize

import (
	"fmt"
	"math"
	"sort"

	"github.com/funktrack/chartgen/beat"
	"github.com/funktrack/chartgen/onset"
	"github.com/funktrack/chartgen/spectral"
)

// Note is an onset snapped to the grid. Beat is an exact multiple of the
// subdivision step (up to a 1e-4 rounding guard against float drift).
type Note struct {
	Beat     float64
	Strength float64
	Time     float64 // original onset time in seconds
}

// validDivisions are the permitted subdivisions per beat.
var validDivisions = map[int]bool{1: true, 2: true, 4: true, 8: true, 16: true}

// Snap maps each onset to its nearest grid slot at the given subdivision.
// Onsets landing before beat zero are dropped; two onsets snapping to the
// same slot keep the stronger one. The result is time-ordered and
// collision-free, and snapping an already-aligned set is the identity.
func Snap(events []onset.Event, grid *beat.Grid, division int) ([]Note, error) {
	if !validDivisions[division] {
		return nil, fmt.Errorf("%w: grid division must be 1, 2, 4, 8 or 16, got %d", spectral.ErrInvalidParameter, division)
	}
	step := 1.0 / float64(division)

	bySlot := make(map[int64]Note)
	for _, ev := range events {
		raw := grid.TimeToBeat(ev.Time)
		if raw < -step/2 {
			continue
		}
		slot := int64(math.Round(raw / step))
		if slot < 0 {
			slot = 0
		}
		if existing, ok := bySlot[slot]; ok && existing.Strength >= ev.Strength {
			continue
		}
		bySlot[slot] = Note{
			Beat:     roundBeat(float64(slot) * step),
			Strength: ev.Strength,
			Time:     ev.Time,
		}
	}

	notes := make([]Note, 0, len(bySlot))
	for _, n := range bySlot {
		notes = append(notes, n)
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].Beat < notes[j].Beat })
	return notes, nil
}

// roundBeat guards against floating-point drift in the snapped beat value.
func roundBeat(beat float64) float64 {
	return math.Round(beat*10000.0) / 10000.0
}
