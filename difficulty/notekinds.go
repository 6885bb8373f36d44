package difficulty

import (
	"math"

	"github.com/funktrack/chartgen/chart"
)

// kindSeed makes note-kind assignment deterministic across runs.
const kindSeed uint64 = 42

// AssignKinds turns scored notes into chart notes, picking each note's kind
// from the tier's mix of taps, holds, slides and criticals. Rolls come from a
// seeded xorshift64 stream so the same selection always yields the same chart.
func AssignKinds(notes []ScoredNote, tier Tier) []chart.Note {
	out := make([]chart.Note, 0, len(notes))
	rng := kindSeed
	for i := range notes {
		out = append(out, pickKind(notes, i, tier, &rng))
	}
	return out
}

func pickKind(notes []ScoredNote, idx int, tier Tier, rng *uint64) chart.Note {
	n := notes[idx]
	note := chart.Note{Beat: n.Beat, Kind: chart.NoteTap}
	roll := xorshift64(rng) % 100

	switch tier {
	case Easy:
		if n.Strength > 0.8 && isDownbeat(n.Beat) {
			note.Kind = chart.NoteHold
			note.DurationBeats = holdDuration(notes, idx)
		}

	case Normal:
		switch {
		case n.Strength > 0.8 && isDownbeat(n.Beat):
			note.Kind = chart.NoteHold
			note.DurationBeats = holdDuration(notes, idx)
		case roll < 15:
			note.Kind = chart.NoteSlide
			note.Direction = pickDirection(n.Beat, rng)
		}

	case Hard:
		switch {
		case n.Strength > 0.85 && isDownbeat(n.Beat):
			if roll < 40 {
				note.Kind = chart.NoteCritical
			} else {
				note.Kind = chart.NoteHold
				note.DurationBeats = holdDuration(notes, idx)
			}
		case isRapidPair(notes, idx):
			// Dense runs stay taps so they remain hittable.
		case roll < 25:
			note.Kind = chart.NoteSlide
			note.Direction = pickDirection(n.Beat, rng)
		}

	default: // Expert
		switch {
		case n.Strength > 0.9 && isDownbeat(n.Beat):
			if roll < 30 {
				note.Kind = chart.NoteCritical
			} else {
				note.Kind = chart.NoteCriticalHold
				note.DurationBeats = holdDuration(notes, idx)
			}
		case isRapidPair(notes, idx):
		case roll < 20:
			note.Kind = chart.NoteSlide
			note.Direction = pickDirection(n.Beat, rng)
		case roll < 26:
			note.Kind = chart.NoteDualSlide
			note.Left = pickDirection(n.Beat, rng)
			note.Right = pickDirection(n.Beat+0.5, rng)
		case roll < 31:
			note.Kind = chart.NoteScratch
		case roll < 38 && n.Strength < 0.3:
			note.Kind = chart.NoteAdLib
		}
	}
	return note
}

func isDownbeat(beat float64) bool {
	frac := beat - math.Floor(beat)
	return frac < 0.01 || frac > 0.99
}

// isRapidPair reports whether the next note follows within a sixteenth.
func isRapidPair(notes []ScoredNote, idx int) bool {
	if idx+1 >= len(notes) {
		return false
	}
	return notes[idx+1].Beat-notes[idx].Beat <= 0.25+0.01
}

// holdDuration holds for 75% of the gap to the next note, between half a beat
// and two beats.
func holdDuration(notes []ScoredNote, idx int) float64 {
	if idx+1 >= len(notes) {
		return 1.0
	}
	gap := notes[idx+1].Beat - notes[idx].Beat
	d := gap * 0.75
	if d < 0.5 {
		d = 0.5
	}
	if d > 2.0 {
		d = 2.0
	}
	return d
}

func pickDirection(seed float64, rng *uint64) chart.Direction {
	combined := uint64(seed*1000.0) ^ xorshift64(rng)
	return chart.Directions[combined%8]
}

func xorshift64(state *uint64) uint64 {
	if *state == 0 {
		*state = kindSeed
	}
	*state ^= *state << 13
	*state ^= *state >> 7
	*state ^= *state << 17
	return *state
}
