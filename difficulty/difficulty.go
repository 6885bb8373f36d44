// Package difficulty ranks quantized notes by importance and selects
// per-tier subsets under density and spacing rules.
package difficulty

import (
	"fmt"
	"math"
	"sort"

	"github.com/funktrack/chartgen/quantize"
	"github.com/funktrack/chartgen/spectral"
)

// Tier is one difficulty tier.
type Tier string

const (
	Easy   Tier = "easy"
	Normal Tier = "normal"
	Hard   Tier = "hard"
	Expert Tier = "expert"
)

// Tiers lists all tiers from laxest to strictest selection threshold.
var Tiers = [4]Tier{Easy, Normal, Hard, Expert}

// ParseTier converts a CLI string to a Tier.
func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case Easy, Normal, Hard, Expert:
		return Tier(s), nil
	}
	return "", fmt.Errorf("%w: unknown difficulty %q (use easy, normal, hard or expert)", spectral.ErrInvalidParameter, s)
}

// GridDivision returns the quantization subdivision for the tier.
func (t Tier) GridDivision() int {
	switch t {
	case Easy:
		return 1
	case Normal:
		return 2
	case Hard:
		return 4
	default:
		return 8
	}
}

// Percentile returns the importance percentile below which notes are dropped.
func (t Tier) Percentile() float64 {
	switch t {
	case Easy:
		return 0.80
	case Normal:
		return 0.50
	case Hard:
		return 0.20
	default:
		return 0
	}
}

// MinSpacingMS returns the minimum inter-note spacing for the tier.
func (t Tier) MinSpacingMS() float64 {
	switch t {
	case Easy:
		return 500
	case Normal:
		return 250
	case Hard:
		return 125
	default:
		return 0
	}
}

// TravelBeats returns how many beats a note travels from spawn to judgment.
func (t Tier) TravelBeats() float64 {
	switch t {
	case Easy:
		return 4.0
	case Normal:
		return 3.5
	default:
		return 3.0
	}
}

// phraseGapBeats is the note-density gap that starts a new phrase.
const phraseGapBeats = 2.0

// measureBeats is the measure length used by the density floor (4/4).
const measureBeats = 4.0

// ScoredNote is a quantized note with its computed importance.
type ScoredNote struct {
	Beat           float64
	Strength       float64
	Importance     float64
	PhraseBoundary bool
}

// Select scores the quantized notes and keeps the tier's subset: percentile
// thresholding on importance, phrase-boundary notes always retained, minimum
// inter-note spacing enforced, and at least one note per 4-beat measure
// guaranteed by re-inserting the most important dropped note.
func Select(notes []quantize.Note, tier Tier, bpm float64) []ScoredNote {
	if len(notes) == 0 {
		return nil
	}
	scored := score(notes)

	threshold := percentileThreshold(scored, tier.Percentile())

	var kept, dropped []ScoredNote
	for _, n := range scored {
		if n.PhraseBoundary || n.Importance >= threshold {
			kept = append(kept, n)
		} else {
			dropped = append(dropped, n)
		}
	}

	kept, spacingDropped := enforceSpacing(kept, tier.MinSpacingMS(), bpm)
	dropped = append(dropped, spacingDropped...)

	return fillEmptyMeasures(kept, dropped)
}

// score computes importance = strength × beat weight × phrase weight, with
// strengths normalized so the strongest note scores 1.
func score(notes []quantize.Note) []ScoredNote {
	var maxStrength float64
	for _, n := range notes {
		if n.Strength > maxStrength {
			maxStrength = n.Strength
		}
	}
	if maxStrength <= 0 {
		maxStrength = 1
	}

	scored := make([]ScoredNote, len(notes))
	for i, n := range notes {
		scored[i] = ScoredNote{
			Beat:     n.Beat,
			Strength: n.Strength / maxStrength,
		}
	}
	markPhraseBoundaries(scored)
	for i := range scored {
		phraseWeight := 0.7
		if scored[i].PhraseBoundary {
			phraseWeight = 1.0
		}
		scored[i].Importance = scored[i].Strength * beatWeight(scored[i].Beat) * phraseWeight
	}
	return scored
}

// markPhraseBoundaries flags the first and last note of each phrase, where a
// gap in note density above phraseGapBeats starts a new phrase.
func markPhraseBoundaries(notes []ScoredNote) {
	if len(notes) == 0 {
		return
	}
	notes[0].PhraseBoundary = true
	for i := 1; i < len(notes); i++ {
		if notes[i].Beat-notes[i-1].Beat > phraseGapBeats {
			notes[i-1].PhraseBoundary = true
			notes[i].PhraseBoundary = true
		}
	}
	notes[len(notes)-1].PhraseBoundary = true
}

// beatWeight weights grid positions: downbeats over beats over off-beats over
// finer subdivisions.
func beatWeight(beat float64) float64 {
	const tolerance = 0.01
	frac := beat - math.Floor(beat)
	switch {
	case frac < tolerance || frac > 1.0-tolerance:
		if int(math.Round(beat))%4 == 0 {
			return 1.0
		}
		return 0.8
	case math.Abs(frac-0.5) < tolerance:
		return 0.5
	default:
		return 0.3
	}
}

// percentileThreshold returns the importance value at the given percentile of
// the distribution; 0 keeps everything.
func percentileThreshold(notes []ScoredNote, percentile float64) float64 {
	if percentile <= 0 {
		return 0
	}
	importances := make([]float64, len(notes))
	for i, n := range notes {
		importances[i] = n.Importance
	}
	sort.Float64s(importances)
	idx := int(float64(len(importances)) * percentile)
	if idx > len(importances)-1 {
		idx = len(importances) - 1
	}
	return importances[idx]
}

// enforceSpacing drops the less important of any pair closer than the
// minimum spacing. Phrase-boundary notes are never dropped; a pair of
// boundaries is left intact.
func enforceSpacing(notes []ScoredNote, minMS, bpm float64) (kept, dropped []ScoredNote) {
	if minMS <= 0 || bpm <= 0 || len(notes) < 2 {
		return notes, nil
	}
	minBeats := minMS / 1000.0 * bpm / 60.0

	kept = notes
	i := 1
	for i < len(kept) {
		if kept[i].Beat-kept[i-1].Beat >= minBeats-1e-3 {
			i++
			continue
		}
		var drop int
		switch {
		case kept[i].PhraseBoundary && kept[i-1].PhraseBoundary:
			i++
			continue
		case kept[i].PhraseBoundary:
			drop = i - 1
		case kept[i-1].PhraseBoundary:
			drop = i
		case kept[i].Importance < kept[i-1].Importance:
			drop = i
		default:
			drop = i - 1
		}
		dropped = append(dropped, kept[drop])
		kept = append(kept[:drop], kept[drop+1:]...)
		if i > 1 {
			i--
		}
	}
	return kept, dropped
}

// fillEmptyMeasures guarantees at least one note per 4-beat measure between
// the first and last note, re-inserting the most important dropped note that
// falls inside an empty measure, or a synthetic downbeat tap when nothing was
// dropped there.
func fillEmptyMeasures(kept, dropped []ScoredNote) []ScoredNote {
	if len(kept) < 2 {
		return kept
	}
	first := kept[0].Beat
	last := kept[len(kept)-1].Beat
	measures := int(math.Ceil((last - first) / measureBeats))

	for m := 0; m < measures; m++ {
		lo := first + float64(m)*measureBeats
		hi := lo + measureBeats
		if hasNoteIn(kept, lo, hi) {
			continue
		}
		best := -1
		for i, d := range dropped {
			if d.Beat >= lo && d.Beat < hi && (best < 0 || d.Importance > dropped[best].Importance) {
				best = i
			}
		}
		var insert ScoredNote
		if best >= 0 {
			insert = dropped[best]
		} else {
			insert = ScoredNote{Beat: lo, Strength: 0.5, Importance: 0.5}
		}
		pos := sort.Search(len(kept), func(i int) bool { return kept[i].Beat >= insert.Beat })
		kept = append(kept, ScoredNote{})
		copy(kept[pos+1:], kept[pos:])
		kept[pos] = insert
	}
	return kept
}

func hasNoteIn(notes []ScoredNote, lo, hi float64) bool {
	for _, n := range notes {
		if n.Beat >= lo && n.Beat < hi {
			return true
		}
	}
	return false
}

// Rating maps note density to a 1-10 difficulty rating.
func Rating(notes []ScoredNote, bpm float64) int {
	if len(notes) == 0 {
		return 1
	}
	durationBeats := notes[len(notes)-1].Beat - notes[0].Beat
	if durationBeats <= 0 {
		return 1
	}
	durationSeconds := durationBeats * 60.0 / bpm
	nps := float64(len(notes)) / durationSeconds

	rating := math.Log2(math.Max(nps*1.5, 1.0))*2.5 + 1.0
	r := int(math.Round(rating))
	if r < 1 {
		r = 1
	}
	if r > 10 {
		r = 10
	}
	return r
}
