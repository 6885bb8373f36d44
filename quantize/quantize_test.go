package quantize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funktrack/chartgen/beat"
	"github.com/funktrack/chartgen/onset"
	"github.com/funktrack/chartgen/spectral"
)

func TestSnapNearestSlot(t *testing.T) {
	grid := beat.Uniform(10.0, 120) // 0.5 s per beat
	events := []onset.Event{
		{Time: 0.49, Strength: 0.8},  // just before beat 1
		{Time: 1.26, Strength: 0.6},  // between beats 2 and 3, nearer 2.5
		{Time: 2.005, Strength: 0.9}, // just after beat 4
	}
	notes, err := Snap(events, grid, 4)
	require.NoError(t, err)
	require.Len(t, notes, 3)
	assert.Equal(t, 1.0, notes[0].Beat)
	assert.Equal(t, 2.5, notes[1].Beat)
	assert.Equal(t, 4.0, notes[2].Beat)
}

func TestSnapCollisionKeepsStronger(t *testing.T) {
	grid := beat.Uniform(10.0, 120)
	events := []onset.Event{
		{Time: 0.49, Strength: 0.3},
		{Time: 0.51, Strength: 0.7},
	}
	notes, err := Snap(events, grid, 1)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, 0.7, notes[0].Strength)
}

func TestSnapIdempotent(t *testing.T) {
	grid := beat.Uniform(20.0, 120)
	events := []onset.Event{
		{Time: 0.5, Strength: 0.5},
		{Time: 1.125, Strength: 0.6},
		{Time: 3.0, Strength: 0.7},
	}
	first, err := Snap(events, grid, 8)
	require.NoError(t, err)

	// Feed the snapped notes back as onsets at their grid times.
	again := make([]onset.Event, len(first))
	for i, n := range first {
		again[i] = onset.Event{Time: grid.BeatTime(n.Beat), Strength: n.Strength}
	}
	second, err := Snap(again, grid, 8)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Beat, second[i].Beat, "note %d", i)
	}
}

func TestSnapDropsPrerollOnsets(t *testing.T) {
	grid := beat.Uniform(10.0, 120)
	events := []onset.Event{
		{Time: -0.4, Strength: 0.9}, // well before beat zero
		{Time: 0.0, Strength: 0.5},
	}
	notes, err := Snap(events, grid, 4)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, 0.0, notes[0].Beat)
}

func TestSnapTimeOrdered(t *testing.T) {
	grid := beat.Uniform(10.0, 120)
	events := []onset.Event{
		{Time: 3.0, Strength: 0.5},
		{Time: 1.0, Strength: 0.5},
		{Time: 2.0, Strength: 0.5},
	}
	notes, err := Snap(events, grid, 4)
	require.NoError(t, err)
	for i := 1; i < len(notes); i++ {
		assert.Less(t, notes[i-1].Beat, notes[i].Beat)
	}
}

func TestSnapInvalidDivision(t *testing.T) {
	grid := beat.Uniform(10.0, 120)
	for _, division := range []int{0, 3, 5, 32, -4} {
		_, err := Snap(nil, grid, division)
		assert.True(t, errors.Is(err, spectral.ErrInvalidParameter), "division %d", division)
	}
}

func TestSnapCoarseDivisionMerges(t *testing.T) {
	grid := beat.Uniform(10.0, 120)
	// Two onsets an eighth apart collapse onto the same whole-beat slot.
	events := []onset.Event{
		{Time: 1.0, Strength: 0.4},
		{Time: 1.0625, Strength: 0.8},
	}
	notes, err := Snap(events, grid, 1)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, 2.0, notes[0].Beat)
	assert.Equal(t, 0.8, notes[0].Strength)
}
