package chart

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleChart() *Chart {
	return &Chart{
		Difficulty:       "hard",
		DifficultyRating: 6,
		TimingPoints: []TimingPoint{
			{Beat: 0, BPM: 120, TimeSignature: [2]int{4, 4}},
			{Beat: 64, BPM: 140, TimeSignature: [2]int{4, 4}},
		},
		PathSegments: []Segment{
			{
				Kind:      SegmentCatmullRom,
				Points:    []Point{{X: -600, Y: 0}, {X: -200, Y: 80}, {X: 200, Y: -40}, {X: 600, Y: 0}},
				StartBeat: 0,
				EndBeat:   128,
			},
		},
		Notes: []Note{
			{Beat: 0, Kind: NoteTap},
			{Beat: 1, Kind: NoteHold, DurationBeats: 1.5},
			{Beat: 2.5, Kind: NoteSlide, Direction: DirNE},
			{Beat: 4, Kind: NoteDualSlide, Left: DirW, Right: DirE},
			{Beat: 6, Kind: NoteCritical},
		},
		Events: []Event{
			{Beat: 0, Kind: EventCameraZoom, Scale: 1.2, DurationBeats: 4},
			{Beat: 8, Kind: EventColorShift, Hue: 180},
		},
		TravelBeats:    3,
		LookAheadBeats: 3,
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	in := sampleChart()
	data, err := EncodeYAML(in)
	require.NoError(t, err)

	out, err := DecodeYAML(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestBinaryRoundTrip(t *testing.T) {
	in := sampleChart()
	data, err := EncodeBinary(in)
	require.NoError(t, err)

	out, err := DecodeBinary(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeYAMLToleratesComments(t *testing.T) {
	doc := `
# generated chart, hand-tuned afterwards
difficulty: easy
difficulty_rating: 2
travel_beats: 4
look_ahead_beats: 4
timing_points:
  - beat: 0
    bpm: 120 # detected
    time_signature: [4, 4]
path_segments:
  - kind: linear
    start: {x: -600, y: 0}
    end: {x: 600, y: 0}
    start_beat: 0
    end_beat: 32
notes:
  - beat: 0
    kind: tap
  - beat: 2
    kind: hold
    duration_beats: 1 # stretched by hand
`
	c, err := DecodeYAML([]byte(doc))
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	assert.Equal(t, "easy", c.Difficulty)
	assert.Len(t, c.Notes, 2)
	assert.Equal(t, NoteHold, c.Notes[1].Kind)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := DecodeYAML([]byte("{{not yaml"))
	assert.True(t, errors.Is(err, ErrInvalidChart))

	_, err = DecodeBinary([]byte{0xc1, 0xff, 0x00})
	assert.True(t, errors.Is(err, ErrInvalidChart))
}

func TestWriteLoadFile(t *testing.T) {
	dir := t.TempDir()
	in := sampleChart()

	for _, format := range []Format{FormatYAML, FormatBinary} {
		path := filepath.Join(dir, "hard."+format.Ext())
		require.NoError(t, WriteFile(path, in, format))

		out, warnings, err := LoadFile(path)
		require.NoError(t, err, "%s", format)
		assert.Empty(t, warnings)
		assert.Equal(t, in, out)
	}
}

func TestValidateRejectsBrokenCharts(t *testing.T) {
	base := sampleChart()
	require.NoError(t, base.Validate())

	noTiming := sampleChart()
	noTiming.TimingPoints = nil
	assert.True(t, errors.Is(noTiming.Validate(), ErrInvalidChart))

	badBPM := sampleChart()
	badBPM.TimingPoints[0].BPM = 0
	assert.True(t, errors.Is(badBPM.Validate(), ErrInvalidChart))

	unordered := sampleChart()
	unordered.Notes[1].Beat = -1
	assert.True(t, errors.Is(unordered.Validate(), ErrInvalidChart))

	emptySpline := sampleChart()
	emptySpline.PathSegments[0].Points = emptySpline.PathSegments[0].Points[:1]
	assert.True(t, errors.Is(emptySpline.Validate(), ErrInvalidChart))

	badKind := sampleChart()
	badKind.PathSegments[0].Kind = "helix"
	assert.True(t, errors.Is(badKind.Validate(), ErrInvalidChart))
}

func TestBridgeGapsInsertsLinear(t *testing.T) {
	c := &Chart{
		TimingPoints: []TimingPoint{{Beat: 0, BPM: 120, TimeSignature: [2]int{4, 4}}},
		PathSegments: []Segment{
			{Kind: SegmentLinear, Start: Point{X: 0, Y: 0}, End: Point{X: 100, Y: 0}, StartBeat: 0, EndBeat: 8},
			{Kind: SegmentLinear, Start: Point{X: 150, Y: 40}, End: Point{X: 300, Y: 0}, StartBeat: 10, EndBeat: 16},
		},
	}
	warnings := c.BridgeGaps()
	require.Len(t, warnings, 1)
	require.Len(t, c.PathSegments, 3)

	bridge := c.PathSegments[1]
	assert.Equal(t, SegmentLinear, bridge.Kind)
	assert.Equal(t, Point{X: 100, Y: 0}, bridge.Start)
	assert.Equal(t, Point{X: 150, Y: 40}, bridge.End)
	assert.Equal(t, 8.0, bridge.StartBeat)
	assert.Equal(t, 10.0, bridge.EndBeat)
}

func TestBridgeGapsLeavesContinuousPathAlone(t *testing.T) {
	c := &Chart{
		PathSegments: []Segment{
			{Kind: SegmentLinear, Start: Point{X: 0, Y: 0}, End: Point{X: 100, Y: 0}},
			{Kind: SegmentLinear, Start: Point{X: 100, Y: 0}, End: Point{X: 200, Y: 0}},
		},
	}
	warnings := c.BridgeGaps()
	assert.Empty(t, warnings)
	assert.Len(t, c.PathSegments, 2)
}

func TestSegmentEndpoints(t *testing.T) {
	arc := Segment{Kind: SegmentArc, Center: Point{X: 10, Y: 0}, Radius: 5, StartAngle: 0, EndAngle: math.Pi / 2}
	start := arc.StartPoint()
	end := arc.EndPoint()
	assert.InDelta(t, 15.0, start.X, 1e-9)
	assert.InDelta(t, 0.0, start.Y, 1e-9)
	assert.InDelta(t, 10.0, end.X, 1e-9)
	assert.InDelta(t, 5.0, end.Y, 1e-9)

	spline := Segment{Kind: SegmentCatmullRom, Points: []Point{{X: 1, Y: 2}, {X: 3, Y: 4}}}
	assert.Equal(t, Point{X: 1, Y: 2}, spline.StartPoint())
	assert.Equal(t, Point{X: 3, Y: 4}, spline.EndPoint())
}

func TestSplineInterpolatesControlPoints(t *testing.T) {
	points := []Point{{X: 0, Y: 0}, {X: 100, Y: 50}, {X: 200, Y: -30}, {X: 300, Y: 0}}
	s, err := NewSpline(points, 32)
	require.NoError(t, err)

	for i, p := range points {
		got := s.Position(float64(i))
		assert.InDelta(t, p.X, got.X, 1e-9, "point %d x", i)
		assert.InDelta(t, p.Y, got.Y, 1e-9, "point %d y", i)
	}
}

func TestSplineUniformProgress(t *testing.T) {
	// Uneven control spacing: arc-length parameterization must still advance
	// roughly evenly in distance.
	points := []Point{{X: 0, Y: 0}, {X: 50, Y: 40}, {X: 250, Y: -40}, {X: 300, Y: 0}}
	s, err := NewSpline(points, 64)
	require.NoError(t, err)

	prev := s.PositionAtProgress(0)
	step := 0.05
	var distances []float64
	for p := step; p <= 1.0+1e-9; p += step {
		pos := s.PositionAtProgress(p)
		distances = append(distances, math.Hypot(pos.X-prev.X, pos.Y-prev.Y))
		prev = pos
	}
	mean := 0.0
	for _, d := range distances {
		mean += d
	}
	mean /= float64(len(distances))
	for i, d := range distances {
		assert.InDelta(t, mean, d, mean*0.35, "step %d uneven", i)
	}

	start := s.PositionAtProgress(0)
	end := s.PositionAtProgress(1)
	assert.Equal(t, points[0], start)
	assert.Equal(t, points[len(points)-1], end)
}

func TestSplineRejectsTooFewPoints(t *testing.T) {
	_, err := NewSpline([]Point{{X: 1, Y: 1}}, 16)
	assert.True(t, errors.Is(err, ErrInvalidChart))
}

func TestMetadataRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.yaml")
	in := &Metadata{
		Title:        "Test Track",
		Artist:       "Nobody",
		Charter:      "chartgen",
		AudioFile:    "test.wav",
		Difficulties: []string{"easy", "hard"},
	}
	require.NoError(t, WriteMetadata(path, in))
	out, err := LoadMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
