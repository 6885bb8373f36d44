// Package chart defines the persisted chart representation consumed by the
// game runtime: timing points, the generated path, note events and visual
// events, with YAML text and msgpack binary encodings of the same schema.
package chart

import (
	"errors"
	"fmt"
)

// ErrInvalidChart is returned by Validate for structurally broken charts.
var ErrInvalidChart = errors.New("invalid chart")

// Metadata describes a song bundle; it is persisted alongside the charts.
type Metadata struct {
	Title             string   `yaml:"title" msgpack:"title"`
	Artist            string   `yaml:"artist" msgpack:"artist"`
	Charter           string   `yaml:"charter" msgpack:"charter"`
	AudioFile         string   `yaml:"audio_file" msgpack:"audio_file"`
	PreviewStartMS    int      `yaml:"preview_start_ms" msgpack:"preview_start_ms"`
	PreviewDurationMS int      `yaml:"preview_duration_ms" msgpack:"preview_duration_ms"`
	Source            string   `yaml:"source,omitempty" msgpack:"source"`
	Difficulties      []string `yaml:"difficulties,omitempty" msgpack:"difficulties"`
}

// TimingPoint anchors a beat position to a tempo; a chart carries one per
// stable-tempo segment.
type TimingPoint struct {
	Beat          float64 `yaml:"beat" msgpack:"beat"`
	BPM           float64 `yaml:"bpm" msgpack:"bpm"`
	TimeSignature [2]int  `yaml:"time_signature" msgpack:"time_signature"`
}

// Point is one 2-D position on the play field.
type Point struct {
	X float64 `yaml:"x" msgpack:"x"`
	Y float64 `yaml:"y" msgpack:"y"`
}

// SegmentKind is the closed set of path segment curve kinds.
type SegmentKind string

const (
	SegmentCatmullRom SegmentKind = "catmull_rom" // interpolating spline through Points
	SegmentBezier     SegmentKind = "bezier"      // explicit-control-point cubic
	SegmentArc        SegmentKind = "arc"         // circular arc
	SegmentLinear     SegmentKind = "linear"      // straight line
)

// Segment is one path segment. Kind decides which fields are meaningful:
// Points for catmull_rom and bezier, Start/End for linear, Center/Radius and
// the angles (radians) for arc.
type Segment struct {
	Kind SegmentKind `yaml:"kind" msgpack:"kind"`

	Points []Point `yaml:"points,omitempty" msgpack:"points"`

	Start Point `yaml:"start,omitempty" msgpack:"start"`
	End   Point `yaml:"end,omitempty" msgpack:"end"`

	Center     Point   `yaml:"center,omitempty" msgpack:"center"`
	Radius     float64 `yaml:"radius,omitempty" msgpack:"radius"`
	StartAngle float64 `yaml:"start_angle,omitempty" msgpack:"start_angle"`
	EndAngle   float64 `yaml:"end_angle,omitempty" msgpack:"end_angle"`

	StartBeat float64 `yaml:"start_beat" msgpack:"start_beat"`
	EndBeat   float64 `yaml:"end_beat" msgpack:"end_beat"`
}

// NoteKind is the closed set of note kinds.
type NoteKind string

const (
	NoteTap          NoteKind = "tap"
	NoteHold         NoteKind = "hold"
	NoteSlide        NoteKind = "slide"
	NoteSlideHold    NoteKind = "slide_hold"
	NoteScratch      NoteKind = "scratch"
	NoteBeat         NoteKind = "beat"
	NoteCritical     NoteKind = "critical"
	NoteCriticalHold NoteKind = "critical_hold"
	NoteDualSlide    NoteKind = "dual_slide"
	NoteAdLib        NoteKind = "ad_lib"
)

// Direction is one of the eight slide directions.
type Direction string

const (
	DirN  Direction = "n"
	DirNE Direction = "ne"
	DirE  Direction = "e"
	DirSE Direction = "se"
	DirS  Direction = "s"
	DirSW Direction = "sw"
	DirW  Direction = "w"
	DirNW Direction = "nw"
)

// Directions lists all slide directions in clockwise order.
var Directions = [8]Direction{DirN, DirNE, DirE, DirSE, DirS, DirSW, DirW, DirNW}

// Note is one playable event. DurationBeats applies to the hold kinds,
// Direction to slide and slide_hold, Left/Right to dual_slide.
type Note struct {
	Beat          float64   `yaml:"beat" msgpack:"beat"`
	Kind          NoteKind  `yaml:"kind" msgpack:"kind"`
	DurationBeats float64   `yaml:"duration_beats,omitempty" msgpack:"duration_beats"`
	Direction     Direction `yaml:"direction,omitempty" msgpack:"direction"`
	Left          Direction `yaml:"left,omitempty" msgpack:"left"`
	Right         Direction `yaml:"right,omitempty" msgpack:"right"`
}

// EventKind is the closed set of visual event kinds.
type EventKind string

const (
	EventCameraZoom      EventKind = "camera_zoom"
	EventCameraPan       EventKind = "camera_pan"
	EventCameraRotate    EventKind = "camera_rotate"
	EventColorShift      EventKind = "color_shift"
	EventPathGlow        EventKind = "path_glow"
	EventBackgroundPulse EventKind = "background_pulse"
	EventSpeedChange     EventKind = "speed_change"
)

// Event is one visual event.
type Event struct {
	Beat          float64   `yaml:"beat" msgpack:"beat"`
	Kind          EventKind `yaml:"kind" msgpack:"kind"`
	Scale         float64   `yaml:"scale,omitempty" msgpack:"scale"`
	Offset        Point     `yaml:"offset,omitempty" msgpack:"offset"`
	AngleDegrees  float64   `yaml:"angle_degrees,omitempty" msgpack:"angle_degrees"`
	Hue           float64   `yaml:"hue,omitempty" msgpack:"hue"`
	Intensity     float64   `yaml:"intensity,omitempty" msgpack:"intensity"`
	Multiplier    float64   `yaml:"multiplier,omitempty" msgpack:"multiplier"`
	DurationBeats float64   `yaml:"duration_beats,omitempty" msgpack:"duration_beats"`
}

// Chart is the terminal aggregate of one generated difficulty. Immutable once
// assembled.
type Chart struct {
	Difficulty       string        `yaml:"difficulty" msgpack:"difficulty"`
	DifficultyRating int           `yaml:"difficulty_rating" msgpack:"difficulty_rating"`
	TimingPoints     []TimingPoint `yaml:"timing_points" msgpack:"timing_points"`
	PathSegments     []Segment     `yaml:"path_segments" msgpack:"path_segments"`
	Notes            []Note        `yaml:"notes" msgpack:"notes"`
	Events           []Event       `yaml:"events,omitempty" msgpack:"events"`
	TravelBeats      float64       `yaml:"travel_beats" msgpack:"travel_beats"`
	LookAheadBeats   float64       `yaml:"look_ahead_beats" msgpack:"look_ahead_beats"`
}

// Validate checks the structural invariants: at least one timing point,
// strictly increasing timing point beats, positive BPM, time-ordered notes.
func (c *Chart) Validate() error {
	if len(c.TimingPoints) == 0 {
		return fmt.Errorf("%w: no timing points", ErrInvalidChart)
	}
	for i, tp := range c.TimingPoints {
		if tp.BPM <= 0 {
			return fmt.Errorf("%w: timing point %d has BPM %g", ErrInvalidChart, i, tp.BPM)
		}
		if i > 0 && tp.Beat <= c.TimingPoints[i-1].Beat {
			return fmt.Errorf("%w: timing point beats not increasing at %d", ErrInvalidChart, i)
		}
	}
	for i := 1; i < len(c.Notes); i++ {
		if c.Notes[i].Beat < c.Notes[i-1].Beat {
			return fmt.Errorf("%w: notes out of order at %d", ErrInvalidChart, i)
		}
	}
	for i, seg := range c.PathSegments {
		switch seg.Kind {
		case SegmentCatmullRom, SegmentBezier:
			if len(seg.Points) < 2 {
				return fmt.Errorf("%w: segment %d (%s) needs points", ErrInvalidChart, i, seg.Kind)
			}
		case SegmentArc:
			if seg.Radius <= 0 {
				return fmt.Errorf("%w: segment %d arc radius %g", ErrInvalidChart, i, seg.Radius)
			}
		case SegmentLinear:
		default:
			return fmt.Errorf("%w: segment %d has unknown kind %q", ErrInvalidChart, i, seg.Kind)
		}
	}
	return nil
}
