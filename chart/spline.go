package chart

import (
	"fmt"
	"sort"
)

// Spline evaluates a Catmull-Rom curve through a segment's control points,
// with an arc-length lookup table so positions can be sampled at uniform
// speed. Raw spline parameters bunch up in high-curvature regions; the table
// maps distance along the curve back to the parameter by binary search and
// linear interpolation.
type Spline struct {
	points  []Point
	lut     []lutEntry
	total   float64
	numSegs int
}

type lutEntry struct {
	dist float64
	t    float64
}

// NewSpline builds a spline through points, sampling samplesPerSegment
// positions per control-point span for the arc-length table. At least two
// points are required; endpoints are clamped so the curve spans every point.
func NewSpline(points []Point, samplesPerSegment int) (*Spline, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: spline needs at least 2 points, got %d", ErrInvalidChart, len(points))
	}
	if samplesPerSegment < 1 {
		samplesPerSegment = 16
	}
	s := &Spline{points: points, numSegs: len(points) - 1}

	totalSamples := s.numSegs * samplesPerSegment
	s.lut = make([]lutEntry, 0, totalSamples+1)
	s.lut = append(s.lut, lutEntry{0, 0})

	prev := s.Position(0)
	var accumulated float64
	for i := 1; i <= totalSamples; i++ {
		t := float64(i) / float64(totalSamples) * float64(s.numSegs)
		pos := s.Position(t)
		accumulated += dist(prev, pos)
		s.lut = append(s.lut, lutEntry{accumulated, t})
		prev = pos
	}
	s.total = accumulated
	return s, nil
}

// Length returns the total arc length of the curve.
func (s *Spline) Length() float64 { return s.total }

// Position evaluates the curve at parameter t in [0, segments]. Neighbor
// points are clamped at the ends so the curve interpolates every control
// point.
func (s *Spline) Position(t float64) Point {
	if t <= 0 {
		return s.points[0]
	}
	if t >= float64(s.numSegs) {
		return s.points[len(s.points)-1]
	}
	seg := int(t)
	u := t - float64(seg)

	p0 := s.points[clampIdx(seg-1, len(s.points))]
	p1 := s.points[seg]
	p2 := s.points[seg+1]
	p3 := s.points[clampIdx(seg+2, len(s.points))]

	return Point{
		X: catmullRom(p0.X, p1.X, p2.X, p3.X, u),
		Y: catmullRom(p0.Y, p1.Y, p2.Y, p3.Y, u),
	}
}

// PositionAtProgress samples the curve at uniform speed: progress 0 is the
// start, 1 the end, measured by arc length.
func (s *Spline) PositionAtProgress(progress float64) Point {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	return s.Position(s.distanceToParameter(progress * s.total))
}

func (s *Spline) distanceToParameter(distance float64) float64 {
	idx := sort.Search(len(s.lut), func(i int) bool { return s.lut[i].dist >= distance })
	if idx <= 0 {
		return s.lut[0].t
	}
	if idx >= len(s.lut) {
		return s.lut[len(s.lut)-1].t
	}
	lo, hi := s.lut[idx-1], s.lut[idx]
	if hi.dist-lo.dist < 1e-12 {
		return lo.t
	}
	frac := (distance - lo.dist) / (hi.dist - lo.dist)
	return lo.t + frac*(hi.t-lo.t)
}

func clampIdx(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}

// catmullRom evaluates the uniform Catmull-Rom basis for one component.
func catmullRom(p0, p1, p2, p3, u float64) float64 {
	u2 := u * u
	u3 := u2 * u
	return 0.5 * ((2 * p1) +
		(-p0+p2)*u +
		(2*p0-5*p1+4*p2-p3)*u2 +
		(-p0+3*p1-3*p2+p3)*u3)
}
