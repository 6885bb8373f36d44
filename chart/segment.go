package chart

import (
	"fmt"
	"math"
)

// endpointTolerance is the largest gap between adjacent segments that still
// counts as shared.
const endpointTolerance = 1e-3

// StartPoint returns the first position of the segment.
func (s *Segment) StartPoint() Point {
	switch s.Kind {
	case SegmentCatmullRom, SegmentBezier:
		if len(s.Points) > 0 {
			return s.Points[0]
		}
		return Point{}
	case SegmentArc:
		return s.arcPoint(s.StartAngle)
	default:
		return s.Start
	}
}

// EndPoint returns the last position of the segment.
func (s *Segment) EndPoint() Point {
	switch s.Kind {
	case SegmentCatmullRom, SegmentBezier:
		if len(s.Points) > 0 {
			return s.Points[len(s.Points)-1]
		}
		return Point{}
	case SegmentArc:
		return s.arcPoint(s.EndAngle)
	default:
		return s.End
	}
}

func (s *Segment) arcPoint(angle float64) Point {
	return Point{
		X: s.Center.X + s.Radius*math.Cos(angle),
		Y: s.Center.Y + s.Radius*math.Sin(angle),
	}
}

// BridgeGaps checks that adjacent path segments share an endpoint and inserts
// a straight bridging segment where they do not. It returns one warning per
// bridged gap; a gap never fails the load.
func (c *Chart) BridgeGaps() []string {
	var warnings []string
	var bridged []Segment
	for i, seg := range c.PathSegments {
		if i > 0 {
			prev := bridged[len(bridged)-1]
			from := prev.EndPoint()
			to := seg.StartPoint()
			if dist(from, to) > endpointTolerance {
				warnings = append(warnings, fmt.Sprintf(
					"path gap of %.2f units between segments %d and %d, bridging with a straight segment",
					dist(from, to), i-1, i))
				bridged = append(bridged, Segment{
					Kind:      SegmentLinear,
					Start:     from,
					End:       to,
					StartBeat: prev.EndBeat,
					EndBeat:   seg.StartBeat,
				})
			}
		}
		bridged = append(bridged, seg)
	}
	c.PathSegments = bridged
	return warnings
}

func dist(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
