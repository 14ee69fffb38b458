package route

import (
	"fmt"
	"math"
	"os"

	"github.com/GoSim-25-26J-441/pacing-core/pkg/utils"
	"github.com/tkrajina/gpxgo/gpx"
)

// FromGPX converts the track points of a GPX document into segments, one per
// pair of consecutive points. Route points are used when there are no tracks.
// Points without elevation are treated as level with their predecessor.
func FromGPX(data []byte, friction float64) ([]Segment, error) {
	doc, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse gpx: %w", err)
	}

	var points []gpx.GPXPoint
	for _, track := range doc.Tracks {
		for _, seg := range track.Segments {
			points = append(points, seg.Points...)
		}
	}
	if len(points) == 0 {
		for _, rte := range doc.Routes {
			points = append(points, rte.Points...)
		}
	}
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: gpx needs at least 2 points, got %d", ErrInvalidSegment, len(points))
	}

	segments := make([]Segment, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		prev, cur := &points[i-1], &points[i]
		horizontal := prev.Distance2D(cur)
		if horizontal <= 0 {
			continue
		}
		dz := 0.0
		if prev.Elevation.NotNull() && cur.Elevation.NotNull() {
			dz = cur.Elevation.Value() - prev.Elevation.Value()
		}
		segments = append(segments, Segment{
			LengthM:      math.Hypot(horizontal, dz),
			InclineDeg:   utils.RadToDeg(math.Atan2(dz, horizontal)),
			FrictionCoef: friction,
		})
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: gpx points are all coincident", ErrInvalidSegment)
	}
	return segments, nil
}

// LoadGPXFile reads a GPX file and converts it with FromGPX.
func LoadGPXFile(path string, friction float64) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read gpx file %s: %w", path, err)
	}
	return FromGPX(data, friction)
}
