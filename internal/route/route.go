// Package route describes a course as an ordered list of segments and its
// fixed-increment resampled profile.
package route

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/GoSim-25-26J-441/pacing-core/internal/physics"
	"github.com/GoSim-25-26J-441/pacing-core/pkg/utils"
	"github.com/samber/lo"
)

// DefaultDeltaS is the default resampling increment in meters.
const DefaultDeltaS = 10.0

// ErrInvalidSegment is returned for segments with non-positive length or negative friction.
var ErrInvalidSegment = errors.New("invalid segment")

// Segment is a straight stretch with fixed incline (degrees) and friction.
type Segment struct {
	LengthM      float64
	InclineDeg   float64
	FrictionCoef float64
}

// Step is one entry of the resampled road profile. Incline is in radians.
type Step struct {
	Index    int
	Start    float64
	End      float64
	Length   float64
	Incline  float64
	Friction float64
}

// Route is immutable once built.
type Route struct {
	segments []Segment
	bounds   []float64 // cumulative end distance of each segment
	profile  []Step
	deltaS   float64
	total    float64
}

// Build validates segments and resamples them at deltaS.
func Build(segments []Segment, deltaS float64) (*Route, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: route needs at least one segment", ErrInvalidSegment)
	}
	if !(deltaS > 0) || math.IsInf(deltaS, 0) {
		return nil, fmt.Errorf("%w: delta_s must be positive, got %v", physics.ErrInvalidConfiguration, deltaS)
	}
	for i, s := range segments {
		if !(s.LengthM > 0) || math.IsInf(s.LengthM, 0) {
			return nil, fmt.Errorf("%w: segment %d length must be positive, got %v", ErrInvalidSegment, i, s.LengthM)
		}
		if !(s.FrictionCoef >= 0) {
			return nil, fmt.Errorf("%w: segment %d friction cannot be negative, got %v", ErrInvalidSegment, i, s.FrictionCoef)
		}
		if math.IsNaN(s.InclineDeg) || math.Abs(s.InclineDeg) >= 90 {
			return nil, fmt.Errorf("%w: segment %d incline must be within (-90, 90) degrees, got %v", ErrInvalidSegment, i, s.InclineDeg)
		}
	}

	r := &Route{
		segments: append([]Segment(nil), segments...),
		bounds:   make([]float64, len(segments)),
		deltaS:   deltaS,
	}

	cum := 0.0
	for i, s := range r.segments {
		incline := utils.DegToRad(s.InclineDeg)
		start := cum
		end := cum + s.LengthM
		// tolerance keeps floating noise from emitting sliver steps
		for k := 0; end-(start+float64(k)*deltaS) > 1e-9; k++ {
			pos := start + float64(k)*deltaS
			stepEnd := math.Min(pos+deltaS, end)
			r.profile = append(r.profile, Step{
				Index:    len(r.profile),
				Start:    pos,
				End:      stepEnd,
				Length:   stepEnd - pos,
				Incline:  incline,
				Friction: s.FrictionCoef,
			})
		}
		cum = end
		r.bounds[i] = cum
	}
	r.total = cum
	return r, nil
}

// Resample returns a new route over the same segments with a different increment.
func (r *Route) Resample(deltaS float64) (*Route, error) {
	return Build(r.segments, deltaS)
}

// Segments returns a copy of the input segments.
func (r *Route) Segments() []Segment {
	return append([]Segment(nil), r.segments...)
}

// Profile returns a copy of the resampled profile.
func (r *Route) Profile() []Step {
	return append([]Step(nil), r.profile...)
}

// Len is the number of profile steps.
func (r *Route) Len() int { return len(r.profile) }

// StepAt returns profile step i.
func (r *Route) StepAt(i int) Step { return r.profile[i] }

// DeltaS is the resampling increment.
func (r *Route) DeltaS() float64 { return r.deltaS }

// TotalDistance is the sum of segment lengths.
func (r *Route) TotalDistance() float64 { return r.total }

// MaxIncline returns the steepest incline in radians.
func (r *Route) MaxIncline() float64 {
	steepest := lo.MaxBy(r.segments, func(a, b Segment) bool { return a.InclineDeg > b.InclineDeg })
	return utils.DegToRad(steepest.InclineDeg)
}

// segmentAt finds the segment containing distance. Distances past the end
// clamp to the last segment, negative distances to the first.
func (r *Route) segmentAt(distance float64) Segment {
	if distance <= 0 {
		return r.segments[0]
	}
	i := sort.SearchFloat64s(r.bounds, distance)
	if i >= len(r.segments) {
		i = len(r.segments) - 1
	}
	return r.segments[i]
}

// InclineAt returns the incline in radians of the segment containing distance.
// A segment boundary belongs to the segment that ends there. Beyond
// TotalDistance the last segment's incline is returned.
func (r *Route) InclineAt(distance float64) float64 {
	return utils.DegToRad(r.segmentAt(distance).InclineDeg)
}

// FrictionAt returns the friction coefficient at distance, clamped like InclineAt.
func (r *Route) FrictionAt(distance float64) float64 {
	return r.segmentAt(distance).FrictionCoef
}

func (r *Route) String() string {
	return fmt.Sprintf("Route(%d segments, %.1f m, %d steps of %.1f m)", len(r.segments), r.total, len(r.profile), r.deltaS)
}
