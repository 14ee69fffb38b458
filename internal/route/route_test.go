package route

import (
	"math"
	"testing"

	"github.com/GoSim-25-26J-441/pacing-core/internal/physics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTotalDistanceRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		segments []Segment
		deltaS   float64
	}{
		{"single exact", []Segment{{LengthM: 100}}, 10},
		{"single partial", []Segment{{LengthM: 105}}, 10},
		{"mixed", []Segment{{LengthM: 37.5, InclineDeg: 2}, {LengthM: 12, InclineDeg: -1}, {LengthM: 250, FrictionCoef: 0.02}}, 10},
		{"step bigger than segment", []Segment{{LengthM: 3}, {LengthM: 4}}, 10},
		{"fractional step", []Segment{{LengthM: 1}}, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Build(tt.segments, tt.deltaS)
			require.NoError(t, err)

			want := 0.0
			for _, s := range tt.segments {
				want += s.LengthM
			}
			assert.InDelta(t, want, r.TotalDistance(), 1e-9)

			sum := 0.0
			for _, st := range r.Profile() {
				assert.LessOrEqual(t, st.Length, tt.deltaS+1e-9)
				assert.Greater(t, st.Length, 0.0)
				sum += st.Length
			}
			assert.InDelta(t, r.TotalDistance(), sum, tt.deltaS)
			assert.InDelta(t, r.TotalDistance(), r.StepAt(r.Len()-1).End, 1e-9)
		})
	}
}

func TestBuildProfileSteps(t *testing.T) {
	r, err := Build([]Segment{{LengthM: 25, InclineDeg: 3, FrictionCoef: 0.01}, {LengthM: 10, InclineDeg: 0, FrictionCoef: 0.02}}, 10)
	require.NoError(t, err)

	profile := r.Profile()
	require.Len(t, profile, 4)
	assert.Equal(t, []float64{10, 10, 5, 10}, []float64{profile[0].Length, profile[1].Length, profile[2].Length, profile[3].Length})
	assert.Equal(t, 25.0, profile[2].End)
	assert.Equal(t, 35.0, profile[3].End)
	assert.InDelta(t, 3*math.Pi/180, profile[0].Incline, 1e-12)
	assert.Equal(t, 0.02, profile[3].Friction)
	for i, st := range profile {
		assert.Equal(t, i, st.Index)
	}
}

func TestBuildConcreteFlatRoute(t *testing.T) {
	r, err := Build([]Segment{{LengthM: 100, InclineDeg: 0, FrictionCoef: 0.015}}, DefaultDeltaS)
	require.NoError(t, err)
	assert.Equal(t, 10, r.Len())
	assert.Equal(t, 100.0, r.TotalDistance())
}

func TestBuildRejectsInvalidSegments(t *testing.T) {
	tests := []struct {
		name     string
		segments []Segment
		deltaS   float64
		wantErr  error
	}{
		{"empty", nil, 10, ErrInvalidSegment},
		{"zero length", []Segment{{LengthM: 0}}, 10, ErrInvalidSegment},
		{"negative length", []Segment{{LengthM: 10}, {LengthM: -5}}, 10, ErrInvalidSegment},
		{"nan length", []Segment{{LengthM: math.NaN()}}, 10, ErrInvalidSegment},
		{"negative friction", []Segment{{LengthM: 10, FrictionCoef: -0.1}}, 10, ErrInvalidSegment},
		{"vertical", []Segment{{LengthM: 10, InclineDeg: 90}}, 10, ErrInvalidSegment},
		{"zero delta", []Segment{{LengthM: 10}}, 0, physics.ErrInvalidConfiguration},
		{"negative delta", []Segment{{LengthM: 10}}, -1, physics.ErrInvalidConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.segments, tt.deltaS)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestInclineAtBoundaries(t *testing.T) {
	r, err := Build([]Segment{
		{LengthM: 100, InclineDeg: 0, FrictionCoef: 0.01},
		{LengthM: 50, InclineDeg: 5, FrictionCoef: 0.02},
	}, 10)
	require.NoError(t, err)

	five := 5 * math.Pi / 180
	assert.Equal(t, 0.0, r.InclineAt(0))
	assert.Equal(t, 0.0, r.InclineAt(50))
	assert.Equal(t, 0.0, r.InclineAt(100), "boundary belongs to the segment ending there")
	assert.InDelta(t, five, r.InclineAt(100.5), 1e-12)
	assert.InDelta(t, five, r.InclineAt(150), 1e-12)

	// past the end clamps to the last segment
	assert.InDelta(t, five, r.InclineAt(151), 1e-12)
	assert.InDelta(t, five, r.InclineAt(1e9), 1e-12)
	assert.Equal(t, 0.02, r.FrictionAt(1e9))

	// before the start clamps to the first segment
	assert.Equal(t, 0.0, r.InclineAt(-10))
	assert.Equal(t, 0.01, r.FrictionAt(-10))
}

func TestMaxInclineAndResample(t *testing.T) {
	r, err := Build([]Segment{{LengthM: 10, InclineDeg: -8}, {LengthM: 10, InclineDeg: 6}, {LengthM: 10, InclineDeg: 2}}, 10)
	require.NoError(t, err)
	assert.InDelta(t, 6*math.Pi/180, r.MaxIncline(), 1e-12)
	assert.Equal(t, r.InclineAt(15), r.MaxIncline(), "same conversion as the profile")

	fine, err := r.Resample(2.5)
	require.NoError(t, err)
	assert.Equal(t, 12, fine.Len())
	assert.Equal(t, r.TotalDistance(), fine.TotalDistance())
	assert.Equal(t, 3, r.Len(), "original route untouched")
	assert.Equal(t, "Route(3 segments, 30.0 m, 3 steps of 10.0 m)", r.String())
}

func TestRouteIsImmutable(t *testing.T) {
	in := []Segment{{LengthM: 10, InclineDeg: 1}}
	r, err := Build(in, 5)
	require.NoError(t, err)
	in[0].InclineDeg = 30
	segs := r.Segments()
	segs[0].LengthM = 99
	prof := r.Profile()
	prof[0].Incline = 1

	assert.Equal(t, 1.0, r.Segments()[0].InclineDeg)
	assert.Equal(t, 10.0, r.Segments()[0].LengthM)
	assert.InDelta(t, math.Pi/180, r.StepAt(0).Incline, 1e-12)
}
