package route

import (
	"context"
	"fmt"
	"math"

	"github.com/GoSim-25-26J-441/pacing-core/pkg/utils"
	"github.com/tkrajina/gpxgo/gpx"
	"googlemaps.github.io/maps"
)

// ElevationClient is the subset of *maps.Client used to sample elevations.
type ElevationClient interface {
	Elevation(ctx context.Context, r *maps.ElevationRequest) ([]maps.ElevationResult, error)
}

// FromElevation samples elevations evenly along path and turns consecutive
// samples into segments.
func FromElevation(ctx context.Context, client ElevationClient, path []maps.LatLng, samples int, friction float64) ([]Segment, error) {
	if len(path) < 2 || samples < 2 {
		return nil, fmt.Errorf("%w: elevation lookup needs a path of 2+ points and 2+ samples", ErrInvalidSegment)
	}
	results, err := client.Elevation(ctx, &maps.ElevationRequest{Path: path, Samples: samples})
	if err != nil {
		return nil, fmt.Errorf("elevation lookup failed: %w", err)
	}

	segments := make([]Segment, 0, len(results))
	for i := 1; i < len(results); i++ {
		prev, cur := results[i-1], results[i]
		if prev.Location == nil || cur.Location == nil {
			return nil, fmt.Errorf("elevation result %d has no location", i)
		}
		a := gpx.Point{Latitude: prev.Location.Lat, Longitude: prev.Location.Lng}
		b := gpx.Point{Latitude: cur.Location.Lat, Longitude: cur.Location.Lng}
		horizontal := a.Distance2D(&b)
		if horizontal <= 0 {
			continue
		}
		dz := cur.Elevation - prev.Elevation
		segments = append(segments, Segment{
			LengthM:      math.Hypot(horizontal, dz),
			InclineDeg:   utils.RadToDeg(math.Atan2(dz, horizontal)),
			FrictionCoef: friction,
		})
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: elevation lookup returned no usable samples", ErrInvalidSegment)
	}
	return segments, nil
}

// NewMapsClient builds a Google Maps client. baseURL overrides the API host when non-empty.
func NewMapsClient(apiKey, baseURL string) (*maps.Client, error) {
	opts := []maps.ClientOption{maps.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, maps.WithBaseURL(baseURL))
	}
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return client, nil
}
