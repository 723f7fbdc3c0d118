package maps

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"dinecall/internal/types"
)

// maxDestinations is the Distance Matrix per-request destination limit.
const maxDestinations = 25

// TravelEstimate is one origin→destination result. Known is false when the
// provider could not route the pair.
type TravelEstimate struct {
	Known    bool
	Duration time.Duration
	Distance string
}

// RouteService handles interactions with Google Maps Distance Matrix API.
type RouteService struct {
	client   *maps.Client
	language string
}

func NewRouteService(client *maps.Client, language string) *RouteService {
	return &RouteService{client: client, language: language}
}

// TravelTimes returns one estimate per destination, in destination order.
// Destinations are sent in batches of at most 25.
func (s *RouteService) TravelTimes(ctx context.Context, origin types.Point, destinations []types.Point, mode string) ([]TravelEstimate, error) {
	out := make([]TravelEstimate, 0, len(destinations))
	for start := 0; start < len(destinations); start += maxDestinations {
		end := min(start+maxDestinations, len(destinations))
		batch, err := s.travelBatch(ctx, origin, destinations[start:end], ModeFor(mode))
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (s *RouteService) travelBatch(ctx context.Context, origin types.Point, destinations []types.Point, mode maps.Mode) ([]TravelEstimate, error) {
	dests := make([]string, len(destinations))
	for i, d := range destinations {
		dests[i] = d.String()
	}
	r := &maps.DistanceMatrixRequest{
		Origins:      []string{origin.String()},
		Destinations: dests,
		Mode:         mode,
		Language:     s.language,
	}
	if mode == maps.TravelModeDriving || mode == maps.TravelModeTransit {
		r.DepartureTime = "now"
	}

	resp, err := s.client.DistanceMatrix(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("distance matrix api error: %w", err)
	}

	out := make([]TravelEstimate, len(destinations))
	if len(resp.Rows) == 0 {
		return out, nil
	}
	for i, el := range resp.Rows[0].Elements {
		if i >= len(out) || el == nil || el.Status != "OK" {
			continue
		}
		out[i] = TravelEstimate{Known: true, Duration: el.Duration, Distance: el.Distance.HumanReadable}
	}
	return out, nil
}

// ModeFor maps a slot travel mode string to the Distance Matrix mode.
func ModeFor(mode string) maps.Mode {
	switch mode {
	case "walking":
		return maps.TravelModeWalking
	case "cycling":
		return maps.TravelModeBicycling
	case "transit":
		return maps.TravelModeTransit
	}
	return maps.TravelModeDriving
}
