package search

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"dinecall/internal/maps"
	"dinecall/internal/metrics"
	"dinecall/internal/types"
)

type Geocoder interface {
	Resolve(ctx context.Context, address string) (types.Point, string, error)
}

type PlaceFinder interface {
	SearchRestaurants(ctx context.Context, q maps.PlaceQuery) ([]types.Venue, error)
}

type Router interface {
	TravelTimes(ctx context.Context, origin types.Point, destinations []types.Point, mode string) ([]maps.TravelEstimate, error)
}

// MapsSearcher resolves the location, runs a Places text search and annotates
// every candidate with a Distance Matrix duration for the caller's mode.
type MapsSearcher struct {
	geo    Geocoder
	places PlaceFinder
	routes Router
	log    *zap.Logger
}

func NewMapsSearcher(geo Geocoder, places PlaceFinder, routes Router, log *zap.Logger) *MapsSearcher {
	return &MapsSearcher{geo: geo, places: places, routes: routes, log: log}
}

func (s *MapsSearcher) Name() string { return maps.ProviderName }

func (s *MapsSearcher) Search(ctx context.Context, req Request) ([]types.Venue, error) {
	start := time.Now()
	defer func() { metrics.SearchDuration.Observe(time.Since(start).Seconds()) }()

	set := req.Slots
	origin, _, err := s.geo.Resolve(ctx, set.Location)
	if err != nil {
		if errors.Is(err, maps.ErrLocationNotFound) {
			return nil, &LocationError{Location: set.Location, Err: err}
		}
		return nil, classify(err)
	}

	minPrice, maxPrice := PriceRange(set.Budget)
	venues, err := s.places.SearchRestaurants(ctx, maps.PlaceQuery{
		Cuisine:      set.Cuisine,
		Origin:       origin,
		RadiusMeters: BiasRadius(set.Mode, set.Minutes),
		MinPrice:     minPrice,
		MaxPrice:     maxPrice,
		OpenNow:      set.OpenNow != nil && *set.OpenNow,
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(venues) == 0 {
		return venues, nil
	}

	dests := make([]types.Point, len(venues))
	for i := range venues {
		dests[i] = venues[i].Location
		venues[i].StraightKm = maps.HaversineKm(origin, venues[i].Location)
	}

	estimates, err := s.routes.TravelTimes(ctx, origin, dests, string(set.Mode))
	if err != nil {
		if ctx.Err() != nil {
			return nil, classify(err)
		}
		// Candidates stay, marked duration-unknown; ranking drops them.
		s.log.Warn("travel times unavailable", zap.Int("candidates", len(venues)), zap.Error(err))
		return venues, nil
	}
	for i := range venues {
		if i < len(estimates) && estimates[i].Known {
			venues[i].TravelKnown = true
			venues[i].Travel = estimates[i].Duration
			venues[i].DistanceText = estimates[i].Distance
		}
	}
	return venues, nil
}
