package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"dinecall/internal/types"
)

// GeocodeService resolves free-text locations to coordinates.
type GeocodeService struct {
	client *maps.Client
	region string
}

func NewGeocodeService(client *maps.Client, region string) *GeocodeService {
	return &GeocodeService{client: client, region: region}
}

// Resolve returns the first geocoder match and its formatted address.
func (s *GeocodeService) Resolve(ctx context.Context, address string) (types.Point, string, error) {
	results, err := s.client.Geocode(ctx, &maps.GeocodingRequest{
		Address: address,
		Region:  s.region,
	})
	if err != nil {
		return types.Point{}, "", fmt.Errorf("geocode api error: %w", err)
	}
	if len(results) == 0 {
		return types.Point{}, "", fmt.Errorf("%w: %q", ErrLocationNotFound, address)
	}
	loc := results[0].Geometry.Location
	return types.Point{Lat: loc.Lat, Lng: loc.Lng}, results[0].FormattedAddress, nil
}
