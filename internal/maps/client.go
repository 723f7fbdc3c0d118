package maps

import (
	"errors"
	"fmt"

	"googlemaps.github.io/maps"
)

// ErrLocationNotFound is returned when the geocoder has no match for an address.
var ErrLocationNotFound = errors.New("location not found")

// NewClient creates one shared Google Maps client for all services.
// Extra options (e.g. maps.WithBaseURL in tests) are passed through.
func NewClient(apiKey string, opts ...maps.ClientOption) (*maps.Client, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return client, nil
}
