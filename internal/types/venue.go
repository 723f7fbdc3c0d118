// README: Venue candidate returned by search providers and ordered by the ranking engine.
package types

import "time"

// Venue is one provider result annotated with a travel duration for the caller's mode.
type Venue struct {
	// ID is the provider-assigned identity used for deduplication.
	ID       string   `json:"id"`
	Provider string   `json:"provider"`
	Name     string   `json:"name"`
	Address  string   `json:"address"`
	Tags     []string `json:"tags,omitempty"`
	Rating   float64  `json:"rating"`
	Reviews  int      `json:"reviews"`
	// PriceLevel follows the Google scale 0..4; -1 when the provider did not report one.
	PriceLevel int   `json:"price_level"`
	Location   Point `json:"location"`

	// TravelKnown is false when the provider could not compute a duration.
	TravelKnown  bool          `json:"travel_known"`
	Travel       time.Duration `json:"travel"`
	DistanceText string        `json:"distance_text,omitempty"`
	// StraightKm is the haversine distance from the resolved origin.
	StraightKm float64 `json:"straight_km,omitempty"`
}

// TravelMinutes rounds the travel duration up to whole minutes.
func (v Venue) TravelMinutes() int {
	if !v.TravelKnown {
		return -1
	}
	m := int(v.Travel / time.Minute)
	if v.Travel%time.Minute != 0 {
		m++
	}
	return m
}
