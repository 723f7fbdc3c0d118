package search

import (
	"context"
	"strings"
	"time"

	"dinecall/internal/types"
)

// StaticSearcher serves a fixed catalog, for local runs without a Maps key.
// Venues match when any tag equals the requested cuisine.
type StaticSearcher struct {
	catalog []types.Venue
}

func NewStaticSearcher(catalog []types.Venue) *StaticSearcher {
	if catalog == nil {
		catalog = DemoCatalog()
	}
	return &StaticSearcher{catalog: catalog}
}

func (s *StaticSearcher) Name() string { return "static" }

func (s *StaticSearcher) Search(ctx context.Context, req Request) ([]types.Venue, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify(err)
	}
	cuisine := strings.ToLower(req.Slots.Cuisine)
	var out []types.Venue
	for _, v := range s.catalog {
		for _, tag := range v.Tags {
			if strings.EqualFold(tag, cuisine) {
				out = append(out, v)
				break
			}
		}
	}
	return out, nil
}

func DemoCatalog() []types.Venue {
	mk := func(id, name string, rating float64, minutes int, tags ...string) types.Venue {
		return types.Venue{
			ID: id, Provider: "static", Name: name, Address: name + ", Main Street",
			Tags: tags, Rating: rating, PriceLevel: 1,
			TravelKnown: true, Travel: time.Duration(minutes) * time.Minute,
		}
	}
	return []types.Venue{
		mk("demo-1", "Luigi's Trattoria", 4.6, 8, "italian", "pizza"),
		mk("demo-2", "Nonna's Kitchen", 4.8, 12, "italian"),
		mk("demo-3", "Slice House", 4.2, 4, "pizza", "italian"),
		mk("demo-4", "Bangkok Garden", 4.5, 10, "thai"),
		mk("demo-5", "Siam Street", 4.3, 18, "thai"),
		mk("demo-6", "Sakura Sushi", 4.7, 14, "sushi", "japanese"),
		mk("demo-7", "Ramen Ya", 4.4, 6, "ramen", "japanese"),
		mk("demo-8", "Taqueria El Sol", 4.6, 9, "mexican", "tacos"),
		mk("demo-9", "Curry Leaf", 4.5, 16, "indian"),
	}
}
