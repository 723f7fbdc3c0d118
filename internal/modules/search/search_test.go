package search

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dinecall/internal/maps"
	"dinecall/internal/modules/slots"
	"dinecall/internal/types"
)

func completeSlots() slots.Set {
	return slots.Set{
		Cuisine:  "italian",
		Location: "downtown",
		Budget:   slots.BudgetValue{Level: slots.BudgetLow},
		Mode:     slots.ModeWalking,
		Minutes:  15,
	}
}

type fakeGeo struct {
	pt  types.Point
	err error
}

func (f fakeGeo) Resolve(context.Context, string) (types.Point, string, error) {
	return f.pt, "Downtown", f.err
}

type fakePlaces struct {
	venues []types.Venue
	err    error
	got    maps.PlaceQuery
}

func (f *fakePlaces) SearchRestaurants(_ context.Context, q maps.PlaceQuery) ([]types.Venue, error) {
	f.got = q
	if f.err != nil {
		return nil, f.err
	}
	return append([]types.Venue(nil), f.venues...), nil
}

type fakeRouter struct {
	estimates []maps.TravelEstimate
	err       error
	mode      string
}

func (f *fakeRouter) TravelTimes(_ context.Context, _ types.Point, _ []types.Point, mode string) ([]maps.TravelEstimate, error) {
	f.mode = mode
	return f.estimates, f.err
}

func threeVenues() []types.Venue {
	return []types.Venue{
		{ID: "a", Name: "A", Rating: 4.5, Location: types.Point{Lat: 40.01, Lng: -75}},
		{ID: "b", Name: "B", Rating: 4.1, Location: types.Point{Lat: 40.02, Lng: -75}},
		{ID: "c", Name: "C", Rating: 4.9, Location: types.Point{Lat: 40.03, Lng: -75}},
	}
}

func TestPriceRange(t *testing.T) {
	tests := []struct {
		level    slots.BudgetLevel
		min, max int
	}{
		{slots.BudgetLow, 0, 1},
		{slots.BudgetMedium, 2, 2},
		{slots.BudgetHigh, 3, 4},
		{"", -1, -1},
	}
	for _, tt := range tests {
		lo, hi := PriceRange(slots.BudgetValue{Level: tt.level})
		assert.Equal(t, tt.min, lo, tt.level)
		assert.Equal(t, tt.max, hi, tt.level)
	}
}

func TestBiasRadius(t *testing.T) {
	assert.Equal(t, uint(1200), BiasRadius(slots.ModeWalking, 15))
	assert.Equal(t, uint(5000), BiasRadius(slots.ModeWalking, 120))
	assert.Equal(t, uint(2500), BiasRadius(slots.ModeCycling, 10))
	assert.Equal(t, uint(30000), BiasRadius(slots.ModeDriving, 60))
	assert.Equal(t, uint(0), BiasRadius("", 10))
}

func TestMapsSearcher_AnnotatesDurations(t *testing.T) {
	places := &fakePlaces{venues: threeVenues()}
	router := &fakeRouter{estimates: []maps.TravelEstimate{
		{Known: true, Duration: 5 * time.Minute, Distance: "0.4 km"},
		{Known: false},
		{Known: true, Duration: 12 * time.Minute},
	}}
	s := NewMapsSearcher(fakeGeo{pt: types.Point{Lat: 40, Lng: -75}}, places, router, zap.NewNop())

	venues, err := s.Search(context.Background(), Request{Slots: completeSlots()})
	require.NoError(t, err)
	require.Len(t, venues, 3)

	assert.True(t, venues[0].TravelKnown)
	assert.Equal(t, 5, venues[0].TravelMinutes())
	assert.Equal(t, "0.4 km", venues[0].DistanceText)
	assert.False(t, venues[1].TravelKnown, "unroutable candidates stay, marked unknown")
	assert.Equal(t, 12, venues[2].TravelMinutes())
	assert.Greater(t, venues[0].StraightKm, 1.0)

	assert.Equal(t, "walking", router.mode)
	assert.Equal(t, 0, places.got.MinPrice)
	assert.Equal(t, 1, places.got.MaxPrice)
	assert.Equal(t, uint(1200), places.got.RadiusMeters)
	assert.False(t, places.got.OpenNow)
}

func TestMapsSearcher_Errors(t *testing.T) {
	pt := types.Point{Lat: 40, Lng: -75}

	s := NewMapsSearcher(fakeGeo{err: fmt.Errorf("wrap: %w", maps.ErrLocationNotFound)}, &fakePlaces{}, &fakeRouter{}, zap.NewNop())
	_, err := s.Search(context.Background(), Request{Slots: completeSlots()})
	var locErr *LocationError
	require.ErrorAs(t, err, &locErr)
	assert.Equal(t, "downtown", locErr.Location)

	s = NewMapsSearcher(fakeGeo{pt: pt}, &fakePlaces{err: errors.New("OVER_QUERY_LIMIT")}, &fakeRouter{}, zap.NewNop())
	_, err = s.Search(context.Background(), Request{Slots: completeSlots()})
	assert.ErrorIs(t, err, ErrProviderFailure)

	s = NewMapsSearcher(fakeGeo{pt: pt}, &fakePlaces{err: context.DeadlineExceeded}, &fakeRouter{}, zap.NewNop())
	_, err = s.Search(context.Background(), Request{Slots: completeSlots()})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestMapsSearcher_RouterFailureMarksUnknown(t *testing.T) {
	s := NewMapsSearcher(fakeGeo{pt: types.Point{Lat: 40, Lng: -75}},
		&fakePlaces{venues: threeVenues()}, &fakeRouter{err: errors.New("boom")}, zap.NewNop())

	venues, err := s.Search(context.Background(), Request{Slots: completeSlots()})
	require.NoError(t, err)
	require.Len(t, venues, 3)
	for _, v := range venues {
		assert.False(t, v.TravelKnown)
	}
}

type countingSearcher struct {
	name   string
	venues []types.Venue
	err    error
	calls  atomic.Int32
}

func (c *countingSearcher) Name() string { return c.name }

func (c *countingSearcher) Search(context.Context, Request) ([]types.Venue, error) {
	c.calls.Add(1)
	return c.venues, c.err
}

func TestMultiSearcher(t *testing.T) {
	first := &countingSearcher{name: "one", venues: []types.Venue{{ID: "1"}, {ID: "2"}}}
	second := &countingSearcher{name: "two", venues: []types.Venue{{ID: "3"}}}
	down := &countingSearcher{name: "down", err: fmt.Errorf("%w: 500", ErrProviderFailure)}

	m := NewMultiSearcher(zap.NewNop(), first, down, second)
	venues, err := m.Search(context.Background(), Request{Slots: completeSlots()})
	require.NoError(t, err)
	ids := []string{}
	for _, v := range venues {
		ids = append(ids, v.ID)
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids)
	assert.Equal(t, "multi(one,down,two)", m.Name())

	_, err = NewMultiSearcher(zap.NewNop(), down, down).Search(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrProviderFailure)

	slow := &countingSearcher{name: "slow", err: fmt.Errorf("%w: deadline", ErrTimeout)}
	_, err = NewMultiSearcher(zap.NewNop(), slow).Search(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestCachedSearcher(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	next := &countingSearcher{name: "p", venues: []types.Venue{{ID: "a", Name: "A", Rating: 4.4, TravelKnown: true, Travel: 7 * time.Minute}}}
	c := NewCachedSearcher(next, rdb, time.Minute, zap.NewNop())
	req := Request{Slots: completeSlots()}

	v1, err := c.Search(context.Background(), req)
	require.NoError(t, err)
	v2, err := c.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int32(1), next.calls.Load())
	assert.Equal(t, v1, v2)
	assert.True(t, mr.Exists(cacheKeyPrefix+string(req.Slots.Signature())))

	req.Fresh = true
	_, err = c.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.calls.Load())

	other := completeSlots()
	other.Cuisine = "thai"
	_, err = c.Search(context.Background(), Request{Slots: other})
	require.NoError(t, err)
	assert.Equal(t, int32(3), next.calls.Load())
}

func TestCachedSearcher_Disabled(t *testing.T) {
	next := &countingSearcher{name: "p"}
	c := NewCachedSearcher(next, nil, time.Minute, zap.NewNop())
	_, _ = c.Search(context.Background(), Request{Slots: completeSlots()})
	_, _ = c.Search(context.Background(), Request{Slots: completeSlots()})
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestCachedSearcher_DoesNotCacheFailures(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	next := &countingSearcher{name: "p", err: ErrProviderFailure}
	c := NewCachedSearcher(next, rdb, time.Minute, zap.NewNop())
	_, err := c.Search(context.Background(), Request{Slots: completeSlots()})
	assert.ErrorIs(t, err, ErrProviderFailure)
	assert.Empty(t, mr.Keys())
}

func TestStaticSearcher(t *testing.T) {
	s := NewStaticSearcher(nil)
	set := completeSlots()
	venues, err := s.Search(context.Background(), Request{Slots: set})
	require.NoError(t, err)
	assert.Len(t, venues, 3)
	for _, v := range venues {
		assert.Contains(t, v.Tags, "italian")
	}
}
