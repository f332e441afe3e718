package search_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/votsa/ssr/internal/models"
	"github.com/votsa/ssr/internal/obs"
	"github.com/votsa/ssr/internal/search"
)

type availabilityCall struct {
	Target    search.AvailabilityTarget
	SessionID string
	Offset    int
}

type mockGateway struct {
	mu sync.Mutex

	searchFunc       func(ctx context.Context, sc models.SearchContext, o search.SearchOverrides) (search.StaticResults, error)
	anchorFunc       func(ctx context.Context, sc models.SearchContext) (search.AnchorResponse, error)
	availabilityFunc func(ctx context.Context, sc models.SearchContext, target search.AvailabilityTarget, sessionID string, round int) (search.AvailabilityBatch, error)

	searchCalls       []search.SearchOverrides
	anchorCalls       int
	availabilityCalls []availabilityCall
}

func (m *mockGateway) FetchSearch(ctx context.Context, sc models.SearchContext, o search.SearchOverrides) (search.StaticResults, error) {
	m.mu.Lock()
	m.searchCalls = append(m.searchCalls, o)
	m.mu.Unlock()
	if m.searchFunc != nil {
		return m.searchFunc(ctx, sc, o)
	}
	return search.StaticResults{}, nil
}

func (m *mockGateway) FetchAnchor(ctx context.Context, sc models.SearchContext) (search.AnchorResponse, error) {
	m.mu.Lock()
	m.anchorCalls++
	m.mu.Unlock()
	if m.anchorFunc != nil {
		return m.anchorFunc(ctx, sc)
	}
	return search.AnchorResponse{}, nil
}

func (m *mockGateway) FetchAvailability(ctx context.Context, sc models.SearchContext, target search.AvailabilityTarget, sessionID string) (search.AvailabilityBatch, error) {
	m.mu.Lock()
	m.availabilityCalls = append(m.availabilityCalls, availabilityCall{Target: target, SessionID: sessionID, Offset: sc.Offset})
	round := len(m.availabilityCalls)
	m.mu.Unlock()
	if m.availabilityFunc != nil {
		return m.availabilityFunc(ctx, sc, target, sessionID, round)
	}
	return search.AvailabilityBatch{Status: search.PollStatus{Complete: true}}, nil
}

func (m *mockGateway) rounds() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.availabilityCalls)
}

type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func newMetrics() *obs.Metrics {
	return obs.NewMetrics(prometheus.NewRegistry())
}

func listContext() models.SearchContext {
	return models.SearchContext{
		PlaceID:  "47319",
		CheckIn:  "2026-11-20",
		CheckOut: "2026-11-22",
		Rooms:    models.DefaultRooms,
		SearchID: "s-1",
	}
}

func hotelIDs(prefix string, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return ids
}

func pricedEntity(id string, base float64) search.OfferEntity {
	return search.OfferEntity{
		ID: id,
		Offers: []search.Offer{{
			ID:           "o-" + id,
			ProviderCode: "BKS",
			Currency:     "EUR",
			Rate:         search.Rate{Base: base},
		}},
	}
}

func emptyEntity(id string) search.OfferEntity {
	return search.OfferEntity{ID: id, Offers: []search.Offer{}}
}

func pricedBatch(ids []string, complete bool) search.AvailabilityBatch {
	out := search.AvailabilityBatch{Status: search.PollStatus{Complete: complete}}
	for i, id := range ids {
		out.Results = append(out.Results, pricedEntity(id, float64(100+i)))
	}
	return out
}

func staticFor(ids []string, tagged map[string]bool) search.StaticResults {
	out := search.StaticResults{HotelIDs: ids, HotelEntities: make(map[string]search.Hotel, len(ids))}
	for _, id := range ids {
		h := search.Hotel{ObjectID: id, HotelName: "Hotel " + id}
		if tagged[id] {
			h.Tags = []string{"top-pick"}
		}
		out.HotelEntities[id] = h
	}
	return out
}
