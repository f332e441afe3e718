package providers

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/votsa/ssr/internal/models"
	"github.com/votsa/ssr/internal/search"
)

var mockNames = []string{
	"Hotel Atlas", "Riad Sunset", "Kasbah Pearl", "Casa Azul", "Grand Vista",
	"Harbour Inn", "Old Town Suites", "Palacio Verde", "Lighthouse Lodge", "The Linden",
}

var mockProviders = []string{"BKS", "EXP", "HTL", "AGD"}

type MockOptions struct {
	// Hotels is the number of candidates generated per place.
	Hotels int
	// CompleteAfter is the poll round at which a session reports complete.
	CompleteAfter int
	// MaxSessions caps the poll sessions tracked at once; the oldest are
	// forgotten first.
	MaxSessions int
	AvgLatency  float64
	FailRate    float64
	Seed        int64
}

// MockUpstream is an in-process stand-in for the search and availability
// APIs. Catalog and prices are a pure function of the ids involved; prices
// show up progressively over the rounds of one availability session.
type MockUpstream struct {
	opts MockOptions

	mu       sync.Mutex
	rng      *rand.Rand
	sessions map[string]int
	order    []string
	nextID   int
}

func NewMockUpstream(opts MockOptions) *MockUpstream {
	if opts.Hotels <= 0 {
		opts.Hotels = 120
	}
	if opts.CompleteAfter <= 0 {
		opts.CompleteAfter = 3
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 1024
	}
	return &MockUpstream{
		opts:     opts,
		rng:      rand.New(rand.NewSource(opts.Seed)),
		sessions: make(map[string]int),
	}
}

func (m *MockUpstream) FetchSearch(ctx context.Context, sc models.SearchContext, o search.SearchOverrides) (search.StaticResults, error) {
	if err := m.simulate(ctx, OpSearch); err != nil {
		return search.StaticResults{}, err
	}

	if sc.AnchorMode() {
		h := m.hotel(sc.HotelID)
		return search.StaticResults{
			HotelIDs:      []string{h.ObjectID},
			HotelEntities: map[string]search.Hotel{h.ObjectID: h},
		}, nil
	}

	offset := sc.Offset
	if o.Offset != nil {
		offset = *o.Offset
	}
	size := o.PageSize
	if size <= 0 {
		size = search.ClientPageSize
	}

	out := search.StaticResults{
		HotelIDs:      []string{},
		HotelEntities: map[string]search.Hotel{},
		Anchor:        m.place(sc.PlaceID),
	}
	for i := offset; i < m.opts.Hotels && i < offset+size; i++ {
		h := m.hotel(mockHotelID(sc.PlaceID, i))
		if !matchesStars(h, sc.StarRatings) {
			continue
		}
		out.HotelIDs = append(out.HotelIDs, h.ObjectID)
		out.HotelEntities[h.ObjectID] = h
	}
	return out, nil
}

func (m *MockUpstream) FetchAnchor(ctx context.Context, sc models.SearchContext) (search.AnchorResponse, error) {
	if err := m.simulate(ctx, OpAnchor); err != nil {
		return search.AnchorResponse{}, err
	}

	if sc.AnchorMode() {
		h := m.hotel(sc.HotelID)
		return search.AnchorResponse{
			Anchor:        &search.Anchor{ObjectID: h.ObjectID, HotelName: h.HotelName, PlaceDisplayName: h.PlaceDisplayName},
			AnchorHotelID: h.ObjectID,
			AnchorType:    "hotel",
			HotelEntities: map[string]search.Hotel{h.ObjectID: h},
		}, nil
	}

	first := m.hotel(mockHotelID(sc.PlaceID, 0))
	return search.AnchorResponse{
		Anchor:        m.place(sc.PlaceID),
		AnchorHotelID: first.ObjectID,
		AnchorType:    "place",
		HotelEntities: map[string]search.Hotel{first.ObjectID: first},
	}, nil
}

func (m *MockUpstream) FetchAvailability(ctx context.Context, sc models.SearchContext, target search.AvailabilityTarget, sessionID string) (search.AvailabilityBatch, error) {
	if err := m.simulate(ctx, OpAvailability); err != nil {
		return search.AvailabilityBatch{}, err
	}

	round, sessionID := m.nextRound(sessionID)

	ids := target.HotelIDs
	if target.AnchorHotelID != "" {
		ids = []string{target.AnchorHotelID}
	}

	nights := sc.Nights()
	if nights <= 0 {
		nights = 1
	}
	batch := search.AvailabilityBatch{
		Results:   make([]search.OfferEntity, 0, len(ids)),
		Status:    search.PollStatus{Complete: round >= m.opts.CompleteAfter},
		SessionID: sessionID,
	}
	for _, id := range ids {
		batch.Results = append(batch.Results, m.offers(id, round, nights))
	}
	return batch, nil
}

// nextRound advances a poll session. Complete sessions are dropped since the
// poller never calls again after completion.
func (m *MockUpstream) nextRound(sessionID string) (int, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessionID == "" {
		m.nextID++
		sessionID = fmt.Sprintf("mock-session-%d", m.nextID)
	}
	round, ok := m.sessions[sessionID]
	if !ok {
		m.order = append(m.order, sessionID)
		for len(m.order) > m.opts.MaxSessions {
			delete(m.sessions, m.order[0])
			m.order = m.order[1:]
		}
	}
	round++

	if round >= m.opts.CompleteAfter {
		delete(m.sessions, sessionID)
	} else {
		m.sessions[sessionID] = round
	}
	return round, sessionID
}

// offers prices roughly three hotels in four; each priced hotel becomes
// visible at a fixed round.
func (m *MockUpstream) offers(hotelID string, round, nights int) search.OfferEntity {
	h := hashOf(hotelID)
	entity := search.OfferEntity{ID: hotelID, Offers: []search.Offer{}}
	if h%4 == 0 {
		return entity
	}
	if int(h%uint32(m.opts.CompleteAfter))+1 > round {
		return entity
	}

	nightly := 60 + float64(h%180)
	provider := mockProviders[h%uint32(len(mockProviders))]
	entity.Offers = append(entity.Offers, search.Offer{
		ID:           "offer-" + hotelID,
		RoomID:       "room-" + hotelID,
		ProviderCode: provider,
		Currency:     "EUR",
		URL:          fmt.Sprintf("https://example.com/book/%s?provider=%s", hotelID, provider),
		Rate: search.Rate{
			Base:      nightly * float64(nights),
			HotelFees: 0,
			Taxes:     nightly * float64(nights) * 0.1,
		},
	})
	entity.Rooms = map[string]search.Room{"room-" + hotelID: {Name: "Double Room"}}
	return entity
}

func (m *MockUpstream) hotel(id string) search.Hotel {
	h := hashOf(id)
	place, idx := splitMockHotelID(id)
	out := search.Hotel{
		ObjectID:         id,
		HotelName:        fmt.Sprintf("%s %d", mockNames[h%uint32(len(mockNames))], idx),
		PlaceDisplayName: "Place " + place,
		StarRating:       float64(h%5 + 1),
	}
	if idx%3 == 0 {
		out.Tags = []string{"top-pick"}
	}
	return out
}

func (m *MockUpstream) place(placeID string) *search.Anchor {
	return &search.Anchor{ObjectID: placeID, PlaceName: "Place " + placeID, PlaceDisplayName: "Place " + placeID}
}

func (m *MockUpstream) simulate(ctx context.Context, op string) error {
	if m.opts.AvgLatency <= 0 && m.opts.FailRate <= 0 {
		return ctx.Err()
	}

	m.mu.Lock()
	latency := SampleLatencyFromRng(m.rng, m.opts.AvgLatency)
	fail := ShouldFailFromRng(m.rng, m.opts.FailRate)
	m.mu.Unlock()

	if m.opts.AvgLatency <= 0 {
		latency = 0
	}
	if err := wait(ctx, latency); err != nil {
		return err
	}
	if fail {
		return &search.UpstreamError{Op: op, StatusCode: 503}
	}
	return nil
}

func mockHotelID(placeID string, i int) string {
	return fmt.Sprintf("%s-%d", placeID, i)
}

func splitMockHotelID(id string) (string, int) {
	i := strings.LastIndex(id, "-")
	if i < 0 {
		return id, 0
	}
	var idx int
	if _, err := fmt.Sscanf(id[i+1:], "%d", &idx); err != nil {
		return id, 0
	}
	return id[:i], idx
}

func matchesStars(h search.Hotel, stars []int) bool {
	if len(stars) == 0 {
		return true
	}
	for _, s := range stars {
		if int(h.StarRating) == s {
			return true
		}
	}
	return false
}

var _ search.Gateway = (*MockUpstream)(nil)
var _ search.Gateway = (*Upstream)(nil)
