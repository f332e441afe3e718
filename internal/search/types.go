package search

import (
	"context"
	"encoding/json"

	"github.com/votsa/ssr/internal/models"
)

const (
	// ClientPageSize is the number of available hotels shown per UI page.
	ClientPageSize = 20
	// ClientPageOffset pads each availability request to absorb unavailable hotels.
	ClientPageOffset = 5
	// FirstPageThreshold is the availability target and request size on the first page.
	FirstPageThreshold = 40
	// StaticPageSize is how many candidates the static search is asked for.
	StaticPageSize = 250
	// DefaultMaxIterations bounds a full-page availability poll.
	DefaultMaxIterations = 5

	staticAttributes = "anchor,facets,hotelEntities,hotelIds,offset,resultsCount,resultsCountTotal,searchParameters"
)

// Hotel is a candidate returned by the static search, before pricing is known.
type Hotel struct {
	ObjectID         string   `json:"objectID"`
	HotelName        string   `json:"hotelName"`
	PlaceDisplayName string   `json:"placeDisplayName,omitempty"`
	ImageURIs        []string `json:"imageURIs,omitempty"`
	StarRating       float64  `json:"starRating,omitempty"`
	Tags             []string `json:"tags,omitempty"`
}

type Rate struct {
	Base      float64 `json:"base"`
	HotelFees float64 `json:"hotelFees"`
	Taxes     float64 `json:"taxes"`
}

func (r Rate) Total() float64 {
	return r.Base + r.HotelFees + r.Taxes
}

type Offer struct {
	ID           string `json:"id"`
	RoomID       string `json:"roomID,omitempty"`
	ProviderCode string `json:"providerCode"`
	Currency     string `json:"currency"`
	URL          string `json:"url"`
	Rate         Rate   `json:"rate"`
}

// NightlyPrice spreads the full rate over the stay.
func (o Offer) NightlyPrice(nights int) float64 {
	if nights <= 0 {
		return o.Rate.Total()
	}
	return o.Rate.Total() / float64(nights)
}

type Room struct {
	Name string `json:"name"`
}

// OfferEntity holds the live offers for one hotel. An empty Offers slice means
// the hotel was checked and nothing is available.
type OfferEntity struct {
	ID     string          `json:"id"`
	Offers []Offer         `json:"offers"`
	Rooms  map[string]Room `json:"rooms,omitempty"`
}

func (e OfferEntity) Available() bool {
	return len(e.Offers) > 0
}

type PollStatus struct {
	Complete bool `json:"complete"`
}

// AvailabilityBatch is the result of one availability poll round.
type AvailabilityBatch struct {
	Results   []OfferEntity `json:"results"`
	Status    PollStatus    `json:"status"`
	SessionID string        `json:"sessionId,omitempty"`
}

func (b AvailabilityBatch) AvailableCount() int {
	n := 0
	for _, e := range b.Results {
		if e.Available() {
			n++
		}
	}
	return n
}

// Available returns the priced entities in upstream order.
func (b AvailabilityBatch) Available() []OfferEntity {
	out := make([]OfferEntity, 0, len(b.Results))
	for _, e := range b.Results {
		if e.Available() {
			out = append(out, e)
		}
	}
	return out
}

func (b AvailabilityBatch) Entities() map[string]OfferEntity {
	out := make(map[string]OfferEntity, len(b.Results))
	for _, e := range b.Results {
		out[e.ID] = e
	}
	return out
}

// Anchor carries page metadata for the highlighted place or hotel.
type Anchor struct {
	ObjectID         string `json:"objectID,omitempty"`
	PlaceName        string `json:"placeName,omitempty"`
	PlaceADN         string `json:"placeADN,omitempty"`
	PlaceDisplayName string `json:"placeDisplayName,omitempty"`
	HotelName        string `json:"hotelName,omitempty"`
}

type StaticResults struct {
	HotelIDs         []string         `json:"hotelIds"`
	HotelEntities    map[string]Hotel `json:"hotelEntities"`
	Anchor           *Anchor          `json:"anchor,omitempty"`
	SearchParameters json.RawMessage  `json:"searchParameters,omitempty"`
}

type AnchorResponse struct {
	Anchor           *Anchor          `json:"anchor,omitempty"`
	AnchorHotelID    string           `json:"anchorHotelId,omitempty"`
	AnchorType       string           `json:"anchorType,omitempty"`
	HotelEntities    map[string]Hotel `json:"hotelEntities,omitempty"`
	SearchParameters json.RawMessage  `json:"searchParameters,omitempty"`
}

// SearchPage is one window of available hotels. Every id in HotelIDs has an
// entry in HotelEntities.
type SearchPage struct {
	HotelIDs       []string               `json:"hotelIds"`
	HotelEntities  map[string]Hotel       `json:"hotelEntities"`
	OfferEntities  map[string]OfferEntity `json:"offerEntities"`
	HasMoreResults bool                   `json:"hasMoreResults"`
}

func EmptyPage() SearchPage {
	return SearchPage{
		HotelIDs:      []string{},
		HotelEntities: map[string]Hotel{},
		OfferEntities: map[string]OfferEntity{},
	}
}

type SearchOverrides struct {
	PageSize   int
	Offset     *int
	Attributes string
}

// AvailabilityTarget names either a hotel id list or a single anchor hotel.
type AvailabilityTarget struct {
	HotelIDs      []string
	AnchorHotelID string
}

// Gateway is the upstream search/anchor/availability API. Each call makes
// exactly one network attempt.
type Gateway interface {
	FetchSearch(ctx context.Context, sc models.SearchContext, o SearchOverrides) (StaticResults, error)
	FetchAnchor(ctx context.Context, sc models.SearchContext) (AnchorResponse, error)
	FetchAvailability(ctx context.Context, sc models.SearchContext, target AvailabilityTarget, sessionID string) (AvailabilityBatch, error)
}
