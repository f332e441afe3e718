package continuation

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/votsa/ssr/internal/models"
	"github.com/votsa/ssr/internal/search"
)

type Status string

const (
	StatusIdle                 Status = "idle"
	StatusLoadingInitialOffers Status = "loading_initial_offers"
	StatusReady                Status = "ready"
	StatusLoadingNextPage      Status = "loading_next_page"
	StatusExhausted            Status = "exhausted"
)

var (
	ErrLoadInProgress  = errors.New("a page load is already in progress")
	ErrExhausted       = errors.New("no more results")
	ErrNotStarted      = errors.New("initial offers have not been loaded")
	ErrSessionNotFound = errors.New("search session not found")
)

type PageSource interface {
	Page(ctx context.Context, sc models.SearchContext) (search.SearchPage, error)
}

type OfferSource interface {
	Offers(ctx context.Context, sc models.SearchContext, hotelIDs []string) (search.AvailabilityBatch, error)
}

// State is everything needed to resume a search on another request or instance.
type State struct {
	SearchParams   models.SearchContext          `json:"searchParams"`
	HotelIDs       []string                      `json:"hotelIds"`
	HotelEntities  map[string]search.Hotel       `json:"hotelEntities"`
	OfferEntities  map[string]search.OfferEntity `json:"offerEntities"`
	HasMoreResults bool                          `json:"hasMoreResults"`
	IsComplete     bool                          `json:"isComplete"`
	Page           int                           `json:"page"`
	Status         Status                        `json:"status"`
}

// Controller accumulates pages of one search as the visitor asks for more.
// At most one load runs at a time.
type Controller struct {
	mu         sync.Mutex
	state      State
	pages      PageSource
	offers     OfferSource
	refreshErr error
}

func New(sc models.SearchContext, initial search.SearchPage, pages PageSource, offers OfferSource) *Controller {
	state := State{
		SearchParams:   sc.WithOffset(0),
		HotelIDs:       search.AppendUnique(nil, initial.HotelIDs...),
		HotelEntities:  search.MergeHotelEntities(nil, initial.HotelEntities),
		OfferEntities:  search.MergeOfferEntities(nil, initial.OfferEntities),
		HasMoreResults: initial.HasMoreResults,
		Page:           1,
		Status:         StatusIdle,
	}
	return &Controller{state: state, pages: pages, offers: offers}
}

// Restore resumes a controller from saved state.
func Restore(state State, pages PageSource, offers OfferSource) *Controller {
	if state.Page < 1 {
		state.Page = 1
	}
	if state.HotelEntities == nil {
		state.HotelEntities = map[string]search.Hotel{}
	}
	if state.OfferEntities == nil {
		state.OfferEntities = map[string]search.OfferEntity{}
	}
	return &Controller{state: state, pages: pages, offers: offers}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.HotelIDs = append([]string(nil), c.state.HotelIDs...)
	s.HotelEntities = search.MergeHotelEntities(nil, c.state.HotelEntities)
	s.OfferEntities = search.MergeOfferEntities(nil, c.state.OfferEntities)
	return s
}

// Start refreshes offers for the initial page. Only offers are merged; the
// id list and hotel entities stay as they were rendered.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	switch c.state.Status {
	case StatusIdle:
	case StatusLoadingInitialOffers, StatusLoadingNextPage:
		c.mu.Unlock()
		return ErrLoadInProgress
	default:
		c.mu.Unlock()
		return nil
	}
	c.state.Status = StatusLoadingInitialOffers
	sc := c.state.SearchParams
	ids := append([]string(nil), c.state.HotelIDs...)
	c.mu.Unlock()

	batch, err := c.offers.Offers(ctx, sc, ids)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		c.state.OfferEntities = search.MergeOfferEntities(c.state.OfferEntities, batch.Entities())
		c.state.IsComplete = batch.Status.Complete
	}
	c.state.Status = c.settled()
	return err
}

// LoadMore fetches the next page, appends it and refreshes its offers.
func (c *Controller) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	switch c.state.Status {
	case StatusReady:
	case StatusLoadingInitialOffers, StatusLoadingNextPage:
		c.mu.Unlock()
		return ErrLoadInProgress
	case StatusExhausted:
		c.mu.Unlock()
		return ErrExhausted
	default:
		c.mu.Unlock()
		return ErrNotStarted
	}
	c.state.Status = StatusLoadingNextPage
	sc := c.state.SearchParams.WithOffset(c.state.Page * search.ClientPageSize)
	c.mu.Unlock()

	page, err := c.pages.Page(ctx, sc)
	if err != nil {
		c.mu.Lock()
		c.state.Status = StatusReady
		c.mu.Unlock()
		return err
	}

	// The page already carries offers from its own poll, so a failed
	// refresh only leaves the page incomplete.
	complete := false
	refreshed := map[string]search.OfferEntity{}
	var refreshErr error
	if len(page.HotelIDs) > 0 {
		batch, err := c.offers.Offers(ctx, sc, page.HotelIDs)
		if err == nil {
			refreshed = batch.Entities()
			complete = batch.Status.Complete
		} else {
			refreshErr = err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshErr = refreshErr
	c.state.HotelIDs = search.AppendUnique(c.state.HotelIDs, page.HotelIDs...)
	c.state.HotelEntities = search.MergeHotelEntities(c.state.HotelEntities, page.HotelEntities)
	c.state.OfferEntities = search.MergeOfferEntities(c.state.OfferEntities, page.OfferEntities)
	c.state.OfferEntities = search.MergeOfferEntities(c.state.OfferEntities, refreshed)
	c.state.HasMoreResults = page.HasMoreResults
	c.state.IsComplete = complete
	c.state.Page++
	c.state.Status = c.settled()
	return nil
}

// RefreshErr is the offers refresh failure of the last LoadMore, if any.
func (c *Controller) RefreshErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshErr
}

func (c *Controller) settled() Status {
	if c.state.HasMoreResults {
		return StatusReady
	}
	return StatusExhausted
}

type HotelView struct {
	ID                   string              `json:"id"`
	Hotel                search.Hotel        `json:"hotel"`
	OfferEntity          *search.OfferEntity `json:"offerEntity,omitempty"`
	OfferState           search.OfferState   `json:"offerState"`
	CheapestNightlyPrice float64             `json:"cheapestNightlyPrice,omitempty"`
	Currency             string              `json:"currency,omitempty"`
}

type View struct {
	SearchID       string               `json:"searchId"`
	SearchParams   models.SearchContext `json:"searchParams"`
	Hotels         []HotelView          `json:"hotels"`
	IsComplete     bool                 `json:"isComplete"`
	HasMoreResults bool                 `json:"hasMoreResults"`
	Status         Status               `json:"status"`
	Page           int                  `json:"page"`
}

// View lists the hotels visible for the pages loaded so far.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	visible := c.state.HotelIDs
	if n := c.state.Page * search.ClientPageSize; len(visible) > n {
		visible = visible[:n]
	}
	nights := c.state.SearchParams.Nights()

	out := View{
		SearchID:       c.state.SearchParams.SearchID,
		SearchParams:   c.state.SearchParams,
		Hotels:         make([]HotelView, 0, len(visible)),
		IsComplete:     c.state.IsComplete,
		HasMoreResults: c.state.HasMoreResults,
		Status:         c.state.Status,
		Page:           c.state.Page,
	}
	for _, id := range visible {
		hv := HotelView{ID: id, Hotel: c.state.HotelEntities[id]}
		if e, ok := c.state.OfferEntities[id]; ok {
			entity := e
			hv.OfferEntity = &entity
			hv.CheapestNightlyPrice, hv.Currency = cheapest(entity, nights)
		}
		hv.OfferState = search.StateOf(hv.OfferEntity, c.state.IsComplete)
		out.Hotels = append(out.Hotels, hv)
	}
	return out
}

func cheapest(e search.OfferEntity, nights int) (float64, string) {
	best, currency := math.Inf(1), ""
	for _, o := range e.Offers {
		if p := o.NightlyPrice(nights); p < best {
			best, currency = p, o.Currency
		}
	}
	if math.IsInf(best, 1) {
		return 0, ""
	}
	return best, currency
}
