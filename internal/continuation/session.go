package continuation

import (
	"context"
	"log/slog"

	"github.com/votsa/ssr/internal/models"
)

// Sessions runs controllers on behalf of HTTP clients, keeping their state
// in a Store between requests.
type Sessions struct {
	store  Store
	pages  PageSource
	offers OfferSource
	logger *slog.Logger
}

func NewSessions(store Store, pages PageSource, offers OfferSource, logger *slog.Logger) *Sessions {
	return &Sessions{store: store, pages: pages, offers: offers, logger: logger}
}

// Create loads the first page, refreshes its offers and saves the session.
func (s *Sessions) Create(ctx context.Context, sc models.SearchContext) (View, error) {
	sc = sc.WithOffset(0)
	initial, err := s.pages.Page(ctx, sc)
	if err != nil {
		return View{}, err
	}

	c := New(sc, initial, s.pages, s.offers)
	if err := c.Start(ctx); err != nil {
		// the first page is still usable without refreshed offers
		s.logger.Warn("initial offers refresh failed", "search_id", sc.SearchID, "error", err)
	}
	if err := s.store.Save(ctx, c.State()); err != nil {
		return View{}, err
	}
	return c.View(), nil
}

func (s *Sessions) Get(ctx context.Context, searchID string) (View, error) {
	state, err := s.store.Load(ctx, searchID)
	if err != nil {
		return View{}, err
	}
	return Restore(state, s.pages, s.offers).View(), nil
}

// LoadMore appends the next page. Concurrent calls for the same search get
// ErrLoadInProgress, across instances when the store is shared.
func (s *Sessions) LoadMore(ctx context.Context, searchID string) (View, error) {
	release, err := s.store.Lock(ctx, searchID)
	if err != nil {
		return View{}, err
	}
	defer release()

	state, err := s.store.Load(ctx, searchID)
	if err != nil {
		return View{}, err
	}
	c := Restore(state, s.pages, s.offers)
	if err := c.LoadMore(ctx); err != nil {
		return c.View(), err
	}
	if err := c.RefreshErr(); err != nil {
		s.logger.Warn("offers refresh failed", "search_id", searchID, "page", c.State().Page, "error", err)
	}
	if err := s.store.Save(ctx, c.State()); err != nil {
		return View{}, err
	}

	view := c.View()
	s.logger.Info("page appended",
		"search_id", searchID,
		"page", view.Page,
		"hotels", len(view.Hotels),
		"has_more", view.HasMoreResults,
	)
	return view, nil
}
