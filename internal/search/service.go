package search

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/votsa/ssr/internal/models"
	"github.com/votsa/ssr/internal/obs"
)

type Reconciler interface {
	Reconcile(ctx context.Context, sc models.SearchContext) (SearchPage, error)
}

type AnchorService interface {
	Resolve(ctx context.Context, sc models.SearchContext, maxIterations int) (AnchorResult, error)
}

type AvailabilityPoller interface {
	Poll(ctx context.Context, sc models.SearchContext, target AvailabilityTarget, maxIterations int) (AvailabilityBatch, error)
}

type ServiceConfig struct {
	ComputeTimeout           time.Duration
	AnchorPageLoadIterations int
	AnchorRefineIterations   int
	OffersRefreshIterations  int
}

// PageLoad is everything the initial page render needs.
type PageLoad struct {
	SearchID     string               `json:"searchId"`
	SearchParams models.SearchContext `json:"searchParams"`
	Anchor       *AnchorResult        `json:"anchor,omitempty"`
	Results      *SearchPage          `json:"results,omitempty"`
}

type Service struct {
	engine  Reconciler
	anchors AnchorService
	poller  AvailabilityPoller
	cache   CacheService
	metrics *obs.Metrics
	cfg     ServiceConfig
}

func NewService(engine Reconciler, anchors AnchorService, poller AvailabilityPoller, ch CacheService, m *obs.Metrics, cfg ServiceConfig) *Service {
	if cfg.ComputeTimeout <= 0 {
		cfg.ComputeTimeout = 30 * time.Second
	}
	return &Service{
		engine:  engine,
		anchors: anchors,
		poller:  poller,
		cache:   ch,
		metrics: m,
		cfg:     cfg,
	}
}

// Load runs the anchor flow and the list reconcile side by side. Single-hotel
// searches only get the anchor.
func (s *Service) Load(ctx context.Context, sc models.SearchContext) (PageLoad, error) {
	s.metrics.IncRequests()

	cctx, cancel := context.WithTimeout(ctx, s.cfg.ComputeTimeout)
	defer cancel()

	var (
		anchor AnchorResult
		page   SearchPage
	)
	g, gctx := errgroup.WithContext(cctx)
	g.Go(func() error {
		var err error
		anchor, err = s.anchors.Resolve(gctx, sc, s.cfg.AnchorPageLoadIterations)
		return err
	})
	if !sc.AnchorMode() {
		g.Go(func() error {
			var err error
			page, err = s.page(gctx, sc)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return PageLoad{}, err
	}

	out := PageLoad{SearchID: sc.SearchID, SearchParams: sc, Anchor: &anchor}
	if !sc.AnchorMode() {
		out.Results = &page
	}
	return out, nil
}

// Page reconciles one page; identical concurrent requests share the work.
func (s *Service) Page(ctx context.Context, sc models.SearchContext) (SearchPage, error) {
	s.metrics.IncRequests()

	cctx, cancel := context.WithTimeout(ctx, s.cfg.ComputeTimeout)
	defer cancel()
	return s.page(cctx, sc)
}

func (s *Service) page(ctx context.Context, sc models.SearchContext) (SearchPage, error) {
	return s.cache.GetOrCompute(ctx, sc.Key(), func(ctx context.Context) (SearchPage, error) {
		return s.engine.Reconcile(ctx, sc)
	})
}

// Refine re-resolves the anchor with the larger client-side round budget.
func (s *Service) Refine(ctx context.Context, sc models.SearchContext) (AnchorResult, error) {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.ComputeTimeout)
	defer cancel()
	return s.anchors.Resolve(cctx, sc, s.cfg.AnchorRefineIterations)
}

// Offers refreshes live offers for hotels already on screen.
func (s *Service) Offers(ctx context.Context, sc models.SearchContext, hotelIDs []string) (AvailabilityBatch, error) {
	if len(hotelIDs) == 0 {
		return AvailabilityBatch{Results: []OfferEntity{}, Status: PollStatus{Complete: true}}, nil
	}
	cctx, cancel := context.WithTimeout(ctx, s.cfg.ComputeTimeout)
	defer cancel()
	return s.poller.Poll(cctx, sc, AvailabilityTarget{HotelIDs: hotelIDs}, s.cfg.OffersRefreshIterations)
}
