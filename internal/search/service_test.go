package search_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/votsa/ssr/internal/models"
	"github.com/votsa/ssr/internal/search"
)

type mockEngine struct {
	mu            sync.Mutex
	counter       int
	reconcileFunc func(ctx context.Context, sc models.SearchContext) (search.SearchPage, error)
}

func (m *mockEngine) Reconcile(ctx context.Context, sc models.SearchContext) (search.SearchPage, error) {
	m.mu.Lock()
	m.counter++
	m.mu.Unlock()

	if m.reconcileFunc != nil {
		return m.reconcileFunc(ctx, sc)
	}
	return search.EmptyPage(), nil
}

type mockAnchors struct {
	mu          sync.Mutex
	iterations  []int
	resolveFunc func(ctx context.Context, sc models.SearchContext, maxIterations int) (search.AnchorResult, error)
}

func (m *mockAnchors) Resolve(ctx context.Context, sc models.SearchContext, maxIterations int) (search.AnchorResult, error) {
	m.mu.Lock()
	m.iterations = append(m.iterations, maxIterations)
	m.mu.Unlock()

	if m.resolveFunc != nil {
		return m.resolveFunc(ctx, sc, maxIterations)
	}
	return search.AnchorResult{AnchorType: "place", IsComplete: true}, nil
}

type mockPoller struct {
	pollFunc func(ctx context.Context, sc models.SearchContext, target search.AvailabilityTarget, maxIterations int) (search.AvailabilityBatch, error)
}

func (m *mockPoller) Poll(ctx context.Context, sc models.SearchContext, target search.AvailabilityTarget, maxIterations int) (search.AvailabilityBatch, error) {
	if m.pollFunc != nil {
		return m.pollFunc(ctx, sc, target, maxIterations)
	}
	return search.AvailabilityBatch{Status: search.PollStatus{Complete: true}}, nil
}

type mockCache struct {
	getOrComputeFunc func(ctx context.Context, key string, fn func(ctx context.Context) (search.SearchPage, error)) (search.SearchPage, error)
}

func (m *mockCache) GetOrCompute(ctx context.Context, key string, fn func(ctx context.Context) (search.SearchPage, error)) (search.SearchPage, error) {
	if m.getOrComputeFunc != nil {
		return m.getOrComputeFunc(ctx, key, fn)
	}
	return fn(ctx)
}

var serviceConfig = search.ServiceConfig{
	ComputeTimeout:           2 * time.Second,
	AnchorPageLoadIterations: 1,
	AnchorRefineIterations:   3,
	OffersRefreshIterations:  5,
}

func TestService_Load_Success(t *testing.T) {
	cacheCalled := false
	cache := &mockCache{
		getOrComputeFunc: func(ctx context.Context, key string, fn func(ctx context.Context) (search.SearchPage, error)) (search.SearchPage, error) {
			cacheCalled = true
			if key != listContext().Key() {
				t.Errorf("unexpected key %q", key)
			}
			return fn(ctx)
		},
	}
	engine := &mockEngine{
		reconcileFunc: func(ctx context.Context, sc models.SearchContext) (search.SearchPage, error) {
			page := search.EmptyPage()
			page.HotelIDs = []string{"H1"}
			return page, nil
		},
	}
	anchors := &mockAnchors{}

	svc := search.NewService(engine, anchors, &mockPoller{}, cache, newMetrics(), serviceConfig)

	res, err := svc.Load(context.Background(), listContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cacheCalled {
		t.Fatal("expected cache to be called")
	}
	if res.Results == nil || len(res.Results.HotelIDs) != 1 {
		t.Fatalf("unexpected results: %+v", res.Results)
	}
	if res.Anchor == nil || res.Anchor.AnchorType != "place" {
		t.Fatalf("unexpected anchor: %+v", res.Anchor)
	}
	if res.SearchID != "s-1" {
		t.Fatalf("unexpected search id %q", res.SearchID)
	}
	if len(anchors.iterations) != 1 || anchors.iterations[0] != 1 {
		t.Fatalf("expected page-load anchor budget of 1, got %v", anchors.iterations)
	}
}

func TestService_Load_AnchorModeSkipsList(t *testing.T) {
	engine := &mockEngine{}
	svc := search.NewService(engine, &mockAnchors{}, &mockPoller{}, &mockCache{}, newMetrics(), serviceConfig)

	sc := listContext()
	sc.PlaceID = ""
	sc.HotelID = "H1"
	res, err := svc.Load(context.Background(), sc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Results != nil {
		t.Fatal("expected no list results for a single-hotel search")
	}
	if engine.counter != 0 {
		t.Fatalf("expected engine not to run, got %d calls", engine.counter)
	}
}

func TestService_Load_AnchorError(t *testing.T) {
	anchors := &mockAnchors{
		resolveFunc: func(ctx context.Context, sc models.SearchContext, maxIterations int) (search.AnchorResult, error) {
			return search.AnchorResult{}, errors.New("anchor failed")
		},
	}
	svc := search.NewService(&mockEngine{}, anchors, &mockPoller{}, &mockCache{}, newMetrics(), serviceConfig)

	_, err := svc.Load(context.Background(), listContext())
	if err == nil || err.Error() != "anchor failed" {
		t.Fatalf("expected anchor error, got %v", err)
	}
}

func TestService_Page_CacheError(t *testing.T) {
	cache := &mockCache{
		getOrComputeFunc: func(ctx context.Context, key string, fn func(ctx context.Context) (search.SearchPage, error)) (search.SearchPage, error) {
			return search.SearchPage{}, errors.New("cache failed")
		},
	}
	svc := search.NewService(&mockEngine{}, &mockAnchors{}, &mockPoller{}, cache, newMetrics(), serviceConfig)

	_, err := svc.Page(context.Background(), listContext())
	if err == nil || err.Error() != "cache failed" {
		t.Fatalf("expected cache error, got %v", err)
	}
}

func TestService_Page_EngineError(t *testing.T) {
	engine := &mockEngine{
		reconcileFunc: func(ctx context.Context, sc models.SearchContext) (search.SearchPage, error) {
			return search.SearchPage{}, errors.New("engine failed")
		},
	}
	svc := search.NewService(engine, &mockAnchors{}, &mockPoller{}, &mockCache{}, newMetrics(), serviceConfig)

	_, err := svc.Page(context.Background(), listContext())
	if err == nil || err.Error() != "engine failed" {
		t.Fatalf("expected engine error, got %v", err)
	}
}

func TestService_Page_Timeout(t *testing.T) {
	engine := &mockEngine{
		reconcileFunc: func(ctx context.Context, sc models.SearchContext) (search.SearchPage, error) {
			select {
			case <-ctx.Done():
				return search.SearchPage{}, ctx.Err()
			case <-time.After(200 * time.Millisecond):
				return search.EmptyPage(), nil
			}
		},
	}
	cfg := serviceConfig
	cfg.ComputeTimeout = 50 * time.Millisecond
	svc := search.NewService(engine, &mockAnchors{}, &mockPoller{}, &mockCache{}, newMetrics(), cfg)

	_, err := svc.Page(context.Background(), listContext())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline exceeded error, got %v", err)
	}
}

func TestService_Page_ConcurrentRequestsCollapse(t *testing.T) {
	release := make(chan struct{})
	engine := &mockEngine{
		reconcileFunc: func(ctx context.Context, sc models.SearchContext) (search.SearchPage, error) {
			<-release
			return search.EmptyPage(), nil
		},
	}
	m := newMetrics()
	svc := search.NewService(engine, &mockAnchors{}, &mockPoller{}, search.NewCoalescer(m, serviceConfig.ComputeTimeout), m, serviceConfig)

	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		go func() {
			svc.Page(context.Background(), listContext())
			done <- struct{}{}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	for i := 0; i < 5; i++ {
		<-done
	}
	if engine.counter != 1 {
		t.Fatalf("expected engine to run once for identical requests, got %d", engine.counter)
	}
}

func TestService_Refine_UsesRefineBudget(t *testing.T) {
	anchors := &mockAnchors{}
	svc := search.NewService(&mockEngine{}, anchors, &mockPoller{}, &mockCache{}, newMetrics(), serviceConfig)

	if _, err := svc.Refine(context.Background(), listContext()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(anchors.iterations) != 1 || anchors.iterations[0] != 3 {
		t.Fatalf("expected refine budget of 3, got %v", anchors.iterations)
	}
}

func TestService_Offers(t *testing.T) {
	var gotTarget search.AvailabilityTarget
	var gotIterations int
	poller := &mockPoller{
		pollFunc: func(ctx context.Context, sc models.SearchContext, target search.AvailabilityTarget, maxIterations int) (search.AvailabilityBatch, error) {
			gotTarget = target
			gotIterations = maxIterations
			return pricedBatch(target.HotelIDs, true), nil
		},
	}
	svc := search.NewService(&mockEngine{}, &mockAnchors{}, poller, &mockCache{}, newMetrics(), serviceConfig)

	batch, err := svc.Offers(context.Background(), listContext(), []string{"A", "B"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotTarget.HotelIDs) != 2 || gotIterations != 5 {
		t.Fatalf("unexpected poll target %+v / %d", gotTarget, gotIterations)
	}
	if batch.AvailableCount() != 2 {
		t.Fatalf("expected 2 priced hotels, got %d", batch.AvailableCount())
	}
}

func TestService_Offers_NoHotels(t *testing.T) {
	poller := &mockPoller{
		pollFunc: func(ctx context.Context, sc models.SearchContext, target search.AvailabilityTarget, maxIterations int) (search.AvailabilityBatch, error) {
			t.Fatal("poller should not run without hotel ids")
			return search.AvailabilityBatch{}, nil
		},
	}
	svc := search.NewService(&mockEngine{}, &mockAnchors{}, poller, &mockCache{}, newMetrics(), serviceConfig)

	batch, err := svc.Offers(context.Background(), listContext(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !batch.Status.Complete || len(batch.Results) != 0 {
		t.Fatalf("unexpected batch %+v", batch)
	}
}
