package continuation_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/votsa/ssr/internal/continuation"
	"github.com/votsa/ssr/internal/models"
	"github.com/votsa/ssr/internal/obs"
	"github.com/votsa/ssr/internal/search"
)

func newPagedSource(total int) *mockPages {
	return &mockPages{
		pageFunc: func(ctx context.Context, sc models.SearchContext) (search.SearchPage, error) {
			end := sc.Offset + search.ClientPageSize
			if end > total {
				end = total
			}
			if sc.Offset >= end {
				return search.EmptyPage(), nil
			}
			return pageOf(ids("h", sc.Offset, end), total > end), nil
		},
	}
}

func TestSessions_CreateAndLoadMore(t *testing.T) {
	store := continuation.NewMemoryStore(time.Minute)
	sessions := continuation.NewSessions(store, newPagedSource(45), &mockOffers{}, obs.Discard())
	ctx := context.Background()

	sc := searchContext().WithOffset(40)
	view, err := sessions.Create(ctx, sc)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(view.Hotels) != 20 || view.Status != continuation.StatusReady || view.SearchParams.Offset != 0 {
		t.Fatalf("unexpected first view %+v", view.Status)
	}

	view, err = sessions.LoadMore(ctx, "s-1")
	if err != nil {
		t.Fatalf("load more: %v", err)
	}
	if len(view.Hotels) != 40 || view.Page != 2 {
		t.Fatalf("expected 40 hotels on page 2, got %d on %d", len(view.Hotels), view.Page)
	}

	view, err = sessions.LoadMore(ctx, "s-1")
	if err != nil {
		t.Fatalf("load more: %v", err)
	}
	if len(view.Hotels) != 45 || view.Status != continuation.StatusExhausted {
		t.Fatalf("expected exhausted with 45 hotels, got %d %s", len(view.Hotels), view.Status)
	}

	got, err := sessions.Get(ctx, "s-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Hotels) != 45 {
		t.Fatalf("expected saved state, got %d hotels", len(got.Hotels))
	}

	if _, err := sessions.LoadMore(ctx, "s-1"); !errors.Is(err, continuation.ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
}

func TestSessions_UnknownSearch(t *testing.T) {
	sessions := continuation.NewSessions(continuation.NewMemoryStore(time.Minute), newPagedSource(10), &mockOffers{}, obs.Discard())

	if _, err := sessions.Get(context.Background(), "nope"); !errors.Is(err, continuation.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := sessions.LoadMore(context.Background(), "nope"); !errors.Is(err, continuation.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessions_CreateError(t *testing.T) {
	boom := errors.New("upstream down")
	pages := &mockPages{
		pageFunc: func(ctx context.Context, sc models.SearchContext) (search.SearchPage, error) {
			return search.SearchPage{}, boom
		},
	}
	store := continuation.NewMemoryStore(time.Minute)
	sessions := continuation.NewSessions(store, pages, &mockOffers{}, obs.Discard())

	if _, err := sessions.Create(context.Background(), searchContext()); !errors.Is(err, boom) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if _, err := store.Load(context.Background(), "s-1"); !errors.Is(err, continuation.ErrSessionNotFound) {
		t.Fatal("failed create must not save a session")
	}
}

func TestSessions_ConcurrentLoadMore(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	pages := &mockPages{
		pageFunc: func(ctx context.Context, sc models.SearchContext) (search.SearchPage, error) {
			if sc.Offset > 0 {
				once.Do(func() { close(entered) })
				<-release
			}
			return pageOf(ids("h", sc.Offset, sc.Offset+20), true), nil
		},
	}
	sessions := continuation.NewSessions(continuation.NewMemoryStore(time.Minute), pages, &mockOffers{}, obs.Discard())
	if _, err := sessions.Create(context.Background(), searchContext()); err != nil {
		t.Fatalf("create: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := sessions.LoadMore(context.Background(), "s-1")
		done <- err
	}()
	<-entered

	if _, err := sessions.LoadMore(context.Background(), "s-1"); !errors.Is(err, continuation.ErrLoadInProgress) {
		t.Fatalf("expected ErrLoadInProgress, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("load more: %v", err)
	}
}

func TestSessions_LoadMoreLogsRefreshFailure(t *testing.T) {
	offers := &mockOffers{
		offersFunc: func(ctx context.Context, sc models.SearchContext, hotelIDs []string) (search.AvailabilityBatch, error) {
			if sc.Offset > 0 {
				return search.AvailabilityBatch{}, errors.New("poll failed")
			}
			return search.AvailabilityBatch{Status: search.PollStatus{Complete: true}}, nil
		},
	}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	sessions := continuation.NewSessions(continuation.NewMemoryStore(time.Minute), newPagedSource(45), offers, logger)

	if _, err := sessions.Create(context.Background(), searchContext()); err != nil {
		t.Fatalf("create: %v", err)
	}
	view, err := sessions.LoadMore(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("refresh failure must not fail load more: %v", err)
	}
	if len(view.Hotels) != 40 || view.IsComplete {
		t.Fatalf("expected 40 incomplete hotels, got %d complete=%v", len(view.Hotels), view.IsComplete)
	}

	out := buf.String()
	if !strings.Contains(out, "offers refresh failed") || !strings.Contains(out, "poll failed") {
		t.Fatalf("expected refresh failure to be logged, got %q", out)
	}
}
