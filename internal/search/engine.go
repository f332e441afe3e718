package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/votsa/ssr/internal/models"
	"github.com/votsa/ssr/internal/obs"
)

// Engine reconciles the static candidate list with live availability into
// one page of available hotels.
type Engine struct {
	gateway       Gateway
	poller        *Poller
	maxIterations int
	metrics       *obs.Metrics
	logger        *slog.Logger
}

func NewEngine(g Gateway, p *Poller, maxIterations int, m *obs.Metrics, logger *slog.Logger) *Engine {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &Engine{gateway: g, poller: p, maxIterations: maxIterations, metrics: m, logger: logger}
}

func (e *Engine) Reconcile(ctx context.Context, sc models.SearchContext) (SearchPage, error) {
	if sc.AnchorMode() {
		return SearchPage{}, ErrAnchorMode
	}
	start := time.Now()

	// Pagination runs over the available subset, so candidates always start at 0.
	zero := 0
	static, err := e.gateway.FetchSearch(ctx, sc, SearchOverrides{
		PageSize:   StaticPageSize,
		Offset:     &zero,
		Attributes: staticAttributes,
	})
	if err != nil {
		return SearchPage{}, err
	}
	if len(static.HotelIDs) == 0 {
		e.logger.Info("no candidates", "search_id", sc.SearchID, "place_id", sc.PlaceID)
		return EmptyPage(), nil
	}

	priority := PriorityIDs(sc, static)
	requestIDs := RequestHotelIDs(sc.Offset, priority, static.HotelIDs)

	batch, err := e.poller.Poll(ctx, sc, AvailabilityTarget{HotelIDs: requestIDs}, e.maxIterations)
	if err != nil {
		return SearchPage{}, err
	}

	available := dedupeEntities(batch.Available())
	page := BuildPage(sc.Offset, available, static.HotelEntities)
	page.HasMoreResults = HasMoreResults(sc.Offset, len(available), len(priority))

	e.metrics.ObserveAvailableHotels(len(available))
	e.logger.Info("search reconciled",
		"search_id", sc.SearchID,
		"offset", sc.Offset,
		"candidates", len(static.HotelIDs),
		"priority", len(priority),
		"requested", len(requestIDs),
		"available", len(available),
		"returned", len(page.HotelIDs),
		"has_more", page.HasMoreResults,
		"complete", batch.Status.Complete,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return page, nil
}

// PriorityIDs collects tagged candidates, in order, for first-page searches
// with the default occupancy. Any other search has no priority subset.
func PriorityIDs(sc models.SearchContext, static StaticResults) []string {
	if sc.Rooms != models.DefaultRooms || sc.Offset != 0 {
		return nil
	}
	var ids []string
	for _, id := range static.HotelIDs {
		if h, ok := static.HotelEntities[id]; ok && len(h.Tags) > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// RequestPageSize is the number of hotel ids submitted per availability poll.
func RequestPageSize(offset int) int {
	return Threshold(offset)
}

// RequestHotelIDs picks the ids to poll: a padded window of the priority
// subset when it is large enough to paginate, else every candidate.
func RequestHotelIDs(offset int, priority, all []string) []string {
	size := RequestPageSize(offset)
	if len(priority) > size {
		return window(priority, offset, size+ClientPageOffset)
	}
	return all
}

// HasMoreResults compares both the available subset and the priority subset
// against the end of the current client page.
func HasMoreResults(offset, availableCount, priorityCount int) bool {
	end := offset + ClientPageSize
	return availableCount > end || priorityCount > end
}

// BuildPage slices one client page out of the available entities. Ids without
// a candidate hotel are skipped so every returned id has a hotel entity.
func BuildPage(offset int, available []OfferEntity, hotels map[string]Hotel) SearchPage {
	page := EmptyPage()
	start, end := bounds(len(available), offset, ClientPageSize)
	for _, entity := range available[start:end] {
		hotel, ok := hotels[entity.ID]
		if !ok {
			continue
		}
		page.HotelIDs = append(page.HotelIDs, entity.ID)
		page.HotelEntities[entity.ID] = hotel
		page.OfferEntities[entity.ID] = entity
	}
	return page
}

func window(ids []string, offset, n int) []string {
	start, end := bounds(len(ids), offset, n)
	return ids[start:end]
}

func bounds(length, offset, n int) (int, int) {
	start := offset
	if start < 0 {
		start = 0
	}
	if start > length {
		start = length
	}
	end := start + n
	if end > length {
		end = length
	}
	return start, end
}

func dedupeEntities(entities []OfferEntity) []OfferEntity {
	seen := make(map[string]struct{}, len(entities))
	out := entities[:0:0]
	for _, e := range entities {
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out
}
