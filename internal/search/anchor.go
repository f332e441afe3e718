package search

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/votsa/ssr/internal/models"
)

// AnchorResult is the highlighted hotel or place shown above the list.
type AnchorResult struct {
	Anchor        *Anchor      `json:"anchor,omitempty"`
	AnchorHotelID string       `json:"anchorHotelId,omitempty"`
	AnchorType    string       `json:"anchorType,omitempty"`
	AnchorHotel   *Hotel       `json:"anchorHotel,omitempty"`
	OfferEntity   *OfferEntity `json:"offerEntity,omitempty"`
	OfferState    OfferState   `json:"offerState,omitempty"`
	IsComplete    bool         `json:"isComplete"`
}

type AnchorResolver struct {
	gateway Gateway
	poller  *Poller
	logger  *slog.Logger
}

func NewAnchorResolver(g Gateway, p *Poller, logger *slog.Logger) *AnchorResolver {
	return &AnchorResolver{gateway: g, poller: p, logger: logger}
}

// Resolve fetches the anchor and prices the anchor hotel with a small round
// budget. A search naming a hotel prices it while the anchor is still loading.
func (r *AnchorResolver) Resolve(ctx context.Context, sc models.SearchContext, maxIterations int) (AnchorResult, error) {
	if sc.HotelID != "" {
		var (
			anchor AnchorResponse
			batch  AvailabilityBatch
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			anchor, err = r.gateway.FetchAnchor(gctx, sc)
			return err
		})
		g.Go(func() error {
			var err error
			batch, err = r.poller.Poll(gctx, sc, AvailabilityTarget{AnchorHotelID: sc.HotelID}, maxIterations)
			return err
		})
		if err := g.Wait(); err != nil {
			return AnchorResult{}, err
		}
		return buildAnchorResult(anchor, sc.HotelID, &batch), nil
	}

	anchor, err := r.gateway.FetchAnchor(ctx, sc)
	if err != nil {
		return AnchorResult{}, err
	}
	if anchor.AnchorHotelID == "" {
		r.logger.Debug("anchor without hotel", "search_id", sc.SearchID, "anchor_type", anchor.AnchorType)
		return buildAnchorResult(anchor, "", nil), nil
	}

	batch, err := r.poller.Poll(ctx, sc, AvailabilityTarget{AnchorHotelID: anchor.AnchorHotelID}, maxIterations)
	if err != nil {
		return AnchorResult{}, err
	}
	return buildAnchorResult(anchor, anchor.AnchorHotelID, &batch), nil
}

func buildAnchorResult(resp AnchorResponse, hotelID string, batch *AvailabilityBatch) AnchorResult {
	out := AnchorResult{
		Anchor:        resp.Anchor,
		AnchorHotelID: hotelID,
		AnchorType:    resp.AnchorType,
		IsComplete:    true,
	}
	if hotelID == "" {
		return out
	}
	if h, ok := resp.HotelEntities[hotelID]; ok {
		out.AnchorHotel = &h
	}
	if batch != nil {
		out.IsComplete = batch.Status.Complete
		for i := range batch.Results {
			if batch.Results[i].ID == hotelID {
				entity := batch.Results[i]
				out.OfferEntity = &entity
				break
			}
		}
	}
	out.OfferState = StateOf(out.OfferEntity, out.IsComplete)
	return out
}
