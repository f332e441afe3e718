package http

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/votsa/ssr/internal/continuation"
	"github.com/votsa/ssr/internal/identity"
	"github.com/votsa/ssr/internal/models"
	"github.com/votsa/ssr/internal/obs"
	"github.com/votsa/ssr/internal/search"
	"github.com/votsa/ssr/internal/validator"
)

type SearchService interface {
	Load(ctx context.Context, sc models.SearchContext) (search.PageLoad, error)
	Page(ctx context.Context, sc models.SearchContext) (search.SearchPage, error)
	Refine(ctx context.Context, sc models.SearchContext) (search.AnchorResult, error)
	Offers(ctx context.Context, sc models.SearchContext, hotelIDs []string) (search.AvailabilityBatch, error)
}

type SessionService interface {
	Create(ctx context.Context, sc models.SearchContext) (continuation.View, error)
	Get(ctx context.Context, searchID string) (continuation.View, error)
	LoadMore(ctx context.Context, searchID string) (continuation.View, error)
}

type Handler struct {
	svc         SearchService
	sessions    SessionService
	ratelimiter search.RateLimiter
	validator   *validator.Validator
	ids         identity.IDGenerator
	metrics     *obs.Metrics
	logger      *slog.Logger
}

func NewHandler(svc SearchService, sessions SessionService, rl search.RateLimiter, v *validator.Validator, ids identity.IDGenerator, m *obs.Metrics, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, sessions: sessions, ratelimiter: rl, validator: v, ids: ids, metrics: m, logger: logger}
}

// OffersResponse is the body of an offers refresh.
type OffersResponse struct {
	OfferEntities map[string]search.OfferEntity `json:"offerEntities"`
	Status        search.PollStatus             `json:"status"`
}

func (h *Handler) ipFromRequest(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func meta(r *http.Request) map[string]string {
	return map[string]string{"request_id": middleware.GetReqID(r.Context())}
}

// admit applies the per-IP rate limit and writes the 429 itself.
func (h *Handler) admit(w http.ResponseWriter, r *http.Request) bool {
	if h.ratelimiter.Allow(h.ipFromRequest(r)) {
		return true
	}
	h.metrics.IncRateLimitDrops()
	TooManyRequests(w, "rate limit exceeded", meta(r))
	return false
}

// searchContext normalizes and validates the request parameters. A fresh
// search id is issued unless reuse is allowed and the client sent one.
func (h *Handler) searchContext(r *http.Request, reuseSearchID bool) (models.SearchContext, error) {
	if err := r.ParseForm(); err != nil {
		return models.SearchContext{}, &models.ValidationError{Fields: []string{err.Error()}}
	}
	params := models.UserParamsFromQuery(r.Form)
	searchID := params.SearchID
	if !reuseSearchID || searchID == "" {
		searchID = h.ids.NewID()
	}
	sc := models.Normalize(params, searchID)
	if err := sc.Validate(h.validator); err != nil {
		return models.SearchContext{}, err
	}
	return sc, nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if search.IsUpstream(err) {
		h.logger.Warn("search failed", "request_id", middleware.GetReqID(r.Context()), "error", err)
	}
	writeServiceError(w, err, meta(r))
}

// Search serves the initial page load: anchor plus first page of results.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if !h.admit(w, r) {
		return
	}
	sc, err := h.searchContext(r, false)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.svc.Load(r.Context(), sc)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// SearchAPI returns one reconciled page for the given offset.
func (h *Handler) SearchAPI(w http.ResponseWriter, r *http.Request) {
	if !h.admit(w, r) {
		return
	}
	sc, err := h.searchContext(r, true)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page, err := h.svc.Page(r.Context(), sc)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) Anchor(w http.ResponseWriter, r *http.Request) {
	if !h.admit(w, r) {
		return
	}
	sc, err := h.searchContext(r, true)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.svc.Refine(r.Context(), sc)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) Offers(w http.ResponseWriter, r *http.Request) {
	if !h.admit(w, r) {
		return
	}
	sc, err := h.searchContext(r, true)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	hotelIDs := splitIDs(r.Form["hotelIds"])
	if len(hotelIDs) == 0 {
		BadRequest(w, "hotelIds is required", meta(r))
		return
	}

	batch, err := h.svc.Offers(r.Context(), sc, hotelIDs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, OffersResponse{OfferEntities: batch.Entities(), Status: batch.Status})
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if !h.admit(w, r) {
		return
	}
	sc, err := h.searchContext(r, false)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if sc.AnchorMode() {
		h.fail(w, r, search.ErrAnchorMode)
		return
	}

	view, err := h.sessions.Create(r.Context(), sc)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, view)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.Get(r.Context(), chi.URLParam(r, "searchId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) LoadMore(w http.ResponseWriter, r *http.Request) {
	if !h.admit(w, r) {
		return
	}
	view, err := h.sessions.LoadMore(r.Context(), chi.URLParam(r, "searchId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func splitIDs(raw []string) []string {
	var out []string
	for _, v := range raw {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				out = append(out, id)
			}
		}
	}
	return search.AppendUnique(nil, out...)
}
