package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/votsa/ssr/internal/identity"
	"github.com/votsa/ssr/internal/models"
	"github.com/votsa/ssr/internal/obs"
	"github.com/votsa/ssr/internal/search"
)

const (
	OpSearch       = "search"
	OpAnchor       = "anchor"
	OpAvailability = "availability"
)

type UpstreamConfig struct {
	SearchURL          string
	AvailabilityURL    string
	APIKey             string
	Currency           string
	Language           string
	Brand              string
	DeviceType         string
	ProfileID          string
	CugDeals           string
	Tier               string
	DefaultCountryCode string
}

// Upstream talks to the remote search and availability APIs.
type Upstream struct {
	cfg     UpstreamConfig
	client  *http.Client
	ids     identity.IDGenerator
	metrics *obs.Metrics
	logger  *slog.Logger
}

func NewUpstream(cfg UpstreamConfig, client *http.Client, ids identity.IDGenerator, m *obs.Metrics, logger *slog.Logger) *Upstream {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Upstream{cfg: cfg, client: client, ids: ids, metrics: m, logger: logger}
}

func (u *Upstream) FetchSearch(ctx context.Context, sc models.SearchContext, o search.SearchOverrides) (search.StaticResults, error) {
	q := u.query(ctx, sc)
	if o.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(o.PageSize))
	}
	if o.Offset != nil {
		q.Set("offset", strconv.Itoa(*o.Offset))
	}
	if o.Attributes != "" {
		q.Set("attributes", o.Attributes)
	}

	var out search.StaticResults
	if err := u.get(ctx, OpSearch, u.cfg.SearchURL+"/search", q, &out); err != nil {
		return search.StaticResults{}, err
	}
	if out.HotelEntities == nil {
		out.HotelEntities = map[string]search.Hotel{}
	}
	return out, nil
}

func (u *Upstream) FetchAnchor(ctx context.Context, sc models.SearchContext) (search.AnchorResponse, error) {
	var out search.AnchorResponse
	if err := u.get(ctx, OpAnchor, u.cfg.SearchURL+"/anchor", u.query(ctx, sc), &out); err != nil {
		return search.AnchorResponse{}, err
	}
	return out, nil
}

func (u *Upstream) FetchAvailability(ctx context.Context, sc models.SearchContext, target search.AvailabilityTarget, sessionID string) (search.AvailabilityBatch, error) {
	q := u.query(ctx, sc)
	if target.AnchorHotelID != "" {
		q.Set("anchorHotelId", target.AnchorHotelID)
	} else {
		q.Set("hotelIds", strings.Join(target.HotelIDs, ","))
	}
	if sessionID != "" {
		q.Set("sessionId", sessionID)
	}
	if u.ids != nil {
		q.Set("clientRequestId", u.ids.NewID())
	}

	var out search.AvailabilityBatch
	if err := u.get(ctx, OpAvailability, u.cfg.AvailabilityURL+"/offers/poll", q, &out); err != nil {
		return search.AvailabilityBatch{}, err
	}
	return out, nil
}

func (u *Upstream) query(ctx context.Context, sc models.SearchContext) url.Values {
	q := sc.Values()

	user, _ := identity.FromContext(ctx)
	if user.AnonymousID != "" {
		q.Set("anonymousId", user.AnonymousID)
	}
	country := user.CountryCode
	if country == "" {
		country = u.cfg.DefaultCountryCode
	}

	models.SetString(q, "countryCode", country)
	models.SetString(q, "currency", u.cfg.Currency)
	models.SetString(q, "language", u.cfg.Language)
	models.SetString(q, "brand", u.cfg.Brand)
	models.SetString(q, "deviceType", u.cfg.DeviceType)
	models.SetString(q, "profileId", u.cfg.ProfileID)
	models.SetString(q, "cugDeals", u.cfg.CugDeals)
	models.SetString(q, "tier", u.cfg.Tier)
	return q
}

func (u *Upstream) get(ctx context.Context, op, endpoint string, q url.Values, out any) error {
	start := time.Now()
	err := u.do(ctx, op, endpoint, q, out)
	u.metrics.ObserveUpstreamLatency(op, time.Since(start).Seconds())
	if err != nil {
		u.metrics.IncUpstreamFailure(op)
		u.logger.Warn("upstream call failed", "op", op, "error", err)
	}
	return err
}

func (u *Upstream) do(ctx context.Context, op, endpoint string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return &search.UpstreamError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if u.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", u.cfg.APIKey)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &search.UpstreamError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &search.UpstreamError{Op: op, StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &search.UpstreamError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}
