package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/votsa/ssr/internal/models"
	"github.com/votsa/ssr/internal/obs"
)

// Sleeper waits between poll rounds. Implementations return early with
// ctx.Err() when the context is cancelled.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Poller drives repeated availability rounds against a fixed target until the
// upstream reports completion, enough hotels are priced, or rounds run out.
type Poller struct {
	gateway Gateway
	delay   time.Duration
	sleeper Sleeper
	metrics *obs.Metrics
	logger  *slog.Logger
}

type PollerOption func(*Poller)

// WithDelay sets a constant wait between rounds. The default is no wait.
func WithDelay(d time.Duration) PollerOption {
	return func(p *Poller) { p.delay = d }
}

func WithSleeper(s Sleeper) PollerOption {
	return func(p *Poller) { p.sleeper = s }
}

func NewPoller(g Gateway, m *obs.Metrics, logger *slog.Logger, opts ...PollerOption) *Poller {
	p := &Poller{gateway: g, sleeper: timerSleeper{}, metrics: m, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Threshold is the number of priced hotels after which a poll may stop early.
func Threshold(offset int) int {
	if offset == 0 {
		return FirstPageThreshold
	}
	return ClientPageSize
}

// Poll runs at most maxIterations rounds and returns the last batch. Running
// out of rounds is not an error; a failed round aborts the poll.
func (p *Poller) Poll(ctx context.Context, sc models.SearchContext, target AvailabilityTarget, maxIterations int) (AvailabilityBatch, error) {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	threshold := Threshold(sc.Offset)
	sessionID := ""

	for iteration := 1; ; iteration++ {
		batch, err := p.gateway.FetchAvailability(ctx, sc, target, sessionID)
		if err != nil {
			return AvailabilityBatch{}, err
		}
		if batch.SessionID != "" {
			sessionID = batch.SessionID
		}

		available := batch.AvailableCount()
		p.logger.Debug("availability round",
			"search_id", sc.SearchID,
			"round", iteration,
			"available", available,
			"complete", batch.Status.Complete,
		)

		if iteration >= maxIterations || batch.Status.Complete || (available >= threshold && iteration > 1) {
			p.metrics.ObservePollRounds(iteration)
			return batch, nil
		}

		if p.delay > 0 {
			if err := p.sleeper.Sleep(ctx, p.delay); err != nil {
				return AvailabilityBatch{}, err
			}
		}
	}
}
