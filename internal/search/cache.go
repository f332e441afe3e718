package search

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/votsa/ssr/internal/obs"
)

type CacheService interface {
	GetOrCompute(ctx context.Context, key string, fn func(ctx context.Context) (SearchPage, error)) (SearchPage, error)
}

// Coalescer collapses concurrent identical page requests into one reconcile.
// Nothing is kept once the shared call returns.
type Coalescer struct {
	group   singleflight.Group
	timeout time.Duration
	metrics *obs.Metrics
}

// NewCoalescer bounds each shared call by timeout (30s when not positive).
func NewCoalescer(m *obs.Metrics, timeout time.Duration) *Coalescer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Coalescer{timeout: timeout, metrics: m}
}

func (c *Coalescer) GetOrCompute(ctx context.Context, key string, fn func(ctx context.Context) (SearchPage, error)) (SearchPage, error) {
	// The shared call outlives whichever caller started it; request values
	// such as the visitor identity still flow through.
	ch := c.group.DoChan(key, func() (any, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return fn(sctx)
	})

	select {
	case <-ctx.Done():
		return SearchPage{}, ctx.Err()
	case r := <-ch:
		if r.Shared && c.metrics != nil {
			c.metrics.IncCoalesced()
		}
		if r.Err != nil {
			return SearchPage{}, r.Err
		}
		return r.Val.(SearchPage), nil
	}
}
