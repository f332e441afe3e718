package providers

import (
	"context"
	"hash/fnv"
	"math/rand"
	"time"
)

func SampleLatencyFromRng(rng *rand.Rand, avg float64) time.Duration {
	ms := float64(50) + rng.ExpFloat64()*avg*200.0
	return time.Duration(ms) * time.Millisecond
}

func ShouldFailFromRng(rng *rand.Rand, rate float64) bool {
	return rng.Float64() < rate
}

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func hashOf(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
