package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Window is the trailing window over which the requests-per-minute budget
// is evaluated.
const Window = 60 * time.Second

// Prometheus metrics for rate gating.
var (
	rateGateThrottlesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coletor_rate_gate_throttles_total",
		Help: "Total requests delayed by the rate gate, by source",
	}, []string{"source"})

	rateGateWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coletor_rate_gate_wait_seconds",
		Help:    "Time spent waiting on the rate gate, by source",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"source"})
)

// Gate enforces a requests-per-minute budget per source against a Ledger.
type Gate struct {
	ledger Ledger
	limits map[string]int
	logger zerolog.Logger

	// now is replaceable for tests.
	now func() time.Time
}

// NewGate creates a gate over the given ledger. limits maps source name to
// its requests-per-minute budget; an unknown source is never gated.
func NewGate(ledger Ledger, limits map[string]int, logger zerolog.Logger) *Gate {
	if ledger == nil {
		panic("ledger cannot be nil")
	}
	copied := make(map[string]int, len(limits))
	for k, v := range limits {
		copied[k] = v
	}
	return &Gate{
		ledger: ledger,
		limits: copied,
		logger: logger,
		now:    time.Now,
	}
}

// CanProceed reports whether a request for the source fits the trailing
// window right now.
func (g *Gate) CanProceed(ctx context.Context, source string) (bool, error) {
	limit, ok := g.limits[source]
	if !ok || limit <= 0 {
		return true, nil
	}
	count, err := g.ledger.CountSince(ctx, source, g.now().Add(-Window))
	if err != nil {
		return false, fmt.Errorf("count ledger entries: %w", err)
	}
	return count < limit, nil
}

// WaitTime returns how long the caller should wait before the next request
// fits the budget; zero when CanProceed is true.
func (g *Gate) WaitTime(ctx context.Context, source string) (time.Duration, error) {
	ok, err := g.CanProceed(ctx, source)
	if err != nil {
		return 0, err
	}
	if ok {
		return 0, nil
	}

	cutoff := g.now().Add(-Window)
	oldest, found, err := g.ledger.OldestSince(ctx, source, cutoff)
	if err != nil {
		return 0, fmt.Errorf("oldest ledger entry: %w", err)
	}
	if !found {
		return 0, nil
	}

	// The window frees a slot when the oldest entry ages out.
	wait := oldest.Add(Window).Sub(g.now())
	if wait < 0 {
		wait = 0
	}
	return wait, nil
}

// RecordCall appends "now" to the source's ledger. Call it once per
// request attempt, successful or not.
func (g *Gate) RecordCall(ctx context.Context, source string) error {
	return g.ledger.Record(ctx, source, g.now())
}

// Wait blocks until the source has budget or the context is cancelled.
func (g *Gate) Wait(ctx context.Context, source string) error {
	wait, err := g.WaitTime(ctx, source)
	if err != nil {
		return err
	}
	if wait <= 0 {
		return nil
	}

	rateGateThrottlesTotal.WithLabelValues(source).Inc()
	rateGateWaitSeconds.WithLabelValues(source).Observe(wait.Seconds())

	g.logger.Debug().
		Str("source", source).
		Dur("wait", wait).
		Msg("Rate gate throttling request")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}
