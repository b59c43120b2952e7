package paginate

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/imobdata/coletor/pkg/fetch"
	"github.com/imobdata/coletor/pkg/logging"
	"github.com/imobdata/coletor/pkg/quota"
	"github.com/imobdata/coletor/pkg/ratelimit"
	"github.com/imobdata/coletor/pkg/source"
)

// Prometheus metrics for collection runs.
var (
	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coletor_pages_fetched_total",
		Help: "Total pages fetched by source",
	}, []string{"source"})

	recordsCollectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coletor_records_collected_total",
		Help: "Total raw records accumulated by source",
	}, []string{"source"})

	collectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coletor_collections_total",
		Help: "Collection runs by source and terminal state",
	}, []string{"source", "state"})

	collectionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coletor_collection_duration_seconds",
		Help:    "Collection run duration in seconds by source",
		Buckets: []float64{1, 5, 15, 60, 300, 900, 1800},
	}, []string{"source"})
)

// PageFetcher is the single-page fetch dependency. fetch.Fetcher is the
// production implementation; tests script their own.
type PageFetcher interface {
	FetchPage(ctx context.Context, req source.PageRequest) fetch.PageResult
}

// Driver runs the pagination state machine for one source.
type Driver struct {
	cfg     source.Config
	fetcher PageFetcher
	gate    *ratelimit.Gate
	quota   *quota.Counter
	logger  zerolog.Logger
}

// NewDriver creates a driver. gate may be nil to disable rate gating
// (tests); counter must be nil exactly when the source is not
// quota-capped.
func NewDriver(cfg source.Config, fetcher PageFetcher, gate *ratelimit.Gate, counter *quota.Counter) *Driver {
	if fetcher == nil {
		panic("fetcher cannot be nil")
	}
	return &Driver{
		cfg:     cfg,
		fetcher: fetcher,
		gate:    gate,
		quota:   counter,
		logger:  logging.NewLogger("paginate").With().Str("source", cfg.Name).Logger(),
	}
}

// CollectAll fetches every page of the source matching the filters and
// returns the accumulated raw records. One CollectAll is one logical
// request unit for quota purposes, regardless of how many pages it takes:
// the upstream bundles the entity filter into a single billable unit.
func (d *Driver) CollectAll(ctx context.Context, filters map[string]string) Outcome {
	start := time.Now()
	defer func() {
		collectionDuration.WithLabelValues(d.cfg.Name).Observe(time.Since(start).Seconds())
	}()

	// Fail closed before any network call when the budget is gone.
	if d.quota != nil && !d.quota.HasBudgetFor(1) {
		d.logger.Error().
			Int("used", d.quota.Used()).
			Int("remaining", d.quota.Remaining()).
			Msg("Quota exhausted - refusing collection run")
		return d.finish(Outcome{
			State: DoneQuota,
			Err:   fmt.Errorf("%w: %d units remaining", quota.ErrQuotaExceeded, d.quota.Remaining()),
		})
	}

	st := collectionState{page: 1}
	quotaConsumed := false

	d.logger.Info().
		Any("filters", filters).
		Msg("Starting collection")

	for {
		if err := ctx.Err(); err != nil {
			// Improvement over the production scripts, which discarded
			// everything on timeout: partial records are returned with
			// the error and the caller decides.
			return d.finish(Outcome{
				Records:      st.records,
				State:        DoneError,
				PagesFetched: st.pagesFetched,
				Err:          fmt.Errorf("collection cancelled at page %d: %w", st.page, err),
			})
		}

		if d.gate != nil {
			if err := d.gate.Wait(ctx, d.cfg.Name); err != nil {
				return d.finish(Outcome{
					Records:      st.records,
					State:        DoneError,
					PagesFetched: st.pagesFetched,
					Err:          fmt.Errorf("rate gate wait: %w", err),
				})
			}
			if err := d.gate.RecordCall(ctx, d.cfg.Name); err != nil {
				d.logger.Warn().Err(err).Msg("Failed to record call in rate ledger")
			}
		}

		result := d.fetcher.FetchPage(ctx, source.NewPageRequest(st.page, filters))
		st.pagesFetched++
		pagesFetchedTotal.WithLabelValues(d.cfg.Name).Inc()

		if !result.Success {
			if result.ErrClass.EndOfData() {
				d.logger.Info().
					Int("page", st.page).
					Int("records", len(st.records)).
					Msg("Source exhausted (end-of-resource status)")
				return d.finish(Outcome{
					Records:      st.records,
					State:        DoneExhausted,
					PagesFetched: st.pagesFetched,
				})
			}

			// One failed page aborts the whole collection. The production
			// pipeline behaves this way and the "retry" unit is rerunning
			// the scheduled job, so no per-page retry here.
			d.logger.Error().
				Int("page", st.page).
				Str("error_class", string(result.ErrClass)).
				Str("error", result.Err).
				Msg("Page fetch failed - aborting collection")
			return d.finish(Outcome{
				Records:      st.records,
				State:        DoneError,
				PagesFetched: st.pagesFetched,
				Err:          fmt.Errorf("page %d: %s error: %s", st.page, result.ErrClass, result.Err),
			})
		}

		if d.quota != nil && !quotaConsumed {
			d.quota.Consume(1)
			quotaConsumed = true
		}

		if done := d.evaluate(&st, result); done != "" {
			return d.finish(Outcome{
				Records:      st.records,
				State:        done,
				PagesFetched: st.pagesFetched,
			})
		}

		if st.page >= d.cfg.SafetyCap {
			d.logger.Warn().
				Int("page", st.page).
				Int("safety_cap", d.cfg.SafetyCap).
				Int("records", len(st.records)).
				Msg("Safety cap reached - stopping with partial results")
			return d.finish(Outcome{
				Records:      st.records,
				State:        DoneSafetyCap,
				PagesFetched: st.pagesFetched,
			})
		}

		st.page++
	}
}

// evaluate applies the stop-condition heuristics to a successful page and
// returns the terminal state, or "" to continue.
func (d *Driver) evaluate(st *collectionState, result fetch.PageResult) State {
	if len(result.Records) == 0 {
		st.emptyStreak++
		d.logger.Debug().
			Int("page", st.page).
			Int("empty_streak", st.emptyStreak).
			Msg("Empty page")
		if st.emptyStreak >= d.cfg.EmptyPageThreshold {
			d.logger.Info().
				Int("page", st.page).
				Int("records", len(st.records)).
				Msg("Source exhausted (empty-page streak)")
			return DoneExhausted
		}
		return ""
	}

	st.records = append(st.records, result.Records...)
	recordsCollectedTotal.WithLabelValues(d.cfg.Name).Add(float64(len(result.Records)))

	d.logger.Debug().
		Int("page", st.page).
		Int("page_records", len(result.Records)).
		Int("total_records", len(st.records)).
		Msg("Page collected")

	if result.TotalPages > 0 && st.page >= result.TotalPages {
		d.logger.Info().
			Int("page", st.page).
			Int("total_pages", result.TotalPages).
			Int("records", len(st.records)).
			Msg("Source exhausted (reported total pages)")
		return DoneExhausted
	}

	underFilled := d.cfg.PageSize > 0 && len(result.Records) < d.cfg.PageSize
	switch {
	case underFilled && d.cfg.UnderFillStops:
		d.logger.Info().
			Int("page", st.page).
			Int("page_records", len(result.Records)).
			Int("page_size", d.cfg.PageSize).
			Msg("Source exhausted (under-filled page)")
		return DoneExhausted
	case underFilled:
		// Conservative combined rule: under-fill alone is inconclusive,
		// but it counts toward the exhaustion streak.
		st.emptyStreak++
		if st.emptyStreak >= d.cfg.EmptyPageThreshold {
			return DoneExhausted
		}
	default:
		st.emptyStreak = 0
	}

	return ""
}

// finish records terminal-state metrics.
func (d *Driver) finish(o Outcome) Outcome {
	collectionsTotal.WithLabelValues(d.cfg.Name, string(o.State)).Inc()
	return o
}
