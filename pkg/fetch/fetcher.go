// Package fetch executes single page requests against one upstream source
// and translates transport-level outcomes into PageResult envelopes.
// Retry policy lives in the pagination driver, not here.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/imobdata/coletor/pkg/logging"
	"github.com/imobdata/coletor/pkg/source"
)

// Prometheus metrics for page fetches.
var (
	fetchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coletor_fetch_requests_total",
		Help: "Total page fetches by source and HTTP status",
	}, []string{"source", "status"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coletor_fetch_duration_seconds",
		Help:    "Page fetch duration in seconds by source",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"source"})

	fetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coletor_fetch_errors_total",
		Help: "Total failed page fetches by source and error class",
	}, []string{"source", "class"})
)

// Fetcher performs one HTTP GET per page for a single source.
type Fetcher struct {
	cfg        source.Config
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates a fetcher for the given source.
func New(cfg source.Config) *Fetcher {
	return &Fetcher{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		logger: logging.NewLogger("fetch").With().Str("source", cfg.Name).Logger(),
	}
}

// FetchPage executes exactly one network call for exactly one page.
// Transport problems surface as PageResult.Success=false, never as a
// panic or error past this boundary.
func (f *Fetcher) FetchPage(ctx context.Context, req source.PageRequest) PageResult {
	start := time.Now()
	defer func() {
		fetchDuration.WithLabelValues(f.cfg.Name).Observe(time.Since(start).Seconds())
	}()

	endpoint, err := f.buildURL(req)
	if err != nil {
		// A malformed base URL is a config bug, but it still must not
		// escape as an error: the driver treats it as a failed page.
		return f.fail(ClassNetwork, fmt.Sprintf("build url: %v", err), start)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return f.fail(ClassNetwork, fmt.Sprintf("create request: %v", err), start)
	}
	for key, value := range f.cfg.Headers {
		httpReq.Header.Set(key, value)
	}

	f.logger.Debug().
		Int("page", req.Page).
		Str("url", endpoint).
		Msg("Fetching page")

	resp, err := f.httpClient.Do(httpReq)
	if err != nil {
		fetchRequestsTotal.WithLabelValues(f.cfg.Name, "network_error").Inc()
		return f.fail(ClassNetwork, fmt.Sprintf("http get: %v", err), start)
	}
	defer resp.Body.Close()

	fetchRequestsTotal.WithLabelValues(f.cfg.Name, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		class := classifyStatus(resp.StatusCode)
		if class.EndOfData() {
			f.logger.Debug().
				Int("page", req.Page).
				Int("status", resp.StatusCode).
				Msg("Source reports end of resource")
		} else {
			f.logger.Warn().
				Int("page", req.Page).
				Int("status", resp.StatusCode).
				Str("error_class", string(class)).
				Msg("Page fetch error")
		}
		return f.fail(class, fmt.Sprintf("status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)), start)
	}

	records, totalPages, err := f.decodeEnvelope(resp.Body)
	if err != nil {
		return f.fail(ClassNetwork, fmt.Sprintf("decode body: %v", err), start)
	}

	return PageResult{
		Success:    true,
		Records:    records,
		TotalPages: totalPages,
		Elapsed:    time.Since(start),
	}
}

// buildURL assembles the endpoint URL with pagination and filter params.
func (f *Fetcher) buildURL(req source.PageRequest) (string, error) {
	u, err := url.Parse(f.cfg.BaseURL)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set(f.cfg.PageParam, strconv.Itoa(req.Page))
	if f.cfg.PageSize > 0 {
		q.Set(f.cfg.PageSizeParam, strconv.Itoa(f.cfg.PageSize))
	}
	for key, value := range req.Filters {
		q.Set(key, value)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// decodeEnvelope extracts the record list and the optional total-pages
// field using the source's configured envelope keys. A bare top-level
// array is accepted for sources that skip the envelope.
func (f *Fetcher) decodeEnvelope(body io.Reader) ([]map[string]any, int, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, 0, fmt.Errorf("read body: %w", err)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		// Not an object; some endpoints answer the record list directly.
		var records []map[string]any
		if arrErr := json.Unmarshal(raw, &records); arrErr != nil {
			return nil, 0, fmt.Errorf("unmarshal envelope: %w", err)
		}
		return records, 0, nil
	}

	var records []map[string]any
	if rawRecords, ok := envelope[f.cfg.RecordsKey]; ok {
		if err := json.Unmarshal(rawRecords, &records); err != nil {
			return nil, 0, fmt.Errorf("unmarshal %s: %w", f.cfg.RecordsKey, err)
		}
	}

	totalPages := 0
	if rawTotal, ok := envelope[f.cfg.TotalPagesKey]; ok {
		var total float64
		if err := json.Unmarshal(rawTotal, &total); err == nil {
			totalPages = int(total)
		}
	}

	return records, totalPages, nil
}

// fail records error metrics and builds the failed result.
func (f *Fetcher) fail(class ErrorClass, msg string, start time.Time) PageResult {
	fetchErrorsTotal.WithLabelValues(f.cfg.Name, string(class)).Inc()
	return failure(class, msg, time.Since(start))
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (f *Fetcher) SetHTTPClient(client *http.Client) {
	f.httpClient = client
}
