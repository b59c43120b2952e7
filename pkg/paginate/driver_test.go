package paginate

import (
	"context"
	"errors"
	"testing"

	"github.com/imobdata/coletor/pkg/fetch"
	"github.com/imobdata/coletor/pkg/quota"
	"github.com/imobdata/coletor/pkg/source"
)

// scriptedFetcher replays a fixed sequence of page results.
type scriptedFetcher struct {
	results []fetch.PageResult
	calls   int
}

func (f *scriptedFetcher) FetchPage(_ context.Context, req source.PageRequest) fetch.PageResult {
	f.calls++
	if req.Page > len(f.results) {
		// Running past the script means the driver failed to terminate.
		return fetch.PageResult{
			Success:  false,
			ErrClass: fetch.ClassServer,
			Err:      "scripted sequence exceeded",
		}
	}
	return f.results[req.Page-1]
}

func page(n int) fetch.PageResult {
	records := make([]map[string]any, n)
	for i := range records {
		records[i] = map[string]any{"id": i}
	}
	return fetch.PageResult{Success: true, Records: records}
}

func pageWithTotal(n, total int) fetch.PageResult {
	result := page(n)
	result.TotalPages = total
	return result
}

func notFound() fetch.PageResult {
	return fetch.PageResult{Success: false, ErrClass: fetch.ClassNotFound, Err: "status 404 Not Found"}
}

func serverError() fetch.PageResult {
	return fetch.PageResult{Success: false, ErrClass: fetch.ClassServer, Err: "status 500 Internal Server Error"}
}

func testDriverConfig() source.Config {
	return source.Config{
		Name:               "cv_vendas",
		BaseURL:            "http://example.test/vendas",
		RateLimitPerMin:    1000,
		PageSize:           100,
		EmptyPageThreshold: 3,
		SafetyCap:          50,
	}
}

func TestCollectAll_EmptyStreakExhaustion(t *testing.T) {
	// Three full pages, then empty pages up to the
	// threshold. Expect all records, DoneExhausted, six fetch calls.
	fetcher := &scriptedFetcher{results: []fetch.PageResult{
		page(100), page(100), page(100), page(0), page(0), page(0),
	}}
	driver := NewDriver(testDriverConfig(), fetcher, nil, nil)

	outcome := driver.CollectAll(context.Background(), nil)

	if outcome.State != DoneExhausted {
		t.Errorf("State = %s, want %s", outcome.State, DoneExhausted)
	}
	if len(outcome.Records) != 300 {
		t.Errorf("len(Records) = %d, want 300", len(outcome.Records))
	}
	if fetcher.calls != 6 {
		t.Errorf("fetch calls = %d, want 6", fetcher.calls)
	}
	if !outcome.Success() {
		t.Error("Success() = false for exhaustion, want true")
	}
}

func TestCollectAll_ExactlyThresholdEmptyPages(t *testing.T) {
	// A sequence of exactly threshold empty pages terminates right there.
	fetcher := &scriptedFetcher{results: []fetch.PageResult{
		page(0), page(0), page(0),
	}}
	driver := NewDriver(testDriverConfig(), fetcher, nil, nil)

	outcome := driver.CollectAll(context.Background(), nil)

	if outcome.State != DoneExhausted {
		t.Errorf("State = %s, want %s", outcome.State, DoneExhausted)
	}
	if fetcher.calls != 3 {
		t.Errorf("fetch calls = %d, want exactly the threshold 3", fetcher.calls)
	}
	if len(outcome.Records) != 0 {
		t.Errorf("len(Records) = %d, want 0", len(outcome.Records))
	}
}

func TestCollectAll_ReportedTotalPages(t *testing.T) {
	// The envelope reports total_de_paginas=2; the driver
	// stops after page 2 without the empty-page heuristic.
	fetcher := &scriptedFetcher{results: []fetch.PageResult{
		pageWithTotal(50, 2), pageWithTotal(50, 2),
	}}
	cfg := testDriverConfig()
	cfg.PageSize = 50
	driver := NewDriver(cfg, fetcher, nil, nil)

	outcome := driver.CollectAll(context.Background(), nil)

	if outcome.State != DoneExhausted {
		t.Errorf("State = %s, want %s", outcome.State, DoneExhausted)
	}
	if len(outcome.Records) != 100 {
		t.Errorf("len(Records) = %d, want 100", len(outcome.Records))
	}
	if fetcher.calls != 2 {
		t.Errorf("fetch calls = %d, want 2", fetcher.calls)
	}
}

func TestCollectAll_NotFoundIsExhaustion(t *testing.T) {
	fetcher := &scriptedFetcher{results: []fetch.PageResult{
		page(100), page(100), notFound(),
	}}
	driver := NewDriver(testDriverConfig(), fetcher, nil, nil)

	outcome := driver.CollectAll(context.Background(), nil)

	if outcome.State != DoneExhausted {
		t.Errorf("State = %s, want %s", outcome.State, DoneExhausted)
	}
	if len(outcome.Records) != 200 {
		t.Errorf("len(Records) = %d, want 200", len(outcome.Records))
	}
	if outcome.Err != nil {
		t.Errorf("Err = %v on exhaustion, want nil", outcome.Err)
	}
}

func TestCollectAll_ServerErrorAborts(t *testing.T) {
	// One failed page is fatal: partial records plus the error.
	fetcher := &scriptedFetcher{results: []fetch.PageResult{
		page(100), serverError(),
	}}
	driver := NewDriver(testDriverConfig(), fetcher, nil, nil)

	outcome := driver.CollectAll(context.Background(), nil)

	if outcome.State != DoneError {
		t.Errorf("State = %s, want %s", outcome.State, DoneError)
	}
	if len(outcome.Records) != 100 {
		t.Errorf("len(Records) = %d, want the 100 partial records", len(outcome.Records))
	}
	if outcome.Err == nil {
		t.Error("Err = nil on DoneError, want the page error")
	}
	if fetcher.calls != 2 {
		t.Errorf("fetch calls = %d, want 2 (no retry)", fetcher.calls)
	}
}

func TestCollectAll_SafetyCap(t *testing.T) {
	// safety_cap consecutive full pages stop at the cap as a success.
	results := make([]fetch.PageResult, 10)
	for i := range results {
		results[i] = page(100)
	}
	fetcher := &scriptedFetcher{results: results}
	cfg := testDriverConfig()
	cfg.SafetyCap = 5
	driver := NewDriver(cfg, fetcher, nil, nil)

	outcome := driver.CollectAll(context.Background(), nil)

	if outcome.State != DoneSafetyCap {
		t.Errorf("State = %s, want %s", outcome.State, DoneSafetyCap)
	}
	if fetcher.calls != 5 {
		t.Errorf("fetch calls = %d, want 5", fetcher.calls)
	}
	if len(outcome.Records) != 500 {
		t.Errorf("len(Records) = %d, want 500", len(outcome.Records))
	}
	if !outcome.Success() {
		t.Error("Success() = false for safety cap, want true (partial snapshot)")
	}
}

func TestCollectAll_UnderFillCountsTowardStreak(t *testing.T) {
	// An under-filled page followed by empty pages reaches exhaustion
	// no later than (page + threshold).
	fetcher := &scriptedFetcher{results: []fetch.PageResult{
		page(100), page(40), page(0), page(0),
	}}
	driver := NewDriver(testDriverConfig(), fetcher, nil, nil)

	outcome := driver.CollectAll(context.Background(), nil)

	if outcome.State != DoneExhausted {
		t.Errorf("State = %s, want %s", outcome.State, DoneExhausted)
	}
	// Under-fill at page 2 contributes one toward the streak of 3, so the
	// two empty pages finish it at page 4.
	if fetcher.calls != 4 {
		t.Errorf("fetch calls = %d, want 4", fetcher.calls)
	}
	if len(outcome.Records) != 140 {
		t.Errorf("len(Records) = %d, want 140", len(outcome.Records))
	}
}

func TestCollectAll_UnderFillStopsImmediately(t *testing.T) {
	fetcher := &scriptedFetcher{results: []fetch.PageResult{
		page(100), page(40),
	}}
	cfg := testDriverConfig()
	cfg.UnderFillStops = true
	driver := NewDriver(cfg, fetcher, nil, nil)

	outcome := driver.CollectAll(context.Background(), nil)

	if outcome.State != DoneExhausted {
		t.Errorf("State = %s, want %s", outcome.State, DoneExhausted)
	}
	if fetcher.calls != 2 {
		t.Errorf("fetch calls = %d, want 2", fetcher.calls)
	}
	if len(outcome.Records) != 140 {
		t.Errorf("len(Records) = %d, want 140", len(outcome.Records))
	}
}

func TestCollectAll_FullPageResetsStreak(t *testing.T) {
	// Empty pages interleaved with full pages never accumulate a streak.
	fetcher := &scriptedFetcher{results: []fetch.PageResult{
		page(0), page(0), page(100), page(0), page(0), page(100),
		page(0), page(0), page(0),
	}}
	driver := NewDriver(testDriverConfig(), fetcher, nil, nil)

	outcome := driver.CollectAll(context.Background(), nil)

	if outcome.State != DoneExhausted {
		t.Errorf("State = %s, want %s", outcome.State, DoneExhausted)
	}
	if fetcher.calls != 9 {
		t.Errorf("fetch calls = %d, want 9", fetcher.calls)
	}
	if len(outcome.Records) != 200 {
		t.Errorf("len(Records) = %d, want 200", len(outcome.Records))
	}
}

func TestCollectAll_Termination(t *testing.T) {
	// No finite scripted sequence loops forever. The scripted fetcher
	// answers a server error past its script, so every run must end within
	// the safety cap.
	sequences := [][]fetch.PageResult{
		{},
		{page(100)},
		{page(0)},
		{notFound()},
		{serverError()},
		{page(100), page(0), page(100), page(0)},
		{pageWithTotal(10, 3), pageWithTotal(10, 3), pageWithTotal(10, 3)},
	}

	for i, results := range sequences {
		fetcher := &scriptedFetcher{results: results}
		cfg := testDriverConfig()
		cfg.SafetyCap = 20
		driver := NewDriver(cfg, fetcher, nil, nil)

		outcome := driver.CollectAll(context.Background(), nil)

		if fetcher.calls > cfg.SafetyCap {
			t.Errorf("sequence %d: %d fetch calls, exceeded safety cap %d", i, fetcher.calls, cfg.SafetyCap)
		}
		switch outcome.State {
		case DoneExhausted, DoneSafetyCap, DoneError:
		default:
			t.Errorf("sequence %d: non-terminal state %s", i, outcome.State)
		}
	}
}

func TestCollectAll_QuotaExhaustedFailsClosed(t *testing.T) {
	// Sienge pattern: daily_limit=40, cost 8, two runs of two logical calls
	// each leave 8 units; one more call fits, and the run after that must
	// be refused before any network call.
	counter := quota.NewCounter("sienge_vendas", 40, 8)
	counter.Consume(2)
	counter.Consume(2)

	cfg := testDriverConfig()
	cfg.Name = "sienge_vendas"
	cfg.UnderFillStops = true
	fetcher := &scriptedFetcher{results: []fetch.PageResult{page(10)}}

	// 8 units remain, enough for one logical call but the run below
	// consumes it; the next run must be refused without fetching.
	driver := NewDriver(cfg, fetcher, nil, counter)
	outcome := driver.CollectAll(context.Background(), nil)
	if outcome.Failed() {
		t.Fatalf("run with remaining budget failed: %v", outcome.Err)
	}

	fetcher2 := &scriptedFetcher{results: []fetch.PageResult{page(10)}}
	driver2 := NewDriver(cfg, fetcher2, nil, counter)
	outcome2 := driver2.CollectAll(context.Background(), nil)

	if outcome2.State != DoneQuota {
		t.Errorf("State = %s, want %s", outcome2.State, DoneQuota)
	}
	if !errors.Is(outcome2.Err, quota.ErrQuotaExceeded) {
		t.Errorf("Err = %v, want ErrQuotaExceeded", outcome2.Err)
	}
	if fetcher2.calls != 0 {
		t.Errorf("fetch calls = %d after quota refusal, want 0", fetcher2.calls)
	}
}

func TestCollectAll_QuotaConsumedOncePerRun(t *testing.T) {
	counter := quota.NewCounter("sienge_vendas", 40, 8)

	cfg := testDriverConfig()
	cfg.Name = "sienge_vendas"
	fetcher := &scriptedFetcher{results: []fetch.PageResult{
		page(100), page(100), page(0), page(0), page(0),
	}}
	driver := NewDriver(cfg, fetcher, nil, counter)

	outcome := driver.CollectAll(context.Background(), nil)
	if outcome.Failed() {
		t.Fatalf("CollectAll() failed: %v", outcome.Err)
	}

	// Five pages, one logical request unit: 8, not 40.
	if counter.Used() != 8 {
		t.Errorf("quota Used() = %d after one multi-page run, want 8", counter.Used())
	}
}

func TestCollectAll_QuotaNotBurnedOnFailure(t *testing.T) {
	counter := quota.NewCounter("sienge_vendas", 40, 8)

	cfg := testDriverConfig()
	cfg.Name = "sienge_vendas"
	fetcher := &scriptedFetcher{results: []fetch.PageResult{serverError()}}
	driver := NewDriver(cfg, fetcher, nil, counter)

	outcome := driver.CollectAll(context.Background(), nil)
	if outcome.State != DoneError {
		t.Fatalf("State = %s, want %s", outcome.State, DoneError)
	}
	if counter.Used() != 0 {
		t.Errorf("quota Used() = %d after failed first page, want 0", counter.Used())
	}
}

func TestCollectAll_ContextCancelledReturnsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	fetcher := &cancellingFetcher{cancel: cancel, cancelAfter: 2}
	driver := NewDriver(testDriverConfig(), fetcher, nil, nil)

	outcome := driver.CollectAll(ctx, nil)

	if outcome.State != DoneError {
		t.Errorf("State = %s, want %s", outcome.State, DoneError)
	}
	if !errors.Is(outcome.Err, context.Canceled) {
		t.Errorf("Err = %v, want context.Canceled", outcome.Err)
	}
	if len(outcome.Records) != 200 {
		t.Errorf("len(Records) = %d, want the 200 partial records", len(outcome.Records))
	}
}

// cancellingFetcher cancels the context after serving cancelAfter pages.
type cancellingFetcher struct {
	cancel      context.CancelFunc
	cancelAfter int
	calls       int
}

func (f *cancellingFetcher) FetchPage(_ context.Context, _ source.PageRequest) fetch.PageResult {
	f.calls++
	if f.calls >= f.cancelAfter {
		f.cancel()
	}
	return page(100)
}

func TestOutcome_Success(t *testing.T) {
	tests := []struct {
		state State
		want  bool
	}{
		{DoneExhausted, true},
		{DoneSafetyCap, true},
		{DoneError, false},
		{DoneQuota, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			o := Outcome{State: tt.state}
			if o.Success() != tt.want {
				t.Errorf("Success() = %v for %s, want %v", o.Success(), tt.state, tt.want)
			}
		})
	}
}

func TestCollectAll_PagesSequential(t *testing.T) {
	var pages []int
	fetcher := &recordingFetcher{
		inner: &scriptedFetcher{results: []fetch.PageResult{
			page(100), page(100), page(0), page(0), page(0),
		}},
		pages: &pages,
	}
	driver := NewDriver(testDriverConfig(), fetcher, nil, nil)
	driver.CollectAll(context.Background(), nil)

	for i, p := range pages {
		if p != i+1 {
			t.Fatalf("page order %v: position %d fetched page %d, want %d", pages, i, p, i+1)
		}
	}
	if len(pages) != 5 {
		t.Errorf("fetched %d pages, want 5", len(pages))
	}
}

// recordingFetcher records the page numbers it is asked for.
type recordingFetcher struct {
	inner PageFetcher
	pages *[]int
}

func (f *recordingFetcher) FetchPage(ctx context.Context, req source.PageRequest) fetch.PageResult {
	*f.pages = append(*f.pages, req.Page)
	return f.inner.FetchPage(ctx, req)
}
