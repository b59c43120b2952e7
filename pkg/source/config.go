// Package source defines per-source configuration for the collection core.
// A Config describes one upstream paginated API (a CV CRM endpoint or a
// Sienge ERP endpoint); it is resolved once at startup and read-only
// afterwards.
package source

import (
	"fmt"
	"time"
)

// Default envelope keys and heuristics shared by the CV endpoints.
const (
	DefaultRecordsKey    = "dados"
	DefaultTotalPagesKey = "total_de_paginas"
	DefaultPageParam     = "pagina"
	DefaultPageSizeParam = "registros_por_pagina"

	// DefaultEmptyPageThreshold is the number of consecutive empty pages
	// treated as end of data. Observed values across the CV/Sienge clients
	// range 3-5; 3 is the conservative default.
	DefaultEmptyPageThreshold = 3

	// DefaultSafetyCap bounds worst-case page count against a misbehaving
	// source. Purely a runaway-loop guard, not a business rule.
	DefaultSafetyCap = 500

	// DefaultRequestTimeout is the per-request HTTP timeout.
	DefaultRequestTimeout = 30 * time.Second
)

// Config identifies one upstream API and the collection heuristics that
// apply to it. Immutable after Load.
type Config struct {
	// Name is the source identifier (e.g. "cv_vendas", "sienge_vendas").
	// Used for logging, metrics labels, and the rate-gate ledger key.
	Name string `mapstructure:"name"`

	// BaseURL is the full endpoint URL including path.
	BaseURL string `mapstructure:"base_url"`

	// Headers are sent verbatim on every request (accept, email/token or
	// authorization). Secrets arrive already resolved; loading them is the
	// config layer's job, not the fetcher's.
	Headers map[string]string `mapstructure:"headers"`

	// RateLimitPerMin is the requests-per-minute budget for this source.
	RateLimitPerMin int `mapstructure:"rate_limit_per_min"`

	// PageSize is the requested records per page. Zero means the source
	// does not accept a page-size parameter; under-fill detection is then
	// disabled.
	PageSize int `mapstructure:"page_size"`

	// PageParam and PageSizeParam name the pagination query parameters.
	PageParam     string `mapstructure:"page_param"`
	PageSizeParam string `mapstructure:"page_size_param"`

	// RecordsKey and TotalPagesKey name the response envelope fields. The
	// CV endpoints nest records under "dados" and may report
	// "total_de_paginas"; both are per-source configuration, not part of
	// the generic contract.
	RecordsKey    string `mapstructure:"records_key"`
	TotalPagesKey string `mapstructure:"total_pages_key"`

	// EmptyPageThreshold is the consecutive-empty-page count treated as
	// exhaustion.
	EmptyPageThreshold int `mapstructure:"empty_page_threshold"`

	// SafetyCap is the hard ceiling on page count per collection run.
	SafetyCap int `mapstructure:"safety_cap"`

	// UnderFillStops makes a page with fewer records than PageSize an
	// immediate exhaustion signal. When false (default), under-fill only
	// counts toward the empty-page streak. The source clients disagreed on
	// which behavior was intended, so it is a per-source flag.
	UnderFillStops bool `mapstructure:"under_fill_stops"`

	// QuotaDailyLimit and QuotaCostPerCall configure the hard daily cap
	// (Sienge only; zero limit means uncapped). Cost is the number of
	// monitored entities, because the upstream bills per filtered entity
	// rather than per HTTP call.
	QuotaDailyLimit  int `mapstructure:"quota_daily_limit"`
	QuotaCostPerCall int `mapstructure:"quota_cost_per_call"`

	// RequestTimeout is the per-request HTTP timeout.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("source name is required")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("source %s: base_url is required", c.Name)
	}
	if c.RateLimitPerMin <= 0 {
		return fmt.Errorf("source %s: rate_limit_per_min must be positive (got %d)", c.Name, c.RateLimitPerMin)
	}
	if c.PageSize < 0 {
		return fmt.Errorf("source %s: page_size must not be negative (got %d)", c.Name, c.PageSize)
	}
	if c.QuotaDailyLimit > 0 && c.QuotaCostPerCall <= 0 {
		return fmt.Errorf("source %s: quota_cost_per_call must be positive when quota_daily_limit is set", c.Name)
	}
	return nil
}

// QuotaCapped reports whether the source carries a hard daily call budget.
func (c Config) QuotaCapped() bool {
	return c.QuotaDailyLimit > 0
}

// withDefaults fills unset fields with the package defaults.
func (c Config) withDefaults() Config {
	if c.PageParam == "" {
		c.PageParam = DefaultPageParam
	}
	if c.PageSizeParam == "" {
		c.PageSizeParam = DefaultPageSizeParam
	}
	if c.RecordsKey == "" {
		c.RecordsKey = DefaultRecordsKey
	}
	if c.TotalPagesKey == "" {
		c.TotalPagesKey = DefaultTotalPagesKey
	}
	if c.EmptyPageThreshold <= 0 {
		c.EmptyPageThreshold = DefaultEmptyPageThreshold
	}
	if c.SafetyCap <= 0 {
		c.SafetyCap = DefaultSafetyCap
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	return c
}
