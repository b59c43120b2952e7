package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/imobdata/coletor/pkg/quota"
)

func TestTableName(t *testing.T) {
	tests := []struct {
		source   string
		override string
		want     string
	}{
		{"cv_vendas", "", "raw_cv_vendas"},
		{"sienge_vendas", "", "raw_sienge_vendas"},
		{"cv_vendas", "vendas_staging", "vendas_staging"},
	}
	for _, tt := range tests {
		if got := tableName(tt.source, tt.override); got != tt.want {
			t.Errorf("tableName(%q, %q) = %q, want %q", tt.source, tt.override, got, tt.want)
		}
	}
}

func TestExitCode(t *testing.T) {
	if got := exitCode(quota.ErrQuotaExceeded); got != 2 {
		t.Errorf("quota exhaustion should exit 2, got %d", got)
	}
	wrapped := fmt.Errorf("collection of sienge_vendas failed: %w", quota.ErrQuotaExceeded)
	if got := exitCode(wrapped); got != 2 {
		t.Errorf("wrapped quota error should exit 2, got %d", got)
	}
	if got := exitCode(errors.New("boom")); got != 1 {
		t.Errorf("generic error should exit 1, got %d", got)
	}
}

func TestDateFilters(t *testing.T) {
	filters, err := dateFilters("2025-01-01", "2025-06-30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters["a_partir_de"] != "2025-01-01" || filters["ate"] != "2025-06-30" {
		t.Errorf("unexpected filters: %v", filters)
	}

	filters, err = dateFilters("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters != nil {
		t.Errorf("expected nil filters for empty range, got %v", filters)
	}

	if _, err := dateFilters("01/06/2025", ""); err == nil {
		t.Error("expected error for non-ISO date")
	}
}

func TestLoadConfigsDefaults(t *testing.T) {
	cfgFile = ""
	configs, err := loadConfigs()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := configs["cv_vendas"]; !ok {
		t.Error("built-in defaults should include cv_vendas")
	}
}
