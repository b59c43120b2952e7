package fetch

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/imobdata/coletor/internal/testutil"
	"github.com/imobdata/coletor/pkg/source"
)

func testConfig(baseURL string) source.Config {
	return source.Config{
		Name:            "cv_vendas",
		BaseURL:         baseURL + "/vendas",
		Headers:         map[string]string{"accept": "application/json", "email": "x@y.com", "token": "t"},
		RateLimitPerMin: 20,
		PageSize:        100,
		PageParam:       "pagina",
		PageSizeParam:   "registros_por_pagina",
		RecordsKey:      "dados",
		TotalPagesKey:   "total_de_paginas",
		RequestTimeout:  5 * time.Second,
	}
}

func TestFetchPage_Success(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.SetPaginated("/vendas", [][]map[string]any{
		testutil.RecordsPage(1, 3),
	}, true)

	fetcher := New(testConfig(mock.URL()))
	result := fetcher.FetchPage(context.Background(), source.NewPageRequest(1, nil))

	if !result.Success {
		t.Fatalf("FetchPage() failed: %s", result.Err)
	}
	if len(result.Records) != 3 {
		t.Errorf("len(Records) = %d, want 3", len(result.Records))
	}
	if result.TotalPages != 1 {
		t.Errorf("TotalPages = %d, want 1", result.TotalPages)
	}
	if result.Elapsed <= 0 {
		t.Error("Elapsed not recorded")
	}
}

func TestFetchPage_QueryParameters(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	mock.SetPaginated("/vendas", [][]map[string]any{testutil.RecordsPage(1, 1)}, false)

	fetcher := New(testConfig(mock.URL()))
	filters := map[string]string{"data_inicio": "2025-01-01", "data_fim": "2025-06-30"}
	result := fetcher.FetchPage(context.Background(), source.NewPageRequest(2, filters))

	if !result.Success {
		t.Fatalf("FetchPage() failed: %s", result.Err)
	}

	query := mock.LastQuery
	if got := query.Get("pagina"); got != "2" {
		t.Errorf("pagina = %q, want 2", got)
	}
	if got := query.Get("registros_por_pagina"); got != "100" {
		t.Errorf("registros_por_pagina = %q, want 100", got)
	}
	if got := query.Get("data_inicio"); got != "2025-01-01" {
		t.Errorf("data_inicio = %q, want 2025-01-01", got)
	}
}

func TestFetchPage_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantClass ErrorClass
		wantEnd   bool
	}{
		{
			name:      "404 classified as end of data",
			status:    http.StatusNotFound,
			wantClass: ClassNotFound,
			wantEnd:   true,
		},
		{
			name:      "410 classified as end of data",
			status:    http.StatusGone,
			wantClass: ClassNotFound,
			wantEnd:   true,
		},
		{
			name:      "401 classified as client error",
			status:    http.StatusUnauthorized,
			wantClass: ClassClient,
			wantEnd:   false,
		},
		{
			name:      "429 classified as client error",
			status:    http.StatusTooManyRequests,
			wantClass: ClassClient,
			wantEnd:   false,
		},
		{
			name:      "500 classified as server error",
			status:    http.StatusInternalServerError,
			wantClass: ClassServer,
			wantEnd:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockAPI()
			defer mock.Close()
			mock.SetResponse("/vendas", testutil.MockResponse{
				StatusCode: tt.status,
				Body:       `{"error": "x"}`,
			})

			fetcher := New(testConfig(mock.URL()))
			result := fetcher.FetchPage(context.Background(), source.NewPageRequest(1, nil))

			if result.Success {
				t.Fatal("FetchPage() succeeded on error status")
			}
			if len(result.Records) != 0 {
				t.Errorf("failed result carries %d records, want 0", len(result.Records))
			}
			if result.ErrClass != tt.wantClass {
				t.Errorf("ErrClass = %q, want %q", result.ErrClass, tt.wantClass)
			}
			if result.ErrClass.EndOfData() != tt.wantEnd {
				t.Errorf("EndOfData() = %v, want %v", result.ErrClass.EndOfData(), tt.wantEnd)
			}
		})
	}
}

func TestFetchPage_MalformedBody(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/vendas", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"dados": not json`,
	})

	fetcher := New(testConfig(mock.URL()))
	result := fetcher.FetchPage(context.Background(), source.NewPageRequest(1, nil))

	if result.Success {
		t.Fatal("FetchPage() succeeded on malformed body")
	}
	if result.ErrClass != ClassNetwork {
		t.Errorf("ErrClass = %q, want %q", result.ErrClass, ClassNetwork)
	}
}

func TestFetchPage_TopLevelArray(t *testing.T) {
	// The Sienge bulk endpoints sometimes answer the record list directly.
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/vendas", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `[{"id": 1}, {"id": 2}]`,
	})

	fetcher := New(testConfig(mock.URL()))
	result := fetcher.FetchPage(context.Background(), source.NewPageRequest(1, nil))

	if !result.Success {
		t.Fatalf("FetchPage() failed: %s", result.Err)
	}
	if len(result.Records) != 2 {
		t.Errorf("len(Records) = %d, want 2", len(result.Records))
	}
	if result.TotalPages != 0 {
		t.Errorf("TotalPages = %d for array response, want 0", result.TotalPages)
	}
}

func TestFetchPage_NetworkError(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.RequestTimeout = 500 * time.Millisecond

	fetcher := New(cfg)
	result := fetcher.FetchPage(context.Background(), source.NewPageRequest(1, nil))

	if result.Success {
		t.Fatal("FetchPage() succeeded against a closed port")
	}
	if result.ErrClass != ClassNetwork {
		t.Errorf("ErrClass = %q, want %q", result.ErrClass, ClassNetwork)
	}
}

func TestFetchPage_SendsConfiguredHeaders(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	var gotEmail, gotToken string
	mock.SetHandler("/vendas", func(w http.ResponseWriter, r *http.Request) {
		gotEmail = r.Header.Get("email")
		gotToken = r.Header.Get("token")
		w.Write([]byte(`{"dados": []}`))
	})

	fetcher := New(testConfig(mock.URL()))
	result := fetcher.FetchPage(context.Background(), source.NewPageRequest(1, nil))

	if !result.Success {
		t.Fatalf("FetchPage() failed: %s", result.Err)
	}
	if gotEmail != "x@y.com" || gotToken != "t" {
		t.Errorf("auth headers = (%q, %q), want (x@y.com, t)", gotEmail, gotToken)
	}
}
