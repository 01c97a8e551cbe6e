package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xtxerr/paylake/internal/aggregate"
	"github.com/xtxerr/paylake/internal/config"
	"github.com/xtxerr/paylake/internal/query"
)

func testServer(t *testing.T) (*Server, *config.Config) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Query.CacheTTL = 0
	cfg.Generation.StartDate = "2026-02-01"
	cfg.Generation.EndDate = "2026-02-01"

	svc, err := query.New(cfg, query.WithClock(func() time.Time {
		return time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	}))
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	t.Cleanup(func() { svc.Close() })

	return New(cfg, svc), cfg
}

func TestRevenueByPlanMissingTenantParam(t *testing.T) {
	srv, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/analytics/revenue-by-plan", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body["error"] != "missing tenant parameter" {
		t.Errorf("unexpected error message: %v", body["error"])
	}
}

func TestRevenueByPlanUnknownTenant(t *testing.T) {
	srv, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec,
		httptest.NewRequest("GET", "/api/analytics/revenue-by-plan?tenant=nobody", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res query.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if res.TenantID != "nobody" {
		t.Errorf("unexpected tenant_id: %s", res.TenantID)
	}
	if res.Rows == nil || len(res.Rows) != 0 {
		t.Errorf("expected empty non-nil rows, got %#v", res.Rows)
	}
}

func TestGenerateThenQuery(t *testing.T) {
	srv, _ := testServer(t)

	body := strings.NewReader(`{
		"total_record_count": 200,
		"worker_count": 4,
		"tenant_set": ["acme"],
		"plan_set": ["basic", "pro"],
		"seed": 7
	}`)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("POST", "/api/admin/generate", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("generate: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var gen struct {
		RecordsProcessed int64 `json:"records_processed"`
		FilesWritten     int64 `json:"files_written"`
		Workers          int   `json:"workers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &gen); err != nil {
		t.Fatalf("decode generate response: %v", err)
	}
	if gen.RecordsProcessed != 200 {
		t.Errorf("expected 200 records processed, got %d", gen.RecordsProcessed)
	}
	if gen.FilesWritten == 0 {
		t.Error("expected files to be written")
	}
	if gen.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", gen.Workers)
	}

	// All generated events fall on 2026-02-01, inside the pinned clock's
	// 30-day window, so the query must account for every record.
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec,
		httptest.NewRequest("GET", "/api/analytics/revenue-by-plan?tenant=acme", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("query: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res struct {
		TenantID string          `json:"tenant_id"`
		Rows     []aggregate.Row `json:"rows"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode query response: %v", err)
	}

	var payments int64
	for _, row := range res.Rows {
		if row.Plan != "basic" && row.Plan != "pro" {
			t.Errorf("unexpected plan %q", row.Plan)
		}
		payments += row.Payments
	}
	if payments != 200 {
		t.Errorf("expected 200 payments across plans, got %d", payments)
	}

	// Ranked by revenue descending.
	for i := 1; i < len(res.Rows); i++ {
		if res.Rows[i].Revenue > res.Rows[i-1].Revenue {
			t.Errorf("rows not sorted by revenue desc: %v", res.Rows)
		}
	}
}

func TestGenerateRejectsInvalidJSON(t *testing.T) {
	srv, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec,
		httptest.NewRequest("POST", "/api/admin/generate", strings.NewReader("{not json")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestExecuteSQLWithoutDuckDBEngine(t *testing.T) {
	srv, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec,
		httptest.NewRequest("POST", "/api/admin/sql", strings.NewReader(`{"sql":"SELECT 1"}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 with streaming engine, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("expected JSON content type, got %q", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec,
		httptest.NewRequest("DELETE", "/api/analytics/revenue-by-plan?tenant=acme", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	srv, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID response header")
	}
}
