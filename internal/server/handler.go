package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xtxerr/paylake/internal/generate"
	"github.com/xtxerr/paylake/internal/logging"
	"github.com/xtxerr/paylake/internal/parquet"
	"github.com/xtxerr/paylake/internal/query"
)

// handler builds the route table.
func (s *Server) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/analytics/revenue-by-plan", s.revenueByPlan)
	mux.HandleFunc("POST /api/admin/generate", s.generateData)
	mux.HandleFunc("POST /api/admin/sql", s.executeSQL)
	mux.HandleFunc("GET /healthz", s.healthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	return requestIDMiddleware(recoveryMiddleware(loggingMiddleware(mux)))
}

// GET /api/analytics/revenue-by-plan?tenant=<tenant_id>
//
// Returns the tenant's ranked revenue/payment rows over the recency
// window. Missing tenant is a 400; a tenant with no qualifying data is a
// 200 with empty rows.
func (s *Server) revenueByPlan(w http.ResponseWriter, r *http.Request) {
	requestID := logging.RequestID(r.Context())

	tenant := r.URL.Query().Get("tenant")
	ctx := logging.ContextWithTenant(r.Context(), tenant)

	res, err := s.svc.RevenueByPlan(ctx, tenant)
	if err != nil {
		if errors.Is(err, query.ErrMissingTenant) {
			writeError(w, http.StatusBadRequest, "missing tenant parameter", requestID)
			return
		}
		logging.WithContext(ctx).Error("query failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error(), requestID)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// generateRequest overrides generation config per run. Zero values fall
// back to the configured defaults.
type generateRequest struct {
	TotalRecords int      `json:"total_record_count"`
	Workers      int      `json:"worker_count"`
	Tenants      []string `json:"tenant_set"`
	Plans        []string `json:"plan_set"`
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date"`
	AmountMin    float64  `json:"amount_min"`
	AmountMax    float64  `json:"amount_max"`
	Seed         int64    `json:"seed"`
}

// generateResponse reports merged completion statistics.
type generateResponse struct {
	RecordsProcessed int64   `json:"records_processed"`
	FilesWritten     int64   `json:"files_written"`
	DurationMs       int64   `json:"duration_ms"`
	Workers          int     `json:"workers"`
	WriteP50Ms       float64 `json:"write_p50_ms"`
	WriteP95Ms       float64 `json:"write_p95_ms"`
	WriteP99Ms       float64 `json:"write_p99_ms"`
}

// POST /api/admin/generate — runs the parallel write pipeline.
//
// The run is synchronous and non-transactional: on worker failure the
// response is a 500 naming the failed worker and range, and files already
// written stay on disk.
func (s *Server) generateData(w http.ResponseWriter, r *http.Request) {
	requestID := logging.RequestID(r.Context())

	var req generateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err), requestID)
			return
		}
	}

	genCfg := s.cfg.Generation
	if req.TotalRecords > 0 {
		genCfg.TotalRecords = req.TotalRecords
	}
	if req.Workers > 0 {
		genCfg.Workers = req.Workers
	}
	if len(req.Tenants) > 0 {
		genCfg.Tenants = req.Tenants
	}
	if len(req.Plans) > 0 {
		genCfg.Plans = req.Plans
	}
	if req.StartDate != "" {
		genCfg.StartDate = req.StartDate
	}
	if req.EndDate != "" {
		genCfg.EndDate = req.EndDate
	}
	if req.AmountMin > 0 {
		genCfg.AmountMin = req.AmountMin
	}
	if req.AmountMax > 0 {
		genCfg.AmountMax = req.AmountMax
	}

	gen, err := generate.ConfigFrom(genCfg)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), requestID)
		return
	}

	res, err := generate.Run(r.Context(), generate.Job{
		Root:         s.cfg.EventsDir(),
		TotalRecords: genCfg.TotalRecords,
		Workers:      genCfg.Workers,
		Generator:    gen,
		Seed:         req.Seed,
		Parquet: parquet.Options{
			Compression:      parquet.ParseCompressionType(genCfg.Compression.Algorithm),
			CompressionLevel: genCfg.Compression.Level,
		},
	})
	if err != nil {
		logging.WithContext(r.Context()).Error("generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error(), requestID)
		return
	}

	// New files must be visible to queries before the cache TTL expires.
	s.svc.InvalidateCache()

	writeJSON(w, http.StatusOK, generateResponse{
		RecordsProcessed: res.RecordsProcessed,
		FilesWritten:     res.FilesWritten,
		DurationMs:       res.Duration.Milliseconds(),
		Workers:          res.Workers,
		WriteP50Ms:       res.WriteLatency.P50,
		WriteP95Ms:       res.WriteLatency.P95,
		WriteP99Ms:       res.WriteLatency.P99,
	})
}

// sqlRequest is an ad-hoc SQL query (duckdb engine only).
type sqlRequest struct {
	SQL string `json:"sql"`
}

// POST /api/admin/sql — ad-hoc SQL over the store, for inspection.
func (s *Server) executeSQL(w http.ResponseWriter, r *http.Request) {
	requestID := logging.RequestID(r.Context())

	var req sqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err), requestID)
		return
	}
	if req.SQL == "" {
		writeError(w, http.StatusBadRequest, "sql is required", requestID)
		return
	}

	rows, err := s.svc.ExecuteSQL(r.Context(), req.SQL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), requestID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rows":       rows,
		"request_id": requestID,
	})
}

// GET /healthz — liveness probe.
func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
