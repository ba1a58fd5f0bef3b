// Package statusapi exposes a small diagnostic HTTP surface while a cascade
// session runs: current state, attempts so far, the final report, and
// Prometheus metrics. It is read-only; the cascade is driven by the CLI.
package statusapi

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"webuictl/pkg/types"
)

// Service is the cascade-side contract the HTTP layer needs.
type Service interface {
	Status() types.Status
}

// ReportHolder publishes the final report once the session reaches a terminal
// state. Until then /report returns 404.
type ReportHolder struct {
	mu     sync.Mutex
	report *types.Report
}

func (h *ReportHolder) Set(r types.Report) {
	h.mu.Lock()
	h.report = &r
	h.mu.Unlock()
}

func (h *ReportHolder) Get() (types.Report, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.report == nil {
		return types.Report{}, false
	}
	return *h.report, true
}

func NewMux(svc Service, reports *ReportHolder) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))
	r.Use(MetricsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(svc.Status()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	})

	r.Get("/report", func(w http.ResponseWriter, r *http.Request) {
		rep, ok := reports.Get()
		if !ok {
			writeJSONError(w, http.StatusNotFound, "session still running")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(rep); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}
