package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"dd-qualification/internal/common/logger"
	"dd-qualification/internal/findings"
	"dd-qualification/internal/snapshot"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// readinessCheck probes one dependency.
type readinessCheck struct {
	name  string
	check func(ctx context.Context) error
}

type findingsSearcher interface {
	Search(ctx context.Context, q findings.Query) ([]findings.Document, error)
}

type snapshotReader interface {
	Get(ctx context.Context, subjectID string) (*snapshot.Snapshot, bool, error)
}

type opsServer struct {
	checks    []readinessCheck
	findings  findingsSearcher
	snapshots snapshotReader
	logger    logger.Logger
}

func newRouter(s *opsServer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	if s.findings != nil {
		r.Get("/findings", s.handleFindings)
	}
	if s.snapshots != nil {
		r.Get("/subjects/{subjectID}/snapshot", s.handleSnapshot)
	}
	return r
}

func (s *opsServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *opsServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for _, c := range s.checks {
		if err := c.check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[c.name] = err.Error()
			continue
		}
		results[c.name] = "ok"
	}

	body := map[string]interface{}{"status": "ready", "checks": results}
	if status != http.StatusOK {
		body["status"] = "not_ready"
	}
	writeJSON(w, status, body)
}

// handleFindings serves GET /findings?code=NEGATIVE_REHIRE&invalidOnly=true&maxScore=60&size=10.
func (s *opsServer) handleFindings(w http.ResponseWriter, r *http.Request) {
	q := findings.Query{Code: r.URL.Query().Get("code")}

	var err error
	if v := r.URL.Query().Get("invalidOnly"); v != "" {
		if q.InvalidOnly, err = strconv.ParseBool(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalidOnly must be a boolean")
			return
		}
	}
	if v := r.URL.Query().Get("maxScore"); v != "" {
		if q.MaxScore, err = strconv.Atoi(v); err != nil {
			writeError(w, http.StatusBadRequest, "maxScore must be an integer")
			return
		}
	}
	if v := r.URL.Query().Get("size"); v != "" {
		if q.Size, err = strconv.Atoi(v); err != nil || q.Size < 0 {
			writeError(w, http.StatusBadRequest, "size must be a non-negative integer")
			return
		}
	}

	docs, err := s.findings.Search(r.Context(), q)
	if err != nil {
		s.logger.Error("findings search failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusBadGateway, "findings search failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"total": len(docs), "findings": docs})
}

func (s *opsServer) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")

	snap, ok, err := s.snapshots.Get(r.Context(), subjectID)
	if err != nil {
		s.logger.Error("snapshot lookup failed", map[string]interface{}{"subjectId": subjectID, "error": err.Error()})
		writeError(w, http.StatusBadGateway, "snapshot lookup failed")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no snapshot for subject")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
