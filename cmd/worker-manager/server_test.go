package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"dd-qualification/internal/common/logger"
	"dd-qualification/internal/findings"
	"dd-qualification/internal/qualification"
	"dd-qualification/internal/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	got  findings.Query
	docs []findings.Document
	err  error
}

func (f *fakeSearcher) Search(_ context.Context, q findings.Query) ([]findings.Document, error) {
	f.got = q
	return f.docs, f.err
}

type fakeSnapshots map[string]*snapshot.Snapshot

func (f fakeSnapshots) Get(_ context.Context, subjectID string) (*snapshot.Snapshot, bool, error) {
	if subjectID == "broken" {
		return nil, false, errors.New("redis down")
	}
	snap, ok := f[subjectID]
	return snap, ok, nil
}

func serve(t *testing.T, s *opsServer, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	if s.logger == nil {
		s.logger = logger.NewTestLogger(t)
	}
	rec := httptest.NewRecorder()
	newRouter(s).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var body map[string]interface{}
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	rec, body := serve(t, &opsServer{}, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestReady(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp: connection refused") }

	rec, body := serve(t, &opsServer{checks: []readinessCheck{{"postgres", ok}, {"zeebe", ok}}}, "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["status"])

	rec, body = serve(t, &opsServer{checks: []readinessCheck{{"postgres", ok}, {"zeebe", down}}}, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", body["status"])
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "ok", checks["postgres"])
	assert.Contains(t, checks["zeebe"], "connection refused")
}

func TestMetrics(t *testing.T) {
	rec, _ := serve(t, &opsServer{}, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestFindings(t *testing.T) {
	searcher := &fakeSearcher{docs: []findings.Document{{SubjectID: "tm-7", Overall: 38}}}
	s := &opsServer{findings: searcher}

	rec, body := serve(t, s, "/findings?code=NEGATIVE_REHIRE&invalidOnly=true&maxScore=60&size=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, findings.Query{Code: "NEGATIVE_REHIRE", InvalidOnly: true, MaxScore: 60, Size: 5}, searcher.got)

	for _, target := range []string{"/findings?invalidOnly=maybe", "/findings?maxScore=high", "/findings?size=-1"} {
		rec, _ := serve(t, s, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}

	searcher.err = errors.New("index_not_found_exception")
	rec, _ = serve(t, s, "/findings")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestFindings_NotMountedWithoutIndex(t *testing.T) {
	rec, _ := serve(t, &opsServer{}, "/findings")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSnapshot(t *testing.T) {
	s := &opsServer{snapshots: fakeSnapshots{
		"tm-1": {SubjectID: "tm-1", RunID: "run-1", Vector: qualification.ScoreVector{Overall: 84}},
	}}

	rec, body := serve(t, s, "/subjects/tm-1/snapshot")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "run-1", body["runId"])

	rec, _ = serve(t, s, "/subjects/tm-2/snapshot")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = serve(t, s, "/subjects/broken/snapshot")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
