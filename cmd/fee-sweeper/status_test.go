package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feesweep/pkg/sweep"
)

type stubJob struct {
	report *sweep.CycleReport
	cycles uint64
}

func (s *stubJob) LastReport() *sweep.CycleReport { return s.report }
func (s *stubJob) Cycles() uint64                 { return s.cycles }

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name       string
		job        *stubJob
		wantStatus string
	}{
		{name: "before first cycle", job: &stubJob{}, wantStatus: "healthy"},
		{
			name:       "last cycle ok",
			job:        &stubJob{cycles: 3, report: &sweep.CycleReport{RunID: "r", StartedAt: time.Now()}},
			wantStatus: "healthy",
		},
		{
			name:       "last cycle failed",
			job:        &stubJob{cycles: 4, report: &sweep.CycleReport{RunID: "r", Err: "scan failed"}},
			wantStatus: "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newStatusHandler(tt.job, "Mint").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			require.Equal(t, http.StatusOK, rec.Code)
			var health HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
			assert.Equal(t, tt.wantStatus, health.Status)
			assert.Equal(t, tt.job.cycles, health.Cycles)
		})
	}
}

func TestHandleRoot(t *testing.T) {
	job := &stubJob{cycles: 1, report: &sweep.CycleReport{RunID: "run-1", TotalFee: 10_000_000_000, Proceeds: 1_000_000_000}}
	handler := newStatusHandler(job, "Mint111")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "Mint111", status.Mint)
	require.NotNil(t, status.LastCycle)
	assert.Equal(t, "run-1", status.LastCycle.RunID)
	assert.Equal(t, uint64(1_000_000_000), status.LastCycle.Proceeds)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
