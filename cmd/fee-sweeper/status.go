package main

import (
	"encoding/json"
	"net/http"
	"time"

	"feesweep/pkg/sweep"
)

// reportSource is what the status endpoints read from the job.
type reportSource interface {
	LastReport() *sweep.CycleReport
	Cycles() uint64
}

type statusServer struct {
	job       reportSource
	mint      string
	startTime time.Time
}

func newStatusHandler(job reportSource, mint string) http.Handler {
	s := &statusServer{job: job, mint: mint, startTime: time.Now()}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleRoot)
	return corsMiddleware(mux)
}

func (s *statusServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := StatusResponse{
		Service:   "fee-sweeper",
		Status:    "running",
		Mint:      s.mint,
		Cycles:    s.job.Cycles(),
		LastCycle: s.job.LastReport(),
		Endpoints: map[string]string{
			"health": "/health",
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (s *statusServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status: "healthy",
		Cycles: s.job.Cycles(),
		Uptime: time.Since(s.startTime).Round(time.Second).String(),
	}
	if last := s.job.LastReport(); last != nil {
		health.LastRun = last.StartedAt
		health.LastError = last.Err
		if last.Err != "" {
			health.Status = "degraded"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(StatusError{Error: message})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
