package main

import (
	"time"

	"feesweep/pkg/sweep"
)

type StatusError struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	LastRun   time.Time `json:"lastRun,omitempty"`
	LastError string    `json:"lastError,omitempty"`
	Cycles    uint64    `json:"cycles"`
	Uptime    string    `json:"uptime"`
}

type StatusResponse struct {
	Service   string             `json:"service"`
	Status    string             `json:"status"`
	Mint      string             `json:"mint"`
	Cycles    uint64             `json:"cycles"`
	LastCycle *sweep.CycleReport `json:"lastCycle"`
	Endpoints map[string]string  `json:"endpoints"`
}
