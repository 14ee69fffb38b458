package models

import "time"

// MetricPoint is a single sample of a named series. Time is simulated
// seconds since the start of the run.
type MetricPoint struct {
	Time   float64           `json:"time_s"`
	Name   string            `json:"name"`
	Value  float64           `json:"value"`
	Labels map[string]string `json:"labels,omitempty"`
}

// Aggregation contains aggregated statistics for a metric
type Aggregation struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
}

// MetricsSummary contains all collected series and their aggregations
type MetricsSummary struct {
	WallStart    time.Time               `json:"wall_start"`
	WallEnd      time.Time               `json:"wall_end"`
	WallDuration time.Duration           `json:"wall_duration_ns"`
	Metrics      map[string][]float64    `json:"metrics"`
	Aggregations map[string]*Aggregation `json:"aggregations"`
}
