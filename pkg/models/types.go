package models

import (
	"sync"
	"time"
)

// TerminalStatus is how a simulation or optimization ended.
type TerminalStatus string

const (
	StatusCompleted           TerminalStatus = "completed"
	StatusEnergyExhausted     TerminalStatus = "energy_exhausted"
	StatusAbortedInvalidInput TerminalStatus = "aborted_invalid_input"
)

// RunStatus represents the lifecycle state of a daemon run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// TraceRecord is one row of a simulation trace. Time in seconds, distance in
// meters, velocity in m/s, energy in joules, power in watts.
type TraceRecord struct {
	Time     float64 `json:"time_s"`
	Distance float64 `json:"distance_m"`
	Velocity float64 `json:"velocity_mps"`
	Energy   float64 `json:"energy_j"`
	Power    float64 `json:"power_w"`
}

// TraceColumns are the column names of a trace in tabular form.
var TraceColumns = []string{"time", "distance", "velocity", "energy", "power"}

// Trace is an append-only, goroutine-safe sequence of trace records.
type Trace struct {
	mu      sync.RWMutex
	records []TraceRecord
}

// NewTrace returns an empty trace with room for n records.
func NewTrace(n int) *Trace {
	return &Trace{records: make([]TraceRecord, 0, n)}
}

// Append adds a record
func (t *Trace) Append(r TraceRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, r)
}

// Records returns a copy of all records
func (t *Trace) Records() []TraceRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]TraceRecord, len(t.records))
	copy(out, t.records)
	return out
}

// Len returns the number of records
func (t *Trace) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// Last returns the final record, if any.
func (t *Trace) Last() (TraceRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.records) == 0 {
		return TraceRecord{}, false
	}
	return t.records[len(t.records)-1], true
}

// Columns returns the column names matching Rows.
func (t *Trace) Columns() []string {
	return append([]string(nil), TraceColumns...)
}

// Rows returns the trace as a table of float rows ordered like Columns.
func (t *Trace) Rows() [][]float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rows := make([][]float64, len(t.records))
	for i, r := range t.records {
		rows[i] = []float64{r.Time, r.Distance, r.Velocity, r.Energy, r.Power}
	}
	return rows
}

// RunSummary contains aggregated results of a pacing run
type RunSummary struct {
	Status         TerminalStatus `json:"status"`
	TotalTime      float64        `json:"total_time_s"`
	Distance       float64        `json:"distance_m"`
	RouteDistance  float64        `json:"route_distance_m"`
	EnergyUsed     float64        `json:"energy_used_j"`
	EnergyLeft     float64        `json:"energy_left_j"`
	AvgVelocity    float64        `json:"avg_velocity_mps"`
	MaxVelocity    float64        `json:"max_velocity_mps"`
	AvgPower       float64        `json:"avg_power_w"`
	Steps          int            `json:"steps"`
	Strategy       string         `json:"strategy"`
	OptimizerTime  time.Duration  `json:"optimizer_time_ns,omitempty"`
	OptimizerCells int            `json:"optimizer_cells,omitempty"`
}
