package paced

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/pacing-core/internal/metrics"
	"github.com/GoSim-25-26J-441/pacing-core/pkg/models"
	"github.com/GoSim-25-26J-441/pacing-core/pkg/utils"
)

// ErrRunExists is returned by Create for a duplicate run id.
var ErrRunExists = errors.New("run already exists")

// ErrInvalidRunID is returned by Create for ids that cannot appear in a URL path segment.
var ErrInvalidRunID = errors.New("run_id cannot contain '/' or ':'")

// RunInput is what a client submits to create a run.
type RunInput struct {
	ScenarioYAML   string `json:"scenario_yaml"`
	CallbackURL    string `json:"callback_url,omitempty"`
	CallbackSecret string `json:"callback_secret,omitempty"`
}

// Run is the lifecycle view of a run.
type Run struct {
	ID              string           `json:"id"`
	Scenario        string           `json:"scenario,omitempty"`
	Status          models.RunStatus `json:"status"`
	Error           string           `json:"error,omitempty"`
	CreatedAtUnixMs int64            `json:"created_at_unix_ms"`
	StartedAtUnixMs int64            `json:"started_at_unix_ms,omitempty"`
	EndedAtUnixMs   int64            `json:"ended_at_unix_ms,omitempty"`
}

// RunRecord is everything the daemon keeps about a run.
type RunRecord struct {
	Run       Run
	Input     RunInput
	Summary   *models.RunSummary
	Trace     *models.Trace
	Policy    []float64
	Collector *metrics.Collector
}

// RunResult is the output of a finished run.
type RunResult struct {
	Summary *models.RunSummary
	Trace   *models.Trace
	Policy  []float64
}

func (r *RunRecord) clone() *RunRecord {
	cp := *r
	if r.Summary != nil {
		s := *r.Summary
		cp.Summary = &s
	}
	cp.Policy = append([]float64(nil), r.Policy...)
	return &cp
}

// RunStore keeps runs in memory. Returned records are copies.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]*RunRecord
}

func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]*RunRecord),
	}
}

func nowUnixMs() int64 {
	return time.Now().UTC().UnixMilli()
}

func (s *RunStore) Create(runID string, input RunInput) (*RunRecord, error) {
	if strings.ContainsAny(runID, "/:") {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRunID, runID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if runID == "" {
		runID = utils.GenerateRunID()
	}
	if _, exists := s.runs[runID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrRunExists, runID)
	}

	rec := &RunRecord{
		Run: Run{
			ID:              runID,
			Status:          models.RunStatusPending,
			CreatedAtUnixMs: nowUnixMs(),
		},
		Input: input,
	}
	s.runs[runID] = rec
	return rec.clone(), nil
}

func (s *RunStore) Get(runID string) (*RunRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[runID]
	if !ok {
		return nil, false
	}
	return rec.clone(), true
}

// List returns up to limit runs, newest first, optionally filtered by status.
func (s *RunStore) List(limit int, status models.RunStatus) []*RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	out := make([]*RunRecord, 0, min(limit, len(s.runs)))
	for _, rec := range s.runs {
		if status != "" && rec.Run.Status != status {
			continue
		}
		out = append(out, rec.clone())
	}
	sortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sortNewestFirst(recs []*RunRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Run.CreatedAtUnixMs != recs[j].Run.CreatedAtUnixMs {
			return recs[i].Run.CreatedAtUnixMs > recs[j].Run.CreatedAtUnixMs
		}
		return recs[i].Run.ID < recs[j].Run.ID
	})
}

// Finish stores result and moves a running run to status. It reports false
// and changes nothing when the run is no longer running, e.g. after Stop.
func (s *RunStore) Finish(runID string, status models.RunStatus, errMsg string, result RunResult) (*RunRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if rec.Run.Status != models.RunStatusRunning {
		return rec.clone(), false, nil
	}
	rec.Summary = result.Summary
	rec.Trace = result.Trace
	rec.Policy = result.Policy
	setStatus(rec, status, errMsg)
	return rec.clone(), true, nil
}

// Begin moves a pending run to running. started is false when the run was
// already running.
func (s *RunStore) Begin(runID string) (rec *RunRecord, started bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[runID]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	switch {
	case r.Run.Status == models.RunStatusRunning:
		return r.clone(), false, nil
	case r.Run.Status.IsTerminal():
		return nil, false, fmt.Errorf("%w: %s", ErrRunTerminal, runID)
	}
	setStatus(r, models.RunStatusRunning, "")
	return r.clone(), true, nil
}

// Cancel marks a pending or running run cancelled.
func (s *RunStore) Cancel(runID string) (*RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if rec.Run.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", ErrRunTerminal, runID)
	}
	setStatus(rec, models.RunStatusCancelled, "")
	return rec.clone(), nil
}

func setStatus(rec *RunRecord, status models.RunStatus, errMsg string) {
	rec.Run.Status = status
	if errMsg != "" {
		rec.Run.Error = errMsg
	}

	switch status {
	case models.RunStatusRunning:
		if rec.Run.StartedAtUnixMs == 0 {
			rec.Run.StartedAtUnixMs = nowUnixMs()
		}
	case models.RunStatusCompleted, models.RunStatusFailed, models.RunStatusCancelled:
		rec.Run.EndedAtUnixMs = nowUnixMs()
	}
}

func (s *RunStore) SetScenarioName(runID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	rec.Run.Scenario = name
	return nil
}

func (s *RunStore) SetCollector(runID string, collector *metrics.Collector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	rec.Collector = collector
	return nil
}
