package paced

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/pacing-core/internal/metrics"
	"github.com/GoSim-25-26J-441/pacing-core/internal/runner"
	"github.com/GoSim-25-26J-441/pacing-core/internal/storage"
	"github.com/GoSim-25-26J-441/pacing-core/pkg/config"
	"github.com/GoSim-25-26J-441/pacing-core/pkg/logger"
	"github.com/GoSim-25-26J-441/pacing-core/pkg/models"
)

// RunExecutor manages asynchronous run execution and per-run cancellation.
type RunExecutor struct {
	store    *RunStore
	archive  storage.Archive
	notifier *Notifier
	opts     runner.Options

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

var (
	ErrRunNotFound  = errors.New("run not found")
	ErrRunTerminal  = errors.New("run is terminal")
	ErrRunIDMissing = errors.New("run_id is required")
)

// ExecutorOption customizes a RunExecutor.
type ExecutorOption func(*RunExecutor)

// WithArchive persists finished runs to a.
func WithArchive(a storage.Archive) ExecutorOption {
	return func(e *RunExecutor) { e.archive = a }
}

// WithNotifier sends completion callbacks through n.
func WithNotifier(n *Notifier) ExecutorOption {
	return func(e *RunExecutor) { e.notifier = n }
}

// WithRunnerOptions passes external clients (e.g. elevation) to scenario assembly.
func WithRunnerOptions(o runner.Options) ExecutorOption {
	return func(e *RunExecutor) { e.opts = o }
}

func NewRunExecutor(store *RunStore, opts ...ExecutorOption) *RunExecutor {
	e := &RunExecutor{
		store:   store,
		archive: storage.Discard{},
		cancels: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins executing a run asynchronously.
// Returns the updated run state (running) or an error.
func (e *RunExecutor) Start(runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, ErrRunIDMissing
	}

	updated, started, err := e.store.Begin(runID)
	if err != nil {
		return nil, err
	}
	if !started {
		return updated, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	if old, exists := e.cancels[runID]; exists {
		old()
	}
	e.cancels[runID] = cancel
	e.mu.Unlock()

	e.wg.Add(1)
	go e.runPacing(ctx, runID)
	return updated, nil
}

// Stop requests cancellation for a pending or running run and marks it cancelled.
func (e *RunExecutor) Stop(runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, ErrRunIDMissing
	}

	updated, err := e.store.Cancel(runID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	cancel, ok := e.cancels[runID]
	e.mu.Unlock()

	if ok {
		cancel()
	}
	e.notify(updated)
	return updated, nil
}

// Wait blocks until every started run has returned.
func (e *RunExecutor) Wait() {
	e.wg.Wait()
}

// Shutdown cancels all in-flight runs and waits for them.
func (e *RunExecutor) Shutdown() {
	e.mu.Lock()
	for _, cancel := range e.cancels {
		cancel()
	}
	e.mu.Unlock()
	e.wg.Wait()
}

func (e *RunExecutor) cleanup(runID string) {
	e.mu.Lock()
	if cancel, ok := e.cancels[runID]; ok {
		cancel()
		delete(e.cancels, runID)
	}
	e.mu.Unlock()
}

func (e *RunExecutor) fail(runID string, msg string) {
	rec, changed, err := e.store.Finish(runID, models.RunStatusFailed, msg, RunResult{})
	if err != nil {
		logger.Error("failed to set failed status", "run_id", runID, "error", err)
		return
	}
	if changed {
		e.notify(rec)
	}
}

func (e *RunExecutor) runPacing(ctx context.Context, runID string) {
	defer e.wg.Done()
	defer e.cleanup(runID)

	rec, ok := e.store.Get(runID)
	if !ok {
		logger.Error("run not found", "run_id", runID)
		return
	}

	scenario, err := config.ParseScenarioYAMLString(rec.Input.ScenarioYAML)
	if err != nil {
		logger.Error("failed to parse scenario YAML", "run_id", runID, "error", err)
		e.fail(runID, fmt.Sprintf("invalid scenario: %v", err))
		return
	}
	if err := e.store.SetScenarioName(runID, scenario.Name); err != nil {
		logger.Error("failed to store scenario name", "run_id", runID, "error", err)
	}

	collector := metrics.NewCollector()
	collector.Start()
	if err := e.store.SetCollector(runID, collector); err != nil {
		logger.Error("failed to store collector", "run_id", runID, "error", err)
	}

	logger.Info("starting pacing run", "run_id", runID, "scenario", scenario.Name)
	out, err := runner.RunScenario(ctx, scenario, e.opts, collector)
	collector.Stop()

	if ctx.Err() != nil {
		logger.Info("pacing run cancelled", "run_id", runID)
		return
	}

	result := RunResult{}
	if out != nil {
		summary := out.Summary
		result.Summary = &summary
		if out.Result != nil {
			result.Trace = out.Result.Trace
		}
		if out.Policy != nil {
			result.Policy = out.Policy.Powers
		}
	}

	status, msg := models.RunStatusCompleted, ""
	if err != nil {
		status, msg = models.RunStatusFailed, err.Error()
		logger.Error("pacing run failed", "run_id", runID, "error", err)
	}

	final, changed, setErr := e.store.Finish(runID, status, msg, result)
	if setErr != nil {
		logger.Error("failed to finish run", "run_id", runID, "error", setErr)
		return
	}
	if !changed {
		return
	}
	if result.Summary != nil {
		logger.Info("run finished", "run_id", runID,
			"status", final.Run.Status,
			"terminal_status", result.Summary.Status,
			"total_time_s", result.Summary.TotalTime,
			"energy_used_j", result.Summary.EnergyUsed)
	}

	e.save(final)
	e.notify(final)
}

func (e *RunExecutor) save(rec *RunRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.archive.Save(ctx, toArchiveRecord(rec)); err != nil {
		logger.Warn("failed to archive run", "run_id", rec.Run.ID, "error", err)
	}
}

func (e *RunExecutor) notify(rec *RunRecord) {
	if e.notifier == nil || rec.Input.CallbackURL == "" {
		return
	}
	e.notifier.Notify(rec.Input.CallbackURL, rec.Input.CallbackSecret, rec)
}

// Lookup returns a live run, falling back to the archive for runs from earlier daemon lifetimes.
func (e *RunExecutor) Lookup(ctx context.Context, runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, ErrRunIDMissing
	}
	if rec, ok := e.store.Get(runID); ok {
		return rec, nil
	}
	archived, err := e.archive.Get(ctx, runID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	return fromArchiveRecord(archived), nil
}

// List merges live runs with archived ones, newest first. A live run shadows
// its archived copy.
func (e *RunExecutor) List(ctx context.Context, limit int, status models.RunStatus) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	out := e.store.List(limit, status)
	archived, err := e.archive.List(ctx, limit, status)
	if err != nil {
		return nil, fmt.Errorf("list archive: %w", err)
	}
	live := make(map[string]bool, len(out))
	for _, rec := range out {
		live[rec.Run.ID] = true
	}
	for _, a := range archived {
		if !live[a.ID] {
			out = append(out, fromArchiveRecord(a))
		}
	}
	sortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func toArchiveRecord(rec *RunRecord) *storage.RunRecord {
	out := &storage.RunRecord{
		ID:        rec.Run.ID,
		Scenario:  rec.Run.Scenario,
		Status:    rec.Run.Status,
		Error:     rec.Run.Error,
		Policy:    rec.Policy,
		CreatedAt: time.UnixMilli(rec.Run.CreatedAtUnixMs).UTC(),
	}
	if rec.Run.EndedAtUnixMs > 0 {
		out.CompletedAt = time.UnixMilli(rec.Run.EndedAtUnixMs).UTC()
	}
	if rec.Summary != nil {
		out.Summary = *rec.Summary
	}
	if rec.Trace != nil {
		out.Trace = rec.Trace.Records()
	}
	return out
}

func fromArchiveRecord(a *storage.RunRecord) *RunRecord {
	trace := models.NewTrace(len(a.Trace))
	for _, r := range a.Trace {
		trace.Append(r)
	}
	summary := a.Summary
	rec := &RunRecord{
		Run: Run{
			ID:              a.ID,
			Scenario:        a.Scenario,
			Status:          a.Status,
			Error:           a.Error,
			CreatedAtUnixMs: a.CreatedAt.UnixMilli(),
		},
		Summary: &summary,
		Trace:   trace,
		Policy:  a.Policy,
	}
	if !a.CompletedAt.IsZero() {
		rec.Run.EndedAtUnixMs = a.CompletedAt.UnixMilli()
	}
	return rec
}
