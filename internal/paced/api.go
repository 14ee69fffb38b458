// Package paced is the pacing daemon: an in-memory run store, an async
// executor, and the HTTP, gRPC and Connect surfaces over them.
package paced

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/GoSim-25-26J-441/pacing-core/internal/export"
	"github.com/GoSim-25-26J-441/pacing-core/internal/metrics"
	"github.com/GoSim-25-26J-441/pacing-core/pkg/config"
	"github.com/GoSim-25-26J-441/pacing-core/pkg/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid input")
	// ErrResultNotReady is returned when a run has no trace or summary yet.
	ErrResultNotReady = errors.New("run result not available")
)

// API is the transport-independent set of daemon operations.
type API struct {
	store    *RunStore
	executor *RunExecutor
}

func NewAPI(store *RunStore, executor *RunExecutor) *API {
	return &API{store: store, executor: executor}
}

type createRunRequest struct {
	RunID string    `json:"run_id,omitempty"`
	Input *RunInput `json:"input"`
}

type runIDRequest struct {
	RunID string `json:"run_id"`
}

type listRunsRequest struct {
	Limit  int              `json:"limit,omitempty"`
	Status models.RunStatus `json:"status,omitempty"`
}

type exportRequest struct {
	RunID  string `json:"run_id"`
	Format string `json:"format,omitempty"`
}

// RunView is the wire shape of a run.
type RunView struct {
	Run
	Summary *models.RunSummary `json:"summary,omitempty"`
}

// MetricsView is a run's summary and per-metric aggregations.
type MetricsView struct {
	RunID   string                         `json:"run_id"`
	Summary *models.RunSummary             `json:"summary"`
	Metrics map[string]*models.Aggregation `json:"metrics,omitempty"`
}

// TraceView is a run's trace in column/row form.
type TraceView struct {
	RunID   string      `json:"run_id"`
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
	Policy  []float64   `json:"policy,omitempty"`
}

func viewOf(rec *RunRecord) RunView {
	return RunView{Run: rec.Run, Summary: rec.Summary}
}

func (a *API) CreateRun(req createRunRequest) (RunView, error) {
	if req.Input == nil || req.Input.ScenarioYAML == "" {
		return RunView{}, fmt.Errorf("%w: input.scenario_yaml is required", ErrInvalidInput)
	}
	if _, err := config.ParseScenarioYAMLString(req.Input.ScenarioYAML); err != nil {
		return RunView{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if req.Input.CallbackURL != "" {
		if err := validateCallbackURL(req.Input.CallbackURL); err != nil {
			return RunView{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	rec, err := a.store.Create(req.RunID, *req.Input)
	if err != nil {
		return RunView{}, err
	}
	return viewOf(rec), nil
}

func (a *API) StartRun(runID string) (RunView, error) {
	rec, err := a.executor.Start(runID)
	if err != nil {
		return RunView{}, err
	}
	return viewOf(rec), nil
}

func (a *API) StopRun(runID string) (RunView, error) {
	rec, err := a.executor.Stop(runID)
	if err != nil {
		return RunView{}, err
	}
	return viewOf(rec), nil
}

func (a *API) GetRun(ctx context.Context, runID string) (RunView, error) {
	rec, err := a.executor.Lookup(ctx, runID)
	if err != nil {
		return RunView{}, err
	}
	return viewOf(rec), nil
}

func (a *API) ListRuns(ctx context.Context, req listRunsRequest) ([]RunView, error) {
	limit := req.Limit
	if limit > 1000 {
		limit = 1000
	}
	recs, err := a.executor.List(ctx, limit, req.Status)
	if err != nil {
		return nil, err
	}
	out := make([]RunView, len(recs))
	for i, rec := range recs {
		out[i] = viewOf(rec)
	}
	return out, nil
}

func (a *API) Metrics(ctx context.Context, runID string) (MetricsView, error) {
	rec, err := a.executor.Lookup(ctx, runID)
	if err != nil {
		return MetricsView{}, err
	}
	if rec.Summary == nil {
		return MetricsView{}, fmt.Errorf("%w: %s", ErrResultNotReady, runID)
	}
	view := MetricsView{RunID: runID, Summary: rec.Summary}
	if rec.Collector != nil {
		view.Metrics = metrics.ConvertToRunMetrics(rec.Collector)
	}
	return view, nil
}

func (a *API) Trace(ctx context.Context, runID string) (TraceView, error) {
	rec, err := a.executor.Lookup(ctx, runID)
	if err != nil {
		return TraceView{}, err
	}
	if rec.Trace == nil {
		return TraceView{}, fmt.Errorf("%w: %s", ErrResultNotReady, runID)
	}
	return TraceView{
		RunID:   runID,
		Columns: rec.Trace.Columns(),
		Rows:    rec.Trace.Rows(),
		Policy:  rec.Policy,
	}, nil
}

// Export encodes a finished run's trace. The returned format is the resolved one.
func (a *API) Export(ctx context.Context, runID, format string) ([]byte, export.Format, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	rec, err := a.executor.Lookup(ctx, runID)
	if err != nil {
		return nil, "", err
	}
	if rec.Trace == nil || rec.Summary == nil {
		return nil, "", fmt.Errorf("%w: %s", ErrResultNotReady, runID)
	}
	start := time.UnixMilli(rec.Run.StartedAtUnixMs).UTC()
	if rec.Run.StartedAtUnixMs == 0 {
		start = time.UnixMilli(rec.Run.CreatedAtUnixMs).UTC()
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, f, rec.Trace.Records(), *rec.Summary, start); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), f, nil
}

// httpStatusOf maps daemon errors to HTTP status codes.
func httpStatusOf(err error) int {
	switch {
	case errors.Is(err, ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRunExists):
		return http.StatusConflict
	case errors.Is(err, ErrRunTerminal), errors.Is(err, ErrResultNotReady):
		return http.StatusPreconditionFailed
	case errors.Is(err, ErrRunIDMissing), errors.Is(err, ErrInvalidRunID), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// codeOf maps daemon errors to gRPC codes. Connect shares the same numbering.
func codeOf(err error) codes.Code {
	switch {
	case errors.Is(err, ErrRunNotFound):
		return codes.NotFound
	case errors.Is(err, ErrRunExists):
		return codes.AlreadyExists
	case errors.Is(err, ErrRunTerminal), errors.Is(err, ErrResultNotReady):
		return codes.FailedPrecondition
	case errors.Is(err, ErrRunIDMissing), errors.Is(err, ErrInvalidRunID), errors.Is(err, ErrInvalidInput):
		return codes.InvalidArgument
	default:
		return codes.Internal
	}
}

// toStruct converts a JSON-tagged value to a protobuf Struct.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	st := &structpb.Struct{}
	if err := protojson.Unmarshal(data, st); err != nil {
		return nil, err
	}
	return st, nil
}

// fromStruct decodes a protobuf Struct into a JSON-tagged value.
func fromStruct(st *structpb.Struct, v any) error {
	if st == nil {
		st = &structpb.Struct{}
	}
	data, err := protojson.Marshal(st)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}
