// Package simulation drives a vehicle along a route under a power strategy
// and records the resulting trace.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/GoSim-25-26J-441/pacing-core/internal/metrics"
	"github.com/GoSim-25-26J-441/pacing-core/internal/physics"
	"github.com/GoSim-25-26J-441/pacing-core/internal/route"
	"github.com/GoSim-25-26J-441/pacing-core/internal/vehicle"
	"github.com/GoSim-25-26J-441/pacing-core/pkg/logger"
	"github.com/GoSim-25-26J-441/pacing-core/pkg/models"
)

// Result is the outcome of a run. Err is set only for aborted runs.
type Result struct {
	Trace   *models.Trace
	Status  models.TerminalStatus
	Err     error
	Summary models.RunSummary
}

// Driver is the only component that mutates vehicle state.
type Driver struct {
	constants physics.Constants
	collector *metrics.Collector
	logger    *slog.Logger
}

// NewDriver validates the constants and returns a driver.
func NewDriver(c physics.Constants) (*Driver, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Driver{constants: c, logger: logger.Default}, nil
}

// SetCollector makes the driver record per-step samples into c.
func (d *Driver) SetCollector(c *metrics.Collector) {
	d.collector = c
}

// SetLogger sets the driver's logger. Nil keeps the current one.
func (d *Driver) SetLogger(l *slog.Logger) {
	if l != nil {
		d.logger = l
	}
}

// Run steps v over every position of r. An aborted run returns both the
// partial Result and the error; a cancelled run returns only ctx.Err().
func (d *Driver) Run(ctx context.Context, v *vehicle.Vehicle, r *route.Route, s Strategy) (*Result, error) {
	if v == nil || r == nil || s == nil {
		return nil, fmt.Errorf("%w: vehicle, route and strategy are required", physics.ErrInvalidConfiguration)
	}

	n := r.Len()
	trace := models.NewTrace(n + 1)
	result := &Result{Trace: trace, Status: models.StatusCompleted}
	var labels map[string]string
	if d.collector != nil {
		labels = metrics.CreateStrategyLabels(s.Name())
	}

	d.logger.Info("Starting simulation",
		"strategy", s.Name(),
		"positions", n,
		"route_distance_m", r.TotalDistance())

	elapsed := 0.0
	trace.Append(models.TraceRecord{
		Time:     elapsed,
		Distance: v.Distance(),
		Velocity: v.Velocity(),
		Energy:   v.Energy(),
		Power:    v.Power(),
	})

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			d.logger.Info("Simulation cancelled", "position", i)
			return nil, err
		}

		step := r.StepAt(i)
		decision := Decision{Index: i, State: v.Snapshot(), Step: step, Constants: d.constants, Params: v.Params()}

		power, err := s.Power(decision)
		if errors.Is(err, ErrNoDecision) {
			d.logger.Warn("Strategy has no decision, stopping", "position", i, "error", err)
			result.Status = models.StatusEnergyExhausted
			break
		}
		if err == nil && !(power >= 0) {
			err = fmt.Errorf("%w: strategy %s returned power %v", physics.ErrInvalidState, s.Name(), power)
		}
		if err == nil {
			var t physics.Transition
			t, err = physics.Step(d.constants, v.Params(), decision.State, step.Incline, step.Friction, power, step.Length)
			if err == nil {
				v.Apply(t, power)
				elapsed += t.DeltaT
				trace.Append(models.TraceRecord{
					Time:     elapsed,
					Distance: v.Distance(),
					Velocity: v.Velocity(),
					Energy:   v.Energy(),
					Power:    power,
				})
				if d.collector != nil {
					metrics.RecordStep(d.collector, metrics.StepSample{
						Time:        elapsed,
						Velocity:    v.Velocity(),
						Energy:      v.Energy(),
						Power:       power,
						DeltaT:      t.DeltaT,
						Consumed:    t.Consumed,
						Regenerated: t.Regenerated,
						Incline:     step.Incline,
					}, labels)
				}
			}
		}
		if err != nil {
			d.logger.Error("Simulation aborted", "position", i, "error", err)
			result.Status = models.StatusAbortedInvalidInput
			result.Err = err
			d.finish(result, r, s)
			return result, err
		}

		if i < n-1 && v.Energy() < d.constants.ExhaustionThreshold {
			d.logger.Info("Energy exhausted", "position", i, "distance_m", v.Distance())
			result.Status = models.StatusEnergyExhausted
			break
		}
	}

	d.finish(result, r, s)
	d.logger.Info("Simulation finished",
		"status", result.Status,
		"total_time_s", result.Summary.TotalTime,
		"distance_m", result.Summary.Distance)
	return result, nil
}

func (d *Driver) finish(result *Result, r *route.Route, s Strategy) {
	result.Summary = metrics.Summarize(result.Trace.Records(), r.TotalDistance(), result.Status, s.Name())
}
