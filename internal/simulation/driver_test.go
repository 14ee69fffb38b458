package simulation

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/GoSim-25-26J-441/pacing-core/internal/metrics"
	"github.com/GoSim-25-26J-441/pacing-core/internal/optimizer"
	"github.com/GoSim-25-26J-441/pacing-core/internal/physics"
	"github.com/GoSim-25-26J-441/pacing-core/internal/route"
	"github.com/GoSim-25-26J-441/pacing-core/internal/vehicle"
	"github.com/GoSim-25-26J-441/pacing-core/pkg/logger"
	"github.com/GoSim-25-26J-441/pacing-core/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCar(t *testing.T) *vehicle.Vehicle {
	t.Helper()
	v, err := vehicle.New(vehicle.Spec{MassKg: 1000, FrontalAreaM2: 2, VelocityInit: 10, EnergyInit: 1e6, VelocityMax: 30, EnergyMax: 1e6})
	require.NoError(t, err)
	return v
}

func newCyclist(t *testing.T, energy float64) *vehicle.Vehicle {
	t.Helper()
	v, err := vehicle.New(vehicle.Spec{MassKg: 80, FrontalAreaM2: 0.5, VelocityInit: 8, EnergyInit: energy, VelocityMax: 20, EnergyMax: 50000})
	require.NoError(t, err)
	return v
}

func riderConstants() physics.Constants {
	c := physics.Defaults()
	c.Efficiency = 1
	c.RegenRate = 0
	return c
}

func mustRoute(t *testing.T, deltaS float64, segments ...route.Segment) *route.Route {
	t.Helper()
	r, err := route.Build(segments, deltaS)
	require.NoError(t, err)
	return r
}

func TestRunConcreteFlatScenario(t *testing.T) {
	d, err := NewDriver(physics.Defaults())
	require.NoError(t, err)
	r := mustRoute(t, 10, route.Segment{LengthM: 100, InclineDeg: 0, FrictionCoef: 0.015})

	res, err := d.Run(context.Background(), newCar(t), r, Constant{Watts: 20000})
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, res.Status)
	assert.NoError(t, res.Err)

	records := res.Trace.Records()
	require.Len(t, records, 11, "initial row plus one per step")
	assert.Equal(t, models.TraceRecord{Time: 0, Distance: 0, Velocity: 10, Energy: 1e6, Power: 0}, records[0])
	assert.InDelta(t, 11.779, records[1].Velocity, 1e-3)
	assert.InDelta(t, 976751.6, records[1].Energy, 0.1)

	last := records[10]
	assert.InDelta(t, 100, last.Distance, 1e-9)
	assert.InDelta(t, 18.0857, last.Velocity, 1e-3)
	assert.InDelta(t, 836792.3, last.Energy, 0.1)
	assert.InDelta(t, 7.0211, last.Time, 1e-3)

	for i := 1; i < len(records); i++ {
		assert.Less(t, records[i].Energy, records[i-1].Energy, "energy must strictly decrease at step %d", i)
		assert.Greater(t, records[i].Time, records[i-1].Time)
		assert.Equal(t, 20000.0, records[i].Power)
	}

	assert.Equal(t, 10, res.Summary.Steps)
	assert.Equal(t, "constant", res.Summary.Strategy)
	assert.InDelta(t, 1e6-836792.3, res.Summary.EnergyUsed, 0.1)
	assert.Equal(t, []string{"time", "distance", "velocity", "energy", "power"}, res.Trace.Columns())
	assert.Len(t, res.Trace.Rows(), 11)
}

func TestRunStopsWhenEnergyExhausted(t *testing.T) {
	d, err := NewDriver(riderConstants())
	require.NoError(t, err)
	r := mustRoute(t, 25, route.Segment{LengthM: 1000, FrictionCoef: 0.005})

	res, err := d.Run(context.Background(), newCyclist(t, 5000), r, Constant{Watts: 500})
	require.NoError(t, err)
	assert.Equal(t, models.StatusEnergyExhausted, res.Status)
	assert.Equal(t, 4, res.Summary.Steps)
	assert.InDelta(t, 100, res.Summary.Distance, 1e-9)
	assert.Less(t, res.Summary.Distance, res.Summary.RouteDistance)

	for _, rec := range res.Trace.Records() {
		assert.GreaterOrEqual(t, rec.Energy, 0.0)
	}
}

func TestRunExhaustionOnFinalStepCompletes(t *testing.T) {
	d, err := NewDriver(riderConstants())
	require.NoError(t, err)
	r := mustRoute(t, 25, route.Segment{LengthM: 100, FrictionCoef: 0.005})

	res, err := d.Run(context.Background(), newCyclist(t, 5000), r, Constant{Watts: 500})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, res.Status)
	last, ok := res.Trace.Last()
	require.True(t, ok)
	assert.Equal(t, 0.0, last.Energy)
	assert.InDelta(t, 100, last.Distance, 1e-9)
}

func TestRunReplaysOptimizedPolicy(t *testing.T) {
	c := riderConstants()
	r := mustRoute(t, 25,
		route.Segment{LengthM: 500, InclineDeg: 0, FrictionCoef: 0.005},
		route.Segment{LengthM: 500, InclineDeg: 4, FrictionCoef: 0.005},
	)
	rider := newCyclist(t, 50000)

	opt, err := optimizer.New(c, rider.Params(), optimizer.Config{VelocityBins: 31, EnergyBins: 201, MaxCells: 10_000_000, Workers: 2})
	require.NoError(t, err)
	policy, err := opt.Optimize(context.Background(), rider.Snapshot(), r, 25, optimizer.StandardCandidates{Powers: []float64{0, 200, 600}})
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, policy.Status)

	d, err := NewDriver(c)
	require.NoError(t, err)
	res, err := d.Run(context.Background(), rider, policy.Route, FromPolicy(policy))
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, res.Status)
	assert.InDelta(t, policy.ExpectedTime, res.Summary.TotalTime, 1e-9)

	baseline, err := d.Run(context.Background(), newCyclist(t, 50000), r, Constant{Watts: 200})
	require.NoError(t, err)
	assert.InDelta(t, 191.5, baseline.Summary.TotalTime, 0.1)
	assert.Less(t, res.Summary.TotalTime, baseline.Summary.TotalTime)
}

func TestRunPartialPolicyEndsExhausted(t *testing.T) {
	c := riderConstants()
	r := mustRoute(t, 25, route.Segment{LengthM: 1000, FrictionCoef: 0.005})
	rider := newCyclist(t, 5000)

	opt, err := optimizer.New(c, rider.Params(), optimizer.Config{VelocityBins: 31, EnergyBins: 101, MaxCells: 10_000_000})
	require.NoError(t, err)
	policy, err := opt.Optimize(context.Background(), rider.Snapshot(), r, 25, optimizer.StandardCandidates{Powers: []float64{500}})
	require.NoError(t, err)
	require.Equal(t, models.StatusEnergyExhausted, policy.Status)

	d, err := NewDriver(c)
	require.NoError(t, err)
	res, err := d.Run(context.Background(), rider, policy.Route, FromPolicy(policy))
	require.NoError(t, err)
	assert.Equal(t, models.StatusEnergyExhausted, res.Status)
	assert.NoError(t, res.Err)
	assert.Equal(t, policy.Len(), res.Summary.Steps)
}

func TestRunAbortsOnStrategyError(t *testing.T) {
	d, err := NewDriver(physics.Defaults())
	require.NoError(t, err)
	r := mustRoute(t, 10, route.Segment{LengthM: 100, FrictionCoef: 0.015})

	boom := errors.New("boom")
	failing := StrategyFunc(func(dec Decision) (float64, error) {
		if dec.Index == 2 {
			return 0, boom
		}
		return 1000, nil
	})
	res, err := d.Run(context.Background(), newCar(t), r, failing)
	require.ErrorIs(t, err, boom)
	require.NotNil(t, res)
	assert.Equal(t, models.StatusAbortedInvalidInput, res.Status)
	assert.ErrorIs(t, res.Err, boom)
	assert.Equal(t, 3, res.Trace.Len())

	negative := StrategyFunc(func(Decision) (float64, error) { return -5, nil })
	res, err = d.Run(context.Background(), newCar(t), r, negative)
	assert.ErrorIs(t, err, physics.ErrInvalidState)
	assert.Equal(t, models.StatusAbortedInvalidInput, res.Status)
}

func TestRunLogsToConfiguredLogger(t *testing.T) {
	d, err := NewDriver(physics.Defaults())
	require.NoError(t, err)
	var buf bytes.Buffer
	d.SetLogger(logger.New("info", &buf).With("run", "r-1"))
	d.SetLogger(nil)

	_, err = d.Run(context.Background(), newCar(t), mustRoute(t, 10, route.Segment{LengthM: 20, FrictionCoef: 0.015}), Constant{Watts: 100})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Starting simulation")
	assert.Contains(t, buf.String(), `"run":"r-1"`)
}

func TestRunRejectsMissingInputs(t *testing.T) {
	d, err := NewDriver(physics.Defaults())
	require.NoError(t, err)
	_, err = d.Run(context.Background(), nil, nil, nil)
	assert.ErrorIs(t, err, physics.ErrInvalidConfiguration)

	_, err = NewDriver(physics.Constants{})
	assert.ErrorIs(t, err, physics.ErrInvalidConfiguration)
}

func TestRunHonoursCancellation(t *testing.T) {
	d, err := NewDriver(physics.Defaults())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := d.Run(ctx, newCar(t), mustRoute(t, 10, route.Segment{LengthM: 100, FrictionCoef: 0.015}), Constant{Watts: 100})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestRunRecordsMetrics(t *testing.T) {
	d, err := NewDriver(physics.Defaults())
	require.NoError(t, err)
	collector := metrics.NewCollector()
	d.SetCollector(collector)

	_, err = d.Run(context.Background(), newCar(t), mustRoute(t, 10, route.Segment{LengthM: 100, FrictionCoef: 0.015}), Constant{Watts: 20000})
	require.NoError(t, err)

	labels := metrics.CreateStrategyLabels("constant")
	points := collector.GetTimeSeries(metrics.MetricPower, labels)
	require.Len(t, points, 10)
	assert.Equal(t, 20000.0, points[0].Value)
	agg := collector.GetAggregation(metrics.MetricVelocity, labels)
	require.NotNil(t, agg)
	assert.InDelta(t, 18.0857, agg.Max, 1e-3)
}

func TestRandomStrategyIsSeeded(t *testing.T) {
	gen := optimizer.StandardCandidates{Powers: []float64{0, 9000, 60000}}
	r := mustRoute(t, 10, route.Segment{LengthM: 80, FrictionCoef: 0.015})
	d, err := NewDriver(physics.Defaults())
	require.NoError(t, err)

	powers := func(seed uint64) []float64 {
		res, err := d.Run(context.Background(), newCar(t), r, NewRandom(seed, gen))
		require.NoError(t, err)
		out := make([]float64, 0, 8)
		for _, rec := range res.Trace.Records()[1:] {
			out = append(out, rec.Power)
		}
		return out
	}

	a, b := powers(42), powers(42)
	assert.Equal(t, a, b)
	require.Len(t, a, 8)
	for _, p := range a {
		assert.Contains(t, []float64{0, 9000, 60000}, p)
	}
}
