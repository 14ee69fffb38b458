// Package runner turns a scenario into a ready-to-run optimize and simulate plan.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoSim-25-26J-441/pacing-core/internal/metrics"
	"github.com/GoSim-25-26J-441/pacing-core/internal/optimizer"
	"github.com/GoSim-25-26J-441/pacing-core/internal/physics"
	"github.com/GoSim-25-26J-441/pacing-core/internal/route"
	"github.com/GoSim-25-26J-441/pacing-core/internal/simulation"
	"github.com/GoSim-25-26J-441/pacing-core/internal/vehicle"
	"github.com/GoSim-25-26J-441/pacing-core/pkg/config"
	"github.com/GoSim-25-26J-441/pacing-core/pkg/logger"
	"github.com/GoSim-25-26J-441/pacing-core/pkg/models"
	"googlemaps.github.io/maps"
)

// Options supply external dependencies needed to assemble some scenarios.
type Options struct {
	// Elevation serves scenarios whose route is an elevation path. When nil
	// a Google Maps client is built from MapsAPIKey.
	Elevation  route.ElevationClient
	MapsAPIKey string
}

// Plan is a validated, fully built scenario.
type Plan struct {
	Name       string
	Constants  physics.Constants
	Vehicle    vehicle.Spec
	Route      *route.Route
	Optimizer  *optimizer.Optimizer
	Candidates optimizer.CandidateGenerator
	Strategy   config.StrategySpec
	// Logger receives optimizer and driver logs tagged with the scenario
	// name. Nil uses the package default.
	Logger *slog.Logger
}

// Outcome is everything a run produced.
type Outcome struct {
	Result  *simulation.Result
	Policy  *optimizer.Policy
	Summary models.RunSummary
}

// Assemble builds the route, constants, vehicle spec and optimizer of sc.
func Assemble(ctx context.Context, sc *config.Scenario, opts Options) (*Plan, error) {
	c, err := Constants(sc.Physics)
	if err != nil {
		return nil, err
	}

	segments, err := buildSegments(ctx, sc.Route, opts)
	if err != nil {
		return nil, err
	}
	r, err := route.Build(segments, sc.Route.DeltaS)
	if err != nil {
		return nil, err
	}

	spec := vehicle.Spec{
		MassKg:        sc.Vehicle.MassKg,
		FrontalAreaM2: sc.Vehicle.FrontalAreaM2,
		VelocityInit:  sc.Vehicle.VelocityInit,
		EnergyInit:    sc.Vehicle.EnergyInit,
		VelocityMax:   sc.Vehicle.VelocityMax,
		EnergyMax:     sc.Vehicle.EnergyMax,
	}
	v, err := vehicle.New(spec)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Name:      sc.Name,
		Constants: c,
		Vehicle:   spec,
		Route:     r,
		Candidates: optimizer.StandardCandidates{
			Powers:         sc.Optimizer.Candidates.Powers,
			IncludeBalance: sc.Optimizer.Candidates.IncludeBalance,
			MaxPower:       sc.Optimizer.Candidates.MaxPower,
		},
		Strategy: sc.Strategy,
	}

	if sc.Optimizer.Enabled {
		cost, err := optimizer.NewCostFunction(sc.Optimizer.Cost, sc.Optimizer.EnergyWeight)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", physics.ErrInvalidConfiguration, err)
		}
		plan.Optimizer, err = optimizer.New(c, v.Params(), optimizer.Config{
			VelocityBins: sc.Optimizer.VelocityBins,
			EnergyBins:   sc.Optimizer.EnergyBins,
			MaxCells:     sc.Optimizer.MaxCells,
			Workers:      sc.Optimizer.Workers,
			Cost:         cost,
		})
		if err != nil {
			return nil, err
		}
	}
	if sc.Strategy.Type == string(simulation.StrategyPolicy) && plan.Optimizer == nil {
		return nil, fmt.Errorf("%w: policy strategy requires the optimizer", physics.ErrInvalidConfiguration)
	}
	return plan, nil
}

// Constants converts a physics spec to validated constants.
func Constants(p config.PhysicsSpec) (physics.Constants, error) {
	energy, err := physics.NewEnergyModel(p.EnergyModel, p.CriticalPower, p.RecoverySlope, p.RecoveryIntercept)
	if err != nil {
		return physics.Constants{}, err
	}
	c := physics.Constants{
		Gravity:             p.Gravity,
		AirDensity:          p.AirDensity,
		DragCoefficient:     p.DragCoefficient,
		Efficiency:          p.Efficiency,
		MinVelocity:         p.MinVelocity,
		RegenRate:           p.RegenRate,
		ExhaustionThreshold: p.ExhaustionThreshold,
		DragModel:           physics.DragModel(p.DragModel),
		Energy:              energy,
	}
	if err := c.Validate(); err != nil {
		return physics.Constants{}, err
	}
	return c, nil
}

func buildSegments(ctx context.Context, spec config.RouteSpec, opts Options) ([]route.Segment, error) {
	switch {
	case len(spec.Segments) > 0:
		segments := make([]route.Segment, len(spec.Segments))
		for i, s := range spec.Segments {
			segments[i] = route.Segment{LengthM: s.LengthM, InclineDeg: s.InclineDeg, FrictionCoef: s.FrictionCoef}
		}
		return segments, nil
	case spec.GPXFile != "":
		return route.LoadGPXFile(spec.GPXFile, spec.DefaultFriction)
	case spec.Elevation != nil:
		client := opts.Elevation
		if client == nil {
			mc, err := route.NewMapsClient(opts.MapsAPIKey, "")
			if err != nil {
				return nil, err
			}
			client = mc
		}
		path := make([]maps.LatLng, len(spec.Elevation.Path))
		for i, p := range spec.Elevation.Path {
			path[i] = maps.LatLng{Lat: p.Lat, Lng: p.Lng}
		}
		return route.FromElevation(ctx, client, path, spec.Elevation.Samples, spec.DefaultFriction)
	default:
		return nil, fmt.Errorf("%w: route has no segments, gpx_file or elevation", route.ErrInvalidSegment)
	}
}

// NewStrategy builds the simulation strategy named by spec. policy may be nil
// unless spec selects the policy strategy.
func NewStrategy(spec config.StrategySpec, policy *optimizer.Policy, gen optimizer.CandidateGenerator) (simulation.Strategy, error) {
	switch simulation.StrategyType(spec.Type) {
	case simulation.StrategyPolicy:
		if policy == nil {
			return nil, fmt.Errorf("%w: no policy to replay", physics.ErrInvalidConfiguration)
		}
		return simulation.FromPolicy(policy), nil
	case simulation.StrategyConstant:
		return simulation.Constant{Watts: spec.Power}, nil
	case simulation.StrategyRandom:
		return simulation.NewRandom(spec.Seed, gen), nil
	case simulation.StrategyThreshold:
		th := spec.Threshold
		return simulation.Threshold{
			ClimbPower:     th.ClimbPower,
			FlatPower:      th.FlatPower,
			DescentPower:   th.DescentPower,
			EnergyFraction: th.EnergyFraction,
			VelocityCap:    th.VelocityCap,
		}, nil
	default:
		return nil, &simulation.UnknownStrategyError{StrategyType: spec.Type}
	}
}

// Execute optimizes (when enabled) and simulates the plan with a fresh vehicle.
// collector may be nil.
func (p *Plan) Execute(ctx context.Context, collector *metrics.Collector) (*Outcome, error) {
	v, err := vehicle.New(p.Vehicle)
	if err != nil {
		return nil, err
	}
	out := &Outcome{}
	r := p.Route
	base := p.Logger
	if base == nil {
		base = logger.Default
	}
	log := base.With("scenario", p.Name)

	if p.Optimizer != nil {
		out.Policy, err = p.Optimizer.Optimize(ctx, v.Snapshot(), r, r.DeltaS(), p.Candidates)
		if err != nil {
			return nil, fmt.Errorf("optimize: %w", err)
		}
		log.Info("Policy computed",
			"status", out.Policy.Status,
			"expected_time_s", out.Policy.ExpectedTime,
			"cells", out.Policy.Cells,
			"duration", out.Policy.Duration)
		r = out.Policy.Route
	}

	strategy, err := NewStrategy(p.Strategy, out.Policy, p.Candidates)
	if err != nil {
		return nil, err
	}

	driver, err := simulation.NewDriver(p.Constants)
	if err != nil {
		return nil, err
	}
	if collector != nil {
		driver.SetCollector(collector)
	}
	driver.SetLogger(log)

	out.Result, err = driver.Run(ctx, v, r, strategy)
	if out.Result != nil {
		out.Summary = out.Result.Summary
	}
	if out.Policy != nil {
		out.Summary.OptimizerTime = out.Policy.Duration
		out.Summary.OptimizerCells = out.Policy.Cells
	}
	if err != nil {
		return out, err
	}
	return out, nil
}

// RunScenario assembles and executes sc in one call.
func RunScenario(ctx context.Context, sc *config.Scenario, opts Options, collector *metrics.Collector) (*Outcome, error) {
	started := time.Now()
	plan, err := Assemble(ctx, sc, opts)
	if err != nil {
		return nil, err
	}
	out, err := plan.Execute(ctx, collector)
	if err == nil {
		logger.Info("Scenario finished", "scenario", sc.Name, "status", out.Summary.Status, "wall_time", time.Since(started))
	}
	return out, err
}
