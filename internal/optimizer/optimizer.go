// Package optimizer computes a pacing policy by backward induction over
// route position, velocity and stored energy.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/pacing-core/internal/physics"
	"github.com/GoSim-25-26J-441/pacing-core/internal/route"
	"github.com/GoSim-25-26J-441/pacing-core/pkg/logger"
	"github.com/GoSim-25-26J-441/pacing-core/pkg/models"
	"github.com/GoSim-25-26J-441/pacing-core/pkg/utils"
)

// ErrStateSpaceTooLarge is returned when the grid would exceed Config.MaxCells.
var ErrStateSpaceTooLarge = errors.New("optimizer state space too large")

// Config sizes the dynamic program.
type Config struct {
	VelocityBins int
	EnergyBins   int
	// MaxCells caps positions*velocity bins*energy bins*candidates.
	MaxCells int
	Workers  int
	Cost     CostFunction
}

// DefaultConfig returns a grid that suits routes of a few kilometers at 10 m.
func DefaultConfig() Config {
	return Config{
		VelocityBins: 41,
		EnergyBins:   101,
		MaxCells:     50_000_000,
		Workers:      runtime.NumCPU(),
		Cost:         TimeCost{},
	}
}

// Policy is the chosen power per profile position.
type Policy struct {
	Powers []float64
	Status models.TerminalStatus
	// ExpectedCost and ExpectedTime are accumulated along the forward pass.
	ExpectedCost float64
	ExpectedTime float64
	// Route is the profile the policy indexes into.
	Route    *route.Route
	Cells    int
	Duration time.Duration
}

// Len is the number of decided positions.
func (p *Policy) Len() int { return len(p.Powers) }

// PowerAt returns the power for position i, or false past the end of a partial policy.
func (p *Policy) PowerAt(i int) (float64, bool) {
	if i < 0 || i >= len(p.Powers) {
		return 0, false
	}
	return p.Powers[i], true
}

// Optimizer evaluates hypothetical transitions only; it never holds a live vehicle.
type Optimizer struct {
	constants physics.Constants
	params    physics.Params
	cfg       Config
}

// New validates inputs and returns an optimizer.
func New(c physics.Constants, p physics.Params, cfg Config) (*Optimizer, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if !(p.MassKg > 0) || !(p.FrontalAreaM2 > 0) || !(p.EnergyMax > 0) {
		return nil, fmt.Errorf("%w: vehicle parameters must be positive", physics.ErrInvalidConfiguration)
	}
	if !(p.VelocityMax > c.MinVelocity) {
		return nil, fmt.Errorf("%w: velocity max %v must exceed min velocity %v", physics.ErrInvalidConfiguration, p.VelocityMax, c.MinVelocity)
	}
	if cfg.VelocityBins < 2 || cfg.EnergyBins < 2 {
		return nil, fmt.Errorf("%w: need at least 2 velocity and 2 energy bins", physics.ErrInvalidConfiguration)
	}
	if cfg.MaxCells <= 0 {
		return nil, fmt.Errorf("%w: max cells must be positive", physics.ErrInvalidConfiguration)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Cost == nil {
		cfg.Cost = TimeCost{}
	}
	return &Optimizer{constants: c, params: p, cfg: cfg}, nil
}

// grid is the discretized (velocity, energy) plane of one layer. Cell
// (k, m) lives at index k*len(energy)+m.
type grid struct {
	velocity []float64
	energy   []float64
}

func (g grid) size() int { return len(g.velocity) * len(g.energy) }

// lookup interpolates a layer's cost-to-go bilinearly. Any infinite corner
// makes the result infinite.
func (g grid) lookup(layer []float64, v, e float64) float64 {
	k0, k1, wv := bracket(g.velocity, v)
	m0, m1, we := bracket(g.energy, e)
	ne := len(g.energy)

	corners := [4]float64{layer[k0*ne+m0], layer[k0*ne+m1], layer[k1*ne+m0], layer[k1*ne+m1]}
	weights := [4]float64{(1 - wv) * (1 - we), (1 - wv) * we, wv * (1 - we), wv * we}
	out := 0.0
	for i, c := range corners {
		if weights[i] == 0 {
			continue
		}
		if math.IsInf(c, 1) {
			return math.Inf(1)
		}
		out += weights[i] * c
	}
	return out
}

// bracket returns the grid indices surrounding x and the weight of the upper one.
// Values outside the grid clamp to its ends.
func bracket(axis []float64, x float64) (int, int, float64) {
	last := len(axis) - 1
	if x <= axis[0] {
		return 0, 0, 0
	}
	if x >= axis[last] {
		return last, last, 0
	}
	pos := (x - axis[0]) / (axis[last] - axis[0]) * float64(last)
	low := int(math.Floor(pos))
	if low >= last {
		return last, last, 0
	}
	w := pos - float64(low)
	if w < 1e-12 {
		return low, low, 0
	}
	return low, low + 1, w
}

// Optimize computes a policy from snapshot over r resampled at distanceStep.
// When no admissible power keeps energy above the exhaustion threshold the
// forward pass stops and the partial policy is returned with
// StatusEnergyExhausted.
func (o *Optimizer) Optimize(ctx context.Context, snapshot physics.State, r *route.Route, distanceStep float64, gen CandidateGenerator) (*Policy, error) {
	started := time.Now()
	if r == nil || r.Len() == 0 {
		return nil, fmt.Errorf("%w: route is empty", physics.ErrInvalidConfiguration)
	}
	if gen == nil {
		gen = DefaultCandidates()
	}
	if distanceStep != r.DeltaS() {
		resampled, err := r.Resample(distanceStep)
		if err != nil {
			return nil, err
		}
		r = resampled
	}
	if !(snapshot.Velocity > 0) {
		return nil, fmt.Errorf("%w: snapshot velocity must be positive, got %v", physics.ErrInvalidState, snapshot.Velocity)
	}

	n := r.Len()
	g := grid{
		velocity: utils.Linspace(o.constants.MinVelocity, o.params.VelocityMax, o.cfg.VelocityBins),
		energy:   utils.Linspace(0, o.params.EnergyMax, o.cfg.EnergyBins),
	}
	width := gen.MaxCandidates()
	if width <= 0 {
		return nil, fmt.Errorf("%w: candidate generator declares no candidates", physics.ErrInvalidConfiguration)
	}
	cells := n * g.size()
	if cells > o.cfg.MaxCells/width {
		return nil, fmt.Errorf("%w: %d positions x %d velocity bins x %d energy bins x %d candidates exceeds %d",
			ErrStateSpaceTooLarge, n, len(g.velocity), len(g.energy), width, o.cfg.MaxCells)
	}

	log := logger.With("positions", n, "velocity_bins", len(g.velocity), "energy_bins", len(g.energy), "cost", o.cfg.Cost.Name())
	log.Debug("optimizer started")

	costToGo := make([][]float64, n+1)
	costToGo[n] = make([]float64, g.size())
	for i := n - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		costToGo[i] = make([]float64, g.size())
		o.fillLayer(costToGo[i], costToGo[i+1], g, r.StepAt(i), i == n-1, gen)
	}

	policy := o.forward(snapshot, r, g, costToGo, gen)
	policy.Cells = cells
	policy.Duration = time.Since(started)

	log.Debug("optimizer finished",
		"status", policy.Status,
		"decided", policy.Len(),
		"expected_time_s", policy.ExpectedTime,
		"duration", policy.Duration)
	return policy, nil
}

// fillLayer computes one layer from the next. Velocity rows are handed to a
// bounded set of goroutines; each row writes only its own cells.
func (o *Optimizer) fillLayer(cur, next []float64, g grid, step route.Step, last bool, gen CandidateGenerator) {
	semaphore := make(chan struct{}, o.cfg.Workers)
	var wg sync.WaitGroup
	ne := len(g.energy)

	for k := range g.velocity {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			for m := range g.energy {
				state := physics.State{Velocity: g.velocity[k], Energy: g.energy[m], Distance: step.Start}
				best, _, _, _ := o.choose(state, step, last, next, g, gen)
				cur[k*ne+m] = best
			}
		}(k)
	}
	wg.Wait()
}

// feasible reports whether a transition may be taken. Only the final step is
// allowed to end below the exhaustion threshold.
func (o *Optimizer) feasible(t physics.Transition, last bool) bool {
	if t.EnergyDeficit {
		return false
	}
	return last || t.Energy >= o.constants.ExhaustionThreshold
}

// choose returns the minimal cost-to-go from state and the power achieving it.
// Candidates are ascending, so keeping the first within tolerance prefers the
// lowest power on ties.
func (o *Optimizer) choose(state physics.State, step route.Step, last bool, next []float64, g grid, gen CandidateGenerator) (float64, float64, physics.Transition, bool) {
	best := math.Inf(1)
	var bestPower float64
	var bestTransition physics.Transition
	found := false

	for _, u := range gen.Candidates(o.constants, o.params, state, step) {
		t, err := physics.Step(o.constants, o.params, state, step.Incline, step.Friction, u, step.Length)
		if err != nil || !o.feasible(t, last) {
			continue
		}
		total := o.cfg.Cost.Cost(t) + g.lookup(next, t.Velocity, t.Energy)
		if math.IsInf(total, 1) {
			continue
		}
		if !found || total < best-utils.DefaultTolerance {
			best, bestPower, bestTransition, found = total, u, t, true
		}
	}
	return best, bestPower, bestTransition, found
}

// fallback picks the lowest power whose immediate step is feasible.
func (o *Optimizer) fallback(state physics.State, step route.Step, last bool, gen CandidateGenerator) (float64, physics.Transition, bool) {
	for _, u := range gen.Candidates(o.constants, o.params, state, step) {
		t, err := physics.Step(o.constants, o.params, state, step.Incline, step.Friction, u, step.Length)
		if err == nil && o.feasible(t, last) {
			return u, t, true
		}
	}
	return 0, physics.Transition{}, false
}

// forward replays the table from the actual initial state.
func (o *Optimizer) forward(snapshot physics.State, r *route.Route, g grid, costToGo [][]float64, gen CandidateGenerator) *Policy {
	n := r.Len()
	policy := &Policy{Powers: make([]float64, 0, n), Status: models.StatusCompleted, Route: r}
	state := snapshot

	for i := 0; i < n; i++ {
		step := r.StepAt(i)
		last := i == n-1

		_, power, t, ok := o.choose(state, step, last, costToGo[i+1], g, gen)
		if !ok {
			power, t, ok = o.fallback(state, step, last, gen)
			if !ok {
				policy.Status = models.StatusEnergyExhausted
				return policy
			}
			logger.Debug("optimizer fell back to lowest feasible power", "position", i, "power", power)
		}

		policy.Powers = append(policy.Powers, power)
		policy.ExpectedCost += o.cfg.Cost.Cost(t)
		policy.ExpectedTime += t.DeltaT
		state = physics.State{Velocity: t.Velocity, Energy: t.Energy, Distance: t.Distance}
	}
	return policy
}
