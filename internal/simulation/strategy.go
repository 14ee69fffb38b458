package simulation

import (
	"errors"
	"fmt"

	"github.com/GoSim-25-26J-441/pacing-core/internal/optimizer"
	"github.com/GoSim-25-26J-441/pacing-core/internal/physics"
	"github.com/GoSim-25-26J-441/pacing-core/internal/route"
	"github.com/GoSim-25-26J-441/pacing-core/pkg/utils"
)

// ErrNoDecision is returned by a strategy that has nothing to offer for a
// position, e.g. a policy cut short by energy exhaustion. The driver ends the
// run as energy exhausted rather than aborting it.
var ErrNoDecision = errors.New("no decision for position")

// Decision is what a strategy sees before each step.
type Decision struct {
	Index     int
	State     physics.State
	Step      route.Step
	Constants physics.Constants
	Params    physics.Params
}

// Strategy picks the power to apply over the next step.
type Strategy interface {
	Name() string
	Power(d Decision) (float64, error)
}

// StrategyType names a built-in strategy
type StrategyType string

const (
	StrategyPolicy    StrategyType = "policy"
	StrategyConstant  StrategyType = "constant"
	StrategyRandom    StrategyType = "random"
	StrategyThreshold StrategyType = "threshold"
)

// UnknownStrategyError indicates an unknown strategy type
type UnknownStrategyError struct {
	StrategyType string
}

func (e *UnknownStrategyError) Error() string {
	return "unknown strategy type: " + e.StrategyType
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(d Decision) (float64, error)

func (f StrategyFunc) Name() string                      { return "func" }
func (f StrategyFunc) Power(d Decision) (float64, error) { return f(d) }

// Constant applies the same power everywhere.
type Constant struct {
	Watts float64
}

func (Constant) Name() string { return string(StrategyConstant) }

func (c Constant) Power(Decision) (float64, error) {
	return c.Watts, nil
}

// Random picks uniformly among the candidates offered at each state.
type Random struct {
	rng *utils.RandSource
	gen optimizer.CandidateGenerator
}

// NewRandom returns a seeded random strategy. A nil generator uses the
// optimizer's default candidates.
func NewRandom(seed uint64, gen optimizer.CandidateGenerator) *Random {
	if gen == nil {
		gen = optimizer.DefaultCandidates()
	}
	return &Random{rng: utils.NewRandSource(seed), gen: gen}
}

func (*Random) Name() string { return string(StrategyRandom) }

func (r *Random) Power(d Decision) (float64, error) {
	candidates := r.gen.Candidates(d.Constants, d.Params, d.State, d.Step)
	if len(candidates) == 0 {
		return 0, fmt.Errorf("%w: no candidate powers at position %d", physics.ErrInvalidConfiguration, d.Index)
	}
	return candidates[r.rng.Intn(len(candidates))], nil
}

// inclineDeadband separates flat ground from climbs and descents, in radians.
const inclineDeadband = 0.005

// Threshold is a rule-based controller keyed on gradient, stored energy and speed.
type Threshold struct {
	ClimbPower   float64
	FlatPower    float64
	DescentPower float64
	// EnergyFraction of EnergyMax below which climbs fall back to FlatPower.
	EnergyFraction float64
	// VelocityCap, when positive, cuts power to zero above this speed.
	VelocityCap float64
}

func (Threshold) Name() string { return string(StrategyThreshold) }

func (t Threshold) Power(d Decision) (float64, error) {
	if t.VelocityCap > 0 && d.State.Velocity > t.VelocityCap {
		return 0, nil
	}
	switch {
	case d.Step.Incline > inclineDeadband:
		if d.State.Energy < t.EnergyFraction*d.Params.EnergyMax {
			return t.FlatPower, nil
		}
		return t.ClimbPower, nil
	case d.Step.Incline < -inclineDeadband:
		return t.DescentPower, nil
	default:
		return t.FlatPower, nil
	}
}

// PolicyStrategy replays an optimizer policy by profile index.
type PolicyStrategy struct {
	policy *optimizer.Policy
}

// FromPolicy wraps p. The route driven must be p.Route.
func FromPolicy(p *optimizer.Policy) *PolicyStrategy {
	return &PolicyStrategy{policy: p}
}

func (*PolicyStrategy) Name() string { return string(StrategyPolicy) }

func (s *PolicyStrategy) Power(d Decision) (float64, error) {
	power, ok := s.policy.PowerAt(d.Index)
	if !ok {
		return 0, fmt.Errorf("%w: policy covers %d of the route's positions, asked for %d", ErrNoDecision, s.policy.Len(), d.Index)
	}
	return power, nil
}
