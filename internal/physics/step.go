package physics

import (
	"fmt"
	"math"

	"github.com/samber/lo"
)

// Params are the fixed physical parameters of a vehicle.
type Params struct {
	MassKg        float64
	FrontalAreaM2 float64
	VelocityMax   float64
	EnergyMax     float64
}

// State is an immutable snapshot of the mutable part of a vehicle.
type State struct {
	Velocity float64
	Energy   float64
	Distance float64
}

// Transition is the outcome of one step.
type Transition struct {
	Velocity    float64
	Energy      float64
	Distance    float64
	DeltaT      float64
	Consumed    float64
	Regenerated float64
	// EnergyDeficit is set when the step needed more energy than was stored.
	// Energy is clamped to 0 in that case.
	EnergyDeficit bool
}

// Drag returns the aerodynamic drag force at velocity v.
func (c Constants) Drag(p Params, v float64) float64 {
	if c.DragModel == DragLegacy {
		return c.DragCoefficient * p.FrontalAreaM2 * v * v / 2
	}
	return 0.5 * c.DragCoefficient * p.FrontalAreaM2 * c.AirDensity * v * v
}

// Resistance returns gravity + rolling friction + drag. incline is in radians.
func Resistance(c Constants, p Params, v, incline, friction float64) float64 {
	weight := p.MassKg * c.Gravity
	return weight*math.Sin(incline) + weight*math.Cos(incline)*friction + c.Drag(p, v)
}

// BalancePower is the power that holds velocity v constant, floored at 0.
func BalancePower(c Constants, p Params, v, incline, friction float64) float64 {
	return math.Max(Resistance(c, p, v, incline, friction)*v, 0)
}

// Step advances s by ds meters under constant applied power. It is pure.
func Step(c Constants, p Params, s State, incline, friction, power, ds float64) (Transition, error) {
	if !(ds > 0) || math.IsInf(ds, 0) {
		return Transition{}, fmt.Errorf("%w: distance step must be positive, got %v", ErrInvalidConfiguration, ds)
	}
	if p.VelocityMax < c.MinVelocity {
		return Transition{}, fmt.Errorf("%w: velocity max %v below min velocity %v", ErrInvalidConfiguration, p.VelocityMax, c.MinVelocity)
	}
	if !(s.Velocity > 0) {
		return Transition{}, fmt.Errorf("%w: velocity must be positive, got %v", ErrInvalidState, s.Velocity)
	}
	if !(power >= 0) {
		return Transition{}, fmt.Errorf("%w: power must be non-negative, got %v", ErrInvalidState, power)
	}

	vEff := math.Max(s.Velocity, c.MinVelocity)
	dt := ds / vEff

	total := power/vEff - Resistance(c, p, s.Velocity, incline, friction)
	accel := total / p.MassKg
	velocity := lo.Clamp(s.Velocity+accel*dt, c.MinVelocity, p.VelocityMax)

	consumed, regenerated := c.Energy.Exchange(c, power, s.Velocity, dt)
	raw := s.Energy - consumed + regenerated

	return Transition{
		Velocity:      velocity,
		Energy:        lo.Clamp(raw, 0, p.EnergyMax),
		Distance:      s.Distance + ds,
		DeltaT:        dt,
		Consumed:      consumed,
		Regenerated:   regenerated,
		EnergyDeficit: raw < 0,
	}, nil
}
