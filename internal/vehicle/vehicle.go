// Package vehicle holds a vehicle's fixed parameters and its mutable state.
package vehicle

import (
	"fmt"
	"math"

	"github.com/GoSim-25-26J-441/pacing-core/internal/physics"
)

// Spec is the construction input for a Vehicle.
type Spec struct {
	MassKg        float64
	FrontalAreaM2 float64
	VelocityInit  float64
	EnergyInit    float64
	VelocityMax   float64
	EnergyMax     float64
}

// Vehicle is mutated only through Apply. It is not safe for concurrent use.
type Vehicle struct {
	params physics.Params

	velocity float64
	energy   float64
	distance float64
	power    float64
}

// New validates spec and returns a vehicle at distance 0.
func New(spec Spec) (*Vehicle, error) {
	checks := []struct {
		name  string
		value float64
	}{
		{"mass_kg", spec.MassKg},
		{"frontal_area_m2", spec.FrontalAreaM2},
		{"velocity_init", spec.VelocityInit},
		{"velocity_max", spec.VelocityMax},
		{"energy_max", spec.EnergyMax},
	}
	for _, c := range checks {
		if !(c.value > 0) || math.IsInf(c.value, 0) {
			return nil, fmt.Errorf("%w: %s must be positive, got %v", physics.ErrInvalidConfiguration, c.name, c.value)
		}
	}
	if !(spec.EnergyInit >= 0) {
		return nil, fmt.Errorf("%w: energy_init cannot be negative, got %v", physics.ErrInvalidConfiguration, spec.EnergyInit)
	}
	if spec.VelocityInit > spec.VelocityMax {
		return nil, fmt.Errorf("%w: velocity_init %v exceeds velocity_max %v", physics.ErrInvalidConfiguration, spec.VelocityInit, spec.VelocityMax)
	}
	if spec.EnergyInit > spec.EnergyMax {
		return nil, fmt.Errorf("%w: energy_init %v exceeds energy_max %v", physics.ErrInvalidConfiguration, spec.EnergyInit, spec.EnergyMax)
	}

	return &Vehicle{
		params: physics.Params{
			MassKg:        spec.MassKg,
			FrontalAreaM2: spec.FrontalAreaM2,
			VelocityMax:   spec.VelocityMax,
			EnergyMax:     spec.EnergyMax,
		},
		velocity: spec.VelocityInit,
		energy:   spec.EnergyInit,
	}, nil
}

// Params returns the fixed parameters.
func (v *Vehicle) Params() physics.Params { return v.params }

// Snapshot returns the current state by value.
func (v *Vehicle) Snapshot() physics.State {
	return physics.State{Velocity: v.velocity, Energy: v.energy, Distance: v.distance}
}

func (v *Vehicle) Velocity() float64 { return v.velocity }
func (v *Vehicle) Energy() float64   { return v.energy }
func (v *Vehicle) Distance() float64 { return v.distance }
func (v *Vehicle) Power() float64    { return v.power }

// Apply commits a transition produced under power. Values are clamped to the
// vehicle bounds and distance never decreases.
func (v *Vehicle) Apply(t physics.Transition, power float64) {
	v.velocity = math.Min(math.Max(t.Velocity, 0), v.params.VelocityMax)
	v.energy = math.Min(math.Max(t.Energy, 0), v.params.EnergyMax)
	v.distance = math.Max(v.distance, t.Distance)
	v.power = power
}

func (v *Vehicle) String() string {
	return fmt.Sprintf("Vehicle(v=%.2f m/s, E=%.1f J, d=%.1f m, P=%.1f W)", v.velocity, v.energy, v.distance, v.power)
}
