package physics

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidConfiguration is returned for out-of-range constants or step sizes.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrInvalidState is returned when a transition is requested from an unusable state.
	ErrInvalidState = errors.New("invalid state")
)

// DragModel selects the aerodynamic drag formula.
type DragModel string

const (
	// DragAero is 0.5*Cd*A*rho*v^2.
	DragAero DragModel = "aero"
	// DragLegacy is Cd*A*v^2/2, i.e. the aero formula with rho folded to 1.
	DragLegacy DragModel = "legacy"
)

// Constants are the physical constants shared by the step function and the optimizer.
// Time is in seconds, energy in joules, power in watts.
type Constants struct {
	Gravity         float64
	AirDensity      float64
	DragCoefficient float64
	// Efficiency is the drivetrain efficiency used by the battery energy model.
	Efficiency  float64
	MinVelocity float64
	// RegenRate is the regenerated power per unit velocity (W per m/s).
	RegenRate float64
	// ExhaustionThreshold is the energy level below which a run is considered exhausted.
	ExhaustionThreshold float64
	DragModel           DragModel
	Energy              EnergyModel
}

// Defaults returns the standard constants.
func Defaults() Constants {
	return Constants{
		Gravity:             9.81,
		AirDensity:          1.225,
		DragCoefficient:     0.6,
		Efficiency:          0.86,
		MinVelocity:         2,
		RegenRate:           0.74,
		ExhaustionThreshold: 2,
		DragModel:           DragAero,
		Energy:              Battery{},
	}
}

// Validate checks the constants are in range.
func (c Constants) Validate() error {
	switch {
	case !positive(c.Gravity):
		return fmt.Errorf("%w: gravity must be positive, got %v", ErrInvalidConfiguration, c.Gravity)
	case !positive(c.AirDensity):
		return fmt.Errorf("%w: air density must be positive, got %v", ErrInvalidConfiguration, c.AirDensity)
	case !(c.DragCoefficient >= 0 && c.DragCoefficient <= 2):
		return fmt.Errorf("%w: drag coefficient must be within [0, 2], got %v", ErrInvalidConfiguration, c.DragCoefficient)
	case !(c.Efficiency > 0 && c.Efficiency <= 1):
		return fmt.Errorf("%w: efficiency must be within (0, 1], got %v", ErrInvalidConfiguration, c.Efficiency)
	case !positive(c.MinVelocity):
		return fmt.Errorf("%w: min velocity must be positive, got %v", ErrInvalidConfiguration, c.MinVelocity)
	case !(c.RegenRate >= 0):
		return fmt.Errorf("%w: regen rate cannot be negative, got %v", ErrInvalidConfiguration, c.RegenRate)
	case !(c.ExhaustionThreshold >= 0):
		return fmt.Errorf("%w: exhaustion threshold cannot be negative, got %v", ErrInvalidConfiguration, c.ExhaustionThreshold)
	case c.Energy == nil:
		return fmt.Errorf("%w: energy model is required", ErrInvalidConfiguration)
	}
	switch c.DragModel {
	case DragAero, DragLegacy:
	default:
		return fmt.Errorf("%w: unknown drag model %q", ErrInvalidConfiguration, c.DragModel)
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
