package physics

import (
	"fmt"
	"math"
)

// EnergyModel converts applied power over a time step into stored-energy flows.
// Both returned values are non-negative.
type EnergyModel interface {
	Name() string
	Exchange(c Constants, power, velocity, dt float64) (consumed, regenerated float64)
}

// Battery draws power/efficiency from the store and regenerates RegenRate*v.
type Battery struct{}

func (Battery) Name() string { return "battery" }

func (Battery) Exchange(c Constants, power, velocity, dt float64) (float64, float64) {
	return power * dt / c.Efficiency, c.RegenRate * velocity * dt
}

// CriticalPower models a rider's anaerobic work capacity (W'). Above CP the
// reserve depletes at (P-CP); below it recovers at CP-(slope*P+intercept).
type CriticalPower struct {
	CP                float64
	RecoverySlope     float64
	RecoveryIntercept float64
}

func (CriticalPower) Name() string { return "critical_power" }

func (m CriticalPower) Exchange(_ Constants, power, _, dt float64) (float64, float64) {
	if power >= m.CP {
		return (power - m.CP) * dt, 0
	}
	return 0, math.Max(m.CP-(m.RecoverySlope*power+m.RecoveryIntercept), 0) * dt
}

// NewEnergyModel returns the model registered under name.
func NewEnergyModel(name string, cp, slope, intercept float64) (EnergyModel, error) {
	switch name {
	case "", "battery":
		return Battery{}, nil
	case "critical_power":
		if !positive(cp) {
			return nil, fmt.Errorf("%w: critical power must be positive, got %v", ErrInvalidConfiguration, cp)
		}
		return CriticalPower{CP: cp, RecoverySlope: slope, RecoveryIntercept: intercept}, nil
	default:
		return nil, fmt.Errorf("%w: unknown energy model %q", ErrInvalidConfiguration, name)
	}
}
