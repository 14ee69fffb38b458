package optimizer

import (
	"github.com/GoSim-25-26J-441/pacing-core/internal/physics"
)

// CostFunction scores a single transition. Lower is better.
type CostFunction interface {
	Cost(t physics.Transition) float64
	Name() string
}

// CostType names a built-in cost function
type CostType string

const (
	// CostTime minimizes elapsed time
	CostTime CostType = "time"
	// CostEnergyWeighted minimizes time plus weighted consumed energy
	CostEnergyWeighted CostType = "energy_weighted"
)

// NewCostFunction creates a cost function from a type string
func NewCostFunction(name string, energyWeight float64) (CostFunction, error) {
	switch CostType(name) {
	case CostTime, "":
		return TimeCost{}, nil
	case CostEnergyWeighted:
		if energyWeight < 0 {
			return nil, &InvalidCostError{Reason: "energy weight cannot be negative"}
		}
		return EnergyWeightedCost{Weight: energyWeight}, nil
	default:
		return nil, &UnknownCostError{CostType: name}
	}
}

// TimeCost is the elapsed time of the step in seconds.
type TimeCost struct{}

func (TimeCost) Cost(t physics.Transition) float64 { return t.DeltaT }
func (TimeCost) Name() string                      { return string(CostTime) }

// EnergyWeightedCost adds Weight seconds per joule consumed.
type EnergyWeightedCost struct {
	Weight float64
}

func (c EnergyWeightedCost) Cost(t physics.Transition) float64 {
	return t.DeltaT + c.Weight*t.Consumed
}
func (EnergyWeightedCost) Name() string { return string(CostEnergyWeighted) }

// UnknownCostError indicates an unknown cost function type
type UnknownCostError struct {
	CostType string
}

func (e *UnknownCostError) Error() string {
	return "unknown cost type: " + e.CostType
}

// InvalidCostError indicates invalid cost parameters
type InvalidCostError struct {
	Reason string
}

func (e *InvalidCostError) Error() string {
	return "invalid cost: " + e.Reason
}
