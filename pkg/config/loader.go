package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadConfig loads and parses a configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadScenario loads and parses a scenario file. A relative gpx_file is
// resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file %s: %w", path, err)
	}
	scenario, err := ParseScenarioYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scenario file %s: %w", path, err)
	}
	if scenario.Route.GPXFile != "" && !filepath.IsAbs(scenario.Route.GPXFile) {
		scenario.Route.GPXFile = filepath.Join(filepath.Dir(path), scenario.Route.GPXFile)
	}
	return scenario, nil
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validateConfig performs validation on the configuration
func validateConfig(cfg *Config) error {
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log_format: %s (must be text or json)", cfg.LogFormat)
	}

	switch cfg.Storage.Driver {
	case "", "none":
	case "sqlite", "mongo":
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			return fmt.Errorf("storage driver %s requires a dsn", cfg.Storage.Driver)
		}
	default:
		return fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}

	if cfg.Notifier.MaxRetries < 0 {
		return fmt.Errorf("notifier max_retries cannot be negative")
	}
	if cfg.Notifier.BaseDelayMs < 0 || cfg.Notifier.MaxDelayMs < 0 || cfg.Notifier.TimeoutMs < 0 {
		return fmt.Errorf("notifier delays cannot be negative")
	}
	return nil
}

// validateScenario performs structural validation. Numeric ranges of
// physical quantities are checked by the route, vehicle and physics packages.
func validateScenario(s *Scenario) error {
	if err := validateRoute(&s.Route); err != nil {
		return fmt.Errorf("route: %w", err)
	}

	v := s.Vehicle
	if v.MassKg <= 0 || v.FrontalAreaM2 <= 0 || v.VelocityMax <= 0 || v.EnergyMax <= 0 {
		return fmt.Errorf("vehicle: mass_kg, frontal_area_m2, velocity_max and energy_max must be positive")
	}

	switch s.Physics.DragModel {
	case "aero", "legacy":
	default:
		return fmt.Errorf("physics: unknown drag_model %q", s.Physics.DragModel)
	}
	switch s.Physics.EnergyModel {
	case "battery", "critical_power":
	default:
		return fmt.Errorf("physics: unknown energy_model %q", s.Physics.EnergyModel)
	}

	if s.Optimizer.Enabled {
		if err := validateOptimizer(&s.Optimizer); err != nil {
			return fmt.Errorf("optimizer: %w", err)
		}
	}

	return validateStrategy(&s.Strategy, s.Optimizer.Enabled)
}

func validateRoute(r *RouteSpec) error {
	if r.DeltaS <= 0 {
		return fmt.Errorf("delta_s must be positive")
	}
	sources := 0
	if len(r.Segments) > 0 {
		sources++
	}
	if r.GPXFile != "" {
		sources++
	}
	if r.Elevation != nil {
		sources++
		if len(r.Elevation.Path) < 2 {
			return fmt.Errorf("elevation path needs at least 2 points")
		}
		if r.Elevation.Samples < 2 {
			return fmt.Errorf("elevation samples must be at least 2")
		}
	}
	if sources != 1 {
		return fmt.Errorf("exactly one of segments, gpx_file or elevation must be set")
	}
	if r.DefaultFriction < 0 {
		return fmt.Errorf("default_friction cannot be negative")
	}
	return nil
}

func validateOptimizer(o *OptimizerSpec) error {
	if o.VelocityBins < 2 {
		return fmt.Errorf("velocity_bins must be at least 2")
	}
	if o.EnergyBins < 2 {
		return fmt.Errorf("energy_bins must be at least 2")
	}
	if o.MaxCells <= 0 {
		return fmt.Errorf("max_cells must be positive")
	}
	if o.Workers < 0 {
		return fmt.Errorf("workers cannot be negative")
	}
	switch o.Cost {
	case "time":
	case "energy_weighted":
		if o.EnergyWeight < 0 {
			return fmt.Errorf("energy_weight cannot be negative")
		}
	default:
		return fmt.Errorf("unknown cost %q", o.Cost)
	}
	if len(o.Candidates.Powers) == 0 && !o.Candidates.IncludeBalance {
		return fmt.Errorf("at least one candidate power is required")
	}
	for _, p := range o.Candidates.Powers {
		if p < 0 {
			return fmt.Errorf("candidate power %v cannot be negative", p)
		}
	}
	if o.Candidates.MaxPower < 0 {
		return fmt.Errorf("max_power cannot be negative")
	}
	return nil
}

func validateStrategy(s *StrategySpec, optimizerEnabled bool) error {
	switch s.Type {
	case "policy":
		if !optimizerEnabled {
			return fmt.Errorf("strategy: policy requires the optimizer to be enabled")
		}
	case "constant":
		if s.Power < 0 {
			return fmt.Errorf("strategy: power cannot be negative")
		}
	case "random":
	case "threshold":
		th := s.Threshold
		if th.ClimbPower < 0 || th.FlatPower < 0 || th.DescentPower < 0 {
			return fmt.Errorf("strategy: threshold powers cannot be negative")
		}
		if th.EnergyFraction < 0 || th.EnergyFraction > 1 {
			return fmt.Errorf("strategy: threshold energy_fraction must be within [0, 1]")
		}
	default:
		return fmt.Errorf("strategy: unknown type %q", s.Type)
	}
	return nil
}
