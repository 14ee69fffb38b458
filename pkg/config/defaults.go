package config

// DefaultConfig returns the daemon defaults
func DefaultConfig() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "text",
		Server: ServerConfig{
			HTTPAddr: ":8080",
			GRPCAddr: ":50051",
		},
		Storage: StorageConfig{
			Driver:     "none",
			Database:   "pacing",
			Collection: "runs",
		},
		Notifier: NotifierConfig{
			MaxRetries:  3,
			Backoff:     "exponential",
			BaseDelayMs: 1000,
			MaxDelayMs:  30000,
			TimeoutMs:   10000,
		},
	}
}

// DefaultScenario returns a scenario prefilled with default physics and optimizer settings.
// Route and vehicle are left empty.
func DefaultScenario() Scenario {
	return Scenario{
		Route: RouteSpec{
			DeltaS:          10,
			DefaultFriction: 0.015,
		},
		Physics: PhysicsSpec{
			Gravity:             9.81,
			AirDensity:          1.225,
			DragCoefficient:     0.6,
			Efficiency:          0.86,
			MinVelocity:         2,
			RegenRate:           0.74,
			ExhaustionThreshold: 2,
			DragModel:           "aero",
			EnergyModel:         "battery",
			CriticalPower:       250,
			RecoverySlope:       0.0772,
			RecoveryIntercept:   222.49,
		},
		Optimizer: OptimizerSpec{
			Enabled:      true,
			VelocityBins: 41,
			EnergyBins:   101,
			MaxCells:     50_000_000,
			Cost:         "time",
			Candidates: CandidateSpec{
				Powers:         []float64{0, 9000, 60000},
				IncludeBalance: true,
			},
		},
		Strategy: StrategySpec{
			Type: "policy",
		},
	}
}
