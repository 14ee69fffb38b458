package config

// Config represents the daemon configuration
type Config struct {
	LogLevel  string         `yaml:"log_level"`
	LogFormat string         `yaml:"log_format"`
	Server    ServerConfig   `yaml:"server"`
	Storage   StorageConfig  `yaml:"storage"`
	Notifier  NotifierConfig `yaml:"notifier"`
	Maps      MapsConfig     `yaml:"maps"`
}

// ServerConfig holds listen addresses
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`
}

// StorageConfig selects the run archive backend
type StorageConfig struct {
	Driver     string `yaml:"driver"` // none, sqlite, mongo
	DSN        string `yaml:"dsn"`
	Database   string `yaml:"database,omitempty"`
	Collection string `yaml:"collection,omitempty"`
}

// NotifierConfig tunes completion webhooks
type NotifierConfig struct {
	MaxRetries  int    `yaml:"max_retries"`
	Backoff     string `yaml:"backoff"`
	BaseDelayMs int    `yaml:"base_delay_ms"`
	MaxDelayMs  int    `yaml:"max_delay_ms"`
	TimeoutMs   int    `yaml:"timeout_ms"`
}

// MapsConfig holds Google Maps credentials for elevation lookups
type MapsConfig struct {
	APIKey string `yaml:"api_key"`
}

// Scenario describes one pacing problem: route, vehicle, physics and how to drive it.
type Scenario struct {
	Name      string        `yaml:"name"`
	Route     RouteSpec     `yaml:"route"`
	Vehicle   VehicleSpec   `yaml:"vehicle"`
	Physics   PhysicsSpec   `yaml:"physics"`
	Optimizer OptimizerSpec `yaml:"optimizer"`
	Strategy  StrategySpec  `yaml:"strategy"`
}

// RouteSpec is either an explicit segment list, a GPX file, or an elevation path.
type RouteSpec struct {
	DeltaS          float64        `yaml:"delta_s"`
	Segments        []SegmentSpec  `yaml:"segments,omitempty"`
	GPXFile         string         `yaml:"gpx_file,omitempty"`
	DefaultFriction float64        `yaml:"default_friction"`
	Elevation       *ElevationSpec `yaml:"elevation,omitempty"`
}

// SegmentSpec is one route segment; incline is in degrees.
type SegmentSpec struct {
	LengthM      float64 `yaml:"length_m"`
	InclineDeg   float64 `yaml:"incline_deg"`
	FrictionCoef float64 `yaml:"friction_coef"`
}

// ElevationSpec samples elevations along a path
type ElevationSpec struct {
	Path    []LatLng `yaml:"path"`
	Samples int      `yaml:"samples"`
}

// LatLng is a WGS84 coordinate
type LatLng struct {
	Lat float64 `yaml:"lat"`
	Lng float64 `yaml:"lng"`
}

// VehicleSpec holds vehicle parameters and its initial state
type VehicleSpec struct {
	MassKg        float64 `yaml:"mass_kg"`
	FrontalAreaM2 float64 `yaml:"frontal_area_m2"`
	VelocityInit  float64 `yaml:"velocity_init"`
	EnergyInit    float64 `yaml:"energy_init"`
	VelocityMax   float64 `yaml:"velocity_max"`
	EnergyMax     float64 `yaml:"energy_max"`
}

// PhysicsSpec overrides physical constants
type PhysicsSpec struct {
	Gravity             float64 `yaml:"gravity"`
	AirDensity          float64 `yaml:"air_density"`
	DragCoefficient     float64 `yaml:"drag_coefficient"`
	Efficiency          float64 `yaml:"efficiency"`
	MinVelocity         float64 `yaml:"min_velocity"`
	RegenRate           float64 `yaml:"regen_rate"`
	ExhaustionThreshold float64 `yaml:"exhaustion_threshold"`
	DragModel           string  `yaml:"drag_model"`   // aero, legacy
	EnergyModel         string  `yaml:"energy_model"` // battery, critical_power
	CriticalPower       float64 `yaml:"critical_power"`
	RecoverySlope       float64 `yaml:"recovery_slope"`
	RecoveryIntercept   float64 `yaml:"recovery_intercept"`
}

// OptimizerSpec configures the dynamic program
type OptimizerSpec struct {
	Enabled      bool          `yaml:"enabled"`
	VelocityBins int           `yaml:"velocity_bins"`
	EnergyBins   int           `yaml:"energy_bins"`
	MaxCells     int           `yaml:"max_cells"`
	Workers      int           `yaml:"workers"`
	Cost         string        `yaml:"cost"` // time, energy_weighted
	EnergyWeight float64       `yaml:"energy_weight"`
	Candidates   CandidateSpec `yaml:"candidates"`
}

// CandidateSpec lists fixed candidate powers (W)
type CandidateSpec struct {
	Powers         []float64 `yaml:"powers"`
	IncludeBalance bool      `yaml:"include_balance"`
	MaxPower       float64   `yaml:"max_power"`
}

// StrategySpec selects how the simulation picks power at each step
type StrategySpec struct {
	Type      string        `yaml:"type"` // policy, constant, random, threshold
	Power     float64       `yaml:"power"`
	Seed      uint64        `yaml:"seed"`
	Threshold ThresholdSpec `yaml:"threshold"`
}

// ThresholdSpec parametrizes the incline/energy threshold controller
type ThresholdSpec struct {
	ClimbPower     float64 `yaml:"climb_power"`
	FlatPower      float64 `yaml:"flat_power"`
	DescentPower   float64 `yaml:"descent_power"`
	EnergyFraction float64 `yaml:"energy_fraction"`
	VelocityCap    float64 `yaml:"velocity_cap"`
}
