package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("../../config/config.yaml")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected log_level 'info', got '%s'", cfg.LogLevel)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.DSN == "" {
		t.Errorf("unexpected storage config %+v", cfg.Storage)
	}
}

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("../../config/scenarios/climb_cyclist.yaml")
	if err != nil {
		t.Fatalf("Failed to load scenario: %v", err)
	}
	if len(s.Route.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(s.Route.Segments))
	}
	if s.Route.Segments[1].InclineDeg != 4 {
		t.Errorf("expected 4 degree climb, got %v", s.Route.Segments[1].InclineDeg)
	}
	if s.Physics.Efficiency != 1 || s.Physics.RegenRate != 0 {
		t.Errorf("expected physics overrides, got %+v", s.Physics)
	}
}

func TestLoadScenarioResolvesGPXPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	doc := `
route:
  gpx_file: track.gpx
vehicle: {mass_kg: 80, frontal_area_m2: 0.5, velocity_max: 20, energy_max: 1000}
optimizer: {enabled: false}
strategy: {type: constant, power: 100}
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(dir, "track.gpx"); s.Route.GPXFile != want {
		t.Errorf("expected %s, got %s", want, s.Route.GPXFile)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	if _, err := LoadConfig("nonexistent.yaml"); err == nil {
		t.Error("Expected error when loading nonexistent file")
	}
	if _, err := LoadScenario("nonexistent.yaml"); err == nil {
		t.Error("Expected error when loading nonexistent scenario")
	}
}

func TestApplyEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := "PACED_HTTP_ADDR=:9090\nGOOGLE_MAPS_API_KEY=file-key\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvMapsAPIKey, "process-key")

	env, err := ReadEnv(envPath)
	if err != nil {
		t.Fatalf("ReadEnv: %v", err)
	}
	cfg := DefaultConfig()
	if err := ApplyEnv(&cfg, env); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Server.HTTPAddr != ":9090" {
		t.Errorf("expected :9090 from env file, got %s", cfg.Server.HTTPAddr)
	}
	if cfg.Maps.APIKey != "process-key" {
		t.Errorf("expected process env to win, got %s", cfg.Maps.APIKey)
	}
}

func TestReadEnvMissingFile(t *testing.T) {
	env, err := ReadEnv(filepath.Join(t.TempDir(), "absent.env"))
	if err != nil {
		t.Fatalf("expected missing env file to be ignored, got %v", err)
	}
	if env == nil {
		t.Fatal("expected non-nil map")
	}
}

func TestApplyEnvRevalidates(t *testing.T) {
	cfg := DefaultConfig()
	err := ApplyEnv(&cfg, map[string]string{EnvStorageDriver: "mongo"})
	if err == nil {
		t.Fatal("expected mongo without dsn to fail validation")
	}
}
