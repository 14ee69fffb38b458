package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment keys recognised by ApplyEnv.
const (
	EnvHTTPAddr      = "PACED_HTTP_ADDR"
	EnvGRPCAddr      = "PACED_GRPC_ADDR"
	EnvLogLevel      = "PACED_LOG_LEVEL"
	EnvStorageDriver = "PACED_STORAGE_DRIVER"
	EnvStorageDSN    = "PACED_STORAGE_DSN"
	EnvMapsAPIKey    = "GOOGLE_MAPS_API_KEY"
)

// ReadEnv merges the dotenv file at path (if it exists) with the process
// environment. Process variables win.
func ReadEnv(path string) (map[string]string, error) {
	env := map[string]string{}
	if path != "" {
		fileEnv, err := godotenv.Read(path)
		switch {
		case err == nil:
			env = fileEnv
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
		}
	}
	for _, key := range []string{EnvHTTPAddr, EnvGRPCAddr, EnvLogLevel, EnvStorageDriver, EnvStorageDSN, EnvMapsAPIKey} {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}
	return env, nil
}

// ApplyEnv overlays recognised environment values onto cfg and revalidates it.
func ApplyEnv(cfg *Config, env map[string]string) error {
	set := func(key string, dst *string) {
		if v, ok := env[key]; ok && v != "" {
			*dst = v
		}
	}
	set(EnvHTTPAddr, &cfg.Server.HTTPAddr)
	set(EnvGRPCAddr, &cfg.Server.GRPCAddr)
	set(EnvLogLevel, &cfg.LogLevel)
	set(EnvStorageDriver, &cfg.Storage.Driver)
	set(EnvStorageDSN, &cfg.Storage.DSN)
	set(EnvMapsAPIKey, &cfg.Maps.APIKey)

	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config after env overrides: %w", err)
	}
	return nil
}
