package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Environment variable names. The two keys are environment-only on purpose:
// they must never appear in flags or config files checked into a repo.
const (
	EnvMasterKey   = "TEAMVAULT_MASTER_KEY"
	EnvTokenKey    = "TEAMVAULT_TOKEN_KEY"
	EnvDatabaseDSN = "TEAMVAULT_DATABASE_DSN"
)

// parseEnv overlays values from the process environment, loading a local
// .env file first if one exists. A missing .env file is fine; missing keys
// are caught later by Config.Validate.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	if v, ok := os.LookupEnv(EnvMasterKey); ok {
		config.MasterKey = v
	}
	if v, ok := os.LookupEnv(EnvTokenKey); ok {
		config.TokenKey = v
	}
	if v, ok := os.LookupEnv(EnvDatabaseDSN); ok {
		config.DatabaseDSN = v
	}
}
