package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/teamvault/teamvault/internal/flagx"
	"github.com/teamvault/teamvault/internal/timex"
)

// JsonConfig is the DTO used only for reading JSON configuration files.
// Interval fields use timex.Duration, which accepts both strings such as
// "15m" and integer nanoseconds. After unmarshalling, values are copied
// into the runtime Config struct.
type JsonConfig struct {
	DatabaseDSN           string         `json:"database_dsn"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration"`
	AuditLogPath          string         `json:"audit_log_path"`
	S3RootUser            string         `json:"s3_root_user"`
	S3RootPassword        string         `json:"s3_root_password"`
	S3Bucket              string         `json:"s3_bucket"`
	S3Region              string         `json:"s3_region"`
	S3BaseEndpoint        string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags into the provided Config. If no flag is given, nothing
// is loaded. An unreadable or invalid file panics: a half-applied config
// overlay is worse than a refused start.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.TokenValidityDuration.Duration != 0 {
		config.TokenValidityDuration = time.Duration(c.TokenValidityDuration.Duration)
	}
	if c.AuditLogPath != "" {
		config.AuditLogPath = c.AuditLogPath
	}
	if c.S3RootUser != "" {
		config.S3RootUser = c.S3RootUser
	}
	if c.S3RootPassword != "" {
		config.S3RootPassword = c.S3RootPassword
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = c.S3BaseEndpoint
	}
}
