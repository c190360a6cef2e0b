package config

import (
	"os"

	"github.com/goccy/go-json"
	"github.com/tkbstudios/tinet/internal/flagx"
	"github.com/tkbstudios/tinet/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations may
// be written as "12h" or as integer nanoseconds.
//
// Only keys present in the file override the current Config.
type JsonConfig struct {
	EndpointAddrHTTP             *string         `json:"endpoint_addr_http"`
	DatabaseDSN                  *string         `json:"database_dsn"`
	SecretKey                    *string         `json:"secret_key"`
	WebSessionValidityDuration   *timex.Duration `json:"web_session_validity_duration"`
	SessionTokenValidityDuration *timex.Duration `json:"session_token_validity_duration"`
	S3RootUser                   *string         `json:"s3_root_user"`
	S3RootPassword               *string         `json:"s3_root_password"`
	S3Bucket                     *string         `json:"s3_bucket"`
	S3Region                     *string         `json:"s3_region"`
	S3BaseEndpoint               *string         `json:"s3_base_endpoint"`
	QuotaBytes                   *int64          `json:"quota_bytes"`
	GrantURLBase                 *string         `json:"grant_url_base"`
	RateLimitPerMinute           *int            `json:"rate_limit_per_minute"`
	CORSOrigins                  []string        `json:"cors_origins"`
	LogLevel                     *string         `json:"log_level"`
	RequestTimeout               *timex.Duration `json:"request_timeout"`
}

// parseJson loads configuration values from the JSON file named by the
// -c or -config flag. Nothing happens when neither flag is given.
// An unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.WebSessionValidityDuration != nil {
		config.WebSessionValidityDuration = c.WebSessionValidityDuration.Duration
	}
	if c.SessionTokenValidityDuration != nil {
		config.SessionTokenValidityDuration = c.SessionTokenValidityDuration.Duration
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.QuotaBytes != nil {
		config.QuotaBytes = *c.QuotaBytes
	}
	setString(&config.GrantURLBase, c.GrantURLBase)
	if c.RateLimitPerMinute != nil {
		config.RateLimitPerMinute = *c.RateLimitPerMinute
	}
	if c.CORSOrigins != nil {
		config.CORSOrigins = c.CORSOrigins
	}
	setString(&config.LogLevel, c.LogLevel)
	if c.RequestTimeout != nil {
		config.RequestTimeout = c.RequestTimeout.Duration
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
