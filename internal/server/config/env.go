package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/tkbstudios/tinet/internal/flagx"
)

// Environment variable names read by parseEnv.
const (
	EnvHTTPAddr             = "TINET_HTTP_ADDR"
	EnvDatabaseDSN          = "TINET_DATABASE_DSN"
	EnvSecretKey            = "TINET_SECRET_KEY"
	EnvWebSessionValidity   = "TINET_WEB_SESSION_VALIDITY"
	EnvSessionTokenValidity = "TINET_SESSION_TOKEN_VALIDITY"
	EnvS3RootUser           = "TINET_S3_ROOT_USER"
	EnvS3RootPassword       = "TINET_S3_ROOT_PASSWORD"
	EnvS3Bucket             = "TINET_S3_BUCKET"
	EnvS3Region             = "TINET_S3_REGION"
	EnvS3BaseEndpoint       = "TINET_S3_BASE_ENDPOINT"
	EnvQuotaBytes           = "TINET_QUOTA_BYTES"
	EnvGrantURLBase         = "TINET_GRANT_URL_BASE"
	EnvRateLimitPerMinute   = "TINET_RATE_LIMIT_PER_MINUTE"
	EnvCORSOrigins          = "TINET_CORS_ORIGINS"
	EnvLogLevel             = "TINET_LOG_LEVEL"
	EnvRequestTimeout       = "TINET_REQUEST_TIMEOUT"
)

// parseEnv overlays TINET_* environment variables onto config. When -env
// names a dotenv file it is loaded first; variables already set in the
// process environment win over the file.
//
// Durations use time.ParseDuration syntax, CORS origins are comma separated.
// Malformed numbers or durations panic, like a broken JSON file does.
func parseEnv(config *Config) {
	if envFile := flagx.EnvFileFlags(); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			panic(err)
		}
	}

	envString(&config.EndpointAddrHTTP, EnvHTTPAddr)
	envString(&config.DatabaseDSN, EnvDatabaseDSN)
	envString(&config.SecretKey, EnvSecretKey)
	envDuration(&config.WebSessionValidityDuration, EnvWebSessionValidity)
	envDuration(&config.SessionTokenValidityDuration, EnvSessionTokenValidity)
	envString(&config.S3RootUser, EnvS3RootUser)
	envString(&config.S3RootPassword, EnvS3RootPassword)
	envString(&config.S3Bucket, EnvS3Bucket)
	envString(&config.S3Region, EnvS3Region)
	envString(&config.S3BaseEndpoint, EnvS3BaseEndpoint)
	if v, ok := os.LookupEnv(EnvQuotaBytes); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			panic(err)
		}
		config.QuotaBytes = n
	}
	envString(&config.GrantURLBase, EnvGrantURLBase)
	if v, ok := os.LookupEnv(EnvRateLimitPerMinute); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		config.RateLimitPerMinute = n
	}
	if v, ok := os.LookupEnv(EnvCORSOrigins); ok {
		config.CORSOrigins = splitList(v)
	}
	envString(&config.LogLevel, EnvLogLevel)
	envDuration(&config.RequestTimeout, EnvRequestTimeout)
}

func envString(dst *string, name string) {
	if v, ok := os.LookupEnv(name); ok {
		*dst = v
	}
}

func envDuration(dst *time.Duration, name string) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
