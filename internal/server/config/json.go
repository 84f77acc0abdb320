package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/shareplaces/internal/flagx"
	"github.com/dmitrijs2005/shareplaces/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept both strings
// such as "48h" and integer nanoseconds via timex.Duration.
type JsonConfig struct {
	HTTPAddr          string         `json:"http_addr"`
	DatabaseDSN       string         `json:"database_dsn"`
	SecretKey         string         `json:"secret_key"`
	TokenValidity     timex.Duration `json:"token_validity"`
	PasswordCost      int            `json:"password_cost"`
	GeoAPIKey         string         `json:"geo_api_key"`
	GeoEndpoint       string         `json:"geo_endpoint"`
	GeoTimeout        timex.Duration `json:"geo_timeout"`
	S3AccessKeyID     string         `json:"s3_access_key_id"`
	S3SecretAccessKey string         `json:"s3_secret_access_key"`
	S3Bucket          string         `json:"s3_bucket"`
	S3Region          string         `json:"s3_region"`
	S3BaseEndpoint    string         `json:"s3_base_endpoint"`
	S3PublicBaseURL   string         `json:"s3_public_base_url"`
	LogFormat         string         `json:"log_format"`
	AllowedOrigins    []string       `json:"allowed_origins"`
	AuthRateLimit     *int           `json:"auth_rate_limit"`
}

// parseJson loads the file named by -c / -config, if any, into config.
// Only keys present with a non-zero value override. An unreadable file or
// invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFilePath()

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

	str := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	dur := func(dst *time.Duration, v timex.Duration) {
		if v.Duration != 0 {
			*dst = v.Duration
		}
	}

	str(&config.HTTPAddr, c.HTTPAddr)
	str(&config.DatabaseDSN, c.DatabaseDSN)
	str(&config.SecretKey, c.SecretKey)
	dur(&config.TokenValidity, c.TokenValidity)
	if c.PasswordCost != 0 {
		config.PasswordCost = c.PasswordCost
	}
	str(&config.GeoAPIKey, c.GeoAPIKey)
	str(&config.GeoEndpoint, c.GeoEndpoint)
	dur(&config.GeoTimeout, c.GeoTimeout)
	str(&config.S3AccessKeyID, c.S3AccessKeyID)
	str(&config.S3SecretAccessKey, c.S3SecretAccessKey)
	str(&config.S3Bucket, c.S3Bucket)
	str(&config.S3Region, c.S3Region)
	str(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	str(&config.S3PublicBaseURL, c.S3PublicBaseURL)
	str(&config.LogFormat, c.LogFormat)
	if len(c.AllowedOrigins) > 0 {
		config.AllowedOrigins = c.AllowedOrigins
	}
	if c.AuthRateLimit != nil {
		config.AuthRateLimit = *c.AuthRateLimit
	}
}
