package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// envFile is loaded before the environment is read. Variables already set
// in the process environment win over the file.
var envFile = ".env"

// parseEnv overlays Config with environment variables. A missing .env file
// is ignored; an unreadable one or a malformed value panics.
func parseEnv(config *Config) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	if v, ok := os.LookupEnv("PORT"); ok && v != "" {
		config.HTTPAddr = ":" + v
	}
	setString(&config.HTTPAddr, "HTTP_ADDR")
	setString(&config.DatabaseDSN, "DATABASE_DSN")
	setString(&config.SecretKey, "JWT_SECRET")
	setString(&config.GeoAPIKey, "GEO_API_KEY")
	setString(&config.GeoEndpoint, "GEO_ENDPOINT")
	setString(&config.S3AccessKeyID, "AWS_ACCESS_KEY_ID")
	setString(&config.S3SecretAccessKey, "AWS_SECRET_ACCESS_KEY")
	setString(&config.S3Bucket, "AWS_BUCKET")
	setString(&config.S3Region, "AWS_REGION")
	setString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	setString(&config.S3PublicBaseURL, "S3_PUBLIC_BASE_URL")
	setString(&config.LogFormat, "LOG_FORMAT")

	if v, ok := lookup("TOKEN_VALIDITY"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		config.TokenValidity = d
	}
	if v, ok := lookup("BCRYPT_COST"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		config.PasswordCost = n
	}
	if v, ok := lookup("AUTH_RATE_LIMIT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		config.AuthRateLimit = n
	}
	if v, ok := lookup("CORS_ORIGINS"); ok {
		config.AllowedOrigins = splitList(v)
	}
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
