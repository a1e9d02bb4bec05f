package config

import (
	"os"
)

type Config struct {
	Env          string
	HttpPort     string
	Region       string // AWS region for STS and S3 calls
	DBDsn        string // optional; run history persisted when set
	APITokenHash string // optional; bcrypt hash guarding POST /api/v1/jobs
}

func Load() *Config {
	cfg := &Config{
		Env:          getEnv("APP_ENV", "dev"),
		HttpPort:     getEnv("HTTP_PORT", "8080"),
		Region:       getEnv("AWS_REGION", ""),
		DBDsn:        getEnv("DATABASE_URL", getEnv("DB_DSN", "")),
		APITokenHash: getEnv("API_TOKEN_HASH", ""),
	}
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
