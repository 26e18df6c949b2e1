package config

import (
	"os"
	"strings"
)

// Environment variables read by parseEnv.
const (
	EnvPort        = "PORT"
	EnvJWTSecret   = "JWT_SECRET"
	EnvDatabaseDSN = "DATABASE_DSN"
	EnvS3AccessKey = "S3_ACCESS_KEY"
	EnvS3SecretKey = "S3_SECRET_KEY"
	EnvS3Bucket    = "S3_BUCKET"
	EnvS3Region    = "S3_REGION"
	EnvS3Endpoint  = "S3_ENDPOINT"
	EnvS3PublicURL = "S3_PUBLIC_URL"
)

// parseEnv overlays non-empty environment variables onto config. PORT is a
// bare port number and binds all interfaces.
func parseEnv(config *Config) {
	if port, ok := lookup(EnvPort); ok {
		config.HTTPAddr = ":" + strings.TrimPrefix(port, ":")
	}

	for name, dst := range map[string]*string{
		EnvJWTSecret:   &config.JWTSecret,
		EnvDatabaseDSN: &config.DatabaseDSN,
		EnvS3AccessKey: &config.S3AccessKey,
		EnvS3SecretKey: &config.S3SecretKey,
		EnvS3Bucket:    &config.S3Bucket,
		EnvS3Region:    &config.S3Region,
		EnvS3Endpoint:  &config.S3Endpoint,
		EnvS3PublicURL: &config.S3PublicURL,
	} {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
