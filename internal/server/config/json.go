package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/shipledger/internal/flagx"
	"github.com/dmitrijs2005/shipledger/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept strings such as
// "24h" as well as integer nanoseconds. Omitted keys keep their current
// values.
type JsonConfig struct {
	HTTPAddr          string         `json:"http_addr"`
	GRPCAddr          string         `json:"grpc_addr"`
	DatabaseDSN       string         `json:"database_dsn"`
	JWTSecret         string         `json:"jwt_secret"`
	TokenTTL          timex.Duration `json:"token_ttl"`
	BcryptCost        int            `json:"bcrypt_cost"`
	S3AccessKey       string         `json:"s3_access_key"`
	S3SecretKey       string         `json:"s3_secret_key"`
	S3Bucket          string         `json:"s3_bucket"`
	S3Region          string         `json:"s3_region"`
	S3Endpoint        string         `json:"s3_endpoint"`
	S3PublicURL       string         `json:"s3_public_url"`
	MaxImageDimension int            `json:"max_image_dimension"`
	TaskWorkers       int            `json:"task_workers"`
	TaskQueueSize     int            `json:"task_queue_size"`
	TaskTimeout       timex.Duration `json:"task_timeout"`
	ShutdownTimeout   timex.Duration `json:"shutdown_timeout"`
}

// parseJson overlays the JSON file named by -c/-config (or $SHIPLEDGER_CONFIG)
// onto config. Without a path it does nothing. An unreadable or invalid file
// panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigPath()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.JWTSecret, c.JWTSecret)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3Endpoint, c.S3Endpoint)
	setString(&config.S3PublicURL, c.S3PublicURL)

	setInt(&config.BcryptCost, c.BcryptCost)
	setInt(&config.MaxImageDimension, c.MaxImageDimension)
	setInt(&config.TaskWorkers, c.TaskWorkers)
	setInt(&config.TaskQueueSize, c.TaskQueueSize)

	if c.TokenTTL.Duration > 0 {
		config.TokenTTL = c.TokenTTL.Duration
	}
	if c.TaskTimeout.Duration > 0 {
		config.TaskTimeout = c.TaskTimeout.Duration
	}
	if c.ShutdownTimeout.Duration > 0 {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
