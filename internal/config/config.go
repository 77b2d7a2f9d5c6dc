// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all service configuration.
type Config struct {
	AppPort string
	AppEnv  string

	LogLevel string

	DBDriver       string
	DatabaseDSN    string
	DBMaxOpenConns int
	DBMaxIdleConns int

	JWTSecret string
	JWTTTL    time.Duration

	ArchiveDriver      string
	AWSRegion          string
	S3Bucket           string
	AWSEndpointURL     string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	RabbitMQURL      string
	RabbitMQExchange string
	RabbitMQConsume  bool

	RedisAddr       string
	RedisPassword   string
	RateLimitCount  int
	RateLimitPeriod time.Duration

	BulkConcurrency int
	MaxUploadMB     int

	AdminEmail    string
	AdminPassword string
}

const devJWTSecret = "dev_jwt_secret"

// SetDefaults registers the default value of every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DATABASE_DSN", "host=127.0.0.1 user=postgres password=postgres dbname=warranty port=5432 sslmode=disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL", 24*time.Hour)
	v.SetDefault("ARCHIVE_DRIVER", "s3")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("AWS_S3_BUCKET", "")
	v.SetDefault("AWS_ENDPOINT_URL", "")
	v.SetDefault("AWS_ACCESS_KEY_ID", "")
	v.SetDefault("AWS_SECRET_ACCESS_KEY", "")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_EXCHANGE", "warranty.events")
	v.SetDefault("RABBITMQ_CONSUME", false)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("RATE_LIMIT_COUNT", 10)
	v.SetDefault("RATE_LIMIT_PERIOD", time.Minute)
	v.SetDefault("BULK_CONCURRENCY", 4)
	v.SetDefault("MAX_UPLOAD_MB", 10)
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_PASSWORD", "")
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds a Config from v and validates it.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppPort:            v.GetString("APP_PORT"),
		AppEnv:             v.GetString("APP_ENV"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		DBDriver:           v.GetString("DB_DRIVER"),
		DatabaseDSN:        v.GetString("DATABASE_DSN"),
		DBMaxOpenConns:     v.GetInt("DB_MAX_OPEN_CONNS"),
		DBMaxIdleConns:     v.GetInt("DB_MAX_IDLE_CONNS"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		JWTTTL:             v.GetDuration("JWT_TTL"),
		ArchiveDriver:      v.GetString("ARCHIVE_DRIVER"),
		AWSRegion:          v.GetString("AWS_REGION"),
		S3Bucket:           v.GetString("AWS_S3_BUCKET"),
		AWSEndpointURL:     v.GetString("AWS_ENDPOINT_URL"),
		AWSAccessKeyID:     v.GetString("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: v.GetString("AWS_SECRET_ACCESS_KEY"),
		RabbitMQURL:        v.GetString("RABBITMQ_URL"),
		RabbitMQExchange:   v.GetString("RABBITMQ_EXCHANGE"),
		RabbitMQConsume:    v.GetBool("RABBITMQ_CONSUME"),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		RateLimitCount:     v.GetInt("RATE_LIMIT_COUNT"),
		RateLimitPeriod:    v.GetDuration("RATE_LIMIT_PERIOD"),
		BulkConcurrency:    v.GetInt("BULK_CONCURRENCY"),
		MaxUploadMB:        v.GetInt("MAX_UPLOAD_MB"),
		AdminEmail:         v.GetString("ADMIN_EMAIL"),
		AdminPassword:      v.GetString("ADMIN_PASSWORD"),
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = devJWTSecret
	}
	if cfg.ArchiveDriver == "s3" && cfg.S3Bucket == "" {
		return nil, errors.New("AWS_S3_BUCKET is required when ARCHIVE_DRIVER=s3")
	}
	if cfg.BulkConcurrency < 1 {
		cfg.BulkConcurrency = 1
	}
	if cfg.JWTTTL <= 0 {
		cfg.JWTTTL = 24 * time.Hour
	}
	return cfg, nil
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
