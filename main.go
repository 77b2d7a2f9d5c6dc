package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"warranty/internal/config"
	"warranty/internal/database"
	"warranty/internal/middleware"
	"warranty/internal/server"
	"warranty/internal/services"
	"warranty/pkg/logger"
	"warranty/pkg/rabbitmq"
	"warranty/pkg/storage"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const (
	serviceName = "warranty-portal"
	auditQueue  = "warranty_audit"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.LogConfig{
		Level:       cfg.LogLevel,
		Environment: cfg.AppEnv,
		ServiceName: serviceName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	ctx := context.Background()

	// --- Database ---
	gormLevel := gormlogger.Warn
	if cfg.LogLevel == "debug" {
		gormLevel = gormlogger.Info
	}
	db, err := database.Open(database.Config{
		Driver:       cfg.DBDriver,
		DSN:          cfg.DatabaseDSN,
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
		LogLevel:     gormLevel,
	})
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}

	// --- Invoice archive ---
	var archive storage.Archive
	switch cfg.ArchiveDriver {
	case "memory":
		log.Warn("Using in-memory invoice archive; invoices are lost on restart")
		archive = storage.NewMemoryArchive()
	default:
		s3Archive, err := storage.NewS3ArchiveFromConfig(ctx, storage.S3Config{
			Region:          cfg.AWSRegion,
			Bucket:          cfg.S3Bucket,
			Endpoint:        cfg.AWSEndpointURL,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			log.Fatal("Failed to initialize S3 archive", zap.Error(err))
		}
		archive = s3Archive
	}

	// --- Domain events ---
	var publisher services.EventPublisher
	var mqClient *rabbitmq.Client
	if cfg.RabbitMQURL != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Exchange: cfg.RabbitMQExchange}, log)
		if err != nil {
			log.Fatal("Failed to initialize RabbitMQ client", zap.Error(err))
		}
		publisher = mqClient

		if cfg.RabbitMQConsume {
			if err := mqClient.ConsumeEvents(auditQueue, "#", rabbitmq.AuditLogHandler(log)); err != nil {
				log.Error("Failed to start audit consumer", zap.Error(err))
			}
		}
	} else {
		log.Info("RABBITMQ_URL not set; domain events disabled")
	}

	// --- Rate limiting ---
	var counter middleware.RateCounter
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Warn("Redis not reachable; rate limiter will let requests through until it is", zap.Error(err))
		}
		cancel()
		counter = middleware.NewRedisCounter(redisClient)
	} else {
		log.Info("REDIS_ADDR not set; rate limiting disabled")
	}

	// --- Services ---
	svc := server.NewServices(db, archive, publisher, server.ServiceConfig{
		JWTSecret:       cfg.JWTSecret,
		JWTTTL:          cfg.JWTTTL,
		BulkConcurrency: cfg.BulkConcurrency,
	}, log)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if _, err := svc.Auth.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatal("Failed to provision admin account", zap.Error(err))
		}
	}

	// --- HTTP server ---
	app := server.New(svc, server.Options{
		ServiceName:     serviceName,
		MaxUploadMB:     cfg.MaxUploadMB,
		RateCounter:     counter,
		RateLimitCount:  cfg.RateLimitCount,
		RateLimitPeriod: cfg.RateLimitPeriod,
	}, log)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("Starting server", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))
		if err := app.Listen(cfg.AppPort); err != nil {
			log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	<-quit
	log.Info("Shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("Error during Fiber shutdown", zap.Error(err))
	}
	if mqClient != nil {
		if err := mqClient.Close(); err != nil {
			log.Error("Error closing RabbitMQ client", zap.Error(err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing redis client", zap.Error(err))
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("Server gracefully stopped")
}
