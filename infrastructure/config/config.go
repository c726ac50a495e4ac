package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion     string
	DynamoDBTable string
	IndexName     string // GSI1 - canvas-id and entity lookups
	EventBusName  string

	// Record storage
	StoreDriver string // dynamodb | memory

	// Blob storage
	BlobDriver  string // s3 | memory
	StateBucket string

	// Task queue
	QueueDriver string // sqs | memory
	QueueURL    string

	// Distributed lock
	LockTableName string
	LockTTL       time.Duration

	// Knowledge subsystem (entity duplication, storage quota)
	KnowledgeAPIURL string

	// Lambda configuration
	IsLambda           bool
	LambdaFunctionName string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Logging and features
	LogLevel      string
	EnableMetrics bool
	EnableTracing bool
	EnableCORS    bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		AWSRegion:     getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable: getEnv("TABLE_NAME", "canvas"),
		IndexName:     getEnv("INDEX_NAME", "CanvasIndex"),
		EventBusName:  getEnv("EVENT_BUS_NAME", "canvas-events"),

		StoreDriver: getEnv("STORE_DRIVER", "dynamodb"),

		BlobDriver:  getEnv("BLOB_DRIVER", "s3"),
		StateBucket: getEnv("STATE_BUCKET", "canvas-state"),

		QueueDriver: getEnv("QUEUE_DRIVER", "sqs"),
		QueueURL:    getEnv("QUEUE_URL", ""),

		LockTableName: getEnv("LOCK_TABLE_NAME", "canvas-locks"),
		LockTTL:       getEnvDuration("LOCK_TTL", 30*time.Second),

		KnowledgeAPIURL: getEnv("KNOWLEDGE_API_URL", ""),

		IsLambda:           getEnvBool("IS_LAMBDA", false),
		LambdaFunctionName: getEnv("AWS_LAMBDA_FUNCTION_NAME", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "canvas-backend"),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", false),
		EnableTracing: getEnvBool("ENABLE_TRACING", false),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "dynamodb", "memory":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.BlobDriver {
	case "s3", "memory":
	default:
		return fmt.Errorf("unknown BLOB_DRIVER %q", c.BlobDriver)
	}
	switch c.QueueDriver {
	case "sqs", "memory":
	default:
		return fmt.Errorf("unknown QUEUE_DRIVER %q", c.QueueDriver)
	}

	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.DynamoDBTable == "" {
			return fmt.Errorf("TABLE_NAME is required")
		}
		if c.QueueDriver == "sqs" && c.QueueURL == "" {
			return fmt.Errorf("QUEUE_URL is required when QUEUE_DRIVER=sqs")
		}
		if c.BlobDriver == "s3" && c.StateBucket == "" {
			return fmt.Errorf("STATE_BUCKET is required when BLOB_DRIVER=s3")
		}
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvDuration gets a duration environment variable with a default value.
// Accepts Go duration syntax or a plain number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
