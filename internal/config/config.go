package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Storage backends
const (
	BackendFilesystem = "filesystem"
	BackendMemory     = "memory"
	BackendPostgres   = "postgres"
	BackendS3         = "s3"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Document storage configuration
	Storage StorageConfig

	// Database configuration (postgres backend)
	Database DatabaseConfig

	// Object storage configuration (s3 backend)
	S3 S3Config

	// Story behaviour
	Stories StoriesConfig

	// Import/Export configuration
	Import ImportConfig

	// Logging configuration
	Log LogConfig

	MigrationsPath string `envconfig:"MIGRATIONS_PATH" default:"./migrations"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"*"`
}

// StorageConfig selects and configures the document store
type StorageConfig struct {
	Backend string `envconfig:"STORAGE_BACKEND" default:"filesystem"`
	DataDir string `envconfig:"DATA_DIR" default:"./data"`
	// LockTimeout bounds how long a mutation waits for its per-story lock
	LockTimeout time.Duration `envconfig:"STORAGE_LOCK_TIMEOUT" default:"10s"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host         string        `envconfig:"DB_HOST" default:"localhost"`
	Port         string        `envconfig:"DB_PORT" default:"5432"`
	User         string        `envconfig:"DB_USER" default:"postgres"`
	Password     string        `envconfig:"DB_PASSWORD" default:"postgres"`
	Name         string        `envconfig:"DB_NAME" default:"story_cms"`
	SSLMode      string        `envconfig:"DB_SSLMODE" default:"disable"`
	MaxOpenConns int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	MaxLifetime  time.Duration `envconfig:"DB_MAX_LIFETIME" default:"5m"`
}

// S3Config holds object storage settings
type S3Config struct {
	Endpoint     string `envconfig:"S3_ENDPOINT"`
	Region       string `envconfig:"S3_REGION" default:"us-east-1"`
	Bucket       string `envconfig:"S3_BUCKET"`
	AccessKey    string `envconfig:"S3_ACCESS_KEY"`
	SecretKey    string `envconfig:"S3_SECRET_KEY"`
	Prefix       string `envconfig:"S3_PREFIX"`
	UsePathStyle bool   `envconfig:"S3_USE_PATH_STYLE" default:"true"`
}

// StoriesConfig holds story behaviour switches
type StoriesConfig struct {
	// Namespace is the key prefix of live stories
	Namespace string `envconfig:"STORIES_NAMESPACE" default:"stories"`
	// CountViews restores the legacy behaviour of incrementing views on every view request
	CountViews bool `envconfig:"STORIES_COUNT_VIEWS" default:"false"`
}

// ImportConfig holds bulk import settings
type ImportConfig struct {
	MaxUploadSize int64 `envconfig:"MAX_UPLOAD_SIZE" default:"52428800"` // in bytes
	MaxErrors     int   `envconfig:"IMPORT_MAX_ERRORS" default:"100"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"` // "json" or "pretty"
}

// Load reads configuration from a .env file (if any) and environment variables.
// Every field tag is a full variable name; envconfig falls back to it when the
// nested-prefixed name (e.g. STORAGE_DATA_DIR) is unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFilesystem:
		if c.Storage.DataDir == "" {
			return fmt.Errorf("DATA_DIR is required for the filesystem backend")
		}
	case BackendMemory:
	case BackendPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required for the postgres backend")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required for the postgres backend")
		}
	case BackendS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 backend")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3_REGION is required for the s3 backend")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of: filesystem, memory, postgres, s3")
	}
	if c.Stories.Namespace == "" {
		return fmt.Errorf("STORIES_NAMESPACE must not be empty")
	}
	if c.Import.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}
