package config

import (
	"fmt"
	"regexp"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreSQL      = "sql"
	StoreRedis    = "redis"
	StoreDynamoDB = "dynamodb"
)

var tablePrefixPattern = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port     string `env:"PORT" env-default:"3000"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	// Store selection. Every table name is prefixed with TablePrefix.
	StoreType   string `env:"STORE_TYPE" env-default:"sql"`
	TablePrefix string `env:"TABLE_PREFIX" env-default:""`

	// SQL store
	DB DatabaseConfig

	// Redis store
	Redis RedisConfig

	// DynamoDB store
	AWS AWSConfig

	// OTLPEndpoint enables trace export when set, e.g. "http://localhost:4318".
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:""`
}

// DatabaseConfig configures the gorm connection.
type DatabaseConfig struct {
	Type            string `env:"DB_TYPE" env-default:"sqlite"` // mysql, mariadb, postgres, sqlite, sqlserver
	Host            string `env:"DB_HOST" env-default:"localhost"`
	Port            string `env:"DB_PORT" env-default:"3306"`
	Database        string `env:"DB_DATABASE" env-default:"odb.db"` // file path for sqlite
	AppUser         string `env:"DB_APP_USER" env-default:""`
	AppPassword     string `env:"DB_APP_PASSWORD" env-default:""`
	ConnectionLimit int    `env:"DB_APP_CONNECTION_LIMIT" env-default:"5"`
}

// RedisConfig configures the redis client.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD" env-default:""`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

// AWSConfig configures the DynamoDB client. Credentials fall back to the
// default AWS chain when the static keys are empty.
type AWSConfig struct {
	Region          string `env:"AWS_REGION" env-default:"us-east-1"`
	Endpoint        string `env:"DYNAMODB_ENDPOINT" env-default:""` // DynamoDB Local, e.g. http://localhost:8000
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" env-default:""`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" env-default:""`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithEnvFile loads path into the environment, without overriding
// variables already set, then calls Load. An empty path skips the file.
func LoadWithEnvFile(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return Load()
}

// Validate checks the settings the selected store needs.
func (c *Config) Validate() error {
	if !tablePrefixPattern.MatchString(c.TablePrefix) {
		return fmt.Errorf("TABLE_PREFIX may contain only letters, digits and underscores: %q", c.TablePrefix)
	}

	switch c.StoreType {
	case StoreSQL:
		if c.DB.Database == "" {
			return fmt.Errorf("DB_DATABASE is required")
		}
		if c.DB.Type != "sqlite" && c.DB.AppUser == "" {
			return fmt.Errorf("DB_APP_USER is required for %s", c.DB.Type)
		}
		if c.DB.ConnectionLimit < 1 {
			return fmt.Errorf("DB_APP_CONNECTION_LIMIT must be at least 1")
		}
	case StoreRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required")
		}
	case StoreDynamoDB:
		if c.AWS.Region == "" {
			return fmt.Errorf("AWS_REGION is required")
		}
		if (c.AWS.AccessKeyID == "") != (c.AWS.SecretAccessKey == "") {
			return fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set together")
		}
	default:
		return fmt.Errorf("unsupported store type: %s", c.StoreType)
	}
	return nil
}
