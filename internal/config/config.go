package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	Server    ServerConfig
	Auth      AuthConfig
	Voting    VotingConfig
	Store     StoreConfig
	Worker    WorkerConfig
	Reconcile ReconcileConfig
	Admin     AdminConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	DB       int
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	AllowedOrigins string
}

// AuthConfig holds session token configuration
type AuthConfig struct {
	JWTSecret    string
	SessionTTL   time.Duration
	CookieName   string
	CookieSecure bool
}

// VotingConfig holds vote policy switches
type VotingConfig struct {
	AllowSelfVote bool
}

// StoreConfig selects the document store backend
type StoreConfig struct {
	Driver string // "postgres" or "memory"
}

// WorkerConfig sizes the vote event worker pool
type WorkerConfig struct {
	Count     int
	QueueSize int
}

// ReconcileConfig controls the integrity reconciler. A zero interval disables it.
type ReconcileConfig struct {
	Interval time.Duration
	Repair   bool
}

// AdminConfig is the account the seeder bootstraps
type AdminConfig struct {
	Username string
	Password string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file from the parent directory first, then the current one
	if err := godotenv.Load("../.env"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found, using environment variables")
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "gamedict"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Username: getEnv("REDIS_USERNAME", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("BACKEND_PORT", 8000),
			AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),
		},
		Auth: AuthConfig{
			JWTSecret:    getEnv("JWT_SECRET", ""),
			SessionTTL:   getEnvAsDuration("SESSION_TTL", 24*time.Hour),
			CookieName:   getEnv("SESSION_COOKIE", "gamedict_session"),
			CookieSecure: getEnvAsBool("SESSION_COOKIE_SECURE", false),
		},
		Voting: VotingConfig{
			AllowSelfVote: getEnvAsBool("ALLOW_SELF_VOTE", true),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getEnv("STORE_DRIVER", "postgres")),
		},
		Worker: WorkerConfig{
			Count:     getEnvAsInt("WORKER_COUNT", 4),
			QueueSize: getEnvAsInt("WORKER_QUEUE_SIZE", 1000),
		},
		Reconcile: ReconcileConfig{
			Interval: getEnvAsDuration("RECONCILE_INTERVAL", 0),
			Repair:   getEnvAsBool("RECONCILE_REPAIR", false),
		},
		Admin: AdminConfig{
			Username: getEnv("ADMIN_USERNAME", "admin"),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with
func (c *Config) Validate() error {
	if c.Store.Driver != "postgres" && c.Store.Driver != "memory" {
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.Worker.Count < 1 || c.Worker.QueueSize < 1 {
		return errors.New("WORKER_COUNT and WORKER_QUEUE_SIZE must be at least 1")
	}
	return nil
}

// GetDSN returns the PostgreSQL DSN
func (c *Config) GetDSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("90s", "2h")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
