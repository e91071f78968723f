package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds the runtime configuration of the ledger service.
type Config struct {
	Port         string
	LogLevel     string
	AllowOrigins string

	StoreDriver string
	MemoryUsers []uint

	DBHost            string
	DBPort            string
	DBUser            string
	DBPassword        string
	DBName            string
	DBMaxIdleConns    int
	DBMaxOpenConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	EncryptionKey string
	JWTSecret     string

	LockTimeout      time.Duration
	EventQueueSize   int
	EventWorkers     int
	EventMaxAttempts int
	EventStream      string

	ExpirySweepEnabled  bool
	ExpirySweepSchedule string

	TransferRateLimit int
}

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env file found: %v", err)
	}
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:         GetEnv("PORT", "3000"),
		LogLevel:     GetEnv("LOG_LEVEL", "info"),
		AllowOrigins: GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173"),

		StoreDriver: GetEnv("STORE_DRIVER", StoreDriverPostgres),
		MemoryUsers: GetUintListEnv("MEMORY_USERS"),

		DBHost:            GetEnv("DB_HOST", "localhost"),
		DBPort:            GetEnv("DB_PORT", "5432"),
		DBUser:            GetEnv("DB_USER", "postgres"),
		DBPassword:        GetEnv("DB_PASSWORD", "postgres"),
		DBName:            GetEnv("DB_NAME", "bankcards"),
		DBMaxIdleConns:    GetIntEnv("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns:    GetIntEnv("DB_MAX_OPEN_CONNS", 100),
		DBConnMaxLifetime: GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
		DBConnMaxIdleTime: GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),

		RedisHost:     GetEnv("REDIS_HOST", "localhost"),
		RedisPort:     GetEnv("REDIS_PORT", "6379"),
		RedisPassword: GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       GetIntEnv("REDIS_DB", 0),

		EncryptionKey: GetEnv("ENCRYPTION_KEY", ""),
		JWTSecret:     GetEnv("JWT_SECRET", ""),

		LockTimeout:      GetDurationEnv("LOCK_TIMEOUT", 5*time.Second),
		EventQueueSize:   GetIntEnv("EVENT_QUEUE_SIZE", 1024),
		EventWorkers:     GetIntEnv("EVENT_WORKERS", 2),
		EventMaxAttempts: GetIntEnv("EVENT_MAX_ATTEMPTS", 5),
		EventStream:      GetEnv("EVENT_STREAM", "bank.transfers"),

		ExpirySweepEnabled:  GetBoolEnv("EXPIRY_SWEEP_ENABLED", false),
		ExpirySweepSchedule: GetEnv("EXPIRY_SWEEP_SCHEDULE", "@daily"),

		TransferRateLimit: GetIntEnv("TRANSFER_RATE_LIMIT", 60),
	}

	if cfg.EncryptionKey == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	switch cfg.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	if cfg.LockTimeout <= 0 {
		return nil, fmt.Errorf("LOCK_TIMEOUT must be positive")
	}

	return cfg, nil
}

// PostgresDSN builds the connection string for the configured database.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetDurationEnv returns a duration environment variable or a default value.
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// GetBoolEnv returns a bool environment variable or a default value.
func GetBoolEnv(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// GetUintListEnv parses a comma separated list of ids, skipping bad entries.
func GetUintListEnv(key string) []uint {
	var ids []uint
	for _, part := range strings.Split(os.Getenv(key), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if id, err := strconv.ParseUint(part, 10, 64); err == nil {
			ids = append(ids, uint(id))
		}
	}
	return ids
}

// IsProduction checks if the app runs in production mode.
func IsProduction() bool {
	return GetEnv("ENV", "development") == "production"
}
