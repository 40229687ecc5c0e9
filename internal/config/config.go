package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Log      LogConfig
}

type ServerConfig struct {
	HTTPPort        string
	GRPCPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Driver         string
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string
	SQLitePath     string
	MigrationsPath string
}

// RedisConfig with an empty Addr disables the cart cache.
type RedisConfig struct {
	Addr     string
	Password string
}

// KafkaConfig with no brokers disables outbox publishing.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load(".env")

	requestTimeout, err := getEnvAsDuration("REQUEST_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	dbPort, err := getEnvAsInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			HTTPPort:        getEnv("HTTP_PORT", "8080"),
			GRPCPort:        getEnv("GRPC_PORT", "50052"),
			RequestTimeout:  requestTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
		Database: DatabaseConfig{
			Driver:     strings.ToLower(getEnv("STORE_DRIVER", StorePostgres)),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       dbPort,
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", ""),
			DBName:     getEnv("DB_NAME", "bookcart"),
			SQLitePath: getEnv("SQLITE_PATH", "bookcart.db"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "invoice-outbox"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}
	cfg.Database.MigrationsPath = getEnv("MIGRATIONS_PATH", "migrations/"+cfg.Database.Driver)

	switch cfg.Database.Driver {
	case StoreMemory, StoreSQLite, StorePostgres:
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.Database.Driver)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
