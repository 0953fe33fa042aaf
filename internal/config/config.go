package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported document store backends.
const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	StoreDriver    string
	MongoURI       string
	MongoDBName    string
	SQLDSN         string
	BreakerEnabled bool

	RedisAddr     string
	RedisPassword string
	KafkaBrokers  []string

	AdminJWTSecret string

	AdminCollection    string
	CartCollection     string
	OriginalCollection string
	ExtraCollection    string
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to load .env: %v", err)
	}
	return FromEnv()
}

// FromEnv builds the config from the environment alone.
func FromEnv() (*Config, error) {
	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		StoreDriver:        strings.ToLower(getEnv("DOCSTORE_DRIVER", DriverMemory)),
		MongoURI:           getEnv("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
		MongoDBName:        getEnv("MONGO_DB_NAME", "storefront"),
		SQLDSN:             getEnv("SQL_DSN", "storefront.db"),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:       splitList(getEnv("KAFKA_BROKERS", "")),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		AdminCollection:    getEnv("ADMIN_COLLECTION", "produkter"),
		CartCollection:     getEnv("CART_COLLECTION", "Kundvagn"),
		OriginalCollection: getEnv("ORIGINAL_COLLECTION", "AllToys"),
		ExtraCollection:    getEnv("EXTRA_COLLECTION", "ExtraToys"),
	}

	var err error
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.BreakerEnabled, err = getBool("BREAKER_ENABLED", false); err != nil {
		return nil, err
	}

	switch cfg.StoreDriver {
	case DriverMemory, DriverMongo, DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported DOCSTORE_DRIVER %q", cfg.StoreDriver)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
