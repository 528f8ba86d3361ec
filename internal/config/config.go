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

// Storage backends selectable with STORAGE_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMongo    = "mongo"
)

// Config holds application configuration
type Config struct {
	// Server
	Port string
	Env  string

	// Storage
	StorageBackend string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// Document store, used for transactions and recurring expenses when
	// StorageBackend is mongo.
	MongoURI      string
	MongoDatabase string

	// Change fan-out across replicas. Empty AMQPURL keeps notifications local.
	AMQPURL      string
	AMQPExchange string

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// Import
	ImportMaxBytes int64
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Get values from environment variables with defaults
	config := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", BackendPostgres)),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "cashflow"),
		DBPassword: getEnv("DB_PASSWORD", "cashflow"),
		DBName:     getEnv("DB_NAME", "cashflow"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "cashflow.db"),

		MongoURI:      getEnv("MONGO_URI", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "cashflow"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "cashflow.changes"),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),
	}

	switch config.StorageBackend {
	case BackendPostgres, BackendSQLite, BackendMongo:
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q (use postgres, sqlite, or mongo)", config.StorageBackend)
	}
	if config.StorageBackend == BackendMongo && config.MongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI is required when STORAGE_BACKEND is mongo")
	}

	// Parse JWT expiration duration
	expStr := getEnv("JWT_EXPIRES_IN", "24h")
	expDur, err := time.ParseDuration(expStr)
	if err != nil {
		log.Printf("Warning: invalid JWT_EXPIRES_IN value '%s', falling back to 24h\n", expStr)
		expDur = 24 * time.Hour
	}
	config.JWTExpirationDur = expDur

	maxStr := getEnv("IMPORT_MAX_BYTES", "5242880")
	maxBytes, err := strconv.ParseInt(maxStr, 10, 64)
	if err != nil || maxBytes <= 0 {
		log.Printf("Warning: invalid IMPORT_MAX_BYTES value '%s', falling back to 5MiB\n", maxStr)
		maxBytes = 5 << 20
	}
	config.ImportMaxBytes = maxBytes

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
