package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	RawCSVPath     string
	AuxCSVPath     string
	CleanedCSVPath string
	ModelPath      string
	SchemaPath     string
	PlotsDir       string

	TestRatio       float64
	SplitSeed       int64
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MaxFeatures     int
	MaxConcurrency  int

	HTTPAddr      string
	SessionSecret string

	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	MaxRetries       int

	LogLevel string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		RawCSVPath:     getEnv("RAW_CSV_PATH", "data/Kangaroo.csv"),
		AuxCSVPath:     getEnv("AUX_CSV_PATH", "data/Giraffe.csv"),
		CleanedCSVPath: getEnv("CLEANED_CSV_PATH", "data/Kangaroo_cleaned.csv"),
		ModelPath:      getEnv("MODEL_PATH", "artifacts/model_random_forest.gob"),
		SchemaPath:     getEnv("SCHEMA_PATH", "artifacts/model_features.yaml"),
		PlotsDir:       getEnv("PLOTS_DIR", ""),

		TestRatio:       getEnvFloat("TEST_RATIO", 0.2),
		SplitSeed:       int64(getEnvInt("SPLIT_SEED", 42)),
		NEstimators:     getEnvInt("N_ESTIMATORS", 200),
		MaxDepth:        getEnvInt("MAX_DEPTH", 20),
		MinSamplesSplit: getEnvInt("MIN_SAMPLES_SPLIT", 2),
		MaxFeatures:     getEnvInt("MAX_FEATURES", 0),
		MaxConcurrency:  getEnvInt("MAX_CONCURRENCY", 4),

		HTTPAddr:      getEnv("HTTP_ADDR", ":8501"),
		SessionSecret: getEnv("SESSION_SECRET", "change-me"),

		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "immo"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "immo123"),
		PostgresDB:       getEnv("POSTGRES_DB", "immo_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		MaxRetries:       getEnvInt("MAX_RETRIES", 3),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
		log.Printf("[config] %s=%q is not an integer, using %d", key, val, fallback)
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
		log.Printf("[config] %s=%q is not a number, using %v", key, val, fallback)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
		log.Printf("[config] %s=%q is not a boolean, using %v", key, val, fallback)
	}
	return fallback
}
