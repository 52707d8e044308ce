package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// Every environment variable is read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External APIs
	EDGAR  EDGARConfig
	OpenAI OpenAIConfig

	// Pipeline
	Pipeline PipelineConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// EDGARConfig holds SEC EDGAR full-text and archive access configuration.
// UserAgent is mandatory: SEC blocks anonymous clients.
type EDGARConfig struct {
	BaseURL        string // archive host (filing documents and indexes)
	DataBaseURL    string // submissions API host
	UserAgent      string
	RatePerSecond  float64
	CacheTTL       time.Duration
	MaxFilings     int
	LookbackMonths int
}

// OpenAIConfig holds the embedding and classification-check API settings.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	EmbeddingModel string
	ExtractModel   string
	CheckModel     string
	Enabled        bool
	MaxConcurrent  int
	RequestTimeout time.Duration
}

// PipelineConfig holds processing knobs that operators tune per deployment.
type PipelineConfig struct {
	MaxConcurrentDocs int
	SemanticTier      bool
	ExternalCheck     bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "distress_radar"),
			User:            getEnv("DB_USER", "distress_radar"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		// External APIs
		EDGAR: EDGARConfig{
			BaseURL:        getEnv("EDGAR_BASE_URL", "https://www.sec.gov"),
			DataBaseURL:    getEnv("EDGAR_DATA_BASE_URL", "https://data.sec.gov"),
			UserAgent:      getEnv("EDGAR_USER_AGENT", ""),
			RatePerSecond:  getEnvAsFloat("EDGAR_RATE_PER_SECOND", 8),
			CacheTTL:       getEnvAsDuration("EDGAR_CACHE_TTL", "24h"),
			MaxFilings:     getEnvAsInt("EDGAR_MAX_FILINGS", 40),
			LookbackMonths: getEnvAsInt("EDGAR_LOOKBACK_MONTHS", 24),
		},

		OpenAI: OpenAIConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			BaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			EmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			ExtractModel:   getEnv("OPENAI_EXTRACT_MODEL", "gpt-4o"),
			CheckModel:     getEnv("OPENAI_CHECK_MODEL", "gpt-4o-mini"),
			Enabled:        getEnvAsBool("OPENAI_ENABLED", true),
			MaxConcurrent:  getEnvAsInt("OPENAI_MAX_CONCURRENT", 4),
			RequestTimeout: getEnvAsDuration("OPENAI_REQUEST_TIMEOUT", "30s"),
		},

		// Pipeline
		Pipeline: PipelineConfig{
			MaxConcurrentDocs: getEnvAsInt("PIPELINE_MAX_CONCURRENT_DOCS", 4),
			SemanticTier:      getEnvAsBool("PIPELINE_SEMANTIC_TIER", true),
			ExternalCheck:     getEnvAsBool("PIPELINE_EXTERNAL_CHECK", true),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Database URL is required
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.OpenAI.MaxConcurrent < 1 {
		return fmt.Errorf("OPENAI_MAX_CONCURRENT must be >= 1")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
