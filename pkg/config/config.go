package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Cache configuration
	Cache CacheConfig `mapstructure:"cache"`

	// Embedding configuration
	Embedding EmbeddingConfig `mapstructure:"embedding"`

	// Oracle configuration
	Oracle OracleConfig `mapstructure:"oracle"`

	// Detector configuration
	Detector DetectorConfig `mapstructure:"detector"`

	// Search configuration
	Search SearchConfig `mapstructure:"search"`

	// Graph store configuration
	GraphStore GraphStoreConfig `mapstructure:"graph_store"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// CircuitBreaker configuration
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// CacheConfig holds embedding-cache configuration
type CacheConfig struct {
	Disabled bool   `mapstructure:"disabled"`
	Store    string `mapstructure:"store"` // file, badger
	Path     string `mapstructure:"path"`
	TTLHours int    `mapstructure:"ttl_hours"` // 0 means entries never expire
}

// EmbeddingConfig holds embedding configuration
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"` // openai, embedeverything
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"`
	BatchSize  int    `mapstructure:"batch_size"`
}

// OracleConfig holds judgment-oracle configuration
type OracleConfig struct {
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	MaxRetries  int     `mapstructure:"max_retries"`
}

// DetectorConfig holds relationship-detector configuration
type DetectorConfig struct {
	CandidateLimit  int     `mapstructure:"candidate_limit"`
	SimilarityFloor float64 `mapstructure:"similarity_floor"`
	Concurrency     int     `mapstructure:"concurrency"`
}

// SearchConfig holds hybrid-search configuration
type SearchConfig struct {
	RankConstant   int     `mapstructure:"rank_constant"`
	FTSWeight      float64 `mapstructure:"fts_weight"`
	SemanticWeight float64 `mapstructure:"semantic_weight"`
}

// GraphStoreConfig holds configuration for the durable graph mirror
type GraphStoreConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	ParquetPath string `mapstructure:"parquet_path"`
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Set defaults
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Override with environment variables if present
	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")

	// Cache defaults
	viper.SetDefault("cache.disabled", false)
	viper.SetDefault("cache.store", "file")
	viper.SetDefault("cache.ttl_hours", 0)
	home, err := os.UserHomeDir()
	if err == nil {
		viper.SetDefault("cache.path", fmt.Sprintf("%s/.noesis/embedding_cache.jsonl", home))
		viper.SetDefault("telemetry.parquet_path", fmt.Sprintf("%s/.noesis/telemetry", home))
	}

	// Embedding defaults
	viper.SetDefault("embedding.provider", "embedeverything")
	viper.SetDefault("embedding.model", "all-MiniLM-L6-v2")
	viper.SetDefault("embedding.batch_size", 64)

	// Oracle defaults
	viper.SetDefault("oracle.model", "gpt-4o-mini")
	viper.SetDefault("oracle.temperature", 0.0)
	viper.SetDefault("oracle.max_tokens", 256)
	viper.SetDefault("oracle.max_retries", 3)

	// Detector defaults
	viper.SetDefault("detector.candidate_limit", 5)
	viper.SetDefault("detector.similarity_floor", 0.0)
	viper.SetDefault("detector.concurrency", 8)

	// Search defaults
	viper.SetDefault("search.rank_constant", 60)
	viper.SetDefault("search.fts_weight", 0.5)
	viper.SetDefault("search.semantic_weight", 0.5)

	// Graph store defaults
	viper.SetDefault("graph_store.enabled", false)
	viper.SetDefault("graph_store.uri", "bolt://localhost:7687")
	viper.SetDefault("graph_store.username", "neo4j")
	viper.SetDefault("graph_store.database", "")
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		if config.Embedding.APIKey == "" {
			config.Embedding.APIKey = apiKey
		}
		if config.Oracle.APIKey == "" {
			config.Oracle.APIKey = apiKey
		}
	}

	// Graph store credentials
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.GraphStore.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.GraphStore.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.GraphStore.Password = pass
	}

	// Cache settings
	if path := os.Getenv("NOESIS_CACHE_PATH"); path != "" {
		config.Cache.Path = path
	}

	// Server settings
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		viper.Set("server.port", port)
	}

	// Telemetry settings
	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}
}
