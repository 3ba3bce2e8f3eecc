// Package config provides configuration management for Moneta.
// Settings come from three layers, later layers winning: built-in defaults,
// an optional YAML file (moneta.yaml, or the path in MONETA_CONFIG), and
// environment variables with the MONETA_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the Moneta server.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Engine    EngineConfig    `yaml:"engine"`
	Security  SecurityConfig  `yaml:"security"`
	Backup    BackupConfig    `yaml:"backup"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"` // Server port (default: 7171)
	Host string `yaml:"host"` // Server host (default: 127.0.0.1)
}

// StorageConfig contains persistence configuration.
type StorageConfig struct {
	Engine string `yaml:"engine"` // Storage engine: sqlite, postgres, memory (default: sqlite)
	DSN    string `yaml:"dsn"`    // Connection string; for sqlite a file path (default: ./data/moneta.db)
}

// EmbeddingConfig contains embedding provider configuration.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`   // Provider: ollama, openai, deterministic (default: ollama)
	OllamaURL  string `yaml:"ollama_url"` // Ollama API URL (default: http://localhost:11434)
	Model      string `yaml:"model"`      // Model name; empty uses the provider default
	APIKey     string `yaml:"api_key"`    // OpenAI API key
	BaseURL    string `yaml:"base_url"`   // OpenAI-compatible base URL override
	Dimensions int    `yaml:"dimensions"` // Vector dimensions; 0 uses the provider default
}

// EngineConfig contains scoring and search parameters.
type EngineConfig struct {
	BaseThreshold       float64 `yaml:"base_threshold"`        // Connection threshold for long texts (default: 0.35)
	DefaultTopK         int     `yaml:"default_top_k"`         // Search result count (default: 10)
	DefaultMinRelevance float64 `yaml:"default_min_relevance"` // Hybrid-score cutoff (default: 0.2)
	ScoreNormalization  float64 `yaml:"score_normalization"`   // Hybrid normalization divisor; 0 = auto
}

// SecurityConfig contains authentication and rate-limit settings.
type SecurityConfig struct {
	APIToken       string  `yaml:"api_token"`        // Bearer token; empty disables auth
	RateLimit      float64 `yaml:"rate_limit"`       // Requests per second per client (default: 20)
	RateLimitBurst int     `yaml:"rate_limit_burst"` // Burst size (default: 40)
}

// BackupConfig contains snapshot settings. Snapshots only apply to the
// sqlite storage engine.
type BackupConfig struct {
	Enabled  bool   `yaml:"enabled"`  // Enable periodic snapshots (default: false)
	Dir      string `yaml:"dir"`      // Snapshot directory (default: ./backups)
	Interval string `yaml:"interval"` // Snapshot interval as a duration (default: 1h)
	Keep     int    `yaml:"keep"`     // Snapshots to retain (default: 24)
	Verify   bool   `yaml:"verify"`   // Integrity-check each snapshot (default: true)
}

// LoadConfig loads configuration from the YAML file (when present) and
// environment variables, with environment variables taking precedence.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	path := getEnv("MONETA_CONFIG", "moneta.yaml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	applyEnv(cfg)

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("config: invalid server port %d", cfg.Server.Port)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 7171,
			Host: "127.0.0.1",
		},
		Storage: StorageConfig{
			Engine: "sqlite",
			DSN:    "./data/moneta.db",
		},
		Embedding: EmbeddingConfig{
			Provider:  "ollama",
			OllamaURL: "http://localhost:11434",
		},
		Engine: EngineConfig{
			BaseThreshold:       0.35,
			DefaultTopK:         10,
			DefaultMinRelevance: 0.2,
		},
		Security: SecurityConfig{
			RateLimit:      20,
			RateLimitBurst: 40,
		},
		Backup: BackupConfig{
			Dir:      "./backups",
			Interval: "1h",
			Keep:     24,
			Verify:   true,
		},
	}
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnvInt("MONETA_PORT", cfg.Server.Port)
	cfg.Server.Host = getEnv("MONETA_HOST", cfg.Server.Host)

	cfg.Storage.Engine = getEnv("MONETA_STORAGE_ENGINE", cfg.Storage.Engine)
	cfg.Storage.DSN = getEnv("MONETA_STORAGE_DSN", cfg.Storage.DSN)

	cfg.Embedding.Provider = getEnv("MONETA_EMBEDDING_PROVIDER", cfg.Embedding.Provider)
	cfg.Embedding.OllamaURL = getEnv("MONETA_OLLAMA_URL", cfg.Embedding.OllamaURL)
	cfg.Embedding.Model = getEnv("MONETA_EMBEDDING_MODEL", cfg.Embedding.Model)
	cfg.Embedding.APIKey = getEnv("MONETA_OPENAI_API_KEY", cfg.Embedding.APIKey)
	cfg.Embedding.BaseURL = getEnv("MONETA_OPENAI_BASE_URL", cfg.Embedding.BaseURL)
	cfg.Embedding.Dimensions = getEnvInt("MONETA_EMBEDDING_DIMENSIONS", cfg.Embedding.Dimensions)

	cfg.Engine.BaseThreshold = getEnvFloat("MONETA_BASE_THRESHOLD", cfg.Engine.BaseThreshold)
	cfg.Engine.DefaultTopK = getEnvInt("MONETA_DEFAULT_TOP_K", cfg.Engine.DefaultTopK)
	cfg.Engine.DefaultMinRelevance = getEnvFloat("MONETA_DEFAULT_MIN_RELEVANCE", cfg.Engine.DefaultMinRelevance)
	cfg.Engine.ScoreNormalization = getEnvFloat("MONETA_SCORE_NORMALIZATION", cfg.Engine.ScoreNormalization)

	cfg.Security.APIToken = getEnv("MONETA_API_TOKEN", cfg.Security.APIToken)
	cfg.Security.RateLimit = getEnvFloat("MONETA_RATE_LIMIT", cfg.Security.RateLimit)
	cfg.Security.RateLimitBurst = getEnvInt("MONETA_RATE_LIMIT_BURST", cfg.Security.RateLimitBurst)

	cfg.Backup.Enabled = getEnvBool("MONETA_BACKUP_ENABLED", cfg.Backup.Enabled)
	cfg.Backup.Dir = getEnv("MONETA_BACKUP_DIR", cfg.Backup.Dir)
	cfg.Backup.Interval = getEnv("MONETA_BACKUP_INTERVAL", cfg.Backup.Interval)
	cfg.Backup.Keep = getEnvInt("MONETA_BACKUP_KEEP", cfg.Backup.Keep)
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. Unparseable values fall back to the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default
// value. Unparseable values fall back to the default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default
// value. Unparseable values fall back to the default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
