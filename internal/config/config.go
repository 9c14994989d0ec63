package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the drillscout API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Access    AccessConfig    `yaml:"access"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// AccessConfig controls premium video redaction.
type AccessConfig struct {
	// GatedRoles need an active subscription to see non-free video links.
	GatedRoles []string `yaml:"gated_roles"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	// RateLimitPerMinute caps API requests per client IP. Zero disables limiting.
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	ScanCount        int      `yaml:"scan_count"` // SCAN COUNT hint, 0 = store default
	BatchSize        int      `yaml:"batch_size"` // commands per pipelined round-trip, 0 = store default
}

// EmbeddingConfig holds the query embedding provider settings.
type EmbeddingConfig struct {
	Provider         string        `yaml:"provider"`
	APIKey           string        `yaml:"api_key"`
	BaseURL          string        `yaml:"base_url"`
	Model            string        `yaml:"model"`
	Dimensions       int           `yaml:"dimensions"`
	QueryInstruction string        `yaml:"query_instruction"`
	HTTPTimeout      time.Duration `yaml:"http_timeout"`
	MaxRetries       int           `yaml:"max_retries"` // re-sends on 429/5xx
	// StoreCacheTTL is the lifetime of embeddings persisted in the database. Zero disables the store cache.
	StoreCacheTTL time.Duration `yaml:"store_cache_ttl"`
	Breaker       BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds the provider circuit breaker settings.
type BreakerConfig struct {
	FailureThreshold uint32        `yaml:"failure_threshold"` // 0 = breaker disabled
	OpenTimeout      time.Duration `yaml:"open_timeout"`
}

// Enabled reports whether a provider is configured at all.
func (e *EmbeddingConfig) Enabled() bool {
	return e.BaseURL != "" && e.Model != ""
}

// SearchConfig holds search pipeline tuning.
type SearchConfig struct {
	EmbeddingCacheTTL  time.Duration `yaml:"embedding_cache_ttl"`
	ListingCacheTTL    time.Duration `yaml:"listing_cache_ttl"`
	SnapshotCacheTTL   time.Duration `yaml:"snapshot_cache_ttl"`
	EmbeddingTimeout   time.Duration `yaml:"embedding_timeout"`
	CatalogTimeout     time.Duration `yaml:"catalog_timeout"`
	CacheSweepInterval time.Duration `yaml:"cache_sweep_interval"` // 0 = opportunistic cleanup only
	MinSimilarity      float64       `yaml:"min_similarity"`
	StrongTextScore    float64       `yaml:"strong_text_score"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands env variables, decodes YAML, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.HTTPTimeout <= 0 {
		c.Embedding.HTTPTimeout = 10 * time.Second
	}
	if c.Embedding.Breaker.OpenTimeout <= 0 {
		c.Embedding.Breaker.OpenTimeout = 30 * time.Second
	}
	if c.Search.EmbeddingCacheTTL <= 0 {
		c.Search.EmbeddingCacheTTL = 10 * time.Minute
	}
	if c.Search.ListingCacheTTL <= 0 {
		c.Search.ListingCacheTTL = 10 * time.Minute
	}
	if c.Search.SnapshotCacheTTL <= 0 {
		c.Search.SnapshotCacheTTL = time.Hour
	}
	if c.Search.EmbeddingTimeout <= 0 {
		c.Search.EmbeddingTimeout = 3 * time.Second
	}
	if c.Search.CatalogTimeout <= 0 {
		c.Search.CatalogTimeout = 2 * time.Second
	}
	if c.Search.MinSimilarity <= 0 {
		c.Search.MinSimilarity = 0.3
	}
	if c.Search.StrongTextScore <= 0 {
		c.Search.StrongTextScore = 2
	}
	if c.Access.GatedRoles == nil {
		c.Access.GatedRoles = []string{"player"}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.Database.Driver {
	case "valkey", "redis":
	default:
		return fmt.Errorf("database.driver must be \"valkey\" or \"redis\", got %q", c.Database.Driver)
	}
	if c.Database.ScanCount < 0 || c.Database.BatchSize < 0 {
		return fmt.Errorf("database.scan_count and database.batch_size must not be negative")
	}
	if c.Embedding.MaxRetries < 0 {
		return fmt.Errorf("embedding.max_retries must not be negative, got %d", c.Embedding.MaxRetries)
	}
	if c.HTTP.RateLimitPerMinute < 0 {
		return fmt.Errorf("http.rate_limit_per_minute must not be negative, got %d", c.HTTP.RateLimitPerMinute)
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must not be negative, got %d", c.Embedding.Dimensions)
	}
	if c.Search.MinSimilarity > 1 {
		return fmt.Errorf("search.min_similarity must be in (0, 1], got %v", c.Search.MinSimilarity)
	}
	if c.Search.CacheSweepInterval < 0 {
		return fmt.Errorf("search.cache_sweep_interval must not be negative")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
