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

// Config holds the wfassist service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	LLM       LLMConfig       `yaml:"llm"`
	Cache     CacheConfig     `yaml:"cache"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	MaxBodyBytes    int `yaml:"max_body_bytes"`
	// GenerateRPS throttles /v1/generate per client; 0 disables throttling.
	GenerateRPS   float64 `yaml:"generate_rps"`
	GenerateBurst int     `yaml:"generate_burst"`
}

// CorpusConfig points at the example corpus and the output schema.
type CorpusConfig struct {
	ExamplesPath string `yaml:"examples_path"`
	SchemaPath   string `yaml:"schema_path"`
	// UseFallback serves the built-in corpus and schema when the files are absent.
	UseFallback bool `yaml:"use_fallback"`
	// Watch reloads the index when either file changes on disk.
	Watch bool `yaml:"watch"`
}

// RetrievalConfig holds ranking limits.
type RetrievalConfig struct {
	DefaultK       int `yaml:"default_k"`
	MaxK           int `yaml:"max_k"`
	MaxQueryLength int `yaml:"max_query_length"`
}

// LLMConfig holds completion provider settings.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // openai, offline (default: openai when api_key is set)
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutSec  int     `yaml:"timeout_sec"`
}

// CacheConfig holds completion cache settings.
type CacheConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Driver           string   `yaml:"driver"` // redis, valkey (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	KeyPrefix        string   `yaml:"key_prefix"`
	TTLSec           int      `yaml:"ttl_sec"` // < 0 keeps entries until evicted
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
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

// Parse decodes YAML configuration, expanding ${VAR} references first.
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
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 1 << 20
	}
	if c.HTTP.GenerateRPS > 0 && c.HTTP.GenerateBurst <= 0 {
		c.HTTP.GenerateBurst = 5
	}
	if c.Corpus.ExamplesPath == "" {
		c.Corpus.ExamplesPath = "data/examples.json"
	}
	if c.Corpus.SchemaPath == "" {
		c.Corpus.SchemaPath = "data/schema.json"
	}
	if c.Retrieval.DefaultK <= 0 {
		c.Retrieval.DefaultK = 3
	}
	if c.Retrieval.MaxK <= 0 {
		c.Retrieval.MaxK = 20
	}
	if c.Retrieval.MaxQueryLength <= 0 {
		c.Retrieval.MaxQueryLength = 4096
	}
	if c.LLM.Provider == "" {
		if c.LLM.APIKey != "" {
			c.LLM.Provider = "openai"
		} else {
			c.LLM.Provider = "offline"
		}
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4"
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 1000
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 30
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "valkey"
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "wfassist:"
	}
	if c.Cache.TTLSec == 0 {
		c.Cache.TTLSec = 86400
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
}

// CacheTTL returns the completion cache TTL; zero means no expiry.
func (c CacheConfig) CacheTTL() time.Duration {
	if c.TTLSec < 0 {
		return 0
	}
	return time.Duration(c.TTLSec) * time.Second
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.HTTP.GenerateRPS < 0 {
		return fmt.Errorf("http.generate_rps must not be negative, got %v", c.HTTP.GenerateRPS)
	}
	if c.Retrieval.DefaultK > c.Retrieval.MaxK {
		return fmt.Errorf("retrieval.default_k (%d) must not exceed retrieval.max_k (%d)",
			c.Retrieval.DefaultK, c.Retrieval.MaxK)
	}
	switch c.LLM.Provider {
	case "offline":
	case "openai":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key is required for provider \"openai\"")
		}
	default:
		return fmt.Errorf("llm.provider must be \"openai\" or \"offline\", got %q", c.LLM.Provider)
	}
	if c.Cache.Enabled {
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required when cache is enabled")
		}
		switch c.Cache.Driver {
		case "redis", "valkey":
		default:
			return fmt.Errorf("cache.driver must be \"redis\" or \"valkey\", got %q", c.Cache.Driver)
		}
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
