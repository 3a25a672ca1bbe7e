package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/querygen/internal/domain"
)

// Generator providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config holds the querygen configuration.
type Config struct {
	Generator GeneratorConfig `yaml:"generator"`
	Input     InputConfig     `yaml:"input"`
	Output    OutputConfig    `yaml:"output"`
	Cache     CacheConfig     `yaml:"cache"`
	Status    StatusConfig    `yaml:"status"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// GeneratorConfig holds text-generation provider settings.
type GeneratorConfig struct {
	Provider   string `yaml:"provider"` // ollama (default), openai
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// InputConfig holds the keyword source location.
type InputConfig struct {
	KeywordsPath string `yaml:"keywords_path"`
}

// OutputConfig holds the aggregate file location.
type OutputConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig holds the optional Valkey query cache settings. Empty addrs disables the cache.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	TTLHours         int      `yaml:"ttl_hours"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Enabled reports whether a cache is configured.
func (c CacheConfig) Enabled() bool { return len(c.Addrs) > 0 }

// StatusConfig holds the optional status server settings. Empty addr disables the server.
type StatusConfig struct {
	Addr        string `yaml:"addr"`
	ShutdownSec int    `yaml:"shutdown_timeout_sec"`
}

// Default values applied by ApplyDefaults.
const (
	DefaultOllamaBaseURL = "https://mlvoca.com"
	DefaultTimeoutSec    = 60
	DefaultKeywordsPath  = "Datasets/Underlying_Topics.txt"
	DefaultOutputPath    = "Datasets/Search_Queries_All.json"
	DefaultCacheTTLHours = 24 * 7
)

// Load reads configuration by environment name (local, dev, prod) from config/<env>.yaml.
// A missing file yields the defaults.
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)
	if !fileExists(configPath) {
		return Parse(nil)
	}
	return LoadFile(configPath)
}

// LoadFile reads configuration from an explicit YAML path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references, decodes YAML, applies defaults and validates.
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

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// LoadEnvFiles loads .env.local then .env from the working directory. Missing files are ignored.
// Variables already set in the process environment win.
func LoadEnvFiles() error {
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Generator.Provider == "" {
		c.Generator.Provider = ProviderOllama
	}
	if c.Generator.BaseURL == "" && c.Generator.Provider == ProviderOllama {
		c.Generator.BaseURL = DefaultOllamaBaseURL
	}
	if c.Generator.Model == "" {
		c.Generator.Model = domain.DefaultModel
	}
	if c.Generator.TimeoutSec <= 0 {
		c.Generator.TimeoutSec = DefaultTimeoutSec
	}
	if c.Input.KeywordsPath == "" {
		c.Input.KeywordsPath = DefaultKeywordsPath
	}
	if c.Output.Path == "" {
		c.Output.Path = DefaultOutputPath
	}
	if c.Cache.TTLHours <= 0 {
		c.Cache.TTLHours = DefaultCacheTTLHours
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Status.ShutdownSec <= 0 {
		c.Status.ShutdownSec = 5
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	switch c.Generator.Provider {
	case ProviderOllama, ProviderOpenAI:
		// ok
	default:
		return fmt.Errorf("generator.provider must be %q or %q, got %q",
			ProviderOllama, ProviderOpenAI, c.Generator.Provider)
	}
	if strings.TrimSpace(c.Generator.Model) == "" {
		return errors.New("generator.model is required")
	}
	if c.Generator.TimeoutSec <= 0 {
		return fmt.Errorf("generator.timeout_sec must be positive, got %d", c.Generator.TimeoutSec)
	}
	if c.Input.KeywordsPath == "" {
		return errors.New("input.keywords_path is required")
	}
	if c.Output.Path == "" {
		return errors.New("output.path is required")
	}
	if c.Cache.DB < 0 {
		return fmt.Errorf("cache.db must not be negative, got %d", c.Cache.DB)
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
