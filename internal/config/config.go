package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DirName is the per-user configuration directory under $HOME.
const DirName = ".researchcrew"

// Backends accepted by the research command.
const (
	BackendOpenAI     = "openai"
	BackendOpenRouter = "openrouter"
	BackendOllama     = "ollama"
)

// LogConfig controls the zerolog manager.
type LogConfig struct {
	Level        string `mapstructure:"level" yaml:"level"`
	Console      bool   `mapstructure:"console" yaml:"console"`
	ConsoleLevel string `mapstructure:"console_level" yaml:"console_level"`
	File         string `mapstructure:"file" yaml:"file"`
	MaxSizeMB    int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups   int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays   int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress     bool   `mapstructure:"compress" yaml:"compress"`
}

// Global configuration structure.
type Global struct {
	Backend       string  `mapstructure:"backend" yaml:"backend"`
	Temperature   float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	MaxIterations int     `mapstructure:"max_iterations" yaml:"max_iterations"`
	ReportsDir    string  `mapstructure:"reports_dir" yaml:"reports_dir"`
	// ModelsCatalog is an optional JSON file merged into the model catalog.
	ModelsCatalog string `mapstructure:"models_catalog" yaml:"models_catalog,omitempty"`

	// OpenAI (and OpenAI-compatible endpoints)
	OpenAIAPIKey  string `mapstructure:"openai_api_key" yaml:"openai_api_key"`
	OpenAIModel   string `mapstructure:"openai_model" yaml:"openai_model"`
	OpenAIBaseURL string `mapstructure:"openai_base_url" yaml:"openai_base_url"`

	// OpenRouter
	OpenRouterAPIKey string `mapstructure:"openrouter_api_key" yaml:"openrouter_api_key"`
	OpenRouterModel  string `mapstructure:"openrouter_model" yaml:"openrouter_model"`

	// Local runtimes (Ollama)
	OllamaHost       string `mapstructure:"ollama_host" yaml:"ollama_host"`
	OllamaModel      string `mapstructure:"ollama_model" yaml:"ollama_model"`
	OllamaTimeoutSec int    `mapstructure:"ollama_timeout_sec" yaml:"ollama_timeout_sec"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	Log LogConfig `mapstructure:"log" yaml:"log"`
}

// ModelFor returns the configured model name for a backend.
func (c *Global) ModelFor(backend string) string {
	switch strings.ToLower(backend) {
	case BackendOpenAI:
		return c.OpenAIModel
	case BackendOpenRouter:
		return c.OpenRouterModel
	case BackendOllama:
		return c.OllamaModel
	}
	return ""
}

// Dir returns ~/.researchcrew.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// Path returns the file Load and Save use for cfgFile.
func Path(cfgFile string) (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.researchcrew/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path, err := Path(cfgFile)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// envAliases are the provider variables honoured besides RESEARCHCREW_*.
var envAliases = map[string][]string{
	"backend":            {"DEFAULT_LLM_BACKEND"},
	"temperature":        {"TEMPERATURE"},
	"max_iterations":     {"MAX_ITERATIONS"},
	"openai_api_key":     {"OPENAI_API_KEY"},
	"openai_model":       {"OPENAI_MODEL"},
	"openai_base_url":    {"OPENAI_BASE_URL"},
	"openrouter_api_key": {"OPENROUTER_API_KEY"},
	"ollama_host":        {"OLLAMA_BASE_URL", "OLLAMA_HOST"},
	"ollama_model":       {"OLLAMA_MODEL"},
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. RESEARCHCREW_* wins over the
// bare provider variables.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("RESEARCHCREW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, aliases := range envAliases {
		names := append([]string{"RESEARCHCREW_" + strings.ToUpper(key)}, aliases...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	v.SetDefault("backend", BackendOpenAI)
	v.SetDefault("temperature", 0.7)
	v.SetDefault("max_tokens", 4096)
	v.SetDefault("max_iterations", 3)
	v.SetDefault("reports_dir", "reports")
	v.SetDefault("openai_model", "gpt-4o")
	v.SetDefault("openai_base_url", "")
	v.SetDefault("openrouter_model", "openai/gpt-4o-mini")
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 120)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	// Ollama defaults
	v.SetDefault("ollama_host", "http://localhost:11434")
	v.SetDefault("ollama_model", "llama3")
	v.SetDefault("ollama_timeout_sec", 300)
	// Logging defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)
	v.SetDefault("log.console_level", "warn")
	v.SetDefault("log.file", "app.log")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", false)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	return &c, nil
}
