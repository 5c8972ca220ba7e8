package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/researchcrew-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/researchcrew-cli/internal/config"
	"github.com/KaramelBytes/researchcrew-cli/internal/logging"
)

var (
	cfgFile string
	verbose bool
	// Retry/HTTP flags (override config if set)
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "researchcrew",
	Short: "researchcrew: LLM research crew that writes styled HTML reports",
	Long: `researchcrew runs a Senior Data Researcher and a Reporting Analyst agent against an
LLM backend (OpenAI, OpenRouter or a local Ollama) to research a topic, then turns the
markdown report into a styled HTML page with interactive charts.`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.Close()
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		_ = logging.Close()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.researchcrew/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug) logging")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max retry attempts on 429/5xx (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		initLogging(defaultLogConfig())
		return
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = flagRetryMaxDelayMs
	}
	initLogging(cfg.Log)

	if cfg.ModelsCatalog != "" {
		m, err := ai.LoadCatalogFromJSON(cfg.ModelsCatalog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "⚠ Warning: models catalog not loaded: %v\n", err)
		} else {
			ai.MergeCatalog(m)
		}
	}
}

func defaultLogConfig() cfgpkg.LogConfig {
	return cfgpkg.LogConfig{Level: "info", Console: true, ConsoleLevel: "warn"}
}

// initLogging installs the process logger. --verbose lowers both writers to
// debug.
func initLogging(lc cfgpkg.LogConfig) {
	if verbose {
		lc.Level = "debug"
		lc.ConsoleLevel = "debug"
	}
	if err := logging.Initialize(lc); err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: logging disabled: %v\n", err)
	}
}

// runtimeConfig maps the loaded configuration onto ai.RuntimeConfig for backend.
func runtimeConfig(c *cfgpkg.Global, backend string) ai.RuntimeConfig {
	rc := ai.RuntimeConfig{
		HTTPTimeout: time.Duration(c.HTTPTimeoutSec) * time.Second,
		RetryMax:    c.RetryMaxAttempts,
		BaseDelay:   time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
	}
	switch backend {
	case ai.ProviderOpenAI:
		rc.APIKey = c.OpenAIAPIKey
		rc.BaseURL = c.OpenAIBaseURL
	case ai.ProviderOpenRouter:
		rc.APIKey = c.OpenRouterAPIKey
	case ai.ProviderOllama:
		rc.Host = c.OllamaHost
		if c.OllamaTimeoutSec > 0 {
			rc.HTTPTimeout = time.Duration(c.OllamaTimeoutSec) * time.Second
		}
	}
	return rc
}

// ensureConfig loads the configuration when cobra's initializer could not.
func ensureConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}
