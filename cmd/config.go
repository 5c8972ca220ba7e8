package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/researchcrew-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set researchcrew configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ensureConfig()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "backend: %s\n", c.Backend)
		fmt.Fprintf(w, "temperature: %.3f\n", c.Temperature)
		fmt.Fprintf(w, "max_tokens: %d\n", c.MaxTokens)
		fmt.Fprintf(w, "max_iterations: %d\n", c.MaxIterations)
		fmt.Fprintf(w, "reports_dir: %s\n", c.ReportsDir)
		if c.ModelsCatalog != "" {
			fmt.Fprintf(w, "models_catalog: %s\n", c.ModelsCatalog)
		}
		fmt.Fprintf(w, "openai_api_key: %s\n", mask(c.OpenAIAPIKey))
		fmt.Fprintf(w, "openai_model: %s\n", c.OpenAIModel)
		if c.OpenAIBaseURL != "" {
			fmt.Fprintf(w, "openai_base_url: %s\n", c.OpenAIBaseURL)
		}
		fmt.Fprintf(w, "openrouter_api_key: %s\n", mask(c.OpenRouterAPIKey))
		fmt.Fprintf(w, "openrouter_model: %s\n", c.OpenRouterModel)
		fmt.Fprintf(w, "ollama_host: %s\n", c.OllamaHost)
		fmt.Fprintf(w, "ollama_model: %s\n", c.OllamaModel)
		fmt.Fprintf(w, "log.level: %s\n", c.Log.Level)
		fmt.Fprintf(w, "log.file: %s\n", c.Log.File)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := ensureConfig()
		if err != nil {
			return err
		}
		if err := setConfigValue(c, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "backend":
		b, err := selectBackend(nil, val)
		if err != nil {
			return err
		}
		c.Backend = b
	case "temperature":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 || f > 2 {
			return fmt.Errorf("invalid float for temperature: %v (0..2)", val)
		}
		c.Temperature = f
	case "max_tokens":
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return fmt.Errorf("invalid int for max_tokens: %v", val)
		}
		c.MaxTokens = i
	case "max_iterations":
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return fmt.Errorf("invalid int for max_iterations: %v", val)
		}
		c.MaxIterations = i
	case "reports_dir":
		c.ReportsDir = val
	case "models_catalog":
		c.ModelsCatalog = val
	case "openai_api_key":
		c.OpenAIAPIKey = val
	case "openai_model":
		c.OpenAIModel = val
	case "openai_base_url":
		c.OpenAIBaseURL = val
	case "openrouter_api_key":
		c.OpenRouterAPIKey = val
	case "openrouter_model":
		c.OpenRouterModel = val
	case "ollama_host":
		c.OllamaHost = val
	case "ollama_model":
		c.OllamaModel = val
	case "log.level":
		c.Log.Level = val
	case "log.file":
		c.Log.File = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
