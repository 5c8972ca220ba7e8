package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/researchcrew-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/researchcrew-cli/internal/config"
)

var (
	modelsBackend string
	modelsJSON    bool
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect the model catalog, pricing and local Ollama models",
	Example: `  researchcrew models
  researchcrew models --backend openrouter --json
  researchcrew models local
  researchcrew models sync --file ./models.json
  researchcrew models fetch --url https://example.com/models.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend := ""
		if modelsBackend != "" {
			b, err := selectBackend(nil, modelsBackend)
			if err != nil {
				return err
			}
			backend = b
		}
		list := ai.ModelsFor(backend)
		w := cmd.OutOrStdout()
		if modelsJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		}
		for _, m := range list {
			price := "free/local"
			if m.InputPerK > 0 || m.OutputPerK > 0 {
				price = fmt.Sprintf("$%.5f in / $%.5f out per 1K", m.InputPerK, m.OutputPerK)
			}
			fmt.Fprintf(w, "%-11s %-36s ctx=%-8d %s\n", m.Provider, m.Name, m.ContextTokens, price)
		}
		return nil
	},
}

var modelsLocalCmd = &cobra.Command{
	Use:   "local",
	Short: "List models pulled into the local Ollama",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ensureConfig()
		if err != nil {
			return err
		}
		rc := runtimeConfig(c, ai.ProviderOllama)
		client := ai.NewOllamaClient(rc.Host, 10*time.Second, 1, 0)
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		names, err := client.ListModels(ctx)
		if err != nil {
			return explainError(err, ai.ProviderOllama, "")
		}
		w := cmd.OutOrStdout()
		if len(names) == 0 {
			fmt.Fprintf(w, "(no models at %s; run 'ollama pull %s')\n", client.Host(), c.OllamaModel)
			return nil
		}
		for _, n := range names {
			mark := " "
			if n == c.OllamaModel || n == c.OllamaModel+":latest" {
				mark = "*"
			}
			fmt.Fprintf(w, "%s %s\n", mark, n)
		}
		return nil
	},
}

var syncPath string

var modelsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Validate a JSON catalog file and use it on every run",
	Long:  `Loads the file once to validate it, then stores its path as models_catalog in the config.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncPath == "" {
			return fmt.Errorf("--file is required")
		}
		m, err := ai.LoadCatalogFromJSON(syncPath)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		abs, err := filepath.Abs(syncPath)
		if err != nil {
			return err
		}
		if err := useCatalog(abs); err != nil {
			return err
		}
		ai.MergeCatalog(m)
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Catalog with %d model(s) registered: %s\n", len(m), abs)
		return nil
	},
}

var (
	fetchURL    string
	fetchOutput string
)

var modelsFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download a JSON catalog and use it on every run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if fetchURL == "" {
			return fmt.Errorf("--url is required")
		}
		out := fetchOutput
		if out == "" {
			dir, err := cfgpkg.Dir()
			if err != nil {
				return err
			}
			out = filepath.Join(dir, "models.json")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 20*time.Second)
		defer cancel()
		m, err := fetchCatalog(ctx, fetchURL)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return fmt.Errorf("create catalog dir: %w", err)
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("write file: %w", err)
		}
		if err := useCatalog(out); err != nil {
			return err
		}
		ai.MergeCatalog(m)
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved catalog with %d model(s) to %s\n", len(m), out)
		return nil
	},
}

func fetchCatalog(ctx context.Context, url string) (map[string]ai.ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("fetch: unexpected status %s: %s", resp.Status, string(b))
	}
	var m map[string]ai.ModelInfo
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	for k, v := range m {
		if v.Name == "" {
			v.Name = k
			m[k] = v
		}
	}
	return m, nil
}

// useCatalog stores path as models_catalog in the config file.
func useCatalog(path string) error {
	c, err := ensureConfig()
	if err != nil {
		return err
	}
	c.ModelsCatalog = path
	return cfgpkg.Save(c, cfgFile)
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsLocalCmd)
	modelsCmd.AddCommand(modelsSyncCmd)
	modelsCmd.AddCommand(modelsFetchCmd)

	modelsCmd.Flags().StringVarP(&modelsBackend, "backend", "b", "", "only models of this backend")
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "print the catalog as JSON")

	modelsSyncCmd.Flags().StringVar(&syncPath, "file", "", "path to JSON catalog file")

	modelsFetchCmd.Flags().StringVar(&fetchURL, "url", "", "URL to JSON catalog file")
	modelsFetchCmd.Flags().StringVar(&fetchOutput, "output", "", "where to save the catalog (default ~/.researchcrew/models.json)")
}
