package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/researchcrew-cli/internal/ai"
)

var checkBackend string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check which LLM backends are available",
	Long: `Hosted backends (openai, openrouter) are available when an API key is configured.
Ollama is available when its host answers within 2s. Exits non-zero when the selected
backend (or, without --backend, the configured default) is unavailable.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ensureConfig()
		if err != nil {
			return err
		}
		want, err := selectBackend(c, checkBackend)
		if err != nil {
			return err
		}
		backends := ai.Providers
		if checkBackend != "" {
			backends = []string{want}
		}

		results := make([]error, len(backends))
		g, ctx := errgroup.WithContext(cmd.Context())
		for i, b := range backends {
			g.Go(func() error {
				results[i] = checkOne(ctx, b)
				return nil
			})
		}
		_ = g.Wait()

		w := cmd.OutOrStdout()
		var wantErr error
		for i, b := range backends {
			model := c.ModelFor(b)
			if results[i] != nil {
				fmt.Fprintf(w, "✗ %-10s %s\n", b, results[i])
			} else {
				fmt.Fprintf(w, "✓ %-10s model=%s\n", b, model)
			}
			if b == want {
				wantErr = results[i]
			}
		}
		if wantErr != nil {
			return explainError(wantErr, want, c.ModelFor(want))
		}
		return nil
	},
}

func checkOne(ctx context.Context, backend string) error {
	rc := runtimeConfig(cfg, backend)
	return ai.CheckAvailability(ctx, backend, ai.AvailabilityOptions{APIKey: rc.APIKey, Host: rc.Host})
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVarP(&checkBackend, "backend", "b", "", "check only this backend")
}
