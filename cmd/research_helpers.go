package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/researchcrew-cli/internal/ai"
	"github.com/KaramelBytes/researchcrew-cli/internal/archive"
	cfgpkg "github.com/KaramelBytes/researchcrew-cli/internal/config"
	"github.com/KaramelBytes/researchcrew-cli/internal/crew"
	"github.com/KaramelBytes/researchcrew-cli/internal/parser"
)

// selectBackend resolves the backend from the flag, then config, then openai.
func selectBackend(c *cfgpkg.Global, explicit string) (string, error) {
	b := strings.ToLower(strings.TrimSpace(explicit))
	if b == "" && c != nil {
		b = c.Backend
	}
	if b == "" {
		b = ai.ProviderOpenAI
	}
	if b == "local" {
		b = ai.ProviderOllama
	}
	for _, p := range ai.Providers {
		if p == b {
			return b, nil
		}
	}
	return "", fmt.Errorf("invalid backend: %s (use %s)", b, strings.Join(ai.Providers, ", "))
}

// selectModel picks the explicit model, else the backend's configured model.
func selectModel(c *cfgpkg.Global, backend, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if c != nil {
		if m := c.ModelFor(backend); m != "" {
			return m, nil
		}
	}
	return "", fmt.Errorf("no model configured for %s: pass --model or run 'researchcrew config set %s_model <name>'", backend, backend)
}

// loadNotes parses reference files into crew notes.
func loadNotes(paths []string) ([]crew.Note, error) {
	notes := make([]crew.Note, 0, len(paths))
	for _, p := range paths {
		content, err := parser.ParseFile(p)
		if err != nil {
			return nil, fmt.Errorf("context %s: %w", p, err)
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		notes = append(notes, crew.Note{Name: filepath.Base(p), Content: content})
	}
	return notes, nil
}

func enforceBudget(estCost, limit float64) error {
	if limit > 0 && estCost > 0 && estCost > limit {
		return fmt.Errorf("✗ Estimated cost ~$%.4f exceeds budget limit ~$%.4f", estCost, limit)
	}
	return nil
}

// explainError turns typed backend errors into actionable messages.
func explainError(err error, backend, model string) error {
	var (
		authErr *ai.AuthError
		rlErr   *ai.RateLimitError
		nfErr   *ai.ModelNotFoundError
		brErr   *ai.BadRequestError
		qErr    *ai.QuotaExceededError
		sErr    *ai.ServerError
		unreach *ai.UnreachableError
	)
	switch {
	case errors.Is(err, ai.ErrMissingAPIKey):
		return fmt.Errorf("backend %s is not available: %w", backend, err)
	case errors.As(err, &unreach):
		if backend == ai.ProviderOllama {
			return fmt.Errorf("Ollama not reachable at %s. Ensure Ollama is running (see https://ollama.com) and host is correct. You can set OLLAMA_BASE_URL or config 'ollama_host'. Detail: %w", unreach.Host, err)
		}
		return fmt.Errorf("endpoint unreachable. Check your network and backend settings: %w", err)
	case errors.As(err, &authErr):
		return fmt.Errorf("authentication failed: check the %s API key in env or ~/.researchcrew/config.yaml: %w", backend, err)
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Errorf("rate limited, try again in ~%ds: %w", int(rlErr.RetryAfter.Seconds()), err)
		}
		return fmt.Errorf("rate limited by provider, please retry: %w", err)
	case errors.As(err, &nfErr):
		if backend == ai.ProviderOllama {
			return fmt.Errorf("local model not available (%s). Install it with 'ollama pull %s' or choose another model. %w", model, model, err)
		}
		return fmt.Errorf("model not found (%s). Verify the model name with 'researchcrew models': %w", model, err)
	case errors.As(err, &brErr):
		return fmt.Errorf("request invalid. Try fewer --context files or a lower --context-tokens: %w", err)
	case errors.As(err, &qErr):
		return fmt.Errorf("quota/billing issue. Check your provider account: %w", err)
	case errors.As(err, &sErr):
		return fmt.Errorf("provider appears unavailable (server error). Please retry later: %w", err)
	case errors.Is(err, crew.ErrEmptyOutput):
		return fmt.Errorf("model %s kept returning empty output; try another model or raise --max-iterations: %w", model, err)
	default:
		return fmt.Errorf("research failed: %w", err)
	}
}

// runSummary is what research prints when it finishes.
type runSummary struct {
	RunID            string  `json:"run_id"`
	Topic            string  `json:"topic"`
	Backend          string  `json:"backend"`
	Model            string  `json:"model"`
	MarkdownPath     string  `json:"markdown_path"`
	HTMLPath         string  `json:"html_path,omitempty"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd,omitempty"`
	DurationSec      float64 `json:"duration_sec"`
}

func summarize(r *archive.Run) runSummary {
	return runSummary{
		RunID:            r.ID,
		Topic:            r.Topic,
		Backend:          r.Backend,
		Model:            r.Model,
		MarkdownPath:     r.MarkdownPath,
		HTMLPath:         r.HTMLPath,
		PromptTokens:     r.PromptTokens,
		CompletionTokens: r.CompletionTokens,
		EstimatedCostUSD: r.EstimatedCostUSD,
		DurationSec:      r.Duration().Seconds(),
	}
}

func writeSummary(w io.Writer, s runSummary, asJSON bool) error {
	if w == nil {
		w = os.Stdout
	}
	if asJSON {
		b, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal output: %w", err)
		}
		fmt.Fprintln(w, string(b))
		return nil
	}
	fmt.Fprintf(w, "✓ Research on %q finished in %.1fs\n", s.Topic, s.DurationSec)
	fmt.Fprintf(w, "  Markdown: %s\n", s.MarkdownPath)
	if s.HTMLPath != "" {
		fmt.Fprintf(w, "  HTML:     %s\n", s.HTMLPath)
	} else {
		fmt.Fprintln(w, "  HTML:     (render failed, see app.log)")
	}
	fmt.Fprintf(w, "  Tokens:   prompt=%d completion=%d\n", s.PromptTokens, s.CompletionTokens)
	if s.EstimatedCostUSD > 0 {
		fmt.Fprintf(w, "  Cost:     ~$%.4f\n", s.EstimatedCostUSD)
	}
	fmt.Fprintf(w, "  Run:      %s\n", s.RunID)
	return nil
}
