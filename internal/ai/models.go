package ai

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// ModelInfo is catalog metadata used for budget checks and cost estimates.
// Prices are illustrative; verify them against the provider before relying
// on the estimate.
type ModelInfo struct {
	Name          string
	Provider      string
	ContextTokens int     // approximate context window
	InputPerK     float64 // USD per 1K input tokens
	OutputPerK    float64 // USD per 1K output tokens
}

var (
	catalogMu sync.RWMutex
	models    = map[string]ModelInfo{
		// OpenAI direct
		"gpt-4o":       {Name: "gpt-4o", Provider: ProviderOpenAI, ContextTokens: 128000, InputPerK: 0.0025, OutputPerK: 0.01},
		"gpt-4o-mini":  {Name: "gpt-4o-mini", Provider: ProviderOpenAI, ContextTokens: 128000, InputPerK: 0.00015, OutputPerK: 0.0006},
		"gpt-4.1":      {Name: "gpt-4.1", Provider: ProviderOpenAI, ContextTokens: 1000000, InputPerK: 0.002, OutputPerK: 0.008},
		"gpt-4.1-mini": {Name: "gpt-4.1-mini", Provider: ProviderOpenAI, ContextTokens: 1000000, InputPerK: 0.0004, OutputPerK: 0.0016},
		"gpt-4-turbo":  {Name: "gpt-4-turbo", Provider: ProviderOpenAI, ContextTokens: 128000, InputPerK: 0.01, OutputPerK: 0.03},

		// OpenRouter
		"openai/gpt-4o-mini":          {Name: "openai/gpt-4o-mini", Provider: ProviderOpenRouter, ContextTokens: 128000, InputPerK: 0.00015, OutputPerK: 0.0006},
		"openai/gpt-4o":               {Name: "openai/gpt-4o", Provider: ProviderOpenRouter, ContextTokens: 128000, InputPerK: 0.0025, OutputPerK: 0.01},
		"anthropic/claude-3.5-sonnet": {Name: "anthropic/claude-3.5-sonnet", Provider: ProviderOpenRouter, ContextTokens: 200000, InputPerK: 0.003, OutputPerK: 0.015},
		"anthropic/claude-3-haiku":    {Name: "anthropic/claude-3-haiku", Provider: ProviderOpenRouter, ContextTokens: 200000, InputPerK: 0.00025, OutputPerK: 0.00125},
		"google/gemini-1.5-flash":     {Name: "google/gemini-1.5-flash", Provider: ProviderOpenRouter, ContextTokens: 1000000, InputPerK: 0.0002, OutputPerK: 0.0008},
		"deepseek/deepseek-r1:free":   {Name: "deepseek/deepseek-r1:free", Provider: ProviderOpenRouter, ContextTokens: 128000},
		"meta-llama/llama-3.1-70b-instruct": {
			Name: "meta-llama/llama-3.1-70b-instruct", Provider: ProviderOpenRouter, ContextTokens: 131072,
		},

		// Common local (Ollama) tags
		"llama3":                {Name: "llama3", Provider: ProviderOllama, ContextTokens: 8192},
		"llama3:latest":         {Name: "llama3:latest", Provider: ProviderOllama, ContextTokens: 8192},
		"llama3.1:8b":           {Name: "llama3.1:8b", Provider: ProviderOllama, ContextTokens: 131072},
		"mistral:7b-instruct":   {Name: "mistral:7b-instruct", Provider: ProviderOllama, ContextTokens: 8192},
		"mistral-nemo:latest":   {Name: "mistral-nemo:latest", Provider: ProviderOllama, ContextTokens: 128000},
		"phi3:mini-4k-instruct": {Name: "phi3:mini-4k-instruct", Provider: ProviderOllama, ContextTokens: 4096},
	}
)

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	mi, ok := models[name]
	return mi, ok
}

// EstimateCostUSD estimates total cost in USD for given tokens using model pricing.
// If the model is unknown, returns 0 and ok=false.
func EstimateCostUSD(model string, promptTokens, completionTokens int) (float64, bool) {
	mi, ok := LookupModel(model)
	if !ok {
		return 0, false
	}
	inCost := (float64(promptTokens) / 1000.0) * mi.InputPerK
	outCost := (float64(completionTokens) / 1000.0) * mi.OutputPerK
	return inCost + outCost, true
}

// ModelsFor returns the catalog entries of one provider sorted by name. An
// empty provider returns everything.
func ModelsFor(provider string) []ModelInfo {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	out := lo.Filter(lo.Values(models), func(m ModelInfo, _ int) bool {
		return provider == "" || m.Provider == provider
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// LoadCatalogFromJSON loads a JSON object map[string]ModelInfo from a file path.
// Example entry:
// { "gpt-4o-mini": {"Name":"gpt-4o-mini","Provider":"openai","ContextTokens":128000,"InputPerK":0.00015,"OutputPerK":0.0006} }
func LoadCatalogFromJSON(path string) (map[string]ModelInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var m map[string]ModelInfo
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	for k, v := range m {
		if v.Name == "" {
			v.Name = k
			m[k] = v
		}
	}
	return m, nil
}

// MergeCatalog merges/overrides entries in the in-memory catalog.
func MergeCatalog(m map[string]ModelInfo) {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	for k, v := range m {
		models[k] = v
	}
}

// Catalog returns a shallow copy of the current model catalog.
func Catalog() map[string]ModelInfo {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	out := make(map[string]ModelInfo, len(models))
	for k, v := range models {
		out[k] = v
	}
	return out
}
