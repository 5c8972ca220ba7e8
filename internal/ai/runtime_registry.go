package ai

import (
	"maps"
	"slices"
	"time"
)

// RuntimeFactory builds a Runtime from RuntimeConfig.
type RuntimeFactory func(RuntimeConfig) Runtime

// RuntimeConfig is the connection and retry setup for one backend. Zero
// values select each client's defaults.
type RuntimeConfig struct {
	HTTPTimeout time.Duration
	RetryMax    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// OpenAI and OpenRouter.
	APIKey  string
	BaseURL string

	// Ollama.
	Host string
}

var registry = map[string]RuntimeFactory{}

func init() {
	RegisterRuntime(ProviderOpenRouter, func(c RuntimeConfig) Runtime { return NewOpenRouterClient(c) })
	RegisterRuntime(ProviderOllama, func(c RuntimeConfig) Runtime {
		return NewOllamaClient(c.Host, c.HTTPTimeout, c.RetryMax, c.BaseDelay)
	})
}

// RegisterRuntime adds or replaces the factory for name.
func RegisterRuntime(name string, f RuntimeFactory) { registry[name] = f }

// GetRuntime builds the runtime registered under name.
func GetRuntime(name string, cfg RuntimeConfig) (Runtime, bool) {
	f, ok := registry[name]
	if !ok {
		return nil, false
	}
	return f(cfg), true
}

// RegisteredRuntimes returns the registered names, sorted. OpenAI is absent
// because NewChatModel serves it through eino-ext directly.
func RegisteredRuntimes() []string {
	return slices.Sorted(maps.Keys(registry))
}
