package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMissingAPIKey is returned by CheckAvailability for hosted backends
// without a key.
var ErrMissingAPIKey = errors.New("API key is missing")

// PingTimeout bounds the Ollama reachability probe.
const PingTimeout = 2 * time.Second

// AvailabilityOptions carries what CheckAvailability needs per backend.
type AvailabilityOptions struct {
	APIKey string
	Host   string
}

// CheckAvailability reports whether backend can serve requests. Hosted
// backends only need a key; Ollama must answer GET / with 200 within
// PingTimeout.
func CheckAvailability(ctx context.Context, backend string, opts AvailabilityOptions) error {
	switch backend {
	case ProviderOpenAI:
		if opts.APIKey == "" {
			return fmt.Errorf("%w: set OPENAI_API_KEY", ErrMissingAPIKey)
		}
		return nil
	case ProviderOpenRouter:
		if opts.APIKey == "" {
			return fmt.Errorf("%w: set OPENROUTER_API_KEY", ErrMissingAPIKey)
		}
		return nil
	case ProviderOllama:
		ctx, cancel := context.WithTimeout(ctx, PingTimeout)
		defer cancel()
		return NewOllamaClient(opts.Host, PingTimeout, 1, 0).Ping(ctx)
	default:
		return fmt.Errorf("unknown backend %q (supported: openai, openrouter, ollama)", backend)
	}
}
