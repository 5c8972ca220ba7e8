package utils

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Token counting uses the cl100k_base BPE when it can be loaded and falls
// back to a 4 characters per token estimate otherwise.

var (
	encOnce     sync.Once
	enc         *tiktoken.Tiktoken
	encDisabled bool
	encMu       sync.RWMutex
)

// DisableTokenizer forces the character heuristic. Used by tests and
// offline runs.
func DisableTokenizer() {
	encMu.Lock()
	encDisabled = true
	encMu.Unlock()
}

func encoder() *tiktoken.Tiktoken {
	encMu.RLock()
	disabled := encDisabled
	encMu.RUnlock()
	if disabled {
		return nil
	}
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			enc = e
		}
	})
	return enc
}

// CountTokens returns the number of tokens in text.
func CountTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	if e := encoder(); e != nil {
		return len(e.Encode(text, nil, nil))
	}
	return EstimateTokens(text)
}

// EstimateTokens approximates 1 token ~= 4 characters.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := len([]rune(text)) / 4
	if tokens == 0 {
		return 1
	}
	return tokens
}

// TruncateToTokenLimit cuts text to at most limit tokens.
func TruncateToTokenLimit(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if e := encoder(); e != nil {
		toks := e.Encode(text, nil, nil)
		if len(toks) <= limit {
			return text
		}
		return e.Decode(toks[:limit])
	}
	runes := []rune(text)
	charLimit := limit * 4
	if charLimit >= len(runes) {
		return text
	}
	return string(runes[:charLimit])
}

// TokenBreakdown returns a breakdown map of labeled sections to token counts.
func TokenBreakdown(sections map[string]string) map[string]int {
	out := make(map[string]int, len(sections))
	for k, v := range sections {
		out[k] = CountTokens(v)
	}
	return out
}
