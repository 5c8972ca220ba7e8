package utils_test

import (
	"os"
	"strings"
	"testing"

	"github.com/KaramelBytes/researchcrew-cli/internal/utils"
)

func TestMain(m *testing.M) {
	// keep token counts deterministic and offline
	utils.DisableTokenizer()
	os.Exit(m.Run())
}

func TestCountTokens(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"short", "hi", 1},
		{"simple", "hello world", 2},
		{"long", strings.Repeat("a", 4000), 1000},
		{"runes", strings.Repeat("é", 8), 2},
	}
	for _, c := range cases {
		if got := utils.CountTokens(c.in); got != c.want {
			t.Errorf("%s: got %d want %d", c.name, got, c.want)
		}
	}
}

func TestTruncateToTokenLimit(t *testing.T) {
	text := strings.Repeat("abcd ", 1000) // ~5000 chars
	trunc := utils.TruncateToTokenLimit(text, 300)
	n := utils.CountTokens(trunc)
	if n > 300 {
		t.Fatalf("tokens=%d exceeds limit", n)
	}
	if len(trunc) == 0 {
		t.Fatalf("expected non-empty truncation")
	}
	if got := utils.TruncateToTokenLimit("short", 300); got != "short" {
		t.Fatalf("short text changed: %q", got)
	}
	if got := utils.TruncateToTokenLimit("anything", 0); got != "" {
		t.Fatalf("zero limit should yield empty, got %q", got)
	}
}

func TestTokenBreakdown(t *testing.T) {
	got := utils.TokenBreakdown(map[string]string{"research": strings.Repeat("x", 40), "notes": ""})
	if got["research"] != 10 || got["notes"] != 0 {
		t.Fatalf("unexpected breakdown: %v", got)
	}
}
