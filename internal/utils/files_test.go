package utils_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KaramelBytes/researchcrew-cli/internal/utils"
)

func TestSafeWriteFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "out.md")
	if err := utils.SafeWriteFile(p, []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := utils.SafeWriteFile(p, []byte("two")); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "two" {
		t.Fatalf("got %q", b)
	}
	if _, err := os.Stat(p + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestLatestFile(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-time.Hour)
	for _, name := range []string{"a.html", "b.html", "c.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Chtimes(filepath.Join(dir, "a.html"), old, old); err != nil {
		t.Fatal(err)
	}
	got, err := utils.LatestFile(dir, ".html")
	if err != nil {
		t.Fatal(err)
	}
	if got != "b.html" {
		t.Fatalf("latest=%q want b.html", got)
	}
	if got, _ := utils.LatestFile(dir, ".pdf"); got != "" {
		t.Fatalf("expected no match, got %q", got)
	}
}
