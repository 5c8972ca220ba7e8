package archive_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/researchcrew-cli/internal/archive"
)

func TestRunSaveAndLoad(t *testing.T) {
	reports := t.TempDir()
	r := archive.NewRun(reports, "Solar", "ollama", "llama3")
	require.Equal(t, archive.StatusRunning, r.Status)
	require.Equal(t, filepath.Join(reports, "runs", r.ID), r.Dir())

	name, err := r.WriteOutput("research", "raw notes")
	require.NoError(t, err)
	assert.Equal(t, "research.md", name)
	r.Tasks = append(r.Tasks, archive.Task{Name: "research", Agent: "Senior Data Researcher", OutputFile: name})
	r.Finish(nil)
	require.NoError(t, r.Save())

	got, err := archive.Load(r.Dir())
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, archive.StatusSucceeded, got.Status)
	assert.Equal(t, r.Tasks, got.Tasks)
	assert.True(t, got.Duration() >= 0)

	b, err := os.ReadFile(filepath.Join(r.Dir(), "research.md"))
	require.NoError(t, err)
	assert.Equal(t, "raw notes", string(b))
}

func TestRunFinishWithError(t *testing.T) {
	r := archive.NewRun(t.TempDir(), "x", "openai", "gpt-4o")
	assert.Zero(t, r.Duration())
	r.Finish(errors.New("rate limited"))
	assert.Equal(t, archive.StatusFailed, r.Status)
	assert.Equal(t, "rate limited", r.Error)
}

func TestLoadMissing(t *testing.T) {
	_, err := archive.Load(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestListNewestFirst(t *testing.T) {
	reports := t.TempDir()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, topic := range []string{"old", "newest", "middle"} {
		r := archive.NewRun(reports, topic, "ollama", "llama3")
		r.StartedAt = base.Add(time.Duration([]int{0, 2, 1}[i]) * time.Hour)
		require.NoError(t, r.Save())
	}
	// stray entries are ignored
	require.NoError(t, os.MkdirAll(filepath.Join(reports, "runs", "broken"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(reports, "runs", "file.txt"), nil, 0o644))

	runs, err := archive.List(reports)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"newest", "middle", "old"}, []string{runs[0].Topic, runs[1].Topic, runs[2].Topic})
}

func TestListNoRuns(t *testing.T) {
	runs, err := archive.List(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, runs)
}
