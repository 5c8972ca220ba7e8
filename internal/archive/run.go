package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/researchcrew-cli/internal/utils"
)

const (
	runsDirName  = "runs"
	manifestName = "run.json"
)

// Status values of a Run.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is the manifest of one research invocation, persisted as run.json
// under <reports>/runs/<id>/.
type Run struct {
	ID          string    `json:"id"`
	Topic       string    `json:"topic"`
	Backend     string    `json:"backend"`
	Model       string    `json:"model"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitzero"`
	ContextDocs []string  `json:"context_docs,omitempty"`

	MarkdownPath string `json:"markdown_path,omitempty"`
	HTMLPath     string `json:"html_path,omitempty"`

	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd,omitempty"`
	Tasks            []Task  `json:"tasks,omitempty"`

	// Not serialized: on-disk location of run.json
	rootDir string `json:"-"`
}

// Task summarizes one crew task within a run.
type Task struct {
	Name             string `json:"name"`
	Agent            string `json:"agent"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	DurationMs       int64  `json:"duration_ms"`
	Attempts         int    `json:"attempts"`
	OutputFile       string `json:"output_file,omitempty"`
}

// RunsDir returns <reportsDir>/runs.
func RunsDir(reportsDir string) string {
	return filepath.Join(reportsDir, runsDirName)
}

// NewRun constructs an in-memory run in the running state. Call Save() to persist.
func NewRun(reportsDir, topic, backend, model string) *Run {
	id := uuid.NewString()
	return &Run{
		ID:        id,
		Topic:     topic,
		Backend:   backend,
		Model:     model,
		Status:    StatusRunning,
		StartedAt: time.Now(),
		rootDir:   filepath.Join(RunsDir(reportsDir), id),
	}
}

// Load reads run.json from dir.
func Load(dir string) (*Run, error) {
	path := filepath.Join(dir, manifestName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("run not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read run: %w", err)
	}
	var r Run
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("parse run: %w", err)
	}
	r.rootDir = dir
	return &r, nil
}

// Dir returns the run directory.
func (r *Run) Dir() string { return r.rootDir }

// Save writes run.json using atomic write.
func (r *Run) Save() error {
	if r.rootDir == "" {
		return errors.New("run directory not set")
	}
	if err := utils.EnsureDir(r.rootDir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	data, err := utils.PrettyJSON(r)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(r.rootDir, manifestName), data)
}

// WriteOutput stores a raw task output next to the manifest and returns its
// file name.
func (r *Run) WriteOutput(task, content string) (string, error) {
	if r.rootDir == "" {
		return "", errors.New("run directory not set")
	}
	if err := utils.EnsureDir(r.rootDir); err != nil {
		return "", fmt.Errorf("ensure dir: %w", err)
	}
	name := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(task), " ", "_")) + ".md"
	if err := utils.SafeWriteFile(filepath.Join(r.rootDir, name), []byte(content)); err != nil {
		return "", err
	}
	return name, nil
}

// Finish marks the run done. A nil err means success.
func (r *Run) Finish(err error) {
	r.FinishedAt = time.Now()
	if err != nil {
		r.Status = StatusFailed
		r.Error = err.Error()
		return
	}
	r.Status = StatusSucceeded
	r.Error = ""
}

// Duration is the wall time of a finished run, or zero while running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// List returns runs under reportsDir, newest first. A missing runs
// directory yields an empty list. Unreadable manifests are skipped.
func List(reportsDir string) ([]*Run, error) {
	root := RunsDir(reportsDir)
	dirs, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var runs []*Run
	for _, e := range dirs {
		if !e.IsDir() {
			continue
		}
		r, err := Load(filepath.Join(root, e.Name()))
		if err != nil {
			continue
		}
		runs = append(runs, r)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs, nil
}
