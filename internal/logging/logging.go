package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/KaramelBytes/researchcrew-cli/internal/config"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Manager hands out per-package loggers that share one set of writers.
type Manager struct {
	cfg            config.LogConfig
	root           zerolog.Logger
	packageLoggers map[string]zerolog.Logger
	closers        []io.Closer
	mu             sync.RWMutex
}

// NewManager builds the writers described by cfg: an optional console writer
// on stderr and an optional rotated log file.
func NewManager(cfg config.LogConfig) (*Manager, error) {
	return newManager(cfg, os.Stderr)
}

func newManager(cfg config.LogConfig, console io.Writer) (*Manager, error) {
	m := &Manager{
		cfg:            cfg,
		packageLoggers: make(map[string]zerolog.Logger),
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var writers []io.Writer
	if cfg.Console {
		cw := zerolog.ConsoleWriter{
			Out:        console,
			TimeFormat: "15:04:05",
			FormatLevel: func(i interface{}) string {
				return strings.ToUpper(fmt.Sprintf("| %-5s|", i))
			},
		}
		writers = append(writers, levelWriter{w: cw, min: ParseLevel(cfg.ConsoleLevel)})
	}
	if cfg.File != "" {
		if dir := filepath.Dir(cfg.File); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create log directory: %w", err)
			}
		}
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		m.closers = append(m.closers, lj)
		writers = append(writers, levelWriter{w: lj, min: zerolog.TraceLevel})
	}

	var out io.Writer = io.Discard
	if len(writers) > 0 {
		out = zerolog.MultiLevelWriter(writers...)
	}
	m.root = zerolog.New(out).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
	return m, nil
}

// levelWriter drops events below min so the console can stay quieter than
// the log file.
type levelWriter struct {
	w   io.Writer
	min zerolog.Level
}

func (lw levelWriter) Write(p []byte) (int, error) {
	return lw.w.Write(p)
}

func (lw levelWriter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l < lw.min {
		return len(p), nil
	}
	return lw.w.Write(p)
}

// GetLogger returns a logger tagged with pkg.
func (m *Manager) GetLogger(pkg string) zerolog.Logger {
	m.mu.RLock()
	if l, ok := m.packageLoggers[pkg]; ok {
		m.mu.RUnlock()
		return l
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.packageLoggers[pkg]; ok {
		return l
	}
	l := m.root.With().Str("pkg", pkg).Logger()
	m.packageLoggers[pkg] = l
	return l
}

// Close closes the log file.
func (m *Manager) Close() error {
	for _, c := range m.closers {
		if err := c.Close(); err != nil {
			return err
		}
	}
	return nil
}

// ParseLevel converts a level name to zerolog.Level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

var (
	globalMu      sync.RWMutex
	globalManager *Manager
)

// Initialize installs the process-wide manager, replacing any earlier one.
func Initialize(cfg config.LogConfig) error {
	m, err := NewManager(cfg)
	if err != nil {
		return err
	}
	globalMu.Lock()
	prev := globalManager
	globalManager = m
	globalMu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}
	return nil
}

// GetLogger returns a package logger, or a discarding one before Initialize.
func GetLogger(pkg string) zerolog.Logger {
	globalMu.RLock()
	m := globalManager
	globalMu.RUnlock()
	if m == nil {
		return zerolog.Nop()
	}
	return m.GetLogger(pkg)
}

// Close closes the process-wide manager.
func Close() error {
	globalMu.Lock()
	m := globalManager
	globalManager = nil
	globalMu.Unlock()
	if m != nil {
		return m.Close()
	}
	return nil
}
