package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/KaramelBytes/researchcrew-cli/internal/utils"
)

// Config selects what the viewer serves.
type Config struct {
	Host       string
	Port       int
	ReportsDir string
	// Report is a file name inside ReportsDir. Empty means the newest HTML
	// report at request time.
	Report string
}

// Server serves the reports directory and redirects / to a report.
type Server struct {
	httpServer *http.Server
	reportsDir string
	report     string
}

// ReportInfo describes one HTML report for the listing endpoint.
type ReportInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	URL      string    `json:"url"`
}

// New validates cfg and wires the router. It does not listen; call Run.
func New(cfg Config) (*Server, error) {
	dir, err := filepath.Abs(cfg.ReportsDir)
	if err != nil {
		return nil, fmt.Errorf("resolve reports dir: %w", err)
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("reports directory %q does not exist", dir)
	}
	if cfg.Report != "" {
		if _, err := ResolveReport(dir, cfg.Report); err != nil {
			return nil, err
		}
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	s := &Server{reportsDir: dir, report: cfg.Report}

	r := chi.NewRouter()
	r.Use(Recovery)
	r.Use(RequestID)
	r.Use(Logger)

	r.Get("/", s.handleIndex)
	r.Get("/api/reports", s.handleList)
	r.Handle("/reports/*", http.StripPrefix("/reports/", http.FileServer(http.Dir(dir))))

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Addr is the listen address.
func (s *Server) Addr() string { return s.httpServer.Addr }

// ResolveReport returns the report name to serve: name itself when it exists
// in dir, else the newest .html file.
func ResolveReport(dir, name string) (string, error) {
	if name != "" {
		clean := filepath.Base(name)
		if fi, err := os.Stat(filepath.Join(dir, clean)); err != nil || fi.IsDir() {
			return "", fmt.Errorf("report %q does not exist", name)
		}
		return clean, nil
	}
	latest, err := utils.LatestFile(dir, ".html")
	if err != nil {
		return "", err
	}
	if latest == "" {
		return "", fmt.Errorf("no HTML reports found in %q", dir)
	}
	return latest, nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	name, err := ResolveReport(s.reportsDir, s.report)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Redirect(w, r, "/reports/"+path.Clean(name), http.StatusFound)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.reportsDir)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read reports", "context": err.Error()})
		return
	}
	out := []ReportInfo{}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".html") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, ReportInfo{
			Name:     e.Name(),
			Size:     info.Size(),
			Modified: info.ModTime(),
			URL:      "/reports/" + e.Name(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Modified.After(out[j].Modified) })
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		l := getLog()
		l.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		l := getLog()
		l.Info().Str("addr", s.httpServer.Addr).Str("dir", s.reportsDir).Msg("report viewer listening")
		errCh <- s.httpServer.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
