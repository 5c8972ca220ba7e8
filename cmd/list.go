package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/researchcrew-cli/internal/archive"
)

var (
	listReports bool
	listJSON    bool
	listLimit   int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived research runs or report files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ensureConfig()
		if err != nil {
			return err
		}
		dir, err := reportsDir(c, "")
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if listReports {
			return listReportFiles(w, dir)
		}

		runs, err := archive.List(dir)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		if listLimit > 0 && len(runs) > listLimit {
			runs = runs[:listLimit]
		}
		if listJSON {
			if runs == nil {
				runs = []*archive.Run{}
			}
			b, err := json.MarshalIndent(runs, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal runs: %w", err)
			}
			fmt.Fprintln(w, string(b))
			return nil
		}
		if len(runs) == 0 {
			fmt.Fprintln(w, "(no runs)")
			return nil
		}
		for _, r := range runs {
			glyph := "✓"
			switch r.Status {
			case archive.StatusFailed:
				glyph = "✗"
			case archive.StatusRunning:
				glyph = "…"
			}
			fmt.Fprintf(w, "%s %s  %s  %s/%s  %q\n", glyph, shortID(r.ID), r.StartedAt.Format(time.DateTime), r.Backend, r.Model, r.Topic)
			if r.HTMLPath != "" {
				fmt.Fprintf(w, "    %s\n", r.HTMLPath)
			}
			if r.Error != "" {
				fmt.Fprintf(w, "    error: %s\n", r.Error)
			}
		}
		return nil
	},
}

func listReportFiles(w io.Writer, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(w, "(no reports)")
			return nil
		}
		return err
	}
	type file struct {
		name string
		mod  time.Time
	}
	var files []file
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".md" && ext != ".html" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, file{name: e.Name(), mod: info.ModTime()})
	}
	if len(files) == 0 {
		fmt.Fprintln(w, "(no reports)")
		return nil
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mod.After(files[j].mod) })
	for _, f := range files {
		fmt.Fprintf(w, "- %s  (%s)\n", f.name, f.mod.Format(time.DateTime))
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listReports, "reports", false, "list report files instead of runs")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print runs as JSON")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "show at most n runs")
}
