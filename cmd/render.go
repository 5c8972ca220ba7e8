package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/researchcrew-cli/internal/report"
	"github.com/KaramelBytes/researchcrew-cli/internal/utils"
)

var (
	renderTopic     string
	renderOutputDir string
	renderInPlace   bool
)

var renderCmd = &cobra.Command{
	Use:   "render <file.md> [file.md...]",
	Short: "Render markdown reports to styled HTML",
	Long: `Normalizes each markdown report and writes <name>.html next to it (or into
--output-dir). Files are rendered concurrently. With --normalize the cleaned markdown
is written back to the source file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if renderTopic != "" && len(args) > 1 {
			return fmt.Errorf("--topic applies to a single file")
		}
		now := time.Now()
		out := make([]string, len(args))

		var mu sync.Mutex
		var failed []string
		var g errgroup.Group
		g.SetLimit(runtime.NumCPU())
		for i, path := range args {
			g.Go(func() error {
				dest, err := renderOne(path, renderTopic, renderOutputDir, renderInPlace, now)
				if err != nil {
					mu.Lock()
					failed = append(failed, fmt.Sprintf("%s: %v", path, err))
					mu.Unlock()
					return nil
				}
				out[i] = dest
				return nil
			})
		}
		_ = g.Wait()

		w := cmd.OutOrStdout()
		for i, dest := range out {
			if dest != "" {
				fmt.Fprintf(w, "✓ %s → %s\n", args[i], dest)
			}
		}
		if len(failed) > 0 {
			return fmt.Errorf("%d of %d file(s) failed:\n  %s", len(failed), len(args), strings.Join(failed, "\n  "))
		}
		return nil
	},
}

// renderOne renders one markdown file and returns the HTML path.
func renderOne(path, topic, outDir string, inPlace bool, now time.Time) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	md := report.PreprocessMarkdown(string(b))
	if inPlace && md != string(b) {
		if err := utils.SafeWriteFile(path, []byte(md)); err != nil {
			return "", fmt.Errorf("write normalized markdown: %w", err)
		}
	}
	dir := filepath.Dir(path)
	if outDir != "" {
		dir = outDir
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create output dir: %w", err)
		}
	}
	dest := filepath.Join(dir, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+".html")
	if _, err := report.RenderFile(md, topic, now, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVar(&renderTopic, "topic", "", "report topic for the title (default: the markdown title)")
	renderCmd.Flags().StringVarP(&renderOutputDir, "output-dir", "o", "", "write HTML here instead of next to each file")
	renderCmd.Flags().BoolVar(&renderInPlace, "normalize", false, "write the normalized markdown back to the source file")
}
