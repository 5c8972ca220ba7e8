package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/researchcrew-cli/internal/report"
	"github.com/KaramelBytes/researchcrew-cli/internal/utils"
)

var (
	showWidth int
	showRaw   bool
	showStyle string
)

var showCmd = &cobra.Command{
	Use:   "show [file.md]",
	Short: "Print a markdown report in the terminal",
	Long:  `Renders a report with glamour. Without an argument the newest report in the reports directory is shown.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			c, err := ensureConfig()
			if err != nil {
				return err
			}
			dir, err := reportsDir(c, "")
			if err != nil {
				return err
			}
			name, err := utils.LatestFile(dir, ".md")
			if err != nil {
				return fmt.Errorf("read reports dir: %w", err)
			}
			if name == "" {
				return fmt.Errorf("no markdown reports found in %s", dir)
			}
			path = filepath.Join(dir, name)
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read report: %w", err)
		}
		md := report.PreprocessMarkdown(string(b))
		w := cmd.OutOrStdout()
		if showRaw {
			fmt.Fprint(w, md)
			return nil
		}

		opts := []glamour.TermRendererOption{glamour.WithWordWrap(showWidth)}
		if showStyle != "" {
			opts = append(opts, glamour.WithStylePath(showStyle))
		} else {
			opts = append(opts, glamour.WithAutoStyle())
		}
		r, err := glamour.NewTermRenderer(opts...)
		if err != nil {
			return fmt.Errorf("terminal renderer: %w", err)
		}
		out, err := r.Render(md)
		if err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		fmt.Fprint(w, out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVar(&showWidth, "width", 100, "word wrap width")
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "print the normalized markdown without styling")
	showCmd.Flags().StringVar(&showStyle, "style", "", "glamour style: dark|light|notty|<path.json> (default: auto)")
}
