package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/researchcrew-cli/internal/config"
	"github.com/KaramelBytes/researchcrew-cli/internal/utils"
)

var (
	initBackend    string
	initReportsDir string
	initForce      bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config and create the reports directory",
	Long: `Writes ~/.researchcrew/config.yaml (or --config) with the effective defaults and
creates the reports directory. An existing config file is left alone unless --force.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ensureConfig()
		if err != nil {
			return err
		}
		if initBackend != "" {
			b, err := selectBackend(nil, initBackend)
			if err != nil {
				return err
			}
			c.Backend = b
		}
		if initReportsDir != "" {
			c.ReportsDir = initReportsDir
		}

		w := cmd.OutOrStdout()
		path, err := cfgpkg.Path(cfgFile)
		if err != nil {
			return err
		}
		_, statErr := os.Stat(path)
		switch {
		case statErr == nil && !initForce:
			fmt.Fprintf(w, "⚠ Config already exists at %s (use --force to overwrite)\n", path)
		case statErr == nil || errors.Is(statErr, fs.ErrNotExist):
			if err := cfgpkg.Save(c, cfgFile); err != nil {
				return err
			}
			fmt.Fprintf(w, "✓ Config written: %s\n", path)
		default:
			return fmt.Errorf("stat config: %w", statErr)
		}

		dir, err := reportsDir(c, "")
		if err != nil {
			return err
		}
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("create reports dir: %w", err)
		}
		fmt.Fprintf(w, "✓ Reports directory: %s\n", dir)
		fmt.Fprintf(w, "Next: researchcrew check && researchcrew research \"<topic>\" --backend %s\n", c.Backend)
		return nil
	},
}

// reportsDir returns explicit, else the configured reports dir, with a
// leading ~ expanded.
func reportsDir(c *cfgpkg.Global, explicit string) (string, error) {
	dir := explicit
	if dir == "" && c != nil {
		dir = c.ReportsDir
	}
	if dir == "" {
		dir = "reports"
	}
	if strings.HasPrefix(dir, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dir = strings.TrimPrefix(dir, "~")
		dir = strings.TrimPrefix(dir, string(os.PathSeparator))
		dir = strings.TrimPrefix(dir, "/")
		dir = filepath.Join(home, dir)
	}
	return filepath.Clean(dir), nil
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVarP(&initBackend, "backend", "b", "", "default backend to store: openai|openrouter|ollama")
	initCmd.Flags().StringVar(&initReportsDir, "reports-dir", "", "reports directory to store in the config")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
}
