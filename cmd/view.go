package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/researchcrew-cli/internal/server"
)

var (
	viewHost       string
	viewPort       int
	viewReportsDir string
	viewReport     string
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Serve the reports directory and open the latest report",
	Long: `Starts an HTTP server over the reports directory. / redirects to --report, or to
the newest HTML report at request time. /api/reports lists reports as JSON.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ensureConfig()
		if err != nil {
			return err
		}
		dir, err := reportsDir(c, viewReportsDir)
		if err != nil {
			return err
		}
		srv, err := server.New(server.Config{
			Host:       viewHost,
			Port:       viewPort,
			ReportsDir: dir,
			Report:     viewReport,
		})
		if err != nil {
			return err
		}
		name, err := server.ResolveReport(dir, viewReport)
		if err != nil {
			return err
		}

		host := viewHost
		if host == "" {
			host = "localhost"
		}
		fmt.Printf("Starting HTTP server at http://%s:%d\n", host, viewPort)
		fmt.Printf("Serving report: %s\n", name)
		fmt.Println("Press Ctrl+C to stop the server")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		fmt.Println("\nServer stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(viewCmd)
	viewCmd.Flags().StringVar(&viewHost, "host", "", "listen host (default all interfaces)")
	viewCmd.Flags().IntVarP(&viewPort, "port", "p", 8000, "port to run the HTTP server on")
	viewCmd.Flags().StringVar(&viewReportsDir, "reports-dir", "", "directory containing the reports (default from config)")
	viewCmd.Flags().StringVar(&viewReport, "report", "", "specific report file to view (default: latest)")
}
