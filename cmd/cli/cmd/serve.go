package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sptrsv/sptrsv-sim/internal/webui"
)

var (
	serveConfigPath string
	servePort       int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server to browse persisted runs",
	Long: `serve starts a lightweight HTTP server listing every persisted
run and letting you drill into one run's dispatch trace, backed by the
repository and storage configured in the config file.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	binName := BinName()
	serveCmd.Example = `  # Start the server with default settings (port 8080)
  ` + binName + ` serve -c config.yaml

  # Specify a different port
  ` + binName + ` serve -c config.yaml -p 9090`

	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Path to configuration file (required)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port for web server")
	serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	deps, closeDeps, err := buildPipelineDeps(serveConfigPath, log)
	if err != nil {
		return err
	}
	if closeDeps != nil {
		defer closeDeps()
	}
	if deps.Repo == nil {
		return fmt.Errorf("serve requires a config file with a database configured")
	}

	server := webui.NewServer(deps.Repo, deps.Store, servePort, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
		os.Exit(0)
	}()

	if err := server.Start(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
