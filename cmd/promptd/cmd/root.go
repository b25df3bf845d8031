package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/promptd/promptd/internal/api"
	"github.com/promptd/promptd/internal/app"
	"github.com/promptd/promptd/internal/config"
)

var (
	configPath string
	dataDir    string
	port       int
	debug      bool
	logFile    *os.File
)

var rootCmd = &cobra.Command{
	Use:   "promptd",
	Short: "Local AI request router",
	Long: `promptd accepts natural-language prompts over HTTP and WebSocket,
classifies intent, and answers via local solvers, cached responses,
sandboxed tools or streamed local language models.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

// Execute runs the CLI
func Execute() error {
	defer cleanupLogging()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ./data)")
	rootCmd.PersistentFlags().IntVar(&port, "port", 0, "listen port (default from config/PORT)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(serveCmd)
}

func serve() error {
	cfg, err := config.Load(configPath, debug)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if port != 0 {
		cfg.Port = port
	}

	setupLogging(cfg)

	application, err := app.New(cfg, ".")
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Shutdown()

	server := api.NewServer(application)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Port)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Stop(shutdownCtx)
	}
}

// setupLogging keeps debug output on stderr and redirects normal runs
// to the data-dir log file (stderr only if the file cannot be opened).
func setupLogging(cfg *config.Config) {
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
		return
	}
	log.SetLevel(log.InfoLevel)
	f, err := os.OpenFile(cfg.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Warn("failed to open log file, keeping stderr", "error", err)
		return
	}
	logFile = f
	log.SetOutput(f)
}

func cleanupLogging() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}
