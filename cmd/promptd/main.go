// Package main provides the promptd server entry point.
// promptd is a backend service that manages multi-turn conversations with LLM
// providers for a prompt-engineering assistant.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"promptd/internal/config"
	"promptd/internal/llm"
	"promptd/internal/logger"
	"promptd/internal/router"
	"promptd/internal/server"
	"promptd/internal/session"
)

var (
	addr        string
	logLevel    string
	logFile     string
	envFile     string
	promptsFile string
	version     = "0.1.0" // This could be set at build time
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "promptd",
	Short: "promptd - prompt-engineering assistant backend",
	Long: `promptd is a backend service for AI-driven multi-agent prompt creation.
It manages conversation threads against LLM providers and drives a two-phase
workflow: task decomposition followed by per-subtask prompt generation.`,
	Run: runServe, // Default behavior is to serve
}

// serveCmd represents the serve command (explicit version of default behavior)
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  `Start the promptd HTTP API server and serve until interrupted.`,
	Run:   runServe,
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display the version of promptd.`,
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("promptd v%s\n", version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().StringVar(&addr, "addr", ":8001", "Listen address for the HTTP API")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set log level (debug|info|warn|error) [default: info]")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to file instead of stderr")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to the .env file seeding the environment")
	rootCmd.PersistentFlags().StringVar(&promptsFile, "prompts-file", "prompts/prompt-engineer.yaml", "Path to the instruction-template YAML file")

	// Bind flags to viper
	for _, flag := range []string{"addr", "log-level", "log-file", "env-file", "prompts-file"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			fmt.Fprintf(os.Stderr, "Error binding %s flag: %v\n", flag, err)
			os.Exit(1)
		}
	}

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	// Configure logger before any command execution
	cobra.OnInitialize(initLogging)
}

func initLogging() {
	if err := logger.Configure(logLevel, logFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %v\n", err)
		os.Exit(1)
	}
}

func runServe(_ *cobra.Command, _ []string) {
	logger.Info("Starting promptd", "version", version)

	cfg, err := config.Load(envFile, promptsFile)
	if err != nil {
		logger.Fatal("Failed to load configuration", "error", err)
	}

	store := session.NewStore()
	factory := llm.NewFactory(cfg)
	sessions := session.NewManager(store, factory, cfg.Prompts)
	msgRouter := router.New(sessions)
	srv := server.New(addr, sessions, msgRouter)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
}
