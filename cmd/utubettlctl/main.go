package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	clientcmd "github.com/utubettl/utubettl/internal/cmd/client"
	serverrun "github.com/utubettl/utubettl/internal/cmd/server"
	cfgpkg "github.com/utubettl/utubettl/internal/config"
	logpkg "github.com/utubettl/utubettl/pkg/log"
)

func main() {
	level := os.Getenv("UTUBETTL_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:   "utubettlctl",
		Short: "utubettl runtime CLI",
		Long:  "utubettl is a single-binary in-memory priority task queue. This CLI runs the server and drives spaces/tasks over its HTTP API.",
	}

	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the utubettl HTTP server",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			httpAddr, _ := cmd.Flags().GetString("http")
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFormat, _ := cmd.Flags().GetString("log-format")
			defaultSpace, _ := cmd.Flags().GetString("default-space")

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cfg := cfgpkg.Default()
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if logFormat != "" {
				cfg.LogFormat = logFormat
			}
			if defaultSpace != "" {
				cfg.DefaultSpace = defaultSpace
			}
			cfgpkg.FromEnv(&cfg)

			if err := serverrun.Run(ctx, serverrun.Options{HTTPAddr: httpAddr, Config: cfg}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	serverStartCmd.Flags().String("http", ":8080", "HTTP listen address")
	serverStartCmd.Flags().String("log-level", os.Getenv("UTUBETTL_LOG_LEVEL"), "Log level: debug|info|warn|error")
	serverStartCmd.Flags().String("log-format", os.Getenv("UTUBETTL_LOG_FORMAT"), "Log format: text|json")
	serverStartCmd.Flags().String("default-space", "", "Name of the space created automatically at startup")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	client := clientcmd.NewRoot(apiURL)
	for _, c := range client.Commands() {
		rootCmd.AddCommand(c)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func apiURL() string {
	if v := os.Getenv("UTUBETTL_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8080"
}
