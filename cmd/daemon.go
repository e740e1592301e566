package cmd

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jj1bdx/erldoc/internal/config"
	"github.com/jj1bdx/erldoc/internal/daemon"
)

var daemonLogLevel string

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the background daemon (usually spawned automatically)",
	Long: `Serve builds and queries for every documentation tree that clients ask
about, over a unix socket. The daemon exits after a period without requests
(daemon.expiration_seconds). Logs go to the file printed by "erldoc logs".`,
	Args: cobra.NoArgs,
	Run:  runDaemon,
}

func init() {
	daemonCmd.Flags().StringVar(&daemonLogLevel, "log-level", "info", "minimum level written to the log file (debug, info, warn, error)")
}

func runDaemon(cmd *cobra.Command, args []string) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(daemonLogLevel)); err != nil {
		slog.Error("invalid log level", "level", daemonLogLevel, "error", err)
		os.Exit(1)
	}

	logPath := config.LogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		slog.Error("failed to create log directory", "error", err)
		os.Exit(1)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		slog.Error("failed to open log file", "error", err)
		os.Exit(1)
	}
	defer logFile.Close()
	slog.SetDefault(slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("daemon starting", "pid", os.Getpid(), "level", level, "store", cfg.Store.Driver)
	srv := daemon.NewServer(cfg, config.SocketPath())
	if err := srv.Start(context.Background()); err != nil {
		slog.Error("daemon failed", "error", err)
		os.Exit(1)
	}
}
