package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jj1bdx/erldoc/internal/config"
	"github.com/jj1bdx/erldoc/internal/daemon"
	"github.com/jj1bdx/erldoc/internal/mcp"
)

var debug bool

var rootCmd = &cobra.Command{
	Use:   "erldoc",
	Short: "Erlang documentation builder and MCP server",
	Long: `erldoc builds Markdown documentation of Erlang code written with {erl:...}
directives and roles, resolves cross-references between pages and to other
projects, and serves the result to tools over MCP.

Run without a subcommand to serve the documentation tree of the current
directory over MCP on stdio.`,
	Run: runServe,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("command failed: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "run daemon in-process (visible log output)")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(clearCacheCmd)
	rootCmd.AddCommand(mcpCmd)
}

// sourceDir is the documentation tree a command works on: the first
// argument if given, else source.dir from the configuration.
func sourceDir(args []string) string {
	dir := ""
	if len(args) > 0 {
		dir = args[0]
	} else {
		cfg, err := config.Load()
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		dir = cfg.Source.Dir
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		log.Fatalf("resolving %s: %v", dir, err)
	}
	return abs
}

// connectDaemon returns a daemon client. In debug mode, starts the daemon
// in-process so all log output is visible in the terminal.
func connectDaemon() (*daemon.Client, error) {
	socketPath := config.SocketPath()

	if !debug {
		return daemon.ConnectOrSpawn(socketPath)
	}

	// In debug mode: stop any existing daemon, then start in-process
	client := daemon.NewClient(socketPath)
	if client.IsAvailable() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client.Shutdown(shutdownCtx)
		cancel()
		time.Sleep(200 * time.Millisecond)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	srv := daemon.NewServer(cfg, socketPath)
	go func() {
		if err := srv.Start(context.Background()); err != nil {
			slog.Error("in-process daemon error", "error", err)
		}
	}()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
		if client.IsAvailable() {
			return client, nil
		}
	}

	return nil, fmt.Errorf("in-process daemon did not start within 5 seconds")
}

func runServe(cmd *cobra.Command, args []string) {
	socketPath := config.SocketPath()

	server, err := mcp.NewServer(socketPath, sourceDir(nil))
	if err != nil {
		log.Fatalf("failed to create MCP server: %v", err)
	}

	errCh := make(chan error)
	go func() { errCh <- server.Run() }()

	if err := waitForSignal(errCh); err != nil {
		log.Fatalf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(ctx)
}

func waitForSignal(errCh chan error) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		slog.Info("received signal", "signal", sig)
		return nil
	case err := <-errCh:
		return err
	}
}
