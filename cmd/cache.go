package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jj1bdx/erldoc/internal/config"
	"github.com/jj1bdx/erldoc/internal/daemon"
)

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Drop stored build state and cached pages; the next build rewrites everything",
	Run:   runClearCache,
}

func runClearCache(cmd *cobra.Command, args []string) {
	client := daemon.NewClient(config.SocketPath())
	if !client.IsAvailable() {
		fmt.Println("daemon is not running")
		return
	}

	resp, err := client.ClearCache(context.Background())
	if err != nil {
		slog.Error("failed to clear cache", "error", err)
		os.Exit(1)
	}
	fmt.Printf("cleared %d projects, removed %d cached pages\n", resp.Projects, resp.CASRemoved)
}
