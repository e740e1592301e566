package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/jj1bdx/erldoc/internal/config"
	"github.com/jj1bdx/erldoc/internal/daemon"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show projects known to the daemon and their last build",
	Run:   runStatus,
}

var statusJSON bool

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
}

func runStatus(cmd *cobra.Command, args []string) {
	client, err := connectDaemon()
	if err != nil {
		log.Fatalf("failed to connect to daemon: %v", err)
	}

	resp, err := client.Status(context.Background())
	if err != nil {
		log.Fatalf("status failed: %v", err)
	}

	if statusJSON {
		out, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(out))
		return
	}

	if len(resp.Projects) == 0 {
		fmt.Println("no projects open")
		return
	}

	for _, p := range resp.Projects {
		fmt.Printf("  %s [%s]: %d documents, %d objects, %d sections\n",
			p.SourceDir, p.Driver, p.Documents, p.Objects, p.Sections)
		if b := p.LastBuild; b != nil {
			state := "running"
			if b.FinishedAt != nil {
				state = "finished " + b.FinishedAt.Local().Format("2006-01-02 15:04:05")
			}
			fmt.Printf("    last build %s: %d written, %d warnings, %d unresolved (%s)\n",
				b.ID[:8], b.Written, b.Warnings, b.Unresolved, state)
		}
	}
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background daemon",
	Run:   runStop,
}

func runStop(cmd *cobra.Command, args []string) {
	client := daemon.NewClient(config.SocketPath())
	if !client.IsAvailable() {
		fmt.Println("daemon is not running")
		return
	}

	// Connection reset is expected; the daemon exits after responding.
	client.Shutdown(context.Background())
	fmt.Println("daemon stopped")
}
