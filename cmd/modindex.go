package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/jj1bdx/erldoc/internal/rpc"
)

var modindexCmd = &cobra.Command{
	Use:   "modindex [dir]",
	Short: "Print the Erlang module index",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := connectDaemon()
		if err != nil {
			log.Fatalf("failed to connect to daemon: %v", err)
		}
		resp, err := client.ModIndex(context.Background(), rpc.ModIndexRequest{SourceDir: sourceDir(args)})
		if err != nil {
			log.Fatalf("modindex failed: %v", err)
		}
		fmt.Print(resp.Markdown)
	},
}

func init() {
	rootCmd.AddCommand(modindexCmd)
}
