package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/jj1bdx/erldoc/internal/rpc"
	"github.com/jj1bdx/erldoc/internal/search"
)

var getCmd = &cobra.Command{
	Use:   "get <doc>[#anchor]",
	Short: "Print a rendered page, or the part of it documenting one object",
	Example: `  erldoc get ref/lists
  erldoc get 'ref/lists#erl.fn.lists:map/2'
  erldoc get erldoc://ref/lists#module-lists`,
	Args: cobra.ExactArgs(1),
	Run:  runGet,
}

var getDir string

func init() {
	getCmd.Flags().StringVar(&getDir, "dir", "", "documentation tree (default: source.dir)")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) {
	doc, anchor := search.ParseURI(args[0])

	client, err := connectDaemon()
	if err != nil {
		log.Fatalf("failed to connect to daemon: %v", err)
	}

	resp, err := client.GetDoc(context.Background(), rpc.GetDocRequest{
		SourceDir: sourceDir(optionalArg(getDir)),
		Doc:       doc,
		Anchor:    anchor,
	})
	if err != nil {
		log.Fatalf("get doc failed: %v", err)
	}

	fmt.Print(resp.Markdown)
}
