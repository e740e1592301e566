package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/jj1bdx/erldoc/internal/rpc"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search documented objects by name",
	Example: `  erldoc search map
  erldoc search lists:seq --limit 5
  erldoc search --sections "supervision tree"`,
	Args: cobra.ExactArgs(1),
	Run:  runSearch,
}

var (
	searchLimit    int
	searchSections bool
	searchDir      string
	searchJSON     bool
)

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "max results")
	searchCmd.Flags().BoolVar(&searchSections, "sections", false, "also search page headings and text")
	searchCmd.Flags().StringVar(&searchDir, "dir", "", "documentation tree (default: source.dir)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	client, err := connectDaemon()
	if err != nil {
		log.Fatalf("failed to connect to daemon: %v", err)
	}

	resp, err := client.Search(context.Background(), rpc.SearchRequest{
		SourceDir: sourceDir(optionalArg(searchDir)),
		Query:     args[0],
		Limit:     searchLimit,
		Sections:  searchSections,
	})
	if err != nil {
		log.Fatalf("search failed: %v", err)
	}

	if searchJSON {
		out, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(out))
		return
	}
	if len(resp.Objects) == 0 && len(resp.Sections) == 0 {
		fmt.Println("no results")
		return
	}

	for i, o := range resp.Objects {
		fmt.Printf("%d. %s (%s)\n   %s\n", i+1, o.Name, o.Type, o.URI)
	}
	if len(resp.Sections) > 0 {
		fmt.Println("\nsections:")
		for _, s := range resp.Sections {
			fmt.Printf("  %s: %s\n", s.Doc, s.Heading)
			if s.Snippet != "" {
				fmt.Printf("    %s\n", s.Snippet)
			}
		}
	}
}
