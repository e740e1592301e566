package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/jj1bdx/erldoc/internal/rpc"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <role> <target>",
	Short: "Resolve a cross-reference",
	Long: `Resolve a reference the way {erl:<role>}` + "`<target>`" + ` is resolved in a page.
Roles: callback, func, macro, record, type, mod.`,
	Example: `  erldoc resolve func lists:map/2
  erldoc resolve func 'map(Fun, List)' --module lists
  erldoc resolve type 'maps:iterator()'
  erldoc resolve mod gen_server`,
	Args: cobra.ExactArgs(2),
	Run:  runResolve,
}

var (
	resolveModule string
	resolveDir    string
	resolveJSON   bool
)

func init() {
	resolveCmd.Flags().StringVar(&resolveModule, "module", "", "module the reference is written in")
	resolveCmd.Flags().StringVar(&resolveDir, "dir", "", "documentation tree (default: source.dir)")
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) {
	client, err := connectDaemon()
	if err != nil {
		log.Fatalf("failed to connect to daemon: %v", err)
	}

	resp, err := client.Resolve(context.Background(), rpc.ResolveRequest{
		SourceDir: sourceDir(optionalArg(resolveDir)),
		Role:      args[0],
		Target:    args[1],
		Module:    resolveModule,
	})
	if err != nil {
		log.Fatalf("resolve failed: %v", err)
	}

	if resolveJSON {
		out, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(out))
		return
	}
	if !resp.Found {
		fmt.Printf("unresolved: {erl:%s}`%s`\n", args[0], args[1])
		os.Exit(1)
	}
	where := "local"
	if resp.External {
		where = "external"
	}
	fmt.Printf("%s (%s)\n  %s\n", resp.Title, where, resp.URI)
	if resp.FullQualifiedName != "" {
		fmt.Printf("  full name: %s\n", resp.FullQualifiedName)
	}
}

// optionalArg turns a flag value into the args form sourceDir takes.
func optionalArg(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}
