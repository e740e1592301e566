package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/jj1bdx/erldoc/internal/daemon"
	"github.com/jj1bdx/erldoc/internal/rpc"
)

var buildCmd = &cobra.Command{
	Use:   "build [dir]",
	Short: "Build the documentation tree",
	Long: `Parse every Markdown source, register the Erlang objects it declares,
resolve cross-references and write the rendered pages, the module index and
objects.inv to the output directory. Pages whose output did not change are
not rewritten unless --force is given.`,
	Example: `  erldoc build
  erldoc build docs --force
  erldoc build --strict`,
	Args: cobra.MaximumNArgs(1),
	Run:  runBuild,
}

var (
	buildForce  bool
	buildStrict bool
	buildQuiet  bool
)

func init() {
	buildCmd.Flags().BoolVar(&buildForce, "force", false, "rewrite every page")
	buildCmd.Flags().BoolVar(&buildStrict, "strict", false, "exit non-zero on warnings or unresolved references")
	buildCmd.Flags().BoolVarP(&buildQuiet, "quiet", "q", false, "do not print progress")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) {
	dir := sourceDir(args)

	client, err := connectDaemon()
	if err != nil {
		log.Fatalf("failed to connect to daemon: %v", err)
	}

	res, err := buildOnce(context.Background(), client, dir, buildForce, !buildQuiet)
	if err != nil {
		log.Fatalf("build failed: %v", err)
	}
	if buildStrict && len(res.Diagnostics) > 0 {
		os.Exit(2)
	}
}

// buildOnce builds dir and prints diagnostics and a summary.
func buildOnce(ctx context.Context, client *daemon.Client, dir string, force, verbose bool) (*rpc.BuildResult, error) {
	var onProgress func(string)
	if verbose {
		onProgress = func(msg string) { fmt.Printf("  %s\n", msg) }
	}
	res, err := client.Build(ctx, rpc.BuildRequest{SourceDir: dir, Force: force}, onProgress)
	if err != nil {
		return nil, err
	}
	printDiagnostics(res.Diagnostics)
	fmt.Printf("%d documents: %d written, %d unchanged, %d removed; %d objects, %d links (%d external) -> %s\n",
		res.Documents, res.Written, res.Unchanged, res.Removed, res.Objects, res.Links, res.External, res.OutputDir)
	return res, nil
}

func printDiagnostics(diags []rpc.DiagnosticInfo) {
	for _, d := range diags {
		if d.Target != "" {
			fmt.Fprintf(os.Stderr, "%s:%d: %s: unresolved reference {erl:%s}`%s`\n", d.Doc, d.Line, d.Severity, d.Role, d.Target)
			continue
		}
		fmt.Fprintf(os.Stderr, "%s:%d: %s: %s\n", d.Doc, d.Line, d.Severity, d.Message)
	}
}
