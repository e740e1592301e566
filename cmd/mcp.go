package cmd

import (
	_ "embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

//go:embed mcp_prelude.md
var mcpPrelude string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run as MCP server (publishes CLI instructions only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		name := binaryName()
		instructions := fmt.Sprintf(mcpPrelude, name) + agentHelp(name)

		s := server.NewMCPServer("erldoc", "0.1.0",
			server.WithInstructions(instructions),
		)
		return server.ServeStdio(s)
	},
}

// agentHelp lists the user-facing commands with their examples.
func agentHelp(name string) string {
	var b strings.Builder
	for _, c := range rootCmd.Commands() {
		if !c.IsAvailableCommand() || c.Name() == "mcp" || c.Name() == "daemon" {
			continue
		}
		fmt.Fprintf(&b, "\n## %s %s\n\n%s\n", name, c.Use, c.Short)
		if c.Example != "" {
			ex := strings.ReplaceAll(c.Example, "erldoc ", name+" ")
			fmt.Fprintf(&b, "\n```\n%s\n```\n", ex)
		}
	}
	return b.String()
}

// binaryName returns "erldoc" if it's in PATH and points to the current binary,
// otherwise returns the full path to the binary.
func binaryName() string {
	exe, err := os.Executable()
	if err != nil {
		return "erldoc"
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "erldoc"
	}

	path, err := exec.LookPath("erldoc")
	if err == nil {
		resolved, err := filepath.EvalSymlinks(path)
		if err == nil && resolved == exe {
			return "erldoc"
		}
	}

	return exe
}
