package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jj1bdx/erldoc/internal/build"
	"github.com/jj1bdx/erldoc/internal/config"
	"github.com/jj1bdx/erldoc/internal/inventory"
)

var inventoryCmd = &cobra.Command{
	Use:   "inventory [file|url]",
	Short: "Inspect an objects.inv inventory",
	Long: `Read an objects.inv file, by default the one written by the last build, and
summarize or dump its Erlang entries. A URL or the inventory of another
project can be given to check what its intersphinx links will resolve to.`,
	Example: `  erldoc inventory
  erldoc inventory --dump --type function
  erldoc inventory https://example.org/otp/objects.inv`,
	Args: cobra.MaximumNArgs(1),
	Run:  runInventory,
}

var (
	inventoryDump bool
	inventoryType string
	inventoryJSON bool
)

func init() {
	inventoryCmd.Flags().BoolVar(&inventoryDump, "dump", false, "print every entry")
	inventoryCmd.Flags().StringVar(&inventoryType, "type", "", "only entries of this object type")
	inventoryCmd.Flags().BoolVar(&inventoryJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(inventoryCmd)
}

func runInventory(cmd *cobra.Command, args []string) {
	location := ""
	if len(args) > 0 {
		location = args[0]
	} else {
		dir := sourceDir(nil)
		cfg, err := config.LoadFrom(dir)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		out := cfg.Output.Dir
		if !filepath.IsAbs(out) {
			out = filepath.Join(dir, out)
		}
		location = filepath.Join(out, build.InventoryFile)
	}

	inv, err := inventory.Fetch(context.Background(), location)
	if err != nil {
		log.Fatalf("reading inventory: %v", err)
	}
	entries := filterEntries(inv.Entries, inventoryType)

	if inventoryJSON {
		out, _ := json.MarshalIndent(inventory.Inventory{Project: inv.Project, Version: inv.Version, Entries: entries}, "", "  ")
		fmt.Println(string(out))
		return
	}

	fmt.Printf("%s %s: %d entries\n", inv.Project, inv.Version, len(entries))
	if inventoryDump {
		for _, e := range entries {
			fmt.Printf("  %s:%s %s -> %s\n", e.Domain, e.Type, e.Name, e.URI)
		}
		return
	}
	for _, c := range countByType(entries) {
		fmt.Printf("  %-10s %d\n", c.typ, c.n)
	}
}

func filterEntries(entries []inventory.Entry, typ string) []inventory.Entry {
	var out []inventory.Entry
	for _, e := range entries {
		if e.Domain != inventory.Domain {
			continue
		}
		if typ != "" && !strings.EqualFold(e.Type, typ) {
			continue
		}
		out = append(out, e)
	}
	return out
}

type typeCount struct {
	typ string
	n   int
}

func countByType(entries []inventory.Entry) []typeCount {
	counts := make(map[string]int)
	for _, e := range entries {
		counts[e.Type]++
	}
	out := make([]typeCount, 0, len(counts))
	for t, n := range counts {
		out = append(out, typeCount{t, n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].typ < out[j].typ })
	return out
}
