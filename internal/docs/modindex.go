package docs

import (
	"fmt"
	"strings"

	"github.com/jj1bdx/erldoc/internal/registry"
)

// ModuleIndexName is the document name of the generated module index.
const ModuleIndexName = "erl-modindex"

// RenderModuleIndex writes the module index page. Submodules are listed
// under their parent; collapse marks them as folded.
func RenderModuleIndex(groups []registry.IndexGroup, collapse bool) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "source: %s.md\ncollapse: %t\n", ModuleIndexName, collapse)
	b.WriteString("---\n\n# Erlang Module Index\n")

	for _, g := range groups {
		fmt.Fprintf(&b, "\n## %s\n\n", strings.ToUpper(g.Letter))
		for _, e := range g.Entries {
			indent := ""
			if e.Subtype == registry.IndexEntrySub {
				indent = "  "
			}
			b.WriteString(indent + "- " + indexLabel(e))
			if e.Platform != "" {
				fmt.Fprintf(&b, " *(%s)*", e.Platform)
			}
			if e.Qualifier != "" {
				fmt.Fprintf(&b, " **%s**", e.Qualifier)
			}
			if e.Synopsis != "" {
				b.WriteString(": " + e.Synopsis)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func indexLabel(e registry.IndexEntry) string {
	if e.DocName == "" {
		return codeSpan(e.Name)
	}
	t := registry.Target{DocName: e.DocName, RefName: e.Anchor}
	return fmt.Sprintf("[%s](%s)", codeSpan(e.Name), Href(ModuleIndexName, t))
}
