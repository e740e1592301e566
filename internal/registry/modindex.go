package registry

import (
	"sort"
	"strings"
)

// IndexSubtype tells how a module index row nests.
type IndexSubtype int

const (
	IndexEntryNormal IndexSubtype = iota
	IndexEntryGroup
	IndexEntrySub
)

// IndexEntry is one row of the module index.
type IndexEntry struct {
	Name      string       `json:"name"`
	Subtype   IndexSubtype `json:"subtype"`
	DocName   string       `json:"doc,omitempty"`
	Anchor    string       `json:"anchor,omitempty"`
	Platform  string       `json:"platform,omitempty"`
	Qualifier string       `json:"qualifier,omitempty"`
	Synopsis  string       `json:"synopsis,omitempty"`
}

// IndexGroup holds the rows filed under one initial letter.
type IndexGroup struct {
	Letter  string       `json:"letter"`
	Entries []IndexEntry `json:"entries"`
}

// ModuleIndex builds the module index. When docNames is non-empty only
// modules declared in those documents are listed. The longest matching
// prefix in commonPrefixes is ignored when filing a module under a letter.
// Modules named "pkg:sub" nest under "pkg", which gets a placeholder row when
// it is not itself documented. collapse reports whether submodules should
// start folded: there are fewer of them than top-level modules.
func (r *Registry) ModuleIndex(docNames, commonPrefixes []string) (groups []IndexGroup, collapse bool) {
	prefixes := append([]string(nil), commonPrefixes...)
	sort.SliceStable(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })

	var wanted map[string]bool
	if len(docNames) > 0 {
		wanted = make(map[string]bool, len(docNames))
		for _, d := range docNames {
			wanted[d] = true
		}
	}

	modules := r.Modules()
	sort.SliceStable(modules, func(i, j int) bool {
		return strings.ToLower(modules[i].Name) < strings.ToLower(modules[j].Name)
	})

	content := make(map[string][]IndexEntry)
	prev := ""
	topLevels := 0
	for _, m := range modules {
		if wanted != nil && !wanted[m.DocName] {
			continue
		}

		name, stripped := m.Name, ""
		for _, p := range prefixes {
			if strings.HasPrefix(name, p) {
				name, stripped = name[len(p):], p
				break
			}
		}
		if name == "" {
			name, stripped = stripped, ""
		}

		letter := strings.ToLower(name[:1])
		entries := content[letter]

		subtype := IndexEntryNormal
		pkg, _, _ := strings.Cut(name, ":")
		if pkg != name {
			switch {
			case prev == pkg && len(entries) > 0:
				entries[len(entries)-1].Subtype = IndexEntryGroup
			case !strings.HasPrefix(prev, pkg):
				entries = append(entries, IndexEntry{Name: stripped + pkg, Subtype: IndexEntryGroup})
			}
			subtype = IndexEntrySub
		} else {
			topLevels++
		}

		qualifier := ""
		if m.Deprecated {
			qualifier = "Deprecated"
		}
		entries = append(entries, IndexEntry{
			Name:      stripped + name,
			Subtype:   subtype,
			DocName:   m.DocName,
			Anchor:    ModuleAnchor(stripped + name),
			Platform:  m.Platform,
			Qualifier: qualifier,
			Synopsis:  m.Synopsis,
		})
		content[letter] = entries
		prev = name
	}

	collapse = len(modules)-topLevels < topLevels

	letters := make([]string, 0, len(content))
	for l := range content {
		letters = append(letters, l)
	}
	sort.Strings(letters)
	for _, l := range letters {
		groups = append(groups, IndexGroup{Letter: l, Entries: content[l]})
	}
	return groups, collapse
}
