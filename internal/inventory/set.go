package inventory

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jj1bdx/erldoc/internal/config"
	"github.com/jj1bdx/erldoc/internal/domain"
	"github.com/jj1bdx/erldoc/internal/signature"
)

// typesByRole lists the inventory object types a role may link to.
var typesByRole = map[string][]string{
	"callback": {string(signature.Callback)},
	"func":     {string(signature.Function)},
	"macro":    {string(signature.Macro)},
	"record":   {string(signature.Record)},
	"type":     {string(signature.Type), string(signature.Opaque)},
	"mod":      {string(signature.Module)},
}

// Project is one external project whose objects can be linked to.
type Project struct {
	Name      string
	BaseURL   string
	Inventory *Inventory

	byName map[string]map[string]Entry
	// lowest arity per type and "module:name", for arity-less references
	byBase map[string]map[string]Entry
}

var arityNameRe = regexp.MustCompile(`^(.+)/(\d+)$`)

// NewProject indexes inv for lookup. baseURL prefixes every entry URI.
func NewProject(name, baseURL string, inv *Inventory) *Project {
	p := &Project{
		Name:      name,
		BaseURL:   baseURL,
		Inventory: inv,
		byName:    make(map[string]map[string]Entry),
		byBase:    make(map[string]map[string]Entry),
	}
	arities := make(map[string]map[string]int)
	for _, e := range inv.Entries {
		if e.Domain != Domain {
			continue
		}
		if p.byName[e.Type] == nil {
			p.byName[e.Type] = make(map[string]Entry)
			p.byBase[e.Type] = make(map[string]Entry)
			arities[e.Type] = make(map[string]int)
		}
		if _, dup := p.byName[e.Type][e.Name]; !dup {
			p.byName[e.Type][e.Name] = e
		}
		m := arityNameRe.FindStringSubmatch(e.Name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		if prev, ok := arities[e.Type][m[1]]; !ok || n < prev {
			arities[e.Type][m[1]] = n
			p.byBase[e.Type][m[1]] = e
		}
	}
	return p
}

func (p *Project) lookup(typ, name string, arityless bool) (Entry, bool) {
	if e, ok := p.byName[typ][name]; ok {
		return e, true
	}
	if arityless {
		e, ok := p.byBase[typ][name]
		return e, ok
	}
	return Entry{}, false
}

func (p *Project) href(e Entry) string {
	return strings.TrimSuffix(p.BaseURL, "/") + "/" + e.URI
}

// Set resolves references against external projects, tried in name order.
type Set struct {
	DefaultModule string
	projects      []*Project
}

// NewSet builds a set from already loaded projects.
func NewSet(defaultModule string, projects ...*Project) *Set {
	s := &Set{DefaultModule: defaultModule, projects: projects}
	sort.Slice(s.projects, func(i, j int) bool { return s.projects[i].Name < s.projects[j].Name })
	return s
}

// Projects returns the loaded projects.
func (s *Set) Projects() []*Project {
	return s.projects
}

// Load fetches every configured inventory concurrently. A fetched inventory
// is cached under cacheDir; when fetching fails the cached copy is used,
// and a project with neither is skipped with a warning.
func Load(ctx context.Context, cfgs map[string]config.IntersphinxConfig, cacheDir, defaultModule string) *Set {
	names := make([]string, 0, len(cfgs))
	for name := range cfgs {
		names = append(names, name)
	}
	sort.Strings(names)

	loaded := make([]*Project, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, name := range names {
		cfg := cfgs[name]
		g.Go(func() error {
			inv, err := Fetch(ctx, cfg.InventoryURL())
			if err != nil {
				slog.Warn("fetching inventory failed, trying cache", "project", name, "error", err)
				inv, err = LoadCache(cacheDir, name)
				if err != nil {
					slog.Warn("no inventory available", "project", name, "error", err)
					return nil
				}
			} else if err := SaveCache(cacheDir, name, inv); err != nil {
				slog.Warn("caching inventory failed", "project", name, "error", err)
			}
			slog.Debug("inventory loaded", "project", name, "entries", len(inv.Entries))
			loaded[i] = NewProject(name, cfg.URL, inv)
			return nil
		})
	}
	_ = g.Wait()

	var projects []*Project
	for _, p := range loaded {
		if p != nil {
			projects = append(projects, p)
		}
	}
	return NewSet(defaultModule, projects...)
}

// ResolveExternal looks link up in every project and returns the absolute
// link and title of the first match.
func (s *Set) ResolveExternal(link domain.Link) (href, title string, ok bool) {
	types, known := typesByRole[link.Role]
	if !known || len(s.projects) == 0 {
		return "", "", false
	}

	name := link.Target
	arityless := false
	if link.Role != signature.Module.Role() {
		ns, _ := signature.NamespaceOfRole(link.Role)
		sig, err := signature.Parse(link.Target, ns)
		if err != nil {
			return "", "", false
		}
		if sig.Module == "" {
			sig.Module = link.Module
		}
		if sig.Module == "" {
			sig.Module = s.DefaultModule
		}
		name = sig.FullQualifiedName()
		arityless = sig.Arity == nil
	}

	for _, p := range s.projects {
		for _, typ := range types {
			if e, ok := p.lookup(typ, name, arityless); ok {
				return p.href(e), e.DisplayName, true
			}
		}
	}
	return "", "", false
}
