// Package build turns a tree of Markdown sources into rendered pages, the
// module index and an objects.inv inventory, recording what it did in the
// environment store.
package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jj1bdx/erldoc/internal/cas"
	"github.com/jj1bdx/erldoc/internal/config"
	"github.com/jj1bdx/erldoc/internal/db"
	"github.com/jj1bdx/erldoc/internal/docs"
	"github.com/jj1bdx/erldoc/internal/domain"
	"github.com/jj1bdx/erldoc/internal/inventory"
	"github.com/jj1bdx/erldoc/internal/markdown"
	"github.com/jj1bdx/erldoc/internal/registry"
)

// InventoryFile is the name of the generated inventory in the output dir.
const InventoryFile = "objects.inv"

// Builder builds one source tree.
type Builder struct {
	SourceDir      string
	OutputDir      string
	Project        string
	Version        string
	DefaultModule  string
	CommonPrefixes []string
	Include        []string
	Exclude        []string

	DB       *db.DB
	CAS      *cas.Store
	External docs.ExternalResolver
}

// New configures a builder for sourceDir. A relative output dir is taken
// relative to sourceDir. ext may be nil.
func New(cfg *config.Config, sourceDir string, database *db.DB, store *cas.Store, ext docs.ExternalResolver) *Builder {
	out := cfg.Output.Dir
	if !filepath.IsAbs(out) {
		out = filepath.Join(sourceDir, out)
	}
	return &Builder{
		SourceDir:      sourceDir,
		OutputDir:      out,
		Project:        cfg.Project.Name,
		Version:        cfg.Project.Version,
		DefaultModule:  cfg.Erlang.DefaultModule,
		CommonPrefixes: cfg.Erlang.ModIndexCommonPrefix,
		Include:        cfg.Source.Include,
		Exclude:        cfg.Source.Exclude,
		DB:             database,
		CAS:            store,
		External:       ext,
	}
}

type Options struct {
	// Force rewrites every page even when its output is unchanged.
	Force    bool
	Progress func(string)
}

// Result summarizes a build.
type Result struct {
	BuildID     string              `json:"build_id"`
	Documents   int                 `json:"documents"`
	Written     int                 `json:"written"`
	Unchanged   int                 `json:"unchanged"`
	Removed     int                 `json:"removed"`
	Objects     int                 `json:"objects"`
	Links       int                 `json:"links"`
	External    int                 `json:"external"`
	Diagnostics []domain.Diagnostic `json:"diagnostics,omitempty"`
	Unresolved  []docs.Unresolved   `json:"unresolved,omitempty"`
	Duration    time.Duration       `json:"duration"`

	// Domain holds the registry of the build for reference lookups.
	Domain *domain.Domain `json:"-"`
	// ModuleIndex is the rendered module index page.
	ModuleIndex string `json:"-"`
}

// Build runs a full build. Every source is parsed and registered so that
// references resolve across pages; pages whose rendered output did not
// change since the last build are not rewritten.
func (b *Builder) Build(ctx context.Context, opts Options) (*Result, error) {
	progress := opts.Progress
	if progress == nil {
		progress = func(string) {}
	}
	start := time.Now()
	res := &Result{BuildID: uuid.NewString()}
	if err := b.DB.BeginBuild(ctx, res.BuildID, b.SourceDir, start); err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(b.SourceDir, b.OutputDir)
	if err != nil {
		rel = ""
	}
	files, err := Discover(b.SourceDir, b.Include, b.Exclude, []string{rel})
	if err != nil {
		return nil, fmt.Errorf("discovering documents: %w", err)
	}
	res.Documents = len(files)
	progress(fmt.Sprintf("discovered %d documents in %s", len(files), b.SourceDir))

	parsed, err := b.parseAll(ctx, files)
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	d := domain.New(reg, b.DefaultModule)
	res.Domain = d
	pages := make([]*docs.Page, len(parsed))
	for i, doc := range parsed {
		pages[i] = docs.Collect(d, doc)
		for _, diag := range pages[i].Diagnostics {
			diag.Log(slog.Default())
			res.Diagnostics = append(res.Diagnostics, diag)
		}
	}
	progress(fmt.Sprintf("registered %d objects and %d modules", reg.Len(), len(reg.Modules())))

	stored, err := b.DB.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	previous := make(map[string]db.Document, len(stored))
	for _, doc := range stored {
		previous[doc.Name] = doc
	}

	names := make([]string, 0, len(pages))
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		names = append(names, page.Doc.Name)
		prev, seen := previous[page.Doc.Name]
		delete(previous, page.Doc.Name)
		var prevPtr *db.Document
		if seen {
			prevPtr = &prev
		}
		if err := b.writePage(ctx, d, page, prevPtr, opts.Force, res); err != nil {
			return nil, err
		}
	}

	for name := range previous {
		if err := os.Remove(b.OutputPath(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("removing stale page failed", "doc", name, "error", err)
		}
		if err := b.DB.DeleteDocument(ctx, name); err != nil {
			return nil, err
		}
		res.Removed++
		progress("removed " + name)
	}

	objs := reg.Objects()
	res.Objects = len(objs)
	if err := b.DB.ReplaceObjects(ctx, storeObjects(objs)); err != nil {
		return nil, err
	}
	groups, collapse := reg.ModuleIndex(names, b.CommonPrefixes)
	res.ModuleIndex = docs.RenderModuleIndex(groups, collapse)
	if err := writeFile(b.OutputPath(docs.ModuleIndexName), []byte(res.ModuleIndex)); err != nil {
		return nil, err
	}
	if err := b.writeInventory(objs); err != nil {
		return nil, err
	}

	res.Duration = time.Since(start)
	finished := time.Now()
	if err := b.DB.FinishBuild(ctx, db.Build{
		ID:         res.BuildID,
		FinishedAt: &finished,
		Documents:  res.Documents,
		Written:    res.Written,
		Warnings:   len(res.Diagnostics),
		Unresolved: len(res.Unresolved),
	}); err != nil {
		return nil, err
	}
	progress(fmt.Sprintf("wrote %d pages (%d unchanged, %d removed), %d warnings, %d unresolved references in %s",
		res.Written, res.Unchanged, res.Removed, len(res.Diagnostics), len(res.Unresolved), res.Duration.Round(time.Millisecond)))
	return res, nil
}

// parseAll reads and parses every file concurrently; the result keeps the
// order of files.
func (b *Builder) parseAll(ctx context.Context, files []string) ([]*docs.Document, error) {
	out := make([]*docs.Document, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, rel := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(filepath.Join(b.SourceDir, filepath.FromSlash(rel)))
			if err != nil {
				return fmt.Errorf("reading %s: %w", rel, err)
			}
			doc, err := docs.Parse(DocName(rel), src)
			if err != nil {
				return err
			}
			out[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Builder) writePage(ctx context.Context, d *domain.Domain, page *docs.Page, prev *db.Document, force bool, res *Result) error {
	name := page.Doc.Name
	out, err := docs.Render(d, page, b.External)
	if err != nil {
		return err
	}
	res.Links += out.Links
	res.External += out.External
	for _, u := range out.Unresolved {
		slog.Warn("unresolved reference", "doc", u.Doc, "line", u.Line, "role", u.Role, "target", u.Target)
		res.Unresolved = append(res.Unresolved, u)
	}

	hash := cas.Hash(out.Content)
	path := b.OutputPath(name)
	unchanged := !force && prev != nil && prev.OutputHash == hash && b.CAS.Has(hash) && fileExists(path)
	if unchanged {
		res.Unchanged++
	} else {
		if _, err := b.CAS.Write(out.Content); err != nil {
			return err
		}
		if err := writeFile(path, []byte(out.Content)); err != nil {
			return err
		}
		res.Written++
	}

	sections := markdown.Sections(out.Body)
	title := page.Doc.FrontMatter.Title
	if title == "" && len(sections) > 0 {
		title = sections[0].Heading
		if title == "" && len(sections) > 1 {
			title = sections[1].Heading
		}
	}
	if err := b.DB.UpsertDocument(ctx, db.Document{
		Name:       name,
		SourceHash: page.Doc.Hash,
		OutputHash: hash,
		Title:      title,
		BuildID:    res.BuildID,
		UpdatedAt:  time.Now(),
	}); err != nil {
		return err
	}

	rows := make([]db.Section, len(sections))
	for i, s := range sections {
		rows[i] = db.Section{DocName: name, Index: s.Index, Heading: s.Heading, Body: s.Text}
	}
	if err := b.DB.ReplaceSections(ctx, name, rows); err != nil {
		return err
	}

	diags := make([]db.Diagnostic, 0, len(page.Diagnostics)+len(out.Unresolved))
	for _, dg := range page.Diagnostics {
		diags = append(diags, db.Diagnostic{DocName: name, Line: dg.Line, Severity: dg.Severity.String(), Message: dg.Err.Error()})
	}
	for _, u := range out.Unresolved {
		diags = append(diags, db.Diagnostic{DocName: name, Line: u.Line, Severity: domain.SeverityWarning.String(), Message: u.String()})
	}
	return b.DB.ReplaceDiagnostics(ctx, name, diags)
}

func (b *Builder) writeInventory(objs []registry.Object) error {
	var buf bytes.Buffer
	if err := inventory.Write(&buf, inventory.FromObjects(b.Project, b.Version, objs, ".md")); err != nil {
		return err
	}
	return writeFile(filepath.Join(b.OutputDir, InventoryFile), buf.Bytes())
}

// OutputPath is where the rendered page of a document is written.
func (b *Builder) OutputPath(name string) string {
	return filepath.Join(b.OutputDir, filepath.FromSlash(name)+".md")
}

func storeObjects(objs []registry.Object) []db.Object {
	out := make([]db.Object, len(objs))
	for i, o := range objs {
		out[i] = db.Object{
			Name:        o.Name,
			DisplayName: o.DisplayName,
			Type:        string(o.Type),
			DocName:     o.DocName,
			Anchor:      o.RefName,
			Priority:    o.Priority,
		}
	}
	return out
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
