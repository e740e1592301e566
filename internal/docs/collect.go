package docs

import (
	"fmt"
	"slices"
	"sort"

	"github.com/jj1bdx/erldoc/internal/domain"
)

// BlockKind distinguishes the parts of a collected page.
type BlockKind int

const (
	BlockText BlockKind = iota
	BlockObject
	BlockModule
)

// SignatureLine is one signature of an object directive. Object is nil when
// the declaration was dropped.
type SignatureLine struct {
	Text   string
	Line   int
	Object *domain.Object
}

// Block is a collected segment, ready to render once every page has been
// collected.
type Block struct {
	Kind BlockKind
	Line int
	// CurrentModule is the module in effect where the block starts; roles in
	// Text resolve against it.
	CurrentModule string
	Text          string

	Directive  string
	Signatures []SignatureLine
	Deprecated bool

	ModuleDecl *domain.ModuleDecl
	Synopsis   string
	Platform   string

	Body []Block
}

// Page is a document after its declarations have been registered.
type Page struct {
	Doc         *Document
	Blocks      []Block
	Diagnostics []domain.Diagnostic
}

// Objects lists the declarations on the page in document order.
func (p *Page) Objects() []*domain.Object {
	var out []*domain.Object
	var walk func([]Block)
	walk = func(blocks []Block) {
		for _, b := range blocks {
			for _, s := range b.Signatures {
				if s.Object != nil {
					out = append(out, s.Object)
				}
			}
			walk(b.Body)
		}
	}
	walk(p.Blocks)
	return out
}

// UnknownOptionError reports a directive option that is not understood.
type UnknownOptionError struct {
	Directive string
	Option    string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("unknown option %q for Erlang %s directive", e.Option, e.Directive)
}

// ArgumentError reports a directive with the wrong number of arguments.
type ArgumentError struct {
	Directive string
	Got       int
	Want      string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("Erlang %s directive takes %s argument(s), got %d", e.Directive, e.Want, e.Got)
}

var directiveOptions = map[string][]string{
	domain.DirectiveModule:        {"synopsis", "platform", "deprecated", "noindex"},
	domain.DirectiveCurrentModule: nil,
}

var objectOptions = []string{"module", "flavor", "deprecated", "noindex"}

// Collect registers the declarations of doc with d and records what every
// block needs for rendering. Problems are collected on the page.
func Collect(d *domain.Domain, doc *Document) *Page {
	ctx := domain.NewContext(doc.Name, "")
	if doc.FrontMatter.Module != "" {
		d.SetCurrentModule(ctx, doc.FrontMatter.Module)
	}
	c := &collector{domain: d, ctx: ctx}
	blocks := c.segments(doc.Segments)
	sort.SliceStable(ctx.Diagnostics, func(i, j int) bool { return ctx.Diagnostics[i].Line < ctx.Diagnostics[j].Line })
	return &Page{Doc: doc, Blocks: blocks, Diagnostics: ctx.Diagnostics}
}

type collector struct {
	domain *domain.Domain
	ctx    *domain.Context
}

func (c *collector) segments(segs []Segment) []Block {
	var blocks []Block
	for _, seg := range segs {
		if seg.Kind == SegmentText {
			blocks = append(blocks, Block{Kind: BlockText, Line: seg.Line, CurrentModule: c.ctx.Module(), Text: seg.Text})
			continue
		}
		blocks = append(blocks, c.directive(seg.Directive)...)
	}
	return blocks
}

func (c *collector) directive(dir *Directive) []Block {
	switch dir.Name {
	case domain.DirectiveCurrentModule:
		c.checkOptions(dir, directiveOptions[dir.Name])
		if len(dir.Arguments) != 1 {
			c.ctx.Warn(dir.Line, &ArgumentError{Directive: dir.Name, Got: len(dir.Arguments), Want: "one"})
		}
		if len(dir.Arguments) > 0 {
			c.domain.SetCurrentModule(c.ctx, dir.Arguments[0].Text)
		}
		return c.segments(dir.Body)

	case domain.DirectiveModule:
		c.checkOptions(dir, directiveOptions[dir.Name])
		if len(dir.Arguments) != 1 {
			c.ctx.Warn(dir.Line, &ArgumentError{Directive: dir.Name, Got: len(dir.Arguments), Want: "one"})
			if len(dir.Arguments) == 0 {
				return c.segments(dir.Body)
			}
		}
		block := Block{
			Kind:          BlockModule,
			Line:          dir.Line,
			CurrentModule: c.ctx.Module(),
			Directive:     dir.Name,
			Synopsis:      dir.Options["synopsis"],
			Platform:      dir.Options["platform"],
			Deprecated:    dir.HasOption("deprecated"),
		}
		block.ModuleDecl = c.domain.DescribeModule(c.ctx, dir.Arguments[0].Text, dir.Line, domain.ModuleOptions{
			Synopsis:   block.Synopsis,
			Platform:   block.Platform,
			Deprecated: block.Deprecated,
			NoIndex:    dir.HasOption("noindex"),
		})
		block.Body = c.segments(dir.Body)
		return []Block{block}
	}

	c.checkOptions(dir, objectOptions)
	if len(dir.Arguments) == 0 {
		c.ctx.Warn(dir.Line, &ArgumentError{Directive: dir.Name, Got: 0, Want: "at least one"})
	}
	opts := domain.Options{
		Module:     dir.Options["module"],
		Flavor:     dir.Options["flavor"],
		Deprecated: dir.HasOption("deprecated"),
		NoIndex:    dir.HasOption("noindex"),
	}
	block := Block{
		Kind:          BlockObject,
		Line:          dir.Line,
		CurrentModule: c.ctx.Module(),
		Directive:     dir.Name,
		Deprecated:    opts.Deprecated,
	}

	var first *domain.Object
	for _, arg := range dir.Arguments {
		obj, _ := c.domain.DescribeObject(c.ctx, dir.Name, arg.Text, arg.Line, opts)
		block.Signatures = append(block.Signatures, SignatureLine{Text: arg.Text, Line: arg.Line, Object: obj})
		if first == nil {
			first = obj
		}
	}

	if first != nil {
		c.ctx.Enter(first.Signature)
		defer c.ctx.Leave()
	}
	block.Body = c.segments(dir.Body)
	return []Block{block}
}

func (c *collector) checkOptions(dir *Directive, known []string) {
	names := make([]string, 0, len(dir.Options))
	for name := range dir.Options {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if slices.Contains(known, name) {
			continue
		}
		c.ctx.Warn(dir.Line, &UnknownOptionError{Directive: dir.Name, Option: name})
	}
}
