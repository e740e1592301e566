package docs

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/jj1bdx/erldoc/internal/domain"
	"github.com/jj1bdx/erldoc/internal/markdown"
	"github.com/jj1bdx/erldoc/internal/registry"
	"github.com/jj1bdx/erldoc/internal/signature"
)

// Unresolved is a reference that matched no registered object.
type Unresolved struct {
	Doc    string `json:"doc"`
	Line   int    `json:"line"`
	Role   string `json:"role"`
	Target string `json:"target"`
}

func (u Unresolved) String() string {
	return fmt.Sprintf("%s:%d: unresolved reference {erl:%s}`%s`", u.Doc, u.Line, u.Role, u.Target)
}

// Rendered is the Markdown output for one page.
type Rendered struct {
	Name       string
	Content    string
	Body       string // Content without front matter
	Links      int
	External   int
	Unresolved []Unresolved
}

// ExternalResolver resolves references the local registry does not know,
// typically against the inventories of other projects.
type ExternalResolver interface {
	ResolveExternal(link domain.Link) (href, title string, ok bool)
}

// Render writes page as Markdown: directives become anchored signature
// headings and roles become links. Every page of the build must have been
// collected first so that references across pages resolve. ext may be nil.
func Render(d *domain.Domain, page *Page, ext ExternalResolver) (*Rendered, error) {
	r := &renderer{domain: d, page: page, ext: ext, out: &Rendered{Name: page.Doc.Name}}
	var b strings.Builder
	r.blocks(&b, page.Blocks, 0)

	fields := map[string]any{"source": page.Doc.Name + ".md"}
	if page.Doc.FrontMatter.Title != "" {
		fields["title"] = page.Doc.FrontMatter.Title
	}
	if page.Doc.FrontMatter.Orphan {
		fields["orphan"] = true
	}
	body := strings.TrimRight(b.String(), "\n") + "\n"
	content, err := markdown.AddFrontMatter(body, fields)
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", page.Doc.Name, err)
	}
	r.out.Content = content
	r.out.Body = body
	return r.out, nil
}

type renderer struct {
	domain *domain.Domain
	page   *Page
	ext    ExternalResolver
	out    *Rendered
}

func (r *renderer) blocks(b *strings.Builder, blocks []Block, depth int) {
	for _, blk := range blocks {
		switch blk.Kind {
		case BlockText:
			b.WriteString(r.text(blk))
			b.WriteString("\n\n")
		case BlockModule:
			r.module(b, blk)
			r.blocks(b, blk.Body, depth)
		case BlockObject:
			r.object(b, blk, depth)
			r.blocks(b, blk.Body, depth+1)
		}
	}
}

func (r *renderer) module(b *strings.Builder, blk Block) {
	if blk.ModuleDecl != nil && blk.ModuleDecl.Indexed {
		fmt.Fprintf(b, "<a id=\"%s\"></a>\n\n", blk.ModuleDecl.Anchor)
	}
	if blk.Deprecated {
		b.WriteString("> **Deprecated.**\n\n")
	}
}

func (r *renderer) object(b *strings.Builder, blk Block, depth int) {
	level := strings.Repeat("#", min(3+depth, 6))
	for _, s := range blk.Signatures {
		if s.Object == nil {
			fmt.Fprintf(b, "%s %s\n\n", level, codeSpan(s.Text))
			continue
		}
		for _, id := range s.Object.Anchors {
			fmt.Fprintf(b, "<a id=\"%s\"></a>\n", id)
		}
		fmt.Fprintf(b, "%s %s\n\n", level, codeSpan(SignatureText(s.Object)))
	}
	if blk.Deprecated {
		b.WriteString("*Deprecated.*\n\n")
	}
}

// SignatureText renders a declaration the way it reads in Erlang source,
// e.g. "-type m:t(A) -> x" or "lists:map(Fun, List1[, Opts]) -> List2".
func SignatureText(obj *domain.Object) string {
	sig := obj.Signature
	var b strings.Builder
	if obj.Directive != string(signature.Function) && obj.Directive != domain.DirectiveClause {
		fmt.Fprintf(&b, "-%s ", obj.Directive)
	}
	b.WriteString(sig.Module)
	b.WriteString(":")
	if sig.ArgText != nil {
		b.WriteString(sig.Namespace.Sigil() + sig.Name)
		b.WriteString(paramList(sig.Args))
	} else {
		b.WriteString(sig.DescName())
	}
	if sig.ExplicitFlavor {
		b.WriteString(" @" + sig.Flavor)
	}
	if sig.Guard != "" {
		b.WriteString(" when " + sig.Guard)
	}
	if sig.ReturnAnnotation != "" {
		b.WriteString(" -> " + sig.ReturnAnnotation)
	}
	return b.String()
}

// paramList renders arguments with each optional one opening a bracket
// group: "(A[, B[, C]])". Open groups close before the next mandatory
// argument: "(A[, B], C)".
func paramList(args []signature.Arg) string {
	var b strings.Builder
	b.WriteString("(")
	open := 0
	for i, a := range args {
		if a.Kind == signature.Mandatory && open > 0 {
			b.WriteString(strings.Repeat("]", open))
			open = 0
		}
		if a.Kind == signature.Optional {
			b.WriteString("[")
			open++
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.Text)
	}
	b.WriteString(strings.Repeat("]", open))
	b.WriteString(")")
	return b.String()
}

var explicitTitleRe = regexp.MustCompile(`(?s)^(.+?)\s*<(.*?)>$`)

// SplitTitle separates an explicit title from a role's content:
// "the map <lists:map/2>" gives ("the map", "lists:map/2", true).
func SplitTitle(content string) (title, target string, explicit bool) {
	if m := explicitTitleRe.FindStringSubmatch(content); m != nil {
		return m[1], m[2], true
	}
	return content, content, false
}

func (r *renderer) text(blk Block) string {
	ctx := domain.NewContext(r.page.Doc.Name, blk.CurrentModule)
	return markdown.RewriteRoles(blk.Text, func(role markdown.Role) (string, bool) {
		if role.Domain+":" != DirectivePrefix || !domain.IsRole(role.Name) {
			return "", false
		}
		title, target, explicit := SplitTitle(role.Content)
		link := r.domain.ProcessLink(ctx, role.Name, title, target, explicit)
		t, ok := r.domain.ResolveXref(link)
		if !ok && r.ext != nil {
			if href, title, ok := r.ext.ResolveExternal(link); ok {
				r.out.External++
				return fmt.Sprintf("[%s](%s %q)", codeSpan(link.Title), href, title), true
			}
		}
		if !ok {
			r.out.Unresolved = append(r.out.Unresolved, Unresolved{
				Doc:    r.page.Doc.Name,
				Line:   blk.Line,
				Role:   role.Name,
				Target: link.Target,
			})
			return codeSpan(link.Title), true
		}
		r.out.Links++
		return fmt.Sprintf("[%s](%s %q)", codeSpan(link.Title), Href(r.page.Doc.Name, t), t.Title), true
	})
}

// Href is the link from page from to a resolved target.
func Href(from string, t registry.Target) string {
	frag := (&url.URL{Fragment: t.RefName}).EscapedFragment()
	if t.DocName == from {
		return "#" + frag
	}
	return relPath(from, t.DocName) + ".md#" + frag
}

// relPath returns the slash path of doc relative to the directory of from.
func relPath(from, doc string) string {
	fromDir := strings.Split(path.Dir(from), "/")
	if fromDir[0] == "." {
		fromDir = nil
	}
	parts := strings.Split(doc, "/")
	i := 0
	for i < len(fromDir) && i < len(parts)-1 && fromDir[i] == parts[i] {
		i++
	}
	up := strings.Repeat("../", len(fromDir)-i)
	return up + strings.Join(parts[i:], "/")
}

func codeSpan(s string) string {
	if !strings.Contains(s, "`") {
		return "`" + s + "`"
	}
	return "`` " + s + " ``"
}
