package markdown

import (
	"fmt"
	"regexp"
	"strings"

	gm "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	gmparser "github.com/gomarkdown/markdown/parser"
	"gopkg.in/yaml.v3"
)

func parse(src string) ast.Node {
	return gm.Parse([]byte(src), gmparser.NewWithExtensions(gmparser.CommonExtensions))
}

// Role is an inline role reference: {domain:name}`content`.
type Role struct {
	Domain  string
	Name    string
	Content string
	// Raw is the role exactly as written in the source.
	Raw string
}

var roleMarkerRe = regexp.MustCompile(`\{([a-z]+):([a-z]+)\}$`)

// FindRoles lists the roles in src in document order, skipping repeats.
// A role is a code span directly preceded by a {domain:name} marker. Code
// blocks are not searched.
func FindRoles(src string) []Role {
	doc := parse(src)

	seen := make(map[string]bool)
	var roles []Role
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		code, ok := node.(*ast.Code)
		if !ok {
			return ast.GoToNext
		}
		text, ok := prevSibling(code).(*ast.Text)
		if !ok {
			return ast.GoToNext
		}
		m := roleMarkerRe.FindStringSubmatch(string(text.Literal))
		if m == nil {
			return ast.GoToNext
		}
		content := string(code.Literal)
		raw, ok := locateRole(src, m[0], content)
		if !ok || seen[raw] {
			return ast.GoToNext
		}
		seen[raw] = true
		roles = append(roles, Role{Domain: m[1], Name: m[2], Content: content, Raw: raw})
		return ast.GoToNext
	})
	return roles
}

func prevSibling(n ast.Node) ast.Node {
	parent := n.GetParent()
	if parent == nil {
		return nil
	}
	children := parent.GetChildren()
	for i, c := range children {
		if c == n && i > 0 {
			return children[i-1]
		}
	}
	return nil
}

// locateRole finds how a role was written: the code span delimiter depends
// on whether the content contains backticks.
func locateRole(src, marker, content string) (string, bool) {
	for _, fence := range []string{"`", "``", "```"} {
		for _, pad := range []string{"", " "} {
			raw := marker + fence + pad + content + pad + fence
			if strings.Contains(src, raw) {
				return raw, true
			}
		}
	}
	return "", false
}

// RewriteRoles replaces each role found in src with the text returned by
// replace. Roles for which replace reports false are left alone. Roles are
// found on the AST, then replaced textually to preserve formatting.
func RewriteRoles(src string, replace func(Role) (string, bool)) string {
	roles := FindRoles(src)
	if len(roles) == 0 {
		return src
	}

	pairs := make([]string, 0, 2*len(roles))
	for _, r := range roles {
		if out, ok := replace(r); ok {
			pairs = append(pairs, r.Raw, out)
		}
	}
	if len(pairs) == 0 {
		return src
	}
	return strings.NewReplacer(pairs...).Replace(src)
}

// AddFrontMatter prepends a YAML front-matter block built from fields.
func AddFrontMatter(src string, fields map[string]any) (string, error) {
	if len(fields) == 0 {
		return src, nil
	}
	out, err := yaml.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encoding front matter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(out)
	b.WriteString("---\n\n")
	b.WriteString(src)
	return b.String(), nil
}
