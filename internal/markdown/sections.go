package markdown

import (
	"strings"

	"github.com/gomarkdown/markdown/ast"
)

// Section is a heading-delimited part of a page.
type Section struct {
	Heading string
	Text    string
	Index   int
}

// Sections splits src on its top-level headings. Content before the first
// heading becomes a section with an empty Heading.
func Sections(src string) []Section {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil
	}

	doc := parse(src)
	var (
		offsets  []int
		headings []string
	)
	for _, child := range doc.GetChildren() {
		h, ok := child.(*ast.Heading)
		if !ok {
			continue
		}
		if off := findHeadingOffset(src, h, offsets); off >= 0 {
			offsets = append(offsets, off)
			headings = append(headings, extractNodeText(h))
		}
	}

	var sections []Section
	add := func(heading, text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		sections = append(sections, Section{Heading: heading, Text: text, Index: len(sections)})
	}

	if len(offsets) == 0 {
		add("", src)
		return sections
	}
	add("", src[:offsets[0]])
	for i, off := range offsets {
		end := len(src)
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		add(headings[i], src[off:end])
	}
	return sections
}

// Summary returns the text of the first paragraph of src that has any, or "".
// Inline HTML such as anchors does not count as text.
func Summary(src string) string {
	for _, child := range parse(src).GetChildren() {
		if p, ok := child.(*ast.Paragraph); ok {
			if text := extractNodeText(p); text != "" {
				return text
			}
		}
	}
	return ""
}

// findHeadingOffset finds the byte offset of heading in src, past the
// offsets already found.
func findHeadingOffset(src string, heading *ast.Heading, found []int) int {
	prefix := strings.Repeat("#", heading.Level) + " "
	from := 0
	if len(found) > 0 {
		from = found[len(found)-1] + 1
	}
	for i := from; i < len(src); i++ {
		if i > 0 && src[i-1] != '\n' {
			continue
		}
		if strings.HasPrefix(src[i:], prefix) {
			return i
		}
	}
	return -1
}

func extractNodeText(node ast.Node) string {
	var b strings.Builder
	ast.WalkFunc(node, func(n ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		if _, ok := n.(*ast.HTMLSpan); ok {
			return ast.GoToNext
		}
		if leaf := n.AsLeaf(); leaf != nil && leaf.Literal != nil {
			b.Write(leaf.Literal)
		}
		return ast.GoToNext
	})
	return strings.TrimSpace(b.String())
}
