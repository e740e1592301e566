package docs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	gm "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	gmparser "github.com/gomarkdown/markdown/parser"
	"gopkg.in/yaml.v3"
)

// DirectivePrefix starts the fence info string of every directive.
const DirectivePrefix = "erl:"

var (
	openFenceRe  = regexp.MustCompile("^ {0,3}(`{3,}|~{3,})[ \t]*(.*?)[ \t]*$")
	closeFenceRe = regexp.MustCompile("^ {0,3}(`{3,}|~{3,})[ \t]*$")
	optionRe     = regexp.MustCompile(`^:([\w-]+):(?:\s+(.*?))?\s*$`)
)

// Parse reads a source document: optional YAML front matter followed by
// Markdown in which fenced {erl:...} blocks are directives.
func Parse(name string, src []byte) (*Document, error) {
	sum := sha256.Sum256(src)
	doc := &Document{Name: name, Hash: hex.EncodeToString(sum[:])}

	text := strings.ReplaceAll(string(src), "\r\n", "\n")
	header, body, offset := splitFrontMatter(text)
	if header != "" {
		if err := yaml.Unmarshal([]byte(header), &doc.FrontMatter); err != nil {
			return nil, fmt.Errorf("parsing front matter of %s: %w", name, err)
		}
	}
	doc.Segments = parseSegments(body, offset)
	return doc, nil
}

// splitFrontMatter separates a leading "---" delimited header. offset is the
// number of lines before body.
func splitFrontMatter(src string) (header, body string, offset int) {
	if !strings.HasPrefix(src, "---\n") {
		return "", src, 0
	}
	lines := strings.SplitAfter(src, "\n")
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " \t\n") == "---" {
			return strings.Join(lines[1:i], ""), strings.Join(lines[i+1:], ""), i + 1
		}
	}
	return "", src, 0
}

// parseSegments splits Markdown into text runs and directives. Fenced blocks
// are found on the AST and then located in the source, so fences nested in
// other code blocks are never mistaken for directives. offset is the number
// of source lines before src.
func parseSegments(src string, offset int) []Segment {
	root := gm.Parse([]byte(src), gmparser.NewWithExtensions(gmparser.CommonExtensions))
	lines := strings.Split(src, "\n")

	var segments []Segment
	cursor, textStart := 0, 0
	flush := func(end int) {
		for textStart < end && strings.TrimSpace(lines[textStart]) == "" {
			textStart++
		}
		text := strings.Join(lines[textStart:end], "\n")
		if strings.TrimSpace(text) != "" {
			segments = append(segments, Segment{Kind: SegmentText, Text: text, Line: offset + textStart + 1})
		}
	}

	for _, child := range root.GetChildren() {
		cb, ok := child.(*ast.CodeBlock)
		if !ok || !cb.IsFenced {
			continue
		}
		info := fenceInfo(string(cb.Info))
		open, end, ok := locateFence(lines, cursor, info, string(cb.Literal))
		if !ok {
			continue
		}
		cursor = min(end+1, len(lines))
		if !strings.HasPrefix(info, DirectivePrefix) {
			continue
		}

		flush(open)
		dir := parseDirective(strings.TrimPrefix(info, DirectivePrefix), lines[open+1:end], offset+open+1)
		segments = append(segments, Segment{Kind: SegmentDirective, Line: dir.Line, Directive: dir})
		textStart = cursor
	}
	flush(len(lines))
	return segments
}

func fenceInfo(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	return strings.TrimSpace(s)
}

// locateFence finds the source lines of a fenced block with the given info
// string and content, searching from line from. end is the index of the
// closing fence, or len(lines) for a block left open.
func locateFence(lines []string, from int, info, literal string) (open, end int, ok bool) {
	want := strings.Fields(literal)
	for i := from; i < len(lines); i++ {
		m := openFenceRe.FindStringSubmatch(lines[i])
		if m == nil || fenceInfo(m[2]) != info {
			continue
		}
		end := closingFence(lines, i+1, m[1])
		if sameFields(strings.Fields(strings.Join(lines[i+1:end], "\n")), want) {
			return i, end, true
		}
	}
	return 0, 0, false
}

func closingFence(lines []string, from int, marker string) int {
	for j := from; j < len(lines); j++ {
		m := closeFenceRe.FindStringSubmatch(lines[j])
		if m != nil && m[1][0] == marker[0] && len(m[1]) >= len(marker) {
			return j
		}
	}
	return len(lines)
}

func sameFields(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// parseDirective reads the content lines of a directive fence. Lines up to
// the first blank line are options (":name: value") or arguments; the rest is
// the body. fenceLine is the 1-based source line of the opening fence.
func parseDirective(name string, lines []string, fenceLine int) *Directive {
	d := &Directive{Name: name, Options: make(map[string]string), Line: fenceLine}

	i := 0
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			break
		}
		if m := optionRe.FindStringSubmatch(line); m != nil {
			d.Options[m[1]] = m[2]
			continue
		}
		d.Arguments = append(d.Arguments, Argument{Text: line, Line: fenceLine + 1 + i})
	}
	if i < len(lines) {
		d.Body = parseSegments(strings.Join(lines[i:], "\n"), fenceLine+i)
	}
	return d
}
