package docs

import (
	"strings"
)

// Excerpt returns the part of a rendered page that documents anchor: the
// signature group carrying the anchor and the body up to the next heading
// of the same or a higher level. Nested declarations are included.
func Excerpt(content, anchor string) (string, bool) {
	lines := strings.Split(content, "\n")
	marker := `<a id="` + anchor + `"></a>`

	start := -1
	for i, l := range lines {
		if l == marker {
			start = i
			break
		}
	}
	if start < 0 {
		return "", false
	}

	i := start
	level := 0
	// The signature group: anchors, headings and blank lines.
	for ; i < len(lines); i++ {
		l := lines[i]
		if isAnchorLine(l) || strings.TrimSpace(l) == "" {
			continue
		}
		h := headingLevel(l)
		if h == 0 || (level > 0 && h != level) {
			break
		}
		level = h
	}

	end := len(lines)
	if level > 0 {
		for j := i; j < len(lines); j++ {
			l := lines[j]
			if isAnchorLine(l) {
				k := j
				for k < len(lines) && isAnchorLine(lines[k]) {
					k++
				}
				if k < len(lines) {
					if h := headingLevel(lines[k]); h > 0 && h <= level {
						end = j
						break
					}
				}
				j = k - 1
				continue
			}
			if h := headingLevel(l); h > 0 && h <= level {
				end = j
				break
			}
		}
	}
	return strings.TrimSpace(strings.Join(lines[start:end], "\n")) + "\n", true
}

func isAnchorLine(l string) bool {
	return strings.HasPrefix(l, "<a id=") && strings.HasSuffix(l, "></a>")
}

func headingLevel(l string) int {
	n := 0
	for n < len(l) && l[n] == '#' {
		n++
	}
	if n == 0 || n > 6 || n == len(l) || l[n] != ' ' {
		return 0
	}
	return n
}
