package signature

import (
	"fmt"
	"regexp"
)

var (
	atomRe = regexp.MustCompile(`^(?:([a-z]\w*)|'([-\w.]+)')$`)
	nameRe = regexp.MustCompile(`^(?:([A-Za-z_]\w*)|'([-\w.]+)')$`)
)

// CanonAtom canonicalizes an atom: a bare lowercase identifier, or a
// single-quoted string. Quoted atoms that could be written bare are unquoted.
func CanonAtom(s string) (string, error) {
	return canon(s, atomRe)
}

// CanonName is like CanonAtom but also accepts bare names starting with an
// uppercase letter or underscore (macro names).
func CanonName(s string) (string, error) {
	return canon(s, nameRe)
}

func canon(s string, re *regexp.Regexp) (string, error) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("invalid name %q", s)
	}
	if m[1] != "" {
		return s, nil
	}
	if bare := atomRe.FindStringSubmatch(m[2]); bare != nil && bare[1] != "" {
		return bare[1], nil
	}
	return s, nil
}
