package build

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

var skipDirs = map[string]struct{}{
	"node_modules": {},
	"_build":       {},
	"ebin":         {},
	"deps":         {},
	"_checkouts":   {},
}

// Discover lists the documents under root as slash-separated paths relative
// to root. A path is kept when it matches an include pattern and no exclude
// pattern, and is not ignored by root's .gitignore. Hidden entries and the
// directories in skip (relative to root) are never visited.
func Discover(root string, include, exclude, skip []string) ([]string, error) {
	for _, p := range append(append([]string(nil), include...), exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[path.Clean(filepath.ToSlash(s))] = true
	}
	gi := loadGitignore(root)

	var results []string
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		name := d.Name()

		if d.IsDir() {
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") || skipped[rel] {
				return filepath.SkipDir
			}
			if gi != nil && gi.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		if matchAny(include, rel) && !matchAny(exclude, rel) {
			results = append(results, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(results)
	return results, nil
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}

// DocName is the document name of a discovered path: the path without its
// extension.
func DocName(rel string) string {
	return strings.TrimSuffix(rel, path.Ext(rel))
}
