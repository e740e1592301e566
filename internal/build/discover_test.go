package build

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore":          "ignored\n*.draft.md\n",
		"index.md":            "",
		"ref/lists.md":        "",
		"ref/skip_me.md":      "",
		"ref/notes.txt":       "",
		"ref/wip.draft.md":    "",
		"ignored/d.md":        "",
		".hidden/c.md":        "",
		"node_modules/x.md":   "",
		"out/generated.md":    "",
		"guide/deep/intro.md": "",
	})

	got, err := Discover(root, []string{"**/*.md"}, []string{"ref/skip_*.md"}, []string{"out"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"guide/deep/intro.md", "index.md", "ref/lists.md"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Discover = %v, want %v", got, want)
	}
}

func TestDiscover_InvalidPattern(t *testing.T) {
	t.Parallel()

	if _, err := Discover(t.TempDir(), []string{"[unclosed"}, nil, nil); err == nil {
		t.Error("invalid pattern accepted")
	}
}

func TestDocName(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"index.md", "index"},
		{"ref/lists.md", "ref/lists"},
		{"a.b/c.md", "a.b/c"},
	}
	for _, tt := range tests {
		if got := DocName(tt.in); got != tt.want {
			t.Errorf("DocName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
