package inventory

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/jj1bdx/erldoc/internal/registry"
	"github.com/jj1bdx/erldoc/internal/signature"
)

func TestWriteRead_RoundTrip(t *testing.T) {
	t.Parallel()

	r := registry.New()
	if err := r.AddModule(registry.Module{Name: "lists", DocName: "ref/lists"}); err != nil {
		t.Fatal(err)
	}
	sig, err := signature.Parse("lists:map(Fun, List)", signature.NSFunction)
	if err != nil {
		t.Fatal(err)
	}
	sig.ObjType = signature.Function
	r.Insert(sig, registry.Meta{DocName: "ref/lists"})

	inv := FromObjects("stdlib", "27.0", r.Objects(), ".md")
	var buf bytes.Buffer
	if err := Write(&buf, inv); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "# Sphinx inventory version 2\n# Project: stdlib\n# Version: 27.0\n") {
		t.Errorf("header = %q", buf.String()[:80])
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, inv) {
		t.Errorf("Read =\n%+v\nwant\n%+v", got, inv)
	}

	want := []Entry{
		{Name: "lists", Domain: "erl", Type: "module", Priority: 0, URI: "ref/lists.md#module-lists", DisplayName: "lists"},
		{Name: "lists:map/2", Domain: "erl", Type: "function", Priority: 1, URI: "ref/lists.md#erl.fn.lists:map/2", DisplayName: "lists:map/2"},
		{Name: "lists:map(Fun, List)", Domain: "erl", Type: "function", Priority: 1, URI: "ref/lists.md#erl.fn.lists:map/2", DisplayName: "lists:map(Fun, List)"},
	}
	if !reflect.DeepEqual(got.Entries, want) {
		t.Errorf("entries =\n%+v\nwant\n%+v", got.Entries, want)
	}
}

func TestRead_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "reading inventory header"},
		{"version1", "# Sphinx inventory version 1\n# Project: x\n# Version: 1\n", "unsupported inventory format"},
		{"uncompressed", "# Sphinx inventory version 2\n# Project: x\n# Version: 1\n# plain text\n", "not zlib-compressed"},
		{"bad_body", "# Sphinx inventory version 2\n# Project: x\n# Version: 1\n# zlib\nnot zlib", "opening zlib body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Read(strings.NewReader(tt.input))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestRead_ForeignDomains(t *testing.T) {
	t.Parallel()

	inv := &Inventory{Project: "mixed", Version: "1", Entries: []Entry{
		{Name: "len", Domain: "py", Type: "function", Priority: 1, URI: "lib.html#len", DisplayName: "len"},
		{Name: "m:f/1", Domain: "erl", Type: "function", Priority: -1, URI: "m.html#erl.fn.m:f/1", DisplayName: "f/1"},
	}}
	var buf bytes.Buffer
	if err := Write(&buf, inv); err != nil {
		t.Fatal(err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.Entries, inv.Entries) {
		t.Errorf("entries = %+v", got.Entries)
	}
}
