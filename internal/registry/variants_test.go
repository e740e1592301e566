package registry

import (
	"reflect"
	"testing"

	"github.com/jj1bdx/erldoc/internal/signature"
)

func TestInventoryNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		typ    signature.ObjType
		arity  int
		flavor string
		want   []string
	}{
		{
			name:  "arity_only",
			text:  "m:f/2",
			typ:   signature.Function,
			arity: 2,
			want:  []string{"m:f/2"},
		},
		{
			name:  "argument_list",
			text:  "m:f(A, B)",
			typ:   signature.Function,
			arity: 2,
			want:  []string{"m:f/2", "m:f(A, B)"},
		},
		{
			name:  "range_truncates_args",
			text:  "m:f(A [, B])",
			typ:   signature.Function,
			arity: 1,
			want:  []string{"m:f/1", "m:f(A)"},
		},
		{
			name:  "zero_arity",
			text:  "m:f()",
			typ:   signature.Function,
			arity: 0,
			want:  []string{"m:f/0", "m:f()"},
		},
		{
			name:   "flavored",
			text:   "m:f/1@new",
			typ:    signature.Function,
			arity:  1,
			flavor: "new",
			want:   []string{"m:f/1", "m:f/1@new"},
		},
		{
			name:  "macro_no_arity",
			text:  "m:?DEBUG",
			typ:   signature.Macro,
			arity: NoArity,
			want:  []string{"m:DEBUG", "m:?DEBUG"},
		},
		{
			name:  "macro_args",
			text:  "m:?LOG(Msg)",
			typ:   signature.Macro,
			arity: 1,
			want:  []string{"m:LOG/1", "m:LOG(Msg)", "m:?LOG/1", "m:?LOG(Msg)"},
		},
		{
			name:  "record",
			text:  "m:#state{a}",
			typ:   signature.Record,
			arity: NoArity,
			want:  []string{"m:state", "m:state{}", "m:#state", "m:#state{}"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			s := mustSig(t, tt.text, tt.typ)
			r.Insert(s, Meta{DocName: "d"})
			e, ok := r.Lookup(Key{Namespace: s.Namespace, QName: s.Module + ":" + s.Name, Arity: tt.arity, Flavor: tt.flavor})
			if !ok {
				t.Fatal("entry not found")
			}
			if got := e.InventoryNames(tt.arity, tt.flavor); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("InventoryNames = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestObjects(t *testing.T) {
	t.Parallel()

	r := New()
	r.AddModule(Module{Name: "m", DocName: "m"})
	r.Insert(mustSig(t, "m:f/1@new", signature.Function), Meta{DocName: "m"})

	got := r.Objects()
	want := []Object{
		{Name: "m", DisplayName: "m", Type: signature.Module, DocName: "m", RefName: "module-m", Priority: 0},
		{Name: "m:f/1", DisplayName: "m:f/1", Type: signature.Function, DocName: "m", RefName: "erl.fn.m:f/1", Priority: 1},
		{Name: "m:f/1", DisplayName: "m:f/1", Type: signature.Function, DocName: "m", RefName: "erl.fn.m:f/1@new", Priority: 1},
		{Name: "m:f/1@new", DisplayName: "m:f/1@new", Type: signature.Function, DocName: "m", RefName: "erl.fn.m:f/1@new", Priority: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Objects() =\n%+v\nwant\n%+v", got, want)
	}
}

func TestModuleIndex(t *testing.T) {
	t.Parallel()

	r := New()
	for _, m := range []Module{
		{Name: "alpha", DocName: "a", Synopsis: "First"},
		{Name: "beta", DocName: "b", Deprecated: true},
		{Name: "beta:one", DocName: "b"},
		{Name: "beta:two", DocName: "b"},
		{Name: "gamma:sub", DocName: "g"},
		{Name: "erl_alpha2", DocName: "e"},
	} {
		if err := r.AddModule(m); err != nil {
			t.Fatal(err)
		}
	}

	groups, collapse := r.ModuleIndex(nil, []string{"erl_"})
	if collapse {
		t.Error("collapse = true, want false")
	}

	want := []IndexGroup{
		{Letter: "a", Entries: []IndexEntry{
			{Name: "alpha", DocName: "a", Anchor: "module-alpha", Synopsis: "First"},
			{Name: "erl_alpha2", DocName: "e", Anchor: "module-erl_alpha2"},
		}},
		{Letter: "b", Entries: []IndexEntry{
			{Name: "beta", Subtype: IndexEntryGroup, DocName: "b", Anchor: "module-beta", Qualifier: "Deprecated"},
			{Name: "beta:one", Subtype: IndexEntrySub, DocName: "b", Anchor: "module-beta:one"},
			{Name: "beta:two", Subtype: IndexEntrySub, DocName: "b", Anchor: "module-beta:two"},
		}},
		{Letter: "g", Entries: []IndexEntry{
			{Name: "gamma", Subtype: IndexEntryGroup},
			{Name: "gamma:sub", Subtype: IndexEntrySub, DocName: "g", Anchor: "module-gamma:sub"},
		}},
	}
	if !reflect.DeepEqual(groups, want) {
		t.Errorf("ModuleIndex =\n%+v\nwant\n%+v", groups, want)
	}

	only, _ := r.ModuleIndex([]string{"a"}, nil)
	if len(only) != 1 || len(only[0].Entries) != 1 || only[0].Entries[0].Name != "alpha" {
		t.Errorf("filtered index = %+v", only)
	}
}
