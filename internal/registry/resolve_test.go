package registry

import (
	"reflect"
	"testing"

	"github.com/jj1bdx/erldoc/internal/signature"
)

func TestFind(t *testing.T) {
	t.Parallel()

	r := New()
	r.Insert(mustSig(t, "lists:map(Fun, List)", signature.Function), Meta{DocName: "lists"})
	r.Insert(mustSig(t, "m:one/2", signature.Function), Meta{DocName: "m"})
	r.Insert(mustSig(t, "m:g/1", signature.Function), Meta{DocName: "m"})
	r.Insert(mustSig(t, "m:g/3", signature.Function), Meta{DocName: "m"})
	r.Insert(mustSig(t, "m:h/1@new", signature.Function), Meta{DocName: "m"})
	r.Insert(mustSig(t, "m:k/2@new", signature.Function), Meta{DocName: "m"})
	r.Insert(mustSig(t, "gen:init(Args)", signature.Callback), Meta{DocName: "gen"})
	r.Insert(mustSig(t, "m:t()", signature.Type), Meta{DocName: "m"})
	r.Insert(mustSig(t, "m:o()", signature.Opaque), Meta{DocName: "m"})
	r.Insert(mustSig(t, "m:#state{a, b}", signature.Record), Meta{DocName: "m"})
	r.Insert(mustSig(t, "m:?LOG(Msg)", signature.Macro), Meta{DocName: "m"})
	r.Insert(mustSig(t, "m:?DEBUG", signature.Macro), Meta{DocName: "m"})

	tests := []struct {
		name    string
		context string
		role    string
		target  string
		ok      bool
		title   string
		ref     string
	}{
		{"qualified", "", "func", "lists:map/2", true, "lists:map(Fun, List)", "erl.fn.lists:map/2"},
		{"argument_list_query", "", "func", "lists:map(F, L)", true, "lists:map(Fun, List)", "erl.fn.lists:map/2"},
		{"context_module", "lists", "func", "map/2", true, "lists:map(Fun, List)", "erl.fn.lists:map/2"},
		{"no_module", "", "func", "map/2", false, "", ""},
		{"single_arity_unspecified", "", "func", "m:one", true, "m:one/2", "erl.fn.m:one/2"},
		{"minimum_arity_wins", "", "func", "m:g", true, "m:g/1", "erl.fn.m:g/1"},
		{"explicit_arity_no_fallback", "", "func", "m:g/2", false, "", ""},
		{"flavor_exact", "", "func", "m:h/1@new", true, "m:h/1@new", "erl.fn.m:h/1@new"},
		{"default_flavor_present", "", "func", "m:h/1", true, "m:h/1", "erl.fn.m:h/1"},
		{"flavor_missing", "", "func", "m:h/1@old", false, "", ""},
		{"flavor_missing_with_default", "", "func", "m:one/2@old", false, "", ""},
		{"implicit_flavor_query", "", "func", "m:k(X, Y)[@new]", true, "m:k/2@new", "erl.fn.m:k/2@new"},
		{"callback_title", "", "callback", "gen:init/1", true, "gen:init(Args) (callback function)", "erl.cb.gen:init/1"},
		{"type_title", "", "type", "m:t/0", true, "m:t() type", "erl.ty.m:t/0"},
		{"opaque_title", "", "type", "m:o()", true, "m:o() opaque type", "erl.ty.m:o/0"},
		{"record", "", "record", "m:#state", true, "m:#state{ a, b }", "erl.rec.m:state"},
		{"record_without_sigil", "m", "record", "state", true, "m:#state{ a, b }", "erl.rec.m:state"},
		{"macro_with_args", "", "macro", "m:?LOG/1", true, "m:?LOG(Msg)", "erl.macro.m:LOG/1"},
		{"macro_no_arity", "m", "macro", "?DEBUG", true, "m:?DEBUG", "erl.macro.m:DEBUG"},
		{"macro_no_arity_fallback", "m", "macro", "LOG", true, "m:?LOG(Msg)", "erl.macro.m:LOG/1"},
		{"wrong_namespace", "", "func", "gen:init/1", false, "", ""},
		{"malformed_query", "", "func", "m:g/3..1", false, "", ""},
		{"unknown_role", "", "class", "m:g/1", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Find(tt.context, tt.role, tt.target, 0)
			if ok != tt.ok {
				t.Fatalf("Find(%q, %q, %q) ok = %v, want %v (%+v)", tt.context, tt.role, tt.target, ok, tt.ok, got)
			}
			if !ok {
				return
			}
			if got.Title != tt.title || got.RefName != tt.ref {
				t.Errorf("got %q %q, want %q %q", got.Title, got.RefName, tt.title, tt.ref)
			}
		})
	}
}

func TestFind_NoArityKeyIsExact(t *testing.T) {
	t.Parallel()

	r := New()
	r.Insert(mustSig(t, "m:?X", signature.Macro), Meta{DocName: "a"})
	r.Insert(mustSig(t, "m:?X/2", signature.Macro), Meta{DocName: "a"})

	got, ok := r.Find("", "macro", "m:?X", 0)
	if !ok || got.RefName != "erl.macro.m:X" {
		t.Errorf("unspecified arity = %+v %v, want the no-arity entry", got, ok)
	}
	got, ok = r.Find("", "macro", "m:?X/2", 0)
	if !ok || got.RefName != "erl.macro.m:X/2" {
		t.Errorf("arity 2 = %+v %v", got, ok)
	}
	if _, ok := r.Find("", "macro", "m:?X/1", 0); ok {
		t.Error("arity 1 should not resolve")
	}
}

func TestFind_DefaultAndFlavorResolveTogether(t *testing.T) {
	t.Parallel()

	r := New()
	r.Insert(mustSig(t, "m:f(A)@new", signature.Function), Meta{DocName: "doc"})

	def, ok := r.Find("", "func", "m:f/1", 0)
	if !ok {
		t.Fatal("default flavor not resolvable")
	}
	fl, ok := r.Find("", "func", "m:f/1@new", 0)
	if !ok {
		t.Fatal("flavor not resolvable")
	}
	if def.DocName != fl.DocName || def.ObjType != fl.ObjType {
		t.Errorf("default %+v and flavored %+v differ beyond flavor", def, fl)
	}
	if def.Title != "m:f(A)" || fl.Title != "m:f(A)@new" {
		t.Errorf("titles %q / %q", def.Title, fl.Title)
	}
}

func TestFindModule(t *testing.T) {
	t.Parallel()

	r := New()
	r.AddModule(Module{Name: "lists", DocName: "lists", Synopsis: "List processing"})
	r.AddModule(Module{Name: "old", DocName: "old", Deprecated: true, Platform: "Unix"})
	r.AddModule(Module{Name: "bare", DocName: "bare"})

	tests := []struct {
		name  string
		title string
		ok    bool
	}{
		{"lists", "lists: List processing", true},
		{"old", "old (deprecated) (Unix)", true},
		{"bare", "bare", true},
		{"missing", "", false},
	}
	for _, tt := range tests {
		got, ok := r.Find("", "mod", tt.name, 0)
		if ok != tt.ok {
			t.Errorf("%s: ok = %v", tt.name, ok)
			continue
		}
		if ok && (got.Title != tt.title || got.RefName != "module-"+tt.name || got.DocName != tt.name) {
			t.Errorf("%s: got %+v", tt.name, got)
		}
	}
}

func TestFindRange(t *testing.T) {
	t.Parallel()

	r := New()
	r.Insert(mustSig(t, "m:f(A [, B [, C]])", signature.Function), Meta{DocName: "d"})
	r.Insert(mustSig(t, "m:g", signature.Function), Meta{DocName: "d"})

	got, ok := r.FindRange(signature.NSFunction, "m:f/1..3")
	if !ok || len(got) != 3 {
		t.Fatalf("FindRange = %v %v", got, ok)
	}
	refs := []string{got[0].RefName, got[1].RefName, got[2].RefName}
	want := []string{"erl.fn.m:f/1..3", "erl.fn.m:f/1..3", "erl.fn.m:f/1..3"}
	if !reflect.DeepEqual(refs, want) {
		t.Errorf("refs = %v", refs)
	}
	if _, ok := r.FindRange(signature.NSFunction, "m:f/1..4"); ok {
		t.Error("range beyond registered arities resolved")
	}
	if got, ok := r.FindRange(signature.NSFunction, "m:g"); !ok || got[0].RefName != "erl.fn.m:g/0" {
		t.Errorf("FindRange(m:g) = %v %v", got, ok)
	}
}
