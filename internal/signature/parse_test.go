package signature

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func intPtr(n int) *int { return &n }

func TestParse_Examples(t *testing.T) {
	t.Parallel()

	t.Run("function_with_optional_tail", func(t *testing.T) {
		sig, err := Parse("foo:bar(X, Y, [Z]) -> ok", NSFunction)
		if err != nil {
			t.Fatal(err)
		}
		if sig.Module != "foo" || sig.Name != "bar" {
			t.Errorf("got %s:%s, want foo:bar", sig.Module, sig.Name)
		}
		wantArgs := []Arg{{Mandatory, "X"}, {Mandatory, "Y"}, {Optional, "Z"}}
		if !reflect.DeepEqual(sig.Args, wantArgs) {
			t.Errorf("args = %v, want %v", sig.Args, wantArgs)
		}
		if sig.Arity == nil || *sig.Arity != 2 {
			t.Errorf("arity = %v, want 2", sig.Arity)
		}
		if sig.ArityMax == nil || *sig.ArityMax != 3 {
			t.Errorf("arity_max = %v, want 3", sig.ArityMax)
		}
		if sig.ReturnAnnotation != "ok" {
			t.Errorf("return annotation = %q, want %q", sig.ReturnAnnotation, "ok")
		}
	})

	t.Run("macro_with_flavor", func(t *testing.T) {
		sig, err := Parse("?BAZ/2@old", NSMacro)
		if err != nil {
			t.Fatal(err)
		}
		if sig.Sigil != "?" || sig.Name != "BAZ" {
			t.Errorf("got sigil %q name %q", sig.Sigil, sig.Name)
		}
		if sig.Arity == nil || *sig.Arity != 2 || sig.ArityMax != nil {
			t.Errorf("arity = %v..%v, want 2", sig.Arity, sig.ArityMax)
		}
		if sig.Flavor != "old" || !sig.ExplicitFlavor {
			t.Errorf("flavor = %q explicit=%v, want old explicit", sig.Flavor, sig.ExplicitFlavor)
		}
	})

	t.Run("record_body", func(t *testing.T) {
		sig, err := Parse("#point{x, y}", NSRecord)
		if err != nil {
			t.Fatal(err)
		}
		if sig.Namespace != NSRecord || sig.Sigil != "#" || sig.Name != "point" {
			t.Errorf("got %+v", sig)
		}
		if sig.RecordBody != "x, y" {
			t.Errorf("record body = %q, want %q", sig.RecordBody, "x, y")
		}
		if sig.Arity != nil {
			t.Errorf("arity = %v, want none", *sig.Arity)
		}
	})
}

func TestParse_Fields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		ns       Namespace
		module   string
		sigName  string
		arity    *int
		arityMax *int
		flavor   string
		explicit bool
		guard    string
		ret      string
	}{
		{"bare_name", "spawn", NSFunction, "", "spawn", nil, nil, "", false, "", ""},
		{"arity", "lists:map/2", NSFunction, "lists", "map", intPtr(2), nil, "", false, "", ""},
		{"arity_range", "m:f/1..3", NSFunction, "m", "f", intPtr(1), intPtr(3), "", false, "", ""},
		{"spaces_around_punctuation", "m : f / 1 @ new", NSFunction, "m", "f", intPtr(1), nil, "new", true, "", ""},
		{"implicit_flavor", "m:f(A)[@new]", NSFunction, "m", "f", intPtr(1), nil, "new", false, "", ""},
		{"guard_and_return", "m:f(X) when is_integer(X) -> integer()", NSFunction, "m", "f", intPtr(1), nil, "", false, "is_integer(X)", "integer()"},
		{"trailing_period", "m:f(X) -> ok.", NSFunction, "m", "f", intPtr(1), nil, "", false, "", "ok"},
		{"empty_arglist", "m:f()", NSCallback, "m", "f", intPtr(0), nil, "", false, "", ""},
		{"quoted_atom_unquoted", "'lists':'map'/2", NSFunction, "lists", "map", intPtr(2), nil, "", false, "", ""},
		{"quoted_atom_kept", "'my-mod':'Weird'/0", NSFunction, "'my-mod'", "'Weird'", intPtr(0), nil, "", false, "", ""},
		{"macro_without_args", "?MODULE", NSMacro, "", "MODULE", nil, nil, "", false, "", ""},
		{"type_guard", "m:t(A) when A", NSType, "m", "t", intPtr(1), nil, "", false, "A", ""},
		{"quoted_flavor", "m:f/1@'new'", NSFunction, "m", "f", intPtr(1), nil, "new", true, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := Parse(tt.text, tt.ns)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.text, err)
			}
			if sig.Module != tt.module || sig.Name != tt.sigName {
				t.Errorf("got %q:%q, want %q:%q", sig.Module, sig.Name, tt.module, tt.sigName)
			}
			if !reflect.DeepEqual(sig.Arity, tt.arity) || !reflect.DeepEqual(sig.ArityMax, tt.arityMax) {
				t.Errorf("arity = %v..%v, want %v..%v", sig.Arity, sig.ArityMax, tt.arity, tt.arityMax)
			}
			if sig.Flavor != tt.flavor || sig.ExplicitFlavor != tt.explicit {
				t.Errorf("flavor = %q (explicit %v), want %q (explicit %v)", sig.Flavor, sig.ExplicitFlavor, tt.flavor, tt.explicit)
			}
			if sig.Guard != tt.guard {
				t.Errorf("guard = %q, want %q", sig.Guard, tt.guard)
			}
			if sig.ReturnAnnotation != tt.ret {
				t.Errorf("return = %q, want %q", sig.ReturnAnnotation, tt.ret)
			}
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		ns   Namespace
	}{
		{"empty_range", "m:f/3..3", NSFunction},
		{"inverted_range", "m:f/3..1", NSFunction},
		{"macro_sigil_on_function", "?f/1", NSFunction},
		{"record_sigil_on_macro", "#FOO", NSMacro},
		{"record_body_on_function", "m:f{a}", NSFunction},
		{"empty_braces_on_function", "m:f{}", NSFunction},
		{"arity_on_record", "#point/2", NSRecord},
		{"arglist_on_record", "#point(X)", NSRecord},
		{"return_on_type", "m:t(A) -> x", NSType},
		{"uppercase_function", "m:Foo/1", NSFunction},
		{"uppercase_module", "Mod:f/1", NSFunction},
		{"unbalanced_close", "m:f(A))", NSFunction},
		{"unbalanced_open", "m:f(A, {B)", NSFunction},
		{"mismatched_brackets", "m:f({A])", NSFunction},
		{"garbage", "not a signature!", NSFunction},
		{"uppercase_flavor", "m:f/1@New", NSFunction},
		{"unknown_namespace", "m:f/1", Namespace("zz")},
		{"arity_above_max", "m:f/256", NSFunction},
		{"arity_max_above_max", "m:f/0..9000000000000000000", NSFunction},
		{"arity_overflows_int", "m:f/99999999999999999999", NSFunction},
		{"too_many_args", "m:f(" + strings.Repeat("A, ", MaxArity) + "A)", NSFunction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text, tt.ns)
			if err == nil {
				t.Fatalf("Parse(%q, %s) succeeded, want error", tt.text, tt.ns)
			}
			if !errors.Is(err, ErrGrammar) {
				t.Errorf("error %v does not match ErrGrammar", err)
			}
			var ge *GrammarError
			if !errors.As(err, &ge) || ge.Text != tt.text {
				t.Errorf("error %v does not carry the offending text", err)
			}
		})
	}
}

func TestParse_ArityFromArgListWins(t *testing.T) {
	t.Parallel()

	sig, err := Parse("m:f(A [, B [, C]])", NSFunction)
	if err != nil {
		t.Fatal(err)
	}
	if *sig.Arity != 1 || sig.ArityMax == nil || *sig.ArityMax != 3 {
		t.Errorf("arity = %d..%v, want 1..3", *sig.Arity, sig.ArityMax)
	}
	if sig.ArgText == nil || *sig.ArgText != "A [, B [, C]]" {
		t.Errorf("arg text = %v", sig.ArgText)
	}

	blank, err := Parse("m:f(,A)", NSFunction)
	if err != nil {
		t.Fatal(err)
	}
	if *blank.Arity != 2 || blank.ArityMax != nil {
		t.Errorf("m:f(,A) arity = %d..%v, want 2", *blank.Arity, blank.ArityMax)
	}
}

func TestParse_RecordWithoutBody(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"#point", "#point{}", "m:point{ }"} {
		sig, err := Parse(text, NSRecord)
		if err != nil {
			t.Fatalf("Parse(%q): %v", text, err)
		}
		if sig.RecordBody != "" || sig.Name != "point" {
			t.Errorf("Parse(%q) = %+v", text, sig)
		}
	}
}

func rangeOf(lo, hi int) []int {
	var out []int
	for a := lo; a <= hi; a++ {
		out = append(out, a)
	}
	return out
}

func TestParseFullName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text     string
		module   string
		name     string
		arities  []int
		wantFail bool
	}{
		{text: "lists:map/2", module: "lists", name: "map", arities: []int{2}},
		{text: "m:f/1..3", module: "m", name: "f", arities: []int{1, 2, 3}},
		{text: "m:REC", module: "m", name: "REC"},
		{text: "'m':'f'/0", module: "m", name: "f", arities: []int{0}},
		{text: "m:f/2..1", wantFail: true},
		{text: "m:f/0..256", wantFail: true},
		{text: "m:f/0..255", module: "m", name: "f", arities: rangeOf(0, 255)},
		{text: "f/1", wantFail: true},
		{text: "m:f(X)", wantFail: true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			q, err := ParseFullName(tt.text)
			if tt.wantFail {
				if err == nil {
					t.Fatalf("expected error for %q", tt.text)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if q.Module != tt.module || q.Name != tt.name {
				t.Errorf("got %s:%s, want %s:%s", q.Module, q.Name, tt.module, tt.name)
			}
			if !reflect.DeepEqual(q.Arities(), tt.arities) {
				t.Errorf("arities = %v, want %v", q.Arities(), tt.arities)
			}
		})
	}
}

func TestCanon(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		atom    string
		atomErr bool
		name    string
		nameErr bool
	}{
		{in: "foo", atom: "foo", name: "foo"},
		{in: "'foo'", atom: "foo", name: "foo"},
		{in: "'foo-bar'", atom: "'foo-bar'", name: "'foo-bar'"},
		{in: "'Foo'", atom: "'Foo'", name: "'Foo'"},
		{in: "Foo", atomErr: true, name: "Foo"},
		{in: "_x", atomErr: true, name: "_x"},
		{in: "1x", atomErr: true, nameErr: true},
		{in: "''", atomErr: true, nameErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := CanonAtom(tt.in)
			if (err != nil) != tt.atomErr {
				t.Errorf("CanonAtom(%q) err = %v, wantErr %v", tt.in, err, tt.atomErr)
			} else if err == nil && got != tt.atom {
				t.Errorf("CanonAtom(%q) = %q, want %q", tt.in, got, tt.atom)
			}
			got, err = CanonName(tt.in)
			if (err != nil) != tt.nameErr {
				t.Errorf("CanonName(%q) err = %v, wantErr %v", tt.in, err, tt.nameErr)
			} else if err == nil && got != tt.name {
				t.Errorf("CanonName(%q) = %q, want %q", tt.in, got, tt.name)
			}
		})
	}
}
