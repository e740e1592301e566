package signature

import (
	"reflect"
	"testing"
)

func TestSplitArgs(t *testing.T) {
	t.Parallel()

	m := func(s string) Arg { return Arg{Kind: Mandatory, Text: s} }
	o := func(s string) Arg { return Arg{Kind: Optional, Text: s} }

	tests := []struct {
		name string
		in   string
		want []Arg
	}{
		{"empty", "", nil},
		{"blank", "   ", nil},
		{"single", "X", []Arg{m("X")}},
		{"plain", "A, B, C", []Arg{m("A"), m("B"), m("C")}},
		{"nested_tuple", "{A, B}, C", []Arg{m("{A, B}"), m("C")}},
		{"nested_list", "[H | T], Acc", []Arg{m("[H | T]"), m("Acc")}},
		{"call_in_arg", "f(A, B), C", []Arg{m("f(A, B)"), m("C")}},
		{"optional_bracket_comma", "A [, B]", []Arg{m("A"), o("B")}},
		{"optional_nested", "A [, B [, C]]", []Arg{m("A"), o("B"), o("C")}},
		{"optional_comma_bracket", "X, Y, [Z]", []Arg{m("X"), m("Y"), o("Z")}},
		{"optional_group_with_commas", "X, [Y, Z]", []Arg{m("X"), o("Y"), o("Z")}},
		{"optional_holds_list", "A [, [B]]", []Arg{m("A"), o("[B]")}},
		{"list_first", "[A], B", []Arg{m("[A]"), m("B")}},
		{"leading_blank", ", A", []Arg{m(""), m("A")}},
		{"interior_blank", "A, , B", []Arg{m("A"), m(""), m("B")}},
		{"trailing_comma", "A,", []Arg{m("A")}},
		{"blank_before_group", "[, B]", []Arg{m(""), o("B")}},
		{"mandatory_after_group", "A [, B], C", []Arg{m("A"), o("B"), m("C")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitArgs(tt.in)
			if err != nil {
				t.Fatalf("SplitArgs(%q): %v", tt.in, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitArgs(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitArgs_Errors(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"A)", "A, {B", "{A]", "A [, B", "X, [Y", "]"} {
		t.Run(in, func(t *testing.T) {
			if got, err := SplitArgs(in); err == nil {
				t.Errorf("SplitArgs(%q) = %v, want error", in, got)
			}
		})
	}
}

func TestSplitArgs_ArityMatchesKinds(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"A, B", "A [, B [, C]]", "X, Y, [Z]", "{A, [B]}", ", A", "A [, B], C"} {
		args, err := SplitArgs(in)
		if err != nil {
			t.Fatalf("SplitArgs(%q): %v", in, err)
		}
		mandatory := 0
		for _, a := range args {
			if a.Kind == Mandatory {
				mandatory++
			}
		}
		arity, arityMax := arityOf(args)
		if arity != mandatory {
			t.Errorf("%q: arity %d, want %d", in, arity, mandatory)
		}
		if mandatory == len(args) {
			if arityMax != nil {
				t.Errorf("%q: arity_max %d, want none", in, *arityMax)
			}
		} else if arityMax == nil || *arityMax != len(args) {
			t.Errorf("%q: arity_max %v, want %d", in, arityMax, len(args))
		}
	}
}
