package signature

import (
	"fmt"
	"regexp"
	"strings"
)

// DisplayName is the human-readable form used in prose and index entries,
// e.g. "lists:map(Fun, List)@new -> List2".
func (s *Signature) DisplayName() string {
	var b strings.Builder
	if s.Module != "" {
		b.WriteString(s.Module)
		b.WriteString(":")
	}
	b.WriteString(s.localDisplayName())
	if s.Flavor != "" {
		b.WriteString("@")
		b.WriteString(s.Flavor)
	}
	if s.ReturnAnnotation != "" {
		b.WriteString(" -> ")
		b.WriteString(s.ReturnAnnotation)
	}
	return b.String()
}

func (s *Signature) localDisplayName() string {
	if s.Namespace == NSRecord {
		if s.RecordBody == "" {
			return fmt.Sprintf("#%s{}", s.Name)
		}
		return fmt.Sprintf("#%s{ %s }", s.Name, s.RecordBody)
	}
	sigil := s.Namespace.Sigil()
	switch {
	case s.Arity == nil:
		return sigil + s.Name
	case s.ArgText != nil:
		return fmt.Sprintf("%s%s(%s)", sigil, s.Name, *s.ArgText)
	default:
		return sigil + s.Name + s.aritySuffix()
	}
}

// DescName is the short heading label. It never shows argument text.
func (s *Signature) DescName() string {
	if s.Namespace == NSRecord {
		return fmt.Sprintf("#%s{}", s.Name)
	}
	return s.Namespace.Sigil() + s.Name + s.aritySuffix()
}

func (s *Signature) aritySuffix() string {
	switch {
	case s.Arity == nil:
		return ""
	case s.ArityMax == nil:
		return fmt.Sprintf("/%d", *s.Arity)
	default:
		return fmt.Sprintf("/%d..%d", *s.Arity, *s.ArityMax)
	}
}

// FullName is the identifier used for registry keys and anchors:
// module:name[/arity[..arity_max]][@flavor]. Namespaces whose argument list
// is mandatory get "/0" when no arity was declared.
func (s *Signature) FullName() string {
	name := s.Module + ":" + s.Name
	switch {
	case s.Arity != nil:
		name += s.aritySuffix()
	case s.Namespace.ArgListMandatory():
		name += "/0"
	}
	return name + s.flavorSuffix()
}

// FullQualifiedName is like FullName but keeps only the declared lower
// arity, without the zero default or the range.
func (s *Signature) FullQualifiedName() string {
	name := s.Module + ":" + s.Name
	if s.Arity != nil {
		name += fmt.Sprintf("/%d", *s.Arity)
	}
	return name + s.flavorSuffix()
}

func (s *Signature) flavorSuffix() string {
	if s.Flavor == "" {
		return ""
	}
	return "@" + s.Flavor
}

// MFA formats module, name and arity the way clause consistency errors
// report them.
func (s *Signature) MFA() string {
	if s.Arity == nil {
		return s.Module + ":" + s.Name
	}
	return fmt.Sprintf("%s:%s/%d", s.Module, s.Name, *s.Arity)
}

// SameMFA reports whether s and o declare the same module, name and arity.
func (s *Signature) SameMFA(o *Signature) bool {
	if s.Module != o.Module || s.Name != o.Name {
		return false
	}
	if s.Arity == nil || o.Arity == nil {
		return s.Arity == nil && o.Arity == nil
	}
	return *s.Arity == *o.Arity
}

// Clone returns a deep copy.
func (s *Signature) Clone() *Signature {
	c := *s
	if s.Arity != nil {
		n := *s.Arity
		c.Arity = &n
	}
	if s.ArityMax != nil {
		n := *s.ArityMax
		c.ArityMax = &n
	}
	if s.ArgText != nil {
		t := *s.ArgText
		c.ArgText = &t
	}
	if s.Args != nil {
		c.Args = append([]Arg(nil), s.Args...)
	}
	return &c
}

// RefName is the anchor identifier of an object with the given full name.
func RefName(ns Namespace, fullName string) string {
	return "erl." + string(ns) + "." + fullName
}

var flavorSuffixRe = regexp.MustCompile(`@.*$`)

// DropFlavor removes a trailing "@flavor" from a full name or ref name.
func DropFlavor(name string) string {
	return flavorSuffixRe.ReplaceAllString(name, "")
}
