// Package domain applies Erlang declarations and references found in a
// document to a registry. All per-document state lives in a Context that the
// caller creates and passes in.
package domain

import (
	"errors"
	"fmt"

	"github.com/jj1bdx/erldoc/internal/registry"
	"github.com/jj1bdx/erldoc/internal/signature"
)

// DefaultModule is used for declarations outside any module.
const DefaultModule = "erlang"

// Directive names.
const (
	DirectiveClause        = "clause"
	DirectiveModule        = "module"
	DirectiveCurrentModule = "currentmodule"
)

// Domain binds declarations to a registry.
type Domain struct {
	Registry      *registry.Registry
	DefaultModule string
}

func New(reg *registry.Registry, defaultModule string) *Domain {
	if defaultModule == "" {
		defaultModule = DefaultModule
	}
	return &Domain{Registry: reg, DefaultModule: defaultModule}
}

// Context is the state of one document being processed.
type Context struct {
	DocName     string
	Diagnostics []Diagnostic

	module  string
	objects []*signature.Signature
	ids     map[string]bool
}

func NewContext(docName, module string) *Context {
	return &Context{DocName: docName, module: module, ids: make(map[string]bool)}
}

// Module is the current module, or "" when none is set.
func (c *Context) Module() string { return c.module }

// SetModule changes the current module; "" clears it.
func (c *Context) SetModule(name string) { c.module = name }

// Object is the innermost enclosing object declaration, if any.
func (c *Context) Object() *signature.Signature {
	if len(c.objects) == 0 {
		return nil
	}
	return c.objects[len(c.objects)-1]
}

// Enter makes sig the enclosing declaration until the matching Leave.
func (c *Context) Enter(sig *signature.Signature) {
	c.objects = append(c.objects, sig)
}

func (c *Context) Leave() {
	if len(c.objects) > 0 {
		c.objects = c.objects[:len(c.objects)-1]
	}
}

// claimID reserves an anchor id, reporting false if the document already
// uses it.
func (c *Context) claimID(id string) bool {
	if c.ids[id] {
		return false
	}
	c.ids[id] = true
	return true
}

// Warn records a non-fatal problem found by the caller while reading the
// document.
func (c *Context) Warn(line int, err error) {
	c.report(line, SeverityWarning, err)
}

func (c *Context) report(line int, sev Severity, err error) {
	c.Diagnostics = append(c.Diagnostics, Diagnostic{Doc: c.DocName, Line: line, Severity: sev, Err: err})
}

// Options are per-declaration overrides.
type Options struct {
	Module     string
	Flavor     string
	Deprecated bool
	NoIndex    bool
}

// Object is a processed object declaration.
type Object struct {
	Signature *signature.Signature
	Directive string
	FullName  string
	RefName   string
	// Anchors are the ids to attach to the rendered signature; empty when the
	// ids are already used in the document or indexing was suppressed.
	Anchors   []string
	IndexText string
	Line      int
}

// DescribeObject parses and registers one signature line of an object
// directive. directive is an object type name or "clause". Problems are
// recorded on ctx; a non-nil error means the declaration was dropped.
func (d *Domain) DescribeObject(ctx *Context, directive, text string, line int, opts Options) (*Object, error) {
	obj, err := d.describeObject(ctx, directive, text, line, opts)
	if err != nil {
		sev := SeverityWarning
		var ge *signature.GrammarError
		if errors.As(err, &ge) {
			sev = SeverityError
		}
		ctx.report(line, sev, err)
		return nil, err
	}
	return obj, nil
}

func (d *Domain) describeObject(ctx *Context, directive, text string, line int, opts Options) (*Object, error) {
	var parent *signature.Signature
	objType := signature.ObjType(directive)
	if directive == DirectiveClause {
		parent = ctx.Object()
		if parent == nil || (parent.ObjType != signature.Function && parent.ObjType != signature.Callback) {
			return nil, &PlacementError{Directive: directive, Reason: "must be a descendant of function or callback"}
		}
		objType = parent.ObjType
	} else if ctx.Object() != nil {
		ctx.report(line, SeverityWarning, &PlacementError{Directive: directive, Reason: "nested in another declaration may cause undefined behavior"})
	}

	ns, ok := signature.NamespaceOf(objType)
	if !ok {
		return nil, fmt.Errorf("unknown Erlang directive %q", directive)
	}

	sig, err := signature.Parse(text, ns)
	if err != nil {
		var ge *signature.GrammarError
		if errors.As(err, &ge) {
			ge.ObjType = objType
		}
		return nil, err
	}
	sig.ObjType = objType

	optModule := opts.Module
	if optModule != "" {
		canon, err := signature.CanonAtom(optModule)
		if err != nil {
			return nil, &signature.GrammarError{Namespace: ns, ObjType: objType, Text: optModule, Reason: "module option: " + err.Error()}
		}
		optModule = canon
	}

	switch {
	case sig.Module == "" && optModule != "":
		sig.Module = optModule
	case sig.Module == "" && ctx.Module() != "":
		sig.Module = ctx.Module()
	case sig.Module == "":
		sig.Module = d.DefaultModule
	case optModule != "" && optModule != sig.Module:
		return nil, &InconsistencyError{What: "module", Signature: sig.Module, Declared: optModule, Source: "option"}
	}

	if opts.Flavor != "" {
		flavor, err := signature.CanonAtom(opts.Flavor)
		if err != nil {
			return nil, &signature.GrammarError{Namespace: ns, ObjType: objType, Text: opts.Flavor, Reason: "flavor option: " + err.Error()}
		}
		switch {
		case sig.Flavor == "":
			sig.Flavor = flavor
		case sig.Flavor != flavor:
			return nil, &InconsistencyError{What: "flavor", Signature: sig.Flavor, Declared: flavor, Source: "option"}
		}
	}

	if parent != nil && !sig.SameMFA(parent) {
		return nil, &InconsistencyError{What: string(objType) + " clause", Signature: sig.MFA(), Declared: parent.MFA(), Source: "enclosing declaration"}
	}

	full := sig.FullName()
	obj := &Object{
		Signature: sig,
		Directive: directive,
		FullName:  full,
		RefName:   signature.RefName(ns, full),
		IndexText: fmt.Sprintf("%s (Erlang %s)", full, objType.Label()),
		Line:      line,
	}
	// A clause documents part of its enclosing declaration, which already
	// owns the anchors and the registry entry.
	if opts.NoIndex || parent != nil {
		return obj, nil
	}

	if ctx.claimID(obj.RefName) {
		obj.Anchors = append(obj.Anchors, obj.RefName)
		if alias := signature.DropFlavor(obj.RefName); alias != obj.RefName && ctx.claimID(alias) {
			obj.Anchors = append(obj.Anchors, alias)
		}
	}

	res := d.Registry.Insert(sig, registry.Meta{DocName: ctx.DocName, Deprecated: opts.Deprecated, Line: line})
	for _, dup := range res.Duplicates {
		ctx.report(line, SeverityWarning, dup)
	}
	return obj, nil
}

// ModuleOptions are the options of a module directive.
type ModuleOptions struct {
	Synopsis   string
	Platform   string
	Deprecated bool
	NoIndex    bool
}

// ModuleDecl is a processed module directive.
type ModuleDecl struct {
	Name      string
	Anchor    string
	IndexText string
	Indexed   bool
}

// DescribeModule handles a module directive: it sets the current module and
// registers the module unless indexing is suppressed. An invalid name is
// reported and replaced by a placeholder that is never registered.
func (d *Domain) DescribeModule(ctx *Context, name string, line int, opts ModuleOptions) *ModuleDecl {
	canon, err := signature.CanonAtom(name)
	valid := err == nil
	if !valid {
		ctx.report(line, SeverityWarning, &InvalidModuleError{Name: name})
		canon = "'invalid-module-name'"
	}
	ctx.SetModule(canon)

	decl := &ModuleDecl{Name: canon}
	if opts.NoIndex {
		return decl
	}
	decl.Anchor = registry.ModuleAnchor(canon)
	decl.IndexText = fmt.Sprintf("%s (Erlang module)", canon)
	decl.Indexed = true
	ctx.claimID(decl.Anchor)

	if valid {
		err := d.Registry.AddModule(registry.Module{
			Name:       canon,
			DocName:    ctx.DocName,
			Synopsis:   opts.Synopsis,
			Platform:   opts.Platform,
			Deprecated: opts.Deprecated,
		})
		if err != nil {
			ctx.report(line, SeverityWarning, err)
		}
	}
	return decl
}

// SetCurrentModule handles a currentmodule directive. "None" clears the
// current module.
func (d *Domain) SetCurrentModule(ctx *Context, name string) {
	if name == "None" {
		name = ""
	}
	ctx.SetModule(name)
}
