package registry

import (
	"github.com/jj1bdx/erldoc/internal/signature"
)

// Target is a resolved cross-reference.
type Target struct {
	Title   string            `json:"title"`
	DocName string            `json:"doc"`
	RefName string            `json:"ref"`
	ObjType signature.ObjType `json:"objtype"`
}

// Find resolves target, written in the signature grammar of role's
// namespace, against the registry. contextModule is used when the target has
// no module qualifier. searchOrder is accepted for interface compatibility
// and does not affect the result. The "mod" role resolves modules.
func (r *Registry) Find(contextModule, role, target string, searchOrder int) (Target, bool) {
	if role == signature.Module.Role() {
		return r.FindModule(target)
	}
	ns, ok := signature.NamespaceOfRole(role)
	if !ok {
		return Target{}, false
	}
	sig, err := signature.Parse(target, ns)
	if err != nil {
		return Target{}, false
	}

	module := sig.Module
	if module == "" {
		module = contextModule
	}
	if module == "" {
		return Target{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ars, ok := r.objects[ns][module+":"+sig.Name]
	if !ok {
		return Target{}, false
	}

	key := NoArity
	if sig.Arity != nil {
		key = *sig.Arity
	}
	fl, ok := ars[key]
	if !ok {
		if sig.Arity != nil {
			return Target{}, false
		}
		fl = ars[sortedArities(ars)[0]]
	}

	e, ok := fl[sig.Flavor]
	if !ok {
		return Target{}, false
	}
	return Target{Title: title(e), DocName: e.DocName, RefName: e.RefName, ObjType: e.ObjType}, true
}

func title(e *Entry) string {
	switch e.ObjType {
	case signature.Callback:
		return e.DisplayName + " (callback function)"
	case signature.Opaque:
		return e.DisplayName + " opaque type"
	case signature.Type:
		return e.DisplayName + " type"
	default:
		return e.DisplayName
	}
}

// FindModule resolves a module reference by exact name.
func (r *Registry) FindModule(name string) (Target, bool) {
	r.mu.RLock()
	m, ok := r.modules[name]
	r.mu.RUnlock()
	if !ok {
		return Target{}, false
	}

	t := name
	if m.Synopsis != "" {
		t += ": " + m.Synopsis
	}
	if m.Deprecated {
		t += " (deprecated)"
	}
	if m.Platform != "" {
		t += " (" + m.Platform + ")"
	}
	return Target{Title: t, DocName: m.DocName, RefName: m.Anchor(), ObjType: signature.Module}, true
}

// FindRange resolves a fully-qualified name query such as "m:f/1..3" to the
// default-flavor entry of every arity it covers. It reports false unless all
// of them are registered.
func (r *Registry) FindRange(ns signature.Namespace, query string) ([]Target, bool) {
	q, err := signature.ParseFullName(query)
	if err != nil {
		return nil, false
	}
	keys := q.Arities()
	if keys == nil {
		if ns.ArgListMandatory() {
			keys = []int{0}
		} else {
			keys = []int{NoArity}
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ars := r.objects[ns][q.Module+":"+q.Name]
	out := make([]Target, 0, len(keys))
	for _, a := range keys {
		e, ok := ars[a][""]
		if !ok {
			return nil, false
		}
		out = append(out, Target{Title: title(e), DocName: e.DocName, RefName: e.RefName, ObjType: e.ObjType})
	}
	return out, true
}
