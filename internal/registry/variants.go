package registry

import (
	"fmt"
	"strings"

	"github.com/jj1bdx/erldoc/internal/signature"
)

// InventoryNames lists every name an external inventory consumer may look
// this entry up by when it is stored under the given arity and flavor keys.
// Older tools query with a sigil or an argument list instead of the
// canonical full name.
func (e *Entry) InventoryNames(arity int, flavor string) []string {
	sig := e.Signature

	sigils := []string{""}
	if s := sig.Namespace.Sigil(); s != "" {
		sigils = append(sigils, s)
	}

	var argForms []string
	switch {
	case sig.Namespace == signature.NSRecord:
		argForms = []string{"", "{}"}
	case arity == NoArity:
		argForms = []string{""}
	case arity == 0:
		argForms = []string{"/0", "()"}
	case sig.ArgText == nil:
		argForms = []string{fmt.Sprintf("/%d", arity)}
	default:
		n := min(arity, len(sig.Args))
		texts := make([]string, n)
		for i, a := range sig.Args[:n] {
			texts[i] = a.Text
		}
		argForms = []string{fmt.Sprintf("/%d", arity), "(" + strings.Join(texts, ", ") + ")"}
	}

	flavors := []string{""}
	if sig.Flavor != "" {
		flavors = append(flavors, "@"+flavor)
	}

	out := make([]string, 0, len(sigils)*len(argForms)*len(flavors))
	for _, s := range sigils {
		for _, a := range argForms {
			for _, f := range flavors {
				out = append(out, sig.Module+":"+s+sig.Name+a+f)
			}
		}
	}
	return out
}

// Object is one row of the global object enumeration.
type Object struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"display"`
	Type        signature.ObjType `json:"type"`
	DocName     string            `json:"doc"`
	RefName     string            `json:"ref"`
	Priority    int               `json:"priority"`
}

// Objects enumerates modules (priority 0) followed by every inventory name
// of every entry (priority 1), in a stable order. Names repeated across
// entries are emitted once per entry.
func (r *Registry) Objects() []Object {
	var out []Object
	for _, m := range r.Modules() {
		out = append(out, Object{
			Name:        m.Name,
			DisplayName: m.Name,
			Type:        signature.Module,
			DocName:     m.DocName,
			RefName:     m.Anchor(),
			Priority:    0,
		})
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	r.walk(func(k Key, e *Entry) {
		for _, name := range e.InventoryNames(k.Arity, k.Flavor) {
			out = append(out, Object{
				Name:        name,
				DisplayName: name,
				Type:        e.ObjType,
				DocName:     e.DocName,
				RefName:     e.RefName,
				Priority:    1,
			})
		}
	})
	return out
}
