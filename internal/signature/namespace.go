package signature

// Namespace groups object types that share a registry and a lookup role.
type Namespace string

const (
	NSCallback Namespace = "cb"
	NSFunction Namespace = "fn"
	NSMacro    Namespace = "macro"
	NSRecord   Namespace = "rec"
	NSType     Namespace = "ty"
)

// Namespaces lists every namespace in registry order.
var Namespaces = []Namespace{NSCallback, NSFunction, NSMacro, NSRecord, NSType}

// ObjType is the declaration kind of a documented object.
type ObjType string

const (
	Callback ObjType = "callback"
	Function ObjType = "function"
	Macro    ObjType = "macro"
	Opaque   ObjType = "opaque"
	Record   ObjType = "record"
	Type     ObjType = "type"
	Module   ObjType = "module"
)

var namespaceByObjType = map[ObjType]Namespace{
	Callback: NSCallback,
	Function: NSFunction,
	Macro:    NSMacro,
	Opaque:   NSType,
	Record:   NSRecord,
	Type:     NSType,
}

var namespaceByRole = map[string]Namespace{
	"callback": NSCallback,
	"func":     NSFunction,
	"macro":    NSMacro,
	"record":   NSRecord,
	"type":     NSType,
}

// NamespaceOf returns the namespace objects of type t are registered in.
func NamespaceOf(t ObjType) (Namespace, bool) {
	ns, ok := namespaceByObjType[t]
	return ns, ok
}

// NamespaceOfRole returns the namespace a cross-reference role searches.
// The "mod" role has no object namespace.
func NamespaceOfRole(role string) (Namespace, bool) {
	ns, ok := namespaceByRole[role]
	return ns, ok
}

// Label is the human-readable name of the object type, used in index entries.
func (t ObjType) Label() string {
	switch t {
	case Callback:
		return "callback function"
	case Function:
		return "function"
	case Macro:
		return "macro"
	case Opaque:
		return "opaque type"
	case Record:
		return "record"
	case Type:
		return "type"
	case Module:
		return "module"
	default:
		return string(t)
	}
}

// Role is the cross-reference role that links to objects of type t.
func (t ObjType) Role() string {
	switch t {
	case Callback:
		return "callback"
	case Function:
		return "func"
	case Macro:
		return "macro"
	case Opaque, Type:
		return "type"
	case Record:
		return "record"
	case Module:
		return "mod"
	default:
		return ""
	}
}

type bodyKind int

const (
	bodyNone bodyKind = iota
	bodyArity
	bodyArgList
	bodyRecord
)

func (k bodyKind) String() string {
	switch k {
	case bodyArity:
		return "arity"
	case bodyArgList:
		return "argument list"
	case bodyRecord:
		return "record body"
	default:
		return "none"
	}
}

// rules is the per-namespace constraint table.
type rules struct {
	sigil            string
	bodies           []bodyKind
	guard            bool
	returnAnnotation bool
	arglistMandatory bool
}

func (r rules) accepts(k bodyKind) bool {
	for _, b := range r.bodies {
		if b == k {
			return true
		}
	}
	return false
}

func rulesFor(ns Namespace) (rules, bool) {
	callable := []bodyKind{bodyArity, bodyArgList, bodyNone}
	switch ns {
	case NSCallback, NSFunction:
		return rules{bodies: callable, guard: true, returnAnnotation: true, arglistMandatory: true}, true
	case NSMacro:
		return rules{sigil: "?", bodies: callable, guard: true, returnAnnotation: true}, true
	case NSRecord:
		return rules{sigil: "#", bodies: []bodyKind{bodyRecord, bodyNone}}, true
	case NSType:
		return rules{bodies: callable, guard: true, arglistMandatory: true}, true
	default:
		return rules{}, false
	}
}

// Sigil returns the sigil used by the namespace, or "" if it has none.
func (ns Namespace) Sigil() string {
	r, _ := rulesFor(ns)
	return r.sigil
}

// ArgListMandatory reports whether declarations in ns always have an
// argument list, so an omitted one means zero arguments.
func (ns Namespace) ArgListMandatory() bool {
	r, _ := rulesFor(ns)
	return r.arglistMandatory
}
