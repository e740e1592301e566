package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jj1bdx/erldoc/internal/signature"
)

// NoArity is the arity key of declarations that state no arity and whose
// namespace does not require an argument list (records, bare macros).
const NoArity = -1

// Key addresses one stored entry.
type Key struct {
	Namespace signature.Namespace `json:"namespace"`
	QName     string              `json:"qname"`
	Arity     int                 `json:"arity"`
	Flavor    string              `json:"flavor,omitempty"`
}

func (k Key) String() string {
	s := k.QName
	if k.Arity != NoArity {
		s += fmt.Sprintf("/%d", k.Arity)
	}
	if k.Flavor != "" {
		s += " {flavor=" + k.Flavor + "}"
	}
	return string(k.Namespace) + ":" + s
}

// Meta is what the caller knows about where a declaration came from.
type Meta struct {
	DocName    string
	Deprecated bool
	Line       int
}

// Entry is one registered object. Lookups return copies.
type Entry struct {
	DocName     string               `json:"doc"`
	Deprecated  bool                 `json:"deprecated,omitempty"`
	Signature   *signature.Signature `json:"signature"`
	RefName     string               `json:"ref"`
	Line        int                  `json:"line"`
	DisplayName string               `json:"display"`
	ObjType     signature.ObjType    `json:"objtype"`
}

func newEntry(sig *signature.Signature, meta Meta, refName string) *Entry {
	disp := sig.DisplayName()
	if meta.Deprecated {
		disp += " (deprecated)"
	}
	return &Entry{
		DocName:     meta.DocName,
		Deprecated:  meta.Deprecated,
		Signature:   sig,
		RefName:     refName,
		Line:        meta.Line,
		DisplayName: disp,
		ObjType:     sig.ObjType,
	}
}

func (e *Entry) copy() Entry {
	c := *e
	c.Signature = e.Signature.Clone()
	return c
}

// DuplicateEntryError reports a declaration whose (name, arity, flavor) was
// already registered. The earlier declaration is kept.
type DuplicateEntryError struct {
	ObjType  signature.ObjType
	Key      Key
	PrevDoc  string
	PrevLine int
}

func (e *DuplicateEntryError) Error() string {
	name := e.Key.QName
	if e.Key.Arity != NoArity {
		name += fmt.Sprintf("/%d", e.Key.Arity)
	}
	if e.Key.Flavor != "" {
		name += " {flavor=" + e.Key.Flavor + "}"
	}
	return fmt.Sprintf("duplicate Erlang %s description of %s, other instance in %s line %d",
		e.ObjType, name, e.PrevDoc, e.PrevLine)
}

// InsertResult lists what an Insert stored and what it rejected.
type InsertResult struct {
	RefName    string
	Stored     []Key
	Duplicates []*DuplicateEntryError
}

type flavors map[string]*Entry
type arities map[int]flavors

// Registry is the object inventory of one build: namespace, qualified
// name, arity key and flavor key down to an entry. A single lock guards it.
type Registry struct {
	mu      sync.RWMutex
	objects map[signature.Namespace]map[string]arities
	modules map[string]Module
}

func New() *Registry {
	r := &Registry{
		objects: make(map[signature.Namespace]map[string]arities),
		modules: make(map[string]Module),
	}
	for _, ns := range signature.Namespaces {
		r.objects[ns] = make(map[string]arities)
	}
	return r
}

// arityRange lists the arity keys a declaration occupies. Ranges are cut at
// signature.MaxArity; Parse never yields a larger one.
func arityRange(sig *signature.Signature) []int {
	switch {
	case sig.Arity != nil && sig.ArityMax != nil:
		lo, hi := max(*sig.Arity, 0), min(*sig.ArityMax, signature.MaxArity)
		if lo > hi {
			return nil
		}
		out := make([]int, 0, hi-lo+1)
		for a := lo; a <= hi; a++ {
			out = append(out, a)
		}
		return out
	case sig.Arity != nil:
		return []int{*sig.Arity}
	case sig.Namespace.ArgListMandatory():
		return []int{0}
	default:
		return []int{NoArity}
	}
}

// Insert registers sig under every arity it covers. The signature must have
// its module resolved. For each arity, the first declaration of a flavor wins;
// a flavored declaration also provides the default-flavor entry when none
// exists yet. The registry keeps its own copy of sig.
func (r *Registry) Insert(sig *signature.Signature, meta Meta) InsertResult {
	sig = sig.Clone()
	ns := sig.Namespace
	refName := signature.RefName(ns, sig.FullName())
	res := InsertResult{RefName: refName}

	var defaultSig *signature.Signature
	var defaultRef string
	if sig.Flavor != "" {
		defaultSig = sig.Clone()
		defaultSig.Flavor = ""
		defaultSig.ExplicitFlavor = false
		defaultRef = signature.RefName(ns, defaultSig.FullName())
	}

	qname := sig.Module + ":" + sig.Name

	r.mu.Lock()
	defer r.mu.Unlock()

	byName := r.objects[ns]
	ars := byName[qname]
	if ars == nil {
		ars = make(arities)
	}

	for _, arity := range arityRange(sig) {
		fl := ars[arity]
		if fl == nil {
			fl = make(flavors)
			ars[arity] = fl
		}
		key := Key{Namespace: ns, QName: qname, Arity: arity, Flavor: sig.Flavor}
		if prev, ok := fl[sig.Flavor]; ok {
			res.Duplicates = append(res.Duplicates, &DuplicateEntryError{
				ObjType:  sig.ObjType,
				Key:      key,
				PrevDoc:  prev.DocName,
				PrevLine: prev.Line,
			})
			continue
		}
		fl[sig.Flavor] = newEntry(sig, meta, refName)
		res.Stored = append(res.Stored, key)

		if _, ok := fl[""]; !ok && defaultSig != nil {
			fl[""] = newEntry(defaultSig, meta, defaultRef)
			res.Stored = append(res.Stored, Key{Namespace: ns, QName: qname, Arity: arity})
		}
	}

	if len(ars) > 0 {
		byName[qname] = ars
	}
	return res
}

// RemoveDocument drops every object and module owned by doc and prunes the
// levels it leaves empty. It returns the number of objects removed.
func (r *Registry) RemoveDocument(doc string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, m := range r.modules {
		if m.DocName == doc {
			delete(r.modules, name)
		}
	}

	removed := 0
	for _, byName := range r.objects {
		for qname, ars := range byName {
			for arity, fl := range ars {
				for flavor, e := range fl {
					if e.DocName == doc {
						delete(fl, flavor)
						removed++
					}
				}
				if len(fl) == 0 {
					delete(ars, arity)
				}
			}
			if len(ars) == 0 {
				delete(byName, qname)
			}
		}
	}
	return removed
}

// Lookup returns a copy of the entry stored under k.
func (r *Registry) Lookup(k Key) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.objects[k.Namespace][k.QName][k.Arity][k.Flavor]
	if !ok {
		return Entry{}, false
	}
	return e.copy(), true
}

// Arities returns the sorted arity keys registered for qname.
func (r *Registry) Arities(ns signature.Namespace, qname string) []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedArities(r.objects[ns][qname])
}

// Len counts stored object entries, synthesized defaults included.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, byName := range r.objects {
		for _, ars := range byName {
			for _, fl := range ars {
				n += len(fl)
			}
		}
	}
	return n
}

// StoredEntry pairs an entry with its key.
type StoredEntry struct {
	Key   Key   `json:"key"`
	Entry Entry `json:"entry"`
}

// Entries returns copies of every stored entry in key order. An empty doc
// selects all documents.
func (r *Registry) Entries(doc string) []StoredEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []StoredEntry
	r.walk(func(k Key, e *Entry) {
		if doc == "" || e.DocName == doc {
			out = append(out, StoredEntry{Key: k, Entry: e.copy()})
		}
	})
	return out
}

// walk visits entries in deterministic order. Callers hold the lock.
func (r *Registry) walk(fn func(Key, *Entry)) {
	for _, ns := range signature.Namespaces {
		byName := r.objects[ns]
		qnames := make([]string, 0, len(byName))
		for q := range byName {
			qnames = append(qnames, q)
		}
		sort.Strings(qnames)
		for _, q := range qnames {
			ars := byName[q]
			for _, a := range sortedArities(ars) {
				fl := ars[a]
				keys := make([]string, 0, len(fl))
				for f := range fl {
					keys = append(keys, f)
				}
				sort.Strings(keys)
				for _, f := range keys {
					fn(Key{Namespace: ns, QName: q, Arity: a, Flavor: f}, fl[f])
				}
			}
		}
	}
}

func sortedArities(ars arities) []int {
	if len(ars) == 0 {
		return nil
	}
	out := make([]int, 0, len(ars))
	for a := range ars {
		out = append(out, a)
	}
	sort.Ints(out)
	return out
}
