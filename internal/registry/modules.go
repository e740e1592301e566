package registry

import (
	"fmt"
	"sort"
)

// Module is a documented module.
type Module struct {
	Name       string `json:"name"`
	DocName    string `json:"doc"`
	Synopsis   string `json:"synopsis,omitempty"`
	Platform   string `json:"platform,omitempty"`
	Deprecated bool   `json:"deprecated,omitempty"`
}

// Anchor is the target id of the module's declaration.
func (m Module) Anchor() string {
	return ModuleAnchor(m.Name)
}

func ModuleAnchor(name string) string {
	return "module-" + name
}

// DuplicateModuleError reports a second declaration of a module name.
type DuplicateModuleError struct {
	Name    string
	PrevDoc string
}

func (e *DuplicateModuleError) Error() string {
	return fmt.Sprintf("duplicate Erlang module name of %s, other instance in %s", e.Name, e.PrevDoc)
}

// AddModule registers m unless its name is taken, in which case the first
// registration is kept and a *DuplicateModuleError is returned.
func (r *Registry) AddModule(m Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.modules[m.Name]; ok {
		return &DuplicateModuleError{Name: m.Name, PrevDoc: prev.DocName}
	}
	r.modules[m.Name] = m
	return nil
}

// Module returns the named module.
func (r *Registry) Module(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[name]
	return m, ok
}

// Modules returns every module sorted by name.
func (r *Registry) Modules() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Module, 0, len(r.modules))
	for _, m := range r.modules {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
