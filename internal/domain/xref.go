package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jj1bdx/erldoc/internal/registry"
	"github.com/jj1bdx/erldoc/internal/signature"
)

// Roles lists every cross-reference role.
var Roles = []string{"callback", "func", "macro", "record", "type", "mod"}

// IsRole reports whether name is a cross-reference role.
func IsRole(name string) bool {
	for _, r := range Roles {
		if r == name {
			return true
		}
	}
	return false
}

// Link is a cross-reference as written in a document, after title processing.
type Link struct {
	Role   string `json:"role"`
	Title  string `json:"title"`
	Target string `json:"target"`
	// Module is the current module where the reference appears.
	Module string `json:"module,omitempty"`
	Line   int    `json:"line,omitempty"`
}

var implicitFlavorRe = regexp.MustCompile(`\s*\[\s*@\s*(?:[a-zA-Z_]\w*|'[-\w.]+')\s*\]\s*$`)

// ProcessLink normalizes the title and target of a role. Without an explicit
// title, a leading ':' is dropped from the title, a leading '~' is dropped
// from the target and, in the title, shortens it to the part after the last
// ':'. An implicit "[@flavor]" suffix never shows in the title.
func (d *Domain) ProcessLink(ctx *Context, role, title, target string, explicitTitle bool) Link {
	if !explicitTitle {
		title = strings.TrimLeft(title, ":")
		target = strings.TrimLeft(target, "~")
		if strings.HasPrefix(title, "~") {
			title = title[1:]
			if i := strings.LastIndex(title, ":"); i >= 0 {
				title = title[i+1:]
			}
		}
	}
	title = implicitFlavorRe.ReplaceAllString(title, "")
	return Link{Role: role, Title: title, Target: target, Module: ctx.Module()}
}

// ResolveXref resolves a processed link. References made outside any module
// are looked up in the default module. An arity range such as "f/1..3"
// resolves to its lowest arity only when every arity in it is documented.
func (d *Domain) ResolveXref(link Link) (registry.Target, bool) {
	module := link.Module
	if module == "" {
		module = d.DefaultModule
	}
	if query, ns, ok := rangeQuery(module, link); ok {
		targets, found := d.Registry.FindRange(ns, query)
		if !found {
			return registry.Target{}, false
		}
		return targets[0], true
	}
	return d.Registry.Find(module, link.Role, link.Target, 0)
}

// rangeQuery turns a link to an unflavored arity range into a fully-qualified
// name query.
func rangeQuery(module string, link Link) (string, signature.Namespace, bool) {
	ns, ok := signature.NamespaceOfRole(link.Role)
	if !ok {
		return "", "", false
	}
	sig, err := signature.Parse(link.Target, ns)
	if err != nil || sig.ArgText != nil || sig.ArityMax == nil || sig.Flavor != "" {
		return "", "", false
	}
	if sig.Module != "" {
		module = sig.Module
	}
	query := fmt.Sprintf("%s:%s/%d..%d", module, sig.Name, *sig.Arity, *sig.ArityMax)
	if _, err := signature.ParseFullName(query); err != nil {
		return "", "", false
	}
	return query, ns, true
}

// FullQualifiedName returns the interoperable identifier of target, or false
// if it does not parse in the role's namespace.
func FullQualifiedName(role, target string) (string, bool) {
	ns, ok := signature.NamespaceOfRole(role)
	if !ok {
		return "", false
	}
	sig, err := signature.Parse(target, ns)
	if err != nil {
		return "", false
	}
	return sig.FullQualifiedName(), true
}
