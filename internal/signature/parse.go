package signature

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrGrammar matches every *GrammarError.
var ErrGrammar = errors.New("invalid signature")

// GrammarError reports a signature that does not match the grammar or breaks
// a constraint of its namespace.
type GrammarError struct {
	Namespace Namespace
	ObjType   ObjType // set by callers that know the declaration kind
	Text      string
	Reason    string
}

func (e *GrammarError) Error() string {
	decl := string(e.ObjType)
	if decl == "" {
		decl = string(e.Namespace)
	}
	if e.Reason == "" {
		return fmt.Sprintf("invalid signature for Erlang %s description: %s", decl, e.Text)
	}
	return fmt.Sprintf("invalid signature for Erlang %s description: %s (%s)", decl, e.Text, e.Reason)
}

func (e *GrammarError) Is(target error) bool {
	return target == ErrGrammar
}

// Signature is a parsed declaration.
type Signature struct {
	Namespace        Namespace `json:"namespace"`
	ObjType          ObjType   `json:"objtype,omitempty"`
	Module           string    `json:"module,omitempty"`
	Sigil            string    `json:"sigil,omitempty"`
	Name             string    `json:"name"`
	Arity            *int      `json:"arity,omitempty"`
	ArityMax         *int      `json:"arity_max,omitempty"`
	ArgText          *string   `json:"arg_text,omitempty"`
	Args             []Arg     `json:"args,omitempty"`
	Flavor           string    `json:"flavor,omitempty"`
	ExplicitFlavor   bool      `json:"explicit_flavor,omitempty"`
	Guard            string    `json:"guard,omitempty"`
	ReturnAnnotation string    `json:"return_annotation,omitempty"`
	RecordBody       string    `json:"record_body,omitempty"`
}

// MaxArity is the largest arity the Erlang runtime accepts.
const MaxArity = 255

// parseArity reads a decimal arity and bounds it by MaxArity.
func parseArity(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n > MaxArity {
		return 0, fmt.Errorf("%d exceeds the maximum arity %d", n, MaxArity)
	}
	return n, nil
}

const (
	atomPat = `[a-z]\w*|'[-\w.]+'`
	namePat = `[a-zA-Z_]\w*|'[-\w.]+'`
)

var signatureRe = regexp.MustCompile(`^` +
	// module qualifier
	`(?:(?P<modname>` + atomPat + `)\s*:\s*)?` +
	// sigil and name
	`(?P<sigil>[#?])?(?P<name>` + namePat + `)\s*` +
	`(?:` +
	`(?:` +
	`/\s*(?P<arity>\d+)(?:\.\.(?P<arity_max>\d+))?\s*` +
	`|` +
	`\(\s*(?P<arg_text>.*?)\s*\)\s*` +
	`)` +
	`(?:` +
	`@\s*(?P<flavor>` + namePat + `)\s*` +
	`|` +
	`\[\s*@\s*(?P<implicit_flavor>` + namePat + `)\s*\]\s*` +
	`)?` +
	`(?:when\s*(?P<when_text>.+?)\s*)?` +
	`(?:->\s*(?P<ret_ann>\S.*?)\s*)?` +
	`|` +
	`(?P<record>\{\s*(?P<rec_decl>\S.*?)?\s*\}\s*)` +
	`)?` +
	// terminal period
	`\.?$`)

var fullNameRe = regexp.MustCompile(`^` +
	`(?P<modname>` + atomPat + `)` +
	`:` +
	`(?P<name>` + namePat + `)` +
	`(?:/(?P<arity>\d+)(?:\.\.(?P<arity_max>\d+))?)?` +
	`$`)

// submatches maps named groups to their text; groups that did not take part
// in the match are absent.
func submatches(re *regexp.Regexp, s string) map[string]string {
	idx := re.FindStringSubmatchIndex(s)
	if idx == nil {
		return nil
	}
	groups := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if name == "" || idx[2*i] < 0 {
			continue
		}
		groups[name] = s[idx[2*i]:idx[2*i+1]]
	}
	return groups
}

// Parse parses a signature declared in namespace ns.
func Parse(text string, ns Namespace) (*Signature, error) {
	fail := func(reason string) (*Signature, error) {
		return nil, &GrammarError{Namespace: ns, Text: text, Reason: reason}
	}

	r, ok := rulesFor(ns)
	if !ok {
		return fail("unknown namespace")
	}

	g := submatches(signatureRe, text)
	if g == nil {
		return fail("")
	}

	sig := &Signature{Namespace: ns, Sigil: g["sigil"]}

	if mod, ok := g["modname"]; ok {
		canon, err := CanonAtom(mod)
		if err != nil {
			return fail("module: " + err.Error())
		}
		sig.Module = canon
	}

	var err error
	if ns == NSMacro {
		sig.Name, err = CanonName(g["name"])
	} else {
		sig.Name, err = CanonAtom(g["name"])
	}
	if err != nil {
		return fail(err.Error())
	}

	flavor, explicit := g["flavor"]
	if !explicit {
		flavor = g["implicit_flavor"]
	}
	if flavor != "" {
		if sig.Flavor, err = CanonAtom(flavor); err != nil {
			return fail("flavor: " + err.Error())
		}
		sig.ExplicitFlavor = explicit
	}

	if sig.Sigil != "" && sig.Sigil != r.sigil {
		return fail(fmt.Sprintf("sigil %q not allowed", sig.Sigil))
	}

	if s, ok := g["arity"]; ok {
		n, err := parseArity(s)
		if err != nil {
			return fail("arity: " + err.Error())
		}
		sig.Arity = &n
	}
	if s, ok := g["arity_max"]; ok {
		n, err := parseArity(s)
		if err != nil {
			return fail("arity: " + err.Error())
		}
		if sig.Arity != nil && *sig.Arity >= n {
			return fail(fmt.Sprintf("arity range %d..%d is empty", *sig.Arity, n))
		}
		sig.ArityMax = &n
	}

	body := bodyNone
	argText, hasArgs := g["arg_text"]
	_, hasRec := g["record"]
	switch {
	case sig.Arity != nil:
		body = bodyArity
	case hasArgs:
		body = bodyArgList
	case hasRec:
		body = bodyRecord
	}
	if !r.accepts(body) {
		return fail(body.String() + " not allowed")
	}
	sig.RecordBody = g["rec_decl"]

	if hasArgs {
		args, err := SplitArgs(argText)
		if err != nil {
			return fail(err.Error())
		}
		sig.ArgText = &argText
		sig.Args = args
		arity, arityMax := arityOf(args)
		if len(args) > MaxArity {
			return fail(fmt.Sprintf("%d arguments exceed the maximum arity %d", len(args), MaxArity))
		}
		sig.Arity = &arity
		sig.ArityMax = arityMax
	}

	if when, ok := g["when_text"]; ok {
		if !r.guard {
			return fail("guard not allowed")
		}
		sig.Guard = when
	}
	if ret, ok := g["ret_ann"]; ok {
		if !r.returnAnnotation {
			return fail("return annotation not allowed")
		}
		sig.ReturnAnnotation = ret
	}

	return sig, nil
}

// FullNameQuery is the result of parsing a fully-qualified name.
type FullNameQuery struct {
	Module   string
	Name     string
	Arity    *int
	ArityMax *int
}

// ParseFullName parses "module:name[/arity[..arity_max]]". The name is
// canonicalized with the name rule so macro names are accepted.
func ParseFullName(text string) (*FullNameQuery, error) {
	g := submatches(fullNameRe, text)
	if g == nil {
		return nil, &GrammarError{Text: text, Reason: "not a fully-qualified name"}
	}
	q := &FullNameQuery{}
	var err error
	if q.Module, err = CanonAtom(g["modname"]); err != nil {
		return nil, &GrammarError{Text: text, Reason: err.Error()}
	}
	if q.Name, err = CanonName(g["name"]); err != nil {
		return nil, &GrammarError{Text: text, Reason: err.Error()}
	}
	if s, ok := g["arity"]; ok {
		n, err := parseArity(s)
		if err != nil {
			return nil, &GrammarError{Text: text, Reason: "arity: " + err.Error()}
		}
		q.Arity = &n
	}
	if s, ok := g["arity_max"]; ok {
		n, err := parseArity(s)
		if err != nil {
			return nil, &GrammarError{Text: text, Reason: "arity: " + err.Error()}
		}
		if q.Arity != nil && *q.Arity >= n {
			return nil, &GrammarError{Text: text, Reason: fmt.Sprintf("arity range %d..%d is empty", *q.Arity, n)}
		}
		q.ArityMax = &n
	}
	return q, nil
}

// Arities lists the arities a range query covers; nil when it has no arity.
func (q *FullNameQuery) Arities() []int {
	if q.Arity == nil {
		return nil
	}
	if q.ArityMax == nil {
		return []int{*q.Arity}
	}
	var out []int
	for a := *q.Arity; a <= *q.ArityMax; a++ {
		out = append(out, a)
	}
	return out
}
