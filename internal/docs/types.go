package docs

// FrontMatter is the YAML header of a source document.
type FrontMatter struct {
	// Module is the current module at the start of the document.
	Module string `yaml:"module"`
	// Orphan documents are not expected to be linked from anywhere.
	Orphan bool   `yaml:"orphan"`
	Title  string `yaml:"title"`
}

// SegmentKind distinguishes the parts of a document.
type SegmentKind int

const (
	// SegmentText is Markdown passed through with its roles rewritten.
	SegmentText SegmentKind = iota
	// SegmentDirective is a fenced {erl:...} block.
	SegmentDirective
)

// Segment is a run of Markdown or one directive.
type Segment struct {
	Kind      SegmentKind
	Text      string
	Line      int
	Directive *Directive
}

// Argument is one argument line of a directive.
type Argument struct {
	Text string
	Line int
}

// Directive is a fenced block whose info string is {erl:<name>}.
type Directive struct {
	Name      string
	Arguments []Argument
	Options   map[string]string
	Body      []Segment
	Line      int
}

// HasOption reports whether the directive sets the named option.
func (d *Directive) HasOption(name string) bool {
	_, ok := d.Options[name]
	return ok
}

// Document is a parsed source document. Name is its slash-separated path
// relative to the source directory, without the .md extension.
type Document struct {
	Name        string
	FrontMatter FrontMatter
	Segments    []Segment
	Hash        string
}
