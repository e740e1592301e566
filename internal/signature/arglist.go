package signature

import (
	"fmt"
	"strings"
)

// ArgKind tells whether an argument must be supplied.
type ArgKind int

const (
	Mandatory ArgKind = iota
	Optional
)

func (k ArgKind) String() string {
	if k == Optional {
		return "optional"
	}
	return "mandatory"
}

// Arg is one fragment of an argument list.
type Arg struct {
	Kind ArgKind `json:"kind"`
	Text string  `json:"text"`
}

// optGroup marks an open optional-argument group on the bracket stack.
const optGroup = 'o'

var closerFor = map[byte]byte{'(': ')', '{': '}', '[': ']', optGroup: ']'}

// SplitArgs splits the text between the parentheses of an argument list into
// fragments. Brackets nest; a top-level comma ends a fragment. An optional
// group is opened by "[," ("A [, B]") or by a comma directly followed by "["
// ("A, [B]"); fragments ended inside an open group are optional.
//
// A blank fragment ended by a comma or by "[," is kept, so "(, A)" has two
// arguments. One ended by "]" or by the end of the text is dropped, as is the
// gap between a closed group and the comma after it.
func SplitArgs(text string) ([]Arg, error) {
	var (
		args   []Arg
		buf    strings.Builder
		stack  []byte
		closed bool
	)

	emit := func(keepBlank bool) {
		t := strings.TrimSpace(buf.String())
		buf.Reset()
		wasClosed := closed
		closed = false
		if t == "" && (!keepBlank || wasClosed) {
			return
		}
		kind := Mandatory
		if len(stack) > 0 {
			kind = Optional
		}
		args = append(args, Arg{Kind: kind, Text: t})
	}
	atGroupLevel := func() bool {
		return len(stack) == 0 || stack[len(stack)-1] == optGroup
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case ',':
			if !atGroupLevel() {
				buf.WriteByte(c)
				continue
			}
			emit(true)
			if j := skipSpace(text, i+1); j < len(text) && text[j] == '[' {
				stack = append(stack, optGroup)
				i = j
			}
		case '[':
			if j := skipSpace(text, i+1); atGroupLevel() && j < len(text) && text[j] == ',' {
				emit(true)
				stack = append(stack, optGroup)
				i = j
				continue
			}
			stack = append(stack, c)
			buf.WriteByte(c)
		case '(', '{':
			stack = append(stack, c)
			buf.WriteByte(c)
		case ')', '}', ']':
			if len(stack) == 0 {
				return nil, fmt.Errorf("unbalanced %q at offset %d", c, i)
			}
			open := stack[len(stack)-1]
			if closerFor[open] != c {
				return nil, fmt.Errorf("mismatched %q at offset %d", c, i)
			}
			if open == optGroup {
				emit(false)
				closed = true
				stack = stack[:len(stack)-1]
				continue
			}
			stack = stack[:len(stack)-1]
			buf.WriteByte(c)
		default:
			buf.WriteByte(c)
		}
	}

	if len(stack) > 0 {
		open := stack[len(stack)-1]
		if open == optGroup {
			open = '['
		}
		return nil, fmt.Errorf("unclosed %q", open)
	}
	emit(false)
	return args, nil
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}

// arityOf derives arity and arity_max from an argument list.
func arityOf(args []Arg) (int, *int) {
	n := 0
	for _, a := range args {
		if a.Kind == Mandatory {
			n++
		}
	}
	if n == len(args) {
		return n, nil
	}
	total := len(args)
	return n, &total
}
