// Package doc provides indent-aware pretty-printing primitives used by
// the low-level IR printer and the CUDA codegen backend.
//
// Grounded on hidet's utils/doc.py: a Doc is a flat token list where a
// newline token carries its own indent level, so nesting a Doc just
// bumps every newline it contains.
package doc

import "strings"

// Doc is a sequence of text fragments and newline markers.
type Doc struct {
	tokens []token
}

type token struct {
	text    string
	newline bool
	indent  int
}

// DefaultIndent is the number of columns Indent adds per level when
// called with no explicit amount.
const DefaultIndent = 2

// Text returns a Doc holding a single literal fragment.
func Text(s string) Doc {
	return Doc{tokens: []token{{text: s}}}
}

// NewLine returns a Doc holding a single newline at the given indent.
func NewLine(indent int) Doc {
	return Doc{tokens: []token{{newline: true, indent: indent}}}
}

// Append concatenates other onto d in place and returns d.
func (d *Doc) Append(other Doc) *Doc {
	d.tokens = append(d.tokens, other.tokens...)
	return d
}

// Plus returns a new Doc that is d followed by other, without mutating
// either operand.
func (d Doc) Plus(other Doc) Doc {
	out := Doc{tokens: make([]token, 0, len(d.tokens)+len(other.tokens))}
	out.tokens = append(out.tokens, d.tokens...)
	out.tokens = append(out.tokens, other.tokens...)
	return out
}

// Indent returns a copy of d with every newline's indent increased by
// inc (DefaultIndent if inc < 0).
func (d Doc) Indent(inc int) Doc {
	if inc < 0 {
		inc = DefaultIndent
	}
	out := Doc{tokens: make([]token, len(d.tokens))}
	for i, t := range d.tokens {
		if t.newline {
			t.indent += inc
		}
		out.tokens[i] = t
	}
	return out
}

// Join concatenates docs with sep between consecutive elements.
func Join(docs []Doc, sep Doc) Doc {
	var out Doc
	for i, d := range docs {
		if i != 0 {
			out.Append(sep)
		}
		out.Append(d)
	}
	return out
}

// String renders the Doc to a single string.
func (d Doc) String() string {
	var b strings.Builder
	for _, t := range d.tokens {
		if t.newline {
			b.WriteByte('\n')
			b.WriteString(strings.Repeat(" ", t.indent))
		} else {
			b.WriteString(t.text)
		}
	}
	return b.String()
}
