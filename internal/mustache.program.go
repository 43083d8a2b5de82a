package internal

import (
	"fmt"
	"strings"
)

// OpKind identifies a render operation
type OpKind int

// Op kind constants
const (
	OpKindLiteral OpKind = iota
	OpKindVariable
	OpKindPartial
	OpKindSection
)

// Op kind string names for debugging
const (
	OpKindNameLiteral  = "LITERAL"
	OpKindNameVariable = "VARIABLE"
	OpKindNamePartial  = "PARTIAL"
	OpKindNameSection  = "SECTION"
)

// String returns the string representation of the op kind
func (k OpKind) String() string {
	switch k {
	case OpKindVariable:
		return OpKindNameVariable
	case OpKindPartial:
		return OpKindNamePartial
	case OpKindSection:
		return OpKindNameSection
	default:
		return OpKindNameLiteral
	}
}

// Op is one compiled render operation. The set of implementations is
// closed: LiteralOp, VariableOp, PartialOp and SectionOp.
type Op interface {
	Kind() OpKind
	fmt.Stringer
}

// Program is the ordered sequence of operations produced by one compile.
// An empty program renders nothing.
type Program []Op

// String returns a one-op-per-line dump of the program
func (p Program) String() string {
	var sb strings.Builder
	for i, op := range p {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(op.String())
	}
	return sb.String()
}

// LiteralOp writes fixed text
type LiteralOp struct {
	Text string
}

// Kind returns OpKindLiteral
func (LiteralOp) Kind() OpKind { return OpKindLiteral }

func (o LiteralOp) String() string {
	return fmt.Sprintf("%s %q", OpKindNameLiteral, o.Text)
}

// VariableOp writes a resolved value, HTML-escaped unless Escape is false
type VariableOp struct {
	Name   string
	Escape bool
}

// Kind returns OpKindVariable
func (VariableOp) Kind() OpKind { return OpKindVariable }

func (o VariableOp) String() string {
	return fmt.Sprintf("%s %s escape=%t", OpKindNameVariable, o.Name, o.Escape)
}

// PartialOp renders a registered partial. The program is looked up in the
// registry at render time so recursive partials see the final program.
type PartialOp struct {
	Name     string
	Registry *Registry
}

// Kind returns OpKindPartial
func (PartialOp) Kind() OpKind { return OpKindPartial }

func (o PartialOp) String() string {
	return fmt.Sprintf("%s %s", OpKindNamePartial, o.Name)
}

// SectionOp renders Body depending on the value bound to Name. Source,
// Delims, Pragmas and Registry are kept for higher-order sections, which
// compile fragments at render time.
type SectionOp struct {
	Name     string
	Inverted bool
	Body     Program
	Source   string
	Delims   Delimiters
	Pragmas  Pragmas
	Registry *Registry
	Compiler *Compiler
}

// Kind returns OpKindSection
func (SectionOp) Kind() OpKind { return OpKindSection }

func (o SectionOp) String() string {
	return fmt.Sprintf("%s %s inverted=%t ops=%d", OpKindNameSection, o.Name, o.Inverted, len(o.Body))
}
