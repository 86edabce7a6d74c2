// Package ast defines the node tree the execution layer renders. A parser
// produces the tree; nodes are immutable after construction except for the
// lazily computed trimmed text cache on Text nodes.
package ast

import (
	"github.com/kaqq/fluid/value"
)

// Node is the interface implemented by all AST nodes.
type Node interface {
	node()
}

// Statement represents a statement node.
type Statement interface {
	Node
	stmt()
}

// Expression represents an expression node.
type Expression interface {
	Node
	expr()
}

// Template is the root node of a parsed template.
type Template struct {
	Statements []Statement
}

// --- Statement Types ---

// Output writes an expression result to the sink.
type Output struct {
	Expr Expression
}

func (o *Output) node() {}
func (o *Output) stmt() {}

// For iterates a source expression, binding the loop variable by name in a
// scope pushed per loop.
type For struct {
	Identifier string
	Source     Expression
	Body       []Statement
}

func (f *For) node() {}
func (f *For) stmt() {}

// If is a conditional with optional elsif chain and else branch.
type If struct {
	Condition Expression
	Body      []Statement
	ElseIfs   []ElseIf
	Else      []Statement
}

// ElseIf is one elsif arm of an If statement.
type ElseIf struct {
	Condition Expression
	Body      []Statement
}

func (i *If) node() {}
func (i *If) stmt() {}

// Macro declares a named, parameterized body that renders to a string when
// invoked.
type Macro struct {
	Identifier string
	Params     []MacroParam
	Body       []Statement
}

// MacroParam is one declared macro parameter with an optional default.
type MacroParam struct {
	Name    string
	Default Expression
}

func (m *Macro) node() {}
func (m *Macro) stmt() {}

// Break exits the nearest enclosing loop.
type Break struct{}

func (b *Break) node() {}
func (b *Break) stmt() {}

// Continue skips to the next iteration of the nearest enclosing loop.
type Continue struct{}

func (c *Continue) node() {}
func (c *Continue) stmt() {}

// --- Expression Types ---

// Literal is a constant value.
type Literal struct {
	Value value.Value
}

func (l *Literal) node() {}
func (l *Literal) expr() {}

// Range produces an inclusive integer sequence, e.g. (1..5).
type Range struct {
	From Expression
	To   Expression
}

func (r *Range) node() {}
func (r *Range) expr() {}

// Member is a root identifier followed by ordered access segments.
type Member struct {
	Name     string
	Segments []MemberSegment
}

func (m *Member) node() {}
func (m *Member) expr() {}

// MemberSegment is one step of a member chain. The set is closed; a segment
// outside it indicates a malformed tree.
type MemberSegment interface {
	segment()
}

// IdentifierSegment accesses a named member (a.b).
type IdentifierSegment struct {
	Name string
}

func (s *IdentifierSegment) segment() {}

// IndexerSegment accesses by computed key (a[expr]).
type IndexerSegment struct {
	Index Expression
}

func (s *IndexerSegment) segment() {}

// CallSegment invokes the value resolved so far (a.fn(x, y: 1)).
type CallSegment struct {
	Args []CallArg
}

func (s *CallSegment) segment() {}

// CallArg is one argument of a call segment or filter: positional when Name
// is empty, named otherwise.
type CallArg struct {
	Name  string
	Value Expression
}

// Filter applies a named filter to an input expression.
type Filter struct {
	Input Expression
	Name  string
	Args  []CallArg
}

func (f *Filter) node() {}
func (f *Filter) expr() {}

// BinaryOp identifies a binary expression's operator.
type BinaryOp int

const (
	OpEqual BinaryOp = iota
	OpNotEqual
	OpAnd
	OpOr
	OpContains
	OpLowerThan
	OpGreaterThan
	OpStartsWith
	OpEndsWith
)

func (op BinaryOp) String() string {
	switch op {
	case OpEqual:
		return "=="
	case OpNotEqual:
		return "!="
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpContains:
		return "contains"
	case OpLowerThan:
		return "<"
	case OpGreaterThan:
		return ">"
	case OpStartsWith:
		return "startswith"
	case OpEndsWith:
		return "endswith"
	default:
		return "?"
	}
}

// Binary is a binary expression. Strict applies to the ordering operators:
// strict lower-than is <, non-strict is <=.
type Binary struct {
	Op     BinaryOp
	Strict bool
	Left   Expression
	Right  Expression
}

func (b *Binary) node() {}
func (b *Binary) expr() {}
