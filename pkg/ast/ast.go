// Package ast defines the node types produced by the parser and consumed
// by the bytecode compiler.
package ast

import (
	"math/big"

	"github.com/chazu/slither/pkg/lexer"
)

// Node is implemented by every AST node.
type Node interface {
	node()
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// Ident is a bare name reference.
type Ident struct {
	Name string
	Line int
}

// IntLit is an integer literal. The value is arbitrary precision.
type IntLit struct {
	Value *big.Int
}

// FloatLit is a floating-point literal.
type FloatLit struct {
	Value float64
}

// StrLit is a string literal with escapes already resolved.
type StrLit struct {
	Value string
}

// BoolLit is True or False.
type BoolLit struct {
	Value bool
}

// NoneLit is the None literal.
type NoneLit struct{}

// Unary is a prefix operation. Op is the operator token type (MINUS).
type Unary struct {
	Op      lexer.TokenType
	Operand Node
}

// Binary is an infix arithmetic or comparison operation.
type Binary struct {
	Op    lexer.TokenType
	Left  Node
	Right Node
}

// Assign is a plain or compound assignment. Op is ASSIGN, PLUSEQ, MINUSEQ,
// STAREQ, or SLASHEQ. Target must be an *Ident; the compiler rejects
// anything else.
type Assign struct {
	Op     lexer.TokenType
	Target Node
	Value  Node
	Line   int
}

// Call invokes a callee expression with positional arguments. The callee
// is an *Ident for free calls and an *Attr for member calls.
type Call struct {
	Callee Node
	Args   []Node
}

// Attr is member access: Target.Name.
type Attr struct {
	Target Node
	Name   string
}

// ListLit is an ordered, mutable collection literal.
type ListLit struct {
	Elems []Node
}

// TupleLit is an ordered, immutable collection literal.
type TupleLit struct {
	Elems []Node
}

// SetLit is a set literal.
type SetLit struct {
	Elems []Node
}

// DictLit pairs Keys[i] with Values[i] in source order.
type DictLit struct {
	Keys   []Node
	Values []Node
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// ElifArm is one elif clause of an If chain.
type ElifArm struct {
	Cond Node
	Body []Node
}

// If is an if/elif/else chain. Else is nil when absent.
type If struct {
	Cond  Node
	Body  []Node
	Elifs []ElifArm
	Else  []Node
}

// While is a condition-guarded loop.
type While struct {
	Cond Node
	Body []Node
}

// For is iteration over a container: for Var in Iter.
type For struct {
	Var  string
	Iter Node
	Body []Node
}

// FuncDef defines a named function with positional parameters.
type FuncDef struct {
	Name   string
	Params []string
	Body   []Node
}

// ClassDef defines a class. Its body holds field assignments and method
// definitions.
type ClassDef struct {
	Name string
	Body []Node
}

// Return exits the enclosing function. Value is nil for a bare return.
type Return struct {
	Value Node
}

// Pass is the empty statement.
type Pass struct{}

// Import binds a module by name: import maths.
type Import struct {
	Module string
}

// FromImport binds selected names out of a module: from maths import sqrt.
type FromImport struct {
	Module string
	Names  []string
}

func (*Ident) node()      {}
func (*IntLit) node()     {}
func (*FloatLit) node()   {}
func (*StrLit) node()     {}
func (*BoolLit) node()    {}
func (*NoneLit) node()    {}
func (*Unary) node()      {}
func (*Binary) node()     {}
func (*Assign) node()     {}
func (*Call) node()       {}
func (*Attr) node()       {}
func (*ListLit) node()    {}
func (*TupleLit) node()   {}
func (*SetLit) node()     {}
func (*DictLit) node()    {}
func (*If) node()         {}
func (*While) node()      {}
func (*For) node()        {}
func (*FuncDef) node()    {}
func (*ClassDef) node()   {}
func (*Return) node()     {}
func (*Pass) node()       {}
func (*Import) node()     {}
func (*FromImport) node() {}
