// Package ast defines the syntax-tree contract between the external parser
// and the code generator. A tree is a plain tagged structure: every node has
// a Kind, an optional literal payload, an optional name, and an ordered list
// of children. The vocabulary of kinds is closed; the generator rejects or
// placeholders anything outside it.
package ast

import "fmt"

// Kind identifies what a node represents
type Kind int

const (
	KindInvalid Kind = iota

	// Structure
	KindProgram // children: top-level statements
	KindBlock   // children: statements

	// Literals
	KindNil
	KindTrue
	KindFalse
	KindNumber // Literal: numeric text ("42", "1.5", "0x10")
	KindString // Literal: raw string contents (unescaped)
	KindVararg // "..." in expression position

	// Expressions
	KindName       // Name: identifier
	KindUnary      // Name: "-" "not" "#" "~"; children: [operand]
	KindBinary     // Name: operator; children: [left, right]
	KindMember     // Name: field; children: [object]
	KindIndex      // children: [object, key]
	KindTable      // children: fields (KeyedField, positional exprs, Vararg)
	KindKeyedField // Name: key (identifier form) with children [value], or children [key, value]
	KindCall       // children: [callee, args...]
	KindMethodCall // Name: method; children: [receiver, args...]
	KindFunction   // Name: "" for expression, function name for declaration; children: [Params, Block]

	// Statement helpers
	KindTargets // children: assignment targets
	KindValues  // children: value expressions
	KindParams  // children: parameter Names, optional trailing Vararg

	// Statements
	KindLocal      // children: [Targets, Values]
	KindAssign     // children: [Targets, Values]
	KindIf         // children: Branch nodes, optional trailing Else
	KindBranch     // children: [condition, Block]
	KindElse       // children: [Block]
	KindWhile      // children: [condition, Block]
	KindRepeat     // children: [Block, condition]
	KindNumericFor // Name: loop variable; children: [start, limit, Block] or [start, limit, step, Block]
	KindGenericFor // children: [Targets, Values, Block]
	KindBreak
	KindLabel      // Name: label
	KindGoto       // Name: label
	KindReturn     // children: returned expressions
	KindMethodDecl // Name: method; children: [receiver, Params, Block]

	kindMax
)

var kindNames = [...]string{
	KindInvalid:    "invalid",
	KindProgram:    "program",
	KindBlock:      "block",
	KindNil:        "nil",
	KindTrue:       "true",
	KindFalse:      "false",
	KindNumber:     "number",
	KindString:     "string",
	KindVararg:     "vararg",
	KindName:       "name",
	KindUnary:      "unary",
	KindBinary:     "binary",
	KindMember:     "member",
	KindIndex:      "index",
	KindTable:      "table",
	KindKeyedField: "field",
	KindCall:       "call",
	KindMethodCall: "methodcall",
	KindFunction:   "function",
	KindTargets:    "targets",
	KindValues:     "values",
	KindParams:     "params",
	KindLocal:      "local",
	KindAssign:     "assign",
	KindIf:         "if",
	KindBranch:     "branch",
	KindElse:       "else",
	KindWhile:      "while",
	KindRepeat:     "repeat",
	KindNumericFor: "fornum",
	KindGenericFor: "forin",
	KindBreak:      "break",
	KindLabel:      "label",
	KindGoto:       "goto",
	KindReturn:     "return",
	KindMethodDecl: "methoddecl",
}

func (k Kind) String() string {
	if k <= KindInvalid || k >= kindMax {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind maps the textual kind used in serialized trees back to a Kind.
// Returns KindInvalid for unknown text.
func ParseKind(s string) Kind {
	for k, name := range kindNames {
		if name == s && Kind(k) != KindInvalid {
			return Kind(k)
		}
	}
	return KindInvalid
}

// Node is one element of a parsed program tree. Nodes are constructed once
// by the parser and read-only afterwards; children are exclusively owned by
// their parent.
type Node struct {
	Kind     Kind
	Literal  string
	Name     string
	Children []*Node
}

// Child returns the i-th child, or nil if out of range.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// minChildren is the number of children the grammar guarantees per kind.
// A node below its minimum is a malformed tree, not unsupported syntax.
var minChildren = map[Kind]int{
	KindUnary:      1,
	KindBinary:     2,
	KindMember:     1,
	KindIndex:      2,
	KindKeyedField: 1,
	KindCall:       1,
	KindMethodCall: 1,
	KindFunction:   2,
	KindLocal:      2,
	KindAssign:     2,
	KindIf:         1,
	KindBranch:     2,
	KindElse:       1,
	KindWhile:      2,
	KindRepeat:     2,
	KindNumericFor: 3,
	KindGenericFor: 3,
	KindMethodDecl: 3,
}

// Validate walks the tree and reports the first structural problem: an
// out-of-vocabulary kind or a node missing children its kind requires.
func Validate(n *Node) error {
	if n == nil {
		return fmt.Errorf("nil node")
	}
	if n.Kind <= KindInvalid || n.Kind >= kindMax {
		return fmt.Errorf("node kind %d outside vocabulary", int(n.Kind))
	}
	if min, ok := minChildren[n.Kind]; ok && len(n.Children) < min {
		return fmt.Errorf("%s node has %d children, needs at least %d", n.Kind, len(n.Children), min)
	}
	for _, c := range n.Children {
		if err := Validate(c); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of nodes in the tree rooted at n.
func Count(n *Node) int {
	if n == nil {
		return 0
	}
	total := 1
	for _, c := range n.Children {
		total += Count(c)
	}
	return total
}

// KindCensus tallies node kinds in the tree rooted at n.
func KindCensus(n *Node, counts map[Kind]int) {
	if n == nil {
		return
	}
	counts[n.Kind]++
	for _, c := range n.Children {
		KindCensus(c, counts)
	}
}
