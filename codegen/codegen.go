// Package codegen walks a parsed syntax tree and emits C++ source text that
// reproduces the script's behavior on top of the rt:: runtime library. The
// translation is a single sequential tree walk per unit: expression handlers
// return a value-expression string and hoist any side-effecting preparation
// into the current statement frame, statement handlers append finished lines.
package codegen

import (
	"errors"
	"fmt"

	"moonc/ast"
	"moonc/trace"
)

// maxDepth bounds the recursive walk. The parser never produces trees this
// deep; hitting the guard means a cyclic or pathological input.
const maxDepth = 50

var (
	// ErrMalformedTree reports a node missing a child the grammar
	// guarantees, which indicates a parser defect rather than
	// unsupported syntax.
	ErrMalformedTree = errors.New("malformed syntax tree")

	// ErrTooDeep reports that translation exceeded the recursion guard.
	ErrTooDeep = errors.New("tree too deep")
)

// Options adjust how a single node is translated.
type Options struct {
	// Lambda marks function nodes translated in expression position;
	// they become C++ lambda values instead of named declarations.
	Lambda bool

	// NoBraces renders a block's statements into the current frame
	// instead of a braced sub-block.
	NoBraces bool

	// MultiRet asks a call-shaped node for its full result list: the
	// handler returns the shared result buffer's name instead of
	// extracting the first value into a temporary.
	MultiRet bool
}

// handler translates one node kind.
type handler func(c *Context, n *ast.Node, depth int, opts Options) (string, error)

var handlers map[ast.Kind]handler

func init() {
	// Populated here rather than in a var block so handlers may refer
	// back to Translate without an initialization cycle.
	handlers = map[ast.Kind]handler{
		ast.KindProgram: translateProgram,
		ast.KindBlock:   translateBlockNode,

		ast.KindNil:    translateNilLit,
		ast.KindTrue:   translateTrueLit,
		ast.KindFalse:  translateFalseLit,
		ast.KindNumber: translateNumber,
		ast.KindString: translateString,
		ast.KindVararg: translateVararg,

		ast.KindName:   translateName,
		ast.KindUnary:  translateUnary,
		ast.KindBinary: translateBinary,
		ast.KindMember: translateMember,
		ast.KindIndex:  translateIndex,
		ast.KindTable:  translateTable,

		ast.KindCall:       translateCall,
		ast.KindMethodCall: translateMethodCall,
		ast.KindFunction:   translateFunction,
		ast.KindMethodDecl: translateMethodDecl,

		ast.KindLocal:      translateLocal,
		ast.KindAssign:     translateAssign,
		ast.KindIf:         translateIf,
		ast.KindWhile:      translateWhile,
		ast.KindRepeat:     translateRepeat,
		ast.KindNumericFor: translateNumericFor,
		ast.KindGenericFor: translateGenericFor,
		ast.KindBreak:      translateBreak,
		ast.KindLabel:      translateLabel,
		ast.KindGoto:       translateGoto,
		ast.KindReturn:     translateReturn,
	}
}

// Translate dispatches a node to its kind handler. Expression handlers
// return a string the caller can splice as a value; statement handlers
// append lines to the current frame and return "". An unrecognized kind is
// not fatal: it is logged and lowered to an inert nil placeholder so the
// rest of the unit still translates.
func Translate(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	if n == nil {
		return "", fmt.Errorf("nil node: %w", ErrMalformedTree)
	}
	if depth > maxDepth {
		return "", fmt.Errorf("depth %d at %s node: %w", depth, n.Kind, ErrTooDeep)
	}
	h, ok := handlers[n.Kind]
	if !ok {
		trace.Unsupported(n.Kind.String(), n.Name)
		return "rt::nil", nil
	}
	return h(c, n, depth, opts)
}

// requireChild fetches a guaranteed child or fails with ErrMalformedTree.
func requireChild(n *ast.Node, i int, what string) (*ast.Node, error) {
	child := n.Child(i)
	if child == nil {
		return nil, fmt.Errorf("%s node missing %s: %w", n.Kind, what, ErrMalformedTree)
	}
	return child, nil
}
