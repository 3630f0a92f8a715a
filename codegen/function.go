package codegen

import (
	"fmt"
	"strings"

	"moonc/ast"
)

// referencesName reports whether any name node in the tree refers to name.
// It deliberately overmatches shadowed uses; the cost is only an extra
// indirection on a binding that did not strictly need one.
func referencesName(n *ast.Node, name string) bool {
	if n == nil {
		return false
	}
	if n.Kind == ast.KindName && n.Name == name {
		return true
	}
	for _, c := range n.Children {
		if referencesName(c, name) {
			return true
		}
	}
	return false
}

// compileFunctionBody lowers a function body into a target closure with the
// fixed calling convention: arguments in, count, mutable result accumulator
// out. The reusable call-result buffer is declared once per function scope,
// parameters bind by positional extraction with nil-fill, and a self
// parameter is synthesized for method-shaped declarations.
func compileFunctionBody(c *Context, params, body *ast.Node, depth int, withSelf bool) (string, error) {
	var names []string
	varargs := false
	for i, p := range params.Children {
		switch p.Kind {
		case ast.KindName:
			names = append(names, p.Name)
		case ast.KindVararg:
			if i != len(params.Children)-1 {
				return "", fmt.Errorf("vararg before the end of a parameter list: %w", ErrMalformedTree)
			}
			varargs = true
		default:
			return "", fmt.Errorf("parameter of kind %s: %w", p.Kind, ErrMalformedTree)
		}
	}

	fixed := len(names)
	if withSelf {
		fixed++
	}

	c.pushScope()
	c.pushFn(&fnState{
		retBuf:     c.newTemp("ret"),
		outName:    "out",
		fixed:      fixed,
		varargs:    varargs,
		returnStmt: "return;",
	})
	c.pushFrame()

	c.emitf("rt::ValueList %s;", c.fn().retBuf)
	slot := 0
	if withSelf {
		handle := c.declareLocal("self")
		c.emitf("rt::Value %s = rt::arg(args, argc, %d);", handle, slot)
		slot++
	}
	for _, name := range names {
		handle := c.declareLocal(name)
		c.emitf("rt::Value %s = rt::arg(args, argc, %d);", handle, slot)
		slot++
	}

	err := translateStmts(c, body.Children, depth)
	lines := c.popFrame()
	c.popFn()
	c.popScope()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("rt::vfun([=](rt::Value* args, int argc, rt::ValueList& out) {\n")
	for _, line := range indent(lines) {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteString("})")
	return sb.String(), nil
}

// translateFunction handles both function expressions and named function
// declaration statements.
func translateFunction(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	params, err := requireChild(n, 0, "parameter list")
	if err != nil {
		return "", err
	}
	body, err := requireChild(n, 1, "body")
	if err != nil {
		return "", err
	}

	if opts.Lambda || n.Name == "" {
		return compileFunctionBody(c, params, body, depth, false)
	}

	name := n.Name
	recursive := referencesName(body, name)

	if b, bound := c.lookup(name); bound {
		if b.boxed {
			fv, err := compileFunctionBody(c, params, body, depth, false)
			if err != nil {
				return "", err
			}
			c.emitf("%s->set(%s);", b.handle, fv)
			return "", nil
		}
		if recursive {
			// The closure captures by value; a plain rebind would
			// close over the old value. Route the recursive name
			// through a cell and mirror it into the original
			// binding.
			cell := c.newTemp("cell")
			c.emitf("rt::Ref %s = rt::newRef();", cell)
			c.declareBoxed(name, cell)
			fv, err := compileFunctionBody(c, params, body, depth, false)
			if err != nil {
				return "", err
			}
			c.emitf("%s->set(%s);", cell, fv)
			c.emitf("%s = %s->get();", b.handle, cell)
			return "", nil
		}
		fv, err := compileFunctionBody(c, params, body, depth, false)
		if err != nil {
			return "", err
		}
		c.emitf("%s = %s;", b.handle, fv)
		return "", nil
	}

	// Unbound name: a global function. Recursive bodies resolve the
	// name through the cached global lookup at call time, after the
	// global has been assigned, so no cell is needed.
	fv, err := compileFunctionBody(c, params, body, depth, false)
	if err != nil {
		return "", err
	}
	if c.moduleUnit {
		c.provides[name] = true
	}
	c.emitf("rt::setGlobal(%q, %s);", name, fv)
	return "", nil
}

// translateMethodDecl lowers "function recv:name(params) body end" into a
// member store of a closure with a synthesized self parameter.
func translateMethodDecl(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	recv, err := requireChild(n, 0, "receiver")
	if err != nil {
		return "", err
	}
	params, err := requireChild(n, 1, "parameter list")
	if err != nil {
		return "", err
	}
	body, err := requireChild(n, 2, "body")
	if err != nil {
		return "", err
	}
	if n.Name == "" {
		return "", fmt.Errorf("methoddecl node without method name: %w", ErrMalformedTree)
	}

	rv, err := Translate(c, recv, depth+1, Options{})
	if err != nil {
		return "", err
	}
	rv = pinValue(c, rv)
	fv, err := compileFunctionBody(c, params, body, depth, true)
	if err != nil {
		return "", err
	}
	c.emitf("rt::setMember(%s, %q, %s);", rv, n.Name, fv)
	return "", nil
}
