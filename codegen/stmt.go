package codegen

import (
	"fmt"

	"moonc/ast"
)

// translateStmts renders a statement list into the current frame.
// Expression statements are translated with MultiRet so a bare call leaves
// its results in the buffer instead of extracting an unused temporary.
func translateStmts(c *Context, stmts []*ast.Node, depth int) error {
	for _, st := range stmts {
		if _, err := Translate(c, st, depth+1, Options{MultiRet: true}); err != nil {
			return err
		}
	}
	return nil
}

// blockLines translates a block in its own scope and hoisting frame and
// returns the captured lines for the caller to splice.
func blockLines(c *Context, block *ast.Node, depth int) ([]string, error) {
	c.pushScope()
	c.pushFrame()
	err := translateStmts(c, block.Children, depth)
	lines := c.popFrame()
	c.popScope()
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func translateProgram(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	return "", translateStmts(c, n.Children, depth)
}

// translateBlockNode handles an explicit do...end block.
func translateBlockNode(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	if opts.NoBraces {
		c.pushScope()
		err := translateStmts(c, n.Children, depth)
		c.popScope()
		return "", err
	}
	lines, err := blockLines(c, n, depth)
	if err != nil {
		return "", err
	}
	c.emitf("{")
	c.emitLines(indent(lines))
	c.emitf("}")
	return "", nil
}

// exprListValues evaluates an expression list left to right and returns
// value strings for want results. A call-shaped final expression supplies
// the remaining results positionally from its buffer, nil-padded past its
// length; expressions beyond want are still evaluated for their effects.
func exprListValues(c *Context, exprs []*ast.Node, depth int, want int) ([]string, error) {
	vals := make([]string, 0, want)
	for i, e := range exprs {
		last := i == len(exprs)-1
		if last && callShaped(e) && want > len(exprs) {
			buf, err := Translate(c, e, depth+1, Options{MultiRet: true})
			if err != nil {
				return nil, err
			}
			// Extract immediately: the buffer is reused by the
			// next call the unit makes.
			for j := i; j < want; j++ {
				tmp := c.newTemp("tmp")
				c.emitf("rt::Value %s = rt::at(%s, %d);", tmp, buf, j-i)
				vals = append(vals, tmp)
			}
			return vals, nil
		}
		v, err := Translate(c, e, depth+1, Options{})
		if err != nil {
			return nil, err
		}
		// A later expression's hoisted call must not run before this
		// value is read.
		if anyCallEffects(exprs[i+1:]) {
			v = pinValue(c, v)
		}
		vals = append(vals, v)
	}
	for len(vals) < want {
		vals = append(vals, "rt::nil")
	}
	return vals, nil
}

// splitTargetsValues pulls the two halves out of a declaration or
// assignment node.
func splitTargetsValues(n *ast.Node) (targets, values []*ast.Node, err error) {
	tn, err := requireChild(n, 0, "target list")
	if err != nil {
		return nil, nil, err
	}
	vn, err := requireChild(n, 1, "value list")
	if err != nil {
		return nil, nil, err
	}
	return tn.Children, vn.Children, nil
}

func translateLocal(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	targets, values, err := splitTargetsValues(n)
	if err != nil {
		return "", err
	}
	if len(targets) == 0 {
		return "", fmt.Errorf("local node with empty target list: %w", ErrMalformedTree)
	}
	for _, t := range targets {
		if t.Kind != ast.KindName || t.Name == "" {
			return "", fmt.Errorf("local target must be a name, got %s: %w", t.Kind, ErrMalformedTree)
		}
	}

	// local function f: the body may call f before the closure value
	// exists, so bind the name through a mutable cell first.
	if len(targets) == 1 && len(values) == 1 &&
		values[0].Kind == ast.KindFunction && values[0].Name == "" &&
		referencesName(values[0], targets[0].Name) {
		cell := c.newTemp("cell")
		c.emitf("rt::Ref %s = rt::newRef();", cell)
		c.declareBoxed(targets[0].Name, cell)
		fv, err := Translate(c, values[0], depth+1, Options{Lambda: true})
		if err != nil {
			return "", err
		}
		c.emitf("%s->set(%s);", cell, fv)
		return "", nil
	}

	// Values are evaluated before the names exist: local x = x reads
	// the outer x.
	vals, err := exprListValues(c, values, depth, len(targets))
	if err != nil {
		return "", err
	}
	for i, t := range targets {
		handle := c.declareLocal(t.Name)
		c.emitf("rt::Value %s = %s;", handle, vals[i])
	}
	return "", nil
}

// storeTarget is a pending assignment destination whose prefix expressions
// are already evaluated.
type storeTarget func(v string)

// prepareTarget evaluates an assignment target's sub-expressions and
// returns the store to run once the values are ready.
func prepareTarget(c *Context, t *ast.Node, depth int) (storeTarget, error) {
	switch t.Kind {
	case ast.KindName:
		name := t.Name
		if b, ok := c.lookup(name); ok {
			if b.boxed {
				return func(v string) { c.emitf("%s->set(%s);", b.handle, v) }, nil
			}
			return func(v string) { c.emitf("%s = %s;", b.handle, v) }, nil
		}
		if c.moduleUnit {
			c.provides[name] = true
		}
		return func(v string) { c.emitf("rt::setGlobal(%q, %s);", name, v) }, nil

	case ast.KindMember:
		obj, err := requireChild(t, 0, "object")
		if err != nil {
			return nil, err
		}
		ov, err := Translate(c, obj, depth+1, Options{})
		if err != nil {
			return nil, err
		}
		ov = pinValue(c, ov)
		name := t.Name
		return func(v string) { c.emitf("rt::setMember(%s, %q, %s);", ov, name, v) }, nil

	case ast.KindIndex:
		obj, err := requireChild(t, 0, "object")
		if err != nil {
			return nil, err
		}
		key, err := requireChild(t, 1, "key")
		if err != nil {
			return nil, err
		}
		ov, err := Translate(c, obj, depth+1, Options{})
		if err != nil {
			return nil, err
		}
		ov = pinValue(c, ov)
		kv, err := Translate(c, key, depth+1, Options{})
		if err != nil {
			return nil, err
		}
		kv = pinValue(c, kv)
		return func(v string) { c.emitf("rt::setIndex(%s, %s, %s);", ov, kv, v) }, nil
	}
	return nil, fmt.Errorf("assignment target of kind %s: %w", t.Kind, ErrMalformedTree)
}

// pinValue hoists a non-trivial expression into a temporary so it is
// evaluated exactly once, at this point in the statement order.
func pinValue(c *Context, v string) string {
	if isSimpleName(v) {
		return v
	}
	tmp := c.newTemp("tmp")
	c.emitf("rt::Value %s = %s;", tmp, v)
	return tmp
}

func translateAssign(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	targets, values, err := splitTargetsValues(n)
	if err != nil {
		return "", err
	}
	if len(targets) == 0 {
		return "", fmt.Errorf("assign node with empty target list: %w", ErrMalformedTree)
	}

	stores := make([]storeTarget, 0, len(targets))
	for _, t := range targets {
		st, err := prepareTarget(c, t, depth)
		if err != nil {
			return "", err
		}
		stores = append(stores, st)
	}
	vals, err := exprListValues(c, values, depth, len(targets))
	if err != nil {
		return "", err
	}
	for i, store := range stores {
		store(vals[i])
	}
	return "", nil
}

// translateIf lowers a conditional chain. Each branch condition gets its
// own hoisting frame; captured preparation wraps the branch in an extra
// block so it runs immediately before the test, and the wrapper's closing
// brace is accounted for at the end of the chain.
func translateIf(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	branches := n.Children
	var elseNode *ast.Node
	if len(branches) > 0 && branches[len(branches)-1].Kind == ast.KindElse {
		elseNode = branches[len(branches)-1]
		branches = branches[:len(branches)-1]
	}
	if len(branches) == 0 {
		return "", fmt.Errorf("if node without branches: %w", ErrMalformedTree)
	}

	wrapped := false
	for i, br := range branches {
		if br.Kind != ast.KindBranch {
			return "", fmt.Errorf("if chain child of kind %s: %w", br.Kind, ErrMalformedTree)
		}
		condNode, err := requireChild(br, 0, "condition")
		if err != nil {
			return "", err
		}
		bodyNode, err := requireChild(br, 1, "body")
		if err != nil {
			return "", err
		}

		c.pushFrame()
		cond, err := Translate(c, condNode, depth+1, Options{})
		prep := c.popFrame()
		if err != nil {
			return "", err
		}

		if i > 0 {
			// The else block doubles as the hoisting wrapper for
			// this branch's preparation.
			c.emitf("} else {")
		} else if len(prep) > 0 {
			c.emitf("{")
			wrapped = true
		}
		if len(prep) > 0 {
			c.emitLines(indent(prep))
		}
		c.emitf("if (rt::truthy(%s)) {", cond)

		body, err := blockLines(c, bodyNode, depth)
		if err != nil {
			return "", err
		}
		c.emitLines(indent(body))
	}

	if elseNode != nil {
		bodyNode, err := requireChild(elseNode, 0, "else body")
		if err != nil {
			return "", err
		}
		body, err := blockLines(c, bodyNode, depth)
		if err != nil {
			return "", err
		}
		c.emitf("} else {")
		c.emitLines(indent(body))
	}

	// One close per nested else wrapper, one for the innermost if, and
	// one for the first branch's hoisting wrapper if it was opened.
	for i := 0; i < len(branches)-1; i++ {
		c.emitf("}")
	}
	c.emitf("}")
	if wrapped {
		c.emitf("}")
	}
	return "", nil
}

// translateWhile emits a plain while when the condition is a pure
// expression. A condition that needs preparatory statements cannot live in
// the loop header, so the loop becomes unconditional with an early break
// guarded by the negated condition.
func translateWhile(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	condNode, err := requireChild(n, 0, "condition")
	if err != nil {
		return "", err
	}
	bodyNode, err := requireChild(n, 1, "body")
	if err != nil {
		return "", err
	}

	c.pushFrame()
	cond, err := Translate(c, condNode, depth+1, Options{})
	prep := c.popFrame()
	if err != nil {
		return "", err
	}
	body, err := blockLines(c, bodyNode, depth)
	if err != nil {
		return "", err
	}

	if len(prep) == 0 {
		c.emitf("while (rt::truthy(%s)) {", cond)
		c.emitLines(indent(body))
		c.emitf("}")
		return "", nil
	}
	c.emitf("for (;;) {")
	c.emitLines(indent(prep))
	c.emitf("\tif (!rt::truthy(%s)) {", cond)
	c.emitf("\t\tbreak;")
	c.emitf("\t}")
	c.emitLines(indent(body))
	c.emitf("}")
	return "", nil
}

// translateRepeat lowers repeat...until. The condition is translated in
// the body's scope, as the source language lets it see body locals.
func translateRepeat(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	bodyNode, err := requireChild(n, 0, "body")
	if err != nil {
		return "", err
	}
	condNode, err := requireChild(n, 1, "condition")
	if err != nil {
		return "", err
	}

	c.pushScope()
	c.pushFrame()
	err = translateStmts(c, bodyNode.Children, depth)
	if err == nil {
		var cond string
		cond, err = Translate(c, condNode, depth+1, Options{})
		if err == nil {
			c.emitf("if (rt::truthy(%s)) {", cond)
			c.emitf("\tbreak;")
			c.emitf("}")
		}
	}
	lines := c.popFrame()
	c.popScope()
	if err != nil {
		return "", err
	}

	c.emitf("for (;;) {")
	c.emitLines(indent(lines))
	c.emitf("}")
	return "", nil
}

func translateBreak(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	c.emitf("break;")
	return "", nil
}

func translateLabel(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	if n.Name == "" {
		return "", fmt.Errorf("label node without name: %w", ErrMalformedTree)
	}
	c.emitf("lbl_%s:;", sanitizeIdent(n.Name))
	return "", nil
}

func translateGoto(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	if n.Name == "" {
		return "", fmt.Errorf("goto node without label: %w", ErrMalformedTree)
	}
	c.emitf("goto lbl_%s;", sanitizeIdent(n.Name))
	return "", nil
}

// translateReturn evaluates each returned expression left to right,
// appending to the output accumulator as it goes, then emits the function's
// configured return statement. The entry unit's top level has no
// accumulator; values are evaluated for their effects only.
func translateReturn(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	fn := c.fn()
	for i, e := range n.Children {
		last := i == len(n.Children)-1
		if last && callShaped(e) && !fn.entryLevel {
			buf, err := Translate(c, e, depth+1, Options{MultiRet: true})
			if err != nil {
				return "", err
			}
			c.emitf("rt::appendAll(%s, %s);", fn.outName, buf)
			continue
		}
		v, err := Translate(c, e, depth+1, Options{})
		if err != nil {
			return "", err
		}
		if !fn.entryLevel {
			c.emitf("%s.push(%s);", fn.outName, v)
		}
	}
	c.emitf("%s", fn.returnStmt)
	return "", nil
}
