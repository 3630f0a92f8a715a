package codegen

import (
	"fmt"
	"strconv"

	"moonc/ast"
)

// literalInt extracts an integer literal's value, looking through a unary
// minus. Fractional texts do not qualify.
func literalInt(n *ast.Node) (int64, bool) {
	if n == nil {
		return 0, false
	}
	if n.Kind == ast.KindUnary && n.Name == "-" && len(n.Children) == 1 {
		v, ok := literalInt(n.Children[0])
		return -v, ok
	}
	if n.Kind != ast.KindNumber || isFractionalText(n.Literal) {
		return 0, false
	}
	v, err := strconv.ParseInt(n.Literal, 0, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// translateNumericFor picks one of four lowering tiers. The three
// specialized integer tiers exist for performance; all of them must visit
// exactly the values the generic tier would for the same literal inputs.
func translateNumericFor(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	if n.Name == "" {
		return "", fmt.Errorf("fornum node without loop variable: %w", ErrMalformedTree)
	}
	if len(n.Children) < 3 {
		return "", fmt.Errorf("fornum node with %d children: %w", len(n.Children), ErrMalformedTree)
	}
	startNode := n.Children[0]
	limitNode := n.Children[1]
	var stepNode *ast.Node
	bodyNode := n.Children[len(n.Children)-1]
	if len(n.Children) == 4 {
		stepNode = n.Children[2]
	}

	start, okStart := literalInt(startNode)
	limit, okLimit := literalInt(limitNode)
	step := int64(1)
	okStep := true
	if stepNode != nil {
		step, okStep = literalInt(stepNode)
	}

	if okStart && okLimit && okStep && step != 0 {
		return "", numericForInt(c, n.Name, start, limit, step, bodyNode, depth)
	}
	return "", numericForGeneric(c, n.Name, startNode, limitNode, stepNode, bodyNode, depth)
}

// numericForInt emits the three direct integer tiers: unit step with
// post-increment, negative unit step with post-decrement, and non-unit
// literal step with a direction-aware comparison chosen at generation time.
func numericForInt(c *Context, name string, start, limit, step int64, body *ast.Node, depth int) error {
	iv := c.newTemp("i")

	c.pushScope()
	handle := c.declareLocal(name)
	lines, err := blockLines(c, body, depth)
	c.popScope()
	if err != nil {
		return err
	}

	switch {
	case step == 1:
		c.emitf("for (long long %s = %dll; %s <= %dll; %s++) {", iv, start, iv, limit, iv)
	case step == -1:
		c.emitf("for (long long %s = %dll; %s >= %dll; %s--) {", iv, start, iv, limit, iv)
	case step > 0:
		c.emitf("for (long long %s = %dll; %s <= %dll; %s += %dll) {", iv, start, iv, limit, iv, step)
	default:
		c.emitf("for (long long %s = %dll; %s >= %dll; %s += %dll) {", iv, start, iv, limit, iv, step)
	}
	c.emitf("\trt::Value %s = rt::vint(%s);", handle, iv)
	c.emitLines(indent(lines))
	c.emitf("}")
	return nil
}

// numericForGeneric is the fallback tier: bounds and step are evaluated
// once into named temporaries over a floating representation, and the
// comparison direction is picked at run time from the step's sign.
func numericForGeneric(c *Context, name string, startNode, limitNode, stepNode, body *ast.Node, depth int) error {
	sv, err := Translate(c, startNode, depth+1, Options{})
	if err != nil {
		return err
	}
	if hasCallEffects(limitNode) || hasCallEffects(stepNode) {
		sv = pinValue(c, sv)
	}
	lv, err := Translate(c, limitNode, depth+1, Options{})
	if err != nil {
		return err
	}
	if hasCallEffects(stepNode) {
		lv = pinValue(c, lv)
	}
	pv := "rt::vint(1ll)"
	if stepNode != nil {
		pv, err = Translate(c, stepNode, depth+1, Options{})
		if err != nil {
			return err
		}
	}

	it := c.newTemp("it")
	lim := c.newTemp("lim")
	stp := c.newTemp("stp")
	c.emitf("double %s = rt::tonum(%s);", it, sv)
	c.emitf("double %s = rt::tonum(%s);", lim, lv)
	c.emitf("double %s = rt::tonum(%s);", stp, pv)

	c.pushScope()
	handle := c.declareLocal(name)
	lines, err := blockLines(c, body, depth)
	c.popScope()
	if err != nil {
		return err
	}

	c.emitf("for (; (%s > 0) ? (%s <= %s) : (%s >= %s); %s += %s) {", stp, it, lim, it, lim, it, stp)
	c.emitf("\trt::Value %s = rt::vnum(%s);", handle, it)
	c.emitLines(indent(lines))
	c.emitf("}")
	return nil
}

// translateGenericFor lowers an iterator-protocol loop: the iterator
// expression list is evaluated once into (function, state, control); each
// pass calls the function with (state, control) into the reusable buffer
// and stops on an empty or nil-first result.
func translateGenericFor(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	targetsNode, err := requireChild(n, 0, "target list")
	if err != nil {
		return "", err
	}
	valuesNode, err := requireChild(n, 1, "iterator expressions")
	if err != nil {
		return "", err
	}
	bodyNode, err := requireChild(n, 2, "body")
	if err != nil {
		return "", err
	}
	if len(targetsNode.Children) == 0 {
		return "", fmt.Errorf("forin node with no loop variables: %w", ErrMalformedTree)
	}
	for _, t := range targetsNode.Children {
		if t.Kind != ast.KindName || t.Name == "" {
			return "", fmt.Errorf("forin loop variable of kind %s: %w", t.Kind, ErrMalformedTree)
		}
	}

	vals, err := exprListValues(c, valuesNode.Children, depth, 3)
	if err != nil {
		return "", err
	}
	itf := c.newTemp("itf")
	its := c.newTemp("its")
	itc := c.newTemp("itc")
	c.emitf("rt::Value %s = %s;", itf, vals[0])
	c.emitf("rt::Value %s = %s;", its, vals[1])
	c.emitf("rt::Value %s = %s;", itc, vals[2])

	buf := c.fn().retBuf

	c.pushScope()
	handles := make([]string, 0, len(targetsNode.Children))
	for _, t := range targetsNode.Children {
		handles = append(handles, c.declareLocal(t.Name))
	}

	c.pushFrame()
	argv := c.newTemp("argv")
	c.emitf("rt::Value %s[2] = {%s, %s};", argv, its, itc)
	c.emitf("%s.clear();", buf)
	c.emitf("rt::call(%s, %s, 2, %s);", itf, argv, buf)
	c.emitf("if (rt::isNil(rt::at(%s, 0))) {", buf)
	c.emitf("\tbreak;")
	c.emitf("}")
	for i, h := range handles {
		c.emitf("rt::Value %s = rt::at(%s, %d);", h, buf, i)
	}
	c.emitf("%s = %s;", itc, handles[0])
	bodyErr := translateStmts(c, bodyNode.Children, depth)
	interior := c.popFrame()
	c.popScope()
	if bodyErr != nil {
		return "", bodyErr
	}

	c.emitf("for (;;) {")
	c.emitLines(indent(interior))
	c.emitf("}")
	return "", nil
}
