package codegen

import (
	"fmt"
	"strings"

	"moonc/ast"
)

// callArgs is a materialized argument list: a pointer expression and a
// count expression ready to splice into rt::call.
type callArgs struct {
	ptr   string
	count string
}

// buildArgs evaluates call arguments left to right, hoisting side effects
// in order. When the final argument may expand to a variable number of
// values the whole list goes through a heap-backed vector; otherwise a
// fixed-arity stack array is enough. recv, when non-empty, is prepended as
// the method receiver.
func buildArgs(c *Context, args []*ast.Node, depth int, recv string) (callArgs, error) {
	expanding := len(args) > 0 && callShaped(args[len(args)-1])

	if expanding {
		head := args[:len(args)-1]
		values, err := evalArgs(c, head, depth)
		if err != nil {
			return callArgs{}, err
		}
		vec := c.newTemp("vec")
		c.emitf("rt::ValueVec %s;", vec)
		if recv != "" {
			c.emitf("%s.push(%s);", vec, recv)
		}
		for _, v := range values {
			c.emitf("%s.push(%s);", vec, v)
		}
		buf, err := Translate(c, args[len(args)-1], depth+1, Options{MultiRet: true})
		if err != nil {
			return callArgs{}, err
		}
		c.emitf("rt::appendAll(%s, %s);", vec, buf)
		return callArgs{
			ptr:   vec + ".data()",
			count: fmt.Sprintf("(int)%s.size()", vec),
		}, nil
	}

	argValues, err := evalArgs(c, args, depth)
	if err != nil {
		return callArgs{}, err
	}
	values := make([]string, 0, len(args)+1)
	if recv != "" {
		values = append(values, recv)
	}
	values = append(values, argValues...)
	if len(values) == 0 {
		return callArgs{ptr: "nullptr", count: "0"}, nil
	}
	argv := c.newTemp("argv")
	c.emitf("rt::Value %s[%d] = {%s};", argv, len(values), strings.Join(values, ", "))
	return callArgs{ptr: argv, count: fmt.Sprintf("%d", len(values))}, nil
}

// emitCall hoists the uniform dynamic invocation into the current frame
// and returns the expression for its result: the first value extracted
// into a fresh temporary, or the result buffer itself under MultiRet.
func emitCall(c *Context, callee string, ca callArgs, multiret bool) string {
	buf := c.fn().retBuf
	c.emitf("%s.clear();", buf)
	c.emitf("rt::call(%s, %s, %s, %s);", callee, ca.ptr, ca.count, buf)
	if multiret {
		return buf
	}
	tmp := c.newTemp("tmp")
	c.emitf("rt::Value %s = rt::first(%s);", tmp, buf)
	return tmp
}

// pinCallee makes sure the callee value is captured before the arguments
// run, so argument side effects cannot change which value is invoked.
func pinCallee(c *Context, callee string, argCount int) string {
	if argCount == 0 || isSimpleName(callee) {
		return callee
	}
	tmp := c.newTemp("fn")
	c.emitf("rt::Value %s = %s;", tmp, callee)
	return tmp
}

func translateCall(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	calleeNode, err := requireChild(n, 0, "callee")
	if err != nil {
		return "", err
	}
	args := n.Children[1:]

	if out, handled, err := tryBuiltinCall(c, calleeNode, args, depth, opts); handled || err != nil {
		return out, err
	}

	callee, err := Translate(c, calleeNode, depth+1, Options{})
	if err != nil {
		return "", err
	}
	callee = pinCallee(c, callee, len(args))
	ca, err := buildArgs(c, args, depth, "")
	if err != nil {
		return "", err
	}
	return emitCall(c, callee, ca, opts.MultiRet), nil
}

// translateMethodCall lowers obj:m(args): the receiver is evaluated once
// into a temporary, the callee is looked up on it, and the receiver rides
// along as the first argument.
func translateMethodCall(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	recvNode, err := requireChild(n, 0, "receiver")
	if err != nil {
		return "", err
	}
	if n.Name == "" {
		return "", fmt.Errorf("methodcall node without method name: %w", ErrMalformedTree)
	}
	rv, err := Translate(c, recvNode, depth+1, Options{})
	if err != nil {
		return "", err
	}
	recv := rv
	if !isSimpleName(recv) {
		recv = c.newTemp("obj")
		c.emitf("rt::Value %s = %s;", recv, rv)
	}
	callee := c.newTemp("fn")
	c.emitf("rt::Value %s = rt::member(%s, %q);", callee, recv, n.Name)

	ca, err := buildArgs(c, n.Children[1:], depth, recv)
	if err != nil {
		return "", err
	}
	return emitCall(c, callee, ca, opts.MultiRet), nil
}

// builtinLowering emits direct target code for one recognized builtin call
// shape. It reports handled=false to fall back to the generic dynamic-call
// path when the shape does not fit (wrong arity, expanding tail, ...).
type builtinLowering func(c *Context, args []*ast.Node, depth int, opts Options) (string, bool, error)

// nameBuiltins are bare-name builtins with bespoke lowering.
var nameBuiltins map[string]builtinLowering

// memberBuiltins are library-member builtins with bespoke lowering, keyed
// "lib.member".
var memberBuiltins map[string]builtinLowering

func init() {
	nameBuiltins = map[string]builtinLowering{
		"print":        lowerPrint,
		"require":      lowerRequire,
		"setmetatable": lowerSetMetatable,
	}
	memberBuiltins = map[string]builtinLowering{
		"table.insert": lowerTableInsert,
		"table.concat": lowerTableConcat,
		"string.len":   lowerStringLen,
		"string.sub":   lowerStringSub,
	}
}

// tryBuiltinCall checks the fixed builtin table before the generic path.
// Shadowed names never reach it: a local called print is just a local.
func tryBuiltinCall(c *Context, callee *ast.Node, args []*ast.Node, depth int, opts Options) (string, bool, error) {
	switch callee.Kind {
	case ast.KindName:
		if _, shadowed := c.lookup(callee.Name); shadowed {
			return "", false, nil
		}
		if lower, ok := nameBuiltins[callee.Name]; ok {
			return lowerWith(lower, c, args, depth, opts)
		}
	case ast.KindMember:
		obj := callee.Child(0)
		if obj == nil {
			return "", false, nil
		}
		lib, ok := namespaceObject(c, obj)
		if !ok {
			return "", false, nil
		}
		if lower, ok := memberBuiltins[lib+"."+callee.Name]; ok {
			return lowerWith(lower, c, args, depth, opts)
		}
	}
	return "", false, nil
}

func lowerWith(lower builtinLowering, c *Context, args []*ast.Node, depth int, opts Options) (string, bool, error) {
	// Bespoke lowerings are fixed-arity; an expanding tail goes generic.
	if len(args) > 0 && callShaped(args[len(args)-1]) {
		return "", false, nil
	}
	return lower(c, args, depth, opts)
}

// evalArgs translates a fixed argument list in order, single-valued. Each
// value whose read could drift past a later argument's hoisted call is
// pinned into a temporary first.
func evalArgs(c *Context, args []*ast.Node, depth int) ([]string, error) {
	values := make([]string, 0, len(args))
	for i, a := range args {
		v, err := Translate(c, a, depth+1, Options{})
		if err != nil {
			return nil, err
		}
		if anyCallEffects(args[i+1:]) {
			v = pinValue(c, v)
		}
		values = append(values, v)
	}
	return values, nil
}

func lowerPrint(c *Context, args []*ast.Node, depth int, opts Options) (string, bool, error) {
	values, err := evalArgs(c, args, depth)
	if err != nil {
		return "", true, err
	}
	c.emitf("rt::print(%s);", strings.Join(values, ", "))
	return "rt::nil", true, nil
}

// lowerRequire records the module dependency and calls its load function
// directly. Only a literal module name can be resolved at generation time.
func lowerRequire(c *Context, args []*ast.Node, depth int, opts Options) (string, bool, error) {
	if len(args) != 1 || args[0].Kind != ast.KindString {
		return "", false, nil
	}
	mod := sanitizeIdent(args[0].Literal)
	c.required[mod] = true

	buf := c.fn().retBuf
	c.emitf("%s.clear();", buf)
	c.emitf("mod_%s::load(%s);", mod, buf)
	if opts.MultiRet {
		return buf, true, nil
	}
	tmp := c.newTemp("tmp")
	c.emitf("rt::Value %s = rt::first(%s);", tmp, buf)
	return tmp, true, nil
}

func lowerSetMetatable(c *Context, args []*ast.Node, depth int, opts Options) (string, bool, error) {
	if len(args) != 2 {
		return "", false, nil
	}
	values, err := evalArgs(c, args, depth)
	if err != nil {
		return "", true, err
	}
	return fmt.Sprintf("rt::setMetatable(%s, %s)", values[0], values[1]), true, nil
}

func lowerTableInsert(c *Context, args []*ast.Node, depth int, opts Options) (string, bool, error) {
	if len(args) != 2 && len(args) != 3 {
		return "", false, nil
	}
	values, err := evalArgs(c, args, depth)
	if err != nil {
		return "", true, err
	}
	if len(values) == 2 {
		c.emitf("rt::append(%s, %s);", values[0], values[1])
	} else {
		c.emitf("rt::insert(%s, %s, %s);", values[0], values[1], values[2])
	}
	return "rt::nil", true, nil
}

func lowerTableConcat(c *Context, args []*ast.Node, depth int, opts Options) (string, bool, error) {
	if len(args) != 1 && len(args) != 2 {
		return "", false, nil
	}
	values, err := evalArgs(c, args, depth)
	if err != nil {
		return "", true, err
	}
	return fmt.Sprintf("rt::tconcat(%s)", strings.Join(values, ", ")), true, nil
}

func lowerStringLen(c *Context, args []*ast.Node, depth int, opts Options) (string, bool, error) {
	if len(args) != 1 {
		return "", false, nil
	}
	values, err := evalArgs(c, args, depth)
	if err != nil {
		return "", true, err
	}
	return fmt.Sprintf("rt::len(%s)", values[0]), true, nil
}

func lowerStringSub(c *Context, args []*ast.Node, depth int, opts Options) (string, bool, error) {
	if len(args) != 2 && len(args) != 3 {
		return "", false, nil
	}
	values, err := evalArgs(c, args, depth)
	if err != nil {
		return "", true, err
	}
	return fmt.Sprintf("rt::substr(%s)", strings.Join(values, ", ")), true, nil
}
