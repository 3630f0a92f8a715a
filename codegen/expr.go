package codegen

import (
	"fmt"
	"strings"

	"moonc/ast"
)

// runtimeNamespaces are the library tables the runtime provides as named
// namespaces; bare references resolve to a cached namespace accessor rather
// than a dynamic global lookup.
var runtimeNamespaces = map[string]bool{
	"string":    true,
	"table":     true,
	"math":      true,
	"io":        true,
	"os":        true,
	"coroutine": true,
}

// globalBuiltins maps the fixed allowlist of builtin names to their static
// runtime slots. Anything not listed here (and not in scope) falls back to
// a cached dynamic lookup in the global table.
var globalBuiltins = map[string]string{
	"print":        "rt::bi::print",
	"require":      "rt::bi::require",
	"type":         "rt::bi::type",
	"tostring":     "rt::bi::tostring",
	"tonumber":     "rt::bi::tonumber",
	"pairs":        "rt::bi::pairs",
	"ipairs":       "rt::bi::ipairs",
	"next":         "rt::bi::next",
	"select":       "rt::bi::select",
	"error":        "rt::bi::error",
	"pcall":        "rt::bi::pcall",
	"setmetatable": "rt::bi::setmetatable",
	"getmetatable": "rt::bi::getmetatable",
	"rawget":       "rt::bi::rawget",
	"rawset":       "rt::bi::rawset",
	"unpack":       "rt::bi::unpack",
}

func translateNilLit(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	return "rt::nil", nil
}

func translateTrueLit(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	return "rt::vbool(true)", nil
}

func translateFalseLit(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	return "rt::vbool(false)", nil
}

// translateNumber distinguishes integral from fractional textual form and
// emits the matching tagged constructor. Single-digit integers intern
// through the cache table so the constructed value is shared unit-wide.
func translateNumber(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	text := n.Literal
	if text == "" {
		return "", fmt.Errorf("number node without literal text: %w", ErrMalformedTree)
	}
	if isFractionalText(text) {
		return fmt.Sprintf("rt::vnum(%s)", text), nil
	}
	if len(text) == 1 && text[0] >= '0' && text[0] <= '9' {
		return c.internSmallInt(text), nil
	}
	return fmt.Sprintf("rt::vint(%sll)", text), nil
}

// isFractionalText reports whether a numeric literal is written in
// fractional form. Hex literals are always integral.
func isFractionalText(text string) bool {
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		return false
	}
	return strings.ContainsAny(text, ".eE")
}

func translateString(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	return c.internString(n.Literal), nil
}

// translateName resolves an identifier: scope first, then the runtime
// namespace allowlist, then the builtin allowlist, and finally a cached
// dynamic lookup in the global table.
func translateName(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	name := n.Name
	if name == "" {
		return "", fmt.Errorf("name node without identifier: %w", ErrMalformedTree)
	}
	if b, ok := c.lookup(name); ok {
		if b.boxed {
			return b.handle + "->get()", nil
		}
		return b.handle, nil
	}
	if runtimeNamespaces[name] {
		return c.internNamespace(name), nil
	}
	if slot, ok := globalBuiltins[name]; ok {
		return slot, nil
	}
	return c.internGlobal(name), nil
}

var binaryOps = map[string]string{
	"+": "+", "-": "-", "*": "*", "/": "/", "%": "%",
	"&": "&", "|": "|", "~": "^", "<<": "<<", ">>": ">>",
}

var comparisonOps = map[string]string{
	"==": "rt::eq", "~=": "rt::ne",
	"<": "rt::lt", "<=": "rt::le",
	">": "rt::gt", ">=": "rt::ge",
}

func translateBinary(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	op := n.Name
	left, err := requireChild(n, 0, "left operand")
	if err != nil {
		return "", err
	}
	right, err := requireChild(n, 1, "right operand")
	if err != nil {
		return "", err
	}

	// and/or are not operator translations: the right operand may only
	// be evaluated when the left alone does not decide the result.
	if op == "and" || op == "or" {
		return translateShortCircuit(c, op, left, right, depth)
	}

	lv, err := Translate(c, left, depth+1, Options{})
	if err != nil {
		return "", err
	}
	// The right operand's hoisted call must not run before the left value
	// is read.
	if hasCallEffects(right) {
		lv = pinValue(c, lv)
	}
	rv, err := Translate(c, right, depth+1, Options{})
	if err != nil {
		return "", err
	}

	switch {
	case binaryOps[op] != "":
		return fmt.Sprintf("(%s %s %s)", lv, binaryOps[op], rv), nil
	case comparisonOps[op] != "":
		return fmt.Sprintf("%s(%s, %s)", comparisonOps[op], lv, rv), nil
	case op == "..":
		return fmt.Sprintf("rt::concat(%s, %s)", lv, rv), nil
	case op == "^":
		return fmt.Sprintf("rt::pow(%s, %s)", lv, rv), nil
	case op == "//":
		return fmt.Sprintf("rt::idiv(%s, %s)", lv, rv), nil
	}
	return "", fmt.Errorf("binary node with unknown operator %q: %w", op, ErrMalformedTree)
}

// translateShortCircuit lowers and/or into a temporary plus a branch, so
// the right operand's side effects stay behind the truthiness test.
func translateShortCircuit(c *Context, op string, left, right *ast.Node, depth int) (string, error) {
	lv, err := Translate(c, left, depth+1, Options{})
	if err != nil {
		return "", err
	}
	tmp := c.newTemp("sc")
	c.emitf("rt::Value %s = %s;", tmp, lv)

	c.pushFrame()
	rv, err := Translate(c, right, depth+1, Options{})
	if err != nil {
		c.popFrame()
		return "", err
	}
	prep := c.popFrame()

	if op == "and" {
		c.emitf("if (rt::truthy(%s)) {", tmp)
	} else {
		c.emitf("if (!rt::truthy(%s)) {", tmp)
	}
	c.emitLines(indent(prep))
	c.emitf("\t%s = %s;", tmp, rv)
	c.emitf("}")
	return tmp, nil
}

func translateUnary(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	operand, err := requireChild(n, 0, "operand")
	if err != nil {
		return "", err
	}
	v, err := Translate(c, operand, depth+1, Options{})
	if err != nil {
		return "", err
	}
	switch n.Name {
	case "-":
		return fmt.Sprintf("(-%s)", v), nil
	case "not":
		// Truthiness, not raw boolean negation: any value that is
		// neither nil nor false is truthy.
		return fmt.Sprintf("rt::vbool(!rt::truthy(%s))", v), nil
	case "#":
		return fmt.Sprintf("rt::len(%s)", v), nil
	case "~":
		return fmt.Sprintf("(~%s)", v), nil
	}
	return "", fmt.Errorf("unary node with unknown operator %q: %w", n.Name, ErrMalformedTree)
}

// translateMember lowers obj.field. Recognized standard-namespace accesses
// resolve through the library-member cache instead of a lookup per use.
func translateMember(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	obj, err := requireChild(n, 0, "object")
	if err != nil {
		return "", err
	}
	if n.Name == "" {
		return "", fmt.Errorf("member node without field name: %w", ErrMalformedTree)
	}
	if lib, ok := namespaceObject(c, obj); ok {
		return c.internLibMember(lib, n.Name), nil
	}
	ov, err := Translate(c, obj, depth+1, Options{})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("rt::member(%s, %q)", ov, n.Name), nil
}

// namespaceObject reports whether a node names a runtime library namespace
// that is not shadowed by a local binding.
func namespaceObject(c *Context, n *ast.Node) (string, bool) {
	if n.Kind != ast.KindName || !runtimeNamespaces[n.Name] {
		return "", false
	}
	if _, shadowed := c.lookup(n.Name); shadowed {
		return "", false
	}
	return n.Name, true
}

func translateIndex(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	obj, err := requireChild(n, 0, "object")
	if err != nil {
		return "", err
	}
	key, err := requireChild(n, 1, "key")
	if err != nil {
		return "", err
	}
	ov, err := Translate(c, obj, depth+1, Options{})
	if err != nil {
		return "", err
	}
	if hasCallEffects(key) {
		ov = pinValue(c, ov)
	}
	kv, err := Translate(c, key, depth+1, Options{})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("rt::index(%s, %s)", ov, kv), nil
}

// compactFieldLimit is the largest purely-keyed constructor emitted through
// the inline rt::tableOf form.
const compactFieldLimit = 3

// translateTable lowers a table constructor. Small purely-keyed tables use
// the compact inline constructor; everything else hoists a table temporary
// and assembles keyed and positional parts statement by statement.
func translateTable(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	if compact, ok, err := tryCompactTable(c, n, depth); ok || err != nil {
		return compact, err
	}

	tbl := c.newTemp("tbl")
	c.emitf("rt::Value %s = rt::newTable();", tbl)

	// Positional indices are literal until an expansion makes the
	// position runtime-dependent; then a counter takes over.
	hasExpansion := false
	for i, f := range n.Children {
		if isExpandingField(n, i, f) {
			hasExpansion = true
			break
		}
	}
	pos := ""
	nextLiteral := 1
	if hasExpansion {
		pos = c.newTemp("pos")
		c.emitf("long long %s = 1ll;", pos)
	}

	for i, f := range n.Children {
		switch {
		case f.Kind == ast.KindKeyedField && f.Name != "":
			val, err := requireChild(f, 0, "field value")
			if err != nil {
				return "", err
			}
			v, err := Translate(c, val, depth+1, Options{})
			if err != nil {
				return "", err
			}
			c.emitf("rt::setMember(%s, %q, %s);", tbl, f.Name, v)

		case f.Kind == ast.KindKeyedField:
			if len(f.Children) < 2 {
				return "", fmt.Errorf("keyed field missing key or value: %w", ErrMalformedTree)
			}
			kv, err := Translate(c, f.Children[0], depth+1, Options{})
			if err != nil {
				return "", err
			}
			if hasCallEffects(f.Children[1]) {
				kv = pinValue(c, kv)
			}
			v, err := Translate(c, f.Children[1], depth+1, Options{})
			if err != nil {
				return "", err
			}
			c.emitf("rt::setIndex(%s, %s, %s);", tbl, kv, v)

		case isExpandingField(n, i, f):
			buf, err := Translate(c, f, depth+1, Options{MultiRet: true})
			if err != nil {
				return "", err
			}
			iv := c.newTemp("i")
			c.emitf("for (long long %s = 0; %s < (long long)%s.size(); %s++) {", iv, iv, buf, iv)
			c.emitf("\trt::seti(%s, %s, rt::at(%s, %s));", tbl, pos, buf, iv)
			c.emitf("\t%s++;", pos)
			c.emitf("}")

		default:
			v, err := Translate(c, f, depth+1, Options{})
			if err != nil {
				return "", err
			}
			if hasExpansion {
				c.emitf("rt::seti(%s, %s, %s);", tbl, pos, v)
				c.emitf("%s++;", pos)
			} else {
				c.emitf("rt::seti(%s, %dll, %s);", tbl, nextLiteral, v)
				nextLiteral++
			}
		}
	}
	return tbl, nil
}

// isExpandingField reports whether a constructor field contributes its full
// result list: any vararg field, or a call-shaped field in final position.
func isExpandingField(table *ast.Node, i int, f *ast.Node) bool {
	if f.Kind == ast.KindVararg {
		return true
	}
	last := i == len(table.Children)-1
	return last && callShaped(f)
}

// tryCompactTable emits the inline constructor form when the table has only
// keyed identifier fields, at most compactFieldLimit of them.
func tryCompactTable(c *Context, n *ast.Node, depth int) (string, bool, error) {
	if len(n.Children) == 0 || len(n.Children) > compactFieldLimit {
		return "", false, nil
	}
	for _, f := range n.Children {
		if f.Kind != ast.KindKeyedField || f.Name == "" {
			return "", false, nil
		}
	}
	parts := make([]string, 0, len(n.Children)*2)
	for i, f := range n.Children {
		val, err := requireChild(f, 0, "field value")
		if err != nil {
			return "", true, err
		}
		v, err := Translate(c, val, depth+1, Options{})
		if err != nil {
			return "", true, err
		}
		if anyCallEffects(n.Children[i+1:]) {
			v = pinValue(c, v)
		}
		parts = append(parts, fmt.Sprintf("%q", f.Name), v)
	}
	return fmt.Sprintf("rt::tableOf(%s)", strings.Join(parts, ", ")), true, nil
}

// callShaped reports whether a node can produce multiple values.
func callShaped(n *ast.Node) bool {
	switch n.Kind {
	case ast.KindCall, ast.KindMethodCall, ast.KindVararg:
		return true
	}
	return false
}

// hasCallEffects reports whether evaluating the expression can run user
// code and therefore mutate globals, members, or boxed locals.
func hasCallEffects(n *ast.Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case ast.KindCall, ast.KindMethodCall:
		return true
	case ast.KindFunction:
		// Construction only captures; the body runs when called.
		return false
	}
	for _, ch := range n.Children {
		if hasCallEffects(ch) {
			return true
		}
	}
	return false
}

// anyCallEffects reports whether any expression in the list can run user
// code.
func anyCallEffects(exprs []*ast.Node) bool {
	for _, e := range exprs {
		if hasCallEffects(e) {
			return true
		}
	}
	return false
}

// translateVararg reads the arguments beyond the fixed parameter count. In
// multi-value context the trailing arguments are sliced into the shared
// result buffer; in single-value context only the first one is read.
func translateVararg(c *Context, n *ast.Node, depth int, opts Options) (string, error) {
	fn := c.fn()
	if !fn.varargs {
		return "", fmt.Errorf("vararg use in a non-variadic function: %w", ErrMalformedTree)
	}
	if fn.entryLevel {
		// The entry chunk's ... holds the command-line arguments.
		if opts.MultiRet {
			c.emitf("%s.clear();", fn.retBuf)
			c.emitf("rt::cliArgs(%s);", fn.retBuf)
			return fn.retBuf, nil
		}
		return "rt::cliArg(0)", nil
	}
	if fn.moduleLevel {
		// Module chunks are loaded without arguments, so ... is empty.
		if opts.MultiRet {
			c.emitf("%s.clear();", fn.retBuf)
			return fn.retBuf, nil
		}
		return "rt::nil", nil
	}
	if opts.MultiRet {
		c.emitf("%s.clear();", fn.retBuf)
		c.emitf("rt::sliceArgs(args, argc, %d, %s);", fn.fixed, fn.retBuf)
		return fn.retBuf, nil
	}
	return fmt.Sprintf("rt::arg(args, argc, %d)", fn.fixed), nil
}
