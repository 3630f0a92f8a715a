package codegen

import (
	"fmt"
	"sort"
	"strings"

	"moonc/trace"
)

// binding describes how a declared name is reached in the generated code.
// Plain bindings emit their handle directly; boxed bindings hold a mutable
// cell so a recursive closure can reference itself before it is fully
// constructed, and reads go through the handle's get().
type binding struct {
	handle string
	boxed  bool
}

// cacheEntry is one interned literal or lookup accessor. The declaration is
// emitted exactly once in the unit preamble; the id is what expression text
// references.
type cacheEntry struct {
	id   string
	decl string
}

// fnState is the per-function emission state: the shared reusable result
// buffer, the fixed parameter count for vararg slicing, and the configured
// return shape.
type fnState struct {
	retBuf      string // per-function-scope rt::ValueList for call results
	outName     string // result accumulator parameter; "" at the entry unit's top level
	fixed       int    // number of fixed parameters bound from the argument array
	varargs     bool   // function accepts ... beyond the fixed parameters
	entryLevel  bool   // top level of the program entry unit
	moduleLevel bool   // top level of a module unit's load function
	returnStmt  string // "return;" or "return 0;"
}

// Context is the mutable per-unit translation state. One Context serves one
// unit; nothing is shared between units, so an orchestrator may translate
// units in parallel by giving each its own Context.
type Context struct {
	scopes []map[string]binding

	strings map[string]cacheEntry // literal text -> interned value
	globals map[string]cacheEntry // name / digit / @namespace -> accessor
	members map[string]cacheEntry // "lib.member" -> accessor

	required map[string]bool // modules discovered via require()
	provides map[string]bool // globals a module unit assigns at top level

	frames [][]string // hoisting stack; top is the current statement list
	fns    []*fnState

	moduleUnit bool // translating an importable module rather than the entry unit

	counter int // monotonically increasing id source for all generated names
}

// NewContext creates a fresh translation context for one unit.
func NewContext() *Context {
	return &Context{
		strings:  make(map[string]cacheEntry),
		globals:  make(map[string]cacheEntry),
		members:  make(map[string]cacheEntry),
		required: make(map[string]bool),
		provides: make(map[string]bool),
	}
}

// newTemp returns a fresh generated identifier with the given prefix.
// Every synthetic name in a unit comes from the same counter, so no two
// generated identifiers collide regardless of translation order.
func (c *Context) newTemp(prefix string) string {
	c.counter++
	return fmt.Sprintf("%s_%d", prefix, c.counter)
}

// --- scopes ---

func (c *Context) pushScope() {
	c.scopes = append(c.scopes, make(map[string]binding))
}

func (c *Context) popScope() {
	c.scopes = c.scopes[:len(c.scopes)-1]
}

// declareLocal introduces name in the innermost scope and returns the C++
// handle to emit for it. Redeclaration within the same source block gets a
// uniquified handle, since the enclosing C++ block is shared; so does any
// name shaped like a generated identifier, which could otherwise collide
// with a synthesized buffer or temporary in the same C++ scope.
func (c *Context) declareLocal(name string) string {
	top := c.scopes[len(c.scopes)-1]
	handle := sanitizeIdent(name)
	if _, redeclared := top[name]; redeclared || cxxReserved[handle] || looksGenerated(handle) {
		handle = c.newTemp(handle)
	}
	top[name] = binding{handle: handle}
	return handle
}

// looksGenerated reports whether an identifier has the prefix_N shape that
// newTemp produces.
func looksGenerated(s string) bool {
	i := strings.LastIndexByte(s, '_')
	if i <= 0 || i == len(s)-1 {
		return false
	}
	for _, b := range []byte(s[i+1:]) {
		if b < '0' || b > '9' {
			return false
		}
	}
	return true
}

// declareBoxed introduces name bound through a mutable cell handle.
func (c *Context) declareBoxed(name, cell string) {
	top := c.scopes[len(c.scopes)-1]
	top[name] = binding{handle: cell, boxed: true}
}

// lookup resolves name against the scope stack, innermost first.
func (c *Context) lookup(name string) (binding, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if b, ok := c.scopes[i][name]; ok {
			return b, true
		}
	}
	return binding{}, false
}

// --- hoisting frames ---

// pushFrame starts an isolated statement capture. Everything emitted until
// the matching popFrame lands in this frame; the caller decides where the
// captured lines are spliced.
func (c *Context) pushFrame() {
	c.frames = append(c.frames, nil)
}

// popFrame ends the current capture and returns its lines.
func (c *Context) popFrame() []string {
	top := c.frames[len(c.frames)-1]
	c.frames = c.frames[:len(c.frames)-1]
	return top
}

// emitf appends one formatted line to the current frame.
func (c *Context) emitf(format string, args ...interface{}) {
	line := format
	if len(args) > 0 {
		line = fmt.Sprintf(format, args...)
	}
	c.frames[len(c.frames)-1] = append(c.frames[len(c.frames)-1], line)
}

// emitLines appends captured lines to the current frame.
func (c *Context) emitLines(lines []string) {
	c.frames[len(c.frames)-1] = append(c.frames[len(c.frames)-1], lines...)
}

// --- function state ---

func (c *Context) pushFn(st *fnState) {
	c.fns = append(c.fns, st)
}

func (c *Context) popFn() {
	c.fns = c.fns[:len(c.fns)-1]
}

// fn returns the state of the function body being emitted.
func (c *Context) fn() *fnState {
	return c.fns[len(c.fns)-1]
}

// --- cache tables ---

// internString returns the interned accessor for a string literal,
// creating the preamble declaration on first use.
func (c *Context) internString(s string) string {
	if e, ok := c.strings[s]; ok {
		trace.CacheHit("strings", s, e.id)
		return e.id
	}
	id := c.newTemp("str")
	c.strings[s] = cacheEntry{
		id:   id,
		decl: fmt.Sprintf("static const rt::Value %s = rt::vstr(%s);", id, cxxQuote(s)),
	}
	trace.CacheAdd("strings", s, id)
	return id
}

// internSmallInt interns a small non-negative integer literal through the
// global cache table, keyed by its digit text.
func (c *Context) internSmallInt(text string) string {
	if e, ok := c.globals[text]; ok {
		trace.CacheHit("globals", text, e.id)
		return e.id
	}
	id := c.newTemp("k")
	c.globals[text] = cacheEntry{
		id:   id,
		decl: fmt.Sprintf("static const rt::Value %s = rt::vint(%sll);", id, text),
	}
	trace.CacheAdd("globals", text, id)
	return id
}

// internNamespace interns a runtime library namespace accessor ("string",
// "table", ...). Keys carry an "@" prefix so a namespace can never collide
// with a plain global of the same name.
func (c *Context) internNamespace(name string) string {
	key := "@" + name
	if e, ok := c.globals[key]; ok {
		trace.CacheHit("globals", key, e.id)
		return e.id
	}
	id := c.newTemp("ns")
	c.globals[key] = cacheEntry{
		id:   id,
		decl: fmt.Sprintf("static const rt::Value %s = rt::lib(%q);", id, name),
	}
	trace.CacheAdd("globals", key, id)
	return id
}

// internGlobal interns a cached dynamic global lookup. The returned text is
// a value expression.
func (c *Context) internGlobal(name string) string {
	if e, ok := c.globals[name]; ok {
		trace.CacheHit("globals", name, e.id)
		return e.id + ".get()"
	}
	id := c.newTemp("gbl")
	c.globals[name] = cacheEntry{
		id:   id,
		decl: fmt.Sprintf("static rt::GlobalRef %s(%q);", id, name),
	}
	trace.CacheAdd("globals", name, id)
	return id + ".get()"
}

// internLibMember interns a (library, member) accessor pair. The returned
// text is a value expression.
func (c *Context) internLibMember(lib, member string) string {
	key := lib + "." + member
	if e, ok := c.members[key]; ok {
		trace.CacheHit("members", key, e.id)
		return e.id + ".get()"
	}
	id := c.newTemp("lib")
	c.members[key] = cacheEntry{
		id:   id,
		decl: fmt.Sprintf("static rt::LibRef %s(%q, %q);", id, lib, member),
	}
	trace.CacheAdd("members", key, id)
	return id + ".get()"
}

// preamble returns the cache declarations in a deterministic order: each
// table sorted by key, tables in a fixed sequence. Identical input trees
// therefore produce byte-identical preambles.
func (c *Context) preamble() []string {
	var lines []string
	for _, table := range []map[string]cacheEntry{c.strings, c.globals, c.members} {
		keys := make([]string, 0, len(table))
		for k := range table {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			lines = append(lines, table[k].decl)
		}
	}
	return lines
}

// requiredModules returns the discovered module dependencies, sorted.
func (c *Context) requiredModules() []string {
	mods := make([]string, 0, len(c.required))
	for m := range c.required {
		mods = append(mods, m)
	}
	sort.Strings(mods)
	return mods
}

// providedGlobals returns the globals a module unit assigns, sorted.
func (c *Context) providedGlobals() []string {
	names := make([]string, 0, len(c.provides))
	for n := range c.provides {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// --- text helpers ---

// indent prefixes every line with one tab, splitting any embedded newlines
// so multi-line expressions (lambdas) stay aligned.
func indent(lines []string) []string {
	var out []string
	for _, line := range lines {
		for _, part := range strings.Split(line, "\n") {
			out = append(out, "\t"+part)
		}
	}
	return out
}

// cxxQuote renders s as a C++ string literal.
func cxxQuote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		b := s[i]
		switch b {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if b < 0x20 || b == 0x7f {
				fmt.Fprintf(&sb, `\x%02x`, b)
			} else {
				sb.WriteByte(b)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// cxxReserved lists target keywords a source identifier must not shadow.
var cxxReserved = map[string]bool{
	"auto": true, "bool": true, "break": true, "case": true, "catch": true,
	"char": true, "class": true, "const": true, "continue": true,
	"default": true, "delete": true, "do": true, "double": true,
	"else": true, "enum": true, "extern": true, "false": true,
	"float": true, "for": true, "friend": true, "goto": true, "if": true,
	"inline": true, "int": true, "long": true, "namespace": true,
	"new": true, "operator": true, "private": true, "protected": true,
	"public": true, "register": true, "return": true, "short": true,
	"signed": true, "sizeof": true, "static": true, "struct": true,
	"switch": true, "template": true, "this": true, "throw": true,
	"true": true, "try": true, "typedef": true, "typename": true,
	"union": true, "unsigned": true, "using": true, "virtual": true,
	"void": true, "volatile": true, "while": true,
	"main": true, "rt": true, "args": true, "argc": true, "out": true,
}

// sanitizeIdent makes a source identifier safe to emit as a C++ name.
func sanitizeIdent(name string) string {
	var sb strings.Builder
	for i := 0; i < len(name); i++ {
		b := name[i]
		switch {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b == '_':
			sb.WriteByte(b)
		case b >= '0' && b <= '9':
			if i == 0 {
				sb.WriteByte('_')
			}
			sb.WriteByte(b)
		default:
			sb.WriteByte('_')
		}
	}
	if sb.Len() == 0 {
		return "_"
	}
	return sb.String()
}

// isSimpleName reports whether s is a bare identifier, i.e. already a
// single-evaluation value that needs no protective temporary.
func isSimpleName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		b := s[i]
		ok := b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') ||
			(i > 0 && b >= '0' && b <= '9')
		if !ok {
			return false
		}
	}
	return true
}
