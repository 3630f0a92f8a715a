package codegen

import (
	"fmt"
	"strings"

	"moonc/ast"
)

// UnitKind selects the wrapper a translated unit is assembled into.
type UnitKind int

const (
	// UnitEntry produces the program entry point: a main function that
	// initializes the runtime and runs the top-level statements.
	UnitEntry UnitKind = iota

	// UnitModule produces an importable module: a namespace-scoped load
	// function returning its value list through the accumulator.
	UnitModule
)

// UnitOptions configure one unit translation.
type UnitOptions struct {
	Kind UnitKind
	Name string // module name; ignored for the entry unit
}

// Unit is a fully assembled translation result.
type Unit struct {
	Kind     UnitKind
	Name     string
	Requires []string // modules discovered via require()
	Provides []string // globals a module unit assigns at top level
	source   string
}

// Source returns the assembled C++ text. Translating the same tree twice
// with fresh contexts yields byte-identical source, preamble included.
func (u *Unit) Source() string { return u.source }

// runtimeHeader is the include every generated unit starts with.
const runtimeHeader = "moonrt.h"

// TranslateUnit walks a program tree and assembles one C++ unit. The
// Context lives and dies inside this call; nothing is shared between units.
func TranslateUnit(root *ast.Node, opts UnitOptions) (*Unit, error) {
	if root == nil || root.Kind != ast.KindProgram {
		return nil, fmt.Errorf("unit root must be a program node: %w", ErrMalformedTree)
	}
	name := sanitizeIdent(opts.Name)
	if opts.Kind == UnitModule && opts.Name == "" {
		return nil, fmt.Errorf("module unit needs a name")
	}

	c := NewContext()
	c.moduleUnit = opts.Kind == UnitModule
	c.pushScope()

	fn := &fnState{retBuf: c.newTemp("ret")}
	if opts.Kind == UnitEntry {
		fn.entryLevel = true
		fn.varargs = true
		fn.returnStmt = "return 0;"
	} else {
		fn.outName = "out"
		fn.varargs = true
		fn.moduleLevel = true
		fn.returnStmt = "return;"
	}
	c.pushFn(fn)
	c.pushFrame()

	c.emitf("rt::ValueList %s;", fn.retBuf)
	_, err := Translate(c, root, 0, Options{})
	body := c.popFrame()
	c.popFn()
	c.popScope()
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("// Generated by moonc. Do not edit.\n")
	fmt.Fprintf(&sb, "#include %q\n", runtimeHeader)
	mods := c.requiredModules()
	for _, m := range mods {
		fmt.Fprintf(&sb, "#include \"mod_%s.h\"\n", m)
	}
	sb.WriteByte('\n')

	if preamble := c.preamble(); len(preamble) > 0 {
		for _, line := range preamble {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}

	provides := c.providedGlobals()
	switch opts.Kind {
	case UnitEntry:
		sb.WriteString("int main(int argc, char** argv) {\n")
		sb.WriteString("\trt::init(argc, argv);\n")
		for _, line := range indent(body) {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
		sb.WriteString("\treturn 0;\n")
		sb.WriteString("}\n")
	case UnitModule:
		if len(provides) > 0 {
			fmt.Fprintf(&sb, "// provides: %s\n", strings.Join(provides, ", "))
		}
		fmt.Fprintf(&sb, "namespace mod_%s {\n\n", name)
		sb.WriteString("void load(rt::ValueList& out) {\n")
		for _, line := range indent(body) {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
		sb.WriteString("}\n\n")
		fmt.Fprintf(&sb, "} // namespace mod_%s\n", name)
	}

	return &Unit{
		Kind:     opts.Kind,
		Name:     name,
		Requires: mods,
		Provides: provides,
		source:   sb.String(),
	}, nil
}
