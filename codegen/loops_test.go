package codegen

import (
	"testing"

	"moonc/ast"
)

func numericLoop(step *ast.Node, start, limit string) *ast.Node {
	return ast.NumericFor("i", ast.Number(start), ast.Number(limit), step,
		ast.Block(callStmt("print", ast.NameRef("i"))))
}

func TestNumericForUnitStep(t *testing.T) {
	src := entrySource(t, numericLoop(nil, "1", "10"))
	assertContains(t, src, "= 1ll;")
	assertContains(t, src, "<= 10ll;")
	assertContains(t, src, "++) {")
	assertNotContains(t, src, "rt::tonum")
}

func TestNumericForNegativeUnitStep(t *testing.T) {
	loop := ast.NumericFor("i", ast.Number("10"), ast.Number("1"),
		ast.Unary("-", ast.Number("1")),
		ast.Block(callStmt("print", ast.NameRef("i"))))
	src := entrySource(t, loop)
	assertContains(t, src, ">= 1ll;")
	assertContains(t, src, "--) {")
}

func TestNumericForLiteralStride(t *testing.T) {
	src := entrySource(t, numericLoop(ast.Number("2"), "0", "10"))
	assertContains(t, src, "+= 2ll) {")
	assertContains(t, src, "<= 10ll;")
}

func TestNumericForNegativeStrideComparesDown(t *testing.T) {
	loop := ast.NumericFor("i", ast.Number("10"), ast.Number("0"),
		ast.Unary("-", ast.Number("2")),
		ast.Block())
	src := entrySource(t, loop)
	assertContains(t, src, ">= 0ll;")
	assertContains(t, src, "+= -2ll) {")
}

func TestNumericForGenericFallback(t *testing.T) {
	// A non-literal bound forces the floating tier with its runtime
	// direction test.
	loop := ast.NumericFor("i", ast.Number("1"), ast.NameRef("n"), nil,
		ast.Block(callStmt("print", ast.NameRef("i"))))
	src := entrySource(t, loop)
	assertContains(t, src, "rt::tonum(")
	assertContains(t, src, "> 0) ? (")
	assertContains(t, src, "rt::vnum(")
}

func TestNumericForFractionalStepGoesGeneric(t *testing.T) {
	src := entrySource(t, numericLoop(ast.Number("0.5"), "0", "2"))
	assertContains(t, src, "rt::tonum(")
	assertNotContains(t, src, "+= 0ll")
}

func TestNumericForZeroStepGoesGeneric(t *testing.T) {
	// Literal zero step would loop forever in the integer tiers; the
	// generic tier's direction test never admits it.
	src := entrySource(t, numericLoop(ast.Number("0"), "1", "10"))
	assertContains(t, src, "rt::tonum(")
}

func TestNumericForVariableBound(t *testing.T) {
	src := entrySource(t, ast.NumericFor("i", ast.Number("1"), ast.Number("5"), nil,
		ast.Block(localOf("x", ast.NameRef("i")))))
	assertContains(t, src, "rt::vint(")
	// The loop variable binds once per iteration inside the body block.
	assertOrder(t, src, "for (long long ", "rt::Value i = rt::vint(", "rt::Value x = i;")
}

func TestNumericForLoopVarScoped(t *testing.T) {
	src := entrySource(t,
		ast.NumericFor("i", ast.Number("1"), ast.Number("3"), nil, ast.Block()),
		localOf("i", ast.Number("99")),
	)
	// After the loop, i is free to be redeclared without uniquifying.
	assertContains(t, src, "rt::Value i = rt::vint(99ll);")
}

func TestNumericForMissingVariable(t *testing.T) {
	n := &ast.Node{Kind: ast.KindNumericFor, Children: []*ast.Node{
		ast.Number("1"), ast.Number("2"), ast.Block(),
	}}
	c := NewContext()
	c.pushFrame()
	if _, err := Translate(c, n, 0, Options{}); err == nil {
		t.Fatal("expected malformed-tree error for fornum without a variable")
	}
}

func TestGenericForIteratorProtocol(t *testing.T) {
	loop := ast.GenericFor(
		ast.Targets(ast.NameRef("k"), ast.NameRef("v")),
		ast.Values(ast.Call(ast.NameRef("pairs"), ast.NameRef("t"))),
		ast.Block(callStmt("print", ast.NameRef("k"), ast.NameRef("v"))),
	)
	src := entrySource(t, loop)
	// Iterator triple evaluated once, before the loop.
	assertOrder(t, src,
		"rt::Value itf_",
		"rt::Value its_",
		"rt::Value itc_",
		"for (;;) {",
	)
	// Each pass: call f(s, c), stop on nil first result, rebind, advance.
	assertOrder(t, src,
		"for (;;) {",
		", 2, ",
		"if (rt::isNil(rt::at(",
		"break;",
		"rt::Value k = rt::at(",
		"rt::Value v = rt::at(",
		"= k;",
	)
}

func TestGenericForSingleVariable(t *testing.T) {
	loop := ast.GenericFor(
		ast.Targets(ast.NameRef("line")),
		ast.Values(ast.Call(ast.NameRef("lines"))),
		ast.Block(),
	)
	src := entrySource(t, loop)
	assertContains(t, src, "rt::Value line = rt::at(")
	assertContains(t, src, "= line;")
}

func TestGenericForBadVariable(t *testing.T) {
	n := ast.GenericFor(
		ast.Targets(ast.Number("1")),
		ast.Values(ast.NameRef("it")),
		ast.Block(),
	)
	c := NewContext()
	c.pushFrame()
	if _, err := Translate(c, n, 0, Options{}); err == nil {
		t.Fatal("expected malformed-tree error for non-name loop variable")
	}
}
