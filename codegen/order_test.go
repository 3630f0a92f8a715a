package codegen

import (
	"testing"

	"moonc/ast"
)

// A declaration list evaluates strictly left to right: a global read that
// precedes a call in the source must be emitted before the call runs, not
// spliced into the destination line afterwards.
func TestDeclarationReadsGlobalBeforeLaterCall(t *testing.T) {
	src := entrySource(t, ast.Local(
		ast.Targets(ast.NameRef("a"), ast.NameRef("b")),
		ast.Values(ast.NameRef("x"), ast.Call(ast.NameRef("f"))),
	))
	assertOrder(t, src,
		"rt::Value tmp_3 = gbl_2.get();",
		"rt::call(gbl_4.get(), nullptr, 0, ret_1);",
		"rt::Value a = tmp_3;",
	)
}

func TestAssignmentReadsGlobalBeforeLaterCall(t *testing.T) {
	src := entrySource(t,
		localOf("a", ast.Nil()),
		localOf("b", ast.Nil()),
		ast.Assign(
			ast.Targets(ast.NameRef("a"), ast.NameRef("b")),
			ast.Values(ast.NameRef("x"), ast.Call(ast.NameRef("f"))),
		),
	)
	assertOrder(t, src, ".get();", "rt::call(", "a = tmp_")
}

func TestCallArgumentsReadGlobalsInOrder(t *testing.T) {
	src := entrySource(t, callStmt("f",
		ast.NameRef("x"), ast.Call(ast.NameRef("g")), ast.Number("99")))
	assertOrder(t, src,
		"rt::Value tmp_5 = gbl_4.get();",
		"rt::call(gbl_6.get()",
		"{tmp_5, tmp_7, rt::vint(99ll)}",
	)
}

func TestExpandingCallHeadReadsGlobalsInOrder(t *testing.T) {
	src := entrySource(t, callStmt("f",
		ast.NameRef("x"), ast.Call(ast.NameRef("g")), ast.Call(ast.NameRef("h"))))
	assertOrder(t, src,
		"rt::Value tmp_5 = gbl_4.get();",
		"rt::call(gbl_6.get()",
		".push(tmp_5);",
	)
}

func TestBuiltinArgumentsReadGlobalsInOrder(t *testing.T) {
	src := entrySource(t, callStmt("print",
		ast.NameRef("x"), ast.Call(ast.NameRef("f")), ast.String("done")))
	assertOrder(t, src,
		"rt::Value tmp_3 = gbl_2.get();",
		"rt::call(gbl_4.get(), nullptr, 0, ret_1);",
		"rt::print(tmp_3, tmp_5, str_6);",
	)
}

func TestBinaryLeftOperandReadBeforeRightCall(t *testing.T) {
	src := entrySource(t, localOf("y",
		ast.Binary("+", ast.NameRef("x"), ast.Call(ast.NameRef("f")))))
	assertOrder(t, src,
		"rt::Value tmp_3 = gbl_2.get();",
		"rt::call(",
		"rt::Value y = (tmp_3 + tmp_5);",
	)
}

func TestIndexObjectReadBeforeKeyCall(t *testing.T) {
	src := entrySource(t, localOf("v",
		ast.Index(ast.NameRef("t"), ast.Call(ast.NameRef("f")))))
	assertOrder(t, src,
		"rt::Value tmp_3 = gbl_2.get();",
		"rt::call(",
		"rt::Value v = rt::index(tmp_3, tmp_5);",
	)
}

func TestCompactTableFieldsReadInOrder(t *testing.T) {
	src := entrySource(t, localOf("t", ast.Table(
		ast.NamedField("a", ast.NameRef("x")),
		ast.NamedField("b", ast.Call(ast.NameRef("f"))),
	)))
	assertOrder(t, src,
		"rt::Value tmp_3 = gbl_2.get();",
		"rt::call(",
		`rt::tableOf("a", tmp_3, "b", tmp_5)`,
	)
}

// Arguments with no call to their right keep their inline form; the pin
// only exists where a later sibling could reorder the read.
func TestPureTrailingArgumentsStayInline(t *testing.T) {
	src := entrySource(t, callStmt("f",
		ast.Call(ast.NameRef("g")), ast.NameRef("x"), ast.Number("99")))
	assertContains(t, src, "gbl_6.get(), rt::vint(99ll)}")
}
