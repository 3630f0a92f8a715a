package codegen

import (
	"strings"
	"testing"

	"moonc/ast"
)

// localOf is shorthand for "local name = value".
func localOf(name string, value *ast.Node) *ast.Node {
	return ast.Local(ast.Targets(ast.NameRef(name)), ast.Values(value))
}

func TestNumberLiteralForms(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"fractional", "1.5", "rt::vnum(1.5)"},
		{"exponent", "2e3", "rt::vnum(2e3)"},
		{"large integer", "42", "rt::vint(42ll)"},
		{"hex integer", "0x10", "rt::vint(0x10ll)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := entrySource(t, localOf("x", ast.Number(tt.text)))
			assertContains(t, src, tt.want)
		})
	}
}

func TestSmallIntegerInterning(t *testing.T) {
	src := entrySource(t,
		localOf("a", ast.Number("5")),
		localOf("b", ast.Number("5")),
	)
	// Both references share one interned declaration.
	if n := countOccurrences(src, "rt::vint(5ll)"); n != 1 {
		t.Errorf("expected 1 interned declaration for 5, got %d:\n%s", n, src)
	}
}

func TestStringInterningIdempotent(t *testing.T) {
	src := entrySource(t,
		localOf("a", ast.String("hello")),
		localOf("b", ast.String("hello")),
		localOf("c", ast.String("other")),
	)
	if n := countOccurrences(src, `rt::vstr("hello")`); n != 1 {
		t.Errorf(`expected 1 preamble declaration for "hello", got %d:\n%s`, n, src)
	}
	if n := countOccurrences(src, `rt::vstr("other")`); n != 1 {
		t.Errorf(`expected 1 preamble declaration for "other", got %d:\n%s`, n, src)
	}
}

func TestNameResolutionOrder(t *testing.T) {
	t.Run("local wins", func(t *testing.T) {
		src := entrySource(t,
			localOf("print", ast.Nil()),
			localOf("x", ast.NameRef("print")),
		)
		assertNotContains(t, src, "rt::bi::print")
	})
	t.Run("runtime namespace", func(t *testing.T) {
		src := entrySource(t, localOf("s", ast.NameRef("string")))
		assertContains(t, src, `rt::lib("string")`)
	})
	t.Run("builtin allowlist", func(t *testing.T) {
		src := entrySource(t, localOf("p", ast.NameRef("tostring")))
		assertContains(t, src, "rt::bi::tostring")
	})
	t.Run("cached global lookup", func(t *testing.T) {
		src := entrySource(t,
			localOf("a", ast.NameRef("mystery")),
			localOf("b", ast.NameRef("mystery")),
		)
		if n := countOccurrences(src, `rt::GlobalRef`); n != 1 {
			t.Errorf("expected 1 global accessor declaration, got %d:\n%s", n, src)
		}
		assertContains(t, src, `("mystery");`)
	})
}

func TestArithmeticAndComparisonLowering(t *testing.T) {
	tests := []struct {
		op   string
		want string
	}{
		{"+", "+"},
		{"%", "%"},
		{"==", "rt::eq("},
		{"~=", "rt::ne("},
		{"<", "rt::lt("},
		{">=", "rt::ge("},
		{"..", "rt::concat("},
		{"^", "rt::pow("},
		{"//", "rt::idiv("},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			src := entrySource(t, localOf("x",
				ast.Binary(tt.op, ast.NameRef("a"), ast.NameRef("b"))))
			assertContains(t, src, tt.want)
		})
	}
}

func TestShortCircuitAnd(t *testing.T) {
	// false and sideEffect() — the call must sit inside the branch that
	// only runs when the left operand is truthy.
	src := entrySource(t, localOf("x",
		ast.Binary("and", ast.False(), ast.Call(ast.NameRef("sideEffect")))))

	ifIdx := strings.Index(src, "if (rt::truthy(")
	callIdx := strings.Index(src, "rt::call(")
	if ifIdx < 0 || callIdx < 0 {
		t.Fatalf("missing short-circuit shape:\n%s", src)
	}
	if callIdx < ifIdx {
		t.Errorf("right operand evaluated before the truthiness branch:\n%s", src)
	}
}

func TestShortCircuitOr(t *testing.T) {
	src := entrySource(t, localOf("x",
		ast.Binary("or", ast.NameRef("a"), ast.Call(ast.NameRef("fallback")))))
	assertContains(t, src, "if (!rt::truthy(")
	assertOrder(t, src, "if (!rt::truthy(", "rt::call(")
}

func TestUnaryLowering(t *testing.T) {
	tests := []struct {
		op   string
		want string
	}{
		{"-", "(-"},
		{"not", "rt::vbool(!rt::truthy("},
		{"#", "rt::len("},
		{"~", "(~"},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			src := entrySource(t, localOf("x", ast.Unary(tt.op, ast.NameRef("v"))))
			assertContains(t, src, tt.want)
		})
	}
}

func TestMemberAccessLowering(t *testing.T) {
	t.Run("generic member", func(t *testing.T) {
		src := entrySource(t, localOf("x", ast.Member(ast.NameRef("obj"), "field")))
		assertContains(t, src, `rt::member(`)
		assertContains(t, src, `"field"`)
	})
	t.Run("library member memoized", func(t *testing.T) {
		src := entrySource(t,
			localOf("a", ast.Member(ast.NameRef("string"), "format")),
			localOf("b", ast.Member(ast.NameRef("string"), "format")),
		)
		if n := countOccurrences(src, "rt::LibRef"); n != 1 {
			t.Errorf("expected 1 library member accessor, got %d:\n%s", n, src)
		}
	})
	t.Run("shadowed namespace is not a library", func(t *testing.T) {
		src := entrySource(t,
			localOf("string", ast.Nil()),
			localOf("x", ast.Member(ast.NameRef("string"), "format")),
		)
		assertNotContains(t, src, "rt::LibRef")
	})
}

func TestIndexLowering(t *testing.T) {
	src := entrySource(t, localOf("x",
		ast.Index(ast.NameRef("t"), ast.Number("42"))))
	assertContains(t, src, "rt::index(")
}

func TestCompactTableConstructor(t *testing.T) {
	src := entrySource(t, localOf("t", ast.Table(
		ast.NamedField("a", ast.Number("42")),
		ast.NamedField("b", ast.String("x")),
	)))
	assertContains(t, src, `rt::tableOf("a", `)
	assertNotContains(t, src, "rt::newTable()")
}

func TestGeneralTableConstructor(t *testing.T) {
	src := entrySource(t, localOf("t", ast.Table(
		ast.NamedField("a", ast.Number("42")),
		ast.Number("99"),
		ast.ExprField(ast.String("k"), ast.Number("17")),
	)))
	assertContains(t, src, "rt::newTable()")
	assertContains(t, src, `rt::setMember(`)
	assertContains(t, src, "rt::seti(")
	assertContains(t, src, "rt::setIndex(")
	assertNotContains(t, src, "rt::tableOf")
}

func TestTableTrailingExpansion(t *testing.T) {
	src := entrySource(t, localOf("t", ast.Table(
		ast.Number("99"),
		ast.Call(ast.NameRef("f")),
	)))
	// The trailing call's results are inserted at consecutive positions
	// via a runtime position counter.
	assertContains(t, src, "long long pos_")
	assertOrder(t, src, "rt::seti(", "rt::call(", "for (long long ")
}

func TestVarargExpansionInFunction(t *testing.T) {
	fn := ast.Function("", ast.Params(ast.NameRef("a"), ast.Vararg()),
		ast.Block(ast.Return(ast.Vararg())))
	src := entrySource(t, localOf("f", fn))
	assertContains(t, src, "rt::sliceArgs(args, argc, 1, ")
}

func TestVarargSingleValueContext(t *testing.T) {
	fn := ast.Function("", ast.Params(ast.Vararg()),
		ast.Block(localOf("first", ast.Vararg())))
	src := entrySource(t, localOf("f", fn))
	assertContains(t, src, "rt::arg(args, argc, 0)")
}
