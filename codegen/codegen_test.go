package codegen

import (
	"strings"
	"testing"

	"moonc/ast"
)

// entrySource translates top-level statements as the entry unit and fails
// the test on error.
func entrySource(t *testing.T, stmts ...*ast.Node) string {
	t.Helper()
	unit, err := TranslateUnit(ast.Program(stmts...), UnitOptions{Kind: UnitEntry})
	if err != nil {
		t.Fatalf("TranslateUnit: %v", err)
	}
	return unit.Source()
}

// moduleSource translates top-level statements as a module unit.
func moduleSource(t *testing.T, name string, stmts ...*ast.Node) *Unit {
	t.Helper()
	unit, err := TranslateUnit(ast.Program(stmts...), UnitOptions{Kind: UnitModule, Name: name})
	if err != nil {
		t.Fatalf("TranslateUnit: %v", err)
	}
	return unit
}

func assertContains(t *testing.T, src, want string) {
	t.Helper()
	if !strings.Contains(src, want) {
		t.Errorf("output missing %q:\n%s", want, src)
	}
}

func assertNotContains(t *testing.T, src, unwanted string) {
	t.Helper()
	if strings.Contains(src, unwanted) {
		t.Errorf("output should not contain %q:\n%s", unwanted, src)
	}
}

// assertOrder checks that the given substrings appear in the source in the
// given order.
func assertOrder(t *testing.T, src string, subs ...string) {
	t.Helper()
	pos := 0
	for _, sub := range subs {
		idx := strings.Index(src[pos:], sub)
		if idx < 0 {
			t.Errorf("output missing %q (after byte %d):\n%s", sub, pos, src)
			return
		}
		pos += idx + len(sub)
	}
}

// countOccurrences counts non-overlapping occurrences of sub in src.
func countOccurrences(src, sub string) int {
	return strings.Count(src, sub)
}
