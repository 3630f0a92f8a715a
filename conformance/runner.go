package conformance

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"moonc/ast"
	"moonc/codegen"
)

// TestResult represents the outcome of running a single test
type TestResult struct {
	Test       LoadedTest
	Passed     bool
	Skipped    bool
	SkipReason string
	Error      error
}

// Runner executes conformance fixtures against the translator
type Runner struct{}

// NewRunner creates a new fixture runner
func NewRunner() *Runner {
	return &Runner{}
}

// Run executes a single test case
func (r *Runner) Run(test LoadedTest) TestResult {
	result := TestResult{Test: test}

	if skipped, reason := test.Test.IsSkipped(); skipped {
		result.Skipped = true
		result.SkipReason = reason
		return result
	}

	if test.Test.Tree == nil {
		result.Error = fmt.Errorf("test %q has no tree", test.Test.Name)
		return result
	}

	root, err := buildTree(test.Test.Tree)
	if err != nil {
		// Validation catches some structural damage before the
		// translator would; both count as the malformed class.
		if test.Test.Expect.Error == "malformed" {
			result.Passed = true
			return result
		}
		result.Error = fmt.Errorf("building tree: %w", err)
		return result
	}

	opts := codegen.UnitOptions{Kind: codegen.UnitEntry}
	if test.Test.Module != "" {
		opts = codegen.UnitOptions{Kind: codegen.UnitModule, Name: test.Test.Module}
	}

	unit, err := codegen.TranslateUnit(root, opts)
	if err != nil {
		result.Error = checkTranslationError(test.Test.Expect, err)
		result.Passed = result.Error == nil
		return result
	}
	if test.Test.Expect.Error != "" {
		result.Error = fmt.Errorf("expected %q error, translation succeeded", test.Test.Expect.Error)
		return result
	}

	result.Error = checkExpectation(test.Test.Expect, unit)
	result.Passed = result.Error == nil
	return result
}

// RunAll executes every test case in order
func (r *Runner) RunAll(tests []LoadedTest) []TestResult {
	results := make([]TestResult, 0, len(tests))
	for _, test := range tests {
		results = append(results, r.Run(test))
	}
	return results
}

// buildTree converts the YAML wire shape into a validated syntax tree
func buildTree(tn *TreeNode) (*ast.Node, error) {
	n, err := convertNode(tn)
	if err != nil {
		return nil, err
	}
	if err := ast.Validate(n); err != nil {
		return nil, err
	}
	return n, nil
}

func convertNode(tn *TreeNode) (*ast.Node, error) {
	if tn == nil {
		return nil, fmt.Errorf("missing node")
	}
	k := ast.ParseKind(tn.Kind)
	if k == ast.KindInvalid {
		return nil, fmt.Errorf("unknown node kind %q", tn.Kind)
	}
	n := &ast.Node{Kind: k, Literal: tn.Literal, Name: tn.Name}
	for i, c := range tn.Children {
		cn, err := convertNode(c)
		if err != nil {
			return nil, fmt.Errorf("%s child %d: %w", tn.Kind, i, err)
		}
		n.Children = append(n.Children, cn)
	}
	return n, nil
}

// checkTranslationError matches a translation failure against the expected
// error class
func checkTranslationError(expect Expectation, err error) error {
	switch expect.Error {
	case "malformed":
		if errors.Is(err, codegen.ErrMalformedTree) {
			return nil
		}
		return fmt.Errorf("expected malformed-tree error, got: %v", err)
	case "too-deep":
		if errors.Is(err, codegen.ErrTooDeep) {
			return nil
		}
		return fmt.Errorf("expected depth error, got: %v", err)
	case "":
		return fmt.Errorf("translation failed: %v", err)
	default:
		return fmt.Errorf("unknown error class %q in fixture", expect.Error)
	}
}

// checkExpectation matches the assembled unit against the fixture's
// expectations
func checkExpectation(expect Expectation, unit *codegen.Unit) error {
	src := unit.Source()

	if expect.Golden != "" && src != expect.Golden {
		return fmt.Errorf("source mismatch\ngot:\n%s\nwant:\n%s", src, expect.Golden)
	}

	for _, want := range expect.Contains {
		if !strings.Contains(src, want) {
			return fmt.Errorf("output missing %q:\n%s", want, src)
		}
	}

	for _, unwanted := range expect.NotContains {
		if strings.Contains(src, unwanted) {
			return fmt.Errorf("output should not contain %q:\n%s", unwanted, src)
		}
	}

	if expect.Match != "" {
		re, err := regexp.Compile(expect.Match)
		if err != nil {
			return fmt.Errorf("bad match pattern %q: %w", expect.Match, err)
		}
		if !re.MatchString(src) {
			return fmt.Errorf("output does not match %q:\n%s", expect.Match, src)
		}
	}

	if expect.Requires != nil {
		if err := matchList("requires", expect.Requires, unit.Requires); err != nil {
			return err
		}
	}
	if expect.Provides != nil {
		if err := matchList("provides", expect.Provides, unit.Provides); err != nil {
			return err
		}
	}

	return nil
}

func matchList(what string, want, got []string) error {
	if len(want) != len(got) {
		return fmt.Errorf("%s = %v, want %v", what, got, want)
	}
	for i := range want {
		if want[i] != got[i] {
			return fmt.Errorf("%s = %v, want %v", what, got, want)
		}
	}
	return nil
}

// SummaryStats aggregates the outcome of a fixture run
type SummaryStats struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

// ComputeStats tallies results
func ComputeStats(results []TestResult) SummaryStats {
	stats := SummaryStats{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Skipped:
			stats.Skipped++
		case r.Passed:
			stats.Passed++
		default:
			stats.Failed++
		}
	}
	return stats
}

// FormatStats renders a one-line summary
func FormatStats(stats SummaryStats) string {
	return fmt.Sprintf("Total: %d | Passed: %d | Failed: %d | Skipped: %d",
		stats.Total, stats.Passed, stats.Failed, stats.Skipped)
}
