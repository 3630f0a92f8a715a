package conformance

import (
	"testing"
)

func TestConformance(t *testing.T) {
	tests, err := LoadAllTests()
	if err != nil {
		t.Fatalf("Failed to load tests: %v", err)
	}

	if len(tests) == 0 {
		t.Fatal("No tests loaded")
	}

	runner := NewRunner()
	results := runner.RunAll(tests)
	stats := ComputeStats(results)

	// Group results by file for organized output
	fileGroups := make(map[string][]TestResult)
	for _, result := range results {
		fileGroups[result.Test.File] = append(fileGroups[result.Test.File], result)
	}

	for file, fileResults := range fileGroups {
		t.Run(file, func(t *testing.T) {
			for _, result := range fileResults {
				testName := result.Test.Test.Name
				t.Run(testName, func(t *testing.T) {
					if result.Skipped {
						t.Skipf("Skipped: %s", result.SkipReason)
					} else if !result.Passed {
						if result.Error != nil {
							t.Errorf("Test failed: %v", result.Error)
						} else {
							t.Error("Test failed")
						}
					}
				})
			}
		})
	}

	t.Logf("\n=== Summary ===\n%s", FormatStats(stats))
}

func TestLoadAllTests(t *testing.T) {
	tests, err := LoadAllTests()
	if err != nil {
		t.Fatalf("Failed to load tests: %v", err)
	}

	t.Logf("Loaded %d test cases from fixture suite", len(tests))

	if len(tests) == 0 {
		t.Fatal("fixture directory is empty")
	}

	for _, test := range tests {
		if test.Test.Name == "" {
			t.Errorf("%s: test has no name", test.File)
		}
		if test.File == "" {
			t.Error("test has no file path")
		}
	}

	// Every fixture file should carry at least one case
	files := make(map[string]int)
	for _, test := range tests {
		files[test.File]++
	}
	for file, n := range files {
		if n == 0 {
			t.Errorf("%s has no tests", file)
		}
	}
	t.Logf("Fixture files: %d", len(files))
}

func TestBuildTreeRejectsUnknownKind(t *testing.T) {
	_, err := buildTree(&TreeNode{Kind: "teleport"})
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestBuildTreeValidates(t *testing.T) {
	_, err := buildTree(&TreeNode{Kind: "binary", Name: "+", Children: []*TreeNode{
		{Kind: "number", Literal: "1"},
	}})
	if err == nil {
		t.Fatal("expected validation error for short binary node")
	}
}
