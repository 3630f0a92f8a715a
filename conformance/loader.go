package conformance

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// TestDir is the fixture directory (relative to conformance/)
const TestDir = "testdata"

// LoadedTest represents a test with its source file path
type LoadedTest struct {
	File  string
	Suite TestSuite
	Test  TestCase
}

// LoadAllTests walks the fixture directory and loads all test cases
func LoadAllTests() ([]LoadedTest, error) {
	var loaded []LoadedTest

	err := filepath.Walk(TestDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() || filepath.Ext(path) != ".yaml" {
			return nil
		}

		tests, err := loadTestFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		// Relative path for cleaner test names
		relPath, _ := filepath.Rel(TestDir, path)

		for _, test := range tests {
			loaded = append(loaded, LoadedTest{
				File:  relPath,
				Suite: test.Suite,
				Test:  test.Test,
			})
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return loaded, nil
}

// loadTestFile parses a single YAML file and returns all test cases
func loadTestFile(path string) ([]LoadedTest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var suite TestSuite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, err
	}

	if suite.Name == "" {
		return nil, fmt.Errorf("fixture has no suite name")
	}

	var tests []LoadedTest
	for _, test := range suite.Tests {
		tests = append(tests, LoadedTest{
			Suite: suite,
			Test:  test,
		})
	}

	return tests, nil
}
