package conformance

// TestSuite represents a complete YAML fixture file
type TestSuite struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Tests       []TestCase `yaml:"tests"`
}

// TestCase represents a single translation check within a suite
type TestCase struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Skip        interface{} `yaml:"skip,omitempty"`   // bool or string
	Module      string      `yaml:"module,omitempty"` // non-empty: translate as a module unit
	Tree        *TreeNode   `yaml:"tree"`
	Expect      Expectation `yaml:"expect"`
}

// TreeNode mirrors the parser wire format so fixtures can spell trees
// directly in YAML
type TreeNode struct {
	Kind     string      `yaml:"kind"`
	Literal  string      `yaml:"literal,omitempty"`
	Name     string      `yaml:"name,omitempty"`
	Children []*TreeNode `yaml:"children,omitempty"`
}

// Expectation defines what the generated source must look like
type Expectation struct {
	Contains    []string `yaml:"contains,omitempty"`     // substrings, all required
	NotContains []string `yaml:"not_contains,omitempty"` // substrings, all forbidden
	Match       string   `yaml:"match,omitempty"`        // regex over the whole unit
	Golden      string   `yaml:"golden,omitempty"`       // exact source text
	Error       string   `yaml:"error,omitempty"`        // "malformed" or "too-deep"
	Requires    []string `yaml:"requires,omitempty"`     // exact Unit.Requires
	Provides    []string `yaml:"provides,omitempty"`     // exact Unit.Provides
}

// IsSkipped returns true if this test should be skipped
func (tc *TestCase) IsSkipped() (bool, string) {
	if tc.Skip == nil {
		return false, ""
	}

	switch v := tc.Skip.(type) {
	case bool:
		if v {
			return true, "skipped"
		}
		return false, ""
	case string:
		return true, v
	default:
		return false, ""
	}
}
