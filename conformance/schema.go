// Package conformance runs YAML suites of stack machine programs.
package conformance

// TestSuite represents a complete YAML test file
type TestSuite struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description,omitempty"`
	Defines     map[string]int64 `yaml:"defines,omitempty"`
	Tests       []TestCase       `yaml:"tests"`
}

// TestCase represents a single program within a suite
type TestCase struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Skip        interface{} `yaml:"skip,omitempty"` // bool or string
	Source      string      `yaml:"source"`
	StepLimit   int         `yaml:"step_limit,omitempty"`
	Expect      Expectation `yaml:"expect"`
}

// Expectation defines what result is expected from a test.
// Unset fields are not checked.
type Expectation struct {
	Output *string           `yaml:"output,omitempty"` // exact program output
	Stack  []int64           `yaml:"stack,omitempty"`  // final stack, bottom first
	Empty  bool              `yaml:"empty,omitempty"`  // final stack is empty
	Memory map[string]int64  `yaml:"memory,omitempty"` // variables that must hold these values
	Error  string            `yaml:"error,omitempty"`  // error kind, see ErrorKind
	Line   int               `yaml:"line,omitempty"`   // source line of the error
	Heap   map[string]string `yaml:"heap,omitempty"`   // heap id to kind name
}

// IsSkipped returns true if this test should be skipped
func (tc *TestCase) IsSkipped() (bool, string) {
	switch v := tc.Skip.(type) {
	case bool:
		if v {
			return true, "skipped"
		}
	case string:
		return true, v
	}

	return false, ""
}
