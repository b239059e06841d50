package conformance

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/ezrec/stackvm/emulator"
	"github.com/ezrec/stackvm/heap"
	"github.com/ezrec/stackvm/vm"
)

// DefaultStepLimit bounds tests that do not set their own step_limit.
const DefaultStepLimit = 100_000

// TestResult represents the outcome of running a single test
type TestResult struct {
	Test       LoadedTest
	Passed     bool
	Skipped    bool
	SkipReason string
	Output     string
	Error      error
}

// SummaryStats counts the outcomes of a run.
type SummaryStats struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

// Runner executes conformance tests
type Runner struct {
	Verbose   bool
	StepLimit int
}

// NewRunner creates a new test runner.
func NewRunner() *Runner {
	return &Runner{StepLimit: DefaultStepLimit}
}

// Run assembles and executes a single test, and checks its expectation.
func (r *Runner) Run(test LoadedTest) (result TestResult) {
	result.Test = test

	skipped, reason := test.Test.IsSkipped()
	if skipped {
		result.Skipped = true
		result.SkipReason = reason
		return
	}

	emu := emulator.NewEmulator()
	emu.Verbose = r.Verbose
	emu.StepLimit = r.StepLimit
	if test.Test.StepLimit > 0 {
		emu.StepLimit = test.Test.StepLimit
	}

	output := &strings.Builder{}
	emu.Tape.Output = output

	var defines map[string]int64
	if test.Suite != nil {
		defines = test.Suite.Defines
	}

	err := emu.Load(strings.NewReader(test.Test.Source), defines)
	if err == nil {
		err = emu.Run(context.Background())
	}

	result.Output = output.String()
	result.Error = checkExpectation(test.Test.Expect, emu, result.Output, err)
	result.Passed = result.Error == nil

	return
}

// RunAll runs every test in order.
func (r *Runner) RunAll(tests []LoadedTest) (results []TestResult) {
	results = make([]TestResult, 0, len(tests))
	for _, test := range tests {
		results = append(results, r.Run(test))
	}
	return
}

// ComputeStats summarizes a set of results.
func ComputeStats(results []TestResult) (stats SummaryStats) {
	stats.Total = len(results)
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
	return
}

// FormatStats returns a human-readable summary
func FormatStats(stats SummaryStats) string {
	return f("%d passed, %d failed, %d skipped (%d total)",
		stats.Passed, stats.Failed, stats.Skipped, stats.Total)
}

// ErrorKind names the kind of a machine, assembler or host error.
// It returns the empty string for a nil error.
func ErrorKind(err error) string {
	var (
		memory    vm.ErrInvalidMemoryAccess
		invalid   vm.ErrInvalidInstruction
		function  vm.ErrFunctionNotFound
		local     vm.ErrLocalVarNotFound
		param     vm.ErrInvalidParameter
		char      vm.ErrInvalidCharacter
		address   vm.ErrInvalidHeapAddress
		index     vm.ErrInvalidArrayIndex
		bounds    vm.ErrArrayBounds
		typeError vm.ErrType
		syntax    *vm.ErrSyntax
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &syntax):
		return "Syntax"
	case errors.Is(err, emulator.ErrStepLimit):
		return "StepLimit"
	case errors.Is(err, vm.ErrStackUnderflow):
		return "StackUnderflow"
	case errors.Is(err, vm.ErrDivisionByZero):
		return "DivisionByZero"
	case errors.Is(err, vm.ErrEmptyCallStack):
		return "EmptyCallStack"
	case errors.As(err, &memory):
		return "InvalidMemoryAccess"
	case errors.As(err, &invalid):
		return "InvalidInstruction"
	case errors.As(err, &function):
		return "FunctionNotFound"
	case errors.As(err, &local):
		return "LocalVarNotFound"
	case errors.As(err, &param):
		return "InvalidParameter"
	case errors.As(err, &char):
		return "InvalidCharacter"
	case errors.As(err, &address):
		return "InvalidHeapAddress"
	case errors.As(err, &index):
		return "InvalidArrayIndex"
	case errors.As(err, &bounds):
		return "ArrayBounds"
	case errors.As(err, &typeError):
		return "Type"
	}

	return "Unknown"
}

// errorLine returns the source line an error is reported at.
func errorLine(err error) int {
	var runtime *emulator.ErrRuntime
	if errors.As(err, &runtime) {
		return runtime.LineNo
	}

	var syntax *vm.ErrSyntax
	if errors.As(err, &syntax) {
		return syntax.LineNo
	}

	return 0
}

// checkExpectation compares the outcome of a run with the expectation.
func checkExpectation(expect Expectation, emu *emulator.Emulator, output string, err error) error {
	kind := ErrorKind(err)
	if expect.Error != kind {
		if err != nil && len(expect.Error) == 0 {
			return &ErrUnexpected{Err: err}
		}
		return &ErrMismatch{Field: "error", Expected: expect.Error, Found: kind}
	}

	if expect.Line != 0 {
		line := errorLine(err)
		if line != expect.Line {
			return &ErrMismatch{Field: "line", Expected: expect.Line, Found: line}
		}
	}

	if expect.Output != nil && *expect.Output != output {
		return &ErrMismatch{Field: "output", Expected: strconv.Quote(*expect.Output), Found: strconv.Quote(output)}
	}

	stack := emu.VM.Stack.Data
	if expect.Stack != nil && !slices.Equal(expect.Stack, stack) {
		return &ErrMismatch{Field: "stack", Expected: fmt.Sprint(expect.Stack), Found: fmt.Sprint(stack)}
	}

	if expect.Empty && len(stack) != 0 {
		return &ErrMismatch{Field: "stack", Expected: "[]", Found: fmt.Sprint(stack)}
	}

	for _, name := range slices.Sorted(maps.Keys(expect.Memory)) {
		value, ok := emu.VM.Memory[name]
		if !ok {
			return &ErrMismatch{Field: "memory " + name, Expected: expect.Memory[name], Found: "nothing"}
		}
		if value != expect.Memory[name] {
			return &ErrMismatch{Field: "memory " + name, Expected: expect.Memory[name], Found: value}
		}
	}

	for _, key := range slices.Sorted(maps.Keys(expect.Heap)) {
		id, perr := strconv.ParseInt(key, 10, 64)
		if perr != nil {
			return &ErrUnexpected{Err: perr}
		}
		value, _ := emu.VM.Heap.Get(id)
		found := heap.KindOf(value).String()
		if found != expect.Heap[key] {
			return &ErrMismatch{Field: "heap " + key, Expected: expect.Heap[key], Found: found}
		}
	}

	return nil
}
