package vm

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/stackvm/heap"
)

// execute steps the machine until it halts or fails.
func execute(vm *VM) (output string, err error) {
	for range 10_000 {
		var running bool
		running, err = vm.Step()
		if err != nil || !running {
			break
		}
	}

	output = strings.Join(vm.Output.Drain(), "")
	return
}

func load(t *testing.T, program ...string) *VM {
	return NewVM(assemble(t, program...).Instructions())
}

func TestVM(t *testing.T) {
	assert := assert.New(t)

	vm := load(t, "PUSH 10", "PUSH 5", "ADD", "PRINT", "HALT")

	output, err := execute(vm)
	assert.NoError(err)
	assert.Equal("15\n", output)
	assert.True(vm.Stack.Empty())
	assert.True(vm.Halted())
	assert.Equal(5, vm.Pc)
}

func TestVMArithmetic(t *testing.T) {
	assert := assert.New(t)

	vm := load(t,
		"PUSH 30", "PUSH 20", "SUB", "PRINT",
		"PUSH 10", "PUSH 2", "MUL", "PRINT",
		"PUSH 20", "PUSH 4", "DIV", "PRINT",
		"PUSH -7", "PUSH 2", "DIV", "PRINT",
		"HALT",
	)

	output, err := execute(vm)
	assert.NoError(err)
	assert.Equal("10\n20\n5\n-3\n", output)
	assert.True(vm.Stack.Empty())
}

func TestVMStack(t *testing.T) {
	assert := assert.New(t)

	vm := load(t, "PUSH 1", "PUSH 2", "SWAP", "DUP", "PUSH 9", "POP", "HALT")

	_, err := execute(vm)
	assert.NoError(err)
	assert.Equal([]int64{2, 1, 1}, vm.Stack.Data)
}

func TestVMCompare(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		a, b   int64
		op     Op
		result int64
	}{
		{3, 3, OP_EQUAL, 1},
		{3, 4, OP_EQUAL, 0},
		{3, 4, OP_NOT_EQUAL, 1},
		{3, 4, OP_LESS_THAN, 1},
		{4, 3, OP_LESS_THAN, 0},
		{4, 4, OP_LESS_EQUAL, 1},
		{5, 4, OP_LESS_EQUAL, 0},
		{5, 4, OP_GREATER_THAN, 1},
		{4, 4, OP_GREATER_THAN, 0},
		{4, 4, OP_GREATER_EQUAL, 1},
		{3, 4, OP_GREATER_EQUAL, 0},
		{2, 5, OP_AND, 1},
		{0, 5, OP_AND, 0},
		{0, 5, OP_OR, 1},
		{0, 0, OP_OR, 0},
	}

	for _, entry := range table {
		vm := NewVM([]Instruction{MakePush(entry.a), MakePush(entry.b), Make(entry.op)})
		_, err := execute(vm)
		assert.NoError(err, entry.op.String())
		assert.Equal([]int64{entry.result}, vm.Stack.Data, "%v %v %v", entry.a, entry.op, entry.b)
	}

	vm := load(t, "PUSH 0", "NOT", "PUSH 7", "NOT")
	_, err := execute(vm)
	assert.NoError(err)
	assert.Equal([]int64{1, 0}, vm.Stack.Data)
}

func TestVMMemory(t *testing.T) {
	assert := assert.New(t)

	vm := load(t, "PUSH 42", "STORE answer", "LOAD answer", "LOAD answer", "ADD", "PRINT", "LOAD missing")

	output, err := execute(vm)
	assert.Equal(ErrInvalidMemoryAccess("missing"), err)
	assert.Equal("84\n", output)
	assert.Equal(map[string]int64{"answer": 42}, vm.Memory)
	assert.Equal(6, vm.Pc)
}

func TestVMLoop(t *testing.T) {
	assert := assert.New(t)

	vm := load(t,
		"PUSH 1",
		"STORE i",
		"loop: LOAD i",
		"PRINT",
		"LOAD i",
		"PUSH 1",
		"ADD",
		"DUP",
		"STORE i",
		"PUSH 6",
		"SUB",
		"JMPNZ loop",
		"HALT",
	)

	output, err := execute(vm)
	assert.NoError(err)
	assert.Equal("1\n2\n3\n4\n5\n", output)
	assert.True(vm.Stack.Empty())
}

func TestVMJumpZero(t *testing.T) {
	assert := assert.New(t)

	vm := NewVM([]Instruction{MakeJump(OP_JUMP, 0)})
	running, err := vm.Step()
	assert.NoError(err)
	assert.True(running)
	assert.Equal(0, vm.Pc)

	vm = load(t,
		"top: LOAD n",
		"PRINT",
		"LOAD n",
		"PUSH 1",
		"SUB",
		"DUP",
		"STORE n",
		"JMPNZ top",
		"HALT",
	)
	vm.Memory["n"] = 3

	output, err := execute(vm)
	assert.NoError(err)
	assert.Equal("3\n2\n1\n", output)
}

func TestVMJumpConditional(t *testing.T) {
	assert := assert.New(t)

	vm := load(t,
		"PUSH 0",
		"JMPIF skip",
		"PUSH 5",
		"PUSH 0",
		"JMPZ skip",
		"PUSH 1",
		"skip: PUSH 3",
		"JMPNZ end",
		"PUSH 2",
		"end: HALT",
	)

	_, err := execute(vm)
	assert.NoError(err)
	assert.Equal([]int64{5}, vm.Stack.Data)

	vm = load(t, "JMPNZ end", "end: HALT")
	_, err = execute(vm)
	assert.Equal(ErrStackUnderflow, err)
	assert.Equal(0, vm.Pc)
}

func TestVMJumpInvalid(t *testing.T) {
	assert := assert.New(t)

	table := []int{1, 5, -1}
	for _, target := range table {
		vm := NewVM([]Instruction{MakeJump(OP_JUMP, target)})
		running, err := vm.Step()
		assert.False(running)
		assert.Equal(ErrInvalidInstruction(target), err)
		assert.Equal(0, vm.Pc)
	}

	// Label after the last instruction is an address outside the program.
	vm := load(t, "PUSH 1", "JMPNZ end", "end:")
	_, err := execute(vm)
	assert.Equal(ErrInvalidInstruction(2), err)
	assert.True(vm.Stack.Empty())
	assert.Equal(1, vm.Pc)

	vm = NewVM([]Instruction{{Op: Op(999)}})
	_, err = vm.Step()
	assert.Equal(ErrInvalidInstruction(0), err)
}

func TestVMHalt(t *testing.T) {
	assert := assert.New(t)

	vm := load(t, "PUSH 1", "HALT", "PUSH 2")

	running, err := vm.Step()
	assert.NoError(err)
	assert.True(running)

	running, err = vm.Step()
	assert.NoError(err)
	assert.False(running)
	assert.Equal(2, vm.Pc)
	assert.Equal([]int64{1}, vm.Stack.Data)

	// Falling off the end halts.
	vm = load(t, "PUSH 1")
	running, err = vm.Step()
	assert.NoError(err)
	assert.True(running)
	assert.True(vm.Halted())

	running, err = vm.Step()
	assert.NoError(err)
	assert.False(running)
	assert.Equal(1, vm.Pc)

	vm = NewVM(nil)
	running, err = vm.Step()
	assert.NoError(err)
	assert.False(running)
}

func TestVMUnderflow(t *testing.T) {
	assert := assert.New(t)

	table := []string{"POP", "DUP", "ADD", "SUB", "MUL", "DIV", "STORE x", "EQ", "NOT", "PRINT", "PRINTCHAR", "NEWARRAY", "STRLEN"}
	for _, source := range table {
		vm := load(t, source)
		_, err := execute(vm)
		assert.Equal(ErrStackUnderflow, err, source)
		assert.Equal(0, vm.Pc, source)
	}

	vm := load(t, "PUSH 1", "SWAP")
	_, err := execute(vm)
	assert.Equal(ErrStackUnderflow, err)
	assert.Equal([]int64{1}, vm.Stack.Data)
}

func TestVMNonTransactional(t *testing.T) {
	assert := assert.New(t)

	// Both operands are consumed before the division fails.
	vm := load(t, "PUSH 7", "PUSH 1", "PUSH 0", "DIV")
	_, err := execute(vm)
	assert.Equal(ErrDivisionByZero, err)
	assert.Equal([]int64{7}, vm.Stack.Data)
	assert.Equal(3, vm.Pc)

	// ADD pops its right operand before finding the left one missing.
	vm = load(t, "PUSH 1", "ADD")
	_, err = execute(vm)
	assert.Equal(ErrStackUnderflow, err)
	assert.True(vm.Stack.Empty())

	// The array id and index are consumed by a failing ARRAYGET.
	vm = load(t, "PUSH 2", "NEWARRAY", "PUSH 5", "ARRAYGET")
	_, err = execute(vm)
	assert.Equal(ErrArrayBounds{Index: 5, Length: 2}, err)
	assert.True(vm.Stack.Empty())
	assert.Equal(3, vm.Pc)

	// STRCAT consumes both ids before checking their kinds.
	vm = load(t, `NEWSTR "a"`, "PUSH 1", "NEWARRAY", "STRCAT")
	_, err = execute(vm)
	assert.Equal(ErrType{Expected: "string", Found: "array"}, err)
	assert.True(vm.Stack.Empty())
	assert.Equal(3, vm.Pc)

	// A string handed to FREEARR is released before the error.
	vm = load(t, `NEWSTR "a"`, "FREEARR")
	_, err = execute(vm)
	assert.Equal(ErrInvalidHeapAddress(1), err)
	_, ok := vm.Heap.Get(1)
	assert.False(ok)
}

func TestVMArrayLimit(t *testing.T) {
	assert := assert.New(t)

	vm := load(t, "PUSH 4", "NEWARRAY", "PUSH 5", "NEWARRAY")
	vm.MaxArray = 4
	_, err := execute(vm)
	assert.Equal(ErrInvalidArrayIndex(5), err)
	assert.Equal([]int64{1}, vm.Stack.Data)
	assert.Equal(1, vm.Heap.Len())
	assert.Equal(3, vm.Pc)

	vm = load(t, "PUSH 16777216", "NEWARRAY", "ARRAYLEN")
	_, err = execute(vm)
	assert.NoError(err)
	assert.Equal([]int64{DEFAULT_MAX_ARRAY}, vm.Stack.Data)
}

func TestVMArray(t *testing.T) {
	assert := assert.New(t)

	vm := load(t,
		"PUSH 3", "NEWARRAY", "STORE arr",
		"LOAD arr", "PUSH 0", "PUSH 10", "ARRAYSET",
		"LOAD arr", "PUSH 1", "PUSH 20", "ARRAYSET",
		"LOAD arr", "PUSH 0", "ARRAYGET", "PRINT",
		"LOAD arr", "PUSH 1", "ARRAYGET", "PRINT",
		"LOAD arr", "ARRAYLEN", "PRINT",
		"HALT",
	)

	output, err := execute(vm)
	assert.NoError(err)
	assert.Equal("10\n20\n3\n", output)
	assert.True(vm.Stack.Empty())

	array, ok := vm.Heap.Array(vm.Memory["arr"])
	assert.True(ok)
	assert.Equal(heap.Array{10, 20, 0}, array)
}

func TestVMArrayErrors(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		program []string
		err     error
		heapLen int
	}{
		{[]string{"PUSH -1", "NEWARRAY"}, ErrInvalidArrayIndex(-1), 0},
		{[]string{"PUSH 2", "NEWARRAY", "PUSH 2", "ARRAYGET"}, ErrArrayBounds{Index: 2, Length: 2}, 1},
		{[]string{"PUSH 2", "NEWARRAY", "PUSH -1", "ARRAYGET"}, ErrArrayBounds{Index: -1, Length: 2}, 1},
		{[]string{"PUSH 2", "NEWARRAY", "PUSH -1", "PUSH 5", "ARRAYSET"}, ErrArrayBounds{Index: -1, Length: 2}, 1},
		{[]string{"PUSH 0", "NEWARRAY", "PUSH 0", "PUSH 5", "ARRAYSET"}, ErrArrayBounds{Index: 0, Length: 0}, 1},
		{[]string{"PUSH 9", "ARRAYLEN"}, ErrInvalidHeapAddress(9), 0},
		{[]string{`NEWSTR "a"`, "PUSH 0", "ARRAYGET"}, ErrInvalidHeapAddress(1), 1},
		{[]string{"PUSH 1", "NEWARRAY", "DUP", "FREEARR", "ARRAYLEN"}, ErrInvalidHeapAddress(1), 0},
		{[]string{`NEWSTR "a"`, "FREEARR"}, ErrInvalidHeapAddress(1), 0},
		{[]string{"PUSH 1", "FREEARR"}, ErrInvalidHeapAddress(1), 0},
		{[]string{"PUSH 9223372036854775807", "NEWARRAY"}, ErrInvalidArrayIndex(9223372036854775807), 0},
		{[]string{"PUSH 16777217", "NEWARRAY"}, ErrInvalidArrayIndex(16777217), 0},
	}

	for _, entry := range table {
		vm := load(t, entry.program...)
		_, err := execute(vm)
		assert.Equal(entry.err, err, strings.Join(entry.program, "/"))
		assert.Equal(entry.heapLen, vm.Heap.Len(), strings.Join(entry.program, "/"))
	}
}

func TestVMString(t *testing.T) {
	assert := assert.New(t)

	vm := load(t,
		`NEWSTR "Hello, "`,
		`NEWSTR "VM!"`,
		"STRCAT",
		"DUP",
		"STRLEN",
		"PRINT",
		"PRINT",
		"HALT",
	)

	output, err := execute(vm)
	assert.NoError(err)
	// PRINT of a string shows its heap id.
	assert.Equal("10\n3\n", output)

	str, ok := vm.Heap.String(3)
	assert.True(ok)
	assert.Equal(heap.String("Hello, VM!"), str)
	assert.Equal(3, vm.Heap.Len())
}

func TestVMStringErrors(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		program []string
		err     error
		heapLen int
	}{
		{[]string{"PUSH 1", "NEWARRAY", "STRLEN"}, ErrType{Expected: "string", Found: "array"}, 1},
		{[]string{"PUSH 4", "STRLEN"}, ErrType{Expected: "string", Found: "nothing"}, 0},
		{[]string{`NEWSTR "a"`, "PUSH 1", "NEWARRAY", "STRCAT"}, ErrType{Expected: "string", Found: "array"}, 2},
		{[]string{"PUSH 1", "NEWARRAY", "FREESTR"}, ErrInvalidHeapAddress(1), 0},
		{[]string{`NEWSTR "a"`, "DUP", "FREESTR", "FREESTR"}, ErrInvalidHeapAddress(1), 0},
	}

	for _, entry := range table {
		vm := load(t, entry.program...)
		_, err := execute(vm)
		assert.Equal(entry.err, err, strings.Join(entry.program, "/"))
		assert.Equal(entry.heapLen, vm.Heap.Len(), strings.Join(entry.program, "/"))
	}
}

func TestVMHeapIds(t *testing.T) {
	assert := assert.New(t)

	vm := load(t,
		`NEWSTR "a"`,
		"FREESTR",
		"PUSH 2",
		"NEWARRAY",
		"FREEARR",
		`NEWSTR "b"`,
		"PUSH 0",
		"NEWARRAY",
		"HALT",
	)

	_, err := execute(vm)
	assert.NoError(err)
	assert.Equal([]int64{3, 4}, vm.Stack.Data)
	assert.Equal(2, vm.Heap.Len())
	assert.False(vm.Heap.Valid(1))
	assert.False(vm.Heap.Valid(2))
}

func TestVMPrint(t *testing.T) {
	assert := assert.New(t)

	vm := load(t,
		"PUSH 72", "PRINTCHAR",
		"PUSH 105", "PRINTCHAR",
		`PRINTSTR "!\n"`,
		`PRINTSTR ""`,
		"PUSH -12", "PRINT",
		"HALT",
	)

	output, err := execute(vm)
	assert.NoError(err)
	assert.Equal("Hi!\n-12\n", output)

	for _, code := range []string{"128", "-1"} {
		vm = load(t, "PUSH "+code, "PRINTCHAR")
		_, err = execute(vm)
		var bad ErrInvalidCharacter
		assert.True(errors.As(err, &bad), code)
	}

	vm = load(t, "PUSH 0", "PRINTCHAR", "PUSH 127", "PRINTCHAR")
	output, err = execute(vm)
	assert.NoError(err)
	assert.Equal("\x00\x7f", output)
}

func TestVMFunction(t *testing.T) {
	assert := assert.New(t)

	vm := load(t,
		"FUNC fact 1",
		"BEGINFN",
		"LOCAL n",
		"LOADL n",
		"PUSH 1",
		"LE",
		"JMPZ recurse",
		"PUSH 1",
		"RET",
		"recurse: LOADL n",
		"LOADL n",
		"PUSH 1",
		"SUB",
		"CALL fact",
		"MUL",
		"RET",
		"ENDFN",
		"PUSH 5",
		"CALL fact",
		"PRINT",
		"HALT",
	)

	output, err := execute(vm)
	assert.NoError(err)
	assert.Equal("120\n", output)
	assert.True(vm.Stack.Empty())
	assert.Equal(0, vm.CallDepth())

	fact, ok := vm.Functions["fact"]
	assert.True(ok)
	assert.Equal(&Function{Name: "fact", Address: 1, ParamCount: 1, Locals: []string{"n"}}, fact)
}

func TestVMFunctionParam(t *testing.T) {
	assert := assert.New(t)

	vm := NewVM([]Instruction{
		MakeDefineFunction("add2", 2),
		Make(OP_BEGIN_FUNCTION),
		MakePushParam(1),
		MakePushParam(1),
		Make(OP_ADD),
		Make(OP_RETURN),
		Make(OP_END_FUNCTION),
		MakePush(3),
		MakePush(4),
		MakeText(OP_CALL, "add2"),
		Make(OP_PRINT),
		Make(OP_HALT),
	})

	output, err := execute(vm)
	assert.NoError(err)
	assert.Equal("7\n", output)
	assert.Equal([]int64{3, 4}, vm.Stack.Data)
}

func TestVMFunctionSkip(t *testing.T) {
	assert := assert.New(t)

	// A definition without ENDFN skips to the end of the program.
	vm := load(t, "FUNC f 0", "PUSH 1", "PRINT")
	running, err := vm.Step()
	assert.NoError(err)
	assert.True(running)
	assert.True(vm.Halted())
	assert.Contains(vm.Functions, "f")

	running, err = vm.Step()
	assert.NoError(err)
	assert.False(running)
}

func TestVMFunctionErrors(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		program []string
		err     error
		stack   []int64
	}{
		{[]string{"PUSH 1", "LOCAL x"}, ErrEmptyCallStack, []int64{1}},
		{[]string{"PUSH 1", "STOREL x"}, ErrEmptyCallStack, []int64{1}},
		{[]string{"LOADL x"}, ErrEmptyCallStack, nil},
		{[]string{"PUSH 1", "PARAM 0"}, ErrEmptyCallStack, []int64{1}},
		{[]string{"RET"}, ErrEmptyCallStack, nil},
		{[]string{"CALL nothing"}, ErrFunctionNotFound("nothing"), nil},
		{[]string{"FUNC f 0", "BEGINFN", "LOADL x", "ENDFN", "CALL f"}, ErrLocalVarNotFound("x"), nil},
		{[]string{"FUNC f 0", "BEGINFN", "PARAM 3", "ENDFN", "PUSH 1", "CALL f"}, ErrInvalidParameter(3), []int64{1}},
		{[]string{"FUNC f 0", "BEGINFN", "PARAM -1", "ENDFN", "PUSH 1", "CALL f"}, ErrInvalidParameter(-1), []int64{1}},
		{[]string{"FUNC f 0", "BEGINFN", "LOCAL x", "ENDFN", "CALL f"}, ErrStackUnderflow, nil},
	}

	for _, entry := range table {
		vm := load(t, entry.program...)
		_, err := execute(vm)
		assert.Equal(entry.err, err, strings.Join(entry.program, "/"))
		if entry.stack == nil {
			assert.True(vm.Stack.Empty(), strings.Join(entry.program, "/"))
		} else {
			assert.Equal(entry.stack, vm.Stack.Data, strings.Join(entry.program, "/"))
		}
	}
}

func TestVMReset(t *testing.T) {
	assert := assert.New(t)

	vm := load(t, "PUSH 2", "NEWARRAY", "STORE a", "PUSH 1", "PRINT", "PUSH 9")
	_, err := execute(vm)
	assert.NoError(err)

	vm.Reset()
	assert.Equal(0, vm.Pc)
	assert.True(vm.Stack.Empty())
	assert.Empty(vm.Memory)
	assert.Equal(0, vm.Heap.Len())
	assert.Equal(0, vm.Output.Len())
	assert.Equal(0, vm.CallDepth())
	assert.Equal(6, len(vm.Instructions()))

	in, ok := vm.Current()
	assert.True(ok)
	assert.Equal(MakePush(2), in)
}

func TestVMDescribe(t *testing.T) {
	assert := assert.New(t)

	vm := load(t, "PUSH 1", "PUSH 2")
	_, err := execute(vm)
	assert.NoError(err)

	assert.Equal("   pc: 2\nstack: [1 2]\ncalls: 0\n heap: 0\n", vm.String())
}
