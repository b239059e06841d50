package vm

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/ezrec/stackvm/heap"
)

// Frame is the record pushed for a function invocation.
type Frame struct {
	ReturnAddress int
	Function      string
	Locals        map[string]int64
}

// Function is a function registered by FUNC.
type Function struct {
	Name       string
	Address    int // Entry address, the instruction after FUNC.
	ParamCount int64
	Locals     []string // Locals created by LOCAL, in order of first creation.
}

// VM is the execution context of the stack machine.
type VM struct {
	Verbose bool // Set to enable verbose logging.

	Stack     Stack                // Operand stack.
	Memory    map[string]int64     // Global variables.
	Pc        int                  // Program counter; len(program) when halted.
	CallStack []Frame              // Active function frames.
	Functions map[string]*Function // Functions registered at run time.
	Heap      *heap.Heap           // Arrays and strings.
	Output    Output               // Text produced by the program.
	MaxArray  int64                // Largest NEWARRAY size; DEFAULT_MAX_ARRAY if zero.

	program []Instruction

	// Program counter override, applied instead of Pc+1 after a successful step.
	jumping bool
	jump    int
}

// DEFAULT_MAX_ARRAY is the largest array NEWARRAY allocates by default.
const DEFAULT_MAX_ARRAY = int64(1 << 24)

// NewVM creates a machine for an instruction sequence.
func NewVM(program []Instruction) (vm *VM) {
	vm = &VM{
		program: program,
	}
	vm.Reset()

	return
}

// Reset clears all run-time state, keeping the program.
func (vm *VM) Reset() {
	if vm.Verbose {
		log.Printf("vm: reset")
	}

	vm.Stack.Reset()
	vm.Memory = make(map[string]int64)
	vm.Pc = 0
	vm.CallStack = nil
	vm.Functions = make(map[string]*Function)
	vm.Heap = heap.New()
	vm.Output.Drain()
	vm.jumping = false
}

// Instructions returns the loaded program.
func (vm *VM) Instructions() []Instruction {
	return vm.program
}

// Current returns the instruction at the program counter.
func (vm *VM) Current() (in Instruction, ok bool) {
	if vm.Pc < 0 || vm.Pc >= len(vm.program) {
		return
	}
	return vm.program[vm.Pc], true
}

// Halted returns true once the program counter has left the program.
func (vm *VM) Halted() bool {
	return vm.Pc >= len(vm.program)
}

// CallDepth is the number of active frames.
func (vm *VM) CallDepth() int {
	return len(vm.CallStack)
}

// Step executes a single instruction.
//
// running is false once the program has halted, either by executing HALT or
// by running off the end. On error the program counter is left on the
// failing instruction, but any stack or heap change it made before failing
// is kept.
func (vm *VM) Step() (running bool, err error) {
	in, ok := vm.Current()
	if !ok {
		return
	}

	if vm.Verbose {
		log.Printf("%03d: %v %v", vm.Pc, in, vm.Stack.Data)
	}

	vm.jumping = false
	err = vm.Execute(in)
	if err != nil {
		vm.jumping = false
		if vm.Verbose {
			log.Printf("%03d: %v", vm.Pc, err)
		}
		return
	}

	if vm.jumping {
		vm.Pc = vm.jump
		vm.jumping = false
	} else {
		vm.Pc++
	}

	running = in.Op != OP_HALT
	return
}

// branch sets the next program counter to a range checked target.
func (vm *VM) branch(target int) (err error) {
	if target < 0 || target >= len(vm.program) {
		err = ErrInvalidInstruction(target)
		return
	}
	vm.goTo(target)
	return
}

// goTo sets the next program counter without range checks.
func (vm *VM) goTo(pc int) {
	vm.jumping = true
	vm.jump = pc
}

func (vm *VM) pop() (value int64, err error) {
	value, ok := vm.Stack.Pop()
	if !ok {
		err = ErrStackUnderflow
	}
	return
}

// binary pops b then a, and pushes op(a, b).
func (vm *VM) binary(op func(a, b int64) (int64, error)) (err error) {
	b, err := vm.pop()
	if err != nil {
		return
	}
	a, err := vm.pop()
	if err != nil {
		return
	}
	result, err := op(a, b)
	if err != nil {
		return
	}
	vm.Stack.Push(result)
	return
}

// compare pops b then a, and pushes 1 if cmp(a, b) else 0.
func (vm *VM) compare(cmp func(a, b int64) bool) (err error) {
	return vm.binary(func(a, b int64) (int64, error) {
		return boolValue(cmp(a, b)), nil
	})
}

func boolValue(cond bool) int64 {
	if cond {
		return 1
	}
	return 0
}

// frame returns the active function frame.
func (vm *VM) frame() (frame *Frame, err error) {
	if len(vm.CallStack) == 0 {
		err = ErrEmptyCallStack
		return
	}
	frame = &vm.CallStack[len(vm.CallStack)-1]
	return
}

// heapArray pops an id that must refer to an array.
func (vm *VM) heapArray() (array heap.Array, err error) {
	id, err := vm.pop()
	if err != nil {
		return
	}
	array, ok := vm.Heap.Array(id)
	if !ok {
		err = ErrInvalidHeapAddress(id)
	}
	return
}

// heapString pops an id that must refer to a string.
func (vm *VM) heapString() (str heap.String, err error) {
	id, err := vm.pop()
	if err != nil {
		return
	}
	return vm.stringAt(id)
}

// stringAt looks up the string with the given id.
func (vm *VM) stringAt(id int64) (str heap.String, err error) {
	str, ok := vm.Heap.String(id)
	if !ok {
		value, _ := vm.Heap.Get(id)
		err = ErrType{Expected: heap.KIND_STRING.String(), Found: heap.KindOf(value).String()}
	}
	return
}

// freeKind releases the value with the given id, failing if it was not of
// the wanted kind. A value of the wrong kind is released all the same.
func (vm *VM) freeKind(id int64, kind heap.Kind) (err error) {
	value, ok := vm.Heap.Free(id)
	if !ok || heap.KindOf(value) != kind {
		err = ErrInvalidHeapAddress(id)
	}
	return
}

func (vm *VM) maxArray() int64 {
	if vm.MaxArray > 0 {
		return vm.MaxArray
	}
	return DEFAULT_MAX_ARRAY
}

// arrayIndex checks an index against the array bounds.
func arrayIndex(array heap.Array, index int64) (err error) {
	if index < 0 || index >= int64(len(array)) {
		err = ErrArrayBounds{Index: index, Length: len(array)}
	}
	return
}

// Execute executes a single decoded instruction at the program counter.
func (vm *VM) Execute(in Instruction) (err error) {
	switch in.Op {
	case OP_PUSH:
		vm.Stack.Push(in.Value)
	case OP_POP:
		_, err = vm.pop()
	case OP_DUP:
		value, ok := vm.Stack.Peek()
		if !ok {
			err = ErrStackUnderflow
			return
		}
		vm.Stack.Push(value)
	case OP_SWAP:
		if !vm.Stack.Swap() {
			err = ErrStackUnderflow
		}
	case OP_ADD:
		err = vm.binary(func(a, b int64) (int64, error) { return a + b, nil })
	case OP_SUB:
		err = vm.binary(func(a, b int64) (int64, error) { return a - b, nil })
	case OP_MUL:
		err = vm.binary(func(a, b int64) (int64, error) { return a * b, nil })
	case OP_DIV:
		err = vm.binary(func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, ErrDivisionByZero
			}
			return a / b, nil
		})
	case OP_STORE:
		var value int64
		value, err = vm.pop()
		if err != nil {
			return
		}
		vm.Memory[in.Text] = value
	case OP_LOAD:
		value, ok := vm.Memory[in.Text]
		if !ok {
			err = ErrInvalidMemoryAccess(in.Text)
			return
		}
		vm.Stack.Push(value)
	case OP_JUMP:
		err = vm.branch(in.Target)
	case OP_JUMP_IF, OP_JUMP_IF_NOT_ZERO:
		var cond int64
		cond, err = vm.pop()
		if err == nil && cond != 0 {
			err = vm.branch(in.Target)
		}
	case OP_JUMP_IF_ZERO:
		var cond int64
		cond, err = vm.pop()
		if err == nil && cond == 0 {
			err = vm.branch(in.Target)
		}
	case OP_EQUAL:
		err = vm.compare(func(a, b int64) bool { return a == b })
	case OP_NOT_EQUAL:
		err = vm.compare(func(a, b int64) bool { return a != b })
	case OP_LESS_THAN:
		err = vm.compare(func(a, b int64) bool { return a < b })
	case OP_LESS_EQUAL:
		err = vm.compare(func(a, b int64) bool { return a <= b })
	case OP_GREATER_THAN:
		err = vm.compare(func(a, b int64) bool { return a > b })
	case OP_GREATER_EQUAL:
		err = vm.compare(func(a, b int64) bool { return a >= b })
	case OP_AND:
		err = vm.compare(func(a, b int64) bool { return a != 0 && b != 0 })
	case OP_OR:
		err = vm.compare(func(a, b int64) bool { return a != 0 || b != 0 })
	case OP_NOT:
		var value int64
		value, err = vm.pop()
		if err != nil {
			return
		}
		vm.Stack.Push(boolValue(value == 0))
	case OP_DEFINE_FUNCTION:
		vm.Functions[in.Text] = &Function{
			Name:       in.Text,
			Address:    vm.Pc + 1,
			ParamCount: in.Value,
		}
		// Skip the body, resuming after the matching ENDFN.
		next := len(vm.program)
		for pc := vm.Pc + 1; pc < len(vm.program); pc++ {
			if vm.program[pc].Op == OP_END_FUNCTION {
				next = pc + 1
				break
			}
		}
		vm.goTo(next)
	case OP_BEGIN_FUNCTION, OP_END_FUNCTION:
		// Markers only.
	case OP_CREATE_LOCAL, OP_STORE_LOCAL:
		var frame *Frame
		frame, err = vm.frame()
		if err != nil {
			return
		}
		var value int64
		value, err = vm.pop()
		if err != nil {
			return
		}
		if in.Op == OP_CREATE_LOCAL {
			vm.declareLocal(frame, in.Text)
		}
		frame.Locals[in.Text] = value
	case OP_LOAD_LOCAL:
		var frame *Frame
		frame, err = vm.frame()
		if err != nil {
			return
		}
		value, ok := frame.Locals[in.Text]
		if !ok {
			err = ErrLocalVarNotFound(in.Text)
			return
		}
		vm.Stack.Push(value)
	case OP_PUSH_PARAM:
		_, err = vm.frame()
		if err != nil {
			return
		}
		value, ok := vm.Stack.At(in.Value)
		if !ok {
			err = ErrInvalidParameter(in.Value)
			return
		}
		vm.Stack.Push(value)
	case OP_CALL:
		function, ok := vm.Functions[in.Text]
		if !ok {
			err = ErrFunctionNotFound(in.Text)
			return
		}
		vm.CallStack = append(vm.CallStack, Frame{
			ReturnAddress: vm.Pc + 1,
			Function:      function.Name,
			Locals:        make(map[string]int64),
		})
		vm.goTo(function.Address)
	case OP_RETURN:
		if len(vm.CallStack) == 0 {
			err = ErrEmptyCallStack
			return
		}
		frame := vm.CallStack[len(vm.CallStack)-1]
		vm.CallStack = vm.CallStack[:len(vm.CallStack)-1]
		vm.goTo(frame.ReturnAddress)
	case OP_NEW_ARRAY:
		var size int64
		size, err = vm.pop()
		if err != nil {
			return
		}
		if size < 0 || size > vm.maxArray() {
			err = ErrInvalidArrayIndex(size)
			return
		}
		vm.Stack.Push(vm.Heap.Allocate(make(heap.Array, size)))
	case OP_ARRAY_GET:
		var index int64
		index, err = vm.pop()
		if err != nil {
			return
		}
		var array heap.Array
		array, err = vm.heapArray()
		if err != nil {
			return
		}
		err = arrayIndex(array, index)
		if err != nil {
			return
		}
		vm.Stack.Push(array[index])
	case OP_ARRAY_SET:
		var value, index int64
		value, err = vm.pop()
		if err != nil {
			return
		}
		index, err = vm.pop()
		if err != nil {
			return
		}
		var array heap.Array
		array, err = vm.heapArray()
		if err != nil {
			return
		}
		err = arrayIndex(array, index)
		if err != nil {
			return
		}
		array[index] = value
	case OP_ARRAY_LENGTH:
		var array heap.Array
		array, err = vm.heapArray()
		if err != nil {
			return
		}
		vm.Stack.Push(int64(len(array)))
	case OP_FREE_ARRAY:
		var id int64
		id, err = vm.pop()
		if err != nil {
			return
		}
		err = vm.freeKind(id, heap.KIND_ARRAY)
	case OP_NEW_STRING:
		vm.Stack.Push(vm.Heap.Allocate(heap.String(in.Text)))
	case OP_STRING_CONCAT:
		var id1, id2 int64
		id2, err = vm.pop()
		if err != nil {
			return
		}
		id1, err = vm.pop()
		if err != nil {
			return
		}
		var s1, s2 heap.String
		s2, err = vm.stringAt(id2)
		if err != nil {
			return
		}
		s1, err = vm.stringAt(id1)
		if err != nil {
			return
		}
		vm.Stack.Push(vm.Heap.Allocate(s1 + s2))
	case OP_STRING_LENGTH:
		var str heap.String
		str, err = vm.heapString()
		if err != nil {
			return
		}
		vm.Stack.Push(int64(len(str)))
	case OP_FREE_STRING:
		var id int64
		id, err = vm.pop()
		if err != nil {
			return
		}
		err = vm.freeKind(id, heap.KIND_STRING)
	case OP_PRINT:
		var value int64
		value, err = vm.pop()
		if err != nil {
			return
		}
		vm.emit(strconv.FormatInt(value, 10) + "\n")
	case OP_PRINT_CHAR:
		var value int64
		value, err = vm.pop()
		if err != nil {
			return
		}
		if value < 0 || value > 127 {
			err = ErrInvalidCharacter(value)
			return
		}
		vm.emit(string(rune(value)))
	case OP_PRINT_STR:
		vm.emit(strings.ReplaceAll(in.Text, `\n`, "\n"))
	case OP_HALT:
		// Step reports the halt.
	default:
		err = ErrInvalidInstruction(vm.Pc)
	}

	return
}

// declareLocal records a local name on the frame's function.
func (vm *VM) declareLocal(frame *Frame, name string) {
	function, ok := vm.Functions[frame.Function]
	if !ok {
		return
	}
	for _, local := range function.Locals {
		if local == name {
			return
		}
	}
	function.Locals = append(function.Locals, name)
}

func (vm *VM) emit(text string) {
	if vm.Verbose {
		log.Printf("vm: output %q", text)
	}
	vm.Output.Append(text)
}

// String returns the current machine state as a string.
func (vm *VM) String() (text string) {
	text += fmt.Sprintf("   pc: %v\n", vm.Pc)
	text += fmt.Sprintf("stack: %v\n", vm.Stack.Data)
	text += fmt.Sprintf("calls: %v\n", len(vm.CallStack))
	text += fmt.Sprintf(" heap: %v\n", vm.Heap.Len())
	return
}
