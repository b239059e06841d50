package vm

import (
	"strconv"
)

// Op is an instruction operation code.
type Op int

//go:generate go tool stringer -linecomment -type=Op
const (
	// Stack
	OP_PUSH = Op(iota) // PUSH
	OP_POP             // POP
	OP_DUP             // DUP
	OP_SWAP            // SWAP

	// Arithmetic
	OP_ADD // ADD
	OP_SUB // SUB
	OP_MUL // MUL
	OP_DIV // DIV

	// Memory
	OP_LOAD  // LOAD
	OP_STORE // STORE

	// Control flow
	OP_JUMP             // JMP
	OP_JUMP_IF          // JMPIF
	OP_JUMP_IF_ZERO     // JMPZ
	OP_JUMP_IF_NOT_ZERO // JMPNZ

	// Comparison
	OP_EQUAL         // EQ
	OP_NOT_EQUAL     // NE
	OP_LESS_THAN     // LT
	OP_LESS_EQUAL    // LE
	OP_GREATER_THAN  // GT
	OP_GREATER_EQUAL // GE

	// Boolean
	OP_AND // AND
	OP_OR  // OR
	OP_NOT // NOT

	// Functions
	OP_DEFINE_FUNCTION // FUNC
	OP_BEGIN_FUNCTION  // BEGINFN
	OP_END_FUNCTION    // ENDFN
	OP_CREATE_LOCAL    // LOCAL
	OP_LOAD_LOCAL      // LOADL
	OP_STORE_LOCAL     // STOREL
	OP_PUSH_PARAM      // PARAM
	OP_CALL            // CALL
	OP_RETURN          // RET

	// Arrays
	OP_NEW_ARRAY    // NEWARRAY
	OP_ARRAY_GET    // ARRAYGET
	OP_ARRAY_SET    // ARRAYSET
	OP_ARRAY_LENGTH // ARRAYLEN
	OP_FREE_ARRAY   // FREEARR

	// Strings
	OP_NEW_STRING    // NEWSTR
	OP_STRING_CONCAT // STRCAT
	OP_STRING_LENGTH // STRLEN
	OP_FREE_STRING   // FREESTR

	// I/O
	OP_PRINT      // PRINT
	OP_PRINT_CHAR // PRINTCHAR
	OP_PRINT_STR  // PRINTSTR

	OP_HALT // HALT
)

// Instruction is a single decoded machine instruction.
//
// Which operand fields are meaningful depends on Op:
//   - Value: PUSH literal, PARAM index, FUNC parameter count.
//   - Target: jump destination (absolute instruction index).
//   - Text: variable, local, function name, or string literal.
type Instruction struct {
	Op     Op
	Value  int64
	Target int
	Text   string
}

// Make creates an instruction with no operands.
func Make(op Op) Instruction {
	return Instruction{Op: op}
}

// MakePush creates a PUSH of a literal.
func MakePush(value int64) Instruction {
	return Instruction{Op: OP_PUSH, Value: value}
}

// MakeJump creates a jump family instruction to an absolute target.
func MakeJump(op Op, target int) Instruction {
	return Instruction{Op: op, Target: target}
}

// MakeText creates an instruction with a name or string literal operand.
func MakeText(op Op, text string) Instruction {
	return Instruction{Op: op, Text: text}
}

// MakePushParam creates a PARAM of a caller argument index.
func MakePushParam(index int64) Instruction {
	return Instruction{Op: OP_PUSH_PARAM, Value: index}
}

// MakeDefineFunction creates a function definition header.
func MakeDefineFunction(name string, params int64) Instruction {
	return Instruction{Op: OP_DEFINE_FUNCTION, Text: name, Value: params}
}

// IsJump returns true for the jump family.
func (op Op) IsJump() bool {
	switch op {
	case OP_JUMP, OP_JUMP_IF, OP_JUMP_IF_ZERO, OP_JUMP_IF_NOT_ZERO:
		return true
	}
	return false
}

// String returns the assembly language representation of this instruction.
func (in Instruction) String() string {
	switch in.Op {
	case OP_PUSH, OP_PUSH_PARAM:
		return in.Op.String() + " " + strconv.FormatInt(in.Value, 10)
	case OP_JUMP, OP_JUMP_IF, OP_JUMP_IF_ZERO, OP_JUMP_IF_NOT_ZERO:
		return in.Op.String() + " " + strconv.Itoa(in.Target)
	case OP_LOAD, OP_STORE, OP_CREATE_LOCAL, OP_LOAD_LOCAL, OP_STORE_LOCAL, OP_CALL:
		return in.Op.String() + " " + in.Text
	case OP_NEW_STRING, OP_PRINT_STR:
		return in.Op.String() + " \"" + in.Text + "\""
	case OP_DEFINE_FUNCTION:
		return in.Op.String() + " " + in.Text + " " + strconv.FormatInt(in.Value, 10)
	}

	return in.Op.String()
}
