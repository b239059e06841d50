package vm

import (
	"errors"

	"github.com/ezrec/stackvm/translate"
)

var f = translate.From

var (
	// Machine errors
	ErrStackUnderflow = errors.New(f("stack underflow"))
	ErrDivisionByZero = errors.New(f("division by zero"))
	ErrEmptyCallStack = errors.New(f("empty call stack"))

	// Assembler errors
	ErrOpcodeExtraArgs = errors.New(f("excessive arguments"))
	ErrEquateSyntax    = errors.New(f(".equ syntax"))
	ErrEquateDuplicate = errors.New(f(".equ duplicated"))
	ErrLabelSyntax     = errors.New(f("label syntax"))
)

// ErrInvalidMemoryAccess is a load of a variable that was never stored.
type ErrInvalidMemoryAccess string

func (err ErrInvalidMemoryAccess) Error() string {
	return f("invalid memory access: %v", string(err))
}

// ErrInvalidInstruction is an out of range jump target, or an unknown Op at an address.
type ErrInvalidInstruction int

func (err ErrInvalidInstruction) Error() string {
	return f("invalid instruction at %v", int(err))
}

type ErrFunctionNotFound string

func (err ErrFunctionNotFound) Error() string {
	return f("function not found: %v", string(err))
}

type ErrLocalVarNotFound string

func (err ErrLocalVarNotFound) Error() string {
	return f("local variable not found: %v", string(err))
}

type ErrInvalidParameter int64

func (err ErrInvalidParameter) Error() string {
	return f("invalid parameter index: %v", int64(err))
}

type ErrInvalidCharacter int64

func (err ErrInvalidCharacter) Error() string {
	return f("invalid character code: %v", int64(err))
}

type ErrInvalidHeapAddress int64

func (err ErrInvalidHeapAddress) Error() string {
	return f("invalid heap address: %v", int64(err))
}

// ErrInvalidArrayIndex is a request for an array of negative size.
type ErrInvalidArrayIndex int64

func (err ErrInvalidArrayIndex) Error() string {
	return f("invalid array index: %v", int64(err))
}

// ErrArrayBounds is an array access outside of [0, Length).
type ErrArrayBounds struct {
	Index  int64
	Length int
}

func (err ErrArrayBounds) Error() string {
	return f("array bounds error: index %v out of bounds %v", err.Index, err.Length)
}

// ErrType is a heap value of the wrong variant.
type ErrType struct {
	Expected string
	Found    string
}

func (err ErrType) Error() string {
	return f("type error: expected %v, found %v", err.Expected, err.Found)
}

type ErrUnknownInstruction string

func (err ErrUnknownInstruction) Error() string {
	return f("unknown instruction: %v", string(err))
}

// ErrOperand is a missing or mismatched instruction operand.
type ErrOperand struct {
	Mnemonic string
	Expected string
}

func (err ErrOperand) Error() string {
	return f("%v requires a %v operand", err.Mnemonic, err.Expected)
}

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

// ErrSyntax locates an assembler error in the source.
type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseString string

func (err ErrParseString) Error() string {
	return f("unterminated string %v", string(err))
}

// ErrParseToken is unexpected text where an operand was expected.
type ErrParseToken string

func (err ErrParseToken) Error() string {
	return f("unexpected '%v'", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}
