package vm

import (
	"iter"
)

// Opcode is an assembled instruction with its source location.
type Opcode struct {
	LineNo      int
	Text        string
	Instruction Instruction
}

// Program is an assembled instruction sequence with debug information.
type Program struct {
	Opcodes []Opcode
}

// NewProgram wraps a hand built instruction sequence, which has no source lines.
func NewProgram(instructions ...Instruction) (prog *Program) {
	prog = &Program{}
	for _, in := range instructions {
		prog.Opcodes = append(prog.Opcodes, Opcode{Instruction: in, Text: in.String()})
	}
	return
}

// Len is the number of instructions.
func (prog *Program) Len() int {
	return len(prog.Opcodes)
}

// Instructions returns the bare instruction sequence.
func (prog *Program) Instructions() (instructions []Instruction) {
	instructions = make([]Instruction, 0, len(prog.Opcodes))
	for _, op := range prog.Opcodes {
		instructions = append(instructions, op.Instruction)
	}
	return
}

// Listing returns the human readable form of every instruction.
func (prog *Program) Listing() (listing []string) {
	listing = make([]string, 0, len(prog.Opcodes))
	for _, op := range prog.Opcodes {
		listing = append(listing, op.Instruction.String())
	}
	return
}

// Debug returns the opcode at an address, or nil if out of range.
func (prog *Program) Debug(pc int) (op *Opcode) {
	if pc < 0 || pc >= len(prog.Opcodes) {
		return
	}
	return &prog.Opcodes[pc]
}

// All iterates over the program by address.
func (prog *Program) All() iter.Seq2[int, Instruction] {
	return func(yield func(pc int, in Instruction) bool) {
		for pc, op := range prog.Opcodes {
			if !yield(pc, op.Instruction) {
				return
			}
		}
	}
}
