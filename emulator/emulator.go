// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package emulator hosts an assembled program on the stack machine.
package emulator

import (
	"context"
	"io"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/stackvm/internal"
	stackio "github.com/ezrec/stackvm/io"
	"github.com/ezrec/stackvm/vm"
)

// Emulator state. VM + Program + output Tape.
type Emulator struct {
	Verbose   bool        // If set, enables verbose logging.
	StepLimit int         // Maximum steps since a reset, 0 for no limit.
	*vm.VM                // Reference to the machine.
	Program   *vm.Program // Reference to the currently loaded program listing.
	Steps     int         // Steps executed since a reset.

	Tape stackio.Tape // Output tape; with no Output, program text stays queued.

	predefine map[string]int64
	halted    bool
}

// NewEmulator creates a new emulator with no program loaded.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		VM: vm.NewVM(nil),
	}

	return
}

// Defines returns an iterator over the equates available to loaded programs.
func (emu *Emulator) Defines() iter.Seq2[string, int64] {
	asm := &vm.Assembler{}
	return internal.IterSeq2Concat(asm.Equates(), internal.SortedSeq2(emu.predefine))
}

// Load assembles a program and resets the machine to run it.
// On an assembly error the previously loaded program and state are kept.
func (emu *Emulator) Load(input io.Reader, predefines map[string]int64) (err error) {
	asm := &vm.Assembler{Verbose: emu.Verbose}
	for name, value := range predefines {
		asm.Predefine(name, value)
	}

	prog, err := asm.Parse(input)
	if err != nil {
		return
	}

	if emu.Verbose {
		log.Printf("emulator: loaded %v instructions", prog.Len())
	}

	emu.Program = prog
	emu.predefine = maps.Clone(predefines)
	emu.Reset()

	return
}

// Unload drops the current program.
func (emu *Emulator) Unload() {
	emu.Program = nil
	emu.predefine = nil
	emu.Reset()
}

// Loaded returns true if a program is loaded.
func (emu *Emulator) Loaded() bool {
	return emu.Program != nil
}

// Reset the machine for the current program: fresh heap, stack and memory.
func (emu *Emulator) Reset() {
	var instructions []vm.Instruction
	if emu.Program != nil {
		instructions = emu.Program.Instructions()
	}

	emu.VM = vm.NewVM(instructions)
	emu.VM.Verbose = emu.Verbose
	emu.Steps = 0
	emu.halted = false
}

// Done returns true once the program has halted.
func (emu *Emulator) Done() bool {
	return emu.halted
}

// LineNo returns the source line number of the instruction at the program counter.
func (emu *Emulator) LineNo() int {
	if emu.Program == nil {
		return 0
	}

	op := emu.Program.Debug(emu.VM.Pc)
	if op == nil {
		return 0
	}

	return op.LineNo
}

// Tick performs a single step of the machine.
func (emu *Emulator) Tick() (done bool, err error) {
	if emu.Program == nil {
		err = ErrNoProgram
		return
	}

	if emu.halted {
		done = true
		return
	}

	if emu.StepLimit > 0 && emu.Steps >= emu.StepLimit {
		err = ErrStepLimit
		return
	}

	emu.VM.Verbose = emu.Verbose

	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Err: err}
		}
	}()

	running, err := emu.VM.Step()
	if err != nil {
		return
	}
	emu.Steps++

	if emu.Tape.Output != nil {
		err = emu.Tape.Flush(&emu.VM.Output)
		if err != nil {
			return
		}
	}

	if !running {
		if emu.Verbose {
			log.Printf("emulator: halted after %v steps", emu.Steps)
		}
		emu.halted = true
		done = true
	}

	return
}

// Run ticks until the program halts, fails, or the context ends.
func (emu *Emulator) Run(ctx context.Context) (err error) {
	for {
		err = ctx.Err()
		if err != nil {
			return
		}

		var done bool
		done, err = emu.Tick()
		if err != nil || done {
			return
		}
	}
}
