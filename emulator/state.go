package emulator

import (
	"maps"
	"slices"
)

// State is a snapshot of the machine for a remote observer.
type State struct {
	Stack          []int64          `json:"stack"`
	Memory         map[string]int64 `json:"memory"`
	ProgramCounter int              `json:"program_counter"`
	Output         []string         `json:"output"`
	Instructions   []string         `json:"instructions"`
	Halted         bool             `json:"halted"`
}

// State returns a snapshot of the machine, draining any queued output.
func (emu *Emulator) State() (state State) {
	state = State{
		Stack:          slices.Clone(emu.VM.Stack.Data),
		Memory:         maps.Clone(emu.VM.Memory),
		ProgramCounter: emu.VM.Pc,
		Output:         emu.VM.Output.Drain(),
		Halted:         emu.halted,
	}

	if state.Stack == nil {
		state.Stack = []int64{}
	}
	if state.Output == nil {
		state.Output = []string{}
	}
	if emu.Program != nil {
		state.Instructions = emu.Program.Listing()
	} else {
		state.Instructions = []string{}
	}

	return
}
