package vm

import (
	"fmt"
	"io"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ezrec/stackvm/heap"
	"github.com/ezrec/stackvm/internal"
)

// Dump renders the machine state as tables.
func (vm *VM) Dump(w io.Writer) (err error) {
	tables := []table.Writer{
		vm.dumpRegisters(),
		vm.dumpStack(),
		vm.dumpMemory(),
		vm.dumpCalls(),
		vm.dumpHeap(),
	}

	for _, tw := range tables {
		_, err = fmt.Fprintln(w, tw.Render())
		if err != nil {
			return
		}
	}

	return
}

func (vm *VM) dumpRegisters() table.Writer {
	tw := table.NewWriter()
	tw.SetTitle(f("Machine"))
	current := "-"
	if in, ok := vm.Current(); ok {
		current = in.String()
	}
	tw.AppendRow(table.Row{"pc", vm.Pc})
	tw.AppendRow(table.Row{"next", current})
	tw.AppendRow(table.Row{"output", vm.Output.Len()})
	return tw
}

func (vm *VM) dumpStack() table.Writer {
	tw := table.NewWriter()
	tw.SetTitle(f("Stack"))
	tw.AppendHeader(table.Row{"Depth", "Value"})
	for depth := range int64(vm.Stack.Len()) {
		value, _ := vm.Stack.At(depth)
		tw.AppendRow(table.Row{depth, value})
	}
	return tw
}

func (vm *VM) dumpMemory() table.Writer {
	tw := table.NewWriter()
	tw.SetTitle(f("Memory"))
	tw.AppendHeader(table.Row{"Name", "Value"})
	for name, value := range internal.SortedSeq2(vm.Memory) {
		tw.AppendRow(table.Row{name, value})
	}
	return tw
}

func (vm *VM) dumpCalls() table.Writer {
	tw := table.NewWriter()
	tw.SetTitle(f("Call Stack"))
	tw.AppendHeader(table.Row{"Frame", "Function", "Return", "Locals"})
	for n, frame := range slices.Backward(vm.CallStack) {
		locals := ""
		for name, value := range internal.SortedSeq2(frame.Locals) {
			locals += fmt.Sprintf("%v=%v ", name, value)
		}
		tw.AppendRow(table.Row{n, frame.Function, frame.ReturnAddress, locals})
	}
	return tw
}

func (vm *VM) dumpHeap() table.Writer {
	tw := table.NewWriter()
	tw.SetTitle(f("Heap"))
	tw.AppendHeader(table.Row{"Id", "Kind", "Value"})
	for id, value := range vm.Heap.All() {
		var shown any
		switch v := value.(type) {
		case heap.Array:
			shown = []int64(v)
		case heap.String:
			shown = fmt.Sprintf("%q", string(v))
		}
		tw.AppendRow(table.Row{id, heap.KindOf(value), shown})
	}
	return tw
}
