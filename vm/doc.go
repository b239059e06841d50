// Package vm implements the stack machine and its assembler.
//
// The machine has no registers. All arithmetic, comparison, array and
// string operands flow through a stack of 64-bit signed integers. Named
// global variables live in a flat memory map, arrays and strings live in a
// heap and are referenced from the stack by id, and function calls push
// frames holding a return address and local variables.
//
// The assembler translates a line oriented language, one instruction per
// line with optional 'label:' prefixes, into an instruction sequence. Jump
// labels are resolved in a second pass, so they may be referenced before
// they are defined. Operands may also be '.equ' constants or compile-time
// $(...) expressions.
package vm
