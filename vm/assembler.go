// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package vm

import (
	"bufio"
	"errors"
	"io"
	"iter"
	"log"
	"maps"
	"math"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/stackvm/internal"
)

// Predefined system equates
var sysEquate = map[string]int64{
	"INT_MAX":  math.MaxInt64,
	"INT_MIN":  math.MinInt64,
	"CHAR_MAX": 127,
}

// mnemonicOp maps assembly mnemonics to operations.
var mnemonicOp = make(map[string]Op, OP_HALT+1)

func init() {
	for op := OP_PUSH; op <= OP_HALT; op++ {
		mnemonicOp[op.String()] = op
	}
}

// Assembler is a two pass assembler for the stack machine.
//
// The first pass records labels and .equ directives; the second pass encodes
// instructions, resolving jump labels against the first pass.
type Assembler struct {
	Verbose bool // If set, verbosely logs the assembler actions.

	predefine map[string]int64 // Predefines
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value int64) {
	if asm.predefine == nil {
		asm.predefine = map[string]int64{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// Equates returns the system equates followed by the predefines.
func (asm *Assembler) Equates() iter.Seq2[string, int64] {
	return internal.IterSeq2Concat(maps.All(sysEquate), maps.All(asm.predefine))
}

// sourceLine is a parsed line retained between passes.
type sourceLine struct {
	LineNo int
	Text   string
	Line   AsmLine
}

// Parse assembles an input stream into a Program.
// Assembly is all or nothing: on error, no Program is returned.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var text string
	var lineno int

	defer func() {
		if err != nil {
			prog = nil
			err = &ErrSyntax{LineNo: lineno, Line: strings.TrimSpace(text), Err: err}
		}
	}()

	labels := make(map[string]int, 16)
	equate := maps.Collect(asm.Equates())

	// Pass 1: labels and equates.
	var lines []sourceLine
	var counter int
	for scanner.Scan() {
		text = scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		if IsBlank(text) {
			continue
		}

		var line AsmLine
		line, err = ParseLine(text)
		if err != nil {
			return
		}

		if len(line.Label) > 0 {
			labels[line.Label] = counter
		}

		switch {
		case line.Mnemonic == ".EQU":
			err = asm.defineEquate(equate, line, lineno)
			if err != nil {
				return
			}
			continue
		case strings.HasPrefix(line.Mnemonic, "."):
			err = ErrUnknownInstruction(line.Mnemonic)
			return
		case len(line.Mnemonic) > 0:
			counter++
		}

		lines = append(lines, sourceLine{LineNo: lineno, Text: text, Line: line})
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	// Pass 2: encode.
	opcodes := make([]Opcode, 0, counter)
	for _, src := range lines {
		if len(src.Line.Mnemonic) == 0 {
			continue
		}

		lineno, text = src.LineNo, src.Text

		var in Instruction
		in, err = asm.encode(src.Line, labels, equate, lineno)
		if err != nil {
			return
		}

		opcodes = append(opcodes, Opcode{
			LineNo:      lineno,
			Text:        strings.TrimSpace(text),
			Instruction: in,
		})
	}

	prog = &Program{Opcodes: opcodes}

	return
}

// defineEquate handles '.equ NAME VALUE'.
func (asm *Assembler) defineEquate(equate map[string]int64, line AsmLine, lineno int) (err error) {
	if len(line.Operands) != 2 || line.Operands[0].Kind != TOKEN_IDENTIFIER {
		err = ErrEquateSyntax
		return
	}

	name := line.Operands[0].Text
	_, ok := equate[name]
	if ok {
		err = ErrEquateDuplicate
		return
	}

	value, ok, err := asm.valueOf(line.Operands[1], equate, lineno)
	if err != nil {
		return
	}
	if !ok {
		err = ErrEquateSyntax
		return
	}

	equate[name] = value

	return
}

// valueOf returns the integer value of a number, equate or $(expression) token.
// ok is false if the token cannot be an integer.
func (asm *Assembler) valueOf(token Token, equate map[string]int64, lineno int) (value int64, ok bool, err error) {
	switch token.Kind {
	case TOKEN_NUMBER:
		value, ok = token.Number, true
	case TOKEN_IDENTIFIER:
		value, ok = equate[token.Text]
	case TOKEN_EXPRESSION:
		value, err = asm.parenEval(token.Text, equate, lineno)
		ok = err == nil
	}

	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string, equate map[string]int64, lineno int) (value int64, err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrParseExpression(expr), err)
		}
	}()

	thread := starlark.Thread{Name: "asm"}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, value := range equate {
		pred[key] = starlark.MakeInt64(value)
	}
	pred["LINENO"] = starlark.MakeInt(lineno)

	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}

	return
}

// operand returns operand n, which must be of the expected kind.
func operand(line AsmLine, n int, kind TokenKind, expected string) (token Token, err error) {
	if n >= len(line.Operands) || line.Operands[n].Kind != kind {
		err = ErrOperand{Mnemonic: line.Mnemonic, Expected: expected}
		return
	}
	token = line.Operands[n]
	return
}

// encode generates the instruction for a single line.
func (asm *Assembler) encode(line AsmLine, labels map[string]int, equate map[string]int64, lineno int) (in Instruction, err error) {
	op, ok := mnemonicOp[line.Mnemonic]
	if !ok {
		err = ErrUnknownInstruction(line.Mnemonic)
		return
	}

	in = Make(op)
	args := 0

	switch op {
	case OP_PUSH, OP_PUSH_PARAM:
		if len(line.Operands) == 0 {
			err = ErrOperand{Mnemonic: line.Mnemonic, Expected: "number"}
			return
		}
		in.Value, ok, err = asm.valueOf(line.Operands[0], equate, lineno)
		if err != nil {
			return
		}
		if !ok {
			err = ErrOperand{Mnemonic: line.Mnemonic, Expected: "number"}
			return
		}
		args = 1
	case OP_JUMP, OP_JUMP_IF, OP_JUMP_IF_ZERO, OP_JUMP_IF_NOT_ZERO:
		var token Token
		token, err = operand(line, 0, TOKEN_IDENTIFIER, "label")
		if err != nil {
			return
		}
		in.Target, ok = labels[token.Text]
		if !ok {
			err = ErrLabelMissing(token.Text)
			return
		}
		args = 1
	case OP_LOAD, OP_STORE, OP_CREATE_LOCAL, OP_LOAD_LOCAL, OP_STORE_LOCAL, OP_CALL:
		var token Token
		token, err = operand(line, 0, TOKEN_IDENTIFIER, "identifier")
		if err != nil {
			return
		}
		in.Text = token.Text
		args = 1
	case OP_NEW_STRING, OP_PRINT_STR:
		var token Token
		token, err = operand(line, 0, TOKEN_STRING, "string")
		if err != nil {
			return
		}
		in.Text = token.Text
		args = 1
	case OP_DEFINE_FUNCTION:
		var token Token
		token, err = operand(line, 0, TOKEN_IDENTIFIER, "identifier")
		if err != nil {
			return
		}
		in.Text = token.Text
		if len(line.Operands) < 2 {
			err = ErrOperand{Mnemonic: line.Mnemonic, Expected: "number"}
			return
		}
		in.Value, ok, err = asm.valueOf(line.Operands[1], equate, lineno)
		if err != nil {
			return
		}
		if !ok {
			err = ErrOperand{Mnemonic: line.Mnemonic, Expected: "number"}
			return
		}
		args = 2
	}

	if len(line.Operands) > args {
		err = ErrOpcodeExtraArgs
		return
	}

	return
}
