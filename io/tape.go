// Package io streams stack machine output to the host.
package io

import (
	"io"

	"github.com/ezrec/stackvm/vm"
)

// Tape is a sequential output device for the text a program prints.
type Tape struct {
	Output io.Writer

	written int64
}

// Written is the number of bytes sent to Output.
func (tc *Tape) Written() int64 {
	return tc.written
}

// Flush drains the machine output and writes every chunk, in order.
// Chunks after a failed write are discarded.
func (tc *Tape) Flush(out *vm.Output) (err error) {
	chunks := out.Drain()
	if tc.Output == nil {
		if len(chunks) > 0 {
			err = ErrTapeMissing
		}
		return
	}

	for _, chunk := range chunks {
		var n int
		n, err = io.WriteString(tc.Output, chunk)
		tc.written += int64(n)
		if err == nil && n < len(chunk) {
			err = io.ErrShortWrite
		}
		if err != nil {
			err = &ErrTapeWrite{Written: tc.written, Err: err}
			return
		}
	}

	return
}
