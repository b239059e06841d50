package io

import (
	"errors"

	"github.com/ezrec/stackvm/translate"
)

var f = translate.From

var (
	// Tape errors
	ErrTapeMissing = errors.New(f("tape has no output"))
)

// ErrTapeWrite is a failure of the tape's writer.
type ErrTapeWrite struct {
	Written int64
	Err     error
}

func (err *ErrTapeWrite) Error() string {
	return f("tape write failed after %d bytes: %v", err.Written, err.Err)
}

func (err *ErrTapeWrite) Unwrap() error {
	return err.Err
}
