package conformance

import (
	"github.com/ezrec/stackvm/translate"
)

var f = translate.From

// ErrSuite locates a suite that could not be loaded.
type ErrSuite struct {
	File string
	Err  error
}

func (err *ErrSuite) Error() string {
	return f("suite %v: %v", err.File, err.Err)
}

func (err *ErrSuite) Unwrap() error {
	return err.Err
}

// ErrMismatch is a difference between the expected and actual outcome.
type ErrMismatch struct {
	Field    string
	Expected any
	Found    any
}

func (err *ErrMismatch) Error() string {
	return f("%v: expected %v, found %v", err.Field, err.Expected, err.Found)
}

// ErrUnexpected is an error the test did not expect.
type ErrUnexpected struct {
	Err error
}

func (err *ErrUnexpected) Error() string {
	return f("unexpected error: %v", err.Err)
}

func (err *ErrUnexpected) Unwrap() error {
	return err.Err
}
