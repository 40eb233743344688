package emulator

import (
	"errors"

	"github.com/ezrec/ls8/translate"
)

var f = translate.From

var (
	// Monitor errors
	ErrMonitorCommand  = errors.New(f("unknown command"))
	ErrMonitorArgument = errors.New(f("invalid argument"))
)

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	LineNo int
	Addr   byte
	Err    error
}

func (err *ErrRuntime) Error() string {
	return f("line %d (0x%02x) %v", err.LineNo, err.Addr, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
