package io

import (
	"fmt"
	"io"
)

// Tape is the line oriented output device. Each printed value is written
// to Output as a decimal number followed by a newline.
type Tape struct {
	Output io.Writer

	Lines int // Count of values printed.
}

var _ Printer = (*Tape)(nil)

// Rewind clears the printed line counter.
func (tc *Tape) Rewind() {
	tc.Lines = 0
}

// Print writes the value to the tape output, unbuffered.
// A Tape without an Output discards values.
func (tc *Tape) Print(value byte) (err error) {
	tc.Lines++

	if tc.Output == nil {
		return
	}

	_, err = fmt.Fprintf(tc.Output, "%d\n", value)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrTapeWrite, err)
	}

	return
}
