package emulator

import (
	"fmt"
	"io"
	"strings"

	"github.com/mgutz/ansi"

	"github.com/ezrec/ls8/cpu"
)

var chSame = ansi.ColorCode("default:default")
var chNew = ansi.ColorCode("default+bu:default")

// Trace writes one line per executed instruction, showing the registers
// and flags, with changes since the previous line highlighted.
type Trace struct {
	Output io.Writer // Destination of the trace.
	Color  bool      // If set, highlight changes with ANSI color.

	valid bool
	prior [cpu.REGISTER_COUNT + 1]byte
}

// Reset forgets the previous register state.
func (tr *Trace) Reset() {
	tr.valid = false
}

// field formats a named value, marking it if it changed.
func (tr *Trace) field(name string, value string, changed bool) string {
	switch {
	case !changed:
		return fmt.Sprintf("%s %s", name, value)
	case tr.Color:
		return fmt.Sprintf("%s %s", name, chNew+value+ansi.Reset+chSame)
	default:
		return fmt.Sprintf("%s*%s", name, value)
	}
}

// Record writes the trace line for the instruction at pc, using the
// state of c after it executed.
func (tr *Trace) Record(pc byte, text string, c *cpu.Cpu) {
	if tr.Output == nil {
		return
	}

	var now [cpu.REGISTER_COUNT + 1]byte
	copy(now[:], c.Register[:])
	now[cpu.REGISTER_COUNT] = c.Flags

	fields := make([]string, 0, len(now))
	for n, value := range now {
		changed := tr.valid && tr.prior[n] != value
		switch {
		case n == cpu.SP:
			fields = append(fields, tr.field("sp", fmt.Sprintf("%02x", value), changed))
		case n == cpu.REGISTER_COUNT:
			fields = append(fields, tr.field("fl", fmt.Sprintf("%03b", value), changed))
		default:
			fields = append(fields, tr.field(fmt.Sprintf("r%d", n), fmt.Sprintf("%02x", value), changed))
		}
	}

	line := fmt.Sprintf("%02x: %-12s %s", pc, text, strings.Join(fields, " "))
	if tr.Color {
		line = chSame + line + ansi.Reset
	}
	fmt.Fprintln(tr.Output, line)

	tr.prior = now
	tr.valid = true
}
