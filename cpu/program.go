package cpu

import (
	"iter"
)

// Statement is a line of source with the bytes it generated.
type Statement struct {
	LineNo    int      // Source line number.
	Addr      int      // Address of the first generated byte.
	Words     []string // Source words, after equate substitution.
	Bytes     []byte   // Generated bytes.
	LinkLabel string   // Label to link into Bytes[LinkIndex], if any.
	LinkIndex int      // Index of the byte patched by LinkLabel.
}

// Program is a loaded or assembled LS-8 program.
type Program struct {
	Statements []Statement
}

// Debug locates a program byte. Statement is nil for an address outside
// the program.
type Debug struct {
	*Statement
	Index int // Offset of the byte within Statement.Bytes.
}

// Debug finds the statement that generated the byte at addr.
func (prog *Program) Debug(addr byte) (dbg Debug) {
	for n, st := range prog.Statements {
		if int(addr) >= st.Addr && int(addr) < st.Addr+len(st.Bytes) {
			dbg = Debug{
				Statement: &prog.Statements[n],
				Index:     int(addr) - st.Addr,
			}
			break
		}
	}

	return
}

// Len returns the size of the program image in bytes.
func (prog *Program) Len() (size int) {
	for _, st := range prog.Statements {
		size = max(size, st.Addr+len(st.Bytes))
	}

	return
}

// Binary returns the program image, to be loaded at address 0.
func (prog *Program) Binary() (bins []byte) {
	bins = make([]byte, prog.Len())
	for addr, value := range prog.Bytes() {
		bins[addr] = value
	}

	return
}

// Bytes iterates over each address and program byte.
func (prog *Program) Bytes() iter.Seq2[byte, byte] {
	return func(yield func(addr byte, value byte) bool) {
		for _, st := range prog.Statements {
			for n, value := range st.Bytes {
				if !yield(byte(st.Addr+n), value) {
					return
				}
			}
		}
	}
}
