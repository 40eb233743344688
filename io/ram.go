package io

import (
	"fmt"
	"io"
	"iter"
	"maps"
)

const (
	RAM_SIZE = 256 // Addressable bytes.
)

var _ram_defines = map[string]string{
	"RAM_SIZE": fmt.Sprintf("%v", RAM_SIZE),
}

// Ram is the LS-8 main memory. Any byte is a valid address.
type Ram struct {
	Data [RAM_SIZE]byte

	Reads  int // Read access counter.
	Writes int // Write access counter.
}

var _ Memory = (*Ram)(nil)

// Defines returns an iter of defines for the memory.
func (ram *Ram) Defines() iter.Seq2[string, string] {
	return maps.All(_ram_defines)
}

// Reset zeros the memory and the access counters.
func (ram *Ram) Reset() {
	clear(ram.Data[:])
	ram.Reads = 0
	ram.Writes = 0
}

func (ram *Ram) Read(address byte) byte {
	ram.Reads++
	return ram.Data[address]
}

func (ram *Ram) Write(address byte, value byte) {
	ram.Writes++
	ram.Data[address] = value
}

// Dump writes a hex listing of the memory, sixteen bytes per row.
// Rows that are entirely zero are skipped.
func (ram *Ram) Dump(out io.Writer) (err error) {
	for row := 0; row < RAM_SIZE; row += 16 {
		line := ram.Data[row : row+16]
		zero := true
		for _, b := range line {
			if b != 0 {
				zero = false
				break
			}
		}
		if zero {
			continue
		}
		_, err = fmt.Fprintf(out, "%02x: % x\n", row, line)
		if err != nil {
			return
		}
	}

	return
}
