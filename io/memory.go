// Package io provides the memory and output devices attached to the LS-8
// processor: a flat 256 byte RAM shared by code and stack, and a line
// oriented Tape that receives PRN output.
package io

// Memory is the byte-addressable store the processor fetches from.
// Code, data and stack all share the one address space.
type Memory interface {
	// Read returns the byte at address.
	Read(address byte) byte
	// Write stores value at address.
	Write(address byte, value byte)
}

// Printer receives the values emitted by the PRN instruction.
type Printer interface {
	// Print emits the decimal representation of value as one line.
	Print(value byte) error
}
