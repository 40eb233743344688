// Package cpu implements the processor and assembler for the LS-8 system.
//
// The processor consists of a program counter (PC), eight 8-bit registers
// (R0-R7, with R7 the stack pointer), an ALU, and the E/L/G comparison
// flags. Instructions are fetched from a 256 byte Memory shared with the
// stack, decoded into Instruction values, and executed one per Tick.
//
// Programs are produced either by the binary loader, which reads the
// LS-8 one-byte-per-line format, or by the assembler, which provides
// mnemonics, labels, macros, equates, and compile-time expression
// evaluation.
package cpu
