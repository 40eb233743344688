// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"context"
	"fmt"
	"iter"
	"log"
	"maps"
	"time"

	"github.com/ezrec/ls8/cpu"
	"github.com/ezrec/ls8/internal"
	"github.com/ezrec/ls8/io"
)

const (
	DEFAULT_CLOCK_HZ = 1000 // Reference LS-8 clock: one instruction per millisecond.
)

var _emulator_defines = map[string]string{
	"DEFAULT_CLOCK_HZ": fmt.Sprintf("%v", DEFAULT_CLOCK_HZ),
}

// Emulator state. CPU + RAM + Tape.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.

	Ram  io.Ram  // Main memory.
	Tape io.Tape // PRN output.

	Trace *Trace // If set, records each executed instruction.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Program: &cpu.Program{},
	}

	emu.Cpu = cpu.NewCpu(&emu.Ram, &emu.Tape)

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
		emu.Ram.Defines(),
	)
}

// Assembler returns an assembler with the emulator defines predefined.
func (emu *Emulator) Assembler() (asm *cpu.Assembler) {
	asm = &cpu.Assembler{Verbose: emu.Verbose}
	for key, value := range emu.Defines() {
		asm.Predefine(key, value)
	}

	return
}

// Reset clears memory and the CPU, then loads the program at address 0.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = false

	if emu.Program.Len() > io.RAM_SIZE {
		err = cpu.ErrProgramTooLarge
		return
	}

	emu.Ram.Reset()
	emu.Tape.Rewind()
	emu.Cpu.Reset()

	for addr, value := range emu.Program.Bytes() {
		emu.Cpu.Load(addr, value)
	}

	if emu.Trace != nil {
		emu.Trace.Reset()
	}

	emu.Cpu.Verbose = emu.Verbose

	if emu.Verbose {
		log.Printf("emulator: loaded %d bytes", emu.Program.Len())
	}

	return
}

// Ticks returns the total ticks since a reset.
func (emu *Emulator) Ticks() int {
	return emu.Cpu.Ticks
}

// LineNo returns the source line number of the instruction at the PC.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Cpu.Pc)
	if dbg.Statement == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single instruction of the emulator.
// done is set once the CPU has halted, normally or not.
func (emu *Emulator) Tick() (done bool, err error) {
	if emu.Cpu.Halted() {
		done = true
		return
	}

	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	lineno := emu.LineNo()
	pc := emu.Cpu.Pc

	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Addr: pc, Err: err}
		}
	}()

	var text string
	if emu.Trace != nil {
		op, a, b := emu.Cpu.Fetch()
		ins, derr := cpu.Decode(op, a, b)
		if derr == nil {
			text = ins.String()
		} else {
			text = op.String()
		}
	}

	err = emu.Cpu.Tick()

	if emu.Trace != nil {
		emu.Trace.Record(pc, text, emu.Cpu)
	}

	done = emu.Cpu.Halted()

	return
}

// Run ticks the emulator until the CPU halts or the context is done.
func (emu *Emulator) Run(ctx context.Context) (err error) {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var done bool
		done, err = emu.Tick()
		if err != nil || done {
			return
		}
	}
}

// RunClock ticks the emulator once per clock period at hz, until the CPU
// halts or the context is done. Each tick runs one whole instruction.
func (emu *Emulator) RunClock(ctx context.Context, hz int) (err error) {
	if hz <= 0 {
		return emu.Run(ctx)
	}

	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			var done bool
			done, err = emu.Tick()
			if err != nil || done {
				return
			}
		}
	}
}
