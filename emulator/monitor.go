package emulator

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/ezrec/ls8/cpu"
)

const (
	MONITOR_DIS_COUNT = 8 // Default count of instructions to disassemble.
)

// Monitor is an interactive command interpreter that steps an emulator.
type Monitor struct {
	*Emulator
	Output io.Writer // Destination of command output.

	Breakpoint map[byte]bool // Addresses that stop 'continue'.
}

// NewMonitor creates a monitor for emu, writing to output.
func NewMonitor(emu *Emulator, output io.Writer) (mon *Monitor) {
	mon = &Monitor{
		Emulator:   emu,
		Output:     output,
		Breakpoint: map[byte]bool{},
	}

	return
}

// Prompt returns the command prompt, showing the PC.
func (mon *Monitor) Prompt() string {
	if mon.Cpu.Halted() {
		return fmt.Sprintf("%02x (halted)> ", mon.Cpu.Pc)
	}
	return fmt.Sprintf("%02x> ", mon.Cpu.Pc)
}

// Disassemble decodes the instruction at addr without touching the
// memory access counters. next is the address of the following
// instruction.
func (emu *Emulator) Disassemble(addr byte) (text string, next byte) {
	op := cpu.Opcode(emu.Ram.Data[addr])
	a := emu.Ram.Data[addr+1]
	b := emu.Ram.Data[addr+2]

	ins, err := cpu.Decode(op, a, b)
	if err != nil {
		text = fmt.Sprintf(".byte 0x%02x", byte(op))
		next = addr + 1
		return
	}

	text = ins.String()
	next = addr + op.Size()

	return
}

// parseArg parses an optional numeric argument.
func parseArg(args []string, n int, value int) (int, error) {
	if len(args) <= n {
		return value, nil
	}

	v64, err := strconv.ParseInt(args[n], 0, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMonitorArgument, args[n])
	}

	return int(v64), nil
}

// where prints the next instruction.
func (mon *Monitor) where() {
	if mon.Cpu.Halted() {
		fmt.Fprintf(mon.Output, "halted at %02x\n", mon.Cpu.Pc)
		return
	}
	text, _ := mon.Disassemble(mon.Cpu.Pc)
	fmt.Fprintf(mon.Output, "%02x: %v\n", mon.Cpu.Pc, text)
}

// Exec runs one command line. quit is set once the user asks to leave.
//
// Commands:
//
//	s, step [n]       execute n instructions (default 1)
//	c, continue       run until halted, a breakpoint, or ctx is done
//	b, break addr     toggle a breakpoint
//	d, dis [addr] [n] disassemble n instructions from addr (default PC)
//	r, regs           show the registers
//	m, mem            dump memory
//	reset             reload the program
//	q, quit           leave the monitor
func (mon *Monitor) Exec(ctx context.Context, line string) (quit bool, err error) {
	words := strings.Fields(line)
	if len(words) == 0 {
		words = []string{"step"}
	}

	cmd, args := words[0], words[1:]

	switch cmd {
	case "s", "step":
		var count int
		count, err = parseArg(args, 0, 1)
		if err != nil {
			return
		}
		for range count {
			var done bool
			done, err = mon.Tick()
			if err != nil || done {
				break
			}
		}
		mon.where()
	case "c", "continue":
		err = mon.cont(ctx)
		mon.where()
	case "b", "break":
		if len(args) != 1 {
			for _, addr := range slices.Sorted(maps.Keys(mon.Breakpoint)) {
				fmt.Fprintf(mon.Output, "break %02x\n", addr)
			}
			return
		}
		var addr int
		addr, err = parseArg(args, 0, 0)
		if err != nil {
			return
		}
		if addr < 0 || addr > 0xff {
			err = fmt.Errorf("%w: %v", ErrMonitorArgument, args[0])
			return
		}
		if mon.Breakpoint[byte(addr)] {
			delete(mon.Breakpoint, byte(addr))
		} else {
			mon.Breakpoint[byte(addr)] = true
		}
	case "d", "dis":
		var addr, count int
		addr, err = parseArg(args, 0, int(mon.Cpu.Pc))
		if err != nil {
			return
		}
		count, err = parseArg(args, 1, MONITOR_DIS_COUNT)
		if err != nil {
			return
		}
		pc := byte(addr)
		for range count {
			text, next := mon.Disassemble(pc)
			fmt.Fprintf(mon.Output, "%02x: %v\n", pc, text)
			pc = next
		}
	case "r", "regs":
		fmt.Fprint(mon.Output, mon.Cpu.String())
	case "m", "mem":
		err = mon.Ram.Dump(mon.Output)
	case "reset":
		err = mon.Reset()
		if err == nil {
			mon.where()
		}
	case "q", "quit":
		quit = true
	default:
		err = fmt.Errorf("%w: %v", ErrMonitorCommand, cmd)
	}

	return
}

// cont runs until the CPU halts or reaches a breakpoint. The instruction
// at the starting PC always executes.
func (mon *Monitor) cont(ctx context.Context) (err error) {
	for first := true; ; first = false {
		if !first && mon.Breakpoint[mon.Cpu.Pc] {
			fmt.Fprintf(mon.Output, "break %02x\n", mon.Cpu.Pc)
			return
		}

		select {
		case <-ctx.Done():
			fmt.Fprintf(mon.Output, "interrupted\n")
			return
		default:
		}

		var done bool
		done, err = mon.Tick()
		if err != nil || done {
			return
		}
	}
}
