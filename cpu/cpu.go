package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/ls8/io"
)

const (
	REGISTER_COUNT = 8 // General purpose registers, including SP.
)

// Comparison flags, laid out as the LS-8 FL register 0b00000LGE.
const (
	FLAG_E = byte(0b001) // Equal
	FLAG_G = byte(0b010) // Greater than
	FLAG_L = byte(0b100) // Less than
)

// State is the execution state of the CPU.
type State int

const (
	STATE_RUNNING = State(0) // running
	STATE_HALTED  = State(1) // halted
)

func (st State) String() string {
	if st == STATE_HALTED {
		return "halted"
	}
	return "running"
}

var _cpu_defines = map[string]string{
	"STACK_TOP":      fmt.Sprintf("%#x", STACK_TOP),
	"REGISTER_COUNT": fmt.Sprintf("%v", REGISTER_COUNT),
	"FLAG_E":         fmt.Sprintf("%#x", FLAG_E),
	"FLAG_G":         fmt.Sprintf("%#x", FLAG_G),
	"FLAG_L":         fmt.Sprintf("%#x", FLAG_L),
}

// Cpu is the simulation context for the LS-8 processor.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	// BalancedReturn makes RET pop its return address, incrementing SP.
	// The LS-8 reference behaviour leaves SP unchanged on RET, so every
	// CALL/RET pair leaks one stack byte.
	BalancedReturn bool

	Memory io.Memory  // Memory for instruction fetch and the stack.
	Output io.Printer // Destination of PRN.

	Pc       byte                 // Program counter.
	Register [REGISTER_COUNT]byte // Register bank. R7 is SP.
	Flags    byte                 // FL register: 0b00000LGE.
	State    State                // Execution state.

	Ticks int   // Instructions executed since reset.
	Err   error // Fatal error that halted the CPU, if any.
}

// NewCpu creates a new CPU attached to memory and output.
func NewCpu(memory io.Memory, output io.Printer) (cpu *Cpu) {
	cpu = &Cpu{
		Memory: memory,
		Output: output,
	}

	cpu.Reset()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Reset the CPU state.
// - Clears the registers and flags.
// - Sets SP to STACK_TOP and PC to 0.
// - Zeros the tick counter.
//
// Memory is left untouched.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Register[:])
	cpu.Register[SP] = STACK_TOP
	cpu.Pc = 0
	cpu.Flags = 0
	cpu.State = STATE_RUNNING
	cpu.Ticks = 0
	cpu.Err = nil
}

// Load stores a program byte in memory.
func (cpu *Cpu) Load(address byte, value byte) {
	cpu.Memory.Write(address, value)
}

// Equal returns the E flag.
func (cpu *Cpu) Equal() bool {
	return cpu.Flags&FLAG_E != 0
}

// Less returns the L flag.
func (cpu *Cpu) Less() bool {
	return cpu.Flags&FLAG_L != 0
}

// Greater returns the G flag.
func (cpu *Cpu) Greater() bool {
	return cpu.Flags&FLAG_G != 0
}

// Halted returns true once the CPU has stopped, normally or not.
func (cpu *Cpu) Halted() bool {
	return cpu.State == STATE_HALTED
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	regs := []string{
		"pc",
		"fl",
		"r0", "r1", "r2", "r3", "r4", "r5", "r6",
		"sp",
		"state",
	}
	for _, reg := range regs {
		var strval string
		switch reg {
		case "pc":
			strval = fmt.Sprintf("%02X", cpu.Pc)
		case "fl":
			strval = fmt.Sprintf("%03b", cpu.Flags)
		case "r0", "r1", "r2", "r3", "r4", "r5", "r6":
			strval = fmt.Sprintf("%02X", cpu.Register[reg[1]-'0'])
		case "sp":
			strval = fmt.Sprintf("%02X", cpu.Register[SP])
		case "state":
			strval = cpu.State.String()
		}
		text += fmt.Sprintf("% 5s: %v\n", reg, strval)
	}

	return
}

// Fetch reads the opcode at PC and the two bytes after it.
// Both operand bytes are always read, whether the opcode uses them or not.
func (cpu *Cpu) Fetch() (op Opcode, a, b byte) {
	op = Opcode(cpu.Memory.Read(cpu.Pc))
	a = cpu.Memory.Read(cpu.Pc + 1)
	b = cpu.Memory.Read(cpu.Pc + 2)
	return
}

// halt stops the CPU, recording the fatal error if any.
func (cpu *Cpu) halt(err error) {
	cpu.State = STATE_HALTED
	cpu.Err = err

	if cpu.Verbose {
		if err != nil {
			log.Printf("cpu: halted: %v", err)
		} else {
			log.Printf("cpu: halted")
		}
	}
}

// Tick executes a single instruction cycle.
//
// A fatal error halts the CPU before the PC advances. Calling Tick on a
// halted CPU returns ErrHalted and has no effect.
func (cpu *Cpu) Tick() (err error) {
	if cpu.State == STATE_HALTED {
		return ErrHalted
	}

	op, a, b := cpu.Fetch()

	ins, err := Decode(op, a, b)
	if err != nil {
		err = errors.Join(ErrOpcode{Addr: cpu.Pc, Opcode: op}, err)
		cpu.halt(err)
		return
	}

	err = cpu.Execute(ins)

	return
}

// Execute executes a single decoded instruction at the current PC.
// Register operands outside R0-R7 fail with ErrRegisterInvalid and halt
// the CPU, as for a decoded instruction.
func (cpu *Cpu) Execute(ins Instruction) (err error) {
	if cpu.State == STATE_HALTED {
		return ErrHalted
	}

	defer func() {
		if err != nil {
			err = errors.Join(ErrOpcode{Addr: cpu.Pc, Opcode: ins.Opcode()}, err)
			cpu.halt(err)
		}
	}()

	if cpu.Verbose {
		log.Printf("%02x: %v", cpu.Pc, ins)
	}

	err = checkRegisters(ins)
	if err != nil {
		return
	}

	next_pc := cpu.Pc + ins.Opcode().Size()

	switch in := ins.(type) {
	case Ldi:
		cpu.Register[in.Reg] = in.Value
	case Prn:
		if cpu.Output != nil {
			err = cpu.Output.Print(cpu.Register[in.Reg])
			if err != nil {
				err = errors.Join(ErrOutput, err)
				return
			}
		}
	case Hlt:
		cpu.halt(nil)
	case Alu:
		err = cpu.doAlu(in.Op, in.A, in.B)
		if err != nil {
			return
		}
	case Jump:
		var taken bool
		switch in.Cond {
		case JUMP_ALWAYS:
			taken = true
		case JUMP_EQUAL:
			taken = cpu.Equal()
		case JUMP_NOT_EQUAL:
			taken = !cpu.Equal()
		default:
			err = ErrOpcodeInvalid
			return
		}
		if taken {
			next_pc = cpu.Register[in.Reg]
		}
	case Push:
		cpu.pushRegister(in.Reg)
	case Pop:
		cpu.popRegister(in.Reg)
	case Call:
		cpu.Push(cpu.Pc + 2)
		next_pc = cpu.Register[in.Reg]
	case Ret:
		next_pc = cpu.Peek()
		if cpu.BalancedReturn {
			cpu.Register[SP]++
		}
	default:
		err = ErrOpcodeInvalid
		return
	}

	cpu.Pc = next_pc
	cpu.Ticks++

	return
}

// Run ticks the CPU until it halts. A normal HLT returns nil; a fatal
// error is returned as-is.
func (cpu *Cpu) Run() (err error) {
	for cpu.State != STATE_HALTED {
		err = cpu.Tick()
		if err != nil {
			return
		}
	}

	return
}
