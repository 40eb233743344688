package cpu

import (
	"bytes"
	"errors"
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/ls8/io"
)

// newTestCpu creates a CPU with the program loaded at address 0.
func newTestCpu(program ...byte) (cpu *Cpu, ram *io.Ram, out *bytes.Buffer) {
	ram = &io.Ram{}
	out = &bytes.Buffer{}
	cpu = NewCpu(ram, &io.Tape{Output: out})
	for n, value := range program {
		cpu.Load(byte(n), value)
	}
	return
}

type failPrinter struct{}

func (failPrinter) Print(value byte) error {
	return errors.New("printer on fire")
}

func TestCpuReset(t *testing.T) {
	assert := assert.New(t)

	cpu, _, _ := newTestCpu()

	assert.Equal(byte(0), cpu.Pc)
	assert.Equal(byte(STACK_TOP), cpu.Register[SP])
	assert.Equal(byte(STACK_TOP), cpu.Sp())
	assert.Equal(byte(0), cpu.Flags)
	assert.Equal(STATE_RUNNING, cpu.State)
	for n := range SP {
		assert.Equal(byte(0), cpu.Register[n])
	}

	cpu.Register[3] = 0x33
	cpu.Pc = 0x20
	cpu.Flags = FLAG_G
	cpu.State = STATE_HALTED
	cpu.Ticks = 12
	cpu.Reset()

	assert.Equal(byte(0), cpu.Register[3])
	assert.Equal(byte(0), cpu.Pc)
	assert.Equal(byte(0), cpu.Flags)
	assert.False(cpu.Halted())
	assert.Equal(0, cpu.Ticks)
	assert.Contains(cpu.String(), "sp: F4")
}

func TestCpuAdd(t *testing.T) {
	assert := assert.New(t)

	cpu, _, _ := newTestCpu()

	for a := range 256 {
		for b := range 256 {
			cpu.Register[2] = byte(a)
			cpu.Register[5] = byte(b)
			cpu.Add(2, 5)
			if cpu.Register[2] != byte((a+b)%256) {
				assert.Equal(byte((a+b)%256), cpu.Register[2], "%d + %d", a, b)
			}
			assert.Equal(byte(b), cpu.Register[5])
		}
	}

	cpu.Register[0] = 255
	cpu.Register[1] = 1
	cpu.Add(0, 1)
	assert.Equal(byte(0), cpu.Register[0])

	// Same register doubles.
	cpu.Register[0] = 200
	cpu.Add(0, 0)
	assert.Equal(byte(144), cpu.Register[0])
}

func TestCpuMul(t *testing.T) {
	assert := assert.New(t)

	cpu, _, _ := newTestCpu()

	for a := range 256 {
		for b := range 256 {
			cpu.Register[0] = byte(a)
			cpu.Register[1] = byte(b)
			cpu.Mul(0, 1)
			if cpu.Register[0] != byte((a*b)%256) {
				assert.Equal(byte((a*b)%256), cpu.Register[0], "%d * %d", a, b)
			}
		}
	}

	cpu.Register[0] = 16
	cpu.Register[1] = 16
	cpu.Mul(0, 1)
	assert.Equal(byte(0), cpu.Register[0])
	assert.Equal(byte(16), cpu.Register[1])
}

func TestCpuCmp(t *testing.T) {
	assert := assert.New(t)

	cpu, _, _ := newTestCpu()

	for a := range 256 {
		for b := range 256 {
			cpu.Register[3] = byte(a)
			cpu.Register[4] = byte(b)
			cpu.Cmp(3, 4)
			if bits.OnesCount8(cpu.Flags) != 1 {
				assert.Fail("flags not exclusive", "%d <=> %d: %03b", a, b, cpu.Flags)
			}
			if (a == b) != cpu.Equal() || (a < b) != cpu.Less() || (a > b) != cpu.Greater() {
				assert.Fail("wrong flag", "%d <=> %d: %03b", a, b, cpu.Flags)
			}
		}
	}

	cpu.Register[6] = 0x80
	cpu.Cmp(6, 6)
	assert.Equal(FLAG_E, cpu.Flags)

	// Unsigned comparison.
	cpu.Register[0] = 0xff
	cpu.Register[1] = 0x01
	cpu.Cmp(0, 1)
	assert.Equal(FLAG_G, cpu.Flags)
}

func TestCpuAluInvalid(t *testing.T) {
	assert := assert.New(t)

	// Unassigned bytes in the ALU class are not instructions.
	for _, op := range []byte{0b10100001, 0b10101111} {
		cpu, _, _ := newTestCpu(op, 0, 1, byte(OP_HLT))
		cpu.Register[0] = 3

		err := cpu.Tick()
		assert.ErrorIs(err, ErrOpcodeInvalid, "%#02x", op)
		assert.NotErrorIs(err, ErrOpcodeAlu, "%#02x", op)
		assert.ErrorIs(err, ErrOpcode{})
		assert.True(cpu.Halted())
		assert.Equal(byte(0), cpu.Pc)
		assert.Equal(byte(3), cpu.Register[0])
		assert.Equal(err, cpu.Err)
	}

	// An ALU instruction built by hand with an unknown operation.
	cpu, _, _ := newTestCpu()
	cpu.Register[0] = 3
	err := cpu.Execute(Alu{Op: AluOp(0b00011), A: 0, B: 1})
	assert.ErrorIs(err, ErrOpcodeAlu)
	assert.ErrorIs(err, ErrOpcode{})
	assert.True(cpu.Halted())
	assert.Equal(byte(0), cpu.Pc)
	assert.Equal(byte(3), cpu.Register[0])
}

func TestCpuExecuteRegisterInvalid(t *testing.T) {
	assert := assert.New(t)

	table := []Instruction{
		Ldi{Reg: 8, Value: 1},
		Prn{Reg: 0xff},
		Alu{Op: ALU_OP_ADD, A: 0, B: 9},
		Jump{Cond: JUMP_ALWAYS, Reg: 8},
		Push{Reg: 8},
		Pop{Reg: 8},
		Call{Reg: 8},
	}

	for _, ins := range table {
		cpu, _, out := newTestCpu()
		cpu.Pc = 0x10

		var err error
		assert.NotPanics(func() { err = cpu.Execute(ins) }, ins.String())
		assert.ErrorIs(err, ErrRegisterInvalid, ins.String())
		assert.True(cpu.Halted(), ins.String())
		assert.Equal(byte(0x10), cpu.Pc, ins.String())
		assert.Equal(byte(STACK_TOP), cpu.Sp(), ins.String())
		assert.Equal("", out.String(), ins.String())
	}
}

func TestCpuMultiply(t *testing.T) {
	assert := assert.New(t)

	cpu, _, out := newTestCpu(
		0x99, 0x00, 0x08, // LDI R0,8
		0x99, 0x01, 0x09, // LDI R1,9
		0xaa, 0x00, 0x01, // MUL R0,R1
		0x43, 0x00, // PRN R0
		0x01, // HLT
	)

	err := cpu.Run()
	assert.NoError(err)
	assert.Equal("72\n", out.String())
	assert.True(cpu.Halted())
	assert.NoError(cpu.Err)
	assert.Equal(5, cpu.Ticks)
	assert.Equal(byte(12), cpu.Pc)

	// Halted is terminal.
	err = cpu.Tick()
	assert.ErrorIs(err, ErrHalted)
	assert.Equal(byte(12), cpu.Pc)
	assert.Equal(5, cpu.Ticks)
	assert.NoError(cpu.Run())
}

func TestCpuPushPop(t *testing.T) {
	assert := assert.New(t)

	for reg := range byte(REGISTER_COUNT) {
		cpu, ram, _ := newTestCpu(
			byte(OP_PUSH), reg,
			byte(OP_POP), reg,
			byte(OP_HLT),
		)
		if reg != SP {
			cpu.Register[reg] = 0x5a + reg
		}
		before := cpu.Register

		assert.NoError(cpu.Tick())
		assert.Equal(byte(STACK_TOP-1), cpu.Sp(), "R%d", reg)
		assert.Equal(byte(2), cpu.Pc)
		if reg != SP {
			assert.Equal(0x5a+reg, ram.Data[STACK_TOP-1], "R%d", reg)
		} else {
			assert.Equal(byte(STACK_TOP-1), ram.Data[STACK_TOP-1])
		}

		assert.NoError(cpu.Tick())
		assert.Equal(byte(STACK_TOP), cpu.Sp(), "R%d", reg)
		assert.Equal(before, cpu.Register, "R%d", reg)
		assert.Equal(byte(4), cpu.Pc)
	}
}

func TestCpuPushPopOrder(t *testing.T) {
	assert := assert.New(t)

	cpu, _, out := newTestCpu(
		0x99, 0x00, 0x01, // LDI R0,1
		0x99, 0x01, 0x02, // LDI R1,2
		0x4d, 0x00, // PUSH R0
		0x4d, 0x01, // PUSH R1
		0x4c, 0x02, // POP R2
		0x4c, 0x03, // POP R3
		0x43, 0x02, // PRN R2
		0x43, 0x03, // PRN R3
		0x01, // HLT
	)

	assert.NoError(cpu.Run())
	assert.Equal("2\n1\n", out.String())
	assert.Equal(byte(STACK_TOP), cpu.Sp())
}

func callProgram() []byte {
	return []byte{
		0x99, 0x01, 0x0a, // 0: LDI R1,10
		0x48, 0x01, // 3: CALL R1
		0x99, 0x02, 0x07, // 5: LDI R2,7
		0x01, // 8: HLT
		0x00, // 9: pad
		0x99, 0x03, 0x09, // 10: LDI R3,9
		0x09, // 13: RET
	}
}

func TestCpuCallRet(t *testing.T) {
	assert := assert.New(t)

	cpu, ram, _ := newTestCpu(callProgram()...)

	assert.NoError(cpu.Tick()) // LDI
	assert.NoError(cpu.Tick()) // CALL
	assert.Equal(byte(10), cpu.Pc)
	assert.Equal(byte(STACK_TOP-1), cpu.Sp())
	assert.Equal(byte(5), ram.Data[STACK_TOP-1])

	assert.NoError(cpu.Tick()) // LDI
	assert.NoError(cpu.Tick()) // RET
	assert.Equal(byte(5), cpu.Pc)

	assert.NoError(cpu.Run())
	assert.Equal(byte(7), cpu.Register[2])
	assert.Equal(byte(9), cpu.Register[3])

	// RET leaves the return address on the stack.
	assert.Equal(byte(STACK_TOP-1), cpu.Sp())
}

func TestCpuCallRetBalanced(t *testing.T) {
	assert := assert.New(t)

	cpu, _, _ := newTestCpu(callProgram()...)
	cpu.BalancedReturn = true

	assert.NoError(cpu.Run())
	assert.Equal(byte(7), cpu.Register[2])
	assert.Equal(byte(9), cpu.Register[3])
	assert.Equal(byte(STACK_TOP), cpu.Sp())
}

func TestCpuJump(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name  string
		op    Opcode
		flags byte
		pc    byte
	}){
		{"jmp", OP_JMP, 0, 0x40},
		{"jmp_e", OP_JMP, FLAG_E, 0x40},
		{"jeq_taken", OP_JEQ, FLAG_E, 0x40},
		{"jeq_clear", OP_JEQ, 0, 0x12},
		{"jeq_less", OP_JEQ, FLAG_L, 0x12},
		{"jne_taken", OP_JNE, FLAG_G, 0x40},
		{"jne_clear", OP_JNE, 0, 0x40},
		{"jne_equal", OP_JNE, FLAG_E, 0x12},
	}

	for _, entry := range table {
		cpu, _, _ := newTestCpu()
		cpu.Pc = 0x10
		cpu.Load(0x10, byte(entry.op))
		cpu.Load(0x11, 4)
		cpu.Register[4] = 0x40
		cpu.Flags = entry.flags

		err := cpu.Tick()
		assert.NoError(err, entry.name)
		assert.Equal(entry.pc, cpu.Pc, entry.name)
		assert.Equal(entry.flags, cpu.Flags, entry.name)
	}
}

func TestCpuOpcodeInvalid(t *testing.T) {
	assert := assert.New(t)

	cpu, _, out := newTestCpu(
		0x99, 0x00, 0x08, // LDI R0,8
		0xff, 0x00, // ???
		0x43, 0x00, // PRN R0
		0x01, // HLT
	)

	err := cpu.Run()
	assert.ErrorIs(err, ErrOpcodeInvalid)
	assert.ErrorIs(err, ErrOpcode{})

	var eo ErrOpcode
	assert.True(errors.As(err, &eo))
	assert.Equal(byte(3), eo.Addr)
	assert.Equal(Opcode(0xff), eo.Opcode)
	assert.Contains(eo.Error(), "0x03")
	assert.Contains(eo.Error(), "0b11111111")

	assert.True(cpu.Halted())
	assert.Equal(byte(3), cpu.Pc)
	assert.Equal(1, cpu.Ticks)
	assert.Equal("", out.String())

	assert.ErrorIs(cpu.Tick(), ErrHalted)
	assert.Equal(byte(3), cpu.Pc)
}

func TestCpuRegisterInvalid(t *testing.T) {
	assert := assert.New(t)

	cpu, _, out := newTestCpu(
		0x99, 0x00, 0xc8, // LDI R0,200
		0x43, 0x08, // PRN R8
		0x01, // HLT
	)

	err := cpu.Run()
	assert.ErrorIs(err, ErrRegisterInvalid)
	assert.ErrorIs(err, ErrOpcode{})
	assert.Equal(byte(200), cpu.Register[0])
	assert.Equal(byte(3), cpu.Pc)
	assert.True(cpu.Halted())
	assert.Equal("", out.String())
}

func TestCpuOutputError(t *testing.T) {
	assert := assert.New(t)

	cpu, _, _ := newTestCpu(0x43, 0x00, 0x01)
	cpu.Output = failPrinter{}

	err := cpu.Run()
	assert.ErrorIs(err, ErrOutput)
	assert.True(cpu.Halted())
	assert.Equal(byte(0), cpu.Pc)
}

func TestCpuNoOutput(t *testing.T) {
	assert := assert.New(t)

	cpu, _, _ := newTestCpu(0x43, 0x00, 0x01)
	cpu.Output = nil

	assert.NoError(cpu.Run())
	assert.Equal(byte(3), cpu.Pc)
}

func TestCpuFetch(t *testing.T) {
	assert := assert.New(t)

	cpu, ram, _ := newTestCpu(0x01, 0x22)
	ram.Data[0xff] = 0x99
	cpu.Pc = 0xff

	op, a, b := cpu.Fetch()
	assert.Equal(OP_LDI, op)
	assert.Equal(byte(0x01), a)
	assert.Equal(byte(0x22), b)
	assert.Equal(3, ram.Reads)

	// LDI at the top of memory wraps the PC.
	assert.NoError(cpu.Tick())
	assert.Equal(byte(0x22), cpu.Register[1])
	assert.Equal(byte(2), cpu.Pc)
}

func TestCpuDefines(t *testing.T) {
	assert := assert.New(t)

	cpu, _, _ := newTestCpu()

	defines := map[string]string{}
	for key, value := range cpu.Defines() {
		defines[key] = value
	}

	assert.Equal("0xf4", defines["STACK_TOP"])
	assert.Equal("8", defines["REGISTER_COUNT"])
	assert.Equal("0x1", defines["FLAG_E"])
}
