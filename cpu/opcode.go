package cpu

import (
	"fmt"
)

// Opcode is the instruction byte fetched at the program counter.
//
// The two high bits encode the count of operand bytes that follow.
// Bit 5 marks the two-operand ALU instructions, whose low five bits
// select the ALU operation.
type Opcode byte

const (
	OP_LDI  = Opcode(0b10011001) // LDI
	OP_PRN  = Opcode(0b01000011) // PRN
	OP_HLT  = Opcode(0b00000001) // HLT
	OP_MUL  = Opcode(0b10101010) // MUL
	OP_ADD  = Opcode(0b10101000) // ADD
	OP_CMP  = Opcode(0b10100000) // CMP
	OP_JMP  = Opcode(0b01010000) // JMP
	OP_JEQ  = Opcode(0b01010001) // JEQ
	OP_JNE  = Opcode(0b01010010) // JNE
	OP_PUSH = Opcode(0b01001101) // PUSH
	OP_POP  = Opcode(0b01001100) // POP
	OP_CALL = Opcode(0b01001000) // CALL
	OP_RET  = Opcode(0b00001001) // RET

	OP_ALU_MASK  = Opcode(0b11100000) // Mask of the ALU class bits.
	OP_ALU_CLASS = Opcode(0b10100000) // Two operands, ALU bit set.
)

var opcodeName = map[Opcode]string{
	OP_LDI:  "LDI",
	OP_PRN:  "PRN",
	OP_HLT:  "HLT",
	OP_MUL:  "MUL",
	OP_ADD:  "ADD",
	OP_CMP:  "CMP",
	OP_JMP:  "JMP",
	OP_JEQ:  "JEQ",
	OP_JNE:  "JNE",
	OP_PUSH: "PUSH",
	OP_POP:  "POP",
	OP_CALL: "CALL",
	OP_RET:  "RET",
}

// mnemonicMap maps assembler mnemonics to opcodes.
var mnemonicMap = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeName))
	for op, name := range opcodeName {
		m[name] = op
	}
	return m
}()

// String returns the mnemonic, or the raw bits of an unknown opcode.
func (op Opcode) String() string {
	name, ok := opcodeName[op]
	if ok {
		return name
	}

	return fmt.Sprintf("0b%08b", byte(op))
}

// Operands returns the number of operand bytes following the opcode.
func (op Opcode) Operands() int {
	return int(op >> 6)
}

// Size returns the instruction length in bytes, including the opcode.
func (op Opcode) Size() byte {
	return 1 + byte(op>>6)
}

// IsAlu returns true if the opcode is dispatched to the ALU.
func (op Opcode) IsAlu() bool {
	return op&OP_ALU_MASK == OP_ALU_CLASS
}

// AluOp is an ALU operation selector.
type AluOp byte

const (
	ALU_OP_CMP = AluOp(0b00000) // CMP
	ALU_OP_ADD = AluOp(0b01000) // ADD
	ALU_OP_MUL = AluOp(0b01010) // MUL
)

func (op AluOp) String() string {
	return (OP_ALU_CLASS | Opcode(op)).String()
}

// JumpCond is the flag condition tested by a jump.
type JumpCond byte

const (
	JUMP_ALWAYS    = JumpCond(0b00) // JMP
	JUMP_EQUAL     = JumpCond(0b01) // JEQ
	JUMP_NOT_EQUAL = JumpCond(0b10) // JNE
)

// Operand is the kind of an operand byte.
type Operand int

const (
	OPERAND_NONE      = Operand(0) // none
	OPERAND_REGISTER  = Operand(1) // register index
	OPERAND_IMMEDIATE = Operand(2) // immediate value
)

// Instruction is a decoded instruction with its operands.
type Instruction interface {
	// Opcode returns the instruction byte this was decoded from.
	Opcode() Opcode
	String() string
}

// registersOf returns the register operands of an instruction.
func registersOf(ins Instruction) []byte {
	switch in := ins.(type) {
	case Ldi:
		return []byte{in.Reg}
	case Prn:
		return []byte{in.Reg}
	case Alu:
		return []byte{in.A, in.B}
	case Jump:
		return []byte{in.Reg}
	case Push:
		return []byte{in.Reg}
	case Pop:
		return []byte{in.Reg}
	case Call:
		return []byte{in.Reg}
	}
	return nil
}

// checkRegisters fails with ErrRegisterInvalid if any register operand
// is outside R0-R7.
func checkRegisters(ins Instruction) (err error) {
	for _, reg := range registersOf(ins) {
		if reg >= REGISTER_COUNT {
			return fmt.Errorf("%w: R%d", ErrRegisterInvalid, reg)
		}
	}
	return
}

// Ldi loads an immediate value into a register.
type Ldi struct {
	Reg   byte
	Value byte
}

// Prn prints a register to the output.
type Prn struct {
	Reg byte
}

// Hlt halts the machine.
type Hlt struct{}

// Alu is a two-register ALU operation.
type Alu struct {
	Op AluOp
	A  byte
	B  byte
}

// Jump sets the PC to the address in a register when Cond holds.
type Jump struct {
	Cond JumpCond
	Reg  byte
}

// Push pushes a register onto the stack.
type Push struct {
	Reg byte
}

// Pop pops the stack into a register.
type Pop struct {
	Reg byte
}

// Call pushes the return address and jumps to the address in a register.
type Call struct {
	Reg byte
}

// Ret resumes at the return address on top of the stack.
type Ret struct{}

func (Ldi) Opcode() Opcode { return OP_LDI }
func (Prn) Opcode() Opcode { return OP_PRN }
func (Hlt) Opcode() Opcode { return OP_HLT }
func (in Alu) Opcode() Opcode { return OP_ALU_CLASS | Opcode(in.Op) }
func (in Jump) Opcode() Opcode { return OP_JMP | Opcode(in.Cond) }
func (Push) Opcode() Opcode { return OP_PUSH }
func (Pop) Opcode() Opcode { return OP_POP }
func (Call) Opcode() Opcode { return OP_CALL }
func (Ret) Opcode() Opcode { return OP_RET }

func (in Ldi) String() string { return fmt.Sprintf("LDI R%d,%d", in.Reg, in.Value) }
func (in Prn) String() string { return fmt.Sprintf("PRN R%d", in.Reg) }
func (Hlt) String() string { return "HLT" }
func (in Alu) String() string { return fmt.Sprintf("%v R%d,R%d", in.Op, in.A, in.B) }
func (in Jump) String() string { return fmt.Sprintf("%v R%d", in.Opcode(), in.Reg) }
func (in Push) String() string { return fmt.Sprintf("PUSH R%d", in.Reg) }
func (in Pop) String() string { return fmt.Sprintf("POP R%d", in.Reg) }
func (in Call) String() string { return fmt.Sprintf("CALL R%d", in.Reg) }
func (Ret) String() string { return "RET" }

// decoder describes the operands of an opcode and builds its Instruction.
type decoder struct {
	Args [2]Operand
	Make func(a, b byte) Instruction
}

var (
	argsNone = [2]Operand{OPERAND_NONE, OPERAND_NONE}
	argsReg  = [2]Operand{OPERAND_REGISTER, OPERAND_NONE}
	argsRegs = [2]Operand{OPERAND_REGISTER, OPERAND_REGISTER}
	argsImm  = [2]Operand{OPERAND_REGISTER, OPERAND_IMMEDIATE}
)

func aluDecoder(op AluOp) decoder {
	return decoder{argsRegs, func(a, b byte) Instruction { return Alu{Op: op, A: a, B: b} }}
}

func jumpDecoder(cond JumpCond) decoder {
	return decoder{argsReg, func(a, _ byte) Instruction { return Jump{Cond: cond, Reg: a} }}
}

var decodeTable = map[Opcode]decoder{
	OP_LDI:  {argsImm, func(a, b byte) Instruction { return Ldi{Reg: a, Value: b} }},
	OP_PRN:  {argsReg, func(a, _ byte) Instruction { return Prn{Reg: a} }},
	OP_HLT:  {argsNone, func(_, _ byte) Instruction { return Hlt{} }},
	OP_MUL:  aluDecoder(ALU_OP_MUL),
	OP_ADD:  aluDecoder(ALU_OP_ADD),
	OP_CMP:  aluDecoder(ALU_OP_CMP),
	OP_JMP:  jumpDecoder(JUMP_ALWAYS),
	OP_JEQ:  jumpDecoder(JUMP_EQUAL),
	OP_JNE:  jumpDecoder(JUMP_NOT_EQUAL),
	OP_PUSH: {argsReg, func(a, _ byte) Instruction { return Push{Reg: a} }},
	OP_POP:  {argsReg, func(a, _ byte) Instruction { return Pop{Reg: a} }},
	OP_CALL: {argsReg, func(a, _ byte) Instruction { return Call{Reg: a} }},
	OP_RET:  {argsNone, func(_, _ byte) Instruction { return Ret{} }},
}

// OperandsOf returns the operand kinds of a known opcode.
func OperandsOf(op Opcode) (args [2]Operand, ok bool) {
	dec, ok := decodeTable[op]
	if ok {
		args = dec.Args
	}
	return
}

// Decode decodes an opcode and its two following bytes into an Instruction.
//
// Any opcode missing from the opcode table, including unassigned bytes
// in the ALU class, is ErrOpcodeInvalid. Register operands must be R0-R7.
func Decode(op Opcode, a, b byte) (ins Instruction, err error) {
	dec, ok := decodeTable[op]
	if !ok {
		err = ErrOpcodeInvalid
		return
	}

	ins = dec.Make(a, b)

	err = checkRegisters(ins)
	if err != nil {
		ins = nil
	}

	return
}
