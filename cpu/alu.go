package cpu

// Add sets register a to the sum of registers a and b, modulo 256.
func (cpu *Cpu) Add(a, b byte) {
	cpu.Register[a] += cpu.Register[b]
}

// Mul sets register a to the product of registers a and b, modulo 256.
func (cpu *Cpu) Mul(a, b byte) {
	cpu.Register[a] *= cpu.Register[b]
}

// Cmp compares registers a and b as unsigned values, and sets exactly
// one of the E, L, or G flags.
func (cpu *Cpu) Cmp(a, b byte) {
	va := cpu.Register[a]
	vb := cpu.Register[b]

	switch {
	case va == vb:
		cpu.Flags = FLAG_E
	case va < vb:
		cpu.Flags = FLAG_L
	default:
		cpu.Flags = FLAG_G
	}
}

// doAlu performs the requested ALU operation on registers a and b.
// Register indices must already be validated.
func (cpu *Cpu) doAlu(op AluOp, a, b byte) (err error) {
	switch op {
	case ALU_OP_ADD:
		cpu.Add(a, b)
	case ALU_OP_MUL:
		cpu.Mul(a, b)
	case ALU_OP_CMP:
		cpu.Cmp(a, b)
	default:
		err = ErrOpcodeAlu
	}

	return
}
