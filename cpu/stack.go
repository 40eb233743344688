package cpu

const (
	SP        = 7    // Stack pointer register.
	STACK_TOP = 0xf4 // Initial stack pointer.
)

// Sp returns the current stack pointer.
func (cpu *Cpu) Sp() byte {
	return cpu.Register[SP]
}

// Push decrements SP, then stores value at the new top of stack.
func (cpu *Cpu) Push(value byte) {
	cpu.Register[SP]--
	cpu.Memory.Write(cpu.Register[SP], value)
}

// Peek returns the value on top of the stack.
func (cpu *Cpu) Peek() byte {
	return cpu.Memory.Read(cpu.Register[SP])
}

// pushRegister decrements SP, then stores the register. For R7 the
// stored value is the already decremented SP.
func (cpu *Cpu) pushRegister(reg byte) {
	cpu.Register[SP]--
	cpu.Memory.Write(cpu.Register[SP], cpu.Register[reg])
}

// popRegister loads the register from the top of stack, then increments
// SP. For R7 the increment applies to the loaded value.
func (cpu *Cpu) popRegister(reg byte) {
	cpu.Register[reg] = cpu.Peek()
	cpu.Register[SP]++
}
