package cpu

import (
	"fmt"
	"strings"
)

// Instruction is a decoded instruction: C = op(A, B).
type Instruction struct {
	Opcode Opcode
	A      Word
	B      Word
	C      Word // Destination register.
}

// RawInstruction is an instruction whose opcode is still a numeric id.
type RawInstruction struct {
	Id Word
	A  Word
	B  Word
	C  Word
}

func (raw RawInstruction) String() string {
	return fmt.Sprintf("%d %d %d %d", raw.Id, raw.A, raw.B, raw.C)
}

func (ins Instruction) String() string {
	return fmt.Sprintf("%v %d %d %d", ins.Opcode, ins.A, ins.B, ins.C)
}

// Check verifies the opcode, and that every register the instruction
// addresses exists in a register file of the given size.
func (ins Instruction) Check(size int) (err error) {
	if !ins.Opcode.Valid() {
		err = ErrMnemonic(ins.Opcode.String())
		return
	}

	a, b := ins.Opcode.Modes()
	for _, reg := range []struct {
		mode  Mode
		index Word
	}{{a, ins.A}, {b, ins.B}, {MODE_REG, ins.C}} {
		if reg.mode == MODE_REG && reg.index >= Word(size) {
			err = &ErrRegister{Index: reg.index, Size: size}
			return
		}
	}

	return
}

// Reads returns true if the instruction reads register reg.
func (ins Instruction) Reads(reg int) bool {
	if reg < 0 {
		return false
	}
	a, b := ins.Opcode.Modes()
	return (a == MODE_REG && ins.A == Word(reg)) ||
		(b == MODE_REG && ins.B == Word(reg))
}

// Writes returns true if the instruction writes register reg.
func (ins Instruction) Writes(reg int) bool {
	return reg >= 0 && ins.C == Word(reg)
}

// Touches returns true if the instruction reads or writes register reg.
func (ins Instruction) Touches(reg int) bool {
	return ins.Reads(reg) || ins.Writes(reg)
}

// Program is an ordered list of instructions, with an optional
// register that mirrors the instruction pointer.
type Program struct {
	Instructions []Instruction
	IpRegister   int  // Register bound to the instruction pointer.
	IpBound      bool // Set if IpRegister is in effect.
}

// Bind binds the instruction pointer to register reg.
func (prog *Program) Bind(reg int) {
	prog.IpRegister = reg
	prog.IpBound = true
}

// Len returns the number of instructions.
func (prog *Program) Len() int {
	return len(prog.Instructions)
}

// Check verifies every instruction, and the ip binding, against a
// register file of the given size.
func (prog *Program) Check(size int) (err error) {
	if prog.IpBound && (prog.IpRegister < 0 || prog.IpRegister >= size) {
		err = &ErrRegister{Index: Word(prog.IpRegister), Size: size}
		return
	}

	for ip, ins := range prog.Instructions {
		err = ins.Check(size)
		if err != nil {
			err = fmt.Errorf("%d: %v: %w", ip, ins, err)
			return
		}
	}

	return
}

// String returns the assembly listing of the program.
func (prog *Program) String() string {
	var sb strings.Builder
	if prog.IpBound {
		fmt.Fprintf(&sb, "#ip %d\n", prog.IpRegister)
	}
	for _, ins := range prog.Instructions {
		sb.WriteString(ins.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
