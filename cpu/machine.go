package cpu

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/rs/zerolog"
)

// Machine is the simulation context of the register machine.
type Machine struct {
	Log *zerolog.Logger // If set, each executed instruction is traced at debug level.

	Ip       Word   // Current instruction pointer.
	Register []Word // Register file.
	Ticks    int    // Executed instruction counter.

	ipRegister int
	ipBound    bool
}

// NewMachine creates a machine with a register file of size registers.
func NewMachine(size int) (m *Machine, err error) {
	if size < 1 {
		err = ErrRegisterSize
		return
	}

	m = &Machine{
		Register: make([]Word, size),
	}

	return
}

// BindIp binds the instruction pointer to register reg.
func (m *Machine) BindIp(reg int) (err error) {
	if reg < 0 || reg >= len(m.Register) {
		err = &ErrRegister{Index: Word(reg), Size: len(m.Register)}
		return
	}

	m.ipRegister = reg
	m.ipBound = true
	return
}

// UnbindIp removes the ip-register binding.
func (m *Machine) UnbindIp() {
	m.ipBound = false
}

// IpRegister returns the register bound to the instruction pointer, if any.
func (m *Machine) IpRegister() (reg int, ok bool) {
	return m.ipRegister, m.ipBound
}

// Reset zeroes the registers, instruction pointer and tick counter.
// The ip-register binding is kept.
func (m *Machine) Reset() {
	clear(m.Register)
	m.Ip = 0
	m.Ticks = 0
}

// Snapshot returns a copy of the register file.
func (m *Machine) Snapshot() []Word {
	return slices.Clone(m.Register)
}

// String returns the current machine state as a string.
func (m *Machine) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "   ip: %d\n", m.Ip)
	for n, val := range m.Register {
		bound := ""
		if m.ipBound && n == m.ipRegister {
			bound = " (ip)"
		}
		fmt.Fprintf(&sb, "   r%d: %d%s\n", n, val, bound)
	}
	return sb.String()
}

// Execute executes a single instruction at the current instruction pointer.
//
// With an ip binding, the bound register is loaded with the instruction
// pointer before evaluation, and the next instruction pointer is one past
// the bound register's value afterwards, so a program may jump by writing
// that register.
func (m *Machine) Execute(ins Instruction) (err error) {
	err = ins.Check(len(m.Register))
	if err != nil {
		return
	}

	if m.ipBound {
		m.Register[m.ipRegister] = m.Ip
	}

	value := Evaluate(ins.Opcode, m.Register, ins.A, ins.B)

	if m.Log != nil {
		m.Log.Debug().
			Uint64("ip", m.Ip).
			Stringer("ins", ins).
			Uints64("before", m.Register).
			Uint64("value", value).
			Msg("execute")
	}

	m.Register[ins.C] = value

	next := m.Ip
	if m.ipBound {
		next = m.Register[m.ipRegister]
	}
	// The largest word is never a valid address; keep it rather than
	// wrapping back to the start of the program.
	if next != math.MaxUint64 {
		next++
	}
	m.Ip = next
	m.Ticks++

	return
}
