package cpu

import (
	"fmt"
	"iter"
	"maps"
	"math/bits"
	"strings"
)

// Word is the machine word, used for registers, operands and addresses.
type Word = uint64

// Family is the operation performed by an opcode.
type Family int

//go:generate go tool stringer -linecomment -type=Family
const (
	FAMILY_ADD = Family(0) // add
	FAMILY_MUL = Family(1) // mul
	FAMILY_BAN = Family(2) // ban
	FAMILY_BOR = Family(3) // bor
	FAMILY_SET = Family(4) // set
	FAMILY_GT  = Family(5) // gt
	FAMILY_EQ  = Family(6) // eq
)

// Mode is how an operand is interpreted.
type Mode int

//go:generate go tool stringer -linecomment -type=Mode
const (
	MODE_REG     = Mode(0) // r
	MODE_IMM     = Mode(1) // i
	MODE_IGNORED = Mode(2) // -
)

// Opcode is one of the sixteen semantic opcodes.
type Opcode int

const (
	OP_ADDR = Opcode(0)  // addr: a + b (registers)
	OP_ADDI = Opcode(1)  // addi: a + b (register, immediate)
	OP_MULR = Opcode(2)  // mulr
	OP_MULI = Opcode(3)  // muli
	OP_BANR = Opcode(4)  // banr
	OP_BANI = Opcode(5)  // bani
	OP_BORR = Opcode(6)  // borr
	OP_BORI = Opcode(7)  // bori
	OP_SETR = Opcode(8)  // setr: a (register), b ignored
	OP_SETI = Opcode(9)  // seti: a (immediate), b ignored
	OP_GTIR = Opcode(10) // gtir
	OP_GTRI = Opcode(11) // gtri
	OP_GTRR = Opcode(12) // gtrr
	OP_EQIR = Opcode(13) // eqir
	OP_EQRI = Opcode(14) // eqri
	OP_EQRR = Opcode(15) // eqrr
)

const OPCODE_COUNT = 16

type opcodeInfo struct {
	name   string
	family Family
	a, b   Mode
}

var opcodeTable = [OPCODE_COUNT]opcodeInfo{
	OP_ADDR: {"addr", FAMILY_ADD, MODE_REG, MODE_REG},
	OP_ADDI: {"addi", FAMILY_ADD, MODE_REG, MODE_IMM},
	OP_MULR: {"mulr", FAMILY_MUL, MODE_REG, MODE_REG},
	OP_MULI: {"muli", FAMILY_MUL, MODE_REG, MODE_IMM},
	OP_BANR: {"banr", FAMILY_BAN, MODE_REG, MODE_REG},
	OP_BANI: {"bani", FAMILY_BAN, MODE_REG, MODE_IMM},
	OP_BORR: {"borr", FAMILY_BOR, MODE_REG, MODE_REG},
	OP_BORI: {"bori", FAMILY_BOR, MODE_REG, MODE_IMM},
	OP_SETR: {"setr", FAMILY_SET, MODE_REG, MODE_IGNORED},
	OP_SETI: {"seti", FAMILY_SET, MODE_IMM, MODE_IGNORED},
	OP_GTIR: {"gtir", FAMILY_GT, MODE_IMM, MODE_REG},
	OP_GTRI: {"gtri", FAMILY_GT, MODE_REG, MODE_IMM},
	OP_GTRR: {"gtrr", FAMILY_GT, MODE_REG, MODE_REG},
	OP_EQIR: {"eqir", FAMILY_EQ, MODE_IMM, MODE_REG},
	OP_EQRI: {"eqri", FAMILY_EQ, MODE_REG, MODE_IMM},
	OP_EQRR: {"eqrr", FAMILY_EQ, MODE_REG, MODE_REG},
}

var mnemonicMap = func() map[string]Opcode {
	m := make(map[string]Opcode, OPCODE_COUNT)
	for op, info := range opcodeTable {
		m[info.name] = Opcode(op)
	}
	return m
}()

// Valid returns true if the opcode is one of the sixteen known opcodes.
func (op Opcode) Valid() bool {
	return op >= 0 && op < OPCODE_COUNT
}

// String returns the opcode mnemonic.
func (op Opcode) String() string {
	if !op.Valid() {
		return fmt.Sprintf("Opcode(%d)", int(op))
	}
	return opcodeTable[op].name
}

// Family returns the operation family of the opcode.
func (op Opcode) Family() Family {
	return opcodeTable[op].family
}

// Modes returns the addressing modes of the two input operands.
func (op Opcode) Modes() (a, b Mode) {
	info := opcodeTable[op]
	return info.a, info.b
}

// ParseOpcode looks up an opcode by its mnemonic.
func ParseOpcode(name string) (op Opcode, err error) {
	op, ok := mnemonicMap[strings.ToLower(name)]
	if !ok {
		err = ErrMnemonic(name)
	}
	return
}

// Opcodes iterates over all sixteen opcodes in numeric order.
func Opcodes() iter.Seq[Opcode] {
	return func(yield func(Opcode) bool) {
		for op := range Opcode(OPCODE_COUNT) {
			if !yield(op) {
				return
			}
		}
	}
}

// OpcodeSet is a set of opcodes.
type OpcodeSet uint16

// ALL_OPCODES contains every opcode.
const ALL_OPCODES = OpcodeSet(0xffff)

// Has returns true if op is in the set.
func (set OpcodeSet) Has(op Opcode) bool {
	return op.Valid() && set&(1<<op) != 0
}

// Add returns the set with op included.
func (set OpcodeSet) Add(op Opcode) OpcodeSet {
	return set | (1 << op)
}

// Remove returns the set with op excluded.
func (set OpcodeSet) Remove(op Opcode) OpcodeSet {
	return set &^ (1 << op)
}

// Intersect returns the opcodes in both sets.
func (set OpcodeSet) Intersect(other OpcodeSet) OpcodeSet {
	return set & other
}

// Len returns the number of opcodes in the set.
func (set OpcodeSet) Len() int {
	return bits.OnesCount16(uint16(set))
}

// Only returns the single member of a one element set.
func (set OpcodeSet) Only() (op Opcode, ok bool) {
	if set.Len() != 1 {
		return
	}
	return Opcode(bits.TrailingZeros16(uint16(set))), true
}

// All iterates over the members of the set in numeric order.
func (set OpcodeSet) All() iter.Seq[Opcode] {
	return func(yield func(Opcode) bool) {
		for op := range Opcodes() {
			if set.Has(op) && !yield(op) {
				return
			}
		}
	}
}

func (set OpcodeSet) String() string {
	var names []string
	for op := range set.All() {
		names = append(names, op.String())
	}
	return "{" + strings.Join(names, " ") + "}"
}

var _cpu_defines = map[string]string{
	"OPCODE_COUNT": fmt.Sprintf("%d", OPCODE_COUNT),
	"r0":           "0",
	"r1":           "1",
	"r2":           "2",
	"r3":           "3",
	"r4":           "4",
	"r5":           "5",
}

// Defines for the cpu, usable as assembler equates.
func Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}
