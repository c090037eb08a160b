package cpu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInstruction_Touches(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		ins    Instruction
		reads  bool
		writes bool
	}){
		{Instruction{OP_EQRR, 4, 0, 2}, true, false},
		{Instruction{OP_EQRI, 0, 4, 2}, true, false},
		{Instruction{OP_EQIR, 0, 4, 2}, false, false},
		{Instruction{OP_SETI, 0, 0, 0}, false, true},
		{Instruction{OP_SETR, 1, 0, 3}, false, false},
		{Instruction{OP_ADDI, 3, 0, 3}, false, false},
		{Instruction{OP_ADDR, 0, 0, 0}, true, true},
	}

	for _, entry := range table {
		assert.Equal(entry.reads, entry.ins.Reads(0), entry.ins.String())
		assert.Equal(entry.writes, entry.ins.Writes(0), entry.ins.String())
		assert.Equal(entry.reads || entry.writes, entry.ins.Touches(0), entry.ins.String())
	}

	assert.False(Instruction{OP_ADDR, 0, 0, 0}.Touches(-1))
}

func TestInstruction_Check(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(Instruction{OP_GTIR, 100, 3, 3}.Check(4))

	err := Instruction{OP_GTIR, 0, 4, 3}.Check(4)
	assert.True(errors.Is(err, ErrRegisterRange))
	var reg *ErrRegister
	if assert.True(errors.As(err, &reg)) {
		assert.Equal(Word(4), reg.Index)
		assert.Equal(4, reg.Size)
	}
}

func TestProgram_String(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{
		Instructions: []Instruction{
			{OP_SETI, 5, 0, 1},
			{OP_ADDI, 0, 1, 0},
		},
	}
	assert.Equal("seti 5 0 1\naddi 0 1 0\n", prog.String())

	prog.Bind(0)
	assert.Equal("#ip 0\nseti 5 0 1\naddi 0 1 0\n", prog.String())
	assert.Equal(2, prog.Len())
	assert.Equal("9 1 2 3", RawInstruction{9, 1, 2, 3}.String())
}

func TestProgram_Check(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{
		Instructions: []Instruction{
			{OP_SETI, 5, 0, 1},
			{OP_ADDR, 0, 5, 0},
		},
	}

	assert.NoError(prog.Check(6))
	assert.True(errors.Is(prog.Check(4), ErrRegisterRange))

	prog.Bind(6)
	assert.True(errors.Is(prog.Check(6), ErrRegisterRange))
}
