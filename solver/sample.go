package solver

import (
	"fmt"
	"slices"

	"github.com/ezrec/chronal/cpu"
)

// Sample is an observed execution of one raw instruction.
type Sample struct {
	Before []cpu.Word
	Raw    cpu.RawInstruction
	After  []cpu.Word
}

func (s Sample) String() string {
	return fmt.Sprintf("%v %v %v", s.Before, s.Raw, s.After)
}

// Check validates the shape of the sample: matching register file sizes,
// an opcode id in range, and a destination inside the register file.
func (s Sample) Check() (err error) {
	if len(s.Before) == 0 || len(s.Before) != len(s.After) {
		err = ErrSampleSize
		return
	}

	if s.Raw.Id >= cpu.OPCODE_COUNT {
		err = ErrOpcodeId
		return
	}

	if s.Raw.C >= cpu.Word(len(s.Before)) {
		err = &cpu.ErrRegister{Index: s.Raw.C, Size: len(s.Before)}
		return
	}

	return
}

// Candidates returns every opcode that, executed on Before, yields After.
// Opcodes that would address a register outside the file are not
// candidates.
func (s Sample) Candidates() (set cpu.OpcodeSet, err error) {
	err = s.Check()
	if err != nil {
		return
	}

	size := len(s.Before)
	for op := range cpu.Opcodes() {
		ins := cpu.Instruction{Opcode: op, A: s.Raw.A, B: s.Raw.B, C: s.Raw.C}
		if ins.Check(size) != nil {
			continue
		}
		if cpu.Evaluate(op, s.Before, ins.A, ins.B) != s.After[ins.C] {
			continue
		}
		// Every other register must be unchanged.
		if !slices.Equal(s.Before[:ins.C], s.After[:ins.C]) ||
			!slices.Equal(s.Before[ins.C+1:], s.After[ins.C+1:]) {
			continue
		}
		set = set.Add(op)
	}

	return
}

// Consistent returns the number of opcodes consistent with the sample.
func Consistent(s Sample) (count int, err error) {
	set, err := s.Candidates()
	if err != nil {
		return
	}
	count = set.Len()
	return
}

// CountAtLeast returns how many samples are consistent with at least n opcodes.
func CountAtLeast(samples []Sample, n int) (count int, err error) {
	for index, s := range samples {
		var c int
		c, err = Consistent(s)
		if err != nil {
			err = &ErrSample{Index: index, Err: err}
			return
		}
		if c >= n {
			count++
		}
	}
	return
}
