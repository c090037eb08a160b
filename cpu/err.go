package cpu

import (
	"errors"

	"github.com/ezrec/chronal/translate"
)

var f = translate.From

var (
	// Machine errors
	ErrRegisterRange = errors.New(f("register out of range"))
	ErrRegisterSize  = errors.New(f("register file size invalid"))

	// Instruction decode errors
	ErrOpcodeInvalid = errors.New(f("opcode invalid"))
)

// ErrRegister reports an operand or destination outside the register file.
type ErrRegister struct {
	Index Word // Offending register index.
	Size  int  // Size of the register file.
}

func (err *ErrRegister) Error() string {
	return f("register %d out of range (size %d)", err.Index, err.Size)
}

func (err *ErrRegister) Is(target error) bool {
	return target == ErrRegisterRange
}

// ErrMnemonic is an unknown opcode mnemonic.
type ErrMnemonic string

func (err ErrMnemonic) Error() string {
	return f("'%v' is not an opcode", string(err))
}

func (err ErrMnemonic) Unwrap() error {
	return ErrOpcodeInvalid
}
