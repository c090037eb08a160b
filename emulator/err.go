package emulator

import (
	"errors"

	"github.com/ezrec/chronal/translate"
)

var f = translate.From

var (
	ErrStepLimit   = errors.New(f("step limit exceeded"))
	ErrProgramExit = errors.New(f("program exited while watched"))
	ErrSignalLimit = errors.New(f("signal limit exceeded"))
)

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	Ip  uint64
	Err error
}

func (err *ErrRuntime) Error() string {
	return f("ip %d %v", err.Ip, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
