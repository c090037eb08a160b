package solver

import (
	"errors"
	"strings"

	"github.com/ezrec/chronal/cpu"
	"github.com/ezrec/chronal/translate"
)

var f = translate.From

var (
	ErrOpcodeId          = errors.New(f("opcode id out of range"))
	ErrSampleSize        = errors.New(f("sample register files differ in size"))
	ErrUnresolvedMapping = errors.New(f("opcode mapping unresolved"))
)

// ErrSample locates a failure within a sample set.
type ErrSample struct {
	Index int
	Err   error
}

func (err *ErrSample) Error() string {
	return f("sample %d: %v", err.Index, err.Err)
}

func (err *ErrSample) Unwrap() error {
	return err.Err
}

// ErrUnresolved carries the solver state when no bijection could be found.
type ErrUnresolved struct {
	Candidates [cpu.OPCODE_COUNT]cpu.OpcodeSet // Remaining candidates, by id.
	Resolved   map[int]cpu.Opcode              // Ids fixed before progress stopped.
}

func (err *ErrUnresolved) Error() string {
	var ids []string
	for id, set := range err.Candidates {
		if _, ok := err.Resolved[id]; ok {
			continue
		}
		ids = append(ids, f("%d:%v", id, set))
	}
	return f("opcode mapping unresolved: %v", strings.Join(ids, " "))
}

func (err *ErrUnresolved) Is(target error) bool {
	return target == ErrUnresolvedMapping
}
