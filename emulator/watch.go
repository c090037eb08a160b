package emulator

import (
	"math"

	"github.com/ezrec/chronal/cpu"
)

// Watch configures the watch-halt protocol.
//
// The protocol suits programs that busy-wait comparing a generated value
// against the watched register: execution stops just before the watched
// register is touched, the Signal register is read, then the comparison
// is forced to fail by zeroing Miss and skipping Skip instructions.
// For programs of any other shape it may never terminate.
type Watch struct {
	Register int      // Watched register.
	Signal   int      // Register holding the generated value at a halt.
	Miss     int      // Register cleared to fail the comparison on resume.
	Skip     cpu.Word // Instructions skipped on resume.
}

// DefaultWatch watches register 0 and skips the touching instruction.
// Signal and Miss are program specific.
func DefaultWatch() Watch {
	return Watch{
		Register: WATCH_REGISTER,
		Skip:     1,
	}
}

// Check verifies the watch registers exist in a file of size registers.
func (w Watch) Check(size int) (err error) {
	for _, reg := range []int{w.Register, w.Signal, w.Miss} {
		if reg < 0 || reg >= size {
			err = &cpu.ErrRegister{Index: cpu.Word(reg), Size: size}
			return
		}
	}
	return
}

// SignalSource yields successive generated values.
type SignalSource interface {
	Signal() (value cpu.Word, err error)
}

// Watcher drives an emulator through the watch-halt protocol.
type Watcher struct {
	Emulator *Emulator
	Watch    Watch

	halted bool
}

var _ SignalSource = (*Watcher)(nil)

// NewWatcher creates a watcher for emu.
func NewWatcher(emu *Emulator, w Watch) (wt *Watcher, err error) {
	err = w.Check(len(emu.Machine.Register))
	if err != nil {
		return
	}

	wt = &Watcher{
		Emulator: emu,
		Watch:    w,
	}
	return
}

// Resume applies the resume action after a watch-halt. The instruction
// pointer saturates rather than wrapping.
func (wt *Watcher) Resume() {
	m := wt.Emulator.Machine
	m.Register[wt.Watch.Miss] = 0
	if m.Ip > math.MaxUint64-wt.Watch.Skip {
		m.Ip = math.MaxUint64
	} else {
		m.Ip += wt.Watch.Skip
	}
	wt.halted = false
}

// Signal resumes from the previous halt, if any, runs to the next
// watch-halt and returns the signal register.
func (wt *Watcher) Signal() (value cpu.Word, err error) {
	if wt.halted {
		wt.Resume()
	}

	touched, err := wt.Emulator.RunUntilTouch(wt.Watch.Register)
	if err != nil {
		return
	}
	if !touched {
		err = &ErrRuntime{Ip: wt.Emulator.Machine.Ip, Err: ErrProgramExit}
		return
	}

	wt.halted = true
	value = wt.Emulator.Machine.Register[wt.Watch.Signal]
	return
}

// Cycle summarises a signal sequence up to its first repeated value.
type Cycle struct {
	First  cpu.Word // First value observed.
	Last   cpu.Word // Last new value before the first repeat.
	Repeat cpu.Word // Value that repeated.
	Count  int      // Distinct values observed.
}

// FindCycle reads signals until a value repeats. If limit is positive, at
// most limit signals are read.
func FindCycle(src SignalSource, limit int) (cycle Cycle, err error) {
	seen := make(map[cpu.Word]struct{})

	for n := 0; limit <= 0 || n < limit; n++ {
		var value cpu.Word
		value, err = src.Signal()
		if err != nil {
			return
		}

		if _, ok := seen[value]; ok {
			cycle.Repeat = value
			cycle.Count = len(seen)
			return
		}

		if len(seen) == 0 {
			cycle.First = value
		}
		seen[value] = struct{}{}
		cycle.Last = value
	}

	cycle.Count = len(seen)
	err = ErrSignalLimit
	return
}
