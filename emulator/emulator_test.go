package emulator

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ezrec/chronal/cpu"
)

// program builds a program from "mnemonic a b c" lines.
func program(t *testing.T, ipReg int, lines ...string) (prog *cpu.Program) {
	prog = &cpu.Program{}
	for _, line := range lines {
		var name string
		var ins cpu.Instruction
		_, err := fmt.Sscanf(line, "%s %d %d %d", &name, &ins.A, &ins.B, &ins.C)
		require.NoError(t, err, line)
		ins.Opcode, err = cpu.ParseOpcode(name)
		require.NoError(t, err, line)
		prog.Instructions = append(prog.Instructions, ins)
	}
	if ipReg >= 0 {
		prog.Bind(ipReg)
	}
	return
}

func registerLines(reg []cpu.Word) (lines []string) {
	for n, val := range reg {
		lines = append(lines, fmt.Sprintf("r%d: %d\n", n, val))
	}
	return
}

// requireEqualRegisters fails with a unified diff of the register files.
func requireEqualRegisters(t *testing.T, want, got []cpu.Word) {
	t.Helper()

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        registerLines(want),
		B:        registerLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  1,
	})
	require.NoError(t, err)
	if diff != "" {
		t.Fatalf("register mismatch:\n%s", diff)
	}
}

// generator emits 1, 2, 5, 10 then repeats 5 at each comparison with r0.
var generator = []string{
	"seti 0 0 4",
	"mulr 4 4 3",
	"addi 3 1 4",
	"bani 4 15 4",
	"eqrr 4 0 2",
	"addr 2 5 5",
	"seti 0 0 5",
}

func generatorWatch() Watch {
	w := DefaultWatch()
	w.Signal = 4
	w.Miss = 2
	return w
}

func TestEmulator_Empty(t *testing.T) {
	assert := assert.New(t)

	emu, err := NewEmulator(&cpu.Program{}, 4)
	require.NoError(t, err)

	emu.Machine.Register[2] = 7
	reg, err := emu.Run()
	assert.NoError(err)
	requireEqualRegisters(t, []cpu.Word{0, 0, 7, 0}, reg)
	assert.Equal(0, emu.Machine.Ticks)
}

func TestEmulator_IpBound(t *testing.T) {
	assert := assert.New(t)

	prog := program(t, 0,
		"seti 5 0 1",
		"seti 6 0 2",
		"addi 0 1 0",
		"addr 1 2 3",
		"setr 1 0 0",
		"seti 8 0 4",
		"seti 9 0 5",
	)

	emu, err := NewEmulator(prog, 6)
	require.NoError(t, err)

	reg, err := emu.Run()
	assert.NoError(err)
	requireEqualRegisters(t, []cpu.Word{6, 5, 6, 0, 0, 9}, reg)
	assert.Equal(5, emu.Machine.Ticks)

	// Reset keeps the binding.
	emu.Reset()
	reg, err = emu.Run()
	assert.NoError(err)
	requireEqualRegisters(t, []cpu.Word{6, 5, 6, 0, 0, 9}, reg)
}

func TestEmulator_Unbound(t *testing.T) {
	assert := assert.New(t)

	prog := program(t, -1,
		"seti 7 0 0",
		"muli 0 6 0",
		"seti 3 0 1",
		"addr 0 1 0",
	)

	emu, err := NewEmulator(prog, 4)
	require.NoError(t, err)

	reg, err := emu.Run()
	assert.NoError(err)
	requireEqualRegisters(t, []cpu.Word{45, 3, 0, 0}, reg)
}

func TestEmulator_Tick(t *testing.T) {
	assert := assert.New(t)

	prog := program(t, -1, "seti 1 0 0", "seti 2 0 1")
	emu, err := NewEmulator(prog, 2)
	require.NoError(t, err)

	ins, ok := emu.Code()
	assert.True(ok)
	assert.Equal("seti 1 0 0", ins.String())

	done, err := emu.Tick()
	assert.NoError(err)
	assert.False(done)

	done, err = emu.Tick()
	assert.NoError(err)
	assert.True(done)

	_, ok = emu.Code()
	assert.False(ok)

	done, err = emu.Tick()
	assert.NoError(err)
	assert.True(done)
	assert.Equal(2, emu.Machine.Ticks)
}

func TestEmulator_Check(t *testing.T) {
	assert := assert.New(t)

	_, err := NewEmulator(program(t, -1, "seti 0 0 6"), 6)
	assert.True(errors.Is(err, cpu.ErrRegisterRange))

	_, err = NewEmulator(program(t, 6, "seti 0 0 0"), 6)
	assert.True(errors.Is(err, cpu.ErrRegisterRange))

	_, err = NewEmulator(&cpu.Program{}, 0)
	assert.True(errors.Is(err, cpu.ErrRegisterSize))
}

func TestEmulator_StepLimit(t *testing.T) {
	assert := assert.New(t)

	// Jump to self forever.
	emu, err := NewEmulator(program(t, 0, "seti 0 0 0", "seti 0 0 0"), 1)
	require.NoError(t, err)
	emu.Machine.Ip = 1
	emu.StepLimit = 100

	_, err = emu.Run()
	assert.True(errors.Is(err, ErrStepLimit))
	var rerr *ErrRuntime
	if assert.True(errors.As(err, &rerr)) {
		assert.Equal(uint64(1), rerr.Ip)
	}
	assert.Equal(100, emu.Machine.Ticks)
}

func TestEmulator_Natural(t *testing.T) {
	assert := assert.New(t)

	emu, err := NewEmulator(program(t, 5, generator...), 6)
	require.NoError(t, err)

	emu.Machine.Register[0] = 10
	reg, err := emu.Run()
	assert.NoError(err)
	assert.Equal(cpu.Word(10), reg[4])
}

func TestEmulator_RunUntilTouch(t *testing.T) {
	assert := assert.New(t)

	emu, err := NewEmulator(program(t, 5, generator...), 6)
	require.NoError(t, err)

	touched, err := emu.RunUntilTouch(0)
	assert.NoError(err)
	assert.True(touched)
	assert.Equal(cpu.Word(4), emu.Machine.Ip)
	// The touching instruction has not run.
	requireEqualRegisters(t, []cpu.Word{0, 0, 0, 0, 1, 3}, emu.Machine.Snapshot())

	// A second call halts again without progress.
	touched, err = emu.RunUntilTouch(0)
	assert.NoError(err)
	assert.True(touched)
	assert.Equal(cpu.Word(4), emu.Machine.Ip)

	// Nothing touches r1; the program loops until the step limit.
	emu.StepLimit = 1000
	_, err = emu.RunUntilTouch(1)
	assert.True(errors.Is(err, ErrStepLimit))
}

func TestWatcher(t *testing.T) {
	assert := assert.New(t)

	emu, err := NewEmulator(program(t, 5, generator...), 6)
	require.NoError(t, err)

	wt, err := NewWatcher(emu, generatorWatch())
	require.NoError(t, err)

	var values []cpu.Word
	for range 6 {
		value, err := wt.Signal()
		require.NoError(t, err)
		values = append(values, value)
	}
	assert.Equal([]cpu.Word{1, 2, 5, 10, 5, 10}, values)
}

func TestWatcher_ProgramExit(t *testing.T) {
	assert := assert.New(t)

	emu, err := NewEmulator(program(t, -1, "seti 1 0 1", "addr 1 0 2", "seti 3 0 3"), 4)
	require.NoError(t, err)

	wt, err := NewWatcher(emu, Watch{Register: 0, Signal: 1, Miss: 2, Skip: 1})
	require.NoError(t, err)

	value, err := wt.Signal()
	assert.NoError(err)
	assert.Equal(cpu.Word(1), value)
	assert.Equal(cpu.Word(1), emu.Machine.Ip)

	_, err = wt.Signal()
	assert.True(errors.Is(err, ErrProgramExit))
	assert.Equal(cpu.Word(3), emu.Machine.Register[3])
}

func TestWatcher_SkipNoWrap(t *testing.T) {
	assert := assert.New(t)

	emu, err := NewEmulator(program(t, -1, "seti 1 0 1", "addr 1 0 2", "seti 3 0 3"), 4)
	require.NoError(t, err)

	wt, err := NewWatcher(emu, Watch{Register: 0, Signal: 1, Miss: 2, Skip: math.MaxUint64})
	require.NoError(t, err)

	_, err = wt.Signal()
	require.NoError(t, err)
	assert.Equal(cpu.Word(1), emu.Machine.Ip)

	// The skip runs off the end of the program instead of wrapping to 0.
	_, err = wt.Signal()
	assert.True(errors.Is(err, ErrProgramExit))
	assert.Equal(cpu.Word(math.MaxUint64), emu.Machine.Ip)
	assert.Equal(cpu.Word(0), emu.Machine.Register[3])
	assert.Equal(1, emu.Machine.Ticks)
}

func TestWatcher_Check(t *testing.T) {
	assert := assert.New(t)

	emu, err := NewEmulator(&cpu.Program{}, 4)
	require.NoError(t, err)

	for _, w := range []Watch{
		{Register: 4},
		{Signal: -1},
		{Miss: 9},
	} {
		_, err = NewWatcher(emu, w)
		assert.True(errors.Is(err, cpu.ErrRegisterRange), "%+v", w)
	}
}

func TestFindCycle(t *testing.T) {
	assert := assert.New(t)

	emu, err := NewEmulator(program(t, 5, generator...), 6)
	require.NoError(t, err)

	wt, err := NewWatcher(emu, generatorWatch())
	require.NoError(t, err)

	cycle, err := FindCycle(wt, 0)
	assert.NoError(err)
	assert.Equal(Cycle{First: 1, Last: 10, Repeat: 5, Count: 4}, cycle)

	// The first signal halts the program when loaded into r0.
	emu.Reset()
	emu.Machine.Register[0] = cycle.First
	_, err = emu.Run()
	assert.NoError(err)

	// The last new signal is the slowest halting value.
	emu.Reset()
	emu.Machine.Register[0] = cycle.Last
	reg, err := emu.Run()
	assert.NoError(err)
	assert.Equal(cycle.Last, reg[4])
}

type mockSource struct {
	mock.Mock
}

func (ms *mockSource) Signal() (cpu.Word, error) {
	args := ms.Called()
	return args.Get(0).(cpu.Word), args.Error(1)
}

func TestFindCycle_Sequences(t *testing.T) {
	table := [](struct {
		values []cpu.Word
		cycle  Cycle
	}){
		{[]cpu.Word{3, 1, 4, 1, 5, 9}, Cycle{First: 3, Last: 4, Repeat: 1, Count: 3}},
		{[]cpu.Word{3, 1, 4, 5, 9, 1}, Cycle{First: 3, Last: 9, Repeat: 1, Count: 5}},
		{[]cpu.Word{7, 7}, Cycle{First: 7, Last: 7, Repeat: 7, Count: 1}},
	}

	for _, entry := range table {
		assert := assert.New(t)

		// Reading stops at the first repeat.
		reads := entry.cycle.Count + 1
		src := &mockSource{}
		for _, value := range entry.values[:reads] {
			src.On("Signal").Return(value, nil).Once()
		}

		cycle, err := FindCycle(src, 0)
		assert.NoError(err)
		assert.Equal(entry.cycle, cycle, "%v", entry.values)
		src.AssertNumberOfCalls(t, "Signal", reads)
	}
}

func TestFindCycle_Errors(t *testing.T) {
	assert := assert.New(t)

	src := &mockSource{}
	src.On("Signal").Return(cpu.Word(1), nil).Once()
	src.On("Signal").Return(cpu.Word(2), nil).Once()
	src.On("Signal").Return(cpu.Word(3), nil).Once()

	cycle, err := FindCycle(src, 3)
	assert.True(errors.Is(err, ErrSignalLimit))
	assert.Equal(Cycle{First: 1, Last: 3, Count: 3}, cycle)
	src.AssertExpectations(t)

	src = &mockSource{}
	src.On("Signal").Return(cpu.Word(1), nil).Once()
	src.On("Signal").Return(cpu.Word(0), ErrProgramExit).Once()

	cycle, err = FindCycle(src, 0)
	assert.True(errors.Is(err, ErrProgramExit))
	assert.Equal(cpu.Word(1), cycle.First)
	src.AssertExpectations(t)
}

func TestDefines(t *testing.T) {
	assert := assert.New(t)

	defines := map[string]string{}
	for k, v := range Defines() {
		defines[k] = v
	}
	assert.Equal("0", defines["WATCH_REGISTER"])
	assert.Equal(Watch{Skip: 1}, DefaultWatch())
}
