// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package emulator runs programs on the register machine to completion,
// or until they touch a watched register.
package emulator

import (
	"fmt"
	"iter"
	"maps"

	"github.com/ezrec/chronal/cpu"
)

const (
	WATCH_REGISTER = 0 // Conventional watched register.
)

var _emulator_defines = map[string]string{
	"WATCH_REGISTER": fmt.Sprintf("%d", WATCH_REGISTER),
}

// Defines returns an iterator over the emulator defines.
func Defines() iter.Seq2[string, string] {
	return maps.All(_emulator_defines)
}

// Emulator state. Machine + program.
type Emulator struct {
	*cpu.Machine              // Reference to the machine simulation.
	Program      *cpu.Program // Reference to the running program.

	StepLimit int // If positive, maximum instructions per run.
}

// NewEmulator creates an emulator for prog with a register file of size registers.
func NewEmulator(prog *cpu.Program, size int) (emu *Emulator, err error) {
	err = prog.Check(size)
	if err != nil {
		return
	}

	m, err := cpu.NewMachine(size)
	if err != nil {
		return
	}

	if prog.IpBound {
		err = m.BindIp(prog.IpRegister)
		if err != nil {
			return
		}
	}

	emu = &Emulator{
		Machine: m,
		Program: prog,
	}

	return
}

// Reset restarts the program with zeroed registers.
func (emu *Emulator) Reset() {
	emu.Machine.Reset()
}

// Done returns true when the instruction pointer is past the program.
func (emu *Emulator) Done() bool {
	return emu.Machine.Ip >= cpu.Word(emu.Program.Len())
}

// Code returns the instruction at the instruction pointer.
func (emu *Emulator) Code() (ins cpu.Instruction, ok bool) {
	if emu.Done() {
		return
	}
	return emu.Program.Instructions[emu.Machine.Ip], true
}

// Tick performs a single step of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	ins, ok := emu.Code()
	if !ok {
		done = true
		return
	}

	if emu.StepLimit > 0 && emu.Machine.Ticks >= emu.StepLimit {
		err = &ErrRuntime{Ip: emu.Machine.Ip, Err: ErrStepLimit}
		return
	}

	ip := emu.Machine.Ip
	err = emu.Machine.Execute(ins)
	if err != nil {
		err = &ErrRuntime{Ip: ip, Err: err}
		return
	}

	done = emu.Done()
	return
}

// Run executes until the instruction pointer leaves the program, and
// returns the final register file.
func (emu *Emulator) Run() (reg []cpu.Word, err error) {
	for done := emu.Done(); !done; {
		done, err = emu.Tick()
		if err != nil {
			return
		}
	}

	reg = emu.Machine.Snapshot()
	return
}

// RunUntilTouch executes until the next instruction would read or write
// register reg, leaving that instruction unexecuted. If the program ends
// first, touched is false.
func (emu *Emulator) RunUntilTouch(reg int) (touched bool, err error) {
	for {
		ins, ok := emu.Code()
		if !ok {
			return
		}
		if ins.Touches(reg) {
			touched = true
			return
		}
		_, err = emu.Tick()
		if err != nil {
			return
		}
	}
}
