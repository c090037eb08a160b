package asm

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/ezrec/chronal/cpu"
	"github.com/ezrec/chronal/solver"
)

var (
	reBefore = regexp.MustCompile(`^Before:\s*\[([^\]]*)\]$`)
	reAfter  = regexp.MustCompile(`^After:\s*\[([^\]]*)\]$`)
)

// parseRegisters parses a comma separated register file.
func parseRegisters(text string) (reg []cpu.Word, err error) {
	for _, word := range strings.Split(text, ",") {
		var value cpu.Word
		word = strings.TrimSpace(word)
		value, err = strconv.ParseUint(word, 10, 64)
		if err != nil {
			err = ErrParseNumber(word)
			return
		}
		reg = append(reg, value)
	}
	return
}

// parseRaw parses a numeric 'id a b c' instruction.
func parseRaw(line string) (raw cpu.RawInstruction, err error) {
	words := strings.Fields(line)
	if len(words) < 4 {
		err = ErrOpcodeValueMissing
		return
	}
	if len(words) > 4 {
		err = ErrOpcodeExtraArgs
		return
	}

	fields := [](*cpu.Word){&raw.Id, &raw.A, &raw.B, &raw.C}
	for n, word := range words {
		*fields[n], err = strconv.ParseUint(word, 10, 64)
		if err != nil {
			err = ErrParseNumber(word)
			return
		}
	}
	return
}

// ReadSamples reads a sample file: blocks of
//
//	Before: [3, 2, 1, 1]
//	9 2 1 2
//	After:  [3, 2, 2, 1]
//
// separated by blank lines, optionally followed by a program of numeric
// 'id a b c' instructions.
func ReadSamples(input io.Reader) (samples []solver.Sample, program []cpu.RawInstruction, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
			samples = nil
			program = nil
		}
	}()

	const (
		stateBefore = iota
		stateRaw
		stateAfter
		stateProgram
	)

	var sample solver.Sample
	state := stateBefore

	for scanner.Scan() {
		line = strings.TrimSpace(scanner.Text())
		lineno++

		if len(line) == 0 {
			if state == stateRaw || state == stateAfter {
				err = ErrSampleIncomplete
				return
			}
			continue
		}

		switch state {
		case stateBefore:
			match := reBefore.FindStringSubmatch(line)
			if match == nil {
				if reAfter.MatchString(line) {
					err = ErrSampleSyntax
					return
				}
				state = stateProgram
				break
			}
			sample = solver.Sample{}
			sample.Before, err = parseRegisters(match[1])
			if err != nil {
				return
			}
			state = stateRaw
			continue
		case stateRaw:
			sample.Raw, err = parseRaw(line)
			if err != nil {
				return
			}
			state = stateAfter
			continue
		case stateAfter:
			match := reAfter.FindStringSubmatch(line)
			if match == nil {
				err = ErrSampleSyntax
				return
			}
			sample.After, err = parseRegisters(match[1])
			if err != nil {
				return
			}
			err = sample.Check()
			if err != nil {
				return
			}
			samples = append(samples, sample)
			state = stateBefore
			continue
		}

		// Program section.
		if reBefore.MatchString(line) {
			err = ErrSampleSyntax
			return
		}
		var raw cpu.RawInstruction
		raw, err = parseRaw(line)
		if err != nil {
			return
		}
		program = append(program, raw)
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if state == stateRaw || state == stateAfter {
		err = ErrSampleIncomplete
		return
	}

	return
}
