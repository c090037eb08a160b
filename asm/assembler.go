// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package asm parses register machine programs and sample files.
package asm

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/chronal/cpu"
	"github.com/ezrec/chronal/emulator"
	"github.com/ezrec/chronal/internal"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = maps.Collect(internal.IterSeq2Concat(
	maps.All(map[string]string{"LINENO": "0"}),
	cpu.Defines(),
	emulator.Defines(),
))

var (
	reParen = regexp.MustCompile(`\$\([^\$]*\)`)
	reLabel = regexp.MustCompile(`^[A-Za-z_@.][A-Za-z0-9_@.]*$`)
)

// link is an operand waiting for a label definition.
type link struct {
	index   int    // Instruction index.
	operand int    // 0 = A, 1 = B, 2 = C
	label   string // Label name.
	lineNo  int    // Source line.
	line    string // Source text.
}

// Assembler is a single pass macro assembler for the register machine.
//
// Each instruction is a mnemonic followed by three operands. Operands may
// be numbers, equates, labels (the index of the labelled instruction) or
// $(...) expressions. A '#ip N' line binds the instruction pointer to
// register N.
type Assembler struct {
	Verbose bool            // If set, verbosely logs the assembler actions.
	Log     *zerolog.Logger // Logger for verbose output; the global logger if nil.

	Instructions []cpu.Instruction // List of generated instructions.
	IpRegister   int               // Register bound by '#ip'.
	IpBound      bool              // Set if '#ip' was seen.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of labels to instruction indexes.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	links     []link
	recording *Macro // Macro being defined.
}

// Predefine defines a new equate or redefines an existing equate, applied
// at the start of every Parse.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

func (asm *Assembler) logger() *zerolog.Logger {
	if asm.Log != nil {
		return asm.Log
	}
	return &log.Logger
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value cpu.Word, err error) {
	invert := false
	if len(word) > 1 && word[0] == '~' {
		invert = true
		word = word[1:]
	}

	value, err = strconv.ParseUint(word, 0, 64)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	if invert {
		value = ^value
	}

	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value cpu.Word, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var word cpu.Word
		word, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates.
			err = nil
			continue
		}
		pred[key] = starlark.MakeUint64(word)
	}
	for key, index := range asm.Label {
		pred[key] = starlark.MakeInt(index)
	}

	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrParseExpression(expr), err)
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Uint64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

// parseLine parses a single line into words, handling expressions,
// equates and labels.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do $() evaluations
	line = reParen.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#x", value)
	})
	if err != nil {
		return
	}

	words = strings.Fields(line)

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		value, ok := asm.Equate[words[2]]
		if !ok {
			value = words[2]
		}
		asm.Equate[words[1]] = value
		words = words[:0]
		return
	}

	for n, word := range words {
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for len(words) > 0 && strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		if !reLabel.MatchString(label) {
			err = ErrLabelSyntax
			return
		}
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		asm.Label[label] = len(asm.Instructions)
		words = words[1:]
	}

	return
}

// assemble parses one line of source, expanding it if it invokes a macro.
func (asm *Assembler) assemble(line string, lineno int) (err error) {
	words, err := asm.parseLine(line, lineno)
	if err != nil || len(words) == 0 {
		return
	}

	macro, ok := asm.Macro[words[0]]
	if ok {
		err = asm.expand(words[0], macro, words[1:])
		return
	}

	err = asm.parseWords(words, lineno, line)
	return
}

// expand assembles the body of a macro with its arguments bound as
// equates. A '@' in the body is replaced by a prefix unique to the
// expanded line, for local labels.
func (asm *Assembler) expand(name string, macro *Macro, args []string) (err error) {
	if len(args) != len(macro.Args) {
		err = ErrMacroSyntax
		return
	}

	saved := maps.Clone(asm.Equate)
	defer func() { asm.Equate = saved }()
	for n, arg := range macro.Args {
		asm.Equate[arg] = args[n]
	}

	for n, body := range macro.Lines {
		lineno := macro.LineNo + n
		body = strings.ReplaceAll(body, "@", fmt.Sprintf("%v_%v_", name, lineno))
		err = asm.assemble(body, lineno)
		if err != nil {
			err = &ErrMacro{Macro: name, Line: lineno, Err: err}
			return
		}
	}

	return
}

// record handles '.macro NAME arg...' and '.endm', and collects the
// lines in between. It returns true if the line was consumed.
func (asm *Assembler) record(line string, lineno int) (consumed bool, err error) {
	words := strings.Fields(line)
	keyword := ""
	if len(words) > 0 {
		keyword = words[0]
	}

	consumed = true
	switch {
	case keyword == ".macro":
		switch {
		case asm.recording != nil:
			err = ErrMacroNesting
		case len(words) < 2:
			err = ErrMacroSyntax
		case asm.Macro[words[1]] != nil:
			err = ErrMacroDuplicate
		default:
			asm.recording = &Macro{LineNo: lineno + 1, Args: words[2:]}
			asm.Macro[words[1]] = asm.recording
		}
	case keyword == ".endm":
		if asm.recording == nil {
			err = ErrMacroLonelyEndm
		}
		asm.recording = nil
	case asm.recording != nil:
		asm.recording.Lines = append(asm.recording.Lines, line)
	default:
		consumed = false
	}

	return
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *cpu.Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
			prog = nil
		}
	}()

	asm.Instructions = asm.Instructions[:0]
	asm.IpRegister = 0
	asm.IpBound = false
	asm.links = asm.links[:0]
	asm.recording = nil
	asm.Label = make(map[string]int)
	asm.Macro = make(map[string](*Macro))
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			asm.logger().Debug().Int("line", lineno).Str("text", text).Msg("asm")
		}

		line, _, _ = strings.Cut(text, ";")
		line = strings.TrimSpace(line)

		var consumed bool
		consumed, err = asm.record(line, lineno)
		if err != nil {
			return
		}
		if consumed {
			continue
		}

		err = asm.assemble(line, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if asm.recording != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of labels.
	for _, ln := range asm.links {
		index, ok := asm.Label[ln.label]
		if !ok {
			lineno, line = ln.lineNo, ln.line
			err = ErrLabelMissing(ln.label)
			return
		}
		ins := &asm.Instructions[ln.index]
		operands := [](*cpu.Word){&ins.A, &ins.B, &ins.C}
		*operands[ln.operand] = cpu.Word(index)
	}

	prog = &cpu.Program{
		Instructions: slices.Clone(asm.Instructions),
	}
	if asm.IpBound {
		prog.Bind(asm.IpRegister)
	}

	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int, line string) (err error) {
	// no-op
	if len(words) == 0 {
		return
	}

	// #ip REG
	if words[0] == "#ip" {
		if len(words) != 2 {
			err = ErrIpSyntax
			return
		}
		if asm.IpBound {
			err = ErrIpDuplicate
			return
		}
		var reg cpu.Word
		reg, err = asm.valueOf(words[1])
		if err != nil {
			return
		}
		if reg > math.MaxInt32 {
			err = ErrIpSyntax
			return
		}
		asm.IpRegister = int(reg)
		asm.IpBound = true
		return
	}

	op, err := cpu.ParseOpcode(words[0])
	if err != nil {
		return
	}

	args := words[1:]
	if len(args) < 3 {
		err = ErrOpcodeValueMissing
		return
	}
	if len(args) > 3 {
		err = ErrOpcodeExtraArgs
		return
	}

	ins := cpu.Instruction{Opcode: op}
	operands := [](*cpu.Word){&ins.A, &ins.B, &ins.C}
	for n, arg := range args {
		var value cpu.Word
		value, err = asm.valueOf(arg)
		if err != nil {
			if !reLabel.MatchString(arg) {
				return
			}
			err = nil
			asm.links = append(asm.links, link{
				index:   len(asm.Instructions),
				operand: n,
				label:   arg,
				lineNo:  lineno,
				line:    line,
			})
		}
		*operands[n] = value
	}

	asm.Instructions = append(asm.Instructions, ins)

	return
}
