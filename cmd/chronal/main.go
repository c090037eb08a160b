// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/tebeka/atexit"
	"golang.org/x/term"

	"github.com/ezrec/chronal/asm"
	"github.com/ezrec/chronal/cpu"
	"github.com/ezrec/chronal/emulator"
	"github.com/ezrec/chronal/solver"
	"github.com/ezrec/chronal/translate"
)

// options collects the command line configuration.
type options struct {
	samples string
	program string
	size    int
	r0      uint64
	count   int
	limit   int
	workers int
	watch   bool
	signals int
	verbose bool
	lang    string

	watcher emulator.Watch
}

func newLogger(verbose bool) zerolog.Logger {
	cw := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		NoColor:    !term.IsTerminal(int(os.Stderr.Fd())),
		TimeFormat: time.RFC3339,
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	return zerolog.New(cw).Level(level).With().Timestamp().Logger()
}

func open(path string) (inf *os.File) {
	if path == "-" {
		return os.Stdin
	}

	inf, err := os.Open(path)
	if err != nil {
		atexit.Fatalf("%v: %v", path, err)
	}
	atexit.Register(func() { inf.Close() })

	return
}

// runSamples solves the opcode mapping from a sample file, then runs the
// program that follows the samples.
func runSamples(opts *options, logger *zerolog.Logger) {
	samples, raws, err := asm.ReadSamples(open(opts.samples))
	if err != nil {
		atexit.Fatalf("%v: %v", opts.samples, err)
	}

	count, err := solver.CountAtLeast(samples, opts.count)
	if err != nil {
		atexit.Fatalf("%v: %v", opts.samples, err)
	}
	fmt.Println(translate.From("samples matching %d or more opcodes: %d", opts.count, count))

	sv := &solver.Solver{Workers: opts.workers}
	if opts.verbose {
		sv.Log = logger
	}

	mapping, err := sv.Solve(samples)
	if err != nil {
		atexit.Fatalf("%v: %v", opts.samples, err)
	}
	logger.Debug().Msg(mapping.String())

	if len(raws) == 0 {
		return
	}

	prog, err := mapping.Assemble(raws)
	if err != nil {
		atexit.Fatalf("%v: %v", opts.samples, err)
	}

	size := opts.size
	if len(samples) > 0 {
		size = len(samples[0].Before)
	}
	run(opts, logger, prog, size)
}

// runProgram assembles and runs a mnemonic program.
func runProgram(opts *options, logger *zerolog.Logger) {
	as := &asm.Assembler{Verbose: opts.verbose, Log: logger}
	prog, err := as.Parse(open(opts.program))
	if err != nil {
		atexit.Fatalf("%v: %v", opts.program, err)
	}

	run(opts, logger, prog, opts.size)
}

func run(opts *options, logger *zerolog.Logger, prog *cpu.Program, size int) {
	emu, err := emulator.NewEmulator(prog, size)
	if err != nil {
		atexit.Fatalf("%v", err)
	}
	emu.StepLimit = opts.limit
	if opts.verbose {
		emu.Machine.Log = logger
	}
	emu.Machine.Register[0] = opts.r0

	if opts.watch {
		var wt *emulator.Watcher
		wt, err = emulator.NewWatcher(emu, opts.watcher)
		if err != nil {
			atexit.Fatalf("%v", err)
		}

		var cycle emulator.Cycle
		cycle, err = emulator.FindCycle(wt, opts.signals)
		if err != nil {
			atexit.Fatalf("%v", err)
		}

		logger.Info().
			Uint64("repeat", cycle.Repeat).
			Int("count", cycle.Count).
			Int("ticks", emu.Machine.Ticks).
			Msg("cycle")
		fmt.Println(translate.From("first signal: %d", cycle.First))
		fmt.Println(translate.From("last signal: %d", cycle.Last))
		return
	}

	reg, err := emu.Run()
	if err != nil {
		logger.Error().Str("machine", emu.Machine.String()).Msg("stopped")
		atexit.Fatalf("%v", err)
	}

	logger.Info().Int("ticks", emu.Machine.Ticks).Msg("exit")
	fmt.Println(translate.From("r0: %d", reg[0]))
}

func main() {
	opts := &options{
		watcher: emulator.DefaultWatch(),
	}

	flag.StringVar(&opts.samples, "s", "", "sample file to solve and run")
	flag.StringVar(&opts.program, "p", "", "assembly program to run")
	flag.IntVar(&opts.size, "r", 6, "register file size")
	flag.Uint64Var(&opts.r0, "r0", 0, "initial value of r0")
	flag.IntVar(&opts.count, "count", 3, "report samples matching at least this many opcodes")
	flag.IntVar(&opts.limit, "limit", 0, "maximum instructions to execute, 0 for no limit")
	flag.IntVar(&opts.workers, "workers", 0, "solver workers, 0 for GOMAXPROCS")
	flag.BoolVar(&opts.watch, "watch", false, "run until the signal sequence repeats")
	flag.IntVar(&opts.watcher.Register, "watch-reg", opts.watcher.Register, "watched register")
	flag.IntVar(&opts.watcher.Signal, "signal", 4, "register holding the signal at a watch halt")
	flag.IntVar(&opts.watcher.Miss, "miss", 2, "register cleared on resume")
	flag.Uint64Var(&opts.watcher.Skip, "skip", opts.watcher.Skip, "instructions skipped on resume")
	flag.IntVar(&opts.signals, "signals", 0, "maximum signals to read, 0 for no limit")
	flag.BoolVar(&opts.verbose, "v", false, "Verbose mode")
	flag.StringVar(&opts.lang, "lang", "", "message language (BCP 47 tag)")

	flag.Parse()

	if flag.NArg() != 0 {
		atexit.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if len(opts.lang) != 0 {
		err := translate.SetLanguage(opts.lang)
		if err != nil {
			atexit.Fatalf("%v: %v", opts.lang, err)
		}
	}

	logger := newLogger(opts.verbose)

	switch {
	case len(opts.samples) != 0 && len(opts.program) != 0:
		atexit.Fatalf("%v: -s and -p are exclusive", os.Args[0])
	case len(opts.samples) != 0:
		runSamples(opts, &logger)
	case len(opts.program) != 0:
		runProgram(opts, &logger)
	default:
		flag.Usage()
		atexit.Exit(2)
	}

	atexit.Exit(0)
}
