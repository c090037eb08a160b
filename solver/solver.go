// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package solver recovers the mapping from numeric opcode ids to opcodes
// from observed before/after samples.
package solver

import (
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ezrec/chronal/cpu"
)

// SAMPLE_CHUNK is the number of samples checked by a single worker task.
const SAMPLE_CHUNK = 64

// Mapping is a bijection from opcode id to opcode.
type Mapping [cpu.OPCODE_COUNT]cpu.Opcode

// Lookup returns the opcode for a numeric id.
func (m Mapping) Lookup(id cpu.Word) (op cpu.Opcode, err error) {
	if id >= cpu.OPCODE_COUNT {
		err = ErrOpcodeId
		return
	}
	op = m[id]
	return
}

// Assemble translates raw instructions into a program.
func (m Mapping) Assemble(raws []cpu.RawInstruction) (prog *cpu.Program, err error) {
	prog = &cpu.Program{
		Instructions: make([]cpu.Instruction, 0, len(raws)),
	}

	for ip, raw := range raws {
		var op cpu.Opcode
		op, err = m.Lookup(raw.Id)
		if err != nil {
			err = fmt.Errorf("%d: %v: %w", ip, raw, err)
			prog = nil
			return
		}
		prog.Instructions = append(prog.Instructions, cpu.Instruction{
			Opcode: op,
			A:      raw.A,
			B:      raw.B,
			C:      raw.C,
		})
	}

	return
}

func (m Mapping) String() string {
	var sb strings.Builder
	for id, op := range m {
		fmt.Fprintf(&sb, "%2d: %v\n", id, op)
	}
	return sb.String()
}

// Solver computes opcode mappings from samples.
type Solver struct {
	Workers int             // Maximum concurrent workers; zero uses GOMAXPROCS.
	Log     *zerolog.Logger // If set, solver progress is logged at debug level.
}

// Candidates returns, for each opcode id, the opcodes consistent with
// every sample carrying that id. Ids without samples keep all opcodes.
func (sv *Solver) Candidates(samples []Sample) (cands [cpu.OPCODE_COUNT]cpu.OpcodeSet, err error) {
	for id := range cands {
		cands[id] = cpu.ALL_OPCODES
	}

	workers := sv.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(workers)

	for start := 0; start < len(samples); start += SAMPLE_CHUNK {
		end := min(start+SAMPLE_CHUNK, len(samples))
		g.Go(func() error {
			var local [cpu.OPCODE_COUNT]cpu.OpcodeSet
			for id := range local {
				local[id] = cpu.ALL_OPCODES
			}

			for index := start; index < end; index++ {
				s := samples[index]
				set, err := s.Candidates()
				if err != nil {
					return &ErrSample{Index: index, Err: err}
				}
				local[s.Raw.Id] = local[s.Raw.Id].Intersect(set)
			}

			mu.Lock()
			for id, set := range local {
				cands[id] = cands[id].Intersect(set)
			}
			mu.Unlock()

			return nil
		})
	}

	err = g.Wait()
	if err != nil {
		return
	}

	if sv.Log != nil {
		for id, set := range cands {
			sv.Log.Debug().Int("id", id).Stringer("candidates", set).Msg("candidates")
		}
	}

	return
}

// Solve computes the opcode mapping implied by the samples.
func (sv *Solver) Solve(samples []Sample) (m Mapping, err error) {
	cands, err := sv.Candidates(samples)
	if err != nil {
		return
	}

	m, err = Resolve(cands)
	if err != nil {
		return
	}

	if sv.Log != nil {
		sv.Log.Debug().Int("samples", len(samples)).Msg("mapping resolved")
	}

	return
}

// Resolve reduces per-id candidate sets to a bijection by elimination:
// an id with a single candidate is fixed to it, and that opcode is removed
// from every other id. Ids are scanned in ascending order.
func Resolve(cands [cpu.OPCODE_COUNT]cpu.OpcodeSet) (m Mapping, err error) {
	resolved := make(map[int]cpu.Opcode, cpu.OPCODE_COUNT)

	fail := func() {
		err = &ErrUnresolved{Candidates: cands, Resolved: resolved}
	}

	for round := 0; round < cpu.OPCODE_COUNT && len(resolved) < cpu.OPCODE_COUNT; round++ {
		progress := false
		for id := range cands {
			if _, ok := resolved[id]; ok {
				continue
			}
			if cands[id].Len() == 0 {
				fail()
				return
			}
			op, ok := cands[id].Only()
			if !ok {
				continue
			}
			resolved[id] = op
			for other := range cands {
				if other != id {
					cands[other] = cands[other].Remove(op)
				}
			}
			progress = true
		}
		if !progress {
			break
		}
	}

	if len(resolved) < cpu.OPCODE_COUNT {
		fail()
		return
	}

	for id, op := range resolved {
		m[id] = op
	}

	return
}
