// Package backend defines the target-independent contract a concrete
// backend (backend/x64, backend/wasm) satisfies, and the compile state
// machine every backend instance walks through for one function.
// Grounded on ygen's Target/registry.rs, whose buildMachineInstrsForTarget/
// buildAsmForTarget/buildMachineCodeForTarget each: set the active block,
// build MachineInstrs, (lower), (encode), then reset — the same shape
// State below names explicitly instead of leaving implicit in call order.
package backend

import (
	"retarget/ir"
	"retarget/machineir"
	"retarget/obj"
)

// State is the per-function compile state machine (spec.md §4.9): each
// transition is one-way within a single compile, and any error at any
// state discards whatever partial output that function produced so far.
type State int

const (
	Idle State = iota
	BlockSet
	InstrsBuilt
	Lowered
	Encoded
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case BlockSet:
		return "block-set"
	case InstrsBuilt:
		return "instrs-built"
	case Lowered:
		return "lowered"
	case Encoded:
		return "encoded"
	default:
		return "?"
	}
}

// TargetBackend is what registry.CompileFunction drives: a backend instance for
// exactly one compile, discarded (never reused across functions) per the
// "fresh per-compile instance" redesign spec.md §5/§9 calls for — unlike
// falcon's single long-lived Assembler that accumulates state across an
// entire CompileTheWorld run.
type TargetBackend interface {
	ir.Backend

	// SetBlock begins a new function/block compile. Must be called from
	// Idle (after Reset, if the instance was used before); any other state
	// is an error, and no prior output is cleared here.
	SetBlock(fn *ir.Function, blk *ir.Block) error

	// BuildInstrs walks the Nodes of every block reachable from fn's entry,
	// calling Node.Compile(backend, sink) for each, producing the portable
	// MachineInstr stream.
	BuildInstrs(sink *machineir.Sink) error

	// Lower assigns registers/stack slots (via regalloc.Allocate) and
	// rewrites the MachineInstr stream into the backend's own MCInstr
	// representation, ready for peephole optimization.
	Lower() error

	// Optimize runs the backend's peephole rule set over the lowered
	// instruction stream in place.
	Optimize() error

	// Encode serializes the optimized stream to bytes, appending any
	// relocations it produces to mod.
	Encode(mod *obj.Module, funcName string) ([]byte, error)

	// Reset returns the backend to Idle, discarding all per-function state.
	Reset()

	State() State
}
