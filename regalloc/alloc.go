// Package regalloc assigns a physical register or stack slot to every
// Var a function's MachineInstr stream defines. It is a single-pass
// allocator over one function's flat instruction stream (all of its
// blocks in emission order) — never the global linear-scan sweep falcon's
// lsra.go performs (spec.md names that out of scope) — grounded on
// falcon's asm_x86.go "naive register allocation" path (allocateStackSlot,
// the v2offset map) generalized to prefer a physical register before
// falling back to a stack slot, and on ygen's
// CodeGen/reg_alloc/prep/neg.rs per-node-kind output-allocation rule:
// each instruction's output gets a location allocated exactly once, the
// first time it is produced.
package regalloc

import (
	"fmt"

	"retarget/machineir"
	"retarget/types"
	"retarget/utils"
)

// Location is where a Var lives after allocation.
type Location struct {
	Reg       string // "" if spilled to the stack
	StackSlot int     // byte offset from the frame base, valid if Reg == ""
	Type      types.Meta
}

func (l Location) String() string {
	if l.Reg != "" {
		return l.Reg
	}
	return fmt.Sprintf("[rbp-%d]", l.StackSlot)
}

// OutOfStack is returned when a frame's stack budget is exhausted. A real
// function body should never hit this (falcon's allocator never bounds
// stack size either), but a bound exists so a pathological or generated
// input fails cleanly instead of growing the frame unboundedly.
type OutOfStack struct {
	Requested int
	Budget    int
}

func (e *OutOfStack) Error() string {
	return fmt.Sprintf("regalloc: frame exceeds stack budget (%d > %d bytes)", e.Requested, e.Budget)
}

// Frame is the allocator's running state for one function: assigned
// locations, the set of currently free physical registers, and the
// stack cursor for spills/Alloca reservations.
type Frame struct {
	locs        map[string]Location
	freeRegs    []string
	usedRegs    *utils.Set[string]
	cursor      int
	budget      int
	allocaSlots map[string]int
}

// Budget is the default per-function stack allocation ceiling (64 KiB);
// generous enough that no realistic function trips OutOfStack while
// still bounding pathological input.
const Budget = 64 * 1024

// NewFrame seeds a Frame with the registers available for allocation
// (typically the convention's caller-save set minus any reserved
// scratch register, e.g. falcon's asm_x86.go sets aside R10/XMM15 as a
// scratch register and never offers it to the allocator).
func NewFrame(availableRegs []string) *Frame {
	return &Frame{
		locs:        map[string]Location{},
		freeRegs:    append([]string(nil), availableRegs...),
		usedRegs:    utils.NewSet[string](),
		budget:      Budget,
		allocaSlots: map[string]int{},
	}
}

func (f *Frame) Lookup(name string) (Location, bool) {
	l, ok := f.locs[name]
	return l, ok
}

// FrameSize returns the final stack cursor, i.e. the number of bytes a
// function's prologue must carve out of rsp to hold every spill and
// Alloca region this Frame reserved. Zero for a function with no Alloca
// whose Vars all fit in registers.
func (f *Frame) FrameSize() int { return f.cursor }

// reserveAlloca carves out a fresh, never-recycled size-byte region
// (16-byte aligned, same as allocSlot's spill slots) for one ir.Alloca
// and returns its offset from the frame base. Unlike allocSlot this
// never hands out a register: an Alloca's whole point is a stable
// address a Lea can take, so its backing bytes always live on the
// stack, independent of whatever Location its pointer-valued output
// Var gets assigned below.
func (f *Frame) reserveAlloca(size int) (int, error) {
	if size <= 0 {
		size = 1
	}
	f.cursor = utils.Align16(f.cursor + size)
	if f.cursor > f.budget {
		return 0, &OutOfStack{Requested: f.cursor, Budget: f.budget}
	}
	return f.cursor, nil
}

// AllocaOffset returns the stack-base offset reserveAlloca recorded for
// an Alloca instruction's output Var name, if any.
func (f *Frame) AllocaOffset(name string) (int, bool) {
	off, ok := f.allocaSlots[name]
	return off, ok
}

// allocSlot hands out the next free physical register if one remains,
// else spills to a fresh stack slot sized to t.
func (f *Frame) allocSlot(t types.Meta) (Location, error) {
	if len(f.freeRegs) > 0 {
		reg := f.freeRegs[0]
		f.freeRegs = f.freeRegs[1:]
		f.usedRegs.Add(reg)
		return Location{Reg: reg, Type: t}, nil
	}
	size := t.Bytes()
	if size == 0 {
		size = 8
	}
	// Stack slots stay 16-byte aligned as they grow so a spilled Var is
	// never split across the call-boundary alignment a later Call's
	// CallStackPrepare assumes.
	f.cursor = utils.Align16(f.cursor + size)
	if f.cursor > f.budget {
		return Location{}, &OutOfStack{Requested: f.cursor, Budget: f.budget}
	}
	return Location{StackSlot: f.cursor, Type: t}, nil
}

// Release returns a register-backed Location to the free pool once its
// Var's last use has passed, so later instructions in the stream can
// reuse it. Spilled (stack) locations are never released: a function's
// stack frame is sized once at Alloca/spill time, not reused mid-function
// (mirrors falcon's v2offset map, which never shrinks).
func (f *Frame) Release(l Location) {
	if l.Reg == "" {
		return
	}
	if !f.usedRegs.Remove(l.Reg) {
		return
	}
	utils.Assert(!containsStr(f.freeRegs, l.Reg), "regalloc: %s released twice", l.Reg)
	f.freeRegs = append(f.freeRegs, l.Reg)
}

func containsStr(xs []string, x string) bool {
	for _, s := range xs {
		if s == x {
			return true
		}
	}
	return false
}

// Allocate assigns a Location to every operand+output name that appears
// across instrs, processing the stream in order exactly once (the
// "prep pass" spec.md describes, as opposed to a global fixed-point
// linear scan). For each instruction: if its lone source operand is a
// Var (register- or stack-backed) of the output's type reaching its last
// read here (tracked via
// useRange, reference_lsra.go), the output reuses that operand's
// Location directly instead of allocating a fresh one — the same
// "last use triggers reuse" shortcut ygen's prep pass takes per node
// kind (CodeGen/reg_alloc/prep/neg.rs allocates fresh only when no
// reusable source exists).
func Allocate(instrs []machineir.MachineInstr, availableRegs []string) (*Frame, error) {
	frame := NewFrame(availableRegs)
	ranges := map[string]*useRange{}

	rangeFor := func(name string) *useRange {
		r, ok := ranges[name]
		if !ok {
			r = &useRange{}
			ranges[name] = r
		}
		return r
	}

	for id, instr := range instrs {
		for _, a := range instr.Args {
			if a.Kind == machineir.OpVar {
				rangeFor(a.Var).record(id, ukRead)
			}
		}
		if instr.Output != "" {
			rangeFor(instr.Output).record(id, ukWrite)
		}
	}

	for id, instr := range instrs {
		// An Alloca lowers to a Lea whose lone operand is the immediate
		// byte size rather than a Var/label address (backend/x64/compile.go's
		// CompileAlloca, backend/wasm's mirror); such a Lea additionally
		// reserves a dedicated stack region here, distinct from whatever
		// Location its own pointer-valued Output gets below.
		if instr.Mnemonic == machineir.Lea && len(instr.Args) == 1 && instr.Args[0].Kind == machineir.OpImm && instr.Output != "" {
			off, err := frame.reserveAlloca(int(instr.Args[0].Imm))
			if err != nil {
				return nil, err
			}
			frame.allocaSlots[instr.Output] = off
		}

		for _, a := range instr.Args {
			if a.Kind != machineir.OpVar {
				continue
			}
			if _, ok := frame.locs[a.Var]; ok {
				continue
			}
			loc, err := frame.allocSlot(a.Type)
			if err != nil {
				return nil, err
			}
			frame.locs[a.Var] = loc
		}

		reusedSrc := ""
		if instr.Output != "" {
			if _, ok := frame.locs[instr.Output]; !ok {
				reused := false
				if len(instr.Args) == 1 && instr.Args[0].Kind == machineir.OpVar {
					src := instr.Args[0].Var
					if rangeFor(src).lastRead() == id {
						if loc, ok := frame.locs[src]; ok && loc.Type.Equal(instr.Type) {
							frame.locs[instr.Output] = loc
							reused, reusedSrc = true, src
						}
					}
				}
				if !reused {
					loc, err := frame.allocSlot(instr.Type)
					if err != nil {
						return nil, err
					}
					frame.locs[instr.Output] = loc
				}
			}
		}

		// Release any source operand reaching its last read at this
		// instruction back to the free pool, unless it was just carried
		// forward as the reused output Location above (same register,
		// new name) — this is what lets a later, unrelated instruction in
		// the stream reuse a register a short-lived Var just freed,
		// without resorting to the full linear-scan liveness falcon's
		// lsra.go (and this allocator's §1 Non-goal) computes.
		for _, a := range instr.Args {
			if a.Kind != machineir.OpVar || a.Var == reusedSrc {
				continue
			}
			if rangeFor(a.Var).lastRead() == id {
				if loc, ok := frame.locs[a.Var]; ok {
					frame.Release(loc)
				}
			}
		}
	}

	return frame, nil
}
