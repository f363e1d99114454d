package x64

import (
	"fmt"

	"github.com/pkg/errors"

	bk "retarget/backend"
	"retarget/callconv"
	"retarget/ir"
	"retarget/machineir"
	"retarget/obj"
	"retarget/peephole"
	"retarget/regalloc"
	"retarget/target"
)

// Backend is the x86-64 target descriptor. One instance compiles exactly
// one function (every block reachable from its entry) before Reset is
// required, per the fresh-
// per-compile-instance redesign (backend.State's doc comment).
type Backend struct {
	triple target.Triple
	conv   *callconv.Conv

	state bk.State
	fn    *ir.Function
	blk   *ir.Block

	portable []machineir.MachineInstr
	frame    *regalloc.Frame
	lowered  []Instr
}

func New(t target.Triple) (*Backend, error) {
	conv, err := callconv.For(t)
	if err != nil {
		return nil, errors.Wrap(err, "x64.New")
	}
	return &Backend{triple: t, conv: conv, state: bk.Idle}, nil
}

func (b *Backend) State() bk.State { return b.state }

func (b *Backend) SetBlock(fn *ir.Function, blk *ir.Block) error {
	if b.state != bk.Idle {
		return errors.Errorf("x64: SetBlock called in state %v, want idle", b.state)
	}
	b.fn, b.blk = fn, blk
	b.state = bk.BlockSet
	return nil
}

func (b *Backend) BuildInstrs(sink *machineir.Sink) error {
	if b.state != bk.BlockSet {
		return errors.Errorf("x64: BuildInstrs called in state %v, want block-set", b.state)
	}
	blocks := b.fn.Reachable()
	if len(blocks) == 0 {
		blocks = []*ir.Block{b.blk}
	}
	// Every CompileReturn emits a matching Epilog (compile.go); Prolog is
	// emitted once here, at the very top of the function, rather than by
	// any single CompileXxx method, since no IR node represents function
	// entry itself.
	sink.Emit(machineir.MachineInstr{Mnemonic: machineir.Prolog})
	for _, blk := range blocks {
		sink.Emit(machineir.MachineInstr{Mnemonic: machineir.Label, Args: []machineir.Operand{machineir.LabelOperand(blk.Name)}})
		for _, n := range blk.Nodes {
			n.Compile(b, sink)
		}
	}
	b.portable = peephole.Run(sink.Instrs, peephole.Rules)
	b.state = bk.InstrsBuilt
	return nil
}

// availableRegs is every caller-save register the convention offers,
// minus the scratch register compile.go's staging sequences reserve.
func (b *Backend) availableRegs() []string {
	var out []string
	for _, r := range b.conv.CallerSave {
		if r == "R10" {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (b *Backend) Lower() error {
	if b.state != bk.InstrsBuilt {
		return errors.Errorf("x64: Lower called in state %v, want instrs-built", b.state)
	}
	frame, err := regalloc.Allocate(b.portable, b.availableRegs())
	if err != nil {
		return errors.Wrap(err, "x64.Lower: register allocation")
	}
	b.frame = frame

	lowered := make([]Instr, 0, len(b.portable))
	for _, pi := range b.portable {
		instrs, err := b.lowerOne(pi)
		if err != nil {
			return errors.Wrapf(err, "x64.Lower: %v", pi.Mnemonic)
		}
		lowered = append(lowered, instrs...)
	}
	b.lowered = lowered
	b.state = bk.Lowered
	return nil
}

func (b *Backend) operandLoc(name string) (regalloc.Location, bool) {
	return b.frame.Lookup(name)
}

func (b *Backend) toOperand(op machineir.Operand) Operand {
	switch op.Kind {
	case machineir.OpImm:
		return ImmOp(op.Imm)
	case machineir.OpLabel:
		return LabelOp(op.Label)
	default:
		loc, ok := b.operandLoc(op.Var)
		if !ok {
			return LabelOp(op.Var)
		}
		if loc.Reg != "" {
			reg, _ := ByName(loc.Reg)
			return RegOp(reg.Cast(op.Type))
		}
		return MemOp(Mem{Base: RBP, Disp: -int32(loc.StackSlot)})
	}
}

// resolvePointerBase resolves a Store/Load's pointer operand to the
// register a Mem.Base can reference directly. If the pointer Var's own
// Location is already a register, that register is the base and no
// extra instruction is needed. If the pointer itself spilled to the
// stack (its value — the address — lives at an rbp-relative slot), that
// value must first be loaded into ScratchInt before it can serve as a
// base register, since Mem.Base can only ever name a register.
func (b *Backend) resolvePointerBase(addr machineir.Operand) ([]Instr, Reg) {
	op := b.toOperand(addr)
	if op.Kind == OperKindReg {
		return nil, op.Reg
	}
	stage := Instr{Mnemonic: MOV, Dst: RegOp(ScratchInt), HasDst: true, Src: op, HasSrc: true, Width: 64}
	return []Instr{stage}, ScratchInt
}

// lowerOne translates one portable MachineInstr into its x64 Instr
// form(s). Mov variants are disambiguated here by operand kind, and
// register-reuse no-ops (dst == src after allocation, which happens
// often once regalloc.Allocate reuses a source's slot for the output)
// are still emitted: peephole.go's "mov x,x" rule removes them, matching
// falcon's own comment that such moves are common output of a naive
// allocator and are peephole-cleaned rather than suppressed at emission.
func (b *Backend) lowerOne(pi machineir.MachineInstr) ([]Instr, error) {
	switch pi.Mnemonic {
	case machineir.MovRR, machineir.MovZX:
		dst := b.toOperand(machineir.VarOperand(pi.Output, pi.Type))
		src := b.toOperand(pi.Args[0])
		m := MOV
		if pi.Mnemonic == machineir.MovZX {
			m = MOVZX
		}
		return []Instr{{Mnemonic: m, Dst: dst, HasDst: true, Src: src, HasSrc: true, Width: pi.Type.Width}}, nil

	case machineir.MovRM:
		// Load-through-pointer: CompileLoad emits Args[0] = the pointer
		// Var itself (the address to dereference), not the value at that
		// address, so the pointer's own Location must first be resolved
		// to a register to serve as Mem.Base — unlike the generic mov
		// case above, this never treats the pointer's Location directly
		// as the value.
		pre, base := b.resolvePointerBase(pi.Args[0])
		dst := b.toOperand(machineir.VarOperand(pi.Output, pi.Type))
		load := Instr{Mnemonic: MOV, Dst: dst, HasDst: true, Src: MemOp(Mem{Base: base}), HasSrc: true, Width: pi.Type.Width}
		return append(pre, load), nil

	case machineir.MovMR:
		// Store-through-pointer: CompileStore's Args are [Addr, Value]
		// and Output is empty (there is no destination Var — the write
		// target is memory, not a register). The shared mov case above
		// would resolve a nonexistent "" output and silently drop Value;
		// this case resolves Addr into the Mem.Base and Value into Src.
		pre, base := b.resolvePointerBase(pi.Args[0])
		value := b.toOperand(pi.Args[1])
		store := Instr{Mnemonic: MOV, Dst: MemOp(Mem{Base: base}), HasDst: true, Src: value, HasSrc: true, Width: pi.Type.Width}
		return append(pre, store), nil

	case machineir.Lea:
		dst := b.toOperand(machineir.VarOperand(pi.Output, pi.Type))
		switch pi.Args[0].Kind {
		case machineir.OpLabel:
			// AddressLoad: the source is a symbol, resolved RIP-relative
			// at Encode time via a relocation (encodeLea).
			src := Operand{Kind: OperKindMem, Mem: Mem{RIPRel: true, Symbol: pi.Args[0].Label}}
			return []Instr{{Mnemonic: LEA, Dst: dst, HasDst: true, Src: src, HasSrc: true, Width: pi.Type.Width}}, nil
		case machineir.OpImm:
			// Alloca: the source is an immediate byte size, not an
			// address — regalloc.Allocate recognized this exact shape
			// and reserved a dedicated stack region for it, recorded
			// under this instruction's own Output name.
			off, ok := b.frame.AllocaOffset(pi.Output)
			if !ok {
				return nil, fmt.Errorf("x64: lower: no stack reservation recorded for alloca %q", pi.Output)
			}
			src := Operand{Kind: OperKindMem, Mem: Mem{Base: RBP, Disp: -int32(off)}}
			return []Instr{{Mnemonic: LEA, Dst: dst, HasDst: true, Src: src, HasSrc: true, Width: pi.Type.Width}}, nil
		default:
			src := b.toOperand(pi.Args[0])
			return []Instr{{Mnemonic: LEA, Dst: dst, HasDst: true, Src: src, HasSrc: true, Width: pi.Type.Width}}, nil
		}

	case machineir.Cmp, machineir.Test:
		mc, _ := FromPortable(pi.Mnemonic)
		l := b.toOperand(pi.Args[0])
		r := b.toOperand(pi.Args[1])
		return []Instr{{Mnemonic: mc, Dst: l, HasDst: true, Src: r, HasSrc: true, Width: pi.Type.Width}}, nil

	case machineir.SetCC:
		dst := b.toOperand(machineir.VarOperand(pi.Output, pi.Type))
		return []Instr{{Mnemonic: SETCC, Dst: dst, HasDst: true, Cond: CondCode(pi.Args[0].Imm), Width: 8}}, nil

	case machineir.Neg:
		dst := b.toOperand(machineir.VarOperand(pi.Output, pi.Type))
		return []Instr{{Mnemonic: NEG, Dst: dst, HasDst: true, Width: pi.Type.Width}}, nil

	case machineir.Jmp, machineir.Call:
		mc, _ := FromPortable(pi.Mnemonic)
		return []Instr{{Mnemonic: mc, Dst: LabelOp(pi.Args[0].Label), HasDst: true}}, nil

	case machineir.Jcc:
		return []Instr{{Mnemonic: JCC, Dst: LabelOp(pi.Args[0].Label), HasDst: true, Cond: CondCode(pi.Args[1].Imm)}}, nil

	case machineir.Ret:
		return []Instr{{Mnemonic: RET}}, nil

	case machineir.Label:
		return []Instr{{Mnemonic: LABEL, Dst: LabelOp(pi.Args[0].Label), HasDst: true}}, nil

	case machineir.Prolog:
		// regalloc.Allocate has already run by the time Lower reaches
		// here (it produced b.frame above), so the frame size is known
		// up front — no later "patch the frame size into an already-
		// encoded prologue" step is needed or exists.
		instrs := []Instr{
			{Mnemonic: PUSH, Dst: RegOp(RBP), HasDst: true},
			{Mnemonic: MOV, Dst: RegOp(RBP), HasDst: true, Src: RegOp(RSP), HasSrc: true, Width: 64},
		}
		if size := b.frame.FrameSize(); size > 0 {
			instrs = append(instrs, Instr{Mnemonic: SUB, Dst: RegOp(RSP), HasDst: true, Src: ImmOp(int64(size)), HasSrc: true, Width: 64})
		}
		return instrs, nil

	case machineir.Epilog:
		var instrs []Instr
		if size := b.frame.FrameSize(); size > 0 {
			instrs = append(instrs, Instr{Mnemonic: MOV, Dst: RegOp(RSP), HasDst: true, Src: RegOp(RBP), HasSrc: true, Width: 64})
		}
		instrs = append(instrs, Instr{Mnemonic: POP, Dst: RegOp(RBP), HasDst: true})
		return instrs, nil

	case machineir.CallStackPrepare, machineir.CallStackRedo:
		// Conventions with caller-reserved shadow space (Windows x64) get
		// it reserved before and released after the call, less the 8 bytes
		// the return address already occupies; System-V has none, so
		// nothing is emitted.
		shadow := b.conv.ShadowBytes
		if shadow == 0 {
			return nil, nil
		}
		m := SUB
		if pi.Mnemonic == machineir.CallStackRedo {
			m = ADD
		}
		return []Instr{{Mnemonic: m, Dst: RegOp(RSP), HasDst: true, Src: ImmOp(int64(shadow - 8)), HasSrc: true, Width: 64}}, nil

	default:
		mc, ok := FromPortable(pi.Mnemonic)
		if !ok {
			return nil, fmt.Errorf("x64: no lowering for mnemonic %v", pi.Mnemonic)
		}
		dst := b.toOperand(machineir.VarOperand(pi.Output, pi.Type))
		var src Operand
		hasSrc := len(pi.Args) > 1
		if hasSrc {
			src = b.toOperand(pi.Args[1])
		}
		return []Instr{{Mnemonic: mc, Dst: dst, HasDst: true, Src: src, HasSrc: hasSrc, Width: pi.Type.Width}}, nil
	}
}

func (b *Backend) Optimize() error {
	if b.state != bk.Lowered {
		return errors.Errorf("x64: Optimize called in state %v, want lowered", b.state)
	}
	b.lowered = Peephole(b.lowered)
	return nil
}

func (b *Backend) Encode(mod *obj.Module, funcName string) ([]byte, error) {
	if b.state != bk.Lowered {
		return nil, errors.Errorf("x64: Encode called in state %v, want lowered", b.state)
	}
	code, relocs, err := EncodeAll(b.lowered, funcName)
	if err != nil {
		return nil, errors.Wrap(err, "x64.Encode")
	}
	for _, l := range relocs {
		mod.Relocate(l)
	}
	b.state = bk.Encoded
	return code, nil
}

func (b *Backend) Reset() {
	b.fn, b.blk = nil, nil
	b.portable = nil
	b.frame = nil
	b.lowered = nil
	b.state = bk.Idle
}
