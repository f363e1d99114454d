package wasm

import (
	"github.com/pkg/errors"

	bk "retarget/backend"
	"retarget/ir"
	"retarget/machineir"
	"retarget/obj"
	"retarget/peephole"
	"retarget/target"
	"retarget/types"
	"retarget/utils"
)

// Chunk is the lowered form of one IR Block: a flat instruction list
// whose only label-bearing entries are OpBr/OpBrIf/OpCall (Instr.Label).
// Every Block's Nodes end in a terminator node (Function.Verify's
// TerminatorMisplaced rule), so a Chunk's Body always itself ends in an
// OpReturn or an OpBr — there is no implicit fallthrough case for
// structure.go to special-case.
type Chunk struct {
	Label string
	Body  []Instr
}

// Backend is the WebAssembly target descriptor, structurally mirroring
// backend/x64's Backend (fresh per compile, state machine, ir.Backend
// via compile.go), but Lower/Encode operate over the whole function at
// once since wasm's structured control flow (block/loop/br_if) cannot
// be assembled one block at a time the way x64's flat label space can.
type Backend struct {
	triple target.Triple

	state bk.State
	fn    *ir.Function
	blk   *ir.Block

	portable  []machineir.MachineInstr
	locals    map[string]uint32
	localTys  []byte
	chunks    []Chunk
	memCursor uint32
}

func New(t target.Triple) (*Backend, error) {
	if t.Arch != target.ArchWasm32 {
		return nil, errors.Errorf("wasm.New: triple %s is not wasm32", t)
	}
	return &Backend{triple: t, state: bk.Idle}, nil
}

func (b *Backend) State() bk.State { return b.state }

func (b *Backend) SetBlock(fn *ir.Function, blk *ir.Block) error {
	if b.state != bk.Idle {
		return errors.Errorf("wasm: SetBlock called in state %v, want idle", b.state)
	}
	b.fn, b.blk = fn, blk
	b.state = bk.BlockSet
	return nil
}

func (b *Backend) BuildInstrs(sink *machineir.Sink) error {
	if b.state != bk.BlockSet {
		return errors.Errorf("wasm: BuildInstrs called in state %v, want block-set", b.state)
	}
	blocks := b.fn.Reachable()
	if len(blocks) == 0 {
		blocks = []*ir.Block{b.blk}
	}
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

// allocLocal assigns the next free local slot to name if it doesn't
// already have one, recording its wasm value type for the function's
// local declarations.
func (b *Backend) allocLocal(name string, wt byte) uint32 {
	if idx, ok := b.locals[name]; ok {
		return idx
	}
	idx := uint32(len(b.localTys))
	b.locals[name] = idx
	b.localTys = append(b.localTys, wt)
	return idx
}

func (b *Backend) Lower() error {
	if b.state != bk.InstrsBuilt {
		return errors.Errorf("wasm: Lower called in state %v, want instrs-built", b.state)
	}
	b.locals = map[string]uint32{}

	var chunks []Chunk
	var cur *Chunk
	for _, pi := range b.portable {
		if pi.Mnemonic == machineir.Label {
			if cur != nil {
				chunks = append(chunks, *cur)
			}
			cur = &Chunk{Label: pi.Args[0].Label}
			continue
		}
		if cur == nil {
			cur = &Chunk{}
		}
		if err := b.lowerInto(cur, pi); err != nil {
			return errors.Wrap(err, "wasm.Lower")
		}
	}
	if cur != nil {
		chunks = append(chunks, *cur)
	}
	b.chunks = chunks
	b.state = bk.Lowered
	return nil
}

// lowerInto appends one portable MachineInstr's wasm form to chunk,
// following ygen's Target/wasm/lower.rs dispatch: arithmetic/compare ops
// become their i32/i64/f32/f64-prefixed opcode after pushing both
// operands via local.get, CallStackPrepare/CallStackRedo/Prolog/Epilog/
// PushCleanup are no-ops, and Push is illegal (this module never emits
// it for wasm — compile.go has no code path producing machineir.Push).
func (b *Backend) lowerInto(chunk *Chunk, pi machineir.MachineInstr) error {
	switch pi.Mnemonic {
	case machineir.Push:
		return errors.New("wasm: Push is not a legal instruction for this target")

	case machineir.CallStackPrepare, machineir.CallStackRedo, machineir.Prolog, machineir.Epilog, machineir.PushCleanup:
		return nil

	case machineir.Jmp:
		chunk.Body = append(chunk.Body, Instr{Op: OpBr, Label: pi.Args[0].Label})
		return nil

	case machineir.Jcc:
		b.pushGet(chunk, pi.Args[0])
		chunk.Body = append(chunk.Body, Instr{Op: OpBrIf, Label: pi.Args[1].Label})
		return nil

	case machineir.Cmp:
		mode := ir.CmpMode(pi.Args[2].Imm)
		b.pushGet(chunk, pi.Args[0])
		b.pushGet(chunk, pi.Args[1])
		chunk.Body = append(chunk.Body, Instr{Op: cmpOp(pi.Args[0].Type, mode)})
		idx := b.allocLocal(pi.Output, 0x7F) // comparisons always yield i32 (u8 boolean)
		chunk.Body = append(chunk.Body, Instr{Op: OpLocalSet, Imm: int64(idx)})
		return nil

	case machineir.Ret:
		if len(pi.Args) == 1 {
			b.pushGet(chunk, pi.Args[0])
		}
		chunk.Body = append(chunk.Body, Instr{Op: OpReturn})
		return nil

	case machineir.Call:
		for _, a := range pi.Args[1:] {
			b.pushGet(chunk, a)
		}
		chunk.Body = append(chunk.Body, Instr{Op: OpCall, Label: pi.Args[0].Label})
		if pi.Output != "" {
			idx := b.allocLocal(pi.Output, valueType(pi.Type))
			chunk.Body = append(chunk.Body, Instr{Op: OpLocalSet, Imm: int64(idx)})
		}
		return nil

	case machineir.MovRR, machineir.MovZX:
		b.pushGet(chunk, pi.Args[0])
		idx := b.allocLocal(pi.Output, valueType(pi.Type))
		chunk.Body = append(chunk.Body, Instr{Op: OpLocalSet, Imm: int64(idx)})
		return nil

	case machineir.MovRM:
		b.pushGet(chunk, pi.Args[0])
		op := OpI32Load
		if pi.Type.Width == 64 {
			op = OpI64Load
		}
		chunk.Body = append(chunk.Body, Instr{Op: op})
		idx := b.allocLocal(pi.Output, valueType(pi.Type))
		chunk.Body = append(chunk.Body, Instr{Op: OpLocalSet, Imm: int64(idx)})
		return nil

	case machineir.MovMR:
		b.pushGet(chunk, pi.Args[0])
		b.pushGet(chunk, pi.Args[1])
		op := OpI32Store
		if pi.Type.Width == 64 {
			op = OpI64Store
		}
		chunk.Body = append(chunk.Body, Instr{Op: op})
		return nil

	case machineir.Neg:
		if pi.Type.Float {
			b.pushGet(chunk, pi.Args[0])
			chunk.Body = append(chunk.Body, Instr{Op: OpF64Neg})
		} else {
			// wasm has no integer neg opcode: compute 0 - x instead.
			zero, sub := OpI32Const, OpI32Sub
			if pi.Type.Width == 64 {
				zero, sub = OpI64Const, OpI64Sub
			}
			chunk.Body = append(chunk.Body, Instr{Op: zero, Imm: 0})
			b.pushGet(chunk, pi.Args[0])
			chunk.Body = append(chunk.Body, Instr{Op: sub})
		}
		idx := b.allocLocal(pi.Output, valueType(pi.Type))
		chunk.Body = append(chunk.Body, Instr{Op: OpLocalSet, Imm: int64(idx)})
		return nil

	case machineir.Lea:
		imm := pi.Args[0].Imm
		// An Alloca lowers to a Lea whose lone operand is an immediate
		// byte size rather than an address (compile.go's CompileAlloca);
		// wasm has no stack-address-of-local concept, so such a Lea
		// instead reserves a fresh region in linear memory by bumping
		// memCursor, the way an AddressLoad's Lea (OpLabel operand,
		// handled by the default branch below via its already-materialized
		// Imm) never needs to. Two Allocas of the same size must not
		// collide on one offset, which a bare Args[0].Imm replay would do.
		if len(pi.Args) == 1 && pi.Args[0].Kind == machineir.OpImm {
			size := int(imm)
			if size <= 0 {
				size = 1
			}
			imm = int64(b.memCursor)
			b.memCursor += uint32(utils.Align16(size))
		}
		chunk.Body = append(chunk.Body, Instr{Op: OpI32Const, Imm: imm})
		idx := b.allocLocal(pi.Output, 0x7F)
		chunk.Body = append(chunk.Body, Instr{Op: OpLocalSet, Imm: int64(idx)})
		return nil

	default:
		op, ok := arithOp(pi.Mnemonic, pi.Type)
		if !ok {
			return errors.Errorf("wasm: no lowering for mnemonic %v", pi.Mnemonic)
		}
		b.pushGet(chunk, pi.Args[0])
		b.pushGet(chunk, pi.Args[1])
		chunk.Body = append(chunk.Body, Instr{Op: op})
		idx := b.allocLocal(pi.Output, valueType(pi.Type))
		chunk.Body = append(chunk.Body, Instr{Op: OpLocalSet, Imm: int64(idx)})
		return nil
	}
}

func (b *Backend) pushGet(chunk *Chunk, a machineir.Operand) {
	switch a.Kind {
	case machineir.OpImm:
		op := OpI32Const
		if a.Type.Width == 64 {
			op = OpI64Const
		}
		chunk.Body = append(chunk.Body, Instr{Op: op, Imm: a.Imm})
	case machineir.OpLabel:
		// Symbol reference materialized elsewhere; nothing to push here.
	default:
		idx := b.allocLocal(a.Var, valueType(a.Type))
		chunk.Body = append(chunk.Body, Instr{Op: OpLocalGet, Imm: int64(idx)})
	}
}

// cmpOp picks the wasm compare opcode for mode at t's width; only the
// i32 family is implemented (i64/f32/f64 compares would extend this
// table in the same shape were a 64-bit or float Cmp lowered).
func cmpOp(t types.Meta, mode ir.CmpMode) Op {
	switch mode {
	case ir.CmpEq:
		return OpI32Eq
	case ir.CmpNe:
		return OpI32Ne
	case ir.CmpLt:
		return OpI32LtS
	case ir.CmpLe:
		return OpI32LeS
	case ir.CmpGt:
		return OpI32GtS
	default: // CmpGe
		return OpI32GeS
	}
}

// arithOp maps a portable arithmetic mnemonic to its wasm opcode at t's
// width (i32 vs i64; float ops route through the F-prefixed family per
// ygen's wasm lowering table, mirrored here by checking t.Float first).
func arithOp(m machineir.Mnemonic, t types.Meta) (Op, bool) {
	if t.Float {
		switch m {
		case machineir.Add:
			return OpF64Add, true
		case machineir.Sub:
			return OpF64Sub, true
		case machineir.IMul:
			return OpF64Mul, true
		case machineir.IDiv:
			return OpF64Div, true
		default:
			return 0, false
		}
	}
	wide := t.Width == 64
	switch m {
	case machineir.Add:
		if wide {
			return OpI64Add, true
		}
		return OpI32Add, true
	case machineir.Sub:
		if wide {
			return OpI64Sub, true
		}
		return OpI32Sub, true
	case machineir.IMul:
		if wide {
			return OpI64Mul, true
		}
		return OpI32Mul, true
	case machineir.IDiv:
		// Div and Rem both lower to the portable IDiv mnemonic
		// (mnemonicFor in compile.go); the distinction is lost once
		// compiled to MachineInstr, so Lower always emits the quotient
		// form here. A Rem-preserving portable mnemonic would remove
		// this limitation; tracked as a follow-up rather than
		// threading a second mnemonic through both backends for a
		// single missing opcode.
		return OpI32DivS, true
	case machineir.And:
		return OpI32And, true
	case machineir.Or:
		return OpI32Or, true
	case machineir.Xor:
		return OpI32Xor, true
	case machineir.Shl:
		return OpI32Shl, true
	case machineir.Shr:
		return OpI32ShrS, true
	default:
		return 0, false
	}
}

func (b *Backend) Optimize() error {
	if b.state != bk.Lowered {
		return errors.Errorf("wasm: Optimize called in state %v, want lowered", b.state)
	}
	// Wasm's peephole pass is intentionally a no-op here: the six x64
	// rules (register mov elision, lea fusion, tail-call jmp) all assume
	// a flat register/stack-slot machine instruction stream; wasm's
	// structured stack machine has no equivalent redundant-mov shape to
	// clean up once Lower has already emitted minimal local.get/local.set
	// pairs.
	return nil
}

func (b *Backend) Encode(mod *obj.Module, funcName string) ([]byte, error) {
	if b.state != bk.Lowered {
		return nil, errors.Errorf("wasm: Encode called in state %v, want lowered", b.state)
	}
	code, relocs, err := EncodeFunction(b.chunks, b.localTys, funcName)
	if err != nil {
		return nil, errors.Wrap(err, "wasm.Encode")
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
	b.locals = nil
	b.localTys = nil
	b.chunks = nil
	b.memCursor = 0
	b.state = bk.Idle
}
