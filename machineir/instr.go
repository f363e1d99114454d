// Package machineir is the architecture-neutral instruction set that sits
// between ir.Node lowering and a concrete backend's MCInstr encoding
// (spec.md §4.2). Its shape mirrors falcon's codegen.LIR (lir.go): a small
// closed mnemonic enum plus operands that carry their own width/kind,
// generalized so that both the x64 and wasm backends can target it.
package machineir

import (
	"fmt"

	"retarget/types"
)

// Mnemonic is the portable opcode space a MachineInstr carries. Backends
// translate each Mnemonic (plus its Float-prefixed twin where relevant,
// mirroring ygen's wasm lowering table in Target/wasm/lower.rs) into their
// own MCInstr/bytes.
type Mnemonic int

const (
	MovRR Mnemonic = iota
	MovRI
	MovRM
	MovMR
	Lea
	Add
	Sub
	IMul
	IDiv
	And
	Or
	Xor
	Neg
	Shl
	Shr
	Cmp
	Test
	SetCC
	MovZX
	Jmp
	Jcc
	Call
	Ret
	Push
	Pop
	// CallStackPrepare/CallStackRedo bracket a Call's outgoing-argument
	// stack adjustment; on System-V AMD64 both are no-ops (args go in
	// registers/already-reserved stack slots) and on wasm they are always
	// no-ops (ygen's wasm_lower_instr maps both to {}).
	CallStackPrepare
	CallStackRedo
	PushCleanup
	Prolog
	Epilog
	Label

	// Float-prefixed mirrors of the integer arithmetic/compare mnemonics,
	// named the way ygen's Target/wasm/lower.rs mirrors F-prefixed wasm
	// opcodes against their integer counterparts.
	FMov
	FAdd
	FSub
	FMul
	FDiv
	FCmp
	FNeg
)

func (m Mnemonic) String() string {
	names := map[Mnemonic]string{
		MovRR: "mov", MovRI: "mov", MovRM: "mov", MovMR: "mov", Lea: "lea",
		Add: "add", Sub: "sub", IMul: "imul", IDiv: "idiv", And: "and", Or: "or",
		Xor: "xor", Neg: "neg", Shl: "shl", Shr: "shr", Cmp: "cmp", Test: "test",
		SetCC: "setcc", MovZX: "movzx", Jmp: "jmp", Jcc: "jcc", Call: "call",
		Ret: "ret", Push: "push", Pop: "pop", CallStackPrepare: "call.prep",
		CallStackRedo: "call.redo", PushCleanup: "push.cleanup", Prolog: "prolog",
		Epilog: "epilog", Label: "label", FMov: "fmov", FAdd: "fadd", FSub: "fsub",
		FMul: "fmul", FDiv: "fdiv", FCmp: "fcmp", FNeg: "fneg",
	}
	if s, ok := names[m]; ok {
		return s
	}
	return "?"
}

// OperandKind distinguishes the three operand shapes a MachineInstr uses
// before register allocation has assigned a physical location.
type OperandKind int

const (
	OpVar OperandKind = iota
	OpImm
	OpLabel
)

// Operand is a pre-allocation reference: either an IR Var (to be resolved
// to a register or stack slot by regalloc), an immediate, or a block label.
type Operand struct {
	Kind  OperandKind
	Var   string
	Imm   int64
	Label string
	Type  types.Meta
}

func VarOperand(name string, t types.Meta) Operand { return Operand{Kind: OpVar, Var: name, Type: t} }
func ImmOperand(v int64, t types.Meta) Operand      { return Operand{Kind: OpImm, Imm: v, Type: t} }
func LabelOperand(l string) Operand                 { return Operand{Kind: OpLabel, Label: l} }

func (o Operand) String() string {
	switch o.Kind {
	case OpImm:
		return fmt.Sprintf("$%d", o.Imm)
	case OpLabel:
		return o.Label
	default:
		return o.Var
	}
}

// MachineInstr is one architecture-neutral instruction: a Mnemonic plus
// its operands, an optional named output, and the type the operation is
// carried out at (mirrors falcon's codegen.Instruction, which pairs an
// LIROp with Result/Args/Id).
type MachineInstr struct {
	Mnemonic Mnemonic
	Args     []Operand
	Output   string
	Type     types.Meta
	Comment  string
}

// Sink accumulates the MachineInstr stream a Node.Compile call produces.
type Sink struct {
	Instrs []MachineInstr
}

func (s *Sink) Emit(i MachineInstr) {
	s.Instrs = append(s.Instrs, i)
}

func (s *Sink) EmitAll(is []MachineInstr) {
	s.Instrs = append(s.Instrs, is...)
}
