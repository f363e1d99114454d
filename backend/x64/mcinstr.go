package x64

import "retarget/machineir"

// Operand is an x64 MCInstr operand, already resolved to a physical
// location by Lower (a register, an immediate, or a memory reference
// built from regalloc.Location's stack offset).
type Operand struct {
	Kind OperandKind
	Reg  Reg
	Imm  int64
	Mem  Mem
	// Label names a Jcc/Jmp/Call target not yet resolved to an offset;
	// resolution happens in Encode, which is the only component that
	// knows final instruction lengths.
	Label string
}

type OperandKind int

const (
	OperKindReg OperandKind = iota
	OperKindImm
	OperKindMem
	OperKindLabel
)

// Mem is a memory operand: either register base + disp32 (RBP-relative
// stack slots and alloca regions, or a pointer Var's register for
// Load/Store and peephole-built lea) or a RIP-relative symbol reference.
// There is no index register or scale, so no SIB byte is ever encoded.
type Mem struct {
	Base    Reg
	Disp    int32
	RIPRel  bool
	Symbol  string // set when RIPRel: an as-yet-unresolved symbol load
}

func RegOp(r Reg) Operand           { return Operand{Kind: OperKindReg, Reg: r} }
func ImmOp(v int64) Operand         { return Operand{Kind: OperKindImm, Imm: v} }
func MemOp(m Mem) Operand           { return Operand{Kind: OperKindMem, Mem: m} }
func LabelOp(name string) Operand   { return Operand{Kind: OperKindLabel, Label: name} }

// Mnemonic is the x64-specific opcode space Lower rewrites
// machineir.Mnemonic into, 1:1 except where one portable mnemonic needs
// several x64 forms to pick from (e.g. Mov picks among mov-reg-reg,
// mov-reg-imm, mov-reg-mem, mov-mem-reg at Lower time since the encoder
// needs the concrete shape, not the portable one).
type Mnemonic int

const (
	MOV Mnemonic = iota
	LEA
	ADD
	SUB
	IMUL
	IDIV
	AND
	OR
	XOR
	NEG
	SHL
	SHR
	CMP
	TEST
	SETCC
	MOVZX
	JMP
	JCC
	CALL
	RET
	PUSH
	POP
	NOP
	LABEL
)

// Instr is one x64 machine instruction: mnemonic, operands in
// AT&T-ish dst-then-src order (matching falcon's asm_x86.go emit2
// convention), and the condition code for Jcc/SetCC.
type Instr struct {
	Mnemonic Mnemonic
	Dst, Src Operand
	HasDst   bool
	HasSrc   bool
	Cond     CondCode
	Width    uint8 // operand width in bits, drives REX.W and opcode size prefix
}

type CondCode int

const (
	CCEq CondCode = iota
	CCNe
	CCLt
	CCLe
	CCGt
	CCGe
)

// FromPortable maps a machineir.Mnemonic to its x64 Mnemonic where the
// mapping is 1:1 (arithmetic/compare/control ops). Mov's several shapes
// are resolved directly in backend.go's lowerOne since they depend on
// operand kinds.
func FromPortable(m machineir.Mnemonic) (Mnemonic, bool) {
	table := map[machineir.Mnemonic]Mnemonic{
		machineir.Lea: LEA, machineir.Add: ADD, machineir.Sub: SUB,
		machineir.IMul: IMUL, machineir.IDiv: IDIV, machineir.And: AND,
		machineir.Or: OR, machineir.Xor: XOR, machineir.Neg: NEG,
		machineir.Shl: SHL, machineir.Shr: SHR, machineir.Cmp: CMP,
		machineir.Test: TEST, machineir.SetCC: SETCC, machineir.MovZX: MOVZX,
		machineir.Jmp: JMP, machineir.Jcc: JCC, machineir.Call: CALL,
		machineir.Ret: RET, machineir.Push: PUSH, machineir.Pop: POP,
	}
	mc, ok := table[m]
	return mc, ok
}
