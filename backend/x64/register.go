// Package x64 implements the x86-64 backend: MachineInstr lowering,
// peephole optimization and REX/ModR/M byte encoding (no SIB byte: memory
// operands are base+disp32 or RIP-relative only). Register bank
// and sub-register aliasing are grounded on falcon's
// compile/codegen/arch_x86.go (the Register type and its Cast method);
// the encoding numbering (0..15, REX.R/X/B extension bits) follows both
// arch_x86.go's register table and ygen's Target/x64/reg.rs.
package x64

import "retarget/types"

// Reg is a physical x86-64 register identified by its 0..15 encoding
// number (the same numbering used in ModR/M reg/rm fields and in the
// REX.R/X/B extension bits) plus the width it is referenced at, mirroring
// falcon's arch_x86.go registers (RAX..R15 vs EAX..R15D vs AX..R15W vs
// AH/AL..R15B all sharing one encoding number per physical register).
type Reg struct {
	Enc   uint8 // 0..15, encodes which physical register
	Width uint8 // 8/16/32/64/128
	Float bool  // true for XMM registers
}

func (r Reg) Extended() bool { return r.Enc >= 8 }

// Cast reinterprets r at a different width, the same operation as
// falcon's Register.Cast(t *LIRType): the physical register is
// unchanged, only which alias (EAX vs RAX vs AX vs AL) is referenced.
func (r Reg) Cast(t types.Meta) Reg {
	w := t.Width
	if w == 0 {
		w = 64
	}
	return Reg{Enc: r.Enc, Width: w, Float: t.Float}
}

func (r Reg) String() string {
	if r.Float {
		return xmmNames[r.Enc]
	}
	switch r.Width {
	case 64:
		return gpr64Names[r.Enc]
	case 32:
		return gpr32Names[r.Enc]
	case 16:
		return gpr16Names[r.Enc]
	default:
		return gpr8Names[r.Enc]
	}
}

var gpr64Names = [16]string{
	"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
}

var gpr32Names = [16]string{
	"eax", "ecx", "edx", "ebx", "esp", "ebp", "esi", "edi",
	"r8d", "r9d", "r10d", "r11d", "r12d", "r13d", "r14d", "r15d",
}

var gpr16Names = [16]string{
	"ax", "cx", "dx", "bx", "sp", "bp", "si", "di",
	"r8w", "r9w", "r10w", "r11w", "r12w", "r13w", "r14w", "r15w",
}

// gpr8Names assumes the REX-present encoding (spl/bpl/sil/dil), since
// this backend always emits a REX prefix when any extended register or
// 64-bit operand is present, matching buildREX's "REX.W always set when
// a 64-bit register is present" rule from the encoder this is grounded on.
var gpr8Names = [16]string{
	"al", "cl", "dl", "bl", "spl", "bpl", "sil", "dil",
	"r8b", "r9b", "r10b", "r11b", "r12b", "r13b", "r14b", "r15b",
}

var xmmNames = [16]string{
	"xmm0", "xmm1", "xmm2", "xmm3", "xmm4", "xmm5", "xmm6", "xmm7",
	"xmm8", "xmm9", "xmm10", "xmm11", "xmm12", "xmm13", "xmm14", "xmm15",
}

var byName = func() map[string]Reg {
	m := map[string]Reg{}
	for i, n := range gpr64Names {
		m[n] = Reg{Enc: uint8(i), Width: 64}
	}
	for i, n := range xmmNames {
		m[n] = Reg{Enc: uint8(i), Width: 128, Float: true}
	}
	return m
}()

// ByName resolves a callconv register name (always given in its 64-bit or
// XMM spelling, e.g. "RDI", "XMM0") to its encoding.
func ByName(name string) (Reg, bool) {
	r, ok := byName[lower(name)]
	return r, ok
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}

// Scratch is the register this backend reserves for operand staging and
// never hands to the allocator (falcon's asm_x86.go picks R10/XMM15 "no
// rationale, just picked a caller-save register"; kept the same here).
var ScratchInt = Reg{Enc: 10, Width: 64}
var ScratchFloat = Reg{Enc: 15, Width: 128, Float: true}

// RBP and RSP are never handed to regalloc (availableRegs draws only
// from callconv's CallerSave list, which holds neither): RBP anchors every stack-slot Mem operand
// toOperand builds, RSP is adjusted by the function prologue/epilogue.
var RBP = Reg{Enc: 5, Width: 64}
var RSP = Reg{Enc: 4, Width: 64}
