package x64

import (
	"fmt"

	"retarget/obj"
)

// arithOpcodeRR gives the one-byte primary opcode for the register-register
// form of every arithmetic/compare mnemonic this backend emits; the
// register-immediate forms go through opcode 0x81 with groupExt's /0../7
// reg-field extension instead.
// Grounded on the opcode/operand-shape dispatch in
// other_examples/.../kasm-codegen/encode.go (classifyOperand +
// encodeInstruction's switch over variant.Encoding) and on ygen's
// Target/x64/asm/isa.rs buildOpcode/ModRm helpers for the REX/ModR/M
// byte shapes themselves.
var arithOpcodeRR = map[Mnemonic]byte{
	ADD: 0x01, SUB: 0x29, AND: 0x21, OR: 0x09, XOR: 0x31, CMP: 0x39, TEST: 0x85,
}

var arithOpcodeRM = map[Mnemonic]byte{
	ADD: 0x03, SUB: 0x2B, AND: 0x23, OR: 0x0B, XOR: 0x33, CMP: 0x3B,
}

// groupExt selects the ModR/M reg-field extension used by the imm32
// "group 1" arithmetic opcode 0x81 for ops that don't have a dedicated
// register-immediate opcode.
var groupExt = map[Mnemonic]byte{
	ADD: 0, OR: 1, AND: 4, SUB: 5, XOR: 6, CMP: 7,
}

const (
	rexBase      = 0x40 // fixed 0100 high nibble every REX prefix carries
	rexW         = 0x08
	rexR         = 0x04
	rexX         = 0x02
	rexB         = 0x01
	opSizePfx    = 0x66
	modRegDirect = 0xC0
)

// rex builds a REX prefix byte, set unconditionally when w is true
// (always the case for a 64-bit operand, mirroring buildREX's "REX.W
// always set when a 64-bit register is present" rule) or when any of
// r/x/b address an extended (R8-R15/XMM8-XMM15) register.
func rex(w bool, r, x, b bool) (byte, bool) {
	if !w && !r && !x && !b {
		return 0, false
	}
	v := byte(rexBase)
	if w {
		v |= rexW
	}
	if r {
		v |= rexR
	}
	if x {
		v |= rexX
	}
	if b {
		v |= rexB
	}
	return v, true
}

func modrmReg(regField, rm uint8) byte {
	return modRegDirect | (regField&7)<<3 | (rm & 7)
}

// encoder accumulates one function's bytes plus the Link records its
// Label operands still need resolved, the way ygen's
// buildMachineCodeForTarget stamps link.from/link.at from the running
// output length as each instruction is appended.
type encoder struct {
	funcName string
	code     []byte
	relocs   []obj.Link
	labels   map[string]int // label name -> byte offset, for intra-function jumps
	pending  []pendingLabel
}

type pendingLabel struct {
	name   string
	offset int // offset of the 4-byte rel32 field to patch
}

func newEncoder(funcName string) *encoder {
	return &encoder{funcName: funcName, labels: map[string]int{}}
}

func (e *encoder) emit(b ...byte) { e.code = append(e.code, b...) }

func (e *encoder) emitImm32(v int32) {
	e.emit(byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (e *encoder) emitImm64(v int64) {
	for i := 0; i < 8; i++ {
		e.emit(byte(v >> (8 * i)))
	}
}

func (e *encoder) markLabel(name string) {
	e.labels[name] = len(e.code)
}

func (e *encoder) resolveLabels() {
	for _, p := range e.pending {
		if target, ok := e.labels[p.name]; ok {
			rel := int32(target - (p.offset + 4))
			e.code[p.offset] = byte(rel)
			e.code[p.offset+1] = byte(rel >> 8)
			e.code[p.offset+2] = byte(rel >> 16)
			e.code[p.offset+3] = byte(rel >> 24)
			continue
		}
		// Not defined within this function: an external symbol, resolved
		// by the linker via a relocation instead of a local patch.
		e.relocs = append(e.relocs, obj.Link{
			Symbol: p.name, From: e.funcName, Offset: p.offset, Addend: -4, Kind: obj.RelocPCRel32,
		})
	}
}

// EncodeAll serializes a peephole-optimized x64 Instr stream to bytes,
// returning the relocations any unresolved label references produced.
func EncodeAll(instrs []Instr, funcName string) ([]byte, []obj.Link, error) {
	e := newEncoder(funcName)
	for _, ins := range instrs {
		if err := e.encodeOne(ins); err != nil {
			return nil, nil, err
		}
	}
	e.resolveLabels()
	return e.code, e.relocs, nil
}

func (e *encoder) encodeOne(ins Instr) error {
	switch ins.Mnemonic {
	case MOV:
		return e.encodeMov(ins)
	case LEA:
		return e.encodeLea(ins)
	case ADD, SUB, AND, OR, XOR, CMP, TEST:
		return e.encodeArith(ins)
	case NEG:
		return e.encodeUnaryGroup3(ins, 3)
	case SHL, SHR:
		return e.encodeShift(ins)
	case IMUL:
		return e.encodeImul(ins)
	case IDIV:
		return e.encodeUnaryGroup3(ins, 7)
	case SETCC:
		return e.encodeSetcc(ins)
	case MOVZX:
		return e.encodeMovzx(ins)
	case JMP:
		return e.encodeJmp(ins, false)
	case JCC:
		return e.encodeJmp(ins, true)
	case NOP:
		e.emit(0x90)
		return nil
	case LABEL:
		e.markLabel(ins.Dst.Label)
		return nil
	case CALL:
		return e.encodeCall(ins)
	case RET:
		e.emit(0xC3)
		return nil
	case PUSH:
		return e.encodePush(ins, 0x50)
	case POP:
		return e.encodePush(ins, 0x58)
	default:
		return fmt.Errorf("x64: encode: unsupported mnemonic %d", ins.Mnemonic)
	}
}

func operandRegEnc(o Operand) (uint8, bool) {
	if o.Kind == OperKindReg {
		return o.Reg.Enc, true
	}
	return 0, false
}

func (e *encoder) encodeMov(ins Instr) error {
	if ins.Src.Kind == OperKindImm {
		dstEnc, _ := operandRegEnc(ins.Dst)
		w := ins.Width == 64
		if pfx, ok := rex(w, false, false, dstEnc >= 8); ok {
			e.emit(pfx)
		}
		e.emit(0xB8 + dstEnc&7)
		if w {
			e.emitImm64(ins.Src.Imm)
		} else {
			e.emitImm32(int32(ins.Src.Imm))
		}
		return nil
	}
	if ins.Dst.Kind == OperKindMem {
		return e.encodeMR(0x89, ins.Src, ins.Dst, ins.Width)
	}
	if ins.Src.Kind == OperKindMem {
		return e.encodeRM(0x8B, ins.Dst, ins.Src, ins.Width)
	}
	return e.encodeRR(0x89, ins.Dst, ins.Src, ins.Width)
}

// encodeRR encodes a register-register instruction as opcode + ModR/M
// with both operands direct (mod=11), following keurnel-assembler's
// encodeRM helper shape (reg field = src, rm field = dst for the MR
// convention these "dst-is-rm" opcodes like 0x89/0x01/... use).
func (e *encoder) encodeRR(opcode byte, dst, src Operand, width uint8) error {
	dstEnc, _ := operandRegEnc(dst)
	srcEnc, _ := operandRegEnc(src)
	if width == 16 {
		e.emit(opSizePfx)
	}
	if pfx, ok := rex(width == 64, srcEnc >= 8, false, dstEnc >= 8); ok {
		e.emit(pfx)
	}
	e.emit(opcode)
	e.emit(modrmReg(srcEnc, dstEnc))
	return nil
}

func (e *encoder) encodeArith(ins Instr) error {
	if ins.Src.Kind == OperKindImm {
		dstEnc, _ := operandRegEnc(ins.Dst)
		ext, ok := groupExt[ins.Mnemonic]
		if !ok {
			return fmt.Errorf("x64: no immediate form for %d", ins.Mnemonic)
		}
		if pfx, ok := rex(ins.Width == 64, false, false, dstEnc >= 8); ok {
			e.emit(pfx)
		}
		e.emit(0x81)
		e.emit(modrmReg(ext, dstEnc))
		e.emitImm32(int32(ins.Src.Imm))
		return nil
	}
	if op, ok := arithOpcodeRR[ins.Mnemonic]; ok {
		return e.encodeRR(op, ins.Dst, ins.Src, ins.Width)
	}
	return fmt.Errorf("x64: no register form for %d", ins.Mnemonic)
}

// encodeLea requires a memory-operand ModR/M form (mod=00/01/10), never
// the mod=11 register-direct form modrmReg builds — LEA's whole point is
// computing an address, not referencing a register's value. ins.Src is
// always OperKindMem here (Lower never produces any other shape for
// LEA); a RIP-relative source (AddressLoad's symbol, mem.RIPRel) uses
// the dedicated mod=00, r/m=0b101 disp32 encoding plus an external
// relocation instead of a base register, while a register-relative
// source (Alloca's stack-region address) follows the same mod=10 disp32
// pattern encodeMR/encodeRM use for ordinary stack-slot operands.
func (e *encoder) encodeLea(ins Instr) error {
	dstEnc, _ := operandRegEnc(ins.Dst)
	mem := ins.Src.Mem
	if mem.RIPRel {
		if pfx, ok := rex(ins.Width == 64, dstEnc >= 8, false, false); ok {
			e.emit(pfx)
		}
		e.emit(0x8D)
		e.emit(0x00 | (dstEnc&7)<<3 | 0x05)
		e.pending = append(e.pending, pendingLabel{name: mem.Symbol, offset: len(e.code)})
		e.emitImm32(0)
		return nil
	}
	if pfx, ok := rex(ins.Width == 64, dstEnc >= 8, false, mem.Base.Enc >= 8); ok {
		e.emit(pfx)
	}
	e.emit(0x8D)
	e.emit(0x80 | (dstEnc&7)<<3 | (mem.Base.Enc & 7))
	e.emitImm32(mem.Disp)
	return nil
}

// encodeMR/encodeRM encode memory-operand moves: reg field names the
// register operand, rm field (plus disp32) names the stack slot.
func (e *encoder) encodeMR(opcode byte, src, dstMem Operand, width uint8) error {
	srcEnc, _ := operandRegEnc(src)
	mem := dstMem.Mem
	if pfx, ok := rex(width == 64, srcEnc >= 8, false, mem.Base.Enc >= 8); ok {
		e.emit(pfx)
	}
	e.emit(opcode)
	e.emit(0x80 | (srcEnc&7)<<3 | (mem.Base.Enc & 7)) // mod=01/10 disp8/32; always disp32 here
	e.emitImm32(mem.Disp)
	return nil
}

func (e *encoder) encodeRM(opcode byte, dst, srcMem Operand, width uint8) error {
	dstEnc, _ := operandRegEnc(dst)
	mem := srcMem.Mem
	if pfx, ok := rex(width == 64, dstEnc >= 8, false, mem.Base.Enc >= 8); ok {
		e.emit(pfx)
	}
	e.emit(opcode)
	e.emit(0x80 | (dstEnc&7)<<3 | (mem.Base.Enc & 7))
	e.emitImm32(mem.Disp)
	return nil
}

func (e *encoder) encodeUnaryGroup3(ins Instr, ext byte) error {
	dstEnc, _ := operandRegEnc(ins.Dst)
	if pfx, ok := rex(ins.Width == 64, false, false, dstEnc >= 8); ok {
		e.emit(pfx)
	}
	e.emit(0xF7)
	e.emit(modrmReg(ext, dstEnc))
	return nil
}

func (e *encoder) encodeShift(ins Instr) error {
	dstEnc, _ := operandRegEnc(ins.Dst)
	ext := byte(4)
	if ins.Mnemonic == SHR {
		ext = 5
	}
	if pfx, ok := rex(ins.Width == 64, false, false, dstEnc >= 8); ok {
		e.emit(pfx)
	}
	if ins.Src.Kind == OperKindImm {
		e.emit(0xC1)
		e.emit(modrmReg(ext, dstEnc))
		e.emit(byte(ins.Src.Imm))
		return nil
	}
	// Shift-by-CL form: the count register is implicit (CL), matching
	// falcon's lower_x86.go convention of moving the shift count into CL
	// before emitting the shift.
	e.emit(0xD3)
	e.emit(modrmReg(ext, dstEnc))
	return nil
}

func (e *encoder) encodeImul(ins Instr) error {
	dstEnc, _ := operandRegEnc(ins.Dst)
	srcEnc, _ := operandRegEnc(ins.Src)
	if pfx, ok := rex(ins.Width == 64, dstEnc >= 8, false, srcEnc >= 8); ok {
		e.emit(pfx)
	}
	e.emit(0x0F, 0xAF)
	e.emit(modrmReg(dstEnc, srcEnc))
	return nil
}

func (e *encoder) encodeSetcc(ins Instr) error {
	dstEnc, _ := operandRegEnc(ins.Dst)
	cc := ccByte(ins.Cond)
	if pfx, ok := rex(false, false, false, dstEnc >= 8); ok {
		e.emit(pfx)
	}
	e.emit(0x0F, 0x90+cc)
	e.emit(modrmReg(0, dstEnc))
	return nil
}

func ccByte(c CondCode) byte {
	switch c {
	case CCEq:
		return 0x4
	case CCNe:
		return 0x5
	case CCLt:
		return 0xC
	case CCLe:
		return 0xE
	case CCGt:
		return 0xF
	default: // CCGe
		return 0xD
	}
}

func (e *encoder) encodeMovzx(ins Instr) error {
	dstEnc, _ := operandRegEnc(ins.Dst)
	srcEnc, _ := operandRegEnc(ins.Src)
	if pfx, ok := rex(ins.Width == 64, dstEnc >= 8, false, srcEnc >= 8); ok {
		e.emit(pfx)
	}
	e.emit(0x0F, 0xB6)
	e.emit(modrmReg(dstEnc, srcEnc))
	return nil
}

func (e *encoder) encodeJmp(ins Instr, conditional bool) error {
	if conditional {
		e.emit(0x0F, 0x80+ccByte(ins.Cond))
	} else {
		e.emit(0xE9)
	}
	e.pending = append(e.pending, pendingLabel{name: ins.Dst.Label, offset: len(e.code)})
	e.emitImm32(0)
	return nil
}

func (e *encoder) encodeCall(ins Instr) error {
	e.emit(0xE8)
	e.pending = append(e.pending, pendingLabel{name: ins.Dst.Label, offset: len(e.code)})
	e.emitImm32(0)
	return nil
}

func (e *encoder) encodePush(ins Instr, base byte) error {
	enc, _ := operandRegEnc(ins.Dst)
	if pfx, ok := rex(false, false, false, enc >= 8); ok {
		e.emit(pfx)
	}
	e.emit(base + enc&7)
	return nil
}
