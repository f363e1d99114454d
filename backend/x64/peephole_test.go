package x64_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"retarget/backend/x64"
)

func reg(enc uint8) x64.Reg { return x64.Reg{Enc: enc, Width: 64} }

func TestPeepholeFusesMovAddIntoLea(t *testing.T) {
	in := []x64.Instr{
		{Mnemonic: x64.MOV, Dst: x64.RegOp(reg(0)), HasDst: true, Src: x64.RegOp(reg(1)), HasSrc: true, Width: 64},
		{Mnemonic: x64.ADD, Dst: x64.RegOp(reg(0)), HasDst: true, Src: x64.ImmOp(8), HasSrc: true, Width: 64},
	}
	out := x64.Peephole(in)
	if assert.Len(t, out, 1) {
		assert.Equal(t, x64.LEA, out[0].Mnemonic)
		assert.Equal(t, x64.Mem{Base: reg(1), Disp: 8}, out[0].Src.Mem)
		assert.Equal(t, reg(0), out[0].Dst.Reg)
	}
}

func TestPeepholeDoesNotFuseWhenAddSourceIsNotImmediate(t *testing.T) {
	in := []x64.Instr{
		{Mnemonic: x64.MOV, Dst: x64.RegOp(reg(0)), HasDst: true, Src: x64.RegOp(reg(1)), HasSrc: true, Width: 64},
		{Mnemonic: x64.ADD, Dst: x64.RegOp(reg(0)), HasDst: true, Src: x64.RegOp(reg(2)), HasSrc: true, Width: 64},
	}
	out := x64.Peephole(in)
	assert.Len(t, out, 2)
}

func TestPeepholeDropsSelfMov(t *testing.T) {
	in := []x64.Instr{
		{Mnemonic: x64.MOV, Dst: x64.RegOp(reg(0)), HasDst: true, Src: x64.RegOp(reg(0)), HasSrc: true, Width: 64},
		{Mnemonic: x64.RET},
	}
	out := x64.Peephole(in)
	if assert.Len(t, out, 1) {
		assert.Equal(t, x64.RET, out[0].Mnemonic)
	}
}

func TestPeepholeCollapsesDoubleMovToSameDestination(t *testing.T) {
	in := []x64.Instr{
		{Mnemonic: x64.MOV, Dst: x64.RegOp(reg(0)), HasDst: true, Src: x64.RegOp(reg(1)), HasSrc: true, Width: 64},
		{Mnemonic: x64.MOV, Dst: x64.RegOp(reg(0)), HasDst: true, Src: x64.RegOp(reg(2)), HasSrc: true, Width: 64},
	}
	out := x64.Peephole(in)
	if assert.Len(t, out, 1) {
		assert.Equal(t, reg(2), out[0].Src.Reg)
	}
}

func TestPeepholeKeepsRedundantReloadSourceInstruction(t *testing.T) {
	// mov rax, rcx; mov rcx, rax -- rcx already holds rax's new value
	// (it is rax's own source), so reloading it is dead; only the first
	// mov survives.
	in := []x64.Instr{
		{Mnemonic: x64.MOV, Dst: x64.RegOp(reg(0)), HasDst: true, Src: x64.RegOp(reg(1)), HasSrc: true, Width: 64},
		{Mnemonic: x64.MOV, Dst: x64.RegOp(reg(1)), HasDst: true, Src: x64.RegOp(reg(0)), HasSrc: true, Width: 64},
	}
	out := x64.Peephole(in)
	if assert.Len(t, out, 1) {
		assert.Equal(t, reg(0), out[0].Dst.Reg)
		assert.Equal(t, reg(1), out[0].Src.Reg)
	}
}

func TestPeepholeRewritesTailCallToJump(t *testing.T) {
	in := []x64.Instr{
		{Mnemonic: x64.CALL, Dst: x64.LabelOp("callee"), HasDst: true},
		{Mnemonic: x64.RET},
	}
	out := x64.Peephole(in)
	if assert.Len(t, out, 1) {
		assert.Equal(t, x64.JMP, out[0].Mnemonic)
		assert.Equal(t, "callee", out[0].Dst.Label)
	}
}

func TestPeepholeCancelsPushPopOfSameRegister(t *testing.T) {
	in := []x64.Instr{
		{Mnemonic: x64.PUSH, Dst: x64.RegOp(reg(3)), HasDst: true},
		{Mnemonic: x64.POP, Dst: x64.RegOp(reg(3)), HasDst: true},
		{Mnemonic: x64.RET},
	}
	out := x64.Peephole(in)
	if assert.Len(t, out, 1) {
		assert.Equal(t, x64.RET, out[0].Mnemonic)
	}
}

func TestPeepholeKeepsPushPopOfDifferentRegisters(t *testing.T) {
	in := []x64.Instr{
		{Mnemonic: x64.PUSH, Dst: x64.RegOp(reg(3)), HasDst: true},
		{Mnemonic: x64.POP, Dst: x64.RegOp(reg(4)), HasDst: true},
	}
	out := x64.Peephole(in)
	assert.Len(t, out, 2)
}
