package peephole_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"retarget/machineir"
	"retarget/peephole"
	"retarget/types"
)

func TestRunDropsSelfAssign(t *testing.T) {
	in := []machineir.MachineInstr{
		{Mnemonic: machineir.MovRR, Args: []machineir.Operand{machineir.VarOperand("x", types.I64)}, Output: "x", Type: types.I64},
		{Mnemonic: machineir.Ret},
	}

	out := peephole.Run(in, peephole.Rules)
	assert.Len(t, out, 1)
	assert.Equal(t, machineir.Ret, out[0].Mnemonic)
}

func TestRunKeepsNonSelfAssign(t *testing.T) {
	in := []machineir.MachineInstr{
		{Mnemonic: machineir.MovRR, Args: []machineir.Operand{machineir.VarOperand("y", types.I64)}, Output: "x", Type: types.I64},
	}

	out := peephole.Run(in, peephole.Rules)
	assert.Len(t, out, 1)
}

func TestRunCollapsesDoubleAssignToTheSecond(t *testing.T) {
	in := []machineir.MachineInstr{
		{Mnemonic: machineir.MovRR, Args: []machineir.Operand{machineir.VarOperand("a", types.I64)}, Output: "x", Type: types.I64},
		{Mnemonic: machineir.MovRR, Args: []machineir.Operand{machineir.VarOperand("b", types.I64)}, Output: "x", Type: types.I64},
	}

	out := peephole.Run(in, peephole.Rules)
	assert.Len(t, out, 1)
	assert.Equal(t, "b", out[0].Args[0].Var)
}

func TestRunDropsUnreferencedLabel(t *testing.T) {
	in := []machineir.MachineInstr{
		{Mnemonic: machineir.Label, Args: []machineir.Operand{machineir.LabelOperand("dead")}},
		{Mnemonic: machineir.Ret},
	}

	out := peephole.Run(in, peephole.Rules)
	for _, instr := range out {
		assert.NotEqual(t, machineir.Label, instr.Mnemonic)
	}
}

func TestRunKeepsLabelWithReferences(t *testing.T) {
	in := []machineir.MachineInstr{
		{Mnemonic: machineir.Label, Args: []machineir.Operand{machineir.LabelOperand("loop")}},
		{Mnemonic: machineir.Jmp, Args: []machineir.Operand{machineir.LabelOperand("loop")}},
	}

	out := peephole.Run(in, peephole.Rules)
	assert.Len(t, out, 2)
	assert.Equal(t, machineir.Label, out[0].Mnemonic)
}

func TestRunFixpointChainsAcrossMultiplePasses(t *testing.T) {
	// A self-assign followed by a double-assign pair should collapse to
	// the pair's second mov in one Run call even though each rule only
	// rewrites a small local window.
	in := []machineir.MachineInstr{
		{Mnemonic: machineir.MovRR, Args: []machineir.Operand{machineir.VarOperand("x", types.I64)}, Output: "x", Type: types.I64},
		{Mnemonic: machineir.MovRR, Args: []machineir.Operand{machineir.VarOperand("a", types.I64)}, Output: "y", Type: types.I64},
		{Mnemonic: machineir.MovRR, Args: []machineir.Operand{machineir.VarOperand("b", types.I64)}, Output: "y", Type: types.I64},
	}

	out := peephole.Run(in, peephole.Rules)
	assert.Len(t, out, 1)
	assert.Equal(t, "y", out[0].Output)
	assert.Equal(t, "b", out[0].Args[0].Var)
}
