package regalloc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retarget/machineir"
	"retarget/regalloc"
	"retarget/types"
)

func TestAllocateAssignsDistinctRegistersWhileAvailable(t *testing.T) {
	instrs := []machineir.MachineInstr{
		{Mnemonic: machineir.MovRI, Args: []machineir.Operand{machineir.ImmOperand(1, types.I64)}, Output: "a", Type: types.I64},
		{Mnemonic: machineir.MovRI, Args: []machineir.Operand{machineir.ImmOperand(2, types.I64)}, Output: "b", Type: types.I64},
		{Mnemonic: machineir.Add, Args: []machineir.Operand{machineir.VarOperand("a", types.I64), machineir.VarOperand("b", types.I64)}, Output: "sum", Type: types.I64},
	}

	frame, err := regalloc.Allocate(instrs, []string{"rax", "rbx", "rcx"})
	require.NoError(t, err)

	a, ok := frame.Lookup("a")
	require.True(t, ok)
	b, ok := frame.Lookup("b")
	require.True(t, ok)
	sum, ok := frame.Lookup("sum")
	require.True(t, ok)

	assert.NotEmpty(t, a.Reg)
	assert.NotEmpty(t, b.Reg)
	assert.NotEmpty(t, sum.Reg)
	assert.NotEqual(t, a.Reg, b.Reg)
}

func TestAllocateReleasesRegisterAtLastRead(t *testing.T) {
	// "a" is read only by the first Add and is dead afterward; once its
	// register is released, "c" (introduced after) should be able to reuse
	// it even though only two physical registers are ever made available.
	instrs := []machineir.MachineInstr{
		{Mnemonic: machineir.MovRI, Args: []machineir.Operand{machineir.ImmOperand(1, types.I64)}, Output: "a", Type: types.I64},
		{Mnemonic: machineir.MovRI, Args: []machineir.Operand{machineir.ImmOperand(2, types.I64)}, Output: "b", Type: types.I64},
		{Mnemonic: machineir.Add, Args: []machineir.Operand{machineir.VarOperand("a", types.I64), machineir.VarOperand("b", types.I64)}, Output: "sum", Type: types.I64},
		{Mnemonic: machineir.MovRI, Args: []machineir.Operand{machineir.ImmOperand(3, types.I64)}, Output: "c", Type: types.I64},
	}

	frame, err := regalloc.Allocate(instrs, []string{"rax", "rbx"})
	require.NoError(t, err)

	a, _ := frame.Lookup("a")
	c, _ := frame.Lookup("c")
	assert.Equal(t, a.Reg, c.Reg, "c should reuse a's register once a is released at its last read")
}

func TestAllocateReusesSourceRegisterForChainedOutput(t *testing.T) {
	// A Neg whose sole source operand ("x") is read for the last time here
	// should have its output ("y") reuse x's Location rather than consuming
	// a fresh register.
	instrs := []machineir.MachineInstr{
		{Mnemonic: machineir.MovRI, Args: []machineir.Operand{machineir.ImmOperand(1, types.I64)}, Output: "x", Type: types.I64},
		{Mnemonic: machineir.Neg, Args: []machineir.Operand{machineir.VarOperand("x", types.I64)}, Output: "y", Type: types.I64},
	}

	frame, err := regalloc.Allocate(instrs, []string{"rax"})
	require.NoError(t, err)

	x, _ := frame.Lookup("x")
	y, _ := frame.Lookup("y")
	assert.Equal(t, x.Reg, y.Reg)
}

func TestAllocateSpillsToStackWhenRegistersExhausted(t *testing.T) {
	instrs := []machineir.MachineInstr{
		{Mnemonic: machineir.MovRI, Args: []machineir.Operand{machineir.ImmOperand(1, types.I64)}, Output: "a", Type: types.I64},
		{Mnemonic: machineir.MovRI, Args: []machineir.Operand{machineir.ImmOperand(2, types.I64)}, Output: "b", Type: types.I64},
	}

	frame, err := regalloc.Allocate(instrs, []string{"rax"})
	require.NoError(t, err)

	a, _ := frame.Lookup("a")
	b, _ := frame.Lookup("b")
	assert.NotEmpty(t, a.Reg)
	assert.Empty(t, b.Reg, "b should have spilled once the single register was taken")
	assert.Greater(t, b.StackSlot, 0)
}

func TestAllocateReturnsOutOfStackWhenBudgetExceeded(t *testing.T) {
	instrs := make([]machineir.MachineInstr, 0, 8200)
	for i := 0; i < 8200; i++ {
		instrs = append(instrs, machineir.MachineInstr{
			Mnemonic: machineir.MovRI,
			Args:     []machineir.Operand{machineir.ImmOperand(int64(i), types.I64)},
			Output:   "v" + itoa(i),
			Type:     types.I64,
		})
	}

	_, err := regalloc.Allocate(instrs, nil)
	require.Error(t, err)
	var oos *regalloc.OutOfStack
	require.ErrorAs(t, err, &oos)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestFrameReleaseIsIdempotentOnceRegisterLeavesUsedSet(t *testing.T) {
	instrs := []machineir.MachineInstr{
		{Mnemonic: machineir.MovRI, Args: []machineir.Operand{machineir.ImmOperand(1, types.I64)}, Output: "a", Type: types.I64},
	}
	f, err := regalloc.Allocate(instrs, []string{"rax"})
	require.NoError(t, err)
	loc, ok := f.Lookup("a")
	require.True(t, ok)

	// a was never read after being defined, so Allocate never released it;
	// releasing it by hand, twice, must not panic: the second call finds
	// the register already out of usedRegs and is a no-op.
	assert.NotPanics(t, func() {
		f.Release(loc)
		f.Release(loc)
	})
}
