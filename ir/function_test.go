package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retarget/ir"
	"retarget/types"
)

func addFunc() *ir.Function {
	a := ir.Var{Name: "a", Type: types.I64}
	b := ir.Var{Name: "b", Type: types.I64}
	sum := ir.Var{Name: "sum", Type: types.I64}

	fn := ir.NewFunction("add", ir.FunctionType{Params: []ir.Var{a, b}, Return: types.I64})
	entry := ir.NewBlock("entry")
	entry.Append(&ir.Arith{Kind: ir.KAdd, Out: sum, L: a, R: b})
	entry.Append(&ir.Return{Value: &sum})
	fn.AddBlock(entry)
	return fn
}

func TestFunctionVerify_OK(t *testing.T) {
	require.NoError(t, addFunc().Verify())
}

func TestFunctionVerify_UseOfUndefined(t *testing.T) {
	fn := ir.NewFunction("bad", ir.FunctionType{Return: types.I64})
	entry := ir.NewBlock("entry")
	x := ir.Var{Name: "x", Type: types.I64}
	entry.Append(&ir.Return{Value: &x})
	fn.AddBlock(entry)

	err := fn.Verify()
	require.Error(t, err)
	var ve *ir.VerifyError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, ir.UseOfUndefined, ve.Kind)
}

func TestFunctionVerify_TerminatorMisplaced(t *testing.T) {
	fn := ir.NewFunction("bad", ir.FunctionType{Return: types.Void})
	entry := ir.NewBlock("entry")
	entry.Append(&ir.Return{})
	entry.Append(&ir.Return{})
	fn.AddBlock(entry)

	err := fn.Verify()
	require.Error(t, err)
	var ve *ir.VerifyError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, ir.TerminatorMisplaced, ve.Kind)
}

func TestFunctionVerify_ReturnTypeMismatch(t *testing.T) {
	fn := ir.NewFunction("bad", ir.FunctionType{Return: types.Void})
	entry := ir.NewBlock("entry")
	v := ir.Var{Name: "v", Type: types.Pointer(types.I64)}
	entry.Append(&ir.Alloca{Out: v, Size: 8, Elem: types.I64})
	entry.Append(&ir.Return{Value: &v})
	fn.AddBlock(entry)

	err := fn.Verify()
	require.Error(t, err)
	var ve *ir.VerifyError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, ir.ReturnTypeMismatch, ve.Kind)
}

func TestFunctionReachable_SkipsDeadBlocks(t *testing.T) {
	fn := ir.NewFunction("branchy", ir.FunctionType{Return: types.Void})
	entry := ir.NewBlock("entry")
	live := ir.NewBlock("live")
	dead := ir.NewBlock("dead")

	entry.Append(&ir.Br{Target: "live"})
	live.Append(&ir.Return{})
	dead.Append(&ir.Return{})

	fn.AddBlock(entry)
	fn.AddBlock(live)
	fn.AddBlock(dead)

	names := make([]string, 0)
	for _, b := range fn.Reachable() {
		names = append(names, b.Name)
	}
	assert.Equal(t, []string{"entry", "live"}, names)
}

func TestCastEvalFoldsToAssignOnSameType(t *testing.T) {
	v := ir.Var{Name: "v", Type: types.I64}
	w := ir.Var{Name: "w", Type: types.I64}
	cast := &ir.Cast{Out: w, In: v}

	folded, ok := cast.Eval()
	require.True(t, ok)
	assign, ok := folded.(*ir.Assign)
	require.True(t, ok)
	assert.Equal(t, v, assign.In)
	assert.Equal(t, w, assign.Out)
}

func TestCastEvalDoesNotFoldAcrossWidths(t *testing.T) {
	v := ir.Var{Name: "v", Type: types.I32}
	w := ir.Var{Name: "w", Type: types.I64}
	cast := &ir.Cast{Out: w, In: v}

	_, ok := cast.Eval()
	assert.False(t, ok)
}
