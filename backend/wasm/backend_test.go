package wasm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bk "retarget/backend"
	"retarget/backend/wasm"
	"retarget/ir"
	"retarget/machineir"
	"retarget/obj"
	"retarget/target"
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

func TestNewRejectsNonWasmTriple(t *testing.T) {
	_, err := wasm.New(target.X86_64Linux)
	assert.Error(t, err)
}

func TestBackendCompilesFullPipeline(t *testing.T) {
	b, err := wasm.New(target.Wasm32)
	require.NoError(t, err)

	fn := addFunc()
	require.NoError(t, b.SetBlock(fn, fn.Blocks[0]))

	sink := &machineir.Sink{}
	require.NoError(t, b.BuildInstrs(sink))
	require.NoError(t, b.Lower())
	require.NoError(t, b.Optimize())

	mod := obj.NewModule(target.Wasm32)
	code, err := b.Encode(mod, "add")
	require.NoError(t, err)
	assert.NotEmpty(t, code)
	assert.Equal(t, bk.Encoded, b.State())
}

func TestBackendRejectsPushMnemonic(t *testing.T) {
	b, err := wasm.New(target.Wasm32)
	require.NoError(t, err)

	fn := ir.NewFunction("pushy", ir.FunctionType{Return: types.Void})
	entry := ir.NewBlock("entry")
	fn.AddBlock(entry)
	require.NoError(t, b.SetBlock(fn, entry))

	sink := &machineir.Sink{}
	sink.Emit(machineir.MachineInstr{Mnemonic: machineir.Label, Args: []machineir.Operand{machineir.LabelOperand("entry")}})
	sink.Emit(machineir.MachineInstr{Mnemonic: machineir.Push})
	require.NoError(t, b.BuildInstrs(sink))

	assert.Error(t, b.Lower())
}
