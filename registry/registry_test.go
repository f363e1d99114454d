package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retarget/builder"
	"retarget/ir"
	"retarget/registry"
	"retarget/target"
	"retarget/types"
)

func addFunc(t *testing.T) *ir.Function {
	t.Helper()
	a := ir.Var{Name: "a", Type: types.I64}
	b := ir.Var{Name: "b", Type: types.I64}
	sum := ir.Var{Name: "sum", Type: types.I64}

	fb := builder.NewFunc("add", []ir.Var{a, b}, types.I64)
	fb.Block("entry", ir.KindReturn)
	fb.Arith(ir.KAdd, sum, a, b)
	fb.Return(&sum)
	fn, err := fb.Build()
	require.NoError(t, err)
	return fn
}

func TestCompileModuleX86_64ProducesCode(t *testing.T) {
	mod, err := registry.CompileModule(target.X86_64Linux, []*ir.Function{addFunc(t)}, registry.Options{OptLevel: 1})
	require.NoError(t, err)
	require.Contains(t, mod.Defines, "add")
	assert.NotEmpty(t, mod.Defines["add"])
	require.Len(t, mod.Decls, 1)
	assert.Equal(t, "add", mod.Decls[0].Name)
}

func TestCompileModuleWasm32ProducesCode(t *testing.T) {
	mod, err := registry.CompileModule(target.Wasm32, []*ir.Function{addFunc(t)}, registry.Options{OptLevel: 1})
	require.NoError(t, err)
	require.Contains(t, mod.Defines, "add")
	assert.NotEmpty(t, mod.Defines["add"])
}

func TestCompileModuleProducesCodeAtO0(t *testing.T) {
	modO0, err := registry.CompileModule(target.X86_64Linux, []*ir.Function{addFunc(t)}, registry.Options{OptLevel: 0})
	require.NoError(t, err)
	assert.NotEmpty(t, modO0.Defines["add"])
}

func TestCompileModuleStopsAtFirstFailure(t *testing.T) {
	bad := ir.NewFunction("bad", ir.FunctionType{Return: types.I64})
	entry := ir.NewBlock("entry")
	undef := ir.Var{Name: "undef", Type: types.I64}
	entry.Append(&ir.Return{Value: &undef})
	bad.AddBlock(entry)

	_, err := registry.CompileModule(target.X86_64Linux, []*ir.Function{addFunc(t), bad}, registry.Options{OptLevel: 1})
	require.Error(t, err)
}

func TestNewBackendRejectsUnknownArch(t *testing.T) {
	_, err := registry.NewBackend(target.Triple{Arch: target.Arch(99)})
	assert.Error(t, err)
}
