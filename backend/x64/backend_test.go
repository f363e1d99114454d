package x64_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bk "retarget/backend"
	"retarget/backend/x64"
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

func TestBackendCompilesFullPipeline(t *testing.T) {
	b, err := x64.New(target.X86_64Linux)
	require.NoError(t, err)

	fn := addFunc()
	require.NoError(t, b.SetBlock(fn, fn.Blocks[0]))

	sink := &machineir.Sink{}
	require.NoError(t, b.BuildInstrs(sink))
	require.NoError(t, b.Lower())
	require.NoError(t, b.Optimize())

	mod := obj.NewModule(target.X86_64Linux)
	code, err := b.Encode(mod, "add")
	require.NoError(t, err)
	assert.NotEmpty(t, code)
	assert.Equal(t, bk.Encoded, b.State())
}

// allocaStoreLoadFunc builds `store(n); load n; return` over a single
// Alloca'd i64 slot, exercising the memory-node path (Store/Load/Alloca)
// that addFunc's pure register-to-register arithmetic never touches.
func allocaStoreLoadFunc() *ir.Function {
	v := ir.Var{Name: "v", Type: types.I64}
	p := ir.Var{Name: "p", Type: types.Pointer(types.I64)}
	out := ir.Var{Name: "out", Type: types.I64}

	fn := ir.NewFunction("roundtrip", ir.FunctionType{Params: []ir.Var{v}, Return: types.I64})
	entry := ir.NewBlock("entry")
	entry.Append(&ir.Alloca{Out: p, Size: 8, Elem: types.I64})
	entry.Append(&ir.Store{Addr: p, Value: v})
	entry.Append(&ir.Load{Out: out, Addr: p})
	entry.Append(&ir.Return{Value: &out})
	fn.AddBlock(entry)
	return fn
}

func TestBackendRoundTripsAllocaStoreLoadThroughLowerAndEncode(t *testing.T) {
	b, err := x64.New(target.X86_64Linux)
	require.NoError(t, err)

	fn := allocaStoreLoadFunc()
	require.NoError(t, b.SetBlock(fn, fn.Blocks[0]))

	sink := &machineir.Sink{}
	require.NoError(t, b.BuildInstrs(sink))
	require.NoError(t, b.Lower())
	require.NoError(t, b.Optimize())

	mod := obj.NewModule(target.X86_64Linux)
	code, err := b.Encode(mod, "roundtrip")
	require.NoError(t, err)
	assert.Equal(t, bk.Encoded, b.State())

	// push rbp; mov rbp, rsp open every function this backend emits
	// (backend.go's Prolog case): 0x55 (push rbp), then REX.W 89 E5
	// (mov rbp, rsp).
	require.GreaterOrEqual(t, len(code), 4)
	assert.Equal(t, byte(0x55), code[0], "push rbp")
	assert.Equal(t, []byte{0x48, 0x89, 0xE5}, code[1:4], "mov rbp, rsp")

	// A LEA with mod=11 (register-direct) is malformed; every LEA this
	// stream contains (the Alloca's address computation) must instead use
	// a memory-operand ModR/M byte, i.e. never 0xC0-0xFF immediately
	// after an 0x8D opcode.
	for i := 0; i+1 < len(code); i++ {
		if code[i] == 0x8D {
			assert.Less(t, code[i+1], byte(0xC0), "lea at offset %d must not use mod=11 ModR/M", i)
		}
	}

	// The function must end with a pop rbp (0x5D) before its ret (0xC3),
	// restoring what the prologue pushed.
	require.GreaterOrEqual(t, len(code), 2)
	assert.Equal(t, byte(0xC3), code[len(code)-1], "ret")
	assert.Equal(t, byte(0x5D), code[len(code)-2], "pop rbp")
}

func TestBackendRejectsOutOfOrderStateTransitions(t *testing.T) {
	b, err := x64.New(target.X86_64Linux)
	require.NoError(t, err)

	sink := &machineir.Sink{}
	assert.Error(t, b.BuildInstrs(sink), "BuildInstrs before SetBlock must fail")
	assert.Error(t, b.Lower(), "Lower before BuildInstrs must fail")
}

func TestBackendResetReturnsToIdle(t *testing.T) {
	b, err := x64.New(target.X86_64Linux)
	require.NoError(t, err)

	fn := addFunc()
	require.NoError(t, b.SetBlock(fn, fn.Blocks[0]))
	b.Reset()
	assert.Equal(t, bk.Idle, b.State())

	// After Reset, the same Backend can be driven through SetBlock again.
	require.NoError(t, b.SetBlock(fn, fn.Blocks[0]))
}
