// Package builder is a thin fluent façade for constructing ir.Function
// values, adapted from falcon's Block.NewValue / Func.NewBlock idiom
// (compile/ssa/hir.go): callers append one node at a time to a "current
// block" instead of hand-assembling ir.Block.Nodes slices, and NewBlock
// both allocates and registers the block the same way falcon's
// Func.NewBlock does. Unlike falcon's SSA builder this package never
// produces Phi nodes or does any dominance bookkeeping — the IR this
// module compiles is not SSA (spec.md §2's redesign direction), so
// there is nothing here beyond sequential node append plus block
// linking convenience.
package builder

import (
	"retarget/ir"
	"retarget/types"
)

// FuncBuilder accumulates blocks and nodes for one ir.Function.
type FuncBuilder struct {
	Fn  *ir.Function
	cur *ir.Block
}

// NewFunc starts a builder for a function named name with the given
// signature, grounded on falcon's ssa.NewFunc (compile/ssa/hir.go).
func NewFunc(name string, params []ir.Var, ret types.Meta) *FuncBuilder {
	fn := ir.NewFunction(name, ir.FunctionType{Params: params, Return: ret})
	return &FuncBuilder{Fn: fn}
}

// Block allocates a new block, appends it to the function, and makes it
// the builder's current block — mirroring Func.NewBlock(kind) followed
// by an implicit "this is now where NewValue appends" the graph builder
// in graph.go maintains via setControl/getControl.
func (f *FuncBuilder) Block(name string, kind ir.BlockKind) *ir.Block {
	b := ir.NewBlock(name)
	b.Kind = kind
	f.Fn.AddBlock(b)
	f.cur = b
	return b
}

// SetCurrent repoints subsequent Emit calls at an already-created block,
// the way graph.go's setControl lets the SSA builder resume appending to
// a block created earlier (e.g. a loop header revisited after its body).
func (f *FuncBuilder) SetCurrent(b *ir.Block) {
	f.cur = b
}

// Current returns the block Emit currently appends to.
func (f *FuncBuilder) Current() *ir.Block {
	return f.cur
}

// Emit appends n to the current block and returns it, so call sites can
// chain construction: b.Emit(&ir.Arith{...}).
func (f *FuncBuilder) Emit(n ir.Node) ir.Node {
	f.cur.Append(n)
	return n
}

// Arith appends an Arith node of kind computing out = l <kind> r.
func (f *FuncBuilder) Arith(kind ir.ArithKind, out, l, r ir.Var) *ir.Arith {
	n := &ir.Arith{Kind: kind, Out: out, L: l, R: r}
	f.cur.Append(n)
	return n
}

// Cmp appends a Cmp node computing out = l <mode> r.
func (f *FuncBuilder) Cmp(mode ir.CmpMode, out, l, r ir.Var) *ir.Cmp {
	n := &ir.Cmp{Mode: mode, Out: out, L: l, R: r}
	f.cur.Append(n)
	return n
}

// Assign appends out = in.
func (f *FuncBuilder) Assign(out, in ir.Var) *ir.Assign {
	n := &ir.Assign{Out: out, In: in}
	f.cur.Append(n)
	return n
}

// Br terminates the current block with an unconditional branch to target.
func (f *FuncBuilder) Br(target string) *ir.Br {
	n := &ir.Br{Target: target}
	f.cur.Append(n)
	return n
}

// BrCond terminates the current block with a conditional branch.
func (f *FuncBuilder) BrCond(cond ir.Var, then, els string) *ir.BrCond {
	n := &ir.BrCond{Cond: cond, Then: then, Else: els}
	f.cur.Append(n)
	return n
}

// Return terminates the current block. value may be nil for a void return.
func (f *FuncBuilder) Return(value *ir.Var) *ir.Return {
	n := &ir.Return{Value: value}
	f.cur.Append(n)
	return n
}

// Call appends a call to callee with args, binding the result to out
// (out may be the zero Var for a void call).
func (f *FuncBuilder) Call(callee string, out ir.Var, args ...ir.Var) *ir.Call {
	n := &ir.Call{Callee: callee, Args: args, Out: out}
	f.cur.Append(n)
	return n
}

// Store appends *addr = value.
func (f *FuncBuilder) Store(addr, value ir.Var) *ir.Store {
	n := &ir.Store{Addr: addr, Value: value}
	f.cur.Append(n)
	return n
}

// Load appends out = *addr.
func (f *FuncBuilder) Load(out, addr ir.Var) *ir.Load {
	n := &ir.Load{Out: out, Addr: addr}
	f.cur.Append(n)
	return n
}

// Alloca appends out = alloca(size x elem).
func (f *FuncBuilder) Alloca(out ir.Var, size int, elem types.Meta) *ir.Alloca {
	n := &ir.Alloca{Out: out, Size: size, Elem: elem}
	f.cur.Append(n)
	return n
}

// Build finalizes construction and returns the assembled function. It
// runs Verify so construction bugs (an unterminated block, a dangling
// use) surface at build time rather than three pipeline stages later.
func (f *FuncBuilder) Build() (*ir.Function, error) {
	if err := f.Fn.Verify(); err != nil {
		return nil, err
	}
	return f.Fn, nil
}
