package ir

import (
	"fmt"

	"retarget/machineir"
	"retarget/types"
)

// Alloca reserves Size bytes of stack storage for the current function and
// yields a pointer to it in Out. Compile only emits a portable Lea whose
// lone operand is the immediate Size; regalloc.Allocate recognizes that
// shape and is the component that actually carves out the dedicated,
// never-recycled stack region (regalloc.Frame.reserveAlloca), separate
// from the ordinary register-or-spill Location Out itself gets once a
// backend's Lea lowering computes its address.
type Alloca struct {
	Out  Var
	Size int
	Elem types.Meta
}

func (n *Alloca) Dump() string              { return fmt.Sprintf("%s = alloca %s, %d", n.Out, n.Elem, n.Size) }
func (n *Alloca) DumpColored(Profile) string { return n.Dump() }

func (n *Alloca) Verify(FunctionType) error {
	if _, ok := n.Out.Type.Pointee(); !ok {
		return verifyErr(Op0Op1TyNoMatch, n, "alloca result must be a pointer type")
	}
	return nil
}

func (n *Alloca) Uses(Var) bool           { return false }
func (n *Alloca) Inputs() []Var           { return nil }
func (n *Alloca) Output() (Var, bool)     { return n.Out, true }
func (n *Alloca) Eval() (Node, bool)      { return nil, false }
func (n *Alloca) MaybeInline(Env) (Node, bool) { return nil, false }
func (n *Alloca) Clone() Node             { c := *n; return &c }

func (n *Alloca) Compile(b Backend, sink *machineir.Sink) { b.CompileAlloca(n, sink) }

func (n *Alloca) CompileDirect(c Codegen, blk *Block) {
	s := &machineir.Sink{}
	n.Compile(c.Backend(), s)
	c.EmitDirect(s.Instrs, blk)
}
