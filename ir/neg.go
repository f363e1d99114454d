package ir

import (
	"fmt"

	"retarget/machineir"
)

// Neg is arithmetic negation, Out = -In (x64 lowers it to neg; wasm to
// f64.neg for floats and 0 - In for integers). There is no boolean
// (xor 1) form. The prep-pass allocator grounds its
// per-kind output-slot rule directly on ygen's
// CodeGen/reg_alloc/prep/neg.rs, which allocates Out's storage via
// alloc_rv(node.inner2.ty) before anything else runs.
type Neg struct {
	Out, In Var
}

func (n *Neg) Dump() string              { return fmt.Sprintf("%s = neg %s", n.Out, n.In) }
func (n *Neg) DumpColored(Profile) string { return n.Dump() }

func (n *Neg) Verify(FunctionType) error {
	if !n.Out.Type.Equal(n.In.Type) {
		return verifyErr(Op0Op1TyNoMatch, n, "neg result type %s does not match operand %s", n.Out.Type, n.In.Type)
	}
	return nil
}

func (n *Neg) Uses(v Var) bool     { return n.In.Equal(v) }
func (n *Neg) Inputs() []Var       { return []Var{n.In} }
func (n *Neg) Output() (Var, bool) { return n.Out, true }
func (n *Neg) Eval() (Node, bool)  { return nil, false }

func (n *Neg) MaybeInline(env Env) (Node, bool) {
	if v, ok := env.Consts[n.In.Name]; ok {
		return &Neg{Out: n.Out, In: v}, true
	}
	return nil, false
}

func (n *Neg) Clone() Node { c := *n; return &c }

func (n *Neg) Compile(b Backend, sink *machineir.Sink) { b.CompileNeg(n, sink) }

func (n *Neg) CompileDirect(c Codegen, blk *Block) {
	s := &machineir.Sink{}
	n.Compile(c.Backend(), s)
	c.EmitDirect(s.Instrs, blk)
}
