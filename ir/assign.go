package ir

import (
	"fmt"

	"retarget/machineir"
)

// Assign is a plain copy, the node Cast.Eval and other folds rewrite
// themselves into when they degenerate to an identity move (mirrors
// ygen's IR/nodes/cast.rs: Cast::eval returns an Assign::new(out, in)
// when the cast is between identical types).
type Assign struct {
	Out, In Var
}

func (n *Assign) Dump() string              { return fmt.Sprintf("%s = %s", n.Out, n.In) }
func (n *Assign) DumpColored(Profile) string { return n.Dump() }

func (n *Assign) Verify(FunctionType) error {
	if !n.Out.Type.Equal(n.In.Type) {
		return verifyErr(Op0Op1TyNoMatch, n, "assign %s := %s: type mismatch", n.Out, n.In)
	}
	return nil
}

func (n *Assign) Uses(v Var) bool     { return n.In.Equal(v) }
func (n *Assign) Inputs() []Var       { return []Var{n.In} }
func (n *Assign) Output() (Var, bool) { return n.Out, true }
func (n *Assign) Eval() (Node, bool)  { return nil, false }

func (n *Assign) MaybeInline(env Env) (Node, bool) {
	if v, ok := env.Consts[n.In.Name]; ok {
		return &Assign{Out: n.Out, In: v}, true
	}
	return nil, false
}

func (n *Assign) Clone() Node { c := *n; return &c }

func (n *Assign) Compile(b Backend, sink *machineir.Sink) { b.CompileAssign(n, sink) }

func (n *Assign) CompileDirect(c Codegen, blk *Block) {
	s := &machineir.Sink{}
	n.Compile(c.Backend(), s)
	c.EmitDirect(s.Instrs, blk)
}
