package ir

import (
	"fmt"

	"retarget/machineir"
)

// Cast reinterprets or converts In (declared type In.Type) to Out.Type.
// Grounded on ygen's IR/nodes/cast.rs: Verify rejects only a Cast whose
// Out or In is void (any two non-void types are accepted), and Eval folds
// to a plain Assign when the cast is a no-op (Out.Type == In.Type).
type Cast struct {
	Out, In Var
}

func (n *Cast) Dump() string              { return fmt.Sprintf("%s = cast %s to %s", n.Out, n.In, n.Out.Type) }
func (n *Cast) DumpColored(Profile) string { return n.Dump() }

func (n *Cast) Verify(FunctionType) error {
	// A cast is legal between any two non-void scalar types. This node
	// has no separately recorded output type to compare against Out, so
	// the only check is that neither side is void.
	if n.Out.Type.IsVoid() || n.In.Type.IsVoid() {
		return verifyErr(Op0Op1TyNoMatch, n, "cast cannot involve void")
	}
	return nil
}

func (n *Cast) Uses(v Var) bool     { return n.In.Equal(v) }
func (n *Cast) Inputs() []Var       { return []Var{n.In} }
func (n *Cast) Output() (Var, bool) { return n.Out, true }

// Eval folds a same-type cast to a plain Assign, exactly as ygen's
// Cast::eval does ("self.inner2 == self.inner1.ty" there).
func (n *Cast) Eval() (Node, bool) {
	if n.Out.Type.Equal(n.In.Type) {
		return &Assign{Out: n.Out, In: n.In}, true
	}
	return nil, false
}

func (n *Cast) MaybeInline(env Env) (Node, bool) {
	if v, ok := env.Consts[n.In.Name]; ok {
		return &Cast{Out: n.Out, In: v}, true
	}
	return nil, false
}

func (n *Cast) Clone() Node { c := *n; return &c }

func (n *Cast) Compile(b Backend, sink *machineir.Sink) { b.CompileCast(n, sink) }

func (n *Cast) CompileDirect(c Codegen, blk *Block) {
	s := &machineir.Sink{}
	n.Compile(c.Backend(), s)
	c.EmitDirect(s.Instrs, blk)
}
