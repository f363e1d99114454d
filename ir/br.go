package ir

import (
	"fmt"

	"retarget/machineir"
)

// Br is an unconditional jump, the terminator falcon's BlockKindGoto lowers to.
type Br struct {
	Target string
}

func (n *Br) Dump() string              { return fmt.Sprintf("br %s", n.Target) }
func (n *Br) DumpColored(Profile) string { return n.Dump() }
func (n *Br) Verify(FunctionType) error  { return nil }
func (n *Br) Uses(Var) bool             { return false }
func (n *Br) Inputs() []Var             { return nil }
func (n *Br) Output() (Var, bool)       { return Var{}, false }
func (n *Br) Eval() (Node, bool)        { return nil, false }
func (n *Br) MaybeInline(Env) (Node, bool) { return nil, false }
func (n *Br) Clone() Node               { c := *n; return &c }
func (n *Br) Compile(b Backend, sink *machineir.Sink) { b.CompileBr(n, sink) }
func (n *Br) CompileDirect(c Codegen, blk *Block) {
	s := &machineir.Sink{}
	n.Compile(c.Backend(), s)
	c.EmitDirect(s.Instrs, blk)
}
