package ir

import (
	"fmt"

	"retarget/machineir"
)

// Load reads the memory Addr points at into Out.
type Load struct {
	Out, Addr Var
}

func (n *Load) Dump() string              { return fmt.Sprintf("%s = load [%s]", n.Out, n.Addr) }
func (n *Load) DumpColored(Profile) string { return n.Dump() }
func (n *Load) Verify(FunctionType) error  { return nil }
func (n *Load) Uses(v Var) bool           { return n.Addr.Equal(v) }
func (n *Load) Inputs() []Var             { return []Var{n.Addr} }
func (n *Load) Output() (Var, bool)       { return n.Out, true }
func (n *Load) Eval() (Node, bool)        { return nil, false }

func (n *Load) MaybeInline(env Env) (Node, bool) {
	if v, ok := env.Consts[n.Addr.Name]; ok {
		return &Load{Out: n.Out, Addr: v}, true
	}
	return nil, false
}

func (n *Load) Clone() Node { c := *n; return &c }

func (n *Load) Compile(b Backend, sink *machineir.Sink) { b.CompileLoad(n, sink) }

func (n *Load) CompileDirect(c Codegen, blk *Block) {
	s := &machineir.Sink{}
	n.Compile(c.Backend(), s)
	c.EmitDirect(s.Instrs, blk)
}
