package ir

import (
	"fmt"
	"strings"

	"retarget/machineir"
)

type SwitchCase struct {
	Value  int64
	Target string
}

// Switch is a multi-way terminator on an integer Var, lowered by
// comparing Cond against each Case value in turn and jumping to Default
// when none matches; both backends use this compare chain (wasm as
// compare + br_if, with no br_table).
type Switch struct {
	Cond    Var
	Cases   []SwitchCase
	Default string
}

func (n *Switch) Dump() string {
	var b strings.Builder
	fmt.Fprintf(&b, "switch %s {", n.Cond)
	for _, c := range n.Cases {
		fmt.Fprintf(&b, " %d: %s,", c.Value, c.Target)
	}
	fmt.Fprintf(&b, " default: %s }", n.Default)
	return b.String()
}

func (n *Switch) DumpColored(Profile) string { return n.Dump() }
func (n *Switch) Verify(FunctionType) error  { return nil }
func (n *Switch) Uses(v Var) bool            { return n.Cond.Equal(v) }
func (n *Switch) Inputs() []Var              { return []Var{n.Cond} }
func (n *Switch) Output() (Var, bool)        { return Var{}, false }
func (n *Switch) Eval() (Node, bool)         { return nil, false }

func (n *Switch) MaybeInline(env Env) (Node, bool) {
	if v, ok := env.Consts[n.Cond.Name]; ok {
		c := *n
		c.Cond = v
		return &c, true
	}
	return nil, false
}

func (n *Switch) Clone() Node {
	c := *n
	c.Cases = append([]SwitchCase(nil), n.Cases...)
	return &c
}

func (n *Switch) Compile(b Backend, sink *machineir.Sink) { b.CompileSwitch(n, sink) }

func (n *Switch) CompileDirect(c Codegen, blk *Block) {
	s := &machineir.Sink{}
	n.Compile(c.Backend(), s)
	c.EmitDirect(s.Instrs, blk)
}
