package ir

import (
	"fmt"

	"retarget/machineir"
)

// Return is the function-exit terminator. Value is nil for a void return.
type Return struct {
	Value *Var
}

func (n *Return) Dump() string {
	if n.Value == nil {
		return "ret"
	}
	return fmt.Sprintf("ret %s", *n.Value)
}

func (n *Return) DumpColored(Profile) string { return n.Dump() }
func (n *Return) Verify(FunctionType) error  { return nil }

func (n *Return) Uses(v Var) bool { return n.Value != nil && n.Value.Equal(v) }

func (n *Return) Inputs() []Var {
	if n.Value == nil {
		return nil
	}
	return []Var{*n.Value}
}

func (n *Return) Output() (Var, bool) { return Var{}, false }
func (n *Return) Eval() (Node, bool)  { return nil, false }

func (n *Return) MaybeInline(env Env) (Node, bool) {
	if n.Value == nil {
		return nil, false
	}
	if v, ok := env.Consts[n.Value.Name]; ok {
		return &Return{Value: &v}, true
	}
	return nil, false
}

func (n *Return) Clone() Node {
	c := *n
	if n.Value != nil {
		v := *n.Value
		c.Value = &v
	}
	return &c
}

func (n *Return) Compile(b Backend, sink *machineir.Sink) { b.CompileReturn(n, sink) }

func (n *Return) CompileDirect(c Codegen, blk *Block) {
	s := &machineir.Sink{}
	n.Compile(c.Backend(), s)
	c.EmitDirect(s.Instrs, blk)
}
