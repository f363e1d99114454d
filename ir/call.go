package ir

import (
	"fmt"
	"strings"

	"retarget/machineir"
)

// Call invokes Callee with Args in argument order, producing Out (the
// zero Var, recognizable via types.Void, for a void callee). Lowering
// brackets the instruction stream with CallStackPrepare/CallStackRedo
// (see machineir.Mnemonic) so a calling convention that needs outgoing
// stack space can reserve/release it; System-V needs neither.
type Call struct {
	Callee string
	Args   []Var
	Out    Var
}

func (n *Call) Dump() string {
	parts := make([]string, len(n.Args))
	for i, a := range n.Args {
		parts[i] = a.String()
	}
	if n.Out.Type.IsVoid() {
		return fmt.Sprintf("call %s(%s)", n.Callee, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("%s = call %s(%s)", n.Out, n.Callee, strings.Join(parts, ", "))
}

func (n *Call) DumpColored(Profile) string { return n.Dump() }
func (n *Call) Verify(FunctionType) error  { return nil }

func (n *Call) Uses(v Var) bool {
	for _, a := range n.Args {
		if a.Equal(v) {
			return true
		}
	}
	return false
}

func (n *Call) Inputs() []Var { return n.Args }

func (n *Call) Output() (Var, bool) {
	if n.Out.Type.IsVoid() {
		return Var{}, false
	}
	return n.Out, true
}

func (n *Call) Eval() (Node, bool) { return nil, false }

func (n *Call) MaybeInline(env Env) (Node, bool) {
	c := *n
	changed := false
	args := append([]Var(nil), n.Args...)
	for i, a := range args {
		if v, ok := env.Consts[a.Name]; ok {
			args[i] = v
			changed = true
		}
	}
	if !changed {
		return nil, false
	}
	c.Args = args
	return &c, true
}

func (n *Call) Clone() Node {
	c := *n
	c.Args = append([]Var(nil), n.Args...)
	return &c
}

func (n *Call) Compile(b Backend, sink *machineir.Sink) { b.CompileCall(n, sink) }

func (n *Call) CompileDirect(c Codegen, blk *Block) {
	s := &machineir.Sink{}
	n.Compile(c.Backend(), s)
	c.EmitDirect(s.Instrs, blk)
}
