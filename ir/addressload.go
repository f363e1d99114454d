package ir

import (
	"fmt"

	"retarget/machineir"
)

// AddressLoad materializes the address of a named symbol (global data or
// function) into Out, without touching the memory it points at. This is
// the node lowerConst's "string/array constant" path and lowerCall's
// callee-symbol resolution generalize to (falcon's lower_x86.go
// lowerConst/lowerCall), pulled out into its own node so regalloc and the
// peephole pass can reason about it uniformly.
type AddressLoad struct {
	Out    Var
	Symbol string
}

func (n *AddressLoad) Dump() string              { return fmt.Sprintf("%s = addr %s", n.Out, n.Symbol) }
func (n *AddressLoad) DumpColored(Profile) string { return n.Dump() }

func (n *AddressLoad) Verify(FunctionType) error {
	if _, ok := n.Out.Type.Pointee(); !ok {
		return verifyErr(Op0Op1TyNoMatch, n, "addressload result must be a pointer type")
	}
	return nil
}

func (n *AddressLoad) Uses(Var) bool           { return false }
func (n *AddressLoad) Inputs() []Var           { return nil }
func (n *AddressLoad) Output() (Var, bool)     { return n.Out, true }
func (n *AddressLoad) Eval() (Node, bool)      { return nil, false }
func (n *AddressLoad) MaybeInline(Env) (Node, bool) { return nil, false }
func (n *AddressLoad) Clone() Node             { c := *n; return &c }

func (n *AddressLoad) Compile(b Backend, sink *machineir.Sink) { b.CompileAddressLoad(n, sink) }

func (n *AddressLoad) CompileDirect(c Codegen, blk *Block) {
	s := &machineir.Sink{}
	n.Compile(c.Backend(), s)
	c.EmitDirect(s.Instrs, blk)
}
