package ir

import (
	"fmt"

	"retarget/machineir"
)

// ArithKind enumerates the binary integer/float operators that share a
// single Arith node shape. falcon keeps Add/Sub/Mul/... as distinct ssa.Op
// enum values on one Value struct (hir.go); this package goes one step
// further and gives them one Go type too, since verify/uses/inputs/output/
// eval/clone are identical across all ten and only the Compile dispatch
// target differs.
type ArithKind int

const (
	KAdd ArithKind = iota
	KSub
	KMul
	KDiv
	KAnd
	KOr
	KXor
	KShl
	KShr
	KRem
)

func (k ArithKind) String() string {
	return [...]string{"add", "sub", "mul", "div", "and", "or", "xor", "shl", "shr", "rem"}[k]
}

type Arith struct {
	Kind        ArithKind
	Out, L, R   Var
}

func (n *Arith) Dump() string {
	return fmt.Sprintf("%s = %s %s, %s", n.Out, n.Kind, n.L, n.R)
}

func (n *Arith) DumpColored(Profile) string { return n.Dump() }

func (n *Arith) Verify(FunctionType) error {
	if !n.L.Type.Equal(n.R.Type) {
		return verifyErr(Op0Op1TyNoMatch, n, "%s and %s differ", n.L, n.R)
	}
	if !n.Out.Type.Equal(n.L.Type) {
		return verifyErr(Op0Op1TyNoMatch, n, "result type %s does not match operand type %s", n.Out.Type, n.L.Type)
	}
	return nil
}

func (n *Arith) Uses(v Var) bool       { return n.L.Equal(v) || n.R.Equal(v) }
func (n *Arith) Inputs() []Var         { return []Var{n.L, n.R} }
func (n *Arith) Output() (Var, bool)   { return n.Out, true }

// Eval constant-folds when both operands are literal (represented here as
// Vars whose Name is a decimal literal is out of scope for a pure-Var IR;
// constant folding over literal Nodes is handled by builder-level constant
// nodes feeding Assign, so Arith.Eval never folds on its own and always
// returns false, mirroring the conservative default every ygen node not
// specifically listed with an Eval override takes).
func (n *Arith) Eval() (Node, bool) { return nil, false }

func (n *Arith) MaybeInline(env Env) (Node, bool) {
	c := *n
	changed := false
	if v, ok := env.Consts[n.L.Name]; ok {
		c.L = v
		changed = true
	}
	if v, ok := env.Consts[n.R.Name]; ok {
		c.R = v
		changed = true
	}
	if !changed {
		return nil, false
	}
	return &c, true
}

func (n *Arith) Clone() Node {
	c := *n
	return &c
}

func (n *Arith) Compile(b Backend, sink *machineir.Sink) { b.CompileArith(n, sink) }

func (n *Arith) CompileDirect(c Codegen, blk *Block) {
	s := &machineir.Sink{}
	n.Compile(c.Backend(), s)
	c.EmitDirect(s.Instrs, blk)
}
