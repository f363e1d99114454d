package ir

import (
	"fmt"

	"retarget/machineir"
	"retarget/types"
)

// CmpMode is the comparison predicate. It carries no signed/unsigned
// bit, and neither backend consults L.Type.Signed: both lower Lt/Le/Gt/Ge
// to signed comparisons (x64 jl/jle/jg/jge-family condition codes, wasm
// i32.lt_s and friends) whatever the operand type's signedness.
type CmpMode int

const (
	CmpEq CmpMode = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

func (m CmpMode) String() string {
	return [...]string{"eq", "ne", "lt", "le", "gt", "ge"}[m]
}

// Cmp always produces a u8 boolean Var (0 or 1), regardless of operand
// width; Verify rejects any other Out type.
type Cmp struct {
	Mode      CmpMode
	Out       Var
	L, R      Var
}

func (n *Cmp) Dump() string {
	return fmt.Sprintf("%s = cmp.%s %s, %s", n.Out, n.Mode, n.L, n.R)
}

func (n *Cmp) DumpColored(Profile) string { return n.Dump() }

func (n *Cmp) Verify(FunctionType) error {
	if !n.L.Type.Equal(n.R.Type) {
		return verifyErr(Op0Op1TyNoMatch, n, "%s and %s differ", n.L, n.R)
	}
	if !n.Out.Type.Equal(types.U8) {
		return verifyErr(Op0Op1TyNoMatch, n, "cmp result must be u8, got %s", n.Out.Type)
	}
	return nil
}

func (n *Cmp) Uses(v Var) bool     { return n.L.Equal(v) || n.R.Equal(v) }
func (n *Cmp) Inputs() []Var       { return []Var{n.L, n.R} }
func (n *Cmp) Output() (Var, bool) { return n.Out, true }
func (n *Cmp) Eval() (Node, bool)  { return nil, false }

func (n *Cmp) MaybeInline(env Env) (Node, bool) {
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

func (n *Cmp) Clone() Node { c := *n; return &c }

func (n *Cmp) Compile(b Backend, sink *machineir.Sink) { b.CompileCmp(n, sink) }

func (n *Cmp) CompileDirect(c Codegen, blk *Block) {
	s := &machineir.Sink{}
	n.Compile(c.Backend(), s)
	c.EmitDirect(s.Instrs, blk)
}
