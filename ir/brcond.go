package ir

import (
	"fmt"

	"retarget/machineir"
	"retarget/types"
)

// BrCond is the two-way conditional terminator falcon's BlockKindIf
// lowers (lower_x86.go's lowerBlockControl): jump to Then if Cond is
// true (non-zero), else fall through to / jump to Else.
type BrCond struct {
	Cond       Var
	Then, Else string
}

func (n *BrCond) Dump() string              { return fmt.Sprintf("brcond %s, %s, %s", n.Cond, n.Then, n.Else) }
func (n *BrCond) DumpColored(Profile) string { return n.Dump() }

func (n *BrCond) Verify(FunctionType) error {
	if !n.Cond.Type.Equal(types.U8) {
		return verifyErr(Op0Op1TyNoMatch, n, "brcond condition must be u8, got %s", n.Cond.Type)
	}
	return nil
}

func (n *BrCond) Uses(v Var) bool     { return n.Cond.Equal(v) }
func (n *BrCond) Inputs() []Var       { return []Var{n.Cond} }
func (n *BrCond) Output() (Var, bool) { return Var{}, false }
func (n *BrCond) Eval() (Node, bool) {
	// BrCond is never folded: Eval always reports no change, even for a
	// Cond that MaybeInline has replaced with a constant Var, so both
	// arms stay in the CFG.
	return nil, false
}

func (n *BrCond) MaybeInline(env Env) (Node, bool) {
	if v, ok := env.Consts[n.Cond.Name]; ok {
		return &BrCond{Cond: v, Then: n.Then, Else: n.Else}, true
	}
	return nil, false
}

func (n *BrCond) Clone() Node { c := *n; return &c }

func (n *BrCond) Compile(b Backend, sink *machineir.Sink) { b.CompileBrCond(n, sink) }

func (n *BrCond) CompileDirect(c Codegen, blk *Block) {
	s := &machineir.Sink{}
	n.Compile(c.Backend(), s)
	c.EmitDirect(s.Instrs, blk)
}
