package ir

import (
	"retarget/machineir"
	"retarget/types"
)

// FunctionType is the signature used by Verify to check Return nodes and
// Param-shaped inputs against the enclosing function. Return is types.Void
// for a function with no result.
type FunctionType struct {
	Params []Var
	Return types.Meta
}

// Profile selects how Dump output is colorized. The core never renders to a
// terminal itself (textual IR dump/coloring is an external collaborator per
// spec.md §1); Profile is kept here only so DumpColored has a stable
// signature for that external caller to drive.
type Profile struct {
	Color bool
}

// Env carries statically-known constant values for MaybeInline substitution.
type Env struct {
	Consts map[string]Var
}

// Node is the capability set every IR instruction kind implements (spec.md
// §4.1). A closed set of concrete struct types implement it, each with
// its own Verify/Eval methods, and Function.Verify walks them through
// this interface (design note §9(a): a closed kind set is preferred
// because the kind set is fixed and verification benefits from
// non-defaulted arms).
type Node interface {
	Dump() string
	DumpColored(Profile) string
	Verify(FunctionType) error
	Uses(v Var) bool
	Inputs() []Var
	Output() (Var, bool)
	Eval() (Node, bool)
	MaybeInline(Env) (Node, bool)
	Clone() Node

	// Compile appends this node's portable MachineInstr(s) to sink by
	// dispatching to the matching Backend method.
	Compile(b Backend, sink *machineir.Sink)
	// CompileDirect is the alternative path used when a backend bypasses
	// MachineInstr and lowers straight from IR. It must agree with Compile
	// on observable output (design note §9); every concrete node's
	// CompileDirect is a thin wrapper that reuses Compile against a
	// throwaway Sink and then asks the backend to lower+emit it
	// immediately, which guarantees agreement by construction rather than
	// by duplication.
	CompileDirect(c Codegen, blk *Block)
}

// Backend is the per-node-kind compile dispatch table a target backend
// descriptor must provide (spec.md §4.4's "compile_<op>" methods). Each
// concrete Node.Compile calls exactly one of these.
type Backend interface {
	CompileAssign(n *Assign, sink *machineir.Sink)
	CompileCast(n *Cast, sink *machineir.Sink)
	CompileNeg(n *Neg, sink *machineir.Sink)
	CompileArith(n *Arith, sink *machineir.Sink)
	CompileCmp(n *Cmp, sink *machineir.Sink)
	CompileBr(n *Br, sink *machineir.Sink)
	CompileBrCond(n *BrCond, sink *machineir.Sink)
	CompileSwitch(n *Switch, sink *machineir.Sink)
	CompileCall(n *Call, sink *machineir.Sink)
	CompileReturn(n *Return, sink *machineir.Sink)
	CompileStore(n *Store, sink *machineir.Sink)
	CompileLoad(n *Load, sink *machineir.Sink)
	CompileAlloca(n *Alloca, sink *machineir.Sink)
	CompileAddressLoad(n *AddressLoad, sink *machineir.Sink)
}

// Codegen is the direct-compile collaborator (spec.md's compile_dir path).
type Codegen interface {
	Backend() Backend
	EmitDirect(instrs []machineir.MachineInstr, blk *Block)
}
