package ir

import (
	"fmt"

	"retarget/machineir"
)

// Store writes Value to the memory Addr points at. ygen keeps two Rust
// impls (Store<Var,Var> and Store<Var,Type> for storing a bare immediate);
// here that split collapses into the single Var-to-Var struct below —
// there is no immediate-valued Store form, so a stored value is always a
// Var — since Go doesn't need a second monomorphization to
// special-case the operand shape the way store.rs does.
type Store struct {
	Addr  Var
	Value Var
}

func (n *Store) Dump() string              { return fmt.Sprintf("store %s, [%s]", n.Value, n.Addr) }
func (n *Store) DumpColored(Profile) string { return n.Dump() }

// Verify is trivially Ok, mirroring both of ygen's Store impls (store.rs),
// which perform no type checking beyond what construction already enforces.
func (n *Store) Verify(FunctionType) error { return nil }

func (n *Store) Uses(v Var) bool     { return n.Addr.Equal(v) || n.Value.Equal(v) }
func (n *Store) Inputs() []Var       { return []Var{n.Addr, n.Value} }
func (n *Store) Output() (Var, bool) { return Var{}, false }
func (n *Store) Eval() (Node, bool)  { return nil, false }

func (n *Store) MaybeInline(env Env) (Node, bool) {
	c := *n
	changed := false
	if v, ok := env.Consts[n.Value.Name]; ok {
		c.Value = v
		changed = true
	}
	if !changed {
		return nil, false
	}
	return &c, true
}

func (n *Store) Clone() Node { c := *n; return &c }

func (n *Store) Compile(b Backend, sink *machineir.Sink) { b.CompileStore(n, sink) }

func (n *Store) CompileDirect(c Codegen, blk *Block) {
	s := &machineir.Sink{}
	n.Compile(c.Backend(), s)
	c.EmitDirect(s.Instrs, blk)
}
