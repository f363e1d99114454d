package ir

import "retarget/types"

// Function is a compilation unit: an ordered list of Blocks plus the
// signature Verify checks Return nodes against. Blocks are kept in a flat
// slice rather than falcon's Entry+linked-successor graph because this
// package's control edges live on terminator nodes (see block.go); Verify
// walks those edges to rebuild reachability instead of a separate CFG
// structure, matching falcon's VerifyHIR's reachability pass (hir.go) in
// spirit while avoiding a duplicate edge list to keep in sync.
type Function struct {
	Name   string
	Type   FunctionType
	Blocks []*Block
}

func NewFunction(name string, typ FunctionType) *Function {
	return &Function{Name: name, Type: typ}
}

func (f *Function) AddBlock(b *Block) {
	f.Blocks = append(f.Blocks, b)
}

func (f *Function) BlockByName(name string) (*Block, bool) {
	for _, b := range f.Blocks {
		if b.Name == name {
			return b, true
		}
	}
	return nil, false
}

// Verify walks every block's node list, checking (per spec.md §4.1 and
// falcon's VerifyHIR in compile/ssa/hir.go): every non-final node is a
// non-terminator, every final node is a terminator, every node's own
// Verify passes, every Var read by a node is defined by some earlier
// node (def-use reachability, checked with a running defined-set rather
// than full dominance since this package has no SSA dominator tree),
// and every Return's operand type matches Type.Return.
func (f *Function) Verify() error {
	defined := map[string]types.Meta{}
	for _, p := range f.Type.Params {
		defined[p.Name] = p.Type
	}

	for _, b := range f.Blocks {
		for i, n := range b.Nodes {
			isLast := i == len(b.Nodes)-1
			if IsTerminator(n) && !isLast {
				return verifyErr(TerminatorMisplaced, n, "terminator %T not last in block %q", n, b.Name)
			}
			if !IsTerminator(n) && isLast {
				return verifyErr(TerminatorMisplaced, n, "block %q does not end in a terminator", b.Name)
			}

			for _, in := range n.Inputs() {
				if _, ok := defined[in.Name]; !ok {
					return verifyErr(UseOfUndefined, n, "%q used before definition", in.Name)
				}
			}

			if err := n.Verify(f.Type); err != nil {
				return err
			}

			if ret, ok := n.(*Return); ok {
				if ret.Value != nil && !ret.Value.Type.Equal(f.Type.Return) {
					return verifyErr(ReturnTypeMismatch, n, "returns %s, function declares %s", ret.Value.Type, f.Type.Return)
				}
				if ret.Value == nil && !f.Type.Return.IsVoid() {
					return verifyErr(ReturnTypeMismatch, n, "bare return in function declaring %s", f.Type.Return)
				}
			}

			if out, ok := n.Output(); ok {
				defined[out.Name] = out.Type
			}
		}
	}
	return nil
}

// Reachable returns the subset of f.Blocks reachable from the entry block
// (f.Blocks[0]) by following terminator successor edges, mirroring
// falcon's FindReachableBlocks (compile/ssa/optimize.go). Blocks that no
// terminator edge from the entry reaches are excluded.
func (f *Function) Reachable() []*Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	seen := map[string]bool{}
	var order []*Block
	var walk func(name string)
	walk = func(name string) {
		if seen[name] {
			return
		}
		b, ok := f.BlockByName(name)
		if !ok {
			return
		}
		seen[name] = true
		order = append(order, b)
		for _, succ := range successors(b) {
			walk(succ)
		}
	}
	walk(f.Blocks[0].Name)
	return order
}

func successors(b *Block) []string {
	switch t := b.Terminator().(type) {
	case *Br:
		return []string{t.Target}
	case *BrCond:
		return []string{t.Then, t.Else}
	case *Switch:
		out := make([]string, 0, len(t.Cases)+1)
		for _, c := range t.Cases {
			out = append(out, c.Target)
		}
		out = append(out, t.Default)
		return out
	default:
		return nil
	}
}
