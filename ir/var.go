package ir

import "retarget/types"

// Var is a single-assignment value: a name unique within its Function plus
// its TypeMetadata. It is a cheap value type identified by name and type,
// mirroring falcon's ssa.Value identity (compared by Id there; here a Var
// is a pure value so two Vars with the same Name/Type are the same SSA name).
type Var struct {
	Name string
	Type types.Meta
}

func (v Var) String() string { return v.Name }

// Equal reports whether two Vars name the same SSA value.
func (v Var) Equal(o Var) bool { return v.Name == o.Name && v.Type.Equal(o.Type) }
