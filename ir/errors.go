package ir

import "fmt"

// VerifyError is returned by Node.Verify and Function.Verify. Kind lets
// callers branch on the failure category without parsing the message,
// mirroring the closed error-kind enum ygen's node verifiers return
// (IR/nodes/cast.rs's Op0Op1TyNoMatch and friends).
type VerifyErrorKind int

const (
	// Op0Op1TyNoMatch: an instruction's operand types disagree where the
	// node requires them equal (e.g. Arith's or Cmp's two operands), or an
	// operand or result has a type the node does not accept.
	Op0Op1TyNoMatch VerifyErrorKind = iota
	// UseOfUndefined: a Var is read before any node in the function defines it.
	UseOfUndefined
	// TerminatorMisplaced: a block terminator (Br/BrCond/Switch/Return)
	// appears in a non-final position, or a block's final node isn't one.
	TerminatorMisplaced
	// ReturnTypeMismatch: a Return node's operand type disagrees with the
	// enclosing FunctionType.Return.
	ReturnTypeMismatch
)

func (k VerifyErrorKind) String() string {
	switch k {
	case Op0Op1TyNoMatch:
		return "operand types do not match"
	case UseOfUndefined:
		return "use of undefined value"
	case TerminatorMisplaced:
		return "terminator misplaced"
	case ReturnTypeMismatch:
		return "return type mismatch"
	default:
		return "unknown verify error"
	}
}

type VerifyError struct {
	Kind VerifyErrorKind
	Node Node
	Msg  string
}

func (e *VerifyError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return e.Kind.String()
}

func verifyErr(kind VerifyErrorKind, n Node, format string, args ...interface{}) *VerifyError {
	return &VerifyError{Kind: kind, Node: n, Msg: fmt.Sprintf(format, args...)}
}
