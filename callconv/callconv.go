// Package callconv picks argument/return registers, caller/callee-save
// sets and stack-shadow-space rules per target triple. Generalizes
// falcon's codegen/arch_x86.go functions (ReturnReg, CallerSaveRegs,
// CalleeSaveRegs, ArgReg), which branch on runtime.GOOS because falcon
// only ever targets the host it runs on, into an explicit table keyed by
// target.Triple so a cross-compiler can pick the convention of a target
// it isn't running on.
package callconv

import (
	"fmt"

	"retarget/target"
)

// RegClass distinguishes the GPR and XMM (float) argument-register
// sequences, since they're assigned independently (falcon's
// arch_x86.go keeps a separate index per class for the same reason).
type RegClass int

const (
	ClassInt RegClass = iota
	ClassFloat
)

// Conv is one calling convention: enough to let the x64 backend assign
// argument locations and the regalloc prep pass know which registers it
// may clobber without saving.
type Conv struct {
	Name string

	IntArgRegs   []string
	FloatArgRegs []string
	IntReturn    string
	FloatReturn  string

	CallerSave []string
	CalleeSave []string

	// ShadowBytes is the caller-reserved "shadow space" below the return
	// address a callee may scribble into without its own prologue storing
	// args there (Windows x64: 32, System-V: 0).
	ShadowBytes int
}

func (c *Conv) ArgReg(class RegClass, index int) (string, bool) {
	regs := c.IntArgRegs
	if class == ClassFloat {
		regs = c.FloatArgRegs
	}
	if index < 0 || index >= len(regs) {
		return "", false
	}
	return regs[index], true
}

func (c *Conv) ReturnReg(class RegClass) string {
	if class == ClassFloat {
		return c.FloatReturn
	}
	return c.IntReturn
}

var systemV = &Conv{
	Name:         "sysv",
	IntArgRegs:   []string{"RDI", "RSI", "RDX", "RCX", "R8", "R9"},
	FloatArgRegs: []string{"XMM0", "XMM1", "XMM2", "XMM3", "XMM4", "XMM5", "XMM6", "XMM7"},
	IntReturn:    "RAX",
	FloatReturn:  "XMM0",
	CallerSave:   []string{"RAX", "RCX", "RDX", "RSI", "RDI", "R8", "R9", "R10", "R11"},
	CalleeSave:   []string{"RBX", "RBP", "R12", "R13", "R14", "R15"},
	ShadowBytes:  0,
}

var win64 = &Conv{
	Name:         "win64",
	IntArgRegs:   []string{"RCX", "RDX", "R8", "R9"},
	FloatArgRegs: []string{"XMM0", "XMM1", "XMM2", "XMM3"},
	IntReturn:    "RAX",
	FloatReturn:  "XMM0",
	CallerSave:   []string{"RAX", "RCX", "RDX", "R8", "R9", "R10", "R11"},
	CalleeSave:   []string{"RBX", "RBP", "RSI", "RDI", "R12", "R13", "R14", "R15"},
	ShadowBytes:  32,
}

// wasmConv is a degenerate convention: wasm arguments/results pass through
// the function signature's value types on the operand stack, not fixed
// registers, so the arg/return register lists are empty and every
// lookup legitimately misses (backend/wasm never consults them).
var wasmConv = &Conv{Name: "wasm"}

// ErrUnsupportedArch mirrors ygen's RegistryError::UnsuportedArch
// (Target/registry.rs), returned by For when no convention is defined
// for a triple's Arch/OS pair.
type ErrUnsupportedArch struct {
	Triple target.Triple
}

func (e *ErrUnsupportedArch) Error() string {
	return fmt.Sprintf("callconv: no calling convention for target %s", e.Triple)
}

// For resolves the calling convention for a triple.
func For(t target.Triple) (*Conv, error) {
	switch t.Arch {
	case target.ArchX86_64:
		if t.OS == target.OSWindows {
			return win64, nil
		}
		return systemV, nil
	case target.ArchWasm32:
		return wasmConv, nil
	default:
		return nil, &ErrUnsupportedArch{Triple: t}
	}
}
