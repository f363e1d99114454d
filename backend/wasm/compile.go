package wasm

import (
	"fmt"

	"retarget/ir"
	"retarget/machineir"
	"retarget/types"
)

// CompileXxx methods mirror x64's compile.go shape: each node lowers to
// the same portable machineir.Mnemonic vocabulary, since backend.Lower
// (not these methods) is where x64 vs. wasm actually diverge (registers
// and bytes vs. locals and an operand stack).

func mnemonicFor(k ir.ArithKind) machineir.Mnemonic {
	switch k {
	case ir.KAdd:
		return machineir.Add
	case ir.KSub:
		return machineir.Sub
	case ir.KMul:
		return machineir.IMul
	case ir.KDiv, ir.KRem:
		return machineir.IDiv
	case ir.KAnd:
		return machineir.And
	case ir.KOr:
		return machineir.Or
	case ir.KXor:
		return machineir.Xor
	case ir.KShl:
		return machineir.Shl
	default:
		return machineir.Shr
	}
}

func (b *Backend) CompileArith(n *ir.Arith, sink *machineir.Sink) {
	sink.Emit(machineir.MachineInstr{
		Mnemonic: mnemonicFor(n.Kind), Output: n.Out.Name, Type: n.Out.Type,
		Args: []machineir.Operand{machineir.VarOperand(n.L.Name, n.L.Type), machineir.VarOperand(n.R.Name, n.R.Type)},
	})
}

func (b *Backend) CompileCmp(n *ir.Cmp, sink *machineir.Sink) {
	sink.Emit(machineir.MachineInstr{
		Mnemonic: machineir.Cmp, Output: n.Out.Name, Type: n.Out.Type,
		Args: []machineir.Operand{machineir.VarOperand(n.L.Name, n.L.Type), machineir.VarOperand(n.R.Name, n.R.Type), machineir.ImmOperand(int64(n.Mode), n.Out.Type)},
	})
}

func (b *Backend) CompileAssign(n *ir.Assign, sink *machineir.Sink) {
	sink.Emit(machineir.MachineInstr{
		Mnemonic: machineir.MovRR, Output: n.Out.Name, Type: n.Out.Type,
		Args: []machineir.Operand{machineir.VarOperand(n.In.Name, n.In.Type)},
	})
}

func (b *Backend) CompileCast(n *ir.Cast, sink *machineir.Sink) {
	sink.Emit(machineir.MachineInstr{
		Mnemonic: machineir.MovRR, Output: n.Out.Name, Type: n.Out.Type,
		Args: []machineir.Operand{machineir.VarOperand(n.In.Name, n.In.Type)},
	})
}

func (b *Backend) CompileNeg(n *ir.Neg, sink *machineir.Sink) {
	sink.Emit(machineir.MachineInstr{
		Mnemonic: machineir.Neg, Output: n.Out.Name, Type: n.Out.Type,
		Args: []machineir.Operand{machineir.VarOperand(n.In.Name, n.In.Type)},
	})
}

func (b *Backend) CompileBr(n *ir.Br, sink *machineir.Sink) {
	sink.Emit(machineir.MachineInstr{Mnemonic: machineir.Jmp, Args: []machineir.Operand{machineir.LabelOperand(n.Target)}})
}

func (b *Backend) CompileBrCond(n *ir.BrCond, sink *machineir.Sink) {
	sink.Emit(machineir.MachineInstr{
		Mnemonic: machineir.Jcc, Type: n.Cond.Type,
		Args: []machineir.Operand{machineir.VarOperand(n.Cond.Name, n.Cond.Type), machineir.LabelOperand(n.Then)},
	})
	sink.Emit(machineir.MachineInstr{Mnemonic: machineir.Jmp, Args: []machineir.Operand{machineir.LabelOperand(n.Else)}})
}

func (b *Backend) CompileSwitch(n *ir.Switch, sink *machineir.Sink) {
	for i, c := range n.Cases {
		probe := fmt.Sprintf("$switch.%s.%d", n.Cond.Name, i)
		sink.Emit(machineir.MachineInstr{
			Mnemonic: machineir.Cmp, Output: probe, Type: types.U8,
			Args: []machineir.Operand{machineir.VarOperand(n.Cond.Name, n.Cond.Type), machineir.ImmOperand(c.Value, n.Cond.Type), machineir.ImmOperand(int64(ir.CmpEq), types.U8)},
		})
		sink.Emit(machineir.MachineInstr{
			Mnemonic: machineir.Jcc,
			Args:     []machineir.Operand{machineir.VarOperand(probe, types.U8), machineir.LabelOperand(c.Target)},
		})
	}
	sink.Emit(machineir.MachineInstr{Mnemonic: machineir.Jmp, Args: []machineir.Operand{machineir.LabelOperand(n.Default)}})
}

func (b *Backend) CompileCall(n *ir.Call, sink *machineir.Sink) {
	// CallStackPrepare/CallStackRedo are no-ops on wasm (ygen's
	// Target/wasm/lower.rs maps both to {}): argument passing is purely
	// the operand-stack push order, there is no caller-reserved stack
	// space to bracket.
	call := machineir.MachineInstr{Mnemonic: machineir.Call, Args: []machineir.Operand{machineir.LabelOperand(n.Callee)}}
	for _, a := range n.Args {
		call.Args = append(call.Args, machineir.VarOperand(a.Name, a.Type))
	}
	if !n.Out.Type.IsVoid() {
		call.Output = n.Out.Name
		call.Type = n.Out.Type
	}
	sink.Emit(call)
}

func (b *Backend) CompileReturn(n *ir.Return, sink *machineir.Sink) {
	i := machineir.MachineInstr{Mnemonic: machineir.Ret}
	if n.Value != nil {
		i.Args = []machineir.Operand{machineir.VarOperand(n.Value.Name, n.Value.Type)}
		i.Type = n.Value.Type
	}
	sink.Emit(i)
}

func (b *Backend) CompileStore(n *ir.Store, sink *machineir.Sink) {
	sink.Emit(machineir.MachineInstr{
		Mnemonic: machineir.MovMR, Type: n.Value.Type,
		Args: []machineir.Operand{machineir.VarOperand(n.Addr.Name, n.Addr.Type), machineir.VarOperand(n.Value.Name, n.Value.Type)},
	})
}

func (b *Backend) CompileLoad(n *ir.Load, sink *machineir.Sink) {
	sink.Emit(machineir.MachineInstr{
		Mnemonic: machineir.MovRM, Output: n.Out.Name, Type: n.Out.Type,
		Args: []machineir.Operand{machineir.VarOperand(n.Addr.Name, n.Addr.Type)},
	})
}

func (b *Backend) CompileAlloca(n *ir.Alloca, sink *machineir.Sink) {
	// Wasm has no stack-address-of-local concept the way x64 does; the
	// portable Lea this emits carries only the immediate Size, and it is
	// backend.go's lowerInto (Lea case) that recognizes that shape and
	// actually reserves space in linear memory by bumping memCursor, the
	// same division of labor as regalloc.Frame.reserveAlloca on the x64
	// side. Out receives that memory offset as a plain i32.
	sink.Emit(machineir.MachineInstr{
		Mnemonic: machineir.Lea, Output: n.Out.Name, Type: n.Out.Type,
		Args: []machineir.Operand{machineir.ImmOperand(int64(n.Size), n.Elem)},
	})
}

func (b *Backend) CompileAddressLoad(n *ir.AddressLoad, sink *machineir.Sink) {
	sink.Emit(machineir.MachineInstr{
		Mnemonic: machineir.Lea, Output: n.Out.Name, Type: n.Out.Type,
		Args: []machineir.Operand{machineir.LabelOperand(n.Symbol)},
	})
}
