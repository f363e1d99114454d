package x64

import (
	"retarget/ir"
	"retarget/machineir"
	"retarget/types"
)

// ccJumpNotZero is the condition code a BrCond's Jcc carries: the
// preceding Test sets ZF from Cond, and the jump to Then must fire when
// Cond is non-zero (ZF clear), i.e. CCNe.
const ccJumpNotZero = CCNe

// The CompileXxx methods below implement ir.Backend: each translates one
// ir.Node into the portable machineir.MachineInstr stream, staging through
// the destination the way falcon's asm_x86.go does for a two-operand op
// whose destination differs from both sources ("mov dst, src1; op dst,
// src2"). Lower (backend.go, via lowerOne) later assigns real
// registers/stack slots to the Vars these instructions still name by
// string and rewrites them into Instr.

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
	default: // KShr
		return machineir.Shr
	}
}

func (b *Backend) CompileArith(n *ir.Arith, sink *machineir.Sink) {
	sink.Emit(machineir.MachineInstr{
		Mnemonic: machineir.MovRR, Output: n.Out.Name, Type: n.Out.Type,
		Args: []machineir.Operand{machineir.VarOperand(n.L.Name, n.L.Type)},
	})
	sink.Emit(machineir.MachineInstr{
		Mnemonic: mnemonicFor(n.Kind), Output: n.Out.Name, Type: n.Out.Type,
		Args: []machineir.Operand{machineir.VarOperand(n.Out.Name, n.Out.Type), machineir.VarOperand(n.R.Name, n.R.Type)},
	})
}

func (b *Backend) CompileCmp(n *ir.Cmp, sink *machineir.Sink) {
	sink.Emit(machineir.MachineInstr{
		Mnemonic: machineir.Cmp, Type: n.L.Type,
		Args: []machineir.Operand{machineir.VarOperand(n.L.Name, n.L.Type), machineir.VarOperand(n.R.Name, n.R.Type)},
	})
	sink.Emit(machineir.MachineInstr{
		Mnemonic: machineir.SetCC, Output: n.Out.Name, Type: n.Out.Type,
		Args: []machineir.Operand{{Kind: machineir.OpImm, Imm: int64(n.Mode)}},
	})
}

func (b *Backend) CompileAssign(n *ir.Assign, sink *machineir.Sink) {
	sink.Emit(machineir.MachineInstr{
		Mnemonic: machineir.MovRR, Output: n.Out.Name, Type: n.Out.Type,
		Args: []machineir.Operand{machineir.VarOperand(n.In.Name, n.In.Type)},
	})
}

func (b *Backend) CompileCast(n *ir.Cast, sink *machineir.Sink) {
	mnem := machineir.MovZX
	if n.In.Type.Width >= n.Out.Type.Width {
		mnem = machineir.MovRR
	}
	sink.Emit(machineir.MachineInstr{
		Mnemonic: mnem, Output: n.Out.Name, Type: n.Out.Type,
		Args: []machineir.Operand{machineir.VarOperand(n.In.Name, n.In.Type)},
	})
}

func (b *Backend) CompileNeg(n *ir.Neg, sink *machineir.Sink) {
	sink.Emit(machineir.MachineInstr{
		Mnemonic: machineir.MovRR, Output: n.Out.Name, Type: n.Out.Type,
		Args: []machineir.Operand{machineir.VarOperand(n.In.Name, n.In.Type)},
	})
	sink.Emit(machineir.MachineInstr{
		Mnemonic: machineir.Neg, Output: n.Out.Name, Type: n.Out.Type,
		Args: []machineir.Operand{machineir.VarOperand(n.Out.Name, n.Out.Type)},
	})
}

func (b *Backend) CompileBr(n *ir.Br, sink *machineir.Sink) {
	sink.Emit(machineir.MachineInstr{Mnemonic: machineir.Jmp, Args: []machineir.Operand{machineir.LabelOperand(n.Target)}})
}

func (b *Backend) CompileBrCond(n *ir.BrCond, sink *machineir.Sink) {
	sink.Emit(machineir.MachineInstr{
		Mnemonic: machineir.Test, Type: n.Cond.Type,
		Args: []machineir.Operand{machineir.VarOperand(n.Cond.Name, n.Cond.Type), machineir.VarOperand(n.Cond.Name, n.Cond.Type)},
	})
	sink.Emit(machineir.MachineInstr{Mnemonic: machineir.Jcc, Args: []machineir.Operand{machineir.LabelOperand(n.Then), machineir.ImmOperand(int64(ccJumpNotZero), types.U8)}})
	sink.Emit(machineir.MachineInstr{Mnemonic: machineir.Jmp, Args: []machineir.Operand{machineir.LabelOperand(n.Else)}})
}

func (b *Backend) CompileSwitch(n *ir.Switch, sink *machineir.Sink) {
	for _, c := range n.Cases {
		sink.Emit(machineir.MachineInstr{
			Mnemonic: machineir.Cmp, Type: n.Cond.Type,
			Args: []machineir.Operand{machineir.VarOperand(n.Cond.Name, n.Cond.Type), machineir.ImmOperand(c.Value, n.Cond.Type)},
		})
		sink.Emit(machineir.MachineInstr{Mnemonic: machineir.Jcc, Args: []machineir.Operand{machineir.LabelOperand(c.Target), machineir.ImmOperand(int64(CCEq), types.U8)}})
	}
	sink.Emit(machineir.MachineInstr{Mnemonic: machineir.Jmp, Args: []machineir.Operand{machineir.LabelOperand(n.Default)}})
}

func (b *Backend) CompileCall(n *ir.Call, sink *machineir.Sink) {
	sink.Emit(machineir.MachineInstr{Mnemonic: machineir.CallStackPrepare})
	for i, a := range n.Args {
		sink.Emit(machineir.MachineInstr{
			Mnemonic: machineir.MovRR, Output: argSlotName(i), Type: a.Type,
			Args: []machineir.Operand{machineir.VarOperand(a.Name, a.Type)},
		})
	}
	call := machineir.MachineInstr{Mnemonic: machineir.Call, Args: []machineir.Operand{machineir.LabelOperand(n.Callee)}}
	if !n.Out.Type.IsVoid() {
		call.Output = n.Out.Name
		call.Type = n.Out.Type
	}
	sink.Emit(call)
	sink.Emit(machineir.MachineInstr{Mnemonic: machineir.CallStackRedo})
}

func argSlotName(i int) string {
	names := [...]string{"$arg0", "$arg1", "$arg2", "$arg3", "$arg4", "$arg5"}
	if i < len(names) {
		return names[i]
	}
	return "$argN"
}

func (b *Backend) CompileReturn(n *ir.Return, sink *machineir.Sink) {
	if n.Value != nil {
		sink.Emit(machineir.MachineInstr{
			Mnemonic: machineir.MovRR, Output: "$retval", Type: n.Value.Type,
			Args: []machineir.Operand{machineir.VarOperand(n.Value.Name, n.Value.Type)},
		})
	}
	sink.Emit(machineir.MachineInstr{Mnemonic: machineir.Epilog})
	sink.Emit(machineir.MachineInstr{Mnemonic: machineir.Ret})
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
