package wasm

import "retarget/types"

// Op is a WebAssembly instruction opcode, restricted to the subset this
// backend emits. Named constants use the canonical wasm mnemonic
// spelling (spec.md §4.6) rather than renumbering into a Go-style enum,
// since the numeric opcode value is exactly what Encode must write.
type Op byte

const (
	OpUnreachable Op = 0x00
	OpNop         Op = 0x01
	OpBlock       Op = 0x02
	OpLoopOp      Op = 0x03
	OpIf          Op = 0x04
	OpElse        Op = 0x05
	OpEnd         Op = 0x0B
	OpBr          Op = 0x0C
	OpBrIf        Op = 0x0D
	OpBrTable     Op = 0x0E
	OpReturn      Op = 0x0F
	OpCall        Op = 0x10

	OpLocalGet Op = 0x20
	OpLocalSet Op = 0x21
	OpLocalTee Op = 0x22

	OpI32Const Op = 0x41
	OpI64Const Op = 0x42
	OpF32Const Op = 0x43
	OpF64Const Op = 0x44

	OpI32Eqz Op = 0x45
	OpI32Eq  Op = 0x46
	OpI32Ne  Op = 0x47
	OpI32LtS Op = 0x48
	OpI32LeS Op = 0x4C
	OpI32GtS Op = 0x4A
	OpI32GeS Op = 0x4E

	OpI32Add Op = 0x6A
	OpI32Sub Op = 0x6B
	OpI32Mul Op = 0x6C
	OpI32DivS Op = 0x6D
	OpI32RemS Op = 0x6F
	OpI32And Op = 0x71
	OpI32Or   Op = 0x72
	OpI32Xor  Op = 0x73
	OpI32Shl  Op = 0x74
	OpI32ShrS Op = 0x75

	OpI64Add Op = 0x7C
	OpI64Sub Op = 0x7D
	OpI64Mul Op = 0x7E

	OpF64Add Op = 0xA0
	OpF64Sub Op = 0xA1
	OpF64Mul Op = 0xA2
	OpF64Div Op = 0xA3
	OpF64Neg Op = 0x9A

	OpI32Load  Op = 0x28
	OpI64Load  Op = 0x29
	OpI32Store Op = 0x36
	OpI64Store Op = 0x37
)

// Instr is one wasm instruction: an opcode plus whatever immediate
// operand it carries (a local/function index, a branch depth, or a
// constant), LEB128-encoded at Encode time.
type Instr struct {
	Op    Op
	Imm   int64
	FImm  float64
	IsF   bool
	Label string // for Br/BrIf/Call: unresolved target, resolved by Encode
}

func valueType(t types.Meta) byte {
	switch {
	case t.Float && t.Width == 32:
		return 0x7D // f32
	case t.Float:
		return 0x7C // f64
	case t.Width == 64:
		return 0x7E // i64
	default:
		return 0x7F // i32
	}
}
