package x64

// Peephole runs the six local rewrite rules over a lowered instruction
// stream, grounded directly on ygen's Target/x64/asm/optimizer.rs
// Optimize<Instr> impl:
//
//  1. mov dst, src; add dst, imm  ->  lea dst, [src+imm]
//  2. mov x, x                     ->  removed
//  3. mov dst, a; mov dst, b       ->  second mov wins, first removed
//  4. mov a, b; mov c, a (c == b)  ->  removed (c already equals b)
//  5. call f; ret                  ->  jmp f  (tail call)
//  6. push r; pop r                ->  removed (inverse pair cancels)
//
// Unlike optimizer.rs, rule 5's rewrite does NOT re-append a Ret after
// emitting the Jmp: the Rust original unconditionally pushes every Ret
// instruction it sees onto its output regardless of whether the
// preceding Call was just rewritten into a Jmp, producing a dead
// "jmp f; ret" pair. That is a known bug in the source this rule is
// ported from and is deliberately not reproduced here.
func Peephole(in []Instr) []Instr {
	out := make([]Instr, 0, len(in))
	for i := 0; i < len(in); i++ {
		cur := in[i]

		// Rule 1: mov dst, src; add dst, imm -> lea dst, [src+imm]
		if i+1 < len(in) && cur.Mnemonic == MOV && in[i+1].Mnemonic == ADD {
			nxt := in[i+1]
			if sameOperand(cur.Dst, nxt.Dst) && nxt.Src.Kind == OperKindImm && cur.Src.Kind == OperKindReg {
				out = append(out, Instr{
					Mnemonic: LEA, Dst: cur.Dst, HasDst: true, HasSrc: true,
					Src:   MemOp(Mem{Base: cur.Src.Reg, Disp: int32(nxt.Src.Imm)}),
					Width: cur.Width,
				})
				i++
				continue
			}
		}

		// Rule 2: mov x, x is a no-op.
		if cur.Mnemonic == MOV && sameOperand(cur.Dst, cur.Src) {
			continue
		}

		// Rule 3: two movs to the same destination in a row — the first
		// is dead, only the second's value survives to any later use.
		if cur.Mnemonic == MOV && i+1 < len(in) && in[i+1].Mnemonic == MOV && sameOperand(cur.Dst, in[i+1].Dst) {
			continue
		}

		// Rule 4: mov a, b; mov c, a where c already equals b — c was
		// just loaded from b, so reloading it from a (which is b) is dead.
		if cur.Mnemonic == MOV && i+1 < len(in) && in[i+1].Mnemonic == MOV {
			nxt := in[i+1]
			if sameOperand(nxt.Src, cur.Dst) && sameOperand(nxt.Dst, cur.Src) {
				out = append(out, cur)
				i++
				continue
			}
		}

		// Rule 5: call f; ret -> jmp f (tail call).
		if cur.Mnemonic == CALL && i+1 < len(in) && in[i+1].Mnemonic == RET {
			out = append(out, Instr{Mnemonic: JMP, Dst: cur.Dst, HasDst: true})
			i++
			continue
		}

		// Rule 6: push r; pop r cancels out.
		if cur.Mnemonic == PUSH && i+1 < len(in) && in[i+1].Mnemonic == POP && sameOperand(cur.Dst, in[i+1].Dst) {
			i++
			continue
		}

		out = append(out, cur)
	}
	return out
}

func sameOperand(a, b Operand) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case OperKindReg:
		return a.Reg == b.Reg
	case OperKindImm:
		return a.Imm == b.Imm
	case OperKindLabel:
		return a.Label == b.Label
	case OperKindMem:
		return a.Mem == b.Mem
	default:
		return false
	}
}
