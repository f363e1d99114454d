package wasm

import (
	"fmt"

	"retarget/obj"
)

// scope is one open wasm block/loop construct while structure.go walks
// the chunk list emitting bytes.
type scope struct {
	label   string
	isLoop  bool
	closeAt int // chunk index after which this scope's `end` is emitted
}

// EncodeFunction structures a linear Chunk list (one per source IR
// Block, in the order Function.Reachable() produced them) into properly
// nested wasm block/loop/br/br_if/end, then serializes it plus the
// function's local declarations to a wasm code-section function body.
//
// Structuring assumes the reducible-CFG shape a statement-to-IR lowering
// from structured source (if/while/switch, never raw goto) naturally
// produces: every branch either goes forward to a later chunk (modeled
// as a `block` wrapping everything from the function start up to that
// chunk) or backward to an earlier-or-equal chunk (modeled as a `loop`
// starting at the target and closing after the last chunk that still
// branches back to it). Arbitrary irreducible control flow is out of
// scope; EncodeFunction returns an error rather than emit invalid wasm
// if a branch target is not in scope at its use site.
func EncodeFunction(chunks []Chunk, localTys []byte, funcName string) ([]byte, []obj.Link, error) {
	index := map[string]int{}
	for i, c := range chunks {
		index[c.Label] = i
	}

	loopEnd := map[int]int{} // loop header chunk index -> last chunk index that branches back to it
	forwardTargets := map[int]bool{}

	for i, c := range chunks {
		for _, instr := range c.Body {
			if instr.Op != OpBr && instr.Op != OpBrIf {
				continue
			}
			tgt, ok := index[instr.Label]
			if !ok {
				continue // external symbol (e.g. a Call target), not a structural branch
			}
			if tgt > i {
				forwardTargets[tgt] = true
			} else {
				if cur, ok := loopEnd[tgt]; !ok || i > cur {
					loopEnd[tgt] = i
				}
			}
		}
	}

	var body []byte
	emitLocalDecls(&body, localTys)

	var stack []scope

	// Open every forward-target block at the very start, outermost
	// (largest target index) first so they close in ascending order as
	// chunks are emitted — matching a LIFO stack exactly.
	var forwardOrder []int
	for t := range forwardTargets {
		forwardOrder = append(forwardOrder, t)
	}
	sortDescending(forwardOrder)
	for _, t := range forwardOrder {
		stack = append(stack, scope{label: chunks[t].Label, closeAt: t})
		body = append(body, byte(OpBlock), 0x40)
	}

	var relocs []obj.Link

	for i, c := range chunks {
		for len(stack) > 0 && !stack[len(stack)-1].isLoop && stack[len(stack)-1].closeAt == i {
			stack = stack[:len(stack)-1]
			body = append(body, byte(OpEnd))
		}
		if end, ok := loopEnd[i]; ok {
			stack = append(stack, scope{label: c.Label, isLoop: true, closeAt: end})
			body = append(body, byte(OpLoopOp), 0x40)
		}

		for _, instr := range c.Body {
			switch instr.Op {
			case OpBr, OpBrIf:
				depth, ok := findDepth(stack, instr.Label)
				if !ok {
					return nil, nil, fmt.Errorf("wasm: branch target %q not structurally in scope at block %q", instr.Label, c.Label)
				}
				body = append(body, byte(instr.Op))
				body = append(body, EncodeUint32(uint32(depth))...)
			case OpCall:
				body = append(body, byte(OpCall))
				relocs = append(relocs, obj.Link{Symbol: instr.Label, From: funcName, Offset: len(body), Kind: obj.RelocAbsolute64})
				body = append(body, EncodeUint32(0)...) // function index patched by the linker
			case OpLocalGet, OpLocalSet, OpLocalTee:
				body = append(body, byte(instr.Op))
				body = append(body, EncodeUint32(uint32(instr.Imm))...)
			case OpI32Const:
				body = append(body, byte(instr.Op))
				body = append(body, EncodeInt32(int32(instr.Imm))...)
			case OpI64Const:
				body = append(body, byte(instr.Op))
				body = append(body, EncodeInt64(instr.Imm)...)
			default:
				body = append(body, byte(instr.Op))
			}
		}

		for len(stack) > 0 && stack[len(stack)-1].isLoop && stack[len(stack)-1].closeAt == i {
			stack = stack[:len(stack)-1]
			body = append(body, byte(OpEnd))
		}
	}

	for range stack {
		body = append(body, byte(OpEnd))
	}
	body = append(body, byte(OpEnd)) // function body terminator

	return body, relocs, nil
}

func findDepth(stack []scope, label string) (int, bool) {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].label == label {
			return len(stack) - 1 - i, true
		}
	}
	return 0, false
}

func sortDescending(xs []int) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] < xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}

// emitLocalDecls writes the wasm local-variable declaration vector: a
// count of distinct (count, type) runs, matching how wazero's own
// function-body encoder groups consecutive same-typed locals rather
// than writing one entry per local.
func emitLocalDecls(body *[]byte, localTys []byte) {
	type run struct {
		count uint32
		typ   byte
	}
	var runs []run
	for _, t := range localTys {
		if len(runs) > 0 && runs[len(runs)-1].typ == t {
			runs[len(runs)-1].count++
			continue
		}
		runs = append(runs, run{count: 1, typ: t})
	}
	*body = append(*body, EncodeUint32(uint32(len(runs)))...)
	for _, r := range runs {
		*body = append(*body, EncodeUint32(r.count)...)
		*body = append(*body, r.typ)
	}
}
