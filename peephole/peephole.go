// Package peephole is the arch-neutral driver that runs a set of local
// rewrite rules over a portable machineir.MachineInstr stream, before a
// target's Lower ever sees it. This mirrors ygen's generic
// Target/pass/optimizer.rs driver loop (match a window, rewrite,
// re-scan from the rewrite point) one level up from
// backend/x64/peephole.go, which performs the same shape of rewrite but
// on x64's already-lowered, register-allocated Instr stream. The two
// are deliberately separate passes: this package catches redundancies
// visible before register allocation (e.g. a Cast that Eval already
// folded leaving a dead Assign chain), while backend/x64's pass catches
// ones only visible after allocation has picked concrete registers.
package peephole

import "retarget/machineir"

// Matcher inspects the window starting at in[i] and, if it recognizes a
// rewritable pattern, returns the replacement instructions and how many
// input instructions they consumed. ok is false if no match starts at i.
type Matcher func(in []machineir.MachineInstr, i int) (rewrite []machineir.MachineInstr, consumed int, ok bool)

// Rules is the default rule set, applied in order at each position;
// the first rule that matches wins for that position.
var Rules = []Matcher{
	matchSelfAssign,
	matchDoubleAssign,
	matchDeadLabel,
}

// Run applies rules left to right over in until no rule matches
// anywhere in the stream, mirroring optimizer.rs's fixpoint loop. No
// rule other than matchDeadLabel ever recognizes a machineir.Label as
// its starting instruction (matchSelfAssign/matchDoubleAssign both
// guard on a MovRR mnemonic), so ordinary rewrites never fuse across a
// block boundary; a label is removed only when no instruction in the
// stream names it.
func Run(in []machineir.MachineInstr, rules []Matcher) []machineir.MachineInstr {
	cur := in
	for {
		next, changed := pass(cur, rules)
		if !changed {
			return next
		}
		cur = next
	}
}

func pass(in []machineir.MachineInstr, rules []Matcher) ([]machineir.MachineInstr, bool) {
	out := make([]machineir.MachineInstr, 0, len(in))
	changed := false
	for i := 0; i < len(in); {
		matched := false
		for _, rule := range rules {
			rewrite, consumed, ok := rule(in, i)
			if !ok || consumed == 0 {
				continue
			}
			out = append(out, rewrite...)
			i += consumed
			changed = true
			matched = true
			break
		}
		if !matched {
			out = append(out, in[i])
			i++
		}
	}
	return out, changed
}

// matchSelfAssign drops "mov x, x" at the portable level — an Assign or
// Cast node Eval already folds to this shape for identical types
// (ir/cast.go), but a Cast between distinctly-named but
// identically-valued vars can still produce one after earlier rewrites.
func matchSelfAssign(in []machineir.MachineInstr, i int) ([]machineir.MachineInstr, int, bool) {
	cur := in[i]
	if cur.Mnemonic != machineir.MovRR || len(cur.Args) != 1 {
		return nil, 0, false
	}
	if cur.Args[0].Kind != machineir.OpVar || cur.Args[0].Var != cur.Output {
		return nil, 0, false
	}
	return nil, 1, true
}

// matchDoubleAssign drops the first of two consecutive movs to the same
// destination: "mov dst, a; mov dst, b" only the second value survives.
func matchDoubleAssign(in []machineir.MachineInstr, i int) ([]machineir.MachineInstr, int, bool) {
	if i+1 >= len(in) {
		return nil, 0, false
	}
	cur, nxt := in[i], in[i+1]
	if cur.Mnemonic != machineir.MovRR || nxt.Mnemonic != machineir.MovRR {
		return nil, 0, false
	}
	if cur.Output == "" || cur.Output != nxt.Output {
		return nil, 0, false
	}
	return []machineir.MachineInstr{nxt}, 2, true
}

// matchDeadLabel drops a Label marker that nothing branches to,
// determined by scanning the rest of the stream for any instruction's
// label operand naming it. BuildInstrs emits one label per source block
// unconditionally, so this can fire on the first pass: the entry block's
// label is dropped whenever nothing branches back to it, as is any label
// a prior rewrite left unreferenced.
func matchDeadLabel(in []machineir.MachineInstr, i int) ([]machineir.MachineInstr, int, bool) {
	cur := in[i]
	if cur.Mnemonic != machineir.Label || len(cur.Args) != 1 {
		return nil, 0, false
	}
	name := cur.Args[0].Label
	for j, instr := range in {
		if j == i {
			continue
		}
		for _, a := range instr.Args {
			if a.Kind == machineir.OpLabel && a.Label == name {
				return nil, 0, false
			}
		}
	}
	return nil, 1, true
}
