// Copyright (c) 2024 The Sprite Programming Language
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package regalloc

// useKind and useRange are adapted from the teacher's linear-scan
// allocator (compile/codegen/lsra_interval.go's Interval/Range/UsePoint).
// Global linear-scan allocation itself is out of scope here (spec.md
// names a single-pass, local prep allocator instead); what survives is
// the bookkeeping idea of a "last instruction id a Var is read at",
// which the prep pass below uses to decide whether a source operand's
// slot can be reused for the result instead of allocating a fresh one.
type useKind int

const (
	ukRead useKind = iota
	ukWrite
)

type usePoint struct {
	instrID int
	kind    useKind
}

// useRange tracks, for one Var local to a Block, every instruction index
// that reads or writes it. lastRead reports the highest instruction index
// at which the Var is still live as a read, mirroring Interval.firstUsage
// turned around: the prep pass only cares about the *last* use since it
// walks instructions forward and asks "is this the final read of source1",
// not the LSRA question of "where does this interval's next use start".
type useRange struct {
	points []usePoint
}

func (u *useRange) record(instrID int, kind useKind) {
	u.points = append(u.points, usePoint{instrID: instrID, kind: kind})
}

func (u *useRange) lastRead() int {
	last := -1
	for _, p := range u.points {
		if p.kind == ukRead && p.instrID > last {
			last = p.instrID
		}
	}
	return last
}
